// Package logging configures the structured zerolog logger used across the
// binary: human-readable console output (colored when the terminal allows)
// plus an optional append-only JSON log file.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/backmassage/mediaferry/internal/config"
	"github.com/backmassage/mediaferry/internal/term"
)

// Logger wraps the configured zerolog.Logger together with the file sink it
// may own. Call Close when done if LogFile was set.
type Logger struct {
	zerolog.Logger

	mu   sync.Mutex
	file *os.File
}

// New resolves colors from cfg, opens cfg.LogFile for appending when set,
// and returns a logger writing to stdout (console format) and the file (JSON).
func New(cfg *config.Config) (*Logger, error) {
	term.Configure(cfg.ColorMode)
	console := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		NoColor:    !term.Enabled(),
		TimeFormat: "2006-01-02 15:04:05",
	}
	return newLogger(cfg, console)
}

// NewWithWriter is New with the console sink replaced by w (JSON lines).
// Used by tests and by callers that capture output.
func NewWithWriter(cfg *config.Config, w io.Writer) (*Logger, error) {
	return newLogger(cfg, w)
}

func newLogger(cfg *config.Config, console io.Writer) (*Logger, error) {
	l := &Logger{}
	out := console
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, err
		}
		l.file = f
		out = zerolog.MultiLevelWriter(console, f)
	}

	l.Logger = zerolog.New(out).Level(Level(cfg)).With().Timestamp().Logger()
	return l, nil
}

// Level maps the configured level string to zerolog, forcing debug when
// Verbose is set. Unknown strings fall back to info.
func Level(cfg *config.Config) zerolog.Level {
	if cfg.Verbose {
		return zerolog.DebugLevel
	}
	if cfg.LogLevel == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// Component returns a child logger annotated with the given component name.
func (l *Logger) Component(name string) zerolog.Logger {
	return l.With().Str(FieldComponent, name).Logger()
}

// Close closes the log file if one was opened.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}
