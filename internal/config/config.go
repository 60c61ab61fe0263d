// Package config holds runtime configuration: defaults, file and environment
// loading, CLI flag overrides, and validation. A Config is built once at
// startup, validated, and then treated as read-only by every other package.
package config

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/go-playground/validator/v10"
)

// --- Enum types for validated string fields ---

// EncoderMode selects the video encoder used for every file.
type EncoderMode string

const (
	EncoderCPU   EncoderMode = "cpu"   // Software encoding via libx265.
	EncoderNVENC EncoderMode = "nvenc" // Hardware encoding via hevc_nvenc.
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Config holds all runtime settings. It is populated by [DefaultConfig],
// overlaid by [Load] (file, then environment) and by CLI flags, then checked
// by [Config.Validate].
type Config struct {
	// Remote host. Authentication is left to the ssh client configuration.
	Host string `yaml:"host" envconfig:"REMOTE_HOST" validate:"required"`
	User string `yaml:"user" envconfig:"REMOTE_USER" validate:"required"`

	// Remote folders (absolute POSIX paths).
	IngestFolder string `yaml:"ingest_folder" envconfig:"INGEST_FOLDER" validate:"required"`
	OutputFolder string `yaml:"output_folder" envconfig:"OUTPUT_FOLDER" validate:"required"`

	// Encoding.
	EncoderMode  EncoderMode `yaml:"encoder" envconfig:"ENCODER" validate:"required,oneof=cpu nvenc"`
	VerifyOutput bool        `yaml:"verify_output" envconfig:"VERIFY_OUTPUT"` // sniff and ffprobe the converted file before upload.

	// Disposition: converted files whose size ratio to the original exceeds this are not uploaded. Default: 1.3.
	InflationThreshold float64 `yaml:"inflation_threshold" envconfig:"INFLATION_THRESHOLD" validate:"gt=0"`

	// Attempt budgets per stage. Default: 3 each.
	DownloadAttempts int `yaml:"download_attempts" envconfig:"DOWNLOAD_ATTEMPTS" validate:"min=1"`
	ConvertAttempts  int `yaml:"convert_attempts" envconfig:"CONVERT_ATTEMPTS" validate:"min=1"`
	UploadAttempts   int `yaml:"upload_attempts" envconfig:"UPLOAD_ATTEMPTS" validate:"min=1"`

	// Local working directory for downloads and converted files. Default: ".".
	WorkDir string `yaml:"work_dir" envconfig:"WORK_DIR" validate:"required"`
	// Leave every local file behind when a run aborts. Default: false.
	KeepFailedArtifacts bool `yaml:"keep_failed_artifacts" envconfig:"KEEP_FAILED_ARTIFACTS"`

	// External binaries.
	SSHBinary     string `yaml:"ssh_binary" envconfig:"SSH_BINARY" validate:"required"`
	SCPBinary     string `yaml:"scp_binary" envconfig:"SCP_BINARY" validate:"required"`
	FFmpegBinary  string `yaml:"ffmpeg_binary" envconfig:"FFMPEG_BINARY" validate:"required"`
	FFprobeBinary string `yaml:"ffprobe_binary" envconfig:"FFPROBE_BINARY" validate:"required"`

	// Display and logging.
	LogLevel  string    `yaml:"log_level" envconfig:"LOG_LEVEL" validate:"oneof=trace debug info warn error"`
	LogFile   string    `yaml:"log_file" envconfig:"LOG_FILE"`
	ColorMode ColorMode `yaml:"color" envconfig:"COLOR" validate:"oneof=auto always never"`
	Verbose   bool      `yaml:"verbose" envconfig:"VERBOSE"`

	// Supervision.
	MetricsAddr string `yaml:"metrics_addr" envconfig:"METRICS_ADDR"`
	StatusFile  string `yaml:"status_file" envconfig:"STATUS_FILE"`

	// Run modes (flags only).
	Once      bool `yaml:"-" ignored:"true"`
	CheckOnly bool `yaml:"-" ignored:"true"`
}

// DefaultConfig returns a Config with every optional field at its default.
// Required fields (host, user, folders) are left empty.
func DefaultConfig() Config {
	return Config{
		EncoderMode:        EncoderCPU,
		InflationThreshold: 1.3,
		DownloadAttempts:   3,
		ConvertAttempts:    3,
		UploadAttempts:     3,
		WorkDir:            ".",
		SSHBinary:          "ssh",
		SCPBinary:          "scp",
		FFmpegBinary:       "ffmpeg",
		FFprobeBinary:      "ffprobe",
		LogLevel:           "info",
		ColorMode:          ColorAuto,
	}
}

// Target returns the ssh destination in user@host form.
func (c *Config) Target() string {
	return c.User + "@" + c.Host
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(p string) string {
	if p == "/" {
		return "/"
	}
	return strings.TrimRight(p, "/")
}

var validate = validator.New()

// Validate normalizes folder paths and checks every field. In CheckOnly mode
// the remote host, user and folders may be empty so diagnostics can run on a
// partial config.
func (c *Config) Validate() error {
	c.IngestFolder = NormalizeDirArg(c.IngestFolder)
	c.OutputFolder = NormalizeDirArg(c.OutputFolder)

	if c.CheckOnly {
		if err := validate.StructExcept(c, "Host", "User", "IngestFolder", "OutputFolder"); err != nil {
			return describe(err)
		}
		return nil
	}
	if err := validate.Struct(c); err != nil {
		return describe(err)
	}
	return ValidateFolders(c.IngestFolder, c.OutputFolder)
}

// ValidateFolders ensures both remote folders are absolute and that the
// output folder is not the ingest folder or inside it. Listing is
// non-recursive but would pick up the output directory itself as an entry.
func ValidateFolders(ingest, output string) error {
	if !path.IsAbs(ingest) {
		return fmt.Errorf("ingest folder must be an absolute path (got %q)", ingest)
	}
	if !path.IsAbs(output) {
		return fmt.Errorf("output folder must be an absolute path (got %q)", output)
	}
	ingest, output = path.Clean(ingest), path.Clean(output)
	if ingest == "/" || output == ingest || strings.HasPrefix(output+"/", ingest+"/") {
		return errors.New("output folder must not be inside ingest folder")
	}
	return nil
}

// describe turns validator errors into one readable line per field.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("missing %s", fe.Field()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("invalid %s %q (use one of: %s)", fe.Field(), fe.Value(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("invalid %s %v (must satisfy %s=%s)", fe.Field(), fe.Value(), fe.Tag(), fe.Param()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
