package config

// This file implements CLI flag parsing and help text.
// Flags are parsed into a scratch Config; only flags the user actually set are
// copied onto the loaded Config, so file and environment values hold otherwise.

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// Options is the result of flag parsing: the config file location, the
// exit-early requests, and the overrides to apply after [Load].
type Options struct {
	ConfigPath  string
	ShowHelp    bool
	ShowVersion bool

	scratch Config
	set     map[string]bool
}

// ParseFlags parses args (without the program name). On error it returns
// non-nil (e.g. unknown flag, stray positional args).
func ParseFlags(args []string) (*Options, error) {
	o := &Options{set: make(map[string]bool)}
	fs := flag.NewFlagSet("mediaferry", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&o.ConfigPath, "config", "", "YAML config file")
	defineRemoteFlags(fs, &o.scratch)
	defineEncodingFlags(fs, &o.scratch)
	defineBehaviorFlags(fs, &o.scratch)
	defineDisplayFlags(fs, &o.scratch)
	fs.BoolVar(&o.ShowVersion, "version", false, "Print version and exit")
	fs.BoolVar(&o.ShowVersion, "V", false, "Same as --version")
	fs.BoolVar(&o.ShowHelp, "help", false, "Show this help and exit")
	fs.BoolVar(&o.ShowHelp, "h", false, "Same as --help")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	fs.Visit(func(f *flag.Flag) { o.set[canonical(f.Name)] = true })
	return o, nil
}

// defineRemoteFlags registers --host, --user, --ingest, --output.
func defineRemoteFlags(fs *flag.FlagSet, c *Config) {
	fs.StringVar(&c.Host, "host", "", "Remote host")
	fs.StringVar(&c.User, "user", "", "Remote user")
	fs.StringVar(&c.IngestFolder, "ingest", "", "Remote ingest folder")
	fs.StringVar(&c.OutputFolder, "output", "", "Remote output folder")
}

// defineEncodingFlags registers -m/--mode, --threshold, --verify-output.
func defineEncodingFlags(fs *flag.FlagSet, c *Config) {
	fs.Var(&encoderModeValue{&c.EncoderMode}, "mode", "Encoder mode: cpu | nvenc")
	fs.Var(&encoderModeValue{&c.EncoderMode}, "m", "Same as --mode")
	fs.Float64Var(&c.InflationThreshold, "threshold", 0, "Max converted/original size ratio to upload")
	fs.BoolVar(&c.VerifyOutput, "verify-output", false, "Check converted files are 4096x2048 MP4 video before upload")
}

// defineBehaviorFlags registers --workdir, --once, -c/--check, --metrics-addr, --status-file.
func defineBehaviorFlags(fs *flag.FlagSet, c *Config) {
	fs.StringVar(&c.WorkDir, "workdir", "", "Local working directory")
	fs.BoolVar(&c.Once, "once", false, "Process a single file and exit")
	fs.BoolVar(&c.CheckOnly, "check", false, "Run system diagnostics and exit")
	fs.BoolVar(&c.CheckOnly, "c", false, "Same as --check")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	fs.StringVar(&c.StatusFile, "status-file", "", "Write a JSON status heartbeat to this path")
}

// defineDisplayFlags registers --color, --no-color, -v/--verbose, -l/--log.
func defineDisplayFlags(fs *flag.FlagSet, c *Config) {
	fs.Var(&colorFlag{p: &c.ColorMode, mode: ColorAlways}, "color", "Force colored logs")
	fs.Var(&colorFlag{p: &c.ColorMode, mode: ColorNever}, "no-color", "Disable colored logs")
	fs.BoolVar(&c.Verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&c.Verbose, "v", false, "Same as --verbose")
	fs.StringVar(&c.LogFile, "log", "", "Append JSON logs to file")
	fs.StringVar(&c.LogFile, "l", "", "Same as --log")
}

// canonical maps short aliases to the long flag name used by Apply.
func canonical(name string) string {
	switch name {
	case "m":
		return "mode"
	case "c":
		return "check"
	case "v":
		return "verbose"
	case "l":
		return "log"
	case "no-color":
		return "color"
	}
	return name
}

// Apply copies every flag the user set onto cfg.
func (o *Options) Apply(cfg *Config) {
	s := &o.scratch
	setters := map[string]func(){
		"host":          func() { cfg.Host = s.Host },
		"user":          func() { cfg.User = s.User },
		"ingest":        func() { cfg.IngestFolder = s.IngestFolder },
		"output":        func() { cfg.OutputFolder = s.OutputFolder },
		"mode":          func() { cfg.EncoderMode = s.EncoderMode },
		"threshold":     func() { cfg.InflationThreshold = s.InflationThreshold },
		"verify-output": func() { cfg.VerifyOutput = s.VerifyOutput },
		"workdir":       func() { cfg.WorkDir = s.WorkDir },
		"once":          func() { cfg.Once = s.Once },
		"check":         func() { cfg.CheckOnly = s.CheckOnly },
		"metrics-addr":  func() { cfg.MetricsAddr = s.MetricsAddr },
		"status-file":   func() { cfg.StatusFile = s.StatusFile },
		"color":         func() { cfg.ColorMode = s.ColorMode },
		"verbose":       func() { cfg.Verbose = s.Verbose },
		"log":           func() { cfg.LogFile = s.LogFile },
	}
	for name := range o.set {
		if apply, ok := setters[name]; ok {
			apply()
		}
	}
}

// PrintUsage writes the help text to stderr. Column-aligned for readability.
func PrintUsage(version string) {
	const col1 = 28 // width of "  -x, --long-name <arg>  "
	lines := []struct {
		flags string
		desc  string
	}{
		{"", "mediaferry v" + version + " - remote ingest, transcode, verify"},
		{"", ""},
		{"  mediaferry [OPTIONS]", ""},
		{"", ""},
		{"Remote", ""},
		{"  --host <name>", "Remote host (ssh destination)"},
		{"  --user <name>", "Remote user"},
		{"  --ingest <dir>", "Remote folder holding files to convert"},
		{"  --output <dir>", "Remote folder receiving results"},
		{"", ""},
		{"Encoding", ""},
		{"  -m, --mode <cpu|nvenc>", "Encoder mode (default: cpu)"},
		{"  --threshold <ratio>", "Upload only if converted <= original*ratio (default: 1.3)"},
		{"  --verify-output", "Check converted files are 4096x2048 MP4 video before upload"},
		{"", ""},
		{"Behavior", ""},
		{"  --config <path>", "YAML config file (env: MEDIAFERRY_*)"},
		{"  --workdir <dir>", "Local working directory (default: .)"},
		{"  --once", "Process a single file and exit"},
		{"  --metrics-addr <addr>", "Serve Prometheus metrics"},
		{"  --status-file <path>", "Write JSON status heartbeat"},
		{"", ""},
		{"Display", ""},
		{"  --color", "Force colored logs"},
		{"  --no-color", "Disable colored logs"},
		{"  -v, --verbose", "Verbose output"},
		{"  -l, --log <path>", "Append JSON logs to file"},
		{"", ""},
		{"Utility", ""},
		{"  -c, --check", "System diagnostics (ffmpeg, encoder, ssh, disk)"},
		{"  -V, --version", "Print version and exit"},
		{"  -h, --help", "Show this help and exit"},
	}

	for _, l := range lines {
		if l.flags == "" && l.desc == "" {
			fmt.Fprintln(os.Stderr)
			continue
		}
		if l.desc == "" {
			fmt.Fprintln(os.Stderr, l.flags)
			continue
		}
		if l.flags == "" {
			fmt.Fprintln(os.Stderr, l.desc)
			continue
		}
		padding := col1 - len(l.flags)
		if padding < 1 {
			padding = 1
		}
		fmt.Fprintf(os.Stderr, "%s%*s%s\n", l.flags, padding, "", l.desc)
	}
}

// flag.Value adapters so enum types work with flag.Var.

type encoderModeValue struct{ p *EncoderMode }

func (e *encoderModeValue) String() string {
	if e.p == nil {
		return ""
	}
	return string(*e.p)
}

func (e *encoderModeValue) Set(s string) error {
	switch strings.ToLower(s) {
	case "cpu", "libx265":
		*e.p = EncoderCPU
	case "nvenc", "nvidia", "hevc_nvenc":
		*e.p = EncoderNVENC
	default:
		return fmt.Errorf("invalid mode %q (use 'cpu' or 'nvenc')", s)
	}
	return nil
}

// colorFlag is a boolean-style flag that sets ColorMode to a fixed value.
type colorFlag struct {
	p    *ColorMode
	mode ColorMode
}

func (c *colorFlag) String() string   { return "" }
func (c *colorFlag) IsBoolFlag() bool { return true }
func (c *colorFlag) Set(s string) error {
	if s == "true" {
		*c.p = c.mode
	}
	return nil
}
