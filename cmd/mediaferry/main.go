// Command mediaferry is the CLI entrypoint for the remote transcode pipeline.
//
// It loads configuration (defaults, YAML file, environment, flags), then
// either prints system diagnostics (-check) or processes files from the
// remote ingest folder one at a time until a run fails or the folder is
// empty. Restarting after a failure is left to the process supervisor.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/backmassage/mediaferry/internal/check"
	"github.com/backmassage/mediaferry/internal/config"
	"github.com/backmassage/mediaferry/internal/display"
	"github.com/backmassage/mediaferry/internal/ffmpeg"
	"github.com/backmassage/mediaferry/internal/logging"
	"github.com/backmassage/mediaferry/internal/metrics"
	"github.com/backmassage/mediaferry/internal/pipeline"
	"github.com/backmassage/mediaferry/internal/remote"
	"github.com/backmassage/mediaferry/internal/status"
)

// version and commit are injected at build time via -ldflags.
var (
	version = "1.0.0"
	commit  = "unknown"
)

// Process exit codes.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
	exitNoWork  = 3
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// Phase 1: Bootstrap. The logger doesn't exist yet, so errors go
	// directly to stderr.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "mediaferry: .env: %v\n", err)
		return exitConfig
	}

	opts, err := config.ParseFlags(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mediaferry: %v\n", err)
		fmt.Fprintln(os.Stderr, "Run 'mediaferry -help' for usage.")
		return exitConfig
	}
	if opts.ShowHelp {
		config.PrintUsage(version)
		return exitOK
	}
	if opts.ShowVersion {
		fmt.Printf("mediaferry %s (%s)\n", version, commit)
		return exitOK
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mediaferry: %v\n", err)
		return exitConfig
	}
	opts.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "mediaferry: %v\n", err)
		return exitConfig
	}

	log, err := logging.New(&cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mediaferry: %v\n", err)
		return exitConfig
	}
	defer log.Close()

	// Phase 2: Logger available; all output goes through log from here on.
	display.PrintBanner()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := check.DefaultEnv(&cfg)
	if cfg.CheckOnly {
		if err := check.RunCheck(ctx, &cfg, env, os.Stdout); err != nil {
			log.Error().Err(err).Msg("System check failed")
			return exitRuntime
		}
		return exitOK
	}

	// Fail fast if a tool or the chosen encoder is unavailable.
	if err := check.CheckDeps(ctx, &cfg, env); err != nil {
		log.Error().Err(err).Msg("Dependency check failed")
		return exitRuntime
	}

	log.Info().
		Str("version", version).
		Str("target", cfg.Target()).
		Str("ingest", cfg.IngestFolder).
		Str("output", cfg.OutputFolder).
		Str(logging.FieldEncoder, ffmpeg.ProfileFor(cfg.EncoderMode).VideoCodec).
		Float64("threshold", cfg.InflationThreshold).
		Bool("once", cfg.Once).
		Msg("Starting")

	orch := pipeline.New(&cfg,
		remote.NewSSH(&cfg, nil),
		ffmpeg.New(&cfg),
		log.Component("pipeline"),
		status.NewTracker(cfg.StatusFile, os.Getpid()),
	)

	// Phase 3: Run the pipeline, with the metrics endpoint alongside.
	return exitCode(log, serve(ctx, &cfg, log, orch))
}

// serve runs the pipeline and, when configured, the metrics endpoint. The
// endpoint is shut down as soon as the pipeline returns.
func serve(ctx context.Context, cfg *config.Config, log *logging.Logger, orch *pipeline.Orchestrator) error {
	g, gctx := errgroup.WithContext(ctx)

	var srv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			log.Info().Str("addr", cfg.MetricsAddr).Msg("Serving metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		if srv != nil {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}
		if cfg.Once {
			_, err := orch.RunOnce(gctx)
			return err
		}
		return orch.Run(gctx)
	})

	return g.Wait()
}

func exitCode(log *logging.Logger, err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, pipeline.ErrNoWorkAvailable):
		log.Warn().Err(err).Msg("Ingest folder is empty")
		return exitNoWork
	case errors.Is(err, pipeline.ErrInterrupted):
		log.Warn().Err(err).Msg("Interrupted")
		return exitRuntime
	default:
		log.Error().Err(err).Msg("Fatal")
		return exitRuntime
	}
}
