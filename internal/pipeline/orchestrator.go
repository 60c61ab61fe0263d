package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/backmassage/mediaferry/internal/checksum"
	"github.com/backmassage/mediaferry/internal/config"
	"github.com/backmassage/mediaferry/internal/display"
	"github.com/backmassage/mediaferry/internal/ffmpeg"
	"github.com/backmassage/mediaferry/internal/logging"
	"github.com/backmassage/mediaferry/internal/metrics"
	"github.com/backmassage/mediaferry/internal/remote"
	"github.com/backmassage/mediaferry/internal/retry"
	"github.com/backmassage/mediaferry/internal/status"
)

// Transport is the remote host as seen by the orchestrator. None of its
// operations may retry internally.
type Transport interface {
	List(ctx context.Context, folder string) ([]remote.File, error)
	Download(ctx context.Context, f remote.File) (string, error)
	Upload(ctx context.Context, local, folder string) (remote.File, error)
	Digest(ctx context.Context, f remote.File) (checksum.Digest, error)
	RenameViaCopy(ctx context.Context, f remote.File, folder string) (remote.File, error)
	Delete(ctx context.Context, f remote.File) error
}

// Transcoder converts a local file and returns the path of the result.
type Transcoder interface {
	Convert(ctx context.Context, input string) (string, error)
}

// Result describes one successful run.
type Result struct {
	RunID         string
	Source        remote.File
	Disposition   Disposition
	Output        remote.File
	OriginalSize  int64
	ConvertedSize int64
	Attempts      map[Stage]int
	Duration      time.Duration
}

// Orchestrator processes one file per RunOnce. It is not safe for
// concurrent use: at most one remote file is in flight at a time.
type Orchestrator struct {
	cfg        *config.Config
	transport  Transport
	transcoder Transcoder
	log        zerolog.Logger
	status     *status.Tracker
	stats      RunStats

	localDigest func(path string) (checksum.Digest, error)
	now         func() time.Time
	newID       func() string
}

// New wires an orchestrator. st may be nil.
func New(cfg *config.Config, t Transport, tc Transcoder, log zerolog.Logger, st *status.Tracker) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		transport:   t,
		transcoder:  tc,
		log:         log,
		status:      st,
		localDigest: checksum.File,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Stats returns the counters accumulated so far.
func (o *Orchestrator) Stats() RunStats { return o.stats }

// run is the state of a single RunOnce call.
type run struct {
	log       zerolog.Logger
	res       *Result
	local     string
	converted string
}

// Run calls RunOnce until it fails and returns that error. Cancelling ctx
// ends the loop with ErrInterrupted.
func (o *Orchestrator) Run(ctx context.Context) error {
	defer o.logSummary()
	for {
		if err := ctx.Err(); err != nil {
			return &RunError{Kind: ErrInterrupted, Stage: StageDiscover, Err: err}
		}
		if _, err := o.RunOnce(ctx); err != nil {
			return err
		}
	}
}

// RunOnce moves the first file of the ingest folder through the pipeline.
// Any returned error is a *RunError.
func (o *Orchestrator) RunOnce(ctx context.Context) (*Result, error) {
	start := o.now()
	res := &Result{RunID: o.newID(), Attempts: make(map[Stage]int)}
	r := &run{res: res, log: o.log.With().Str(logging.FieldRunID, res.RunID).Logger()}

	src, err := o.discover(ctx)
	if err != nil {
		o.abort(r, err)
		return nil, err
	}
	res.Source = src
	r.log = r.log.With().Str(logging.FieldFile, src.Base()).Logger()
	o.setStatus(r, func(t *status.Tracker) error { return t.BeginRun(res.RunID, src.Path) })
	r.log.Info().Str(logging.FieldRemotePath, src.Path).Msg("Processing")

	if err := o.process(ctx, r); err != nil {
		o.abort(r, err)
		return nil, err
	}

	res.Duration = o.now().Sub(start)
	o.stats.record(res)
	metrics.ObserveRun(res.Disposition.Outcome())
	metrics.MarkSuccess(o.now())
	o.setStatus(r, func(t *status.Tracker) error { return t.Succeeded(res.Disposition == DispositionArchive) })
	r.log.Info().
		Str(logging.FieldDisposition, res.Disposition.String()).
		Str(logging.FieldRemotePath, res.Output.Path).
		Dur("elapsed", res.Duration).
		Msg("Done")
	return res, nil
}

func (o *Orchestrator) process(ctx context.Context, r *run) error {
	if err := o.fetch(ctx, r); err != nil {
		return err
	}
	if err := o.convert(ctx, r); err != nil {
		return err
	}

	o.decide(r)
	var err error
	if r.res.Disposition == DispositionUpload {
		err = o.upload(ctx, r)
	} else {
		err = o.archive(ctx, r)
	}
	if err != nil {
		return err
	}
	return o.cleanup(ctx, r)
}

// --- Stages ---

// fetch downloads the source and compares a fresh local digest with a fresh
// remote digest on every attempt. Only mismatches are retried.
func (o *Orchestrator) fetch(ctx context.Context, r *run) error {
	defer o.timeStage(StageDownload)()
	src := r.res.Source

	_, err := retry.Do(ctx, o.policy(r, StageDownload, o.cfg.DownloadAttempts),
		func(ctx context.Context, attempt int) (struct{}, error) {
			o.attempt(r, StageDownload, attempt)
			local, err := o.transport.Download(ctx, src)
			if err != nil {
				return struct{}{}, attemptFailed(StageDownload, err)
			}
			r.local = local

			localSum, err := o.localDigest(local)
			if err != nil {
				return struct{}{}, attemptFailed(StageDownload, err)
			}
			remoteSum, err := o.transport.Digest(ctx, src)
			if err != nil {
				return struct{}{}, attemptFailed(StageDownload, err)
			}
			if !localSum.Equal(remoteSum) {
				metrics.ObserveAttempt(string(StageDownload), metrics.ResultMismatch)
				return struct{}{}, retry.Retryable(&MismatchError{Path: src.Path, Local: localSum, Remote: remoteSum})
			}
			metrics.ObserveAttempt(string(StageDownload), metrics.ResultOK)
			r.log.Debug().Str(logging.FieldLocalSum, localSum.String()).Msg("Download verified")
			return struct{}{}, nil
		})
	if err != nil {
		return o.fatal(ctx, StageDownload, src.Path, r.res.Attempts[StageDownload], ErrChecksumNeverMatched, err)
	}

	size, err := fileSize(r.local)
	if err != nil {
		return o.fatal(ctx, StageDownload, r.local, r.res.Attempts[StageDownload], ErrLocalIO, err)
	}
	r.res.OriginalSize = size
	metrics.AddBytes(metrics.DirectionDownload, size)

	r.log.Info().
		Str(logging.FieldLocalPath, r.local).
		Str("size", display.FormatBytes(size)).
		Int(logging.FieldAttempt, r.res.Attempts[StageDownload]).
		Msg("Downloaded")
	return nil
}

// convert runs the transcoder, retrying every failure.
func (o *Orchestrator) convert(ctx context.Context, r *run) error {
	defer o.timeStage(StageConvert)()

	out, err := retry.Do(ctx, o.policy(r, StageConvert, o.cfg.ConvertAttempts),
		func(ctx context.Context, attempt int) (string, error) {
			o.attempt(r, StageConvert, attempt)
			out, err := o.transcoder.Convert(ctx, r.local)
			if err != nil {
				var cerr *ffmpeg.ConversionError
				if errors.As(err, &cerr) && cerr.Output != "" {
					r.converted = cerr.Output
				}
				if ctx.Err() != nil {
					return "", err
				}
				metrics.ObserveAttempt(string(StageConvert), metrics.ResultError)
				return "", retry.Retryable(err)
			}
			metrics.ObserveAttempt(string(StageConvert), metrics.ResultOK)
			return out, nil
		})
	if err != nil {
		return o.fatal(ctx, StageConvert, r.local, r.res.Attempts[StageConvert], ErrConversionFailed, err)
	}
	r.converted = out

	size, err := fileSize(out)
	if err != nil {
		return o.fatal(ctx, StageConvert, out, r.res.Attempts[StageConvert], ErrLocalIO, err)
	}
	r.res.ConvertedSize = size
	r.log.Info().Str(logging.FieldLocalPath, out).Str("size", display.FormatBytes(size)).Msg("Converted")
	return nil
}

func (o *Orchestrator) decide(r *run) {
	res := r.res
	res.Disposition = Decide(res.OriginalSize, res.ConvertedSize, o.cfg.InflationThreshold)

	ev := r.log.Info()
	if res.Disposition == DispositionArchive {
		ev = r.log.Warn()
	}
	ev.Str(logging.FieldDisposition, res.Disposition.String()).
		Str("original", display.FormatBytes(res.OriginalSize)).
		Str("converted", display.FormatBytes(res.ConvertedSize)).
		Str("ratio", display.FormatRatio(res.OriginalSize, res.ConvertedSize)).
		Float64("threshold", o.cfg.InflationThreshold).
		Msg("Size check")
}

// upload sends the converted file and compares fresh local and remote
// digests on every attempt.
func (o *Orchestrator) upload(ctx context.Context, r *run) error {
	defer o.timeStage(StageUpload)()

	var localSum checksum.Digest
	dst, err := retry.Do(ctx, o.policy(r, StageUpload, o.cfg.UploadAttempts),
		func(ctx context.Context, attempt int) (remote.File, error) {
			o.attempt(r, StageUpload, attempt)
			dst, err := o.transport.Upload(ctx, r.converted, o.cfg.OutputFolder)
			if err != nil {
				return remote.File{}, attemptFailed(StageUpload, err)
			}
			localSum, err = o.localDigest(r.converted)
			if err != nil {
				return remote.File{}, attemptFailed(StageUpload, err)
			}
			remoteSum, err := o.transport.Digest(ctx, dst)
			if err != nil {
				return remote.File{}, attemptFailed(StageUpload, err)
			}
			if !localSum.Equal(remoteSum) {
				metrics.ObserveAttempt(string(StageUpload), metrics.ResultMismatch)
				return remote.File{}, retry.Retryable(&MismatchError{Path: dst.Path, Local: localSum, Remote: remoteSum})
			}
			metrics.ObserveAttempt(string(StageUpload), metrics.ResultOK)
			return dst, nil
		})
	if err != nil {
		return o.fatal(ctx, StageUpload, r.converted, r.res.Attempts[StageUpload], ErrUploadChecksumNeverMatched, err)
	}

	r.res.Output = dst
	metrics.AddBytes(metrics.DirectionUpload, r.res.ConvertedSize)
	r.log.Info().Str(logging.FieldRemotePath, dst.Path).Str(logging.FieldLocalSum, localSum.String()).Msg("Uploaded")
	return nil
}

// archive copies the untouched original into the output folder under its
// .processed name. The converted file is left for cleanup.
func (o *Orchestrator) archive(ctx context.Context, r *run) error {
	defer o.timeStage(StageArchive)()
	o.attempt(r, StageArchive, 1)

	dst, err := o.transport.RenameViaCopy(ctx, r.res.Source, o.cfg.OutputFolder)
	if err != nil {
		return o.fatal(ctx, StageArchive, r.res.Source.Path, 1, ErrTransport, err)
	}
	r.res.Output = dst
	r.log.Info().Str(logging.FieldRemotePath, dst.Path).Msg("Archived original")
	return nil
}

// cleanup removes both local files, then the remote original. The remote
// original is deleted on both dispositions.
func (o *Orchestrator) cleanup(ctx context.Context, r *run) error {
	o.attempt(r, StageCleanup, 1)
	o.removeLocal(r)

	if err := o.transport.Delete(ctx, r.res.Source); err != nil {
		return o.fatal(ctx, StageCleanup, r.res.Source.Path, 1, ErrTransport, err)
	}
	r.log.Debug().Str(logging.FieldRemotePath, r.res.Source.Path).Msg("Deleted remote original")
	return nil
}

// --- Failure handling ---

// abort records a failed run and applies the failure cleanup policy. A
// download that never verified is left on disk for inspection.
func (o *Orchestrator) abort(r *run, err error) {
	metrics.ObserveRun(Outcome(err))
	o.setStatus(r, func(t *status.Tracker) error { return t.Failed(err) })
	if errors.Is(err, ErrNoWorkAvailable) {
		return
	}
	o.stats.Failed++

	var rerr *RunError
	if errors.As(err, &rerr) {
		r.log.Error().Err(err).
			Str(logging.FieldStage, string(rerr.Stage)).
			Int(logging.FieldAttempt, rerr.Attempts).
			Msg("Run failed")
	}

	switch {
	case r.local == "" && r.converted == "":
	case o.cfg.KeepFailedArtifacts:
		r.log.Info().
			Str(logging.FieldLocalPath, r.local).
			Str("converted_path", r.converted).
			Msg("Keeping local files of failed run")
	case errors.Is(err, ErrChecksumNeverMatched):
		r.log.Warn().Str(logging.FieldLocalPath, r.local).Msg("Leaving unverified download in place")
	default:
		o.removeLocal(r)
	}
}

// fatal turns a stage error into a *RunError. exhausted is the Kind used
// when the retry budget ran out; other causes are classified by type.
func (o *Orchestrator) fatal(ctx context.Context, stage Stage, file string, attempts int, exhausted, err error) error {
	kind := exhausted
	switch {
	case ctx.Err() != nil:
		kind = ErrInterrupted
		if !errors.Is(err, ctx.Err()) {
			err = fmt.Errorf("%w: %w", ctx.Err(), err)
		}
	case errors.Is(err, retry.ErrExhausted):
	case isTransport(err):
		kind = ErrTransport
	case exhausted != ErrTransport:
		kind = ErrLocalIO
	}
	return &RunError{Kind: kind, Stage: stage, File: file, Attempts: attempts, Err: err}
}

func isTransport(err error) bool {
	var terr *remote.Error
	return errors.As(err, &terr)
}

// attemptFailed counts a non-retryable attempt failure and passes err on.
func attemptFailed(stage Stage, err error) error {
	metrics.ObserveAttempt(string(stage), metrics.ResultError)
	return err
}

// --- Helpers ---

// policy builds the retry policy of a stage. Conversion failures are logged
// at error level with the tail of ffmpeg's output; mismatches are warnings.
func (o *Orchestrator) policy(r *run, stage Stage, budget int) retry.Policy {
	return retry.Policy{
		Budget: budget,
		OnFailure: func(attempt int, err error) {
			ev := r.log.Warn()
			msg := "Checksum mismatch"
			var cerr *ffmpeg.ConversionError
			if stage == StageConvert {
				ev = r.log.Error()
				msg = "Conversion failed"
				if errors.As(err, &cerr) {
					ev = ev.Str(logging.FieldReason, string(cerr.Reason)).
						Str("stderr", ffmpeg.StderrTail(cerr.Stderr, 20))
				}
			}
			var mm *MismatchError
			if errors.As(err, &mm) {
				ev = ev.Str(logging.FieldLocalSum, mm.Local.String()).
					Str(logging.FieldRemoteSum, mm.Remote.String())
			}
			if attempt < budget {
				msg += ", retrying"
			}
			ev.Err(err).
				Str(logging.FieldStage, string(stage)).
				Int(logging.FieldAttempt, attempt).
				Int(logging.FieldBudget, budget).
				Msg(msg)
		},
	}
}

func (o *Orchestrator) attempt(r *run, stage Stage, attempt int) {
	r.res.Attempts[stage] = attempt
	o.setStatus(r, func(t *status.Tracker) error { return t.Stage(string(stage), attempt) })
	r.log.Debug().Str(logging.FieldStage, string(stage)).Int(logging.FieldAttempt, attempt).Msg("Stage attempt")
}

func (o *Orchestrator) timeStage(stage Stage) func() {
	start := o.now()
	return func() { metrics.ObserveStage(string(stage), o.now().Sub(start)) }
}

func (o *Orchestrator) setStatus(r *run, fn func(*status.Tracker) error) {
	if o.status == nil {
		return
	}
	if err := fn(o.status); err != nil {
		r.log.Warn().Err(err).Msg("Status file update failed")
	}
}

// removeLocal deletes the run's local files. Failures are logged, not fatal.
func (o *Orchestrator) removeLocal(r *run) {
	for _, p := range []string{r.local, r.converted} {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			r.log.Warn().Err(err).Str(logging.FieldLocalPath, p).Msg("Could not remove local file")
		}
	}
	r.local, r.converted = "", ""
}

func (o *Orchestrator) logSummary() {
	s := o.stats
	ev := o.log.Info()
	if s.SpaceSaved() < 0 {
		ev = o.log.Warn()
	}
	ev.Int("runs", s.Runs).
		Int("uploaded", s.Uploaded).
		Int("archived", s.Archived).
		Int("failed", s.Failed).
		Str("space_saved", display.FormatBytesWithSign(s.SpaceSaved())).
		Msg("Summary")
}

func fileSize(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}
