package pipeline

import (
	"context"

	"github.com/samber/lo"

	"github.com/backmassage/mediaferry/internal/logging"
	"github.com/backmassage/mediaferry/internal/remote"
)

// discover lists the ingest folder and picks the next file.
func (o *Orchestrator) discover(ctx context.Context) (remote.File, error) {
	files, err := o.transport.List(ctx, o.cfg.IngestFolder)
	if err != nil {
		return remote.File{}, o.fatal(ctx, StageDiscover, o.cfg.IngestFolder, 1, ErrTransport, err)
	}
	f, ok := selectNext(files)
	if !ok {
		return remote.File{}, &RunError{Kind: ErrNoWorkAvailable, Stage: StageDiscover, File: o.cfg.IngestFolder}
	}
	o.log.Debug().Int("listed", len(files)).Str(logging.FieldRemotePath, f.Path).Msg("Discovered work")
	return f, nil
}

// selectNext returns the first listed entry. Listing order is the remote
// `ls` order; nothing is sorted or filtered by extension.
func selectNext(files []remote.File) (remote.File, bool) {
	return lo.First(files)
}
