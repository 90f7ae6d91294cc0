package usecase

import (
	"context"
	"fmt"
	"log/slog"
)

// LinkPipeline applies the deferred link edges once every component exists.
// Each edge stores a peer address inside its target, which is how two stages
// that need each other's address get wired.
type LinkPipeline struct {
	submitter *Submitter
	progress  ProgressSink
	log       *slog.Logger
}

// NewLinkPipeline creates a new pipeline linker
func NewLinkPipeline(submitter *Submitter, progress ProgressSink, log *slog.Logger) *LinkPipeline {
	return &LinkPipeline{
		submitter: submitter,
		progress:  progress,
		log:       log,
	}
}

// Run applies every link. Links are independent of each other but all of
// them must succeed before actions are replayed.
func (l *LinkPipeline) Run(ctx context.Context, state *RunState) error {
	total := len(state.Plan.Links)
	for i, link := range state.Plan.Links {
		scope := state.scope(link.Target)
		if _, err := l.submitter.Invoke(ctx, scope, link); err != nil {
			return fmt.Errorf("failed to link %s: %w", link, err)
		}

		l.log.Debug("link applied", "link", link.String())
		l.progress.OnProgress(ctx, ProgressEvent{
			Stage:    StageLink,
			Current:  i + 1,
			Total:    total,
			Message:  link.String(),
			Metadata: link,
		})
	}
	return nil
}
