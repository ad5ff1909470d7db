package scheduler

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/tccollector/internal/collector"
	"git.home.luguber.info/inful/tccollector/internal/foundation/errors"
	"git.home.luguber.info/inful/tccollector/internal/logfields"
	"git.home.luguber.info/inful/tccollector/internal/observability"
	"git.home.luguber.info/inful/tccollector/internal/queue"
	"git.home.luguber.info/inful/tccollector/internal/testcase"
)

// process executes one attempt; the queue owns retries.
func (s *Scheduler) process(ctx context.Context, job *queue.Job, progress queue.ProgressFunc) (any, error) {
	loc := job.Source
	ctx = observability.WithSource(ctx, loc.String())
	switch loc.Type.Kind() {
	case testcase.KindFile:
		return s.collectFile(ctx, job, progress)
	case testcase.KindRemote:
		return nil, errors.NotImplemented("Google Sheets collection is not implemented").
			WithContext("spreadsheet_id", loc.SpreadsheetID).Build()
	default:
		return nil, errors.ValidationError(fmt.Sprintf("unknown source type %q", loc.Type)).
			WithContext("source_type", string(loc.Type)).Build()
	}
}

func (s *Scheduler) collectFile(ctx context.Context, job *queue.Job, progress queue.ProgressFunc) (any, error) {
	if err := job.Source.Validate(); err != nil {
		return nil, err
	}
	out, err := s.runner.Run(ctx, job.Source, collector.ProgressFunc(progress))
	if err != nil {
		return nil, err
	}

	// The batch was acknowledged; a failed timestamp write must not turn
	// that into a retry that pushes the same batch again.
	if err := s.settings.UpdateLastCollection(ctx, out.CollectedAt); err != nil {
		s.logger.WarnContext(ctx, "Failed to record last collection time", logfields.Error(err))
	}
	return out, nil
}
