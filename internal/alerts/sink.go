package alerts

import (
	"context"
	"log/slog"

	"github.com/hashicorp/go-multierror"

	"git.home.luguber.info/inful/tccollector/internal/foundation/errors"
	"git.home.luguber.info/inful/tccollector/internal/logfields"
)

// StoreSink persists alerts through a Repository.
type StoreSink struct {
	repo Repository
}

func NewStoreSink(repo Repository) *StoreSink {
	return &StoreSink{repo: repo}
}

func (s *StoreSink) Raise(ctx context.Context, a Alert) (Alert, error) {
	saved, err := s.repo.CreateAlert(ctx, a)
	if err != nil {
		return a, errors.WrapError(err, errors.CategoryAlert, "failed to store alert").
			WithContext("job_id", a.Details.JobID).Build()
	}
	return saved, nil
}

// Fanout raises an alert on a primary sink and then on every secondary
// sink. The primary assigns the alert ID; secondary failures are collected
// and returned together but never undo the primary write.
type Fanout struct {
	primary   Sink
	secondary []Sink
	logger    *slog.Logger
}

func NewFanout(logger *slog.Logger, primary Sink, secondary ...Sink) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fanout{primary: primary, secondary: secondary, logger: logger}
}

func (f *Fanout) Raise(ctx context.Context, a Alert) (Alert, error) {
	saved, err := f.primary.Raise(ctx, a)
	if err != nil {
		return a, err
	}

	var result *multierror.Error
	for _, s := range f.secondary {
		if _, serr := s.Raise(ctx, saved); serr != nil {
			result = multierror.Append(result, serr)
		}
	}

	f.logger.Warn("Alert raised",
		logfields.AlertID(saved.ID),
		slog.String("type", string(saved.Type)),
		slog.String("severity", string(saved.Severity)),
		logfields.JobID(saved.Details.JobID),
		logfields.Attempt(saved.Details.Attempts))

	return saved, result.ErrorOrNil()
}
