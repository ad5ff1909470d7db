package queue

import "context"

// Persister stores job snapshots so the queue survives restarts.
type Persister interface {
	SaveJob(ctx context.Context, job *Job) error
	DeleteJobs(ctx context.Context, ids []string) error
	LoadJobs(ctx context.Context) ([]*Job, error)
}

// NoopPersister keeps nothing.
type NoopPersister struct{}

func (NoopPersister) SaveJob(context.Context, *Job) error        { return nil }
func (NoopPersister) DeleteJobs(context.Context, []string) error { return nil }
func (NoopPersister) LoadJobs(context.Context) ([]*Job, error)   { return nil, nil }
