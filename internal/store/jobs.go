package store

import (
	"context"
	"encoding/json"

	"git.home.luguber.info/inful/tccollector/internal/foundation/errors"
	"git.home.luguber.info/inful/tccollector/internal/queue"
)

var _ queue.Persister = (*Store)(nil)

// SaveJob upserts the job snapshot.
func (s *Store) SaveJob(ctx context.Context, j *queue.Job) error {
	payload, err := json.Marshal(j)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to marshal job").
			WithContext("job_id", j.ID).Build()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, state, seq, finished_at, payload) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			finished_at = excluded.finished_at,
			payload = excluded.payload`,
		j.ID, string(j.State), j.Seq, nullMillis(j.FinishedAt), payload,
	)
	if err != nil {
		return wrap(err, ErrJobWriteFailed)
	}
	return nil
}

// DeleteJobs removes the given jobs in one transaction.
func (s *Store) DeleteJobs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrap(err, ErrJobWriteFailed)
	}
	stmt, err := tx.PrepareContext(ctx, "DELETE FROM jobs WHERE id = ?")
	if err != nil {
		_ = tx.Rollback()
		return wrap(err, ErrJobWriteFailed)
	}
	defer func() { _ = stmt.Close() }()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			_ = tx.Rollback()
			return wrap(err, ErrJobWriteFailed)
		}
	}
	if err := tx.Commit(); err != nil {
		return wrap(err, ErrJobWriteFailed)
	}
	return nil
}

// LoadJobs returns every stored job in enqueue order.
func (s *Store) LoadJobs(ctx context.Context) ([]*queue.Job, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, payload FROM jobs ORDER BY seq")
	if err != nil {
		return nil, wrap(err, ErrJobQueryFailed)
	}
	defer func() { _ = rows.Close() }()

	var out []*queue.Job
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, wrap(err, ErrJobQueryFailed)
		}
		var j queue.Job
		if err := json.Unmarshal(payload, &j); err != nil {
			return nil, errors.WrapError(err, errors.CategoryStore, "corrupt job row").
				WithContext("job_id", id).Build()
		}
		out = append(out, &j)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(err, ErrJobQueryFailed)
	}
	return out, nil
}
