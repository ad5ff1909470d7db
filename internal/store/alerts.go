package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"git.home.luguber.info/inful/tccollector/internal/alerts"
	"git.home.luguber.info/inful/tccollector/internal/foundation/errors"
)

var _ alerts.Repository = (*Store)(nil)

// CreateAlert inserts a and returns it with its assigned ID.
func (s *Store) CreateAlert(ctx context.Context, a alerts.Alert) (alerts.Alert, error) {
	details, err := json.Marshal(a.Details)
	if err != nil {
		return a, errors.WrapError(err, errors.CategoryInternal, "failed to marshal alert details").Build()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.clock.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO alerts (type, severity, message, details, acknowledged, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		string(a.Type), string(a.Severity), a.Message, string(details), boolInt(a.Acknowledged), toMillis(a.CreatedAt),
	)
	if err != nil {
		return a, wrap(err, ErrAlertWriteFailed)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return a, wrap(err, ErrAlertWriteFailed)
	}
	a.ID = id
	return a, nil
}

// ListAlerts returns alerts newest first.
func (s *Store) ListAlerts(ctx context.Context, f alerts.Filter) ([]alerts.Alert, error) {
	query := "SELECT id, type, severity, message, details, acknowledged, created_at FROM alerts"
	var args []any
	if f.UnacknowledgedOnly {
		query += " WHERE acknowledged = 0"
	}
	query += " ORDER BY id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrap(err, ErrAlertQueryFailed)
	}
	defer func() { _ = rows.Close() }()

	out := []alerts.Alert{}
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(err, ErrAlertQueryFailed)
	}
	return out, nil
}

// AcknowledgeAlert marks an alert as seen.
func (s *Store) AcknowledgeAlert(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, "UPDATE alerts SET acknowledged = 1 WHERE id = ?", id)
	if err != nil {
		return wrap(err, ErrAlertWriteFailed)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap(err, ErrAlertWriteFailed)
	}
	if n == 0 {
		return ErrAlertNotFound.WithContext("alert_id", id)
	}
	return nil
}

func scanAlert(rows *sql.Rows) (alerts.Alert, error) {
	var (
		a        alerts.Alert
		typ, sev string
		details  string
		acked    int64
		created  int64
	)
	if err := rows.Scan(&a.ID, &typ, &sev, &a.Message, &details, &acked, &created); err != nil {
		return a, wrap(err, ErrAlertQueryFailed)
	}
	if err := json.Unmarshal([]byte(details), &a.Details); err != nil {
		return a, errors.WrapError(err, errors.CategoryStore, "corrupt alert details").
			WithContext("alert_id", a.ID).Build()
	}
	a.Type = alerts.Type(typ)
	a.Severity = alerts.Severity(sev)
	a.Acknowledged = acked != 0
	a.CreatedAt = fromMillis(created)
	return a, nil
}
