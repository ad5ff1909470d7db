package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"git.home.luguber.info/inful/tccollector/internal/testcase"
)

// DefaultCollectionInterval is the interval, in minutes, used before any
// settings have been saved.
const DefaultCollectionInterval = 30

// Settings is the single auto-update configuration row.
type Settings struct {
	AutoUpdateEnabled  bool                `json:"autoUpdateEnabled"`
	CollectionInterval int                 `json:"collectionInterval"`
	SourceType         testcase.SourceType `json:"sourceType"`
	SourcePath         string              `json:"sourcePath,omitempty"`
	SpreadsheetID      string              `json:"spreadsheetId,omitempty"`
	SheetName          string              `json:"sheetName,omitempty"`
	LastCollectionAt   *time.Time          `json:"lastCollectionAt,omitempty"`
	UpdatedAt          time.Time           `json:"updatedAt"`
}

// DefaultSettings is returned when no settings row exists yet.
func DefaultSettings() Settings {
	return Settings{
		CollectionInterval: DefaultCollectionInterval,
		SourceType:         testcase.SourceExcel,
	}
}

// Locator returns the configured source.
func (s Settings) Locator() testcase.Locator {
	return testcase.Locator{
		Type:          s.SourceType,
		FilePath:      s.SourcePath,
		SpreadsheetID: s.SpreadsheetID,
		SheetName:     s.SheetName,
	}
}

// NextCollectionAt estimates the next scheduled run: the last collection plus
// the interval. It is nil while auto-update is off or nothing has run yet.
func (s Settings) NextCollectionAt() *time.Time {
	if !s.AutoUpdateEnabled || s.LastCollectionAt == nil || s.CollectionInterval <= 0 {
		return nil
	}
	next := s.LastCollectionAt.Add(time.Duration(s.CollectionInterval) * time.Minute)
	return &next
}

const selectSettings = `SELECT auto_update_enabled, collection_interval, source_type, source_path,
	spreadsheet_id, sheet_name, last_collection_at, updated_at FROM settings WHERE id = 1`

// Settings reads the settings row, or DefaultSettings when none was saved.
func (s *Store) Settings(ctx context.Context) (Settings, error) {
	var (
		out     Settings
		enabled int64
		srcType string
		last    sql.NullInt64
		updated int64
	)
	err := s.db.QueryRowContext(ctx, selectSettings).Scan(
		&enabled, &out.CollectionInterval, &srcType, &out.SourcePath,
		&out.SpreadsheetID, &out.SheetName, &last, &updated,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, wrap(err, ErrSettingsReadFailed)
	}
	out.AutoUpdateEnabled = enabled != 0
	out.SourceType = testcase.SourceType(srcType)
	out.LastCollectionAt = timeFromNull(last)
	out.UpdatedAt = fromMillis(updated)
	return out, nil
}

// SaveSettings upserts everything except lastCollectionAt, which only
// UpdateLastCollection moves, and returns the stored row.
func (s *Store) SaveSettings(ctx context.Context, in Settings) (Settings, error) {
	s.mu.Lock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (id, auto_update_enabled, collection_interval, source_type,
			source_path, spreadsheet_id, sheet_name, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			auto_update_enabled = excluded.auto_update_enabled,
			collection_interval = excluded.collection_interval,
			source_type = excluded.source_type,
			source_path = excluded.source_path,
			spreadsheet_id = excluded.spreadsheet_id,
			sheet_name = excluded.sheet_name,
			updated_at = excluded.updated_at`,
		boolInt(in.AutoUpdateEnabled), in.CollectionInterval, string(in.SourceType),
		in.SourcePath, in.SpreadsheetID, in.SheetName, toMillis(s.clock.Now()),
	)
	s.mu.Unlock()
	if err != nil {
		return Settings{}, wrap(err, ErrSettingsWriteFailed)
	}
	return s.Settings(ctx)
}

// SetAutoUpdate flips autoUpdateEnabled, creating the row if needed.
func (s *Store) SetAutoUpdate(ctx context.Context, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (id, auto_update_enabled, collection_interval, source_type, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			auto_update_enabled = excluded.auto_update_enabled,
			updated_at = excluded.updated_at`,
		boolInt(enabled), DefaultCollectionInterval, string(testcase.SourceExcel), toMillis(s.clock.Now()),
	)
	if err != nil {
		return wrap(err, ErrSettingsWriteFailed)
	}
	return nil
}

// UpdateLastCollection records a successful collection.
func (s *Store) UpdateLastCollection(ctx context.Context, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := toMillis(s.clock.Now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (id, collection_interval, source_type, last_collection_at, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_collection_at = excluded.last_collection_at,
			updated_at = excluded.updated_at`,
		DefaultCollectionInterval, string(testcase.SourceExcel), toMillis(at), now,
	)
	if err != nil {
		return wrap(err, ErrSettingsWriteFailed)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
