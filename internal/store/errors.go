package store

import (
	"git.home.luguber.info/inful/tccollector/internal/foundation/errors"
)

var (
	// ErrDatabaseOpenFailed indicates the SQLite database could not be opened.
	ErrDatabaseOpenFailed = errors.StoreError("could not open database").Build()

	// ErrInitializeSchemaFailed indicates the schema could not be applied.
	ErrInitializeSchemaFailed = errors.StoreError("failed to initialize schema").Build()

	ErrSettingsReadFailed  = errors.StoreError("failed to read settings").Build()
	ErrSettingsWriteFailed = errors.StoreError("failed to write settings").Build()

	ErrAlertWriteFailed = errors.StoreError("failed to write alert").Build()
	ErrAlertQueryFailed = errors.StoreError("failed to query alerts").Build()

	// ErrAlertNotFound is returned when acknowledging an unknown alert.
	ErrAlertNotFound = errors.NotFoundError("alert not found").Build()

	ErrJobWriteFailed = errors.StoreError("failed to write job").Build()
	ErrJobQueryFailed = errors.StoreError("failed to query jobs").Build()
)
