package ledger

import "errors"

var (
	// ErrEntryValidation indicates an entry is missing required fields.
	ErrEntryValidation = errors.New("ledger entry validation failed")

	// ErrEmptyTableName indicates a ledger was requested for an empty table name.
	ErrEmptyTableName = errors.New("ledger table name cannot be empty")

	// ErrStorageNotAvailable indicates the storage backend rejected an operation.
	ErrStorageNotAvailable = errors.New("ledger storage is unavailable")
)
