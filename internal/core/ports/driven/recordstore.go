package driven

import (
	"context"
	"encoding/json"

	"github.com/custodia-labs/yaar-cli/internal/core/domain"
)

// RecordStore persists stage output as append-only line-delimited JSON files.
// A record file is the unit of persistence and the resume checkpoint.
type RecordStore interface {
	// Exists reports whether a record file is present.
	Exists(path string) bool

	// DoneKeys returns the keys of every record in the file.
	// A missing file yields an empty set.
	DoneKeys(ctx context.Context, path string) (domain.KeySet, error)

	// Each calls fn for every record in file order.
	// Returns domain.ErrInputNotFound if the file does not exist.
	Each(ctx context.Context, path string, fn func(json.RawMessage) error) error

	// OpenAppender opens the file for appending, creating parent directories.
	OpenAppender(path string) (RecordAppender, error)
}

// RecordAppender writes records to the end of one file.
// Append returns only after the record is durable.
type RecordAppender interface {
	Append(record any) error
	Close() error
}

// RejectionLog is the append-only audit trail of invalid model responses.
type RejectionLog interface {
	Record(ctx context.Context, rec domain.RejectionRecord) error
	Close() error
}
