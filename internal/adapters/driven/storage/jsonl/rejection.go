package jsonl

import (
	"context"
	"sync"

	"github.com/custodia-labs/yaar-cli/internal/core/domain"
	"github.com/custodia-labs/yaar-cli/internal/core/ports/driven"
)

// RejectionLog appends rejection records to a line-delimited JSON file.
// The file is opened on the first record so clean runs leave no empty log.
type RejectionLog struct {
	mu    sync.Mutex
	store *Store
	path  string
	app   driven.RecordAppender
}

var _ driven.RejectionLog = (*RejectionLog)(nil)

// NewRejectionLog creates a rejection log writing to path.
func NewRejectionLog(store *Store, path string) *RejectionLog {
	return &RejectionLog{store: store, path: path}
}

// Record appends one rejection durably.
func (l *RejectionLog) Record(ctx context.Context, rec domain.RejectionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.app == nil {
		app, err := l.store.OpenAppender(l.path)
		if err != nil {
			return err
		}
		l.app = app
	}
	return l.app.Append(rec)
}

// Path returns the log file path.
func (l *RejectionLog) Path() string {
	return l.path
}

// Close closes the log file if it was opened.
func (l *RejectionLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.app == nil {
		return nil
	}
	err := l.app.Close()
	l.app = nil
	return err
}
