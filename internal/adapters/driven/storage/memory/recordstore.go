package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/custodia-labs/yaar-cli/internal/core/domain"
	"github.com/custodia-labs/yaar-cli/internal/core/ports/driven"
)

// Ensure RecordStore implements the interface.
var _ driven.RecordStore = (*RecordStore)(nil)

// RecordStore is an in-memory implementation of driven.RecordStore for testing.
// Records are held as encoded lines keyed by path.
type RecordStore struct {
	mu    sync.RWMutex
	files map[string][]json.RawMessage

	// FailAfter, when positive, makes the Nth append across all files fail.
	FailAfter int
	appends   int
}

// NewRecordStore creates a new in-memory record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		files: make(map[string][]json.RawMessage),
	}
}

// Seed encodes records into path, replacing its contents.
func (s *RecordStore) Seed(path string, records ...any) error {
	lines := make([]json.RawMessage, 0, len(records))
	for _, r := range records {
		line, err := encode(r)
		if err != nil {
			return err
		}
		lines = append(lines, line)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = lines
	return nil
}

// Lines returns the encoded records of a file.
func (s *RecordStore) Lines(path string) []json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]json.RawMessage(nil), s.files[path]...)
}

// Exists reports whether a file has been created.
func (s *RecordStore) Exists(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.files[path]
	return ok
}

// DoneKeys returns the keys of every record in the file.
func (s *RecordStore) DoneKeys(ctx context.Context, path string) (domain.KeySet, error) {
	keys := make(domain.KeySet)
	for _, line := range s.Lines(path) {
		k, err := domain.DecodeKey(line)
		if err != nil {
			return nil, err
		}
		keys.Add(k)
	}
	return keys, ctx.Err()
}

// Each calls fn for every record in file order.
func (s *RecordStore) Each(ctx context.Context, path string, fn func(json.RawMessage) error) error {
	if !s.Exists(path) {
		return fmt.Errorf("%w: %s", domain.ErrInputNotFound, path)
	}
	for _, line := range s.Lines(path) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(line); err != nil {
			return err
		}
	}
	return nil
}

// OpenAppender opens the file for appending.
func (s *RecordStore) OpenAppender(path string) (driven.RecordAppender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[path]; !ok {
		s.files[path] = nil
	}
	return &appender{store: s, path: path}, nil
}

type appender struct {
	store *RecordStore
	path  string
}

func (a *appender) Append(record any) error {
	line, err := encode(record)
	if err != nil {
		return err
	}

	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	a.store.appends++
	if a.store.FailAfter > 0 && a.store.appends >= a.store.FailAfter {
		return fmt.Errorf("append %d: simulated failure", a.store.appends)
	}
	a.store.files[a.path] = append(a.store.files[a.path], line)
	return nil
}

func (a *appender) Close() error {
	return nil
}

func encode(record any) (json.RawMessage, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(record); err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}

// Ensure RejectionLog implements the interface.
var _ driven.RejectionLog = (*RejectionLog)(nil)

// RejectionLog is an in-memory implementation of driven.RejectionLog.
type RejectionLog struct {
	mu      sync.Mutex
	records []domain.RejectionRecord
}

// NewRejectionLog creates an empty rejection log.
func NewRejectionLog() *RejectionLog {
	return &RejectionLog{}
}

// Record stores one rejection.
func (l *RejectionLog) Record(_ context.Context, rec domain.RejectionRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	return nil
}

// Records returns the stored rejections.
func (l *RejectionLog) Records() []domain.RejectionRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.RejectionRecord(nil), l.records...)
}

// Close is a no-op.
func (l *RejectionLog) Close() error {
	return nil
}
