package jsonl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/yaar-cli/internal/core/domain"
	"github.com/custodia-labs/yaar-cli/internal/core/ports/driven"
	"github.com/custodia-labs/yaar-cli/internal/logger"
)

const (
	permFile = 0o644
	permDir  = 0o755

	// tailChunk is the read size used when scanning backwards for the last newline.
	tailChunk = 4096
)

// Store is a stateless file-backed implementation of driven.RecordStore.
type Store struct{}

var _ driven.RecordStore = (*Store)(nil)

// NewStore creates a record store.
func NewStore() *Store {
	return &Store{}
}

// Exists reports whether a record file is present.
func (s *Store) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// DoneKeys returns the keys of every record in the file.
func (s *Store) DoneKeys(ctx context.Context, path string) (domain.KeySet, error) {
	keys := make(domain.KeySet)
	if !s.Exists(path) {
		return keys, nil
	}

	err := s.Each(ctx, path, func(raw json.RawMessage) error {
		k, err := domain.DecodeKey(raw)
		if err != nil {
			return err
		}
		keys.Add(k)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading done keys from %s: %w", path, err)
	}
	return keys, nil
}

// Each calls fn for every record in file order.
// Blank lines are skipped. An unterminated, unparsable final line is a torn
// write and is ignored. Any other unparsable line is an error.
func (s *Store) Each(ctx context.Context, path string, fn func(json.RawMessage) error) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", domain.ErrInputNotFound, path)
		}
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 64*1024)
	for lineNo := 1; ; lineNo++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, readErr := r.ReadBytes('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("reading %s: %w", path, readErr)
		}
		terminated := readErr == nil

		trimmed := bytes.TrimSpace(line)
		if len(trimmed) > 0 {
			if !json.Valid(trimmed) {
				if !terminated {
					logger.Warn("ignoring torn final record in %s (line %d)", path, lineNo)
					return nil
				}
				return fmt.Errorf("%w: %s line %d", domain.ErrCorruptRecord, path, lineNo)
			}
			if err := fn(json.RawMessage(bytes.Clone(trimmed))); err != nil {
				return err
			}
		}

		if !terminated {
			return nil
		}
	}
}

// OpenAppender opens the file for appending, creating parent directories.
// A torn final line left by an interrupted write is truncated first.
func (s *Store) OpenAppender(path string) (driven.RecordAppender, error) {
	if err := os.MkdirAll(filepath.Dir(path), permDir); err != nil {
		return nil, fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := repairTail(path); err != nil {
		return nil, fmt.Errorf("repairing %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, permFile)
	if err != nil {
		return nil, fmt.Errorf("opening %s for append: %w", path, err)
	}
	return &Appender{f: f}, nil
}

// Appender writes records to the end of one file.
type Appender struct {
	mu  sync.Mutex
	f   *os.File
	buf bytes.Buffer
}

var _ driven.RecordAppender = (*Appender)(nil)

// Append encodes the record as one line and syncs it to disk.
func (a *Appender) Append(record any) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.buf.Reset()
	enc := json.NewEncoder(&a.buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(record); err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}

	if _, err := a.f.Write(a.buf.Bytes()); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	if err := a.f.Sync(); err != nil {
		return fmt.Errorf("syncing record: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (a *Appender) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.f.Close()
}

// repairTail makes sure the file ends with a newline before appending.
// A complete record missing only its newline is kept and terminated.
// An incomplete record is truncated away.
func repairTail(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	size := info.Size()
	if size == 0 {
		return nil
	}

	last := make([]byte, 1)
	if _, err := f.ReadAt(last, size-1); err != nil {
		return err
	}
	if last[0] == '\n' {
		return nil
	}

	cut, err := lastNewline(f, size)
	if err != nil {
		return err
	}

	tail := make([]byte, size-cut)
	if _, err := f.ReadAt(tail, cut); err != nil {
		return err
	}
	if trimmed := bytes.TrimSpace(tail); len(trimmed) > 0 && json.Valid(trimmed) {
		_, err := f.WriteAt([]byte{'\n'}, size)
		if err != nil {
			return err
		}
		return f.Sync()
	}

	logger.Warn("truncating torn final record in %s (%d bytes)", path, size-cut)
	if err := f.Truncate(cut); err != nil {
		return err
	}
	return f.Sync()
}

// lastNewline returns the offset just past the last '\n' before size, or 0.
func lastNewline(f *os.File, size int64) (int64, error) {
	buf := make([]byte, tailChunk)
	end := size
	for end > 0 {
		start := max(end-tailChunk, 0)
		chunk := buf[:end-start]
		if _, err := f.ReadAt(chunk, start); err != nil {
			return 0, err
		}
		if i := bytes.LastIndexByte(chunk, '\n'); i >= 0 {
			return start + int64(i) + 1, nil
		}
		end = start
	}
	return 0, nil
}
