package jsonl

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/yaar-cli/internal/core/domain"
	"github.com/custodia-labs/yaar-cli/internal/core/ports/driven"
)

func TestStore_ImplementsInterface(t *testing.T) {
	var _ driven.RecordStore = (*Store)(nil)
	var _ driven.RejectionLog = (*RejectionLog)(nil)
}

func collect(t *testing.T, s *Store, path string) []string {
	t.Helper()
	var lines []string
	err := s.Each(context.Background(), path, func(raw json.RawMessage) error {
		lines = append(lines, string(raw))
		return nil
	})
	require.NoError(t, err)
	return lines
}

func TestStore_AppendAndEach(t *testing.T) {
	s := NewStore()
	path := filepath.Join(t.TempDir(), "annotations", "out.jsonl")

	app, err := s.OpenAppender(path)
	require.NoError(t, err)
	require.NoError(t, app.Append(domain.BaytAnnotation{PoemID: 1, BaytID: 2, BaytHint: "هجران یار"}))
	require.NoError(t, app.Append(domain.BaytAnnotation{PoemID: 1, BaytID: 1, BaytHint: "<می> & ساقی"}))
	require.NoError(t, app.Close())

	lines := collect(t, s, path)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"bayt_id":2`)
	assert.Contains(t, lines[1], `"bayt_id":1`)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "هجران یار")
	assert.Contains(t, string(data), "<می> & ساقی")
	assert.True(t, strings.HasSuffix(string(data), "\n"))
}

func TestStore_AppendReopenContinues(t *testing.T) {
	s := NewStore()
	path := filepath.Join(t.TempDir(), "out.jsonl")

	for i := 1; i <= 2; i++ {
		app, err := s.OpenAppender(path)
		require.NoError(t, err)
		require.NoError(t, app.Append(domain.AxisAnnotation{PoemID: i, GhazalAxis: "axis"}))
		require.NoError(t, app.Close())
	}

	keys, err := s.DoneKeys(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, domain.NewKeySet(domain.PoemKey(1), domain.PoemKey(2)), keys)
}

func TestStore_DoneKeys_MissingFile(t *testing.T) {
	s := NewStore()

	keys, err := s.DoneKeys(context.Background(), filepath.Join(t.TempDir(), "none.jsonl"))

	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestStore_Each_MissingFile(t *testing.T) {
	s := NewStore()

	err := s.Each(context.Background(), filepath.Join(t.TempDir(), "none.jsonl"), func(json.RawMessage) error {
		return nil
	})

	assert.True(t, errors.Is(err, domain.ErrInputNotFound))
}

func TestStore_TornTailIgnoredAndTruncated(t *testing.T) {
	s := NewStore()
	path := filepath.Join(t.TempDir(), "out.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"poem_id":1,"bayt_id":1}`+"\n"+`{"poem_id":1,"ba`), 0o644))

	assert.Len(t, collect(t, s, path), 1)

	keys, err := s.DoneKeys(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, domain.NewKeySet(domain.BaytKey(1, 1)), keys)

	app, err := s.OpenAppender(path)
	require.NoError(t, err)
	require.NoError(t, app.Append(map[string]int{"poem_id": 1, "bayt_id": 2}))
	require.NoError(t, app.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"poem_id":1,"bayt_id":1}`+"\n"+`{"bayt_id":2,"poem_id":1}`+"\n", string(data))
}

func TestStore_UnterminatedCompleteRecordKept(t *testing.T) {
	s := NewStore()
	path := filepath.Join(t.TempDir(), "out.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"poem_id":3}`), 0o644))

	app, err := s.OpenAppender(path)
	require.NoError(t, err)
	require.NoError(t, app.Append(map[string]int{"poem_id": 4}))
	require.NoError(t, app.Close())

	assert.Equal(t, []string{`{"poem_id":3}`, `{"poem_id":4}`}, collect(t, s, path))
}

func TestStore_TornOnlyLineTruncatedToEmpty(t *testing.T) {
	s := NewStore()
	path := filepath.Join(t.TempDir(), "out.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"poem_`), 0o644))

	app, err := s.OpenAppender(path)
	require.NoError(t, err)
	require.NoError(t, app.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestStore_CorruptMiddleLine(t *testing.T) {
	s := NewStore()
	path := filepath.Join(t.TempDir(), "out.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"poem_id\":1}\nnot json\n{\"poem_id\":2}\n"), 0o644))

	err := s.Each(context.Background(), path, func(json.RawMessage) error { return nil })

	assert.True(t, errors.Is(err, domain.ErrCorruptRecord))
	assert.Contains(t, err.Error(), "line 2")
}

func TestStore_BlankLinesSkipped(t *testing.T) {
	s := NewStore()
	path := filepath.Join(t.TempDir(), "out.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"poem_id\":1}\n\n  \n{\"poem_id\":2}\n"), 0o644))

	assert.Len(t, collect(t, s, path), 2)
}

func TestStore_Each_CallbackError(t *testing.T) {
	s := NewStore()
	path := filepath.Join(t.TempDir(), "out.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"poem_id\":1}\n{\"poem_id\":2}\n"), 0o644))

	stop := errors.New("stop")
	calls := 0
	err := s.Each(context.Background(), path, func(json.RawMessage) error {
		calls++
		return stop
	})

	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestStore_Each_ContextCancelled(t *testing.T) {
	s := NewStore()
	path := filepath.Join(t.TempDir(), "out.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"poem_id\":1}\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Each(ctx, path, func(json.RawMessage) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_LongLine(t *testing.T) {
	s := NewStore()
	path := filepath.Join(t.TempDir(), "emb.jsonl")

	vec := make([]float32, 20000)
	for i := range vec {
		vec[i] = 0.123456
	}
	app, err := s.OpenAppender(path)
	require.NoError(t, err)
	require.NoError(t, app.Append(domain.EmbeddingRecord{PoemID: 1, BaytID: 1, Embedding: vec}))
	require.NoError(t, app.Close())

	lines := collect(t, s, path)
	require.Len(t, lines, 1)

	var got domain.EmbeddingRecord
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &got))
	assert.Len(t, got.Embedding, 20000)
}

func TestRejectionLog_LazyOpen(t *testing.T) {
	s := NewStore()
	path := filepath.Join(t.TempDir(), "logs", "rejected.jsonl")
	log := NewRejectionLog(s, path)

	require.NoError(t, log.Close())
	assert.False(t, s.Exists(path))

	rec := domain.RejectionRecord{
		PoemID:             1,
		BaytID:             2,
		Attempt:            1,
		ReturnedAffect:     []string{"خشم"},
		AllowedAffectVocab: domain.AffectVocabulary(),
		Model:              "gpt-4.1",
		PromptVersion:      "v1.0",
	}
	require.NoError(t, log.Record(context.Background(), rec))
	rec.Attempt = 2
	rec.Final = true
	require.NoError(t, log.Record(context.Background(), rec))
	require.NoError(t, log.Close())

	lines := collect(t, s, path)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"final":false`)
	assert.Contains(t, lines[1], `"final":true`)
	assert.Contains(t, lines[1], `"returned_affect":["خشم"]`)
	assert.Equal(t, path, log.Path())
}
