package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestNewConfigStore_WithNestedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	store, err := NewConfigStore(dir)

	require.NoError(t, err)
	assert.DirExists(t, dir)
	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("llm.model", "gpt-4.1"))
	require.NoError(t, store.Set("sampling.seed", 42))
	require.NoError(t, store.Set("sampling.top_p", 0.9))

	assert.Equal(t, "gpt-4.1", store.GetString("llm.model"))
	assert.Equal(t, 42, store.GetInt("sampling.seed"))
	assert.InDelta(t, 0.9, store.GetFloat("sampling.top_p"), 1e-9)
	assert.InDelta(t, 42.0, store.GetFloat("sampling.seed"), 1e-9)

	assert.Empty(t, store.GetString("sampling.seed"))
	assert.Zero(t, store.GetInt("llm.model"))
	_, ok := store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_Persistence_NestedTables(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Set("llm.provider", "openai"))
	require.NoError(t, store.Set("retry.max_attempts", 5))
	require.NoError(t, store.Set("sampling.temperature", 0.0))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[llm]")
	assert.Contains(t, string(data), "[retry]")

	reloaded, err := NewConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, "openai", reloaded.GetString("llm.provider"))
	assert.Equal(t, 5, reloaded.GetInt("retry.max_attempts"))
	_, ok := reloaded.Get("sampling.temperature")
	assert.True(t, ok)
}

func TestConfigStore_Load_HandWrittenTOML(t *testing.T) {
	dir := t.TempDir()
	content := `
[llm]
provider = "ollama"
model = "llama3.2"

[pacing]
bayt_ms = 100
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "ollama", store.GetString("llm.provider"))
	assert.Equal(t, 100, store.GetInt("pacing.bayt_ms"))
}

func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[[[ not toml"), 0o600))

	_, err := NewConfigStore(dir)

	assert.Error(t, err)
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("llm.api_key", "sk-secret"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(store.Path()), ".config-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("k", n)
			_ = store.GetInt("k")
		}(i)
	}
	wg.Wait()

	_, ok := store.Get("k")
	assert.True(t, ok)
}

func TestNestMap(t *testing.T) {
	nested := nestMap(map[string]any{
		"a.b":   1,
		"a.c.d": "x",
		"e":     true,
		"f":     "plain",
		"f.g":   "shadowed",
	})

	assert.Equal(t, map[string]any{
		"a": map[string]any{
			"b": 1,
			"c": map[string]any{"d": "x"},
		},
		"e": true,
		"f": "plain",
	}, nested)
}

func TestFlattenNestRoundTrip(t *testing.T) {
	flat := map[string]any{"llm.model": "m", "llm.base_url": "u", "retry.max_attempts": int64(3)}

	assert.Equal(t, flat, flattenMap(nestMap(flat), ""))
}
