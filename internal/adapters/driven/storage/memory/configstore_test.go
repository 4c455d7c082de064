package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("llm.model", "gpt-4.1"))
	require.NoError(t, store.Set("llm.model", "gpt-4o"))

	val, ok := store.Get("llm.model")
	assert.True(t, ok)
	assert.Equal(t, "gpt-4o", val)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("s", "x"))
	require.NoError(t, store.Set("i", int64(7)))
	require.NoError(t, store.Set("f", 0.5))

	assert.Equal(t, "x", store.GetString("s"))
	assert.Equal(t, 7, store.GetInt("i"))
	assert.Equal(t, 0, store.GetInt("s"))
	assert.InDelta(t, 0.5, store.GetFloat("f"), 1e-9)
	assert.InDelta(t, 7.0, store.GetFloat("i"), 1e-9)
	assert.Empty(t, store.GetString("i"))
}

func TestConfigStore_SeedAndWrites(t *testing.T) {
	store := NewConfigStore(map[string]any{"retry.max_attempts": int64(3)})

	assert.Equal(t, 3, store.GetInt("retry.max_attempts"))
	assert.Zero(t, store.Writes())

	require.NoError(t, store.Set("retry.max_attempts", int64(5)))
	require.NoError(t, store.Set("sampling.seed", int64(7)))

	assert.Equal(t, 2, store.Writes())
	assert.Equal(t, 5, store.GetInt("retry.max_attempts"))
}
