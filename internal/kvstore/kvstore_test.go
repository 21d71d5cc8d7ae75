package kvstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func runStoreContract(t *testing.T, store Store) {
	t.Helper()

	t.Run("MissingKey", func(t *testing.T) {
		_, ok, err := store.Get("TradeTracker", "missing")
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("SetGet", func(t *testing.T) {
		assert.NoError(t, store.Set("TradeTracker", "Common", `{"saveVersion":2}`))
		value, ok, err := store.Get("TradeTracker", "Common")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, `{"saveVersion":2}`, value)
	})

	t.Run("Overwrite", func(t *testing.T) {
		assert.NoError(t, store.Set("TradeTracker", "Common", "first"))
		assert.NoError(t, store.Set("TradeTracker", "Common", "second"))
		value, ok, err := store.Get("TradeTracker", "Common")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "second", value)
	})

	t.Run("GroupsAreIsolated", func(t *testing.T) {
		assert.NoError(t, store.Set("TradeTracker", "shared", "mine"))
		assert.NoError(t, store.Set("OtherPlugin", "shared", "theirs"))
		value, ok, err := store.Get("TradeTracker", "shared")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "mine", value)
	})

	t.Run("Unset", func(t *testing.T) {
		assert.NoError(t, store.Set("TradeTracker", "doomed", "value"))
		assert.NoError(t, store.Unset("TradeTracker", "doomed"))
		_, ok, err := store.Get("TradeTracker", "doomed")
		assert.NoError(t, err)
		assert.False(t, ok)

		// Unsetting an absent key is not an error.
		assert.NoError(t, store.Unset("TradeTracker", "doomed"))
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "tracker.db")
	store, err := NewSQLiteStore(dsn)
	assert.NoError(t, err)

	runStoreContract(t, store)

	t.Run("PersistsAcrossReopen", func(t *testing.T) {
		assert.NoError(t, store.Set("TradeTracker", "durable", "survives"))

		reopened, err := NewSQLiteStore(dsn)
		assert.NoError(t, err)
		value, ok, err := reopened.Get("TradeTracker", "durable")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "survives", value)
	})
}
