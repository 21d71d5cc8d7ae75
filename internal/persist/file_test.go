package persist

import (
	"os"
	"path/filepath"
	"testing"

	"trade-tracker-go/internal/kvstore"
	"trade-tracker-go/internal/models"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestExportImportRoundTrip(t *testing.T) {
	m := newTestManager(kvstore.NewMemoryStore())
	history := sampleHistory()
	m.Snapshot = func() []*models.TradeRecord { return history }
	var restored []*models.TradeRecord
	m.OnRestored = func(profileKey string, records []*models.TradeRecord) { restored = records }

	path := filepath.Join(t.TempDir(), "history."+FileExtension)
	assert.NoError(t, m.ExportToFile(path))

	assert.NoError(t, m.ImportFromFile(path))
	assert.Equal(t, history, restored)
}

func TestExportRequiresContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history."+FileExtension)

	t.Run("NoActiveProfile", func(t *testing.T) {
		m := NewManager(zap.NewNop(), kvstore.NewMemoryStore(), func(fn func()) { fn() })
		m.Snapshot = func() []*models.TradeRecord { return sampleHistory() }
		assert.Error(t, m.ExportToFile(path))
	})

	t.Run("EmptyHistory", func(t *testing.T) {
		m := newTestManager(kvstore.NewMemoryStore())
		m.Snapshot = func() []*models.TradeRecord { return nil }
		assert.Error(t, m.ExportToFile(path))
	})

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "nothing may be written on failure")
}

func TestImportRejectsBadFiles(t *testing.T) {
	m := newTestManager(kvstore.NewMemoryStore())
	restoredCalls := 0
	m.OnRestored = func(profileKey string, records []*models.TradeRecord) { restoredCalls++ }

	t.Run("MissingFile", func(t *testing.T) {
		assert.Error(t, m.ImportFromFile(filepath.Join(t.TempDir(), "nope.tth")))
	})

	t.Run("EmptyFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.tth")
		assert.NoError(t, os.WriteFile(path, nil, 0o644))
		assert.Error(t, m.ImportFromFile(path))
	})

	t.Run("CorruptFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "corrupt.tth")
		assert.NoError(t, os.WriteFile(path, []byte("{not a history"), 0o644))
		assert.Error(t, m.ImportFromFile(path))
	})

	assert.Zero(t, restoredCalls, "nothing restores from a bad file")
}
