package persist

import (
	"fmt"
	"os"

	"trade-tracker-go/internal/models"
)

const (
	// FileExtension is the suffix used for exported history files.
	FileExtension = "tth"
	// FileDescription names the format for file-picker filtering.
	FileDescription = "Trade Tracker history"
)

// ExportToFile writes the active profile's history to a user-chosen file in
// the same compressed textual form as the key-value payload. Must not be
// called from the loop goroutine: it waits on a loop-side snapshot.
func (m *Manager) ExportToFile(path string) error {
	type snapshot struct {
		key     string
		records []*models.TradeRecord
	}
	taken := make(chan snapshot, 1)
	m.invoke(func() {
		taken <- snapshot{key: m.activeKey(), records: m.Snapshot()}
	})
	snap := <-taken
	if snap.key == "" {
		return fmt.Errorf("no active profile to export")
	}
	if len(snap.records) == 0 {
		return fmt.Errorf("no trade history to export")
	}
	payload, err := EncodeHistory(snap.key, snap.records)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	return nil
}

// ImportFromFile reads a previously exported history file and restores it as
// the active profile's history, applying the same migration path as a store
// load. Nothing is committed when the file cannot be read or parsed.
func (m *Manager) ImportFromFile(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read history file: %w", err)
	}
	if len(payload) == 0 {
		return fmt.Errorf("history file %s is empty", path)
	}
	records, err := DecodeHistory(string(payload))
	if err != nil {
		return err
	}
	m.invoke(func() {
		if m.OnRestored != nil {
			m.OnRestored(m.activeKey(), records)
		}
	})
	return nil
}
