package persist

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sync"

	"trade-tracker-go/internal/kvstore"
	"trade-tracker-go/internal/models"

	"go.uber.org/zap"
)

const (
	// SaveGroup is the config group all tracker values are stored under.
	SaveGroup = "TradeTracker"
	// SaveVersion should increase whenever the save data or method changes.
	SaveVersion = 2
	// KeyCommon is the fixed key of the common save state.
	KeyCommon = "Common"
	// KeyScheduledPurge stores the "is purging enabled" flag.
	KeyScheduledPurge = "SchedulePurge"
	// Keys the configuration UI writes history limits under.
	KeyMaxHistory     = "maxHistoryCount"
	KeyPurgeUnit      = "purgeHistoryType"
	KeyPurgeMagnitude = "purgeHistoryMagnitude"
)

// Empty-string and null notes are indistinguishable from absent in the
// encoded form; stripping them shrinks the payload.
var emptyNotePattern = regexp.MustCompile(`,"note":(?:null|"")`)

// profileSave is the on-disk record for one profile's history.
type profileSave struct {
	Version    int    `json:"saveVersion"`
	ProfileKey string `json:"profileKey"`
	History    string `json:"encodedTradeHistory"`
}

// opFlags is the lifecycle of one save-or-load operation. Pending and active
// are independent: a request that arrives while the operation is already
// running stays pending and is dispatched once the running one completes, so
// no request is ever lost to an in-flight operation.
type opFlags struct {
	pending bool
	active  bool
}

func (f opFlags) idle() bool { return !f.pending && !f.active }

// Manager coordinates saving and loading trade histories against the
// key-value store. Public entry points only ever mark an operation as
// pending and return immediately; a scheduler running on the tracker loop
// hands at most one save-or-load at a time to a background goroutine.
// Requests coalesce: N rapid save requests produce at least one write
// reflecting the latest history, not N writes.
type Manager struct {
	logger *zap.Logger
	store  kvstore.Store
	invoke func(func()) // posts onto the tracker loop

	// Snapshot returns a copy of the current history. Called on the loop at
	// dispatch time so the background goroutine never touches shared state.
	Snapshot func() []*models.TradeRecord
	// OnRestored receives a decoded history on the loop after a load or
	// import completes.
	OnRestored func(profileKey string, records []*models.TradeRecord)
	// OnProfileChanged fires on the loop when the active profile switches.
	OnProfileChanged func(oldProfile, newProfile *models.ProfileIdentity)

	mu   sync.Mutex
	save opFlags
	load opFlags

	// common is touched only from the loop goroutine.
	common *models.CommonSaveState
}

// NewManager creates a persistence manager over the passed store. The invoke
// function must execute its argument on the tracker loop goroutine.
func NewManager(logger *zap.Logger, store kvstore.Store, invoke func(func())) *Manager {
	return &Manager{
		logger: logger.Named("persist"),
		store:  store,
		invoke: invoke,
		common: models.NewCommonSaveState(SaveVersion),
	}
}

// LoadCommon reads the common save state from the store. A missing or corrupt
// value yields fresh first-run state. Must be called on the loop.
func (m *Manager) LoadCommon() {
	value, ok, err := m.store.Get(SaveGroup, KeyCommon)
	if err != nil {
		m.logger.Error("Failed to read common save state", zap.Error(err))
		return
	}
	if !ok || value == "" {
		m.common = models.NewCommonSaveState(SaveVersion)
		return
	}
	common := models.NewCommonSaveState(SaveVersion)
	if err := json.Unmarshal([]byte(value), common); err != nil {
		m.logger.Error("Failed to parse common save state, starting fresh", zap.Error(err))
		m.common = models.NewCommonSaveState(SaveVersion)
		return
	}
	m.common = common
}

// ActiveProfile returns the currently active profile, or nil.
func (m *Manager) ActiveProfile() *models.ProfileIdentity { return m.common.ActiveProfile }

// KnownProfiles returns the profiles that have saved histories.
func (m *Manager) KnownProfiles() []models.ProfileIdentity {
	return append([]models.ProfileIdentity{}, m.common.KnownProfiles...)
}

// SetActiveProfile switches the active profile, persists the common state and
// requests a load of the new profile's history. Must be called on the loop.
func (m *Manager) SetActiveProfile(profile *models.ProfileIdentity) {
	if profile == nil {
		return
	}
	if active := m.common.ActiveProfile; active != nil && active.Same(*profile) {
		return
	}
	oldProfile := m.common.ActiveProfile
	m.common.SetActiveProfile(profile)
	if m.OnProfileChanged != nil {
		m.OnProfileChanged(oldProfile, profile)
	}
	m.saveCommon()
	m.RequestLoad()
}

// ForgetActiveProfile clears the active profile without saving or notifying.
func (m *Manager) ForgetActiveProfile() {
	m.common.ActiveProfile = nil
}

func (m *Manager) saveCommon() {
	payload, err := json.Marshal(m.common)
	if err != nil {
		m.logger.Error("Failed to serialize common save state", zap.Error(err))
		return
	}
	if err := m.store.Set(SaveGroup, KeyCommon, string(payload)); err != nil {
		m.logger.Error("Failed to write common save state", zap.Error(err))
	}
}

// RequestSave asks for the current history to be saved. The save is dropped,
// not queued, while a load is pending or running: writing a
// just-switched-away-from profile's records under the new profile's key must
// never happen.
func (m *Manager) RequestSave() {
	m.mu.Lock()
	if !m.load.idle() {
		m.mu.Unlock()
		return
	}
	m.save.pending = true
	m.mu.Unlock()
	m.invoke(m.schedule)
}

// RequestLoad asks for the active profile's history to be reloaded. A
// request made while a load is already running stays pending and runs after
// it, against whatever profile is active at dispatch time.
func (m *Manager) RequestLoad() {
	m.mu.Lock()
	m.load.pending = true
	m.mu.Unlock()
	m.invoke(m.schedule)
}

// Busy reports whether a save or load is pending or running.
func (m *Manager) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.save.idle() || !m.load.idle()
}

// schedule runs on the loop and dispatches at most one operation to a
// background goroutine. Completion re-posts it to drain anything requested
// while the operation was in flight.
func (m *Manager) schedule() {
	m.mu.Lock()
	if m.save.active || m.load.active {
		m.mu.Unlock()
		return // completion will re-poll
	}
	switch {
	case m.save.pending:
		m.save.pending = false
		m.save.active = true
		m.mu.Unlock()
		key := m.activeKey()
		records := m.Snapshot()
		go m.runSave(key, records)
	case m.load.pending:
		m.load.pending = false
		m.load.active = true
		m.mu.Unlock()
		key := m.activeKey()
		go m.runLoad(key)
	default:
		m.mu.Unlock()
	}
}

func (m *Manager) activeKey() string {
	if m.common.ActiveProfile == nil {
		return ""
	}
	return m.common.ActiveProfile.Key()
}

func (m *Manager) finish(flags *opFlags) {
	m.mu.Lock()
	flags.active = false
	m.mu.Unlock()
	m.invoke(m.schedule)
}

// runSave executes on a background goroutine with a private record snapshot.
func (m *Manager) runSave(key string, records []*models.TradeRecord) {
	defer m.finish(&m.save)
	if key == "" {
		return
	}
	if len(records) == 0 {
		// An empty history unsets the key rather than storing an empty blob.
		if err := m.store.Unset(SaveGroup, key); err != nil {
			m.logger.Error("Failed to clear saved history", zap.String("profile", key), zap.Error(err))
		}
		return
	}
	payload, err := EncodeHistory(key, records)
	if err != nil {
		m.logger.Error("Failed to serialize history", zap.String("profile", key), zap.Error(err))
		return
	}
	if err := m.store.Set(SaveGroup, key, payload); err != nil {
		m.logger.Error("Failed to save history", zap.String("profile", key), zap.Error(err))
		return
	}
	m.logger.Debug("Saved trade history", zap.String("profile", key), zap.Int("records", len(records)))
}

// runLoad executes on a background goroutine and posts the decoded history
// back onto the loop.
func (m *Manager) runLoad(key string) {
	defer m.finish(&m.load)
	if key == "" {
		return
	}
	value, _, err := m.store.Get(SaveGroup, key)
	if err != nil {
		m.logger.Error("Failed to read saved history", zap.String("profile", key), zap.Error(err))
		value = ""
	}
	records := m.decodeHistory(value)
	if m.OnRestored != nil {
		m.invoke(func() { m.OnRestored(key, records) })
	}
}

// EncodeHistory renders a record sequence to the persisted textual form:
// JSON, empty notes stripped, compressed, base64-encoded and wrapped in a
// versioned envelope.
func EncodeHistory(profileKey string, records []*models.TradeRecord) (string, error) {
	historyJSON, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("failed to encode history: %w", err)
	}
	cleaned := emptyNotePattern.ReplaceAllString(string(historyJSON), "")
	encoded, err := CompressToEncoded(cleaned)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(profileSave{
		Version:    SaveVersion,
		ProfileKey: profileKey,
		History:    encoded,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode save record: %w", err)
	}
	return string(payload), nil
}

// DecodeHistory parses a persisted payload back into records, migrating old
// save versions. An empty payload is an empty history.
func DecodeHistory(payload string) ([]*models.TradeRecord, error) {
	if payload == "" {
		return []*models.TradeRecord{}, nil
	}
	var save profileSave
	if err := json.Unmarshal([]byte(payload), &save); err != nil {
		return nil, fmt.Errorf("failed to parse saved history envelope: %w", err)
	}
	historyJSON, err := DecompressFromEncoded(save.History)
	if err != nil {
		return nil, err
	}
	if save.Version == 1 {
		historyJSON = UpgradeV1toV2(historyJSON)
	}
	var records []*models.TradeRecord
	if err := json.Unmarshal([]byte(historyJSON), &records); err != nil {
		return nil, fmt.Errorf("failed to parse saved history records: %w", err)
	}
	if records == nil {
		records = []*models.TradeRecord{}
	}
	return records, nil
}

// decodeHistory is the forgiving variant used for store loads: corrupt
// payloads are logged and treated as an empty history, never an error.
func (m *Manager) decodeHistory(payload string) []*models.TradeRecord {
	records, err := DecodeHistory(payload)
	if err != nil {
		m.logger.Error("Failed to decode saved history, treating as empty", zap.Error(err))
		return []*models.TradeRecord{}
	}
	return records
}

// SaveValue stores a JSON-encoded value under the tracker's group.
func (m *Manager) SaveValue(key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for %s: %w", key, err)
	}
	return m.store.Set(SaveGroup, key, string(payload))
}

// RestoreValue reads a JSON-encoded value stored with SaveValue. The boolean
// reports whether the key was present.
func (m *Manager) RestoreValue(key string, out any) (bool, error) {
	value, ok, err := m.store.Get(SaveGroup, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(value), out); err != nil {
		return false, fmt.Errorf("failed to decode value for %s: %w", key, err)
	}
	return true, nil
}
