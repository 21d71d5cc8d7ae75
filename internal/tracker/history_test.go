package tracker

import (
	"encoding/json"
	"testing"
	"time"

	"trade-tracker-go/internal/models"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// fakeSaver records save requests and keeps persisted values in memory.
type fakeSaver struct {
	saveRequests int
	values       map[string]string
}

func newFakeSaver() *fakeSaver {
	return &fakeSaver{values: map[string]string{}}
}

func (f *fakeSaver) RequestSave() { f.saveRequests++ }

func (f *fakeSaver) SaveValue(key string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.values[key] = string(payload)
	return nil
}

func (f *fakeSaver) RestoreValue(key string, out any) (bool, error) {
	payload, ok := f.values[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal([]byte(payload), out)
}

// eventRecorder collects every bus notification in order.
type eventRecorder struct {
	events []any
}

func (r *eventRecorder) record(event any) { r.events = append(r.events, event) }

func (r *eventRecorder) removedTimes() []int64 {
	var times []int64
	for _, event := range r.events {
		if removed, ok := event.(TradeRemoved); ok {
			times = append(times, removed.Record.Time)
		}
	}
	return times
}

func recordAt(unixTime int64) *models.TradeRecord {
	record := models.NewTradeRecord()
	record.Time = unixTime
	return record
}

func historyTimes(h *History) []int64 {
	times := make([]int64, 0, h.Size())
	for _, record := range h.Records() {
		times = append(times, record.Time)
	}
	return times
}

func newTestHistory(t *testing.T, limits Limits) (*History, *fakeSaver, *eventRecorder) {
	t.Helper()
	saver := newFakeSaver()
	recorder := &eventRecorder{}
	bus := NewBus()
	bus.Subscribe(recorder.record)
	h := NewHistory(zap.NewNop(), bus, func(fn func()) { fn() }, saver, limits)
	return h, saver, recorder
}

func TestHistoryAppendEvictsOldest(t *testing.T) {
	h, saver, recorder := newTestHistory(t, Limits{MaxCount: 2, PurgeUnit: PurgeNever})

	h.Append(recordAt(100))
	h.Append(recordAt(200))
	h.Append(recordAt(300))

	assert.Equal(t, []int64{200, 300}, historyTimes(h))
	assert.Equal(t, []int64{100}, recorder.removedTimes())
	assert.Equal(t, 3, saver.saveRequests)
}

func TestHistoryAppendPublishesAdded(t *testing.T) {
	h, _, recorder := newTestHistory(t, Limits{MaxCount: 10, PurgeUnit: PurgeNever})

	record := recordAt(100)
	h.Append(record)

	assert.Len(t, recorder.events, 1)
	added, ok := recorder.events[0].(TradeAdded)
	assert.True(t, ok)
	assert.Same(t, record, added.Record)
}

func TestHistoryRemove(t *testing.T) {
	h, saver, recorder := newTestHistory(t, Limits{MaxCount: 10, PurgeUnit: PurgeNever})
	h.Append(recordAt(100))
	h.Append(recordAt(200))
	savesBefore := saver.saveRequests

	h.Remove(recordAt(100))
	assert.Equal(t, []int64{200}, historyTimes(h))
	assert.Equal(t, []int64{100}, recorder.removedTimes())
	assert.Equal(t, savesBefore+1, saver.saveRequests)

	// Removing something not present changes nothing.
	h.Remove(recordAt(999))
	assert.Equal(t, []int64{200}, historyTimes(h))
	assert.Equal(t, savesBefore+1, saver.saveRequests)
}

func TestHistoryClear(t *testing.T) {
	h, saver, recorder := newTestHistory(t, Limits{MaxCount: 10, PurgeUnit: PurgeNever})
	h.Append(recordAt(100))
	h.Append(recordAt(200))
	savesBefore := saver.saveRequests

	h.Clear()
	assert.Zero(t, h.Size())
	assert.Equal(t, savesBefore+1, saver.saveRequests)
	_, isReset := recorder.events[len(recorder.events)-1].(HistoryReset)
	assert.True(t, isReset)
}

func TestHistoryReplaceAll(t *testing.T) {
	h, saver, recorder := newTestHistory(t, Limits{MaxCount: 10, PurgeUnit: PurgeNever})
	h.Append(recordAt(100))
	savesBefore := saver.saveRequests

	h.ReplaceAll([]*models.TradeRecord{recordAt(500), recordAt(600)})

	assert.Equal(t, []int64{500, 600}, historyTimes(h))
	// A restore is not a change: no save, one bulk reset instead of
	// per-record notifications.
	assert.Equal(t, savesBefore, saver.saveRequests)
	reset, ok := recorder.events[len(recorder.events)-1].(HistoryReset)
	assert.True(t, ok)
	assert.Len(t, reset.Records, 2)

	h.ReplaceAll(nil)
	assert.Zero(t, h.Size())
	assert.NotNil(t, h.Records())
}

func TestHistorySetLimitsEvictsOverflow(t *testing.T) {
	h, saver, recorder := newTestHistory(t, Limits{MaxCount: 10, PurgeUnit: PurgeNever})
	h.Append(recordAt(100))
	h.Append(recordAt(200))
	h.Append(recordAt(300))
	savesBefore := saver.saveRequests

	h.SetLimits(Limits{MaxCount: 2, PurgeUnit: PurgeNever})

	assert.Equal(t, []int64{200, 300}, historyTimes(h))
	assert.Equal(t, []int64{100}, recorder.removedTimes())
	assert.Equal(t, savesBefore+1, saver.saveRequests)

	// Growing the limit evicts nothing and saves nothing.
	h.SetLimits(Limits{MaxCount: 5, PurgeUnit: PurgeNever})
	assert.Equal(t, []int64{200, 300}, historyTimes(h))
	assert.Equal(t, savesBefore+1, saver.saveRequests)
}

func TestLimitsClampedMax(t *testing.T) {
	assert.Equal(t, 1, Limits{MaxCount: 0}.ClampedMax())
	assert.Equal(t, 1, Limits{MaxCount: -5}.ClampedMax())
	assert.Equal(t, 256, Limits{MaxCount: 256}.ClampedMax())
	assert.Equal(t, MaxHistoryHardCap, Limits{MaxCount: 99999}.ClampedMax())
}

func TestLimitsLifetime(t *testing.T) {
	assert.Zero(t, Limits{PurgeUnit: PurgeNever, PurgeMagnitude: 3}.Lifetime())
	assert.Zero(t, Limits{PurgeUnit: PurgeDay, PurgeMagnitude: 0}.Lifetime())
	assert.Equal(t, 5*time.Minute, Limits{PurgeUnit: PurgeMinute, PurgeMagnitude: 5}.Lifetime())
	assert.Equal(t, 48*time.Hour, Limits{PurgeUnit: PurgeDay, PurgeMagnitude: 2}.Lifetime())
	assert.Equal(t, 365*24*time.Hour, Limits{PurgeUnit: PurgeYear, PurgeMagnitude: 1}.Lifetime())
}

func TestHistoryRemoveExpired(t *testing.T) {
	now := time.Unix(10_000_000, 0)
	h, saver, recorder := newTestHistory(t, Limits{MaxCount: 10, PurgeUnit: PurgeHour, PurgeMagnitude: 1})
	h.now = func() time.Time { return now }
	h.SetPurgeEnabled(true)

	expired := now.Add(-2 * time.Hour).Unix()
	alsoExpired := now.Add(-61 * time.Minute).Unix()
	fresh := now.Add(-10 * time.Minute).Unix()
	h.ReplaceAll([]*models.TradeRecord{recordAt(expired), recordAt(alsoExpired), recordAt(fresh)})
	savesBefore := saver.saveRequests

	h.removeExpired()

	assert.Equal(t, []int64{fresh}, historyTimes(h))
	assert.Equal(t, []int64{expired, alsoExpired}, recorder.removedTimes())
	// Expiry removals reflect already-persisted passage of time; the next
	// regular save picks them up.
	assert.Equal(t, savesBefore, saver.saveRequests)
}

func TestHistoryRemoveExpiredDisabled(t *testing.T) {
	now := time.Unix(10_000_000, 0)
	h, _, _ := newTestHistory(t, Limits{MaxCount: 10, PurgeUnit: PurgeHour, PurgeMagnitude: 1})
	h.now = func() time.Time { return now }

	h.ReplaceAll([]*models.TradeRecord{recordAt(now.Add(-2 * time.Hour).Unix())})
	h.removeExpired()

	assert.Equal(t, 1, h.Size(), "purging is off by default")
	assert.Nil(t, h.expiryTimer)
}

func TestHistoryExpiryTimerArming(t *testing.T) {
	now := time.Unix(10_000_000, 0)
	h, _, _ := newTestHistory(t, Limits{MaxCount: 10, PurgeUnit: PurgeDay, PurgeMagnitude: 1})
	h.now = func() time.Time { return now }
	h.SetPurgeEnabled(true)

	assert.Nil(t, h.expiryTimer, "empty history arms no timer")

	h.Append(recordAt(now.Unix()))
	assert.NotNil(t, h.expiryTimer)

	h.Clear()
	assert.Nil(t, h.expiryTimer)

	h.Append(recordAt(now.Unix()))
	h.SetPurgeEnabled(false)
	assert.Nil(t, h.expiryTimer)
}

func TestHistoryPurgeFlagPersists(t *testing.T) {
	saver := newFakeSaver()
	bus := NewBus()
	invoke := func(fn func()) { fn() }

	h := NewHistory(zap.NewNop(), bus, invoke, saver, Limits{MaxCount: 10, PurgeUnit: PurgeNever})
	assert.False(t, h.PurgeEnabled())
	h.SetPurgeEnabled(true)

	restored := NewHistory(zap.NewNop(), bus, invoke, saver, Limits{MaxCount: 10, PurgeUnit: PurgeNever})
	assert.True(t, restored.PurgeEnabled())
}
