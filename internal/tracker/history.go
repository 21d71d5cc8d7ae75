package tracker

import (
	"time"

	"trade-tracker-go/internal/models"

	"go.uber.org/zap"
)

// MaxHistoryHardCap bounds the history regardless of configuration.
const MaxHistoryHardCap = 512

// PurgeUnit is the unit of the configured record lifetime.
type PurgeUnit string

const (
	PurgeNever  PurgeUnit = "never"
	PurgeMinute PurgeUnit = "minute"
	PurgeHour   PurgeUnit = "hour"
	PurgeDay    PurgeUnit = "day"
	PurgeYear   PurgeUnit = "year"
)

// Interval returns the unit's duration, or zero for never/unknown units.
func (u PurgeUnit) Interval() time.Duration {
	switch u {
	case PurgeMinute:
		return time.Minute
	case PurgeHour:
		return time.Hour
	case PurgeDay:
		return 24 * time.Hour
	case PurgeYear:
		return 365 * 24 * time.Hour
	}
	return 0
}

// Limits are the user-configured bounds on the history.
type Limits struct {
	MaxCount       int
	PurgeUnit      PurgeUnit
	PurgeMagnitude int
}

// ClampedMax returns the maximum record count clamped to [1, MaxHistoryHardCap].
func (l Limits) ClampedMax() int {
	if l.MaxCount < 1 {
		return 1
	}
	if l.MaxCount > MaxHistoryHardCap {
		return MaxHistoryHardCap
	}
	return l.MaxCount
}

// Lifetime returns the configured record lifetime, or zero when purging is
// configured off ("never" unit or non-positive magnitude).
func (l Limits) Lifetime() time.Duration {
	if l.PurgeUnit == PurgeNever || l.PurgeMagnitude <= 0 {
		return 0
	}
	return time.Duration(l.PurgeMagnitude) * l.PurgeUnit.Interval()
}

// Saver is the slice of the persistence subsystem the history needs.
type Saver interface {
	RequestSave()
	SaveValue(key string, value any) error
	RestoreValue(key string, out any) (bool, error)
}

// scheduledPurgeKey matches the key the persistence layer stores the purge
// flag under; it lives outside the config system proper.
const scheduledPurgeKey = "SchedulePurge"

// History is the ordered, bounded collection of completed trades for the
// active profile. Oldest records come first. All methods must run on the
// loop goroutine; the expiry timer re-enters through invoke.
type History struct {
	logger *zap.Logger
	bus    *Bus
	invoke func(func())
	saver  Saver

	limits       Limits
	purgeEnabled bool
	records      []*models.TradeRecord

	expiryTimer *time.Timer
	now         func() time.Time
}

// NewHistory creates an empty history with the passed limits. The purge
// enabled flag is restored from the persisted key-value slot.
func NewHistory(logger *zap.Logger, bus *Bus, invoke func(func()), saver Saver, limits Limits) *History {
	h := &History{
		logger:  logger.Named("history"),
		bus:     bus,
		invoke:  invoke,
		saver:   saver,
		limits:  limits,
		records: []*models.TradeRecord{},
		now:     time.Now,
	}
	var enabled bool
	if ok, err := saver.RestoreValue(scheduledPurgeKey, &enabled); err != nil {
		h.logger.Error("Failed to restore purge flag", zap.Error(err))
	} else if ok {
		h.purgeEnabled = enabled
	}
	return h
}

// Size returns the number of records held.
func (h *History) Size() int { return len(h.records) }

// Records returns the backing sequence, oldest first. Callers must not
// mutate it; use Snapshot for a copy.
func (h *History) Records() []*models.TradeRecord { return h.records }

// Snapshot returns a copy of the record sequence safe to hand to another
// goroutine. The records themselves are immutable once accepted.
func (h *History) Snapshot() []*models.TradeRecord {
	return append([]*models.TradeRecord{}, h.records...)
}

// Append adds an accepted trade at the tail, evicting the oldest records
// when the configured maximum would be exceeded, and requests a save.
func (h *History) Append(record *models.TradeRecord) {
	overflow := len(h.records) - h.limits.ClampedMax() + 1
	if overflow > 0 {
		h.evictOldest(overflow)
	}
	h.records = append(h.records, record)
	h.bus.Publish(TradeAdded{Record: record})
	h.saver.RequestSave()
	if len(h.records) == 1 {
		h.rearmExpiryTimer()
	}
}

// Remove deletes the record with the same acceptance time, if present, and
// requests a save.
func (h *History) Remove(record *models.TradeRecord) {
	for i, held := range h.records {
		if held.Time == record.Time {
			h.records = append(h.records[:i], h.records[i+1:]...)
			h.bus.Publish(TradeRemoved{Record: held})
			h.saver.RequestSave()
			h.rearmExpiryTimer()
			return
		}
	}
}

// Clear removes every record and requests a save.
func (h *History) Clear() {
	h.records = []*models.TradeRecord{}
	h.bus.Publish(HistoryReset{Records: h.records})
	h.saver.RequestSave()
	h.rearmExpiryTimer()
}

// ReplaceAll swaps in a restored history when switching profiles. A single
// bulk reset notification fires instead of per-record events.
func (h *History) ReplaceAll(records []*models.TradeRecord) {
	if records == nil {
		records = []*models.TradeRecord{}
	}
	h.records = records
	h.bus.Publish(HistoryReset{Records: h.records})
	h.rearmExpiryTimer()
}

// SetLimits applies new bounds, evicting overflow and rescheduling expiry.
func (h *History) SetLimits(limits Limits) {
	h.limits = limits
	if overflow := len(h.records) - limits.ClampedMax(); overflow > 0 {
		h.evictOldest(overflow)
		h.saver.RequestSave()
	}
	h.rearmExpiryTimer()
}

// Limits returns the current bounds.
func (h *History) Limits() Limits { return h.limits }

// PurgeEnabled reports whether time-based purging is switched on.
func (h *History) PurgeEnabled() bool { return h.purgeEnabled }

// SetPurgeEnabled toggles time-based purging, persists the flag and
// reschedules the expiry timer.
func (h *History) SetPurgeEnabled(enabled bool) {
	h.purgeEnabled = enabled
	if err := h.saver.SaveValue(scheduledPurgeKey, enabled); err != nil {
		h.logger.Error("Failed to persist purge flag", zap.Error(err))
	}
	h.rearmExpiryTimer()
}

// lifetime returns the effective record lifetime, zero when purging is off.
func (h *History) lifetime() time.Duration {
	if !h.purgeEnabled {
		return 0
	}
	return h.limits.Lifetime()
}

// rearmExpiryTimer cancels any outstanding timer and arms a new one for the
// oldest record's expiry instant, at least one second out. An empty store or
// disabled purging cancels without rearming.
func (h *History) rearmExpiryTimer() {
	if h.expiryTimer != nil {
		h.expiryTimer.Stop()
		h.expiryTimer = nil
	}
	if len(h.records) == 0 {
		return
	}
	lifetime := h.lifetime()
	if lifetime <= 0 {
		return
	}
	expiry := time.Unix(h.records[0].Time, 0).Add(lifetime)
	delay := expiry.Sub(h.now())
	if delay < time.Second {
		delay = time.Second
	}
	h.expiryTimer = time.AfterFunc(delay, func() {
		h.invoke(h.removeExpired)
	})
	h.logger.Debug("Scheduled expiry of oldest trade", zap.Time("expiry", expiry))
}

// removeExpired evicts every record past its lifetime, then rearms the timer
// for the next one.
func (h *History) removeExpired() {
	lifetime := h.lifetime()
	if lifetime <= 0 {
		return
	}
	now := h.now()
	for len(h.records) > 0 && h.records[0].IsExpired(lifetime, now) {
		h.evictOldest(1)
	}
	h.rearmExpiryTimer()
}

// evictOldest removes count records from the front, one removal
// notification per record.
func (h *History) evictOldest(count int) {
	if count > len(h.records) {
		count = len(h.records)
	}
	for i := 0; i < count; i++ {
		h.bus.Publish(TradeRemoved{Record: h.records[0]})
		h.records = h.records[1:]
	}
}
