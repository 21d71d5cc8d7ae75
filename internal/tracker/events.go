package tracker

import "trade-tracker-go/internal/models"

// Notifications published to external collaborators (overlays, panels, the
// status API). Each payload is immutable from the subscriber's point of view.

// TradeBegan fires when a trade window opens. The counterparty may still be
// unresolved at that point.
type TradeBegan struct {
	Counterparty models.Counterparty
}

// TradeDeclined fires when an in-progress trade ends without acceptance.
type TradeDeclined struct {
	Counterparty models.Counterparty
}

// TradeAdded fires when an accepted trade lands in the history.
type TradeAdded struct {
	Record *models.TradeRecord
}

// TradeRemoved fires once per record evicted or removed from the history.
type TradeRemoved struct {
	Record *models.TradeRecord
}

// HistoryReset fires when the history is replaced wholesale, letting
// consumers rebuild their view instead of replaying per-record events.
type HistoryReset struct {
	Records []*models.TradeRecord
}

// ProfileChanged fires when the active profile switches.
type ProfileChanged struct {
	Old *models.ProfileIdentity
	New *models.ProfileIdentity
}

// Bus delivers tracker notifications synchronously on the loop goroutine.
// Publishing is fire-and-forget; handlers must not block.
type Bus struct {
	handlers []func(any)
}

// NewBus creates an empty bus.
func NewBus() *Bus { return &Bus{} }

// Subscribe registers a handler for all published notifications. Not safe
// to call concurrently with Publish; subscribe during wiring.
func (b *Bus) Subscribe(handler func(any)) {
	b.handlers = append(b.handlers, handler)
}

// Publish hands the notification to every subscriber in order.
func (b *Bus) Publish(event any) {
	for _, handler := range b.handlers {
		handler(event)
	}
}
