package tracker

import (
	"trade-tracker-go/internal/models"

	"go.uber.org/zap"
)

// Window group and container ids from the game client.
const (
	GroupTradeWindow  = 335
	GroupTradeConfirm = 334

	ContainerGivenOffer    = 90
	ContainerReceivedOffer = 90 | 0x8000
)

// Chat message literals that end a trade.
const (
	messageAcceptedTrade = "Accepted trade."
	messageDeclinedTrade = "Other player declined trade."
)

// maxNameRetries bounds the per-tick counterparty name lookup. The trade
// window's name line is not guaranteed populated on the first frame, but a
// window that never populates must not retry forever.
const maxNameRetries = 50

// ChatType classifies an incoming chat message.
type ChatType int

const (
	ChatTypeGame ChatType = iota
	ChatTypeTrade
	ChatTypePublic
)

// State is the stage of the trade the player is currently in.
type State int

const (
	StateIdle State = iota
	StateOpen
	StateConfirming
	StateAccepted // transient; immediately schedules a return to idle
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateConfirming:
		return "confirming"
	case StateAccepted:
		return "accepted"
	}
	return "idle"
}

// PriceSource resolves item values and metadata from a local cache. Lookups
// must not block; the machine calls them on the loop goroutine.
type PriceSource interface {
	// Price returns the exchange value of an item, or zero when unknown.
	Price(id int) int
	// ItemName returns the item's display name, if known.
	ItemName(id int) (string, bool)
	// UnnotedID returns the canonical id for a noted item id, or zero when
	// the id is already canonical.
	UnnotedID(id int) int
}

// WidgetReader reads text out of the client's widget tree.
type WidgetReader interface {
	// TradeCounterpartyName returns the name shown in the open trade
	// window, once it has been populated.
	TradeCounterpartyName() (string, bool)
}

// Machine reconstructs complete trade records from the stream of window,
// container and chat events. All handlers must run on the loop goroutine.
type Machine struct {
	logger  *zap.Logger
	bus     *Bus
	invoke  func(func())
	history *History
	prices  PriceSource
	widgets WidgetReader

	// IgnoreEmptyTrades drops accepted trades where neither side offered
	// anything.
	IgnoreEmptyTrades bool

	state       State
	current     *models.TradeRecord
	nameRetries int
}

// NewMachine creates an idle trade state machine feeding the passed history.
func NewMachine(logger *zap.Logger, bus *Bus, invoke func(func()), history *History, prices PriceSource, widgets WidgetReader) *Machine {
	return &Machine{
		logger:  logger.Named("machine"),
		bus:     bus,
		invoke:  invoke,
		history: history,
		prices:  prices,
		widgets: widgets,
	}
}

// State returns the current trade stage.
func (m *Machine) State() State { return m.state }

// CurrentTrade returns the in-progress record, or nil.
func (m *Machine) CurrentTrade() *models.TradeRecord { return m.current }

// WindowOpened handles a trade or confirmation window appearing.
func (m *Machine) WindowOpened(group int) {
	switch group {
	case GroupTradeWindow:
		if m.current == nil {
			m.current = models.NewTradeRecord()
		}
		m.setState(StateOpen)
		m.nameRetries = 0
		m.fetchCounterpartyName()
	case GroupTradeConfirm:
		m.setState(StateConfirming)
	}
}

// WindowClosed handles a trade or confirmation window going away. Closing
// the trade window defers its check one tick: the confirmation window may
// open in the same tick the trade window closes.
func (m *Machine) WindowClosed(group int) {
	switch group {
	case GroupTradeWindow:
		m.invoke(func() {
			if m.state != StateConfirming {
				m.setState(StateIdle)
			}
		})
	case GroupTradeConfirm:
		m.setState(StateIdle)
	}
}

// ContainerChanged handles a fresh snapshot of one side's trade offer. Each
// snapshot is authoritative and replaces the side wholesale.
func (m *Machine) ContainerChanged(containerID int, items []*models.ItemStack) {
	if m.current == nil {
		return
	}
	switch containerID {
	case ContainerGivenOffer:
		m.current.SetItems(models.SideGiven, items)
	case ContainerReceivedOffer:
		m.current.SetItems(models.SideReceived, items)
	}
}

// ChatMessage handles the trade-typed system messages that finish a trade.
// The timestamp is unix seconds as reported by the client.
func (m *Machine) ChatMessage(chatType ChatType, text string, timestamp int64) {
	if chatType != ChatTypeTrade || m.current == nil {
		return
	}
	switch text {
	case messageAcceptedTrade:
		if m.IgnoreEmptyTrades && m.current.IsEmpty() {
			// Discard silently, no state notification.
			m.current = nil
			m.state = StateIdle
			return
		}
		m.current.Time = timestamp
		m.finalize(m.current)
		m.setState(StateAccepted)
	case messageDeclinedTrade:
		m.setState(StateIdle)
	default:
		return
	}
	m.current = nil
}

// finalize resolves item metadata, computes aggregate values and hands the
// record to the history, which owns it from here on.
func (m *Machine) finalize(record *models.TradeRecord) {
	m.resolveItems(record.GivenItems)
	m.resolveItems(record.ReceivedItems)
	record.ComputeTotals()
	m.history.Append(record)
	m.logger.Info("Recorded accepted trade",
		zap.String("counterparty", record.Counterparty.Name),
		zap.Int64("given_value", record.GivenValue),
		zap.Int64("received_value", record.ReceivedValue),
	)
	if summary := models.SummarizeTrade(record); summary.Valid() {
		verb := "bought"
		if summary.Kind == models.SimpleSold {
			verb = "sold"
		}
		name, _ := m.prices.ItemName(summary.Item.CanonicalID())
		m.logger.Info("Simple trade",
			zap.String("kind", verb),
			zap.String("item", name),
			zap.Int64("quantity", summary.Quantity),
			zap.Float64("price_each", summary.PricePerUnit),
		)
	}
}

// resolveItems links noted items to their canonical ids and records each
// stack's exchange value. Values are write-once: a stack that already has
// one keeps it.
func (m *Machine) resolveItems(items []*models.ItemStack) {
	for _, item := range items {
		if unnoted := m.prices.UnnotedID(item.ID); unnoted > 0 {
			item.SetUnnotedID(unnoted)
		}
		item.SetValue(int32(m.prices.Price(item.CanonicalID())))
	}
}

// fetchCounterpartyName reads the counterparty's name from the trade window,
// retrying on subsequent ticks until it populates or the retry budget runs
// out.
func (m *Machine) fetchCounterpartyName() {
	if m.state == StateIdle || m.current == nil || m.current.Counterparty.Valid {
		return
	}
	if name, ok := m.widgets.TradeCounterpartyName(); ok {
		m.current.Counterparty = models.Counterparty{Name: name, Valid: true}
		return
	}
	m.nameRetries++
	if m.nameRetries >= maxNameRetries {
		m.logger.Warn("Gave up resolving counterparty name", zap.Int("retries", m.nameRetries))
		return
	}
	m.invoke(m.fetchCounterpartyName)
}

// setState advances the trade stage and fires the matching notifications.
// Acceptance is transient: the return to idle is scheduled for the next tick
// and fires no declined notification.
func (m *Machine) setState(newState State) {
	if m.state == newState {
		return
	}
	switch newState {
	case StateAccepted:
		m.invoke(func() { m.setState(StateIdle) })
	case StateOpen:
		counterparty := models.Counterparty{}
		if m.current != nil {
			counterparty = m.current.Counterparty
		}
		m.bus.Publish(TradeBegan{Counterparty: counterparty})
	case StateIdle:
		if m.state != StateAccepted {
			counterparty := models.Counterparty{}
			if m.current != nil {
				counterparty = m.current.Counterparty
			}
			m.bus.Publish(TradeDeclined{Counterparty: counterparty})
		}
	}
	m.logger.Debug("Trade state changed",
		zap.Stringer("from", m.state), zap.Stringer("to", newState))
	m.state = newState
}
