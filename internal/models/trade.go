package models

import "time"

// Side identifies which half of the trade window an item snapshot belongs to.
type Side int

const (
	// SideGiven is the local player's offer.
	SideGiven Side = iota
	// SideReceived is the counterparty's offer.
	SideReceived
)

// Counterparty is the other player in a trade. Valid is false until the name
// has been read from the trade window.
type Counterparty struct {
	Name  string `json:"name"`
	Valid bool   `json:"valid"`
}

// TradeRecord describes one completed (or in-progress) trade between two
// players. It is mutated in place while the trade window is open and becomes
// immutable, apart from the user-editable note, once accepted.
type TradeRecord struct {
	Time          int64        `json:"time"` // unix seconds at acceptance
	Counterparty  Counterparty `json:"player"`
	GivenItems    []*ItemStack `json:"given"`
	ReceivedItems []*ItemStack `json:"received"`
	GivenValue    int64        `json:"givenValue"`
	ReceivedValue int64        `json:"receivedValue"`
	Note          string       `json:"note"`
}

// NewTradeRecord creates an empty in-progress trade.
func NewTradeRecord() *TradeRecord {
	return &TradeRecord{
		GivenItems:    []*ItemStack{},
		ReceivedItems: []*ItemStack{},
	}
}

// Items returns the stack list for the given side.
func (r *TradeRecord) Items(side Side) []*ItemStack {
	if side == SideGiven {
		return r.GivenItems
	}
	return r.ReceivedItems
}

// SetItems replaces one side's stack list with a fresh snapshot. Snapshots
// are authoritative; there is no incremental diffing.
func (r *TradeRecord) SetItems(side Side, items []*ItemStack) {
	if items == nil {
		items = []*ItemStack{}
	}
	if side == SideGiven {
		r.GivenItems = items
	} else {
		r.ReceivedItems = items
	}
}

// IsEmpty reports whether nothing was offered on either side.
func (r *TradeRecord) IsEmpty() bool {
	return len(r.GivenItems) == 0 && len(r.ReceivedItems) == 0
}

// ComputeTotals calculates the aggregate value of both sides. Item values
// must be resolved first.
func (r *TradeRecord) ComputeTotals() {
	r.GivenValue = TotalValue(r.GivenItems)
	r.ReceivedValue = TotalValue(r.ReceivedItems)
}

// IsExpired reports whether the record is older than the given lifetime.
// A non-positive lifetime disables expiry.
func (r *TradeRecord) IsExpired(lifetime time.Duration, now time.Time) bool {
	if lifetime <= 0 {
		return false
	}
	return time.Unix(r.Time, 0).Add(lifetime).Before(now)
}
