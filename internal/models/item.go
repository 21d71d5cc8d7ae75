package models

// Well-known currency item IDs.
const (
	ItemIDCoins    = 995
	ItemIDPlatinum = 13204
)

// ValueUnset marks an item stack whose exchange value has not been recorded yet.
const ValueUnset = -1

// ItemStack describes a stack of items on one side of a trade as it was
// observed in the trade window.
type ItemStack struct {
	ID       int   `json:"id"`
	Quantity int64 `json:"qty"`
	// Value is the per-unit exchange value in coins at the time of the
	// trade. It records a historical price, not a live one.
	Value int32 `json:"val"`
	// UnnotedID is the canonical item id when ID refers to the noted form
	// of an item. Zero means ID is already canonical. Not persisted.
	UnnotedID int `json:"-"`
}

// NewItemStack creates an item stack with an unset value.
func NewItemStack(id int, quantity int64) *ItemStack {
	return &ItemStack{ID: id, Quantity: quantity, Value: ValueUnset}
}

// CanonicalID returns the unnoted item id.
func (s *ItemStack) CanonicalID() int {
	if s.UnnotedID > 0 {
		return s.UnnotedID
	}
	return s.ID
}

// IsNoted reports whether the stack refers to the noted form of an item.
func (s *ItemStack) IsNoted() bool { return s.UnnotedID > 0 }

// IsCurrency reports whether the stack is coins or platinum tokens.
func (s *ItemStack) IsCurrency() bool {
	id := s.CanonicalID()
	return id == ItemIDCoins || id == ItemIDPlatinum
}

// SetValue records the per-unit value if it has not been set yet.
func (s *ItemStack) SetValue(value int32) {
	if s.Value == ValueUnset {
		s.Value = value
	}
}

// OverrideValue replaces the per-unit value unconditionally.
func (s *ItemStack) OverrideValue(value int32) { s.Value = value }

// SetUnnotedID links the stack to its canonical item id. A stack that is
// already linked keeps its original link.
func (s *ItemStack) SetUnnotedID(id int) {
	if !s.IsNoted() {
		s.UnnotedID = id
	}
}

// TotalQuantity returns the aggregate quantity of all stacks with the given
// canonical id.
func TotalQuantity(items []*ItemStack, id int) int64 {
	var total int64
	for _, item := range items {
		if item.CanonicalID() == id {
			total += item.Quantity
		}
	}
	return total
}

// TotalValue returns the aggregate exchange value of the passed stacks.
// Stacks with an unset value contribute their sentinel, so values should be
// resolved before totals are computed.
func TotalValue(items []*ItemStack) int64 {
	var total int64
	for _, item := range items {
		total += int64(item.Value) * item.Quantity
	}
	return total
}

// IsOnlyCurrency reports whether the non-empty item list consists purely of
// currency stacks.
func IsOnlyCurrency(items []*ItemStack) bool {
	if len(items) == 0 {
		return false
	}
	for _, item := range items {
		if !item.IsCurrency() {
			return false
		}
	}
	return true
}

// HasSingleItemType reports whether all stacks in the non-empty list share
// one canonical item id.
func HasSingleItemType(items []*ItemStack) bool {
	if len(items) == 0 {
		return false
	}
	id := items[0].CanonicalID()
	for _, item := range items[1:] {
		if item.CanonicalID() != id {
			return false
		}
	}
	return true
}

// ItemCounts returns a map of canonical item id to the aggregate quantity of
// stacks with that id.
func ItemCounts(items []*ItemStack) map[int]int64 {
	counts := make(map[int]int64, len(items))
	for _, item := range items {
		counts[item.CanonicalID()] += item.Quantity
	}
	return counts
}
