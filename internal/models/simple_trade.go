package models

// SimpleTradeKind classifies a trade shaped as "all currency for one item
// type" in either direction.
type SimpleTradeKind int

const (
	// SimpleInvalid means the trade is not a simple currency-for-item trade.
	SimpleInvalid SimpleTradeKind = iota
	// SimpleBought means the player paid currency for a single item type.
	SimpleBought
	// SimpleSold means the player received currency for a single item type.
	SimpleSold
)

// SimpleTradeSummary is a derived view of a trade record. It is computed on
// demand and never persisted.
type SimpleTradeSummary struct {
	Kind         SimpleTradeKind
	Item         ItemStack
	Quantity     int64
	PricePerUnit float64
}

// Valid reports whether the summarized trade was a simple trade.
func (s SimpleTradeSummary) Valid() bool { return s.Kind != SimpleInvalid }

// SummarizeTrade classifies a trade record as a simple buy or sell. The
// source record is never mutated.
func SummarizeTrade(record *TradeRecord) SimpleTradeSummary {
	givenCurrency := IsOnlyCurrency(record.GivenItems)
	receivedCurrency := IsOnlyCurrency(record.ReceivedItems)

	switch {
	case givenCurrency && !receivedCurrency && HasSingleItemType(record.ReceivedItems):
		return summarize(SimpleBought, record.ReceivedItems, record.GivenValue)
	case receivedCurrency && !givenCurrency && HasSingleItemType(record.GivenItems):
		return summarize(SimpleSold, record.GivenItems, record.ReceivedValue)
	}
	return SimpleTradeSummary{Kind: SimpleInvalid}
}

func summarize(kind SimpleTradeKind, traded []*ItemStack, currency int64) SimpleTradeSummary {
	if len(traded) == 0 {
		return SimpleTradeSummary{Kind: SimpleInvalid}
	}
	sample := traded[0]
	quantity := TotalQuantity(traded, sample.CanonicalID())
	if quantity <= 0 {
		return SimpleTradeSummary{Kind: SimpleInvalid}
	}
	return SimpleTradeSummary{
		Kind:         kind,
		Item:         ItemStack{ID: sample.ID, Quantity: quantity, Value: sample.Value, UnnotedID: sample.UnnotedID},
		Quantity:     quantity,
		PricePerUnit: float64(currency) / float64(quantity),
	}
}
