package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is one aggregated price level of a book diff or snapshot.
type Quote struct {
	Price  decimal.Decimal
	Volume decimal.Decimal
	// OrderCount is informational; zero when unknown.
	OrderCount int
}

// QuoteState discriminates snapshots from increments.
type QuoteState int8

const (
	// QuoteStateSnapshot replaces the book.
	QuoteStateSnapshot QuoteState = iota
	// QuoteStateIncrement applies on top of the current book; zero volume
	// deletes the level.
	QuoteStateIncrement
)

// QuoteChangeMessage carries book changes. Increments list only the levels
// whose aggregate volume changed.
type QuoteChangeMessage struct {
	SecurityID SecurityID
	Bids       []Quote
	Asks       []Quote
	State      QuoteState
	ServerTime time.Time
	LocalTime  time.Time
}

// Type implements Message.
func (m *QuoteChangeMessage) Type() MessageType { return MessageTypeQuoteChange }
