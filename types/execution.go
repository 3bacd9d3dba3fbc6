package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExecutionMessage is the single outbound record for order state changes
// and trades. HasOrderInfo / HasTradeInfo say which halves are populated;
// a fill carries both on the same message.
type ExecutionMessage struct {
	TransactionID         int64
	OriginalTransactionID int64
	// OrderID is assigned by the matcher on acceptance; zero means
	// unassigned. Restored orders arrive with it already set.
	OrderID int64

	SecurityID SecurityID
	Portfolio  string

	Side           Side
	OrderType      OrderType
	TimeInForce    TimeInForce
	PositionEffect PositionEffect
	PostOnly       bool

	Price  decimal.Decimal
	Volume decimal.Decimal
	// Balance is the unmatched remainder of Volume.
	Balance    decimal.Decimal
	ExpiryDate *time.Time

	State        OrderState
	HasOrderInfo bool
	HasTradeInfo bool

	TradeID     int64
	TradePrice  decimal.Decimal
	TradeVolume decimal.Decimal
	Commission  decimal.Decimal

	Error error

	ServerTime time.Time
	LocalTime  time.Time
}

// Type implements Message.
func (m *ExecutionMessage) Type() MessageType { return MessageTypeExecution }

// Clone returns a shallow copy; decimals are value types so the copy is
// independent for every field the engines mutate.
func (m *ExecutionMessage) Clone() *ExecutionMessage {
	c := *m
	if m.ExpiryDate != nil {
		d := *m.ExpiryDate
		c.ExpiryDate = &d
	}
	return &c
}

// IsCanceled reports a done order with unmatched balance left.
func (m *ExecutionMessage) IsCanceled() bool {
	return m.State == OrderStateDone && m.Balance.IsPositive()
}

// IsMatched reports a done order with no balance left.
func (m *ExecutionMessage) IsMatched() bool {
	return m.State == OrderStateDone && m.Balance.IsZero()
}
