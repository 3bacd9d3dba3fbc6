package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionChangeType keys one field of a position change set.
type PositionChangeType int8

const (
	// PositionChangeBeginValue - position (or money) at period start.
	PositionChangeBeginValue PositionChangeType = iota
	// PositionChangeCurrentValue - current position (or money).
	PositionChangeCurrentValue
	// PositionChangeAveragePrice - average entry price of the open position.
	PositionChangeAveragePrice
	// PositionChangeRealizedPnL ...
	PositionChangeRealizedPnL
	// PositionChangeUnrealizedPnL ...
	PositionChangeUnrealizedPnL
	// PositionChangeVariationMargin ...
	PositionChangeVariationMargin
	// PositionChangeBlockedValue - margin blocked by open orders + position.
	PositionChangeBlockedValue
	// PositionChangeCommission - accumulated commission.
	PositionChangeCommission
)

// PositionChangeMessage is an extensible change set for one
// (security, portfolio) pair. Only the keys present changed.
type PositionChangeMessage struct {
	SecurityID            SecurityID
	Portfolio             string
	OriginalTransactionID int64
	Changes               map[PositionChangeType]decimal.Decimal
	ServerTime            time.Time
	LocalTime             time.Time
}

// NewPositionChangeMessage ...
func NewPositionChangeMessage(secID SecurityID, portfolio string, t time.Time) *PositionChangeMessage {
	return &PositionChangeMessage{
		SecurityID: secID,
		Portfolio:  portfolio,
		Changes:    map[PositionChangeType]decimal.Decimal{},
		ServerTime: t,
		LocalTime:  t,
	}
}

// Type implements Message.
func (m *PositionChangeMessage) Type() MessageType { return MessageTypePositionChange }

// Add sets a change and returns the message for chaining.
func (m *PositionChangeMessage) Add(t PositionChangeType, v decimal.Decimal) *PositionChangeMessage {
	m.Changes[t] = v
	return m
}

// TryAdd sets a change only when the value is non-zero.
func (m *PositionChangeMessage) TryAdd(t PositionChangeType, v decimal.Decimal) *PositionChangeMessage {
	if !v.IsZero() {
		m.Changes[t] = v
	}
	return m
}

// Get returns the change for t, if present.
func (m *PositionChangeMessage) Get(t PositionChangeType) (decimal.Decimal, bool) {
	v, ok := m.Changes[t]
	return v, ok
}
