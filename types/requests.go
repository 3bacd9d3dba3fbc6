package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderRegisterMessage asks the matcher to accept a new order. OrderID is
// only set on the restoration path, where the order is re-inserted without
// re-initialising balance or state.
type OrderRegisterMessage struct {
	TransactionID int64
	OrderID       int64

	SecurityID SecurityID
	Portfolio  string

	Side           Side
	OrderType      OrderType
	TimeInForce    TimeInForce
	PositionEffect PositionEffect
	PostOnly       bool

	Price      decimal.Decimal
	Volume     decimal.Decimal
	ExpiryDate *time.Time

	LocalTime time.Time
}

// ToExecution builds the mutable working record the matcher keeps for the
// order.
func (m *OrderRegisterMessage) ToExecution() *ExecutionMessage {
	return &ExecutionMessage{
		TransactionID:         m.TransactionID,
		OriginalTransactionID: m.TransactionID,
		OrderID:               m.OrderID,
		SecurityID:            m.SecurityID,
		Portfolio:             m.Portfolio,
		Side:                  m.Side,
		OrderType:             m.OrderType,
		TimeInForce:           m.TimeInForce,
		PositionEffect:        m.PositionEffect,
		PostOnly:              m.PostOnly,
		Price:                 m.Price,
		Volume:                m.Volume,
		Balance:               m.Volume,
		ExpiryDate:            m.ExpiryDate,
		HasOrderInfo:          true,
		LocalTime:             m.LocalTime,
	}
}

// CreateReply builds a rejection or acknowledgement shell for the request.
func (m *OrderRegisterMessage) CreateReply(err error) *ExecutionMessage {
	r := m.ToExecution()
	r.Error = err
	if err != nil {
		r.State = OrderStateFailed
	}
	return r
}

// OrderReplaceMessage cancels an existing order and registers a new one
// atomically. OldOrderPrice lets the matcher suppress the cancellation
// book-diff when the price is unchanged; OldOrderVolume feeds the
// replace-aware margin check.
type OrderReplaceMessage struct {
	OrderRegisterMessage

	OldTransactionID int64
	OldOrderPrice    decimal.Decimal
	OldOrderVolume   decimal.Decimal
}

// OrderCancelMessage cancels one order by its original transaction id.
type OrderCancelMessage struct {
	TransactionID    int64
	OldTransactionID int64
	SecurityID       SecurityID
	Portfolio        string
	LocalTime        time.Time
}

// CreateReply builds the rejection shell for a failed cancel.
func (m *OrderCancelMessage) CreateReply(err error) *ExecutionMessage {
	return &ExecutionMessage{
		TransactionID:         m.TransactionID,
		OriginalTransactionID: m.TransactionID,
		SecurityID:            m.SecurityID,
		Portfolio:             m.Portfolio,
		HasOrderInfo:          true,
		State:                 OrderStateFailed,
		Error:                 err,
		LocalTime:             m.LocalTime,
	}
}

// OrderGroupCancelMessage cancels every active order matching the filter.
// Nil filter fields match everything.
type OrderGroupCancelMessage struct {
	TransactionID int64
	Side          *Side
	SecurityID    *SecurityID
	Portfolio     string
	LocalTime     time.Time
}

// OrderStatusMessage requests a clone of every active order matching the
// filter. OrderID narrows the request to a single order when the portfolio
// filter is empty.
type OrderStatusMessage struct {
	TransactionID int64
	SecurityID    *SecurityID
	Portfolio     string
	OrderID       int64
}
