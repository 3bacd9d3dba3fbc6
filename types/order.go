package types

// OrderType discriminates how an order prices itself.
type OrderType int8

const (
	// OrderTypeLimit rests on the book at its limit price.
	OrderTypeLimit OrderType = iota
	// OrderTypeMarket executes at whatever the opposite side offers and
	// never rests.
	OrderTypeMarket
	// OrderTypeConditional is accepted for completeness; the matcher treats
	// it as a limit order once triggered upstream.
	OrderTypeConditional
)

func (t OrderType) String() string {
	switch t {
	case OrderTypeLimit:
		return "limit"
	case OrderTypeMarket:
		return "market"
	case OrderTypeConditional:
		return "conditional"
	default:
		return "unknown"
	}
}

// TimeInForce controls what happens to the unmatched balance of an order.
// The zero value PutInQueue rests the remainder on the book.
type TimeInForce int8

const (
	// TimeInForcePutInQueue rests the unmatched balance.
	TimeInForcePutInQueue TimeInForce = iota
	// TimeInForceMatchOrCancel fills completely or not at all (FOK).
	TimeInForceMatchOrCancel
	// TimeInForceCancelBalance fills what it can and cancels the rest (IOC).
	TimeInForceCancelBalance
)

func (t TimeInForce) String() string {
	switch t {
	case TimeInForcePutInQueue:
		return "put-in-queue"
	case TimeInForceMatchOrCancel:
		return "match-or-cancel"
	case TimeInForceCancelBalance:
		return "cancel-balance"
	default:
		return "unknown"
	}
}

// OrderState is the lifecycle state carried on execution messages.
type OrderState int8

const (
	// OrderStateNone - not yet acknowledged.
	OrderStateNone OrderState = iota
	// OrderStatePending - sent, not acknowledged.
	OrderStatePending
	// OrderStateActive - acknowledged, live on the book.
	OrderStateActive
	// OrderStateDone - fully matched, canceled or expired.
	OrderStateDone
	// OrderStateFailed - rejected.
	OrderStateFailed
)

func (s OrderState) String() string {
	switch s {
	case OrderStateNone:
		return "none"
	case OrderStatePending:
		return "pending"
	case OrderStateActive:
		return "active"
	case OrderStateDone:
		return "done"
	case OrderStateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PositionEffect restricts what an order may do to the resulting position.
type PositionEffect int8

const (
	// PositionEffectNone places no restriction.
	PositionEffectNone PositionEffect = iota
	// PositionEffectOpenOnly requires the order to open or extend a position.
	PositionEffectOpenOnly
	// PositionEffectCloseOnly requires the order to reduce a position.
	PositionEffectCloseOnly
)

func (e PositionEffect) String() string {
	switch e {
	case PositionEffectOpenOnly:
		return "open-only"
	case PositionEffectCloseOnly:
		return "close-only"
	default:
		return "none"
	}
}
