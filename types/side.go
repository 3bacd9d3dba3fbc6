package types

// Side is the direction of an order or trade.
type Side int8

const (
	// SideUnspecified is the zero value, only valid on group-cancel filters.
	SideUnspecified Side = iota
	// SideBuy ...
	SideBuy
	// SideSell ...
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return "unspecified"
	}
}

// Invert returns the opposite side.
func (s Side) Invert() Side {
	switch s {
	case SideBuy:
		return SideSell
	case SideSell:
		return SideBuy
	default:
		return SideUnspecified
	}
}

// Sign is +1 for buys and -1 for sells, used by the matcher's price
// comparison and the position ledger.
func (s Side) Sign() int64 {
	if s == SideBuy {
		return 1
	}
	return -1
}
