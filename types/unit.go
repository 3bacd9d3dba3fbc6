package types

import "github.com/shopspring/decimal"

// UnitType says how a protective level's value is interpreted.
type UnitType int8

const (
	// UnitAbsolute - offset from the entry price in price units.
	UnitAbsolute UnitType = iota
	// UnitPercent - offset as a percentage of the reference price.
	UnitPercent
	// UnitLimit - the value is the activation price itself.
	UnitLimit
)

func (t UnitType) String() string {
	switch t {
	case UnitAbsolute:
		return "absolute"
	case UnitPercent:
		return "percent"
	case UnitLimit:
		return "limit"
	default:
		return "unknown"
	}
}

// Unit is a protective offset or level.
type Unit struct {
	Value decimal.Decimal
	Type  UnitType
}

// NewUnit returns an absolute unit.
func NewUnit(v decimal.Decimal) Unit {
	return Unit{Value: v, Type: UnitAbsolute}
}

// NewPercentUnit ...
func NewPercentUnit(v decimal.Decimal) Unit {
	return Unit{Value: v, Type: UnitPercent}
}

// NewLimitUnit ...
func NewLimitUnit(v decimal.Decimal) Unit {
	return Unit{Value: v, Type: UnitLimit}
}

// ApplyTo resolves the unit against a reference price: limit units ignore
// the reference, percent units scale it, absolute units offset it by sign.
func (u Unit) ApplyTo(reference decimal.Decimal, sign int64) decimal.Decimal {
	switch u.Type {
	case UnitLimit:
		return u.Value
	case UnitPercent:
		off := reference.Mul(u.Value).Div(decimal.NewFromInt(100))
		return reference.Add(off.Mul(decimal.NewFromInt(sign)))
	default:
		return reference.Add(u.Value.Mul(decimal.NewFromInt(sign)))
	}
}
