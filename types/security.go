package types

import "github.com/shopspring/decimal"

// SecurityID identifies an instrument by code and board.
type SecurityID struct {
	Code  string
	Board string
}

// MoneyBoard is the board of the synthetic money instrument used to seed
// and report portfolio cash.
const MoneyBoard = "_MONEY_"

// MoneySecurityID is the sentinel instrument carrying portfolio money
// updates into a position controller.
var MoneySecurityID = SecurityID{Code: "MONEY", Board: MoneyBoard}

// IsMoney reports whether the id is the money sentinel.
func (s SecurityID) IsMoney() bool {
	return s == MoneySecurityID
}

func (s SecurityID) String() string {
	return s.Code + "@" + s.Board
}

// SecurityDefinition carries the static instrument attributes the engines
// consult: tick geometry for protective price rounding and the shortable
// flag for sell validation.
type SecurityDefinition struct {
	SecurityID SecurityID
	Shortable  bool
	PriceStep  decimal.Decimal
	Decimals   int32
}
