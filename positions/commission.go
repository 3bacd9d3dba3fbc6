package positions

import (
	"github.com/shopspring/decimal"

	"github.com/forgequant/emulator/types"
)

// CommissionManager charges order and trade messages and keeps the running
// total for the portfolio state.
type CommissionManager interface {
	// Process returns the commission for the message, zero when none applies.
	Process(msg *types.ExecutionMessage) decimal.Decimal
	// Commission is the accumulated total.
	Commission() decimal.Decimal
}

// RateCommissionManager is the default CommissionManager: a flat fee per
// order plus a rate on trade notional.
type RateCommissionManager struct {
	orderFee  decimal.Decimal
	tradeRate decimal.Decimal
	total     decimal.Decimal
}

// NewRateCommissionManager ...
func NewRateCommissionManager(orderFee, tradeRate decimal.Decimal) *RateCommissionManager {
	return &RateCommissionManager{
		orderFee:  orderFee,
		tradeRate: tradeRate,
	}
}

// Process implements CommissionManager.
func (m *RateCommissionManager) Process(msg *types.ExecutionMessage) decimal.Decimal {
	commission := decimal.Zero

	if msg.HasTradeInfo {
		commission = msg.TradePrice.Mul(msg.TradeVolume).Mul(m.tradeRate)
	} else if msg.HasOrderInfo {
		commission = m.orderFee
	}

	m.total = m.total.Add(commission)
	return commission
}

// Commission implements CommissionManager.
func (m *RateCommissionManager) Commission() decimal.Decimal {
	return m.total
}
