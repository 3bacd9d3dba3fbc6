package positions

import (
	"github.com/shopspring/decimal"

	"github.com/forgequant/emulator/types"
)

// PnLManager accumulates realized and unrealized profit for one portfolio.
// The controller consumes it as a collaborator, any implementation works.
type PnLManager interface {
	// ProcessMyTrade folds one fill into the ledger.
	ProcessMyTrade(tradeMsg *types.ExecutionMessage)
	// UpdateLastPrice marks a security for unrealized PnL.
	UpdateLastPrice(securityID types.SecurityID, price decimal.Decimal)

	RealizedPnL() decimal.Decimal
	UnrealizedPnL() decimal.Decimal
	// PnL is realized + unrealized.
	PnL() decimal.Decimal
}

type pnlLot struct {
	volume decimal.Decimal
	price  decimal.Decimal
}

type securityPnL struct {
	// lots are FIFO; all lots share the sign of the open position.
	lots      []pnlLot
	long      bool
	lastPrice decimal.Decimal
}

// PortfolioPnLManager is the default PnLManager: realized PnL by FIFO lot
// matching, unrealized PnL by marking the remaining lots to the last known
// price.
type PortfolioPnLManager struct {
	portfolio  string
	realized   decimal.Decimal
	securities map[types.SecurityID]*securityPnL
}

// NewPortfolioPnLManager ...
func NewPortfolioPnLManager(portfolio string) *PortfolioPnLManager {
	return &PortfolioPnLManager{
		portfolio:  portfolio,
		securities: map[types.SecurityID]*securityPnL{},
	}
}

// ProcessMyTrade implements PnLManager.
func (m *PortfolioPnLManager) ProcessMyTrade(tradeMsg *types.ExecutionMessage) {
	if !tradeMsg.HasTradeInfo || tradeMsg.TradeVolume.IsZero() {
		return
	}

	s := m.securities[tradeMsg.SecurityID]
	if s == nil {
		s = &securityPnL{}
		m.securities[tradeMsg.SecurityID] = s
	}

	s.lastPrice = tradeMsg.TradePrice

	volume := tradeMsg.TradeVolume
	price := tradeMsg.TradePrice
	buy := tradeMsg.Side == types.SideBuy

	if len(s.lots) == 0 || s.long == buy {
		s.long = buy
		s.lots = append(s.lots, pnlLot{volume: volume, price: price})
		return
	}

	// closing against the open lots, oldest first
	left := volume
	for left.IsPositive() && len(s.lots) > 0 {
		lot := &s.lots[0]
		matched := decimal.Min(lot.volume, left)

		diff := price.Sub(lot.price)
		if !s.long {
			diff = diff.Neg()
		}
		m.realized = m.realized.Add(diff.Mul(matched))

		left = left.Sub(matched)
		lot.volume = lot.volume.Sub(matched)
		if lot.volume.IsZero() {
			s.lots = s.lots[1:]
		}
	}

	// remainder flips the position, opening a fresh basis at the trade price
	if left.IsPositive() {
		s.long = buy
		s.lots = append(s.lots, pnlLot{volume: left, price: price})
	}
}

// UpdateLastPrice implements PnLManager.
func (m *PortfolioPnLManager) UpdateLastPrice(securityID types.SecurityID, price decimal.Decimal) {
	s := m.securities[securityID]
	if s == nil {
		s = &securityPnL{}
		m.securities[securityID] = s
	}
	s.lastPrice = price
}

// RealizedPnL implements PnLManager.
func (m *PortfolioPnLManager) RealizedPnL() decimal.Decimal {
	return m.realized
}

// UnrealizedPnL implements PnLManager.
func (m *PortfolioPnLManager) UnrealizedPnL() decimal.Decimal {
	total := decimal.Zero
	for _, s := range m.securities {
		if s.lastPrice.IsZero() {
			continue
		}
		for _, lot := range s.lots {
			diff := s.lastPrice.Sub(lot.price)
			if !s.long {
				diff = diff.Neg()
			}
			total = total.Add(diff.Mul(lot.volume))
		}
	}
	return total
}

// PnL implements PnLManager.
func (m *PortfolioPnLManager) PnL() decimal.Decimal {
	return m.realized.Add(m.UnrealizedPnL())
}
