package positions

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/forgequant/emulator/logging"
	"github.com/forgequant/emulator/types"
)

// MarginPriceFunc resolves the per-unit margin price for a side of a
// security.
type MarginPriceFunc func(securityID types.SecurityID, side types.Side) decimal.Decimal

// SecurityDefinitionFunc resolves static instrument attributes, nil when
// unknown.
type SecurityDefinitionFunc func(securityID types.SecurityID) *types.SecurityDefinition

// moneyInfo is the per-security ledger: externally seeded begin value plus
// the delta accumulated from trades, the average entry price, and the
// resting order volumes used for margin blocking.
type moneyInfo struct {
	securityID     types.SecurityID
	getMarginPrice MarginPriceFunc

	positionBeginValue   decimal.Decimal
	positionDiff         decimal.Decimal
	positionAveragePrice decimal.Decimal

	totalBidsVolume decimal.Decimal
	totalAsksVolume decimal.Decimal
}

func (m *moneyInfo) positionCurrentValue() decimal.Decimal {
	return m.positionBeginValue.Add(m.positionDiff)
}

// positionPrice is the open position's notional at its average price.
func (m *moneyInfo) positionPrice() decimal.Decimal {
	pos := m.positionCurrentValue()
	if pos.IsZero() {
		return decimal.Zero
	}
	return pos.Abs().Mul(m.positionAveragePrice)
}

func (m *moneyInfo) totalPrice() decimal.Decimal {
	return m.getPrice(decimal.Zero, decimal.Zero)
}

// getPrice sizes the money to block for the position plus resting orders
// plus the hypothetical extra volumes. With an open position the dominated
// side is folded in via max, a fully hedging order does not double-block;
// flat positions block the plain sum of both sides.
func (m *moneyInfo) getPrice(buyVol, sellVol decimal.Decimal) decimal.Decimal {
	totalMoney := m.positionPrice()

	buyOrderPrice := m.totalBidsVolume.Add(buyVol).Mul(m.getMarginPrice(m.securityID, types.SideBuy))
	sellOrderPrice := m.totalAsksVolume.Add(sellVol).Mul(m.getMarginPrice(m.securityID, types.SideSell))

	if totalMoney.IsZero() {
		return buyOrderPrice.Add(sellOrderPrice)
	}

	if m.positionCurrentValue().IsPositive() {
		return decimal.Max(totalMoney.Add(buyOrderPrice), sellOrderPrice)
	}
	return decimal.Max(totalMoney.Add(sellOrderPrice), buyOrderPrice)
}

// PositionController keeps the per-security positions, the portfolio money
// and the blocked-margin total for one portfolio. Like the matcher it is
// single-writer with synchronous result sinks.
type PositionController struct {
	log       *logging.Logger
	portfolio string

	commissions           CommissionManager
	pnl                   PnLManager
	getSecurityDefinition SecurityDefinitionFunc
	getMarginPrice        MarginPriceFunc

	moneys map[types.SecurityID]*moneyInfo

	beginMoney        decimal.Decimal
	currentMoney      decimal.Decimal
	totalBlockedMoney decimal.Decimal

	// CheckMoney rejects registrations the portfolio cannot cover.
	CheckMoney bool
	// CheckShortable rejects sells below flat on non-shortable securities.
	CheckShortable bool
}

// NewPositionController returns a controller for one portfolio. All
// collaborators are required; nil arguments are a caller bug.
func NewPositionController(
	log *logging.Logger,
	config Config,
	portfolio string,
	commissions CommissionManager,
	getSecurityDefinition SecurityDefinitionFunc,
	getMarginPrice MarginPriceFunc,
) *PositionController {
	if portfolio == "" {
		panic("positions: empty portfolio name")
	}
	if commissions == nil || getSecurityDefinition == nil || getMarginPrice == nil {
		panic("positions: nil collaborator")
	}

	log = log.Named(namedLogger)
	log.SetLevel(config.Level.Get())

	return &PositionController{
		log:                   log,
		portfolio:             portfolio,
		commissions:           commissions,
		pnl:                   NewPortfolioPnLManager(portfolio),
		getSecurityDefinition: getSecurityDefinition,
		getMarginPrice:        getMarginPrice,
		moneys:                map[types.SecurityID]*moneyInfo{},
		CheckMoney:            config.CheckMoney,
		CheckShortable:        config.CheckShortable,
	}
}

// Portfolio returns the portfolio this controller owns.
func (c *PositionController) Portfolio() string {
	return c.portfolio
}

// PnLManager returns the profit-loss collaborator.
func (c *PositionController) PnLManager() PnLManager {
	return c.pnl
}

func (c *PositionController) getMoney(securityID types.SecurityID) *moneyInfo {
	money, ok := c.moneys[securityID]
	if !ok {
		money = &moneyInfo{securityID: securityID, getMarginPrice: c.getMarginPrice}
		c.moneys[securityID] = money
	}
	return money
}

// RequestState emits the portfolio state followed by the current value and
// average price of every known position, replying to transactionID.
func (c *PositionController) RequestState(transactionID int64, t time.Time, result func(types.Message)) {
	c.RequestPortfolioState(t, result)

	for securityID, money := range c.moneys {
		msg := types.NewPositionChangeMessage(securityID, c.portfolio, t)
		msg.OriginalTransactionID = transactionID
		msg.Add(types.PositionChangeCurrentValue, money.positionCurrentValue()).
			TryAdd(types.PositionChangeAveragePrice, money.positionAveragePrice)
		result(msg)
	}
}

// Update applies an externally sourced position change. The money sentinel
// seeds the portfolio cash; any other security seeds its begin value and
// average price, re-emits the change and reports the new blocked total.
func (c *PositionController) Update(posMsg *types.PositionChangeMessage, result func(types.Message)) {
	beginValue, hasBegin := posMsg.Get(types.PositionChangeBeginValue)

	if posMsg.SecurityID.IsMoney() {
		if !hasBegin {
			return
		}

		c.beginMoney = beginValue
		c.currentMoney = beginValue

		c.RequestPortfolioState(posMsg.ServerTime, result)
		return
	}

	money := c.getMoney(posMsg.SecurityID)

	prevPrice := money.positionPrice()

	money.positionBeginValue = beginValue
	if avg, ok := posMsg.Get(types.PositionChangeAveragePrice); ok {
		money.positionAveragePrice = avg
	}

	result(posMsg)

	c.totalBlockedMoney = c.totalBlockedMoney.Sub(prevPrice).Add(money.positionPrice())

	result(types.NewPositionChangeMessage(types.MoneySecurityID, c.portfolio, posMsg.ServerTime).
		Add(types.PositionChangeBlockedValue, c.totalBlockedMoney))
}

// ProcessOrder adjusts the resting-volume counters by volumeDelta (positive
// on registration, negative on cancel or fill), recomputes the blocked
// money, charges the order and refreshes the portfolio state. Returns the
// commission charged.
func (c *PositionController) ProcessOrder(
	securityID types.SecurityID,
	side types.Side,
	volumeDelta decimal.Decimal,
	orderMsg *types.ExecutionMessage,
	result func(types.Message),
) decimal.Decimal {
	money := c.getMoney(securityID)

	prevPrice := money.totalPrice()

	if side == types.SideBuy {
		money.totalBidsVolume = money.totalBidsVolume.Add(volumeDelta)
	} else {
		money.totalAsksVolume = money.totalAsksVolume.Add(volumeDelta)
	}

	c.totalBlockedMoney = c.totalBlockedMoney.Sub(prevPrice).Add(money.totalPrice())

	commission := c.commissions.Process(orderMsg)

	c.RequestPortfolioState(orderMsg.ServerTime, result)

	return commission
}

// ProcessMyTrade folds one own fill into the ledger: PnL, commission,
// resting-volume retirement, the sign-aware average price and the blocked
// total, then emits the position change and the refreshed portfolio state.
func (c *PositionController) ProcessMyTrade(side types.Side, tradeMsg *types.ExecutionMessage, result func(types.Message)) {
	t := tradeMsg.ServerTime

	c.pnl.ProcessMyTrade(tradeMsg)
	tradeMsg.Commission = c.commissions.Process(tradeMsg)

	if tradeMsg.TradeVolume.IsZero() {
		return
	}

	positionDelta := tradeMsg.TradeVolume
	if side == types.SideSell {
		positionDelta = positionDelta.Neg()
	}

	money := c.getMoney(tradeMsg.SecurityID)

	prevPrice := money.totalPrice()

	// a fill retires resting-order exposure on its own side
	if tradeMsg.Side == types.SideBuy {
		money.totalBidsVolume = money.totalBidsVolume.Sub(tradeMsg.TradeVolume)
	} else {
		money.totalAsksVolume = money.totalAsksVolume.Sub(tradeMsg.TradeVolume)
	}

	prevPos := money.positionCurrentValue()

	money.positionDiff = money.positionDiff.Add(positionDelta)

	tradePrice := tradeMsg.TradePrice
	currPos := money.positionCurrentValue()

	if prevPos.Sign() == currPos.Sign() {
		money.positionAveragePrice = money.positionAveragePrice.Mul(prevPos).
			Add(positionDelta.Mul(tradePrice)).
			Div(currPos)
	} else if currPos.IsZero() {
		money.positionAveragePrice = decimal.Zero
	} else {
		// flip through zero opens a fresh cost basis
		money.positionAveragePrice = tradePrice
	}

	c.totalBlockedMoney = c.totalBlockedMoney.Sub(prevPrice).Add(money.totalPrice())

	result(types.NewPositionChangeMessage(tradeMsg.SecurityID, c.portfolio, t).
		Add(types.PositionChangeCurrentValue, money.positionCurrentValue()).
		TryAdd(types.PositionChangeAveragePrice, money.positionAveragePrice))

	c.RequestPortfolioState(t, result)
}

// RequestMarginState recomputes the blocked total from scratch and reports
// it, provided the security is known to the ledger.
func (c *PositionController) RequestMarginState(t time.Time, securityID types.SecurityID, result func(types.Message)) {
	if _, ok := c.moneys[securityID]; !ok {
		return
	}

	c.totalBlockedMoney = decimal.Zero
	for _, money := range c.moneys {
		c.totalBlockedMoney = c.totalBlockedMoney.Add(money.totalPrice())
	}

	result(types.NewPositionChangeMessage(types.MoneySecurityID, c.portfolio, t).
		Add(types.PositionChangeBlockedValue, c.totalBlockedMoney))
}

// RequestPortfolioState emits the portfolio money snapshot. A panic while
// computing the current money is downgraded to an ErrorMessage so one bad
// position cannot take down the update path.
func (c *PositionController) RequestPortfolioState(t time.Time, result func(types.Message)) {
	realizedPnL := c.pnl.RealizedPnL()
	unrealizedPnL := c.pnl.UnrealizedPnL()
	commission := c.commissions.Commission()
	totalPnL := c.pnl.PnL().Sub(commission)

	if err := c.computeCurrentMoney(totalPnL); err != nil {
		result(&types.ErrorMessage{Error: err})
	}

	result(types.NewPositionChangeMessage(types.MoneySecurityID, c.portfolio, t).
		Add(types.PositionChangeRealizedPnL, realizedPnL).
		TryAdd(types.PositionChangeUnrealizedPnL, unrealizedPnL).
		Add(types.PositionChangeVariationMargin, totalPnL).
		Add(types.PositionChangeCurrentValue, c.currentMoney).
		Add(types.PositionChangeBlockedValue, c.totalBlockedMoney).
		Add(types.PositionChangeCommission, commission))
}

func (c *PositionController) computeCurrentMoney(totalPnL decimal.Decimal) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("portfolio %s money computation failed: %v", c.portfolio, r)
		}
	}()

	c.currentMoney = c.beginMoney.Add(totalPnL)
	return nil
}

// ValidateRegistration vets an order before it reaches the matcher. A nil
// return accepts; otherwise the error describes the rejection and the
// caller surfaces it as an order failure, it is never thrown.
func (c *PositionController) ValidateRegistration(regMsg *types.OrderRegisterMessage, oldOrderVolume *decimal.Decimal) error {
	if c.CheckMoney {
		// replace orders block against the old order's volume, partially
		// filled originals keep their smaller footprint
		volume := regMsg.Volume
		if oldOrderVolume != nil {
			volume = *oldOrderVolume
		}

		money := c.getMoney(regMsg.SecurityID)

		buyVol, sellVol := decimal.Zero, decimal.Zero
		if regMsg.Side == types.SideBuy {
			buyVol = volume
		} else {
			sellVol = volume
		}

		needBlock := money.getPrice(buyVol, sellVol)

		if c.currentMoney.LessThan(needBlock) {
			return errors.Errorf(
				"insufficient money for portfolio %s transaction %d: need %s, available %s (blocked %s)",
				regMsg.Portfolio, regMsg.TransactionID,
				needBlock.String(), c.currentMoney.String(), money.totalPrice().String())
		}
	} else if c.CheckShortable && regMsg.Side == types.SideSell {
		secDef := c.getSecurityDefinition(regMsg.SecurityID)

		if secDef != nil && !secDef.Shortable {
			money := c.getMoney(regMsg.SecurityID)

			potentialPosition := money.positionCurrentValue().Sub(regMsg.Volume)

			if potentialPosition.IsNegative() {
				return errors.Errorf(
					"security %s is not shortable: portfolio %s transaction %d holds %s, sells %s",
					regMsg.SecurityID.String(), regMsg.Portfolio, regMsg.TransactionID,
					money.positionCurrentValue().String(), regMsg.Volume.String())
			}
		}
	}

	switch regMsg.PositionEffect {
	case types.PositionEffectOpenOnly:
		money := c.getMoney(regMsg.SecurityID)
		if !money.positionCurrentValue().IsZero() {
			return errors.Errorf(
				"open-only order %d rejected: portfolio %s already holds %s",
				regMsg.TransactionID, regMsg.Portfolio, money.positionCurrentValue().String())
		}

	case types.PositionEffectCloseOnly:
		money := c.getMoney(regMsg.SecurityID)
		pos := money.positionCurrentValue()

		closing := pos.IsPositive() && regMsg.Side == types.SideSell ||
			pos.IsNegative() && regMsg.Side == types.SideBuy
		if !closing || regMsg.Volume.GreaterThan(pos.Abs()) {
			return errors.Errorf(
				"close-only order %d rejected: %s %s does not reduce position %s",
				regMsg.TransactionID, regMsg.Side.String(), regMsg.Volume.String(), pos.String())
		}
	}

	return nil
}
