package matching

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/forgequant/emulator/ids"
	"github.com/forgequant/emulator/logging"
	"github.com/forgequant/emulator/metrics"
	"github.com/forgequant/emulator/types"
)

// ErrOrderNotFound signals a cancel or replace referencing an unknown
// transaction id. It travels inside the reply message, never as a return.
var ErrOrderNotFound = errors.New("order not found")

// OrderMatcher is an in-memory price-time-priority book for one security.
//
// It is single-writer: the caller serialises all operations per security,
// the matcher holds no locks. Result sinks are invoked synchronously
// before the operation returns, always in the order acknowledgement,
// order-state updates, trades, book diffs.
type OrderMatcher struct {
	Config

	log        *logging.Logger
	securityID types.SecurityID

	bids *OrderBookSide
	asks *OrderBookSide

	// activeOrders is keyed by the order's transaction id; the same record
	// is referenced by its level entry clone through that id.
	activeOrders    map[int64]*types.ExecutionMessage
	expirableOrders map[*types.ExecutionMessage]time.Duration
	prevTime        time.Time

	orderIDs ids.Generator
	tradeIDs ids.Generator

	pool *entryPool
}

// NewOrderMatcher returns a matcher for the given security. The id
// generators are required collaborators; passing nil is a caller bug.
func NewOrderMatcher(
	log *logging.Logger,
	config Config,
	securityID types.SecurityID,
	orderIDs, tradeIDs ids.Generator,
) *OrderMatcher {
	if orderIDs == nil || tradeIDs == nil {
		panic("matching: nil id generator")
	}

	log = log.Named(namedLogger)
	log.SetLevel(config.Level.Get())

	return &OrderMatcher{
		Config:          config,
		log:             log,
		securityID:      securityID,
		bids:            NewOrderBookSide(log, types.SideBuy),
		asks:            NewOrderBookSide(log, types.SideSell),
		activeOrders:    map[int64]*types.ExecutionMessage{},
		expirableOrders: map[*types.ExecutionMessage]time.Duration{},
		orderIDs:        orderIDs,
		tradeIDs:        tradeIDs,
		pool:            newEntryPool(),
	}
}

// SecurityID returns the security this matcher owns.
func (m *OrderMatcher) SecurityID() types.SecurityID {
	return m.securityID
}

// RegisterOrder accepts a new order: acknowledges it, matches it against
// the opposite side and rests any remainder on the book. Restored orders
// (order id already assigned) skip balance/state initialisation. The
// acknowledgement reply is returned, nil when no orderResult sink is
// supplied (the order is then matched in shadow mode).
func (m *OrderMatcher) RegisterOrder(
	regMsg *types.OrderRegisterMessage,
	orderResult, priceResult func(types.Message),
) *types.ExecutionMessage {
	if regMsg == nil {
		panic("matching: nil register message")
	}

	if m.log.GetLevel() == logging.DebugLevel {
		m.log.Debug("registering order",
			logging.TransactionID(regMsg.TransactionID),
			logging.String("side", regMsg.Side.String()),
			logging.Decimal("price", regMsg.Price),
			logging.Decimal("volume", regMsg.Volume))
	}

	execution := regMsg.ToExecution()

	if execution.OrderID == 0 {
		execution.Balance = execution.Volume
		execution.State = types.OrderStateActive
		execution.OrderID = m.orderIDs.NextID()
		execution.ServerTime = regMsg.LocalTime
	}

	var replyMsg *types.ExecutionMessage
	if orderResult != nil {
		replyMsg = regMsg.CreateReply(nil)
		replyMsg.OrderID = execution.OrderID
		replyMsg.State = types.OrderStateActive
		orderResult(replyMsg)
	}

	m.matchOrder(execution.LocalTime, execution, orderResult, orderResult, true)

	if execution.State == types.OrderStateActive {
		m.activeOrders[execution.TransactionID] = execution

		if execution.ExpiryDate != nil {
			m.expirableOrders[execution] = endOfDay(*execution.ExpiryDate).Sub(regMsg.LocalTime)
		}

		if changed := m.updateQuote(execution, true, true); changed != nil && priceResult != nil {
			priceResult(m.bookChange(execution.Side, *changed, execution.LocalTime))
		}
		metrics.OrderGaugeAdd(1, m.securityID.String())
	}

	metrics.OrderCounterInc(m.securityID.String(), strconv.FormatBool(execution.Error == nil))

	return replyMsg
}

// ReplaceOrder is strictly cancel-then-register. The cancellation book
// diff is suppressed when the price is unchanged since the register leg
// re-emits the level. A failed cancel short-circuits the register leg.
func (m *OrderMatcher) ReplaceOrder(
	replaceMsg *types.OrderReplaceMessage,
	orderResult, priceResult func(types.Message),
) (*types.ExecutionMessage, *types.ExecutionMessage) {
	if replaceMsg == nil {
		panic("matching: nil replace message")
	}

	cancelPriceResult := priceResult
	if replaceMsg.OldOrderPrice.Equal(replaceMsg.Price) {
		cancelPriceResult = nil
	}

	replyMsg, originalOrder := m.cancelByTransaction(
		replaceMsg.OldTransactionID, replaceMsg.OldTransactionID, replaceMsg.LocalTime,
		orderResult, cancelPriceResult,
		func(err error) *types.ExecutionMessage { return replaceMsg.CreateReply(err) },
	)

	if originalOrder != nil && (replyMsg == nil || replyMsg.Error == nil) {
		replyMsg = m.RegisterOrder(&replaceMsg.OrderRegisterMessage, orderResult, priceResult)
	}

	return replyMsg, originalOrder
}

// CancelOrder cancels one order by its original transaction id. The
// cancelled order record is returned alongside the reply; an unknown id
// produces a reply carrying ErrOrderNotFound.
func (m *OrderMatcher) CancelOrder(
	cancelMsg *types.OrderCancelMessage,
	orderResult, priceResult func(types.Message),
) (*types.ExecutionMessage, *types.ExecutionMessage) {
	if cancelMsg == nil {
		panic("matching: nil cancel message")
	}

	return m.cancelByTransaction(
		cancelMsg.OldTransactionID, cancelMsg.OldTransactionID, cancelMsg.LocalTime,
		orderResult, priceResult,
		func(err error) *types.ExecutionMessage { return cancelMsg.CreateReply(err) },
	)
}

func (m *OrderMatcher) cancelByTransaction(
	oldTransactionID, replyTransactionID int64,
	t time.Time,
	orderResult, priceResult func(types.Message),
	rejectReply func(error) *types.ExecutionMessage,
) (*types.ExecutionMessage, *types.ExecutionMessage) {
	order, ok := m.activeOrders[oldTransactionID]
	if !ok {
		var replyMsg *types.ExecutionMessage
		if orderResult != nil {
			m.log.Error("cancel for unknown order",
				logging.TransactionID(oldTransactionID))

			replyMsg = rejectReply(errors.Wrapf(ErrOrderNotFound, "transaction %d", oldTransactionID))
			orderResult(replyMsg)
		}
		return replyMsg, nil
	}

	return m.cancelOrderImpl(replyTransactionID, t, order, orderResult, priceResult), order
}

func (m *OrderMatcher) cancelOrderImpl(
	replyTransactionID int64,
	t time.Time,
	order *types.ExecutionMessage,
	orderResult, priceResult func(types.Message),
) *types.ExecutionMessage {
	delete(m.activeOrders, order.TransactionID)
	delete(m.expirableOrders, order)

	changed := m.updateQuote(order, false, true)
	order.State = types.OrderStateDone

	var replyMsg *types.ExecutionMessage
	if orderResult != nil {
		replyMsg = m.toOrder(t, order)
		replyMsg.OriginalTransactionID = replyTransactionID
		orderResult(replyMsg)

		if m.log.GetLevel() == logging.DebugLevel {
			m.log.Debug("order cancelled", logging.TransactionID(order.TransactionID))
		}
	}

	if priceResult != nil && changed != nil {
		priceResult(m.bookChange(order.Side, *changed, t))
	}

	metrics.OrderGaugeAdd(-1, m.securityID.String())

	return replyMsg
}

// CancelOrders cancels every active order matching the group filter. Each
// order gets its own Done update; the book impact is reported once, as a
// single increment deduplicated by price, followed by the group reply.
func (m *OrderMatcher) CancelOrders(message *types.OrderGroupCancelMessage, result func(types.Message)) *types.ExecutionMessage {
	if message == nil {
		panic("matching: nil group cancel message")
	}
	if result == nil {
		panic("matching: nil result sink")
	}

	orders := make([]*types.ExecutionMessage, 0, len(m.activeOrders))
	for _, order := range m.activeOrders {
		if message.Side != nil && *message.Side != order.Side {
			continue
		}
		if message.SecurityID != nil && *message.SecurityID != order.SecurityID {
			continue
		}
		if message.Portfolio != "" && !strings.EqualFold(message.Portfolio, order.Portfolio) {
			continue
		}
		orders = append(orders, order)
	}

	bidPrices := map[string]decimal.Decimal{}
	askPrices := map[string]decimal.Decimal{}

	for _, order := range orders {
		m.cancelOrderImpl(message.TransactionID, message.LocalTime, order, result, nil)

		prices := bidPrices
		if order.Side == types.SideSell {
			prices = askPrices
		}
		prices[order.Price.String()] = order.Price
	}

	replyMsg := &types.ExecutionMessage{
		OriginalTransactionID: message.TransactionID,
		SecurityID:            m.securityID,
		HasOrderInfo:          true,
		State:                 types.OrderStateDone,
		ServerTime:            message.LocalTime,
		LocalTime:             message.LocalTime,
	}
	result(replyMsg)

	book := &types.QuoteChangeMessage{
		SecurityID: m.securityID,
		State:      types.QuoteStateIncrement,
		Bids:       m.groupedQuotes(m.bids, bidPrices),
		Asks:       m.groupedQuotes(m.asks, askPrices),
		ServerTime: message.LocalTime,
		LocalTime:  message.LocalTime,
	}
	result(book)

	return replyMsg
}

// groupedQuotes reports the surviving aggregate for each touched price; a
// fully drained level is reported with zero volume so book consumers drop it.
func (m *OrderMatcher) groupedQuotes(side *OrderBookSide, prices map[string]decimal.Decimal) []types.Quote {
	quotes := make([]types.Quote, 0, len(prices))
	for _, price := range prices {
		if level := side.getPriceLevelIfExists(price); level != nil {
			quotes = append(quotes, level.quote())
			continue
		}
		quotes = append(quotes, types.Quote{Price: price})
	}
	return quotes
}

// RequestOrders streams a clone of every active order matching the status
// filter, with OriginalTransactionID rewritten to the request id.
func (m *OrderMatcher) RequestOrders(statusMsg *types.OrderStatusMessage, result func(types.Message)) {
	if statusMsg == nil {
		panic("matching: nil status message")
	}
	if result == nil {
		panic("matching: nil result sink")
	}

	for _, order := range m.activeOrders {
		if statusMsg.SecurityID != nil && *statusMsg.SecurityID != order.SecurityID {
			continue
		}

		finish := false
		if statusMsg.Portfolio != "" {
			if !strings.EqualFold(order.Portfolio, statusMsg.Portfolio) {
				continue
			}
		} else if statusMsg.OrderID != 0 {
			if order.OrderID != statusMsg.OrderID {
				continue
			}
			finish = true
		}

		clone := order.Clone()
		clone.OriginalTransactionID = statusMsg.TransactionID
		result(clone)

		if finish {
			break
		}
	}
}

// ProcessTime ages the expirable orders by the wall-clock delta since the
// previous tick; the first tick only establishes the baseline. Orders
// whose remaining lifetime drops to zero are cancelled with one Done
// update and one book diff each.
func (m *OrderMatcher) ProcessTime(t time.Time, result func(types.Message)) {
	if len(m.expirableOrders) == 0 {
		return
	}

	if m.prevTime.IsZero() {
		m.prevTime = t
	}
	diff := t.Sub(m.prevTime)

	for order, left := range m.expirableOrders {
		left -= diff

		if left > 0 {
			m.expirableOrders[order] = left
			continue
		}

		delete(m.expirableOrders, order)
		delete(m.activeOrders, order.TransactionID)

		order.State = types.OrderStateDone
		if result != nil {
			result(m.toOrder(t, order))
		}

		if changed := m.updateQuote(order, false, true); changed != nil && result != nil {
			result(m.bookChange(order.Side, *changed, t))
		}
		metrics.OrderGaugeAdd(-1, m.securityID.String())
	}

	m.prevTime = t
}

// ProcessExternalOrder folds third-party flow into the book. A Done
// message peels the given volume off the level anonymously; otherwise the
// active orders are re-evaluated against the moved book (executing at
// their own limit price), the external order is shadow-matched without
// emitting its own reports, and its remainder rests as anonymous volume.
// Fills of tracked resting orders are reported through result either way.
func (m *OrderMatcher) ProcessExternalOrder(message *types.ExecutionMessage, result func(types.Message)) {
	if message == nil {
		panic("matching: nil external order")
	}
	if message.HasTradeInfo || message.TradeID != 0 {
		panic("matching: external order carries trade info")
	}
	if !message.Volume.IsPositive() {
		panic("matching: external order volume must be positive")
	}

	if message.State == types.OrderStateDone {
		if changed := m.updateQuote(message, false, true); changed != nil && result != nil {
			result(m.bookChange(message.Side, *changed, message.LocalTime))
		}
		return
	}

	if len(m.activeOrders) > 0 {
		active := make([]*types.ExecutionMessage, 0, len(m.activeOrders))
		for _, order := range m.activeOrders {
			active = append(active, order)
		}

		for _, order := range active {
			if order.State == types.OrderStateDone {
				// already consumed by an earlier re-match in this batch
				continue
			}

			m.matchOrder(message.LocalTime, order, result, result, false)

			if order.State != types.OrderStateDone {
				continue
			}

			delete(m.activeOrders, order.TransactionID)
			delete(m.expirableOrders, order)

			if changed := m.updateQuote(order, false, true); changed != nil && result != nil {
				result(m.bookChange(order.Side, *changed, message.LocalTime))
			}
			metrics.OrderGaugeAdd(-1, m.securityID.String())
		}
	}

	message.Balance = message.Volume
	m.matchOrder(message.LocalTime, message, nil, result, true)

	if message.Balance.IsPositive() {
		if changed := m.updateQuote(message, true, false); changed != nil && result != nil {
			result(m.bookChange(message.Side, *changed, message.LocalTime))
		}
	}
}

// matchOrder walks the opposite side best-first consuming liquidity into
// order until its balance or the crossable book is exhausted. A nil result
// makes this a shadow pass: the order's balance is updated but no
// acknowledgements, state changes or trades are emitted for it and
// self-trades are not checked. Resting tracked orders consumed along the
// way are always kept in step and their fills reported via impactedResult.
func (m *OrderMatcher) matchOrder(
	t time.Time,
	order *types.ExecutionMessage,
	result, impactedResult func(types.Message),
	isNewOrder bool,
) {
	timer := metrics.NewTimeCounter(m.securityID.String(), "matching", "OrderMatcher.matchOrder")
	defer timer.EngineTimeCounterAdd()

	opposite := m.side(order.Side.Invert())

	type execBucket struct {
		price  decimal.Decimal
		volume decimal.Decimal
	}
	var buckets []execBucket
	bucketIdx := map[string]int{}

	type restingFill struct {
		order  *types.ExecutionMessage
		price  decimal.Decimal
		volume decimal.Decimal
	}
	var impacted []*restingFill
	impactedIdx := map[int64]*restingFill{}

	leftBalance := order.Balance
	sign := order.Side.Sign()
	orderPrice := order.Price
	isMarket := order.OrderType == types.OrderTypeMarket

	var toRemove []decimal.Decimal
	isCrossTrade := false
	postOnlyReject := false

	opposite.walk(func(level *PriceLevel) bool {
		// when the book pierces the level of a previously resting order the
		// re-evaluated order executes at its own limit price, not the level's
		execPrice := level.price
		if !isNewOrder {
			execPrice = orderPrice
		}

		if !isMarket {
			if int64(level.price.Cmp(orderPrice))*sign > 0 {
				return false
			}
			if order.PostOnly {
				postOnlyReject = true
				return false
			}
		}

		i := 0
		for i < len(level.orders) && leftBalance.IsPositive() {
			entry := level.orders[i]

			if result != nil && entry.Portfolio == order.Portfolio {
				m.log.Error("cross trade aborts matching",
					logging.TransactionID(entry.TransactionID),
					logging.TransactionID(order.TransactionID))
				isCrossTrade = true
				break
			}

			volume := decimal.Min(entry.Balance, leftBalance)
			if !volume.IsPositive() {
				m.log.Panic("resting entry with non-positive balance",
					logging.Decimal("balance", entry.Balance),
					logging.Decimal("price", level.price))
			}

			if result != nil {
				key := execPrice.String()
				idx, ok := bucketIdx[key]
				if !ok {
					idx = len(buckets)
					bucketIdx[key] = idx
					buckets = append(buckets, execBucket{price: execPrice})
				}
				buckets[idx].volume = buckets[idx].volume.Add(volume)
			}

			if entry.TransactionID != 0 {
				if resting, ok := m.activeOrders[entry.TransactionID]; ok && resting != order {
					fill := impactedIdx[entry.TransactionID]
					if fill == nil {
						fill = &restingFill{order: resting, price: execPrice}
						impactedIdx[entry.TransactionID] = fill
						impacted = append(impacted, fill)
					}
					fill.volume = fill.volume.Add(volume)
				}
			}

			leftBalance = leftBalance.Sub(volume)
			opposite.addVolume(volume.Neg())

			if volume.Equal(entry.Balance) {
				level.removeIndex(i)
				m.pool.free(entry)
			} else {
				level.reduceAt(i, volume)
			}
		}

		if level.empty() {
			toRemove = append(toRemove, level.price)
		}

		return !leftBalance.IsZero() && !isCrossTrade && !postOnlyReject
	})

	for _, price := range toRemove {
		opposite.removeLevel(price)
	}

	applyImpacted := func() {
		for _, fill := range impacted {
			resting := fill.order
			resting.Balance = resting.Balance.Sub(fill.volume)

			if resting.Balance.IsZero() {
				resting.State = types.OrderStateDone
				delete(m.activeOrders, resting.TransactionID)
				delete(m.expirableOrders, resting)
				metrics.OrderGaugeAdd(-1, m.securityID.String())
			}

			if impactedResult != nil {
				impactedResult(m.toOrder(t, resting))
				impactedResult(m.toMyTrade(t, resting, fill.price, fill.volume))
			}
		}
	}

	if postOnlyReject {
		order.State = types.OrderStateDone
		if result != nil {
			result(m.toOrder(t, order))
		}
		return
	}

	if result == nil {
		order.Balance = leftBalance
		applyImpacted()
		return
	}

	executed := decimal.Zero
	for _, b := range buckets {
		executed = executed.Add(b.volume)
	}
	leftBalance = order.Balance.Sub(executed)

	emitTrades := true

	switch order.TimeInForce {
	case types.TimeInForcePutInQueue:
		order.Balance = leftBalance

		if len(buckets) > 0 {
			if leftBalance.IsZero() {
				order.State = types.OrderStateDone
			}
			result(m.toOrder(t, order))
		}

		if isMarket && leftBalance.IsPositive() {
			// market remainder is never queued
			order.State = types.OrderStateDone
			result(m.toOrder(t, order))
		}

	case types.TimeInForceMatchOrCancel:
		if leftBalance.IsZero() {
			order.Balance = decimal.Zero
		}

		order.State = types.OrderStateDone
		result(m.toOrder(t, order))

		// the partial fill stays in the book but the aggressor reports no
		// trades, matching the emulator this engine reproduces
		if leftBalance.IsPositive() {
			emitTrades = false
		}

	case types.TimeInForceCancelBalance:
		order.Balance = leftBalance
		order.State = types.OrderStateDone
		result(m.toOrder(t, order))
	}

	if isCrossTrade {
		order.State = types.OrderStateDone
		result(m.toOrder(t, order))
	}

	if emitTrades {
		for _, b := range buckets {
			tradeMsg := m.toMyTrade(t, order, b.price, b.volume)
			result(tradeMsg)

			if m.log.GetLevel() == logging.DebugLevel {
				m.log.Debug("trade executed",
					logging.Int64("trade-id", tradeMsg.TradeID),
					logging.TransactionID(order.TransactionID),
					logging.Decimal("price", b.price),
					logging.Decimal("volume", b.volume))
			}
		}
	}

	applyImpacted()
}

// updateQuote maintains the book for one order: register appends a fresh
// pooled clone of the order's remaining balance to the level tail; removal
// with a transaction id detaches that exact entry (silently ignored when
// absent, transaction ids may be reused across replace cycles); anonymous
// removal peels volume from the tail, byVolume selecting the order volume
// over the balance as the amount. Returns the level's new aggregate, nil
// when nothing existed to change.
func (m *OrderMatcher) updateQuote(message *types.ExecutionMessage, register, byVolume bool) *types.Quote {
	quotes := m.side(message.Side)

	level := quotes.getPriceLevelIfExists(message.Price)
	if level == nil {
		if !register {
			return nil
		}
		level = quotes.getPriceLevel(message.Price)
	}

	if register {
		clone := m.pool.alloc()
		clone.TransactionID = message.TransactionID
		clone.Price = message.Price
		clone.Portfolio = message.Portfolio
		clone.Side = message.Side
		clone.Volume = message.Volume
		clone.Balance = message.Balance

		level.addEntry(clone)
		quotes.addVolume(clone.Balance)
	} else {
		if message.TransactionID == 0 {
			volume := message.Balance
			if byVolume {
				volume = message.Volume
			}
			removed := level.peelTail(volume, m.pool)
			quotes.addVolume(removed.Neg())
		} else if entry, ok := level.removeByTransaction(message.TransactionID); ok {
			quotes.addVolume(entry.Balance.Neg())
			m.pool.free(entry)
		}

		if level.empty() {
			quotes.removeLevel(message.Price)
		}
	}

	q := level.quote()
	return &q
}

// GetBest returns the top-of-book aggregate for a side, nil when empty.
func (m *OrderMatcher) GetBest(side types.Side) *types.Quote {
	if level := m.side(side).Best(); level != nil {
		q := level.quote()
		return &q
	}
	return nil
}

// GetWorst returns the last level's aggregate for a side, nil when empty.
func (m *OrderMatcher) GetWorst(side types.Side) *types.Quote {
	if level := m.side(side).Worst(); level != nil {
		q := level.quote()
		return &q
	}
	return nil
}

// GetTotalVolume returns the side-wide resting volume.
func (m *OrderMatcher) GetTotalVolume(side types.Side) decimal.Decimal {
	return m.side(side).TotalVolume()
}

// GetOrders returns the live entry queue at a price, nil when no level
// exists. The entries are the matcher's own records, callers must not
// mutate them.
func (m *OrderMatcher) GetOrders(side types.Side, price decimal.Decimal) []*types.ExecutionMessage {
	if level := m.side(side).getPriceLevelIfExists(price); level != nil {
		return level.orders
	}
	return nil
}

// GetQuoteCount returns the number of levels on a side.
func (m *OrderMatcher) GetQuoteCount(side types.Side) int {
	return m.side(side).Len()
}

// GetQuotes returns every level aggregate on a side, best-first.
func (m *OrderMatcher) GetQuotes(side types.Side) []types.Quote {
	return m.side(side).Quotes()
}

func (m *OrderMatcher) side(side types.Side) *OrderBookSide {
	switch side {
	case types.SideBuy:
		return m.bids
	case types.SideSell:
		return m.asks
	default:
		panic("matching: invalid side")
	}
}

func (m *OrderMatcher) bookChange(side types.Side, quote types.Quote, t time.Time) *types.QuoteChangeMessage {
	bookMsg := &types.QuoteChangeMessage{
		SecurityID: m.securityID,
		State:      types.QuoteStateIncrement,
		ServerTime: t,
		LocalTime:  t,
	}

	if side == types.SideBuy {
		bookMsg.Bids = []types.Quote{quote}
	} else {
		bookMsg.Asks = []types.Quote{quote}
	}

	return bookMsg
}

func (m *OrderMatcher) toOrder(t time.Time, message *types.ExecutionMessage) *types.ExecutionMessage {
	return &types.ExecutionMessage{
		LocalTime:             t,
		SecurityID:            message.SecurityID,
		OrderID:               message.OrderID,
		OriginalTransactionID: message.TransactionID,
		Side:                  message.Side,
		Price:                 message.Price,
		Balance:               message.Balance,
		State:                 message.State,
		Portfolio:             message.Portfolio,
		HasOrderInfo:          true,
		ServerTime:            t,
	}
}

func (m *OrderMatcher) toMyTrade(t time.Time, order *types.ExecutionMessage, price, volume decimal.Decimal) *types.ExecutionMessage {
	return &types.ExecutionMessage{
		LocalTime:             t,
		SecurityID:            order.SecurityID,
		OrderID:               order.OrderID,
		OriginalTransactionID: order.TransactionID,
		Portfolio:             order.Portfolio,
		TradeID:               m.tradeIDs.NextID(),
		TradePrice:            price,
		TradeVolume:           volume,
		HasTradeInfo:          true,
		ServerTime:            t,
		Side:                  order.Side,
	}
}

// endOfDay is the last instant of the expiry date's day.
func endOfDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
