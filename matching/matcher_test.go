package matching

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgequant/emulator/ids"
	"github.com/forgequant/emulator/logging"
	"github.com/forgequant/emulator/types"
)

var (
	testSecurity = types.SecurityID{Code: "SBER", Board: "TQBR"}
	testTime     = time.Date(2020, 4, 7, 10, 30, 0, 0, time.UTC)
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newMatcher(t *testing.T) *OrderMatcher {
	t.Helper()
	return NewOrderMatcher(
		logging.NewTestLogger(), NewDefaultConfig(), testSecurity,
		ids.NewIncremental(0), ids.NewIncremental(0))
}

func limitReg(txn int64, portfolio string, side types.Side, price, volume int64) *types.OrderRegisterMessage {
	return &types.OrderRegisterMessage{
		TransactionID: txn,
		SecurityID:    testSecurity,
		Portfolio:     portfolio,
		Side:          side,
		OrderType:     types.OrderTypeLimit,
		Price:         d(price),
		Volume:        d(volume),
		LocalTime:     testTime,
	}
}

type msgCollector struct {
	msgs []types.Message
}

func (c *msgCollector) collect(msg types.Message) { c.msgs = append(c.msgs, msg) }

func (c *msgCollector) reset() { c.msgs = nil }

func (c *msgCollector) orders() []*types.ExecutionMessage {
	var out []*types.ExecutionMessage
	for _, msg := range c.msgs {
		if e, ok := msg.(*types.ExecutionMessage); ok && e.HasOrderInfo && !e.HasTradeInfo {
			out = append(out, e)
		}
	}
	return out
}

func (c *msgCollector) trades() []*types.ExecutionMessage {
	var out []*types.ExecutionMessage
	for _, msg := range c.msgs {
		if e, ok := msg.(*types.ExecutionMessage); ok && e.HasTradeInfo {
			out = append(out, e)
		}
	}
	return out
}

func (c *msgCollector) books() []*types.QuoteChangeMessage {
	var out []*types.QuoteChangeMessage
	for _, msg := range c.msgs {
		if b, ok := msg.(*types.QuoteChangeMessage); ok {
			out = append(out, b)
		}
	}
	return out
}

func TestRegisterOrderRests(t *testing.T) {
	m := newMatcher(t)
	sink := &msgCollector{}

	reply := m.RegisterOrder(limitReg(1, "A", types.SideBuy, 100, 10), sink.collect, sink.collect)

	require.NotNil(t, reply)
	assert.NoError(t, reply.Error)
	assert.Equal(t, types.OrderStateActive, reply.State)
	assert.Equal(t, int64(1), reply.OrderID)

	books := sink.books()
	require.Len(t, books, 1)
	require.Len(t, books[0].Bids, 1)
	assert.True(t, books[0].Bids[0].Price.Equal(d(100)))
	assert.True(t, books[0].Bids[0].Volume.Equal(d(10)))
	assert.Equal(t, types.QuoteStateIncrement, books[0].State)

	best := m.GetBest(types.SideBuy)
	require.NotNil(t, best)
	assert.True(t, best.Price.Equal(d(100)))
	assert.True(t, best.Volume.Equal(d(10)))
	assert.Nil(t, m.GetBest(types.SideSell))
	assert.True(t, m.GetTotalVolume(types.SideBuy).Equal(d(10)))
}

func TestRegisterOrderMatchesRestingVolume(t *testing.T) {
	m := newMatcher(t)
	sink := &msgCollector{}

	m.RegisterOrder(limitReg(1, "B", types.SideSell, 100, 4), sink.collect, sink.collect)
	sink.reset()

	m.RegisterOrder(limitReg(2, "A", types.SideBuy, 100, 10), sink.collect, sink.collect)

	orders := sink.orders()
	require.Len(t, orders, 3)
	// acknowledgement first, then the aggressor's fill, then the resting done
	assert.Equal(t, int64(2), orders[0].OriginalTransactionID)
	assert.Equal(t, types.OrderStateActive, orders[0].State)

	assert.Equal(t, int64(2), orders[1].OriginalTransactionID)
	assert.Equal(t, types.OrderStateActive, orders[1].State)
	assert.True(t, orders[1].Balance.Equal(d(6)))

	assert.Equal(t, int64(1), orders[2].OriginalTransactionID)
	assert.Equal(t, types.OrderStateDone, orders[2].State)
	assert.True(t, orders[2].Balance.IsZero())

	trades := sink.trades()
	require.Len(t, trades, 2)
	total := decimal.Zero
	for _, trade := range trades {
		assert.True(t, trade.TradePrice.Equal(d(100)))
		total = total.Add(trade.TradeVolume)
	}
	assert.True(t, total.Equal(d(8)), "both counterparts report the 4 lot fill")
	assert.Equal(t, types.SideBuy, trades[0].Side)
	assert.Equal(t, types.SideSell, trades[1].Side)

	// the aggressor trade comes before the resting counterpart's
	assert.Equal(t, int64(2), trades[0].OriginalTransactionID)
	assert.Equal(t, int64(1), trades[1].OriginalTransactionID)

	books := sink.books()
	require.Len(t, books, 1)
	require.Len(t, books[0].Bids, 1)
	assert.True(t, books[0].Bids[0].Price.Equal(d(100)))
	assert.True(t, books[0].Bids[0].Volume.Equal(d(6)))

	assert.Nil(t, m.GetBest(types.SideSell))
	assert.True(t, m.GetTotalVolume(types.SideBuy).Equal(d(6)))
}

func TestPriceTimePriority(t *testing.T) {
	m := newMatcher(t)
	sink := &msgCollector{}

	t.Run("better price fills first", func(t *testing.T) {
		m.RegisterOrder(limitReg(1, "B", types.SideSell, 101, 5), sink.collect, sink.collect)
		m.RegisterOrder(limitReg(2, "C", types.SideSell, 100, 5), sink.collect, sink.collect)
		sink.reset()

		m.RegisterOrder(limitReg(3, "A", types.SideBuy, 101, 8), sink.collect, sink.collect)

		var aggressor []*types.ExecutionMessage
		for _, trade := range sink.trades() {
			if trade.OriginalTransactionID == 3 {
				aggressor = append(aggressor, trade)
			}
		}
		require.Len(t, aggressor, 2)
		assert.True(t, aggressor[0].TradePrice.Equal(d(100)))
		assert.True(t, aggressor[0].TradeVolume.Equal(d(5)))
		assert.True(t, aggressor[1].TradePrice.Equal(d(101)))
		assert.True(t, aggressor[1].TradeVolume.Equal(d(3)))

		best := m.GetBest(types.SideSell)
		require.NotNil(t, best)
		assert.True(t, best.Price.Equal(d(101)))
		assert.True(t, best.Volume.Equal(d(2)))
	})

	t.Run("same price fills oldest first", func(t *testing.T) {
		m := newMatcher(t)
		m.RegisterOrder(limitReg(1, "B", types.SideSell, 100, 4), sink.collect, sink.collect)
		m.RegisterOrder(limitReg(2, "C", types.SideSell, 100, 5), sink.collect, sink.collect)
		sink.reset()

		m.RegisterOrder(limitReg(3, "A", types.SideBuy, 100, 6), sink.collect, sink.collect)

		// one aggressor trade per distinct execution price
		var aggressor []*types.ExecutionMessage
		for _, trade := range sink.trades() {
			if trade.OriginalTransactionID == 3 {
				aggressor = append(aggressor, trade)
			}
		}
		require.Len(t, aggressor, 1)
		assert.True(t, aggressor[0].TradeVolume.Equal(d(6)))

		// the older resting order is fully consumed, the newer keeps 3
		entries := m.GetOrders(types.SideSell, d(100))
		require.Len(t, entries, 1)
		assert.Equal(t, int64(2), entries[0].TransactionID)
		assert.True(t, entries[0].Balance.Equal(d(3)))
	})
}

func TestSelfTradeAbortsMatching(t *testing.T) {
	m := newMatcher(t)
	sink := &msgCollector{}

	m.RegisterOrder(limitReg(1, "A", types.SideSell, 100, 4), sink.collect, sink.collect)
	sink.reset()

	m.RegisterOrder(limitReg(2, "A", types.SideBuy, 100, 10), sink.collect, sink.collect)

	assert.Empty(t, sink.trades(), "matching against own portfolio yields no trades")

	orders := sink.orders()
	require.Len(t, orders, 2)
	assert.Equal(t, types.OrderStateActive, orders[0].State)
	assert.Equal(t, types.OrderStateDone, orders[1].State)
	assert.True(t, orders[1].Balance.Equal(d(10)))

	// the resting order is untouched
	best := m.GetBest(types.SideSell)
	require.NotNil(t, best)
	assert.True(t, best.Volume.Equal(d(4)))
	assert.Nil(t, m.GetBest(types.SideBuy))
}

func TestPostOnlyRejectedWhenCrossing(t *testing.T) {
	m := newMatcher(t)
	sink := &msgCollector{}

	m.RegisterOrder(limitReg(1, "B", types.SideSell, 100, 4), sink.collect, sink.collect)
	sink.reset()

	regMsg := limitReg(2, "A", types.SideBuy, 100, 10)
	regMsg.PostOnly = true
	m.RegisterOrder(regMsg, sink.collect, sink.collect)

	assert.Empty(t, sink.trades())

	orders := sink.orders()
	require.Len(t, orders, 2)
	assert.Equal(t, types.OrderStateDone, orders[1].State)
	assert.True(t, orders[1].Balance.Equal(d(10)))

	// nothing was consumed from the book
	best := m.GetBest(types.SideSell)
	require.NotNil(t, best)
	assert.True(t, best.Volume.Equal(d(4)))
}

func TestFillOrKill(t *testing.T) {
	t.Run("full fill executes", func(t *testing.T) {
		m := newMatcher(t)
		sink := &msgCollector{}
		m.RegisterOrder(limitReg(1, "B", types.SideSell, 100, 10), sink.collect, sink.collect)
		sink.reset()

		regMsg := limitReg(2, "A", types.SideBuy, 100, 4)
		regMsg.TimeInForce = types.TimeInForceMatchOrCancel
		m.RegisterOrder(regMsg, sink.collect, sink.collect)

		var aggressor []*types.ExecutionMessage
		for _, trade := range sink.trades() {
			if trade.OriginalTransactionID == 2 {
				aggressor = append(aggressor, trade)
			}
		}
		require.Len(t, aggressor, 1)
		assert.True(t, aggressor[0].TradeVolume.Equal(d(4)))

		orders := sink.orders()
		require.Len(t, orders, 3)
		assert.Equal(t, types.OrderStateDone, orders[1].State)
		assert.True(t, orders[1].Balance.IsZero())

		best := m.GetBest(types.SideSell)
		require.NotNil(t, best)
		assert.True(t, best.Volume.Equal(d(6)))
	})

	t.Run("partial fill reports no aggressor trades", func(t *testing.T) {
		m := newMatcher(t)
		sink := &msgCollector{}
		m.RegisterOrder(limitReg(1, "B", types.SideSell, 100, 4), sink.collect, sink.collect)
		sink.reset()

		regMsg := limitReg(2, "A", types.SideBuy, 100, 10)
		regMsg.TimeInForce = types.TimeInForceMatchOrCancel
		m.RegisterOrder(regMsg, sink.collect, sink.collect)

		for _, trade := range sink.trades() {
			assert.NotEqual(t, int64(2), trade.OriginalTransactionID,
				"partially filled kill order reports no own trades")
		}

		orders := sink.orders()
		require.Len(t, orders, 3)
		assert.Equal(t, int64(2), orders[1].OriginalTransactionID)
		assert.Equal(t, types.OrderStateDone, orders[1].State)

		// the resting side still traded and the level is drained
		assert.Equal(t, int64(1), orders[2].OriginalTransactionID)
		assert.Equal(t, types.OrderStateDone, orders[2].State)
		assert.Nil(t, m.GetBest(types.SideSell))
		assert.Nil(t, m.GetBest(types.SideBuy))
	})

	t.Run("empty book is done without trades", func(t *testing.T) {
		m := newMatcher(t)
		sink := &msgCollector{}

		regMsg := limitReg(1, "A", types.SideBuy, 100, 10)
		regMsg.TimeInForce = types.TimeInForceMatchOrCancel
		m.RegisterOrder(regMsg, sink.collect, sink.collect)

		assert.Empty(t, sink.trades())
		orders := sink.orders()
		require.Len(t, orders, 2)
		assert.Equal(t, types.OrderStateDone, orders[1].State)
		assert.Nil(t, m.GetBest(types.SideBuy))
	})
}

func TestImmediateOrCancelDropsRemainder(t *testing.T) {
	m := newMatcher(t)
	sink := &msgCollector{}
	m.RegisterOrder(limitReg(1, "B", types.SideSell, 100, 4), sink.collect, sink.collect)
	sink.reset()

	regMsg := limitReg(2, "A", types.SideBuy, 100, 10)
	regMsg.TimeInForce = types.TimeInForceCancelBalance
	m.RegisterOrder(regMsg, sink.collect, sink.collect)

	var aggressor []*types.ExecutionMessage
	for _, trade := range sink.trades() {
		if trade.OriginalTransactionID == 2 {
			aggressor = append(aggressor, trade)
		}
	}
	require.Len(t, aggressor, 1)
	assert.True(t, aggressor[0].TradeVolume.Equal(d(4)))

	orders := sink.orders()
	require.Len(t, orders, 3)
	assert.Equal(t, types.OrderStateDone, orders[1].State)
	assert.True(t, orders[1].Balance.Equal(d(6)))

	// the remainder never rests
	assert.Nil(t, m.GetBest(types.SideBuy))
}

func TestMarketOrder(t *testing.T) {
	t.Run("remainder is cancelled with a second state", func(t *testing.T) {
		m := newMatcher(t)
		sink := &msgCollector{}
		m.RegisterOrder(limitReg(1, "B", types.SideSell, 100, 4), sink.collect, sink.collect)
		sink.reset()

		regMsg := limitReg(2, "A", types.SideBuy, 0, 10)
		regMsg.OrderType = types.OrderTypeMarket
		m.RegisterOrder(regMsg, sink.collect, sink.collect)

		orders := sink.orders()
		require.Len(t, orders, 4)
		assert.Equal(t, types.OrderStateActive, orders[1].State)
		assert.True(t, orders[1].Balance.Equal(d(6)))
		assert.Equal(t, types.OrderStateDone, orders[2].State)
		assert.True(t, orders[2].Balance.Equal(d(6)))

		assert.Nil(t, m.GetBest(types.SideBuy))
		assert.Nil(t, m.GetBest(types.SideSell))
	})

	t.Run("empty book cancels outright", func(t *testing.T) {
		m := newMatcher(t)
		sink := &msgCollector{}

		regMsg := limitReg(1, "A", types.SideBuy, 0, 10)
		regMsg.OrderType = types.OrderTypeMarket
		m.RegisterOrder(regMsg, sink.collect, sink.collect)

		assert.Empty(t, sink.trades())
		orders := sink.orders()
		require.Len(t, orders, 2)
		assert.Equal(t, types.OrderStateDone, orders[1].State)
	})
}

func TestCancelOrder(t *testing.T) {
	t.Run("active order is cancelled", func(t *testing.T) {
		m := newMatcher(t)
		sink := &msgCollector{}
		m.RegisterOrder(limitReg(1, "A", types.SideBuy, 100, 10), sink.collect, sink.collect)
		sink.reset()

		reply, original := m.CancelOrder(&types.OrderCancelMessage{
			TransactionID:    2,
			OldTransactionID: 1,
			SecurityID:       testSecurity,
			Portfolio:        "A",
			LocalTime:        testTime,
		}, sink.collect, sink.collect)

		require.NotNil(t, reply)
		require.NotNil(t, original)
		assert.NoError(t, reply.Error)
		assert.Equal(t, types.OrderStateDone, reply.State)
		assert.True(t, reply.Balance.Equal(d(10)))
		assert.Equal(t, int64(1), original.TransactionID)

		books := sink.books()
		require.Len(t, books, 1)
		require.Len(t, books[0].Bids, 1)
		assert.True(t, books[0].Bids[0].Price.Equal(d(100)))
		assert.True(t, books[0].Bids[0].Volume.IsZero(), "drained level reports zero volume")

		assert.Nil(t, m.GetBest(types.SideBuy))
	})

	t.Run("unknown order fails the reply", func(t *testing.T) {
		m := newMatcher(t)
		sink := &msgCollector{}

		reply, original := m.CancelOrder(&types.OrderCancelMessage{
			TransactionID:    2,
			OldTransactionID: 42,
			SecurityID:       testSecurity,
			LocalTime:        testTime,
		}, sink.collect, sink.collect)

		require.NotNil(t, reply)
		assert.Nil(t, original)
		assert.Equal(t, types.OrderStateFailed, reply.State)
		assert.ErrorIs(t, reply.Error, ErrOrderNotFound)
		assert.Empty(t, sink.books())
	})
}

func TestReplaceOrder(t *testing.T) {
	newReplace := func(oldTxn, txn int64, oldPrice, price, volume int64) *types.OrderReplaceMessage {
		return &types.OrderReplaceMessage{
			OrderRegisterMessage: *limitReg(txn, "A", types.SideBuy, price, volume),
			OldTransactionID:     oldTxn,
			OldOrderPrice:        d(oldPrice),
			OldOrderVolume:       d(volume),
		}
	}

	t.Run("price change emits both book diffs", func(t *testing.T) {
		m := newMatcher(t)
		sink := &msgCollector{}
		m.RegisterOrder(limitReg(1, "A", types.SideBuy, 100, 10), sink.collect, sink.collect)
		sink.reset()

		reply, original := m.ReplaceOrder(newReplace(1, 2, 100, 101, 10), sink.collect, sink.collect)

		require.NotNil(t, reply)
		require.NotNil(t, original)
		assert.NoError(t, reply.Error)

		books := sink.books()
		require.Len(t, books, 2)
		assert.True(t, books[0].Bids[0].Price.Equal(d(100)))
		assert.True(t, books[0].Bids[0].Volume.IsZero())
		assert.True(t, books[1].Bids[0].Price.Equal(d(101)))
		assert.True(t, books[1].Bids[0].Volume.Equal(d(10)))

		best := m.GetBest(types.SideBuy)
		require.NotNil(t, best)
		assert.True(t, best.Price.Equal(d(101)))
	})

	t.Run("same price suppresses the cancel diff", func(t *testing.T) {
		m := newMatcher(t)
		sink := &msgCollector{}
		m.RegisterOrder(limitReg(1, "A", types.SideBuy, 100, 10), sink.collect, sink.collect)
		sink.reset()

		m.ReplaceOrder(newReplace(1, 2, 100, 100, 15), sink.collect, sink.collect)

		books := sink.books()
		require.Len(t, books, 1)
		assert.True(t, books[0].Bids[0].Price.Equal(d(100)))
		assert.True(t, books[0].Bids[0].Volume.Equal(d(15)))
	})

	t.Run("unknown original short-circuits the register leg", func(t *testing.T) {
		m := newMatcher(t)
		sink := &msgCollector{}

		reply, original := m.ReplaceOrder(newReplace(42, 2, 100, 101, 10), sink.collect, sink.collect)

		require.NotNil(t, reply)
		assert.Nil(t, original)
		assert.ErrorIs(t, reply.Error, ErrOrderNotFound)
		assert.Nil(t, m.GetBest(types.SideBuy), "replacement must not be registered")
	})
}

func TestCancelOrdersGroup(t *testing.T) {
	m := newMatcher(t)
	sink := &msgCollector{}
	m.RegisterOrder(limitReg(1, "A", types.SideBuy, 100, 10), sink.collect, sink.collect)
	m.RegisterOrder(limitReg(2, "B", types.SideBuy, 100, 5), sink.collect, sink.collect)
	m.RegisterOrder(limitReg(3, "A", types.SideSell, 105, 7), sink.collect, sink.collect)
	sink.reset()

	reply := m.CancelOrders(&types.OrderGroupCancelMessage{
		TransactionID: 10,
		Portfolio:     "a", // match is case insensitive
		LocalTime:     testTime,
	}, sink.collect)

	require.NotNil(t, reply)
	assert.Equal(t, int64(10), reply.OriginalTransactionID)
	assert.Equal(t, types.OrderStateDone, reply.State)

	var done []int64
	for _, order := range sink.orders() {
		if order.State == types.OrderStateDone && order.OriginalTransactionID == 10 && order.OrderID != 0 {
			done = append(done, order.OrderID)
		}
	}
	assert.Len(t, done, 2)

	// one aggregated diff: the shared bid level keeps B's volume, the ask
	// level is gone
	books := sink.books()
	require.Len(t, books, 1)
	require.Len(t, books[0].Bids, 1)
	assert.True(t, books[0].Bids[0].Price.Equal(d(100)))
	assert.True(t, books[0].Bids[0].Volume.Equal(d(5)))
	require.Len(t, books[0].Asks, 1)
	assert.True(t, books[0].Asks[0].Price.Equal(d(105)))
	assert.True(t, books[0].Asks[0].Volume.IsZero())

	// cancelling again with the same filter is a no-op
	sink.reset()
	m.CancelOrders(&types.OrderGroupCancelMessage{TransactionID: 11, Portfolio: "A", LocalTime: testTime}, sink.collect)
	assert.Len(t, sink.orders(), 1, "only the group reply remains")
}

func TestRequestOrders(t *testing.T) {
	m := newMatcher(t)
	sink := &msgCollector{}
	m.RegisterOrder(limitReg(1, "A", types.SideBuy, 100, 10), sink.collect, sink.collect)
	m.RegisterOrder(limitReg(2, "B", types.SideSell, 105, 5), sink.collect, sink.collect)
	sink.reset()

	t.Run("by portfolio", func(t *testing.T) {
		sink.reset()
		m.RequestOrders(&types.OrderStatusMessage{TransactionID: 20, Portfolio: "a"}, sink.collect)

		orders := sink.orders()
		require.Len(t, orders, 1)
		assert.Equal(t, int64(1), orders[0].TransactionID)
		assert.Equal(t, int64(20), orders[0].OriginalTransactionID)
	})

	t.Run("by order id", func(t *testing.T) {
		sink.reset()
		m.RequestOrders(&types.OrderStatusMessage{TransactionID: 21, OrderID: 2}, sink.collect)

		orders := sink.orders()
		require.Len(t, orders, 1)
		assert.Equal(t, int64(2), orders[0].TransactionID)
	})

	t.Run("unfiltered returns all", func(t *testing.T) {
		sink.reset()
		m.RequestOrders(&types.OrderStatusMessage{TransactionID: 22}, sink.collect)
		assert.Len(t, sink.orders(), 2)
	})
}

func TestProcessTimeExpiry(t *testing.T) {
	m := newMatcher(t)
	sink := &msgCollector{}

	expiry := testTime
	regMsg := limitReg(1, "A", types.SideBuy, 100, 10)
	regMsg.ExpiryDate = &expiry
	m.RegisterOrder(regMsg, sink.collect, sink.collect)
	sink.reset()

	// the first tick only establishes the baseline
	m.ProcessTime(testTime, sink.collect)
	assert.Empty(t, sink.msgs)
	require.NotNil(t, m.GetBest(types.SideBuy))

	// within the expiry day nothing happens
	m.ProcessTime(testTime.Add(2*time.Hour), sink.collect)
	assert.Empty(t, sink.msgs)

	m.ProcessTime(testTime.Add(30*time.Hour), sink.collect)

	orders := sink.orders()
	require.Len(t, orders, 1)
	assert.Equal(t, types.OrderStateDone, orders[0].State)
	assert.True(t, orders[0].Balance.Equal(d(10)))

	books := sink.books()
	require.Len(t, books, 1)
	assert.True(t, books[0].Bids[0].Volume.IsZero())

	assert.Nil(t, m.GetBest(types.SideBuy))

	// the expired order is gone, later ticks are silent
	sink.reset()
	m.ProcessTime(testTime.Add(40*time.Hour), sink.collect)
	assert.Empty(t, sink.msgs)
}

func TestProcessExternalOrder(t *testing.T) {
	t.Run("external flow fills a resting order", func(t *testing.T) {
		m := newMatcher(t)
		sink := &msgCollector{}
		m.RegisterOrder(limitReg(1, "A", types.SideBuy, 100, 10), sink.collect, sink.collect)
		sink.reset()

		m.ProcessExternalOrder(&types.ExecutionMessage{
			SecurityID: testSecurity,
			Side:       types.SideSell,
			OrderType:  types.OrderTypeLimit,
			Price:      d(99),
			Volume:     d(15),
			State:      types.OrderStateActive,
			LocalTime:  testTime,
		}, sink.collect)

		orders := sink.orders()
		require.Len(t, orders, 1)
		assert.Equal(t, int64(1), orders[0].OriginalTransactionID)
		assert.Equal(t, types.OrderStateDone, orders[0].State)
		assert.True(t, orders[0].Balance.IsZero())

		trades := sink.trades()
		require.Len(t, trades, 1)
		assert.Equal(t, int64(1), trades[0].OriginalTransactionID)
		assert.True(t, trades[0].TradePrice.Equal(d(100)), "resting orders execute at the level price")
		assert.True(t, trades[0].TradeVolume.Equal(d(10)))

		// the remainder rests anonymously on the ask side
		best := m.GetBest(types.SideSell)
		require.NotNil(t, best)
		assert.True(t, best.Price.Equal(d(99)))
		assert.True(t, best.Volume.Equal(d(5)))
		assert.Nil(t, m.GetBest(types.SideBuy))
	})

	t.Run("done message peels anonymous volume", func(t *testing.T) {
		m := newMatcher(t)
		sink := &msgCollector{}

		m.ProcessExternalOrder(&types.ExecutionMessage{
			SecurityID: testSecurity,
			Side:       types.SideSell,
			OrderType:  types.OrderTypeLimit,
			Price:      d(99),
			Volume:     d(5),
			State:      types.OrderStateActive,
			LocalTime:  testTime,
		}, sink.collect)
		sink.reset()

		m.ProcessExternalOrder(&types.ExecutionMessage{
			SecurityID: testSecurity,
			Side:       types.SideSell,
			Price:      d(99),
			Volume:     d(5),
			State:      types.OrderStateDone,
			LocalTime:  testTime,
		}, sink.collect)

		books := sink.books()
		require.Len(t, books, 1)
		assert.True(t, books[0].Asks[0].Volume.IsZero())
		assert.Nil(t, m.GetBest(types.SideSell))
	})

	t.Run("panics on trade info", func(t *testing.T) {
		m := newMatcher(t)
		assert.Panics(t, func() {
			m.ProcessExternalOrder(&types.ExecutionMessage{
				Side: types.SideSell, Price: d(99), Volume: d(5), HasTradeInfo: true,
			}, nil)
		})
	})
}

func TestBookAggregates(t *testing.T) {
	m := newMatcher(t)
	sink := &msgCollector{}
	m.RegisterOrder(limitReg(1, "A", types.SideBuy, 100, 10), sink.collect, sink.collect)
	m.RegisterOrder(limitReg(2, "B", types.SideBuy, 100, 5), sink.collect, sink.collect)
	m.RegisterOrder(limitReg(3, "C", types.SideBuy, 99, 7), sink.collect, sink.collect)

	assert.Equal(t, 2, m.GetQuoteCount(types.SideBuy))
	assert.True(t, m.GetTotalVolume(types.SideBuy).Equal(d(22)))

	quotes := m.GetQuotes(types.SideBuy)
	require.Len(t, quotes, 2)
	assert.True(t, quotes[0].Price.Equal(d(100)), "bids are best first")
	assert.True(t, quotes[0].Volume.Equal(d(15)))
	assert.Equal(t, 2, quotes[0].OrderCount)
	assert.True(t, quotes[1].Price.Equal(d(99)))

	worst := m.GetWorst(types.SideBuy)
	require.NotNil(t, worst)
	assert.True(t, worst.Price.Equal(d(99)))

	entries := m.GetOrders(types.SideBuy, d(100))
	require.Len(t, entries, 2)
	total := entries[0].Balance.Add(entries[1].Balance)
	assert.True(t, total.Equal(d(15)), "level volume equals the sum of its entries")
}

// assertBookInvariants walks both sides checking every level's aggregate
// against the sum of its entry balances and the side total against the sum
// of the level aggregates.
func assertBookInvariants(t *testing.T, m *OrderMatcher) {
	t.Helper()
	for _, side := range []types.Side{types.SideBuy, types.SideSell} {
		total := decimal.Zero
		for _, q := range m.GetQuotes(side) {
			entries := m.GetOrders(side, q.Price)
			require.Len(t, entries, q.OrderCount)

			sum := decimal.Zero
			for _, entry := range entries {
				sum = sum.Add(entry.Balance)
			}
			assert.True(t, sum.Equal(q.Volume),
				"level %s %s aggregate %s != entry sum %s",
				side.String(), q.Price.String(), q.Volume.String(), sum.String())

			total = total.Add(q.Volume)
		}
		assert.True(t, total.Equal(m.GetTotalVolume(side)),
			"side %s total %s != level sum %s",
			side.String(), m.GetTotalVolume(side).String(), total.String())
	}
}

func TestCancelRegisterRoundTrip(t *testing.T) {
	m := newMatcher(t)
	sink := &msgCollector{}
	m.RegisterOrder(limitReg(1, "A", types.SideBuy, 100, 10), sink.collect, sink.collect)
	m.RegisterOrder(limitReg(2, "B", types.SideBuy, 100, 5), sink.collect, sink.collect)

	before := m.GetQuotes(types.SideBuy)
	beforeTotal := m.GetTotalVolume(types.SideBuy)

	m.CancelOrder(&types.OrderCancelMessage{
		TransactionID:    3,
		OldTransactionID: 1,
		SecurityID:       testSecurity,
		Portfolio:        "A",
		LocalTime:        testTime,
	}, sink.collect, sink.collect)

	m.RegisterOrder(limitReg(4, "A", types.SideBuy, 100, 10), sink.collect, sink.collect)

	// cancelling and re-registering the identical order leaves the book
	// aggregates exactly where they were
	after := m.GetQuotes(types.SideBuy)
	require.Len(t, after, len(before))
	for i := range before {
		assert.True(t, after[i].Price.Equal(before[i].Price))
		assert.True(t, after[i].Volume.Equal(before[i].Volume))
		assert.Equal(t, before[i].OrderCount, after[i].OrderCount)
	}
	assert.True(t, m.GetTotalVolume(types.SideBuy).Equal(beforeTotal))
	assertBookInvariants(t, m)
}

func TestBookInvariantsAcrossMixedFlow(t *testing.T) {
	m := newMatcher(t)
	sink := &msgCollector{}

	m.RegisterOrder(limitReg(1, "B", types.SideSell, 100, 4), sink.collect, sink.collect)
	m.RegisterOrder(limitReg(2, "C", types.SideSell, 101, 5), sink.collect, sink.collect)
	m.RegisterOrder(limitReg(3, "D", types.SideBuy, 95, 6), sink.collect, sink.collect)
	assertBookInvariants(t, m)

	// partial fill: consumes the 100 ask, rests 6 on the bid
	m.RegisterOrder(limitReg(4, "A", types.SideBuy, 100, 10), sink.collect, sink.collect)
	assertBookInvariants(t, m)

	// immediate-or-cancel sweep through both bid levels
	iocMsg := limitReg(5, "E", types.SideSell, 95, 10)
	iocMsg.TimeInForce = types.TimeInForceCancelBalance
	m.RegisterOrder(iocMsg, sink.collect, sink.collect)
	assertBookInvariants(t, m)

	m.CancelOrder(&types.OrderCancelMessage{
		TransactionID:    6,
		OldTransactionID: 2,
		SecurityID:       testSecurity,
		Portfolio:        "C",
		LocalTime:        testTime,
	}, sink.collect, sink.collect)
	assertBookInvariants(t, m)

	m.CancelOrders(&types.OrderGroupCancelMessage{
		TransactionID: 7,
		Portfolio:     "D",
		LocalTime:     testTime,
	}, sink.collect)
	assertBookInvariants(t, m)

	// anonymous external flow resting on the book
	m.ProcessExternalOrder(&types.ExecutionMessage{
		SecurityID: testSecurity,
		Side:       types.SideSell,
		OrderType:  types.OrderTypeLimit,
		Price:      d(102),
		Volume:     d(3),
		State:      types.OrderStateActive,
		LocalTime:  testTime,
	}, sink.collect)
	assertBookInvariants(t, m)
}
