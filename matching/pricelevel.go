package matching

import (
	"sync"

	"github.com/google/btree"
	"github.com/shopspring/decimal"

	"github.com/forgequant/emulator/types"
)

// PriceLevel holds the resting entries at one price in time priority, with
// an index by transaction id for O(1) cancels. The aggregate volume is
// maintained incrementally on every mutation, it is never recomputed.
type PriceLevel struct {
	price         decimal.Decimal
	orders        []*types.ExecutionMessage
	byTransaction map[int64]*types.ExecutionMessage
	volume        decimal.Decimal
}

// NewPriceLevel returns an empty level at the given price.
func NewPriceLevel(price decimal.Decimal) *PriceLevel {
	return &PriceLevel{
		price:         price,
		orders:        []*types.ExecutionMessage{},
		byTransaction: map[int64]*types.ExecutionMessage{},
	}
}

// Less orders levels by price ascending; the side decides the direction it
// walks the tree in.
func (l *PriceLevel) Less(other btree.Item) bool {
	return l.price.LessThan(other.(*PriceLevel).price)
}

// addEntry appends to the tail of the queue. Entries never merge, a volume
// increase at the same price is a fresh entry so the increment queues
// behind existing ones.
func (l *PriceLevel) addEntry(e *types.ExecutionMessage) {
	if e.TransactionID != 0 {
		l.byTransaction[e.TransactionID] = e
	}
	l.orders = append(l.orders, e)
	l.volume = l.volume.Add(e.Balance)
}

// removeIndex detaches the entry at i and returns it.
func (l *PriceLevel) removeIndex(i int) *types.ExecutionMessage {
	e := l.orders[i]
	l.orders = append(l.orders[:i], l.orders[i+1:]...)
	if e.TransactionID != 0 {
		delete(l.byTransaction, e.TransactionID)
	}
	l.volume = l.volume.Sub(e.Balance)
	return e
}

// removeByTransaction detaches the entry for the transaction id; ok is
// false when the level holds no such entry.
func (l *PriceLevel) removeByTransaction(transactionID int64) (*types.ExecutionMessage, bool) {
	e, ok := l.byTransaction[transactionID]
	if !ok {
		return nil, false
	}
	for i := range l.orders {
		if l.orders[i] == e {
			return l.removeIndex(i), true
		}
	}
	// index and queue out of sync
	panic("price level transaction index references a missing entry")
}

// reduceAt shrinks the entry at i by volume, keeping the aggregate in step.
func (l *PriceLevel) reduceAt(i int, volume decimal.Decimal) {
	l.orders[i].Balance = l.orders[i].Balance.Sub(volume)
	l.volume = l.volume.Sub(volume)
}

// peelTail removes anonymous volume from the back of the queue, splitting
// the last touched entry when the removal is smaller than its balance.
// Entries carrying a transaction id belong to tracked orders and are never
// peeled. Returns the volume actually removed.
func (l *PriceLevel) peelTail(volume decimal.Decimal, pool *entryPool) decimal.Decimal {
	left := volume
	removed := decimal.Zero
	for i := len(l.orders) - 1; i >= 0 && left.IsPositive(); i-- {
		e := l.orders[i]
		if e.TransactionID != 0 {
			continue
		}
		if e.Balance.GreaterThan(left) {
			l.reduceAt(i, left)
			removed = removed.Add(left)
			break
		}
		left = left.Sub(e.Balance)
		removed = removed.Add(e.Balance)
		l.removeIndex(i)
		pool.free(e)
	}
	return removed
}

func (l *PriceLevel) empty() bool {
	return len(l.orders) == 0
}

// quote returns the level's aggregate.
func (l *PriceLevel) quote() types.Quote {
	return types.Quote{
		Price:      l.price,
		Volume:     l.volume,
		OrderCount: len(l.orders),
	}
}

// entryPool recycles level entries. Entries handed out are logically
// distinct clones; freeing resets them so later reuse is never observable
// through a stale reference.
type entryPool struct {
	pool sync.Pool
}

func newEntryPool() *entryPool {
	return &entryPool{
		pool: sync.Pool{
			New: func() any { return &types.ExecutionMessage{} },
		},
	}
}

func (p *entryPool) alloc() *types.ExecutionMessage {
	return p.pool.Get().(*types.ExecutionMessage)
}

func (p *entryPool) free(e *types.ExecutionMessage) {
	*e = types.ExecutionMessage{}
	p.pool.Put(e)
}
