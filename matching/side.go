package matching

import (
	"github.com/google/btree"
	"github.com/shopspring/decimal"

	"github.com/forgequant/emulator/logging"
	"github.com/forgequant/emulator/types"
)

// OrderBookSide represent a side of the book, either Sell or Buy. Levels
// are kept in a btree keyed by price; bids walk best-first descending,
// asks ascending. The side keeps a running total of resting volume so
// GetTotalVolume never has to scan.
type OrderBookSide struct {
	side        types.Side
	log         *logging.Logger
	levels      *btree.BTree
	totalVolume decimal.Decimal
}

// NewOrderBookSide ...
func NewOrderBookSide(log *logging.Logger, side types.Side) *OrderBookSide {
	return &OrderBookSide{
		side:   side,
		log:    log,
		levels: btree.New(2),
	}
}

func (s *OrderBookSide) getPriceLevelIfExists(price decimal.Decimal) *PriceLevel {
	if item := s.levels.Get(&PriceLevel{price: price}); item != nil {
		return item.(*PriceLevel)
	}
	return nil
}

func (s *OrderBookSide) getPriceLevel(price decimal.Decimal) *PriceLevel {
	if level := s.getPriceLevelIfExists(price); level != nil {
		return level
	}
	level := NewPriceLevel(price)
	s.levels.ReplaceOrInsert(level)
	return level
}

func (s *OrderBookSide) removeLevel(price decimal.Decimal) {
	s.levels.Delete(&PriceLevel{price: price})
}

func (s *OrderBookSide) addVolume(diff decimal.Decimal) {
	s.totalVolume = s.totalVolume.Add(diff)
}

// walk visits levels best-first until f returns false. Best is the highest
// price for bids and the lowest for asks.
func (s *OrderBookSide) walk(f func(level *PriceLevel) bool) {
	it := func(item btree.Item) bool { return f(item.(*PriceLevel)) }
	if s.side == types.SideBuy {
		s.levels.Descend(it)
	} else {
		s.levels.Ascend(it)
	}
}

// Best returns the top-of-side level, nil when the side is empty.
func (s *OrderBookSide) Best() *PriceLevel {
	var item btree.Item
	if s.side == types.SideBuy {
		item = s.levels.Max()
	} else {
		item = s.levels.Min()
	}
	if item == nil {
		return nil
	}
	return item.(*PriceLevel)
}

// Worst returns the last level in priority order, nil when empty.
func (s *OrderBookSide) Worst() *PriceLevel {
	var item btree.Item
	if s.side == types.SideBuy {
		item = s.levels.Min()
	} else {
		item = s.levels.Max()
	}
	if item == nil {
		return nil
	}
	return item.(*PriceLevel)
}

// Len returns the number of levels.
func (s *OrderBookSide) Len() int {
	return s.levels.Len()
}

// TotalVolume returns the side-wide resting volume.
func (s *OrderBookSide) TotalVolume() decimal.Decimal {
	return s.totalVolume
}

// Quotes returns the aggregate of every level, best-first.
func (s *OrderBookSide) Quotes() []types.Quote {
	quotes := make([]types.Quote, 0, s.levels.Len())
	s.walk(func(level *PriceLevel) bool {
		quotes = append(quotes, level.quote())
		return true
	})
	return quotes
}
