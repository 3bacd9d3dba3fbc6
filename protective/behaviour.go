package protective

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/forgequant/emulator/logging"
	"github.com/forgequant/emulator/types"
)

// Activation describes a fired protective level: the side and size of the
// closing order and the price to close at (zero in market-order mode).
type Activation struct {
	Portfolio string
	IsTake    bool
	Side      types.Side
	Price     decimal.Decimal
	Volume    decimal.Decimal
}

// BehaviourFactory builds position watchers for one security.
type BehaviourFactory interface {
	// Create builds a Behaviour guarding a position with the given take and
	// stop levels. Nil levels are not watched.
	Create(
		take, stop *types.Unit,
		isTrailing bool,
		takeTimeout, stopTimeout time.Duration,
		useMarketOrders bool,
	) (*Behaviour, error)
}

// LocalBehaviourFactory builds behaviours carrying the security's tick
// geometry so every computed level lands on a valid price.
type LocalBehaviourFactory struct {
	log       *logging.Logger
	priceStep decimal.Decimal
	decimals  int32
}

// NewLocalBehaviourFactory ...
func NewLocalBehaviourFactory(log *logging.Logger, priceStep decimal.Decimal, decimals int32) *LocalBehaviourFactory {
	return &LocalBehaviourFactory{
		log:       log,
		priceStep: priceStep,
		decimals:  decimals,
	}
}

// Create implements BehaviourFactory.
func (f *LocalBehaviourFactory) Create(
	take, stop *types.Unit,
	isTrailing bool,
	takeTimeout, stopTimeout time.Duration,
	useMarketOrders bool,
) (*Behaviour, error) {
	if isTrailing && stop != nil && stop.Type == types.UnitLimit {
		return nil, ErrTrailingNotSupported
	}

	return &Behaviour{
		log:             f.log,
		priceStep:       f.priceStep,
		decimals:        f.decimals,
		take:            take,
		stop:            stop,
		isTrailing:      isTrailing,
		takeTimeout:     takeTimeout,
		stopTimeout:     stopTimeout,
		useMarketOrders: useMarketOrders,
	}, nil
}

type positionLot struct {
	price  decimal.Decimal
	volume decimal.Decimal
}

// Behaviour tracks one protected position: own trades move the position
// through Update, every move re-anchors the take and stop watchers on the
// new average entry price, and TryActivate asks both watchers against the
// latest market price.
type Behaviour struct {
	log       *logging.Logger
	priceStep decimal.Decimal
	decimals  int32

	take            *types.Unit
	stop            *types.Unit
	isTrailing      bool
	takeTimeout     time.Duration
	stopTimeout     time.Duration
	useMarketOrders bool

	// lots are FIFO and all share the position's sign.
	lots []positionLot
	long bool

	takeProcessor *Processor
	stopProcessor *Processor
}

// Position returns the signed net position.
func (b *Behaviour) Position() decimal.Decimal {
	total := decimal.Zero
	for _, lot := range b.lots {
		total = total.Add(lot.volume)
	}
	if !b.long {
		total = total.Neg()
	}
	return total
}

// EntryPrice returns the volume weighted average price of the open lots,
// zero when flat.
func (b *Behaviour) EntryPrice() decimal.Decimal {
	volume := decimal.Zero
	notional := decimal.Zero
	for _, lot := range b.lots {
		volume = volume.Add(lot.volume)
		notional = notional.Add(lot.price.Mul(lot.volume))
	}
	if volume.IsZero() {
		return decimal.Zero
	}
	return notional.Div(volume)
}

// Update folds one own trade into the position: positive volume buys,
// negative sells. Reductions retire the oldest lots first; a remainder past
// zero flips the position and opens its basis at the trade price. Zero or
// negative prices are a caller bug.
func (b *Behaviour) Update(price, volume decimal.Decimal, t time.Time) *Activation {
	if !price.IsPositive() {
		b.log.Panic("protective update with non-positive price",
			logging.Decimal("price", price))
	}
	if volume.IsZero() {
		return nil
	}

	buy := volume.IsPositive()
	left := volume.Abs()

	if len(b.lots) != 0 && b.long != buy {
		for left.IsPositive() && len(b.lots) > 0 {
			lot := &b.lots[0]
			matched := decimal.Min(lot.volume, left)
			left = left.Sub(matched)
			lot.volume = lot.volume.Sub(matched)
			if lot.volume.IsZero() {
				b.lots = b.lots[1:]
			}
		}
	}

	if left.IsPositive() {
		b.long = buy
		b.lots = append(b.lots, positionLot{price: price, volume: left})
	}

	b.rebuild(t)

	return nil
}

// rebuild re-anchors both watchers on the current position, dropping them
// when flat. A trailing stop restarts its ratchet from the new basis.
func (b *Behaviour) rebuild(t time.Time) {
	b.takeProcessor = nil
	b.stopProcessor = nil

	if len(b.lots) == 0 {
		return
	}

	entry := b.shrinkPrice(b.EntryPrice())

	side := types.SideSell
	if b.long {
		side = types.SideBuy
	}

	if b.take != nil {
		// the take profits with the trend: above entry on a long, below on
		// a short; a limit unit keeps the upward default
		isUpTrend := b.long || b.take.Type == types.UnitLimit

		p, err := NewProcessor(side, entry, isUpTrend, false, *b.take,
			b.useMarketOrders, types.Unit{}, b.takeTimeout, t)
		if err != nil {
			b.log.Panic("protective take watcher rejected its level",
				logging.Error(err))
		}
		b.takeProcessor = p
	}

	if b.stop != nil {
		isUpTrend := !b.long && b.stop.Type != types.UnitLimit

		p, err := NewProcessor(side, entry, isUpTrend, b.isTrailing, *b.stop,
			b.useMarketOrders, types.Unit{}, b.stopTimeout, t)
		if err != nil {
			b.log.Panic("protective stop watcher rejected its level",
				logging.Error(err))
		}
		b.stopProcessor = p
	}
}

// TryActivate checks the take first, then the stop, against the given
// market price. A hit returns the closing order parameters and leaves the
// position untouched until the close trades back through Update.
func (b *Behaviour) TryActivate(price decimal.Decimal, t time.Time) *Activation {
	pos := b.Position()
	if pos.IsZero() {
		return nil
	}

	if b.takeProcessor != nil {
		if activationPrice := b.takeProcessor.GetActivationPrice(price, t); activationPrice != nil {
			return b.activation(true, pos, *activationPrice)
		}
	}

	if b.stopProcessor != nil {
		if activationPrice := b.stopProcessor.GetActivationPrice(price, t); activationPrice != nil {
			return b.activation(false, pos, *activationPrice)
		}
	}

	return nil
}

func (b *Behaviour) activation(isTake bool, pos, price decimal.Decimal) *Activation {
	side := types.SideSell
	if pos.IsNegative() {
		side = types.SideBuy
	}
	return &Activation{
		IsTake: isTake,
		Side:   side,
		Price:  b.shrinkPrice(price),
		Volume: pos.Abs(),
	}
}

// shrinkPrice snaps a computed price onto the security's tick grid.
func (b *Behaviour) shrinkPrice(price decimal.Decimal) decimal.Decimal {
	if !b.priceStep.IsZero() {
		price = price.Div(b.priceStep).Round(0).Mul(b.priceStep)
	}
	return price.Round(b.decimals)
}
