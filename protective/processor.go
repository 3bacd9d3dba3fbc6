package protective

import (
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/forgequant/emulator/types"
)

// ErrTrailingNotSupported rejects stop levels a trailing watcher cannot
// re-anchor.
var ErrTrailingNotSupported = errors.New("protective: trailing is not supported for limit units")

// Processor watches one protective level for one open position. isUpTrend
// says which way the trigger fires: true activates when the price rises to
// the level, false when it falls to it. A take on a long position and a
// stop on a short are up-trend watchers; the mirrors are down-trend.
type Processor struct {
	side            types.Side
	entryPrice      decimal.Decimal
	isUpTrend       bool
	isTrailing      bool
	level           types.Unit
	useMarketOrders bool
	priceOffset     types.Unit
	timeout         time.Duration
	startTime       time.Time

	activationPrice decimal.Decimal
	// extreme is the best price seen so far, the anchor a trailing level
	// follows.
	extreme *decimal.Decimal
}

// NewProcessor builds a watcher for a position entered on side at price.
func NewProcessor(
	side types.Side,
	price decimal.Decimal,
	isUpTrend bool,
	isTrailing bool,
	level types.Unit,
	useMarketOrders bool,
	priceOffset types.Unit,
	timeout time.Duration,
	startTime time.Time,
) (*Processor, error) {
	if isTrailing && level.Type == types.UnitLimit {
		return nil, ErrTrailingNotSupported
	}
	if timeout < 0 {
		return nil, errors.New("protective: negative timeout")
	}

	p := &Processor{
		side:            side,
		entryPrice:      price,
		isUpTrend:       isUpTrend,
		isTrailing:      isTrailing,
		level:           level,
		useMarketOrders: useMarketOrders,
		priceOffset:     priceOffset,
		timeout:         timeout,
		startTime:       startTime,
	}
	p.activationPrice = p.resolveLevel(price)
	return p, nil
}

// resolveLevel turns the unit into a concrete price against the given
// anchor. Up-trend levels sit above the anchor, down-trend below.
func (p *Processor) resolveLevel(anchor decimal.Decimal) decimal.Decimal {
	sign := int64(-1)
	if p.isUpTrend {
		sign = 1
	}
	return p.level.ApplyTo(anchor, sign)
}

// ActivationLevel returns the price the watcher currently triggers at.
func (p *Processor) ActivationLevel() decimal.Decimal {
	return p.activationPrice
}

// GetActivationPrice returns the price to close at once the level (or the
// timeout) is hit, nil while the watcher stays quiet. Market-order mode
// reports a zero price.
func (p *Processor) GetActivationPrice(price decimal.Decimal, t time.Time) *decimal.Decimal {
	if p.isTrailing {
		// ratchet the anchor in the profitable direction; the level only
		// ever moves with it, never back
		if p.extreme == nil {
			e := p.entryPrice
			p.extreme = &e
		}
		moved := false
		if p.isUpTrend {
			if price.LessThan(*p.extreme) {
				*p.extreme = price
				moved = true
			}
		} else if price.GreaterThan(*p.extreme) {
			*p.extreme = price
			moved = true
		}
		if moved {
			p.activationPrice = p.resolveLevel(*p.extreme)
		}
	}

	triggered := false
	if p.isUpTrend {
		triggered = price.GreaterThanOrEqual(p.activationPrice)
	} else {
		triggered = price.LessThanOrEqual(p.activationPrice)
	}

	if !triggered && p.timeout > 0 && t.Sub(p.startTime) >= p.timeout {
		// a timed-out watcher only fires once the price is at least on the
		// favorable side of the entry
		if p.isUpTrend {
			triggered = price.GreaterThanOrEqual(p.entryPrice)
		} else {
			triggered = price.LessThanOrEqual(p.entryPrice)
		}
	}

	if !triggered {
		return nil
	}

	if p.useMarketOrders {
		zero := decimal.Zero
		return &zero
	}

	// slide the close price by the offset so the exit order can fill
	sign := int64(1)
	if p.side == types.SideBuy {
		// closing a long sells, the offset moves the price down
		sign = -1
	}
	out := p.priceOffset.ApplyTo(price, sign)
	return &out
}
