package protective

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/forgequant/emulator/logging"
	"github.com/forgequant/emulator/types"
)

type behaviourKey struct {
	securityID types.SecurityID
	portfolio  string
}

// Controller owns one Behaviour per (security, portfolio) pair and fans
// market prices into all watchers of a security.
type Controller struct {
	Config

	log        *logging.Logger
	behaviours map[behaviourKey]*Behaviour
}

// NewController ...
func NewController(log *logging.Logger, config Config) *Controller {
	log = log.Named(namedLogger)
	log.SetLevel(config.Level.Get())

	return &Controller{
		Config:     config,
		log:        log,
		behaviours: map[behaviourKey]*Behaviour{},
	}
}

// GetController returns the behaviour guarding the pair, creating it
// through the factory on first use.
func (c *Controller) GetController(
	securityID types.SecurityID,
	portfolio string,
	factory BehaviourFactory,
	take, stop *types.Unit,
	isTrailing bool,
	takeTimeout, stopTimeout time.Duration,
	useMarketOrders bool,
) (*Behaviour, error) {
	key := behaviourKey{securityID: securityID, portfolio: portfolio}

	if behaviour, ok := c.behaviours[key]; ok {
		return behaviour, nil
	}

	behaviour, err := factory.Create(take, stop, isTrailing, takeTimeout, stopTimeout, useMarketOrders)
	if err != nil {
		return nil, err
	}

	c.behaviours[key] = behaviour
	return behaviour, nil
}

// TryGetController returns the pair's behaviour without creating one.
func (c *Controller) TryGetController(securityID types.SecurityID, portfolio string) (*Behaviour, bool) {
	behaviour, ok := c.behaviours[behaviourKey{securityID: securityID, portfolio: portfolio}]
	return behaviour, ok
}

// TryActivate offers a market price to every watcher of the security and
// collects the fired activations with their portfolios.
func (c *Controller) TryActivate(securityID types.SecurityID, price decimal.Decimal, t time.Time) []Activation {
	var fired []Activation

	for key, behaviour := range c.behaviours {
		if key.securityID != securityID {
			continue
		}
		if activation := behaviour.TryActivate(price, t); activation != nil {
			activation.Portfolio = key.portfolio
			fired = append(fired, *activation)

			if c.log.GetLevel() == logging.DebugLevel {
				c.log.Debug("protective level fired",
					logging.String("security-id", securityID.String()),
					logging.String("portfolio", key.portfolio),
					logging.Bool("take", activation.IsTake),
					logging.Decimal("price", activation.Price),
					logging.Decimal("volume", activation.Volume))
			}
		}
	}

	return fired
}

// Clear drops every behaviour.
func (c *Controller) Clear() {
	c.behaviours = map[behaviourKey]*Behaviour{}
}
