package positions

import (
	"github.com/forgequant/emulator/logging"
)

// Provider hands out one PositionController per portfolio, all sharing the
// same commission manager and lookup collaborators.
type Provider struct {
	Config

	log *logging.Logger

	commissions           CommissionManager
	getSecurityDefinition SecurityDefinitionFunc
	getMarginPrice        MarginPriceFunc

	controllers map[string]*PositionController
}

// NewProvider ...
func NewProvider(
	log *logging.Logger,
	config Config,
	commissions CommissionManager,
	getSecurityDefinition SecurityDefinitionFunc,
	getMarginPrice MarginPriceFunc,
) *Provider {
	if commissions == nil || getSecurityDefinition == nil || getMarginPrice == nil {
		panic("positions: nil collaborator")
	}

	return &Provider{
		Config:                config,
		log:                   log,
		commissions:           commissions,
		getSecurityDefinition: getSecurityDefinition,
		getMarginPrice:        getMarginPrice,
		controllers:           map[string]*PositionController{},
	}
}

// GetController returns the portfolio's controller, creating it on first
// use.
func (p *Provider) GetController(portfolio string) *PositionController {
	controller, ok := p.controllers[portfolio]
	if !ok {
		controller = NewPositionController(
			p.log, p.Config, portfolio,
			p.commissions, p.getSecurityDefinition, p.getMarginPrice,
		)
		p.controllers[portfolio] = controller
	}
	return controller
}

// TryGetController returns the portfolio's controller without creating one.
func (p *Provider) TryGetController(portfolio string) (*PositionController, bool) {
	controller, ok := p.controllers[portfolio]
	return controller, ok
}

// Portfolios lists the known portfolio names.
func (p *Provider) Portfolios() []string {
	names := make([]string, 0, len(p.controllers))
	for name := range p.controllers {
		names = append(names, name)
	}
	return names
}
