package adapter

import (
	"sync"

	"tradecopier/internal/models"
)

type registryKey struct {
	platform models.Platform
	firm     models.Firm
}

// Factory builds a new Adapter instance for one (platform, firm) pair.
type Factory func() Adapter

// Registry resolves (platform, firm) pairs to adapter instances. It is
// process-wide state initialised at startup and not mutated by request
// paths, per the concurrency model; it may be rebuilt wholesale when
// UseRealAdapters flips between mock and real.
type Registry struct {
	mu       sync.RWMutex
	mock     bool
	factories map[registryKey]Factory
	instances map[registryKey]Adapter
}

// NewRegistry seeds the registry with the platform/firm mappings the
// Adapter Registry names: RITHMIC<->{TOPSTEPX, TAKEPROFIT_TRADER,
// MYFUNDED_FUTURES, ALPHA_FUTURES, TRADEFY}, PROJECTX<->TOPSTEPX,
// TRADOVATE<->{TAKEPROFIT_TRADER, MYFUNDED_FUTURES},
// NINJATRADER<->{TAKEPROFIT_TRADER, MYFUNDED_FUTURES}.
func NewRegistry(useMock bool, cache DiscoveryCache, requestsPerMinute int, endpoints EndpointOverrides) *Registry {
	r := &Registry{
		mock:      useMock,
		factories: make(map[registryKey]Factory),
		instances: make(map[registryKey]Adapter),
	}

	register := func(platform models.Platform, firm models.Firm, real Factory) {
		if useMock {
			r.factories[registryKey{platform, firm}] = func() Adapter { return NewMockAdapter(platform, firm) }
			return
		}
		r.factories[registryKey{platform, firm}] = real
	}

	rithmicFirms := []models.Firm{models.FirmTopstepX, models.FirmTakeProfitTrader, models.FirmMyFundedFutures, models.FirmAlphaFutures, models.FirmTradefy}
	for _, firm := range rithmicFirms {
		firm := firm
		register(models.PlatformRithmic, firm, func() Adapter {
			return NewRithmicAdapter(firm, cache, requestsPerMinute, endpoints.For(models.PlatformRithmic, firm))
		})
	}

	register(models.PlatformProjectX, models.FirmTopstepX, func() Adapter {
		return NewProjectXAdapter(models.FirmTopstepX, cache, requestsPerMinute, endpoints.For(models.PlatformProjectX, models.FirmTopstepX))
	})

	tradovateFirms := []models.Firm{models.FirmTakeProfitTrader, models.FirmMyFundedFutures}
	for _, firm := range tradovateFirms {
		firm := firm
		register(models.PlatformTradovate, firm, func() Adapter {
			return NewTradovateAdapter(firm, cache, requestsPerMinute, endpoints.For(models.PlatformTradovate, firm))
		})
	}

	ninjaFirms := []models.Firm{models.FirmTakeProfitTrader, models.FirmMyFundedFutures}
	for _, firm := range ninjaFirms {
		firm := firm
		register(models.PlatformNinjaTrader, firm, func() Adapter {
			return NewNinjaTraderAdapter(firm, cache, requestsPerMinute, endpoints.For(models.PlatformNinjaTrader, firm))
		})
	}

	return r
}

// GetAdapter resolves to one instance per (platform, firm) pair, built on
// first use and reused afterwards, in both mock and real mode; mock mode
// does not share a single instance across pairs. It fails with
// UnknownAdapterError if no mapping exists.
func (r *Registry) GetAdapter(platform models.Platform, firm models.Firm) (Adapter, error) {
	key := registryKey{platform, firm}

	r.mu.RLock()
	if inst, ok := r.instances[key]; ok {
		r.mu.RUnlock()
		return inst, nil
	}
	factory, ok := r.factories[key]
	r.mu.RUnlock()
	if !ok {
		return nil, &models.UnknownAdapterError{Platform: platform, Firm: firm}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if inst, ok := r.instances[key]; ok {
		return inst, nil
	}
	inst := factory()
	r.instances[key] = inst
	return inst, nil
}

// Rebuild swaps the registry between mock and real mode, discarding all
// cached instances so the next GetAdapter call constructs fresh ones.
func (r *Registry) Rebuild(useMock bool, cache DiscoveryCache, requestsPerMinute int, endpoints EndpointOverrides) {
	fresh := NewRegistry(useMock, cache, requestsPerMinute, endpoints)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mock = fresh.mock
	r.factories = fresh.factories
	r.instances = make(map[registryKey]Adapter)
}
