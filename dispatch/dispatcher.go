package dispatch

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/abzanganeh/mlsite/cache"
	"github.com/abzanganeh/mlsite/observe"
	"github.com/abzanganeh/mlsite/resilience"
)

// DispatcherConfig configures the dispatcher.
type DispatcherConfig struct {
	// GenerationTimeout bounds a single generator call. A timed-out
	// generation is treated identically to a failure: nothing is
	// cached.
	// Default: 30 seconds
	GenerationTimeout time.Duration

	// TTLOverride, when positive, replaces the policy TTL for stored
	// artifacts. Zero uses the policy's visualization TTL.
	TTLOverride time.Duration
}

// Dispatcher routes typed generation requests through the artifact
// store. Concurrent requests for the same never-before-seen identity
// are collapsed: only one generation runs and all waiters share its
// outcome, success or failure.
type Dispatcher struct {
	config   DispatcherConfig
	store    cache.Store
	keyer    cache.Keyer
	policy   cache.Policy
	registry *Registry
	timeout  *resilience.Timeout
	metrics  observe.Metrics
	logger   observe.Logger
	group    singleflight.Group
}

// NewDispatcher creates a dispatcher over the given store and registry.
// Nil metrics or logger default to no-ops.
func NewDispatcher(config DispatcherConfig, store cache.Store, keyer cache.Keyer, policy cache.Policy, registry *Registry, metrics observe.Metrics, logger observe.Logger) (*Dispatcher, error) {
	if store == nil {
		return nil, cache.ErrNilStore
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if registry == nil {
		registry = NewRegistry()
	}
	if metrics == nil {
		metrics = observe.NopMetrics()
	}
	if logger == nil {
		logger = observe.NopLogger()
	}
	if config.GenerationTimeout <= 0 {
		config.GenerationTimeout = 30 * time.Second
	}

	return &Dispatcher{
		config:   config,
		store:    store,
		keyer:    keyer,
		policy:   policy,
		registry: registry,
		timeout:  resilience.NewTimeout(resilience.TimeoutConfig{Timeout: config.GenerationTimeout}),
		metrics:  metrics,
		logger:   logger.With(observe.F("component", "dispatch")),
	}, nil
}

// dispatchResult carries a generation outcome through singleflight.
type dispatchResult struct {
	payload []byte
	hit     bool
}

// Dispatch resolves a generation request: derive the identity, serve
// from the store when present, otherwise invoke the registered
// generator and store the result. Failed or timed-out generations are
// returned to the caller and never cached.
//
// Collapsed requests run under the first caller's context: cancelling
// that request fails every waiter sharing the flight. Waiters retry on
// a fresh request, which starts a new flight.
func (d *Dispatcher) Dispatch(ctx context.Context, typ Type, params map[string]any) ([]byte, error) {
	gen, ok := d.registry.Lookup(typ)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}

	identity, err := d.keyer.Key("visualization:"+string(typ), params)
	if err != nil {
		return nil, fmt.Errorf("dispatch: derive identity: %w", err)
	}

	v, err, _ := d.group.Do(identity, func() (any, error) {
		return d.resolve(ctx, typ, identity, params, gen)
	})
	if err != nil {
		return nil, err
	}

	res := v.(*dispatchResult)
	d.metrics.RecordCacheLookup(ctx, cache.CategoryVisualization, res.hit)
	return res.payload, nil
}

func (d *Dispatcher) resolve(ctx context.Context, typ Type, identity string, params map[string]any, gen Generator) (*dispatchResult, error) {
	entry, ok, err := d.store.Get(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("dispatch: cache read: %w", err)
	}
	if ok {
		d.logger.Debug(ctx, "cache hit", observe.F("identity", identity), observe.F("type", string(typ)))
		return &dispatchResult{payload: entry.Payload, hit: true}, nil
	}

	start := time.Now()
	var payload []byte
	genErr := d.timeout.Execute(ctx, func(ctx context.Context) error {
		var err error
		payload, err = gen(ctx, params)
		return err
	})
	d.metrics.RecordGeneration(ctx, string(typ), time.Since(start), genErr)

	if genErr != nil {
		// Failures are never cached.
		d.logger.Warn(ctx, "generation failed",
			observe.F("type", string(typ)),
			observe.F("identity", identity),
			observe.F("error", genErr.Error()),
		)
		return nil, fmt.Errorf("dispatch: generate %s: %w", typ, genErr)
	}

	ttl := d.policy.EffectiveTTL(cache.CategoryVisualization, d.config.TTLOverride)
	if err := d.store.Put(ctx, identity, payload, cache.CategoryVisualization, ttl); err != nil {
		// The artifact is good; a failed write only costs a future
		// regeneration.
		d.logger.Warn(ctx, "cache write failed",
			observe.F("identity", identity),
			observe.F("error", err.Error()),
		)
	}

	return &dispatchResult{payload: payload}, nil
}

// Types returns the generation types this dispatcher can serve.
func (d *Dispatcher) Types() []Type {
	return d.registry.Types()
}
