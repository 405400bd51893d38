package health

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/abzanganeh/mlsite/cache"
)

// ProbeConfig configures the health probe.
type ProbeConfig struct {
	// Timeout bounds one full probe run.
	// Default: 5 seconds
	Timeout time.Duration
}

// Probe runs the site's dependency checks and folds their results into
// a single report. Checks run concurrently; a check that outlives the
// probe timeout is reported unhealthy without waiting for it.
type Probe struct {
	config ProbeConfig
	mu     sync.RWMutex
	checks map[string]Checker
	order  []string
}

// NewProbe creates an empty probe.
func NewProbe(config ...ProbeConfig) *Probe {
	cfg := ProbeConfig{Timeout: 5 * time.Second}
	if len(config) > 0 {
		cfg = config[0]
		if cfg.Timeout <= 0 {
			cfg.Timeout = 5 * time.Second
		}
	}
	return &Probe{
		config: cfg,
		checks: make(map[string]Checker),
	}
}

// SiteProbe wires the site's standard checks: the database handle
// behind the stores and the artifact cache's sweep backlog.
func SiteProbe(db *sql.DB, store cache.Store) *Probe {
	p := NewProbe()
	p.Register("database", NewStorageChecker(db))
	p.Register("cache", NewCacheChecker(CacheCheckerConfig{}, store))
	return p
}

// Register adds a check under name, replacing any previous one.
func (p *Probe) Register(name string, checker Checker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.checks[name]; !ok {
		p.order = append(p.order, name)
	}
	p.checks[name] = checker
}

// Names returns the registered check names in registration order.
func (p *Probe) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	names := make([]string, len(p.order))
	copy(names, p.order)
	return names
}

// Report is one probe run's folded outcome. Status is the worst of the
// service statuses; an empty probe is healthy.
type Report struct {
	Status   Status
	Services map[string]Result
	Checked  time.Time
}

// Run executes every registered check and folds the results.
func (p *Probe) Run(ctx context.Context) Report {
	p.mu.RLock()
	checks := make(map[string]Checker, len(p.checks))
	for name, checker := range p.checks {
		checks[name] = checker
	}
	p.mu.RUnlock()

	report := Report{
		Status:   StatusHealthy,
		Services: make(map[string]Result, len(checks)),
		Checked:  time.Now().UTC(),
	}
	if len(checks) == 0 {
		return report
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	var wg sync.WaitGroup
	var mu sync.Mutex
	for name, checker := range checks {
		wg.Add(1)
		go func(name string, checker Checker) {
			defer wg.Done()
			result := p.runCheck(ctx, checker)
			mu.Lock()
			report.Services[name] = result
			mu.Unlock()
		}(name, checker)
	}
	wg.Wait()

	for _, result := range report.Services {
		report.Status = worse(report.Status, result.Status)
	}
	return report
}

// Check runs a single named check.
func (p *Probe) Check(ctx context.Context, name string) (Result, error) {
	p.mu.RLock()
	checker, ok := p.checks[name]
	p.mu.RUnlock()
	if !ok {
		return Result{}, ErrUnknownCheck
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()
	return p.runCheck(ctx, checker), nil
}

func (p *Probe) runCheck(ctx context.Context, checker Checker) Result {
	start := time.Now()
	resultCh := make(chan Result, 1)

	go func() {
		result := checker.Check(ctx)
		result.Duration = time.Since(start)
		resultCh <- result
	}()

	select {
	case result := <-resultCh:
		return result
	case <-ctx.Done():
		result := Unhealthy("check timed out", ErrCheckTimeout)
		result.Duration = time.Since(start)
		return result
	}
}
