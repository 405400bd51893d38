package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
)

// Sweeper periodically removes expired entries from a store. It is the
// only background activity in the system and is entirely optional;
// SweepExpired can also be invoked on demand through the maintenance
// surface.
type Sweeper struct {
	store     Store
	interval  time.Duration
	timeout   time.Duration
	scheduler *gocron.Scheduler

	// OnSweep, if set, is called after every sweep with the removed
	// count or the error.
	OnSweep func(removed int, err error)
}

// NewSweeper creates a sweeper that runs SweepExpired every interval.
// A non-positive interval defaults to 10 minutes.
func NewSweeper(store Store, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Sweeper{
		store:    store,
		interval: interval,
		timeout:  30 * time.Second,
	}
}

// Start schedules the sweep job and returns once it is running.
func (s *Sweeper) Start() error {
	if s.store == nil {
		return ErrNilStore
	}
	if s.scheduler != nil {
		return fmt.Errorf("cache: sweeper already started")
	}

	sched := gocron.NewScheduler(time.UTC)
	if _, err := sched.Every(s.interval).Do(s.sweep); err != nil {
		return fmt.Errorf("cache: schedule sweep: %w", err)
	}
	sched.StartAsync()
	s.scheduler = sched
	return nil
}

// Stop halts the scheduled sweeps. Idempotent.
func (s *Sweeper) Stop() {
	if s.scheduler == nil {
		return
	}
	s.scheduler.Stop()
	s.scheduler = nil
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	removed, err := s.store.SweepExpired(ctx)
	if s.OnSweep != nil {
		s.OnSweep(removed, err)
	}
}
