// Package cron runs the periodic idle-session sweep on a standard cron
// expression.
package cron

import (
	"fmt"
	"sync"
	"time"

	"github.com/adhocore/gronx"
)

// Scheduler evaluates a cron expression once a minute and invokes fn on
// every due tick.
type Scheduler struct {
	expr     string
	fn       func()
	interval time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

// NewScheduler validates expr and returns a stopped scheduler.
func NewScheduler(expr string, fn func()) (*Scheduler, error) {
	if !gronx.New().IsValid(expr) {
		return nil, fmt.Errorf("cron: invalid expression %q", expr)
	}
	if fn == nil {
		return nil, fmt.Errorf("cron: nil sweep func")
	}
	return &Scheduler{
		expr:     expr,
		fn:       fn,
		interval: time.Minute,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start launches the tick loop. Call Stop to shut it down.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop terminates the tick loop and waits for it to exit. Idempotent.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case now := <-ticker.C:
			due, err := gronx.New().IsDue(s.expr, now)
			if err != nil || !due {
				continue
			}
			s.fn()
		}
	}
}
