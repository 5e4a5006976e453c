package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Poller runs a task on a fixed period while started.
// Each tick runs in its own goroutine on a context that Stop does not cancel, so a slow
// tick can be overtaken by the next one and still complete.
type Poller struct {
	name     string
	interval time.Duration
	task     func(context.Context)
	logger   *zap.Logger

	mu      sync.Mutex
	stop    chan struct{}
	stopped chan struct{}
}

// NewPoller builds a stopped Poller.
func NewPoller(name string, interval time.Duration, task func(context.Context), logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		name:     name,
		interval: interval,
		task:     task,
		logger:   logger.With(zap.String("poller", name)),
	}
}

// Start begins ticking. Starting a running poller is a no-op.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		return
	}
	p.stop = make(chan struct{})
	p.stopped = make(chan struct{})

	ticker := time.NewTicker(p.interval)
	go func(stop <-chan struct{}, stopped chan<- struct{}) {
		defer close(stopped)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				go p.task(context.Background())
			}
		}
	}(p.stop, p.stopped)
	p.logger.Debug("poller started", zap.Duration("interval", p.interval))
}

// Stop prevents future ticks. Ticks already running are left to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	stop, stopped := p.stop, p.stopped
	p.stop, p.stopped = nil, nil
	p.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-stopped
	p.logger.Debug("poller stopped")
}

// Running reports whether the poller is ticking.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stop != nil
}
