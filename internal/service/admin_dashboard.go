package service

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/homeservices-portal/internal/domain"
	"github.com/spec-kit/homeservices-portal/internal/events"
	"github.com/spec-kit/homeservices-portal/internal/review"
	apperrors "github.com/spec-kit/homeservices-portal/pkg/util"
)

// AdminDashboard owns the two pending lists an admin works from. The lists belong to
// one session: a sign-in, sign-out or lost session unmounts and empties them.
type AdminDashboard struct {
	Registrations *review.Synchronizer[domain.RegistrationRequest]
	Reports       *review.Synchronizer[domain.Report]
	dispatcher    events.Dispatcher
	logger        *zap.Logger

	mu         sync.Mutex
	mounted    bool
	generation uint64
}

// NewAdminDashboard creates the dashboard.
func NewAdminDashboard(registrations *review.Synchronizer[domain.RegistrationRequest], reports *review.Synchronizer[domain.Report], dispatcher events.Dispatcher, logger *zap.Logger) *AdminDashboard {
	if dispatcher == nil {
		dispatcher = events.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminDashboard{Registrations: registrations, Reports: reports, dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers resets the lists whenever the session changes.
func (d *AdminDashboard) RegisterHandlers() {
	d.dispatcher.Subscribe(events.EventSessionEstablished, d.handleSessionChange)
	d.dispatcher.Subscribe(events.EventSessionCleared, d.handleSessionChange)
}

func (d *AdminDashboard) handleSessionChange(context.Context, events.Event) error {
	d.Reset()
	return nil
}

// Mount loads both lists concurrently and starts their background refresh.
// A failed initial load keeps the list empty but still refreshing.
func (d *AdminDashboard) Mount(ctx context.Context) error {
	d.mu.Lock()
	gen := d.generation
	d.mu.Unlock()

	var g errgroup.Group
	g.Go(func() error {
		_, err := d.Registrations.Load(ctx)
		return err
	})
	g.Go(func() error {
		_, err := d.Reports.Load(ctx)
		return err
	})
	err := g.Wait()
	if err != nil {
		d.logger.Warn("admin dashboard initial load incomplete", zap.Error(err))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.generation {
		return apperrors.NewUnauthenticated("session changed while the dashboard was loading")
	}
	if !d.mounted {
		d.Registrations.Start()
		d.Reports.Start()
		d.mounted = true
	}
	return err
}

// Unmount stops background refresh. Requests already sent still land.
func (d *AdminDashboard) Unmount() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
}

// Reset unmounts the dashboard and empties both lists.
func (d *AdminDashboard) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.generation++
	d.stopLocked()
	d.Registrations.Reset()
	d.Reports.Reset()
}

func (d *AdminDashboard) stopLocked() {
	if !d.mounted {
		return
	}
	d.Registrations.Stop()
	d.Reports.Stop()
	d.mounted = false
}

// Mounted reports whether background refresh is running.
func (d *AdminDashboard) Mounted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mounted
}
