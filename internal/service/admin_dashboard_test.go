package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/homeservices-portal/internal/domain"
	"github.com/spec-kit/homeservices-portal/internal/events"
	"github.com/spec-kit/homeservices-portal/internal/review"
	apperrors "github.com/spec-kit/homeservices-portal/pkg/util"
)

type staticLists struct {
	reportsErr error
	started    chan struct{}
	release    chan struct{}
}

func (s *staticLists) ListRegistrationRequests(context.Context) ([]domain.RegistrationRequest, error) {
	if s.started != nil {
		s.started <- struct{}{}
		<-s.release
	}
	return []domain.RegistrationRequest{{ID: "1", Status: domain.RequestStatusPending}}, nil
}

func (s *staticLists) ApproveRegistration(context.Context, string) (domain.ActionResult[domain.RegistrationRequest], error) {
	return domain.ActionResult[domain.RegistrationRequest]{}, nil
}

func (s *staticLists) RejectRegistration(context.Context, string) (domain.ActionResult[domain.RegistrationRequest], error) {
	return domain.ActionResult[domain.RegistrationRequest]{}, nil
}

func (s *staticLists) ListReports(context.Context) ([]domain.Report, error) {
	if s.started != nil {
		s.started <- struct{}{}
		<-s.release
	}
	if s.reportsErr != nil {
		return nil, s.reportsErr
	}
	return []domain.Report{{ID: "r1", Status: domain.ReportStatusOpen}}, nil
}

func (s *staticLists) ResolveReport(context.Context, string) (domain.ActionResult[domain.Report], error) {
	return domain.ActionResult[domain.Report]{}, nil
}

func (s *staticLists) DismissReport(context.Context, string) (domain.ActionResult[domain.Report], error) {
	return domain.ActionResult[domain.Report]{}, nil
}

func newDashboard(lists *staticLists) *AdminDashboard {
	return newDashboardOn(lists, nil)
}

func newDashboardOn(lists *staticLists, dispatcher events.Dispatcher) *AdminDashboard {
	opts := review.Options{Interval: time.Hour}
	return NewAdminDashboard(review.NewRegistrations(lists, opts), review.NewReports(lists, opts), dispatcher, nil)
}

func TestMountLoadsBothListsConcurrently(t *testing.T) {
	lists := &staticLists{started: make(chan struct{}, 2), release: make(chan struct{})}
	dashboard := newDashboard(lists)

	done := make(chan error, 1)
	go func() { done <- dashboard.Mount(context.Background()) }()

	// both loads must be in flight before either is released
	<-lists.started
	<-lists.started
	close(lists.release)

	require.NoError(t, <-done)
	assert.True(t, dashboard.Mounted())
	assert.Len(t, dashboard.Registrations.Items(), 1)
	assert.Len(t, dashboard.Reports.Items(), 1)

	dashboard.Unmount()
	dashboard.Unmount()
	assert.False(t, dashboard.Mounted())
}

func TestMountSurvivesPartialFailure(t *testing.T) {
	dashboard := newDashboard(&staticLists{reportsErr: errors.New("reports down")})

	err := dashboard.Mount(context.Background())

	assert.EqualError(t, err, "reports down")
	assert.True(t, dashboard.Mounted())
	assert.Len(t, dashboard.Registrations.Items(), 1)
	assert.Empty(t, dashboard.Reports.Items())
	dashboard.Unmount()
}

func TestSessionChangeEmptiesDashboard(t *testing.T) {
	for _, eventType := range []events.EventType{events.EventSessionCleared, events.EventSessionEstablished} {
		t.Run(string(eventType), func(t *testing.T) {
			dispatcher := events.NewInMemoryDispatcher()
			dashboard := newDashboardOn(&staticLists{}, dispatcher)
			dashboard.RegisterHandlers()
			require.NoError(t, dashboard.Mount(context.Background()))
			require.Len(t, dashboard.Registrations.Items(), 1)

			_ = dispatcher.Publish(context.Background(), events.New(eventType, "", nil))

			assert.False(t, dashboard.Mounted())
			assert.Empty(t, dashboard.Registrations.Items())
			assert.Empty(t, dashboard.Reports.Items())
			assert.False(t, dashboard.Reports.View().Loaded)
		})
	}
}

func TestSessionLostDuringMountLeavesDashboardUnmounted(t *testing.T) {
	lists := &staticLists{started: make(chan struct{}, 2), release: make(chan struct{})}
	dispatcher := events.NewInMemoryDispatcher()
	dashboard := newDashboardOn(lists, dispatcher)
	dashboard.RegisterHandlers()

	done := make(chan error, 1)
	go func() { done <- dashboard.Mount(context.Background()) }()
	<-lists.started
	<-lists.started

	_ = dispatcher.Publish(context.Background(), events.New(events.EventSessionCleared, "", events.SessionClearedPayload{Reason: "authentication failure"}))
	close(lists.release)

	err := <-done
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthenticated))
	assert.False(t, dashboard.Mounted())
	assert.Empty(t, dashboard.Registrations.Items())
	assert.Empty(t, dashboard.Reports.Items())
}
