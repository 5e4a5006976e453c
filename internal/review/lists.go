package review

import (
	"context"

	"github.com/spec-kit/homeservices-portal/internal/domain"
)

// List names.
const (
	ListRegistrations = "registration_requests"
	ListReports       = "reports"
)

// Action names.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionResolve = "resolve"
	ActionDismiss = "dismiss"
)

// RegistrationBackend is the API surface behind the registration review list.
type RegistrationBackend interface {
	ListRegistrationRequests(ctx context.Context) ([]domain.RegistrationRequest, error)
	ApproveRegistration(ctx context.Context, id string) (domain.ActionResult[domain.RegistrationRequest], error)
	RejectRegistration(ctx context.Context, id string) (domain.ActionResult[domain.RegistrationRequest], error)
}

// ReportBackend is the API surface behind the moderation report list.
type ReportBackend interface {
	ListReports(ctx context.Context) ([]domain.Report, error)
	ResolveReport(ctx context.Context, id string) (domain.ActionResult[domain.Report], error)
	DismissReport(ctx context.Context, id string) (domain.ActionResult[domain.Report], error)
}

// NewRegistrations builds the pending provider registration list.
func NewRegistrations(backend RegistrationBackend, opts Options) *Synchronizer[domain.RegistrationRequest] {
	return New[domain.RegistrationRequest](ListRegistrations, backend.ListRegistrationRequests, map[string]Action[domain.RegistrationRequest]{
		ActionApprove: backend.ApproveRegistration,
		ActionReject:  backend.RejectRegistration,
	}, opts)
}

// NewReports builds the open report list.
func NewReports(backend ReportBackend, opts Options) *Synchronizer[domain.Report] {
	return New[domain.Report](ListReports, backend.ListReports, map[string]Action[domain.Report]{
		ActionResolve: backend.ResolveReport,
		ActionDismiss: backend.DismissReport,
	}, opts)
}
