package onboarding

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/homeservices-portal/internal/apiclient"
	"github.com/spec-kit/homeservices-portal/internal/domain"
	"github.com/spec-kit/homeservices-portal/internal/events"
	"github.com/spec-kit/homeservices-portal/internal/navigation"
	"github.com/spec-kit/homeservices-portal/internal/session"
	"github.com/spec-kit/homeservices-portal/internal/worker"
	apperrors "github.com/spec-kit/homeservices-portal/pkg/util"
)

// Backend is the slice of the API client the onboarding flow uses.
type Backend interface {
	ProviderStatus(ctx context.Context) (domain.ProviderStatus, error)
	UploadDocuments(ctx context.Context, idProof, certification domain.Document) (*apiclient.UploadResult, error)
}

// RejectedNotice accompanies the status view of a rejected applicant.
const RejectedNotice = "Your provider registration was rejected."

// Options tunes a Machine. When Tokens is set, a status only counts for the session
// it was fetched under.
type Options struct {
	PollInterval time.Duration
	Tokens       *session.Store
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// Machine tracks one provider's onboarding state. The state only moves on backend
// evidence: a status response or an accepted upload.
type Machine struct {
	backend    Backend
	tokens     *session.Store
	dispatcher events.Dispatcher
	logger     *zap.Logger
	poller     *worker.Poller

	mu      sync.RWMutex
	status  domain.ProviderStatus
	known   bool
	epoch   uint64
	lastErr error
}

// New builds a Machine whose state is unknown until the first Refresh.
func New(backend Backend, opts Options) *Machine {
	if opts.Dispatcher == nil {
		opts.Dispatcher = events.Discard
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	m := &Machine{
		backend:    backend,
		tokens:     opts.Tokens,
		dispatcher: opts.Dispatcher,
		logger:     opts.Logger,
	}
	m.poller = worker.NewPoller("provider_status", opts.PollInterval, func(ctx context.Context) {
		if !m.providerSession() {
			return
		}
		_, _ = m.Refresh(ctx)
	}, opts.Logger)
	return m
}

// State returns the current onboarding state.
func (m *Machine) State() domain.OnboardingState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stateLocked(m.sessionEpoch())
}

// Status returns the last status the backend reported for the current session.
func (m *Machine) Status() (domain.ProviderStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.knownLocked(m.sessionEpoch()) {
		return domain.ProviderStatus{}, false
	}
	return m.status, true
}

func (m *Machine) sessionEpoch() uint64 {
	if m.tokens == nil {
		return 0
	}
	_, epoch, _ := m.tokens.Snapshot()
	return epoch
}

func (m *Machine) providerSession() bool {
	if m.tokens == nil {
		return true
	}
	sess, ok := m.tokens.Get()
	return ok && sess.Role == domain.RoleProvider
}

func (m *Machine) knownLocked(epoch uint64) bool {
	return m.known && m.epoch == epoch
}

func (m *Machine) stateLocked(epoch uint64) domain.OnboardingState {
	if !m.knownLocked(epoch) {
		return domain.OnboardingUnknown
	}
	return m.status.State()
}

// LastError is the error of the most recent failed refresh, cleared by a successful one.
func (m *Machine) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// Refresh re-queries the backend. On failure the last known status is kept.
func (m *Machine) Refresh(ctx context.Context) (domain.ProviderStatus, error) {
	epoch := m.sessionEpoch()
	status, err := m.backend.ProviderStatus(ctx)
	if err != nil {
		m.mu.Lock()
		m.lastErr = err
		var current domain.ProviderStatus
		if m.knownLocked(epoch) {
			current = m.status
		}
		m.mu.Unlock()
		m.logger.Warn("provider status refresh failed", zap.Error(err))
		return current, err
	}
	m.apply(ctx, status, epoch)
	return status, nil
}

// Submit uploads both documents. Either one missing or invalid fails locally
// without contacting the backend and leaves the state unchanged.
func (m *Machine) Submit(ctx context.Context, idProof, certification *domain.Document) error {
	if err := ValidateDocuments(idProof, certification); err != nil {
		return err
	}
	if m.State() == domain.OnboardingVerified {
		return apperrors.NewConflict("provider is already verified", nil)
	}

	epoch := m.sessionEpoch()
	if _, err := m.backend.UploadDocuments(ctx, *idProof, *certification); err != nil {
		m.logger.Warn("document upload failed", zap.Error(err))
		_ = m.dispatcher.Publish(ctx, events.New(events.EventUploadFailed, "", events.UploadFailedPayload{
			Message:   apperrors.ToDomainError(err).Message,
			Retryable: apperrors.IsRetryable(err),
		}))
		return err
	}
	m.apply(ctx, domain.ProviderStatus{}, epoch)
	return nil
}

// apply records status for the session of epoch. A response that arrives after the
// session changed is dropped.
func (m *Machine) apply(ctx context.Context, status domain.ProviderStatus, epoch uint64) {
	m.mu.Lock()
	if current := m.sessionEpoch(); current != epoch {
		m.mu.Unlock()
		m.logger.Debug("dropping provider status from a previous session")
		return
	}
	from := m.stateLocked(epoch)
	m.status = status
	m.known = true
	m.epoch = epoch
	m.lastErr = nil
	m.mu.Unlock()

	to := status.State()
	if from == to {
		return
	}
	m.logger.Info("provider onboarding state changed", zap.String("from", string(from)), zap.String("to", string(to)))
	_ = m.dispatcher.Publish(ctx, events.New(events.EventProviderStateChanged, "", events.ProviderStateChangedPayload{
		From: string(from),
		To:   string(to),
	}))
}

// Route maps a requested provider page onto the view the current state allows.
// An unknown state is resolved with a status query first.
func (m *Machine) Route(ctx context.Context, requested string) string {
	if m.State() == domain.OnboardingUnknown {
		_, _ = m.Refresh(ctx)
	}
	switch m.State() {
	case domain.OnboardingPendingDocuments:
		return navigation.UploadDocumentsPath
	case domain.OnboardingVerified:
		if requested == navigation.UploadDocumentsPath || requested == navigation.PendingReviewPath {
			return navigation.ProviderHome
		}
		return requested
	default:
		return navigation.PendingReviewPath
	}
}

// Notice is the message to show alongside the routed view, if any.
func (m *Machine) Notice() string {
	if m.State() == domain.OnboardingRejected {
		return RejectedNotice
	}
	return ""
}

// RegisterHandlers ties polling to the session: it runs while a provider is signed in.
func (m *Machine) RegisterHandlers() {
	m.dispatcher.Subscribe(events.EventSessionEstablished, func(_ context.Context, event events.Event) error {
		payload, _ := event.Payload.(events.SessionEstablishedPayload)
		if domain.Role(payload.Role) == domain.RoleProvider {
			m.StartPolling()
		} else {
			m.StopPolling()
		}
		return nil
	})
	m.dispatcher.Subscribe(events.EventSessionCleared, func(context.Context, events.Event) error {
		m.StopPolling()
		return nil
	})
}

// StartPolling re-queries status on the configured interval until StopPolling.
func (m *Machine) StartPolling() {
	m.poller.Start()
}

// StopPolling prevents further polls.
func (m *Machine) StopPolling() {
	m.poller.Stop()
}
