package guard

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/homeservices-portal/internal/domain"
	"github.com/spec-kit/homeservices-portal/internal/events"
	"github.com/spec-kit/homeservices-portal/internal/navigation"
	"github.com/spec-kit/homeservices-portal/internal/observability"
	"github.com/spec-kit/homeservices-portal/internal/session"
	apperrors "github.com/spec-kit/homeservices-portal/pkg/util"
)

// State is a protected page's access state.
type State string

const (
	StateChecking State = "checking"
	StateGranted  State = "granted"
	StateDenied   State = "denied"
)

// AccessDeniedNotice is shown when a valid session lands on another role's page.
const AccessDeniedNotice = "access denied: your account cannot open this page"

// Validator confirms the stored credential with the backend.
type Validator interface {
	Validate(ctx context.Context) (domain.Identity, error)
}

// Navigator receives the guard's redirects.
type Navigator interface {
	Navigate(path string)
}

// ProviderRouter confines a provider to the view their onboarding state allows.
// Notice is shown with the routed view; empty means none.
type ProviderRouter interface {
	Route(ctx context.Context, requested string) string
	Notice() string
}

// Page is a protected page and the roles allowed to open it.
type Page struct {
	Path  string
	Roles []domain.Role
}

// Allows reports whether role may open the page.
func (p Page) Allows(role domain.Role) bool {
	for _, required := range p.Roles {
		if role.Satisfies(required) {
			return true
		}
	}
	return false
}

// Decision is the outcome of a page check.
// View is the page to render once granted; it differs from the requested path when
// a provider is confined by onboarding.
type Decision struct {
	State    State       `json:"state"`
	Role     domain.Role `json:"role,omitempty"`
	View     string      `json:"view,omitempty"`
	Redirect string      `json:"redirect,omitempty"`
	Notice   string      `json:"notice,omitempty"`
}

// Options tunes a Guard.
type Options struct {
	Providers  ProviderRouter
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Now        func() time.Time
}

// Guard decides whether protected pages may render.
type Guard struct {
	tokens     *session.Store
	validator  Validator
	nav        Navigator
	providers  ProviderRouter
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// New constructs a Guard.
func New(tokens *session.Store, validator Validator, nav Navigator, opts Options) *Guard {
	if opts.Dispatcher == nil {
		opts.Dispatcher = events.Discard
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Guard{
		tokens:     tokens,
		validator:  validator,
		nav:        nav,
		providers:  opts.Providers,
		dispatcher: opts.Dispatcher,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
		now:        opts.Now,
	}
}

// Mount starts a page visit. The returned Mount stays in StateChecking until Check completes.
func (g *Guard) Mount(page Page) *Mount {
	return &Mount{
		guard:    g,
		page:     page,
		decision: Decision{State: StateChecking},
		done:     make(chan struct{}),
	}
}

// Mount is a single visit to a protected page. Its check runs at most once.
type Mount struct {
	guard *Guard
	page  Page
	once  sync.Once
	done  chan struct{}

	mu       sync.RWMutex
	decision Decision
}

// Decision returns the current decision without blocking.
func (m *Mount) Decision() Decision {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.decision
}

// State returns the current state without blocking.
func (m *Mount) State() State {
	return m.Decision().State
}

// Done is closed once the check has reached a final state.
func (m *Mount) Done() <-chan struct{} {
	return m.done
}

// Check runs the access check. Later calls return the first call's decision.
func (m *Mount) Check(ctx context.Context) Decision {
	m.once.Do(func() {
		decision := m.guard.evaluate(ctx, m.page)
		m.mu.Lock()
		m.decision = decision
		m.mu.Unlock()
		close(m.done)
	})
	<-m.done
	return m.Decision()
}

func (g *Guard) evaluate(ctx context.Context, page Page) Decision {
	logger := g.logger.With(zap.String("page", page.Path))

	sess, epoch, ok := g.tokens.Snapshot()
	if !ok {
		return g.deny(Decision{Redirect: navigation.SignInPath})
	}
	if session.Expired(sess.Credential, g.now()) {
		logger.Info("stored credential expired; clearing session")
		return g.signOut(ctx, epoch, "credential expired", true)
	}

	identity, err := g.validator.Validate(ctx)
	if err != nil {
		logger.Info("session validation failed", zap.Error(err))
		// the client's interceptor already announced an UNAUTHENTICATED failure
		return g.signOut(ctx, epoch, "validation failed", !apperrors.IsCode(err, apperrors.CodeUnauthenticated))
	}

	role := identity.Role
	if !role.Valid() {
		role = sess.Role
	}
	if !page.Allows(role) {
		home := navigation.HomeFor(role)
		logger.Info("role not allowed on page", zap.String("role", string(role)), zap.String("redirect", home))
		_ = g.dispatcher.Publish(ctx, events.New(events.EventAccessDenied, identity.SubjectID, events.AccessDeniedPayload{
			Page:     page.Path,
			Role:     string(role),
			Redirect: home,
		}))
		return g.deny(Decision{Role: role, Redirect: home, Notice: AccessDeniedNotice})
	}

	view, notice := page.Path, ""
	if role == domain.RoleProvider && g.providers != nil {
		view = g.providers.Route(ctx, page.Path)
		notice = g.providers.Notice()
		if view != page.Path {
			logger.Info("provider confined by onboarding", zap.String("view", view))
			if g.nav != nil {
				g.nav.Navigate(view)
			}
		}
	}

	g.metrics.RecordGuardDecision(string(StateGranted))
	return Decision{State: StateGranted, Role: role, View: view, Notice: notice}
}

// signOut clears the session checked under epoch. A session set since then is left
// alone and the stale check is denied without a redirect.
func (g *Guard) signOut(ctx context.Context, epoch uint64, reason string, announce bool) Decision {
	cleared, err := g.tokens.ClearIfCurrent(context.WithoutCancel(ctx), epoch)
	if err != nil {
		g.logger.Error("failed to clear session", zap.Error(err))
	}
	if !cleared {
		g.logger.Info("session replaced during check; keeping it")
		return g.deny(Decision{})
	}
	if announce {
		_ = g.dispatcher.Publish(ctx, events.New(events.EventSessionCleared, "", events.SessionClearedPayload{Reason: reason}))
	}
	return g.deny(Decision{Redirect: navigation.SignInPath})
}

func (g *Guard) deny(decision Decision) Decision {
	decision.State = StateDenied
	if g.nav != nil && decision.Redirect != "" {
		g.nav.Navigate(decision.Redirect)
	}
	g.metrics.RecordGuardDecision(string(StateDenied))
	return decision
}
