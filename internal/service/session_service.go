package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/homeservices-portal/internal/apiclient"
	"github.com/spec-kit/homeservices-portal/internal/domain"
	"github.com/spec-kit/homeservices-portal/internal/events"
	"github.com/spec-kit/homeservices-portal/internal/navigation"
	"github.com/spec-kit/homeservices-portal/internal/session"
	apperrors "github.com/spec-kit/homeservices-portal/pkg/util"
)

// Authenticator is the part of the API client that creates sessions and accounts.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string, role domain.Role) (*apiclient.SignInResult, error)
	RegisterHomeowner(ctx context.Context, in apiclient.HomeownerRegistration) (string, error)
	RegisterProvider(ctx context.Context, in apiclient.ProviderApplication) (string, error)
	ResetAuthFailure()
}

// Navigator moves the UI.
type Navigator interface {
	Navigate(path string)
}

// SignInOutcome tells the UI where the new session lands.
type SignInOutcome struct {
	Session     domain.Session `json:"session"`
	Destination string         `json:"destination"`
	IsPending   bool           `json:"is_pending"`
}

// SessionService coordinates sign-in, sign-out and account registration.
type SessionService struct {
	tokens     *session.Store
	auth       Authenticator
	nav        Navigator
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewSessionService creates the service.
func NewSessionService(tokens *session.Store, auth Authenticator, nav Navigator, dispatcher events.Dispatcher, logger *zap.Logger) *SessionService {
	if dispatcher == nil {
		dispatcher = events.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{tokens: tokens, auth: auth, nav: nav, dispatcher: dispatcher, logger: logger}
}

// Current returns the stored session.
func (s *SessionService) Current() (domain.Session, bool) {
	return s.tokens.Get()
}

// SignIn authenticates and stores the session under the role the server asserted.
func (s *SessionService) SignIn(ctx context.Context, email, password string, role domain.Role) (*SignInOutcome, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password are required", nil)
	}
	if !role.Valid() {
		return nil, apperrors.NewValidationError("a valid role is required", map[string]any{"role": string(role)})
	}

	result, err := s.auth.SignIn(ctx, email, password, role)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Set(ctx, result.Session); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.auth.ResetAuthFailure()

	destination := landingPage(result)
	if s.nav != nil {
		s.nav.Navigate(destination)
	}
	s.logger.Info("signed in",
		zap.String("subject_id", result.Session.SubjectID),
		zap.String("role", string(result.Session.Role)),
		zap.String("destination", destination))
	_ = s.dispatcher.Publish(ctx, events.New(events.EventSessionEstablished, result.Session.SubjectID, events.SessionEstablishedPayload{
		Role: string(result.Session.Role),
	}))

	return &SignInOutcome{Session: result.Session, Destination: destination, IsPending: result.IsPending}, nil
}

func landingPage(result *apiclient.SignInResult) string {
	if result.Session.Role == domain.RoleProvider && result.NeedsDocuments != nil && *result.NeedsDocuments {
		return navigation.UploadDocumentsPath
	}
	if to := strings.TrimSpace(result.RedirectTo); to != "" {
		return "/" + strings.TrimLeft(to, "/")
	}
	return navigation.HomeFor(result.Session.Role)
}

// SignOut clears the session and returns to the sign-in page. Signing out twice is harmless.
func (s *SessionService) SignOut(ctx context.Context) error {
	if err := s.tokens.Clear(ctx); err != nil {
		return apperrors.NewInternalError(err)
	}
	if s.nav != nil {
		s.nav.Navigate(navigation.SignInPath)
	}
	_ = s.dispatcher.Publish(ctx, events.New(events.EventSessionCleared, "", events.SessionClearedPayload{Reason: "signed out"}))
	return nil
}

// RegisterHomeowner creates a homeowner account and sends the UI to sign-in.
func (s *SessionService) RegisterHomeowner(ctx context.Context, in apiclient.HomeownerRegistration) (string, error) {
	id, err := s.auth.RegisterHomeowner(ctx, in)
	if err != nil {
		return "", err
	}
	if s.nav != nil {
		s.nav.Navigate(navigation.SignInPath)
	}
	return id, nil
}

// RegisterProvider files a provider application and sends the UI to sign-in.
func (s *SessionService) RegisterProvider(ctx context.Context, in apiclient.ProviderApplication) (string, error) {
	id, err := s.auth.RegisterProvider(ctx, in)
	if err != nil {
		return "", err
	}
	if s.nav != nil {
		s.nav.Navigate(navigation.SignInPath)
	}
	return id, nil
}
