package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/homeservices-portal/internal/apiclient"
	"github.com/spec-kit/homeservices-portal/internal/domain"
	"github.com/spec-kit/homeservices-portal/internal/events"
	"github.com/spec-kit/homeservices-portal/internal/navigation"
	"github.com/spec-kit/homeservices-portal/internal/session"
	apperrors "github.com/spec-kit/homeservices-portal/pkg/util"
)

type fakeAuth struct {
	result *apiclient.SignInResult
	err    error
	calls  int
	resets int
}

func (f *fakeAuth) SignIn(context.Context, string, string, domain.Role) (*apiclient.SignInResult, error) {
	f.calls++
	return f.result, f.err
}

func (f *fakeAuth) RegisterHomeowner(context.Context, apiclient.HomeownerRegistration) (string, error) {
	return "11", nil
}

func (f *fakeAuth) RegisterProvider(context.Context, apiclient.ProviderApplication) (string, error) {
	return "12", nil
}

func (f *fakeAuth) ResetAuthFailure() { f.resets++ }

func newSessionService(t *testing.T, auth *fakeAuth) (*SessionService, *session.Store, *navigation.Navigator) {
	t.Helper()
	store, err := session.Open(context.Background(), session.NewMemoryBackend(), nil)
	require.NoError(t, err)
	nav := navigation.NewNavigator(nil)
	return NewSessionService(store, auth, nav, events.NewInMemoryDispatcher(), nil), store, nav
}

func TestSignInStoresServerAssertedRole(t *testing.T) {
	auth := &fakeAuth{result: &apiclient.SignInResult{
		Session: domain.Session{SubjectID: "3", Role: domain.RoleHomeowner, Credential: "tok"},
	}}
	svc, store, nav := newSessionService(t, auth)

	// the form asked for provider, the server says homeowner
	outcome, err := svc.SignIn(context.Background(), "h@example.com", "pw", domain.RoleProvider)
	require.NoError(t, err)

	got, ok := store.Get()
	require.True(t, ok)
	assert.Equal(t, domain.RoleHomeowner, got.Role)
	assert.Equal(t, navigation.HomeownerHome, outcome.Destination)
	assert.Equal(t, navigation.HomeownerHome, nav.Current())
	assert.Equal(t, 1, auth.resets)
}

func TestSignInRoutesProviderNeedingDocuments(t *testing.T) {
	needs := true
	auth := &fakeAuth{result: &apiclient.SignInResult{
		Session:        domain.Session{SubjectID: "4", Role: domain.RoleProvider, Credential: "tok"},
		RedirectTo:     "dashboard/provider/pending_user",
		NeedsDocuments: &needs,
		IsPending:      true,
	}}
	svc, _, _ := newSessionService(t, auth)

	outcome, err := svc.SignIn(context.Background(), "p@example.com", "pw", domain.RoleProvider)
	require.NoError(t, err)
	assert.Equal(t, navigation.UploadDocumentsPath, outcome.Destination)
	assert.True(t, outcome.IsPending)

	needs = false
	outcome, err = svc.SignIn(context.Background(), "p@example.com", "pw", domain.RoleProvider)
	require.NoError(t, err)
	assert.Equal(t, navigation.PendingReviewPath, outcome.Destination, "server redirect is normalised")
}

func TestSignInValidatesLocally(t *testing.T) {
	auth := &fakeAuth{}
	svc, _, _ := newSessionService(t, auth)

	_, err := svc.SignIn(context.Background(), " ", "pw", domain.RoleAdmin)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	_, err = svc.SignIn(context.Background(), "a@example.com", "pw", domain.Role("root"))
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	assert.Zero(t, auth.calls)
}

func TestSignInFailureLeavesStoreEmpty(t *testing.T) {
	auth := &fakeAuth{err: apperrors.NewUnauthenticated("Incorrect password")}
	svc, store, _ := newSessionService(t, auth)

	_, err := svc.SignIn(context.Background(), "a@example.com", "bad", domain.RoleAdmin)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthenticated))
	_, ok := store.Get()
	assert.False(t, ok)
}

func TestSignOutTwice(t *testing.T) {
	auth := &fakeAuth{result: &apiclient.SignInResult{
		Session: domain.Session{SubjectID: "1", Role: domain.RoleAdmin, Credential: "tok"},
	}}
	svc, store, nav := newSessionService(t, auth)
	_, err := svc.SignIn(context.Background(), "a@example.com", "pw", domain.RoleAdmin)
	require.NoError(t, err)

	require.NoError(t, svc.SignOut(context.Background()))
	require.NoError(t, svc.SignOut(context.Background()))

	_, ok := store.Get()
	assert.False(t, ok)
	assert.Equal(t, navigation.SignInPath, nav.Current())
}

func TestRegistrationReturnsToSignIn(t *testing.T) {
	svc, _, nav := newSessionService(t, &fakeAuth{})
	nav.Visit("/register/homeowner")

	id, err := svc.RegisterHomeowner(context.Background(), apiclient.HomeownerRegistration{FullName: "H", Email: "h@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "11", id)
	assert.Equal(t, navigation.SignInPath, nav.Current())
}
