package devbackend_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/homeservices-portal/internal/apiclient"
	"github.com/spec-kit/homeservices-portal/internal/config"
	"github.com/spec-kit/homeservices-portal/internal/devbackend"
	"github.com/spec-kit/homeservices-portal/internal/domain"
	"github.com/spec-kit/homeservices-portal/internal/guard"
	"github.com/spec-kit/homeservices-portal/internal/navigation"
	"github.com/spec-kit/homeservices-portal/internal/onboarding"
	"github.com/spec-kit/homeservices-portal/internal/review"
	"github.com/spec-kit/homeservices-portal/internal/service"
	"github.com/spec-kit/homeservices-portal/internal/session"
	apperrors "github.com/spec-kit/homeservices-portal/pkg/util"
)

type portal struct {
	store    *session.Store
	nav      *navigation.Navigator
	client   *apiclient.Client
	sessions *service.SessionService
}

func newPortal(t *testing.T, baseURL string) *portal {
	t.Helper()
	store, err := session.Open(context.Background(), session.NewMemoryBackend(), nil)
	require.NoError(t, err)
	nav := navigation.NewNavigator(nil)
	client := apiclient.New(store, nav, apiclient.Options{BaseURL: baseURL})
	return &portal{
		store:    store,
		nav:      nav,
		client:   client,
		sessions: service.NewSessionService(store, client, nav, nil, nil),
	}
}

func startBackend(t *testing.T) string {
	t.Helper()
	srv, err := devbackend.New(config.DevBackendConfig{
		JWTSecret:             "flow-secret",
		AccessTokenTTLMinutes: 5,
		BcryptCost:            4,
		AdminEmail:            "admin@example.com",
		AdminPassword:         "admin",
	}, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(adaptor.FiberApp(srv.App()))
	t.Cleanup(ts.Close)
	return ts.URL
}

func TestProviderOnboardingThroughAdminApproval(t *testing.T) {
	ctx := context.Background()
	baseURL := startBackend(t)

	applicant := newPortal(t, baseURL)
	years := 6
	_, err := applicant.sessions.RegisterProvider(ctx, apiclient.ProviderApplication{
		FullName: "Pat Plumber", Email: "pat@example.com", Password: "pw", YearsExperience: &years,
	})
	require.NoError(t, err)

	outcome, err := applicant.sessions.SignIn(ctx, "pat@example.com", "pw", domain.RoleProvider)
	require.NoError(t, err)
	assert.Equal(t, navigation.UploadDocumentsPath, outcome.Destination)
	assert.True(t, outcome.IsPending)

	machine := onboarding.New(applicant.client, onboarding.Options{})
	gate := guard.New(applicant.store, applicant.client, applicant.nav, guard.Options{Providers: machine})
	page, _ := guard.PageFor("/dashboard/provider/bookings")

	decision := gate.Mount(page).Check(ctx)
	require.Equal(t, guard.StateGranted, decision.State)
	assert.Equal(t, navigation.UploadDocumentsPath, decision.View)

	idProof := &domain.Document{FileName: "id.png", ContentType: "image/png", Data: []byte("png-bytes")}
	err = machine.Submit(ctx, idProof, nil)
	require.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	require.NoError(t, machine.Submit(ctx, idProof, &domain.Document{FileName: "cert.pdf", ContentType: "application/pdf", Data: []byte("pdf-bytes")}))
	assert.Equal(t, domain.OnboardingPendingReview, machine.State())

	admin := newPortal(t, baseURL)
	_, err = admin.sessions.SignIn(ctx, "admin@example.com", "admin", domain.RoleAdmin)
	require.NoError(t, err)
	registrations := review.NewRegistrations(admin.client, review.Options{})
	items, err := registrations.Load(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "pat@example.com", items[0].Email)
	require.NotNil(t, items[0].YearsExperience)
	assert.True(t, items[0].HasDocuments())

	require.NoError(t, registrations.Act(ctx, review.ActionApprove, items[0].ID))
	assert.Empty(t, registrations.Items())

	_, err = machine.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.OnboardingVerified, machine.State())

	decision = gate.Mount(page).Check(ctx)
	assert.Equal(t, guard.StateGranted, decision.State)
	assert.Equal(t, "/dashboard/provider/bookings", decision.View)
}

func TestReportModerationAndSessionLoss(t *testing.T) {
	ctx := context.Background()
	baseURL := startBackend(t)

	admin := newPortal(t, baseURL)
	_, err := admin.sessions.SignIn(ctx, "admin@example.com", "admin", domain.RoleAdmin)
	require.NoError(t, err)

	reports := review.NewReports(admin.client, review.Options{})
	items, err := reports.Load(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.NoError(t, reports.Act(ctx, review.ActionDismiss, items[0].ID))
	assert.Len(t, reports.Items(), 1)

	err = reports.Act(ctx, review.ActionResolve, items[0].ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	assert.Len(t, reports.Items(), 1)

	// the backend no longer accepts the credential
	sess, _ := admin.store.Get()
	sess.Credential = "revoked"
	require.NoError(t, admin.store.Set(ctx, sess))

	_, err = reports.Refresh(ctx)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthenticated))
	_, ok := admin.store.Get()
	assert.False(t, ok)
	assert.Equal(t, navigation.SignInPath, admin.nav.Current())
	assert.Len(t, reports.Items(), 1, "the list keeps its last known content")
}
