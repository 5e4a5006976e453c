package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httptransport "github.com/spec-kit/homeservices-portal/internal/api/http"
	"github.com/spec-kit/homeservices-portal/internal/api/http/handlers"
	"github.com/spec-kit/homeservices-portal/internal/apiclient"
	"github.com/spec-kit/homeservices-portal/internal/config"
	"github.com/spec-kit/homeservices-portal/internal/devbackend"
	"github.com/spec-kit/homeservices-portal/internal/events"
	"github.com/spec-kit/homeservices-portal/internal/guard"
	"github.com/spec-kit/homeservices-portal/internal/navigation"
	"github.com/spec-kit/homeservices-portal/internal/observability"
	"github.com/spec-kit/homeservices-portal/internal/onboarding"
	"github.com/spec-kit/homeservices-portal/internal/review"
	"github.com/spec-kit/homeservices-portal/internal/service"
	"github.com/spec-kit/homeservices-portal/internal/session"
	"github.com/spec-kit/homeservices-portal/internal/worker"
)

func newPortalApp(t *testing.T) *fiber.App {
	t.Helper()

	backend, err := devbackend.New(config.DevBackendConfig{
		JWTSecret:             "router-secret",
		AccessTokenTTLMinutes: 5,
		BcryptCost:            4,
		AdminEmail:            "admin@example.com",
		AdminPassword:         "admin",
	}, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(adaptor.FiberApp(backend.App()))
	t.Cleanup(ts.Close)

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	tokens, err := session.Open(context.Background(), session.NewMemoryBackend(), nil)
	require.NoError(t, err)

	dispatcher := events.NewInMemoryDispatcher()
	nav := navigation.NewNavigator(nil)
	client := apiclient.New(tokens, nav, apiclient.Options{BaseURL: ts.URL, Metrics: metrics, Dispatcher: dispatcher})
	notices := service.NewNotificationService(dispatcher, nil)

	machine := onboarding.New(client, onboarding.Options{Tokens: tokens, Dispatcher: dispatcher})
	gate := guard.New(tokens, client, nav, guard.Options{Providers: machine, Dispatcher: dispatcher, Metrics: metrics})
	opts := review.Options{Dispatcher: dispatcher, Metrics: metrics}
	registrations := review.NewRegistrations(client, opts)
	reports := review.NewReports(client, opts)
	dashboard := service.NewAdminDashboard(registrations, reports, dispatcher, nil)
	t.Cleanup(dashboard.Unmount)
	t.Cleanup(machine.StopPolling)
	worker.StartNotificationWorker(notices, machine, dashboard)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, nil, metrics, 0)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler("portal", "test", nil, nil),
		Session:       handlers.NewSessionHandler(service.NewSessionService(tokens, client, nav, dispatcher, nil)),
		Navigation:    handlers.NewNavigationHandler(gate, nav),
		Provider:      handlers.NewProviderHandler(machine),
		Registrations: handlers.NewReviewListHandler(registrations),
		Reports:       handlers.NewReviewListHandler(reports),
		Dashboard:     handlers.NewDashboardHandler(dashboard),
		Notices:       handlers.NewNoticesHandler(notices),
		Tokens:        tokens,
		Gatherer:      registry,
	})
	return app
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		Retryable bool   `json:"retryable"`
	} `json:"error"`
}

func call(t *testing.T, app *fiber.App, method, path string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	return send(t, app, req)
}

func send(t *testing.T, app *fiber.App, req *http.Request) (int, envelope) {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func TestPageCheckWithoutSessionRedirectsToSignIn(t *testing.T) {
	app := newPortalApp(t)

	status, env := call(t, app, http.MethodGet, "/pages/check?path=/dashboard/admin", nil)
	require.Equal(t, http.StatusOK, status)
	var decision guard.Decision
	require.NoError(t, json.Unmarshal(env.Data, &decision))
	assert.Equal(t, guard.StateDenied, decision.State)
	assert.Equal(t, navigation.SignInPath, decision.Redirect)

	status, env = call(t, app, http.MethodGet, "/pages/check?path=/about", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &decision))
	assert.Equal(t, guard.StateGranted, decision.State)
}

func TestRoleGatedRoutesNeedMatchingSession(t *testing.T) {
	app := newPortalApp(t)

	status, env := call(t, app, http.MethodGet, "/provider/status", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHENTICATED", env.Error.Code)

	status, _ = call(t, app, http.MethodPost, "/session/signin", map[string]string{
		"email": "admin@example.com", "password": "admin", "role": "admin",
	})
	require.Equal(t, http.StatusOK, status)

	status, env = call(t, app, http.MethodGet, "/provider/status", nil)
	assert.Equal(t, http.StatusForbidden, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)
}

func TestAdminReviewOverAPI(t *testing.T) {
	app := newPortalApp(t)

	status, _ := call(t, app, http.MethodPost, "/register/provider", map[string]any{
		"full_name": "Pat Plumber", "email": "pat@example.com", "password": "pw", "years_experience": 4,
	})
	require.Equal(t, http.StatusCreated, status)

	status, env := call(t, app, http.MethodPost, "/session/signin", map[string]string{
		"email": "admin@example.com", "password": "admin", "role": "admin",
	})
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, string(env.Data), "credential")

	status, env = call(t, app, http.MethodGet, "/pages/check?path=/dashboard/admin", nil)
	require.Equal(t, http.StatusOK, status)
	var decision guard.Decision
	require.NoError(t, json.Unmarshal(env.Data, &decision))
	assert.Equal(t, guard.StateGranted, decision.State)

	status, env = call(t, app, http.MethodPost, "/admin/registrations/refresh", nil)
	require.Equal(t, http.StatusOK, status)
	var view struct {
		Items []struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.Len(t, view.Items, 1)
	id := view.Items[0].ID

	// documents were never uploaded, so the backend refuses approval
	status, env = call(t, app, http.MethodPost, "/admin/registrations/"+id+"/approve", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)

	status, env = call(t, app, http.MethodGet, "/admin/registrations", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Len(t, view.Items, 1)

	status, env = call(t, app, http.MethodGet, "/notices", nil)
	require.Equal(t, http.StatusOK, status)
	var notices []service.Notice
	require.NoError(t, json.Unmarshal(env.Data, &notices))
	require.NotEmpty(t, notices)

	status, _ = call(t, app, http.MethodDelete, "/notices/"+notices[0].ID, nil)
	assert.Equal(t, http.StatusNoContent, status)

	status, env = call(t, app, http.MethodPost, "/admin/registrations/"+id+"/reject", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Empty(t, view.Items)

	status, _ = call(t, app, http.MethodPost, "/admin/registrations/"+id+"/archive", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestProviderUploadNeedsBothDocuments(t *testing.T) {
	app := newPortalApp(t)

	status, _ := call(t, app, http.MethodPost, "/register/provider", map[string]any{
		"full_name": "Sam Sparks", "email": "sam@example.com", "password": "pw",
	})
	require.Equal(t, http.StatusCreated, status)
	status, env := call(t, app, http.MethodPost, "/session/signin", map[string]string{
		"email": "sam@example.com", "password": "pw", "role": "provider",
	})
	require.Equal(t, http.StatusOK, status)
	var outcome struct {
		Destination string `json:"destination"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &outcome))
	assert.Equal(t, navigation.UploadDocumentsPath, outcome.Destination)

	status, env = call(t, app, http.MethodGet, "/provider/status", nil)
	require.Equal(t, http.StatusOK, status)
	var st struct {
		NeedsDocuments bool   `json:"needsDocuments"`
		State          string `json:"state"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.True(t, st.NeedsDocuments)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(apiclient.FieldIDVerification, "id.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("png"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/provider/documents", &buf)
	req.Header.Set(fiber.HeaderContentType, mw.FormDataContentType())
	status, env = send(t, app, req)
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
}

func TestUnknownRouteRendersDomainError(t *testing.T) {
	app := newPortalApp(t)

	status, env := call(t, app, http.MethodGet, "/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestSignOutEmptiesAdminLists(t *testing.T) {
	app := newPortalApp(t)
	admin := map[string]string{"email": "admin@example.com", "password": "admin", "role": "admin"}

	status, _ := call(t, app, http.MethodPost, "/register/provider", map[string]any{
		"full_name": "Pat Plumber", "email": "pat@example.com", "password": "pw",
	})
	require.Equal(t, http.StatusCreated, status)
	status, _ = call(t, app, http.MethodPost, "/session/signin", admin)
	require.Equal(t, http.StatusOK, status)
	status, _ = call(t, app, http.MethodPost, "/admin/dashboard/mount", nil)
	require.Equal(t, http.StatusOK, status)

	var view struct {
		Items  []json.RawMessage `json:"items"`
		Loaded bool              `json:"loaded"`
	}
	_, env := call(t, app, http.MethodGet, "/admin/registrations", nil)
	require.NoError(t, json.Unmarshal(env.Data, &view))
	require.Len(t, view.Items, 1)

	status, _ = call(t, app, http.MethodPost, "/session/signout", nil)
	require.Equal(t, http.StatusNoContent, status)
	status, _ = call(t, app, http.MethodPost, "/session/signin", admin)
	require.Equal(t, http.StatusOK, status)

	_, env = call(t, app, http.MethodGet, "/admin/registrations", nil)
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Empty(t, view.Items)
	assert.False(t, view.Loaded)
}
