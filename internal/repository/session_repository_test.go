package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"

	"github.com/spec-kit/homeservices-portal/internal/domain"
	"github.com/spec-kit/homeservices-portal/internal/persistence"
	"github.com/spec-kit/homeservices-portal/internal/session"
)

func openTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container test skipped in -short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16",
		postgres.WithDatabase("portal"),
		postgres.WithUsername("portal"),
		postgres.WithPassword("portal"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, persistence.RunMigrations(ctx, pool, zap.NewNop()))
	return pool
}

func TestSessionRepositoryRoundTrip(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()

	expiry := func(string) (time.Time, bool) { return time.Now().Add(time.Hour), true }
	repo := NewSessionRepository(pool, "laptop", expiry)

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	want := domain.Session{
		SubjectID:   "9",
		Role:        domain.RoleAdmin,
		Credential:  "tok-1",
		DisplayName: "Ada",
		Email:       "ada@example.com",
	}
	require.NoError(t, repo.Save(ctx, want))

	want.Credential = "tok-2"
	require.NoError(t, repo.Save(ctx, want))

	loaded, err = repo.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, want, *loaded)

	other := NewSessionRepository(pool, "desktop", nil)
	otherLoaded, err := other.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, otherLoaded, "profiles are isolated")

	require.NoError(t, repo.Delete(ctx))
	require.NoError(t, repo.Delete(ctx))
	loaded, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSessionRepositoryBacksTokenStore(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()

	first, err := session.Open(ctx, NewSessionRepository(pool, "default", session.ExpiresAt), nil)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, domain.Session{SubjectID: "1", Role: domain.RoleHomeowner, Credential: "abc"}))

	reopened, err := session.Open(ctx, NewSessionRepository(pool, "default", session.ExpiresAt), nil)
	require.NoError(t, err)
	got, ok := reopened.Get()
	require.True(t, ok)
	assert.Equal(t, domain.RoleHomeowner, got.Role)
}
