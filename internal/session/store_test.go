package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/homeservices-portal/internal/domain"
)

func providerSession() domain.Session {
	return domain.Session{
		SubjectID:   "42",
		Role:        domain.RoleProvider,
		Credential:  "opaque-token",
		DisplayName: "Pat Plumber",
		Email:       "pat@example.com",
	}
}

func TestStoreSetGetClear(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, NewMemoryBackend(), nil)
	require.NoError(t, err)

	_, ok := store.Get()
	assert.False(t, ok, "fresh store must be empty")

	require.NoError(t, store.Set(ctx, providerSession()))
	got, ok := store.Get()
	require.True(t, ok)
	assert.Equal(t, providerSession(), got)

	require.NoError(t, store.Clear(ctx))
	_, ok = store.Get()
	assert.False(t, ok)
}

func TestStoreClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	store, err := Open(ctx, backend, nil)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, providerSession()))

	require.NoError(t, store.Clear(ctx))
	_, epochOnce, _ := store.Snapshot()
	require.NoError(t, store.Clear(ctx))
	_, epochTwice, ok := store.Snapshot()

	assert.False(t, ok)
	assert.Equal(t, epochOnce, epochTwice, "second clear must not change state")
	persisted, err := backend.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, persisted)
}

func TestStoreRejectsMalformedSession(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, NewMemoryBackend(), nil)
	require.NoError(t, err)

	assert.Error(t, store.Set(ctx, domain.Session{Credential: "tok", Role: "guest"}))
	assert.Error(t, store.Set(ctx, domain.Session{Role: domain.RoleAdmin}))
	_, ok := store.Get()
	assert.False(t, ok)
}

func TestStoreSurvivesReopenWithFileBackend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	first, err := Open(ctx, NewFileBackend(path), nil)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, providerSession()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second, err := Open(ctx, NewFileBackend(path), nil)
	require.NoError(t, err)
	got, ok := second.Get()
	require.True(t, ok)
	assert.Equal(t, domain.RoleProvider, got.Role)
	assert.Equal(t, "opaque-token", got.Credential)

	require.NoError(t, second.Clear(ctx))
	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestOpenDiscardsMalformedPersistedSession(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	require.NoError(t, backend.Save(ctx, domain.Session{Credential: "tok"}))

	store, err := Open(ctx, backend, nil)
	require.NoError(t, err)
	_, ok := store.Get()
	assert.False(t, ok)
	persisted, _ := backend.Load(ctx)
	assert.Nil(t, persisted)
}

func TestClearIfCurrentKeepsNewerSession(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, NewMemoryBackend(), nil)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, providerSession()))
	_, staleEpoch, _ := store.Snapshot()

	fresh := providerSession()
	fresh.Credential = "fresh-token"
	require.NoError(t, store.Set(ctx, fresh))

	cleared, err := store.ClearIfCurrent(ctx, staleEpoch)
	require.NoError(t, err)
	assert.False(t, cleared)
	got, ok := store.Get()
	require.True(t, ok)
	assert.Equal(t, "fresh-token", got.Credential)

	_, currentEpoch, _ := store.Snapshot()
	cleared, err = store.ClearIfCurrent(ctx, currentEpoch)
	require.NoError(t, err)
	assert.True(t, cleared)
}

func TestExpiresAtReadsJWTClaims(t *testing.T) {
	exp := time.Now().Add(-time.Minute).Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString([]byte("any-secret"))
	require.NoError(t, err)

	got, ok := ExpiresAt(signed)
	require.True(t, ok)
	assert.True(t, got.Equal(exp))
	assert.True(t, Expired(signed, time.Now()))

	_, ok = ExpiresAt("opaque-token")
	assert.False(t, ok)
	assert.False(t, Expired("opaque-token", time.Now()))
}
