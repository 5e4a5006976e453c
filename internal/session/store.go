package session

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/homeservices-portal/internal/domain"
)

// Backend persists the single current session durably.
// Load returns (nil, nil) when nothing is stored.
type Backend interface {
	Load(ctx context.Context) (*domain.Session, error)
	Save(ctx context.Context, s domain.Session) error
	Delete(ctx context.Context) error
}

// Store is the single source of truth for the current session.
// Reads are served from memory; writes go through to the Backend first.
type Store struct {
	mu      sync.RWMutex
	backend Backend
	current *domain.Session
	epoch   uint64
	logger  *zap.Logger
}

// Open loads the persisted session once so that Get is synchronous afterwards.
func Open(ctx context.Context, backend Backend, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{backend: backend, logger: logger}

	loaded, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if loaded != nil {
		if err := loaded.Validate(); err != nil {
			logger.Warn("discarding malformed persisted session", zap.Error(err))
			if err := backend.Delete(ctx); err != nil {
				return nil, fmt.Errorf("discard session: %w", err)
			}
		} else {
			s.current = loaded
			s.epoch = 1
		}
	}
	return s, nil
}

// Set persists credential, role and identity as one unit.
func (s *Store) Set(ctx context.Context, sess domain.Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Save(ctx, sess); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	s.current = &sess
	s.epoch++
	s.logger.Info("session established",
		zap.String("subject_id", sess.SubjectID),
		zap.String("role", string(sess.Role)))
	return nil
}

// Get returns the current session without blocking on I/O.
func (s *Store) Get() (domain.Session, bool) {
	sess, _, ok := s.Snapshot()
	return sess, ok
}

// Snapshot returns the current session with the epoch it was set in.
func (s *Store) Snapshot() (domain.Session, uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return domain.Session{}, s.epoch, false
	}
	return *s.current, s.epoch, true
}

// Clear removes the session. Clearing an empty store is a no-op.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked(ctx)
}

// ClearIfCurrent clears only when no other session was set after epoch.
// It reports whether the store is empty on return.
func (s *Store) ClearIfCurrent(ctx context.Context, epoch uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && s.epoch != epoch {
		return false, nil
	}
	if err := s.clearLocked(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) clearLocked(ctx context.Context) error {
	if s.current == nil {
		return nil
	}
	if err := s.backend.Delete(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.logger.Info("session cleared", zap.String("subject_id", s.current.SubjectID))
	s.current = nil
	s.epoch++
	return nil
}
