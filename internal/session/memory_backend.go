package session

import (
	"context"
	"sync"

	"github.com/spec-kit/homeservices-portal/internal/domain"
)

// MemoryBackend keeps the session in process memory. It is not durable.
type MemoryBackend struct {
	mu      sync.Mutex
	session *domain.Session
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (b *MemoryBackend) Load(_ context.Context) (*domain.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return nil, nil
	}
	cp := *b.session
	return &cp, nil
}

func (b *MemoryBackend) Save(_ context.Context, s domain.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.session = &s
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.session = nil
	return nil
}
