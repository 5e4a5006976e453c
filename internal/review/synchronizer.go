package review

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/spec-kit/homeservices-portal/internal/domain"
	"github.com/spec-kit/homeservices-portal/internal/events"
	"github.com/spec-kit/homeservices-portal/internal/observability"
	"github.com/spec-kit/homeservices-portal/internal/worker"
	apperrors "github.com/spec-kit/homeservices-portal/pkg/util"
)

// Item is anything a pending list can hold.
type Item interface {
	ItemID() string
}

// Fetcher returns the full pending set in backend order.
type Fetcher[T Item] func(ctx context.Context) ([]T, error)

// Action disposes of one pending item.
type Action[T Item] func(ctx context.Context, id string) (domain.ActionResult[T], error)

// Refresh triggers.
const (
	SourceInitial    = "initial"
	SourceBackground = "background"
	SourceManual     = "manual"
)

// Options tunes a Synchronizer.
type Options struct {
	Interval   time.Duration
	Policy     Policy
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// View is a consistent snapshot of a pending list.
type View[T Item] struct {
	Items     []T    `json:"items"`
	Loaded    bool   `json:"loaded"`
	Version   uint64 `json:"version"`
	LastError string `json:"last_error,omitempty"`
}

// Synchronizer keeps an admin's pending list current under an initial load,
// background refresh, manual refresh and item actions.
type Synchronizer[T Item] struct {
	name       string
	fetch      Fetcher[T]
	actions    map[string]Action[T]
	policy     Policy
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	poller     *worker.Poller
	manual     singleflight.Group

	mu         sync.RWMutex
	items      []T
	loaded     bool
	version    uint64
	issued     uint64
	appliedSeq uint64
	generation uint64
	lastErr    error
	acting     map[string]struct{}
}

// New builds a Synchronizer named name. actions maps action names such as
// "approve" to the backend call performing them.
func New[T Item](name string, fetch Fetcher[T], actions map[string]Action[T], opts Options) *Synchronizer[T] {
	if opts.Policy == "" {
		opts.Policy = PolicyLastArrival
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = events.Discard
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &Synchronizer[T]{
		name:       name,
		fetch:      fetch,
		actions:    actions,
		policy:     opts.Policy,
		dispatcher: opts.Dispatcher,
		metrics:    opts.Metrics,
		logger:     opts.Logger.With(zap.String("list", name)),
		acting:     make(map[string]struct{}),
	}
	s.poller = worker.NewPoller(name, opts.Interval, func(ctx context.Context) {
		_, _ = s.refresh(ctx, SourceBackground)
	}, s.logger)
	return s
}

// Name identifies the list in logs, metrics and events.
func (s *Synchronizer[T]) Name() string {
	return s.name
}

// Items returns a copy of the displayed list.
func (s *Synchronizer[T]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]T(nil), s.items...)
}

// View returns the displayed list with its bookkeeping.
func (s *Synchronizer[T]) View() View[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	view := View[T]{
		Items:   append([]T{}, s.items...),
		Loaded:  s.loaded,
		Version: s.version,
	}
	if s.lastErr != nil {
		view.LastError = apperrors.ToDomainError(s.lastErr).Message
	}
	return view
}

// Load performs the initial fetch.
func (s *Synchronizer[T]) Load(ctx context.Context) ([]T, error) {
	return s.refresh(ctx, SourceInitial)
}

// Refresh is the user-triggered re-fetch. A call made while another manual refresh is
// outstanding joins it instead of issuing a second request.
func (s *Synchronizer[T]) Refresh(ctx context.Context) ([]T, error) {
	v, err, _ := s.manual.Do(SourceManual, func() (any, error) {
		return s.refresh(context.WithoutCancel(ctx), SourceManual)
	})
	items, _ := v.([]T)
	return items, err
}

// Reset empties the list for a new session. Responses to requests sent before the
// reset are discarded when they land.
func (s *Synchronizer[T]) Reset() {
	s.mu.Lock()
	s.items = nil
	s.loaded = false
	s.lastErr = nil
	s.version++
	s.generation++
	s.acting = make(map[string]struct{})
	s.mu.Unlock()
	s.logger.Debug("pending list reset")
}

// Start begins background refresh. Stop halts it without cancelling requests in flight.
func (s *Synchronizer[T]) Start() {
	s.poller.Start()
}

// Stop prevents future background refreshes.
func (s *Synchronizer[T]) Stop() {
	s.poller.Stop()
}

func (s *Synchronizer[T]) refresh(ctx context.Context, source string) ([]T, error) {
	s.mu.Lock()
	s.issued++
	seq, sentVersion, gen := s.issued, s.version, s.generation
	s.mu.Unlock()

	items, err := s.fetch(ctx)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.metrics.RecordRefresh(s.name, source, "dropped")
		return nil, err
	}
	if err != nil {
		s.lastErr = err
		current := append([]T(nil), s.items...)
		s.mu.Unlock()
		s.metrics.RecordRefresh(s.name, source, "failed")
		s.logger.Warn("pending list refresh failed", zap.String("source", source), zap.Error(err))
		return current, err
	}
	if s.policy == PolicyLatestVersion && (seq < s.appliedSeq || sentVersion < s.version) {
		current := append([]T(nil), s.items...)
		s.mu.Unlock()
		s.metrics.RecordRefresh(s.name, source, "dropped")
		s.logger.Debug("dropping stale refresh",
			zap.String("source", source), zap.Uint64("seq", seq), zap.Uint64("sent_version", sentVersion))
		return current, nil
	}
	s.items = append([]T(nil), items...)
	s.loaded = true
	s.lastErr = nil
	s.version++
	if seq > s.appliedSeq {
		s.appliedSeq = seq
	}
	count := len(s.items)
	current := append([]T(nil), s.items...)
	s.mu.Unlock()

	s.metrics.RecordRefresh(s.name, source, "applied")
	s.publishUpdate(ctx, source, count)
	return current, nil
}

// Act performs action on id. On success id is no longer listed; on failure the list is
// untouched and a failure event is published so the item can be retried.
func (s *Synchronizer[T]) Act(ctx context.Context, action, id string) error {
	perform, ok := s.actions[action]
	if !ok {
		return apperrors.NewValidationError(fmt.Sprintf("unknown action %q", action), nil)
	}
	if id == "" {
		return apperrors.NewValidationError("item id is required", nil)
	}

	s.mu.Lock()
	if _, busy := s.acting[id]; busy {
		s.mu.Unlock()
		return apperrors.NewConflict("an action on this item is already in progress", map[string]any{"id": id})
	}
	s.acting[id] = struct{}{}
	gen := s.generation
	s.mu.Unlock()

	result, err := perform(ctx, id)

	s.mu.Lock()
	delete(s.acting, id)
	if gen != s.generation {
		s.mu.Unlock()
		return err
	}
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("pending item action failed", zap.String("action", action), zap.String("id", id), zap.Error(err))
		_ = s.dispatcher.Publish(ctx, events.New(events.EventActionFailed, id, events.ActionFailedPayload{
			List:      s.name,
			Action:    action,
			ItemID:    id,
			Message:   apperrors.ToDomainError(err).Message,
			Retryable: apperrors.IsRetryable(err),
		}))
		return err
	}
	source := "optimistic"
	base := s.items
	if result.Authoritative {
		source = "authoritative"
		base = result.Updated
	}
	s.items = without(base, id)
	s.version++
	count := len(s.items)
	s.mu.Unlock()

	s.logger.Info("pending item resolved", zap.String("action", action), zap.String("id", id), zap.String("source", source))
	s.publishUpdate(ctx, source, count)
	return nil
}

func (s *Synchronizer[T]) publishUpdate(ctx context.Context, source string, count int) {
	_ = s.dispatcher.Publish(ctx, events.New(events.EventPendingListUpdated, s.name, events.PendingListUpdatedPayload{
		List:   s.name,
		Source: source,
		Count:  count,
	}))
}

func without[T Item](items []T, id string) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if item.ItemID() != id {
			out = append(out, item)
		}
	}
	return out
}
