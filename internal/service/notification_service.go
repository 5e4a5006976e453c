package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/homeservices-portal/internal/domain"
	"github.com/spec-kit/homeservices-portal/internal/events"
)

const maxNotices = 50

// Notice is a dismissable message for the user.
type Notice struct {
	ID        string           `json:"id"`
	Kind      events.EventType `json:"kind"`
	Message   string           `json:"message"`
	Retryable bool             `json:"retryable"`
	CreatedAt time.Time        `json:"created_at"`
}

// NotificationService turns controller events into user-visible notices.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger

	mu      sync.Mutex
	notices []Notice
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventAccessDenied, n.handleAccessDenied)
	n.dispatcher.Subscribe(events.EventActionFailed, n.handleActionFailed)
	n.dispatcher.Subscribe(events.EventUploadFailed, n.handleUploadFailed)
	n.dispatcher.Subscribe(events.EventSessionCleared, n.handleSessionCleared)
	n.dispatcher.Subscribe(events.EventProviderStateChanged, n.handleProviderStateChanged)
}

// Notices returns the undismissed notices, oldest first.
func (n *NotificationService) Notices() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notice{}, n.notices...)
}

// Dismiss removes a notice. It reports whether the notice existed.
func (n *NotificationService) Dismiss(id string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, notice := range n.notices {
		if notice.ID == id {
			n.notices = append(n.notices[:i], n.notices[i+1:]...)
			return true
		}
	}
	return false
}

func (n *NotificationService) raise(kind events.EventType, message string, retryable bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, Notice{
		ID:        uuid.NewString(),
		Kind:      kind,
		Message:   message,
		Retryable: retryable,
		CreatedAt: time.Now().UTC(),
	})
	if len(n.notices) > maxNotices {
		n.notices = n.notices[len(n.notices)-maxNotices:]
	}
}

func (n *NotificationService) handleAccessDenied(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AccessDeniedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("AccessDenied", zap.String("page", payload.Page), zap.String("role", payload.Role))
	n.raise(event.Type, fmt.Sprintf("Access denied to %s", payload.Page), false)
	return nil
}

func (n *NotificationService) handleActionFailed(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ActionFailedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("ActionFailed", zap.String("list", payload.List), zap.String("item_id", payload.ItemID))
	n.raise(event.Type, fmt.Sprintf("Could not %s item %s: %s", payload.Action, payload.ItemID, payload.Message), payload.Retryable)
	return nil
}

func (n *NotificationService) handleUploadFailed(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.UploadFailedPayload)
	if !ok {
		return nil
	}
	n.raise(event.Type, "Document upload failed: "+payload.Message, payload.Retryable)
	return nil
}

func (n *NotificationService) handleSessionCleared(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SessionClearedPayload)
	if !ok || payload.Reason == "signed out" {
		return nil
	}
	n.raise(event.Type, "Your session has ended. Please sign in again.", false)
	return nil
}

func (n *NotificationService) handleProviderStateChanged(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ProviderStateChangedPayload)
	if !ok {
		return nil
	}
	switch domain.OnboardingState(payload.To) {
	case domain.OnboardingVerified:
		if payload.From != string(domain.OnboardingUnknown) {
			n.raise(event.Type, "Your provider account has been verified.", false)
		}
	case domain.OnboardingRejected:
		n.raise(event.Type, "Your provider registration was rejected.", false)
	}
	return nil
}
