package domain

import "errors"

// ProviderStatus is the provider account state as last reported by the backend.
type ProviderStatus struct {
	IsVerified     bool `json:"isVerified"`
	NeedsDocuments bool `json:"needsDocuments"`
	Rejected       bool `json:"rejected,omitempty"`
}

// ErrContradictoryStatus flags a status asserting both verification and missing documents.
var ErrContradictoryStatus = errors.New("provider status is both verified and missing documents")

// Validate enforces that a provider needing documents is never verified.
func (s ProviderStatus) Validate() error {
	if s.NeedsDocuments && s.IsVerified {
		return ErrContradictoryStatus
	}
	return nil
}

// OnboardingState is the provider's position in the onboarding sequence.
type OnboardingState string

const (
	OnboardingUnknown          OnboardingState = "unknown"
	OnboardingPendingDocuments OnboardingState = "registered_pending_documents"
	OnboardingPendingReview    OnboardingState = "documents_submitted_pending_review"
	OnboardingVerified         OnboardingState = "verified"
	OnboardingRejected         OnboardingState = "rejected"
)

// State derives the onboarding state from the status flags.
func (s ProviderStatus) State() OnboardingState {
	switch {
	case s.IsVerified:
		return OnboardingVerified
	case s.Rejected:
		return OnboardingRejected
	case s.NeedsDocuments:
		return OnboardingPendingDocuments
	default:
		return OnboardingPendingReview
	}
}
