package dto

import "github.com/spec-kit/homeservices-portal/internal/domain"

// SignInRequest payload for sign-in.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// HomeownerRegisterRequest payload for homeowner sign-up.
type HomeownerRegisterRequest struct {
	FullName    string `json:"full_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
}

// ProviderRegisterRequest payload for a provider application.
type ProviderRegisterRequest struct {
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PhoneNumber     string `json:"phone_number"`
	Address         string `json:"address"`
	YearsExperience *int   `json:"years_experience"`
}

// VisitRequest reports the page the UI is showing.
type VisitRequest struct {
	Path string `json:"path"`
}

// SessionView is the session as exposed to the UI. The credential never leaves the controller.
type SessionView struct {
	SubjectID   string      `json:"subject_id"`
	Role        domain.Role `json:"role"`
	DisplayName string      `json:"display_name,omitempty"`
	Email       string      `json:"email,omitempty"`
}

// SessionResponse wraps the optional session.
type SessionResponse struct {
	Authenticated bool         `json:"authenticated"`
	Session       *SessionView `json:"session,omitempty"`
}

// NewSessionResponse builds the response for a possibly absent session.
func NewSessionResponse(sess domain.Session, ok bool) SessionResponse {
	if !ok {
		return SessionResponse{}
	}
	return SessionResponse{
		Authenticated: true,
		Session: &SessionView{
			SubjectID:   sess.SubjectID,
			Role:        sess.Role,
			DisplayName: sess.DisplayName,
			Email:       sess.Email,
		},
	}
}

// ProviderStatusResponse is the provider status object the UI renders from.
type ProviderStatusResponse struct {
	IsVerified     bool                   `json:"isVerified"`
	NeedsDocuments bool                   `json:"needsDocuments"`
	State          domain.OnboardingState `json:"state"`
	LastError      string                 `json:"lastError,omitempty"`
}
