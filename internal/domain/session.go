package domain

import "errors"

// Session is the authenticated identity and credential held by the client.
type Session struct {
	SubjectID   string `json:"subject_id"`
	Role        Role   `json:"role"`
	Credential  string `json:"credential"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Validate enforces that credential and role travel together.
func (s Session) Validate() error {
	if s.Credential == "" {
		return errors.New("session credential is empty")
	}
	if !s.Role.Valid() {
		return ErrUnknownRole{Value: string(s.Role)}
	}
	return nil
}

// Identity is what the backend asserts about a credential when asked to validate it.
type Identity struct {
	SubjectID   string
	Role        Role
	Email       string
	DisplayName string
}
