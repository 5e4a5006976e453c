package domain

import (
	"fmt"
	"time"
)

// RequestStatus enumerates a provider registration request's lifecycle.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// ParseRequestStatus rejects anything outside the closed set.
func ParseRequestStatus(raw string) (RequestStatus, error) {
	switch s := RequestStatus(raw); s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected:
		return s, nil
	}
	return "", fmt.Errorf("unknown registration status %q", raw)
}

// Resolved reports whether the request has left the pending working set.
func (s RequestStatus) Resolved() bool {
	return s == RequestStatusApproved || s == RequestStatusRejected
}

// RegistrationRequest is a provider applicant awaiting admin disposition.
type RegistrationRequest struct {
	ID                string        `json:"id"`
	FullName          string        `json:"full_name"`
	Email             string        `json:"email"`
	PhoneNumber       *string       `json:"phone_number,omitempty"`
	YearsExperience   *int          `json:"years_experience,omitempty"`
	Address           *string       `json:"address,omitempty"`
	IDVerificationRef *string       `json:"id_verification,omitempty"`
	CertificationRef  *string       `json:"certification,omitempty"`
	RequestedAt       time.Time     `json:"requested_at"`
	Status            RequestStatus `json:"status"`
}

// ItemID identifies the request inside a pending list.
func (r RegistrationRequest) ItemID() string {
	return r.ID
}

// HasDocuments reports whether both onboarding documents were supplied.
func (r RegistrationRequest) HasDocuments() bool {
	return r.IDVerificationRef != nil && *r.IDVerificationRef != "" &&
		r.CertificationRef != nil && *r.CertificationRef != ""
}
