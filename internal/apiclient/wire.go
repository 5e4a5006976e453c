package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/homeservices-portal/internal/domain"
)

// wireID accepts identifiers encoded either as JSON numbers or strings.
type wireID string

func (id *wireID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = wireID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = wireID(n.String())
	return nil
}

// wireTime accepts RFC 3339 as well as naive ISO timestamps and plain dates.
type wireTime struct {
	time.Time
}

var wireTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func (t *wireTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	raw, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if raw == "" {
		return nil
	}
	for _, layout := range wireTimeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("timestamp %q: unrecognised layout", raw)
}

type signInResponse struct {
	AccessToken       string `json:"access_token"`
	TokenType         string `json:"token_type"`
	Role              string `json:"role"`
	UserID            wireID `json:"user_id"`
	TempUserID        wireID `json:"temp_user_id"`
	Email             string `json:"email"`
	FullName          string `json:"full_name"`
	RedirectTo        string `json:"redirect_to"`
	NeedsDocuments    *bool  `json:"needs_documents"`
	NeedsVerification bool   `json:"needs_verification"`
	IsPending         bool   `json:"is_pending"`
}

type validateResponse struct {
	Valid        bool   `json:"valid"`
	UserID       wireID `json:"user_id"`
	Email        string `json:"email"`
	FullName     string `json:"full_name"`
	Role         string `json:"role"`
	IsSuperAdmin bool   `json:"is_super_admin"`
}

type providerStatusResponse struct {
	IsVerified     bool   `json:"is_verified"`
	NeedsDocuments bool   `json:"needs_documents"`
	Status         string `json:"status"`
}

type uploadResponse struct {
	Message    string `json:"message"`
	ProviderID wireID `json:"provider_id"`
	RedirectTo string `json:"redirect_to"`
}

type wireRegistration struct {
	ID              wireID   `json:"id"`
	FullName        string   `json:"full_name"`
	Email           string   `json:"email"`
	PhoneNumber     *string  `json:"phone_number"`
	YearsExperience *int     `json:"years_experience"`
	Address         *string  `json:"address"`
	IDVerification  *string  `json:"id_verification"`
	Certification   *string  `json:"certification"`
	CreatedAt       wireTime `json:"created_at"`
	RequestedAt     wireTime `json:"requested_at"`
	Status          string   `json:"status"`
}

func (w wireRegistration) toDomain() (domain.RegistrationRequest, error) {
	if w.Status == "" {
		w.Status = string(domain.RequestStatusPending)
	}
	status, err := domain.ParseRequestStatus(strings.ToLower(w.Status))
	if err != nil {
		return domain.RegistrationRequest{}, err
	}
	if w.ID == "" {
		return domain.RegistrationRequest{}, fmt.Errorf("registration request without id")
	}
	requestedAt := w.RequestedAt.Time
	if requestedAt.IsZero() {
		requestedAt = w.CreatedAt.Time
	}
	return domain.RegistrationRequest{
		ID:                string(w.ID),
		FullName:          w.FullName,
		Email:             w.Email,
		PhoneNumber:       w.PhoneNumber,
		YearsExperience:   w.YearsExperience,
		Address:           w.Address,
		IDVerificationRef: w.IDVerification,
		CertificationRef:  w.Certification,
		RequestedAt:       requestedAt,
		Status:            status,
	}, nil
}

type registrationActionResponse struct {
	Message         string              `json:"message"`
	UpdatedRequests *[]wireRegistration `json:"updatedRequests"`
}

type wireReport struct {
	ID        wireID   `json:"id"`
	Title     string   `json:"title"`
	Reason    string   `json:"reason"`
	Reporter  string   `json:"reporter"`
	Reported  string   `json:"reported"`
	CreatedAt wireTime `json:"created_at"`
	Date      wireTime `json:"date"`
	Status    string   `json:"status"`
}

func (w wireReport) toDomain() (domain.Report, error) {
	if w.Status == "" {
		w.Status = string(domain.ReportStatusOpen)
	}
	status, err := domain.ParseReportStatus(strings.ToLower(w.Status))
	if err != nil {
		return domain.Report{}, err
	}
	if w.ID == "" {
		return domain.Report{}, fmt.Errorf("report without id")
	}
	createdAt := w.CreatedAt.Time
	if createdAt.IsZero() {
		createdAt = w.Date.Time
	}
	title := w.Title
	if title == "" {
		title = w.Reason
	}
	return domain.Report{
		ID:        string(w.ID),
		Title:     title,
		Reason:    w.Reason,
		Reporter:  w.Reporter,
		Reported:  w.Reported,
		CreatedAt: createdAt,
		Status:    status,
	}, nil
}

type reportActionResponse struct {
	Message        string        `json:"message"`
	UpdatedReports *[]wireReport `json:"updatedReports"`
}

type providerRequestResponse struct {
	Message   string `json:"message"`
	RequestID wireID `json:"request_id"`
}
