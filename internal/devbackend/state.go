package devbackend

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/homeservices-portal/internal/domain"
)

type account struct {
	ID             int
	Email          string
	FullName       string
	PhoneNumber    string
	Address        string
	PasswordHash   string
	Role           domain.Role
	SuperAdmin     bool
	IDVerification string
	Certification  string
	Verified       bool
}

func (a *account) hasDocuments() bool {
	return a.IDVerification != "" && a.Certification != ""
}

type application struct {
	ID              int
	FullName        string
	Email           string
	PhoneNumber     string
	Address         string
	YearsExperience *int
	PasswordHash    string
	IDVerification  string
	Certification   string
	Status          domain.RequestStatus
	RequestedAt     time.Time
}

func (a *application) hasDocuments() bool {
	return a.IDVerification != "" && a.Certification != ""
}

func (a *application) wire() fiberMap {
	m := fiberMap{
		"id":           a.ID,
		"full_name":    a.FullName,
		"email":        a.Email,
		"status":       string(a.Status),
		"requested_at": a.RequestedAt.Format("2006-01-02T15:04:05.000000"),
	}
	optional(m, "phone_number", a.PhoneNumber)
	optional(m, "address", a.Address)
	optional(m, "id_verification", a.IDVerification)
	optional(m, "certification", a.Certification)
	if a.YearsExperience != nil {
		m["years_experience"] = *a.YearsExperience
	} else {
		m["years_experience"] = nil
	}
	return m
}

type fiberMap = map[string]any

func optional(m fiberMap, key, value string) {
	if value == "" {
		m[key] = nil
		return
	}
	m[key] = value
}

// state is the stub's in-memory database.
type state struct {
	mu           sync.Mutex
	nextID       int
	accounts     map[string]*account
	applications []*application
	reports      []*domain.Report
}

func newState() *state {
	return &state{nextID: 1, accounts: make(map[string]*account)}
}

func (s *state) id() int {
	id := s.nextID
	s.nextID++
	return id
}

func (s *state) emailTaken(email string) bool {
	if _, ok := s.accounts[email]; ok {
		return true
	}
	for _, app := range s.applications {
		if app.Email == email && app.Status != domain.RequestStatusRejected {
			return true
		}
	}
	return false
}

func (s *state) accountByID(id string) *account {
	for _, acct := range s.accounts {
		if strconv.Itoa(acct.ID) == id {
			return acct
		}
	}
	return nil
}

// applicationByEmail prefers a pending application over an earlier rejected one.
func (s *state) applicationByEmail(email string) *application {
	var rejected *application
	for _, app := range s.applications {
		if app.Email != email {
			continue
		}
		switch app.Status {
		case domain.RequestStatusPending:
			return app
		case domain.RequestStatusRejected:
			rejected = app
		}
	}
	return rejected
}

func (s *state) applicationByID(id string) *application {
	for _, app := range s.applications {
		if strconv.Itoa(app.ID) == id {
			return app
		}
	}
	return nil
}

// applicationsWithStatus returns newest requests first. An empty status matches all.
func (s *state) applicationsWithStatus(status string) []fiberMap {
	matched := make([]*application, 0, len(s.applications))
	for _, app := range s.applications {
		if status == "" || string(app.Status) == status {
			matched = append(matched, app)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].RequestedAt.After(matched[j].RequestedAt)
	})
	out := make([]fiberMap, 0, len(matched))
	for _, app := range matched {
		out = append(out, app.wire())
	}
	return out
}

func (s *state) addReport(title, reason, reporter, reported string, at time.Time) {
	s.reports = append(s.reports, &domain.Report{
		ID:        uuid.NewString(),
		Title:     title,
		Reason:    reason,
		Reporter:  reporter,
		Reported:  reported,
		CreatedAt: at,
		Status:    domain.ReportStatusOpen,
	})
}

func (s *state) reportsWithStatus(status string) []domain.Report {
	out := make([]domain.Report, 0, len(s.reports))
	for _, r := range s.reports {
		if status == "" || string(r.Status) == status {
			out = append(out, *r)
		}
	}
	return out
}

func (s *state) reportByID(id string) *domain.Report {
	for _, r := range s.reports {
		if r.ID == id {
			return r
		}
	}
	return nil
}
