package domain

import (
	"fmt"
	"time"
)

// ReportStatus enumerates a moderation report's lifecycle.
type ReportStatus string

const (
	ReportStatusOpen      ReportStatus = "open"
	ReportStatusResolved  ReportStatus = "resolved"
	ReportStatusDismissed ReportStatus = "dismissed"
)

// ParseReportStatus rejects anything outside the closed set.
func ParseReportStatus(raw string) (ReportStatus, error) {
	switch s := ReportStatus(raw); s {
	case ReportStatusOpen, ReportStatusResolved, ReportStatusDismissed:
		return s, nil
	}
	return "", fmt.Errorf("unknown report status %q", raw)
}

// Report is a moderation item raised against a user or provider.
type Report struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	Reason    string       `json:"reason"`
	Reporter  string       `json:"reporter,omitempty"`
	Reported  string       `json:"reported,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	Status    ReportStatus `json:"status"`
}

// ItemID identifies the report inside a pending list.
func (r Report) ItemID() string {
	return r.ID
}
