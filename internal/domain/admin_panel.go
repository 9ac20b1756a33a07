package domain

import (
	"time"

	"github.com/google/uuid"
)

// AdminPanelRow is the derived daily status of one client.
type AdminPanelRow struct {
	ClientID          uuid.UUID      `json:"client_id"`
	ClientName        string         `json:"client_name"`
	AssignedEngineer  string         `json:"assigned_engineer"`
	Date              string         `json:"date"`
	CollectorsStatus  CategoryStatus `json:"collectors_status"`
	MissingLogsStatus CategoryStatus `json:"missing_logs_status"`
	OverallStatus     OverallStatus  `json:"overall_status"`
	CollectorsReason  string         `json:"collectors_reason,omitempty"`
	MissingLogsReason string         `json:"missing_logs_reason,omitempty"`
	LastUpdate        *time.Time     `json:"last_update,omitempty"`
}

// AdminPanelSummary counts rows per overall status.
type AdminPanelSummary struct {
	Total       int `json:"total"`
	Done        int `json:"done"`
	Pending     int `json:"pending"`
	Overdue     int `json:"overdue"`
	NotInformed int `json:"not_informed"`
}

// Add counts one row.
func (s *AdminPanelSummary) Add(status OverallStatus) {
	s.Total++
	switch status {
	case OverallStatusDone:
		s.Done++
	case OverallStatusPending:
		s.Pending++
	case OverallStatusOverdue:
		s.Overdue++
	case OverallStatusNotInformed:
		s.NotInformed++
	}
}

// AdminPanel is the rollup table for a single date.
type AdminPanel struct {
	Date        string            `json:"date"`
	Cutoff      string            `json:"cutoff"`
	PastCutoff  bool              `json:"past_cutoff"`
	GeneratedAt time.Time         `json:"generated_at"`
	Rows        []AdminPanelRow   `json:"rows"`
	Summary     AdminPanelSummary `json:"summary"`
}
