package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ClientStatus is the engagement stage of a managed client.
type ClientStatus string

const (
	ClientStatusPlanning    ClientStatus = "planning"
	ClientStatusDevelopment ClientStatus = "development"
	ClientStatusTesting     ClientStatus = "testing"
	ClientStatusStaging     ClientStatus = "staging"
	ClientStatusProduction  ClientStatus = "production"
	ClientStatusMaintenance ClientStatus = "maintenance"
)

// ClientStatuses lists every valid status in lifecycle order.
var ClientStatuses = []ClientStatus{
	ClientStatusPlanning,
	ClientStatusDevelopment,
	ClientStatusTesting,
	ClientStatusStaging,
	ClientStatusProduction,
	ClientStatusMaintenance,
}

// Valid reports whether the status is one of the known stages.
func (s ClientStatus) Valid() bool {
	for _, status := range ClientStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// ParseClientStatus normalizes free-form input into a ClientStatus.
func ParseClientStatus(raw string) ClientStatus {
	return ClientStatus(strings.ToLower(strings.TrimSpace(raw)))
}

// Client represents a managed-security-service customer.
type Client struct {
	ID               uuid.UUID    `json:"id"`
	Name             string       `json:"name"`
	ContactName      string       `json:"contact_name"`
	ContactEmail     string       `json:"contact_email"`
	ContactPhone     string       `json:"contact_phone"`
	AssignedEngineer string       `json:"assigned_engineer"`
	Status           ClientStatus `json:"status"`
	Industry         string       `json:"industry"`
	Website          string       `json:"website"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// NewClient creates a client from onboarding input.
func NewClient(input ClientInput) Client {
	now := time.Now()
	status := input.Status
	if status == "" {
		status = ClientStatusPlanning
	}
	return Client{
		ID:               uuid.New(),
		Name:             strings.TrimSpace(input.Name),
		ContactName:      strings.TrimSpace(input.ContactName),
		ContactEmail:     strings.TrimSpace(input.ContactEmail),
		ContactPhone:     strings.TrimSpace(input.ContactPhone),
		AssignedEngineer: strings.TrimSpace(input.AssignedEngineer),
		Status:           status,
		Industry:         strings.TrimSpace(input.Industry),
		Website:          strings.TrimSpace(input.Website),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// NameKey is the case-folded form client names are unique by. It lowercases
// the full Unicode range, unlike SQLite's NOCASE collation.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// WithInput returns a copy of the client with every editable field replaced.
func (c Client) WithInput(input ClientInput) Client {
	updated := NewClient(input)
	updated.ID = c.ID
	updated.CreatedAt = c.CreatedAt
	return updated
}

// ClientInput carries the editable fields of a client.
type ClientInput struct {
	Name             string       `json:"name"`
	ContactName      string       `json:"contactName"`
	ContactEmail     string       `json:"contactEmail"`
	ContactPhone     string       `json:"contactPhone"`
	AssignedEngineer string       `json:"assignedEngineer"`
	Status           ClientStatus `json:"status"`
	Industry         string       `json:"industry"`
	Website          string       `json:"website"`
}
