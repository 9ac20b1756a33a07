package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire and storage layout for civil dates.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD civil date in the given location.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	parsed, err := time.ParseInLocation(DateLayout, strings.TrimSpace(raw), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", raw)
	}
	return parsed, nil
}

// FormatDate renders the civil date of t.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// TicketCategory is the issue category a daily ticket covers.
type TicketCategory string

const (
	TicketCategoryCollectors  TicketCategory = "COLLECTORS"
	TicketCategoryMissingLogs TicketCategory = "MISSING_LOGS"
)

// TicketCategories lists both categories in display order.
var TicketCategories = []TicketCategory{TicketCategoryCollectors, TicketCategoryMissingLogs}

// Valid reports whether the category is known.
func (c TicketCategory) Valid() bool {
	return c == TicketCategoryCollectors || c == TicketCategoryMissingLogs
}

// ParseTicketCategory normalizes free-form input, accepting "missing-logs" style spellings.
func ParseTicketCategory(raw string) TicketCategory {
	value := strings.ToUpper(strings.TrimSpace(raw))
	value = strings.ReplaceAll(value, "-", "_")
	value = strings.ReplaceAll(value, " ", "_")
	return TicketCategory(value)
}

// ReasonCode explains why a client was not informed.
type ReasonCode string

const (
	ReasonOnLeave           ReasonCode = "ON_LEAVE"
	ReasonAwaitingApproval  ReasonCode = "AWAITING_APPROVAL"
	ReasonClientMaintenance ReasonCode = "CLIENT_MAINTENANCE"
	ReasonNoChange          ReasonCode = "NO_CHANGE"
	ReasonOther             ReasonCode = "OTHER"
)

// ReasonCodes lists the fixed reason enum.
var ReasonCodes = []ReasonCode{
	ReasonOnLeave,
	ReasonAwaitingApproval,
	ReasonClientMaintenance,
	ReasonNoChange,
	ReasonOther,
}

// Valid reports whether the reason is part of the fixed enum.
func (r ReasonCode) Valid() bool {
	for _, code := range ReasonCodes {
		if r == code {
			return true
		}
	}
	return false
}

// DailyUpdateTicket is one engineer's daily confirmation for a client and category.
type DailyUpdateTicket struct {
	ID            uuid.UUID      `json:"id"`
	ClientID      uuid.UUID      `json:"client_id"`
	Category      TicketCategory `json:"category"`
	Date          string         `json:"date"`
	Informed      bool           `json:"informed"`
	EmailSubject  string         `json:"email_subject,omitempty"`
	ReasonCode    ReasonCode     `json:"reason_code,omitempty"`
	ReasonText    string         `json:"reason_text,omitempty"`
	AffectedCount int            `json:"affected_count"`
	SnapshotIDs   []uuid.UUID    `json:"snapshot_ids"`
	SubmittedBy   string         `json:"submitted_by"`
	SubmittedAt   time.Time      `json:"submitted_at"`
}

// TicketKey identifies the single ticket slot per client, category and date.
type TicketKey struct {
	ClientID uuid.UUID
	Category TicketCategory
	Date     string
}

// Key returns the uniqueness key of the ticket.
func (t DailyUpdateTicket) Key() TicketKey {
	return TicketKey{ClientID: t.ClientID, Category: t.Category, Date: t.Date}
}

// SnapshotToJSON marshals snapshot identifiers for storage.
func (t DailyUpdateTicket) SnapshotToJSON() (json.RawMessage, error) {
	ids := t.SnapshotIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return json.Marshal(ids)
}

// SnapshotFromJSON unmarshals stored snapshot identifiers.
func SnapshotFromJSON(data []byte) ([]uuid.UUID, error) {
	if len(data) == 0 {
		return []uuid.UUID{}, nil
	}
	var ids []uuid.UUID
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return ids, nil
}

// Reason renders the reason code and text the way the admin table shows it.
func (t DailyUpdateTicket) Reason() string {
	if t.Informed || t.ReasonCode == "" {
		return ""
	}
	if t.ReasonCode == ReasonOther && strings.TrimSpace(t.ReasonText) != "" {
		return fmt.Sprintf("%s: %s", t.ReasonCode, strings.TrimSpace(t.ReasonText))
	}
	return string(t.ReasonCode)
}
