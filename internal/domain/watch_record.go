package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RecordKind tags the per-client lists kept next to the daily tickets.
type RecordKind string

const (
	RecordKindAlternativeIP  RecordKind = "ALTERNATIVE_IP"
	RecordKindIgnoredLogType RecordKind = "IGNORED_LOG_TYPE"
	RecordKindCollector      RecordKind = "COLLECTOR"
	RecordKindMissingLog     RecordKind = "MISSING_LOG"
)

// RecordKinds lists every kind.
var RecordKinds = []RecordKind{
	RecordKindAlternativeIP,
	RecordKindIgnoredLogType,
	RecordKindCollector,
	RecordKindMissingLog,
}

// Valid reports whether the kind is known.
func (k RecordKind) Valid() bool {
	for _, kind := range RecordKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// ParseRecordKind accepts "alternative-ips", "collector", "MISSING_LOG" and similar spellings.
func ParseRecordKind(raw string) RecordKind {
	value := strings.ToUpper(strings.TrimSpace(raw))
	value = strings.ReplaceAll(value, "-", "_")
	value = strings.ReplaceAll(value, " ", "_")
	value = strings.TrimSuffix(value, "S")
	if value == "ALTERNATIVE_IP" || value == "ALT_IP" {
		return RecordKindAlternativeIP
	}
	return RecordKind(value)
}

// CategoryForKind maps a record kind to the ticket category it feeds, if any.
func CategoryForKind(kind RecordKind) (TicketCategory, bool) {
	switch kind {
	case RecordKindCollector:
		return TicketCategoryCollectors, true
	case RecordKindMissingLog:
		return TicketCategoryMissingLogs, true
	default:
		return "", false
	}
}

// CollectorHealth classifies a collector by how recently it reported.
type CollectorHealth string

const (
	CollectorHealthHealthy  CollectorHealth = "HEALTHY"
	CollectorHealthWarning  CollectorHealth = "WARNING"
	CollectorHealthCritical CollectorHealth = "CRITICAL"
	CollectorHealthUnknown  CollectorHealth = "UNKNOWN"
)

const (
	collectorHealthyWithin = 15 * time.Minute
	collectorWarningWithin = time.Hour
)

// ClassifyCollector derives the health of a collector last seen at lastSeen.
func ClassifyCollector(lastSeen *time.Time, now time.Time) CollectorHealth {
	if lastSeen == nil || lastSeen.IsZero() {
		return CollectorHealthUnknown
	}
	age := now.Sub(*lastSeen)
	switch {
	case age <= collectorHealthyWithin:
		return CollectorHealthHealthy
	case age <= collectorWarningWithin:
		return CollectorHealthWarning
	default:
		return CollectorHealthCritical
	}
}

// WatchRecord is an alternative IP mapping, ignored log type, collector or
// missing log source belonging to a client.
//
// Name holds the primary value (primary IP, log type, collector or source name)
// and Address the secondary one (alternative IP, collector or source IP).
type WatchRecord struct {
	ID          uuid.UUID        `json:"id"`
	ClientID    uuid.UUID        `json:"client_id"`
	Kind        RecordKind       `json:"kind"`
	Name        string           `json:"name"`
	Address     string           `json:"address,omitempty"`
	Description string           `json:"description,omitempty"`
	Active      bool             `json:"active"`
	LastSeenAt  *time.Time       `json:"last_seen_at,omitempty"`
	Health      *CollectorHealth `json:"health,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// NewWatchRecord creates an active record from input.
func NewWatchRecord(input WatchRecordInput) WatchRecord {
	now := time.Now()
	return WatchRecord{
		ID:          uuid.New(),
		ClientID:    input.ClientID,
		Kind:        input.Kind,
		Name:        strings.TrimSpace(input.Name),
		Address:     strings.TrimSpace(input.Address),
		Description: strings.TrimSpace(input.Description),
		Active:      true,
		LastSeenAt:  input.LastSeenAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// WithHealth returns a copy annotated with collector health when applicable.
func (r WatchRecord) WithHealth(now time.Time) WatchRecord {
	if r.Kind != RecordKindCollector {
		r.Health = nil
		return r
	}
	health := ClassifyCollector(r.LastSeenAt, now)
	r.Health = &health
	return r
}

// Affects reports whether the record counts toward a ticket's affected items.
func (r WatchRecord) Affects(category TicketCategory, now time.Time) bool {
	if !r.Active {
		return false
	}
	switch category {
	case TicketCategoryCollectors:
		return r.Kind == RecordKindCollector && ClassifyCollector(r.LastSeenAt, now) != CollectorHealthHealthy
	case TicketCategoryMissingLogs:
		return r.Kind == RecordKindMissingLog
	default:
		return false
	}
}

// WatchRecordInput carries the fields accepted when creating a record.
type WatchRecordInput struct {
	ClientID    uuid.UUID  `json:"clientId"`
	Kind        RecordKind `json:"kind"`
	Name        string     `json:"name"`
	Address     string     `json:"address"`
	Description string     `json:"description"`
	LastSeenAt  *time.Time `json:"lastSeenAt"`
}

// RecordFilter narrows record listings.
type RecordFilter struct {
	ClientID *uuid.UUID
	Kind     RecordKind
	Active   *bool
}

// Matches reports whether the record passes the filter.
func (f RecordFilter) Matches(r WatchRecord) bool {
	if f.ClientID != nil && r.ClientID != *f.ClientID {
		return false
	}
	if f.Kind != "" && r.Kind != f.Kind {
		return false
	}
	if f.Active != nil && r.Active != *f.Active {
		return false
	}
	return true
}
