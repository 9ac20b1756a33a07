package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CategoryStatus is the informed state of one ticket category for a day.
type CategoryStatus string

const (
	CategoryStatusDone        CategoryStatus = "DONE"
	CategoryStatusPending     CategoryStatus = "PENDING"
	CategoryStatusNotInformed CategoryStatus = "NOT_INFORMED"
)

// OverallStatus is the per-client rollup shown in the admin panel.
type OverallStatus string

const (
	OverallStatusDone        OverallStatus = "DONE"
	OverallStatusPending     OverallStatus = "PENDING"
	OverallStatusOverdue     OverallStatus = "OVERDUE"
	OverallStatusNotInformed OverallStatus = "NOT_INFORMED"
)

// OverallStatuses lists every rollup value.
var OverallStatuses = []OverallStatus{
	OverallStatusDone,
	OverallStatusPending,
	OverallStatusOverdue,
	OverallStatusNotInformed,
}

// Valid reports whether the value is a known rollup status.
func (s OverallStatus) Valid() bool {
	for _, status := range OverallStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// DefaultCutoff is the daily deadline for informing clients.
var DefaultCutoff = Cutoff{Hour: 16}

// Cutoff is a wall-clock time of day in a fixed location.
type Cutoff struct {
	Hour     int
	Minute   int
	Location *time.Location
}

// ParseCutoff parses an HH:MM time of day.
func ParseCutoff(raw string, loc *time.Location) (Cutoff, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 {
		return Cutoff{}, fmt.Errorf("invalid cutoff %q: expected HH:MM", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return Cutoff{}, fmt.Errorf("invalid cutoff hour in %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return Cutoff{}, fmt.Errorf("invalid cutoff minute in %q", raw)
	}
	return Cutoff{Hour: hour, Minute: minute, Location: loc}, nil
}

func (c Cutoff) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// String renders the cutoff as HH:MM.
func (c Cutoff) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Deadline returns the cutoff instant on the civil date of day.
func (c Cutoff) Deadline(day time.Time) time.Time {
	loc := c.location()
	local := day.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), c.Hour, c.Minute, 0, 0, loc)
}

// Passed reports whether now is strictly after the cutoff on the given day.
func (c Cutoff) Passed(day, now time.Time) bool {
	return now.After(c.Deadline(day))
}

// CategoryStatusFromTicket derives a category status from the day's ticket, if any.
func CategoryStatusFromTicket(ticket *DailyUpdateTicket) CategoryStatus {
	switch {
	case ticket == nil:
		return CategoryStatusPending
	case ticket.Informed:
		return CategoryStatusDone
	default:
		return CategoryStatusNotInformed
	}
}

// RollupStatus combines both category statuses. A pending category wins over a
// not-informed one and turns into OVERDUE once pastCutoff is true.
func RollupStatus(collectors, missingLogs CategoryStatus, pastCutoff bool) OverallStatus {
	if collectors == CategoryStatusPending || missingLogs == CategoryStatusPending {
		if pastCutoff {
			return OverallStatusOverdue
		}
		return OverallStatusPending
	}
	if collectors == CategoryStatusNotInformed || missingLogs == CategoryStatusNotInformed {
		return OverallStatusNotInformed
	}
	return OverallStatusDone
}

// Rollup evaluates the overall status of day for the given wall-clock time.
func Rollup(collectors, missingLogs CategoryStatus, day, now time.Time, cutoff Cutoff) OverallStatus {
	return RollupStatus(collectors, missingLogs, cutoff.Passed(day, now))
}
