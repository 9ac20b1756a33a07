package domain

import (
	"testing"
	"time"
)

func TestRollupStatusMatrix(t *testing.T) {
	statuses := []CategoryStatus{CategoryStatusDone, CategoryStatusPending, CategoryStatusNotInformed}

	for _, collectors := range statuses {
		for _, missing := range statuses {
			for _, past := range []bool{false, true} {
				got := RollupStatus(collectors, missing, past)

				var want OverallStatus
				switch {
				case collectors == CategoryStatusPending || missing == CategoryStatusPending:
					want = OverallStatusPending
					if past {
						want = OverallStatusOverdue
					}
				case collectors == CategoryStatusNotInformed || missing == CategoryStatusNotInformed:
					want = OverallStatusNotInformed
				default:
					want = OverallStatusDone
				}

				if got != want {
					t.Fatalf("RollupStatus(%s, %s, past=%v) got %s want %s", collectors, missing, past, got, want)
				}
			}
		}
	}
}

func TestRollupPendingAfterCutoffIsOverdue(t *testing.T) {
	loc := time.UTC
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, loc)
	now := time.Date(2026, 3, 10, 17, 0, 0, 0, loc)
	cutoff := Cutoff{Hour: 16, Location: loc}

	if got := Rollup(CategoryStatusPending, CategoryStatusDone, day, now, cutoff); got != OverallStatusOverdue {
		t.Fatalf("expected OVERDUE, got %s", got)
	}
}

func TestRollupCutoffBoundary(t *testing.T) {
	loc := time.UTC
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, loc)
	cutoff := Cutoff{Hour: 16, Location: loc}

	cases := []struct {
		name string
		now  time.Time
		want OverallStatus
	}{
		{"morning", time.Date(2026, 3, 10, 9, 30, 0, 0, loc), OverallStatusPending},
		{"exactly at cutoff", time.Date(2026, 3, 10, 16, 0, 0, 0, loc), OverallStatusPending},
		{"one second past", time.Date(2026, 3, 10, 16, 0, 1, 0, loc), OverallStatusOverdue},
		{"next day", time.Date(2026, 3, 11, 8, 0, 0, 0, loc), OverallStatusOverdue},
		{"day before", time.Date(2026, 3, 9, 18, 0, 0, 0, loc), OverallStatusPending},
	}
	for _, tc := range cases {
		if got := Rollup(CategoryStatusDone, CategoryStatusPending, day, tc.now, cutoff); got != tc.want {
			t.Fatalf("%s: got %s want %s", tc.name, got, tc.want)
		}
	}
}

func TestRollupNotInformedIgnoresCutoff(t *testing.T) {
	loc := time.UTC
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, loc)
	late := time.Date(2026, 3, 10, 23, 0, 0, 0, loc)

	if got := Rollup(CategoryStatusNotInformed, CategoryStatusDone, day, late, Cutoff{Hour: 16, Location: loc}); got != OverallStatusNotInformed {
		t.Fatalf("expected NOT_INFORMED, got %s", got)
	}
	if got := Rollup(CategoryStatusDone, CategoryStatusDone, day, late, Cutoff{Hour: 16, Location: loc}); got != OverallStatusDone {
		t.Fatalf("expected DONE, got %s", got)
	}
}

func TestCategoryStatusFromTicket(t *testing.T) {
	if got := CategoryStatusFromTicket(nil); got != CategoryStatusPending {
		t.Fatalf("missing ticket should be PENDING, got %s", got)
	}
	if got := CategoryStatusFromTicket(&DailyUpdateTicket{Informed: true}); got != CategoryStatusDone {
		t.Fatalf("informed ticket should be DONE, got %s", got)
	}
	if got := CategoryStatusFromTicket(&DailyUpdateTicket{Informed: false, ReasonCode: ReasonOnLeave}); got != CategoryStatusNotInformed {
		t.Fatalf("uninformed ticket should be NOT_INFORMED, got %s", got)
	}
}

func TestParseCutoff(t *testing.T) {
	cutoff, err := ParseCutoff("16:30", time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cutoff.Hour != 16 || cutoff.Minute != 30 {
		t.Fatalf("unexpected cutoff: %+v", cutoff)
	}
	if cutoff.String() != "16:30" {
		t.Fatalf("unexpected string form %q", cutoff.String())
	}

	for _, raw := range []string{"", "16", "24:00", "12:60", "ab:cd"} {
		if _, err := ParseCutoff(raw, time.UTC); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}
