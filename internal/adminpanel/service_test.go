package adminpanel

import (
	"context"
	"testing"
	"time"

	"github.com/rpattn/clientops/internal/domain"
	"github.com/rpattn/clientops/internal/repository"

	"github.com/google/uuid"
)

type stubClientRepo struct {
	repository.ClientRepository
	clients []domain.Client
}

func (s *stubClientRepo) List(ctx context.Context) ([]domain.Client, error) {
	return s.clients, nil
}

type stubTicketRepo struct {
	repository.TicketRepository
	tickets []domain.DailyUpdateTicket
}

func (s *stubTicketRepo) ListByDate(ctx context.Context, date string) ([]domain.DailyUpdateTicket, error) {
	out := make([]domain.DailyUpdateTicket, 0)
	for _, ticket := range s.tickets {
		if ticket.Date == date {
			out = append(out, ticket)
		}
	}
	return out, nil
}

func ticket(clientID uuid.UUID, category domain.TicketCategory, informed bool, at time.Time) domain.DailyUpdateTicket {
	t := domain.DailyUpdateTicket{
		ID:          uuid.New(),
		ClientID:    clientID,
		Category:    category,
		Date:        "2026-03-10",
		Informed:    informed,
		SubmittedAt: at,
	}
	if !informed {
		t.ReasonCode = domain.ReasonClientMaintenance
	}
	return t
}

func fixture() (*stubClientRepo, *stubTicketRepo, map[string]uuid.UUID) {
	ids := map[string]uuid.UUID{
		"done":    uuid.New(),
		"partial": uuid.New(),
		"silent":  uuid.New(),
		"blocked": uuid.New(),
	}
	clients := &stubClientRepo{clients: []domain.Client{
		{ID: ids["silent"], Name: "Delta"},
		{ID: ids["done"], Name: "Alpha", AssignedEngineer: "Dana"},
		{ID: ids["partial"], Name: "Bravo"},
		{ID: ids["blocked"], Name: "Charlie"},
	}}

	morning := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	tickets := &stubTicketRepo{tickets: []domain.DailyUpdateTicket{
		ticket(ids["done"], domain.TicketCategoryCollectors, true, morning),
		ticket(ids["done"], domain.TicketCategoryMissingLogs, true, morning.Add(time.Hour)),
		ticket(ids["partial"], domain.TicketCategoryCollectors, true, morning),
		ticket(ids["blocked"], domain.TicketCategoryCollectors, false, morning),
		ticket(ids["blocked"], domain.TicketCategoryMissingLogs, true, morning),
	}}
	return clients, tickets, ids
}

func newService(clients *stubClientRepo, tickets *stubTicketRepo, now time.Time) *Service {
	return NewService(clients, tickets,
		WithCutoff(domain.Cutoff{Hour: 16, Location: time.UTC}),
		WithClock(func() time.Time { return now }),
	)
}

func statuses(panel domain.AdminPanel) map[string]domain.OverallStatus {
	out := make(map[string]domain.OverallStatus, len(panel.Rows))
	for _, row := range panel.Rows {
		out[row.ClientName] = row.OverallStatus
	}
	return out
}

func TestBuildBeforeCutoff(t *testing.T) {
	clients, tickets, _ := fixture()
	svc := newService(clients, tickets, time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC))

	panel, err := svc.Build(context.Background(), "2026-03-10", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if panel.PastCutoff || panel.Cutoff != "16:00" {
		t.Fatalf("unexpected cutoff info: %+v", panel)
	}

	got := statuses(panel)
	want := map[string]domain.OverallStatus{
		"Alpha":   domain.OverallStatusDone,
		"Bravo":   domain.OverallStatusPending,
		"Charlie": domain.OverallStatusNotInformed,
		"Delta":   domain.OverallStatusPending,
	}
	for name, status := range want {
		if got[name] != status {
			t.Fatalf("%s: got %s want %s", name, got[name], status)
		}
	}

	if panel.Rows[0].ClientName != "Alpha" || panel.Rows[3].ClientName != "Delta" {
		t.Fatalf("rows should be sorted by client name: %+v", panel.Rows)
	}
	if panel.Summary.Total != 4 || panel.Summary.Pending != 2 || panel.Summary.Done != 1 || panel.Summary.NotInformed != 1 {
		t.Fatalf("unexpected summary: %+v", panel.Summary)
	}
}

func TestBuildAfterCutoffMarksOverdue(t *testing.T) {
	clients, tickets, _ := fixture()
	svc := newService(clients, tickets, time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC))

	panel, err := svc.Build(context.Background(), "2026-03-10", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := statuses(panel)
	if got["Bravo"] != domain.OverallStatusOverdue || got["Delta"] != domain.OverallStatusOverdue {
		t.Fatalf("expected overdue rows, got %v", got)
	}
	if got["Charlie"] != domain.OverallStatusNotInformed || got["Alpha"] != domain.OverallStatusDone {
		t.Fatalf("cutoff must not change settled rows, got %v", got)
	}
	if panel.Summary.Overdue != 2 {
		t.Fatalf("unexpected summary: %+v", panel.Summary)
	}
}

func TestBuildRowDetails(t *testing.T) {
	clients, tickets, _ := fixture()
	svc := newService(clients, tickets, time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC))

	panel, err := svc.Build(context.Background(), "2026-03-10", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	alpha := panel.Rows[0]
	if alpha.LastUpdate == nil || alpha.LastUpdate.Hour() != 10 {
		t.Fatalf("last update should be the latest ticket, got %v", alpha.LastUpdate)
	}
	charlie := panel.Rows[2]
	if charlie.CollectorsStatus != domain.CategoryStatusNotInformed || charlie.CollectorsReason != "CLIENT_MAINTENANCE" {
		t.Fatalf("unexpected charlie row: %+v", charlie)
	}
	delta := panel.Rows[3]
	if delta.LastUpdate != nil || delta.CollectorsStatus != domain.CategoryStatusPending {
		t.Fatalf("unexpected delta row: %+v", delta)
	}
}

func TestBuildFiltersByStatus(t *testing.T) {
	clients, tickets, _ := fixture()
	svc := newService(clients, tickets, time.Date(2026, 3, 10, 17, 0, 0, 0, time.UTC))

	panel, err := svc.Build(context.Background(), "2026-03-10", "overdue")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(panel.Rows) != 2 || panel.Summary.Total != 2 {
		t.Fatalf("expected two overdue rows, got %+v", panel.Rows)
	}

	if _, err := svc.Build(context.Background(), "2026-03-10", "LATE"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

func TestBuildPastAndFutureDates(t *testing.T) {
	clients, tickets, _ := fixture()
	svc := newService(clients, tickets, time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC))

	past, err := svc.Build(context.Background(), "2026-03-09", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !past.PastCutoff || past.Summary.Overdue != 4 {
		t.Fatalf("a past date with no tickets should be all overdue: %+v", past.Summary)
	}

	future, err := svc.Build(context.Background(), "2026-03-11", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if future.PastCutoff || future.Summary.Pending != 4 {
		t.Fatalf("a future date should be all pending: %+v", future.Summary)
	}
}

func TestBuildDefaultsToToday(t *testing.T) {
	clients, tickets, _ := fixture()
	svc := newService(clients, tickets, time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC))

	panel, err := svc.Build(context.Background(), "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if panel.Date != "2026-03-10" {
		t.Fatalf("expected today's date, got %s", panel.Date)
	}
}
