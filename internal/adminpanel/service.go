package adminpanel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rpattn/clientops/internal/domain"
	"github.com/rpattn/clientops/internal/repository"
	"github.com/rpattn/clientops/pkg/validator"

	"github.com/google/uuid"
)

// Service derives the daily informed-status table.
type Service struct {
	clients repository.ClientRepository
	tickets repository.TicketRepository
	cutoff  domain.Cutoff
	now     func() time.Time
}

// Option configures the admin panel service.
type Option func(*Service)

// WithCutoff sets the daily deadline.
func WithCutoff(cutoff domain.Cutoff) Option {
	return func(s *Service) {
		s.cutoff = cutoff
	}
}

// WithClock overrides the clock compared against the cutoff.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a new admin panel service.
func NewService(clients repository.ClientRepository, tickets repository.TicketRepository, opts ...Option) *Service {
	service := &Service{
		clients: clients,
		tickets: tickets,
		cutoff:  domain.DefaultCutoff,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *Service) location() *time.Location {
	if s.cutoff.Location == nil {
		return time.Local
	}
	return s.cutoff.Location
}

// Today is the current civil date in the cutoff's location.
func (s *Service) Today() string {
	return domain.FormatDate(s.now().In(s.location()))
}

// Build computes one row per client for date (today when empty). A non-empty
// status keeps only rows with that overall status.
func (s *Service) Build(ctx context.Context, date string, status string) (domain.AdminPanel, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		date = s.Today()
	}
	day, err := domain.ParseDate(date, s.location())
	if err != nil {
		result := validator.NewResult()
		result.AddValue("date", "date must be formatted as YYYY-MM-DD", date)
		return domain.AdminPanel{}, result.Err()
	}

	var statusFilter domain.OverallStatus
	if trimmed := strings.TrimSpace(status); trimmed != "" {
		statusFilter = domain.OverallStatus(strings.ReplaceAll(strings.ToUpper(trimmed), "-", "_"))
		if !statusFilter.Valid() {
			result := validator.NewResult()
			result.AddValue("status", "status must be one of DONE, PENDING, OVERDUE, NOT_INFORMED", status)
			return domain.AdminPanel{}, result.Err()
		}
	}

	clients, err := s.clients.List(ctx)
	if err != nil {
		return domain.AdminPanel{}, fmt.Errorf("failed to list clients: %w", err)
	}
	tickets, err := s.tickets.ListByDate(ctx, date)
	if err != nil {
		return domain.AdminPanel{}, fmt.Errorf("failed to list tickets: %w", err)
	}

	byClient := make(map[uuid.UUID]map[domain.TicketCategory]*domain.DailyUpdateTicket, len(clients))
	for i := range tickets {
		ticket := &tickets[i]
		if byClient[ticket.ClientID] == nil {
			byClient[ticket.ClientID] = make(map[domain.TicketCategory]*domain.DailyUpdateTicket, 2)
		}
		byClient[ticket.ClientID][ticket.Category] = ticket
	}

	now := s.now()
	pastCutoff := s.cutoff.Passed(day, now)
	panel := domain.AdminPanel{
		Date:        date,
		Cutoff:      s.cutoff.String(),
		PastCutoff:  pastCutoff,
		GeneratedAt: now,
		Rows:        []domain.AdminPanelRow{},
	}

	for _, client := range clients {
		row := BuildRow(client, date, byClient[client.ID], pastCutoff)
		if statusFilter != "" && row.OverallStatus != statusFilter {
			continue
		}
		panel.Rows = append(panel.Rows, row)
		panel.Summary.Add(row.OverallStatus)
	}

	domain.SortStable(panel.Rows, domain.SortDirectionAsc, func(a, b domain.AdminPanelRow) bool {
		return domain.FoldLess(a.ClientName, b.ClientName)
	})
	return panel, nil
}

// BuildRow derives one client's statuses from the day's tickets by category.
func BuildRow(client domain.Client, date string, tickets map[domain.TicketCategory]*domain.DailyUpdateTicket, pastCutoff bool) domain.AdminPanelRow {
	collectors := tickets[domain.TicketCategoryCollectors]
	missingLogs := tickets[domain.TicketCategoryMissingLogs]

	row := domain.AdminPanelRow{
		ClientID:          client.ID,
		ClientName:        client.Name,
		AssignedEngineer:  client.AssignedEngineer,
		Date:              date,
		CollectorsStatus:  domain.CategoryStatusFromTicket(collectors),
		MissingLogsStatus: domain.CategoryStatusFromTicket(missingLogs),
	}
	row.OverallStatus = domain.RollupStatus(row.CollectorsStatus, row.MissingLogsStatus, pastCutoff)

	for _, ticket := range []*domain.DailyUpdateTicket{collectors, missingLogs} {
		if ticket == nil {
			continue
		}
		if row.LastUpdate == nil || ticket.SubmittedAt.After(*row.LastUpdate) {
			submitted := ticket.SubmittedAt
			row.LastUpdate = &submitted
		}
	}
	if collectors != nil {
		row.CollectorsReason = collectors.Reason()
	}
	if missingLogs != nil {
		row.MissingLogsReason = missingLogs.Reason()
	}
	return row
}
