package tickets

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/rpattn/clientops/internal/auth"
	"github.com/rpattn/clientops/internal/domain"
	"github.com/rpattn/clientops/internal/notify"
	"github.com/rpattn/clientops/internal/repository"
	"github.com/rpattn/clientops/internal/watchlist"
	"github.com/rpattn/clientops/pkg/validator"

	"github.com/google/uuid"
)

// Input is the daily update form payload.
type Input struct {
	ClientID     uuid.UUID         `json:"clientId"`
	Category     string            `json:"category"`
	Date         string            `json:"date"`
	Informed     *bool             `json:"informed"`
	EmailSubject string            `json:"emailSubject"`
	ReasonCode   domain.ReasonCode `json:"reasonCode"`
	ReasonText   string            `json:"reasonText"`
	SubmittedBy  string            `json:"submittedBy"`
}

// Service validates and stores daily update tickets.
type Service struct {
	clients  repository.ClientRepository
	tickets  repository.TicketRepository
	records  repository.WatchRecordRepository
	producer notify.Producer
	location *time.Location
	now      func() time.Time
}

// Option configures the ticket service.
type Option func(*Service)

// WithProducer sets the sink that receives submitted tickets.
func WithProducer(producer notify.Producer) Option {
	return func(s *Service) {
		if producer != nil {
			s.producer = producer
		}
	}
}

// WithLocation sets the location civil dates are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithClock overrides the submission clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a new ticket service.
func NewService(
	clients repository.ClientRepository,
	tickets repository.TicketRepository,
	records repository.WatchRecordRepository,
	opts ...Option,
) *Service {
	service := &Service{
		clients:  clients,
		tickets:  tickets,
		records:  records,
		producer: notify.NewNoopProducer(),
		location: time.Local,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Validate applies the daily update form rules.
func Validate(input Input) error {
	result := validator.NewResult()

	if input.ClientID == uuid.Nil {
		result.Add("clientId", "clientId is required")
	}

	if category := domain.ParseTicketCategory(input.Category); !category.Valid() {
		result.AddValue("category", "category must be COLLECTORS or MISSING_LOGS", input.Category)
	}

	if result.Required("date", input.Date) {
		if _, err := domain.ParseDate(input.Date, time.UTC); err != nil {
			result.AddValue("date", "date must be formatted as YYYY-MM-DD", input.Date)
		}
	}

	switch {
	case input.Informed == nil:
		result.Add("informed", "informed must be yes or no")
	case *input.Informed:
		result.Required("emailSubject", input.EmailSubject)
	default:
		code := normalizeReason(input.ReasonCode)
		switch {
		case code == "":
			result.Add("reasonCode", "reasonCode is required when the client was not informed")
		case !code.Valid():
			result.AddValue("reasonCode", "reasonCode is not a known reason", string(input.ReasonCode))
		case code == domain.ReasonOther:
			if validator.IsBlank(input.ReasonText) {
				result.Add("reasonText", "reasonText is required when reasonCode is OTHER")
			}
		}
	}

	return result.Err()
}

func normalizeReason(code domain.ReasonCode) domain.ReasonCode {
	return domain.ReasonCode(strings.ToUpper(strings.TrimSpace(string(code))))
}

// Submit validates input, snapshots the affected records and stores the
// ticket, replacing an earlier ticket for the same client, category and date.
func (s *Service) Submit(ctx context.Context, input Input) (domain.DailyUpdateTicket, error) {
	if err := Validate(input); err != nil {
		return domain.DailyUpdateTicket{}, err
	}

	client, err := s.clients.GetByID(ctx, input.ClientID)
	if err != nil {
		return domain.DailyUpdateTicket{}, err
	}

	category := domain.ParseTicketCategory(input.Category)
	day, _ := domain.ParseDate(input.Date, s.location)
	now := s.now()

	affected, err := watchlist.AffectedRecords(ctx, s.records, client.ID, category, now)
	if err != nil {
		return domain.DailyUpdateTicket{}, err
	}
	snapshot := make([]uuid.UUID, len(affected))
	for i, record := range affected {
		snapshot[i] = record.ID
	}

	ticket := domain.DailyUpdateTicket{
		ID:            uuid.New(),
		ClientID:      client.ID,
		Category:      category,
		Date:          domain.FormatDate(day),
		Informed:      *input.Informed,
		AffectedCount: len(affected),
		SnapshotIDs:   snapshot,
		SubmittedBy:   auth.ResolveEngineer(ctx, input.SubmittedBy),
		SubmittedAt:   now,
	}
	if ticket.Informed {
		ticket.EmailSubject = strings.TrimSpace(input.EmailSubject)
	} else {
		ticket.ReasonCode = normalizeReason(input.ReasonCode)
		if ticket.ReasonCode == domain.ReasonOther {
			ticket.ReasonText = strings.TrimSpace(input.ReasonText)
		}
	}

	stored, err := s.tickets.Upsert(ctx, ticket)
	if err != nil {
		return domain.DailyUpdateTicket{}, fmt.Errorf("failed to store ticket: %w", err)
	}

	if err := s.producer.PublishTicket(ctx, notify.NewTicketEvent(stored, client.Name)); err != nil {
		log.Printf("[tickets] failed to publish ticket %s for client %s: %v", stored.ID, client.ID, err)
	}

	log.Printf("[tickets] %s %s for %s on %s (informed=%v, affected=%d)",
		stored.SubmittedBy, stored.Category, client.Name, stored.Date, stored.Informed, stored.AffectedCount)
	return stored, nil
}

// List returns tickets for a date, optionally restricted to one client. An
// empty date lists the client's full history.
func (s *Service) List(ctx context.Context, date string, clientID *uuid.UUID) ([]domain.DailyUpdateTicket, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		if clientID == nil {
			date = domain.FormatDate(s.now().In(s.location))
		} else {
			return s.tickets.ListByClient(ctx, *clientID)
		}
	}
	if _, err := domain.ParseDate(date, s.location); err != nil {
		result := validator.NewResult()
		result.AddValue("date", "date must be formatted as YYYY-MM-DD", date)
		return nil, result.Err()
	}

	tickets, err := s.tickets.ListByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	if clientID == nil {
		return tickets, nil
	}

	filtered := make([]domain.DailyUpdateTicket, 0, len(tickets))
	for _, ticket := range tickets {
		if ticket.ClientID == *clientID {
			filtered = append(filtered, ticket)
		}
	}
	return filtered, nil
}

// Get returns one ticket.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.DailyUpdateTicket, error) {
	return s.tickets.GetByID(ctx, id)
}
