package notify

import (
	"context"
	"time"

	"github.com/rpattn/clientops/internal/domain"

	"github.com/google/uuid"
)

// TicketEvent is published every time a daily ticket is submitted.
type TicketEvent struct {
	TicketID      uuid.UUID             `json:"ticketId"`
	ClientID      uuid.UUID             `json:"clientId"`
	ClientName    string                `json:"clientName"`
	Category      domain.TicketCategory `json:"category"`
	Date          string                `json:"date"`
	Informed      bool                  `json:"informed"`
	EmailSubject  string                `json:"emailSubject,omitempty"`
	Reason        string                `json:"reason,omitempty"`
	AffectedCount int                   `json:"affectedCount"`
	SubmittedBy   string                `json:"submittedBy"`
	SubmittedAt   time.Time             `json:"submittedAt"`
}

// NewTicketEvent builds the event for a stored ticket.
func NewTicketEvent(ticket domain.DailyUpdateTicket, clientName string) TicketEvent {
	return TicketEvent{
		TicketID:      ticket.ID,
		ClientID:      ticket.ClientID,
		ClientName:    clientName,
		Category:      ticket.Category,
		Date:          ticket.Date,
		Informed:      ticket.Informed,
		EmailSubject:  ticket.EmailSubject,
		Reason:        ticket.Reason(),
		AffectedCount: ticket.AffectedCount,
		SubmittedBy:   ticket.SubmittedBy,
		SubmittedAt:   ticket.SubmittedAt,
	}
}

type Producer interface {
	PublishTicket(ctx context.Context, event TicketEvent) error
	Close() error
}

type NoopProducer struct{}

func NewNoopProducer() *NoopProducer {
	return &NoopProducer{}
}

func (p *NoopProducer) PublishTicket(_ context.Context, _ TicketEvent) error {
	return nil
}

func (p *NoopProducer) Close() error {
	return nil
}
