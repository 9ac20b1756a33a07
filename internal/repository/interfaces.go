package repository

import (
	"context"
	"errors"

	"github.com/rpattn/clientops/internal/domain"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write violates a uniqueness rule.
	ErrConflict = errors.New("conflict")
)

// ClientRepository defines the interface for client operations
type ClientRepository interface {
	Create(ctx context.Context, client domain.Client) (domain.Client, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Client, error)
	// GetByIDs returns the clients it found; missing ids are skipped.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Client, error)
	List(ctx context.Context) ([]domain.Client, error)
	Update(ctx context.Context, client domain.Client) (domain.Client, error)

	// Drill-down data
	GetDetails(ctx context.Context, id uuid.UUID) (domain.ClientDetails, error)
	PutDetails(ctx context.Context, details domain.ClientDetails) error
}

// TicketRepository defines the interface for daily update tickets
type TicketRepository interface {
	// Upsert stores the ticket, replacing any ticket with the same client, category and date.
	Upsert(ctx context.Context, ticket domain.DailyUpdateTicket) (domain.DailyUpdateTicket, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.DailyUpdateTicket, error)
	ListByDate(ctx context.Context, date string) ([]domain.DailyUpdateTicket, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]domain.DailyUpdateTicket, error)
}

// WatchRecordRepository defines the interface for per-client watch records
type WatchRecordRepository interface {
	Create(ctx context.Context, record domain.WatchRecord) (domain.WatchRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.WatchRecord, error)
	List(ctx context.Context, filter domain.RecordFilter) ([]domain.WatchRecord, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (domain.WatchRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ImportLogRepository keeps the rows imports skipped
type ImportLogRepository interface {
	Record(ctx context.Context, entry domain.ImportLogEntry) error
	// List returns the newest imports first.
	List(ctx context.Context, filter domain.ImportLogFilter) ([]domain.ImportLogEntry, error)
}

// Store bundles the repositories of one backend.
type Store struct {
	Clients    ClientRepository
	Tickets    TicketRepository
	Records    WatchRecordRepository
	ImportLogs ImportLogRepository
}
