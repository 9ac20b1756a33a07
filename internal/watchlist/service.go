package watchlist

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

// MaxDescriptionLength bounds record descriptions.
const MaxDescriptionLength = 500

// Service manages alternative IPs, ignored log types, collectors and missing log sources.
type Service struct {
	clients repository.ClientRepository
	records repository.WatchRecordRepository
	now     func() time.Time
}

// Option configures the watchlist service.
type Option func(*Service)

// WithClock overrides the clock used for collector health.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a new watchlist service.
func NewService(clients repository.ClientRepository, records repository.WatchRecordRepository, opts ...Option) *Service {
	service := &Service{clients: clients, records: records, now: time.Now}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Query narrows and orders record listings.
type Query struct {
	Filter domain.RecordFilter
	List   domain.ListQuery
}

// Validate applies the per-kind field rules.
func Validate(input domain.WatchRecordInput) error {
	result := validator.NewResult()

	if input.ClientID == uuid.Nil {
		result.Add("clientId", "clientId is required")
	}

	switch input.Kind {
	case domain.RecordKindAlternativeIP:
		if result.Required("name", input.Name) {
			result.IPv4("name", input.Name)
		}
		if result.Required("address", input.Address) {
			result.IPv4("address", input.Address)
		}
	case domain.RecordKindIgnoredLogType:
		result.Required("name", input.Name)
	case domain.RecordKindCollector, domain.RecordKindMissingLog:
		result.Required("name", input.Name)
		if !validator.IsBlank(input.Address) {
			result.IPv4("address", input.Address)
		}
	default:
		result.AddValue("kind", "kind must be one of ALTERNATIVE_IP, IGNORED_LOG_TYPE, COLLECTOR, MISSING_LOG", string(input.Kind))
	}

	result.MaxLength("description", input.Description, MaxDescriptionLength)

	return result.Err()
}

// Create validates input and stores a new active record.
func (s *Service) Create(ctx context.Context, input domain.WatchRecordInput) (domain.WatchRecord, error) {
	input.Kind = domain.ParseRecordKind(string(input.Kind))
	if err := Validate(input); err != nil {
		return domain.WatchRecord{}, err
	}
	if _, err := s.clients.GetByID(ctx, input.ClientID); err != nil {
		return domain.WatchRecord{}, err
	}

	created, err := s.records.Create(ctx, domain.NewWatchRecord(input))
	if err != nil {
		return domain.WatchRecord{}, fmt.Errorf("failed to create record: %w", err)
	}
	return created.WithHealth(s.now()), nil
}

// Get returns one record.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.WatchRecord, error) {
	record, err := s.records.GetByID(ctx, id)
	if err != nil {
		return domain.WatchRecord{}, err
	}
	return record.WithHealth(s.now()), nil
}

// Toggle flips the active flag of a record.
func (s *Service) Toggle(ctx context.Context, id uuid.UUID) (domain.WatchRecord, error) {
	record, err := s.records.GetByID(ctx, id)
	if err != nil {
		return domain.WatchRecord{}, err
	}
	updated, err := s.records.SetActive(ctx, id, !record.Active)
	if err != nil {
		return domain.WatchRecord{}, err
	}
	return updated.WithHealth(s.now()), nil
}

// Delete removes a record.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.records.Delete(ctx, id)
}

// Filter returns every record matching the query, sorted but not paginated.
// ListQuery.Status matches collector health for collectors and
// "active"/"inactive" for every kind.
func (s *Service) Filter(ctx context.Context, query Query) ([]domain.WatchRecord, error) {
	list := query.List.Normalize()
	now := s.now()

	records, err := s.records.List(ctx, query.Filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	filtered := make([]domain.WatchRecord, 0, len(records))
	for _, record := range records {
		record = record.WithHealth(now)
		if !matchesStatus(record, list.Status) {
			continue
		}
		if !domain.MatchesSearch(list.Search, record.Name, record.Address, record.Description) {
			continue
		}
		filtered = append(filtered, record)
	}

	domain.SortStable(filtered, list.SortDir, recordLess(list.SortBy))
	return filtered, nil
}

// List returns one page of filtered records.
func (s *Service) List(ctx context.Context, query Query) (domain.Page[domain.WatchRecord], error) {
	filtered, err := s.Filter(ctx, query)
	if err != nil {
		return domain.Page[domain.WatchRecord]{}, err
	}
	return domain.Paginate(filtered, query.List), nil
}

// Affected returns the client's active records counted by a ticket of category.
func (s *Service) Affected(ctx context.Context, clientID uuid.UUID, category domain.TicketCategory) ([]domain.WatchRecord, error) {
	return AffectedRecords(ctx, s.records, clientID, category, s.now())
}

// AffectedRecords lists the client's active records that count toward a
// ticket of the given category at now.
func AffectedRecords(ctx context.Context, repo repository.WatchRecordRepository, clientID uuid.UUID, category domain.TicketCategory, now time.Time) ([]domain.WatchRecord, error) {
	active := true
	filter := domain.RecordFilter{ClientID: &clientID, Active: &active}
	switch category {
	case domain.TicketCategoryCollectors:
		filter.Kind = domain.RecordKindCollector
	case domain.TicketCategoryMissingLogs:
		filter.Kind = domain.RecordKindMissingLog
	default:
		return []domain.WatchRecord{}, nil
	}

	records, err := repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list affected records: %w", err)
	}

	affected := make([]domain.WatchRecord, 0, len(records))
	for _, record := range records {
		if record.Affects(category, now) {
			affected = append(affected, record.WithHealth(now))
		}
	}
	return affected, nil
}

func matchesStatus(record domain.WatchRecord, status string) bool {
	status = strings.ToUpper(strings.TrimSpace(status))
	switch status {
	case "":
		return true
	case "ACTIVE":
		return record.Active
	case "INACTIVE":
		return !record.Active
	}
	if record.Health != nil {
		return string(*record.Health) == status
	}
	return false
}

func recordLess(sortBy string) func(a, b domain.WatchRecord) bool {
	switch sortBy {
	case "address":
		return func(a, b domain.WatchRecord) bool { return a.Address < b.Address }
	case "last_seen", "lastseen", "last_seen_at":
		return func(a, b domain.WatchRecord) bool {
			if a.LastSeenAt == nil {
				return b.LastSeenAt != nil
			}
			return b.LastSeenAt != nil && a.LastSeenAt.Before(*b.LastSeenAt)
		}
	case "status", "active":
		return func(a, b domain.WatchRecord) bool { return !a.Active && b.Active }
	case "created", "created_at":
		return func(a, b domain.WatchRecord) bool { return a.CreatedAt.Before(b.CreatedAt) }
	default:
		return func(a, b domain.WatchRecord) bool { return domain.FoldLess(a.Name, b.Name) }
	}
}
