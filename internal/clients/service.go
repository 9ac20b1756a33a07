package clients

import (
	"context"
	"fmt"
	"strings"

	"github.com/rpattn/clientops/internal/domain"
	"github.com/rpattn/clientops/internal/repository"
	"github.com/rpattn/clientops/pkg/validator"

	"github.com/google/uuid"
)

// MaxNameLength bounds client names.
const MaxNameLength = 120

// Service onboards and lists clients.
type Service struct {
	repo repository.ClientRepository
}

// NewService creates a new client service.
func NewService(repo repository.ClientRepository) *Service {
	return &Service{repo: repo}
}

// Validate checks onboarding input against the existing client list. self is
// excluded from the duplicate-name check and is uuid.Nil for new clients.
func Validate(input domain.ClientInput, existing []domain.Client, self uuid.UUID) error {
	result := validator.NewResult()

	if result.Required("name", input.Name) && result.MaxLength("name", input.Name, MaxNameLength) {
		name := strings.TrimSpace(input.Name)
		key := domain.NameKey(name)
		for _, client := range existing {
			if client.ID != self && domain.NameKey(client.Name) == key {
				result.AddValue("name", "a client with this name already exists", name)
				break
			}
		}
	}

	if result.Required("contactEmail", input.ContactEmail) {
		result.Email("contactEmail", input.ContactEmail)
	}

	if !validator.IsBlank(input.Website) {
		result.URL("website", input.Website)
	}

	if input.Status != "" && !input.Status.Valid() {
		result.AddValue("status", "status must be one of planning, development, testing, staging, production, maintenance", string(input.Status))
	}

	result.Required("assignedEngineer", input.AssignedEngineer)

	return result.Err()
}

// Onboard validates input and creates the client.
func (s *Service) Onboard(ctx context.Context, input domain.ClientInput) (domain.Client, error) {
	input.Status = domain.ParseClientStatus(string(input.Status))

	existing, err := s.repo.List(ctx)
	if err != nil {
		return domain.Client{}, fmt.Errorf("failed to load clients: %w", err)
	}
	if err := Validate(input, existing, uuid.Nil); err != nil {
		return domain.Client{}, err
	}

	created, err := s.repo.Create(ctx, domain.NewClient(input))
	if err != nil {
		return domain.Client{}, fmt.Errorf("failed to create client: %w", err)
	}
	return created, nil
}

// Update replaces the editable fields of an existing client.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input domain.ClientInput) (domain.Client, error) {
	input.Status = domain.ParseClientStatus(string(input.Status))

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Client{}, err
	}

	existing, err := s.repo.List(ctx)
	if err != nil {
		return domain.Client{}, fmt.Errorf("failed to load clients: %w", err)
	}
	if err := Validate(input, existing, id); err != nil {
		return domain.Client{}, err
	}

	updated, err := s.repo.Update(ctx, current.WithInput(input))
	if err != nil {
		return domain.Client{}, fmt.Errorf("failed to update client: %w", err)
	}
	return updated, nil
}

// Get returns one client.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Client, error) {
	return s.repo.GetByID(ctx, id)
}

// Details returns the drill-down view of a client.
func (s *Service) Details(ctx context.Context, id uuid.UUID) (domain.ClientDetails, error) {
	return s.repo.GetDetails(ctx, id)
}

// Filter returns every client matching the query's search and status, sorted
// but not paginated.
func (s *Service) Filter(ctx context.Context, query domain.ListQuery) ([]domain.Client, error) {
	query = query.Normalize()

	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}

	status := domain.ParseClientStatus(query.Status)
	filtered := make([]domain.Client, 0, len(all))
	for _, client := range all {
		if query.Status != "" && client.Status != status {
			continue
		}
		if !domain.MatchesSearch(query.Search, client.Name, client.Industry, client.AssignedEngineer, client.ContactEmail) {
			continue
		}
		filtered = append(filtered, client)
	}

	domain.SortStable(filtered, query.SortDir, clientLess(query.SortBy))
	return filtered, nil
}

// List returns one page of filtered clients.
func (s *Service) List(ctx context.Context, query domain.ListQuery) (domain.Page[domain.Client], error) {
	filtered, err := s.Filter(ctx, query)
	if err != nil {
		return domain.Page[domain.Client]{}, err
	}
	return domain.Paginate(filtered, query), nil
}

func clientLess(sortBy string) func(a, b domain.Client) bool {
	switch sortBy {
	case "status":
		return func(a, b domain.Client) bool { return statusRank(a.Status) < statusRank(b.Status) }
	case "industry":
		return func(a, b domain.Client) bool { return domain.FoldLess(a.Industry, b.Industry) }
	case "engineer", "assigned_engineer", "assignedengineer":
		return func(a, b domain.Client) bool { return domain.FoldLess(a.AssignedEngineer, b.AssignedEngineer) }
	case "created", "created_at", "createdat":
		return func(a, b domain.Client) bool { return a.CreatedAt.Before(b.CreatedAt) }
	default:
		return func(a, b domain.Client) bool { return domain.FoldLess(a.Name, b.Name) }
	}
}

func statusRank(status domain.ClientStatus) int {
	for i, s := range domain.ClientStatuses {
		if s == status {
			return i
		}
	}
	return len(domain.ClientStatuses)
}
