package export

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/rpattn/clientops/internal/adminpanel"
	"github.com/rpattn/clientops/internal/artifacts"
	"github.com/rpattn/clientops/internal/clients"
	"github.com/rpattn/clientops/internal/domain"
	"github.com/rpattn/clientops/internal/tickets"
	"github.com/rpattn/clientops/internal/watchlist"

	"github.com/google/uuid"
)

// Service renders filtered table views as CSV or XLSX files.
type Service struct {
	clients *clients.Service
	records *watchlist.Service
	tickets *tickets.Service
	panel   *adminpanel.Service

	archive       artifacts.Store
	archivePrefix string
	location      *time.Location
	now           func() time.Time
}

// Option configures the export service.
type Option func(*Service)

// WithArchive stores a copy of every export under prefix/<date>/<file name>.
func WithArchive(store artifacts.Store, prefix string) Option {
	return func(s *Service) {
		if store != nil {
			s.archive = store
			s.archivePrefix = strings.Trim(strings.TrimSpace(prefix), "/")
		}
	}
}

// WithLocation sets the location used for the date in file names.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithClock overrides the export clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a new export service.
func NewService(
	clientService *clients.Service,
	recordService *watchlist.Service,
	ticketService *tickets.Service,
	panelService *adminpanel.Service,
	opts ...Option,
) *Service {
	service := &Service{
		clients:  clientService,
		records:  recordService,
		tickets:  ticketService,
		panel:    panelService,
		location: time.Local,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Request selects a dataset and the same filters its list view takes.
type Request struct {
	Dataset  Dataset
	Format   Format
	List     domain.ListQuery
	ClientID *uuid.UUID
	// Date applies to the tickets and admin panel datasets.
	Date string
}

// File is a rendered export.
type File struct {
	Name        string
	ContentType string
	Body        []byte
	Rows        int
}

// Export renders every row matching the request, not just one page.
func (s *Service) Export(ctx context.Context, req Request) (File, error) {
	if req.Format == "" {
		req.Format = FormatCSV
	}

	table, err := s.Table(ctx, req)
	if err != nil {
		return File{}, err
	}

	body, err := Render(table, req.Format)
	if err != nil {
		return File{}, fmt.Errorf("failed to render %s export: %w", req.Dataset, err)
	}

	today := s.now().In(s.location)
	file := File{
		Name:        FileName(string(req.Dataset), req.List.FilterName(), today, req.Format),
		ContentType: req.Format.ContentType(),
		Body:        body,
		Rows:        len(table.Rows),
	}

	s.archiveFile(ctx, domain.FormatDate(today), file)
	log.Printf("[export] rendered %s (%d rows)", file.Name, file.Rows)
	return file, nil
}

// Table builds the dataset's rows from the filtered list view.
func (s *Service) Table(ctx context.Context, req Request) (Table, error) {
	query := req.List.Normalize()

	switch req.Dataset {
	case DatasetClients:
		list, err := s.clients.Filter(ctx, query)
		if err != nil {
			return Table{}, err
		}
		return ClientsTable(list), nil

	case DatasetCollectors, DatasetMissingLogs, DatasetAlternativeIPs, DatasetIgnoredLogTypes:
		kind, _ := req.Dataset.RecordKind()
		records, err := s.records.Filter(ctx, watchlist.Query{
			Filter: domain.RecordFilter{ClientID: req.ClientID, Kind: kind},
			List:   query,
		})
		if err != nil {
			return Table{}, err
		}
		names, err := s.clientNames(ctx)
		if err != nil {
			return Table{}, err
		}
		return RecordsTable(req.Dataset, records, names), nil

	case DatasetTickets:
		list, err := s.tickets.List(ctx, req.Date, req.ClientID)
		if err != nil {
			return Table{}, err
		}
		names, err := s.clientNames(ctx)
		if err != nil {
			return Table{}, err
		}
		filtered := make([]domain.DailyUpdateTicket, 0, len(list))
		for _, ticket := range list {
			if !ticketMatchesStatus(ticket, query.Status) {
				continue
			}
			if !domain.MatchesSearch(query.Search, names[ticket.ClientID], ticket.EmailSubject, ticket.SubmittedBy, ticket.Reason()) {
				continue
			}
			filtered = append(filtered, ticket)
		}
		return TicketsTable(filtered, names), nil

	case DatasetAdminPanel:
		panel, err := s.panel.Build(ctx, req.Date, query.Status)
		if err != nil {
			return Table{}, err
		}
		rows := make([]domain.AdminPanelRow, 0, len(panel.Rows))
		for _, row := range panel.Rows {
			if domain.MatchesSearch(query.Search, row.ClientName, row.AssignedEngineer) {
				rows = append(rows, row)
			}
		}
		panel.Rows = rows
		return AdminPanelTable(panel), nil

	default:
		return Table{}, fmt.Errorf("unknown export dataset %q", req.Dataset)
	}
}

func (s *Service) clientNames(ctx context.Context) (map[uuid.UUID]string, error) {
	list, err := s.clients.Filter(ctx, domain.ListQuery{})
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(list))
	for _, client := range list {
		names[client.ID] = client.Name
	}
	return names, nil
}

func (s *Service) archiveFile(ctx context.Context, date string, file File) {
	if s.archive == nil {
		return
	}
	key := artifacts.ObjectKey(s.archivePrefix, date, file.Name)
	if err := s.archive.Put(ctx, key, file.ContentType, file.Body); err != nil {
		if !errors.Is(err, artifacts.ErrNotConfigured) {
			log.Printf("[export] failed to archive %s: %v", key, err)
		}
		return
	}
	log.Printf("[export] archived %s", key)
}

// ticketMatchesStatus matches a category or "informed"/"not_informed".
func ticketMatchesStatus(ticket domain.DailyUpdateTicket, status string) bool {
	status = strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(status)), "-", "_")
	switch status {
	case "":
		return true
	case "INFORMED", "DONE":
		return ticket.Informed
	case "NOT_INFORMED":
		return !ticket.Informed
	default:
		return string(ticket.Category) == status
	}
}
