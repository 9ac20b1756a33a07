package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rpattn/clientops/internal/domain"

	"github.com/google/uuid"
)

// NewMemoryStore returns repositories backed by mutex-guarded maps.
func NewMemoryStore() Store {
	return Store{
		Clients:    NewMemoryClientRepository(),
		Tickets:    NewMemoryTicketRepository(),
		Records:    NewMemoryWatchRecordRepository(),
		ImportLogs: NewMemoryImportLogRepository(),
	}
}

type memoryClientRepository struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]domain.Client
	details map[uuid.UUID]domain.ClientDetails
}

// NewMemoryClientRepository creates an in-memory client repository
func NewMemoryClientRepository() ClientRepository {
	return &memoryClientRepository{
		clients: make(map[uuid.UUID]domain.Client),
		details: make(map[uuid.UUID]domain.ClientDetails),
	}
}

func (r *memoryClientRepository) Create(ctx context.Context, client domain.Client) (domain.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.clients[client.ID]; exists {
		return domain.Client{}, fmt.Errorf("client %s already exists: %w", client.ID, ErrConflict)
	}
	if r.nameTakenLocked(client.Name, client.ID) {
		return domain.Client{}, fmt.Errorf("client name %q already exists: %w", client.Name, ErrConflict)
	}
	r.clients[client.ID] = client
	return client, nil
}

func (r *memoryClientRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.clients[id]
	if !ok {
		return domain.Client{}, fmt.Errorf("client %s: %w", id, ErrNotFound)
	}
	return client, nil
}

func (r *memoryClientRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]domain.Client, 0, len(ids))
	for _, id := range ids {
		if client, ok := r.clients[id]; ok {
			clients = append(clients, client)
		}
	}
	return clients, nil
}

func (r *memoryClientRepository) List(ctx context.Context) ([]domain.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]domain.Client, 0, len(r.clients))
	for _, client := range r.clients {
		clients = append(clients, client)
	}
	sort.SliceStable(clients, func(i, j int) bool {
		return domain.FoldLess(clients[i].Name, clients[j].Name)
	})
	return clients, nil
}

func (r *memoryClientRepository) Update(ctx context.Context, client domain.Client) (domain.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[client.ID]; !ok {
		return domain.Client{}, fmt.Errorf("client %s: %w", client.ID, ErrNotFound)
	}
	if r.nameTakenLocked(client.Name, client.ID) {
		return domain.Client{}, fmt.Errorf("client name %q already exists: %w", client.Name, ErrConflict)
	}
	client.UpdatedAt = time.Now()
	r.clients[client.ID] = client
	return client, nil
}

func (r *memoryClientRepository) nameTakenLocked(name string, except uuid.UUID) bool {
	key := domain.NameKey(name)
	for id, existing := range r.clients {
		if id != except && domain.NameKey(existing.Name) == key {
			return true
		}
	}
	return false
}

func (r *memoryClientRepository) GetDetails(ctx context.Context, id uuid.UUID) (domain.ClientDetails, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.clients[id]
	if !ok {
		return domain.ClientDetails{}, fmt.Errorf("client %s: %w", id, ErrNotFound)
	}
	details, ok := r.details[id]
	if !ok {
		return domain.ClientDetailsFromJSON(client, nil)
	}
	details.Client = client
	return details.Summarize(), nil
}

func (r *memoryClientRepository) PutDetails(ctx context.Context, details domain.ClientDetails) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[details.Client.ID]; !ok {
		return fmt.Errorf("client %s: %w", details.Client.ID, ErrNotFound)
	}
	r.details[details.Client.ID] = details
	return nil
}

type memoryTicketRepository struct {
	mu      sync.RWMutex
	tickets map[uuid.UUID]domain.DailyUpdateTicket
	byKey   map[domain.TicketKey]uuid.UUID
}

// NewMemoryTicketRepository creates an in-memory ticket repository
func NewMemoryTicketRepository() TicketRepository {
	return &memoryTicketRepository{
		tickets: make(map[uuid.UUID]domain.DailyUpdateTicket),
		byKey:   make(map[domain.TicketKey]uuid.UUID),
	}
}

func (r *memoryTicketRepository) Upsert(ctx context.Context, ticket domain.DailyUpdateTicket) (domain.DailyUpdateTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := ticket.Key()
	if existingID, ok := r.byKey[key]; ok {
		// The slot keeps its original id.
		delete(r.tickets, existingID)
		ticket.ID = existingID
	}
	if ticket.SnapshotIDs == nil {
		ticket.SnapshotIDs = []uuid.UUID{}
	}
	r.tickets[ticket.ID] = ticket
	r.byKey[key] = ticket.ID
	return ticket, nil
}

func (r *memoryTicketRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.DailyUpdateTicket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ticket, ok := r.tickets[id]
	if !ok {
		return domain.DailyUpdateTicket{}, fmt.Errorf("ticket %s: %w", id, ErrNotFound)
	}
	return ticket, nil
}

func (r *memoryTicketRepository) ListByDate(ctx context.Context, date string) ([]domain.DailyUpdateTicket, error) {
	return r.collect(func(t domain.DailyUpdateTicket) bool { return t.Date == date }), nil
}

func (r *memoryTicketRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]domain.DailyUpdateTicket, error) {
	return r.collect(func(t domain.DailyUpdateTicket) bool { return t.ClientID == clientID }), nil
}

func (r *memoryTicketRepository) collect(keep func(domain.DailyUpdateTicket) bool) []domain.DailyUpdateTicket {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tickets := make([]domain.DailyUpdateTicket, 0)
	for _, ticket := range r.tickets {
		if keep(ticket) {
			tickets = append(tickets, ticket)
		}
	}
	sort.SliceStable(tickets, func(i, j int) bool {
		return tickets[i].SubmittedAt.Before(tickets[j].SubmittedAt)
	})
	return tickets
}

type memoryWatchRecordRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]domain.WatchRecord
}

// NewMemoryWatchRecordRepository creates an in-memory watch record repository
func NewMemoryWatchRecordRepository() WatchRecordRepository {
	return &memoryWatchRecordRepository{records: make(map[uuid.UUID]domain.WatchRecord)}
}

func (r *memoryWatchRecordRepository) Create(ctx context.Context, record domain.WatchRecord) (domain.WatchRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[record.ID]; exists {
		return domain.WatchRecord{}, fmt.Errorf("record %s already exists: %w", record.ID, ErrConflict)
	}
	record.Health = nil
	r.records[record.ID] = record
	return record, nil
}

func (r *memoryWatchRecordRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.WatchRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[id]
	if !ok {
		return domain.WatchRecord{}, fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	return record, nil
}

func (r *memoryWatchRecordRepository) List(ctx context.Context, filter domain.RecordFilter) ([]domain.WatchRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]domain.WatchRecord, 0)
	for _, record := range r.records {
		if filter.Matches(record) {
			records = append(records, record)
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID.String() < records[j].ID.String()
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}

func (r *memoryWatchRecordRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) (domain.WatchRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[id]
	if !ok {
		return domain.WatchRecord{}, fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	record.Active = active
	record.UpdatedAt = time.Now()
	r.records[id] = record
	return record, nil
}

func (r *memoryWatchRecordRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[id]; !ok {
		return fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	delete(r.records, id)
	return nil
}

type memoryImportLogRepository struct {
	mu      sync.RWMutex
	entries []domain.ImportLogEntry
}

// NewMemoryImportLogRepository creates an in-memory import log
func NewMemoryImportLogRepository() ImportLogRepository {
	return &memoryImportLogRepository{}
}

func (r *memoryImportLogRepository) Record(ctx context.Context, entry domain.ImportLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memoryImportLogRepository) List(ctx context.Context, filter domain.ImportLogFilter) ([]domain.ImportLogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]domain.ImportLogEntry, 0)
	for _, entry := range r.entries {
		if filter.Matches(entry) {
			entries = append(entries, entry)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return domain.ImportLogLess(entries[i], entries[j])
	})

	limit, offset := filter.Page()
	if offset >= len(entries) {
		return []domain.ImportLogEntry{}, nil
	}
	entries = entries[offset:]
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}
