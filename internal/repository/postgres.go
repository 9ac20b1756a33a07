package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rpattn/clientops/internal/db"
	"github.com/rpattn/clientops/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

const pgUniqueViolation = "23505"

// NewPostgresStore returns repositories backed by a pgx pool.
func NewPostgresStore(conn *db.Connection) Store {
	return Store{
		Clients:    NewClientRepository(conn),
		Tickets:    NewTicketRepository(conn),
		Records:    NewWatchRecordRepository(conn),
		ImportLogs: NewImportLogRepository(conn.Pool),
	}
}

func translatePgError(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%s: %w", what, ErrConflict)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func timestamptzPtr(value pgtype.Timestamptz) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}

func timestamptzArg(value *time.Time) pgtype.Timestamptz {
	if value == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *value, Valid: true}
}

// clientRepository implements ClientRepository on Postgres
type clientRepository struct {
	conn *db.Connection
}

// NewClientRepository creates a new client repository
func NewClientRepository(conn *db.Connection) ClientRepository {
	return &clientRepository{conn: conn}
}

const clientColumns = `id, name, contact_name, contact_email, contact_phone, assigned_engineer, status, industry, website, created_at, updated_at`

func scanClient(row pgx.Row) (domain.Client, error) {
	var (
		client domain.Client
		status string
	)
	err := row.Scan(
		&client.ID,
		&client.Name,
		&client.ContactName,
		&client.ContactEmail,
		&client.ContactPhone,
		&client.AssignedEngineer,
		&status,
		&client.Industry,
		&client.Website,
		&client.CreatedAt,
		&client.UpdatedAt,
	)
	client.Status = domain.ClientStatus(status)
	return client, err
}

// Create creates a new client
func (r *clientRepository) Create(ctx context.Context, client domain.Client) (domain.Client, error) {
	row := r.conn.Pool.QueryRow(ctx,
		`INSERT INTO clients (`+clientColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING `+clientColumns,
		client.ID, client.Name, client.ContactName, client.ContactEmail, client.ContactPhone,
		client.AssignedEngineer, string(client.Status), client.Industry, client.Website,
		client.CreatedAt, client.UpdatedAt,
	)
	created, err := scanClient(row)
	if err != nil {
		return domain.Client{}, translatePgError(err, "failed to create client")
	}
	return created, nil
}

// GetByID retrieves a client by ID
func (r *clientRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Client, error) {
	row := r.conn.Pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id)
	client, err := scanClient(row)
	if err != nil {
		return domain.Client{}, translatePgError(err, "failed to get client")
	}
	return client, nil
}

// GetByIDs retrieves every client whose id is listed
func (r *clientRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Client, error) {
	if len(ids) == 0 {
		return []domain.Client{}, nil
	}
	rows, err := r.conn.Pool.Query(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get clients: %w", err)
	}
	return collectClients(rows)
}

// List retrieves all clients ordered by name
func (r *clientRepository) List(ctx context.Context) ([]domain.Client, error) {
	rows, err := r.conn.Pool.Query(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY LOWER(name), id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	return collectClients(rows)
}

func collectClients(rows pgx.Rows) ([]domain.Client, error) {
	defer rows.Close()
	clients := make([]domain.Client, 0)
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, client)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate clients: %w", err)
	}
	return clients, nil
}

// Update replaces the editable fields of a client
func (r *clientRepository) Update(ctx context.Context, client domain.Client) (domain.Client, error) {
	row := r.conn.Pool.QueryRow(ctx,
		`UPDATE clients
		 SET name = $2, contact_name = $3, contact_email = $4, contact_phone = $5,
		     assigned_engineer = $6, status = $7, industry = $8, website = $9, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+clientColumns,
		client.ID, client.Name, client.ContactName, client.ContactEmail, client.ContactPhone,
		client.AssignedEngineer, string(client.Status), client.Industry, client.Website,
	)
	updated, err := scanClient(row)
	if err != nil {
		return domain.Client{}, translatePgError(err, "failed to update client")
	}
	return updated, nil
}

// GetDetails loads the drill-down view of a client
func (r *clientRepository) GetDetails(ctx context.Context, id uuid.UUID) (domain.ClientDetails, error) {
	client, err := r.GetByID(ctx, id)
	if err != nil {
		return domain.ClientDetails{}, err
	}

	var payload []byte
	err = r.conn.Pool.QueryRow(ctx, `SELECT details FROM client_details WHERE client_id = $1`, id).Scan(&payload)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return domain.ClientDetails{}, fmt.Errorf("failed to get client details: %w", err)
	}

	details, err := domain.ClientDetailsFromJSON(client, payload)
	if err != nil {
		return domain.ClientDetails{}, fmt.Errorf("failed to decode client details: %w", err)
	}
	return details, nil
}

// PutDetails stores the drill-down data of an existing client
func (r *clientRepository) PutDetails(ctx context.Context, details domain.ClientDetails) error {
	payload, err := details.DetailsToJSON()
	if err != nil {
		return fmt.Errorf("failed to encode client details: %w", err)
	}

	return r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM clients WHERE id = $1)`, details.Client.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check client: %w", err)
		}
		if !exists {
			return fmt.Errorf("client %s: %w", details.Client.ID, ErrNotFound)
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO client_details (client_id, details, updated_at)
			 VALUES ($1, $2, NOW())
			 ON CONFLICT (client_id) DO UPDATE SET details = EXCLUDED.details, updated_at = NOW()`,
			details.Client.ID, payload,
		)
		if err != nil {
			return fmt.Errorf("failed to store client details: %w", err)
		}
		return nil
	})
}

// ticketRepository implements TicketRepository on Postgres
type ticketRepository struct {
	conn *db.Connection
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(conn *db.Connection) TicketRepository {
	return &ticketRepository{conn: conn}
}

const ticketColumns = `id, client_id, category, to_char(ticket_date, 'YYYY-MM-DD'), informed, email_subject,
	reason_code, reason_text, affected_count, snapshot_ids, submitted_by, submitted_at`

func scanTicket(row pgx.Row) (domain.DailyUpdateTicket, error) {
	var (
		ticket   domain.DailyUpdateTicket
		category string
		reason   string
		snapshot []byte
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.ClientID,
		&category,
		&ticket.Date,
		&ticket.Informed,
		&ticket.EmailSubject,
		&reason,
		&ticket.ReasonText,
		&ticket.AffectedCount,
		&snapshot,
		&ticket.SubmittedBy,
		&ticket.SubmittedAt,
	); err != nil {
		return domain.DailyUpdateTicket{}, err
	}
	ticket.Category = domain.TicketCategory(category)
	ticket.ReasonCode = domain.ReasonCode(reason)
	ids, err := domain.SnapshotFromJSON(snapshot)
	if err != nil {
		return domain.DailyUpdateTicket{}, fmt.Errorf("failed to decode snapshot ids: %w", err)
	}
	ticket.SnapshotIDs = ids
	return ticket, nil
}

// Upsert stores a ticket, replacing the one already filed for the same slot
func (r *ticketRepository) Upsert(ctx context.Context, ticket domain.DailyUpdateTicket) (domain.DailyUpdateTicket, error) {
	snapshot, err := ticket.SnapshotToJSON()
	if err != nil {
		return domain.DailyUpdateTicket{}, fmt.Errorf("failed to encode snapshot ids: %w", err)
	}

	row := r.conn.Pool.QueryRow(ctx,
		`INSERT INTO daily_update_tickets
		   (id, client_id, category, ticket_date, informed, email_subject, reason_code, reason_text,
		    affected_count, snapshot_ids, submitted_by, submitted_at)
		 VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (client_id, category, ticket_date) DO UPDATE SET
		   informed = EXCLUDED.informed,
		   email_subject = EXCLUDED.email_subject,
		   reason_code = EXCLUDED.reason_code,
		   reason_text = EXCLUDED.reason_text,
		   affected_count = EXCLUDED.affected_count,
		   snapshot_ids = EXCLUDED.snapshot_ids,
		   submitted_by = EXCLUDED.submitted_by,
		   submitted_at = EXCLUDED.submitted_at
		 RETURNING `+ticketColumns,
		ticket.ID, ticket.ClientID, string(ticket.Category), ticket.Date, ticket.Informed,
		ticket.EmailSubject, string(ticket.ReasonCode), ticket.ReasonText, ticket.AffectedCount,
		snapshot, ticket.SubmittedBy, ticket.SubmittedAt,
	)
	stored, err := scanTicket(row)
	if err != nil {
		return domain.DailyUpdateTicket{}, translatePgError(err, "failed to upsert ticket")
	}
	return stored, nil
}

// GetByID retrieves a ticket by ID
func (r *ticketRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.DailyUpdateTicket, error) {
	row := r.conn.Pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM daily_update_tickets WHERE id = $1`, id)
	ticket, err := scanTicket(row)
	if err != nil {
		return domain.DailyUpdateTicket{}, translatePgError(err, "failed to get ticket")
	}
	return ticket, nil
}

// ListByDate lists the tickets filed for a date
func (r *ticketRepository) ListByDate(ctx context.Context, date string) ([]domain.DailyUpdateTicket, error) {
	rows, err := r.conn.Pool.Query(ctx,
		`SELECT `+ticketColumns+` FROM daily_update_tickets WHERE ticket_date = $1::date ORDER BY submitted_at, id`,
		date,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return collectTickets(rows)
}

// ListByClient lists every ticket filed for a client
func (r *ticketRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]domain.DailyUpdateTicket, error) {
	rows, err := r.conn.Pool.Query(ctx,
		`SELECT `+ticketColumns+` FROM daily_update_tickets WHERE client_id = $1 ORDER BY submitted_at, id`,
		clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return collectTickets(rows)
}

func collectTickets(rows pgx.Rows) ([]domain.DailyUpdateTicket, error) {
	defer rows.Close()
	tickets := make([]domain.DailyUpdateTicket, 0)
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tickets: %w", err)
	}
	return tickets, nil
}

// watchRecordRepository implements WatchRecordRepository on Postgres
type watchRecordRepository struct {
	conn *db.Connection
}

// NewWatchRecordRepository creates a new watch record repository
func NewWatchRecordRepository(conn *db.Connection) WatchRecordRepository {
	return &watchRecordRepository{conn: conn}
}

const recordColumns = `id, client_id, kind, name, address, description, active, last_seen_at, created_at, updated_at`

func scanRecord(row pgx.Row) (domain.WatchRecord, error) {
	var (
		record   domain.WatchRecord
		kind     string
		lastSeen pgtype.Timestamptz
	)
	if err := row.Scan(
		&record.ID,
		&record.ClientID,
		&kind,
		&record.Name,
		&record.Address,
		&record.Description,
		&record.Active,
		&lastSeen,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return domain.WatchRecord{}, err
	}
	record.Kind = domain.RecordKind(kind)
	record.LastSeenAt = timestamptzPtr(lastSeen)
	return record, nil
}

// Create stores a new watch record
func (r *watchRecordRepository) Create(ctx context.Context, record domain.WatchRecord) (domain.WatchRecord, error) {
	row := r.conn.Pool.QueryRow(ctx,
		`INSERT INTO watch_records (`+recordColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+recordColumns,
		record.ID, record.ClientID, string(record.Kind), record.Name, record.Address,
		record.Description, record.Active, timestamptzArg(record.LastSeenAt),
		record.CreatedAt, record.UpdatedAt,
	)
	created, err := scanRecord(row)
	if err != nil {
		return domain.WatchRecord{}, translatePgError(err, "failed to create watch record")
	}
	return created, nil
}

// GetByID retrieves a watch record by ID
func (r *watchRecordRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.WatchRecord, error) {
	row := r.conn.Pool.QueryRow(ctx, `SELECT `+recordColumns+` FROM watch_records WHERE id = $1`, id)
	record, err := scanRecord(row)
	if err != nil {
		return domain.WatchRecord{}, translatePgError(err, "failed to get watch record")
	}
	return record, nil
}

// List retrieves watch records matching filter
func (r *watchRecordRepository) List(ctx context.Context, filter domain.RecordFilter) ([]domain.WatchRecord, error) {
	var (
		clientID pgtype.UUID
		active   pgtype.Bool
	)
	if filter.ClientID != nil {
		clientID = pgtype.UUID{Bytes: *filter.ClientID, Valid: true}
	}
	if filter.Active != nil {
		active = pgtype.Bool{Bool: *filter.Active, Valid: true}
	}

	rows, err := r.conn.Pool.Query(ctx,
		`SELECT `+recordColumns+`
		 FROM watch_records
		 WHERE ($1::uuid IS NULL OR client_id = $1)
		   AND ($2 = '' OR kind = $2)
		   AND ($3::boolean IS NULL OR active = $3)
		 ORDER BY created_at, id`,
		clientID, string(filter.Kind), active,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list watch records: %w", err)
	}
	defer rows.Close()

	records := make([]domain.WatchRecord, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan watch record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate watch records: %w", err)
	}
	return records, nil
}

// SetActive flips the active flag of a record
func (r *watchRecordRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) (domain.WatchRecord, error) {
	row := r.conn.Pool.QueryRow(ctx,
		`UPDATE watch_records SET active = $2, updated_at = NOW() WHERE id = $1 RETURNING `+recordColumns,
		id, active,
	)
	record, err := scanRecord(row)
	if err != nil {
		return domain.WatchRecord{}, translatePgError(err, "failed to update watch record")
	}
	return record, nil
}

// Delete removes a watch record
func (r *watchRecordRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn.Pool.Exec(ctx, `DELETE FROM watch_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete watch record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	return nil
}
