package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rpattn/clientops/internal/domain"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// sqliteTimeLayout is fixed width so stored timestamps sort lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// NewSQLiteStore returns repositories backed by a SQLite database.
func NewSQLiteStore(conn *sql.DB) Store {
	return Store{
		Clients:    &sqliteClientRepository{db: conn},
		Tickets:    &sqliteTicketRepository{db: conn},
		Records:    &sqliteWatchRecordRepository{db: conn},
		ImportLogs: &sqliteImportLogRepository{db: conn},
	}
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseSQLiteTime(raw string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeLayout, raw)
	if err != nil {
		return time.Parse(time.RFC3339Nano, raw)
	}
	return t, nil
}

func translateSQLiteError(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%s: %w", what, ErrConflict)
		}
	}
	return fmt.Errorf("%s: %w", what, err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

type sqliteClientRepository struct {
	db *sql.DB
}

func scanSQLiteClient(row rowScanner) (domain.Client, error) {
	var (
		client             domain.Client
		id, status         string
		createdAt, updated string
	)
	if err := row.Scan(
		&id,
		&client.Name,
		&client.ContactName,
		&client.ContactEmail,
		&client.ContactPhone,
		&client.AssignedEngineer,
		&status,
		&client.Industry,
		&client.Website,
		&createdAt,
		&updated,
	); err != nil {
		return domain.Client{}, err
	}
	var err error
	if client.ID, err = uuid.Parse(id); err != nil {
		return domain.Client{}, fmt.Errorf("invalid client id %q: %w", id, err)
	}
	client.Status = domain.ClientStatus(status)
	if client.CreatedAt, err = parseSQLiteTime(createdAt); err != nil {
		return domain.Client{}, err
	}
	if client.UpdatedAt, err = parseSQLiteTime(updated); err != nil {
		return domain.Client{}, err
	}
	return client, nil
}

func (r *sqliteClientRepository) Create(ctx context.Context, client domain.Client) (domain.Client, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO clients (`+clientColumns+`, name_key) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		client.ID.String(), client.Name, client.ContactName, client.ContactEmail, client.ContactPhone,
		client.AssignedEngineer, string(client.Status), client.Industry, client.Website,
		formatSQLiteTime(client.CreatedAt), formatSQLiteTime(client.UpdatedAt), domain.NameKey(client.Name),
	)
	if err != nil {
		return domain.Client{}, translateSQLiteError(err, "failed to create client")
	}
	return r.GetByID(ctx, client.ID)
}

func (r *sqliteClientRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Client, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id.String())
	client, err := scanSQLiteClient(row)
	if err != nil {
		return domain.Client{}, translateSQLiteError(err, "failed to get client")
	}
	return client, nil
}

func (r *sqliteClientRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Client, error) {
	if len(ids) == 0 {
		return []domain.Client{}, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id.String()
	}
	return r.query(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE id IN (`+strings.Join(placeholders, ", ")+`)`,
		args...,
	)
}

func (r *sqliteClientRepository) List(ctx context.Context) ([]domain.Client, error) {
	return r.query(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY name_key, id`)
}

func (r *sqliteClientRepository) query(ctx context.Context, query string, args ...any) ([]domain.Client, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	clients := make([]domain.Client, 0)
	for rows.Next() {
		client, err := scanSQLiteClient(rows)
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

func (r *sqliteClientRepository) Update(ctx context.Context, client domain.Client) (domain.Client, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE clients
		 SET name = ?, name_key = ?, contact_name = ?, contact_email = ?, contact_phone = ?,
		     assigned_engineer = ?, status = ?, industry = ?, website = ?, updated_at = ?
		 WHERE id = ?`,
		client.Name, domain.NameKey(client.Name), client.ContactName, client.ContactEmail, client.ContactPhone,
		client.AssignedEngineer, string(client.Status), client.Industry, client.Website,
		formatSQLiteTime(time.Now()), client.ID.String(),
	)
	if err != nil {
		return domain.Client{}, translateSQLiteError(err, "failed to update client")
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return domain.Client{}, fmt.Errorf("client %s: %w", client.ID, ErrNotFound)
	}
	return r.GetByID(ctx, client.ID)
}

func (r *sqliteClientRepository) GetDetails(ctx context.Context, id uuid.UUID) (domain.ClientDetails, error) {
	client, err := r.GetByID(ctx, id)
	if err != nil {
		return domain.ClientDetails{}, err
	}

	var payload string
	err = r.db.QueryRowContext(ctx, `SELECT details FROM client_details WHERE client_id = ?`, id.String()).Scan(&payload)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return domain.ClientDetails{}, fmt.Errorf("failed to get client details: %w", err)
	}

	details, err := domain.ClientDetailsFromJSON(client, []byte(payload))
	if err != nil {
		return domain.ClientDetails{}, fmt.Errorf("failed to decode client details: %w", err)
	}
	return details, nil
}

func (r *sqliteClientRepository) PutDetails(ctx context.Context, details domain.ClientDetails) error {
	if _, err := r.GetByID(ctx, details.Client.ID); err != nil {
		return err
	}
	payload, err := details.DetailsToJSON()
	if err != nil {
		return fmt.Errorf("failed to encode client details: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO client_details (client_id, details, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (client_id) DO UPDATE SET details = excluded.details, updated_at = excluded.updated_at`,
		details.Client.ID.String(), string(payload), formatSQLiteTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to store client details: %w", err)
	}
	return nil
}

type sqliteTicketRepository struct {
	db *sql.DB
}

const sqliteTicketColumns = `id, client_id, category, ticket_date, informed, email_subject,
	reason_code, reason_text, affected_count, snapshot_ids, submitted_by, submitted_at`

func scanSQLiteTicket(row rowScanner) (domain.DailyUpdateTicket, error) {
	var (
		ticket                      domain.DailyUpdateTicket
		id, clientID, category      string
		reason, snapshot, submitted string
	)
	if err := row.Scan(
		&id,
		&clientID,
		&category,
		&ticket.Date,
		&ticket.Informed,
		&ticket.EmailSubject,
		&reason,
		&ticket.ReasonText,
		&ticket.AffectedCount,
		&snapshot,
		&ticket.SubmittedBy,
		&submitted,
	); err != nil {
		return domain.DailyUpdateTicket{}, err
	}
	var err error
	if ticket.ID, err = uuid.Parse(id); err != nil {
		return domain.DailyUpdateTicket{}, fmt.Errorf("invalid ticket id %q: %w", id, err)
	}
	if ticket.ClientID, err = uuid.Parse(clientID); err != nil {
		return domain.DailyUpdateTicket{}, fmt.Errorf("invalid client id %q: %w", clientID, err)
	}
	ticket.Category = domain.TicketCategory(category)
	ticket.ReasonCode = domain.ReasonCode(reason)
	if ticket.SnapshotIDs, err = domain.SnapshotFromJSON([]byte(snapshot)); err != nil {
		return domain.DailyUpdateTicket{}, fmt.Errorf("failed to decode snapshot ids: %w", err)
	}
	if ticket.SubmittedAt, err = parseSQLiteTime(submitted); err != nil {
		return domain.DailyUpdateTicket{}, err
	}
	return ticket, nil
}

func (r *sqliteTicketRepository) Upsert(ctx context.Context, ticket domain.DailyUpdateTicket) (domain.DailyUpdateTicket, error) {
	snapshot, err := ticket.SnapshotToJSON()
	if err != nil {
		return domain.DailyUpdateTicket{}, fmt.Errorf("failed to encode snapshot ids: %w", err)
	}

	row := r.db.QueryRowContext(ctx,
		`INSERT INTO daily_update_tickets (`+sqliteTicketColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (client_id, category, ticket_date) DO UPDATE SET
		   informed = excluded.informed,
		   email_subject = excluded.email_subject,
		   reason_code = excluded.reason_code,
		   reason_text = excluded.reason_text,
		   affected_count = excluded.affected_count,
		   snapshot_ids = excluded.snapshot_ids,
		   submitted_by = excluded.submitted_by,
		   submitted_at = excluded.submitted_at
		 RETURNING `+sqliteTicketColumns,
		ticket.ID.String(), ticket.ClientID.String(), string(ticket.Category), ticket.Date, ticket.Informed,
		ticket.EmailSubject, string(ticket.ReasonCode), ticket.ReasonText, ticket.AffectedCount,
		string(snapshot), ticket.SubmittedBy, formatSQLiteTime(ticket.SubmittedAt),
	)
	stored, err := scanSQLiteTicket(row)
	if err != nil {
		return domain.DailyUpdateTicket{}, translateSQLiteError(err, "failed to upsert ticket")
	}
	return stored, nil
}

func (r *sqliteTicketRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.DailyUpdateTicket, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sqliteTicketColumns+` FROM daily_update_tickets WHERE id = ?`, id.String())
	ticket, err := scanSQLiteTicket(row)
	if err != nil {
		return domain.DailyUpdateTicket{}, translateSQLiteError(err, "failed to get ticket")
	}
	return ticket, nil
}

func (r *sqliteTicketRepository) ListByDate(ctx context.Context, date string) ([]domain.DailyUpdateTicket, error) {
	return r.query(ctx,
		`SELECT `+sqliteTicketColumns+` FROM daily_update_tickets WHERE ticket_date = ? ORDER BY submitted_at, id`,
		date,
	)
}

func (r *sqliteTicketRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]domain.DailyUpdateTicket, error) {
	return r.query(ctx,
		`SELECT `+sqliteTicketColumns+` FROM daily_update_tickets WHERE client_id = ? ORDER BY submitted_at, id`,
		clientID.String(),
	)
}

func (r *sqliteTicketRepository) query(ctx context.Context, query string, args ...any) ([]domain.DailyUpdateTicket, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer rows.Close()

	tickets := make([]domain.DailyUpdateTicket, 0)
	for rows.Next() {
		ticket, err := scanSQLiteTicket(rows)
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

type sqliteWatchRecordRepository struct {
	db *sql.DB
}

func scanSQLiteRecord(row rowScanner) (domain.WatchRecord, error) {
	var (
		record               domain.WatchRecord
		id, clientID, kind   string
		lastSeen             sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&id,
		&clientID,
		&kind,
		&record.Name,
		&record.Address,
		&record.Description,
		&record.Active,
		&lastSeen,
		&createdAt,
		&updatedAt,
	); err != nil {
		return domain.WatchRecord{}, err
	}
	var err error
	if record.ID, err = uuid.Parse(id); err != nil {
		return domain.WatchRecord{}, fmt.Errorf("invalid record id %q: %w", id, err)
	}
	if record.ClientID, err = uuid.Parse(clientID); err != nil {
		return domain.WatchRecord{}, fmt.Errorf("invalid client id %q: %w", clientID, err)
	}
	record.Kind = domain.RecordKind(kind)
	if lastSeen.Valid && lastSeen.String != "" {
		seen, err := parseSQLiteTime(lastSeen.String)
		if err != nil {
			return domain.WatchRecord{}, err
		}
		record.LastSeenAt = &seen
	}
	if record.CreatedAt, err = parseSQLiteTime(createdAt); err != nil {
		return domain.WatchRecord{}, err
	}
	if record.UpdatedAt, err = parseSQLiteTime(updatedAt); err != nil {
		return domain.WatchRecord{}, err
	}
	return record, nil
}

func (r *sqliteWatchRecordRepository) Create(ctx context.Context, record domain.WatchRecord) (domain.WatchRecord, error) {
	var lastSeen sql.NullString
	if record.LastSeenAt != nil {
		lastSeen = sql.NullString{String: formatSQLiteTime(*record.LastSeenAt), Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO watch_records (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID.String(), record.ClientID.String(), string(record.Kind), record.Name, record.Address,
		record.Description, record.Active, lastSeen,
		formatSQLiteTime(record.CreatedAt), formatSQLiteTime(record.UpdatedAt),
	)
	if err != nil {
		return domain.WatchRecord{}, translateSQLiteError(err, "failed to create watch record")
	}
	return r.GetByID(ctx, record.ID)
}

func (r *sqliteWatchRecordRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.WatchRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM watch_records WHERE id = ?`, id.String())
	record, err := scanSQLiteRecord(row)
	if err != nil {
		return domain.WatchRecord{}, translateSQLiteError(err, "failed to get watch record")
	}
	return record, nil
}

func (r *sqliteWatchRecordRepository) List(ctx context.Context, filter domain.RecordFilter) ([]domain.WatchRecord, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.ClientID != nil {
		clauses = append(clauses, "client_id = ?")
		args = append(args, filter.ClientID.String())
	}
	if filter.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.Active != nil {
		clauses = append(clauses, "active = ?")
		args = append(args, *filter.Active)
	}
	query := `SELECT ` + recordColumns + ` FROM watch_records`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list watch records: %w", err)
	}
	defer rows.Close()

	records := make([]domain.WatchRecord, 0)
	for rows.Next() {
		record, err := scanSQLiteRecord(rows)
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

func (r *sqliteWatchRecordRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) (domain.WatchRecord, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE watch_records SET active = ?, updated_at = ? WHERE id = ?`,
		active, formatSQLiteTime(time.Now()), id.String(),
	)
	if err != nil {
		return domain.WatchRecord{}, fmt.Errorf("failed to update watch record: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return domain.WatchRecord{}, fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	return r.GetByID(ctx, id)
}

func (r *sqliteWatchRecordRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM watch_records WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete watch record: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return fmt.Errorf("record %s: %w", id, ErrNotFound)
	}
	return nil
}

type sqliteImportLogRepository struct {
	db *sql.DB
}

func (r *sqliteImportLogRepository) Record(ctx context.Context, entry domain.ImportLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	var rowNumber any
	if entry.RowNumber != nil {
		rowNumber = *entry.RowNumber
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO import_logs (id, client_id, kind, file_name, row_number, error_message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID.String(), entry.ClientID.String(), string(entry.Kind), entry.FileName,
		rowNumber, entry.Message, formatSQLiteTime(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to record import log: %w", err)
	}
	return nil
}

func (r *sqliteImportLogRepository) List(ctx context.Context, filter domain.ImportLogFilter) ([]domain.ImportLogEntry, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.ClientID != nil {
		clauses = append(clauses, "client_id = ?")
		args = append(args, filter.ClientID.String())
	}
	if filter.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.FileName != "" {
		clauses = append(clauses, "file_name = ?")
		args = append(args, filter.FileName)
	}
	query := `SELECT id, client_id, kind, file_name, row_number, error_message, created_at FROM import_logs`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	limit, offset := filter.Page()
	query += ` ORDER BY created_at DESC, row_number, id LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list import logs: %w", err)
	}
	defer rows.Close()

	logs := []domain.ImportLogEntry{}
	for rows.Next() {
		var (
			entry              domain.ImportLogEntry
			id, clientID, kind string
			createdAt          string
			rowNumber          sql.NullInt64
		)
		if err := rows.Scan(&id, &clientID, &kind, &entry.FileName, &rowNumber, &entry.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan import log: %w", err)
		}
		if entry.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid import log id %q: %w", id, err)
		}
		if entry.ClientID, err = uuid.Parse(clientID); err != nil {
			return nil, fmt.Errorf("invalid client id %q: %w", clientID, err)
		}
		entry.Kind = domain.RecordKind(kind)
		if rowNumber.Valid {
			value := int(rowNumber.Int64)
			entry.RowNumber = &value
		}
		if entry.CreatedAt, err = parseSQLiteTime(createdAt); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate import logs: %w", err)
	}
	return logs, nil
}
