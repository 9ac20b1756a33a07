package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/rpattn/clientops/internal/domain"
	"github.com/rpattn/clientops/internal/repository"
	"github.com/rpattn/clientops/internal/watchlist"
	"github.com/rpattn/clientops/pkg/validator"

	"github.com/google/uuid"
)

var timeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
}

// columnAliases maps sanitized header names onto record fields.
var columnAliases = map[string][]string{
	"name":        {"name", "ip", "primary_ip", "hostname", "host", "log_type", "logtype", "collector", "collector_name", "source", "source_name"},
	"address":     {"address", "alternative_ip", "alternate_ip", "alt_ip", "ip_address", "collector_ip", "source_ip"},
	"description": {"description", "notes", "note", "comment"},
	"active":      {"active", "enabled"},
	"lastSeenAt":  {"last_seen", "last_seen_at", "lastseen", "lastseenat"},
}

// Service imports watch records from tabular uploads.
type Service struct {
	clients repository.ClientRepository
	records *watchlist.Service
	logRepo repository.ImportLogRepository
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the clock used to stamp import logs.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new ingestion service. logRepo may be nil, in which
// case skipped rows are only reported in the summary.
func NewService(
	clients repository.ClientRepository,
	records *watchlist.Service,
	logRepo repository.ImportLogRepository,
	opts ...Option,
) *Service {
	s := &Service{
		clients: clients,
		records: records,
		logRepo: logRepo,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request describes the import input.
type Request struct {
	ClientID       uuid.UUID
	Kind           string
	FileName       string
	HeaderRowIndex *int
	Data           io.Reader
}

// PreviewRequest asks for the detected layout of an upload without importing it.
type PreviewRequest struct {
	FileName       string
	HeaderRowIndex *int
	Limit          int
	Data           io.Reader
}

// PreviewHeader is one detected column and the record field it maps to.
type PreviewHeader struct {
	Name     string `json:"name"`
	Original string `json:"original"`
	Field    string `json:"field,omitempty"`
}

// HeaderCandidate is a row that could serve as the header.
type HeaderCandidate struct {
	Index   int      `json:"index"`
	Values  []string `json:"values"`
	Current bool     `json:"current"`
}

// PreviewResult describes the parsed upload.
type PreviewResult struct {
	Headers          []PreviewHeader   `json:"headers"`
	Rows             [][]string        `json:"rows"`
	TotalRows        int               `json:"totalRows"`
	HeaderRowIndex   int               `json:"headerRowIndex"`
	HeaderCandidates []HeaderCandidate `json:"headerCandidates"`
}

// RowError reports why one data row was skipped.
type RowError struct {
	Row     int      `json:"row"`
	Fields  []string `json:"fields,omitempty"`
	Message string   `json:"message"`
}

// Summary returns import level metrics.
type Summary struct {
	TotalRows int        `json:"totalRows"`
	Created   int        `json:"created"`
	Invalid   int        `json:"invalid"`
	Errors    []RowError `json:"errors"`
}

// Import reads the uploaded file and creates one record per valid row.
// Invalid rows are reported in the summary and do not stop the import.
func (s *Service) Import(ctx context.Context, req Request) (Summary, error) {
	summary := Summary{Errors: []RowError{}}

	kind := domain.ParseRecordKind(req.Kind)
	result := validator.NewResult()
	if req.ClientID == uuid.Nil {
		result.Add("clientId", "clientId is required")
	}
	if !kind.Valid() {
		result.AddValue("kind", "kind must be one of ALTERNATIVE_IP, IGNORED_LOG_TYPE, COLLECTOR, MISSING_LOG", req.Kind)
	}
	if err := result.Err(); err != nil {
		return summary, err
	}
	if req.Data == nil {
		return summary, errors.New("data reader is required")
	}

	if _, err := s.clients.GetByID(ctx, req.ClientID); err != nil {
		return summary, err
	}

	startedAt := s.now()
	payload, err := io.ReadAll(req.Data)
	if err != nil {
		return summary, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(payload) == 0 {
		err := errors.New("file is empty")
		s.logImportError(ctx, req, kind, startedAt, nil, err)
		return summary, err
	}

	table, _, err := parseTable(req.FileName, payload, req.HeaderRowIndex)
	if err != nil {
		s.logImportError(ctx, req, kind, startedAt, nil, err)
		return summary, err
	}

	columns := mapColumns(table.headers)
	if _, ok := columns["name"]; !ok {
		err := fmt.Errorf("no name column found in headers %v", table.rawHeaders)
		s.logImportError(ctx, req, kind, startedAt, nil, err)
		return summary, err
	}

	summary.TotalRows = len(table.rows)
	for idx, row := range table.rows {
		rowNumber := table.headerRowIndex + idx + 2 // 1-based sheet row below the header
		input, active, err := rowInput(req.ClientID, kind, columns, row)
		if err == nil {
			err = watchlist.Validate(input)
		}
		if err != nil {
			summary.addRowError(rowNumber, err)
			s.logImportError(ctx, req, kind, startedAt, &rowNumber, err)
			continue
		}

		created, err := s.records.Create(ctx, input)
		if err != nil {
			if _, ok := validator.AsError(err); !ok {
				log.Printf("[ingestion] failed to create row %d of %s: %v", rowNumber, req.FileName, err)
			}
			summary.addRowError(rowNumber, err)
			s.logImportError(ctx, req, kind, startedAt, &rowNumber, err)
			continue
		}
		if !active {
			if _, err := s.records.Toggle(ctx, created.ID); err != nil {
				log.Printf("[ingestion] failed to deactivate row %d of %s: %v", rowNumber, req.FileName, err)
			}
		}
		summary.Created++
	}

	log.Printf("[ingestion] imported %s for client %s: %d created, %d invalid", req.FileName, req.ClientID, summary.Created, summary.Invalid)
	return summary, nil
}

// Preview parses the upload and reports its headers and first rows.
func (s *Service) Preview(ctx context.Context, req PreviewRequest) (PreviewResult, error) {
	if req.Data == nil {
		return PreviewResult{}, errors.New("data reader is required")
	}
	payload, err := io.ReadAll(req.Data)
	if err != nil {
		return PreviewResult{}, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(payload) == 0 {
		return PreviewResult{}, errors.New("file is empty")
	}

	table, records, err := parseTable(req.FileName, payload, req.HeaderRowIndex)
	if err != nil {
		return PreviewResult{}, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}

	fields := make(map[int]string)
	for field, col := range mapColumns(table.headers) {
		fields[col] = field
	}

	headers := make([]PreviewHeader, len(table.headers))
	for i, name := range table.headers {
		headers[i] = PreviewHeader{Name: name, Original: table.rawHeaders[i], Field: fields[i]}
	}

	rows := table.rows
	if len(rows) > limit {
		rows = rows[:limit]
	}
	if rows == nil {
		rows = [][]string{}
	}

	return PreviewResult{
		Headers:          headers,
		Rows:             rows,
		TotalRows:        len(table.rows),
		HeaderRowIndex:   table.headerRowIndex,
		HeaderCandidates: buildHeaderCandidates(records, limit, table.headerRowIndex),
	}, nil
}

// logImportError stores a skipped row, or a whole-file failure when rowNumber is nil.
func (s *Service) logImportError(ctx context.Context, req Request, kind domain.RecordKind, at time.Time, rowNumber *int, err error) {
	if s.logRepo == nil || err == nil {
		return
	}
	entry := domain.ImportLogEntry{
		ID:        uuid.New(),
		ClientID:  req.ClientID,
		Kind:      kind,
		FileName:  req.FileName,
		RowNumber: rowNumber,
		Message:   err.Error(),
		CreatedAt: at,
	}
	if recordErr := s.logRepo.Record(ctx, entry); recordErr != nil {
		log.Printf("[ingestion] failed to record import log for %s: %v", req.FileName, recordErr)
	}
}

// Logs lists the stored import failures matching filter.
func (s *Service) Logs(ctx context.Context, filter domain.ImportLogFilter) ([]domain.ImportLogEntry, error) {
	if s.logRepo == nil {
		return []domain.ImportLogEntry{}, nil
	}
	logs, err := s.logRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list import logs: %w", err)
	}
	return logs, nil
}

func (s *Summary) addRowError(row int, err error) {
	s.Invalid++
	rowErr := RowError{Row: row, Message: err.Error()}
	if validationErr, ok := validator.AsError(err); ok {
		rowErr.Fields = validationErr.Fields()
	}
	s.Errors = append(s.Errors, rowErr)
}

// mapColumns resolves each record field to the first header matching one of its aliases.
func mapColumns(headers []string) map[string]int {
	columns := make(map[string]int)
	claimed := make(map[int]bool)
	for _, field := range []string{"address", "description", "active", "lastSeenAt", "name"} {
		for _, alias := range columnAliases[field] {
			for idx, header := range headers {
				if claimed[idx] || header != alias {
					continue
				}
				columns[field] = idx
				claimed[idx] = true
				break
			}
			if _, ok := columns[field]; ok {
				break
			}
		}
	}
	return columns
}

func rowInput(clientID uuid.UUID, kind domain.RecordKind, columns map[string]int, row []string) (domain.WatchRecordInput, bool, error) {
	cell := func(field string) string {
		if idx, ok := columns[field]; ok && idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	input := domain.WatchRecordInput{
		ClientID:    clientID,
		Kind:        kind,
		Name:        cell("name"),
		Address:     cell("address"),
		Description: cell("description"),
	}

	result := validator.NewResult()
	active, err := parseActive(cell("active"))
	if err != nil {
		result.AddValue("active", err.Error(), cell("active"))
	}
	if raw := cell("lastSeenAt"); raw != "" {
		seen, err := parseTimestamp(raw)
		if err != nil {
			result.AddValue("lastSeenAt", err.Error(), raw)
		} else {
			input.LastSeenAt = &seen
		}
	}
	return input, active, result.Err()
}

func parseActive(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return true, nil
	case "yes", "y", "active", "enabled":
		return true, nil
	case "no", "n", "inactive", "disabled":
		return false, nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return false, errors.New("active must be a boolean")
	}
	return value, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format")
}
