package domain

import (
	"time"

	"github.com/google/uuid"
)

// ImportLogEntry captures one row an import skipped and why.
type ImportLogEntry struct {
	ID        uuid.UUID  `json:"id"`
	ClientID  uuid.UUID  `json:"clientId"`
	Kind      RecordKind `json:"kind"`
	FileName  string     `json:"fileName"`
	RowNumber *int       `json:"rowNumber,omitempty"`
	Message   string     `json:"message"`
	CreatedAt time.Time  `json:"createdAt"`
}

// DefaultImportLogLimit caps listings that do not ask for a page size.
const DefaultImportLogLimit = 200

// ImportLogFilter narrows an import log listing. Zero values match everything.
type ImportLogFilter struct {
	ClientID *uuid.UUID
	Kind     RecordKind
	FileName string
	Limit    int
	Offset   int
}

// Matches reports whether entry passes the filter.
func (f ImportLogFilter) Matches(entry ImportLogEntry) bool {
	if f.ClientID != nil && entry.ClientID != *f.ClientID {
		return false
	}
	if f.Kind != "" && entry.Kind != f.Kind {
		return false
	}
	if f.FileName != "" && entry.FileName != f.FileName {
		return false
	}
	return true
}

// Page normalizes the limit and offset.
func (f ImportLogFilter) Page() (limit, offset int) {
	limit, offset = f.Limit, f.Offset
	if limit <= 0 {
		limit = DefaultImportLogLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// ImportLogLess orders newest imports first and rows in file order within one import.
func ImportLogLess(a, b ImportLogEntry) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	ar, br := rowOrZero(a.RowNumber), rowOrZero(b.RowNumber)
	if ar != br {
		return ar < br
	}
	return a.ID.String() < b.ID.String()
}

func rowOrZero(row *int) int {
	if row == nil {
		return 0
	}
	return *row
}
