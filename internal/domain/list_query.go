package domain

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// SortDirection represents ordering direction for sortable fields.
type SortDirection string

const (
	SortDirectionAsc  SortDirection = "asc"
	SortDirectionDesc SortDirection = "desc"
)

// ParseSortDirection defaults to ascending for anything but "desc".
func ParseSortDirection(raw string) SortDirection {
	if strings.EqualFold(strings.TrimSpace(raw), string(SortDirectionDesc)) {
		return SortDirectionDesc
	}
	return SortDirectionAsc
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 200
)

// ListQuery captures the search, filter, sort and paging options of a table view.
type ListQuery struct {
	Search   string
	Status   string
	SortBy   string
	SortDir  SortDirection
	Page     int
	PageSize int
}

// Normalize applies paging defaults and bounds.
func (q ListQuery) Normalize() ListQuery {
	q.Search = strings.TrimSpace(q.Search)
	q.Status = strings.TrimSpace(q.Status)
	q.SortBy = strings.ToLower(strings.TrimSpace(q.SortBy))
	if q.SortDir != SortDirectionDesc {
		q.SortDir = SortDirectionAsc
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	return q
}

// ListQueryFromValues reads search, status, sortBy, sortDir, page and
// pageSize query parameters.
func ListQueryFromValues(values url.Values) ListQuery {
	page, _ := strconv.Atoi(values.Get("page"))
	pageSize, _ := strconv.Atoi(values.Get("pageSize"))
	return ListQuery{
		Search:   values.Get("search"),
		Status:   values.Get("status"),
		SortBy:   values.Get("sortBy"),
		SortDir:  ParseSortDirection(values.Get("sortDir")),
		Page:     page,
		PageSize: pageSize,
	}.Normalize()
}

// FilterName is the label used in export file names.
func (q ListQuery) FilterName() string {
	if q.Status != "" {
		return q.Status
	}
	if q.Search != "" {
		return q.Search
	}
	return "all"
}

// Page is one page of a filtered, sorted listing.
type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// Paginate slices items according to the normalized query.
func Paginate[T any](items []T, q ListQuery) Page[T] {
	q = q.Normalize()
	total := len(items)
	totalPages := (total + q.PageSize - 1) / q.PageSize
	start := (q.Page - 1) * q.PageSize
	if start > total {
		start = total
	}
	end := start + q.PageSize
	if end > total {
		end = total
	}
	page := make([]T, end-start)
	copy(page, items[start:end])
	return Page[T]{
		Items:      page,
		Total:      total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: totalPages,
	}
}

// SortStable orders items by less, reversed for descending queries.
func SortStable[T any](items []T, dir SortDirection, less func(a, b T) bool) {
	sort.SliceStable(items, func(i, j int) bool {
		if dir == SortDirectionDesc {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
}

// MatchesSearch reports whether any field contains search, ignoring case.
func MatchesSearch(search string, fields ...string) bool {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return true
	}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

// FoldLess compares strings case-insensitively.
func FoldLess(a, b string) bool {
	return strings.ToLower(a) < strings.ToLower(b)
}
