// Package query translates untrusted listing parameters into a bounded,
// storage-independent task query.
package query

import (
	"net/url"
	"strconv"
	"strings"
)

// Direction is a sort direction.
type Direction int

const (
	// Descending is used for every direction value except "asc".
	Descending Direction = iota
	// Ascending is selected by the "asc" suffix.
	Ascending
)

// SortField is a sortable task attribute.
type SortField string

// Sortable fields. Anything else in sortBy is dropped.
const (
	SortCreatedAt   SortField = "createdAt"
	SortUpdatedAt   SortField = "updatedAt"
	SortDescription SortField = "description"
	SortCompleted   SortField = "completed"
)

var sortColumns = map[SortField]string{
	SortCreatedAt:   "created_at",
	SortUpdatedAt:   "updated_at",
	SortDescription: "description",
	SortCompleted:   "completed",
}

// Parameter names accepted in the query string.
const (
	ParamCompleted = "completed"
	ParamSortBy    = "sortBy"
	ParamLimit     = "limit"
	ParamSkip      = "skip"
)

// Sort is a validated ordering clause.
type Sort struct {
	Field     SortField
	Direction Direction
}

// Column returns the storage column for the field.
func (s Sort) Column() string {
	return sortColumns[s.Field]
}

// TaskQuery is the immutable result of parsing listing parameters.
// Zero value means: no filter, default order, no pagination.
type TaskQuery struct {
	completed    bool
	hasCompleted bool
	sort         Sort
	hasSort      bool
	limit        int
	skip         int
}

// Completed returns the completed filter and whether it is set.
func (q TaskQuery) Completed() (bool, bool) {
	return q.completed, q.hasCompleted
}

// Sort returns the requested ordering and whether it is set.
func (q TaskQuery) Sort() (Sort, bool) {
	return q.sort, q.hasSort
}

// Limit returns the page size, 0 means unbounded.
func (q TaskQuery) Limit() int {
	return q.limit
}

// Skip returns the number of rows to skip.
func (q TaskQuery) Skip() int {
	return q.skip
}

// WithCompleted returns a copy filtered by completed.
func (q TaskQuery) WithCompleted(completed bool) TaskQuery {
	q.completed = completed
	q.hasCompleted = true
	return q
}

// WithSort returns a copy ordered by field. Unknown fields leave q unchanged.
func (q TaskQuery) WithSort(field SortField, dir Direction) TaskQuery {
	if _, ok := sortColumns[field]; !ok {
		return q
	}
	q.sort = Sort{Field: field, Direction: dir}
	q.hasSort = true
	return q
}

// WithPage returns a copy with pagination. Non-positive limit means unbounded,
// negative skip is treated as 0.
func (q TaskQuery) WithPage(limit, skip int) TaskQuery {
	q.limit = max(limit, 0)
	q.skip = max(skip, 0)
	return q
}

// ParseTaskQuery builds a TaskQuery from request parameters.
//
//	completed=true          only completed tasks; any other non-empty value selects incomplete ones
//	sortBy=createdAt_asc    field_direction, direction other than "asc" is descending
//	limit=10&skip=20        malformed values are ignored
func ParseTaskQuery(values url.Values) TaskQuery {
	var q TaskQuery

	if raw := values.Get(ParamCompleted); raw != "" {
		q = q.WithCompleted(raw == "true")
	}

	if raw := values.Get(ParamSortBy); raw != "" {
		field, dir := parseSort(raw)
		q = q.WithSort(field, dir)
	}

	return q.WithPage(parseCount(values.Get(ParamLimit)), parseCount(values.Get(ParamSkip)))
}

func parseSort(raw string) (SortField, Direction) {
	field, dir, _ := strings.Cut(raw, "_")
	if dir == "asc" {
		return SortField(field), Ascending
	}
	return SortField(field), Descending
}

// parseCount returns 0 for anything that is not a non-negative integer.
func parseCount(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
