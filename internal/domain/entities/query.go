package entities

import (
	"math"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// ListOptions carries the raw list parameters supplied by a caller.
// Status and Priority are kept as strings so that unknown values can be
// dropped instead of rejected.
type ListOptions struct {
	Search   string
	Status   string
	Priority string
	Page     int
	Limit    int
}

// TaskQuery is the predicate set for an owner-scoped task listing. All
// predicates combine with AND; OwnerID is always present.
type TaskQuery struct {
	OwnerID  string
	Search   string
	Status   *TaskStatus
	Priority *Priority
	Page     int
	Limit    int
}

// NewTaskQuery starts from the mandatory owner predicate and adds each
// optional predicate only when its value is present and valid.
func NewTaskQuery(ownerID string, opts ListOptions) TaskQuery {
	q := TaskQuery{
		OwnerID: ownerID,
		Search:  opts.Search,
		Page:    opts.Page,
		Limit:   opts.Limit,
	}

	if status := TaskStatus(opts.Status); status.IsValid() {
		q.Status = &status
	}
	if priority := Priority(opts.Priority); priority.IsValid() {
		q.Priority = &priority
	}

	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}

	return q
}

// Skip is the number of matching tasks before the requested page. It
// saturates at math.MaxInt, which every store treats as past the end.
func (q TaskQuery) Skip() int {
	if q.Page-1 > math.MaxInt/q.Limit {
		return math.MaxInt
	}
	return (q.Page - 1) * q.Limit
}

// PastEnd reports whether the requested page starts after the last of
// total matches.
func (q TaskQuery) PastEnd(total int64) bool {
	return int64(q.Skip()) >= total
}

// Matches evaluates the query against a task in memory.
func (q TaskQuery) Matches(t *Task) bool {
	if t.OwnerID() != q.OwnerID {
		return false
	}
	if q.Search != "" && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(q.Search)) {
		return false
	}
	if q.Status != nil && t.Status != *q.Status {
		return false
	}
	if q.Priority != nil && t.Priority != *q.Priority {
		return false
	}
	return true
}

// Pagination describes one page of a listing
type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
}

// NewPagination computes the page count for total matches.
func NewPagination(total int64, q TaskQuery) Pagination {
	limit := int64(q.Limit)
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return Pagination{
		Total: total,
		Page:  q.Page,
		Limit: q.Limit,
		Pages: int(pages),
	}
}
