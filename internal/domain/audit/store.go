package audit

import (
	"context"
	"errors"
	"time"
)

// ErrDateRangeExceeded is returned when a query's date range exceeds the
// maximum window the store is willing to scan in one call.
var ErrDateRangeExceeded = errors.New("date range exceeds maximum of 7 days")

// AuditStore persists audit records. The interface is owned by the domain
// per the hexagonal layout; concrete adapters (file, memory, sqlite)
// implement it, and AuditService batches and writes asynchronously above it.
type AuditStore interface {
	// Append stores audit records. Must be non-blocking from the
	// caller's perspective; AuditService is the only caller and already
	// batches on its own background worker.
	Append(ctx context.Context, records ...AuditRecord) error

	// Flush forces pending records to storage. Called during shutdown.
	Flush(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// AuditFilter specifies query parameters for audit log queries.
type AuditFilter struct {
	// StartTime is the beginning of the time range (zero: no lower bound).
	StartTime time.Time
	// EndTime is the end of the time range (zero: no upper bound).
	EndTime time.Time
	// SubjectID filters by the subject category's identifier (optional).
	SubjectID string
	// Action filters by action-id (optional).
	Action string
	// Decision filters by decision (optional: one of the Decision* constants).
	Decision string
	// PolicyReference filters to records whose PolicyReferences contains
	// this identifier (optional).
	PolicyReference string
	// Limit is the maximum number of records to return (default 100, max 100).
	Limit int
	// Cursor is the pagination cursor for fetching the next page (optional).
	Cursor string
}

// DecisionStats contains per-decision audit statistics.
type DecisionStats struct {
	// Count is the total number of evaluations that reached this decision.
	Count int64
}

// AuditStats contains aggregated audit statistics for a time period,
// surfaced by the admin introspection API.
type AuditStats struct {
	// TotalEvaluations is the total number of recorded evaluations.
	TotalEvaluations int64
	// UniqueSubjects is the count of distinct subject identifiers seen.
	UniqueSubjects int64
	// ByAction maps action-id values to evaluation counts.
	ByAction map[string]int64
	// ByDecision maps Decision* values to counts.
	ByDecision map[string]int64
	// IndeterminateByStatus maps Indeterminate status codes
	// (missing-attribute, syntax-error, processing-error) to counts.
	IndeterminateByStatus map[string]int64
}

// AuditQueryStore provides read access to the audit trail for admin
// queries. Separate from AuditStore, which handles writes only.
type AuditQueryStore interface {
	// Query retrieves audit records matching the filter.
	// Returns records, next cursor, and error. The file, memory and sqlite
	// stores do not paginate: they ignore Cursor and return an empty one.
	// Returns ErrDateRangeExceeded if EndTime - StartTime > 7 days.
	Query(ctx context.Context, filter AuditFilter) ([]AuditRecord, string, error)

	// QueryStats returns aggregated statistics for the given time range.
	QueryStats(ctx context.Context, start, end time.Time) (*AuditStats, error)
}
