// Package sqlite provides a SQL-backed audit.AuditStore/AuditQueryStore
// implementation living alongside FileAuditStore and MemoryAuditStore
// behind the same two interfaces: one row per AuditRecord, the same
// fields and 7-day query-window cap as the file store, but backed by a
// single database file instead of rotated JSONL. Uses modernc.org/sqlite's
// pure-Go database/sql driver so the binary stays cgo-free.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/xacmlgo/pdp/internal/domain/audit"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp INTEGER NOT NULL,
	request_id TEXT,
	subject_id TEXT,
	resource_id TEXT,
	action TEXT,
	decision TEXT,
	status_code TEXT,
	reason TEXT,
	rule_id TEXT,
	policy_references TEXT,
	latency_micros INTEGER,
	signature TEXT
);
CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_records(timestamp);
`

// Store is a SQL-backed audit.AuditStore/AuditQueryStore.
type Store struct {
	db *sql.DB
}

// Open creates (if needed) and opens a sqlite database at path and
// ensures its schema exists. path is passed straight to the driver, so
// ":memory:" works for tests the same way FileAuditStore's callers use
// a temp directory.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers; avoid lock contention.
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Append inserts records in one transaction.
func (s *Store) Append(ctx context.Context, records ...audit.AuditRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO audit_records
		(timestamp, request_id, subject_id, resource_id, action, decision, status_code, reason, rule_id, policy_references, latency_micros, signature)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		refs, err := json.Marshal(r.PolicyReferences)
		if err != nil {
			return fmt.Errorf("sqlite: marshal policy references: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, r.Timestamp.UnixNano(), r.RequestID, r.SubjectID, r.ResourceID,
			r.Action, r.Decision, r.StatusCode, r.Reason, r.RuleID, string(refs), r.LatencyMicros, r.Signature); err != nil {
			return fmt.Errorf("sqlite: insert record: %w", err)
		}
	}
	return tx.Commit()
}

// Flush is a no-op: every Append already commits its own transaction.
func (s *Store) Flush(ctx context.Context) error { return nil }

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Query retrieves records matching filter, newest first, capped at the
// same 7-day window FileAuditStore/MemoryAuditStore enforce.
func (s *Store) Query(ctx context.Context, filter audit.AuditFilter) ([]audit.AuditRecord, string, error) {
	if !filter.EndTime.IsZero() && !filter.StartTime.IsZero() && filter.EndTime.Sub(filter.StartTime) > 7*24*time.Hour {
		return nil, "", audit.ErrDateRangeExceeded
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	var where []string
	var args []any
	if !filter.StartTime.IsZero() {
		where = append(where, "timestamp >= ?")
		args = append(args, filter.StartTime.UnixNano())
	}
	if !filter.EndTime.IsZero() {
		where = append(where, "timestamp <= ?")
		args = append(args, filter.EndTime.UnixNano())
	}
	if filter.SubjectID != "" {
		where = append(where, "subject_id = ?")
		args = append(args, filter.SubjectID)
	}
	if filter.Action != "" {
		where = append(where, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.Decision != "" {
		where = append(where, "decision = ? COLLATE NOCASE")
		args = append(args, filter.Decision)
	}
	if filter.PolicyReference != "" {
		where = append(where, "policy_references LIKE ?")
		args = append(args, "%\""+filter.PolicyReference+"\"%")
	}

	query := "SELECT timestamp, request_id, subject_id, resource_id, action, decision, status_code, reason, rule_id, policy_references, latency_micros, signature FROM audit_records"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("sqlite: query: %w", err)
	}
	defer rows.Close()

	var out []audit.AuditRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, rec)
	}
	return out, "", rows.Err()
}

// QueryStats aggregates records timestamped within [start, end].
func (s *Store) QueryStats(ctx context.Context, start, end time.Time) (*audit.AuditStats, error) {
	var where []string
	var args []any
	if !start.IsZero() {
		where = append(where, "timestamp >= ?")
		args = append(args, start.UnixNano())
	}
	if !end.IsZero() {
		where = append(where, "timestamp <= ?")
		args = append(args, end.UnixNano())
	}
	query := "SELECT subject_id, action, decision, status_code FROM audit_records"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query stats: %w", err)
	}
	defer rows.Close()

	stats := &audit.AuditStats{
		ByAction:              make(map[string]int64),
		ByDecision:            make(map[string]int64),
		IndeterminateByStatus: make(map[string]int64),
	}
	subjects := make(map[string]struct{})
	for rows.Next() {
		var subjectID, action, dec, statusCode string
		if err := rows.Scan(&subjectID, &action, &dec, &statusCode); err != nil {
			return nil, fmt.Errorf("sqlite: scan stats row: %w", err)
		}
		stats.TotalEvaluations++
		if action != "" {
			stats.ByAction[action]++
		}
		if dec != "" {
			stats.ByDecision[dec]++
		}
		if dec == audit.DecisionIndeterminate && statusCode != "" {
			stats.IndeterminateByStatus[statusCode]++
		}
		if subjectID != "" {
			subjects[subjectID] = struct{}{}
		}
	}
	stats.UniqueSubjects = int64(len(subjects))
	return stats, rows.Err()
}

func scanRecord(rows *sql.Rows) (audit.AuditRecord, error) {
	var rec audit.AuditRecord
	var tsNano int64
	var refsJSON string
	if err := rows.Scan(&tsNano, &rec.RequestID, &rec.SubjectID, &rec.ResourceID, &rec.Action,
		&rec.Decision, &rec.StatusCode, &rec.Reason, &rec.RuleID, &refsJSON, &rec.LatencyMicros, &rec.Signature); err != nil {
		return rec, fmt.Errorf("sqlite: scan record: %w", err)
	}
	rec.Timestamp = time.Unix(0, tsNano).UTC()
	if refsJSON != "" {
		if err := json.Unmarshal([]byte(refsJSON), &rec.PolicyReferences); err != nil {
			return rec, fmt.Errorf("sqlite: unmarshal policy references: %w", err)
		}
	}
	return rec, nil
}

// Compile-time interface verification.
var _ audit.AuditStore = (*Store)(nil)
var _ audit.AuditQueryStore = (*Store)(nil)
