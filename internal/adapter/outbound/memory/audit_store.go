// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/xacmlgo/pdp/internal/domain/audit"
)

const defaultRecentCap = 1000

// MemoryAuditStore implements audit.AuditStore writing to stdout or a file.
// Also keeps a bounded in-memory ring buffer for recent record queries.
type MemoryAuditStore struct {
	encoder *json.Encoder
	writer  io.Writer
	mu      sync.Mutex
	// recent is a bounded ring buffer of the most recent records.
	recent []audit.AuditRecord
	cap    int
}

// resolveCapacity returns the first positive capacity value, or defaultRecentCap.
func resolveCapacity(capacity ...int) int {
	if len(capacity) > 0 && capacity[0] > 0 {
		return capacity[0]
	}
	return defaultRecentCap
}

// NewAuditStore creates a new audit store writing to stdout.
// An optional capacity parameter sets the ring buffer size (default 1000).
func NewAuditStore(capacity ...int) *MemoryAuditStore {
	cap := resolveCapacity(capacity...)
	return &MemoryAuditStore{
		encoder: json.NewEncoder(os.Stdout),
		writer:  os.Stdout,
		recent:  make([]audit.AuditRecord, 0, cap),
		cap:     cap,
	}
}

// NewAuditStoreWithWriter creates an audit store writing to the given writer.
// An optional capacity parameter sets the ring buffer size (default 1000).
func NewAuditStoreWithWriter(w io.Writer, capacity ...int) *MemoryAuditStore {
	cap := resolveCapacity(capacity...)
	return &MemoryAuditStore{
		encoder: json.NewEncoder(w),
		writer:  w,
		recent:  make([]audit.AuditRecord, 0, cap),
		cap:     cap,
	}
}

// Append stores audit records by writing them as JSON to the output
// and keeping them in the in-memory ring buffer.
func (s *MemoryAuditStore) Append(ctx context.Context, records ...audit.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if err := s.encoder.Encode(r); err != nil {
			return err
		}
		// Add to ring buffer.
		if len(s.recent) >= s.cap {
			// Shift left, drop oldest.
			copy(s.recent, s.recent[1:])
			s.recent[len(s.recent)-1] = r
		} else {
			s.recent = append(s.recent, r)
		}
	}
	return nil
}

// Flush forces pending records to storage.
// No-op for this implementation (no buffering).
func (s *MemoryAuditStore) Flush(ctx context.Context) error {
	return nil
}

// Close releases resources.
func (s *MemoryAuditStore) Close() error {
	// Close file if it's not stdout/stderr
	if f, ok := s.writer.(*os.File); ok && f != os.Stdout && f != os.Stderr {
		return f.Close()
	}
	return nil
}

// GetRecent returns the N most recent audit records (newest first).
func (s *MemoryAuditStore) GetRecent(n int) []audit.AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := len(s.recent)
	if n > total {
		n = total
	}
	if n == 0 {
		return nil
	}
	// Return newest first.
	result := make([]audit.AuditRecord, n)
	for i := 0; i < n; i++ {
		result[i] = s.recent[total-1-i]
	}
	return result
}

// Query retrieves audit records matching the filter from the in-memory buffer.
func (s *MemoryAuditStore) Query(ctx context.Context, filter audit.AuditFilter) ([]audit.AuditRecord, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !filter.EndTime.IsZero() && !filter.StartTime.IsZero() && filter.EndTime.Sub(filter.StartTime) > 7*24*time.Hour {
		return nil, "", audit.ErrDateRangeExceeded
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	var result []audit.AuditRecord
	// Iterate newest first.
	for i := len(s.recent) - 1; i >= 0 && len(result) < limit; i-- {
		rec := s.recent[i]
		if !filter.StartTime.IsZero() && rec.Timestamp.Before(filter.StartTime) {
			continue
		}
		if !filter.EndTime.IsZero() && rec.Timestamp.After(filter.EndTime) {
			continue
		}
		if filter.Decision != "" && !strings.EqualFold(rec.Decision, filter.Decision) {
			continue
		}
		if filter.Action != "" && rec.Action != filter.Action {
			continue
		}
		if filter.SubjectID != "" && rec.SubjectID != filter.SubjectID {
			continue
		}
		if filter.PolicyReference != "" && !containsString(rec.PolicyReferences, filter.PolicyReference) {
			continue
		}
		result = append(result, rec)
	}

	return result, "", nil
}

// QueryStats aggregates in-memory records timestamped within [start, end]
// into the counts the admin introspection API surfaces.
func (s *MemoryAuditStore) QueryStats(ctx context.Context, start, end time.Time) (*audit.AuditStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &audit.AuditStats{
		ByAction:              make(map[string]int64),
		ByDecision:            make(map[string]int64),
		IndeterminateByStatus: make(map[string]int64),
	}
	subjects := make(map[string]struct{})

	for _, rec := range s.recent {
		if !start.IsZero() && rec.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && rec.Timestamp.After(end) {
			continue
		}
		stats.TotalEvaluations++
		if rec.Action != "" {
			stats.ByAction[rec.Action]++
		}
		if rec.Decision != "" {
			stats.ByDecision[rec.Decision]++
		}
		if rec.Decision == audit.DecisionIndeterminate && rec.StatusCode != "" {
			stats.IndeterminateByStatus[rec.StatusCode]++
		}
		if rec.SubjectID != "" {
			subjects[rec.SubjectID] = struct{}{}
		}
	}
	stats.UniqueSubjects = int64(len(subjects))
	return stats, nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// Compile-time interface verification.
var _ audit.AuditStore = (*MemoryAuditStore)(nil)
var _ audit.AuditQueryStore = (*MemoryAuditStore)(nil)
