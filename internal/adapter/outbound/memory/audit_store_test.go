// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/xacmlgo/pdp/internal/domain/audit"
)

func TestAuditStore_Append(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	buf := &bytes.Buffer{}
	store := NewAuditStoreWithWriter(buf)

	record := audit.AuditRecord{
		RequestID: "req-1",
		Action:    "read",
		Decision:  audit.DecisionPermit,
		Timestamp: time.Now().UTC(),
		SubjectID: "user-1",
	}

	if err := store.Append(ctx, record); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	// Verify JSON was written
	output := buf.String()
	if output == "" {
		t.Fatal("Append() did not write to buffer")
	}

	// Verify it's valid JSON
	var decoded audit.AuditRecord
	if err := json.Unmarshal([]byte(strings.TrimSpace(output)), &decoded); err != nil {
		t.Fatalf("Written output is not valid JSON: %v", err)
	}

	if decoded.RequestID != "req-1" {
		t.Errorf("RequestID = %q, want %q", decoded.RequestID, "req-1")
	}
	if decoded.Action != "read" {
		t.Errorf("Action = %q, want %q", decoded.Action, "read")
	}
}

func TestAuditStore_AppendMultiple(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	buf := &bytes.Buffer{}
	store := NewAuditStoreWithWriter(buf)

	records := []audit.AuditRecord{
		{
			RequestID: "req-1",
			Action:    "read",
			Decision:  audit.DecisionPermit,
			Timestamp: time.Now().UTC(),
		},
		{
			RequestID: "req-2",
			Action:    "write",
			Decision:  audit.DecisionDeny,
			Timestamp: time.Now().UTC(),
		},
		{
			RequestID: "req-3",
			Action:    "delete",
			Decision:  audit.DecisionPermit,
			Timestamp: time.Now().UTC(),
		},
	}

	if err := store.Append(ctx, records...); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	// Verify multiple JSON lines were written
	output := buf.String()
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 3 {
		t.Errorf("Expected 3 JSON lines, got %d", len(lines))
	}

	// Verify each line is valid JSON
	for i, line := range lines {
		var decoded audit.AuditRecord
		if err := json.Unmarshal([]byte(line), &decoded); err != nil {
			t.Errorf("Line %d is not valid JSON: %v", i, err)
		}
		expectedReqID := "req-" + string(rune('1'+i))
		if decoded.RequestID != expectedReqID {
			t.Errorf("Line %d RequestID = %q, want %q", i, decoded.RequestID, expectedReqID)
		}
	}
}

func TestAuditStore_CustomWriter(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	buf := &bytes.Buffer{}
	store := NewAuditStoreWithWriter(buf)

	record := audit.AuditRecord{
		RequestID: "req-custom",
		Action:    "custom_action",
		Decision:  audit.DecisionPermit,
		Timestamp: time.Now().UTC(),
		RuleID:    "rule-1",
	}

	if err := store.Append(ctx, record); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "custom_action") {
		t.Error("Expected output to contain 'custom_action'")
	}
	if !strings.Contains(output, "req-custom") {
		t.Error("Expected output to contain 'req-custom'")
	}
}

func TestAuditStore_Flush(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	buf := &bytes.Buffer{}
	store := NewAuditStoreWithWriter(buf)

	// Append a record
	record := audit.AuditRecord{
		RequestID: "req-flush",
		Action:    "flush_action",
		Timestamp: time.Now().UTC(),
	}
	if err := store.Append(ctx, record); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	// Flush is a no-op but should not error
	if err := store.Flush(ctx); err != nil {
		t.Errorf("Flush() error: %v (expected nil, flush is no-op)", err)
	}

	// Verify the record is still there
	if buf.Len() == 0 {
		t.Error("Buffer should still contain data after Flush()")
	}
}

func TestAuditStore_Close(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	store := NewAuditStoreWithWriter(buf)

	// Close should work for non-file writers (no-op)
	if err := store.Close(); err != nil {
		t.Errorf("Close() error: %v (expected nil for non-file writer)", err)
	}
}

func TestAuditStore_AppendEmpty(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	buf := &bytes.Buffer{}
	store := NewAuditStoreWithWriter(buf)

	// Append with no records should not error
	if err := store.Append(ctx); err != nil {
		t.Errorf("Append() with no records error: %v", err)
	}

	if buf.Len() != 0 {
		t.Errorf("Buffer should be empty after appending no records, got %d bytes", buf.Len())
	}
}

func TestAuditStore_ConcurrentAppend(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	buf := &bytes.Buffer{}
	store := NewAuditStoreWithWriter(buf)

	var wg sync.WaitGroup
	errCh := make(chan error, 100)

	// 100 concurrent appends
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			record := audit.AuditRecord{
				RequestID: "req-" + string(rune('a'+(idx%26))),
				Action:    "concurrent_action",
				Decision:  audit.DecisionPermit,
				Timestamp: time.Now().UTC(),
			}
			if err := store.Append(ctx, record); err != nil {
				errCh <- err
			}
		}(i)
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Errorf("Concurrent Append() error: %v", err)
	}

	// Verify we have 100 lines
	output := buf.String()
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) != 100 {
		t.Errorf("Expected 100 JSON lines, got %d", len(lines))
	}
}

func TestAuditStore_RecordFields(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	buf := &bytes.Buffer{}
	store := NewAuditStoreWithWriter(buf)

	now := time.Now().UTC()
	record := audit.AuditRecord{
		RequestID:        "req-fields",
		Action:           "fields_action",
		Decision:         audit.DecisionDeny,
		Timestamp:        now,
		SubjectID:        "user-admin",
		ResourceID:       "doc-1",
		Reason:           "Policy violation",
		RuleID:           "rule-123",
		LatencyMicros:    1500,
		PolicyReferences: []string{"policy-a", "policy-b"},
		StatusCode:       "ok",
	}

	if err := store.Append(ctx, record); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	// Decode and verify all fields
	var decoded audit.AuditRecord
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("JSON decode error: %v", err)
	}

	if decoded.RequestID != "req-fields" {
		t.Errorf("RequestID = %q, want %q", decoded.RequestID, "req-fields")
	}
	if decoded.Decision != audit.DecisionDeny {
		t.Errorf("Decision = %q, want %q", decoded.Decision, audit.DecisionDeny)
	}
	if decoded.SubjectID != "user-admin" {
		t.Errorf("SubjectID = %q, want %q", decoded.SubjectID, "user-admin")
	}
	if decoded.ResourceID != "doc-1" {
		t.Errorf("ResourceID = %q, want %q", decoded.ResourceID, "doc-1")
	}
	if decoded.Reason != "Policy violation" {
		t.Errorf("Reason = %q, want %q", decoded.Reason, "Policy violation")
	}
	if decoded.RuleID != "rule-123" {
		t.Errorf("RuleID = %q, want %q", decoded.RuleID, "rule-123")
	}
	if decoded.LatencyMicros != 1500 {
		t.Errorf("LatencyMicros = %d, want %d", decoded.LatencyMicros, 1500)
	}
	if len(decoded.PolicyReferences) != 2 {
		t.Errorf("PolicyReferences = %v, want 2 entries", decoded.PolicyReferences)
	}
}

func TestAuditStore_DefaultStdout(t *testing.T) {
	// Note: This test just verifies NewAuditStore doesn't panic
	// We don't actually write to stdout in tests

	store := NewAuditStore()
	if store == nil {
		t.Fatal("NewAuditStore() returned nil")
	}

	// Close should work (stdout is not closed)
	if err := store.Close(); err != nil {
		t.Errorf("Close() on default store error: %v", err)
	}
}

func TestAuditStore_QueryFiltersByActionAndSubject(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	buf := &bytes.Buffer{}
	store := NewAuditStoreWithWriter(buf)

	now := time.Now().UTC()
	_ = store.Append(ctx,
		audit.AuditRecord{RequestID: "1", Action: "read", SubjectID: "alice", Timestamp: now},
		audit.AuditRecord{RequestID: "2", Action: "write", SubjectID: "bob", Timestamp: now},
		audit.AuditRecord{RequestID: "3", Action: "read", SubjectID: "bob", Timestamp: now},
	)

	results, _, err := store.Query(ctx, audit.AuditFilter{Action: "read"})
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("Query(Action=read) returned %d records, want 2", len(results))
	}

	results, _, err = store.Query(ctx, audit.AuditFilter{SubjectID: "bob"})
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("Query(SubjectID=bob) returned %d records, want 2", len(results))
	}
}
