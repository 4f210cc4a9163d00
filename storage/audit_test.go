package storage

import (
	"context"
	"testing"

	"github.com/richinex/delphi/model"
)

func newTestLog(t *testing.T) *AuditLog {
	t.Helper()
	log, err := NewAuditLog(":memory:")
	if err != nil {
		t.Fatalf("failed to open audit log: %v", err)
	}
	t.Cleanup(func() { log.Close() })
	return log
}

func TestAuditRecordAndRecall(t *testing.T) {
	log := newTestLog(t)
	ctx := context.Background()

	result := model.SuccessResult("It is noon.", []model.TraceEntry{
		{Tool: "get_time", Result: "12:00"},
		{Tool: "calculate", Result: "42"},
	})

	id, err := log.Record(ctx, "what time is it?", result)
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected a generated id")
	}

	records, err := log.Recent(ctx, 5)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	rec := records[0]
	if rec.ID != id {
		t.Errorf("expected id %s, got %s", id, rec.ID)
	}
	if rec.Question != "what time is it?" {
		t.Errorf("unexpected question %q", rec.Question)
	}
	if rec.Status != model.StatusSuccess {
		t.Errorf("unexpected status %q", rec.Status)
	}
	if rec.Response != "It is noon." {
		t.Errorf("unexpected response %q", rec.Response)
	}
	if len(rec.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(rec.Steps))
	}
	if rec.Steps[0].Tool != "get_time" || rec.Steps[1].Tool != "calculate" {
		t.Errorf("steps out of order: %+v", rec.Steps)
	}
}

func TestAuditRecordsErrorOutcome(t *testing.T) {
	log := newTestLog(t)
	ctx := context.Background()

	result := model.ErrorResult("query timed out after 90s", nil)
	if _, err := log.Record(ctx, "slow question", result); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	records, err := log.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if records[0].Status != model.StatusError {
		t.Errorf("expected error status, got %q", records[0].Status)
	}
	if records[0].Response != "query timed out after 90s" {
		t.Errorf("expected error message stored, got %q", records[0].Response)
	}
}

func TestAuditRecentLimit(t *testing.T) {
	log := newTestLog(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := log.Record(ctx, "q", model.SuccessResult("a", nil)); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}

	records, err := log.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(records) != 3 {
		t.Errorf("expected 3 records, got %d", len(records))
	}
}
