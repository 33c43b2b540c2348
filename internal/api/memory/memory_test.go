package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"card/internal/core"
)

func TestSummaryExcludesCancelled(t *testing.T) {
	s := New([]core.UsageRecord{
		{ID: 1, ConfirmType: "승인", Fee: 1000},
		{ID: 2, ConfirmType: core.ConfirmCancelled, Fee: 700},
		{ID: 3, ConfirmType: "승인", Fee: 250},
	})
	sum, err := s.ReadSummary(context.Background())
	if err != nil || sum.Total != 1250 {
		t.Fatalf("unexpected summary: %+v err=%v", sum, err)
	}
}

func TestListReturnsCopy(t *testing.T) {
	s := New([]core.UsageRecord{{ID: 1, Place: "A"}})
	got, _ := s.ListUsages(context.Background())
	got[0].Place = "changed"
	again, _ := s.ListUsages(context.Background())
	if again[0].Place != "A" {
		t.Fatalf("store mutated through returned slice")
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()

	// Missing file -> sample data
	s, err := NewFromFile(filepath.Join(dir, "missing.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	items, _ := s.ListUsages(context.Background())
	if len(items) == 0 {
		t.Fatalf("expected default records")
	}

	path := filepath.Join(dir, "usages.json")
	body := `[{"id":7,"confirmType":"승인","date":"2024.08.10","time":"10:00","fee":3000,"place":"P"}]`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s, err = NewFromFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	items, _ = s.ListUsages(context.Background())
	if len(items) != 1 || items[0].ID != 7 {
		t.Fatalf("unexpected items: %+v", items)
	}

	if err := os.WriteFile(path, []byte(`[{"id":1}]`), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	if _, err := NewFromFile(path); err == nil {
		t.Fatalf("expected error for incomplete seed")
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(nil).ListUsages(ctx); err == nil {
		t.Fatalf("expected context error")
	}
}
