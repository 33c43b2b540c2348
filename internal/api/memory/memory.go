// Package memory serves usage data from a seed file instead of the remote API.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"card/internal/core"
)

// Store implements api.Source over an in-memory slice.
type Store struct {
	mu      sync.Mutex
	records []core.UsageRecord
}

func New(records []core.UsageRecord) *Store {
	return &Store{records: append([]core.UsageRecord(nil), records...)}
}

// NewFromFile seeds the store from a JSON array in the upstream wire format.
// A missing file yields the built-in sample month.
func NewFromFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(defaultRecords()), nil
		}
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var records []core.UsageRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return New(records), nil
}

// ReadSummary totals every fee that was not cancelled.
func (s *Store) ReadSummary(ctx context.Context) (core.Summary, error) {
	if err := ctx.Err(); err != nil {
		return core.Summary{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, r := range s.records {
		if !r.Cancelled() {
			total += r.Fee
		}
	}
	return core.Summary{Total: total}, nil
}

// ListUsages returns a copy of the seeded records.
func (s *Store) ListUsages(ctx context.Context) ([]core.UsageRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(make([]core.UsageRecord, 0, len(s.records)), s.records...), nil
}

func defaultRecords() []core.UsageRecord {
	return []core.UsageRecord{
		{ID: 1, ConfirmType: "승인", Date: "2024.08.01", Time: "08:42", Fee: 4500, Place: "스타벅스 강남점"},
		{ID: 2, ConfirmType: "승인", Date: "2024.08.03", Time: "12:15", Fee: 12000, Place: "김밥천국"},
		{ID: 3, ConfirmType: "취소", Date: "2024.08.03", Time: "12:20", Fee: 12000, Place: "김밥천국"},
		{ID: 4, ConfirmType: "승인", Date: "2024.08.07", Time: "19:03", Fee: 58300, Place: "이마트 성수점"},
		{ID: 5, ConfirmType: "승인", Date: "2024.08.09", Time: "21:47", Fee: 1250, Place: "서울교통공사"},
	}
}
