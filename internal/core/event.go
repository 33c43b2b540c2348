package core

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Screens a state change can belong to.
const (
	ScreenSummary = "summary"
	ScreenUsages  = "usages"
)

type (
	// StateChanged is published whenever a fetch settles one of the screens.
	StateChanged struct {
		ID         string         `json:"id"`
		Screen     string         `json:"screen"`
		Summary    *SummaryChange `json:"summary,omitempty"`
		Usages     *UsagesChange  `json:"usages,omitempty"`
		OccurredAt time.Time      `json:"occurred_at"`
	}

	SummaryChange struct {
		Display string `json:"display"`
		Total   int64  `json:"total"`
		OK      bool   `json:"ok"`
	}

	UsagesChange struct {
		Count  int           `json:"count"`
		Error  string        `json:"error,omitempty"`
		Usages []UsageRecord `json:"usages"`
	}
)

// NewSummaryChanged builds a change for the main screen.
func NewSummaryChanged(c SummaryChange, at time.Time) *StateChanged {
	return &StateChanged{
		ID:         uuid.NewString(),
		Screen:     ScreenSummary,
		Summary:    &c,
		OccurredAt: at,
	}
}

// NewUsagesChanged builds a change for the detail screen. Count always
// matches the records carried.
func NewUsagesChanged(records []UsageRecord, errMsg string, at time.Time) *StateChanged {
	if records == nil {
		records = []UsageRecord{}
	}
	return &StateChanged{
		ID:     uuid.NewString(),
		Screen: ScreenUsages,
		Usages: &UsagesChange{
			Count:  len(records),
			Error:  errMsg,
			Usages: records,
		},
		OccurredAt: at,
	}
}

func (m *StateChanged) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func StateChangedFromJSON(data []byte) (*StateChanged, error) {
	var msg StateChanged
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
