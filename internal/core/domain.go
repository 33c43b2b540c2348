package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ConfirmCancelled is the confirm type the card issuer uses for reversed charges.
const ConfirmCancelled = "취소"

type (
	// UsageRecord is one itemized card transaction as returned by the usages list.
	UsageRecord struct {
		ID          int    `json:"id"`
		ConfirmType string `json:"confirmType"`
		Date        string `json:"date"`
		Time        string `json:"time"`
		Fee         int64  `json:"fee"`
		Place       string `json:"place"`
	}

	// Summary is the aggregate usage for the current month.
	Summary struct {
		Total int64
	}
)

var ErrIncompleteRecord = errors.New("incomplete usage record")

// Cancelled reports whether the transaction was reversed.
func (u UsageRecord) Cancelled() bool {
	return u.ConfirmType == ConfirmCancelled
}

// UnmarshalJSON decodes a record and rejects objects missing any field
// or carrying null in place of a value.
func (u *UsageRecord) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID          *int    `json:"id"`
		ConfirmType *string `json:"confirmType"`
		Date        *string `json:"date"`
		Time        *string `json:"time"`
		Fee         *int64  `json:"fee"`
		Place       *string `json:"place"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	var missing []string
	if raw.ID == nil {
		missing = append(missing, "id")
	}
	if raw.ConfirmType == nil {
		missing = append(missing, "confirmType")
	}
	if raw.Date == nil {
		missing = append(missing, "date")
	}
	if raw.Time == nil {
		missing = append(missing, "time")
	}
	if raw.Fee == nil {
		missing = append(missing, "fee")
	}
	if raw.Place == nil {
		missing = append(missing, "place")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncompleteRecord, strings.Join(missing, ", "))
	}

	*u = UsageRecord{
		ID:          *raw.ID,
		ConfirmType: *raw.ConfirmType,
		Date:        *raw.Date,
		Time:        *raw.Time,
		Fee:         *raw.Fee,
		Place:       *raw.Place,
	}
	return nil
}

// Display returns the summary as shown on the main screen.
func (s Summary) Display() string {
	return FormatWon(s.Total)
}
