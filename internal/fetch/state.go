// Package fetch maps the two upstream calls onto display state.
//
// A trigger starts at most one request per fetcher: while a request is in
// flight further triggers join it and complete with it. Requests run on the
// fetcher's lifetime context, so leaving a screen never cancels them.
package fetch

import (
	"time"

	"card/internal/api"
	"card/internal/core"
)

const (
	// SummaryPlaceholder is shown until the first summary fetch completes.
	SummaryPlaceholder = "Loading"
	// NoDataMessage is shown when the summary response carries nothing to display.
	NoDataMessage = "No data"
	// ListErrorMessage is shown on the detail screen when the list fetch fails.
	ListErrorMessage = "페칭 실패"
)

// SummaryState backs the main screen.
type SummaryState struct {
	Display   string
	Total     int64
	OK        bool
	FetchedAt time.Time
}

// ListState backs the detail screen. Usages is replaced wholesale on every
// successful fetch and kept as-is on failure.
type ListState struct {
	Usages    []core.UsageRecord
	Loading   bool
	Err       string
	FetchedAt time.Time
}

// InitialSummary is the state before any fetch.
func InitialSummary() SummaryState {
	return SummaryState{Display: SummaryPlaceholder}
}

// InitialList is the state before any fetch.
func InitialList() ListState {
	return ListState{}
}

// Observer receives fetch outcomes, typically for metrics.
type Observer interface {
	FetchCompleted(op string, kind api.Kind, err error, d time.Duration)
	FetchCoalesced(op string)
}

type nopObserver struct{}

func (nopObserver) FetchCompleted(string, api.Kind, error, time.Duration) {}
func (nopObserver) FetchCoalesced(string)                               {}

// summaryMessage turns a summary failure into the text shown in place of the total.
func summaryMessage(err error) string {
	if api.KindOf(err) == api.KindEmptyBody {
		return NoDataMessage
	}
	return "Error: " + err.Error()
}
