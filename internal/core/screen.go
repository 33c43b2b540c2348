package core

import (
	"time"

	"golang.org/x/text/language"
)

// Fixed labels shown on the two screens.
const (
	TotalLabel    = "총 사용금액"
	DetailsLink   = "상세내역보기"
	LoadingLabel  = "Loading..."
	EmptyListNote = "이용내역이 없습니다"
)

// UsageRow is one detail screen line, ready to render.
type UsageRow struct {
	ID          int
	Place       string
	Date        string
	Time        string
	ConfirmType string
	Fee         string
	Cancelled   bool
}

// Row formats a record for display. Cancelled rows keep their original fee
// so the renderer can strike it through.
func (u UsageRecord) Row() UsageRow {
	return UsageRow{
		ID:          u.ID,
		Place:       u.Place,
		Date:        u.Date,
		Time:        u.Time,
		ConfirmType: u.ConfirmType,
		Fee:         FormatWon(u.Fee),
		Cancelled:   u.Cancelled(),
	}
}

// Rows formats records in the order the upstream returned them.
func Rows(records []UsageRecord) []UsageRow {
	rows := make([]UsageRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, r.Row())
	}
	return rows
}

// MainScreen is everything the summary screen shows.
type MainScreen struct {
	Month       string
	TotalLabel  string
	Total       string
	DetailsLink string
}

// NewMainScreen builds the summary screen for the month containing now.
func NewMainScreen(now time.Time, tag language.Tag, total string) MainScreen {
	return MainScreen{
		Month:       MonthHeading(now, tag),
		TotalLabel:  TotalLabel,
		Total:       total,
		DetailsLink: DetailsLink,
	}
}

// DetailScreen is everything the detail screen shows.
type DetailScreen struct {
	Title     string
	Loading   bool
	Err       string
	Rows      []UsageRow
	EmptyNote string
}

// NewDetailScreen builds the detail screen for the month containing now.
func NewDetailScreen(now time.Time, loading bool, errMsg string, records []UsageRecord) DetailScreen {
	return DetailScreen{
		Title:     DetailTitle(now),
		Loading:   loading,
		Err:       errMsg,
		Rows:      Rows(records),
		EmptyNote: EmptyListNote,
	}
}
