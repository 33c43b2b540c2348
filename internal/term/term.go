// Package term renders the two screens for a terminal.
package term

import (
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"card/internal/core"
)

const (
	width = 44

	colorCancelled = lipgloss.Color("#D32F2F")
	colorBadge     = lipgloss.Color("#000000")
	colorMuted     = lipgloss.Color("#888888")
	colorOnBadge   = lipgloss.Color("#FFFFFF")
)

// Renderer styles screens for the writer it was created for. Color is
// dropped automatically when the writer is not a terminal.
type Renderer struct {
	lg *lipgloss.Renderer

	month          lipgloss.Style
	label          lipgloss.Style
	total          lipgloss.Style
	link           lipgloss.Style
	title          lipgloss.Style
	place          lipgloss.Style
	meta           lipgloss.Style
	badge          lipgloss.Style
	badgeCancelled lipgloss.Style
	fee            lipgloss.Style
	feeCancelled   lipgloss.Style
	errorText      lipgloss.Style
}

func New(w io.Writer) *Renderer {
	return newRenderer(lipgloss.NewRenderer(w))
}

func newRenderer(lg *lipgloss.Renderer) *Renderer {
	badge := lg.NewStyle().Foreground(colorOnBadge).Padding(0, 1)
	fee := lg.NewStyle().Bold(true)
	return &Renderer{
		lg:             lg,
		month:          lg.NewStyle().Bold(true).Width(width).Align(lipgloss.Center),
		label:          lg.NewStyle().Foreground(colorMuted).Width(width).Align(lipgloss.Center),
		total:          lg.NewStyle().Width(width).Align(lipgloss.Center),
		link:           lg.NewStyle().Bold(true).Foreground(colorOnBadge).Background(colorBadge).Padding(0, 1),
		title:          lg.NewStyle().Width(width).Align(lipgloss.Center).MarginBottom(1),
		place:          lg.NewStyle().Bold(true),
		meta:           lg.NewStyle().Foreground(colorMuted),
		badge:          badge.Background(colorBadge),
		badgeCancelled: badge.Background(colorCancelled),
		fee:            fee,
		feeCancelled:   fee.Strikethrough(true),
		errorText:      lg.NewStyle().Foreground(colorCancelled).Width(width).Align(lipgloss.Center),
	}
}

// Main renders the summary screen.
func (r *Renderer) Main(s core.MainScreen) string {
	link := lipgloss.PlaceHorizontal(width, lipgloss.Center, r.link.Render(s.DetailsLink))
	return lipgloss.JoinVertical(lipgloss.Left,
		r.month.Render(s.Month),
		r.label.Render(s.TotalLabel),
		r.total.Render(s.Total),
		link,
	)
}

// Detail renders the detail screen: the title, then a loading line or one
// row per usage.
func (r *Renderer) Detail(s core.DetailScreen) string {
	lines := []string{r.title.Render(s.Title)}
	if s.Err != "" && !s.Loading {
		lines = append(lines, r.errorText.Render(s.Err))
	}

	switch {
	case s.Loading:
		lines = append(lines, r.label.Render(core.LoadingLabel))
	case len(s.Rows) == 0 && s.Err == "":
		lines = append(lines, r.label.Render(s.EmptyNote))
	default:
		for _, row := range s.Rows {
			lines = append(lines, r.Row(row))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Row renders one usage: place and meta on the left, fee on the right.
func (r *Renderer) Row(u core.UsageRow) string {
	badge, fee := r.badge, r.fee
	if u.Cancelled {
		badge, fee = r.badgeCancelled, r.feeCancelled
	}

	left := lipgloss.JoinVertical(lipgloss.Left,
		r.place.Render(u.Place),
		strings.Join([]string{r.meta.Render(u.Date), r.meta.Render(u.Time), badge.Render(u.ConfirmType)}, " "),
	)
	right := fee.Render(u.Fee)

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, left, strings.Repeat(" ", gap), right) + "\n"
}
