package http

import (
	"bytes"
	"net/http"
	"time"

	"card/internal/fetch"
	"card/internal/log"
)

// Event names sent on /ui/events. Each event carries the freshly rendered
// partial, so the page swaps it in without another request.
const (
	EventSummary = "summary"
	EventUsages  = "usages"
)

// signal returns a store subscriber that never blocks the UI loop: pending
// notifications collapse into one.
func signal[T any](ch chan struct{}) func(T) {
	return func(T) {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := s.requestLogger(r)

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(": connected\n\n")); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		logger.ErrorContext(ctx, "Event stream not supported", log.FieldError, err)
		return
	}

	summaryCh := make(chan struct{}, 1)
	usagesCh := make(chan struct{}, 1)
	defer s.summary.Store().Subscribe(signal[fetch.SummaryState](summaryCh))()
	defer s.list.Store().Subscribe(signal[fetch.ListState](usagesCh))()
	// A new stream starts with the current partials, so a fetch that settled
	// before the subscription is not missed.
	summaryCh <- struct{}{}
	usagesCh <- struct{}{}

	if s.metrics != nil {
		s.metrics.StreamOpened()
		defer s.metrics.StreamClosed()
	}
	logger.DebugContext(ctx, "Event stream opened")

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()

	for {
		var (
			event string
			data  any
			tmpl  string
		)
		select {
		case <-ctx.Done():
			logger.DebugContext(ctx, "Event stream closed by client")
			return
		case <-s.closing:
			return
		case <-ticker.C:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return
			}
			_ = rc.Flush()
			continue
		case <-summaryCh:
			event, tmpl, data = EventSummary, "summary", s.mainScreen(s.summary.Store().Snapshot())
		case <-usagesCh:
			event, tmpl, data = EventUsages, "usages", s.detailScreen(s.list.Store().Snapshot())
		}

		if s.templates == nil {
			continue
		}
		var buf bytes.Buffer
		if err := s.templates.ExecuteTemplate(&buf, tmpl, data); err != nil {
			logger.ErrorContext(ctx, "Template execution failed", log.FieldError, err, log.FieldTemplate, tmpl)
			continue
		}
		if err := writeEvent(w, event, buf.String()); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
