package http

import (
	"bytes"
	"net/http"
	"time"

	"card/internal/core"
	"card/internal/fetch"
	"card/internal/log"
)

type indexPage struct {
	Main core.MainScreen
}

type detailsPage struct {
	Detail core.DetailScreen
}

func (s *Server) requestLogger(r *http.Request) *log.Logger {
	return log.FromContext(r.Context()).WithComponent(log.ComponentHTTP)
}

func (s *Server) mainScreen(st fetch.SummaryState) core.MainScreen {
	return core.NewMainScreen(s.now(), s.locale, st.Display)
}

func (s *Server) detailScreen(st fetch.ListState) core.DetailScreen {
	return core.NewDetailScreen(s.now(), st.Loading, st.Err, st.Usages)
}

// handleIndex shows the main screen and starts a summary fetch for this visit.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.summary.Trigger()
	s.requestLogger(r).DebugContext(r.Context(), "Screen visited", log.FieldScreen, "main")

	page := indexPage{Main: s.mainScreen(s.summary.Store().Snapshot())}
	s.render(w, r, "index.html", page)
}

// handleDetails shows the detail screen and starts a list fetch for this visit.
// The page is rendered in the loading state; the result arrives over the
// event stream or the partial refresh.
func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	s.list.Trigger()
	s.requestLogger(r).DebugContext(r.Context(), "Screen visited", log.FieldScreen, "details")

	st := s.list.Store().Snapshot()
	if st.FetchedAt.IsZero() {
		st.Loading = true
	}
	s.render(w, r, "details.html", detailsPage{Detail: s.detailScreen(st)})
}

func (s *Server) handleSummaryPartial(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "summary", s.mainScreen(s.summary.Store().Snapshot()))
}

func (s *Server) handleUsagesPartial(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "usages", s.detailScreen(s.list.Store().Snapshot()))
}

// render executes into a buffer first so a template error never leaves a
// half-written 200 response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		s.requestLogger(r).ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.requestLogger(r).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err,
			log.FieldTemplate, name)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// handleReady reports whether the server can render screens: templates are
// parsed and the UI loop is still running.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	select {
	case <-s.loop.Done():
		checks["ui_loop"] = "stopped"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	default:
		checks["ui_loop"] = "ok"
	}

	summary := s.summary.Store().Snapshot()
	list := s.list.Store().Snapshot()
	checks["summary"] = map[string]any{
		"ok":         summary.OK,
		"fetched_at": formatTime(summary.FetchedAt),
	}
	checks["usages"] = map[string]any{
		"count":      len(list.Usages),
		"loading":    list.Loading,
		"error":      list.Err,
		"fetched_at": formatTime(list.FetchedAt),
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.limiter.ActiveClients(),
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}
