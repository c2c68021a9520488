package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"dentaldash/internal/amqp"
	"dentaldash/internal/analytics"
	"dentaldash/internal/log"
	"dentaldash/internal/store"
)

// noDataNotice is shown when the backend has nothing to render.
const noDataNotice = "Nessun dato trovato. Verifica la connessione al database."

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks templates and the data backend. A snapshot that
// failed to load does not make the server unready; the dashboard shows
// the no-data notice instead.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.ping == nil:
		checks["backend"] = "not_checked"
	default:
		if err := s.ping(ctx); err != nil {
			checks["backend"] = fmt.Sprintf("failed: %v", err)
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["backend"] = "ok"
		}
	}

	checks["snapshot"] = s.store.Status()

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleStatus reports cache and traffic figures.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"table":             s.store.Table(),
		"snapshot":          s.store.Status(),
		"view_cache":        s.views.Size(),
		"requests":          s.trace.TotalRequests(),
		"refresh_rejected":  s.limiter.Rejected(),
		"refresh_clients":   s.limiter.ActiveClients(),
		"amqp_broadcasting": s.publisher != nil,
	})
}

// viewResponse is the JSON form of a rendered view.
type viewResponse struct {
	Table       string               `json:"table"`
	FetchedAt   time.Time            `json:"fetched_at"`
	Quarantined int                  `json:"quarantined"`
	View        *analytics.ViewModel `json:"view"`
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	view, snap, err := s.renderView(r)
	if err != nil {
		s.writeViewError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewResponse{
		Table:       snap.Table,
		FetchedAt:   snap.FetchedAt,
		Quarantined: len(snap.Quarantined),
		View:        view,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context())
	reason := "manual refresh"
	s.store.Invalidate(reason)
	s.views.Clear()

	published := false
	if s.publisher != nil {
		msg := amqp.NewRefreshMessage(s.store.Table(), reason, s.clientIP.Extract(r))
		if err := s.publisher.PublishRefresh(r.Context(), msg); err != nil {
			logger.WarnContext(r.Context(), "Refresh broadcast failed, local cache invalidated only",
				log.FieldOperation, log.OpInvalidate, log.FieldError, err)
		} else {
			published = true
		}
	}

	if wantsHTML(r) {
		http.Redirect(w, r, returnPath(r), http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":    "invalidated",
		"table":     s.store.Table(),
		"published": published,
	})
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Refresh rate limit exceeded",
		log.FieldClientIP, s.clientIP.Extract(r))
	writeError(w, r, http.StatusTooManyRequests, "troppi aggiornamenti, riprova tra poco")
}

// renderView loads the snapshot, parses the selection and renders it.
// Views are cached per snapshot, so a refresh never serves stale data.
func (s *Server) renderView(r *http.Request) (*analytics.ViewModel, *store.Snapshot, error) {
	snap, err := s.store.Load(r.Context())
	if err != nil {
		return nil, nil, err
	}

	query := r.URL.Query()
	query.Del(paramFormat)
	key := fmt.Sprintf("%s|%d|%s", snap.Table, snap.FetchedAt.UnixNano(), query.Encode())
	if v, ok := s.views.Get(key); ok {
		return v, snap, nil
	}

	filter, err := ParseFilter(query, snap.Records)
	if err != nil {
		return nil, snap, err
	}
	view := analytics.RenderView(snap.Records, filter, ParsePivot(query))
	s.views.Set(key, view)

	log.FromContext(r.Context()).DebugContext(r.Context(), "View rendered",
		log.FieldOperation, log.OpRender,
		log.FieldRows, view.Records,
		log.FieldFiltered, view.Filtered,
		log.FieldPivot, view.PivotSpec)
	return view, snap, nil
}

// viewErrorStatus maps a renderView error onto a status and a message
// fit for the user.
func viewErrorStatus(err error) (int, string) {
	var pe *ParamError
	var re *analytics.RowError
	switch {
	case errors.As(err, &pe):
		return http.StatusBadRequest, pe.Error()
	case store.IsUnavailable(err):
		return http.StatusServiceUnavailable, noDataNotice
	case errors.As(err, &re):
		return http.StatusServiceUnavailable, "Dati non validi nel database: " + re.Error()
	default:
		return http.StatusInternalServerError, "errore interno"
	}
}

func (s *Server) writeViewError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := viewErrorStatus(err)
	logger := log.FromContext(r.Context())
	if status >= 500 {
		logger.ErrorContext(r.Context(), "View unavailable", log.FieldError, err)
	} else {
		logger.WarnContext(r.Context(), "Invalid view request", log.FieldError, err)
	}
	writeError(w, r, status, msg)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if wantsHTML(r) {
		http.Error(w, msg, status)
		return
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

// wantsHTML reports whether the caller is a browser rather than an API
// client.
func wantsHTML(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		return true
	}
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded")
}

// returnPath is the local page a browser form asked to go back to.
func returnPath(r *http.Request) string {
	p := r.FormValue("return")
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.Contains(p, "\\") {
		return "/"
	}
	return p
}
