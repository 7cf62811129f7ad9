package status

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/vladvasiliu/opsgenie-desktop/agent/internal/alert"
	"github.com/vladvasiliu/opsgenie-desktop/agent/internal/metrics"
	"github.com/vladvasiliu/opsgenie-desktop/agent/internal/notify"
)

// Deps are the sources the handler reads from. Store and Tracker are
// required; the rest may be nil.
type Deps struct {
	Store   *alert.Store
	Tracker *Tracker
	Metrics *metrics.Metrics
	Hub     *notify.Hub

	// SchedulerState reports the scheduler lifecycle state.
	SchedulerState func() string
}

// Handler serves the local status API.
type Handler struct {
	deps Deps
	mux  *http.ServeMux
}

// New creates a Handler and registers all routes.
func New(deps Deps) http.Handler {
	h := &Handler{deps: deps, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/alerts", h.listAlerts)
	h.mux.HandleFunc("/api/v1/alerts/", h.getAlert) // subtree, extracts {id}
	if deps.Metrics != nil {
		h.mux.Handle("/metrics", deps.Metrics.Handler())
	}
	if deps.Hub != nil {
		h.mux.Handle("/ws/notifications", deps.Hub)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// health returns GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	snap := h.deps.Tracker.Snapshot()
	resp := HealthResponse{
		State:         snap.State,
		SuccessPct:    snap.SuccessPct,
		Cycles:        snap.Cycles,
		LastCycleID:   snap.LastCycleID,
		LastCycleAt:   formatTime(snap.LastCycleAt),
		LastSuccessAt: formatTime(snap.LastSuccessAt),
		LastError:     snap.LastError,
		KnownAlerts:   h.deps.Store.Len(),
		OpenAlerts:    len(h.deps.Store.List(alert.Alert.IsOpen)),
	}
	if h.deps.SchedulerState != nil {
		resp.SchedulerState = h.deps.SchedulerState()
	}
	if h.deps.Hub != nil {
		resp.WSClients = h.deps.Hub.Count()
	}
	jsonResp(w, http.StatusOK, resp)
}

// listAlerts returns GET /api/v1/alerts, optionally filtered by
// ?status=<value> and ?unacknowledged=true.
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	status := r.URL.Query().Get("status")
	unacked := r.URL.Query().Get("unacknowledged") == "true"

	alerts := h.deps.Store.List(func(a alert.Alert) bool {
		if status != "" && (a.Status == nil || *a.Status != status) {
			return false
		}
		return !unacked || a.IsUnacknowledged()
	})
	out := make([]AlertResponse, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, toAlertResponse(a))
	}
	jsonResp(w, http.StatusOK, out)
}

// getAlert returns GET /api/v1/alerts/{id}.
func (h *Handler) getAlert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/alerts/")
	if id == "" {
		h.listAlerts(w, r)
		return
	}

	a, ok := h.deps.Store.Get(id)
	if !ok {
		jsonErr(w, http.StatusNotFound, "alert not found")
		return
	}
	jsonResp(w, http.StatusOK, toAlertResponse(a))
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
