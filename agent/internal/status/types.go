package status

import (
	"time"

	"github.com/vladvasiliu/opsgenie-desktop/agent/internal/alert"
)

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	State          string  `json:"state"`
	SuccessPct     float64 `json:"success_pct"`
	SchedulerState string  `json:"scheduler_state,omitempty"`
	Cycles         int     `json:"cycles"`
	LastCycleID    string  `json:"last_cycle_id,omitempty"`
	LastCycleAt    string  `json:"last_cycle_at,omitempty"`   // RFC3339
	LastSuccessAt  string  `json:"last_success_at,omitempty"` // RFC3339
	LastError      string  `json:"last_error,omitempty"`
	KnownAlerts    int     `json:"known_alerts"`
	OpenAlerts     int     `json:"open_alerts"`
	WSClients      int     `json:"ws_clients"`
}

// AlertResponse is one alert in GET /api/v1/alerts or /api/v1/alerts/{id}.
type AlertResponse struct {
	ID           string   `json:"id"`
	TinyID       string   `json:"tiny_id,omitempty"`
	Alias        string   `json:"alias,omitempty"`
	Message      *string  `json:"message,omitempty"`
	Status       *string  `json:"status,omitempty"`
	Acknowledged *bool    `json:"acknowledged,omitempty"`
	Priority     *string  `json:"priority,omitempty"`
	Tags         []string `json:"tags"`
	CreatedAt    string   `json:"created_at,omitempty"` // RFC3339
	UpdatedAt    string   `json:"updated_at,omitempty"` // RFC3339
}

type errorResponse struct {
	Error string `json:"error"`
}

func toAlertResponse(a alert.Alert) AlertResponse {
	out := AlertResponse{
		ID:           a.ID,
		TinyID:       a.TinyID,
		Alias:        a.Alias,
		Message:      a.Message,
		Status:       a.Status,
		Acknowledged: a.Acknowledged,
		Priority:     a.Priority,
		Tags:         a.Tags,
		CreatedAt:    rfc3339(a.CreatedAt),
		UpdatedAt:    rfc3339(a.UpdatedAt),
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	return out
}

func rfc3339(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
