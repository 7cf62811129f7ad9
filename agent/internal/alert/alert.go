package alert

import (
	"slices"
	"time"
)

// Status values reported by OpsGenie.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// Alert is one OpsGenie alert as last retrieved.
type Alert struct {
	ID string `json:"id"`

	// TinyID and Alias are display-only short identifiers; empty means absent.
	TinyID string `json:"tiny_id,omitempty"`
	Alias  string `json:"alias,omitempty"`

	Message      *string    `json:"message,omitempty"`
	Status       *string    `json:"status,omitempty"`
	Acknowledged *bool      `json:"acknowledged,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`

	// Priority is expected to be one of P1..P5 but may be anything or nil.
	Priority *string `json:"priority,omitempty"`
}

// IsOpen reports whether the alert is known to be open.
func (a Alert) IsOpen() bool {
	return a.Status != nil && *a.Status == StatusOpen
}

// IsUnacknowledged reports whether the alert is known not to be acknowledged.
// An alert without an acknowledged flag is not considered unacknowledged.
func (a Alert) IsUnacknowledged() bool {
	return a.Acknowledged != nil && !*a.Acknowledged
}

// HasTag reports whether tag is among the alert's tags.
func (a Alert) HasTag(tag string) bool {
	return slices.Contains(a.Tags, tag)
}

// clone returns a deep copy so callers cannot mutate stored records.
func (a Alert) clone() Alert {
	out := a
	if a.Message != nil {
		out.Message = ptr(*a.Message)
	}
	if a.Status != nil {
		out.Status = ptr(*a.Status)
	}
	if a.Acknowledged != nil {
		out.Acknowledged = ptr(*a.Acknowledged)
	}
	if a.Priority != nil {
		out.Priority = ptr(*a.Priority)
	}
	if a.CreatedAt != nil {
		out.CreatedAt = ptr(*a.CreatedAt)
	}
	if a.UpdatedAt != nil {
		out.UpdatedAt = ptr(*a.UpdatedAt)
	}
	if a.Tags != nil {
		out.Tags = slices.Clone(a.Tags)
	}
	return out
}

func ptr[T any](v T) *T { return &v }
