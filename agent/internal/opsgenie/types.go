package opsgenie

import "time"

// Sort orders understood by the list endpoint.
const (
	SortCreatedAt = "createdAt"
	OrderAsc      = "asc"
	OrderDesc     = "desc"
)

// ListRequest holds the parameters of one list call.
type ListRequest struct {
	Query  string
	Offset int
	Limit  int
	Sort   string
	Order  string
}

// ListResponse is one decoded page of the list endpoint.
type ListResponse struct {
	Data   []BaseAlert `json:"data"`
	Paging Paging      `json:"paging"`
	Took   float64     `json:"took"`
}

// HasNext reports whether the server advertised a further page.
func (r *ListResponse) HasNext() bool {
	return r != nil && r.Paging.Next != ""
}

// Paging carries the page links returned with a list response.
type Paging struct {
	Next  string `json:"next,omitempty"`
	First string `json:"first,omitempty"`
	Last  string `json:"last,omitempty"`
}

// BaseAlert is an alert as returned by the list endpoint. Every field other
// than ID may be missing from the payload.
type BaseAlert struct {
	ID           string     `json:"id"`
	TinyID       string     `json:"tinyId,omitempty"`
	Alias        string     `json:"alias,omitempty"`
	Message      *string    `json:"message,omitempty"`
	Status       *string    `json:"status,omitempty"`
	Acknowledged *bool      `json:"acknowledged,omitempty"`
	IsSeen       *bool      `json:"isSeen,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
	Snoozed      *bool      `json:"snoozed,omitempty"`
	Count        int        `json:"count,omitempty"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
	Source       string     `json:"source,omitempty"`
	Owner        string     `json:"owner,omitempty"`
	Priority     *string    `json:"priority,omitempty"`
}
