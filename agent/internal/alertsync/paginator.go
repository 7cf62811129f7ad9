package alertsync

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/vladvasiliu/opsgenie-desktop/agent/internal/metrics"
	"github.com/vladvasiliu/opsgenie-desktop/agent/internal/opsgenie"
)

// DefaultPageDelay is the pause between two consecutive page requests.
const DefaultPageDelay = time.Second

// Lister is the subset of the OpsGenie client the paginator needs.
type Lister interface {
	ListAlerts(ctx context.Context, req opsgenie.ListRequest) (*opsgenie.ListResponse, error)
}

// FetchError reports a page request that failed and aborted the fetch.
type FetchError struct {
	Offset int
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("alertsync: fetch page at offset %d: %v", e.Offset, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Paginator walks the list endpoint until it is exhausted.
type Paginator struct {
	lister  Lister
	limit   atomic.Int64
	delay   time.Duration
	sleep   func(time.Duration)
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewPaginator returns a Paginator requesting limit alerts per page.
// A nil logger uses slog.Default; m may be nil.
func NewPaginator(lister Lister, limit int, delay time.Duration, m *metrics.Metrics, logger *slog.Logger) *Paginator {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Paginator{
		lister:  lister,
		delay:   delay,
		sleep:   time.Sleep,
		metrics: m,
		logger:  logger,
	}
	p.limit.Store(int64(limit))
	return p
}

// SetLimit changes the page size starting with the next Fetch.
func (p *Paginator) SetLimit(limit int) {
	p.limit.Store(int64(limit))
}

// Fetch returns every alert matching query, in the order the pages were
// served. The inter-page delay is a plain sleep and is not shortened by ctx.
func (p *Paginator) Fetch(ctx context.Context, query string) ([]opsgenie.BaseAlert, error) {
	var (
		batch  []opsgenie.BaseAlert
		offset int
	)
	limit := int(p.limit.Load())
	for {
		resp, err := p.lister.ListAlerts(ctx, opsgenie.ListRequest{
			Query:  query,
			Offset: offset,
			Limit:  limit,
			Sort:   opsgenie.SortCreatedAt,
			Order:  opsgenie.OrderAsc,
		})
		if err != nil {
			return nil, &FetchError{Offset: offset, Err: err}
		}
		if resp == nil {
			resp = &opsgenie.ListResponse{}
		}

		p.metrics.AddPage(len(resp.Data))
		p.logger.DebugContext(ctx, "alertsync: fetched page",
			"offset", offset, "count", len(resp.Data), "has_next", resp.HasNext())

		batch = append(batch, resp.Data...)

		if len(resp.Data) == 0 || !resp.HasNext() {
			return batch, nil
		}

		offset += limit
		p.logger.DebugContext(ctx, "alertsync: waiting before next page", "delay", p.delay)
		p.sleep(p.delay)
	}
}
