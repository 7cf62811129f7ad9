package alertsync

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/vladvasiliu/opsgenie-desktop/agent/internal/alert"
	"github.com/vladvasiliu/opsgenie-desktop/agent/internal/metrics"
	"github.com/vladvasiliu/opsgenie-desktop/agent/internal/opsgenie"
)

// Options configures an Engine.
type Options struct {
	// HistoryDays is how far back the first query reaches.
	HistoryDays int

	// RequestLimit is the page size.
	RequestLimit int

	// PageDelay defaults to DefaultPageDelay when zero.
	PageDelay time.Duration

	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Engine merges remote alert state into a Store.
//
// Sync must not be called concurrently; the store may be read elsewhere.
type Engine struct {
	store       *alert.Store
	pager       *Paginator
	historyDays atomic.Int64
	now         func() time.Time
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// NewEngine returns an Engine that writes into store using lister.
func NewEngine(store *alert.Store, lister Lister, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	delay := opts.PageDelay
	if delay == 0 {
		delay = DefaultPageDelay
	}
	e := &Engine{
		store:   store,
		pager:   NewPaginator(lister, opts.RequestLimit, delay, opts.Metrics, logger),
		now:     time.Now,
		metrics: opts.Metrics,
		logger:  logger,
	}
	e.historyDays.Store(int64(opts.HistoryDays))
	return e
}

// Store returns the store the engine writes to.
func (e *Engine) Store() *alert.Store { return e.store }

// SetHistoryDays changes the fallback window used while the store has no
// timestamps. It takes effect on the next Sync.
func (e *Engine) SetHistoryDays(days int) { e.historyDays.Store(int64(days)) }

// SetRequestLimit changes the page size. It takes effect on the next Sync.
func (e *Engine) SetRequestLimit(limit int) { e.pager.SetLimit(limit) }

// Sync fetches alerts changed since the watermark, merges them into the store
// and returns the IDs that were not known before, in fetch order.
//
// On error the store is left untouched.
func (e *Engine) Sync(ctx context.Context) ([]string, error) {
	watermark := QueryWatermark(e.store, int(e.historyDays.Load()), e.now())
	query := BuildQuery(watermark)
	e.metrics.SetWatermark(watermark)
	e.logger.DebugContext(ctx, "alertsync: querying", "query", query, "watermark", watermark.UTC())

	batch, err := e.pager.Fetch(ctx, query)
	if err != nil {
		return nil, err
	}

	var newIDs []string
	seen := make(map[string]struct{}, len(batch))
	for _, remote := range batch {
		if remote.ID == "" {
			e.logger.WarnContext(ctx, "alertsync: dropping alert without id", "tiny_id", remote.TinyID)
			continue
		}
		existed := e.store.Put(toAlert(remote))
		if _, dup := seen[remote.ID]; dup {
			continue
		}
		seen[remote.ID] = struct{}{}
		if !existed {
			newIDs = append(newIDs, remote.ID)
		}
	}

	e.metrics.AddNew(len(newIDs))
	e.metrics.SetKnown(e.store.Len())
	e.logger.DebugContext(ctx, "alertsync: merged batch",
		"fetched", len(batch), "new", len(newIDs), "known", e.store.Len())
	return newIDs, nil
}

// toAlert converts a wire alert into the stored model.
func toAlert(b opsgenie.BaseAlert) alert.Alert {
	a := alert.Alert{
		ID:           b.ID,
		TinyID:       b.TinyID,
		Alias:        b.Alias,
		Message:      b.Message,
		Status:       b.Status,
		Acknowledged: b.Acknowledged,
		Tags:         b.Tags,
		Priority:     b.Priority,
	}
	if b.CreatedAt != nil {
		t := b.CreatedAt.UTC()
		a.CreatedAt = &t
	}
	if b.UpdatedAt != nil {
		t := b.UpdatedAt.UTC()
		a.UpdatedAt = &t
	}
	return a
}
