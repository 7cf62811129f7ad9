package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/vladvasiliu/opsgenie-desktop/agent/internal/alert"
	"github.com/vladvasiliu/opsgenie-desktop/agent/internal/metrics"
)

// Report summarises one Dispatch call.
type Report struct {
	Sent      int
	Filtered  int
	Malformed int
	Failed    int
	Missing   int
}

// Total returns the number of IDs the report accounts for.
func (r Report) Total() int {
	return r.Sent + r.Filtered + r.Malformed + r.Failed + r.Missing
}

// Dispatcher sends notifications for newly observed alerts.
type Dispatcher struct {
	store   *alert.Store
	sink    Sink
	now     func() time.Time
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewDispatcher returns a Dispatcher reading alerts from store and sending
// to sink. m may be nil; a nil logger uses slog.Default.
func NewDispatcher(store *alert.Store, sink Sink, m *metrics.Metrics, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		store:   store,
		sink:    sink,
		now:     time.Now,
		metrics: m,
		logger:  logger,
	}
}

// Qualifies reports whether a should be notified: open and explicitly
// unacknowledged. Alerts missing either field do not qualify.
func Qualifies(a alert.Alert) bool {
	return a.IsUnacknowledged() && a.IsOpen()
}

// Dispatch notifies every qualifying alert among ids. It never stops early:
// sink failures and malformed alerts are logged and counted.
func (d *Dispatcher) Dispatch(ctx context.Context, ids []string) Report {
	var rep Report
	for _, id := range ids {
		a, ok := d.store.Get(id)
		if !ok {
			d.logger.WarnContext(ctx, "notify: alert not in store", "alert_id", id)
			rep.Missing++
			d.metrics.IncNotification(metrics.OutcomeMissing, "")
			continue
		}

		if !Qualifies(a) {
			rep.Filtered++
			d.metrics.IncNotification(metrics.OutcomeFiltered, "")
			continue
		}

		n, err := NewNotification(a, d.now())
		if err != nil {
			d.logger.WarnContext(ctx, "notify: skipping alert", "alert_id", id, "err", err)
			rep.Malformed++
			d.metrics.IncNotification(metrics.OutcomeMalformed, "")
			continue
		}

		if err := d.sink.Notify(ctx, n); err != nil {
			d.logger.ErrorContext(ctx, "notify: delivery failed",
				"alert_id", id, "urgency", n.Urgency.String(), "err", err)
			rep.Failed++
			d.metrics.IncNotification(metrics.OutcomeFailed, n.Urgency.String())
			continue
		}

		d.logger.DebugContext(ctx, "notify: sent", "alert_id", id, "urgency", n.Urgency.String())
		rep.Sent++
		d.metrics.IncNotification(metrics.OutcomeSent, n.Urgency.String())
	}
	return rep
}
