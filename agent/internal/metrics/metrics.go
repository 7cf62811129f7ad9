package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

const namespace = "opsgenie_agent"

// Cycle results used as the "result" label of the cycles counter.
const (
	CycleOK    = "ok"
	CycleError = "error"
)

// Notification outcomes used as the "outcome" label.
const (
	OutcomeSent      = "sent"
	OutcomeFiltered  = "filtered"
	OutcomeMalformed = "malformed"
	OutcomeFailed    = "failed"
	OutcomeMissing   = "missing"
)

// Metrics accumulates agent counters and gauges.
type Metrics struct {
	mu sync.Mutex

	cycles        map[string]float64
	pages         float64
	fetched       float64
	newAlerts     float64
	notifications map[notifKey]float64

	known          float64
	watermark      float64
	lastDuration   float64
	lastSuccess    float64
	hasWatermark   bool
	hasLastSuccess bool
}

type notifKey struct {
	outcome string
	urgency string
}

// New returns an empty Metrics.
func New() *Metrics {
	return &Metrics{
		cycles:        make(map[string]float64),
		notifications: make(map[notifKey]float64),
	}
}

// ObserveCycle records one finished cycle.
func (m *Metrics) ObserveCycle(result string, took time.Duration, finished time.Time) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles[result]++
	m.lastDuration = took.Seconds()
	if result == CycleOK {
		m.lastSuccess = float64(finished.Unix())
		m.hasLastSuccess = true
	}
}

// AddPage records one page request returning n alerts.
func (m *Metrics) AddPage(n int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages++
	m.fetched += float64(n)
}

// AddNew records n newly observed alerts.
func (m *Metrics) AddNew(n int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.newAlerts += float64(n)
}

// SetKnown sets the number of alerts held in the store.
func (m *Metrics) SetKnown(n int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.known = float64(n)
}

// SetWatermark sets the watermark used by the most recent query.
func (m *Metrics) SetWatermark(t time.Time) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watermark = float64(t.Unix())
	m.hasWatermark = true
}

// IncNotification counts one dispatch decision. urgency may be empty for
// alerts that never reached urgency mapping.
func (m *Metrics) IncNotification(outcome, urgency string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications[notifKey{outcome: outcome, urgency: urgency}]++
}

// Gather returns a snapshot of all metric families, sorted by name.
func (m *Metrics) Gather() []*dto.MetricFamily {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cycles := family("cycles_total", "Sync cycles by result.", dto.MetricType_COUNTER)
	for _, result := range sortedKeys(m.cycles) {
		cycles.Metric = append(cycles.Metric, counter(m.cycles[result], label("result", result)))
	}

	notif := family("notifications_total", "Dispatch decisions by outcome and urgency.", dto.MetricType_COUNTER)
	keys := make([]notifKey, 0, len(m.notifications))
	for k := range m.notifications {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].outcome != keys[j].outcome {
			return keys[i].outcome < keys[j].outcome
		}
		return keys[i].urgency < keys[j].urgency
	})
	for _, k := range keys {
		notif.Metric = append(notif.Metric,
			counter(m.notifications[k], label("outcome", k.outcome), label("urgency", k.urgency)))
	}

	out := []*dto.MetricFamily{
		single("pages_total", "List requests issued against the alert API.", dto.MetricType_COUNTER, m.pages),
		single("alerts_fetched_total", "Alert records received from the alert API.", dto.MetricType_COUNTER, m.fetched),
		single("alerts_new_total", "Alerts observed for the first time.", dto.MetricType_COUNTER, m.newAlerts),
		single("alerts_known", "Alerts currently held in memory.", dto.MetricType_GAUGE, m.known),
		single("last_cycle_duration_seconds", "Duration of the most recent cycle.", dto.MetricType_GAUGE, m.lastDuration),
	}
	if len(cycles.Metric) > 0 {
		out = append(out, cycles)
	}
	if len(notif.Metric) > 0 {
		out = append(out, notif)
	}
	if m.hasWatermark {
		out = append(out, single("watermark_timestamp_seconds", "Watermark of the most recent query.", dto.MetricType_GAUGE, m.watermark))
	}
	if m.hasLastSuccess {
		out = append(out, single("last_success_timestamp_seconds", "Completion time of the last successful cycle.", dto.MetricType_GAUGE, m.lastSuccess))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].GetName() < out[j].GetName() })
	return out
}

// WriteText writes all families to w in the Prometheus text format.
func (m *Metrics) WriteText(w io.Writer) error {
	for _, mf := range m.Gather() {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("metrics: write %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// Handler serves the text exposition.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
		if err := m.WriteText(w); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}

func family(name, help string, typ dto.MetricType) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: ptr(namespace + "_" + name),
		Help: ptr(help),
		Type: typ.Enum(),
	}
}

func single(name, help string, typ dto.MetricType, v float64) *dto.MetricFamily {
	mf := family(name, help, typ)
	if typ == dto.MetricType_COUNTER {
		mf.Metric = []*dto.Metric{counter(v)}
	} else {
		mf.Metric = []*dto.Metric{{Gauge: &dto.Gauge{Value: ptr(v)}}}
	}
	return mf
}

func counter(v float64, labels ...*dto.LabelPair) *dto.Metric {
	return &dto.Metric{Label: labels, Counter: &dto.Counter{Value: ptr(v)}}
}

func label(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: ptr(name), Value: ptr(value)}
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func ptr[T any](v T) *T { return &v }
