package metrics

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestMetrics_TextRoundTrip(t *testing.T) {
	m := New()
	m.AddPage(100)
	m.AddPage(50)
	m.AddNew(3)
	m.SetKnown(150)
	m.SetWatermark(baseTime)
	m.ObserveCycle(CycleOK, 1500*time.Millisecond, baseTime)
	m.ObserveCycle(CycleError, time.Second, baseTime.Add(time.Minute))
	m.IncNotification(OutcomeSent, "critical")
	m.IncNotification(OutcomeSent, "critical")
	m.IncNotification(OutcomeFiltered, "")

	var buf bytes.Buffer
	if err := m.WriteText(&buf); err != nil {
		t.Fatalf("WriteText() error = %v", err)
	}

	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(&buf)
	if err != nil {
		t.Fatalf("parse exposition: %v", err)
	}

	checks := []struct {
		name string
		want float64
	}{
		{"opsgenie_agent_pages_total", 2},
		{"opsgenie_agent_alerts_fetched_total", 150},
		{"opsgenie_agent_alerts_new_total", 3},
		{"opsgenie_agent_alerts_known", 150},
		{"opsgenie_agent_watermark_timestamp_seconds", float64(baseTime.Unix())},
		{"opsgenie_agent_last_success_timestamp_seconds", float64(baseTime.Unix())},
		{"opsgenie_agent_last_cycle_duration_seconds", 1},
	}
	for _, c := range checks {
		mf, ok := mfs[c.name]
		if !ok {
			t.Errorf("%s missing from output", c.name)
			continue
		}
		if got := value(mf.GetMetric()[0]); got != c.want {
			t.Errorf("%s = %v, want %v", c.name, got, c.want)
		}
	}

	cycles := mfs["opsgenie_agent_cycles_total"]
	if cycles == nil || len(cycles.GetMetric()) != 2 {
		t.Fatalf("cycles_total: got %v", cycles)
	}

	notif := mfs["opsgenie_agent_notifications_total"]
	if notif == nil {
		t.Fatal("notifications_total missing")
	}
	var sentCritical float64
	for _, metric := range notif.GetMetric() {
		if labelValue(metric, "outcome") == OutcomeSent && labelValue(metric, "urgency") == "critical" {
			sentCritical = metric.GetCounter().GetValue()
		}
	}
	if sentCritical != 2 {
		t.Errorf("sent/critical = %v, want 2", sentCritical)
	}
}

func TestMetrics_OptionalGaugesAbsentUntilSet(t *testing.T) {
	names := map[string]bool{}
	for _, mf := range New().Gather() {
		names[mf.GetName()] = true
	}
	for _, n := range []string{
		"opsgenie_agent_watermark_timestamp_seconds",
		"opsgenie_agent_last_success_timestamp_seconds",
		"opsgenie_agent_cycles_total",
	} {
		if names[n] {
			t.Errorf("%s present before any observation", n)
		}
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.AddPage(1)
	m.AddNew(1)
	m.SetKnown(1)
	m.SetWatermark(baseTime)
	m.ObserveCycle(CycleOK, time.Second, baseTime)
	m.IncNotification(OutcomeSent, "low")
	if got := m.Gather(); got != nil {
		t.Errorf("Gather() on nil = %v, want nil", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.SetKnown(7)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "opsgenie_agent_alerts_known 7") {
		t.Errorf("body missing known gauge:\n%s", rec.Body.String())
	}
}

func value(m *dto.Metric) float64 {
	switch {
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	case m.Untyped != nil:
		return m.Untyped.GetValue()
	}
	return 0
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
