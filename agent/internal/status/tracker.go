package status

import (
	"sync"
	"time"

	"github.com/vladvasiliu/opsgenie-desktop/agent/internal/scheduler"
)

// window is the number of recent cycle outcomes kept.
const window = 20

// Health states.
const (
	StateHealthy  = "healthy"
	StateDegraded = "degraded"
	StateCritical = "critical"
	StateUnknown  = "unknown"
)

// Thresholds mapping the success percentage to a state.
const (
	ThresholdHealthy  = 85.0
	ThresholdDegraded = 60.0
)

// Snapshot is a point-in-time copy of the tracker.
type Snapshot struct {
	State         string
	SuccessPct    float64
	Cycles        int
	LastCycleID   string
	LastCycleAt   time.Time
	LastSuccessAt time.Time
	LastError     string
	LastNew       int
	LastSent      int
}

// Tracker records cycle outcomes. Safe for concurrent use.
type Tracker struct {
	mu      sync.RWMutex
	history []bool // newest last
	cycles  int
	last    scheduler.CycleResult
	lastOK  time.Time
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Observe records one finished cycle.
func (t *Tracker) Observe(res scheduler.CycleResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.history) >= window {
		t.history = t.history[1:]
	}
	t.history = append(t.history, res.Err == nil)
	t.cycles++
	t.last = res
	if res.Err == nil {
		t.lastOK = res.Started.Add(res.Duration)
	}
}

// Snapshot returns the current view.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := Snapshot{
		Cycles:        t.cycles,
		LastCycleID:   t.last.ID,
		LastSuccessAt: t.lastOK,
		LastNew:       len(t.last.NewIDs),
		LastSent:      t.last.Report.Sent,
	}
	if t.cycles > 0 {
		s.LastCycleAt = t.last.Started.Add(t.last.Duration)
	}
	if t.last.Err != nil {
		s.LastError = t.last.Err.Error()
	}
	if len(t.history) == 0 {
		s.State = StateUnknown
		return s
	}
	var ok int
	for _, v := range t.history {
		if v {
			ok++
		}
	}
	s.SuccessPct = float64(ok) * 100 / float64(len(t.history))
	s.State = stateFromPct(s.SuccessPct)
	return s
}

// Healthy reports whether the most recent cycle succeeded.
func (t *Tracker) Healthy() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.history) > 0 && t.history[len(t.history)-1]
}

func stateFromPct(pct float64) string {
	switch {
	case pct >= ThresholdHealthy:
		return StateHealthy
	case pct >= ThresholdDegraded:
		return StateDegraded
	default:
		return StateCritical
	}
}
