package alertsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/vladvasiliu/opsgenie-desktop/agent/internal/alert"
	"github.com/vladvasiliu/opsgenie-desktop/agent/internal/opsgenie"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeRemote serves a fixed alert list page by page, like the list endpoint.
type fakeRemote struct {
	alerts   []opsgenie.BaseAlert
	requests []opsgenie.ListRequest
	failAt   int // offset that fails; -1 for never
}

func newFakeRemote(alerts ...opsgenie.BaseAlert) *fakeRemote {
	return &fakeRemote{alerts: alerts, failAt: -1}
}

func (f *fakeRemote) ListAlerts(_ context.Context, req opsgenie.ListRequest) (*opsgenie.ListResponse, error) {
	f.requests = append(f.requests, req)
	if req.Offset == f.failAt {
		return nil, &opsgenie.APIError{StatusCode: 503, Message: "unavailable"}
	}
	resp := &opsgenie.ListResponse{}
	if req.Offset >= len(f.alerts) {
		return resp, nil
	}
	end := min(req.Offset+req.Limit, len(f.alerts))
	resp.Data = slices.Clone(f.alerts[req.Offset:end])
	if end < len(f.alerts) {
		resp.Paging.Next = fmt.Sprintf("/v2/alerts?offset=%d", end)
	}
	return resp, nil
}

func TestQueryWatermark(t *testing.T) {
	t.Run("empty store falls back to history", func(t *testing.T) {
		got := QueryWatermark(alert.NewStore(), 7, baseTime)
		want := baseTime.Add(-7 * 24 * time.Hour)
		if !got.Equal(want) {
			t.Errorf("QueryWatermark() = %v, want %v", got, want)
		}
	})

	t.Run("store without timestamps falls back to history", func(t *testing.T) {
		st := alert.NewStore()
		st.Put(alert.Alert{ID: "a"})
		got := QueryWatermark(st, 2, baseTime)
		if want := baseTime.Add(-48 * time.Hour); !got.Equal(want) {
			t.Errorf("QueryWatermark() = %v, want %v", got, want)
		}
	})

	t.Run("latest update wins", func(t *testing.T) {
		st := alert.NewStore()
		for i, id := range []string{"t2", "t3", "t1"} {
			ts := baseTime.Add(time.Duration([]int{2, 3, 1}[i]) * time.Minute)
			st.Put(alert.Alert{ID: id, UpdatedAt: &ts})
		}
		got := QueryWatermark(st, 7, baseTime.Add(time.Hour))
		if want := baseTime.Add(3 * time.Minute); !got.Equal(want) {
			t.Errorf("QueryWatermark() = %v, want %v", got, want)
		}
	})
}

func TestBuildQuery(t *testing.T) {
	got := BuildQuery(time.Unix(1700000000, 0))
	if want := "status: open OR updatedAt >= 1700000000"; got != want {
		t.Errorf("BuildQuery() = %q, want %q", got, want)
	}
}

func TestPaginator_250RecordsThreePages(t *testing.T) {
	remote := newFakeRemote(makeAlerts(250)...)
	p, sleeps := newTestPaginator(remote, 100)

	batch, err := p.Fetch(context.Background(), "q")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if len(batch) != 250 {
		t.Errorf("len(batch) = %d, want 250", len(batch))
	}
	if len(remote.requests) != 3 {
		t.Fatalf("requests = %d, want 3", len(remote.requests))
	}
	for i, wantOffset := range []int{0, 100, 200} {
		req := remote.requests[i]
		if req.Offset != wantOffset || req.Limit != 100 {
			t.Errorf("request %d: offset=%d limit=%d, want offset=%d limit=100", i, req.Offset, req.Limit, wantOffset)
		}
		if req.Sort != opsgenie.SortCreatedAt || req.Order != opsgenie.OrderAsc {
			t.Errorf("request %d: sort=%q order=%q", i, req.Sort, req.Order)
		}
		if req.Query != "q" {
			t.Errorf("request %d: query=%q", i, req.Query)
		}
	}
	if len(*sleeps) != 2 {
		t.Errorf("sleeps = %d, want 2", len(*sleeps))
	}
	for _, d := range *sleeps {
		if d != DefaultPageDelay {
			t.Errorf("sleep duration = %v, want %v", d, DefaultPageDelay)
		}
	}
	if batch[0].ID != "alert-000" || batch[249].ID != "alert-249" {
		t.Errorf("batch order broken: first=%s last=%s", batch[0].ID, batch[249].ID)
	}
}

func TestPaginator_EmptyPageStops(t *testing.T) {
	// A server that keeps advertising a next page but has no more data.
	lister := listerFunc(func(_ context.Context, req opsgenie.ListRequest) (*opsgenie.ListResponse, error) {
		if req.Offset == 0 {
			return &opsgenie.ListResponse{
				Data:   makeAlerts(2),
				Paging: opsgenie.Paging{Next: "more"},
			}, nil
		}
		return &opsgenie.ListResponse{Paging: opsgenie.Paging{Next: "more"}}, nil
	})
	p, sleeps := newTestPaginator(lister, 2)

	batch, err := p.Fetch(context.Background(), "q")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(batch) != 2 {
		t.Errorf("len(batch) = %d, want 2", len(batch))
	}
	if len(*sleeps) != 1 {
		t.Errorf("sleeps = %d, want 1", len(*sleeps))
	}
}

func TestPaginator_NilResponseIsEmpty(t *testing.T) {
	lister := listerFunc(func(context.Context, opsgenie.ListRequest) (*opsgenie.ListResponse, error) {
		return nil, nil
	})
	p, _ := newTestPaginator(lister, 10)
	batch, err := p.Fetch(context.Background(), "q")
	if err != nil || len(batch) != 0 {
		t.Errorf("Fetch() = %v, %v; want empty, nil", batch, err)
	}
}

func TestPaginator_ErrorAborts(t *testing.T) {
	remote := newFakeRemote(makeAlerts(250)...)
	remote.failAt = 100
	p, _ := newTestPaginator(remote, 100)

	batch, err := p.Fetch(context.Background(), "q")
	if batch != nil {
		t.Errorf("batch = %d records, want nil", len(batch))
	}

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want *FetchError", err)
	}
	if fe.Offset != 100 {
		t.Errorf("FetchError.Offset = %d, want 100", fe.Offset)
	}
	var apiErr *opsgenie.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 503 {
		t.Errorf("FetchError does not unwrap to the API error: %v", err)
	}
	if len(remote.requests) != 2 {
		t.Errorf("requests = %d, want 2 (no retry)", len(remote.requests))
	}
}

func TestPaginator_SleepNotSkippedOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	remote := newFakeRemote(makeAlerts(3)...)
	p, sleeps := newTestPaginator(remote, 1)
	p.sleep = func(d time.Duration) {
		cancel()
		*sleeps = append(*sleeps, d)
	}

	if _, err := p.Fetch(ctx, "q"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(*sleeps) != 2 {
		t.Errorf("sleeps = %d, want 2", len(*sleeps))
	}
}

func TestEngine_SyncReportsNewOnly(t *testing.T) {
	remote := newFakeRemote(makeAlerts(5)...)
	e := newTestEngine(remote, 100)

	first, err := e.Sync(context.Background())
	if err != nil {
		t.Fatalf("first Sync() error = %v", err)
	}
	if len(first) != 5 {
		t.Fatalf("first Sync() new = %d, want 5", len(first))
	}
	want := []string{"alert-000", "alert-001", "alert-002", "alert-003", "alert-004"}
	if !slices.Equal(first, want) {
		t.Errorf("first Sync() = %v, want fetch order %v", first, want)
	}

	second, err := e.Sync(context.Background())
	if err != nil {
		t.Fatalf("second Sync() error = %v", err)
	}
	if len(second) != 0 {
		t.Errorf("second Sync() new = %v, want none", second)
	}
	if e.Store().Len() != 5 {
		t.Errorf("store len = %d, want 5", e.Store().Len())
	}
}

func TestEngine_UpdateWithoutNew(t *testing.T) {
	remote := newFakeRemote(makeAlerts(2)...)
	e := newTestEngine(remote, 100)
	if _, err := e.Sync(context.Background()); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	closed := alert.StatusClosed
	later := baseTime.Add(time.Hour)
	remote.alerts[1].Status = &closed
	remote.alerts[1].UpdatedAt = &later

	got, err := e.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Sync() new = %v, want none", got)
	}
	a, ok := e.Store().Get("alert-001")
	if !ok {
		t.Fatal("alert-001 missing from store")
	}
	if a.Status == nil || *a.Status != alert.StatusClosed {
		t.Errorf("status = %v, want closed", a.Status)
	}
	if a.UpdatedAt == nil || !a.UpdatedAt.Equal(later) {
		t.Errorf("updatedAt = %v, want %v", a.UpdatedAt, later)
	}
}

func TestEngine_QueryUsesWatermark(t *testing.T) {
	remote := newFakeRemote(makeAlerts(3)...)
	e := newTestEngine(remote, 100)

	if _, err := e.Sync(context.Background()); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	wantFirst := BuildQuery(baseTime.Add(-7 * 24 * time.Hour))
	if got := remote.requests[0].Query; got != wantFirst {
		t.Errorf("first query = %q, want %q", got, wantFirst)
	}

	if _, err := e.Sync(context.Background()); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	// makeAlerts gives alert i an UpdatedAt of baseTime - 1h + i minutes.
	wantSecond := BuildQuery(baseTime.Add(-time.Hour + 2*time.Minute))
	if got := remote.requests[len(remote.requests)-1].Query; got != wantSecond {
		t.Errorf("second query = %q, want %q", got, wantSecond)
	}
}

func TestEngine_SettersApplyToNextSync(t *testing.T) {
	remote := newFakeRemote()
	e := newTestEngine(remote, 100)

	e.SetHistoryDays(2)
	e.SetRequestLimit(25)
	if _, err := e.Sync(context.Background()); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	req := remote.requests[0]
	if req.Limit != 25 {
		t.Errorf("limit = %d, want 25", req.Limit)
	}
	if want := BuildQuery(baseTime.Add(-48 * time.Hour)); req.Query != want {
		t.Errorf("query = %q, want %q", req.Query, want)
	}
}

func TestEngine_DuplicateWithinBatchReportedOnce(t *testing.T) {
	alerts := makeAlerts(2)
	alerts = append(alerts, alerts[0])
	e := newTestEngine(newFakeRemote(alerts...), 100)

	got, err := e.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if !slices.Equal(got, []string{"alert-000", "alert-001"}) {
		t.Errorf("Sync() = %v", got)
	}
}

func TestEngine_FetchErrorLeavesStoreUntouched(t *testing.T) {
	remote := newFakeRemote(makeAlerts(150)...)
	remote.failAt = 100
	e := newTestEngine(remote, 100)

	got, err := e.Sync(context.Background())
	if err == nil {
		t.Fatal("Sync() error = nil, want FetchError")
	}
	if got != nil {
		t.Errorf("Sync() new = %v, want nil", got)
	}
	if e.Store().Len() != 0 {
		t.Errorf("store len = %d, want 0", e.Store().Len())
	}
}

func TestEngine_SkipsAlertWithoutID(t *testing.T) {
	alerts := makeAlerts(1)
	alerts = append(alerts, opsgenie.BaseAlert{TinyID: "42"})
	e := newTestEngine(newFakeRemote(alerts...), 100)

	got, err := e.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if len(got) != 1 || e.Store().Len() != 1 {
		t.Errorf("new=%v len=%d, want 1 each", got, e.Store().Len())
	}
}

type listerFunc func(context.Context, opsgenie.ListRequest) (*opsgenie.ListResponse, error)

func (f listerFunc) ListAlerts(ctx context.Context, req opsgenie.ListRequest) (*opsgenie.ListResponse, error) {
	return f(ctx, req)
}

func newTestPaginator(l Lister, limit int) (*Paginator, *[]time.Duration) {
	sleeps := &[]time.Duration{}
	p := NewPaginator(l, limit, DefaultPageDelay, nil, discardLogger())
	p.sleep = func(d time.Duration) { *sleeps = append(*sleeps, d) }
	return p, sleeps
}

func newTestEngine(l Lister, limit int) *Engine {
	e := NewEngine(alert.NewStore(), l, Options{
		HistoryDays:  7,
		RequestLimit: limit,
		Logger:       discardLogger(),
	})
	e.now = func() time.Time { return baseTime }
	e.pager.sleep = func(time.Duration) {}
	return e
}

func makeAlerts(n int) []opsgenie.BaseAlert {
	out := make([]opsgenie.BaseAlert, n)
	for i := range out {
		created := baseTime.Add(-2*time.Hour + time.Duration(i)*time.Minute)
		updated := baseTime.Add(-time.Hour + time.Duration(i)*time.Minute)
		status := alert.StatusOpen
		out[i] = opsgenie.BaseAlert{
			ID:        fmt.Sprintf("alert-%03d", i),
			Status:    &status,
			CreatedAt: &created,
			UpdatedAt: &updated,
		}
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
