package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"card/internal/api"
	"card/internal/core"
	"card/internal/ui"
)

type countingObserver struct {
	mu        sync.Mutex
	completed map[string]int
	coalesced map[string]int
	kinds     []api.Kind
}

func newCountingObserver() *countingObserver {
	return &countingObserver{completed: map[string]int{}, coalesced: map[string]int{}}
}

func (o *countingObserver) FetchCompleted(op string, kind api.Kind, err error, d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completed[op]++
	o.kinds = append(o.kinds, kind)
}

func (o *countingObserver) FetchCoalesced(op string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.coalesced[op]++
}

func startLoop(t *testing.T) *ui.Loop {
	t.Helper()
	l := ui.NewLoop(nil)
	l.Start(context.Background())
	t.Cleanup(l.Stop)
	return l
}

func await(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(3 * time.Second):
		t.Fatalf("trigger did not complete")
	}
}

// upstream serves fixed bodies for both endpoints; bodies can be swapped between calls.
type upstream struct {
	mu      sync.Mutex
	summary string
	usages  string
	hits    atomic.Int32
}

func (u *upstream) set(summary, usages string) {
	u.mu.Lock()
	u.summary, u.usages = summary, usages
	u.mu.Unlock()
}

func (u *upstream) server(t *testing.T) *api.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.hits.Add(1)
		u.mu.Lock()
		defer u.mu.Unlock()
		switch r.URL.Path {
		case api.SummaryPath:
			_, _ = w.Write([]byte(u.summary))
		case api.UsagesPath:
			_, _ = w.Write([]byte(u.usages))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return api.NewClient(srv.URL, time.Second)
}

func TestSummaryFormatsTotal(t *testing.T) {
	up := &upstream{}
	up.set(`{"data": 123456}`, `[]`)
	obs := newCountingObserver()
	f := NewSummaryFetcher(context.Background(), startLoop(t), up.server(t), nil, obs)

	if got := f.Store().Snapshot().Display; got != SummaryPlaceholder {
		t.Fatalf("initial display = %q", got)
	}
	await(t, f.Trigger())

	st := f.Store().Snapshot()
	if st.Display != "₩123,456" || !st.OK || st.Total != 123456 {
		t.Fatalf("unexpected state %+v", st)
	}
	if obs.completed["fetch_summary"] != 1 {
		t.Fatalf("expected one completed fetch, got %v", obs.completed)
	}
}

func TestSummaryNonJSONSetsError(t *testing.T) {
	up := &upstream{}
	up.set(`this is not json`, `[]`)
	f := NewSummaryFetcher(context.Background(), startLoop(t), up.server(t), nil, nil)

	await(t, f.Trigger())

	st := f.Store().Snapshot()
	if st.Display == "" || st.Display == SummaryPlaceholder || st.OK {
		t.Fatalf("expected an error message, got %+v", st)
	}
}

func TestSummaryMissingDataShowsNoData(t *testing.T) {
	up := &upstream{}
	up.set(`{"other": 1}`, `[]`)
	f := NewSummaryFetcher(context.Background(), startLoop(t), up.server(t), nil, nil)

	await(t, f.Trigger())
	if got := f.Store().Snapshot().Display; got != NoDataMessage {
		t.Fatalf("display = %q, want %q", got, NoDataMessage)
	}
}

func TestListEmptyArray(t *testing.T) {
	up := &upstream{}
	up.set(`{"data": 1}`, `[]`)
	f := NewListFetcher(context.Background(), startLoop(t), up.server(t), nil, nil)

	await(t, f.Trigger())

	st := f.Store().Snapshot()
	if len(st.Usages) != 0 || st.Loading || st.Err != "" {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestListMalformedKeepsPreviousList(t *testing.T) {
	up := &upstream{}
	up.set(`{"data": 1}`, `[{"id":1,"confirmType":"승인","date":"2024.08.01","time":"10:00","fee":1000,"place":"카페"}]`)
	f := NewListFetcher(context.Background(), startLoop(t), up.server(t), nil, nil)

	await(t, f.Trigger())
	if st := f.Store().Snapshot(); len(st.Usages) != 1 || st.Err != "" {
		t.Fatalf("unexpected state after first fetch %+v", st)
	}

	up.set(`{"data": 1}`, `[{"id":2,"confirmType":`)
	await(t, f.Trigger())

	st := f.Store().Snapshot()
	if st.Loading {
		t.Fatalf("loading should be false after failure")
	}
	if st.Err == "" {
		t.Fatalf("expected error message")
	}
	if len(st.Usages) != 1 || st.Usages[0].Place != "카페" {
		t.Fatalf("previous list not kept: %+v", st.Usages)
	}

	up.set(`{"data": 1}`, `[]`)
	await(t, f.Trigger())
	if st := f.Store().Snapshot(); st.Err != "" || len(st.Usages) != 0 {
		t.Fatalf("success should clear error and replace list: %+v", st)
	}
}

func TestListLoadingTransitions(t *testing.T) {
	up := &upstream{}
	up.set(`{"data": 1}`, `[]`)
	loop := startLoop(t)
	f := NewListFetcher(context.Background(), loop, up.server(t), nil, nil)

	var mu sync.Mutex
	var loading []bool
	f.Store().Subscribe(func(s ListState) {
		mu.Lock()
		loading = append(loading, s.Loading)
		mu.Unlock()
	})

	await(t, f.Trigger())

	mu.Lock()
	defer mu.Unlock()
	if len(loading) != 2 || !loading[0] || loading[1] {
		t.Fatalf("expected loading true then false, got %v", loading)
	}
}

// blockingLister holds every call until release is closed.
type blockingLister struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (b *blockingLister) ListUsages(ctx context.Context) ([]core.UsageRecord, error) {
	if b.calls.Add(1) == 1 {
		close(b.entered)
	}
	<-b.release
	return []core.UsageRecord{{ID: 1, ConfirmType: "승인", Place: "A", Fee: 1}}, nil
}

// Two triggers while a request is in flight: the second joins the first,
// only one upstream call is made and both callers complete with the same result.
func TestListConcurrentTriggersCoalesce(t *testing.T) {
	lister := &blockingLister{entered: make(chan struct{}), release: make(chan struct{})}
	obs := newCountingObserver()
	f := NewListFetcher(context.Background(), startLoop(t), lister, nil, obs)

	first := f.Trigger()
	<-lister.entered
	second := f.Trigger()
	close(lister.release)

	await(t, first)
	await(t, second)

	if n := lister.calls.Load(); n != 1 {
		t.Fatalf("expected one upstream call, got %d", n)
	}
	if st := f.Store().Snapshot(); len(st.Usages) != 1 || st.Loading {
		t.Fatalf("unexpected state %+v", st)
	}
	obs.mu.Lock()
	defer obs.mu.Unlock()
	if obs.coalesced["fetch_usages"] != 1 {
		t.Fatalf("expected one coalesced trigger, got %v", obs.coalesced)
	}
}

func TestSequentialTriggersFetchAgain(t *testing.T) {
	up := &upstream{}
	up.set(`{"data": 1}`, `[]`)
	client := up.server(t)
	f := NewSummaryFetcher(context.Background(), startLoop(t), client, nil, nil)

	await(t, f.Trigger())
	up.set(`{"data": 2000}`, `[]`)
	await(t, f.Trigger())

	if got := f.Store().Snapshot().Display; got != "₩2,000" {
		t.Fatalf("display = %q", got)
	}
	if up.hits.Load() != 2 {
		t.Fatalf("expected two upstream hits, got %d", up.hits.Load())
	}
}

func TestLeavingScreenDoesNotCancel(t *testing.T) {
	lister := &blockingLister{entered: make(chan struct{}), release: make(chan struct{})}
	f := NewListFetcher(context.Background(), startLoop(t), lister, nil, nil)

	done := f.Trigger()
	<-lister.entered
	// Nothing a visitor does can cancel the request; it completes once upstream answers.
	close(lister.release)
	await(t, done)
	if len(f.Store().Snapshot().Usages) != 1 {
		t.Fatalf("in-flight fetch result was not applied")
	}
}
