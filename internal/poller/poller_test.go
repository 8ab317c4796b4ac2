package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/node-pulse/apcupsd-exporter/internal/apcaccess"
	"github.com/node-pulse/apcupsd-exporter/internal/state"
)

// scriptedFetcher returns its results in order, repeating the last one
type scriptedFetcher struct {
	mu      sync.Mutex
	results []result
	calls   int
}

type result struct {
	snap apcaccess.Snapshot
	err  error
}

func (f *scriptedFetcher) Fetch(ctx context.Context) (apcaccess.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.calls
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	f.calls++
	return f.results[i].snap, f.results[i].err
}

func (f *scriptedFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestPollOnce_Success(t *testing.T) {
	store := state.NewStore()
	f := &scriptedFetcher{results: []result{{snap: apcaccess.Snapshot{"STATUS": "ONLINE"}}}}

	if err := New(f, store, time.Second).PollOnce(context.Background()); err != nil {
		t.Fatalf("PollOnce() failed: %v", err)
	}

	got := store.Load()
	if got == nil || got.Snapshot["STATUS"] != "ONLINE" {
		t.Errorf("store = %+v", got)
	}
}

func TestPollOnce_FailureKeepsPrevious(t *testing.T) {
	store := state.NewStore()
	boom := &apcaccess.IOError{Op: "dial", Addr: "localhost:3551", Err: errors.New("connection refused")}
	f := &scriptedFetcher{results: []result{
		{snap: apcaccess.Snapshot{"STATUS": "ONLINE", "LINEV": "230.0"}},
		{err: boom},
	}}
	p := New(f, store, time.Second)

	if err := p.PollOnce(context.Background()); err != nil {
		t.Fatalf("first PollOnce() failed: %v", err)
	}
	if err := p.PollOnce(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("second PollOnce() = %v, want %v", err, boom)
	}

	got := store.Load()
	if got == nil || got.Snapshot["LINEV"] != "230.0" {
		t.Errorf("previous snapshot lost: %+v", got)
	}
	if h := store.Health(); h.ConsecutiveFailures != 1 || h.TotalFailures != 1 {
		t.Errorf("health = %+v", h)
	}
}

func TestPollOnce_FailureBeforeFirstSuccess(t *testing.T) {
	store := state.NewStore()
	f := &scriptedFetcher{results: []result{{err: errors.New("nope")}}}

	if err := New(f, store, time.Second).PollOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if store.Load() != nil {
		t.Error("store must stay empty")
	}
}

func TestRun_PollsUntilCancelled(t *testing.T) {
	store := state.NewStore()
	f := &scriptedFetcher{results: []result{{snap: apcaccess.Snapshot{"STATUS": "ONLINE"}}}}
	p := New(f, store, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for f.Calls() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("only %d polls in 2s", f.Calls())
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	if store.Load() == nil {
		t.Error("store never populated")
	}
}

func TestRun_DoesNotPollImmediately(t *testing.T) {
	f := &scriptedFetcher{results: []result{{snap: apcaccess.Snapshot{}}}}
	p := New(f, state.NewStore(), time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	p.Run(ctx)

	if f.Calls() != 0 {
		t.Errorf("Run() polled %d times before the first tick", f.Calls())
	}
}
