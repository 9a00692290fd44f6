package syncer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"roster/internal/directory"
	"roster/internal/view"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeLister struct {
	mu    sync.Mutex
	calls int32
	queue [][]directory.Activity
	err   error
	gate  chan struct{} // when set, ListActivities blocks until closed
}

func (f *fakeLister) ListActivities(ctx context.Context) ([]directory.Activity, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	snapshot := f.queue[0]
	if len(f.queue) > 1 {
		f.queue = f.queue[1:]
	}
	return snapshot, nil
}

func snapshot(names ...string) []directory.Activity {
	acts := make([]directory.Activity, 0, len(names))
	for _, n := range names {
		acts = append(acts, directory.Activity{Name: n, MaxParticipants: 10})
	}
	return acts
}

func TestRefreshPopulatesDirectoryAndTree(t *testing.T) {
	dir := directory.New()
	r := view.NewRenderer()
	s := New(&fakeLister{queue: [][]directory.Activity{snapshot("Chess Club", "Gym Class")}}, dir, r)

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	if dir.Len() != 2 {
		t.Errorf("directory not populated: %d activities", dir.Len())
	}
	tree := r.Snapshot()
	if len(tree.Cards) != 2 || tree.LoadFailed {
		t.Errorf("tree not rebuilt: %+v", tree)
	}
	if !s.Loaded() {
		t.Error("syncer should report loaded after a successful pass")
	}
}

func TestFirstLoadFailureShowsPlaceholder(t *testing.T) {
	dir := directory.New()
	r := view.NewRenderer()
	s := New(&fakeLister{err: errors.New("connection refused")}, dir, r)

	if err := s.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}

	if !r.Snapshot().LoadFailed {
		t.Error("first-load failure must render the explicit placeholder")
	}
	if s.Loaded() {
		t.Error("failed first load must not mark the syncer loaded")
	}
}

func TestFailureAfterLoadKeepsPreviousState(t *testing.T) {
	dir := directory.New()
	r := view.NewRenderer()
	lister := &fakeLister{queue: [][]directory.Activity{snapshot("Chess Club")}}
	s := New(lister, dir, r)

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("initial refresh failed: %v", err)
	}

	lister.mu.Lock()
	lister.err = errors.New("server went away")
	lister.mu.Unlock()

	if err := s.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}

	tree := r.Snapshot()
	if tree.LoadFailed {
		t.Error("failure after a successful load must not show the placeholder")
	}
	if len(tree.Cards) != 1 || tree.Cards[0].Name != "Chess Club" {
		t.Errorf("previous tree must stay untouched: %+v", tree)
	}
}

// A response that lost the race to a later refresh must not overwrite
// the newer snapshot already applied.
func TestStaleResponseDropped(t *testing.T) {
	dir := directory.New()
	r := view.NewRenderer()
	lister := &fakeLister{queue: [][]directory.Activity{snapshot("Old Snapshot")}}
	s := New(lister, dir, r)

	// A later refresh has already applied a newer snapshot.
	dir.ReplaceAll(snapshot("Newer Snapshot"))
	r.RenderAll(dir)
	s.mu.Lock()
	s.loaded = true
	s.lastApplied = 5
	s.mu.Unlock()

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	names := dir.Names()
	if len(names) != 1 || names[0] != "Newer Snapshot" {
		t.Errorf("stale response overwrote the directory: %v", names)
	}
	tree := r.Snapshot()
	if len(tree.Cards) != 1 || tree.Cards[0].Name != "Newer Snapshot" {
		t.Errorf("stale response overwrote the tree: %+v", tree)
	}
}

// Overlapping refreshes share one in-flight request instead of racing
// each other's responses.
func TestConcurrentRefreshesCollapse(t *testing.T) {
	dir := directory.New()
	r := view.NewRenderer()
	gate := make(chan struct{})
	lister := &fakeLister{
		queue: [][]directory.Activity{snapshot("Chess Club")},
		gate:  gate,
	}
	s := New(lister, dir, r)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.Refresh(context.Background())
	}()

	// Wait for the first refresh to be in flight, then pile more onto it.
	for atomic.LoadInt32(&lister.calls) == 0 {
		time.Sleep(time.Millisecond)
	}
	const n = 4
	wg.Add(n - 1)
	for i := 0; i < n-1; i++ {
		go func() {
			defer wg.Done()
			_ = s.Refresh(context.Background())
		}()
	}
	time.Sleep(100 * time.Millisecond)
	close(gate)
	wg.Wait()

	if got := atomic.LoadInt32(&lister.calls); got != 1 {
		t.Errorf("expected 1 upstream call for %d concurrent refreshes, got %d", n, got)
	}
	if dir.Len() != 1 {
		t.Errorf("directory should hold the shared snapshot, got %d activities", dir.Len())
	}
}
