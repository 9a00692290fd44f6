// Package syncer fetches the authoritative directory snapshot from the
// server and replaces both the directory and the rendered tree wholesale.
// Overlapping refreshes are collapsed, and a response that lost the race
// to a later refresh is dropped instead of overwriting newer state.
package syncer

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"roster/internal/directory"
	"roster/internal/logging"
	"roster/internal/view"
)

// Lister is the read half of the API client.
type Lister interface {
	ListActivities(ctx context.Context) ([]directory.Activity, error)
}

// Syncer drives full-state reconciliation passes.
type Syncer struct {
	client   Lister
	dir      *directory.Directory
	renderer *view.Renderer

	group singleflight.Group

	mu          sync.Mutex
	loaded      bool
	nextSeq     uint64
	lastApplied uint64
}

// New wires a syncer over the shared directory and renderer.
func New(client Lister, dir *directory.Directory, renderer *view.Renderer) *Syncer {
	return &Syncer{client: client, dir: dir, renderer: renderer}
}

// Refresh performs one reconciliation pass: list activities, replace the
// directory, rebuild the tree. On failure a populated directory is left
// untouched; an unpopulated one gets the explicit failure placeholder.
// Concurrent callers share a single in-flight request.
func (s *Syncer) Refresh(ctx context.Context) error {
	timer := logging.StartTimer(logging.CategorySync, "Refresh")
	defer timer.Stop()

	s.mu.Lock()
	s.nextSeq++
	seq := s.nextSeq
	s.mu.Unlock()

	acts, err, shared := s.fetch(ctx)
	if err != nil {
		s.mu.Lock()
		loaded := s.loaded
		s.mu.Unlock()
		if !loaded {
			s.renderer.RenderFailure()
		}
		logging.SyncError("refresh failed (loaded=%v): %v", loaded, err)
		return err
	}
	if shared {
		logging.SyncDebug("refresh piggybacked on in-flight request")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq < s.lastApplied {
		// A later refresh already applied a newer snapshot.
		logging.SyncDebug("dropping stale refresh response (seq %d < %d)", seq, s.lastApplied)
		return nil
	}
	s.lastApplied = seq
	s.loaded = true

	s.dir.ReplaceAll(acts)
	s.renderer.RenderAll(s.dir)
	logging.Sync("refresh applied: %d activities (seq %d, dir v%d)", len(acts), seq, s.dir.Version())
	return nil
}

func (s *Syncer) fetch(ctx context.Context) ([]directory.Activity, error, bool) {
	v, err, shared := s.group.Do("activities", func() (interface{}, error) {
		return s.client.ListActivities(ctx)
	})
	if err != nil {
		return nil, err, shared
	}
	return v.([]directory.Activity), nil, shared
}

// Loaded reports whether at least one refresh has succeeded.
func (s *Syncer) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}
