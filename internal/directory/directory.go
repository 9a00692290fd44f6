// Package directory holds the in-memory activity directory: the single
// authoritative client-side view of every activity and its participant
// roster. It is replaced wholesale by a sync pass and patched one
// participant at a time by confirmed mutations.
package directory

import (
	"sync"

	"roster/internal/logging"
)

// Activity is one schedulable offering with a capacity and an ordered
// roster of participant emails. Names are unique and case-sensitive.
type Activity struct {
	Name            string
	Description     string
	Schedule        string
	MaxParticipants int
	Participants    []string
}

// SpotsLeft returns capacity minus roster size, clamped to
// [0, MaxParticipants]. The server is authoritative on the true count;
// the clamp is only a floor for locally-applied deltas.
func (a Activity) SpotsLeft() int {
	spots := a.MaxParticipants - len(a.Participants)
	if spots < 0 {
		return 0
	}
	if spots > a.MaxParticipants {
		return a.MaxParticipants
	}
	return spots
}

func (a Activity) clone() Activity {
	c := a
	c.Participants = append([]string(nil), a.Participants...)
	return c
}

// Delta is a single-participant mutation applied to one activity.
type Delta string

const (
	DeltaAdd    Delta = "add"
	DeltaRemove Delta = "remove"
)

// Directory maps activity names to activities and remembers the order in
// which names first appeared in the snapshot, so iteration is stable
// across renders. All access is mutex-guarded; accessors return copies.
type Directory struct {
	mu      sync.RWMutex
	byName  map[string]*Activity
	order   []string
	version uint64
}

// New returns an empty directory. It is populated by the first sync pass.
func New() *Directory {
	return &Directory{byName: make(map[string]*Activity)}
}

// ReplaceAll discards every prior entry and installs the snapshot as the
// new directory contents, preserving the snapshot's order. Activities
// absent from the snapshot are dropped.
func (d *Directory) ReplaceAll(snapshot []Activity) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.byName = make(map[string]*Activity, len(snapshot))
	d.order = d.order[:0]
	for _, act := range snapshot {
		if _, dup := d.byName[act.Name]; dup {
			// Later duplicate wins, order keeps the first position.
			c := act.clone()
			d.byName[act.Name] = &c
			continue
		}
		c := act.clone()
		d.byName[act.Name] = &c
		d.order = append(d.order, act.Name)
	}
	d.version++
	logging.Mutate("directory replaced: %d activities (v%d)", len(d.order), d.version)
}

// ApplyParticipantDelta mutates exactly one activity's roster. Add appends
// the email unless it is already present (duplicate add is a no-op on the
// sequence); remove deletes the first occurrence and is a no-op if absent.
// Unknown activity names are silently ignored; the caller reacts to that
// case if it matters.
func (d *Directory) ApplyParticipantDelta(activityName, email string, op Delta) {
	d.mu.Lock()
	defer d.mu.Unlock()

	act, ok := d.byName[activityName]
	if !ok {
		logging.Mutate("delta %s dropped: unknown activity %q", op, activityName)
		return
	}

	switch op {
	case DeltaAdd:
		for _, p := range act.Participants {
			if p == email {
				d.version++
				return
			}
		}
		act.Participants = append(act.Participants, email)
	case DeltaRemove:
		for i, p := range act.Participants {
			if p == email {
				act.Participants = append(act.Participants[:i], act.Participants[i+1:]...)
				break
			}
		}
	}
	d.version++
	logging.MutateDebug("delta %s applied to %q (v%d)", op, activityName, d.version)
}

// Get returns a copy of the named activity.
func (d *Directory) Get(name string) (Activity, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	act, ok := d.byName[name]
	if !ok {
		return Activity{}, false
	}
	return act.clone(), true
}

// List returns copies of all activities in directory order.
func (d *Directory) List() []Activity {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Activity, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.byName[name].clone())
	}
	return out
}

// Names returns the activity names in directory order.
func (d *Directory) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.order...)
}

// Len reports the number of activities.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.order)
}

// Version returns a monotonic stamp bumped by every mutation. It shows
// up in sync logs so applied refreshes can be correlated with directory
// generations; the stale-response guard itself is the syncer's own
// refresh sequence.
func (d *Directory) Version() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}
