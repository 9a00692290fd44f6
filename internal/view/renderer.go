package view

import (
	"sync"

	"roster/internal/directory"
	"roster/internal/logging"
)

// Renderer owns the current view tree. RenderAll replaces it wholesale
// from directory state; the two patch operations update it in place for
// the single-add and single-remove hot paths. The tree is derived,
// disposable state: any full render discards whatever patches produced.
type Renderer struct {
	mu   sync.RWMutex
	tree Tree
}

// NewRenderer returns a renderer with an empty tree.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// RenderAll rebuilds the entire tree from the directory: one card per
// activity in directory order. Old nodes are discarded, not diffed. This
// is the convergence point after every sync pass.
func (r *Renderer) RenderAll(dir *directory.Directory) {
	acts := dir.List()

	tree := Tree{
		Cards: make([]Card, 0, len(acts)),
		Names: make([]string, 0, len(acts)),
	}
	for _, act := range acts {
		tree.Cards = append(tree.Cards, project(act))
		tree.Names = append(tree.Names, act.Name)
	}

	r.mu.Lock()
	r.tree = tree
	r.mu.Unlock()
	logging.View("full render: %d cards", len(tree.Cards))
}

// RenderFailure installs the explicit first-load failure placeholder.
func (r *Renderer) RenderFailure() {
	r.mu.Lock()
	r.tree = Tree{LoadFailed: true}
	r.mu.Unlock()
	logging.View("rendered load-failure placeholder")
}

// PatchParticipantAdded appends one row to the matching card and
// decrements its displayed spots-left counter, clamped at zero. An empty
// participants subtree switches to the list representation. Unlike the
// directory's add, a renderer patch always inserts a row; idempotence
// lives in the directory. Unknown activities are a silent no-op.
func (r *Renderer) PatchParticipantAdded(activityName, email string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	card := r.tree.card(activityName)
	if card == nil {
		logging.ViewDebug("add patch dropped: no card for %q", activityName)
		return
	}

	card.Participants.Empty = false
	card.Participants.Rows = append(card.Participants.Rows, Row{
		Activity: activityName,
		Email:    email,
	})
	if card.SpotsLeft > 0 {
		card.SpotsLeft--
	}
	logging.ViewDebug("add patch: %q on %q", email, activityName)
}

// PatchParticipantRemoved deletes the first row matching the email from
// the matching card and increments its spots-left counter, capped at
// capacity. A subtree emptied by the removal switches to the empty-state
// marker. A missing row means the view was already reconciled away by a
// concurrent refresh; that is absorbed as a silent no-op.
func (r *Renderer) PatchParticipantRemoved(activityName, email string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	card := r.tree.card(activityName)
	if card == nil {
		logging.ViewDebug("remove patch dropped: no card for %q", activityName)
		return
	}

	rows := card.Participants.Rows
	idx := -1
	for i, row := range rows {
		if row.Email == email {
			idx = i
			break
		}
	}
	if idx < 0 {
		logging.ViewDebug("remove patch dropped: no row for %q on %q", email, activityName)
		return
	}

	card.Participants.Rows = append(rows[:idx], rows[idx+1:]...)
	if len(card.Participants.Rows) == 0 {
		card.Participants = ParticipantList{Empty: true}
	}
	if card.SpotsLeft < card.MaxParticipants {
		card.SpotsLeft++
	}
	logging.ViewDebug("remove patch: %q off %q", email, activityName)
}

// Snapshot returns a deep copy of the current tree for presentation and
// inspection. Mutating the copy never affects the renderer.
func (r *Renderer) Snapshot() Tree {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tree.clone()
}
