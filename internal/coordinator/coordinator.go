// Package coordinator orchestrates user-initiated signups and
// unregistrations: call the API, apply the confirmed mutation locally,
// post the status message, and (for signup only) kick off a background
// reconciliation refresh. Every failure path leaves prior state intact
// and returns the machine to idle.
package coordinator

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"roster/internal/directory"
	"roster/internal/logging"
	"roster/internal/notify"
	"roster/internal/view"
)

// Fallback messages shown when the server provides no detail or the
// request never completed.
const (
	genericErrorMsg     = "An error occurred"
	signupTransportMsg  = "Failed to sign up. Please try again."
	unregisterTransport = "Failed to unregister. Please try again."
)

// API is the mutating half of the service client.
type API interface {
	Signup(ctx context.Context, activity, email string) (string, error)
	Unregister(ctx context.Context, activity, email string) (string, error)
}

// Refresher triggers a background reconciliation pass.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Outcome reports one completed action to the caller. Message is the
// user-facing text already posted to the notification channel.
type Outcome struct {
	OK      bool
	Message string
}

// Coordinator runs one state machine per user action. Concurrent actions
// on different participants or activities are independent; there is no
// global mutual exclusion.
type Coordinator struct {
	api       API
	dir       *directory.Directory
	renderer  *view.Renderer
	notes     *notify.Channel
	refresher Refresher

	background sync.WaitGroup
}

// New wires a coordinator over the shared state.
func New(api API, dir *directory.Directory, renderer *view.Renderer, notes *notify.Channel, refresher Refresher) *Coordinator {
	return &Coordinator{
		api:       api,
		dir:       dir,
		renderer:  renderer,
		notes:     notes,
		refresher: refresher,
	}
}

// applyOptimisticSignup commits the confirmed signup locally: directory
// delta first, then the renderer patch, so the renderer always reflects
// directory state that has already been committed.
func (c *Coordinator) applyOptimisticSignup(activity, email string) {
	c.dir.ApplyParticipantDelta(activity, email, directory.DeltaAdd)
	c.renderer.PatchParticipantAdded(activity, email)
}

// Signup registers the email with the server and, on success, applies
// the optimistic local update, posts the server's message and triggers a
// background refresh to reconcile any drift. Failures post an error and
// mutate nothing.
func (c *Coordinator) Signup(ctx context.Context, activity, email string) Outcome {
	actionID := uuid.New().String()[:8]
	logging.Mutate("[%s] signup %q -> %q", actionID, email, activity)

	message, err := c.api.Signup(ctx, activity, email)
	if err != nil {
		text := rejectionText(err, signupTransportMsg)
		c.notes.Post(text, notify.KindError)
		logging.Mutate("[%s] signup failed: %v", actionID, err)
		return Outcome{Message: text}
	}

	c.applyOptimisticSignup(activity, email)
	c.notes.Post(message, notify.KindSuccess)

	// Reconcile in the background; the optimistic patch is already
	// visible and this transition does not wait for the refresh.
	c.background.Add(1)
	go func() {
		defer c.background.Done()
		if err := c.refresher.Refresh(context.Background()); err != nil {
			logging.SyncError("[%s] background refresh failed: %v", actionID, err)
		}
	}()

	logging.Mutate("[%s] signup ok", actionID)
	return Outcome{OK: true, Message: message}
}

// Unregister removes the email with the server and, on success, removes
// the row view-first and then from the directory, posting the server's
// message as info. No background refresh is triggered for unregister.
func (c *Coordinator) Unregister(ctx context.Context, activity, email string) Outcome {
	actionID := uuid.New().String()[:8]
	logging.Mutate("[%s] unregister %q from %q", actionID, email, activity)

	message, err := c.api.Unregister(ctx, activity, email)
	if err != nil {
		text := rejectionText(err, unregisterTransport)
		c.notes.Post(text, notify.KindError)
		logging.Mutate("[%s] unregister failed: %v", actionID, err)
		return Outcome{Message: text}
	}

	c.renderer.PatchParticipantRemoved(activity, email)
	c.dir.ApplyParticipantDelta(activity, email, directory.DeltaRemove)
	c.notes.Post(message, notify.KindInfo)

	logging.Mutate("[%s] unregister ok", actionID)
	return Outcome{OK: true, Message: message}
}

// Wait blocks until all background refreshes have completed. Used at
// shutdown and in tests.
func (c *Coordinator) Wait() {
	c.background.Wait()
}

// detailer is implemented by the API client's rejection error.
type detailer interface {
	error
	RejectionDetail() string
}

// rejectionText picks the user-facing text for a failed call: the
// server's detail when one was provided, the generic fallback for an
// empty detail, and the transport message when the request never
// completed.
func rejectionText(err error, transportMsg string) string {
	var rej detailer
	if errors.As(err, &rej) {
		if d := rej.RejectionDetail(); d != "" {
			return d
		}
		return genericErrorMsg
	}
	return transportMsg
}
