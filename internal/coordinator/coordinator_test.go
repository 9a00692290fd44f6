package coordinator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster/internal/api"
	"roster/internal/directory"
	"roster/internal/notify"
	"roster/internal/view"
)

type fakeAPI struct {
	signupMsg     string
	signupErr     error
	unregisterMsg string
	unregisterErr error
}

func (f *fakeAPI) Signup(ctx context.Context, activity, email string) (string, error) {
	return f.signupMsg, f.signupErr
}

func (f *fakeAPI) Unregister(ctx context.Context, activity, email string) (string, error) {
	return f.unregisterMsg, f.unregisterErr
}

type fakeRefresher struct {
	calls atomic.Int32
}

func (f *fakeRefresher) Refresh(ctx context.Context) error {
	f.calls.Add(1)
	return nil
}

type fixture struct {
	dir       *directory.Directory
	renderer  *view.Renderer
	notes     *notify.Channel
	refresher *fakeRefresher
	coord     *Coordinator
}

func newFixture(t *testing.T, client API) *fixture {
	t.Helper()
	f := &fixture{
		dir:       directory.New(),
		renderer:  view.NewRenderer(),
		notes:     notify.NewChannel(),
		refresher: &fakeRefresher{},
	}
	t.Cleanup(f.notes.Close)
	f.dir.ReplaceAll([]directory.Activity{{
		Name:            "Chess Club",
		Description:     "Learn strategies and compete in chess tournaments",
		Schedule:        "Fridays, 3:30 PM - 5:00 PM",
		MaxParticipants: 10,
		Participants:    []string{"a@x.com"},
	}})
	f.renderer.RenderAll(f.dir)
	f.coord = New(client, f.dir, f.renderer, f.notes, f.refresher)
	return f
}

func TestSignupSuccessAppliesOptimisticUpdate(t *testing.T) {
	f := newFixture(t, &fakeAPI{signupMsg: "Signed up b@x.com for Chess Club"})

	out := f.coord.Signup(context.Background(), "Chess Club", "b@x.com")
	f.coord.Wait()

	require.True(t, out.OK)
	assert.Equal(t, "Signed up b@x.com for Chess Club", out.Message)

	act, ok := f.dir.Get("Chess Club")
	require.True(t, ok)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, act.Participants)
	assert.Equal(t, 8, act.SpotsLeft())

	card := f.renderer.Snapshot().Cards[0]
	assert.Equal(t, 8, card.SpotsLeft)
	require.Len(t, card.Participants.Rows, 2)
	assert.Equal(t, "b@x.com", card.Participants.Rows[1].Email, "new row appended after existing one")

	msg, visible := f.notes.Current()
	require.True(t, visible)
	assert.Equal(t, notify.KindSuccess, msg.Kind)
	assert.Equal(t, "Signed up b@x.com for Chess Club", msg.Text)

	assert.Equal(t, int32(1), f.refresher.calls.Load(), "signup triggers one background refresh")
}

func TestSignupRejectionLeavesStateUntouched(t *testing.T) {
	f := newFixture(t, &fakeAPI{
		signupErr: &api.RejectedError{StatusCode: 400, Detail: "Activity full"},
	})
	dirBefore := f.dir.List()
	treeBefore := f.renderer.Snapshot()

	out := f.coord.Signup(context.Background(), "Chess Club", "b@x.com")
	f.coord.Wait()

	require.False(t, out.OK)
	assert.Equal(t, "Activity full", out.Message)

	if diff := cmp.Diff(dirBefore, f.dir.List()); diff != "" {
		t.Errorf("directory changed on rejection (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff(treeBefore, f.renderer.Snapshot()); diff != "" {
		t.Errorf("tree changed on rejection (-before +after):\n%s", diff)
	}

	msg, visible := f.notes.Current()
	require.True(t, visible)
	assert.Equal(t, notify.KindError, msg.Kind)
	assert.Equal(t, "Activity full", msg.Text)

	assert.Zero(t, f.refresher.calls.Load(), "no refresh on failure")
}

func TestSignupRejectionWithoutDetailFallsBack(t *testing.T) {
	f := newFixture(t, &fakeAPI{
		signupErr: &api.RejectedError{StatusCode: 500},
	})

	out := f.coord.Signup(context.Background(), "Chess Club", "b@x.com")

	assert.Equal(t, "An error occurred", out.Message)
	msg, _ := f.notes.Current()
	assert.Equal(t, "An error occurred", msg.Text)
}

func TestSignupTransportFailure(t *testing.T) {
	f := newFixture(t, &fakeAPI{signupErr: errors.New("dial tcp: connection refused")})
	treeBefore := f.renderer.Snapshot()

	out := f.coord.Signup(context.Background(), "Chess Club", "b@x.com")

	require.False(t, out.OK)
	assert.Equal(t, "Failed to sign up. Please try again.", out.Message)
	if diff := cmp.Diff(treeBefore, f.renderer.Snapshot()); diff != "" {
		t.Errorf("tree changed on transport failure:\n%s", diff)
	}
	msg, _ := f.notes.Current()
	assert.Equal(t, notify.KindError, msg.Kind)
}

func TestUnregisterSuccessRemovesRowWithoutRefresh(t *testing.T) {
	f := newFixture(t, &fakeAPI{
		signupMsg:     "Signed up b@x.com for Chess Club",
		unregisterMsg: "Unregistered a@x.com from Chess Club",
	})
	f.coord.Signup(context.Background(), "Chess Club", "b@x.com")
	f.coord.Wait()
	refreshesAfterSignup := f.refresher.calls.Load()

	out := f.coord.Unregister(context.Background(), "Chess Club", "a@x.com")
	f.coord.Wait()

	require.True(t, out.OK)

	act, _ := f.dir.Get("Chess Club")
	assert.Equal(t, []string{"b@x.com"}, act.Participants)
	assert.Equal(t, 9, act.SpotsLeft())

	card := f.renderer.Snapshot().Cards[0]
	assert.Equal(t, 9, card.SpotsLeft)
	require.Len(t, card.Participants.Rows, 1)
	assert.Equal(t, "b@x.com", card.Participants.Rows[0].Email)

	msg, visible := f.notes.Current()
	require.True(t, visible)
	assert.Equal(t, notify.KindInfo, msg.Kind)

	assert.Equal(t, refreshesAfterSignup, f.refresher.calls.Load(),
		"unregister must not trigger a background refresh")
}

func TestUnregisterLastParticipantShowsEmptyMarker(t *testing.T) {
	f := newFixture(t, &fakeAPI{unregisterMsg: "Unregistered a@x.com from Chess Club"})

	out := f.coord.Unregister(context.Background(), "Chess Club", "a@x.com")

	require.True(t, out.OK)
	card := f.renderer.Snapshot().Cards[0]
	assert.True(t, card.Participants.Empty, "empty roster must show the empty-state marker")
	assert.Equal(t, 10, card.SpotsLeft)

	act, _ := f.dir.Get("Chess Club")
	assert.Empty(t, act.Participants)
}

func TestUnregisterFailureKeepsRow(t *testing.T) {
	f := newFixture(t, &fakeAPI{
		unregisterErr: &api.RejectedError{StatusCode: 400, Detail: "Not registered"},
	})
	treeBefore := f.renderer.Snapshot()

	out := f.coord.Unregister(context.Background(), "Chess Club", "a@x.com")

	require.False(t, out.OK)
	assert.Equal(t, "Not registered", out.Message)
	if diff := cmp.Diff(treeBefore, f.renderer.Snapshot()); diff != "" {
		t.Errorf("row must remain displayed on failure:\n%s", diff)
	}
	msg, _ := f.notes.Current()
	assert.Equal(t, notify.KindError, msg.Kind)
}

func TestUnregisterTransportFailureMessage(t *testing.T) {
	f := newFixture(t, &fakeAPI{unregisterErr: errors.New("timeout")})

	out := f.coord.Unregister(context.Background(), "Chess Club", "a@x.com")

	assert.Equal(t, "Failed to unregister. Please try again.", out.Message)
}

// Signup success against an activity a concurrent refresh already removed:
// the directory delta and renderer patch are both silent no-ops.
func TestSignupAgainstVanishedActivityIsAbsorbed(t *testing.T) {
	f := newFixture(t, &fakeAPI{signupMsg: "Signed up b@x.com for Drama Club"})

	out := f.coord.Signup(context.Background(), "Drama Club", "b@x.com")
	f.coord.Wait()

	require.True(t, out.OK)
	assert.Equal(t, 1, f.dir.Len(), "no phantom activity created")
	assert.Len(t, f.renderer.Snapshot().Cards, 1)
}
