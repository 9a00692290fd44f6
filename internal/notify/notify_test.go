package notify

import (
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPostMakesMessageVisible(t *testing.T) {
	c := NewChannel()
	defer c.Close()

	c.Post("Signed up b@x.com for Chess Club", KindSuccess)

	msg, visible := c.Current()
	if !visible {
		t.Fatal("message should be visible right after posting")
	}
	if msg.Text != "Signed up b@x.com for Chess Club" || msg.Kind != KindSuccess {
		t.Errorf("unexpected message %+v", msg)
	}
	if msg.ExpiresAt.Before(time.Now()) {
		t.Error("expiry should be in the future")
	}
}

func TestSecondPostReplacesFirst(t *testing.T) {
	c := NewChannel(WithTTL(50 * time.Millisecond))
	defer c.Close()

	c.Post("first", KindInfo)
	c.Post("second", KindError)

	msg, visible := c.Current()
	if !visible || msg.Text != "second" || msg.Kind != KindError {
		t.Fatalf("only the second message should be visible, got %+v", msg)
	}
}

func TestExpiryHidesButKeepsMessage(t *testing.T) {
	c := NewChannel(WithTTL(20 * time.Millisecond))
	defer c.Close()

	c.Post("transient", KindInfo)

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, visible := c.Current(); !visible {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("message never expired")
		}
		time.Sleep(5 * time.Millisecond)
	}

	msg, visible := c.Current()
	if visible {
		t.Error("expired message must be hidden")
	}
	if msg.Text != "transient" {
		t.Error("expiry must hide the message, not delete it")
	}
}

// A replaced message's timer must not hide its successor.
func TestReplacementCancelsPendingExpiry(t *testing.T) {
	c := NewChannel(WithTTL(40 * time.Millisecond))
	defer c.Close()

	c.Post("first", KindInfo)
	time.Sleep(25 * time.Millisecond)
	c.Post("second", KindSuccess)
	time.Sleep(25 * time.Millisecond) // past first's original expiry

	msg, visible := c.Current()
	if !visible || msg.Text != "second" {
		t.Fatalf("second message hidden by the first message's timer: %+v visible=%v", msg, visible)
	}
}

func TestOnChangeFiresOnPostAndExpiry(t *testing.T) {
	c := NewChannel(WithTTL(20 * time.Millisecond))
	defer c.Close()

	var calls atomic.Int32
	c.SetOnChange(func() { calls.Add(1) })

	c.Post("hello", KindInfo)

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected post + expiry callbacks, got %d", calls.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
