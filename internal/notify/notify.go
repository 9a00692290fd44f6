// Package notify holds the single transient status message slot. At most
// one message is live at a time; posting replaces the current one and
// restarts the expiry timer. Expiry only hides the message, it never
// deletes it.
package notify

import (
	"sync"
	"time"

	"roster/internal/logging"
)

// DefaultTTL is how long a posted message stays visible.
const DefaultTTL = 5 * time.Second

// Kind classifies a message for presentation.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Message is one transient status message.
type Message struct {
	Text      string
	Kind      Kind
	ExpiresAt time.Time
}

// Channel is the one notification slot. A new Post cancels any pending
// expiry timer, so two posts in quick succession always leave only the
// second visible; there is no queueing.
type Channel struct {
	mu       sync.Mutex
	current  Message
	visible  bool
	timer    *time.Timer
	ttl      time.Duration
	gen      uint64
	onChange func()
}

// Option configures a Channel.
type Option func(*Channel)

// WithTTL overrides the expiry duration (tests).
func WithTTL(d time.Duration) Option {
	return func(c *Channel) { c.ttl = d }
}

// NewChannel returns an empty channel with the default 5s expiry.
func NewChannel(opts ...Option) *Channel {
	c := &Channel{ttl: DefaultTTL}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetOnChange registers a callback invoked after every visibility change
// (post or expiry). The interactive UI uses it to trigger a re-render.
// The callback runs outside the channel lock.
func (c *Channel) SetOnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Post replaces any currently displayed message, cancels the pending
// expiry timer, and starts a fresh one.
func (c *Channel) Post(text string, kind Kind) {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.current = Message{Text: text, Kind: kind, ExpiresAt: time.Now().Add(c.ttl)}
	c.visible = true
	c.timer = time.AfterFunc(c.ttl, func() { c.expire(gen) })
	fn := c.onChange
	c.mu.Unlock()

	logging.Notify("posted %s message: %s", kind, text)
	if fn != nil {
		fn()
	}
}

// expire hides the message if no later Post superseded this timer.
func (c *Channel) expire(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.visible = false
	fn := c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Current returns the live message and whether it is visible. The message
// survives expiry; only visibility toggles.
func (c *Channel) Current() (Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current, c.visible
}

// Close cancels any pending expiry timer. Call at shutdown.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
}
