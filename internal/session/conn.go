package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// State is the connection lifecycle phase.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFallback
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFallback:
		return "fallback"
	default:
		return "disconnected"
	}
}

// DialFunc performs one connection attempt. It returns nil once the
// realtime channel is established and subscribed.
type DialFunc func(ctx context.Context) error

// ConnEvents receives lifecycle notifications. Callbacks run with the
// connection's internal state held and must not call back into Conn.
type ConnEvents struct {
	// StateChanged fires on every transition. attempt is the number of
	// failed retries in the current episode.
	StateChanged func(from, to State, attempt int)

	// Fallback fires once when retries are exhausted and the session
	// degrades to the local responder.
	Fallback func()

	// Connected fires on every successful (re)connection.
	Connected func()
}

// Conn drives the reconnect loop for the realtime channel.
//
// Every explicit Connect bumps a generation counter, and each scheduled
// retry carries the generation it was created under. A retry that fires
// after a newer Connect superseded it is discarded, so a stale attempt
// can never clobber a newer connection.
type Conn struct {
	mu     sync.Mutex
	policy ReconnectPolicy
	clock  Clock
	dial   DialFunc
	events ConnEvents

	state      State
	attempt    int
	generation uint64
	retry      Timer
	ctx        context.Context
}

// ConnOption configures a Conn.
type ConnOption func(*Conn)

// WithClock replaces the wall clock, for tests.
func WithClock(c Clock) ConnOption {
	return func(cn *Conn) { cn.clock = c }
}

// WithEvents registers lifecycle callbacks.
func WithEvents(e ConnEvents) ConnOption {
	return func(cn *Conn) { cn.events = e }
}

// NewConn creates a connection manager that dials with dial and paces
// retries with policy.
func NewConn(dial DialFunc, policy ReconnectPolicy, opts ...ConnOption) *Conn {
	c := &Conn{
		policy: policy,
		clock:  SystemClock(),
		dial:   dial,
		state:  StateDisconnected,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current lifecycle phase.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempt returns the number of failed retries in the current episode.
func (c *Conn) Attempt() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt
}

// Generation returns the current connect generation.
func (c *Conn) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Sendable reports whether messages can go out over the channel.
func (c *Conn) Sendable() bool {
	return c.State() == StateConnected
}

// InFallback reports whether the session degraded to the local responder.
func (c *Conn) InFallback() bool {
	return c.State() == StateFallback
}

// SendBlocked returns why a send would be rejected right now:
// ErrChannelUnavailable once the session degraded to fallback,
// ErrNotSendable in any other non-connected state, nil when connected.
func (c *Conn) SendBlocked() error {
	switch c.State() {
	case StateConnected:
		return nil
	case StateFallback:
		return ErrChannelUnavailable
	default:
		return ErrNotSendable
	}
}

// Connect starts a fresh connection episode. Any retry scheduled by an
// earlier episode is invalidated. The first attempt runs synchronously.
func (c *Conn) Connect(ctx context.Context) {
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.attempt = 0
	c.ctx = ctx
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	c.transitionLocked(StateConnecting)
	c.mu.Unlock()

	c.attemptDial(gen)
}

// ConnectionLost tells the manager an established connection dropped.
// It schedules the first retry under the current generation.
func (c *Conn) ConnectionLost(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected {
		return
	}
	slog.Debug("realtime channel lost", "error", err)
	c.scheduleRetryLocked(c.generation)
}

// Close stops the reconnect loop and invalidates pending retries.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
	c.transitionLocked(StateDisconnected)
}

func (c *Conn) attemptDial(gen uint64) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	ctx := c.ctx
	c.mu.Unlock()

	err := c.dial(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		// A newer Connect superseded this attempt while it was dialing.
		slog.Debug("discarding stale connection attempt", "generation", gen)
		return
	}
	if err == nil {
		c.attempt = 0
		c.transitionLocked(StateConnected)
		if c.events.Connected != nil {
			c.events.Connected()
		}
		return
	}
	slog.Debug("connection attempt failed", "attempt", c.attempt+1, "error", err)
	c.scheduleRetryLocked(gen)
}

// scheduleRetryLocked paces the next attempt. Once retries are
// exhausted the manager stops; fallback persists until the caller
// requests a fresh Connect.
func (c *Conn) scheduleRetryLocked(gen uint64) {
	c.attempt++
	if c.attempt > c.policy.MaxAttempts {
		c.transitionLocked(StateFallback)
		if c.events.Fallback != nil {
			c.events.Fallback()
		}
		return
	}

	delay := c.policy.Delay(c.attempt - 1)
	c.transitionLocked(StateReconnecting)
	slog.Debug("reconnect scheduled", "attempt", c.attempt, "max", c.policy.MaxAttempts, "delay", delay)
	c.armRetryLocked(gen, delay)
}

func (c *Conn) armRetryLocked(gen uint64, delay time.Duration) {
	if delay <= 0 {
		return
	}
	if c.retry != nil {
		c.retry.Stop()
	}
	c.retry = c.clock.AfterFunc(delay, func() { c.attemptDial(gen) })
}

func (c *Conn) transitionLocked(to State) {
	if c.state == to {
		return
	}
	from := c.state
	c.state = to
	if c.events.StateChanged != nil {
		c.events.StateChanged(from, to, c.attempt)
	}
}
