// Package notify dispatches new-message notifications for the agent
// console. Dispatch is preference-gated and best-effort: a failed sound
// never blocks or fails message handling, it is logged and reported as
// a PlaybackError to callers that care.
package notify

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Preferences controls whether and how notifications fire.
type Preferences struct {
	Enabled bool    `json:"notificationsEnabled"`
	Sound   string  `json:"notificationSound"`
	Volume  float64 `json:"notificationVolume"`
}

// DefaultPreferences matches the widget defaults: on, default chime,
// full volume.
func DefaultPreferences() Preferences {
	return Preferences{Enabled: true, Sound: "default", Volume: 1.0}
}

// PreferencesSource supplies the current notification preferences.
// Implementations may re-read from disk on every call.
type PreferencesSource interface {
	NotificationPrefs() Preferences
}

// Player plays a named notification sound at the given volume.
type Player interface {
	Play(sound string, volume float64) error
}

// PlaybackError reports a sound that could not be played.
type PlaybackError struct {
	Sound string
	Err   error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("play notification sound %q: %v", e.Sound, e.Err)
}

func (e *PlaybackError) Unwrap() error { return e.Err }

// BellPlayer writes the terminal bell character. Volume below an
// audible threshold suppresses the bell entirely; terminals have no
// volume control.
type BellPlayer struct {
	W io.Writer
}

func (p *BellPlayer) Play(_ string, volume float64) error {
	if volume <= 0 {
		return nil
	}
	if _, err := p.W.Write([]byte("\a")); err != nil {
		return err
	}
	return nil
}

// Dispatcher gates notification playback on user preferences.
type Dispatcher struct {
	mu     sync.Mutex
	prefs  PreferencesSource
	player Player
}

// NewDispatcher builds a dispatcher. A nil player disables sound but
// keeps dispatch calls safe.
func NewDispatcher(prefs PreferencesSource, player Player) *Dispatcher {
	return &Dispatcher{prefs: prefs, player: player}
}

// Notify plays the configured sound for a new message. Disabled
// preferences or a missing player make it a no-op. Playback failures
// are logged and returned as *PlaybackError; callers treat them as
// advisory.
func (d *Dispatcher) Notify() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	p := DefaultPreferences()
	if d.prefs != nil {
		p = d.prefs.NotificationPrefs()
	}
	if !p.Enabled || d.player == nil {
		return nil
	}
	if err := d.player.Play(p.Sound, p.Volume); err != nil {
		perr := &PlaybackError{Sound: p.Sound, Err: err}
		slog.Debug("notification playback failed", "sound", p.Sound, "error", err)
		return perr
	}
	return nil
}
