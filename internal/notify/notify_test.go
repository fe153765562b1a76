package notify

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticPrefs struct{ p Preferences }

func (s staticPrefs) NotificationPrefs() Preferences { return s.p }

type recordingPlayer struct {
	calls  int
	sound  string
	volume float64
	err    error
}

func (r *recordingPlayer) Play(sound string, volume float64) error {
	r.calls++
	r.sound = sound
	r.volume = volume
	return r.err
}

func TestNotifyPlaysWhenEnabled(t *testing.T) {
	player := &recordingPlayer{}
	d := NewDispatcher(staticPrefs{Preferences{Enabled: true, Sound: "chime", Volume: 0.5}}, player)

	require.NoError(t, d.Notify())
	assert.Equal(t, 1, player.calls)
	assert.Equal(t, "chime", player.sound)
	assert.Equal(t, 0.5, player.volume)
}

func TestNotifySkippedWhenDisabled(t *testing.T) {
	player := &recordingPlayer{}
	d := NewDispatcher(staticPrefs{Preferences{Enabled: false, Sound: "chime", Volume: 1}}, player)

	require.NoError(t, d.Notify())
	assert.Zero(t, player.calls)
}

func TestNotifyPlaybackErrorIsAdvisory(t *testing.T) {
	player := &recordingPlayer{err: errors.New("device busy")}
	d := NewDispatcher(staticPrefs{Preferences{Enabled: true, Sound: "chime", Volume: 1}}, player)

	err := d.Notify()
	require.Error(t, err)
	var perr *PlaybackError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "chime", perr.Sound)

	// A second dispatch still attempts playback.
	_ = d.Notify()
	assert.Equal(t, 2, player.calls)
}

func TestNotifyNilSourcesAreSafe(t *testing.T) {
	d := NewDispatcher(nil, nil)
	require.NoError(t, d.Notify())
}

func TestBellPlayer(t *testing.T) {
	var buf bytes.Buffer
	p := &BellPlayer{W: &buf}

	require.NoError(t, p.Play("default", 1.0))
	assert.Equal(t, "\a", buf.String())

	buf.Reset()
	require.NoError(t, p.Play("default", 0))
	assert.Empty(t, buf.String(), "zero volume suppresses the bell")
}

func TestDefaultPreferences(t *testing.T) {
	p := DefaultPreferences()
	assert.True(t, p.Enabled)
	assert.Equal(t, "default", p.Sound)
	assert.Equal(t, 1.0, p.Volume)
}
