package output

import (
	"errors"
	"testing"

	evdev "github.com/holoplot/go-evdev"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []evdev.InputEvent
	failAt int
	closed bool
}

func (r *recorder) WriteOne(ev *evdev.InputEvent) error {
	if r.failAt > 0 && len(r.events)+1 == r.failAt {
		return errors.New("ENODEV")
	}
	r.events = append(r.events, *ev)
	return nil
}

func (r *recorder) Close() error {
	r.closed = true
	return nil
}

func TestEmitAppendsSync(t *testing.T) {
	rec := &recorder{}
	d := &Device{w: rec}

	require.NoError(t, d.Emit(evdev.InputEvent{Type: evdev.EV_KEY, Code: evdev.KEY_A, Value: 1}))
	require.Len(t, rec.events, 2)
	assert.Equal(t, evdev.EvCode(evdev.KEY_A), rec.events[0].Code)
	assert.Equal(t, evdev.EvType(evdev.EV_SYN), rec.events[1].Type)
	assert.Equal(t, evdev.EvCode(evdev.SYN_REPORT), rec.events[1].Code)
}

func TestEmitSyncAsIs(t *testing.T) {
	rec := &recorder{}
	d := &Device{w: rec}

	require.NoError(t, d.Emit(evdev.InputEvent{Type: evdev.EV_SYN, Code: evdev.SYN_REPORT}))
	assert.Len(t, rec.events, 1)
}

func TestEmitErrors(t *testing.T) {
	d := &Device{w: &recorder{failAt: 1}}
	assert.Error(t, d.Emit(evdev.InputEvent{Type: evdev.EV_KEY, Code: evdev.KEY_A, Value: 1}))

	d = &Device{w: &recorder{failAt: 2}}
	assert.ErrorContains(t, d.Emit(evdev.InputEvent{Type: evdev.EV_KEY, Code: evdev.KEY_A}), "write sync")
}

func TestClose(t *testing.T) {
	rec := &recorder{}
	d := &Device{w: rec}
	require.NoError(t, d.Close())
	assert.True(t, rec.closed)
	require.NoError(t, d.Close())
	assert.ErrorIs(t, d.Emit(evdev.InputEvent{}), ErrClosed)
}
