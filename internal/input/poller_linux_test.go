//go:build linux

package input

import (
	"testing"
	"time"

	evdev "github.com/holoplot/go-evdev"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// pipeDevice wraps the read end of a pipe as a Device.
func pipeDevice(t *testing.T) (*Device, int) {
	t.Helper()
	var p [2]int
	require.NoError(t, unix.Pipe2(p[:], unix.O_NONBLOCK|unix.O_CLOEXEC))
	t.Cleanup(func() { unix.Close(p[1]) })

	dev := &Device{path: "pipe", fd: p[0], buf: make([]byte, readBatch*eventSize)}
	t.Cleanup(func() { dev.Close() })
	return dev, p[1]
}

func TestPollerWake(t *testing.T) {
	dev, _ := pipeDevice(t)
	p, err := NewPoller([]*Device{dev})
	require.NoError(t, err)
	defer p.Close()

	done := make(chan []int, 1)
	go func() {
		ready, err := p.Wait()
		assert.NoError(t, err)
		done <- ready
	}()

	require.NoError(t, p.Wake())
	select {
	case ready := <-done:
		assert.Empty(t, ready)
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after Wake")
	}
}

func TestPollerReadyAndFetch(t *testing.T) {
	idle, _ := pipeDevice(t)
	dev, w := pipeDevice(t)
	p, err := NewPoller([]*Device{idle, dev})
	require.NoError(t, err)
	defer p.Close()

	_, err = unix.Write(w, encodeEvent(1, 2, uint16(evdev.EV_KEY), uint16(evdev.KEY_Q), 1))
	require.NoError(t, err)

	ready, err := p.Wait()
	require.NoError(t, err)
	assert.Equal(t, []int{1}, ready)

	events, err := dev.Fetch()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, evdev.EvCode(evdev.KEY_Q), events[0].Code)

	events, err = dev.Fetch()
	require.NoError(t, err)
	assert.Empty(t, events, "drained device returns nothing")
}

func TestDeviceGrabRequiresEvdev(t *testing.T) {
	dev, _ := pipeDevice(t)
	assert.Error(t, dev.Grab())
	assert.NoError(t, dev.Ungrab(), "ungrab without grab is a no-op")
}

func TestDeviceClosed(t *testing.T) {
	dev, _ := pipeDevice(t)
	require.NoError(t, dev.Close())
	require.NoError(t, dev.Close())

	_, err := dev.Fetch()
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, dev.Grab(), ErrClosed)
}

func TestPollerClosed(t *testing.T) {
	p, err := NewPoller(nil)
	require.NoError(t, err)
	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Wake(), ErrClosed)
}

func TestOpenMissing(t *testing.T) {
	_, err := Open("/dev/input/does-not-exist")
	assert.Error(t, err)
}
