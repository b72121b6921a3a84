//go:build linux

package input

import (
	"errors"
	"fmt"

	evdev "github.com/holoplot/go-evdev"
	"golang.org/x/sys/unix"
)

// _IOW('E', 0x90, int)
const eviocgrab = 0x40044590

// readBatch is how many events one Fetch reads at most.
const readBatch = 64

// Device is an open evdev character device.
type Device struct {
	path    string
	fd      int
	closed  bool
	grabbed bool
	buf     []byte
}

// Open opens an input device for non-blocking reads.
func Open(path string) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Device{
		path: path,
		fd:   fd,
		buf:  make([]byte, readBatch*eventSize),
	}, nil
}

// Path returns the device node path.
func (d *Device) Path() string {
	return d.path
}

// Fd returns the file descriptor for polling.
func (d *Device) Fd() int {
	return d.fd
}

// Grab takes exclusive ownership of the device: the kernel stops
// delivering its events to anyone else.
func (d *Device) Grab() error {
	if d.closed {
		return ErrClosed
	}
	if err := unix.IoctlSetInt(d.fd, eviocgrab, 1); err != nil {
		return fmt.Errorf("EVIOCGRAB %s: %w", d.path, err)
	}
	d.grabbed = true
	return nil
}

// Ungrab releases exclusive ownership. It is a no-op when not grabbed.
func (d *Device) Ungrab() error {
	if d.closed || !d.grabbed {
		return nil
	}
	if err := unix.IoctlSetInt(d.fd, eviocgrab, 0); err != nil {
		return fmt.Errorf("EVIOCGRAB release %s: %w", d.path, err)
	}
	d.grabbed = false
	return nil
}

// Fetch reads the events currently queued on the device. It returns an
// empty slice when nothing is pending.
func (d *Device) Fetch() ([]evdev.InputEvent, error) {
	if d.closed {
		return nil, ErrClosed
	}
	for {
		n, err := unix.Read(d.fd, d.buf)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EAGAIN):
			return nil, nil
		case err != nil:
			return nil, fmt.Errorf("read %s: %w", d.path, err)
		case n == 0:
			return nil, fmt.Errorf("read %s: device closed", d.path)
		}
		return decodeEvents(d.buf[:n]), nil
	}
}

// Close ungrabs and closes the device.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	ungrabErr := d.Ungrab()
	d.closed = true
	if err := unix.Close(d.fd); err != nil {
		return fmt.Errorf("close %s: %w", d.path, err)
	}
	return ungrabErr
}
