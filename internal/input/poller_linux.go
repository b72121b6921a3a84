//go:build linux

package input

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// Poller waits on a fixed set of devices plus a wake eventfd.
type Poller struct {
	fds    []unix.PollFd // devices first, wake fd last
	wakeFd int

	mu     sync.Mutex
	closed bool
}

// NewPoller creates a poller over devices. Indices returned by Wait refer
// to positions in devices.
func NewPoller(devices []*Device) (*Poller, error) {
	wakeFd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("eventfd: %w", err)
	}

	fds := make([]unix.PollFd, 0, len(devices)+1)
	for _, d := range devices {
		fds = append(fds, unix.PollFd{Fd: int32(d.Fd()), Events: unix.POLLIN})
	}
	fds = append(fds, unix.PollFd{Fd: int32(wakeFd), Events: unix.POLLIN})

	return &Poller{fds: fds, wakeFd: wakeFd}, nil
}

// Wait blocks with no timeout until a device is readable or Wake is
// called. Devices reporting an error condition count as ready so the
// following read surfaces the error.
func (p *Poller) Wait() ([]int, error) {
	for i := range p.fds {
		p.fds[i].Revents = 0
	}

	if _, err := unix.Poll(p.fds, -1); err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil, ErrInterrupted
		}
		return nil, fmt.Errorf("poll: %w", err)
	}

	wake := p.fds[len(p.fds)-1]
	if wake.Revents&unix.POLLIN != 0 {
		p.drainWake()
	}

	var ready []int
	for i, fd := range p.fds[:len(p.fds)-1] {
		if fd.Revents&(unix.POLLIN|unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			ready = append(ready, i)
		}
	}
	return ready, nil
}

func (p *Poller) drainWake() {
	var buf [8]byte
	unix.Read(p.wakeFd, buf[:])
}

// Wake makes a concurrent or subsequent Wait return. Safe for concurrent use.
func (p *Poller) Wake() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}

	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 1)
	if _, err := unix.Write(p.wakeFd, buf[:]); err != nil && !errors.Is(err, unix.EAGAIN) {
		return fmt.Errorf("wake: %w", err)
	}
	return nil
}

// Close releases the wake descriptor. Devices are not closed.
func (p *Poller) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return unix.Close(p.wakeFd)
}
