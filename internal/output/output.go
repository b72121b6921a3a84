// Package output provides the synthetic keyboard keymapd writes to.
package output

import (
	"errors"
	"fmt"
	"sync"

	evdev "github.com/holoplot/go-evdev"

	"keymapd/internal/keycode"
)

// ErrClosed is returned by Emit after Close.
var ErrClosed = errors.New("output device closed")

// writer is the part of *evdev.InputDevice a Device needs.
type writer interface {
	WriteOne(ev *evdev.InputEvent) error
	Close() error
}

// Device is a uinput virtual keyboard. Every event written is followed by
// a SYN_REPORT so consumers see it immediately; events that are themselves
// EV_SYN are written as-is.
type Device struct {
	mu sync.Mutex
	w  writer
}

// busVirtual is BUS_VIRTUAL from input.h.
const busVirtual = 0x06

// Create registers a virtual keyboard named name that can emit every
// KEY_* code plus the common mouse buttons.
func Create(name string) (*Device, error) {
	dev, err := evdev.CreateDevice(name,
		evdev.InputID{BusType: busVirtual, Vendor: 0x1, Product: 0x1, Version: 1},
		map[evdev.EvType][]evdev.EvCode{
			evdev.EV_KEY: keycode.OutputKeys(),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("create uinput device: %w", err)
	}
	return &Device{w: dev}, nil
}

// Emit writes ev and, unless ev is a sync event, a SYN_REPORT.
func (d *Device) Emit(ev evdev.InputEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.w == nil {
		return ErrClosed
	}
	if err := d.w.WriteOne(&ev); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	if ev.Type == evdev.EV_SYN {
		return nil
	}
	syn := evdev.InputEvent{Type: evdev.EV_SYN, Code: evdev.SYN_REPORT}
	if err := d.w.WriteOne(&syn); err != nil {
		return fmt.Errorf("write sync: %w", err)
	}
	return nil
}

// Close destroys the virtual device.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.w == nil {
		return nil
	}
	err := d.w.Close()
	d.w = nil
	return err
}
