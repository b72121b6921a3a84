// Package input reads raw events from Linux evdev character devices.
//
// Devices are opened non-blocking and multiplexed with poll(2) by a
// Poller, which also owns an eventfd so other goroutines can wake the
// waiting loop (shutdown, keymap reload).
package input

import (
	"encoding/binary"
	"errors"
	"syscall"
	"unsafe"

	evdev "github.com/holoplot/go-evdev"
)

var (
	// ErrInterrupted is returned by Poller.Wait when a signal interrupted
	// the wait. Callers retry.
	ErrInterrupted = errors.New("wait interrupted")

	// ErrClosed is returned when using a closed device or poller.
	ErrClosed = errors.New("input: closed")
)

// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; }
var (
	timevalSize = int(unsafe.Sizeof(syscall.Timeval{}))
	eventSize   = timevalSize + 8
)

// decodeEvents parses consecutive input_event structs in native (little
// endian) layout. A trailing partial record is ignored.
func decodeEvents(buf []byte) []evdev.InputEvent {
	events := make([]evdev.InputEvent, 0, len(buf)/eventSize)
	for off := 0; off+eventSize <= len(buf); off += eventSize {
		events = append(events, decodeEvent(buf[off:off+eventSize]))
	}
	return events
}

func decodeEvent(b []byte) evdev.InputEvent {
	var ev evdev.InputEvent
	var sec, usec int64
	if timevalSize == 16 {
		sec = int64(binary.LittleEndian.Uint64(b[0:8]))
		usec = int64(binary.LittleEndian.Uint64(b[8:16]))
	} else {
		sec = int64(int32(binary.LittleEndian.Uint32(b[0:4])))
		usec = int64(int32(binary.LittleEndian.Uint32(b[4:8])))
	}
	ev.Time = syscall.NsecToTimeval(sec*1e9 + usec*1e3)
	ev.Type = evdev.EvType(binary.LittleEndian.Uint16(b[timevalSize : timevalSize+2]))
	ev.Code = evdev.EvCode(binary.LittleEndian.Uint16(b[timevalSize+2 : timevalSize+4]))
	ev.Value = int32(binary.LittleEndian.Uint32(b[timevalSize+4 : timevalSize+8]))
	return ev
}
