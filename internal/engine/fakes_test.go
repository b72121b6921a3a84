package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	evdev "github.com/holoplot/go-evdev"
	"github.com/stretchr/testify/require"

	"keymapd/internal/config"
	"keymapd/internal/keycode"
)

type fakeSink struct {
	events []evdev.InputEvent
	failAt int // 1-based index of the Emit call that fails; 0 never
}

func (s *fakeSink) Emit(ev evdev.InputEvent) error {
	if s.failAt > 0 && len(s.events)+1 == s.failAt {
		return errors.New("uinput gone")
	}
	s.events = append(s.events, ev)
	return nil
}

// keys renders emitted key events as "KEY_A:1" for compact assertions.
func (s *fakeSink) keys() []string {
	var out []string
	for _, ev := range s.events {
		if ev.Type == evdev.EV_KEY {
			out = append(out, fmt.Sprintf("%s:%d", keycode.Name(ev.Code), ev.Value))
		}
	}
	return out
}

func (s *fakeSink) reset() {
	s.events = nil
}

type fakeFocus struct {
	class string
	err   error
	calls int
}

func (f *fakeFocus) FocusedWindowClass() (string, error) {
	f.calls++
	return f.class, f.err
}

type spawn struct {
	program string
	args    []string
}

type fakeLauncher struct {
	spawned []spawn
	err     error
}

func (l *fakeLauncher) Spawn(program string, args []string) error {
	if l.err != nil {
		return l.err
	}
	l.spawned = append(l.spawned, spawn{program, args})
	return nil
}

type fakeNotifier struct {
	bodies []string
}

func (n *fakeNotifier) Notify(_, body string) error {
	n.bodies = append(n.bodies, body)
	return errors.New("no notification daemon")
}

type harness struct {
	engine   *Engine
	sink     *fakeSink
	focus    *fakeFocus
	launcher *fakeLauncher
	notifier *fakeNotifier
}

func mustConfig(t *testing.T, doc string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(doc), config.FormatYAML)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	return cfg
}

func newHarness(t *testing.T, doc string) *harness {
	t.Helper()
	h := &harness{
		sink:     &fakeSink{},
		focus:    &fakeFocus{},
		launcher: &fakeLauncher{},
		notifier: &fakeNotifier{},
	}
	e, err := New(mustConfig(t, doc), Options{
		Sink:     h.sink,
		Focus:    h.focus,
		Launcher: h.launcher,
		Notifier: h.notifier,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	h.engine = e
	return h
}

func keyEv(code evdev.EvCode, value int32) evdev.InputEvent {
	return evdev.InputEvent{Type: evdev.EV_KEY, Code: code, Value: value}
}

// feed sends events through the engine and fails the test on error.
func (h *harness) feed(t *testing.T, events ...evdev.InputEvent) {
	t.Helper()
	for _, ev := range events {
		require.NoError(t, h.engine.Handle(ev))
	}
}

// tap presses and releases code.
func (h *harness) tap(t *testing.T, code evdev.EvCode) {
	t.Helper()
	h.feed(t, keyEv(code, keycode.Press), keyEv(code, keycode.Release))
}
