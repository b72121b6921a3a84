package engine

import (
	"fmt"
	"io"
	"time"

	evdev "github.com/holoplot/go-evdev"

	"keymapd/internal/keycode"
)

// Handle processes one event from a grabbed device.
//
// Modifier keys update the tracked state and pass through, as do releases
// and non-key events. A press or repeat is first checked against the mode
// switch keys, then looked up in the current mode; anything unmatched is
// forwarded unchanged so no key is ever swallowed by accident.
func (e *Engine) Handle(ev evdev.InputEvent) error {
	start := time.Now()
	defer func() { e.metrics.ObserveDispatch(time.Since(start)) }()

	if ev.Type != evdev.EV_KEY {
		return e.forward(ev)
	}

	if keycode.IsModifier(ev.Code) {
		e.mods.Update(ev.Code, ev.Value == keycode.Press || ev.Value == keycode.Repeat)
		return e.forward(ev)
	}

	if ev.Value == keycode.Release {
		return e.forward(ev)
	}

	combo := e.comboFor(ev.Code)

	if next, ok := e.modes.Next(combo); ok {
		e.logger.Info("switching mode", "from", e.modes.Current(), "to", next)
		e.modes.Switch(next)
		e.metrics.RecordModeSwitch()
		e.notify(fmt.Sprintf("%s is switching to %s mode.", e.name, next))
		return nil
	}

	action, ok, err := e.FindAction(combo)
	if err != nil {
		e.metrics.RecordFocusError()
		e.logger.Warn("binding lookup failed, forwarding key", "combo", combo.String(), "error", err)
		return e.forward(ev)
	}
	if !ok {
		return e.forward(ev)
	}

	e.logger.Debug("binding matched", "combo", combo.String(), "mode", e.modes.Current())
	return e.Dispatch(action)
}

// EchoHandler prints every key event and forwards all events unchanged.
type EchoHandler struct {
	out Sink
	w   io.Writer
}

// NewEchoHandler returns a handler that logs key events to w.
func NewEchoHandler(out Sink, w io.Writer) *EchoHandler {
	return &EchoHandler{out: out, w: w}
}

// Handle implements Handler.
func (h *EchoHandler) Handle(ev evdev.InputEvent) error {
	if ev.Type == evdev.EV_KEY {
		ms := ev.Time.Sec*1000 + ev.Time.Usec/1000
		fmt.Fprintf(h.w, "Timestamp: %12d\t%-8s\tKey: %s (%d)\n",
			ms, keycode.ValueName(ev.Value), keycode.Name(ev.Code), ev.Code)
	}
	if err := h.out.Emit(ev); err != nil {
		return fmt.Errorf("%w: %w", ErrOutput, err)
	}
	return nil
}
