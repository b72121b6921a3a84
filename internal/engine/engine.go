// Package engine implements the keymapd remapping engine: modifier
// tracking, the per-mode binding table, mode switching, action dispatch
// and the event loop that feeds grabbed devices through them.
//
// An Engine is owned by exactly one goroutine (the event loop). None of
// its methods are safe for concurrent use.
package engine

import (
	"errors"
	"fmt"
	"log/slog"

	evdev "github.com/holoplot/go-evdev"

	"keymapd/internal/config"
	"keymapd/internal/metrics"
)

var (
	// ErrOutput marks a failed write to the output sink. It is fatal.
	ErrOutput = errors.New("output device error")

	// ErrDevice marks a failed read or grab of an input device. It is fatal.
	ErrDevice = errors.New("input device error")

	// ErrNoFocusProvider is returned when a filtered binding is evaluated
	// without a window-focus collaborator.
	ErrNoFocusProvider = errors.New("no window focus provider")
)

// Sink is the synthetic output device.
type Sink interface {
	Emit(ev evdev.InputEvent) error
}

// FocusProvider reports the class of the focused window.
type FocusProvider interface {
	FocusedWindowClass() (string, error)
}

// Launcher starts a program detached from the daemon.
type Launcher interface {
	Spawn(program string, args []string) error
}

// Notifier delivers best-effort desktop notifications.
type Notifier interface {
	Notify(summary, body string) error
}

// Handler processes one raw input event.
type Handler interface {
	Handle(ev evdev.InputEvent) error
}

// Options configures an Engine.
type Options struct {
	// Name is used as the notification title.
	Name     string
	Sink     Sink
	Focus    FocusProvider
	Launcher Launcher
	Notifier Notifier
	Logger   *slog.Logger
	Metrics  *metrics.EngineMetrics
}

// Engine is the default Handler: it remaps keys according to a keymap.
type Engine struct {
	name     string
	out      Sink
	focus    FocusProvider
	launcher Launcher
	notifier Notifier
	logger   *slog.Logger
	metrics  *metrics.EngineMetrics

	mods  ModifierState
	table *BindingTable
	modes *ModeState
}

// New builds an Engine for cfg with all modifiers released.
func New(cfg *config.Config, opts Options) (*Engine, error) {
	if opts.Sink == nil {
		return nil, errors.New("engine: output sink is required")
	}
	if opts.Name == "" {
		opts.Name = "keymapd"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	e := &Engine{
		name:     opts.Name,
		out:      opts.Sink,
		focus:    opts.Focus,
		launcher: opts.Launcher,
		notifier: opts.Notifier,
		logger:   opts.Logger.With("component", "engine"),
		metrics:  opts.Metrics,
	}
	if err := e.Reload(cfg); err != nil {
		return nil, err
	}
	return e, nil
}

// Reload swaps in a new keymap. Modifier state is kept; the current mode
// is kept when the new keymap still defines it, otherwise the new default
// mode applies.
func (e *Engine) Reload(cfg *config.Config) error {
	table, err := BuildTable(cfg)
	if err != nil {
		return fmt.Errorf("build binding table: %w", err)
	}
	modes := NewModeState(cfg, table)
	modes.carryOver(e.modes)

	e.table = table
	e.modes = modes
	return nil
}

// Mode returns the current mode name ("" when none).
func (e *Engine) Mode() string {
	return e.modes.Current()
}

// Modifiers returns a snapshot of the tracked modifier state; later
// events do not change it.
func (e *Engine) Modifiers() ModifierState {
	return e.mods
}

func (e *Engine) emit(ev evdev.InputEvent) error {
	if err := e.out.Emit(ev); err != nil {
		return fmt.Errorf("%w: %w", ErrOutput, err)
	}
	return nil
}

func (e *Engine) emitKey(code evdev.EvCode, value int32) error {
	return e.emit(evdev.InputEvent{Type: evdev.EV_KEY, Code: code, Value: value})
}

func (e *Engine) forward(ev evdev.InputEvent) error {
	e.metrics.RecordForward()
	return e.emit(ev)
}

func (e *Engine) notify(body string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(e.name, body); err != nil {
		e.logger.Debug("notification failed", "error", err)
	}
}
