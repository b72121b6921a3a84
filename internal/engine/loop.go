package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	evdev "github.com/holoplot/go-evdev"

	"keymapd/internal/config"
	"keymapd/internal/input"
	"keymapd/internal/metrics"
)

// Source is an input device the loop reads from.
type Source interface {
	Path() string
	Grab() error
	Ungrab() error
	// Fetch returns the events currently queued on the device. It must
	// not block once the poller reported the device ready.
	Fetch() ([]evdev.InputEvent, error)
}

// Poller blocks until some sources are readable. Wait returns the indices
// of the ready sources in the order they were registered, an error
// wrapping input.ErrInterrupted when a signal cut the wait short, or no
// indices when Wake was called.
type Poller interface {
	Wait() ([]int, error)
	Wake() error
}

// Reloader is implemented by handlers that accept a new keymap.
type Reloader interface {
	Reload(cfg *config.Config) error
}

// Loop feeds events from grabbed sources through a Handler.
type Loop struct {
	sources []Source
	poller  Poller
	handler Handler
	logger  *slog.Logger
	metrics *metrics.EngineMetrics
	reload  chan *config.Config
}

// NewLoop creates an event loop. The poller must watch the sources in the
// same order as they are given here.
func NewLoop(sources []Source, poller Poller, handler Handler, logger *slog.Logger, m *metrics.EngineMetrics) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		sources: sources,
		poller:  poller,
		handler: handler,
		logger:  logger.With("component", "loop"),
		metrics: m,
		reload:  make(chan *config.Config, 1),
	}
}

// Reload queues a keymap to be applied between two events. It may be
// called from any goroutine; only the latest queued keymap is applied.
func (l *Loop) Reload(cfg *config.Config) {
	for {
		select {
		case l.reload <- cfg:
			if err := l.poller.Wake(); err != nil {
				l.logger.Warn("failed to wake event loop", "error", err)
			}
			return
		default:
		}
		// Drop the stale pending keymap and retry.
		select {
		case <-l.reload:
		default:
		}
	}
}

// Run grabs every source and processes events until ctx is cancelled or
// a fatal error occurs. Cancellation is observed each time the wait
// returns; the poller is woken on cancellation so that is prompt.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.grab(); err != nil {
		return err
	}
	defer l.ungrab()

	stop := context.AfterFunc(ctx, func() {
		if err := l.poller.Wake(); err != nil {
			l.logger.Warn("failed to wake event loop", "error", err)
		}
	})
	defer stop()

	for {
		ready, err := l.poller.Wait()

		if ctx.Err() != nil {
			l.logger.Info("stopping event loop")
			return nil
		}
		if err != nil {
			if errors.Is(err, input.ErrInterrupted) {
				continue
			}
			return fmt.Errorf("%w: wait: %w", ErrDevice, err)
		}

		l.applyReload()

		for _, i := range ready {
			if err := l.drain(l.sources[i]); err != nil {
				return err
			}
		}
	}
}

func (l *Loop) drain(src Source) error {
	events, err := src.Fetch()
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrDevice, src.Path(), err)
	}
	for _, ev := range events {
		l.metrics.RecordEvent()
		if err := l.handler.Handle(ev); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loop) applyReload() {
	select {
	case cfg := <-l.reload:
		r, ok := l.handler.(Reloader)
		if !ok {
			return
		}
		if err := r.Reload(cfg); err != nil {
			l.logger.Error("keymap reload rejected", "error", err)
			return
		}
		l.metrics.RecordReload()
		l.logger.Info("keymap reloaded")
	default:
	}
}

func (l *Loop) grab() error {
	for i, src := range l.sources {
		if err := src.Grab(); err != nil {
			for _, grabbed := range l.sources[:i] {
				grabbed.Ungrab()
			}
			return fmt.Errorf("%w: grab %s: %w", ErrDevice, src.Path(), err)
		}
		l.logger.Info("device grabbed", "path", src.Path())
	}
	l.metrics.SetGrabbedDevices(len(l.sources))
	return nil
}

func (l *Loop) ungrab() {
	for _, src := range l.sources {
		if err := src.Ungrab(); err != nil {
			l.logger.Warn("failed to release device", "path", src.Path(), "error", err)
		}
	}
	l.metrics.SetGrabbedDevices(0)
}
