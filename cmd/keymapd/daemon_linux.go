//go:build linux

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"keymapd/internal/config"
	"keymapd/internal/engine"
	"keymapd/internal/health"
	"keymapd/internal/input"
	"keymapd/internal/keycode"
	"keymapd/internal/launcher"
	"keymapd/internal/logging"
	"keymapd/internal/metrics"
	"keymapd/internal/notify"
	"keymapd/internal/output"
	"keymapd/internal/window"
)

const outputName = "keymapd"

// session holds the devices a daemon run owns.
type session struct {
	devices []*input.Device
	poller  *input.Poller
	out     *output.Device
	logger  *slog.Logger
}

// openSession opens every device path plus the virtual keyboard. On error
// everything opened so far is closed again.
func openSession(paths []string, logger *slog.Logger) (*session, error) {
	s := &session{logger: logger}

	for _, path := range paths {
		dev, err := input.Open(path)
		if err != nil {
			s.close()
			return nil, err
		}
		s.devices = append(s.devices, dev)
	}

	poller, err := input.NewPoller(s.devices)
	if err != nil {
		s.close()
		return nil, err
	}
	s.poller = poller

	out, err := output.Create(outputName)
	if err != nil {
		s.close()
		return nil, err
	}
	s.out = out
	return s, nil
}

func (s *session) sources() []engine.Source {
	sources := make([]engine.Source, len(s.devices))
	for i, d := range s.devices {
		sources[i] = d
	}
	return sources
}

func (s *session) close() {
	if s.poller != nil {
		s.poller.Close()
	}
	for _, d := range s.devices {
		if err := d.Close(); err != nil {
			s.logger.Warn("failed to close device", "path", d.Path(), "error", err)
		}
	}
	if s.out != nil {
		if err := s.out.Close(); err != nil {
			s.logger.Warn("failed to close output device", "error", err)
		}
	}
}

// selectDevices picks the devices to grab: command line first, then the
// keymap's daemon.devices, then every keyboard found.
func selectDevices(flagged []string, cfg *config.Config) ([]string, error) {
	if len(flagged) > 0 {
		return flagged, nil
	}
	if cfg != nil && len(cfg.Daemon.Devices) > 0 {
		return cfg.Daemon.Devices, nil
	}
	keyboards, err := input.Keyboards()
	if err != nil {
		return nil, err
	}
	if len(keyboards) == 0 {
		return nil, errors.New("no keyboard found; pass -device explicitly")
	}
	return keyboards, nil
}

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", config.ConfigPath(), "keymap file (YAML or TOML)")
	watch := fs.Bool("watch", false, "reload the keymap when the file changes")
	var devices deviceList
	fs.Var(&devices, "device", "input device to grab (repeatable)")
	fs.Parse(args)

	loader := config.NewLoader(*configPath)
	defer loader.Close()
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load %s: %w", *configPath, err)
	}

	logCfg, err := logging.FromDaemon(cfg.Daemon)
	if err != nil {
		return err
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return err
	}
	defer logger.Close()
	logger.Install()
	log := logger.WithComponent("daemon")
	log.Debug("logging configured", "level", logging.LevelString(logCfg.Level), "output", logCfg.Output)

	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}

	paths, err := selectDevices(devices, cfg)
	if err != nil {
		return err
	}

	crashes := logging.NewCrashHandler("", version, log)
	if err := crashes.Prune(crashRetention); err != nil {
		log.Warn("failed to prune crash reports", "dir", crashes.Dir(), "error", err)
	}
	crashes.Set("config", loader.Path())
	crashes.Set("devices", strings.Join(paths, ","))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewEngineMetrics(metrics.Default())
	m.SetBuildInfo(version)

	var runErr error
	crashes.Guard(func() {
		runErr = runRemapper(ctx, cfg, loader, paths, *watch || cfg.Daemon.WatchConfig, logger, m)
	})

	m.UpdateUptime()
	log.Info("session metrics", "metrics", m.Snapshot())
	if cfg.Daemon.MetricsFile != "" {
		if err := m.Registry().WriteFile(cfg.Daemon.MetricsFile); err != nil {
			log.Warn("failed to write metrics file", "path", cfg.Daemon.MetricsFile, "error", err)
		}
	}

	if runErr != nil {
		log.Error("keymapd stopped", "error", runErr)
	}
	return runErr
}

func runRemapper(ctx context.Context, cfg *config.Config, loader *config.Loader, paths []string,
	watch bool, logger *logging.Logger, m *metrics.EngineMetrics) error {
	log := logger.WithComponent("daemon")

	s, err := openSession(paths, log)
	if err != nil {
		return err
	}
	defer s.close()

	opts := engine.Options{
		Name:     outputName,
		Sink:     s.out,
		Launcher: launcher.NewDetached(logger.WithComponent("launcher")),
		Logger:   logger.Logger,
		Metrics:  m,
	}

	if xprop, err := window.NewXProp(); err != nil {
		log.Warn("window filters disabled", "error", err)
	} else {
		opts.Focus = xprop
	}

	var notifier *notify.Notifier
	if cfg.Daemon.Notifications {
		if notifier, err = notify.New(outputName); err != nil {
			log.Warn("desktop notifications disabled", "error", err)
			notifier = nil
		} else {
			defer notifier.Close()
			opts.Notifier = notifier
		}
	}

	eng, err := engine.New(cfg, opts)
	if err != nil {
		return err
	}
	loop := engine.NewLoop(s.sources(), s.poller, eng, logger.Logger, m)

	if watch {
		loader.OnChange(func(next *config.Config) {
			for _, w := range next.Warnings() {
				log.Warn(w)
			}
			loop.Reload(next)
		})
		if err := loader.Watch(); err != nil {
			log.Warn("config watch disabled", "error", err)
		} else {
			log.Info("watching keymap for changes", "path", loader.Path())
			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case err := <-loader.Errors():
						log.Error("keymap reload failed, keeping current keymap", "error", err)
					}
				}
			}()
		}
	}

	announce(notifier, log, "keymapd is running now, your keyboard is grabbed.")
	log.Info("keymapd started", "devices", paths, "mode", eng.Mode())

	err = loop.Run(ctx)

	announce(notifier, log, "keymapd is stopped now.")
	return err
}

func announce(n *notify.Notifier, log *slog.Logger, body string) {
	if n == nil {
		return
	}
	if err := n.Notify(outputName, body); err != nil {
		log.Debug("notification failed", "error", err)
	}
}

func cmdEcho(args []string) error {
	fs := flag.NewFlagSet("echo", flag.ExitOnError)
	var devices deviceList
	fs.Var(&devices, "device", "input device to grab (repeatable)")
	fs.Parse(args)

	paths, err := selectDevices(devices, nil)
	if err != nil {
		return err
	}

	log := slog.Default().With("component", "echo")
	s, err := openSession(paths, log)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler := engine.NewEchoHandler(s.out, os.Stdout)
	loop := engine.NewLoop(s.sources(), s.poller, handler, log, nil)
	return loop.Run(ctx)
}

func cmdListDevices(args []string) error {
	fs := flag.NewFlagSet("list-devices", flag.ExitOnError)
	fs.Parse(args)

	infos, err := input.List()
	if err != nil {
		return err
	}
	for _, info := range infos {
		mark := " "
		if info.Keyboard {
			mark = "*"
		}
		fmt.Printf("%s %-22s %s\n", mark, info.Path, info.Name)
	}
	return nil
}

func cmdListKeys(args []string) error {
	fs := flag.NewFlagSet("list-keys", flag.ExitOnError)
	device := fs.String("device", "", "input device to inspect")
	fs.Parse(args)

	if *device == "" {
		return errors.New("list-keys requires -device PATH")
	}
	name, codes, err := input.KeyCodes(*device)
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s): %d keys\n", *device, name, len(codes))
	for _, code := range codes {
		fmt.Printf("  %4d  %s\n", code, keycode.Name(code))
	}
	return nil
}

const uinputPath = "/dev/uinput"

func cmdDoctor(args []string) error {
	fs := flag.NewFlagSet("doctor", flag.ExitOnError)
	configPath := fs.String("config", config.ConfigPath(), "keymap file to check")
	var devices deviceList
	fs.Var(&devices, "device", "input device to check (repeatable)")
	fs.Parse(args)

	checker := health.NewChecker()

	var cfg *config.Config
	checker.RegisterFunc("keymap", true, func(context.Context) (string, error) {
		c, err := config.Load(*configPath)
		if err != nil {
			return *configPath, err
		}
		cfg = c
		return fmt.Sprintf("%s: %d groups, %d modes", *configPath, len(c.Groups), len(c.Modes)), nil
	})
	// The keymap may name devices, so it is loaded before the rest run.
	results := checker.Run(context.Background())

	checker = health.NewChecker()
	checker.RegisterFunc("input devices", true, func(ctx context.Context) (string, error) {
		paths, err := selectDevices(devices, cfg)
		if err != nil {
			return "", err
		}
		for _, p := range paths {
			if _, err := health.FileReadable(p)(ctx); err != nil {
				return p, err
			}
		}
		return strings.Join(paths, ", "), nil
	})
	checker.RegisterFunc("uinput", true, health.FileWritable(uinputPath))
	checker.RegisterFunc("xprop", false, health.CommandAvailable("xprop"))
	checker.RegisterFunc("notifications", false, func(context.Context) (string, error) {
		n, err := notify.New(outputName)
		if err != nil {
			return "session bus unreachable", err
		}
		n.Close()
		return "session bus reachable", nil
	})
	checker.RegisterFunc("state directory", false, health.DirWritable(config.StateDir()))
	checker.RegisterFunc("crash reports", false, crashCheck(logging.NewCrashHandler("", version, nil), crashWindow))
	results = append(results, checker.Run(context.Background())...)

	for _, r := range results {
		line := fmt.Sprintf("%-10s %-16s %s", r.Status, r.Name, r.Message)
		if r.Error != "" {
			line += ": " + r.Error
		}
		fmt.Println(line)
	}

	overall := health.Overall(results)
	fmt.Printf("\nOverall: %s\n", overall)
	if overall == health.StatusUnhealthy {
		return errors.New("keymapd cannot run on this machine")
	}
	return nil
}
