// keymapd - keyboard remapping daemon for Linux
//
// keymapd grabs the keyboards exclusively, rewrites key combos according to
// a YAML or TOML keymap and replays the result on a virtual keyboard:
//
//	keymapd run           Grab keyboards and remap them
//	keymapd echo          Grab keyboards, print every key event, forward it
//	keymapd check         Validate a keymap file
//	keymapd list-devices  List input devices
//	keymapd list-keys     List the key codes a device reports
//	keymapd doctor        Check that keymapd can run on this machine
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"keymapd/internal/config"
	"keymapd/internal/engine"
	"keymapd/internal/health"
	"keymapd/internal/logging"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd, args := os.Args[1], os.Args[2:]

	var err error
	switch cmd {
	case "run":
		err = cmdRun(args)
	case "echo":
		err = cmdEcho(args)
	case "check":
		err = cmdCheck(args)
	case "list-devices":
		err = cmdListDevices(args)
	case "list-keys":
		err = cmdListKeys(args)
	case "doctor":
		err = cmdDoctor(args)
	case "version", "-v", "--version":
		fmt.Printf("keymapd %s\n", version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`keymapd - keyboard remapping daemon

USAGE:
    keymapd <command> [options]

COMMANDS:
    run             Grab keyboards and remap them according to the keymap
    echo            Grab keyboards, print every key event and forward it unchanged
    check           Load and validate a keymap, print a summary
    list-devices    List input devices (keyboards are marked with *)
    list-keys       List the key codes an input device reports
    doctor          Check permissions and optional collaborators
    version         Print the version
    help            Show this help message

OPTIONS (run):
    -config PATH    Keymap file, YAML or TOML (default: ` + config.ConfigPath() + `)
    -device PATH    Input device to grab; may be repeated (default: all keyboards)
    -watch          Reload the keymap when the file changes

ENVIRONMENT:
    KEYMAPD_DEVICES        Comma-separated device paths
    KEYMAPD_LOG_LEVEL      debug, info, warn or error
    KEYMAPD_LOG_FILE       Log file path
    KEYMAPD_NOTIFICATIONS  true or false

keymapd needs read access to /dev/input/event* and write access to
/dev/uinput, usually by running as root or as a member of the input group.`)
}

// deviceList is a repeatable -device flag.
type deviceList []string

func (d *deviceList) String() string {
	return strings.Join(*d, ",")
}

func (d *deviceList) Set(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("device path cannot be empty")
	}
	*d = append(*d, path)
	return nil
}

func cmdCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", config.ConfigPath(), "keymap file to check")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		if config.IsValidationError(err) {
			return fmt.Errorf("%s: invalid keymap: %w", *configPath, err)
		}
		return fmt.Errorf("%s: %w", *configPath, err)
	}
	table, err := engine.BuildTable(cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", *configPath, err)
	}

	fmt.Printf("%s: OK\n", *configPath)
	fmt.Printf("Groups: %d\n", len(cfg.Groups))
	if len(cfg.Modes) == 0 {
		fmt.Printf("Bindings: %d\n", table.Len(""))
	} else {
		fmt.Printf("Modes: %d (default: %s)\n", len(cfg.Modes), orNone(cfg.DefaultMode()))
		for _, name := range cfg.ModeNames() {
			fmt.Printf("  %-16s %d bindings\n", name, table.Len(name))
		}
	}
	for _, w := range cfg.Warnings() {
		fmt.Printf("Warning: %s\n", w)
	}
	return nil
}

const (
	// crashRetention is how long crash reports are kept.
	crashRetention = 30 * 24 * time.Hour
	// crashWindow is how far back doctor looks for crashes.
	crashWindow = 7 * 24 * time.Hour
)

// crashCheck degrades the doctor report when the daemon crashed within
// window, naming the latest panic.
func crashCheck(crashes *logging.CrashHandler, window time.Duration) health.Check {
	return func(context.Context) (string, error) {
		reports, err := crashes.Reports()
		if err != nil {
			return crashes.Dir(), err
		}
		cutoff := time.Now().Add(-window)
		var recent []logging.CrashReport
		for _, r := range reports {
			if r.Timestamp.After(cutoff) {
				recent = append(recent, r)
			}
		}
		if len(recent) == 0 {
			return fmt.Sprintf("no crashes in %s", crashes.Dir()), nil
		}
		latest := recent[len(recent)-1]
		return fmt.Sprintf("%d recent crash report(s) in %s", len(recent), crashes.Dir()),
			fmt.Errorf("last crash at %s: %s", latest.Timestamp.Format(time.RFC3339), latest.PanicValue)
	}
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
