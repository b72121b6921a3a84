//go:build linux

package input

import (
	"fmt"
	"os"

	evdev "github.com/holoplot/go-evdev"
)

const procDevices = "/proc/bus/input/devices"

// List enumerates /dev/input/event* nodes, sorted by path length then
// name. Keyboard detection uses /proc/bus/input/devices when readable.
func List() ([]Info, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, fmt.Errorf("list input devices: %w", err)
	}

	keyboards := make(map[string]bool)
	if f, err := os.Open(procDevices); err == nil {
		for _, info := range parseProcDevices(f) {
			keyboards[info.Path] = info.Keyboard
		}
		f.Close()
	}

	infos := make([]Info, 0, len(paths))
	for _, p := range paths {
		infos = append(infos, Info{Path: p.Path, Name: p.Name, Keyboard: keyboards[p.Path]})
	}
	SortInfos(infos)
	return infos, nil
}

// Keyboards returns the paths of every device that looks like a keyboard.
func Keyboards() ([]string, error) {
	infos, err := List()
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, info := range infos {
		if info.Keyboard {
			paths = append(paths, info.Path)
		}
	}
	return paths, nil
}

// KeyCodes returns the device name and the EV_KEY codes it reports.
func KeyCodes(path string) (string, []evdev.EvCode, error) {
	dev, err := evdev.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer dev.Close()

	name, err := dev.Name()
	if err != nil {
		return "", nil, fmt.Errorf("read name of %s: %w", path, err)
	}
	return name, dev.CapableEvents(evdev.EV_KEY), nil
}
