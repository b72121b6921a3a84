package input

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Info describes an input device node.
type Info struct {
	Path     string
	Name     string
	Keyboard bool
}

// SortInfos orders devices by path length, then lexicographically, so
// event2 sorts before event10.
func SortInfos(infos []Info) {
	sort.SliceStable(infos, func(i, j int) bool {
		a, b := infos[i].Path, infos[j].Path
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
}

// parseProcDevices reads /proc/bus/input/devices and returns one Info per
// block that exposes an event handler. A block counts as a keyboard when
// its handlers include "kbd" and its EV bitmap has EV_KEY and EV_REP,
// which excludes power buttons and mice.
func parseProcDevices(r io.Reader) []Info {
	var (
		infos   []Info
		current Info
		hasKbd  bool
		evMask  uint64
	)

	flush := func() {
		if current.Path != "" {
			const evKey, evRep = 1 << 0x01, 1 << 0x14
			current.Keyboard = hasKbd && evMask&evKey != 0 && evMask&evRep != 0
			infos = append(infos, current)
		}
		current, hasKbd, evMask = Info{}, false, 0
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "":
			flush()

		// N: Name="AT Translated Set 2 keyboard"
		case strings.HasPrefix(line, "N: Name="):
			current.Name = strings.Trim(strings.TrimPrefix(line, "N: Name="), `"`)

		// H: Handlers=sysrq kbd event3 leds
		case strings.HasPrefix(line, "H: Handlers="):
			for _, part := range strings.Fields(strings.TrimPrefix(line, "H: Handlers=")) {
				switch {
				case part == "kbd":
					hasKbd = true
				case strings.HasPrefix(part, "event"):
					current.Path = "/dev/input/" + part
				}
			}

		// B: EV=120013
		case strings.HasPrefix(line, "B: EV="):
			evMask = parseHexMask(strings.TrimPrefix(line, "B: EV="))
		}
	}
	flush()

	return infos
}

func parseHexMask(s string) uint64 {
	v, _ := strconv.ParseUint(strings.TrimSpace(s), 16, 64)
	return v
}
