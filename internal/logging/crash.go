package logging

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"keymapd/internal/config"
)

// CrashReport is written as JSON when the daemon panics.
type CrashReport struct {
	Timestamp    time.Time         `json:"timestamp"`
	Version      string            `json:"version"`
	GOOS         string            `json:"goos"`
	GOARCH       string            `json:"goarch"`
	NumGoroutine int               `json:"num_goroutine"`
	PanicValue   string            `json:"panic_value"`
	StackTrace   string            `json:"stack_trace"`
	Context      map[string]string `json:"context,omitempty"`
}

// CrashHandler recovers panics, writes a crash report and re-panics.
//
// keymapd holds an exclusive grab on the user's keyboards; the deferred
// ungrab in the event loop still runs while the panic unwinds, so a crash
// never leaves the keyboard captured.
type CrashHandler struct {
	mu      sync.Mutex
	dir     string
	version string
	logger  *slog.Logger
	context map[string]string
}

// NewCrashHandler creates a handler writing to dir. An empty dir selects
// the XDG state directory.
func NewCrashHandler(dir, version string, logger *slog.Logger) *CrashHandler {
	if dir == "" {
		dir = config.DefaultCrashDir()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CrashHandler{
		dir:     dir,
		version: version,
		logger:  logger,
		context: make(map[string]string),
	}
}

// Dir returns the crash report directory.
func (h *CrashHandler) Dir() string {
	return h.dir
}

// Set records a key/value pair included in every later report.
func (h *CrashHandler) Set(key, value string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.context[key] = value
}

// Guard runs fn, reporting and re-raising any panic.
func (h *CrashHandler) Guard(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			h.Report(r)
			panic(r)
		}
	}()
	fn()
}

// Report writes a crash report for panicValue and returns its path.
func (h *CrashHandler) Report(panicValue any) string {
	h.mu.Lock()
	ctx := make(map[string]string, len(h.context))
	for k, v := range h.context {
		ctx[k] = v
	}
	h.mu.Unlock()

	report := CrashReport{
		Timestamp:    time.Now().UTC(),
		Version:      h.version,
		GOOS:         runtime.GOOS,
		GOARCH:       runtime.GOARCH,
		NumGoroutine: runtime.NumGoroutine(),
		PanicValue:   fmt.Sprint(panicValue),
		StackTrace:   string(debug.Stack()),
		Context:      ctx,
	}

	path, err := h.write(report)
	if err != nil {
		h.logger.Error("failed to write crash report", "error", err)
		fmt.Fprintf(os.Stderr, "keymapd panic: %s\n%s\n", report.PanicValue, report.StackTrace)
		return ""
	}
	h.logger.Error("keymapd crashed", "panic", report.PanicValue, "report", path)
	return path
}

func (h *CrashHandler) write(report CrashReport) (string, error) {
	if err := os.MkdirAll(h.dir, 0750); err != nil {
		return "", fmt.Errorf("create crash directory: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal crash report: %w", err)
	}
	name := fmt.Sprintf("crash-%s.json", report.Timestamp.Format("20060102-150405.000000"))
	path := filepath.Join(h.dir, name)
	if err := os.WriteFile(path, data, 0640); err != nil {
		return "", fmt.Errorf("write crash report: %w", err)
	}
	return path, nil
}

// Reports returns the stored crash reports, oldest first.
func (h *CrashHandler) Reports() ([]CrashReport, error) {
	files, err := filepath.Glob(filepath.Join(h.dir, "crash-*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	reports := make([]CrashReport, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			continue
		}
		var report CrashReport
		if err := json.Unmarshal(data, &report); err != nil {
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// Prune removes reports older than maxAge.
func (h *CrashHandler) Prune(maxAge time.Duration) error {
	files, err := filepath.Glob(filepath.Join(h.dir, "crash-*.json"))
	if err != nil {
		return err
	}
	cutoff := time.Now().Add(-maxAge)
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(file)
		}
	}
	return nil
}
