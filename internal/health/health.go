// Package health runs the preflight checks behind "keymapd doctor": can
// the keymap be loaded, can the input devices be read, can a virtual
// keyboard be created, and are the optional collaborators reachable.
package health

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"
)

// Status represents the outcome of a check.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult is the outcome of one check.
type CheckResult struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Critical bool          `json:"critical"`
	Message  string        `json:"message,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Check performs one probe. A nil error means healthy; the returned
// message is shown either way.
type Check func(ctx context.Context) (string, error)

// Component is a named check.
type Component struct {
	Name string
	// Critical components make the overall status unhealthy on failure;
	// others only degrade it.
	Critical bool
	Check    Check
	Timeout  time.Duration
}

// Checker runs registered components in parallel and reports them in
// registration order.
type Checker struct {
	mu         sync.Mutex
	components []*Component
}

// NewChecker creates an empty Checker.
func NewChecker() *Checker {
	return &Checker{}
}

// Register adds a component. The default timeout is 5s.
func (c *Checker) Register(component *Component) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if component.Timeout == 0 {
		component.Timeout = 5 * time.Second
	}
	c.components = append(c.components, component)
}

// RegisterFunc registers a check with the default timeout.
func (c *Checker) RegisterFunc(name string, critical bool, check Check) {
	c.Register(&Component{Name: name, Critical: critical, Check: check})
}

// Run executes every check and returns the results in registration order.
func (c *Checker) Run(ctx context.Context) []CheckResult {
	c.mu.Lock()
	components := append([]*Component(nil), c.components...)
	c.mu.Unlock()

	results := make([]CheckResult, len(components))
	var wg sync.WaitGroup
	for i, comp := range components {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = run(ctx, comp)
		}()
	}
	wg.Wait()
	return results
}

func run(ctx context.Context, comp *Component) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, comp.Timeout)
	defer cancel()

	type outcome struct {
		msg string
		err error
	}
	done := make(chan outcome, 1)
	start := time.Now()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{"check panicked", fmt.Errorf("%v", r)}
			}
		}()
		msg, err := comp.Check(ctx)
		done <- outcome{msg, err}
	}()

	var o outcome
	select {
	case o = <-done:
	case <-ctx.Done():
		o = outcome{"check timed out", ctx.Err()}
	}

	result := CheckResult{
		Name:     comp.Name,
		Status:   StatusHealthy,
		Critical: comp.Critical,
		Message:  o.msg,
		Duration: time.Since(start),
	}
	if o.err != nil {
		result.Error = o.err.Error()
		result.Status = StatusDegraded
		if comp.Critical {
			result.Status = StatusUnhealthy
		}
	}
	return result
}

// Overall aggregates results: any critical failure is unhealthy, any
// other failure degraded.
func Overall(results []CheckResult) Status {
	status := StatusHealthy
	for _, r := range results {
		switch r.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}

// ErrNotWritable is returned by FileWritable for read-only files.
var ErrNotWritable = errors.New("not writable")

// FileReadable checks that path can be opened for reading.
func FileReadable(path string) Check {
	return func(context.Context) (string, error) {
		f, err := os.Open(path)
		if err != nil {
			return path, err
		}
		f.Close()
		return path + " is readable", nil
	}
}

// FileWritable checks that an existing path can be opened for writing.
func FileWritable(path string) Check {
	return func(context.Context) (string, error) {
		f, err := os.OpenFile(path, os.O_WRONLY, 0)
		if err != nil {
			if os.IsPermission(err) {
				return path, fmt.Errorf("%s: %w", path, ErrNotWritable)
			}
			return path, err
		}
		f.Close()
		return path + " is writable", nil
	}
}

// DirWritable checks that a file can be created inside dir, creating dir
// when needed.
func DirWritable(dir string) Check {
	return func(context.Context) (string, error) {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return dir, err
		}
		f, err := os.CreateTemp(dir, ".doctor-*")
		if err != nil {
			return dir, err
		}
		name := f.Name()
		f.Close()
		os.Remove(name)
		return dir + " is writable", nil
	}
}

// CommandAvailable checks that name is on PATH.
func CommandAvailable(name string) Check {
	return func(context.Context) (string, error) {
		path, err := exec.LookPath(name)
		if err != nil {
			return name + " not found", err
		}
		return path, nil
	}
}
