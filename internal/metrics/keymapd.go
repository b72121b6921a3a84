package metrics

import (
	"time"
)

// EngineMetrics holds the remapping engine's metrics. A nil *EngineMetrics
// is valid and records nothing.
type EngineMetrics struct {
	registry *Registry

	// Counters
	EventsTotal        *Counter
	ForwardedTotal     *Counter
	RemapsTotal        *Counter
	ShellLaunchesTotal *Counter
	ShellFailuresTotal *Counter
	FocusErrorsTotal   *Counter
	ModeSwitchesTotal  *Counter
	ReloadsTotal       *Counter

	// Gauges
	GrabbedDevices *Gauge
	UptimeSeconds  *Gauge

	// Histograms
	DispatchDuration *Histogram
}

var startTime = time.Now()

// NewEngineMetrics creates and registers all engine metrics.
func NewEngineMetrics(registry *Registry) *EngineMetrics {
	if registry == nil {
		registry = Default()
	}

	return &EngineMetrics{
		registry: registry,

		EventsTotal: registry.RegisterCounter(
			"events_total",
			"Total number of input events read from grabbed devices",
			nil,
		),
		ForwardedTotal: registry.RegisterCounter(
			"forwarded_total",
			"Total number of events forwarded unchanged",
			nil,
		),
		RemapsTotal: registry.RegisterCounter(
			"remaps_total",
			"Total number of remap actions dispatched",
			nil,
		),
		ShellLaunchesTotal: registry.RegisterCounter(
			"shell_launches_total",
			"Total number of shell commands launched",
			nil,
		),
		ShellFailuresTotal: registry.RegisterCounter(
			"shell_failures_total",
			"Total number of shell commands that failed to launch",
			nil,
		),
		FocusErrorsTotal: registry.RegisterCounter(
			"focus_errors_total",
			"Total number of failed focused-window queries",
			nil,
		),
		ModeSwitchesTotal: registry.RegisterCounter(
			"mode_switches_total",
			"Total number of mode transitions",
			nil,
		),
		ReloadsTotal: registry.RegisterCounter(
			"reloads_total",
			"Total number of keymap reloads applied",
			nil,
		),

		GrabbedDevices: registry.RegisterGauge(
			"grabbed_devices",
			"Number of input devices currently grabbed",
			nil,
		),
		UptimeSeconds: registry.RegisterGauge(
			"uptime_seconds",
			"Number of seconds the daemon has been running",
			nil,
		),

		DispatchDuration: registry.RegisterHistogram(
			"dispatch_duration_seconds",
			"Time spent handling a single key event",
			nil,
			LatencyBuckets,
		),
	}
}

// Registry returns the registry the metrics were registered in.
func (m *EngineMetrics) Registry() *Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordEvent records an event read from a device.
func (m *EngineMetrics) RecordEvent() {
	if m != nil {
		m.EventsTotal.Inc()
	}
}

// RecordForward records an event passed through unchanged.
func (m *EngineMetrics) RecordForward() {
	if m != nil {
		m.ForwardedTotal.Inc()
	}
}

// RecordRemap records a dispatched remap.
func (m *EngineMetrics) RecordRemap() {
	if m != nil {
		m.RemapsTotal.Inc()
	}
}

// RecordShell records a shell launch attempt.
func (m *EngineMetrics) RecordShell(success bool) {
	if m == nil {
		return
	}
	m.ShellLaunchesTotal.Inc()
	if !success {
		m.ShellFailuresTotal.Inc()
	}
}

// RecordFocusError records a failed focus query.
func (m *EngineMetrics) RecordFocusError() {
	if m != nil {
		m.FocusErrorsTotal.Inc()
	}
}

// RecordModeSwitch records a mode transition.
func (m *EngineMetrics) RecordModeSwitch() {
	if m != nil {
		m.ModeSwitchesTotal.Inc()
	}
}

// RecordReload records an applied keymap reload.
func (m *EngineMetrics) RecordReload() {
	if m != nil {
		m.ReloadsTotal.Inc()
	}
}

// SetGrabbedDevices sets the number of grabbed devices.
func (m *EngineMetrics) SetGrabbedDevices(n int) {
	if m != nil {
		m.GrabbedDevices.Set(int64(n))
	}
}

// ObserveDispatch records the time spent on one event.
func (m *EngineMetrics) ObserveDispatch(d time.Duration) {
	if m != nil {
		m.DispatchDuration.ObserveDuration(d)
	}
}

// UpdateUptime updates the uptime metric.
func (m *EngineMetrics) UpdateUptime() {
	if m != nil {
		m.UptimeSeconds.Set(int64(time.Since(startTime).Seconds()))
	}
}

// Snapshot returns a snapshot of key metrics.
func (m *EngineMetrics) Snapshot() map[string]interface{} {
	if m == nil {
		return nil
	}
	m.UpdateUptime()
	return map[string]interface{}{
		"events_total":         m.EventsTotal.Value(),
		"forwarded_total":      m.ForwardedTotal.Value(),
		"remaps_total":         m.RemapsTotal.Value(),
		"shell_launches_total": m.ShellLaunchesTotal.Value(),
		"shell_failures_total": m.ShellFailuresTotal.Value(),
		"focus_errors_total":   m.FocusErrorsTotal.Value(),
		"mode_switches_total":  m.ModeSwitchesTotal.Value(),
		"reloads_total":        m.ReloadsTotal.Value(),
		"uptime_seconds":       m.UptimeSeconds.Value(),
		"dispatches_total":     m.DispatchDuration.Count(),
		"dispatch_avg_seconds": m.DispatchDuration.Mean(),
	}
}

// SetBuildInfo publishes the running version as the constant label of a
// gauge fixed at 1.
func (m *EngineMetrics) SetBuildInfo(version string) {
	if m == nil {
		return
	}
	m.registry.RegisterGauge("build_info", "keymapd build information", Labels{"version": version}).Set(1)
}

var defaultRegistry = NewRegistry("keymapd", "")

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}
