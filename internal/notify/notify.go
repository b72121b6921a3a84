// Package notify sends desktop notifications over the freedesktop D-Bus
// notification service.
package notify

import (
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	busName    = "org.freedesktop.Notifications"
	objectPath = "/org/freedesktop/Notifications"
	method     = busName + ".Notify"
)

// DefaultTimeout is how long a notification stays on screen.
const DefaultTimeout = 2000 * time.Millisecond

// caller is the subset of dbus.BusObject used here.
type caller interface {
	Call(method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// Notifier delivers notifications on the session bus.
type Notifier struct {
	conn    *dbus.Conn
	obj     caller
	appName string
	timeout time.Duration
}

// New connects to the session bus.
func New(appName string) (*Notifier, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return &Notifier{
		conn:    conn,
		obj:     conn.Object(busName, dbus.ObjectPath(objectPath)),
		appName: appName,
		timeout: DefaultTimeout,
	}, nil
}

// Notify shows a notification. Errors are returned for logging only;
// notification delivery is best-effort.
func (n *Notifier) Notify(summary, body string) error {
	call := n.obj.Call(method, 0,
		n.appName,                 // app_name
		uint32(0),                 // replaces_id
		"",                        // app_icon
		summary,                   // summary
		body,                      // body
		[]string{},                // actions
		map[string]dbus.Variant{}, // hints
		int32(n.timeout/time.Millisecond),
	)
	if call.Err != nil {
		return fmt.Errorf("notify: %w", call.Err)
	}
	return nil
}

// Close releases the bus connection.
func (n *Notifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Close()
}
