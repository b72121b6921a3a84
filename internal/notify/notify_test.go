package notify

import (
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObject struct {
	method string
	args   []interface{}
	err    error
}

func (f *fakeObject) Call(method string, _ dbus.Flags, args ...interface{}) *dbus.Call {
	f.method = method
	f.args = args
	return &dbus.Call{Err: f.err}
}

func TestNotify(t *testing.T) {
	obj := &fakeObject{}
	n := &Notifier{obj: obj, appName: "keymapd", timeout: DefaultTimeout}

	require.NoError(t, n.Notify("keymapd", "keymapd is switching to insert mode."))
	assert.Equal(t, "org.freedesktop.Notifications.Notify", obj.method)
	require.Len(t, obj.args, 8)
	assert.Equal(t, "keymapd", obj.args[0])
	assert.Equal(t, uint32(0), obj.args[1])
	assert.Equal(t, "keymapd", obj.args[3])
	assert.Equal(t, "keymapd is switching to insert mode.", obj.args[4])
	assert.Equal(t, int32(2000), obj.args[7])
}

func TestNotifyError(t *testing.T) {
	n := &Notifier{obj: &fakeObject{err: errors.New("service unknown")}}
	assert.ErrorContains(t, n.Notify("a", "b"), "service unknown")
	assert.NoError(t, n.Close())
}
