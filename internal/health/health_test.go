package health

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunKeepsRegistrationOrder(t *testing.T) {
	c := NewChecker()
	c.RegisterFunc("slow", true, func(context.Context) (string, error) {
		time.Sleep(20 * time.Millisecond)
		return "ok", nil
	})
	c.RegisterFunc("fast", false, func(context.Context) (string, error) {
		return "ok", nil
	})

	results := c.Run(context.Background())
	require.Len(t, results, 2)
	assert.Equal(t, "slow", results[0].Name)
	assert.Equal(t, "fast", results[1].Name)
	assert.Equal(t, StatusHealthy, Overall(results))
}

func TestCriticalFailure(t *testing.T) {
	c := NewChecker()
	c.RegisterFunc("xprop", false, func(context.Context) (string, error) {
		return "", errors.New("not found")
	})
	results := c.Run(context.Background())
	assert.Equal(t, StatusDegraded, results[0].Status)
	assert.Equal(t, StatusDegraded, Overall(results))

	c.RegisterFunc("uinput", true, func(context.Context) (string, error) {
		return "/dev/uinput", errors.New("permission denied")
	})
	results = c.Run(context.Background())
	assert.Equal(t, StatusUnhealthy, results[1].Status)
	assert.Equal(t, "permission denied", results[1].Error)
	assert.Equal(t, StatusUnhealthy, Overall(results))
}

func TestTimeoutAndPanic(t *testing.T) {
	c := NewChecker()
	c.Register(&Component{
		Name:     "hang",
		Critical: true,
		Timeout:  10 * time.Millisecond,
		Check: func(ctx context.Context) (string, error) {
			<-ctx.Done()
			time.Sleep(50 * time.Millisecond)
			return "", nil
		},
	})
	c.RegisterFunc("panic", false, func(context.Context) (string, error) {
		panic("boom")
	})

	results := c.Run(context.Background())
	assert.Equal(t, "check timed out", results[0].Message)
	assert.Equal(t, StatusUnhealthy, results[0].Status)
	assert.Equal(t, "check panicked", results[1].Message)
	assert.Equal(t, "boom", results[1].Error)
}

func TestFileChecks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dev")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	_, err := FileReadable(path)(context.Background())
	assert.NoError(t, err)
	_, err = FileWritable(path)(context.Background())
	assert.NoError(t, err)
	_, err = FileReadable(filepath.Join(dir, "missing"))(context.Background())
	assert.Error(t, err)

	_, err = DirWritable(filepath.Join(dir, "state", "keymapd"))(context.Background())
	assert.NoError(t, err)
	entries, err := os.ReadDir(filepath.Join(dir, "state", "keymapd"))
	require.NoError(t, err)
	assert.Empty(t, entries, "probe file is removed")
}

func TestCommandAvailable(t *testing.T) {
	_, err := CommandAvailable("sh")(context.Background())
	assert.NoError(t, err)
	_, err = CommandAvailable("keymapd-no-such-command")(context.Background())
	assert.Error(t, err)
}
