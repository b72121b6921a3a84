package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
groups:
  base:
    key_bindings:
      - {key: C-a, remap: Home}
`

func TestLoaderLoad(t *testing.T) {
	path := writeFile(t, "config.yaml", minimalYAML)

	loader := NewLoader(path)
	defer loader.Close()

	assert.Nil(t, loader.Config())
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Same(t, cfg, loader.Config())
	assert.Equal(t, path, loader.Path())
}

func TestLoaderHotReload(t *testing.T) {
	path := writeFile(t, "config.yaml", minimalYAML)

	loader := NewLoader(path)
	defer loader.Close()

	_, err := loader.Load()
	require.NoError(t, err)

	changed := make(chan *Config, 1)
	loader.OnChange(func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	})
	require.NoError(t, loader.Watch())

	updated := minimalYAML + `
  extra:
    key_bindings:
      - {key: C-e, remap: End}
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0600))

	select {
	case cfg := <-changed:
		assert.Len(t, cfg.Groups, 2)
		assert.Same(t, cfg, loader.Config())
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestLoaderReloadErrorKeepsConfig(t *testing.T) {
	path := writeFile(t, "config.yaml", minimalYAML)

	loader := NewLoader(path)
	defer loader.Close()

	orig, err := loader.Load()
	require.NoError(t, err)
	require.NoError(t, loader.Watch())

	require.NoError(t, os.WriteFile(path, []byte("groups: [broken"), 0600))

	select {
	case err := <-loader.Errors():
		assert.Error(t, err)
		assert.Same(t, orig, loader.Config())
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload error")
	}
}
