package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_MemoryDefaults(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 5, cfg.Memory.LongTermCapacity)
	assert.Equal(t, 20, cfg.Memory.RetentionThresholdChars)
	assert.Equal(t, 0, cfg.Memory.ShortTermCap)
	assert.Equal(t, 0, cfg.Memory.SessionCacheSize)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Memory.LongTermCapacity)
	assert.Equal(t, "cli:default", cfg.Chat.SessionID)
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := DefaultConfig()
	cfg.Memory.LongTermCapacity = 9
	cfg.Chat.SessionID = "cli:custom"
	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9, loaded.Memory.LongTermCapacity)
	assert.Equal(t, "cli:custom", loaded.Chat.SessionID)
	// Untouched fields keep their defaults.
	assert.Equal(t, 20, loaded.Memory.RetentionThresholdChars)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, SaveConfig(path, DefaultConfig()))

	t.Setenv("CHATMEM_MEMORY_LONG_TERM_CAPACITY", "7")
	t.Setenv("CHATMEM_SWEEP_ENABLED", "true")

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Memory.LongTermCapacity)
	assert.True(t, loaded.Sweep.Enabled)
}

func TestValidate_RejectsNegativeCapacity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Memory.LongTermCapacity = -1
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Memory.SessionCacheSize = -2
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Sweep.Enabled = true
	cfg.Sweep.IdleMinutes = 0
	assert.Error(t, cfg.Validate())
}

func TestStorePath_ExpandsHome(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Path = "~/state/sessions.db"

	path := cfg.StorePath()
	assert.NotContains(t, path, "~")
	assert.True(t, filepath.IsAbs(path))
}
