package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Memory MemoryConfig `json:"memory"`
	Store  StoreConfig  `json:"store"`
	Sweep  SweepConfig  `json:"sweep"`
	Chat   ChatConfig   `json:"chat"`
	mu     sync.RWMutex
}

type MemoryConfig struct {
	LongTermCapacity        int `json:"long_term_capacity" env:"CHATMEM_MEMORY_LONG_TERM_CAPACITY"`
	RetentionThresholdChars int `json:"retention_threshold_chars" env:"CHATMEM_MEMORY_RETENTION_THRESHOLD_CHARS"`
	ShortTermCap            int `json:"short_term_cap" env:"CHATMEM_MEMORY_SHORT_TERM_CAP"`
	SessionCacheSize        int `json:"session_cache_size" env:"CHATMEM_MEMORY_SESSION_CACHE_SIZE"`
	JournalBuffer           int `json:"journal_buffer" env:"CHATMEM_MEMORY_JOURNAL_BUFFER"`
}

type StoreConfig struct {
	Enabled bool   `json:"enabled" env:"CHATMEM_STORE_ENABLED"`
	Path    string `json:"path" env:"CHATMEM_STORE_PATH"`
}

type SweepConfig struct {
	Enabled     bool   `json:"enabled" env:"CHATMEM_SWEEP_ENABLED"`
	Schedule    string `json:"schedule" env:"CHATMEM_SWEEP_SCHEDULE"`
	IdleMinutes int    `json:"idle_minutes" env:"CHATMEM_SWEEP_IDLE_MINUTES"`
}

type ChatConfig struct {
	SessionID string `json:"session_id" env:"CHATMEM_CHAT_SESSION_ID"`
}

func DefaultConfig() *Config {
	return &Config{
		Memory: MemoryConfig{
			LongTermCapacity:        5,
			RetentionThresholdChars: 20,
			ShortTermCap:            0,
			SessionCacheSize:        0,
			JournalBuffer:           256,
		},
		Store: StoreConfig{
			Enabled: true,
			Path:    "~/.chatmem/state/sessions.db",
		},
		Sweep: SweepConfig{
			Enabled:     false,
			Schedule:    "*/10 * * * *",
			IdleMinutes: 240,
		},
		Chat: ChatConfig{
			SessionID: "cli:default",
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := env.Parse(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Validate rejects values the memory manager would refuse at construction.
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Memory.LongTermCapacity < 0 {
		return fmt.Errorf("memory.long_term_capacity must be >= 0, got %d", c.Memory.LongTermCapacity)
	}
	if c.Memory.SessionCacheSize < 0 {
		return fmt.Errorf("memory.session_cache_size must be >= 0, got %d", c.Memory.SessionCacheSize)
	}
	if c.Sweep.Enabled && c.Sweep.IdleMinutes <= 0 {
		return fmt.Errorf("sweep.idle_minutes must be > 0 when sweep is enabled, got %d", c.Sweep.IdleMinutes)
	}
	return nil
}

// StorePath returns the snapshot database path with ~ expanded.
func (c *Config) StorePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return expandHome(c.Store.Path)
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
