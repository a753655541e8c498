package sched

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	yaml "github.com/goccy/go-yaml"
)

// Config mirrors config.yml
type Config struct {
	TickMS int `yaml:"tick_ms"` // 7 (by default, ~145 ticks per second)

	TaskChunkSize      int `yaml:"task_chunk_size"`      // 256
	TaskPreallocChunks int `yaml:"task_prealloc_chunks"` // 1
	TaskMaxChunks      int `yaml:"task_max_chunks"`      // 16

	StackSize           int `yaml:"stack_size"`            // 64KB per task
	StackChunkSize      int `yaml:"stack_chunk_size"`      // 128 blocks per chunk
	StackPreallocChunks int `yaml:"stack_prealloc_chunks"` // 0
	StackMaxChunks      int `yaml:"stack_max_chunks"`      // 0 = grow without limit

	LogLevel string `yaml:"log_level"` // debug, info, warn, error
}

// DefaultConfig is used when no config file is found.
func DefaultConfig() Config {
	return Config{
		TickMS:              7,
		TaskChunkSize:       256,
		TaskPreallocChunks:  1,
		TaskMaxChunks:       16,
		StackSize:           64 * 1024,
		StackChunkSize:      128,
		StackPreallocChunks: 0,
		StackMaxChunks:      0,
		LogLevel:            "info",
	}
}

// Load reads YAML and overrides defaults; empty path or unreadable file = defaults only.
func Load(path string) Config {
	cfg, err := LoadFile(path)
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}

// LoadFile is Load that reports read and parse failures.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg.clamped(), nil
}

// sanity clamps
func (c Config) clamped() Config {
	d := DefaultConfig()
	if c.TickMS <= 0 {
		c.TickMS = d.TickMS
	}
	if c.TaskChunkSize <= 0 {
		c.TaskChunkSize = d.TaskChunkSize
	}
	if c.TaskPreallocChunks < 0 {
		c.TaskPreallocChunks = 0
	}
	if c.TaskMaxChunks < 0 {
		c.TaskMaxChunks = 0
	}
	if c.StackSize <= 0 {
		c.StackSize = d.StackSize
	}
	if c.StackChunkSize <= 0 {
		c.StackChunkSize = d.StackChunkSize
	}
	if c.StackPreallocChunks < 0 {
		c.StackPreallocChunks = 0
	}
	if c.StackMaxChunks < 0 {
		c.StackMaxChunks = 0
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	return c
}

// Level maps LogLevel to a slog level; unknown names mean info.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
