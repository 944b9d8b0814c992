// Package config loads the YAML file that tunes an agdb instance: where
// its file lives, how storage.Open backs it, logging, and whether Close
// shrinks the file.
package config

import (
	"fmt"
	"os"

	"github.com/agnesoft/agdb-go/pkg/agdb"
	"github.com/agnesoft/agdb-go/pkg/log"
	"gopkg.in/yaml.v3"
)

// Config is the root of an agdb YAML config file.
type Config struct {
	// Database is the path to the database file. Required.
	Database string `yaml:"database"`
	// Mirror keeps an in-memory mirror of the file alongside the file
	// itself, trading memory for avoiding a read syscall per access.
	Mirror bool `yaml:"mirror"`
	// ShrinkOnClose runs shrink_to_fit when the database is closed.
	// Defaults to true when the key is absent (see Load).
	ShrinkOnClose *bool `yaml:"shrinkOnClose"`
	Log           Log   `yaml:"log"`
}

// Log configures the structured logger every other package writes
// through (pkg/log).
type Log struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load reads and parses filename into a Config, filling in defaults for
// any field the file omits.
func Load(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("read config %q: %w", filename, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %q: %w", filename, err)
	}
	if cfg.Database == "" {
		return Config{}, fmt.Errorf("config %q: database path is required", filename)
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.ShrinkOnClose == nil {
		t := true
		cfg.ShrinkOnClose = &t
	}
	return cfg, nil
}

// InitLogging wires pkg/log up to the levels this config names.
func (c Config) InitLogging() {
	log.Init(log.Config{Level: log.Level(c.Log.Level), JSONOutput: c.Log.JSON})
}

// Open opens the database this config names using agdb.OpenWithOptions.
func (c Config) Open() (*agdb.DB, error) {
	return agdb.OpenWithOptions(c.Database, agdb.Options{
		Mirror:        c.Mirror,
		ShrinkOnClose: *c.ShrinkOnClose,
	})
}
