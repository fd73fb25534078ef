// Package store provides persistent implementations of evaluation.Store.
package store

import (
	"context"
	"fmt"

	"github.com/kilianp07/forecast/core/evaluation"
)

// Backends.
const (
	BackendNone   = "none"
	BackendJSONL  = "jsonl"
	BackendSQLite = "sqlite"
)

// Config selects and locates the report store.
type Config struct {
	// Backend is "jsonl", "sqlite" or "none".
	Backend string `json:"backend"`
	// Path is the file location of the store.
	Path string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = BackendJSONL
	}
	if c.Path == "" {
		switch c.Backend {
		case BackendSQLite:
			c.Path = "reports.db"
		case BackendJSONL:
			c.Path = "reports.jsonl"
		}
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendNone:
		return nil
	case BackendJSONL, BackendSQLite:
		if c.Path == "" {
			return fmt.Errorf("store: path is required")
		}
		return nil
	default:
		return fmt.Errorf("store: unknown backend %s", c.Backend)
	}
}

// New opens the store selected by cfg.
func New(cfg Config) (evaluation.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendSQLite:
		return NewSQLiteStore(cfg.Path)
	case BackendJSONL:
		return NewJSONLStore(cfg.Path)
	default:
		return NopStore{}, nil
	}
}

// NopStore discards reports.
type NopStore struct{}

func (NopStore) Save(context.Context, evaluation.Report) error { return nil }
func (NopStore) Query(_ context.Context, q evaluation.Query) ([]evaluation.Report, error) {
	return q.Select(nil)
}
func (NopStore) Close() error { return nil }
