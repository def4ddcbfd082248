package main

import (
	"fmt"

	"github.com/reviewbot/codegraph/internal/store"
)

// openStore builds the store backend selected by configuration.
func openStore() (store.Store, error) {
	switch cfg.Store.Backend {
	case "postgres":
		return store.NewPostgresStore(cfg.Store.PostgresDSN, logger)
	case "sqlite", "":
		return store.NewSQLiteStore(cfg.Store.SQLitePath, logger)
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}
}
