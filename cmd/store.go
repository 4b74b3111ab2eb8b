package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/regdesk/circular-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "circular.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
