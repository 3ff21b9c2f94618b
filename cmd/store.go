package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/giovannicarmo/ecoleta-ui/internal/config"
	"github.com/giovannicarmo/ecoleta-ui/internal/regions"
	"github.com/giovannicarmo/ecoleta-ui/internal/store"
	"github.com/giovannicarmo/ecoleta-ui/pkg/ecoleta"
	"github.com/giovannicarmo/ecoleta-ui/pkg/ibge"
)

func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "ecoleta.db"
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, poolConfig(cfg.Store))
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

func poolConfig(c config.StoreConfig) *store.PoolConfig {
	return &store.PoolConfig{MaxConns: c.MaxConns, MinConns: c.MinConns}
}

func initRegions(cache regions.Cache) *regions.Service {
	client := ibge.NewClient(
		ibge.WithBaseURL(cfg.IBGE.BaseURL),
		ibge.WithTimeout(time.Duration(cfg.IBGE.TimeoutSecs)*time.Second),
		ibge.WithRateLimit(cfg.IBGE.RateLimit),
	)
	ttl := time.Duration(cfg.Lookup.CacheTTLHours) * time.Hour
	return regions.NewService(client, cache, ttl)
}

func initBackend() ecoleta.Client {
	return ecoleta.NewClient(cfg.Backend.BaseURL,
		ecoleta.WithTimeout(time.Duration(cfg.Backend.TimeoutSecs)*time.Second),
	)
}
