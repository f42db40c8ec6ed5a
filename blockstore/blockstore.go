// Package blockstore opens the configured block storage backend.
package blockstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sagarc03/ipgate"
	"github.com/sagarc03/ipgate/blockstore/badger"
	"github.com/sagarc03/ipgate/blockstore/flatfs"
	"github.com/sagarc03/ipgate/blockstore/postgres"
	"github.com/sagarc03/ipgate/blockstore/remote"
	"github.com/sagarc03/ipgate/blockstore/sqlite"
)

// Config holds the configuration for a block storage backend.
type Config struct {
	// Type is one of memory, sqlite, postgres, badger, flatfs or remote
	Type string
	// DSN is the connection string for sqlite and postgres
	DSN string
	// Table is the block table name for sqlite and postgres
	Table string
	// Path is the directory for badger and flatfs
	Path string
	// URL is the upstream gateway for remote
	URL        string
	MaxRetries uint64
	Timeout    time.Duration
	// CacheSize enables an in-memory read cache of this many bytes when positive
	CacheSize int64
	Logger    *slog.Logger
}

// Open connects to the configured backend, preparing its schema where
// needed. The returned cleanup function releases the backend.
func Open(ctx context.Context, cfg Config) (ipgate.Blockstore, func(), error) {
	bs, cleanup, err := open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	if cfg.CacheSize > 0 {
		cached, err := NewCached(bs, cfg.CacheSize)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		return cached, func() {
			cached.Close()
			cleanup()
		}, nil
	}

	return bs, cleanup, nil
}

func open(ctx context.Context, cfg Config) (ipgate.Blockstore, func(), error) {
	switch cfg.Type {
	case "memory":
		return NewMemory(), func() {}, nil
	case "sqlite":
		return openSQLite(ctx, cfg)
	case "postgres":
		return openPostgres(ctx, cfg)
	case "badger":
		store, err := badger.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case "flatfs":
		store, err := flatfs.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case "remote":
		store, err := remote.New(remote.Config{
			URL:        cfg.URL,
			MaxRetries: cfg.MaxRetries,
			Timeout:    cfg.Timeout,
			Logger:     cfg.Logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported blockstore type: %s", cfg.Type)
	}
}

func openSQLite(ctx context.Context, cfg Config) (ipgate.Blockstore, func(), error) {
	store, err := sqlite.Open(ctx, cfg.DSN, ipgate.Tables{Blocks: cfg.Table})
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}

func openPostgres(ctx context.Context, cfg Config) (ipgate.Blockstore, func(), error) {
	store, err := postgres.Connect(ctx, cfg.DSN, ipgate.Tables{Blocks: cfg.Table})
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() { _ = store.Close() }

	if err = store.Ping(ctx); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err = store.Migrate(ctx); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	if err = store.Validate(ctx); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("validate postgres schema: %w", err)
	}

	return store, cleanup, nil
}
