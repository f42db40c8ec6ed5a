// Package postgres stores blocks in a PostgreSQL table through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sagarc03/ipgate"
)

// Store is a Blockstore backed by a pgx connection pool.
type Store struct {
	pool      *pgxpool.Pool
	tableName string
}

var _ ipgate.Blockstore = (*Store)(nil)

// Connect establishes a connection pool to PostgreSQL.
// Call Migrate and Validate before serving requests.
func Connect(ctx context.Context, dsn string, tables ipgate.Tables) (*Store, error) {
	if err := tables.Validate(); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	return &Store{pool: pool, tableName: tables.Blocks}, nil
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate creates the block table.
func (s *Store) Migrate(ctx context.Context) error {
	if err := createBlocksTable(ctx, s.pool, s.tableName); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Drop removes the block table.
func (s *Store) Drop(ctx context.Context) error {
	return dropBlocksTable(ctx, s.pool, s.tableName)
}

// Validate checks that the database schema matches the expected structure.
func (s *Store) Validate(ctx context.Context) error {
	return ValidateSchema(ctx, s.pool, ipgate.Tables{Blocks: s.tableName})
}

func (s *Store) Get(ctx context.Context, c cid.Cid) (blocks.Block, error) {
	query := fmt.Sprintf(`SELECT data FROM %s WHERE multihash = $1`, pgx.Identifier{s.tableName}.Sanitize()) //nolint:gosec // G201: table name is validated

	var data []byte
	err := s.pool.QueryRow(ctx, query, []byte(c.Hash())).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("block %s: %w", c, ipgate.ErrNotFound)
		}
		return nil, fmt.Errorf("get: %w", err)
	}

	return blocks.NewBlockWithCid(data, c)
}

func (s *Store) GetSize(ctx context.Context, c cid.Cid) (int64, error) {
	query := fmt.Sprintf(`SELECT size FROM %s WHERE multihash = $1`, pgx.Identifier{s.tableName}.Sanitize()) //nolint:gosec // G201: table name is validated

	var size int64
	err := s.pool.QueryRow(ctx, query, []byte(c.Hash())).Scan(&size)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("block %s: %w", c, ipgate.ErrNotFound)
		}
		return 0, fmt.Errorf("get size: %w", err)
	}
	return size, nil
}

func (s *Store) Has(ctx context.Context, c cid.Cid) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE multihash = $1)`, pgx.Identifier{s.tableName}.Sanitize()) //nolint:gosec // G201: table name is validated

	var exists bool
	if err := s.pool.QueryRow(ctx, query, []byte(c.Hash())).Scan(&exists); err != nil {
		return false, fmt.Errorf("has: %w", err)
	}
	return exists, nil
}

func (s *Store) Put(ctx context.Context, blk blocks.Block) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (multihash, data, size) VALUES ($1, $2, $3)
		ON CONFLICT (multihash) DO NOTHING`, pgx.Identifier{s.tableName}.Sanitize())

	data := blk.RawData()
	if _, err := s.pool.Exec(ctx, query, []byte(blk.Cid().Hash()), data, int64(len(data))); err != nil {
		return fmt.Errorf("put %s: %w", blk.Cid(), err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
