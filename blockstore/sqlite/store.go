// Package sqlite stores blocks in a SQLite table using modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"

	"github.com/sagarc03/ipgate"

	_ "modernc.org/sqlite" // SQLite driver
)

// Store is a Blockstore backed by one SQLite table keyed by multihash.
type Store struct {
	db        *sql.DB
	tableName string
}

var _ ipgate.Blockstore = (*Store)(nil)

// Open connects to dsn, migrates and validates the block table.
func Open(ctx context.Context, dsn string, tables ipgate.Tables) (*Store, error) {
	if err := tables.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if dsn == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err = Migrate(ctx, db, tables); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	if err = ValidateSchema(ctx, db, tables); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("validate sqlite schema: %w", err)
	}

	return &Store{db: db, tableName: tables.Blocks}, nil
}

// NewStore wraps an already migrated database.
func NewStore(db *sql.DB, tables ipgate.Tables) (*Store, error) {
	if err := tables.Validate(); err != nil {
		return nil, err
	}
	return &Store{db: db, tableName: tables.Blocks}, nil
}

func (s *Store) Get(ctx context.Context, c cid.Cid) (blocks.Block, error) {
	query := fmt.Sprintf(`SELECT data FROM %s WHERE multihash = ?`, quoteIdentifier(s.tableName)) //nolint:gosec // G201: table name is validated

	var data []byte
	err := s.db.QueryRowContext(ctx, query, []byte(c.Hash())).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("block %s: %w", c, ipgate.ErrNotFound)
		}
		return nil, fmt.Errorf("get: %w", err)
	}

	return blocks.NewBlockWithCid(data, c)
}

func (s *Store) GetSize(ctx context.Context, c cid.Cid) (int64, error) {
	query := fmt.Sprintf(`SELECT size FROM %s WHERE multihash = ?`, quoteIdentifier(s.tableName)) //nolint:gosec // G201: table name is validated

	var size int64
	err := s.db.QueryRowContext(ctx, query, []byte(c.Hash())).Scan(&size)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("block %s: %w", c, ipgate.ErrNotFound)
		}
		return 0, fmt.Errorf("get size: %w", err)
	}
	return size, nil
}

func (s *Store) Has(ctx context.Context, c cid.Cid) (bool, error) {
	_, err := s.GetSize(ctx, c)
	if errors.Is(err, ipgate.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("has: %w", err)
	}
	return true, nil
}

func (s *Store) Put(ctx context.Context, blk blocks.Block) error {
	query := fmt.Sprintf( //nolint:gosec // G201: table name is validated
		`INSERT INTO %s (multihash, data, size, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (multihash) DO NOTHING`, quoteIdentifier(s.tableName))

	data := blk.RawData()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.db.ExecContext(ctx, query, []byte(blk.Cid().Hash()), data, len(data), now); err != nil {
		return fmt.Errorf("put %s: %w", blk.Cid(), err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
