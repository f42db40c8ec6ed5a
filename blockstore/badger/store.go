// Package badger stores blocks in an embedded Badger key-value database.
package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"

	"github.com/sagarc03/ipgate"
)

// Keys are the raw multihash bytes under a fixed prefix so the
// database can hold other namespaces later.
var keyPrefix = []byte("/blocks/")

type Store struct {
	db *badger.DB
}

var _ ipgate.Blockstore = (*Store)(nil)

// Open opens or creates a database in dir. An empty dir keeps
// everything in memory.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: db}, nil
}

func blockKey(c cid.Cid) []byte {
	h := c.Hash()
	key := make([]byte, 0, len(keyPrefix)+len(h))
	key = append(key, keyPrefix...)
	return append(key, h...)
}

func (s *Store) Get(ctx context.Context, c cid.Cid) (blocks.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(blockKey(c))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("block %s: %w", c, ipgate.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}

	return blocks.NewBlockWithCid(data, c)
}

func (s *Store) GetSize(ctx context.Context, c cid.Cid) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var size int64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(blockKey(c))
		if err != nil {
			return err
		}
		size = item.ValueSize()
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, fmt.Errorf("block %s: %w", c, ipgate.ErrNotFound)
	}
	if err != nil {
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
		return false, err
	}
	return true, nil
}

func (s *Store) Put(ctx context.Context, blk blocks.Block) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(blockKey(blk.Cid()), blk.RawData())
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", blk.Cid(), err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
