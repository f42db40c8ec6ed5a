package blockstore

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"

	"github.com/sagarc03/ipgate"
)

// Cached keeps recently read blocks in a size bounded ristretto cache in
// front of another Blockstore.
type Cached struct {
	next  ipgate.Blockstore
	cache *ristretto.Cache[string, []byte]
}

var _ ipgate.Blockstore = (*Cached)(nil)

func NewCached(next ipgate.Blockstore, maxBytes int64) (*Cached, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 1e5,
		MaxCost:     maxBytes,
		BufferItems: 64,
		Cost:        func(v []byte) int64 { return int64(len(v)) },
	})
	if err != nil {
		return nil, fmt.Errorf("create block cache: %w", err)
	}
	return &Cached{next: next, cache: cache}, nil
}

func (c *Cached) Get(ctx context.Context, id cid.Cid) (blocks.Block, error) {
	if data, ok := c.cache.Get(string(id.Hash())); ok {
		return blocks.NewBlockWithCid(data, id)
	}

	blk, err := c.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Set(string(id.Hash()), blk.RawData(), 0)
	return blk, nil
}

func (c *Cached) GetSize(ctx context.Context, id cid.Cid) (int64, error) {
	if data, ok := c.cache.Get(string(id.Hash())); ok {
		return int64(len(data)), nil
	}
	return c.next.GetSize(ctx, id)
}

func (c *Cached) Has(ctx context.Context, id cid.Cid) (bool, error) {
	if _, ok := c.cache.Get(string(id.Hash())); ok {
		return true, nil
	}
	return c.next.Has(ctx, id)
}

func (c *Cached) Put(ctx context.Context, blk blocks.Block) error {
	return c.next.Put(ctx, blk)
}

// Wait blocks until pending cache writes are applied.
func (c *Cached) Wait() {
	c.cache.Wait()
}

func (c *Cached) Close() {
	c.cache.Close()
}
