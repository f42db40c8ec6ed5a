package blockstore

import (
	"context"
	"fmt"
	"sync"

	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"

	"github.com/sagarc03/ipgate"
)

// Memory is a map backed Blockstore. Blocks are keyed by multihash so the
// same content under CIDv0 and CIDv1 is stored once.
type Memory struct {
	mu     sync.RWMutex
	blocks map[string][]byte
}

var _ ipgate.Blockstore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{blocks: make(map[string][]byte)}
}

func (m *Memory) Get(ctx context.Context, c cid.Cid) (blocks.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	data, ok := m.blocks[string(c.Hash())]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("block %s: %w", c, ipgate.ErrNotFound)
	}
	return blocks.NewBlockWithCid(data, c)
}

func (m *Memory) GetSize(ctx context.Context, c cid.Cid) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.RLock()
	data, ok := m.blocks[string(c.Hash())]
	m.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("block %s: %w", c, ipgate.ErrNotFound)
	}
	return int64(len(data)), nil
}

func (m *Memory) Has(ctx context.Context, c cid.Cid) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.RLock()
	_, ok := m.blocks[string(c.Hash())]
	m.mu.RUnlock()
	return ok, nil
}

func (m *Memory) Put(ctx context.Context, blk blocks.Block) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.blocks[string(blk.Cid().Hash())] = blk.RawData()
	m.mu.Unlock()
	return nil
}

// Delete removes a block. Missing blocks are not an error.
func (m *Memory) Delete(ctx context.Context, c cid.Cid) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.blocks, string(c.Hash()))
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored blocks.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blocks)
}
