// Package flatfs stores each block as one file under a root directory.
// Files are named by the base32 CIDv1 of the block's multihash and
// sharded into subdirectories by the name's last two characters.
package flatfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"

	"github.com/google/uuid"
	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"

	"github.com/sagarc03/ipgate"
)

const extension = ".data"

// Store provides file system block storage.
type Store struct {
	root *os.Root
}

var _ ipgate.Blockstore = (*Store)(nil)

// NewStore creates a new Store with the given root directory.
// The root provides sandboxed file operations preventing path traversal.
func NewStore(root *os.Root) *Store {
	return &Store{root: root}
}

// Open creates dir if needed and opens it as a Store.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create block directory: %w", err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("open block directory: %w", err)
	}
	return NewStore(root), nil
}

// blockPath returns the shard directory and file path for c. The codec is
// dropped so the same digest always maps to the same file.
func blockPath(c cid.Cid) (string, string) {
	name := cid.NewCidV1(cid.Raw, c.Hash()).String()
	shard := name[len(name)-2:]
	return shard, path.Join(shard, name+extension)
}

func (s *Store) Get(ctx context.Context, c cid.Cid) (blocks.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	_, p := blockPath(c)
	f, err := s.root.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("block %s: %w", c, ipgate.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open block file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Warn("failed to close block file", "path", p, "err", closeErr)
		}
	}()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read block file: %w", err)
	}

	return blocks.NewBlockWithCid(data, c)
}

func (s *Store) GetSize(ctx context.Context, c cid.Cid) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	_, p := blockPath(c)
	info, err := s.root.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("block %s: %w", c, ipgate.ErrNotFound)
		}
		return 0, fmt.Errorf("failed to stat block file: %w", err)
	}
	return info.Size(), nil
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

// Put atomically writes the block using a temp file and rename. Writing a
// block that already exists is a no-op.
func (s *Store) Put(ctx context.Context, blk blocks.Block) error {
	if has, err := s.Has(ctx, blk.Cid()); err != nil || has {
		return err
	}

	tmpFile := tmpFileName()
	t, createErr := s.root.Create(tmpFile)
	if createErr != nil {
		return fmt.Errorf("could not open temp file: %w", createErr)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			if rmErr := s.root.Remove(tmpFile); rmErr != nil {
				slog.Warn("failed to remove tmp file", "err", rmErr)
			}
		}
	}()

	if _, err := t.Write(blk.RawData()); err != nil {
		return fmt.Errorf("could not write block: %w", err)
	}

	if err := t.Sync(); err != nil {
		return fmt.Errorf("could not sync written file: %w", err)
	}

	shard, p := blockPath(blk.Cid())
	if err := s.root.MkdirAll(shard, 0o755); err != nil {
		return fmt.Errorf("could not create shard directory: %w", err)
	}

	if renameErr := s.root.Rename(tmpFile, p); renameErr != nil {
		return fmt.Errorf("failed to rename file: %w", renameErr)
	}

	success = true
	return nil
}

// Close releases the root directory handle.
func (s *Store) Close() error {
	return s.root.Close()
}

func tmpFileName() string {
	return fmt.Sprintf(".t%s", uuid.New().String())
}
