package ipgate

import (
	"context"
	"io"

	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"
)

// Blockstore persists content-addressed blocks.
// Implementations return ErrNotFound for missing blocks.
type Blockstore interface {
	Get(ctx context.Context, c cid.Cid) (blocks.Block, error)
	GetSize(ctx context.Context, c cid.Cid) (int64, error)
	Has(ctx context.Context, c cid.Cid) (bool, error)
	Put(ctx context.Context, blk blocks.Block) error
}

// Entry is a node of the content graph resolved from a root and a path.
type Entry interface {
	Kind() EntryKind
	Cid() cid.Cid
	// Name is the last path segment, or the CID string for the root.
	Name() string
	// Path is the logical path from the root, "" for the root itself.
	Path() string
	Size() int64
	// Content streams length bytes starting at offset. A negative length
	// reads to the end.
	Content(ctx context.Context, offset, length int64) (io.ReadCloser, error)
	// Children calls visit for every child in link order. It stops at the
	// first error returned by visit.
	Children(ctx context.Context, visit func(Entry) error) error
}

// Fetcher resolves paths and blocks for the gateway.
// Every method must return promptly once ctx is done.
type Fetcher interface {
	GetEntry(ctx context.Context, root cid.Cid, path string) (Entry, error)
	GetBlock(ctx context.Context, c cid.Cid) (blocks.Block, error)
	StatBlock(ctx context.Context, c cid.Cid) (BlockStat, error)
	StreamBlock(ctx context.Context, c cid.Cid, r AbsoluteRange) (io.ReadCloser, error)
	// Traverse visits the blocks of the path from root followed by the
	// blocks selected by opts.Scope, in the order given by opts.Order.
	Traverse(ctx context.Context, root cid.Cid, path string, opts TraverseOptions, visit func(blocks.Block) error) error
}
