package dagfs

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	chunker "github.com/ipfs/boxo/chunker"
	"github.com/ipfs/boxo/ipld/merkledag"
	"github.com/ipfs/boxo/ipld/unixfs/importer/balanced"
	"github.com/ipfs/boxo/ipld/unixfs/importer/helpers"
	uio "github.com/ipfs/boxo/ipld/unixfs/io"
	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"

	"github.com/sagarc03/ipgate"
)

// DefaultChunkSize is the size of raw leaves produced by AddFile.
const DefaultChunkSize = 256 * 1024

// DirEntry is a named child passed to AddDirectory.
type DirEntry struct {
	Name string
	Cid  cid.Cid
	Size int64
}

// Builder writes UnixFS files and directories into a Blockstore. Nodes
// use CIDv1 with sha2-256 and files are chunked into raw leaves.
type Builder struct {
	dag       *dagService
	chunkSize int
	maxLinks  int
	prefix    cid.Prefix
}

type BuilderOption func(*Builder)

// WithMaxDirectoryLinks turns directories with more than n entries into
// HAMT shards.
func WithMaxDirectoryLinks(n int) BuilderOption {
	return func(b *Builder) {
		b.maxLinks = n
	}
}

// NewBuilder creates a Builder. A chunkSize of zero uses DefaultChunkSize.
func NewBuilder(bs ipgate.Blockstore, chunkSize int, opts ...BuilderOption) *Builder {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	prefix, _ := merkledag.PrefixForCidVersion(1)
	b := &Builder{dag: New(bs).dag, chunkSize: chunkSize, prefix: prefix}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AddRaw stores data as a single raw block.
func (b *Builder) AddRaw(ctx context.Context, data []byte) (cid.Cid, error) {
	return b.put(ctx, cid.Raw, data)
}

// AddCBOR stores v as a dag-cbor block. Use Link to embed links in v.
func (b *Builder) AddCBOR(ctx context.Context, v any) (cid.Cid, error) {
	data, err := encodeValue(v)
	if err != nil {
		return cid.Undef, err
	}
	return b.put(ctx, cid.DagCBOR, data)
}

// countingReader counts the bytes read through it.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// AddFile imports r as a balanced UnixFS file. Content that fits in one
// chunk is stored as a single raw block. It returns the root CID and the
// content size.
func (b *Builder) AddFile(ctx context.Context, r io.Reader) (cid.Cid, int64, error) {
	if err := ctx.Err(); err != nil {
		return cid.Undef, 0, err
	}

	counter := &countingReader{r: r}
	params := helpers.DagBuilderParams{
		Dagserv:    b.dag,
		RawLeaves:  true,
		Maxlinks:   helpers.DefaultLinksPerBlock,
		CidBuilder: b.prefix,
	}
	db, err := params.New(chunker.NewSizeSplitter(counter, int64(b.chunkSize)))
	if err != nil {
		return cid.Undef, 0, fmt.Errorf("add file: %w", err)
	}

	nd, err := balanced.Layout(db)
	if err != nil {
		return cid.Undef, 0, fmt.Errorf("add file: %w", err)
	}
	return nd.Cid(), counter.n, nil
}

// AddDirectory stores a UnixFS directory. Entries are linked in name
// order; above the WithMaxDirectoryLinks limit the directory is sharded.
func (b *Builder) AddDirectory(ctx context.Context, entries []DirEntry) (cid.Cid, int64, error) {
	sorted := append([]DirEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	opts := []uio.DirectoryOption{uio.WithCidBuilder(b.prefix)}
	if b.maxLinks > 0 {
		opts = append(opts, uio.WithMaxLinks(b.maxLinks))
	}
	dir, err := uio.NewDirectory(b.dag, opts...)
	if err != nil {
		return cid.Undef, 0, fmt.Errorf("add directory: %w", err)
	}

	var total int64
	for i, e := range sorted {
		if e.Name == "" || strings.Contains(e.Name, "/") {
			return cid.Undef, 0, fmt.Errorf("add directory: invalid entry name %q", e.Name)
		}
		if i > 0 && sorted[i-1].Name == e.Name {
			return cid.Undef, 0, fmt.Errorf("add directory: duplicate entry %q", e.Name)
		}

		child, err := b.dag.Get(ctx, e.Cid)
		if err != nil {
			return cid.Undef, 0, fmt.Errorf("add directory entry %q: %w", e.Name, err)
		}
		if err := dir.AddChild(ctx, e.Name, child); err != nil {
			return cid.Undef, 0, fmt.Errorf("add directory entry %q: %w", e.Name, err)
		}
		total += e.Size
	}

	nd, err := dir.GetNode()
	if err != nil {
		return cid.Undef, 0, fmt.Errorf("add directory: %w", err)
	}
	if err := b.dag.Add(ctx, nd); err != nil {
		return cid.Undef, 0, err
	}
	return nd.Cid(), total, nil
}

// AddFS imports the file or directory at root of fsys recursively.
func (b *Builder) AddFS(ctx context.Context, fsys fs.FS, root string) (cid.Cid, int64, error) {
	info, err := fs.Stat(fsys, root)
	if err != nil {
		return cid.Undef, 0, fmt.Errorf("add %s: %w", root, err)
	}

	if !info.IsDir() {
		f, err := fsys.Open(root)
		if err != nil {
			return cid.Undef, 0, fmt.Errorf("add %s: %w", root, err)
		}
		defer func() { _ = f.Close() }()
		return b.AddFile(ctx, f)
	}

	dirEntries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return cid.Undef, 0, fmt.Errorf("add %s: %w", root, err)
	}

	entries := make([]DirEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if err := ctx.Err(); err != nil {
			return cid.Undef, 0, err
		}
		if !de.IsDir() && !de.Type().IsRegular() {
			continue
		}

		c, size, err := b.AddFS(ctx, fsys, path.Join(root, de.Name()))
		if err != nil {
			return cid.Undef, 0, err
		}
		entries = append(entries, DirEntry{Name: de.Name(), Cid: c, Size: size})
	}

	return b.AddDirectory(ctx, entries)
}

func (b *Builder) put(ctx context.Context, codec uint64, data []byte) (cid.Cid, error) {
	c, err := newCid(codec, data)
	if err != nil {
		return cid.Undef, err
	}

	blk, err := blocks.NewBlockWithCid(data, c)
	if err != nil {
		return cid.Undef, err
	}
	if err := b.dag.f.bs.Put(ctx, blk); err != nil {
		return cid.Undef, fmt.Errorf("put %s: %w", c, err)
	}
	return c, nil
}
