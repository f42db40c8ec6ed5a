// Package dagfs is the reference Fetcher of the gateway. It reads UnixFS
// graphs (dag-pb files, directories and HAMT shards over raw leaves) and
// generic dag-cbor objects out of any ipgate.Blockstore, resolves paths
// through them and traverses them for archive responses.
package dagfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ipfs/boxo/ipld/merkledag"
	"github.com/ipfs/boxo/ipld/unixfs"
	uio "github.com/ipfs/boxo/ipld/unixfs/io"
	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"

	"github.com/sagarc03/ipgate"
)

const defaultConcurrency = 8

// Fetcher implements ipgate.Fetcher over a Blockstore.
type Fetcher struct {
	bs          ipgate.Blockstore
	dag         *dagService
	concurrency int
	logger      *slog.Logger
}

var _ ipgate.Fetcher = (*Fetcher)(nil)

type Option func(*Fetcher)

// WithConcurrency bounds the block fetches in flight during unordered traversals.
func WithConcurrency(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = l
	}
}

// New creates a Fetcher reading from bs.
func New(bs ipgate.Blockstore, opts ...Option) *Fetcher {
	f := &Fetcher{bs: bs, concurrency: defaultConcurrency, logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	f.dag = &dagService{f: f}
	return f
}

func (f *Fetcher) GetBlock(ctx context.Context, c cid.Cid) (blocks.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if digest, ok := identityDigest(c); ok {
		return blocks.NewBlockWithCid(digest, c)
	}

	blk, err := f.bs.Get(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("get block %s: %w", c, err)
	}
	return blk, nil
}

func (f *Fetcher) StatBlock(ctx context.Context, c cid.Cid) (ipgate.BlockStat, error) {
	if err := ctx.Err(); err != nil {
		return ipgate.BlockStat{}, err
	}
	if digest, ok := identityDigest(c); ok {
		return ipgate.BlockStat{Cid: c, Size: int64(len(digest))}, nil
	}

	size, err := f.bs.GetSize(ctx, c)
	if err != nil {
		return ipgate.BlockStat{}, fmt.Errorf("stat block %s: %w", c, err)
	}
	return ipgate.BlockStat{Cid: c, Size: size}, nil
}

func (f *Fetcher) StreamBlock(ctx context.Context, c cid.Cid, r ipgate.AbsoluteRange) (io.ReadCloser, error) {
	blk, err := f.GetBlock(ctx, c)
	if err != nil {
		return nil, err
	}

	data := blk.RawData()
	if !r.Valid(int64(len(data))) {
		return nil, fmt.Errorf("stream block %s range %d-%d of %d: %w", c, r.First, r.Last, len(data), ipgate.ErrRangeNotSatisfiable)
	}
	return io.NopCloser(bytes.NewReader(data[r.First : r.Last+1])), nil
}

func (f *Fetcher) GetEntry(ctx context.Context, root cid.Cid, p string) (ipgate.Entry, error) {
	return f.resolve(ctx, root, p, nil)
}

func (f *Fetcher) load(ctx context.Context, c cid.Cid) (*loaded, error) {
	return f.dag.load(ctx, c)
}

func (l *loaded) kind() ipgate.EntryKind {
	if l.fsn != nil {
		switch l.fsn.Type() {
		case unixfs.TFile, unixfs.TRaw:
			return ipgate.KindFile
		case unixfs.TDirectory:
			return ipgate.KindDirectory
		case unixfs.THAMTShard:
			return ipgate.KindHAMTDirectory
		}
		return ipgate.KindObject
	}

	c := l.blk.Cid()
	if c.Prefix().Codec == cid.Raw {
		if _, ok := identityDigest(c); ok {
			return ipgate.KindIdentity
		}
		return ipgate.KindRaw
	}
	return ipgate.KindObject
}

// links returns the children of the block in traversal order.
func (l *loaded) links() []cid.Cid {
	if l.node != nil {
		out := make([]cid.Cid, 0, len(l.node.Links()))
		for _, lk := range l.node.Links() {
			out = append(out, lk.Cid)
		}
		return out
	}
	if l.value != nil {
		return collectLinks(l.value)
	}
	return nil
}

// shardLinks returns the links of a HAMT shard that point at sub-shards.
// Entry links carry the bucket prefix followed by the entry name, shard
// links only the prefix.
func (l *loaded) shardLinks() []cid.Cid {
	if l.fsn == nil || l.fsn.Type() != unixfs.THAMTShard || l.fsn.Fanout() == 0 {
		return nil
	}

	prefixLen := len(fmt.Sprintf("%X", l.fsn.Fanout()-1))
	var out []cid.Cid
	for _, lk := range l.node.Links() {
		if len(lk.Name) == prefixLen {
			out = append(out, lk.Cid)
		}
	}
	return out
}

// child looks up a path segment in a UnixFS directory or HAMT, or in the
// top level keys of a generic dag-cbor map.
func (l *loaded) child(ctx context.Context, ds *dagService, name string) (*loaded, error) {
	if l.kind().IsDirectory() {
		dir, err := uio.NewDirectoryFromNode(ds, l.node)
		if err != nil {
			return nil, fmt.Errorf("open directory %s: %w", l.blk.Cid(), err)
		}

		nd, err := dir.Find(ctx, name)
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, merkledag.ErrLinkNotFound) {
			return nil, ipgate.ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		return decode(nd)
	}

	m, ok := l.value.(map[string]any)
	if !ok {
		return nil, ipgate.ErrNotFound
	}
	c, ok := asLink(m[name])
	if !ok {
		return nil, ipgate.ErrNotFound
	}
	return ds.load(ctx, c)
}

// resolve walks p from root. visit, when set, receives every block fetched
// on the way, HAMT shards included, except the resolved target.
func (f *Fetcher) resolve(ctx context.Context, root cid.Cid, p string, visit func(blocks.Block) error) (*entry, error) {
	ds := f.dag.recording(&pathRecorder{visit: visit})

	cur, err := ds.load(ctx, root)
	if err != nil {
		return nil, err
	}

	e := &entry{f: f, l: cur, name: root.String()}
	for _, seg := range splitPath(p) {
		next, err := cur.child(ctx, ds, seg)
		if errors.Is(err, ipgate.ErrNotFound) {
			return nil, fmt.Errorf("resolve %s%s/%s: %w", root, e.path, seg, err)
		}
		if err != nil {
			return nil, err
		}

		cur = next
		e = &entry{f: f, l: cur, name: seg, path: e.path + "/" + seg}
	}

	return e, nil
}

func splitPath(p string) []string {
	var segments []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}
