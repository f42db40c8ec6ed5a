package dagfs

import (
	"context"
	"fmt"

	"github.com/ipfs/boxo/ipld/merkledag"
	"github.com/ipfs/boxo/ipld/unixfs"
	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"
	ipld "github.com/ipfs/go-ipld-format"

	"github.com/sagarc03/ipgate"
)

// loaded is a fetched block with its decoded form. node is set for dag-pb
// and raw blocks, fsn for dag-pb blocks carrying UnixFS data and value for
// dag-cbor blocks.
type loaded struct {
	blk   blocks.Block
	node  ipld.Node
	fsn   *unixfs.FSNode
	value any
}

func decode(blk blocks.Block) (*loaded, error) {
	c := blk.Cid()
	l := &loaded{blk: blk}

	switch c.Prefix().Codec {
	case cid.DagProtobuf:
		nd, err := merkledag.DecodeProtobufBlock(blk)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", c, err)
		}
		l.node = nd
		if pn, ok := nd.(*merkledag.ProtoNode); ok {
			// dag-pb without UnixFS data is served as a plain object.
			if fsn, err := unixfs.FSNodeFromBytes(pn.Data()); err == nil {
				l.fsn = fsn
			}
		}
	case cid.Raw:
		nd, err := merkledag.DecodeRawBlock(blk)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", c, err)
		}
		l.node = nd
	case cid.DagCBOR:
		v, err := decodeValue(blk.RawData())
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", c, err)
		}
		l.value = v
	}
	return l, nil
}

// pathRecorder hands every block fetched while resolving a path to visit,
// holding back the latest one so the resolved target is not emitted.
type pathRecorder struct {
	visit   func(blocks.Block) error
	pending blocks.Block
}

func (r *pathRecorder) record(blk blocks.Block) error {
	if r == nil || r.visit == nil {
		return nil
	}
	prev := r.pending
	r.pending = blk
	if prev == nil {
		return nil
	}
	return r.visit(prev)
}

// dagService exposes the Fetcher's blocks as an ipld.DAGService so the
// UnixFS readers and builders can walk them.
type dagService struct {
	f   *Fetcher
	rec *pathRecorder
}

var _ ipld.DAGService = (*dagService)(nil)

// recording returns a copy of s that reports fetched blocks to rec.
func (s *dagService) recording(rec *pathRecorder) *dagService {
	return &dagService{f: s.f, rec: rec}
}

func (s *dagService) load(ctx context.Context, c cid.Cid) (*loaded, error) {
	blk, err := s.f.GetBlock(ctx, c)
	if err != nil {
		return nil, err
	}
	if err := s.rec.record(blk); err != nil {
		return nil, err
	}
	return decode(blk)
}

func (s *dagService) Get(ctx context.Context, c cid.Cid) (ipld.Node, error) {
	l, err := s.load(ctx, c)
	if err != nil {
		return nil, err
	}
	if l.node == nil {
		return nil, fmt.Errorf("decode %s as unixfs: %w", c, ipgate.ErrNotImplemented)
	}
	return l.node, nil
}

func (s *dagService) GetMany(ctx context.Context, cids []cid.Cid) <-chan *ipld.NodeOption {
	out := make(chan *ipld.NodeOption, len(cids))
	go func() {
		defer close(out)

		seen := make(map[cid.Cid]struct{}, len(cids))
		for _, c := range cids {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}

			nd, err := s.Get(ctx, c)
			select {
			case out <- &ipld.NodeOption{Node: nd, Err: err}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (s *dagService) Add(ctx context.Context, nd ipld.Node) error {
	if err := s.f.bs.Put(ctx, nd); err != nil {
		return fmt.Errorf("put %s: %w", nd.Cid(), err)
	}
	return nil
}

func (s *dagService) AddMany(ctx context.Context, nds []ipld.Node) error {
	for _, nd := range nds {
		if err := s.Add(ctx, nd); err != nil {
			return err
		}
	}
	return nil
}

// Remove is a no-op: blocks are never deleted through the gateway.
func (s *dagService) Remove(context.Context, cid.Cid) error { return nil }

func (s *dagService) RemoveMany(context.Context, []cid.Cid) error { return nil }
