package dagfs

import (
	"context"
	"sync"

	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"
	"golang.org/x/sync/errgroup"

	"github.com/sagarc03/ipgate"
)

// Traverse emits the blocks on the path from root to the target, then the
// blocks selected by opts.Scope below the target.
//
// Scope block emits only the target block. Scope entity emits the target
// and, for files, every chunk, for HAMT directories every shard. Scope all
// emits the whole subgraph.
// OrderDFS visits parents before children with siblings in link order;
// OrderUnknown fetches each level concurrently and emits blocks as they
// arrive. Duplicate links are emitted every time they are reached.
func (f *Fetcher) Traverse(ctx context.Context, root cid.Cid, p string, opts ipgate.TraverseOptions, visit func(blocks.Block) error) error {
	target, err := f.resolve(ctx, root, p, visit)
	if err != nil {
		return err
	}

	expand := func(l *loaded) []cid.Cid { return l.links() }
	switch opts.Scope {
	case ipgate.ScopeBlock:
		return visit(target.l.blk)
	case ipgate.ScopeEntity:
		switch target.l.kind() {
		case ipgate.KindFile:
			expand = func(l *loaded) []cid.Cid {
				if l.kind() == ipgate.KindFile {
					return l.links()
				}
				return nil
			}
		case ipgate.KindHAMTDirectory:
			// The shards make up the directory, the entries do not.
			expand = func(l *loaded) []cid.Cid { return l.shardLinks() }
		default:
			return visit(target.l.blk)
		}
	}

	var walkErr error
	if opts.Order == ipgate.OrderDFS {
		walkErr = f.walkDFS(ctx, target.l, expand, visit)
	} else {
		walkErr = f.walkUnordered(ctx, target.l, expand, visit)
	}
	if walkErr != nil {
		return walkErr
	}

	f.logger.Debug("traversal complete", "root", root, "path", p, "scope", opts.Scope, "order", opts.Order)
	return nil
}

func (f *Fetcher) walkDFS(ctx context.Context, l *loaded, expand func(*loaded) []cid.Cid, visit func(blocks.Block) error) error {
	if err := visit(l.blk); err != nil {
		return err
	}

	for _, c := range expand(l) {
		child, err := f.load(ctx, c)
		if err != nil {
			return err
		}
		if err := f.walkDFS(ctx, child, expand, visit); err != nil {
			return err
		}
	}
	return nil
}

// walkUnordered fetches one level of the graph at a time. visit is never
// called concurrently.
func (f *Fetcher) walkUnordered(ctx context.Context, start *loaded, expand func(*loaded) []cid.Cid, visit func(blocks.Block) error) error {
	if err := visit(start.blk); err != nil {
		return err
	}

	level := expand(start)
	for len(level) > 0 {
		var (
			mu   sync.Mutex
			next []cid.Cid
		)

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(f.concurrency)
		for _, c := range level {
			g.Go(func() error {
				child, err := f.load(gctx, c)
				if err != nil {
					return err
				}

				mu.Lock()
				defer mu.Unlock()
				if err := visit(child.blk); err != nil {
					return err
				}
				next = append(next, expand(child)...)
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}
		level = next
	}
	return nil
}
