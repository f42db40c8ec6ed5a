package dagfs_test

import (
	"context"
	"errors"
	"testing"

	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/ipgate"
	"github.com/sagarc03/ipgate/blockstore"
	"github.com/sagarc03/ipgate/dagfs"
)

// objectTree builds root -> {a: branch0 -> leaf0, b: branch1 -> leaf1}
// from generic dag-cbor objects and raw leaves.
type objectTree struct {
	fetcher                              *dagfs.Fetcher
	root, branch0, branch1, leaf0, leaf1 cid.Cid
}

func newObjectTree(t *testing.T, opts ...dagfs.Option) objectTree {
	t.Helper()
	ctx := context.Background()
	bs := blockstore.NewMemory()
	b := dagfs.NewBuilder(bs, 0)

	var tr objectTree
	var err error

	tr.leaf0, err = b.AddRaw(ctx, []byte("leaf zero"))
	require.NoError(t, err)
	tr.leaf1, err = b.AddRaw(ctx, []byte("leaf one"))
	require.NoError(t, err)
	tr.branch0, err = b.AddCBOR(ctx, map[string]any{"leaf": dagfs.Link(tr.leaf0)})
	require.NoError(t, err)
	tr.branch1, err = b.AddCBOR(ctx, map[string]any{"leaf": dagfs.Link(tr.leaf1)})
	require.NoError(t, err)
	tr.root, err = b.AddCBOR(ctx, map[string]any{
		"b": dagfs.Link(tr.branch1),
		"a": dagfs.Link(tr.branch0),
	})
	require.NoError(t, err)

	tr.fetcher = dagfs.New(bs, opts...)
	return tr
}

func TestTraverse_DFSOrder(t *testing.T) {
	tr := newObjectTree(t)

	got := collect(t, func(visit func(blocks.Block) error) error {
		return tr.fetcher.Traverse(context.Background(), tr.root, "",
			ipgate.TraverseOptions{Scope: ipgate.ScopeAll, Order: ipgate.OrderDFS}, visit)
	})

	want := []cid.Cid{tr.root, tr.branch0, tr.leaf0, tr.branch1, tr.leaf1}
	assert.Equal(t, cidStrings(want), cidStrings(got))
}

func TestTraverse_UnorderedHasSameBlocks(t *testing.T) {
	tr := newObjectTree(t, dagfs.WithConcurrency(2))

	got := collect(t, func(visit func(blocks.Block) error) error {
		return tr.fetcher.Traverse(context.Background(), tr.root, "",
			ipgate.TraverseOptions{Scope: ipgate.ScopeAll, Order: ipgate.OrderUnknown}, visit)
	})

	want := []cid.Cid{tr.root, tr.branch0, tr.leaf0, tr.branch1, tr.leaf1}
	assert.ElementsMatch(t, cidStrings(want), cidStrings(got))
	assert.Equal(t, tr.root.String(), got[0].String())
}

func TestTraverse_BlockScopeWithPath(t *testing.T) {
	tr := newObjectTree(t)

	got := collect(t, func(visit func(blocks.Block) error) error {
		return tr.fetcher.Traverse(context.Background(), tr.root, "/a/leaf",
			ipgate.TraverseOptions{Scope: ipgate.ScopeBlock, Order: ipgate.OrderDFS}, visit)
	})

	want := []cid.Cid{tr.root, tr.branch0, tr.leaf0}
	assert.Equal(t, cidStrings(want), cidStrings(got))
	assert.NotContains(t, cidStrings(got), tr.leaf1.String())
}

func TestTraverse_EntityScope(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	t.Run("file includes every chunk", func(t *testing.T) {
		got := collect(t, func(visit func(blocks.Block) error) error {
			return fx.fetcher.Traverse(ctx, fx.root, "/hello.txt",
				ipgate.TraverseOptions{Scope: ipgate.ScopeEntity, Order: ipgate.OrderDFS}, visit)
		})
		// root, file node, three chunks
		require.Len(t, got, 5)
		assert.Equal(t, fx.root.String(), got[0].String())
		assert.Equal(t, fx.hello.String(), got[1].String())
	})

	t.Run("directory is only its own node", func(t *testing.T) {
		got := collect(t, func(visit func(blocks.Block) error) error {
			return fx.fetcher.Traverse(ctx, fx.root, "/sub",
				ipgate.TraverseOptions{Scope: ipgate.ScopeEntity, Order: ipgate.OrderDFS}, visit)
		})
		assert.Equal(t, []string{fx.root.String(), fx.sub.String()}, cidStrings(got))
	})
}

func TestTraverse_AllScopeOverDirectory(t *testing.T) {
	fx := newFixture(t)

	got := collect(t, func(visit func(blocks.Block) error) error {
		return fx.fetcher.Traverse(context.Background(), fx.root, "",
			ipgate.TraverseOptions{Scope: ipgate.ScopeAll, Order: ipgate.OrderDFS}, visit)
	})

	// root, empty, hello + 3 chunks, sub, a.txt, tiny.txt
	assert.Len(t, got, 9)
	assert.Equal(t, fx.root.String(), got[0].String())
}

func TestTraverse_VisitErrorStops(t *testing.T) {
	tr := newObjectTree(t)
	stop := errors.New("stop")

	calls := 0
	err := tr.fetcher.Traverse(context.Background(), tr.root, "",
		ipgate.TraverseOptions{Scope: ipgate.ScopeAll, Order: ipgate.OrderDFS},
		func(blocks.Block) error {
			calls++
			if calls == 2 {
				return stop
			}
			return nil
		})

	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, calls)
}

func TestTraverse_MissingPath(t *testing.T) {
	tr := newObjectTree(t)

	err := tr.fetcher.Traverse(context.Background(), tr.root, "/c",
		ipgate.TraverseOptions{Scope: ipgate.ScopeAll, Order: ipgate.OrderDFS},
		func(blocks.Block) error { return nil })
	assert.ErrorIs(t, err, ipgate.ErrNotFound)
}

func TestTraverse_BlockScopeThroughHAMT(t *testing.T) {
	hd := newHAMTFixture(t)

	got := collect(t, func(visit func(blocks.Block) error) error {
		return hd.fetcher.Traverse(context.Background(), hd.root, "/gamma.txt",
			ipgate.TraverseOptions{Scope: ipgate.ScopeBlock, Order: ipgate.OrderDFS}, visit)
	})

	require.GreaterOrEqual(t, len(got), 2)
	assert.Equal(t, hd.root.String(), got[0].String())
	assert.Equal(t, hd.files["gamma.txt"].String(), got[len(got)-1].String())
}

func TestTraverse_EntityScopeOnHAMTSkipsFiles(t *testing.T) {
	hd := newHAMTFixture(t)

	got := collect(t, func(visit func(blocks.Block) error) error {
		return hd.fetcher.Traverse(context.Background(), hd.root, "",
			ipgate.TraverseOptions{Scope: ipgate.ScopeEntity, Order: ipgate.OrderDFS}, visit)
	})

	require.NotEmpty(t, got)
	assert.Equal(t, hd.root.String(), got[0].String())
	for _, c := range hd.files {
		assert.NotContains(t, cidStrings(got), c.String())
	}
}
