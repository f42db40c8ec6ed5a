package dagfs_test

import (
	"bytes"
	"context"
	"testing"

	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/ipgate/blockstore"
	"github.com/sagarc03/ipgate/dagfs"
)

// fixture is a small tree:
//
//	/            directory
//	/hello.txt   "hello world!" in three chunks
//	/tiny.txt    "hi" as one raw block
//	/empty       empty file
//	/sub/        directory
//	/sub/a.txt   "aaa"
type fixture struct {
	bs      *blockstore.Memory
	fetcher *dagfs.Fetcher
	root    cid.Cid
	hello   cid.Cid
	tiny    cid.Cid
	empty   cid.Cid
	sub     cid.Cid
	subA    cid.Cid
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	bs := blockstore.NewMemory()
	b := dagfs.NewBuilder(bs, 4)
	fx := &fixture{bs: bs, fetcher: dagfs.New(bs)}

	var err error
	var helloSize, tinySize, subSize, aSize int64

	fx.hello, helloSize, err = b.AddFile(ctx, bytes.NewReader([]byte("hello world!")))
	require.NoError(t, err)
	fx.tiny, tinySize, err = b.AddFile(ctx, bytes.NewReader([]byte("hi")))
	require.NoError(t, err)
	fx.empty, _, err = b.AddFile(ctx, bytes.NewReader(nil))
	require.NoError(t, err)
	fx.subA, aSize, err = b.AddFile(ctx, bytes.NewReader([]byte("aaa")))
	require.NoError(t, err)

	fx.sub, subSize, err = b.AddDirectory(ctx, []dagfs.DirEntry{{Name: "a.txt", Cid: fx.subA, Size: aSize}})
	require.NoError(t, err)

	fx.root, _, err = b.AddDirectory(ctx, []dagfs.DirEntry{
		{Name: "tiny.txt", Cid: fx.tiny, Size: tinySize},
		{Name: "hello.txt", Cid: fx.hello, Size: helloSize},
		{Name: "sub", Cid: fx.sub, Size: subSize},
		{Name: "empty", Cid: fx.empty, Size: 0},
	})
	require.NoError(t, err)

	return fx
}

// collect runs a traversal and returns the visited CIDs in order.
func collect(t *testing.T, run func(visit func(blocks.Block) error) error) []cid.Cid {
	t.Helper()
	var out []cid.Cid
	require.NoError(t, run(func(blk blocks.Block) error {
		out = append(out, blk.Cid())
		return nil
	}))
	return out
}

func cidStrings(cids []cid.Cid) []string {
	out := make([]string, len(cids))
	for i, c := range cids {
		out[i] = c.String()
	}
	return out
}

// hamtFixture is a directory sharded as a HAMT because it has more entries
// than the builder allows in a plain directory.
type hamtFixture struct {
	fetcher *dagfs.Fetcher
	root    cid.Cid
	files   map[string]cid.Cid
}

func newHAMTFixture(t *testing.T) *hamtFixture {
	t.Helper()
	ctx := context.Background()

	bs := blockstore.NewMemory()
	b := dagfs.NewBuilder(bs, 0, dagfs.WithMaxDirectoryLinks(2))
	hd := &hamtFixture{fetcher: dagfs.New(bs), files: map[string]cid.Cid{}}

	var entries []dagfs.DirEntry
	for _, name := range []string{"alpha.txt", "beta.txt", "gamma.txt", "delta.txt", "epsilon.txt"} {
		c, size, err := b.AddFile(ctx, bytes.NewReader([]byte("content of "+name)))
		require.NoError(t, err)
		hd.files[name] = c
		entries = append(entries, dagfs.DirEntry{Name: name, Cid: c, Size: size})
	}

	var err error
	hd.root, _, err = b.AddDirectory(ctx, entries)
	require.NoError(t, err)
	return hd
}

func (hd *hamtFixture) names() []string {
	out := make([]string, 0, len(hd.files))
	for name := range hd.files {
		out = append(out, name)
	}
	return out
}
