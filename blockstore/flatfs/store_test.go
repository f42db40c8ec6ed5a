package flatfs_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/ipgate"
	"github.com/sagarc03/ipgate/blockstore/flatfs"
)

func rawBlock(t *testing.T, data string) blocks.Block {
	t.Helper()
	mh, err := multihash.Sum([]byte(data), multihash.SHA2_256, -1)
	require.NoError(t, err)
	blk, err := blocks.NewBlockWithCid([]byte(data), cid.NewCidV1(cid.Raw, mh))
	require.NoError(t, err)
	return blk
}

func TestStore_PutGet(t *testing.T) {
	dir := t.TempDir()
	store, err := flatfs.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	blk := rawBlock(t, "file backed block")

	require.NoError(t, store.Put(ctx, blk))
	require.NoError(t, store.Put(ctx, blk))

	got, err := store.Get(ctx, blk.Cid())
	require.NoError(t, err)
	assert.Equal(t, blk.RawData(), got.RawData())

	size, err := store.GetSize(ctx, blk.Cid())
	require.NoError(t, err)
	assert.Equal(t, int64(len("file backed block")), size)

	name := blk.Cid().String()
	data, err := os.ReadFile(filepath.Join(dir, name[len(name)-2:], name+".data"))
	require.NoError(t, err)
	assert.Equal(t, blk.RawData(), data)
}

func TestStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	store, err := flatfs.Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Put(context.Background(), rawBlock(t, "a")))
	require.NoError(t, store.Put(context.Background(), rawBlock(t, "b")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".t"), "temp file %s left behind", e.Name())
	}
}

func TestStore_NotFound(t *testing.T) {
	store, err := flatfs.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	missing := rawBlock(t, "missing").Cid()

	_, err = store.Get(ctx, missing)
	assert.ErrorIs(t, err, ipgate.ErrNotFound)

	has, err := store.Has(ctx, missing)
	require.NoError(t, err)
	assert.False(t, has)
}
