package sqlite_test

import (
	"context"
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"testing"

	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/ipgate"
	"github.com/sagarc03/ipgate/blockstore/sqlite"
)

func getRandomString(t *testing.T) string {
	t.Helper()
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	require.NoError(t, err, "random string")
	return fmt.Sprintf("test%x", n.Int64())
}

// setupTestStore opens an in-memory store with a unique table name.
func setupTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	tables := ipgate.Tables{Blocks: fmt.Sprintf("blocks_%s", getRandomString(t))}

	store, err := sqlite.Open(context.Background(), ":memory:", tables)
	require.NoError(t, err, "failed to open store")

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func rawBlock(t *testing.T, data string) blocks.Block {
	t.Helper()
	mh, err := multihash.Sum([]byte(data), multihash.SHA2_256, -1)
	require.NoError(t, err)
	blk, err := blocks.NewBlockWithCid([]byte(data), cid.NewCidV1(cid.Raw, mh))
	require.NoError(t, err)
	return blk
}
