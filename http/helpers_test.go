package http_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	blocks "github.com/ipfs/go-block-format"
	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/ipgate"
	"github.com/sagarc03/ipgate/blockstore"
	"github.com/sagarc03/ipgate/dagfs"
	ipgatehttp "github.com/sagarc03/ipgate/http"
)

const testCID = "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi"

// MockFetcher is a mock implementation of ipgate.Fetcher
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) GetEntry(ctx context.Context, root cid.Cid, path string) (ipgate.Entry, error) {
	args := m.Called(ctx, root, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(ipgate.Entry), args.Error(1)
}

func (m *MockFetcher) GetBlock(ctx context.Context, c cid.Cid) (blocks.Block, error) {
	args := m.Called(ctx, c)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(blocks.Block), args.Error(1)
}

func (m *MockFetcher) StatBlock(ctx context.Context, c cid.Cid) (ipgate.BlockStat, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(ipgate.BlockStat), args.Error(1)
}

func (m *MockFetcher) StreamBlock(ctx context.Context, c cid.Cid, r ipgate.AbsoluteRange) (io.ReadCloser, error) {
	args := m.Called(ctx, c, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockFetcher) Traverse(ctx context.Context, root cid.Cid, path string, opts ipgate.TraverseOptions, visit func(blocks.Block) error) error {
	args := m.Called(ctx, root, path, opts, visit)
	return args.Error(0)
}

// stubEntry is a file-like entry held in memory. When short is set its
// content stream ends three bytes early.
type stubEntry struct {
	kind     ipgate.EntryKind
	cid      cid.Cid
	name     string
	data     []byte
	short    bool
	contents atomic.Int32
}

func newStubEntry(name, data string) *stubEntry {
	return &stubEntry{kind: ipgate.KindFile, cid: cid.MustParse(testCID), name: name, data: []byte(data)}
}

func (e *stubEntry) Kind() ipgate.EntryKind { return e.kind }
func (e *stubEntry) Cid() cid.Cid           { return e.cid }
func (e *stubEntry) Name() string           { return e.name }
func (e *stubEntry) Path() string           { return "/" + e.name }
func (e *stubEntry) Size() int64            { return int64(len(e.data)) }

func (e *stubEntry) Content(_ context.Context, offset, length int64) (io.ReadCloser, error) {
	e.contents.Add(1)

	data := e.data
	if e.short {
		data = data[:len(data)-3]
	}
	end := int64(len(data))
	if length >= 0 && offset+length < end {
		end = offset + length
	}
	if offset > end {
		offset = end
	}
	return io.NopCloser(bytes.NewReader(data[offset:end])), nil
}

func (e *stubEntry) Children(context.Context, func(ipgate.Entry) error) error {
	return nil
}

// syncTasks runs deferred work inline.
type syncTasks struct{}

func (syncTasks) WaitUntil(fn func(ctx context.Context)) {
	fn(context.Background())
}

// countingFetcher counts entry lookups of the wrapped fetcher.
type countingFetcher struct {
	ipgate.Fetcher
	entries atomic.Int32
}

func (f *countingFetcher) GetEntry(ctx context.Context, root cid.Cid, path string) (ipgate.Entry, error) {
	f.entries.Add(1)
	return f.Fetcher.GetEntry(ctx, root, path)
}

// tree is a small DAG stored in memory:
//
//	/           directory
//	/a#b.png    "png-ish"
//	/tiny.txt   "hi"
//	/site/      directory with index.html
type tree struct {
	bs      *blockstore.Memory
	fetcher *dagfs.Fetcher
	root    cid.Cid
	tiny    cid.Cid
	site    cid.Cid
}

func newTree(t *testing.T) *tree {
	t.Helper()
	ctx := context.Background()

	bs := blockstore.NewMemory()
	b := dagfs.NewBuilder(bs, 4)

	add := func(data string) (cid.Cid, int64) {
		c, size, err := b.AddFile(ctx, bytes.NewReader([]byte(data)))
		require.NoError(t, err)
		return c, size
	}

	png, pngSize := add("png-ish")
	tiny, tinySize := add("hi")
	index, indexSize := add("<html>index</html>")

	site, siteSize, err := b.AddDirectory(ctx, []dagfs.DirEntry{{Name: "index.html", Cid: index, Size: indexSize}})
	require.NoError(t, err)

	root, _, err := b.AddDirectory(ctx, []dagfs.DirEntry{
		{Name: "a#b.png", Cid: png, Size: pngSize},
		{Name: "tiny.txt", Cid: tiny, Size: tinySize},
		{Name: "site", Cid: site, Size: siteSize},
	})
	require.NoError(t, err)

	return &tree{bs: bs, fetcher: dagfs.New(bs), root: root, tiny: tiny, site: site}
}

func newRouter(fetcher ipgate.Fetcher, config *ipgatehttp.HandlerConfig) http.Handler {
	if config == nil {
		config = &ipgatehttp.HandlerConfig{}
	}
	return ipgatehttp.NewHandler(config, fetcher).Router()
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
