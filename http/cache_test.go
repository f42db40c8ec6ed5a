package http_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/ipgate/blockstore"
	"github.com/sagarc03/ipgate/cache"
	"github.com/sagarc03/ipgate/dagfs"
	ipgatehttp "github.com/sagarc03/ipgate/http"
)

func newCachedRouter(t *testing.T, tr *tree) (http.Handler, *countingFetcher, *cache.Memory) {
	t.Helper()
	mem, err := cache.NewMemory(cache.Config{MaxCost: 1 << 20})
	require.NoError(t, err)
	t.Cleanup(mem.Close)

	fetcher := &countingFetcher{Fetcher: tr.fetcher}
	h := newRouter(fetcher, &ipgatehttp.HandlerConfig{Cache: mem, Tasks: syncTasks{}})
	return h, fetcher, mem
}

func TestEdgeCache_HitAfterMiss(t *testing.T) {
	tr := newTree(t)
	h, fetcher, mem := newCachedRouter(t, tr)
	target := "/ipfs/" + tr.root.String() + "/tiny.txt"

	first := serve(h, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusOK, first.Code)
	mem.Wait()
	calls := fetcher.entries.Load()

	second := serve(h, httptest.NewRequest(http.MethodGet, target, nil))

	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "hi", second.Body.String())
	assert.Equal(t, first.Header().Get("Etag"), second.Header().Get("Etag"))
	assert.Equal(t, calls, fetcher.entries.Load())
}

func TestEdgeCache_NoCacheBypasses(t *testing.T) {
	tr := newTree(t)
	h, fetcher, mem := newCachedRouter(t, tr)
	target := "/ipfs/" + tr.root.String() + "/tiny.txt"

	serve(h, httptest.NewRequest(http.MethodGet, target, nil))
	mem.Wait()
	calls := fetcher.entries.Load()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Cache-Control", "no-cache")
	rec := serve(h, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Greater(t, fetcher.entries.Load(), calls)
}

func TestEdgeCache_OnlyIfCachedMiss(t *testing.T) {
	tr := newTree(t)
	h, fetcher, _ := newCachedRouter(t, tr)

	req := httptest.NewRequest(http.MethodGet, "/ipfs/"+tr.root.String()+"/tiny.txt", nil)
	req.Header.Set("Cache-Control", "max-age=0, only-if-cached")
	rec := serve(h, req)

	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.Equal(t, "precondition_failed", decodeError(t, rec).Error)
	assert.Zero(t, fetcher.entries.Load())
}

func TestEdgeCache_SkipsUncacheable(t *testing.T) {
	tests := []struct {
		name   string
		target func(tr *tree) string
		rng    string
	}{
		{
			name:   "range response",
			target: func(tr *tree) string { return "/ipfs/" + tr.root.String() + "/tiny.txt" },
			rng:    "bytes=0-0",
		},
		{
			name:   "full range still carries content-range",
			target: func(tr *tree) string { return "/ipfs/" + tr.root.String() + "/tiny.txt" },
			rng:    "bytes=0-1",
		},
		{
			name:   "error response",
			target: func(tr *tree) string { return "/ipfs/" + tr.root.String() + "/missing" },
		},
		{
			name:   "listing without length",
			target: func(tr *tree) string { return "/ipfs/" + tr.root.String() + "/" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTree(t)
			h, fetcher, mem := newCachedRouter(t, tr)

			do := func() {
				req := httptest.NewRequest(http.MethodGet, tt.target(tr), nil)
				if tt.rng != "" {
					req.Header.Set("Range", tt.rng)
				}
				serve(h, req)
				mem.Wait()
			}

			do()
			calls := fetcher.entries.Load()
			do()

			assert.Equal(t, 2*calls, fetcher.entries.Load())
		})
	}
}

// largeFile stores size bytes as a UnixFS file and returns a fetcher over it.
func largeFile(t *testing.T, size int) (*dagfs.Fetcher, string, []byte) {
	t.Helper()
	bs := blockstore.NewMemory()
	data := bytes.Repeat([]byte("0123456789abcdef"), size/16)

	c, _, err := dagfs.NewBuilder(bs, 0).AddFile(context.Background(), bytes.NewReader(data))
	require.NoError(t, err)
	return dagfs.New(bs), "/ipfs/" + c.String(), data
}

func TestEdgeCache_ObjectLargerThanCacheIsNotCaptured(t *testing.T) {
	f, target, data := largeFile(t, 8<<20)

	mem, err := cache.NewMemory(cache.Config{MaxCost: 1 << 20})
	require.NoError(t, err)
	t.Cleanup(mem.Close)
	assert.Equal(t, int64(1<<20), mem.MaxObjectSize())

	fetcher := &countingFetcher{Fetcher: f}
	h := newRouter(fetcher, &ipgatehttp.HandlerConfig{Cache: mem, Tasks: syncTasks{}})

	for range 2 {
		rec := serve(h, httptest.NewRequest(http.MethodGet, target, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, len(data), rec.Body.Len())
		mem.Wait()
	}

	assert.Equal(t, int32(2), fetcher.entries.Load())
}

// recordingCache never matches and counts the responses offered to it.
type recordingCache struct {
	max  int64
	puts atomic.Int32
}

func (c *recordingCache) Match(*http.Request) (*cache.Response, bool) { return nil, false }
func (c *recordingCache) MaxObjectSize() int64                        { return c.max }

func (c *recordingCache) Put(context.Context, *http.Request, *cache.Response) error {
	c.puts.Add(1)
	return nil
}

func TestEdgeCache_ObjectSizeClampedToCache(t *testing.T) {
	f, target, data := largeFile(t, 64<<10)

	tests := []struct {
		name     string
		cacheMax int64
		wantPuts int32
	}{
		{name: "cache smaller than object", cacheMax: 1 << 10, wantPuts: 0},
		{name: "cache larger than object", cacheMax: 1 << 20, wantPuts: 1},
		{name: "unbounded cache", cacheMax: 0, wantPuts: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := &recordingCache{max: tt.cacheMax}
			h := newRouter(f, &ipgatehttp.HandlerConfig{Cache: rc, Tasks: syncTasks{}})

			rec := serve(h, httptest.NewRequest(http.MethodGet, target, nil))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, data, rec.Body.Bytes())
			assert.Equal(t, tt.wantPuts, rc.puts.Load())
		})
	}
}
