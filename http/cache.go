package http

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/sagarc03/ipgate"
	"github.com/sagarc03/ipgate/cache"
)

// DefaultCacheMaxObjectSize is the largest response body stored by the
// edge cache.
const DefaultCacheMaxObjectSize int64 = 64 << 20

var errNotCached = fmt.Errorf("response is not cached: %w", ipgate.ErrPreconditionFailed)

// WithEdgeCache replays cached responses and stores complete successful
// ones. Requests with Cache-Control: no-cache and non-GET requests bypass
// the cache. A miss with Cache-Control: only-if-cached is answered with
// 412 without running the handler. Bodies larger than maxObjectSize or
// than the cache can hold are streamed without being captured.
func WithEdgeCache(c cache.Cache, maxObjectSize int64) func(http.Handler) http.Handler {
	if maxObjectSize <= 0 {
		maxObjectSize = DefaultCacheMaxObjectSize
	}
	if limit := c.MaxObjectSize(); limit > 0 && limit < maxObjectSize {
		maxObjectSize = limit
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cacheControl := r.Header.Get("Cache-Control")
			if strings.Contains(cacheControl, "no-cache") || r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			rc := requestFrom(r)

			if resp, ok := c.Match(r); ok {
				rc.Logger.Debug("edge cache hit")
				replay(w, resp)
				return
			}

			if hasDirective(cacheControl, "only-if-cached") {
				HandleError(w, r, errNotCached)
				return
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			capture := &captureWriter{header: ww.Header, status: ww.Status, max: maxObjectSize}
			ww.Tee(capture)

			next.ServeHTTP(ww, r)

			resp, ok := capture.response(ww.Status(), ww.Header())
			if !ok {
				return
			}

			key := r.Clone(context.Background())
			rc.Tasks.WaitUntil(func(ctx context.Context) {
				if err := c.Put(ctx, key, resp); err != nil {
					rc.Logger.Warn("edge cache put failed", "error", err)
				}
			})
		})
	}
}

func replay(w http.ResponseWriter, resp *cache.Response) {
	h := w.Header()
	for k, vs := range resp.Header {
		h[k] = vs
	}
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

func hasDirective(cacheControl, directive string) bool {
	for _, d := range strings.Split(cacheControl, ",") {
		if strings.EqualFold(strings.TrimSpace(d), directive) {
			return true
		}
	}
	return false
}

// captureWriter buffers a copy of the body while it is sent. It decides on
// the first write whether the response can be cached at all and never
// fails, since errors from a tee abort the real response. The buffer grows
// with the body rather than up front from Content-Length.
type captureWriter struct {
	header  func() http.Header
	status  func() int
	max     int64
	decided bool
	skip    bool
	length  int64
	buf     bytes.Buffer
}

func (c *captureWriter) decide() {
	c.decided = true

	status := c.status()
	h := c.header()
	length, err := strconv.ParseInt(h.Get("Content-Length"), 10, 64)

	switch {
	case status < 200 || status > 299:
		c.skip = true
	case h.Get("Content-Range") != "":
		c.skip = true
	case err != nil || length < 0 || length >= c.max:
		c.skip = true
	default:
		c.length = length
	}
}

func (c *captureWriter) Write(p []byte) (int, error) {
	if !c.decided {
		c.decide()
	}
	if !c.skip {
		if int64(c.buf.Len()+len(p)) > c.length {
			c.skip = true
			c.buf = bytes.Buffer{}
		} else {
			c.buf.Write(p)
		}
	}
	return len(p), nil
}

// response returns the captured response if it is complete and cacheable.
func (c *captureWriter) response(status int, h http.Header) (*cache.Response, bool) {
	if !c.decided {
		// Nothing was written: only a declared empty body can be cached.
		c.decide()
	}
	if c.skip || int64(c.buf.Len()) != c.length {
		return nil, false
	}
	return &cache.Response{
		Status: status,
		Header: h.Clone(),
		Body:   c.buf.Bytes(),
	}, true
}
