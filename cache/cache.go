// Package cache stores complete gateway responses for replay by the edge
// cache middleware.
package cache

import (
	"context"
	"net/http"
	"strings"
)

// Cache looks up and stores responses keyed by request.
type Cache interface {
	Match(r *http.Request) (*Response, bool)
	Put(ctx context.Context, r *http.Request, resp *Response) error
	// MaxObjectSize is the largest response the cache can hold, or zero
	// when it has no limit.
	MaxObjectSize() int64
}

// Response is a snapshot of a complete response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Clone returns a deep copy so callers may modify the result.
func (r *Response) Clone() *Response {
	return &Response{
		Status: r.Status,
		Header: r.Header.Clone(),
		Body:   append([]byte(nil), r.Body...),
	}
}

// size estimates the memory held by the response.
func (r *Response) size() int64 {
	n := int64(len(r.Body))
	for k, vs := range r.Header {
		n += int64(len(k))
		for _, v := range vs {
			n += int64(len(v))
		}
	}
	return n
}

// Key identifies a cached response. Requests differing in method, URL,
// Accept or Range are distinct.
func Key(r *http.Request) string {
	var b strings.Builder
	b.WriteString(r.Method)
	b.WriteByte(' ')
	if r.Host != "" {
		b.WriteString(r.Host)
	}
	b.WriteString(r.URL.RequestURI())
	b.WriteString("\naccept:")
	b.WriteString(r.Header.Get("Accept"))
	b.WriteString("\nrange:")
	b.WriteString(r.Header.Get("Range"))
	return b.String()
}
