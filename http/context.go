package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/sagarc03/ipgate"
	"github.com/sagarc03/ipgate/clock"
	"github.com/sagarc03/ipgate/deadline"
)

// Base is the state shared by every request. It is never modified after
// the handler is built.
type Base struct {
	Fetcher ipgate.Fetcher
	Logger  *slog.Logger
	Debug   bool
	Tasks   ipgate.Deferrer
	Clock   clock.Clock
}

// RequestContext is the per-request state filled in by the middlewares.
type RequestContext struct {
	Base

	ID     string
	Logger *slog.Logger

	// Set by WithParsedURL.
	URL   ipgate.GatewayURL
	Query url.Values

	// Set by WithDeadline.
	Deadline *deadline.Controller
}

// NewRequest clones the base for one request.
func (b *Base) NewRequest(r *http.Request) *RequestContext {
	id := uuid.NewString()
	return &RequestContext{
		Base:   *b,
		ID:     id,
		Logger: b.Logger.With("request_id", id, "method", r.Method, "url", r.URL.String()),
		Query:  r.URL.Query(),
	}
}

// Reset extends the request deadline after a unit of progress.
func (rc *RequestContext) Reset() {
	if rc.Deadline != nil {
		rc.Deadline.Reset()
	}
}

type requestContextKey struct{}

func withRequest(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// RequestFromContext returns the RequestContext of the current request.
func RequestFromContext(ctx context.Context) (*RequestContext, bool) {
	rc, ok := ctx.Value(requestContextKey{}).(*RequestContext)
	return rc, ok
}

// requestFrom returns the request state, building a throwaway one from
// the default logger when the handler is used without WithRequestContext.
func requestFrom(r *http.Request) *RequestContext {
	if rc, ok := RequestFromContext(r.Context()); ok {
		return rc
	}
	base := &Base{Logger: slog.Default(), Clock: clock.Real()}
	return base.NewRequest(r)
}
