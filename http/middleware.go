package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/sagarc03/ipgate"
	"github.com/sagarc03/ipgate/deadline"
)

// WithRequestContext attaches a fresh RequestContext cloned from base and
// wraps the writer so later stages can tell whether headers were sent.
func WithRequestContext(base *Base) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := base.NewRequest(r)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(withRequest(r.Context(), rc)))
		})
	}
}

// WithParsedURL resolves the content address of the request.
func WithParsedURL(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gu, err := ipgate.ParseGatewayURL(r.Host, r.URL)
		if err != nil {
			HandleError(w, r, err)
			return
		}

		rc := requestFrom(r)
		rc.URL = gu
		rc.Logger = rc.Logger.With("cid", gu.Cid.String())
		next.ServeHTTP(w, r.WithContext(withRequest(r.Context(), rc)))
	})
}

// WithDeadline cancels the request context when no progress was reported
// for timeout. The deadline is cleared once the handler returned, which is
// after the whole body has been written.
func WithDeadline(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := requestFrom(r)

			ctrl := deadline.New(r.Context(), rc.Clock, timeout)
			defer ctrl.Clear()

			rc.Deadline = ctrl
			next.ServeHTTP(w, r.WithContext(withRequest(ctrl.Context(), rc)))
		})
	}
}
