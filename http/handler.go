package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/sagarc03/ipgate"
	"github.com/sagarc03/ipgate/cache"
	"github.com/sagarc03/ipgate/clock"
)

// DefaultTimeout is the progress timeout used when HandlerConfig.Timeout
// is zero.
const DefaultTimeout = 30 * time.Second

type CORSConfig struct {
	Enabled          bool
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

type HandlerConfig struct {
	CORS  CORSConfig
	Debug bool
	// Timeout is reset on every unit of progress. Negative disables it.
	Timeout time.Duration

	// Cache enables the edge cache when non-nil.
	Cache              cache.Cache
	CacheMaxObjectSize int64

	Tasks  ipgate.Deferrer
	Clock  clock.Clock
	Logger *slog.Logger
}

// Handler serves content-addressed data over HTTP.
type Handler struct {
	config HandlerConfig
	base   *Base
}

// NewHandler creates a new Handler reading content through fetcher.
func NewHandler(config *HandlerConfig, fetcher ipgate.Fetcher) *Handler {
	cfg := *config
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CacheMaxObjectSize <= 0 {
		cfg.CacheMaxObjectSize = DefaultCacheMaxObjectSize
	}
	if cfg.Tasks == nil {
		cfg.Tasks = ipgate.NewTaskGroup(0)
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Handler{
		config: cfg,
		base: &Base{
			Fetcher: fetcher,
			Logger:  cfg.Logger,
			Debug:   cfg.Debug,
			Tasks:   cfg.Tasks,
			Clock:   cfg.Clock,
		},
	}
}

// Router returns an http.Handler serving /ipfs/<cid>/<path> and
// <cid>.ipfs.<host>/<path> requests.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	if h.config.CORS.Enabled {
		methods := h.config.CORS.AllowedMethods
		if len(methods) == 0 {
			methods = []string{http.MethodGet, http.MethodHead}
		}
		exposed := h.config.CORS.ExposedHeaders
		if len(exposed) == 0 {
			exposed = []string{"Content-Length", "Content-Range", "Etag"}
		}

		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   methods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   exposed,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.Use(WithRequestContext(h.base))
	if h.config.Cache != nil {
		r.Use(WithEdgeCache(h.config.Cache, h.config.CacheMaxObjectSize))
	}

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		HandleError(w, r, fmt.Errorf("%s: %w", r.Method, ipgate.ErrMethodNotAllowed))
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		HandleError(w, r, fmt.Errorf("%s: %w", r.URL.Path, ipgate.ErrNotFound))
	})

	r.Group(func(r chi.Router) {
		r.Use(WithParsedURL)
		r.Use(WithDeadline(h.config.Timeout))
		r.Get("/*", h.handleGet)
		r.Head("/*", h.handleGet)
	})

	return r
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	format, err := ipgate.NegotiateFormat(r)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	switch format {
	case ipgate.FormatCAR:
		err = h.serveCar(w, r)
	case ipgate.FormatRaw:
		err = h.serveBlock(w, r)
	default:
		err = h.serveEntry(w, r)
	}

	if err != nil {
		HandleError(w, r, err)
	}
}

// serveEntry renders the entry at the request path for browsers.
func (h *Handler) serveEntry(w http.ResponseWriter, r *http.Request) error {
	rc := requestFrom(r)

	entry, err := rc.Fetcher.GetEntry(r.Context(), rc.URL.Cid, rc.URL.Path)
	if err != nil {
		return err
	}

	switch kind := entry.Kind(); {
	case kind.IsDirectory():
		return h.serveDirectory(w, r, entry)
	case kind.IsFile():
		return h.serveFile(w, r, entry)
	default:
		return fmt.Errorf("render %s entry %s: %w", kind, entry.Cid(), ipgate.ErrNotImplemented)
	}
}
