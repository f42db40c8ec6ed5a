package http

import (
	"fmt"
	"io"
	"net/http"

	blocks "github.com/ipfs/go-block-format"
	"golang.org/x/sync/errgroup"

	"github.com/sagarc03/ipgate"
	"github.com/sagarc03/ipgate/car"
)

// serveCar streams a CARv1 of the addressed DAG. Traversal runs in its own
// goroutine feeding the encoder while the response is being written, so a
// failure half way can only truncate the body.
func (h *Handler) serveCar(w http.ResponseWriter, r *http.Request) error {
	rc := requestFrom(r)

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return fmt.Errorf("%s: %w", r.Method, ipgate.ErrMethodNotAllowed)
	}

	params, err := ipgate.ParseArchiveParams(r.Header.Get("Accept"))
	if err != nil {
		return err
	}

	scopeKey := "dag-scope"
	if !rc.Query.Has(scopeKey) && rc.Query.Has("car-scope") {
		scopeKey = "car-scope"
	}
	scope, err := ipgate.ParseContentScope(rc.Query, scopeKey)
	if err != nil {
		return err
	}

	root := rc.URL.Cid
	p := rc.URL.Path

	etag := fmt.Sprintf(`W/"%s%s.%s.car"`, root, ipgate.EncodePath(p), scope)
	if notModified(w, r, etag) {
		return nil
	}

	// Surface missing content as 404 before the archive starts.
	if p != "" {
		if _, err := rc.Fetcher.GetEntry(r.Context(), root, p); err != nil {
			return err
		}
	} else if _, err := rc.Fetcher.StatBlock(r.Context(), root); err != nil {
		return err
	}

	hdr := w.Header()
	hdr.Set("Content-Type", fmt.Sprintf("%s; version=%d; order=%s; dups=y", ipgate.MediaTypeCAR, params.Version, params.Order))
	hdr.Set("Accept-Ranges", "none")
	hdr.Set("X-Content-Type-Options", "nosniff")
	hdr.Set("Etag", etag)
	hdr.Set("Cache-Control", ImmutableCacheControl)
	hdr.Set("Content-Disposition", contentDisposition(rc.Query, root.String()+".car", true))

	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return nil
	}

	writer, body := car.NewPipe(root)
	defer func() { _ = body.Close() }()

	g, gctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		opts := ipgate.TraverseOptions{Scope: scope, Order: params.Order}
		err := rc.Fetcher.Traverse(gctx, root, p, opts, func(blk blocks.Block) error {
			if err := writer.Put(gctx, blk); err != nil {
				return err
			}
			rc.Reset()
			return nil
		})
		if closeErr := writer.Close(err); err == nil {
			err = closeErr
		}
		return err
	})

	w.WriteHeader(http.StatusOK)
	_, copyErr := io.Copy(&progressWriter{w: w, progress: rc.Reset}, body)
	// Unblocks the producer when the client went away.
	_ = body.Close()

	if err := g.Wait(); err != nil {
		return fmt.Errorf("write car %s%s: %w", root, p, err)
	}
	if copyErr != nil {
		return fmt.Errorf("send car %s%s: %w", root, p, copyErr)
	}

	rc.Logger.Debug("car sent", "scope", scope, "order", params.Order)
	return nil
}
