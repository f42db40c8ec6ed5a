package http

import (
	"fmt"
	"io"
	"net/http"

	"github.com/sagarc03/ipgate"
)

// serveFile streams a file-like entry.
func (h *Handler) serveFile(w http.ResponseWriter, r *http.Request, entry ipgate.Entry) error {
	etag := `"` + entry.Cid().String() + `"`
	if notModified(w, r, etag) {
		return nil
	}

	if entry.Size() == 0 {
		hdr := w.Header()
		hdr.Set("Etag", etag)
		hdr.Set("Cache-Control", ImmutableCacheControl)
		w.WriteHeader(http.StatusNoContent)
		return nil
	}

	contentType, err := sniff(r, entry)
	if err != nil {
		return err
	}

	return ServeSource(w, r, entrySource{entry: entry}, SourceOptions{
		ETag:        etag,
		ContentType: contentType,
	})
}

// sniff detects the content type from the first bytes of entry and its name.
func sniff(r *http.Request, entry ipgate.Entry) (string, error) {
	rc, err := entry.Content(r.Context(), 0, ipgate.SniffLen)
	if err != nil {
		return "", fmt.Errorf("read head of %s: %w", entry.Cid(), err)
	}
	defer func() { _ = rc.Close() }()

	head, err := io.ReadAll(io.LimitReader(rc, ipgate.SniffLen))
	if err != nil {
		return "", fmt.Errorf("read head of %s: %w", entry.Cid(), err)
	}
	return ipgate.DetectContentType(entry.Name(), head), nil
}
