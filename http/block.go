package http

import (
	"net/http"

	"github.com/ipfs/go-cid"

	"github.com/sagarc03/ipgate"
)

// serveBlock returns the raw bytes of the addressed block.
func (h *Handler) serveBlock(w http.ResponseWriter, r *http.Request) error {
	rc := requestFrom(r)

	c, err := resolveCid(r, rc)
	if err != nil {
		return err
	}

	return ServeSource(w, r, blockSource{fetcher: rc.Fetcher, cid: c}, SourceOptions{
		ETag:        `"` + c.String() + `.raw"`,
		ContentType: ipgate.MediaTypeRaw,
		Filename:    c.String() + ".bin",
		Attachment:  true,
		Header:      http.Header{"X-Content-Type-Options": {"nosniff"}},
	})
}

// resolveCid returns the CID the request path points at.
func resolveCid(r *http.Request, rc *RequestContext) (cid.Cid, error) {
	if rc.URL.Path == "" || rc.URL.Path == "/" {
		return rc.URL.Cid, nil
	}
	entry, err := rc.Fetcher.GetEntry(r.Context(), rc.URL.Cid, rc.URL.Path)
	if err != nil {
		return cid.Undef, err
	}
	return entry.Cid(), nil
}
