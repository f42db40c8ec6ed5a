package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	"github.com/sagarc03/ipgate"
)

// ImmutableCacheControl is sent with every content response.
const ImmutableCacheControl = "public, max-age=29030400, immutable"

// SourceOptions describes the headers of a Source response.
type SourceOptions struct {
	// ETag is the full header value, quotes and weak prefix included.
	ETag        string
	ContentType string
	// Filename is used for Content-Disposition when the request has no
	// filename parameter. Empty means no header unless one is requested.
	Filename string
	// Attachment makes the default disposition attachment instead of inline.
	Attachment bool
	// Header holds extra headers copied onto the response.
	Header http.Header
}

// notModified writes a 304 when If-None-Match matches etag.
func notModified(w http.ResponseWriter, r *http.Request, etag string) bool {
	if etag == "" || r.Header.Get("If-None-Match") != etag {
		return false
	}
	h := w.Header()
	h.Set("Etag", etag)
	h.Set("Cache-Control", ImmutableCacheControl)
	w.WriteHeader(http.StatusNotModified)
	return true
}

// contentDisposition derives the Content-Disposition header from the
// filename and download query parameters.
func contentDisposition(q url.Values, filename string, attachment bool) string {
	if name := q.Get("filename"); name != "" {
		filename = name
	}
	if d := q.Get("download"); d != "" && d != "false" {
		attachment = true
	}

	disposition := "inline"
	if attachment {
		disposition = "attachment"
	}
	if filename == "" && !attachment {
		return ""
	}
	return ipgate.ContentDisposition(disposition, filename)
}

// ServeSource writes src honouring Range, If-None-Match and HEAD.
//
// Errors returned before anything was written leave the response
// untouched so the caller can report them. Short sources are padded with
// zero bytes up to the announced length.
func ServeSource(w http.ResponseWriter, r *http.Request, src Source, opts SourceOptions) error {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return fmt.Errorf("%s: %w", r.Method, ipgate.ErrMethodNotAllowed)
	}

	if notModified(w, r, opts.ETag) {
		return nil
	}

	rc := requestFrom(r)
	ctx := r.Context()

	var ranges []ipgate.Range
	if v := r.Header.Get("Range"); v != "" {
		var err error
		if ranges, err = ipgate.DecodeRangeHeader(v); err != nil {
			return err
		}
	}

	size, err := src.Size(ctx)
	if err != nil {
		return err
	}

	resolved := make([]ipgate.AbsoluteRange, 0, len(ranges))
	for _, rng := range ranges {
		ar := ipgate.ResolveRange(rng, size)
		if !ar.Valid(size) {
			w.Header().Set("Content-Range", "bytes */"+strconv.FormatInt(size, 10))
			return fmt.Errorf("range %s of %d bytes: %w", rng, size, ipgate.ErrRangeNotSatisfiable)
		}
		resolved = append(resolved, ar)
	}

	h := w.Header()
	h.Set("Accept-Ranges", "bytes")
	h.Set("Cache-Control", ImmutableCacheControl)
	if opts.ETag != "" {
		h.Set("Etag", opts.ETag)
	}
	if d := contentDisposition(rc.Query, opts.Filename, opts.Attachment); d != "" {
		h.Set("Content-Disposition", d)
	}
	for k, vs := range opts.Header {
		h[k] = append([]string(nil), vs...)
	}

	out := &progressWriter{w: w, progress: rc.Reset}

	switch len(resolved) {
	case 0:
		setContentType(h, opts.ContentType)
		h.Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead || size == 0 {
			return nil
		}
		return streamRange(r, out, src, ipgate.AbsoluteRange{First: 0, Last: size - 1}, rc.Logger)

	case 1:
		ar := resolved[0]
		setContentType(h, opts.ContentType)
		h.Set("Content-Range", ar.ContentRange(size))
		h.Set("Content-Length", strconv.FormatInt(ar.Length(), 10))
		if ar.Length() == size {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusPartialContent)
		}
		if r.Method == http.MethodHead {
			return nil
		}
		return streamRange(r, out, src, ar, rc.Logger)

	default:
		return serveMultipart(w, r, out, src, resolved, size, opts.ContentType, rc.Logger)
	}
}

func setContentType(h http.Header, contentType string) {
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
}

// serveMultipart writes a multipart/byteranges body. Content-Length is
// omitted.
func serveMultipart(w http.ResponseWriter, r *http.Request, out io.Writer, src Source, ranges []ipgate.AbsoluteRange, size int64, contentType string, logger *slog.Logger) error {
	mw := multipart.NewWriter(out)
	w.Header().Set("Content-Type", "multipart/byteranges; boundary="+mw.Boundary())
	w.WriteHeader(http.StatusPartialContent)
	if r.Method == http.MethodHead {
		return nil
	}

	for _, ar := range ranges {
		part := textproto.MIMEHeader{}
		if contentType != "" {
			part.Set("Content-Type", contentType)
		}
		part.Set("Content-Range", ar.ContentRange(size))

		pw, err := mw.CreatePart(part)
		if err != nil {
			return fmt.Errorf("create part %s: %w", ar.ContentRange(size), err)
		}
		if err := streamRange(r, pw, src, ar, logger); err != nil {
			return err
		}
	}
	return mw.Close()
}

// streamRange copies exactly ar.Length() bytes of src to w.
func streamRange(r *http.Request, w io.Writer, src Source, ar ipgate.AbsoluteRange, logger *slog.Logger) error {
	rc, err := src.Stream(r.Context(), ar)
	if err != nil {
		return fmt.Errorf("stream %d-%d: %w", ar.First, ar.Last, err)
	}
	defer func() { _ = rc.Close() }()

	want := ar.Length()
	written, err := io.CopyN(w, rc, want)
	if errors.Is(err, io.EOF) {
		logger.Warn("source ended early, padding with zero bytes",
			"range", fmt.Sprintf("%d-%d", ar.First, ar.Last),
			"declared", want,
			"written", written)
		_, err = io.CopyN(w, zeros{}, want-written)
	}
	if err != nil {
		return fmt.Errorf("stream %d-%d: %w", ar.First, ar.Last, err)
	}
	return nil
}

type zeros struct{}

func (zeros) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

// progressWriter extends the request deadline on every write and flushes
// so clients see data as it is produced.
type progressWriter struct {
	w        io.Writer
	progress func()
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	if n > 0 {
		p.progress()
	}
	if f, ok := p.w.(http.Flusher); ok {
		f.Flush()
	}
	return n, err
}
