package ipgate

import (
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	// MediaTypeCAR is the media type of archive responses.
	MediaTypeCAR = "application/vnd.ipld.car"
	// MediaTypeRaw is the media type of single block responses.
	MediaTypeRaw = "application/vnd.ipld.raw"
)

// Format is the rendering requested by the client.
type Format string

const (
	// FormatDefault renders files and directories for browsers.
	FormatDefault Format = ""
	FormatRaw     Format = "raw"
	FormatCAR     Format = "car"
)

// ParseArchiveParams extracts CAR parameters from an Accept header value.
// It returns the defaults when the header does not ask for a CAR.
func ParseArchiveParams(accept string) (ArchiveParams, error) {
	params := DefaultArchiveParams()

	for _, item := range strings.Split(accept, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		mediaType, attrs, err := parseAcceptItem(item)
		if err != nil {
			return ArchiveParams{}, err
		}
		if mediaType != MediaTypeCAR {
			continue
		}

		if v, ok := attrs["version"]; ok {
			version, err := strconv.ParseUint(v, 10, 64)
			if err != nil || version != 1 {
				return ArchiveParams{}, fmt.Errorf("unsupported CAR version %q: %w", v, ErrBadRequest)
			}
			params.Version = version
		}

		if v, ok := attrs["order"]; ok {
			order := Order(v)
			if !order.IsValid() {
				return ArchiveParams{}, fmt.Errorf("unsupported CAR block order %q: %w", v, ErrBadRequest)
			}
			params.Order = order
		}

		if v, ok := attrs["dups"]; ok {
			if v != "y" {
				return ArchiveParams{}, fmt.Errorf("unsupported CAR dups value %q: %w", v, ErrBadRequest)
			}
			params.Dups = true
		}

		return params, nil
	}

	return params, nil
}

// parseAcceptItem parses one Accept member. Unparseable members are
// skipped with an empty media type, except CAR members whose parameters
// are malformed: those are rejected so a client never gets an archive
// shaped differently than it asked for.
func parseAcceptItem(item string) (string, map[string]string, error) {
	if item == "" {
		return "", nil, nil
	}

	mediaType, attrs, err := mime.ParseMediaType(item)
	switch {
	case err == nil:
		return mediaType, attrs, nil
	case mediaType == MediaTypeCAR:
		return "", nil, fmt.Errorf("malformed CAR media type %q: %w", item, ErrBadRequest)
	default:
		return "", nil, nil
	}
}

// ParseContentScope reads a content scope from the query parameter key.
func ParseContentScope(q url.Values, key string) (ContentScope, error) {
	if !q.Has(key) {
		return ScopeAll, nil
	}

	scope := ContentScope(q.Get(key))
	if !scope.IsValid() {
		return "", fmt.Errorf("invalid %s %q: %w", key, scope, ErrBadRequest)
	}
	return scope, nil
}

// NegotiateFormat picks the response format from the format query
// parameter, falling back to the Accept header.
func NegotiateFormat(r *http.Request) (Format, error) {
	q := r.URL.Query()
	if q.Has("format") {
		switch f := Format(q.Get("format")); f {
		case FormatRaw, FormatCAR:
			return f, nil
		default:
			return "", fmt.Errorf("unsupported format %q: %w", f, ErrBadRequest)
		}
	}

	for _, item := range strings.Split(r.Header.Get("Accept"), ",") {
		mediaType, _, err := parseAcceptItem(strings.TrimSpace(item))
		if err != nil {
			return "", err
		}
		switch mediaType {
		case MediaTypeCAR:
			return FormatCAR, nil
		case MediaTypeRaw:
			return FormatRaw, nil
		}
	}

	return FormatDefault, nil
}
