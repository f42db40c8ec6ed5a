package ipgate

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/ipfs/go-cid"
)

// Namespace is the protocol tag of gateway URLs.
const Namespace = "ipfs"

// GatewayURL is the content address carried by a request URL.
type GatewayURL struct {
	Cid cid.Cid
	// Path is "" for the root, otherwise a decoded path starting with "/".
	Path string
	// Subdomain is true for <cid>.ipfs.<host> requests.
	Subdomain bool
}

// ParseGatewayURL recognises the subdomain form <cid>.ipfs.<suffix>/<path>
// and the path form /ipfs/<cid>/<path>.
func ParseGatewayURL(host string, u *url.URL) (GatewayURL, error) {
	hostname := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		hostname = h
	}

	labels := strings.Split(hostname, ".")
	if len(labels) > 1 {
		if c, err := cid.Decode(labels[0]); err == nil {
			if labels[1] != Namespace {
				return GatewayURL{}, fmt.Errorf("unsupported protocol %q: %w", labels[1], ErrBadRequest)
			}

			p, err := decodePath(strings.Split(strings.TrimPrefix(u.EscapedPath(), "/"), "/"))
			if err != nil {
				return GatewayURL{}, err
			}
			return GatewayURL{Cid: c, Path: p, Subdomain: true}, nil
		}
	}

	segments := strings.Split(u.EscapedPath(), "/")
	if len(segments) < 2 || segments[1] != Namespace {
		proto := ""
		if len(segments) > 1 {
			proto = segments[1]
		}
		return GatewayURL{}, fmt.Errorf("unsupported protocol %q: %w", proto, ErrBadRequest)
	}

	if len(segments) < 3 {
		return GatewayURL{}, fmt.Errorf("missing CID: %w", ErrBadRequest)
	}

	c, err := cid.Decode(segments[2])
	if err != nil {
		return GatewayURL{}, fmt.Errorf("invalid CID %q: %w", segments[2], ErrBadRequest)
	}

	p, err := decodePath(segments[3:])
	if err != nil {
		return GatewayURL{}, err
	}

	return GatewayURL{Cid: c, Path: p}, nil
}

func decodePath(segments []string) (string, error) {
	decoded := make([]string, 0, len(segments))
	for _, s := range segments {
		d, err := url.PathUnescape(s)
		if err != nil {
			return "", fmt.Errorf("invalid path segment %q: %w", s, ErrBadRequest)
		}
		decoded = append(decoded, d)
	}

	p := strings.Join(decoded, "/")
	if p == "" {
		return "", nil
	}
	return "/" + p, nil
}

// EncodePath percent-encodes every segment of a decoded path.
func EncodePath(p string) string {
	segments := strings.Split(p, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// String returns the path form of the address.
func (g GatewayURL) String() string {
	return "/" + Namespace + "/" + g.Cid.String() + EncodePath(g.Path)
}
