// Package ipgate implements the protocol layer of a content-addressed HTTP
// gateway.
//
// The root package holds the vocabulary shared by the gateway packages:
// the Fetcher, Entry and Blockstore collaborator interfaces, byte range
// decoding and resolution, archive and content scope negotiation, gateway
// URL parsing, content type detection and the sentinel errors that the
// http package maps to status codes.
//
// # Key Components
//
//   - ParseGatewayURL: subdomain (<cid>.ipfs.<host>) and path (/ipfs/<cid>/...) addressing
//   - DecodeRangeHeader / ResolveRange: Range header codec
//   - ParseArchiveParams / ParseContentScope / NegotiateFormat: content negotiation
//   - DetectContentType: byte sniffing with extension fallback
//   - TaskGroup: deferred work that outlives a response (edge cache writes)
//
// # Example Usage
//
//	ranges, err := ipgate.DecodeRangeHeader("bytes=3-4,-2")
//	if err != nil {
//	    return err // wraps ipgate.ErrBadRequest
//	}
//	for _, r := range ranges {
//	    abs := ipgate.ResolveRange(r, size)
//	    if !abs.Valid(size) {
//	        return ipgate.ErrRangeNotSatisfiable
//	    }
//	}
//
// See the http package for the gateway handler, the dagfs package for the
// reference Fetcher, and the blockstore package for block storage backends.
package ipgate
