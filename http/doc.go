// Package http serves content-addressed data over HTTP.
//
// A request is handled by a chain of chi middlewares followed by a
// dispatcher:
//
//   - WithRequestContext clones the shared Base into a RequestContext
//   - WithEdgeCache replays or stores complete responses
//   - WithParsedURL resolves /ipfs/<cid>/<path> and <cid>.ipfs.<host>/<path>
//   - WithDeadline attaches a resettable timeout
//
// The dispatcher then negotiates the response format. CAR requests stream
// an archive assembled concurrently with the response, raw requests return
// a single block, and everything else is rendered as a file or a directory
// listing. Byte ranges are honoured for files and blocks.
//
// # Usage
//
//	handler := http.NewHandler(&http.HandlerConfig{Timeout: 30 * time.Second}, fetcher)
//	srv := &nethttp.Server{Addr: ":8080", Handler: handler.Router()}
//
// Errors raised before the response starts are written as JSON:
//
//	{"error": "not_found", "message": "..."}
//
// Errors after the headers were sent truncate the body and are logged.
package http
