package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	h := w.Header()
	h.Del("Content-Length")
	h.Del("Content-Disposition")
	h.Del("Cache-Control")
	h.Del("Etag")
	h.Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError writes the response for err. Once headers have been sent the
// status can no longer change, so the error is only logged and the body is
// left truncated.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	rc := requestFrom(r)
	err = withCause(r.Context(), err)

	if ww, ok := w.(middleware.WrapResponseWriter); ok && ww.Status() != 0 {
		rc.Logger.Error("response aborted after headers were sent", "error", err, "status", ww.Status(), "bytes", ww.BytesWritten())
		return
	}

	class := classify(err)
	message := err.Error()

	switch {
	case class.status >= http.StatusInternalServerError:
		rc.Logger.Error("request error", "error", err, "status", class.status)
		if !rc.Debug && class.status == http.StatusInternalServerError {
			message = "Internal server error"
		}
	default:
		rc.Logger.Debug("request rejected", "error", err, "status", class.status)
	}

	if class.status == http.StatusMethodNotAllowed {
		w.Header().Set("Allow", "GET, HEAD")
	}

	WriteError(w, class.status, class.code, message)
}
