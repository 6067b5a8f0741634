package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/DeBrosOfficial/hdsview/pkg/errors"
)

// WriteJSON writes v as JSON with the given status code. Encoding errors are
// ignored; the header has already been sent.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes {"error": msg}.
func WriteError(w http.ResponseWriter, code int, msg string) {
	WriteJSON(w, code, map[string]any{"error": msg})
}

// WriteErr maps a typed error to its status and writes the structured body,
// tagged with the request id when one is set.
func WriteErr(w http.ResponseWriter, r *http.Request, err error) {
	httpErr := errors.ToHTTPError(err, middleware.GetReqID(r.Context()))
	WriteJSON(w, httpErr.Status, httpErr)
}

// WriteText writes a non-JSON body, such as a DOT export.
func WriteText(w http.ResponseWriter, code int, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}
