package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/DeBrosOfficial/hdsview/pkg/errors"
)

func TestWriteJSON(t *testing.T) {
	tests := []struct {
		name       string
		code       int
		data       any
		wantStatus int
		wantBody   string
	}{
		{
			name:       "simple map",
			code:       http.StatusOK,
			data:       map[string]any{"key": "value"},
			wantStatus: http.StatusOK,
			wantBody:   `{"key":"value"}`,
		},
		{
			name:       "array",
			code:       http.StatusCreated,
			data:       []string{"a", "b", "c"},
			wantStatus: http.StatusCreated,
			wantBody:   `["a","b","c"]`,
		},
		{
			name:       "markup stays data",
			code:       http.StatusOK,
			data:       map[string]any{"name": "<script>x</script>"},
			wantStatus: http.StatusOK,
			wantBody:   `{"name":"<script>x</script>"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteJSON(w, tt.code, tt.data)

			if w.Code != tt.wantStatus {
				t.Errorf("WriteJSON() status = %v, want %v", w.Code, tt.wantStatus)
			}
			if contentType := w.Header().Get("Content-Type"); contentType != "application/json" {
				t.Errorf("WriteJSON() Content-Type = %v, want application/json", contentType)
			}

			var got, want any
			if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if err := json.Unmarshal([]byte(tt.wantBody), &want); err != nil {
				t.Fatalf("failed to unmarshal expected: %v", err)
			}
			gotJSON, _ := json.Marshal(got)
			wantJSON, _ := json.Marshal(want)
			if string(gotJSON) != string(wantJSON) {
				t.Errorf("WriteJSON() body = %s, want %s", gotJSON, wantJSON)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, http.StatusBadRequest, "host is required")

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if body["error"] != "host is required" {
		t.Errorf("error = %q", body["error"])
	}
}

func TestWriteErr(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"connection", errors.NewConnectionError("https://dir:27012", 503, nil), http.StatusBadGateway, errors.CodeConnection},
		{"protocol", errors.NewProtocolError("not a directory", nil), http.StatusBadGateway, errors.CodeProtocol},
		{"validation", errors.NewValidationError("host", "must not be empty", ""), http.StatusBadRequest, errors.CodeValidation},
		{"not found", errors.NewNotFoundError("host", "Qm1"), http.StatusNotFound, errors.CodeNotFound},
		{"not connected", errors.ErrNotConnected, http.StatusConflict, errors.CodeFailedPrecondition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			w := httptest.NewRecorder()
			middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				WriteErr(w, r, tt.err)
			})).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			var body errors.HTTPError
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("failed to unmarshal: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
			if body.TraceID == "" {
				t.Error("expected request id in trace_id")
			}
			if want := tt.wantCode == errors.CodeConnection; body.Retryable != want {
				t.Errorf("retryable = %v, want %v", body.Retryable, want)
			}
		})
	}
}

func TestWriteText(t *testing.T) {
	w := httptest.NewRecorder()
	WriteText(w, http.StatusOK, "text/vnd.graphviz", []byte("graph G {}\n"))

	if got := w.Header().Get("Content-Type"); got != "text/vnd.graphviz" {
		t.Errorf("Content-Type = %q", got)
	}
	if w.Body.String() != "graph G {}\n" {
		t.Errorf("body = %q", w.Body.String())
	}
}
