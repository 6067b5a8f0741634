package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/hdsview/pkg/errors"
	"github.com/DeBrosOfficial/hdsview/pkg/metrics"
)

const testServerName = "QmDirectoryServerName"

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// newTestClient starts a fake directory serving mux and returns a client for it.
func newTestClient(t *testing.T, mux *http.ServeMux, opts Options, logger *zap.Logger) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	target, err := NormalizeAddress(srv.URL)
	require.NoError(t, err)

	opts.HTTPClient = srv.Client()
	if logger == nil {
		logger = zap.NewNop()
	}
	c, err := New(target, opts, logger)
	require.NoError(t, err)
	return c
}

func TestClient_Identify(t *testing.T) {
	t.Run("directory", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/_hds/identify", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "hdsview-test", r.Header.Get("User-Agent"))
			writeJSON(w, http.StatusOK, map[string]string{"hds.servername": testServerName, "hds.type": DirectoryType})
		})
		c := newTestClient(t, mux, Options{UserAgent: "hdsview-test"}, nil)

		id, err := c.Identify(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Identity{ServerName: testServerName, ServerType: DirectoryType}, id)
	})

	t.Run("wrong server type", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/_hds/identify", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"hds.servername": testServerName, "hds.type": "hds.host"})
		})
		c := newTestClient(t, mux, Options{}, nil)

		_, err := c.Identify(context.Background())
		require.Error(t, err)
		assert.True(t, errors.IsProtocol(err))
		assert.Contains(t, err.Error(), "is not a directory")
	})

	t.Run("missing servername", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/_hds/identify", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"hds.type": DirectoryType})
		})
		c := newTestClient(t, mux, Options{}, nil)

		_, err := c.Identify(context.Background())
		assert.True(t, errors.IsProtocol(err))
	})

	t.Run("malformed body", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/_hds/identify", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>hello</html>"))
		})
		c := newTestClient(t, mux, Options{}, nil)

		_, err := c.Identify(context.Background())
		assert.True(t, errors.IsProtocol(err))
	})

	t.Run("server error", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/_hds/identify", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		})
		c := newTestClient(t, mux, Options{}, nil)

		_, err := c.Identify(context.Background())
		require.Error(t, err)
		assert.True(t, errors.IsConnection(err))
		var connErr *errors.ConnectionError
		require.ErrorAs(t, err, &connErr)
		assert.Equal(t, http.StatusInternalServerError, connErr.StatusCode)
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NewServeMux())
		target, err := NormalizeAddress(srv.URL)
		require.NoError(t, err)
		srv.Close()

		c, err := New(target, Options{}, zap.NewNop())
		require.NoError(t, err)

		_, err = c.Identify(context.Background())
		require.Error(t, err)
		assert.True(t, errors.IsConnection(err))
	})

	t.Run("deadline", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/_hds/identify", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
		})
		c := newTestClient(t, mux, Options{Timeout: time.Second}, nil)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := c.Identify(ctx)
		require.Error(t, err)
		assert.True(t, errors.IsTimeout(err))
		assert.False(t, errors.IsConnection(err))
		assert.True(t, errors.ShouldRetry(err))
		assert.Equal(t, http.StatusGatewayTimeout, errors.StatusCode(err))

		var timeoutErr *errors.TimeoutError
		require.ErrorAs(t, err, &timeoutErr)
		assert.Equal(t, "GET "+c.Target().BaseURL()+"/identify", timeoutErr.Operation)
		assert.Equal(t, "1s", timeoutErr.Duration)
	})
}

func TestClient_ListTopics(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    []string
		wantErr bool
	}{
		{"topics", `{"topics":["chat","files"]}`, []string{"chat", "files"}, false},
		{"empty", `{"topics":[]}`, []string{}, false},
		{"null", `{"topics":null}`, []string{}, false},
		{"missing field", `{}`, nil, true},
		{"wrong type", `{"topics":"chat"}`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/_hds/topics", func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			c := newTestClient(t, mux, Options{}, nil)

			topics, err := c.ListTopics(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsProtocol(err))
				return
			}
			require.NoError(t, err)
			require.NotNil(t, topics)
			assert.Equal(t, tt.want, topics)
		})
	}
}

func TestClient_GetTopicMembership(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/_hds/topics/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.EscapedPath() {
		case "/_hds/topics/chat":
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"hosts": map[string]interface{}{
					"hostB": map[string]interface{}{"subtopics": []string{"en"}, "hds.signature": "sigB"},
					"hostA": map[string]interface{}{"subtopics": []string{}, "hds.signature": "sigA"},
				},
			})
		case "/_hds/topics/chat/en/irc":
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"hosts": map[string]interface{}{
					"hostB": map[string]interface{}{"subtopics": []string{"en", "irc"}, "hds.signature": "sigB"},
				},
			})
		case "/_hds/topics/a%2Fb":
			writeJSON(w, http.StatusOK, map[string]interface{}{"hosts": nil})
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{
				"hds.error":      ErrTypeTopicMissing,
				"hds.error.text": "Topic could not be found",
			})
		}
	})
	c := newTestClient(t, mux, Options{}, nil)
	ctx := context.Background()

	t.Run("members", func(t *testing.T) {
		m, err := c.GetTopicMembership(ctx, "chat")
		require.NoError(t, err)
		assert.Equal(t, []string{"hostA", "hostB"}, m.Hosts())
		assert.Equal(t, "sigB", m["hostB"].Signature)
		assert.Equal(t, []string{"en"}, m["hostB"].Subtopics)
	})

	t.Run("subtopics", func(t *testing.T) {
		m, err := c.GetTopicMembership(ctx, "chat", "en", "irc")
		require.NoError(t, err)
		assert.Equal(t, []string{"hostB"}, m.Hosts())
	})

	t.Run("escaped topic with null hosts", func(t *testing.T) {
		m, err := c.GetTopicMembership(ctx, "a/b")
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Empty(t, m)
	})

	t.Run("missing topic", func(t *testing.T) {
		_, err := c.GetTopicMembership(ctx, "nope")
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
		assert.Contains(t, err.Error(), "topic 'nope' not found")
	})

	t.Run("empty topic", func(t *testing.T) {
		_, err := c.GetTopicMembership(ctx, " ")
		assert.True(t, errors.IsValidation(err))
	})
}

func TestClient_RecordsMetrics(t *testing.T) {
	reg := metrics.NewRegistry()
	mux := http.NewServeMux()
	mux.HandleFunc("/_hds/identify", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"hds.servername": testServerName, "hds.type": DirectoryType})
	})
	mux.HandleFunc("/_hds/topics", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	c := newTestClient(t, mux, Options{Metrics: reg}, nil)

	_, err := c.Identify(context.Background())
	require.NoError(t, err)
	_, err = c.ListTopics(context.Background())
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.DirectoryRequestsTotal.WithLabelValues("identify", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.DirectoryRequestsTotal.WithLabelValues("topics", errors.CodeConnection)))
}

func TestFactoryDial(t *testing.T) {
	f := NewFactory(Options{}, zap.NewNop())

	c, err := f.Dial("example.org")
	require.NoError(t, err)
	assert.Equal(t, "https://example.org:27012", c.Target().String())

	_, err = f.Dial("")
	assert.True(t, errors.IsValidation(err))
}
