package inspector

import (
	stderrors "errors"
	"net/http"
	"net/url"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mackerelio/go-osstat/memory"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/hdsview/pkg/directory"
	"github.com/DeBrosOfficial/hdsview/pkg/discovery"
	"github.com/DeBrosOfficial/hdsview/pkg/errors"
	"github.com/DeBrosOfficial/hdsview/pkg/httputil"
	"github.com/DeBrosOfficial/hdsview/pkg/logging"
	"github.com/DeBrosOfficial/hdsview/pkg/session"
	"github.com/DeBrosOfficial/hdsview/pkg/topology"
)

type memoryStats struct {
	Total uint64 `json:"total"`
	Used  uint64 `json:"used"`
	Free  uint64 `json:"free"`
}

type healthResponse struct {
	Status      string        `json:"status"`
	Session     session.State `json:"session"`
	Uptime      string        `json:"uptime"`
	Goroutines  int           `json:"goroutines"`
	Subscribers int           `json:"subscribers"`
	Memory      *memoryStats  `json:"memory,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:      "ok",
		Session:     s.session.State(),
		Uptime:      time.Since(s.started).Round(time.Second).String(),
		Goroutines:  runtime.NumGoroutine(),
		Subscribers: s.hub.Count(),
	}
	if mem, err := memory.Get(); err == nil {
		resp.Memory = &memoryStats{Total: mem.Total, Used: mem.Used, Free: mem.Free}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, s.session.Snapshot())
}

type connectRequest struct {
	Host string `json:"host"`
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := httputil.DecodeJSONStrict(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !httputil.RequireNotEmpty(w, req.Host, "host") {
		return
	}

	if err := s.session.Connect(r.Context(), req.Host); err != nil {
		if stderrors.Is(err, session.ErrConnectInFlight) {
			httputil.WriteError(w, http.StatusConflict, err.Error())
			return
		}
		httputil.WriteErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, s.session.Snapshot())
}

type graphResponse struct {
	topology.ForceGraph
	Self        discovery.SelfStats `json:"self"`
	CompletedAt time.Time           `json:"completed_at"`
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	res := s.discovery.Latest()
	if res == nil || httputil.QueryParamBool(r, "refresh", true) {
		var err error
		if res, err = s.discovery.Discover(r.Context()); err != nil {
			httputil.WriteErr(w, r, err)
			return
		}
	}

	if httputil.QueryParam(r, "format", "json") == "dot" {
		w.Header().Set("Content-Disposition", `attachment; filename="topology.dot"`)
		httputil.WriteText(w, http.StatusOK, "text/vnd.graphviz; charset=utf-8",
			res.Graph.ToDOT(res.Self.Identity.ServerName))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, graphResponse{
		ForceGraph:  res.Graph.ForceGraph(),
		Self:        res.Self,
		CompletedAt: res.CompletedAt,
	})
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	client, err := s.session.Client()
	if err != nil {
		httputil.WriteErr(w, r, err)
		return
	}
	topics, err := client.ListTopics(r.Context())
	if err != nil {
		httputil.WriteErr(w, r, err)
		return
	}

	search := r.URL.Query().Get("search")
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"search": search,
		"topics": topology.Filter(topics, search),
	})
}

type memberView struct {
	Identity  string   `json:"identity"`
	Label     string   `json:"label"`
	Subtopics []string `json:"subtopics"`
	Signature string   `json:"signature,omitempty"`
}

func (s *Server) handleTopic(w http.ResponseWriter, r *http.Request) {
	topic, ok := pathValue(w, r, "topic")
	if !ok {
		return
	}
	client, err := s.session.Client()
	if err != nil {
		httputil.WriteErr(w, r, err)
		return
	}

	subtopics := r.URL.Query()["subtopic"]
	membership, err := client.GetTopicMembership(r.Context(), topic, subtopics...)
	if err != nil {
		httputil.WriteErr(w, r, err)
		return
	}

	members := make([]memberView, 0, len(membership))
	for _, id := range membership.Hosts() {
		meta := membership[id]
		subs := meta.Subtopics
		if subs == nil {
			subs = []string{}
		}
		members = append(members, memberView{
			Identity:  id,
			Label:     topology.Truncate(id),
			Subtopics: subs,
			Signature: meta.Signature,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"topic":     topic,
		"subtopics": subtopics,
		"hosts":     members,
	})
}

type hostView struct {
	Identity   string            `json:"identity"`
	Label      string            `json:"label"`
	Profile    directory.Profile `json:"profile"`
	Attributes map[string]string `json:"attributes"`
	Expired    []string          `json:"expired"`
}

// handleHost fetches a host profile on demand. Failures are reported to the
// caller only; the session is not touched.
func (s *Server) handleHost(w http.ResponseWriter, r *http.Request) {
	identity, ok := pathValue(w, r, "identity")
	if !ok {
		return
	}
	client, err := s.session.Client()
	if err != nil {
		httputil.WriteErr(w, r, err)
		return
	}

	state, err := client.GetHostState(r.Context(), identity)
	if err != nil {
		s.logger.ComponentWarn(logging.ComponentInspector, "host lookup failed",
			zap.String("identity", identity), zap.Error(err))
		httputil.WriteErr(w, r, err)
		return
	}

	attrs := make(map[string]string, len(state.Attributes))
	for k, a := range state.Attributes {
		attrs[k] = a.Value
	}
	expired := state.Expired
	if expired == nil {
		expired = []string{}
	}
	httputil.WriteJSON(w, http.StatusOK, hostView{
		Identity:   identity,
		Label:      topology.Truncate(identity),
		Profile:    state.Profile(),
		Attributes: attrs,
		Expired:    expired,
	})
}

func (s *Server) handleSaveDefault(w http.ResponseWriter, r *http.Request) {
	if s.prefs == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "preferences are not configured")
		return
	}
	snap := s.session.Snapshot()
	if snap.ServerName == "" {
		httputil.WriteErr(w, r, errors.ErrNotConnected)
		return
	}
	if err := s.prefs.SaveDefault(snap.Address, snap.ServerName); err != nil {
		s.logger.ComponentError(logging.ComponentInspector, "failed to save default directory", zap.Error(err))
		httputil.WriteErr(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"host":       snap.Address,
		"servername": snap.ServerName,
	})
}

// pathValue returns a decoded URL parameter, writing a 400 if it is unusable.
func pathValue(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v := chi.URLParam(r, name)
	if r.URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(v); err == nil {
			v = unescaped
		}
	}
	if !httputil.ValidatePathValue(v) {
		httputil.WriteError(w, http.StatusBadRequest, "invalid "+name)
		return "", false
	}
	return v, true
}
