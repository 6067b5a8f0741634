// Package inspector serves the session, topology and host views over HTTP.
package inspector

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/DeBrosOfficial/hdsview/pkg/config"
	"github.com/DeBrosOfficial/hdsview/pkg/discovery"
	"github.com/DeBrosOfficial/hdsview/pkg/httputil"
	"github.com/DeBrosOfficial/hdsview/pkg/logging"
	"github.com/DeBrosOfficial/hdsview/pkg/metrics"
	"github.com/DeBrosOfficial/hdsview/pkg/preferences"
	"github.com/DeBrosOfficial/hdsview/pkg/session"
)

// Deps are the collaborators the inspector serves.
type Deps struct {
	Config      config.InspectorConfig
	Session     *session.Session
	Discovery   *discovery.Service
	Preferences *preferences.Store
	Metrics     *metrics.Registry
	Logger      *zap.Logger
}

// Server is the inspector HTTP server.
type Server struct {
	cfg       config.InspectorConfig
	session   *session.Session
	discovery *discovery.Service
	prefs     *preferences.Store
	metrics   *metrics.Registry
	logger    *logging.ColoredLogger
	hub       *Hub
	router    chi.Router
	started   time.Time

	certManager *autocert.Manager
	httpServer  *http.Server
	acmeServer  *http.Server
}

// New wires the router and subscribes the event hub to the session and
// discovery progress.
func New(d Deps) (*Server, error) {
	if d.Session == nil || d.Discovery == nil {
		return nil, fmt.Errorf("inspector requires a session and a discovery service")
	}
	if d.Metrics == nil {
		d.Metrics = metrics.DefaultRegistry()
	}

	s := &Server{
		cfg:       d.Config,
		session:   d.Session,
		discovery: d.Discovery,
		prefs:     d.Preferences,
		metrics:   d.Metrics,
		logger:    logging.Wrap(d.Logger),
		hub:       NewHub(d.Logger, d.Metrics),
		started:   time.Now(),
	}
	s.session.Subscribe(s.hub)
	s.discovery.SetObserver(s.hub)

	if d.Config.EnableHTTPS {
		s.certManager = &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(d.Config.DomainName),
			Cache:      autocert.DirCache(d.Config.TLSCacheDir),
		}
		s.logger.ComponentInfo(logging.ComponentInspector, "Let's Encrypt autocert configured",
			zap.String("domain", d.Config.DomainName),
			zap.String("cache_dir", d.Config.TLSCacheDir))
	}

	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	timeout := s.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  logging.NewStandardLogger(s.logger, logging.ComponentInspector),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)
	r.NotFound(httputil.NotFound)
	r.MethodNotAllowed(httputil.MethodNotAllowed)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	// The event stream is long-lived and stays outside the request timeout.
	r.Get("/api/events", s.hub.ServeWS)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(timeout))
		r.Get("/api/session", s.handleSession)
		r.Post("/api/connect", s.handleConnect)
		r.Get("/api/graph", s.handleGraph)
		r.Get("/api/topics", s.handleTopics)
		r.Get("/api/topics/{topic}", s.handleTopic)
		r.Get("/api/hosts/{identity}", s.handleHost)
		r.Post("/api/default", s.handleSaveDefault)
	})
	return r
}

// instrument records request counts and latency by route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.RecordHTTPRequest(r.Method, route, fmt.Sprint(status), time.Since(start))
	})
}

// Router returns the handler for tests and embedding.
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the event hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddr, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.certManager != nil {
		s.httpServer.TLSConfig = &tls.Config{
			MinVersion:     tls.VersionTLS12,
			GetCertificate: s.certManager.GetCertificate,
		}
		listener = tls.NewListener(listener, s.httpServer.TLSConfig)

		s.acmeServer = &http.Server{
			Addr:              ":80",
			Handler:           s.certManager.HTTPHandler(redirectHTTPS()),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := s.acmeServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.logger.ComponentError(logging.ComponentInspector, "ACME challenge server error", zap.Error(err))
			}
		}()
	}

	s.logger.ComponentInfo(logging.ComponentInspector, "inspector listening",
		zap.String("addr", listener.Addr().String()),
		zap.Bool("https", s.certManager != nil))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		return s.Stop()
	case err := <-errCh:
		if err != nil {
			s.logger.ComponentError(logging.ComponentInspector, "inspector server error", zap.Error(err))
		}
		return err
	}
}

// Stop closes event streams and shuts the servers down.
func (s *Server) Stop() error {
	s.hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.ComponentInfo(logging.ComponentInspector, "inspector shutting down")

	var errs []string
	for _, srv := range []*http.Server{s.acmeServer, s.httpServer} {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func redirectHTTPS() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		http.Redirect(w, r, "https://"+host+r.URL.RequestURI(), http.StatusMovedPermanently)
	})
}
