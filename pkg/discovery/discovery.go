// Package discovery builds the topology graph for the connected directory.
package discovery

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DeBrosOfficial/hdsview/pkg/directory"
	"github.com/DeBrosOfficial/hdsview/pkg/errors"
	"github.com/DeBrosOfficial/hdsview/pkg/logging"
	"github.com/DeBrosOfficial/hdsview/pkg/metrics"
	"github.com/DeBrosOfficial/hdsview/pkg/topology"
)

// ClientSource yields the directory client of the active session.
type ClientSource interface {
	Client() (directory.DirectoryClient, error)
}

// SelfStats describes the directory the graph is centred on.
type SelfStats struct {
	Identity directory.Identity `json:"identity"`
	Profile  directory.Profile  `json:"profile"`
}

// Result is one completed discovery run.
type Result struct {
	Self        SelfStats       `json:"self"`
	Topics      []string        `json:"topics"`
	Graph       *topology.Graph `json:"-"`
	CompletedAt time.Time       `json:"completed_at"`
}

// Config contains discovery configuration
type Config struct {
	MaxConcurrentFetches int
}

// Service runs discovery against whatever directory the source is bound to.
type Service struct {
	source   ClientSource
	config   Config
	logger   *zap.Logger
	log      *logging.ColoredLogger
	metrics  *metrics.Registry
	observer topology.Observer

	latest atomic.Pointer[Result]
}

// NewService creates a discovery service.
func NewService(source ClientSource, config Config, logger *zap.Logger, reg *metrics.Registry) *Service {
	return &Service{
		source:  source,
		config:  config,
		logger:  logger,
		log:     logging.Wrap(logger),
		metrics: reg,
	}
}

// SetObserver registers a per-topic progress observer for later runs.
func (s *Service) SetObserver(o topology.Observer) {
	s.observer = o
}

// Latest returns the most recent successful result, or nil.
func (s *Service) Latest() *Result {
	return s.latest.Load()
}

// Discover fetches the directory's own identity and its topic list
// concurrently, then builds the graph from every topic's membership. A
// failure of either top-level fetch fails the run; per-topic failures only
// degrade the graph.
func (s *Service) Discover(ctx context.Context) (*Result, error) {
	client, err := s.source.Client()
	if err != nil {
		s.metrics.RecordDiscovery(errors.GetErrorCode(err))
		return nil, err
	}

	var (
		self   SelfStats
		topics []string
	)
	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		st, err := fetchSelfStats(egctx, client, s.log)
		if err != nil {
			return err
		}
		self = st
		return nil
	})
	eg.Go(func() error {
		t, err := client.ListTopics(egctx)
		if err != nil {
			return err
		}
		topics = t
		return nil
	})
	if err := eg.Wait(); err != nil {
		s.metrics.RecordDiscovery(errors.GetErrorCode(err))
		s.log.ComponentWarn(logging.ComponentDiscovery, "discovery failed",
			zap.String("target", client.Target().String()), zap.Error(err))
		return nil, err
	}

	opts := []topology.Option{
		topology.WithLogger(s.logger),
		topology.WithMetrics(s.metrics),
		topology.WithMaxConcurrentFetches(s.config.MaxConcurrentFetches),
	}
	if s.observer != nil {
		opts = append(opts, topology.WithObserver(s.observer))
	}

	g, err := topology.Build(ctx, self.Identity.ServerName, topics, MembershipFetcher(client), opts...)
	if err != nil {
		s.metrics.RecordDiscovery(errors.GetErrorCode(err))
		return nil, err
	}

	res := &Result{Self: self, Topics: topics, Graph: g, CompletedAt: time.Now().UTC()}
	s.latest.Store(res)
	s.metrics.RecordDiscovery("ok")
	s.log.ComponentInfo(logging.ComponentDiscovery, "discovery complete",
		zap.String("local", self.Identity.ServerName),
		zap.Int("topics", len(topics)),
		zap.Strings("degraded", g.Degraded))
	return res, nil
}

func fetchSelfStats(ctx context.Context, client directory.DirectoryClient, log *logging.ColoredLogger) (SelfStats, error) {
	id, err := client.Identify(ctx)
	if err != nil {
		return SelfStats{}, err
	}
	st := SelfStats{Identity: id}

	state, err := client.GetHostState(ctx, id.ServerName)
	if err != nil {
		log.ComponentDebug(logging.ComponentDiscovery, "self profile unavailable",
			zap.String("servername", id.ServerName), zap.Error(err))
		return st, nil
	}
	st.Profile = state.Profile()
	return st, nil
}

// MembershipFetcher adapts a directory client for the topology builder.
func MembershipFetcher(client directory.DirectoryClient) topology.MembershipFetcher {
	return topology.MembershipFetcherFunc(func(ctx context.Context, topic string) ([]string, error) {
		m, err := client.GetTopicMembership(ctx, topic)
		if err != nil {
			return nil, err
		}
		return m.Hosts(), nil
	})
}
