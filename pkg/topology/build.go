package topology

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DeBrosOfficial/hdsview/pkg/errors"
	"github.com/DeBrosOfficial/hdsview/pkg/logging"
	"github.com/DeBrosOfficial/hdsview/pkg/metrics"
)

// MembershipFetcher returns the host identities registered under a topic.
type MembershipFetcher interface {
	FetchMembership(ctx context.Context, topic string) ([]string, error)
}

// MembershipFetcherFunc adapts a function to MembershipFetcher.
type MembershipFetcherFunc func(ctx context.Context, topic string) ([]string, error)

// FetchMembership calls f.
func (f MembershipFetcherFunc) FetchMembership(ctx context.Context, topic string) ([]string, error) {
	return f(ctx, topic)
}

// Observer receives per-topic progress. Methods may be called concurrently
// from fetch goroutines.
type Observer interface {
	OnTopicFetched(topic string, hosts []string)
	OnTopicFailed(topic string, err error)
}

// Builder fetches membership for every topic and assembles a Graph.
type Builder struct {
	fetcher       MembershipFetcher
	observer      Observer
	logger        *logging.ColoredLogger
	metrics       *metrics.Registry
	maxConcurrent int
}

// Option configures a Builder.
type Option func(*Builder)

// WithObserver registers a progress observer.
func WithObserver(o Observer) Option {
	return func(b *Builder) { b.observer = o }
}

// WithMaxConcurrentFetches bounds in-flight membership fetches. n <= 0
// means unlimited.
func WithMaxConcurrentFetches(n int) Option {
	return func(b *Builder) { b.maxConcurrent = n }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) { b.logger = logging.Wrap(l) }
}

// WithMetrics records build metrics into reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(b *Builder) { b.metrics = reg }
}

// NewBuilder creates a Builder.
func NewBuilder(fetcher MembershipFetcher, opts ...Option) *Builder {
	b := &Builder{fetcher: fetcher, logger: logging.Wrap(nil)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build is shorthand for NewBuilder(fetcher, opts...).Build(ctx, local, topics).
func Build(ctx context.Context, local string, topics []string, fetcher MembershipFetcher, opts ...Option) (*Graph, error) {
	return NewBuilder(fetcher, opts...).Build(ctx, local, topics)
}

type fetchResult struct {
	hosts []string
	err   error
}

// Build seeds the graph with the local host and every topic, fetches all
// memberships concurrently and returns only after every fetch has settled.
// A failed topic keeps its node and local edge, contributes no hosts and is
// listed in Graph.Degraded. Only context cancellation fails the build.
func (b *Builder) Build(ctx context.Context, local string, topics []string) (*Graph, error) {
	if local == "" {
		return nil, errors.NewValidationError("local", "local host identity must not be empty", local)
	}
	start := time.Now()

	g := NewGraph()
	g.Local = g.AddHost(local, RoleLocal)

	topics = uniqueTopics(topics)
	for _, t := range topics {
		key := g.AddTopic(t)
		if _, err := g.AddEdge(g.Local, key); err != nil {
			return nil, errors.NewInternalError("failed to link local host", err)
		}
	}

	results := make([]fetchResult, len(topics))
	eg, egctx := errgroup.WithContext(ctx)
	if b.maxConcurrent > 0 {
		eg.SetLimit(b.maxConcurrent)
	}
	for i, topic := range topics {
		eg.Go(func() error {
			hosts, err := b.fetcher.FetchMembership(egctx, topic)
			if err != nil {
				perr := errors.NewPartialDataError("topic "+topic, err)
				results[i] = fetchResult{err: perr}
				b.logger.ComponentWarn(logging.ComponentTopology, "membership fetch failed, topic degraded",
					zap.String("topic", topic), zap.Error(err))
				if b.observer != nil {
					b.observer.OnTopicFailed(topic, perr)
				}
				return nil
			}
			results[i] = fetchResult{hosts: hosts}
			if b.observer != nil {
				b.observer.OnTopicFetched(topic, hosts)
			}
			return nil
		})
	}
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Merge in topic order so the graph does not depend on completion order.
	for i, topic := range topics {
		res := results[i]
		if res.err != nil {
			g.Degraded = append(g.Degraded, topic)
			continue
		}
		topicKey := TopicKey(topic)
		for _, identity := range res.hosts {
			if identity == "" {
				continue
			}
			role := RolePeer
			if HostKey(identity) == g.Local {
				role = RoleLocal
			}
			hostKey := g.AddHost(identity, role)
			if _, err := g.AddEdge(hostKey, topicKey); err != nil {
				return nil, errors.NewInternalError("failed to link host", err)
			}
		}
	}

	stats := g.Stats()
	b.metrics.RecordGraphBuild(stats.Nodes, stats.Edges, stats.Degraded, time.Since(start))
	b.logger.ComponentInfo(logging.ComponentTopology, "graph built",
		zap.Int("nodes", stats.Nodes),
		zap.Int("edges", stats.Edges),
		zap.Int("degraded", stats.Degraded),
		zap.Duration("took", time.Since(start)))

	return g, nil
}

func uniqueTopics(topics []string) []string {
	seen := make(map[string]struct{}, len(topics))
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
