package topology

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/DeBrosOfficial/hdsview/pkg/errors"
	"github.com/DeBrosOfficial/hdsview/pkg/metrics"
)

// staticFetcher serves fixed memberships; topics in fail return an error.
type staticFetcher struct {
	membership map[string][]string
	fail       map[string]error
	delay      map[string]time.Duration
}

func (f staticFetcher) FetchMembership(ctx context.Context, topic string) ([]string, error) {
	if d := f.delay[topic]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := f.fail[topic]; err != nil {
		return nil, err
	}
	return f.membership[topic], nil
}

type recordingObserver struct {
	mu      sync.Mutex
	fetched []string
	failed  map[string]error
}

func (o *recordingObserver) OnTopicFetched(topic string, hosts []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fetched = append(o.fetched, topic)
}

func (o *recordingObserver) OnTopicFailed(topic string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failed == nil {
		o.failed = map[string]error{}
	}
	o.failed[topic] = err
}

func nodeKeys(g *Graph) []string {
	keys := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		keys = append(keys, n.Key)
	}
	return keys
}

func edgePairs(g *Graph) []string {
	pairs := make([]string, 0, len(g.Edges))
	for _, e := range g.Edges {
		pairs = append(pairs, e.Source+"->"+e.Target)
	}
	return pairs
}

func TestBuildScenario(t *testing.T) {
	fetch := staticFetcher{membership: map[string][]string{
		"a": {"h1"},
		"b": {"h1", "h2"},
	}}

	g, err := Build(context.Background(), "L", []string{"a", "b"}, fetch)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"L", "topic_a", "topic_b", "h1", "h2"}, nodeKeys(g))
	assert.ElementsMatch(t, []string{
		"L->topic_a", "L->topic_b", "h1->topic_a", "h1->topic_b", "h2->topic_b",
	}, edgePairs(g))
	assert.NoError(t, g.Validate())

	local, ok := g.Node("L")
	require.True(t, ok)
	assert.Equal(t, RoleLocal, local.Role)
	h1, ok := g.Host("h1")
	require.True(t, ok)
	assert.Equal(t, RolePeer, h1.Role)
}

func TestBuildDeterministicOrder(t *testing.T) {
	// b completes before a; the merge still follows topic order.
	fetch := staticFetcher{
		membership: map[string][]string{"a": {"h1"}, "b": {"h2"}},
		delay:      map[string]time.Duration{"a": 30 * time.Millisecond},
	}
	g, err := Build(context.Background(), "L", []string{"a", "b"}, fetch)
	require.NoError(t, err)
	assert.Equal(t, []string{"L", "topic_a", "topic_b", "h1", "h2"}, nodeKeys(g))
}

func TestBuildIdentityDedup(t *testing.T) {
	fetch := staticFetcher{membership: map[string][]string{
		"a": {"shared"},
		"b": {"shared"},
	}}
	g, err := Build(context.Background(), "L", []string{"a", "b"}, fetch)
	require.NoError(t, err)

	hostNodes := 0
	hostEdges := 0
	for _, n := range g.Nodes {
		if n.Identity == "shared" {
			hostNodes++
		}
	}
	for _, e := range g.Edges {
		if e.Source == "shared" {
			hostEdges++
		}
	}
	assert.Equal(t, 1, hostNodes)
	assert.Equal(t, 2, hostEdges)
}

func TestBuildTruncationCollision(t *testing.T) {
	prefix := strings.Repeat("x", LabelLimit)
	h1, h2 := prefix+"one", prefix+"two"
	fetch := staticFetcher{membership: map[string][]string{"a": {h1, h2}}}

	g, err := Build(context.Background(), "L", []string{"a"}, fetch)
	require.NoError(t, err)

	n1, ok := g.Host(h1)
	require.True(t, ok)
	n2, ok := g.Host(h2)
	require.True(t, ok)
	assert.NotEqual(t, n1.Key, n2.Key)
	assert.Equal(t, n1.Label, n2.Label, "labels collide, keys do not")
	assert.Equal(t, 4, len(g.Nodes))
}

func TestBuildTopicNamespacing(t *testing.T) {
	// A host whose identity equals a topic name, and one that equals a topic key.
	fetch := staticFetcher{membership: map[string][]string{
		"a": {"a", "topic_a"},
	}}
	g, err := Build(context.Background(), "L", []string{"a"}, fetch)
	require.NoError(t, err)

	topicNode, ok := g.Node("topic_a")
	require.True(t, ok)
	assert.True(t, topicNode.IsTopic())

	hostA, ok := g.Host("a")
	require.True(t, ok)
	hostTopicA, ok := g.Host("topic_a")
	require.True(t, ok)
	assert.Equal(t, "a", hostA.Key)
	assert.Equal(t, "host_topic_a", hostTopicA.Key)
	assert.NoError(t, g.Validate())
}

func TestBuildDuplicateHostCollapses(t *testing.T) {
	fetch := staticFetcher{membership: map[string][]string{"a": {"h1", "h1"}}}
	g, err := Build(context.Background(), "L", []string{"a"}, fetch)
	require.NoError(t, err)
	assert.Equal(t, []string{"L->topic_a", "h1->topic_a"}, edgePairs(g))
}

func TestBuildLocalHostInMembership(t *testing.T) {
	fetch := staticFetcher{membership: map[string][]string{"a": {"L", "h1"}}}
	g, err := Build(context.Background(), "L", []string{"a"}, fetch)
	require.NoError(t, err)

	local, _ := g.Node("L")
	assert.Equal(t, RoleLocal, local.Role)
	assert.Equal(t, []string{"L->topic_a", "h1->topic_a"}, edgePairs(g))
}

func TestBuildDegradation(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	obs := &recordingObserver{}
	reg := metrics.NewRegistry()
	fetch := staticFetcher{
		membership: map[string][]string{"a": {"h1"}, "b": {"h2"}},
		fail:       map[string]error{"b": errors.NewConnectionError("https://dir:27012", 500, nil)},
	}

	g, err := Build(context.Background(), "L", []string{"a", "b"}, fetch,
		WithObserver(obs), WithLogger(zap.New(core)), WithMetrics(reg))
	require.NoError(t, err)

	_, ok := g.Node("topic_b")
	assert.True(t, ok, "failed topic keeps its node")
	assert.Contains(t, edgePairs(g), "L->topic_b")
	_, ok = g.Host("h2")
	assert.False(t, ok, "failed topic contributes no hosts")
	assert.Equal(t, []string{"b"}, g.Degraded)

	require.Contains(t, obs.failed, "b")
	assert.True(t, errors.IsPartialData(obs.failed["b"]))
	assert.True(t, errors.IsConnection(obs.failed["b"]))
	assert.Equal(t, []string{"a"}, obs.fetched)

	assert.Equal(t, 1, logs.FilterMessageSnippet("topic degraded").Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.DegradedTopicsTotal))
	assert.Equal(t, float64(len(g.Nodes)), testutil.ToFloat64(reg.GraphNodes))
}

func TestBuildCompletionBarrier(t *testing.T) {
	delays := map[string]time.Duration{
		"fast": 5 * time.Millisecond,
		"slow": 60 * time.Millisecond,
	}
	fetch := staticFetcher{
		membership: map[string][]string{"fast": {"h1"}, "slow": {"h2"}},
		delay:      delays,
	}

	start := time.Now()
	g, err := Build(context.Background(), "L", []string{"fast", "slow"}, fetch)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), delays["slow"])
	_, ok := g.Host("h2")
	assert.True(t, ok)
}

func TestBuildConcurrencyLimit(t *testing.T) {
	var inFlight, peak int32
	fetch := MembershipFetcherFunc(func(ctx context.Context, topic string) ([]string, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return []string{"h-" + topic}, nil
	})

	topics := make([]string, 12)
	for i := range topics {
		topics[i] = fmt.Sprintf("t%02d", i)
	}

	g, err := Build(context.Background(), "L", topics, fetch, WithMaxConcurrentFetches(3))
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	assert.Equal(t, 1+12+12, len(g.Nodes))
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fetch := staticFetcher{
		membership: map[string][]string{"a": {"h1"}},
		delay:      map[string]time.Duration{"a": time.Second},
	}
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	g, err := Build(ctx, "L", []string{"a"}, fetch)
	assert.Nil(t, g)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildRejectsEmptyLocal(t *testing.T) {
	_, err := Build(context.Background(), "", []string{"a"}, staticFetcher{})
	assert.True(t, errors.IsValidation(err))
}

func TestBuildNoTopics(t *testing.T) {
	g, err := Build(context.Background(), "L", nil, staticFetcher{})
	require.NoError(t, err)
	assert.Equal(t, []string{"L"}, nodeKeys(g))
	assert.Empty(t, g.Edges)
}

func TestBuildDuplicateTopics(t *testing.T) {
	var calls int32
	fetch := MembershipFetcherFunc(func(ctx context.Context, topic string) ([]string, error) {
		atomic.AddInt32(&calls, 1)
		return nil, nil
	})
	g, err := Build(context.Background(), "L", []string{"a", "a", "b"}, fetch)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls)
	topics := g.Topics()
	sort.Strings(topics)
	assert.Equal(t, []string{"a", "b"}, topics)
}
