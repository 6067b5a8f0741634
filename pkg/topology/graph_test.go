package topology

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostKeyEscaping(t *testing.T) {
	tests := map[string]string{
		"QmHost":       "QmHost",
		"topic_a":      "host_topic_a",
		"host_x":       "host_host_x",
		"host_topic_a": "host_host_topic_a",
		"hosted":       "hosted",
		"":             "",
	}
	for in, want := range tests {
		assert.Equal(t, want, HostKey(in), in)
	}
	assert.NotEqual(t, TopicKey("a"), HostKey("topic_a"))
}

func TestTruncate(t *testing.T) {
	short := strings.Repeat("a", LabelLimit)
	assert.Equal(t, short, Truncate(short))

	long := strings.Repeat("b", LabelLimit) + "tail"
	assert.Equal(t, strings.Repeat("b", LabelLimit)+"…", Truncate(long))

	multibyte := strings.Repeat("é", LabelLimit+1)
	assert.Equal(t, strings.Repeat("é", LabelLimit)+"…", Truncate(multibyte))
}

func TestAddEdgeRequiresNodes(t *testing.T) {
	g := NewGraph()
	h := g.AddHost("h1", RolePeer)

	_, err := g.AddEdge(h, TopicKey("missing"))
	require.Error(t, err)

	topic := g.AddTopic("a")
	added, err := g.AddEdge(h, topic)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = g.AddEdge(h, topic)
	require.NoError(t, err)
	assert.False(t, added, "repeated pair collapses")
	assert.Len(t, g.Edges, 1)
}

func TestAddNodeKeepsFirst(t *testing.T) {
	g := NewGraph()
	assert.True(t, g.AddNode(Node{Key: "k", Label: "first"}))
	assert.False(t, g.AddNode(Node{Key: "k", Label: "second"}))

	n, ok := g.Node("k")
	require.True(t, ok)
	assert.Equal(t, "first", n.Label)
}

func TestGraphLookups(t *testing.T) {
	g := NewGraph()
	g.Local = g.AddHost("L", RoleLocal)
	ta := g.AddTopic("a")
	h := g.AddHost("topic_a", RolePeer)
	_, _ = g.AddEdge(g.Local, ta)
	_, _ = g.AddEdge(h, ta)

	n, ok := g.Host("topic_a")
	require.True(t, ok)
	assert.Equal(t, "host_topic_a", n.Key)
	assert.Equal(t, RolePeer, n.Role)

	_, ok = g.Host("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"topic_a"}, g.HostsInTopic("a"))
	assert.Equal(t, []string{"a"}, g.Topics())
	assert.Equal(t, Stats{Nodes: 3, Edges: 2, Topics: 1, Peers: 1}, g.Stats())
	assert.NoError(t, g.Validate())
}

func TestValidateDetectsDanglingEdge(t *testing.T) {
	g := NewGraph()
	g.AddHost("h1", RolePeer)
	g.Edges = append(g.Edges, Edge{Source: "h1", Target: "topic_x", Weight: 1})
	assert.Error(t, g.Validate())
}

func TestFilter(t *testing.T) {
	topics := []string{"chat", "Chatter", "files", "filesystem"}

	assert.Equal(t, topics, Filter(topics, ""))
	assert.Equal(t, []string{"chat"}, Filter(topics, "chat"))
	assert.Equal(t, []string{"files", "filesystem"}, Filter(topics, "file"))
	assert.Empty(t, Filter(topics, "zzz"))
	assert.NotNil(t, Filter(nil, "x"))
}
