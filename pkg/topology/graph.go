// Package topology turns directory topic membership into a deduplicated
// host/topic graph.
package topology

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Role tags a node for styling.
type Role string

const (
	RoleLocal Role = "local"
	RolePeer  Role = "peer"
	RoleTopic Role = "topic"
)

const (
	// TopicPrefix namespaces topic keys.
	TopicPrefix = "topic_"
	// HostEscapePrefix is prepended to host identities that would otherwise
	// look like a topic key or an escaped host key.
	HostEscapePrefix = "host_"
	// LabelLimit is the number of characters of a host identity shown.
	LabelLimit = 64

	ellipsis = "…"
)

// TopicKey returns the node key for a topic.
func TopicKey(name string) string {
	return TopicPrefix + name
}

// HostKey returns the node key for a host identity. Host and topic keys are
// disjoint for every input.
func HostKey(identity string) string {
	if strings.HasPrefix(identity, TopicPrefix) || strings.HasPrefix(identity, HostEscapePrefix) {
		return HostEscapePrefix + identity
	}
	return identity
}

// Truncate returns the display form of a host identity: the first
// LabelLimit characters, with an ellipsis when anything was cut.
func Truncate(identity string) string {
	if utf8.RuneCountInString(identity) <= LabelLimit {
		return identity
	}
	runes := []rune(identity)
	return string(runes[:LabelLimit]) + ellipsis
}

// Node is a graph vertex: either a host or a topic.
type Node struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Role  Role   `json:"role"`
	// Identity is the full host identity, or the topic name for topics.
	Identity string `json:"identity"`
}

// IsTopic reports whether the node is a topic.
func (n Node) IsTopic() bool { return n.Role == RoleTopic }

// Edge links a host (Source) to a topic (Target).
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Weight int    `json:"weight"`
}

type edgeKey struct{ source, target string }

// Graph holds nodes unique by key and an ordered, duplicate-free edge list.
// A Graph is built once and not mutated after Build returns it.
type Graph struct {
	Local    string   `json:"local"`
	Nodes    []Node   `json:"nodes"`
	Edges    []Edge   `json:"edges"`
	Degraded []string `json:"degraded,omitempty"`

	index map[string]int
	edges map[edgeKey]struct{}
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes: []Node{},
		Edges: []Edge{},
		index: make(map[string]int),
		edges: make(map[edgeKey]struct{}),
	}
}

// AddNode inserts n unless a node with the same key exists. It reports
// whether the node was inserted.
func (g *Graph) AddNode(n Node) bool {
	if _, ok := g.index[n.Key]; ok {
		return false
	}
	g.index[n.Key] = len(g.Nodes)
	g.Nodes = append(g.Nodes, n)
	return true
}

// AddHost inserts a host node keyed by its full identity.
func (g *Graph) AddHost(identity string, role Role) string {
	key := HostKey(identity)
	g.AddNode(Node{Key: key, Label: Truncate(identity), Role: role, Identity: identity})
	return key
}

// AddTopic inserts a topic node.
func (g *Graph) AddTopic(name string) string {
	key := TopicKey(name)
	g.AddNode(Node{Key: key, Label: name, Role: RoleTopic, Identity: name})
	return key
}

// AddEdge links two existing nodes. A repeated (source, target) pair is
// collapsed into the existing edge. Unknown endpoints are an error.
func (g *Graph) AddEdge(source, target string) (bool, error) {
	if _, ok := g.index[source]; !ok {
		return false, fmt.Errorf("edge source %q is not a node", source)
	}
	if _, ok := g.index[target]; !ok {
		return false, fmt.Errorf("edge target %q is not a node", target)
	}
	k := edgeKey{source, target}
	if _, ok := g.edges[k]; ok {
		return false, nil
	}
	g.edges[k] = struct{}{}
	g.Edges = append(g.Edges, Edge{Source: source, Target: target, Weight: 1})
	return true, nil
}

// Node looks a node up by key.
func (g *Graph) Node(key string) (Node, bool) {
	i, ok := g.index[key]
	if !ok {
		return Node{}, false
	}
	return g.Nodes[i], true
}

// Host looks a host node up by its full identity.
func (g *Graph) Host(identity string) (Node, bool) {
	n, ok := g.Node(HostKey(identity))
	if !ok || n.IsTopic() {
		return Node{}, false
	}
	return n, true
}

// HostsInTopic returns the identities of hosts linked to topic, excluding
// the local host.
func (g *Graph) HostsInTopic(topic string) []string {
	target := TopicKey(topic)
	var hosts []string
	for _, e := range g.Edges {
		if e.Target != target || e.Source == g.Local {
			continue
		}
		if n, ok := g.Node(e.Source); ok {
			hosts = append(hosts, n.Identity)
		}
	}
	return hosts
}

// Topics returns topic names in insertion order.
func (g *Graph) Topics() []string {
	var topics []string
	for _, n := range g.Nodes {
		if n.IsTopic() {
			topics = append(topics, n.Identity)
		}
	}
	return topics
}

// Stats summarizes a graph.
type Stats struct {
	Nodes    int `json:"nodes"`
	Edges    int `json:"edges"`
	Topics   int `json:"topics"`
	Peers    int `json:"peers"`
	Degraded int `json:"degraded"`
}

// Stats returns node and edge totals by role.
func (g *Graph) Stats() Stats {
	s := Stats{Nodes: len(g.Nodes), Edges: len(g.Edges), Degraded: len(g.Degraded)}
	for _, n := range g.Nodes {
		switch n.Role {
		case RoleTopic:
			s.Topics++
		case RolePeer:
			s.Peers++
		}
	}
	return s
}

// Validate checks that node keys are unique and every edge endpoint exists.
func (g *Graph) Validate() error {
	seen := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, dup := seen[n.Key]; dup {
			return fmt.Errorf("duplicate node key %q", n.Key)
		}
		seen[n.Key] = struct{}{}
	}
	for _, e := range g.Edges {
		if _, ok := seen[e.Source]; !ok {
			return fmt.Errorf("edge %s->%s: missing source", e.Source, e.Target)
		}
		if _, ok := seen[e.Target]; !ok {
			return fmt.Errorf("edge %s->%s: missing target", e.Source, e.Target)
		}
	}
	return nil
}
