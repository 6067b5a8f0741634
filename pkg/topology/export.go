package topology

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Node groups in the force-graph view.
const (
	GroupHost  = 1
	GroupTopic = 2
)

// ForceNode is a node in the force-layout view.
type ForceNode struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Group   int    `json:"group"`
	Role    Role   `json:"role"`
	FullID  string `json:"full_id,omitempty"`
	IsTopic bool   `json:"is_topic"`
}

// ForceLink is a link in the force-layout view.
type ForceLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Weight int    `json:"weight"`
}

// ForceGraph is the {nodes, links} shape consumed by force-layout renderers.
type ForceGraph struct {
	Nodes    []ForceNode `json:"nodes"`
	Links    []ForceLink `json:"links"`
	Degraded []string    `json:"degraded,omitempty"`
	Stats    Stats       `json:"stats"`
}

// ForceGraph converts the graph for a force-layout renderer.
func (g *Graph) ForceGraph() ForceGraph {
	fg := ForceGraph{
		Nodes:    make([]ForceNode, 0, len(g.Nodes)),
		Links:    make([]ForceLink, 0, len(g.Edges)),
		Degraded: g.Degraded,
		Stats:    g.Stats(),
	}
	for _, n := range g.Nodes {
		fn := ForceNode{ID: n.Key, Label: n.Label, Role: n.Role, IsTopic: n.IsTopic()}
		if n.IsTopic() {
			fn.Group = GroupTopic
		} else {
			fn.Group = GroupHost
			fn.FullID = n.Identity
		}
		fg.Nodes = append(fg.Nodes, fn)
	}
	for _, e := range g.Edges {
		fg.Links = append(fg.Links, ForceLink{Source: e.Source, Target: e.Target, Weight: e.Weight})
	}
	return fg
}

// ToDOT renders the graph as a GraphViz DOT file.
func (g *Graph) ToDOT(title string) []byte {
	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	if title != "" {
		fmt.Fprintf(&buf, "  label=%s;\n", dotQuote(title))
	}
	buf.WriteString("  overlap=false;\n")

	degraded := make(map[string]bool, len(g.Degraded))
	for _, t := range g.Degraded {
		degraded[TopicKey(t)] = true
	}

	for _, n := range g.Nodes {
		switch {
		case n.IsTopic() && degraded[n.Key]:
			fmt.Fprintf(&buf, "  %s [label=%s, shape=box, style=dashed];\n", dotQuote(n.Key), dotQuote(n.Label))
		case n.IsTopic():
			fmt.Fprintf(&buf, "  %s [label=%s, shape=box];\n", dotQuote(n.Key), dotQuote(n.Label))
		case n.Role == RoleLocal:
			fmt.Fprintf(&buf, "  %s [label=%s, shape=doublecircle];\n", dotQuote(n.Key), dotQuote(n.Label))
		default:
			fmt.Fprintf(&buf, "  %s [label=%s];\n", dotQuote(n.Key), dotQuote(n.Label))
		}
	}

	for _, e := range g.Edges {
		fmt.Fprintf(&buf, "  %s -- %s;\n", dotQuote(e.Source), dotQuote(e.Target))
	}

	buf.WriteString("}\n")
	return buf.Bytes()
}

// dotQuote renders s as a DOT quoted string. Quotes and backslashes are
// escaped; control characters become U+FFFD.
func dotQuote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case unicode.IsControl(r):
			b.WriteRune(utf8.RuneError)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
