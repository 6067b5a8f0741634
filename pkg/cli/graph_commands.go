package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/DeBrosOfficial/hdsview/pkg/discovery"
	"github.com/DeBrosOfficial/hdsview/pkg/topology"
)

// HandleGraphCommand discovers the topology of a directory and prints it as
// a summary, force-graph JSON or Graphviz DOT.
func HandleGraphCommand(host, output string, opts Options) {
	rt, err := newRuntime(opts)
	if err != nil {
		fail(opts, "Failed to load configuration", err)
	}
	defer rt.logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), rt.timeout())
	defer cancel()

	w := opts.out()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			fail(opts, "Failed to create output file", err)
		}
		defer f.Close()
		w = f
	}

	if err := runGraph(ctx, rt, host, opts.Format, w); err != nil {
		fail(opts, "Failed to build graph", err)
	}
}

type graphOutput struct {
	topology.ForceGraph
	Self discovery.SelfStats `json:"self"`
}

func runGraph(ctx context.Context, rt *runtime, host, format string, w io.Writer) error {
	sess, err := rt.connect(ctx, host)
	if err != nil {
		return err
	}

	svc := discovery.NewService(sess, discovery.Config{
		MaxConcurrentFetches: rt.cfg.Topology.MaxConcurrentFetches,
	}, rt.logger.Logger, rt.metrics)
	result, err := svc.Discover(ctx)
	if err != nil {
		return err
	}
	g := result.Graph

	switch format {
	case FormatJSON:
		return printJSON(w, graphOutput{
			ForceGraph: g.ForceGraph(),
			Self:       result.Self,
		})
	case "dot":
		_, err := w.Write(g.ToDOT(result.Self.Identity.ServerName))
		return err
	}

	stats := g.Stats()
	fmt.Fprintln(w, headerStyle.Render("Topology of "+topology.Truncate(safe(result.Self.Identity.ServerName))))
	printField(w, "Nodes", fmt.Sprint(stats.Nodes))
	printField(w, "Edges", fmt.Sprint(stats.Edges))
	printField(w, "Topics", fmt.Sprint(stats.Topics))
	printField(w, "Peers", fmt.Sprint(stats.Peers))

	rows := make([][]string, 0, len(result.Topics))
	for _, t := range g.Topics() {
		status := okStyle.Render("ok")
		if contains(g.Degraded, t) {
			status = warnStyle.Render("degraded")
		}
		rows = append(rows, []string{t, fmt.Sprint(len(g.HostsInTopic(t))), status})
	}
	if len(rows) > 0 {
		printTable(w, []string{"Topic", "Hosts", "Status"}, rows)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
