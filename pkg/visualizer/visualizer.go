// Package visualizer renders a stack's graph for people: as Graphviz DOT, as Mermaid for markdown, as
// a pannable SVG, or as a topology listing.
package visualizer

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/emicklei/dot"
	"github.com/klothoplatform/kvstack/pkg/construct"
	kdot "github.com/klothoplatform/kvstack/pkg/dot"
	"github.com/klothoplatform/kvstack/pkg/provider/aws/resources"
)

type Format string

const (
	FormatDOT     Format = "dot"
	FormatMermaid Format = "mermaid"
	// FormatSVG requires graphviz.
	FormatSVG Format = "svg"
)

var formats = []Format{FormatDOT, FormatMermaid, FormatSVG}

func ParseFormat(s string) (Format, error) {
	for _, f := range formats {
		if string(f) == strings.ToLower(s) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown graph format %q (must be one of dot, mermaid, svg)", s)
}

type Generator struct {
	// Format defaults to dot.
	Format Format
}

// Generate renders `g` to `w`.
func (gen Generator) Generate(ctx context.Context, g construct.Graph, w io.Writer) error {
	graph, err := Build(g)
	if err != nil {
		return err
	}

	var output string
	switch gen.Format {
	case FormatDOT, "":
		output = graph.String()
	case FormatMermaid:
		output = dot.MermaidGraph(graph, dot.MermaidTopToBottom)
	case FormatSVG:
		output, err = kdot.ExecPan(ctx, strings.NewReader(graph.String()))
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown graph format %q", gen.Format)
	}
	_, err = io.WriteString(w, output)
	return err
}

// Label is the text of a resource's node: its logical name and the type it is shown as.
func Label(res construct.Resource) string {
	return res.Id().LogicalName() + " (" + TypeFor(res) + ")"
}

// clusterFor groups a REST API with its paths and methods.
func clusterFor(res construct.Resource) string {
	if api, ok := res.(*resources.RestApi); ok {
		return api.Name
	}
	return res.Id().Namespace
}

// grantLabel summarises granted actions by service, such as "dynamodb (12)".
func grantLabel(actions []string) string {
	counts := make(map[string]int)
	for _, a := range actions {
		service, _, _ := strings.Cut(a, ":")
		counts[service]++
	}
	services := make([]string, 0, len(counts))
	for s := range counts {
		services = append(services, s)
	}
	sort.Strings(services)
	parts := make([]string, len(services))
	for i, s := range services {
		parts[i] = fmt.Sprintf("%s (%d)", s, counts[s])
	}
	return strings.Join(parts, ", ")
}

// Build converts the resource graph into a DOT graph. Dependencies are solid edges and grants are dashed
// edges labelled with what was granted.
func Build(g construct.Graph) (*dot.Graph, error) {
	order, err := construct.ReverseTopologicalSort(g)
	if err != nil {
		return nil, err
	}
	adj, err := g.AdjacencyMap()
	if err != nil {
		return nil, err
	}

	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "TB")
	graph.NodeInitializer(func(n dot.Node) {
		n.Attr("shape", "box")
		n.Attr("fontname", "Arial")
	})
	graph.EdgeInitializer(func(e dot.Edge) {
		e.Attr("fontname", "Arial")
		e.Attr("fontsize", "10")
	})

	clusters := make(map[string]*dot.Graph)
	nodes := make(map[construct.ResourceId]dot.Node, len(order))
	for _, id := range order {
		res, err := g.Vertex(id)
		if err != nil {
			return nil, err
		}
		parent := graph
		if name := clusterFor(res); name != "" {
			cluster, ok := clusters[name]
			if !ok {
				cluster = graph.Subgraph(name, dot.ClusterOption{})
				cluster.Attr("label", name)
				cluster.Attr("style", "rounded")
				clusters[name] = cluster
			}
			parent = cluster
		}
		n := parent.Node(id.String())
		n.Label(Label(res))
		n.Attr("shape", ShapeFor(res))
		nodes[id] = n
	}

	for _, source := range order {
		targets := make([]construct.ResourceId, 0, len(adj[source]))
		for target := range adj[source] {
			targets = append(targets, target)
		}
		sort.Slice(targets, func(i, j int) bool { return construct.ResourceIdLess(targets[i], targets[j]) })
		for _, target := range targets {
			e := graph.Edge(nodes[source], nodes[target])
			if data := construct.EdgeDataOf(adj[source][target]); data.Kind == construct.GrantEdge {
				e.Attr("style", "dashed")
				e.Attr("color", "blue")
				e.Label(grantLabel(data.Actions))
			}
		}
	}
	return graph, nil
}
