package construct

import (
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

// GraphToYAML renders the graph `g` as YAML to `w`. Resources are written in topological order with their
// fields, followed by every edge and its data.
func GraphToYAML(g Graph, w io.Writer) error {
	topo, err := TopologicalSort(g)
	if err != nil {
		return err
	}
	adj, err := g.AdjacencyMap()
	if err != nil {
		return err
	}

	// Build the document node-by-node so we can control the order of the keys
	// for resources and the edges.
	resources := &yaml.Node{Kind: yaml.MappingNode}
	for _, rid := range topo {
		r, err := g.Vertex(rid)
		if err != nil {
			return err
		}
		value := &yaml.Node{}
		if err := value.Encode(r); err != nil {
			return fmt.Errorf("could not encode %s: %w", rid, err)
		}
		resources.Content = append(resources.Content, scalar(rid.String()), value)
	}

	edges := &yaml.Node{Kind: yaml.MappingNode}
	for _, source := range topo {
		targets := make([]ResourceId, 0, len(adj[source]))
		for t := range adj[source] {
			targets = append(targets, t)
		}
		sort.Sort(sortedIds(targets))
		for _, target := range targets {
			value := &yaml.Node{}
			if err := value.Encode(EdgeDataOf(adj[source][target])); err != nil {
				return err
			}
			edges.Content = append(edges.Content, scalar(fmt.Sprintf("%s -> %s", source, target)), value)
		}
	}

	doc := &yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			scalar("resources"), resources,
			scalar("edges"), edges,
		},
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func scalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}
