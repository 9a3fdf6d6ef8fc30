package construct

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dominikbraun/graph"
)

type EdgeKind string

const (
	// DependencyEdge means the source references the target, so the target must exist first.
	DependencyEdge EdgeKind = "dependency"
	// GrantEdge goes from the grantee identity to the grantor resource and carries the granted actions.
	GrantEdge EdgeKind = "grant"
)

// EdgeData is stored as a pointer on every edge so that re-declaring an edge can update it in place.
type EdgeData struct {
	Kind    EdgeKind `yaml:"kind"`
	Actions []string `yaml:"actions,omitempty"`
}

// EdgeDataOf returns the data of an edge, defaulting to a dependency for edges added without data.
func EdgeDataOf[T any](e graph.Edge[T]) EdgeData {
	if data, ok := e.Properties.Data.(*EdgeData); ok && data != nil {
		return *data
	}
	return EdgeData{Kind: DependencyEdge}
}

// AddDependency declares that `source` references `target`. Both must already be in the graph.
// Declaring the same dependency twice is a no-op.
func AddDependency(g Graph, source, target ResourceId) error {
	if err := MustExist(g, ResourceId{}, source); err != nil {
		return err
	}
	if err := MustExist(g, source, target); err != nil {
		return err
	}
	err := g.AddEdge(source, target, graph.EdgeData(&EdgeData{Kind: DependencyEdge}))
	switch {
	case errors.Is(err, graph.ErrEdgeAlreadyExists):
		return nil
	case errors.Is(err, graph.ErrEdgeCreatesCycle):
		return fmt.Errorf("dependency %s -> %s would create a cycle: %w", source, target, err)
	}
	return err
}

// AddGrantEdge declares that `grantee` may perform `actions` against `grantor`. Grants are additive and
// idempotent: re-declaring a grant merges the action set into the existing edge. Returns whether the edge
// changed.
func AddGrantEdge(g Graph, grantee, grantor ResourceId, actions []string) (bool, error) {
	if err := MustExist(g, grantor, grantee); err != nil {
		return false, err
	}
	if err := MustExist(g, grantee, grantor); err != nil {
		return false, err
	}

	existing, err := g.Edge(grantee, grantor)
	switch {
	case err == nil:
		data, ok := existing.Properties.Data.(*EdgeData)
		if !ok || data == nil {
			return false, fmt.Errorf("edge %s -> %s has no edge data", grantee, grantor)
		}
		changed := data.Kind != GrantEdge
		data.Kind = GrantEdge
		merged := mergeActions(data.Actions, actions)
		if len(merged) != len(data.Actions) {
			changed = true
		}
		data.Actions = merged
		return changed, nil

	case errors.Is(err, graph.ErrEdgeNotFound):
		err = g.AddEdge(grantee, grantor, graph.EdgeData(&EdgeData{
			Kind:    GrantEdge,
			Actions: mergeActions(nil, actions),
		}))
		if errors.Is(err, graph.ErrEdgeCreatesCycle) {
			return false, fmt.Errorf("grant %s -> %s would create a cycle: %w", grantee, grantor, err)
		}
		return err == nil, err

	default:
		return false, err
	}
}

// EdgesOfKind returns all edges of the given kind sorted by source then target.
func EdgesOfKind(g Graph, kind EdgeKind) ([]Edge, error) {
	adj, err := g.AdjacencyMap()
	if err != nil {
		return nil, err
	}
	var edges []Edge
	for _, targets := range adj {
		for _, e := range targets {
			if EdgeDataOf(e).Kind == kind {
				edges = append(edges, e)
			}
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return ResourceIdLess(edges[i].Source, edges[j].Source)
		}
		return ResourceIdLess(edges[i].Target, edges[j].Target)
	})
	return edges, nil
}

func mergeActions(current, add []string) []string {
	seen := make(map[string]struct{}, len(current)+len(add))
	merged := make([]string, 0, len(current)+len(add))
	for _, list := range [][]string{current, add} {
		for _, a := range list {
			if _, ok := seen[a]; ok {
				continue
			}
			seen[a] = struct{}{}
			merged = append(merged, a)
		}
	}
	sort.Strings(merged)
	return merged
}
