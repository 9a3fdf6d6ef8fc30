package construct

import (
	"errors"
	"fmt"
	"sort"
)

// TopologicalSort provides a stable topological ordering of resource IDs: referrers come before the
// resources they reference. Ties are broken on the ID contents so the same graph always yields the
// same order.
func TopologicalSort(g Graph) ([]ResourceId, error) {
	if !g.Traits().IsDirected {
		return nil, fmt.Errorf("topological sort cannot be computed on undirected graph")
	}

	predecessorMap, err := g.PredecessorMap()
	if err != nil {
		return nil, fmt.Errorf("failed to get predecessor map: %w", err)
	}

	if len(predecessorMap) == 0 {
		return nil, nil
	}

	queue := make([]ResourceId, 0)
	queued := make(map[ResourceId]struct{})
	enqueue := func(vs ...ResourceId) {
		for _, vertex := range vs {
			queue = append(queue, vertex)
			queued[vertex] = struct{}{}
		}
	}

	for vertex, predecessors := range predecessorMap {
		if len(predecessors) == 0 {
			enqueue(vertex)
		}
	}
	sort.Sort(sortedIds(queue))

	order := make([]ResourceId, 0, len(predecessorMap))

	for len(queue) > 0 {
		currentVertex := queue[0]
		queue = queue[1:]

		order = append(order, currentVertex)
		delete(predecessorMap, currentVertex)

		frontier := make([]ResourceId, 0)
		for vertex, predecessors := range predecessorMap {
			delete(predecessors, currentVertex)

			if len(predecessors) != 0 {
				continue
			}
			if _, ok := queued[vertex]; ok {
				continue
			}
			frontier = append(frontier, vertex)
		}
		sort.Sort(sortedIds(frontier))
		enqueue(frontier...)
	}

	if len(predecessorMap) > 0 {
		// Only reachable if cycle prevention was bypassed
		remaining := make([]ResourceId, 0, len(predecessorMap))
		for v := range predecessorMap {
			remaining = append(remaining, v)
		}
		sort.Sort(sortedIds(remaining))
		return nil, fmt.Errorf("graph contains a cycle involving %v", remaining)
	}

	return order, nil
}

func reverseInplace[E any](a []E) {
	for i := 0; i < len(a)/2; i++ {
		a[i], a[len(a)-i-1] = a[len(a)-i-1], a[i]
	}
}

// ReverseTopologicalSort is like TopologicalSort, but returns the reverse order. This is the order in
// which resources must be created: every resource comes after everything it references.
func ReverseTopologicalSort(g Graph) ([]ResourceId, error) {
	topo, err := TopologicalSort(g)
	if err != nil {
		return nil, err
	}
	reverseInplace(topo)
	return topo, nil
}

// WalkGraphFunc is much like `fs.WalkDirFunc` and is used in `WalkGraphReverse` for the callback
// during graph traversal. Return `StopWalk` to end the walk.
type WalkGraphFunc func(id ResourceId, resource Resource, nerr error) error

// StopWalk is a special error that can be returned from WalkGraphFunc to stop walking the graph.
// The resulting error from WalkGraphReverse will be whatever was previously passed into the walk function.
var StopWalk = errors.New("stop walking")

func walkGraph(g Graph, ids []ResourceId, fn WalkGraphFunc) (err error) {
	for _, id := range ids {
		v, verr := g.Vertex(id)
		nerr := fn(id, v, errors.Join(err, verr))
		if errors.Is(nerr, StopWalk) {
			return err
		}
		err = nerr
	}
	return err
}

// WalkGraphReverse walks the graph in creation order.
func WalkGraphReverse(g Graph, fn WalkGraphFunc) error {
	topo, err := ReverseTopologicalSort(g)
	if err != nil {
		return err
	}
	return walkGraph(g, topo, fn)
}
