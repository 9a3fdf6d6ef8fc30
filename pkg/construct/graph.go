package construct

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dominikbraun/graph"
)

type (
	// Resource is anything that can be declared in a stack's graph.
	Resource interface {
		Id() ResourceId
	}

	Graph = graph.Graph[ResourceId, Resource]
	Edge  = graph.Edge[ResourceId]
)

func hashResource(r Resource) ResourceId {
	return r.Id()
}

// NewGraph returns an empty directed acyclic graph. Adding an edge that would introduce a cycle fails.
func NewGraph() Graph {
	return Graph(graph.New(
		hashResource,
		graph.Directed(),
		graph.Acyclic(),
		graph.PreventCycles(),
	))
}

// AddResource adds `r` to the graph. Logical names are unique across the whole graph regardless of
// the resource type since they become the externally visible identifiers of each resource.
func AddResource(g Graph, r Resource) error {
	id := r.Id()
	if err := id.Validate(); err != nil {
		return err
	}
	adj, err := g.AdjacencyMap()
	if err != nil {
		return err
	}
	for existing := range adj {
		if existing.LogicalName() == id.LogicalName() {
			return DuplicateError{Id: id, Detail: fmt.Sprintf("logical name in use by %s", existing)}
		}
	}
	err = g.AddVertex(r)
	if errors.Is(err, graph.ErrVertexAlreadyExists) {
		return DuplicateError{Id: id}
	}
	return err
}

// MustExist returns a ReferenceError (attributed to `referrer`) if `ref` is not in the graph.
func MustExist(g Graph, referrer, ref ResourceId) error {
	if ref.IsZero() {
		return ReferenceError{Referrer: referrer, Ref: ref}
	}
	_, err := g.Vertex(ref)
	if errors.Is(err, graph.ErrVertexNotFound) {
		return ReferenceError{Referrer: referrer, Ref: ref}
	}
	return err
}

// GetResource returns the resource with id `id` as a `T`.
func GetResource[T Resource](g Graph, id ResourceId) (T, error) {
	var zero T
	r, err := g.Vertex(id)
	if errors.Is(err, graph.ErrVertexNotFound) {
		return zero, ReferenceError{Ref: id}
	} else if err != nil {
		return zero, err
	}
	t, ok := r.(T)
	if !ok {
		return zero, fmt.Errorf("resource %s is a %T, not a %T", id, r, zero)
	}
	return t, nil
}

// ResourcesOfType returns every resource which is a `T`, in topological order.
func ResourcesOfType[T Resource](g Graph) ([]T, error) {
	topo, err := TopologicalSort(g)
	if err != nil {
		return nil, err
	}
	var result []T
	for _, id := range topo {
		r, err := g.Vertex(id)
		if err != nil {
			return nil, err
		}
		if t, ok := r.(T); ok {
			result = append(result, t)
		}
	}
	return result, nil
}

// Counts returns the number of resources (order) and edges (size) of the graph.
func Counts(g Graph) (order int, size int, err error) {
	adj, err := g.AdjacencyMap()
	if err != nil {
		return 0, 0, err
	}
	for _, targets := range adj {
		size += len(targets)
	}
	return len(adj), size, nil
}

// Hash is the sha256 of the graph's String form.
func Hash(g Graph) ([]byte, error) {
	sum := sha256.New()
	err := stringTo(g, sum)
	return sum.Sum(nil), err
}

func String(g Graph) (string, error) {
	w := new(strings.Builder)
	err := stringTo(g, w)
	return w.String(), err
}

func stringTo(g Graph, w io.Writer) error {
	topo, err := TopologicalSort(g)
	if err != nil {
		return err
	}
	adjacent, err := g.AdjacencyMap()
	if err != nil {
		return err
	}

	for _, id := range topo {
		_, err := fmt.Fprintf(w, "%s\n", id)
		if err != nil {
			return err
		}

		targets := make([]ResourceId, 0, len(adjacent[id]))
		for t := range adjacent[id] {
			targets = append(targets, t)
		}
		sort.Sort(sortedIds(targets))

		for _, t := range targets {
			// Adjacent edges always have `id` as the source, so just write the target.
			data := EdgeDataOf(adjacent[id][t])
			_, err := fmt.Fprintf(w, "-[%s]-> %s\n", data.Kind, t)
			if err != nil {
				return err
			}
		}
	}
	return nil
}
