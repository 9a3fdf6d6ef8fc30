package graphtest

import (
	"fmt"
	"testing"

	"github.com/klothoplatform/kvstack/pkg/construct"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	// ResourcesExpectation describes the nodes and edges a graph is expected to hold. Edges are written
	// as `source -> target` using the string form of the resource ids.
	ResourcesExpectation struct {
		Nodes  []string
		Deps   []string
		Grants []string

		// AssertSubset assert the graph contains all the `.Nodes`, `.Deps` and `.Grants`. If false,
		// checks full equality.
		AssertSubset bool
	}

	// Stub is a minimal resource for tests which only need ids in the graph.
	Stub struct {
		ID construct.ResourceId
	}
)

func (s *Stub) Id() construct.ResourceId {
	return s.ID
}

func (expect ResourcesExpectation) Assert(t *testing.T, g construct.Graph) {
	t.Helper()
	topo, err := construct.TopologicalSort(g)
	require.NoError(t, err)

	var nodes []string
	for _, id := range topo {
		nodes = append(nodes, id.String())
	}

	deps := edgeStrings(t, g, construct.DependencyEdge)
	grants := edgeStrings(t, g, construct.GrantEdge)

	if expect.AssertSubset {
		assert.Subset(t, nodes, expect.Nodes)
		assert.Subset(t, deps, expect.Deps)
		assert.Subset(t, grants, expect.Grants)
		return
	}
	assert.ElementsMatch(t, expect.Nodes, nodes)
	assert.ElementsMatch(t, expect.Deps, deps)
	assert.ElementsMatch(t, expect.Grants, grants)
}

func edgeStrings(t *testing.T, g construct.Graph, kind construct.EdgeKind) []string {
	edges, err := construct.EdgesOfKind(g, kind)
	require.NoError(t, err)
	result := make([]string, 0, len(edges))
	for _, e := range edges {
		result = append(result, fmt.Sprintf("%s -> %s", e.Source, e.Target))
	}
	return result
}

func ParseId(t *testing.T, str string) (id construct.ResourceId) {
	t.Helper()
	err := id.UnmarshalText([]byte(str))
	if err != nil {
		t.Fatalf("failed to parse resource id %q: %v", str, err)
	}
	return
}

// MakeGraph builds a graph of stub resources from ids and `source -> target` dependency strings.
func MakeGraph(t *testing.T, elements ...string) construct.Graph {
	t.Helper()
	g := construct.NewGraph()
	for _, e := range elements {
		var source, target string
		if n, _ := fmt.Sscanf(e, "%s -> %s", &source, &target); n == 2 {
			for _, s := range []string{source, target} {
				id := ParseId(t, s)
				if _, err := g.Vertex(id); err != nil {
					require.NoError(t, construct.AddResource(g, &Stub{ID: id}))
				}
			}
			require.NoError(t, construct.AddDependency(g, ParseId(t, source), ParseId(t, target)))
			continue
		}
		require.NoError(t, construct.AddResource(g, &Stub{ID: ParseId(t, e)}))
	}
	return g
}
