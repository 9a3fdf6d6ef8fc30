package construct

import (
	"sort"
)

// DirectDownstreamDependencies returns the direct downstream dependencies of the given resource.
// Direct means that for A -> B -> C -> D the direct downstream dependencies of B are [C].
func DirectDownstreamDependencies(g Graph, r ResourceId) ([]ResourceId, error) {
	adj, err := g.AdjacencyMap()
	if err != nil {
		return nil, err
	}

	var ids []ResourceId
	for d := range adj[r] {
		ids = append(ids, d)
	}
	sort.Sort(sortedIds(ids))

	return ids, nil
}
