package visualizer

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/klothoplatform/kvstack/pkg/construct"
	kio "github.com/klothoplatform/kvstack/pkg/io"
	"github.com/klothoplatform/kvstack/pkg/ioutil"
	"gopkg.in/yaml.v3"
)

const indent = "    "

// Topology lists a stack's resources in creation order, each with a few key properties and the edges
// leaving it.
type Topology struct {
	FilenamePrefix string
	AppName        string
	// Provider is omitted from the keys of resources that belong to it.
	Provider string
	Graph    construct.Graph
}

func (f *Topology) Path() string {
	return fmt.Sprintf("%stopology.yaml", f.FilenamePrefix)
}

func (f *Topology) Clone() kio.File {
	return f
}

func (f *Topology) WriteTo(w io.Writer) (n int64, err error) {
	propFetcher := defaultPropertiesFetchers()
	wh := ioutil.NewWriteToHelper(w, &n, &err)

	wh.Writef("%s:\n", f.AppName)
	wh.Writef("  provider: %s\n", f.Provider)
	wh.Write("  resources:\n")

	ids, sortErr := construct.ReverseTopologicalSort(f.Graph)
	if sortErr != nil {
		wh.AddErr(sortErr)
		return
	}
	adj, adjErr := f.Graph.AdjacencyMap()
	if adjErr != nil {
		wh.AddErr(adjErr)
		return
	}
	keys := make(map[construct.ResourceId]string, len(ids))
	for _, id := range ids {
		keys[id] = f.KeyFor(id)
	}

	for _, id := range ids {
		res, verr := f.Graph.Vertex(id)
		if verr != nil {
			wh.AddErr(verr)
			return
		}
		wh.Writef(indent+"%s:\n", f.keyForResource(res))
		if properties := propFetcher.apply(res); len(properties) > 0 {
			writeYaml(properties, 2, wh)
		}

		targets := make([]construct.ResourceId, 0, len(adj[id]))
		for target := range adj[id] {
			targets = append(targets, target)
		}
		sort.Slice(targets, func(i, j int) bool { return construct.ResourceIdLess(targets[i], targets[j]) })
		for _, target := range targets {
			wh.Writef(indent+"%s -> %s:\n", keys[id], keys[target])
			if data := construct.EdgeDataOf(adj[id][target]); data.Kind == construct.GrantEdge {
				writeYaml(map[string]any{"grant": data.Actions}, 2, wh)
			}
		}
		wh.Write("\n")
	}
	return
}

// KeyFor is the name a resource is listed under: its type and logical name, prefixed by the provider only
// when that differs from the topology's.
func (f *Topology) KeyFor(id construct.ResourceId) string {
	res, err := f.Graph.Vertex(id)
	if err != nil {
		return strings.ToLower(id.String())
	}
	return f.keyForResource(res)
}

func (f *Topology) keyForResource(res construct.Resource) string {
	resId := res.Id()
	var providerInfo string
	if resId.Provider != f.Provider {
		providerInfo = resId.Provider + `:`
	}
	return strings.ToLower(fmt.Sprintf("%s%s/%s", providerInfo, TypeFor(res), resId.LogicalName()))
}

func writeYaml(e any, indentCount int, out ioutil.WriteToHelper) {
	bs, err := yaml.Marshal(e)
	if err != nil {
		out.AddErr(err)
		return
	}
	for _, line := range strings.Split(strings.TrimSuffix(string(bs), "\n"), "\n") {
		if strings.TrimSpace(line) != "" {
			for i := 0; i < indentCount; i++ {
				out.Write(indent)
			}
		}
		out.Write(line)
		out.Write("\n")
	}
}
