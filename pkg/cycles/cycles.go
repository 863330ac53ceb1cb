// Package cycles finds circular wiring in a pipeline graph.
package cycles

import (
	"sort"

	"github.com/ritzau/pipeline-builder/pkg/graph"
)

// Cycle is a set of nodes that can reach each other
type Cycle struct {
	Nodes []string `json:"nodes"` // sorted
}

// FindCycles returns every strongly connected component with more than one node,
// plus one cycle per self loop, ordered by first node id.
func FindCycles(pg *graph.PipelineGraph) []Cycle {
	cycles := make([]Cycle, 0)

	for _, scc := range NewTarjanSCC(pg.Graph()).FindSCCs() {
		nodes := make([]string, 0, len(scc))
		for _, id := range scc {
			if name, ok := pg.Name(id); ok {
				nodes = append(nodes, name)
			}
		}
		sort.Strings(nodes)
		cycles = append(cycles, Cycle{Nodes: nodes})
	}

	for _, id := range pg.SelfLoops() {
		cycles = append(cycles, Cycle{Nodes: []string{id}})
	}

	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i].Nodes[0] < cycles[j].Nodes[0]
	})
	return cycles
}

// IsDAG reports whether the graph has no cycles
func IsDAG(pg *graph.PipelineGraph) bool {
	if len(pg.SelfLoops()) > 0 {
		return false
	}
	return len(NewTarjanSCC(pg.Graph()).FindSCCs()) == 0
}
