// Package graph builds a directed graph over the node ids of an exported pipeline.
package graph

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ritzau/pipeline-builder/pkg/model"
	"gonum.org/v1/gonum/graph/simple"
)

// ErrMissingNodeID is returned when a pipeline node has no id
var ErrMissingNodeID = errors.New("graph: node without id")

// PipelineGraph is the node-level connectivity of a pipeline. Handles are
// ignored: two edges between the same nodes collapse into one.
type PipelineGraph struct {
	graph     *simple.DirectedGraph
	ids       map[string]int64 // node id -> graph id
	names     map[int64]string // graph id -> node id
	order     []string
	selfLoops map[string]bool // simple.DirectedGraph cannot hold self edges
	skipped   int
	nextID    int64
}

// NewPipelineGraph creates an empty graph
func NewPipelineGraph() *PipelineGraph {
	return &PipelineGraph{
		graph:     simple.NewDirectedGraph(),
		ids:       make(map[string]int64),
		names:     make(map[int64]string),
		selfLoops: make(map[string]bool),
	}
}

// FromPipeline builds the graph of a pipeline. Edges whose source or target is
// not a listed node are skipped; they cannot take part in a cycle.
func FromPipeline(p *model.Pipeline) (*PipelineGraph, error) {
	g := NewPipelineGraph()
	for i, n := range p.Nodes {
		if n == nil || n.ID == "" {
			return nil, fmt.Errorf("node %d: %w", i, ErrMissingNodeID)
		}
		g.AddNode(n.ID)
	}
	for _, e := range p.Edges {
		if e == nil {
			continue
		}
		g.AddEdge(e.Source, e.Target)
	}
	return g, nil
}

// AddNode adds a node; repeated ids are ignored
func (g *PipelineGraph) AddNode(id string) {
	if _, exists := g.ids[id]; exists {
		return
	}

	g.ids[id] = g.nextID
	g.names[g.nextID] = id
	g.order = append(g.order, id)
	g.graph.AddNode(simple.Node(g.nextID))
	g.nextID++
}

// HasNode reports whether id is in the graph
func (g *PipelineGraph) HasNode(id string) bool {
	_, ok := g.ids[id]
	return ok
}

// AddEdge adds a directed edge between existing nodes. It returns false, and
// counts the edge as skipped, when an endpoint is unknown.
func (g *PipelineGraph) AddEdge(source, target string) bool {
	sourceID, okSource := g.ids[source]
	targetID, okTarget := g.ids[target]
	if !okSource || !okTarget {
		g.skipped++
		return false
	}

	if sourceID == targetID {
		g.selfLoops[source] = true
		return true
	}
	if !g.graph.HasEdgeFromTo(sourceID, targetID) {
		g.graph.SetEdge(g.graph.NewEdge(g.graph.Node(sourceID), g.graph.Node(targetID)))
	}
	return true
}

// Name returns the node id for a graph id
func (g *PipelineGraph) Name(id int64) (string, bool) {
	name, ok := g.names[id]
	return name, ok
}

// Graph returns the underlying directed graph (without self loops)
func (g *PipelineGraph) Graph() *simple.DirectedGraph {
	return g.graph
}

// Nodes returns node ids in insertion order
func (g *PipelineGraph) Nodes() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Edges returns the distinct [source, target] pairs, self loops included, sorted
func (g *PipelineGraph) Edges() [][2]string {
	edges := make([][2]string, 0)

	iter := g.graph.Edges()
	for iter.Next() {
		e := iter.Edge()
		edges = append(edges, [2]string{g.names[e.From().ID()], g.names[e.To().ID()]})
	}
	for id := range g.selfLoops {
		edges = append(edges, [2]string{id, id})
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] != edges[j][0] {
			return edges[i][0] < edges[j][0]
		}
		return edges[i][1] < edges[j][1]
	})
	return edges
}

// Successors returns the ids the node has edges to, sorted
func (g *PipelineGraph) Successors(id string) []string {
	gid, ok := g.ids[id]
	if !ok {
		return nil
	}

	var out []string
	iter := g.graph.From(gid)
	for iter.Next() {
		out = append(out, g.names[iter.Node().ID()])
	}
	if g.selfLoops[id] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// SelfLoops returns the ids of nodes with an edge to themselves, sorted
func (g *PipelineGraph) SelfLoops() []string {
	out := make([]string, 0, len(g.selfLoops))
	for id := range g.selfLoops {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Skipped returns how many edges referenced unknown nodes
func (g *PipelineGraph) Skipped() int {
	return g.skipped
}
