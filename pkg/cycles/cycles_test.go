package cycles

import (
	"fmt"
	"testing"

	"github.com/ritzau/pipeline-builder/pkg/graph"
)

func build(nodes []string, edges ...[2]string) *graph.PipelineGraph {
	g := graph.NewPipelineGraph()
	for _, n := range nodes {
		g.AddNode(n)
	}
	for _, e := range edges {
		g.AddEdge(e[0], e[1])
	}
	return g
}

func TestFindCycles_NoCycles(t *testing.T) {
	// input-1 -> text-1 -> llm-1, input-1 -> llm-1
	g := build([]string{"input-1", "text-1", "llm-1"},
		[2]string{"input-1", "text-1"},
		[2]string{"text-1", "llm-1"},
		[2]string{"input-1", "llm-1"},
	)

	if cycles := FindCycles(g); len(cycles) != 0 {
		t.Errorf("Expected no cycles, but found %d", len(cycles))
	}
	if !IsDAG(g) {
		t.Error("Expected a DAG")
	}
}

func TestFindCycles_SimpleCycle(t *testing.T) {
	g := build([]string{"a", "b"}, [2]string{"a", "b"}, [2]string{"b", "a"})

	cycles := FindCycles(g)
	if len(cycles) != 1 {
		t.Fatalf("Expected 1 cycle, but found %d", len(cycles))
	}
	if got := cycles[0].Nodes; len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Expected cycle [a b], got %v", got)
	}
	if IsDAG(g) {
		t.Error("Expected not a DAG")
	}
}

func TestFindCycles_ThreeNodeCycle(t *testing.T) {
	// c -> a -> b -> c, plus a tail d -> a
	g := build([]string{"a", "b", "c", "d"},
		[2]string{"a", "b"},
		[2]string{"b", "c"},
		[2]string{"c", "a"},
		[2]string{"d", "a"},
	)

	cycles := FindCycles(g)
	if len(cycles) != 1 {
		t.Fatalf("Expected 1 cycle, but found %d", len(cycles))
	}
	if len(cycles[0].Nodes) != 3 {
		t.Errorf("Expected cycle of length 3, got %v", cycles[0].Nodes)
	}
	for _, n := range cycles[0].Nodes {
		if n == "d" {
			t.Error("Tail node d should not be part of the cycle")
		}
	}
}

func TestFindCycles_MultipleCyclesAndSelfLoop(t *testing.T) {
	g := build([]string{"a", "b", "c", "d", "e"},
		[2]string{"a", "b"},
		[2]string{"b", "a"},
		[2]string{"c", "d"},
		[2]string{"d", "c"},
		[2]string{"e", "e"},
	)

	cycles := FindCycles(g)
	if len(cycles) != 3 {
		t.Fatalf("Expected 3 cycles, but found %d: %v", len(cycles), cycles)
	}
	if cycles[0].Nodes[0] != "a" || cycles[1].Nodes[0] != "c" || cycles[2].Nodes[0] != "e" {
		t.Errorf("Unexpected cycle order %v", cycles)
	}
}

func TestIsDAG_SelfLoop(t *testing.T) {
	g := build([]string{"text-1"}, [2]string{"text-1", "text-1"})

	if IsDAG(g) {
		t.Error("A self loop is a cycle")
	}
}

func TestIsDAG_Empty(t *testing.T) {
	if !IsDAG(graph.NewPipelineGraph()) {
		t.Error("An empty graph is a DAG")
	}
}

func TestFindCycles_LongChain(t *testing.T) {
	const n = 20000
	g := graph.NewPipelineGraph()
	for i := 0; i < n; i++ {
		g.AddNode(fmt.Sprintf("text-%d", i))
	}
	for i := 1; i < n; i++ {
		g.AddEdge(fmt.Sprintf("text-%d", i-1), fmt.Sprintf("text-%d", i))
	}

	if !IsDAG(g) {
		t.Fatal("Expected a long chain to be a DAG")
	}

	// Closing the chain turns it into one big component
	g.AddEdge(fmt.Sprintf("text-%d", n-1), "text-0")
	cycles := FindCycles(g)
	if len(cycles) != 1 {
		t.Fatalf("Expected 1 cycle, got %d", len(cycles))
	}
	if len(cycles[0].Nodes) != n {
		t.Errorf("Expected %d nodes in the cycle, got %d", n, len(cycles[0].Nodes))
	}
}
