package cycles

import (
	"gonum.org/v1/gonum/graph"
)

// TarjanSCC finds strongly connected components with Tarjan's algorithm.
// The depth-first search keeps its own call stack, so long chains of nodes
// do not grow the goroutine stack.
type TarjanSCC struct {
	graph  graph.Directed
	index  int
	verts  map[int64]*vertex
	stack  []int64
	result [][]int64
}

type vertex struct {
	index   int
	low     int
	onStack bool
}

// frame is one suspended strongConnect call
type frame struct {
	id   int64
	succ []int64
	next int
}

// NewTarjanSCC creates a new Tarjan SCC finder
func NewTarjanSCC(g graph.Directed) *TarjanSCC {
	return &TarjanSCC{
		graph:  g,
		verts:  make(map[int64]*vertex),
		result: make([][]int64, 0),
	}
}

// FindSCCs returns the components with more than one node.
// Single nodes only form a cycle through a self edge, which callers track.
func (t *TarjanSCC) FindSCCs() [][]int64 {
	nodes := t.graph.Nodes()
	for nodes.Next() {
		id := nodes.Node().ID()
		if _, seen := t.verts[id]; !seen {
			t.strongConnect(id)
		}
	}
	return t.result
}

func (t *TarjanSCC) strongConnect(root int64) {
	calls := []frame{t.visit(root)}

	for len(calls) > 0 {
		top := &calls[len(calls)-1]

		if top.next < len(top.succ) {
			w := top.succ[top.next]
			top.next++

			wv, seen := t.verts[w]
			switch {
			case !seen:
				calls = append(calls, t.visit(w))
			case wv.onStack:
				v := t.verts[top.id]
				v.low = min(v.low, wv.index)
			}
			continue
		}

		// Every successor is done: close the component if top is its root
		done := top.id
		v := t.verts[done]
		if v.low == v.index {
			t.popComponent(done)
		}

		calls = calls[:len(calls)-1]
		if len(calls) > 0 {
			parent := t.verts[calls[len(calls)-1].id]
			parent.low = min(parent.low, v.low)
		}
	}
}

// visit numbers a node, pushes it and snapshots its successors
func (t *TarjanSCC) visit(id int64) frame {
	t.verts[id] = &vertex{index: t.index, low: t.index, onStack: true}
	t.index++
	t.stack = append(t.stack, id)

	succ := make([]int64, 0)
	it := t.graph.From(id)
	for it.Next() {
		succ = append(succ, it.Node().ID())
	}
	return frame{id: id, succ: succ}
}

func (t *TarjanSCC) popComponent(root int64) {
	scc := make([]int64, 0)
	for {
		w := t.stack[len(t.stack)-1]
		t.stack = t.stack[:len(t.stack)-1]
		t.verts[w].onStack = false
		scc = append(scc, w)
		if w == root {
			break
		}
	}
	if len(scc) > 1 {
		t.result = append(t.result, scc)
	}
}
