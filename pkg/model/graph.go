package model

// Pipeline is the exported shape of a graph: the node and edge collections exactly
// as the store holds them. It is also the request body of the analysis service.
type Pipeline struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}

// NewPipeline creates a new empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		Nodes: make([]*Node, 0),
		Edges: make([]*Edge, 0),
	}
}

// Position is a canvas coordinate. The store keeps it but never interprets it.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node represents a typed unit in the pipeline graph.
//
// Nodes held by the store are treated as immutable values: every write replaces the
// node with a fresh copy, so a *Node obtained from a read never changes under the caller.
type Node struct {
	ID       string         `json:"id"`
	Type     NodeType       `json:"type"`
	Data     map[string]any `json:"data"`
	Position Position       `json:"position"`
	Selected bool           `json:"selected,omitempty"`
}

// StringField returns data[name] when it holds a string, "" otherwise.
func (n *Node) StringField(name string) string {
	if n == nil || n.Data == nil {
		return ""
	}
	s, _ := n.Data[name].(string)
	return s
}

// Clone returns a copy of the node with its own data map.
// Values inside the map are shared; field writes replace whole values.
func (n *Node) Clone() *Node {
	c := *n
	c.Data = make(map[string]any, len(n.Data)+1)
	for k, v := range n.Data {
		c.Data[k] = v
	}
	return &c
}

// MarkerType names an edge end decoration.
type MarkerType string

const (
	MarkerArrow       MarkerType = "arrow"
	MarkerArrowClosed MarkerType = "arrowclosed"
)

// Marker describes the decoration drawn at an edge end.
type Marker struct {
	Type   MarkerType `json:"type"`
	Width  string     `json:"width,omitempty"`
	Height string     `json:"height,omitempty"`
}

// Edge represents a directed connection between a handle of one node and a handle of another.
type Edge struct {
	ID           string         `json:"id"`
	Source       string         `json:"source"`
	SourceHandle string         `json:"sourceHandle,omitempty"`
	Target       string         `json:"target"`
	TargetHandle string         `json:"targetHandle,omitempty"`
	Type         string         `json:"type,omitempty"` // routing, e.g. "smoothstep"
	Animated     bool           `json:"animated,omitempty"`
	MarkerEnd    *Marker        `json:"markerEnd,omitempty"`
	Selected     bool           `json:"selected,omitempty"`
	Stale        bool           `json:"stale,omitempty"` // a handle no longer matches its node's derivation
	Data         map[string]any `json:"data,omitempty"`
}

// SameWiring reports whether two edges join the same pair of connection points.
func (e *Edge) SameWiring(source, sourceHandle, target, targetHandle string) bool {
	return e.Source == source &&
		e.SourceHandle == sourceHandle &&
		e.Target == target &&
		e.TargetHandle == targetHandle
}

// Connection is the descriptor a rendering layer sends when the user drags a wire.
type Connection struct {
	Source       string `json:"source"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	Target       string `json:"target"`
	TargetHandle string `json:"targetHandle,omitempty"`
}
