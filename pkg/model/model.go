package model

// NodeType represents the kind of a pipeline node
type NodeType string

const (
	NodeTypeInput     NodeType = "input"
	NodeTypeOutput    NodeType = "output"
	NodeTypeText      NodeType = "text"
	NodeTypeComment   NodeType = "comment"
	NodeTypeLLM       NodeType = "llm"
	NodeTypeValidator NodeType = "validator"
	NodeTypeNote      NodeType = "note"
)

// VariableKind tells whether a variable is declared by an input or an output node
type VariableKind string

const (
	VariableInput  VariableKind = "input"
	VariableOutput VariableKind = "output"
)

// Variable is a catalog entry: a name declared by a node.
// It is derived from the live node collection and never stored.
type Variable struct {
	Name   string       `json:"name"`
	Kind   VariableKind `json:"type"`
	NodeID string       `json:"nodeId"`
}

// HandleType is the direction of a connection point
type HandleType string

const (
	HandleSource HandleType = "source"
	HandleTarget HandleType = "target"
)

// HandleRef is a concrete, rendered handle of a node
type HandleRef struct {
	ID   string     `json:"id"` // "<nodeId>-<key>"
	Type HandleType `json:"type"`
}
