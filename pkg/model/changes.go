package model

// ChangeType is the kind of a structural patch sent by the rendering layer
type ChangeType string

const (
	ChangeAdd      ChangeType = "add"
	ChangeRemove   ChangeType = "remove"
	ChangePosition ChangeType = "position"
	ChangeSelect   ChangeType = "select"
	ChangeReplace  ChangeType = "replace"

	// ChangeReset is the canvas's name for a whole-item replacement
	ChangeReset ChangeType = "reset"
	// ChangeDimensions reports measured node sizes. Layout is owned by the
	// canvas, so the store accepts it and keeps nothing.
	ChangeDimensions ChangeType = "dimensions"
)

// Normalize maps canvas aliases onto the types the store applies
func (t ChangeType) Normalize() ChangeType {
	if t == ChangeReset {
		return ChangeReplace
	}
	return t
}

// NodeChange is one entry of an onNodesChange batch.
// Which fields are meaningful depends on Type:
//   - add, replace, reset: Item
//   - remove: ID
//   - position: ID, Position (nil means "unchanged")
//   - select: ID, Selected
//   - dimensions: ID (sizes are ignored)
type NodeChange struct {
	Type     ChangeType `json:"type"`
	ID       string     `json:"id,omitempty"`
	Item     *Node      `json:"item,omitempty"`
	Position *Position  `json:"position,omitempty"`
	Selected bool       `json:"selected,omitempty"`
}

// EdgeChange is one entry of an onEdgesChange batch.
//   - add, replace, reset: Item
//   - remove: ID
//   - select: ID, Selected
type EdgeChange struct {
	Type     ChangeType `json:"type"`
	ID       string     `json:"id,omitempty"`
	Item     *Edge      `json:"item,omitempty"`
	Selected bool       `json:"selected,omitempty"`
}
