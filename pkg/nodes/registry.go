package nodes

import (
	"fmt"

	"github.com/ritzau/pipeline-builder/pkg/model"
	"github.com/ritzau/pipeline-builder/pkg/variables"
)

// Registry maps node types to their static configuration and derives
// the dynamic parts (handles, declared names) from live node data.
type Registry struct {
	kinds map[model.NodeType]*Kind
	order []model.NodeType
}

// NewRegistry creates a registry holding the given kinds.
// A later kind with the same type replaces an earlier one.
func NewRegistry(kinds ...*Kind) *Registry {
	r := &Registry{
		kinds: make(map[model.NodeType]*Kind),
	}
	for _, k := range kinds {
		r.Register(k)
	}
	return r
}

// NewDefaultRegistry creates a registry with the built-in node catalogue
func NewDefaultRegistry() *Registry {
	return NewRegistry(DefaultKinds()...)
}

// Register adds or replaces a kind
func (r *Registry) Register(k *Kind) {
	if _, exists := r.kinds[k.Type]; !exists {
		r.order = append(r.order, k.Type)
	}
	r.kinds[k.Type] = k
}

// Kind returns the configuration for a node type
func (r *Registry) Kind(t model.NodeType) (*Kind, bool) {
	k, ok := r.kinds[t]
	return k, ok
}

// Kinds returns all registered kinds in registration order
func (r *Registry) Kinds() []*Kind {
	kinds := make([]*Kind, 0, len(r.order))
	for _, t := range r.order {
		kinds = append(kinds, r.kinds[t])
	}
	return kinds
}

// DeclaredName returns the variable a node declares, if any.
// Nodes of unknown kinds or with an empty name field declare nothing.
func (r *Registry) DeclaredName(n *model.Node) (model.Variable, bool) {
	k, ok := r.kinds[n.Type]
	if !ok || k.Declares == "" {
		return model.Variable{}, false
	}
	name := n.StringField(k.NameField)
	if name == "" {
		return model.Variable{}, false
	}
	return model.Variable{Name: name, Kind: k.Declares, NodeID: n.ID}, true
}

// References returns the variable names referenced by a wiring node's variable field.
// Non-wiring kinds return nil.
func (r *Registry) References(n *model.Node) []string {
	k, ok := r.kinds[n.Type]
	if !ok || !k.WiresVariables {
		return nil
	}
	return variables.Extract(n.StringField(k.VariableField))
}

// Handles derives the rendered handles of a node from its kind and current data.
// Keyed handles follow their key field; wiring kinds gain one target handle per reference.
func (r *Registry) Handles(n *model.Node) []model.HandleRef {
	k, ok := r.kinds[n.Type]
	if !ok {
		return nil
	}

	handles := make([]model.HandleRef, 0, len(k.Handles))
	for _, h := range k.Handles {
		key := h.ID
		if h.KeyField != "" {
			if v := n.StringField(h.KeyField); v != "" {
				key = v
			}
		}
		handles = append(handles, model.HandleRef{ID: HandleID(n.ID, key), Type: h.Type})
	}

	for _, name := range r.References(n) {
		handles = append(handles, model.HandleRef{ID: HandleID(n.ID, name), Type: model.HandleTarget})
	}

	return handles
}

// HasHandle reports whether the node currently renders a handle with this id and direction
func (r *Registry) HasHandle(n *model.Node, id string, t model.HandleType) bool {
	for _, h := range r.Handles(n) {
		if h.ID == id && h.Type == t {
			return true
		}
	}
	return false
}

// HandleID formats the rendered id of a handle: "<nodeId>-<key>"
func HandleID(nodeID, key string) string {
	return fmt.Sprintf("%s-%s", nodeID, key)
}
