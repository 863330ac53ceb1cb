package nodes

import "github.com/ritzau/pipeline-builder/pkg/model"

// FieldKind is the widget used to edit a field
type FieldKind string

const (
	FieldText     FieldKind = "text"
	FieldTextarea FieldKind = "textarea"
	FieldSelect   FieldKind = "select"
	FieldDisplay  FieldKind = "display"
)

// Field describes one editable (or display-only) entry of a node's data
type Field struct {
	Name        string    `json:"name,omitempty"`
	Label       string    `json:"label,omitempty"`
	Kind        FieldKind `json:"type"`
	Options     []string  `json:"options,omitempty"`
	Placeholder string    `json:"placeholder,omitempty"`
	Content     string    `json:"content,omitempty"` // static text for display fields
}

// Handle is a static connection point declared by a kind.
//
// When KeyField is set and the node's KeyField holds a non-empty string, the rendered
// id is keyed by that value instead of ID, e.g. an input named "topic" exposes
// "input-1-topic" rather than "input-1-value".
type Handle struct {
	ID       string           `json:"id"`
	Type     model.HandleType `json:"type"`
	Position string           `json:"position"` // left, right, top, bottom
	KeyField string           `json:"keyField,omitempty"`
}

// Kind is the static configuration of a node type
type Kind struct {
	Type        model.NodeType `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Fields      []Field        `json:"fields"`
	Handles     []Handle       `json:"handles"`

	// Declares makes nodes of this kind contribute NameField to the variable catalog.
	Declares  model.VariableKind `json:"declares,omitempty"`
	NameField string             `json:"nameField,omitempty"`

	// VariableField is the text field scanned for {{name}} references and watched by autocomplete.
	VariableField string `json:"variableField,omitempty"`
	// WiresVariables synthesizes one target handle per reference and auto-wires it.
	WiresVariables bool `json:"wiresVariables,omitempty"`
}

// Field returns the field definition with the given name
func (k *Kind) Field(name string) (Field, bool) {
	for _, f := range k.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// DefaultKinds returns the built-in node catalogue
func DefaultKinds() []*Kind {
	return []*Kind{
		{
			Type:  model.NodeTypeInput,
			Title: "Input",
			Fields: []Field{
				{Name: "inputName", Label: "Name", Kind: FieldText, Placeholder: "e.g., user_input, data_source"},
				{Name: "inputType", Label: "Type", Kind: FieldSelect, Options: []string{"Text", "File"}},
			},
			Handles: []Handle{
				{ID: "value", Type: model.HandleSource, Position: "right", KeyField: "inputName"},
			},
			Declares:  model.VariableInput,
			NameField: "inputName",
		},
		{
			Type:  model.NodeTypeOutput,
			Title: "Output",
			Fields: []Field{
				{Name: "outputName", Label: "Name", Kind: FieldText, Placeholder: "e.g., result, final_output"},
				{Name: "outputType", Label: "Type", Kind: FieldSelect, Options: []string{"Text", "Image"}},
			},
			Handles: []Handle{
				{ID: "value", Type: model.HandleTarget, Position: "left"},
				{ID: "value", Type: model.HandleSource, Position: "right", KeyField: "outputName"},
			},
			Declares:  model.VariableOutput,
			NameField: "outputName",
		},
		{
			Type:        model.NodeTypeText,
			Title:       "Text",
			Description: "Parse data of different types",
			Fields: []Field{
				{Name: "text", Label: "Text", Kind: FieldTextarea},
			},
			Handles: []Handle{
				{ID: "output", Type: model.HandleSource, Position: "right"},
			},
			VariableField:  "text",
			WiresVariables: true,
		},
		{
			Type:  model.NodeTypeLLM,
			Title: "LLM",
			Fields: []Field{
				{Kind: FieldDisplay, Content: "This is a LLM."},
			},
			Handles: []Handle{
				{ID: "system", Type: model.HandleTarget, Position: "left"},
				{ID: "prompt", Type: model.HandleTarget, Position: "left"},
				{ID: "response", Type: model.HandleSource, Position: "right"},
			},
		},
		{
			Type:  model.NodeTypeValidator,
			Title: "Data Validator",
			Fields: []Field{
				{Name: "validationType", Label: "Validation Type", Kind: FieldSelect,
					Options: []string{"email", "url", "number", "phone", "date", "regex", "length", "custom"}},
				{Name: "required", Label: "Required", Kind: FieldSelect, Options: []string{"true", "false"}},
				{Name: "minLength", Label: "Min Length", Kind: FieldText},
				{Name: "maxLength", Label: "Max Length", Kind: FieldText},
				{Name: "customPattern", Label: "Custom Pattern (regex)", Kind: FieldText},
				{Name: "errorMessage", Label: "Error Message", Kind: FieldTextarea},
				{Kind: FieldDisplay, Content: "Valid data -> Right | Invalid -> Bottom"},
			},
			Handles: []Handle{
				{ID: "input", Type: model.HandleTarget, Position: "left"},
				{ID: "valid", Type: model.HandleSource, Position: "right"},
				{ID: "invalid", Type: model.HandleSource, Position: "bottom"},
			},
		},
		{
			Type:        model.NodeTypeComment,
			Title:       "Comment",
			Description: "This node has no handles and does not affect the workflow",
			Fields: []Field{
				{Name: "comment", Label: "Note", Kind: FieldTextarea, Placeholder: "Type your comment or notes here..."},
			},
			VariableField: "comment",
		},
		{
			Type:  model.NodeTypeNote,
			Title: "Note",
			Fields: []Field{
				{Name: "note", Label: "Note", Kind: FieldTextarea},
			},
		},
	}
}
