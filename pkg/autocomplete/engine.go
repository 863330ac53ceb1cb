// Package autocomplete implements the "{{" trigger that offers catalog variables
// while a text field is being edited, and rewrites the field when one is picked.
package autocomplete

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ritzau/pipeline-builder/pkg/logging"
	"github.com/ritzau/pipeline-builder/pkg/model"
	"github.com/ritzau/pipeline-builder/pkg/store"
	"github.com/ritzau/pipeline-builder/pkg/variables"
)

var (
	ErrNotOpen      = errors.New("autocomplete: no open trigger")
	ErrNotCandidate = errors.New("autocomplete: not a candidate")
)

const (
	openToken  = "{{"
	closeToken = "}}"
)

// State of an engine
type State string

const (
	StateIdle State = "idle"
	StateOpen State = "open"
)

// Source is what the engine needs from the graph store
type Source interface {
	AvailableVariables() []model.Variable
	UpdateField(nodeID, field string, value any) (*store.FieldUpdate, error)
}

// Snapshot describes the engine after an input event
type Snapshot struct {
	State      State            `json:"state"`
	SearchTerm string           `json:"searchTerm"`
	Candidates []model.Variable `json:"candidates"`
}

// Selection is the result of picking a candidate
type Selection struct {
	Text   string             `json:"text"`
	Cursor int                `json:"cursor"`
	Update *store.FieldUpdate `json:"update"`
}

// Engine is the trigger state machine of one field.
// Cursor positions are byte offsets into the field text.
//
// The engine keeps its own copy of the field as last seen by Input, and Input
// never writes the store. Select writes that copy, with the token spliced in,
// through Source.UpdateField, so the editor's text replaces whatever the store
// held for the field in the meantime.
type Engine struct {
	mu     sync.Mutex
	source Source
	nodeID string
	field  string

	state  State
	text   string
	cursor int
	start  int // offset of the triggering "{{"
	term   string
}

// NewEngine creates an idle engine for a node field
func NewEngine(source Source, nodeID, field string) *Engine {
	return &Engine{
		source: source,
		nodeID: nodeID,
		field:  field,
		state:  StateIdle,
	}
}

// Input reacts to a keystroke: text is the whole field value, cursor the caret.
// The engine opens when the text before the cursor has a "{{" not followed by "}}".
func (e *Engine) Input(text string, cursor int) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	cursor = clamp(cursor, len(text))
	e.text = text
	e.cursor = cursor

	start, term, ok := findTrigger(text, cursor)
	if !ok {
		if e.state == StateOpen {
			logging.Trace("autocomplete closed", "nodeID", e.nodeID, "field", e.field)
		}
		e.state = StateIdle
		e.term = ""
		return Snapshot{State: StateIdle, Candidates: make([]model.Variable, 0)}
	}

	e.state = StateOpen
	e.start = start
	e.term = term
	return Snapshot{
		State:      StateOpen,
		SearchTerm: term,
		Candidates: variables.Filter(e.source.AvailableVariables(), term),
	}
}

// State returns the current state
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Candidates returns the catalog entries matching the search term, or nothing when idle
func (e *Engine) Candidates() []model.Variable {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateOpen {
		return make([]model.Variable, 0)
	}
	return variables.Filter(e.source.AvailableVariables(), e.term)
}

// Select replaces the span from the trigger through the cursor with "{{name}}",
// writes the field through the store and closes the engine.
func (e *Engine) Select(name string) (*Selection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateOpen {
		return nil, ErrNotOpen
	}
	if !containsName(variables.Filter(e.source.AvailableVariables(), e.term), name) {
		return nil, fmt.Errorf("%w: %q", ErrNotCandidate, name)
	}

	token := variables.Token(name)
	text := e.text[:e.start] + token + e.text[e.cursor:]
	update, err := e.source.UpdateField(e.nodeID, e.field, text)
	if err != nil {
		return nil, fmt.Errorf("failed to write field %s of %s: %w", e.field, e.nodeID, err)
	}

	sel := &Selection{Text: text, Cursor: e.start + len(token), Update: update}
	logging.Debug("autocomplete selected", "nodeID", e.nodeID, "field", e.field, "variable", name)

	e.text = text
	e.cursor = sel.Cursor
	e.state = StateIdle
	e.term = ""
	return sel, nil
}

// Cancel returns to idle without touching the field (escape, click outside)
func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = StateIdle
	e.term = ""
}

func findTrigger(text string, cursor int) (int, string, bool) {
	before := text[:cursor]
	start := strings.LastIndex(before, openToken)
	if start < 0 {
		return 0, "", false
	}
	term := before[start+len(openToken):]
	if strings.Contains(term, closeToken) {
		return 0, "", false
	}
	return start, term, true
}

func containsName(vars []model.Variable, name string) bool {
	for _, v := range vars {
		if v.Name == name {
			return true
		}
	}
	return false
}

func clamp(cursor, n int) int {
	if cursor < 0 {
		return 0
	}
	if cursor > n {
		return n
	}
	return cursor
}
