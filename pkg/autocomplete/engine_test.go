package autocomplete

import (
	"errors"
	"testing"

	"github.com/ritzau/pipeline-builder/pkg/model"
	"github.com/ritzau/pipeline-builder/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.New()
	s.AddNode(&model.Node{ID: "input-1", Type: model.NodeTypeInput, Data: map[string]any{"inputName": "topic"}})
	s.AddNode(&model.Node{ID: "input-2", Type: model.NodeTypeInput, Data: map[string]any{"inputName": "Tone"}})
	s.AddNode(&model.Node{ID: "output-1", Type: model.NodeTypeOutput, Data: map[string]any{"outputName": "result"}})
	s.AddNode(&model.Node{ID: "text-1", Type: model.NodeTypeText, Data: map[string]any{"text": ""}})
	return s
}

func names(vars []model.Variable) []string {
	out := make([]string, 0, len(vars))
	for _, v := range vars {
		out = append(out, v.Name)
	}
	return out
}

func TestFindTrigger(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		cursor int
		open   bool
		start  int
		term   string
	}{
		{"no braces", "hello", 5, false, 0, ""},
		{"just opened", "Write {{", 8, true, 6, ""},
		{"partial term", "Write {{to", 10, true, 6, "to"},
		{"closed before cursor", "{{topic}} and", 13, false, 0, ""},
		{"second token open", "{{a}} {{b", 9, true, 6, "b"},
		{"cursor inside closed token", "{{topic}}", 4, true, 0, "to"},
		{"cursor before trigger", "ab {{x", 2, false, 0, ""},
		{"single brace", "{topic", 6, false, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, term, ok := findTrigger(tt.text, tt.cursor)
			assert.Equal(t, tt.open, ok)
			if tt.open {
				assert.Equal(t, tt.start, start)
				assert.Equal(t, tt.term, term)
			}
		})
	}
}

func TestInput_OpensAndFilters(t *testing.T) {
	e := NewEngine(newStore(t), "text-1", "text")
	assert.Equal(t, StateIdle, e.State())

	snap := e.Input("Write {{", 8)
	assert.Equal(t, StateOpen, snap.State)
	assert.Equal(t, []string{"topic", "Tone", "result"}, names(snap.Candidates))

	snap = e.Input("Write {{tO", 10)
	assert.Equal(t, StateOpen, snap.State)
	assert.Equal(t, "tO", snap.SearchTerm)
	assert.Equal(t, []string{"topic", "Tone"}, names(snap.Candidates))

	snap = e.Input("Write {{tO}}", 12)
	assert.Equal(t, StateIdle, snap.State)
	assert.Empty(t, snap.Candidates)
	assert.Empty(t, e.Candidates())
}

func TestInput_ClampsCursor(t *testing.T) {
	e := NewEngine(newStore(t), "text-1", "text")

	snap := e.Input("{{res", 99)
	assert.Equal(t, StateOpen, snap.State)
	assert.Equal(t, "res", snap.SearchTerm)

	snap = e.Input("{{res", -3)
	assert.Equal(t, StateIdle, snap.State)
}

func TestSelect_RewritesFieldAndWires(t *testing.T) {
	s := newStore(t)
	e := NewEngine(s, "text-1", "text")

	e.Input("Write about {{to tomorrow", 16)
	sel, err := e.Select("topic")
	require.NoError(t, err)

	assert.Equal(t, "Write about {{topic}} tomorrow", sel.Text)
	assert.Equal(t, len("Write about {{topic}}"), sel.Cursor)
	assert.Equal(t, StateIdle, e.State())

	n, _ := s.Node("text-1")
	assert.Equal(t, "Write about {{topic}} tomorrow", n.StringField("text"))

	require.NotNil(t, sel.Update)
	require.Len(t, sel.Update.Reconciled, 1)
	assert.Equal(t, []string{"input-1-text-1-topic"}, sel.Update.Reconciled[0].Created)
	assert.Len(t, s.Edges(), 1)
}

func TestSelect_EditorCopyWinsOverInterveningWrite(t *testing.T) {
	s := newStore(t)
	e := NewEngine(s, "text-1", "text")

	e.Input("Hi {{to", 7)
	n, _ := s.Node("text-1")
	assert.Empty(t, n.StringField("text"), "keystrokes stay in the engine")

	_, err := s.UpdateField("text-1", "text", "changed elsewhere")
	require.NoError(t, err)

	sel, err := e.Select("topic")
	require.NoError(t, err)
	assert.Equal(t, "Hi {{topic}}", sel.Text)

	n, _ = s.Node("text-1")
	assert.Equal(t, "Hi {{topic}}", n.StringField("text"))
}

func TestSelect_Errors(t *testing.T) {
	s := newStore(t)
	e := NewEngine(s, "text-1", "text")

	_, err := e.Select("topic")
	assert.True(t, errors.Is(err, ErrNotOpen))

	e.Input("{{res", 5)
	_, err = e.Select("topic")
	assert.True(t, errors.Is(err, ErrNotCandidate))
	assert.Equal(t, StateOpen, e.State(), "a rejected selection keeps the popover open")

	e.Input("{{", 2)
	_, err = e.Select("nope")
	assert.True(t, errors.Is(err, ErrNotCandidate))
}

func TestSelect_UnknownNode(t *testing.T) {
	e := NewEngine(newStore(t), "text-9", "text")

	e.Input("{{", 2)
	_, err := e.Select("topic")
	assert.True(t, errors.Is(err, store.ErrNodeNotFound))
}

func TestCancel_LeavesFieldUntouched(t *testing.T) {
	s := newStore(t)
	_, err := s.UpdateField("text-1", "text", "before")
	require.NoError(t, err)
	e := NewEngine(s, "text-1", "text")

	e.Input("before {{to", 11)
	e.Cancel()

	assert.Equal(t, StateIdle, e.State())
	assert.Empty(t, e.Candidates())
	n, _ := s.Node("text-1")
	assert.Equal(t, "before", n.StringField("text"))
	_, err = e.Select("topic")
	assert.True(t, errors.Is(err, ErrNotOpen))
}

func TestSessions(t *testing.T) {
	sessions := NewSessions(newStore(t))

	a := sessions.Engine("text-1", "text")
	assert.Same(t, a, sessions.Engine("text-1", "text"))
	assert.NotSame(t, a, sessions.Engine("comment-1", "comment"))

	_, ok := sessions.Lookup("text-1", "text")
	assert.True(t, ok)

	sessions.Forget("text-1")
	_, ok = sessions.Lookup("text-1", "text")
	assert.False(t, ok)
	_, ok = sessions.Lookup("comment-1", "comment")
	assert.True(t, ok)
}
