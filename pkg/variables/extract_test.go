package variables

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		expected []string
	}{
		{name: "empty", text: "", expected: []string{}},
		{name: "no tokens", text: "plain text { } }}", expected: []string{}},
		{name: "single", text: "Write about {{topic}}", expected: []string{"topic"}},
		{name: "duplicates collapse", text: "{{x}} and {{x}} again", expected: []string{"x"}},
		{name: "first occurrence order", text: "{{b}} {{a}} {{b}}", expected: []string{"b", "a"}},
		{name: "dollar and underscore", text: "{{$ctx}} {{_tmp1}}", expected: []string{"$ctx", "_tmp1"}},
		{name: "leading digit rejected", text: "{{1abc}}", expected: []string{}},
		{name: "inner whitespace rejected", text: "{{ topic }}", expected: []string{}},
		{name: "missing close", text: "{{topic} and {{other", expected: []string{}},
		{name: "invalid character", text: "{{top-ic}}", expected: []string{}},
		{name: "extra open brace", text: "{{{topic}}}", expected: []string{"topic"}},
		{name: "adjacent", text: "{{a}}{{b}}", expected: []string{"a", "b"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Extract(tc.text))
		})
	}
}

func TestExtract_Idempotent(t *testing.T) {
	text := "{{b}} then {{a}}, {{b}} and {{c}}"
	assert.Equal(t, Extract(text), Extract(text))
}

func TestIsIdentifier(t *testing.T) {
	assert.True(t, IsIdentifier("topic"))
	assert.True(t, IsIdentifier("$x_1"))
	assert.False(t, IsIdentifier(""))
	assert.False(t, IsIdentifier("9lives"))
	assert.False(t, IsIdentifier("a b"))
}
