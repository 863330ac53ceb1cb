package variables

import "regexp"

// referencePattern matches {{name}} tokens. Names follow identifier rules:
// a letter, '_' or '$' followed by letters, digits, '_' or '$'. No whitespace
// inside the braces, no nesting, no escaping.
var referencePattern = regexp.MustCompile(`\{\{([A-Za-z_$][A-Za-z0-9_$]*)\}\}`)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Extract returns the distinct variable names referenced in text, in order of
// first occurrence. Malformed tokens are ignored; text without references yields
// an empty (non-nil) slice.
func Extract(text string) []string {
	matches := referencePattern.FindAllStringSubmatch(text, -1)
	seen := make(map[string]bool, len(matches))
	names := make([]string, 0, len(matches))
	for _, match := range matches {
		if len(match) >= 2 && !seen[match[1]] {
			names = append(names, match[1])
			seen[match[1]] = true
		}
	}
	return names
}

// IsIdentifier reports whether s is a valid variable name
func IsIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// Token formats a reference token for name
func Token(name string) string {
	return "{{" + name + "}}"
}
