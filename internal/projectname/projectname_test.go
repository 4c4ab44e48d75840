package projectname

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var identifierPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "camel case", input: "MyCoolApp", expected: "my-cool-app"},
		{name: "punctuation and padding", input: "  Weird!!Name--2", expected: "weird-name-2"},
		{name: "digit before capital", input: "Build2Go", expected: "build2-go"},
		{name: "acronyms stay together", input: "HTTPServer", expected: "httpserver"},
		{name: "spaces", input: "Hello World App", expected: "hello-world-app"},
		{name: "already sanitized", input: "my-cool-app", expected: "my-cool-app"},
		{name: "underscores", input: "snake_case_name", expected: "snake-case-name"},
		{name: "unicode letters", input: "Café Crème", expected: "caf-cr-me"},
		{name: "dotted capital I keeps its dot", input: "İstanbul", expected: "i-stanbul"},
		{name: "kelvin sign lowers to ascii", input: "\u212Aelvin", expected: "kelvin"},
		{name: "only symbols", input: "!!!---???", expected: ""},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Sanitize(tt.input))
		})
	}
}

func TestSanitizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"MyCoolApp",
		"  Weird!!Name--2",
		"aBcDeF",
		"--Leading and trailing--",
		"Mixed_UP case 123abcDEF",
		"ÜberApp",
		"",
	}

	for _, input := range inputs {
		once := Sanitize(input)
		assert.Equal(t, once, Sanitize(once), "input %q", input)
	}
}

func TestSanitizeOutputAlphabet(t *testing.T) {
	inputs := []string{
		"MyCoolApp",
		"  Weird!!Name--2",
		"a",
		"A",
		"-a-",
		"x___y",
		"Tab\tSeparated\nLines",
		"emoji 🚀 launch",
		"中文名字 Project",
	}

	for _, input := range inputs {
		output := Sanitize(input)
		if output == "" {
			continue
		}
		assert.Regexp(t, identifierPattern, output, "input %q", input)
	}
}
