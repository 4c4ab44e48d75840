// Package projectname turns human-readable project names into identifiers
// that vcpkg and CPack accept as package names.
package projectname

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	camelHump  = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	disallowed = regexp.MustCompile(`[^a-z0-9-]`)
	hyphenRuns = regexp.MustCompile(`-{2,}`)
)

// Sanitize lowercases name, splits camelCase humps with hyphens and folds
// everything outside [a-z0-9-] into single hyphens. The result is either
// empty or matches [a-z0-9]([a-z0-9-]*[a-z0-9])?.
//
// Lowercasing uses full Unicode case mapping, so "İ" becomes "i" plus a
// combining dot and the dot turns into a hyphen.
func Sanitize(name string) string {
	name = cases.Lower(language.Und).String(camelHump.ReplaceAllString(name, "$1-$2"))
	name = disallowed.ReplaceAllString(name, "-")
	name = hyphenRuns.ReplaceAllString(name, "-")
	return strings.Trim(name, "-")
}
