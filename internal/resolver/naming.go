package resolver

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DisplayName composes the human-facing product name: the base name followed
// by the variant attribute names, space separated. Without attributes it is
// the base name alone. The result is NFC normalized.
func DisplayName(base string, attributes []string) string {
	name := base
	if len(attributes) > 0 {
		name = base + " " + strings.Join(attributes, " ")
	}
	return norm.NFC.String(name)
}
