package reading

import (
	"regexp"
	"strings"

	"github.com/openfroyo/modconf/pkg/contexts"
	"github.com/openfroyo/modconf/pkg/tree"
)

// testPrefix marks keys of test-only blocks, e.g. test-settings.
const testPrefix = "test-"

// splitKey splits `name@modifier` into its parts.
func splitKey(key string) (name, modifier string) {
	name, modifier, _ = strings.Cut(key, "@")
	return name, modifier
}

var referencePattern = regexp.MustCompile(`\$\{([^{}]+)\}`)

// parseReferences returns a Reference or an Interpolation for strings holding
// `${path}` placeholders, or nil for plain strings.
func parseReferences(s string, meta tree.Meta) tree.Node {
	matches := referencePattern.FindAllStringSubmatchIndex(s, -1)
	switch len(matches) {
	case 0:
		return nil
	case 1:
		m := matches[0]
		return &tree.Reference{
			Meta:   meta,
			Path:   strings.TrimSpace(s[m[2]:m[3]]),
			Prefix: s[:m[0]],
			Suffix: s[m[1]:],
		}
	}

	var parts []tree.Part
	last := 0
	for _, m := range matches {
		if m[0] > last {
			parts = append(parts, tree.Part{Text: s[last:m[0]]})
		}
		parts = append(parts, tree.Part{Reference: strings.TrimSpace(s[m[2]:m[3]])})
		last = m[1]
	}
	if last < len(s) {
		parts = append(parts, tree.Part{Text: s[last:]})
	}
	return &tree.Interpolation{Meta: meta, Parts: parts}
}

// modifierContexts converts a key modifier into contexts. ok is false when the
// modifier is not a known platform or alias.
func (r *Reader) modifierContexts(modifier string) (contexts.Contexts, bool) {
	if modifier == "" {
		return nil, true
	}
	if modifier == "test" {
		return contexts.Of(contexts.Test{}), true
	}
	if !r.minimal && !r.platforms.Knows(modifier) {
		return nil, false
	}
	return contexts.Of(contexts.Platform{Name: modifier}), true
}
