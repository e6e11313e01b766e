// Package contexts defines the tags attached to configuration tree nodes and the
// specificity relation used to pick between context-tagged candidates.
//
// # Contexts
//
// A Context is an opaque tag describing when a value applies. Four kinds exist:
//
//   - Platform: written as a key suffix, e.g. "settings@jvm"
//   - Test: attached to "test-settings" and "test-dependencies" blocks
//   - Path: the source file a node was read from
//   - Default: the marker carried by type-level default values
//
// A node's Contexts are conjunctive: a node tagged {apple, ios} applies to iOS
// targets only. An empty set applies everywhere.
//
// # Specificity
//
// Inheritance compares two context sets and reports one of Same, MoreSpecific,
// LessSpecific or Incomparable. The default relation is built from independent
// dimensions:
//
//	inh := contexts.Combine(
//	    contexts.NewPlatformInheritance(aliases),
//	    contexts.NewPathInheritance(templateFiles, moduleFile),
//	)
//
// Default-tagged values are always less specific than explicit ones, platform and
// main/test dimensions must agree, and source file order only breaks ties.
//
// A candidate is visible for a selection when the selection is the same as or more
// specific than the candidate, see Visible.
package contexts
