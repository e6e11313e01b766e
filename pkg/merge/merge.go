// Package merge combines the trees of several sources into one Merged tree.
//
// Map-like values are merged recursively so that overrides happen as deep as
// possible; every other value is kept as a context-tagged sibling and left for the
// refiner to choose from.
package merge

import (
	"github.com/openfroyo/modconf/pkg/contexts"
	"github.com/openfroyo/modconf/pkg/tree"
)

// Trees merges sources in declaration order, e.g. the module file first and then its
// applied templates.
func Trees(sources ...tree.Unmerged) tree.Merged {
	roots := make([]*tree.Mapping, 0, len(sources))
	for _, s := range sources {
		if s.Root() != nil {
			roots = append(roots, s.Root())
		}
	}
	return tree.NewMerged(Mappings(roots...))
}

// Mappings merges mapping nodes. A single mapping is returned as is.
func Mappings(ms ...*tree.Mapping) *tree.Mapping {
	switch len(ms) {
	case 0:
		return &tree.Mapping{}
	case 1:
		return ms[0]
	}

	base := ms[0]
	for _, m := range ms {
		if !m.Trace.IsDefault() {
			base = m
			break
		}
	}

	merged := &tree.Mapping{
		Meta: tree.Meta{
			Trace:    base.Trace,
			Contexts: commonContexts(ms),
		},
		Object: base.Object,
	}
	if merged.Object == nil {
		for _, m := range ms {
			if m.Object != nil {
				merged.Object = m.Object
				break
			}
		}
	}

	// Map-like entries are grouped by key. The group takes the position of its first
	// entry so that key order follows the sources.
	groups := make(map[string][]*tree.KeyValue)
	var children []*tree.KeyValue
	for _, m := range ms {
		for _, kv := range m.Children {
			if !tree.IsMapLike(kv.Value) {
				children = append(children, kv)
				continue
			}
			if _, ok := groups[kv.Key]; !ok {
				children = append(children, &tree.KeyValue{Key: kv.Key})
			}
			groups[kv.Key] = append(groups[kv.Key], kv)
		}
	}

	for i, kv := range children {
		group, ok := groups[kv.Key]
		if !ok || kv.Value != nil {
			continue
		}
		children[i] = mergeGroup(group)
	}
	merged.Children = children
	return merged
}

func mergeGroup(group []*tree.KeyValue) *tree.KeyValue {
	if len(group) == 1 {
		return group[0]
	}

	first := group[0]
	for _, kv := range group {
		if !kv.KeyTrace.IsDefault() && !kv.Value.Info().Trace.IsDefault() {
			first = kv
			break
		}
	}

	values := make([]*tree.Mapping, 0, len(group))
	property := first.Property
	for _, kv := range group {
		values = append(values, kv.Value.(*tree.Mapping))
		if property == nil {
			property = kv.Property
		}
	}

	return &tree.KeyValue{
		Key:      first.Key,
		KeyTrace: first.KeyTrace,
		Value:    Mappings(values...),
		Property: property,
	}
}

func commonContexts(ms []*tree.Mapping) contexts.Contexts {
	common := ms[0].Contexts
	for _, m := range ms[1:] {
		common = contexts.Intersect(common, m.Contexts)
	}
	return common
}
