package contexts

import (
	"sort"
)

// platformHierarchy lists the direct children of every non-leaf platform.
var platformHierarchy = map[string][]string{
	"common":        {"jvm", "android", "js", "wasm", "native"},
	"native":        {"linux", "apple", "mingw", "androidNative"},
	"linux":         {"linuxX64", "linuxArm64"},
	"mingw":         {"mingwX64"},
	"androidNative": {"androidNativeArm32", "androidNativeArm64", "androidNativeX64", "androidNativeX86"},
	"apple":         {"ios", "macos", "tvos", "watchos"},
	"ios":           {"iosArm64", "iosSimulatorArm64", "iosX64"},
	"macos":         {"macosX64", "macosArm64"},
	"tvos":          {"tvosArm64", "tvosSimulatorArm64", "tvosX64"},
	"watchos":       {"watchosArm32", "watchosArm64", "watchosDeviceArm64", "watchosSimulatorArm64", "watchosX64"},
}

var allLeaves = leavesOf("common")

func leavesOf(name string) map[string]struct{} {
	out := make(map[string]struct{})
	var walk func(string)
	walk = func(n string) {
		children, ok := platformHierarchy[n]
		if !ok {
			out[n] = struct{}{}
			return
		}
		for _, c := range children {
			walk(c)
		}
	}
	walk(name)
	return out
}

// IsKnownPlatform reports whether name is a platform of the built-in hierarchy.
func IsKnownPlatform(name string) bool {
	if name == "common" {
		return true
	}
	if _, ok := platformHierarchy[name]; ok {
		return true
	}
	_, ok := allLeaves[name]
	return ok
}

// KnownPlatforms returns every platform name of the built-in hierarchy, sorted.
func KnownPlatforms() []string {
	seen := map[string]struct{}{"common": {}}
	for parent, children := range platformHierarchy {
		seen[parent] = struct{}{}
		for _, c := range children {
			seen[c] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// PlatformInheritance compares the platform dimension by leaf-set inclusion. A set
// without platform contexts covers every leaf; several platform contexts narrow the
// set to their intersection.
type PlatformInheritance struct {
	aliases map[string]map[string]struct{}
}

// NewPlatformInheritance builds the relation with user aliases, each alias mapping
// to the platforms it stands for.
func NewPlatformInheritance(aliases map[string][]string) PlatformInheritance {
	resolved := make(map[string]map[string]struct{}, len(aliases))
	for alias, platforms := range aliases {
		set := make(map[string]struct{})
		for _, p := range platforms {
			for leaf := range leavesOf(p) {
				set[leaf] = struct{}{}
			}
		}
		resolved[alias] = set
	}
	return PlatformInheritance{aliases: resolved}
}

// Knows reports whether name is a platform or a declared alias.
func (p PlatformInheritance) Knows(name string) bool {
	if _, ok := p.aliases[name]; ok {
		return true
	}
	return IsKnownPlatform(name)
}

// Leaves returns the sorted leaf platforms a name stands for.
func (p PlatformInheritance) Leaves(name string) []string {
	set := p.leaves(name)
	out := make([]string, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func (p PlatformInheritance) leaves(name string) map[string]struct{} {
	if set, ok := p.aliases[name]; ok {
		return set
	}
	return leavesOf(name)
}

func (p PlatformInheritance) leafSet(cs Contexts) map[string]struct{} {
	platforms := cs.OfKind(KindPlatform)
	if len(platforms) == 0 {
		return allLeaves
	}
	var result map[string]struct{}
	for _, c := range platforms {
		set := p.leaves(c.String())
		if result == nil {
			result = make(map[string]struct{}, len(set))
			for l := range set {
				result[l] = struct{}{}
			}
			continue
		}
		for l := range result {
			if _, ok := set[l]; !ok {
				delete(result, l)
			}
		}
	}
	return result
}

// Compare implements Inheritance.
func (p PlatformInheritance) Compare(a, b Contexts) Specificity {
	la, lb := p.leafSet(a), p.leafSet(b)
	aInB, bInA := subset(la, lb), subset(lb, la)
	switch {
	case aInB && bInA:
		return Same
	case aInB:
		return MoreSpecific
	case bInA:
		return LessSpecific
	default:
		return Incomparable
	}
}

func subset(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
