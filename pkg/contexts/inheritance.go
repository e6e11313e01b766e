package contexts

// Specificity is the result of comparing two context sets.
type Specificity int

const (
	// Same means neither set is more specific than the other.
	Same Specificity = iota
	// MoreSpecific means the first set is strictly more specific.
	MoreSpecific
	// LessSpecific means the first set is strictly less specific.
	LessSpecific
	// Incomparable means the sets cannot be ordered.
	Incomparable
)

func (s Specificity) String() string {
	switch s {
	case Same:
		return "same"
	case MoreSpecific:
		return "more"
	case LessSpecific:
		return "less"
	default:
		return "incomparable"
	}
}

// SameOrMore reports whether s is Same or MoreSpecific.
func (s Specificity) SameOrMore() bool {
	return s == Same || s == MoreSpecific
}

// Invert swaps the direction of the comparison.
func (s Specificity) Invert() Specificity {
	switch s {
	case MoreSpecific:
		return LessSpecific
	case LessSpecific:
		return MoreSpecific
	default:
		return s
	}
}

// Inheritance is a specificity relation over context sets.
type Inheritance interface {
	// Compare reports how specific a is relative to b.
	Compare(a, b Contexts) Specificity
}

// InheritanceFunc adapts a plain function to Inheritance.
type InheritanceFunc func(a, b Contexts) Specificity

// Compare implements Inheritance.
func (f InheritanceFunc) Compare(a, b Contexts) Specificity {
	return f(a, b)
}

// Visible reports whether a candidate tagged with candidate is applicable for the
// selection. The default marker never affects visibility.
func Visible(inh Inheritance, selection, candidate Contexts) bool {
	return inh.Compare(selection, candidate.Without(KindDefault)).SameOrMore()
}

// Product combines dimensions that must all agree. Same results are ignored; any
// disagreement or Incomparable result makes the whole comparison Incomparable.
func Product(dims ...Inheritance) Inheritance {
	return InheritanceFunc(func(a, b Contexts) Specificity {
		result := Same
		for _, d := range dims {
			r := d.Compare(a, b)
			switch {
			case r == Same:
			case r == Incomparable:
				return Incomparable
			case result == Same:
				result = r
			case result != r:
				return Incomparable
			}
		}
		return result
	})
}

// ThenBy compares lexicographically: the first dimension that does not report Same
// decides.
func ThenBy(dims ...Inheritance) Inheritance {
	return InheritanceFunc(func(a, b Contexts) Specificity {
		for _, d := range dims {
			if r := d.Compare(a, b); r != Same {
				return r
			}
		}
		return Same
	})
}

// MainTest orders test contexts above main ones.
var MainTest Inheritance = InheritanceFunc(func(a, b Contexts) Specificity {
	return presence(a.HasKind(KindTest), b.HasKind(KindTest))
})

// DefaultMarker orders every explicit set above every default-tagged set.
var DefaultMarker Inheritance = InheritanceFunc(func(a, b Contexts) Specificity {
	return presence(!a.IsDefault(), !b.IsDefault())
})

func presence(a, b bool) Specificity {
	switch {
	case a == b:
		return Same
	case a:
		return MoreSpecific
	default:
		return LessSpecific
	}
}

// PathInheritance orders contexts by the position of their source file. Files later
// in the order are more specific. Sets without a path compare as Same.
type PathInheritance struct {
	order map[string]int
}

// NewPathInheritance builds the relation from files, least specific first.
func NewPathInheritance(files ...string) PathInheritance {
	order := make(map[string]int, len(files))
	for i, f := range files {
		order[Path{File: f}.String()] = i
	}
	return PathInheritance{order: order}
}

// Compare implements Inheritance.
func (p PathInheritance) Compare(a, b Contexts) Specificity {
	ia, oka := p.rank(a)
	ib, okb := p.rank(b)
	if !oka || !okb || ia == ib {
		return Same
	}
	if ia > ib {
		return MoreSpecific
	}
	return LessSpecific
}

func (p PathInheritance) rank(cs Contexts) (int, bool) {
	best, found := -1, false
	for _, c := range cs.OfKind(KindPath) {
		if i, ok := p.order[c.String()]; ok && i > best {
			best, found = i, true
		}
	}
	return best, found
}

// Combine builds the default relation: default marker first, then platforms and
// main/test as a product, then file order as a tie-break.
func Combine(platforms PlatformInheritance, paths PathInheritance) Inheritance {
	return ThenBy(DefaultMarker, Product(platforms, MainTest), paths)
}

// DefaultInheritance is the relation used when a module does not declare aliases
// or templates.
var DefaultInheritance = Combine(NewPlatformInheritance(nil), NewPathInheritance())
