package tree

// Each pipeline stage wraps the root of its tree in a distinct type so that an
// operation expecting a later stage cannot be handed an earlier one. Conversions
// between stages go through the functions below.

// Unmerged is the tree of a single source file as read.
type Unmerged struct {
	// Source is the file the tree was read from.
	Source string
	root   *Mapping
}

// NewUnmerged wraps a freshly read root.
func NewUnmerged(source string, root *Mapping) Unmerged {
	return Unmerged{Source: source, root: root}
}

// Root returns the root mapping.
func (u Unmerged) Root() *Mapping { return u.root }

// Merged is the combination of every source of a module, still holding all
// context-tagged candidates.
type Merged struct {
	root *Mapping
}

// NewMerged wraps the output of a merge.
func NewMerged(root *Mapping) Merged {
	return Merged{root: root}
}

// Root returns the root mapping.
func (m Merged) Root() *Mapping { return m.root }

// Refined is a tree specialized to one context selection: every mapping holds at most
// one entry per key.
type Refined struct {
	root *Mapping
}

// NewRefined checks that root holds a single candidate per key at every level.
func NewRefined(root *Mapping) (Refined, error) {
	if err := checkUniqueKeys(root, nil); err != nil {
		return Refined{}, err
	}
	return Refined{root: root}, nil
}

// MustRefined is like NewRefined but panics with an IntegrityError.
func MustRefined(root *Mapping) Refined {
	r, err := NewRefined(root)
	if err != nil {
		panic(err)
	}
	return r
}

// Root returns the root mapping.
func (r Refined) Root() *Mapping { return r.root }

// WithRoot returns a refined tree with a new root, used by passes that substitute
// values without touching keys. The new root is checked like in MustRefined.
func (r Refined) WithRoot(root *Mapping) Refined {
	return MustRefined(root)
}

// Complete is a fully validated tree holding plain values only.
type Complete struct {
	root *CompleteObject
}

// NewComplete wraps a completed root.
func NewComplete(root *CompleteObject) Complete {
	return Complete{root: root}
}

// Root returns the root object.
func (c Complete) Root() *CompleteObject { return c.root }

func checkUniqueKeys(n Node, path []string) error {
	switch n := n.(type) {
	case *Mapping:
		seen := make(map[string]struct{}, len(n.Children))
		for _, kv := range n.Children {
			p := append(path[:len(path):len(path)], kv.Key)
			if _, dup := seen[kv.Key]; dup {
				return &IntegrityError{Stage: "refine", Path: p, Message: "duplicate key after refinement"}
			}
			seen[kv.Key] = struct{}{}
			if err := checkUniqueKeys(kv.Value, p); err != nil {
				return err
			}
		}
	case *List:
		for _, c := range n.Children {
			if err := checkUniqueKeys(c, path); err != nil {
				return err
			}
		}
	}
	return nil
}
