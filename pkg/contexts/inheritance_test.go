package contexts

import (
	"testing"
)

func TestPlatformInheritance_Compare(t *testing.T) {
	inh := NewPlatformInheritance(map[string][]string{
		"jvmAndAndroid": {"jvm", "android"},
	})

	tests := []struct {
		name string
		a, b Contexts
		want Specificity
	}{
		{"empty vs empty", nil, nil, Same},
		{"empty vs common", nil, Platforms("common"), Same},
		{"jvm vs empty", Platforms("jvm"), nil, MoreSpecific},
		{"empty vs jvm", nil, Platforms("jvm"), LessSpecific},
		{"jvm vs android", Platforms("jvm"), Platforms("android"), Incomparable},
		{"ios vs apple", Platforms("ios"), Platforms("apple"), MoreSpecific},
		{"iosArm64 vs native", Platforms("iosArm64"), Platforms("native"), MoreSpecific},
		{"alias vs jvm", Platforms("jvmAndAndroid"), Platforms("jvm"), LessSpecific},
		{"inherited ios in apple", Platforms("apple", "ios"), Platforms("ios"), Same},
		{"disjoint intersection", Platforms("jvm", "android"), Platforms("jvm"), MoreSpecific},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inh.Compare(tt.a, tt.b); got != tt.want {
				t.Errorf("Compare(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCombine_DefaultIsLeastSpecific(t *testing.T) {
	inh := Combine(NewPlatformInheritance(nil), NewPathInheritance("template.yaml", "module.yaml"))

	explicit := Of(Path{File: "template.yaml"})
	def := Of(Platform{Name: "jvm"}, Path{File: "module.yaml"}, Default{})

	if got := inh.Compare(explicit, def); got != MoreSpecific {
		t.Errorf("explicit vs default = %v, want more", got)
	}
	if got := inh.Compare(def, explicit); got != LessSpecific {
		t.Errorf("default vs explicit = %v, want less", got)
	}
}

func TestCombine_PathBreaksTies(t *testing.T) {
	inh := Combine(NewPlatformInheritance(nil), NewPathInheritance("template.yaml", "module.yaml"))

	fromTemplate := Of(Platform{Name: "jvm"}, Path{File: "template.yaml"})
	fromModule := Of(Platform{Name: "jvm"}, Path{File: "module.yaml"})

	if got := inh.Compare(fromModule, fromTemplate); got != MoreSpecific {
		t.Errorf("module vs template = %v, want more", got)
	}

	// Platform specificity wins over file order.
	generic := Of(Path{File: "module.yaml"})
	if got := inh.Compare(fromTemplate, generic); got != MoreSpecific {
		t.Errorf("jvm template vs generic module = %v, want more", got)
	}
}

func TestProduct_Disagreement(t *testing.T) {
	inh := Product(NewPlatformInheritance(nil), MainTest)

	a := Of(Platform{Name: "jvm"})
	b := Of(Test{})
	if got := inh.Compare(a, b); got != Incomparable {
		t.Errorf("Compare = %v, want incomparable", got)
	}
	if got := inh.Compare(Of(Platform{Name: "jvm"}, Test{}), b); got != MoreSpecific {
		t.Errorf("Compare = %v, want more", got)
	}
}

func TestVisible(t *testing.T) {
	inh := DefaultInheritance

	tests := []struct {
		name      string
		selection Contexts
		candidate Contexts
		want      bool
	}{
		{"context free is always visible", nil, nil, true},
		{"jvm invisible without selection", nil, Platforms("jvm"), false},
		{"jvm visible for jvm", Platforms("jvm"), Platforms("jvm"), true},
		{"common visible for jvm", Platforms("jvm"), Platforms("common"), true},
		{"android invisible for jvm", Platforms("jvm"), Platforms("android"), false},
		{"test invisible for main", Platforms("jvm"), Of(Test{}), false},
		{"main visible for test", Of(Platform{Name: "jvm"}, Test{}), nil, true},
		{"default visible", nil, Of(Default{}), true},
		{"jvm default invisible without selection", nil, Of(Platform{Name: "jvm"}, Default{}), false},
		{"path does not hide", Platforms("jvm"), Of(Path{File: "a.yaml"}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Visible(inh, tt.selection, tt.candidate); got != tt.want {
				t.Errorf("Visible(%v, %v) = %v, want %v", tt.selection, tt.candidate, got, tt.want)
			}
		})
	}
}

func TestContexts_SetOperations(t *testing.T) {
	a := Of(Platform{Name: "jvm"}, Test{}, Platform{Name: "jvm"})
	if len(a) != 2 {
		t.Fatalf("Of should drop duplicates, got %v", a)
	}

	b := Of(Test{}, Default{})
	if got := Intersect(a, b); !Equal(got, Of(Test{})) {
		t.Errorf("Intersect = %v", got)
	}
	if got := Union(a, b); len(got) != 3 {
		t.Errorf("Union = %v", got)
	}
	if got := b.Without(KindDefault); !Equal(got, Of(Test{})) {
		t.Errorf("Without = %v", got)
	}
}

func TestPath_Relative(t *testing.T) {
	p := Path{File: "/work/project/templates/base.yaml"}
	if got := p.Relative("/work/project"); got != "templates/base.yaml" {
		t.Errorf("Relative = %q", got)
	}
	if got := Of(Platform{Name: "jvm"}, p).Render("/work/project"); got != "jvm, templates/base.yaml" {
		t.Errorf("Render = %q", got)
	}
}
