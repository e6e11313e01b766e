package schema

import (
	_ "embed"
	"sync"
)

//go:embed module.cue
var moduleSchemaSource string

var (
	builtinOnce     sync.Once
	builtinRegistry *Registry
	builtinErr      error
)

// Builtin returns the registry of the built-in module schema.
func Builtin() (*Registry, error) {
	builtinOnce.Do(func() {
		builtinRegistry, builtinErr = LoadCUE("module.cue", moduleSchemaSource)
	})
	return builtinRegistry, builtinErr
}

// Module returns the declaration of module files.
func Module() *Object {
	r, err := Builtin()
	if err != nil {
		panic("schema: built-in module schema is invalid: " + err.Error())
	}
	return r.MustLookup("Module")
}

// ModuleSource returns the CUE text of the built-in module schema.
func ModuleSource() string {
	return moduleSchemaSource
}

// MinimalModule declares only the module properties needed before the whole module
// can be read: the product, platform aliases and applied templates.
func MinimalModule() *Object {
	module := Module()
	minimal := NewObject("MinimalModule")
	for _, name := range []string{"product", "aliases", "apply"} {
		if p := module.Property(name); p != nil {
			minimal.Add(p)
		}
	}
	return minimal
}

// Template declares template files: a module without product, aliases and applied
// templates of its own.
func Template() *Object {
	module := Module()
	template := NewObject("Template")
	for _, p := range module.Properties {
		switch p.Name {
		case "product", "aliases", "apply":
			continue
		}
		template.Add(p)
	}
	return template
}
