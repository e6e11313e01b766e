package schema

import (
	"fmt"
	"strings"
)

// Kind is the kind of a declared value type.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindBool
	KindPath
	KindEnum
	KindList
	KindMap
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindPath:
		return "path"
	case KindEnum:
		return "enum"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Type describes the value type of a property, a list element or a map value.
type Type struct {
	// Kind is the type kind.
	Kind Kind

	// Values lists the allowed values of an enum.
	Values []string

	// Elem is the element type of lists and the value type of maps.
	Elem *Type

	// Object is the declaration of object types.
	Object *Object
}

// IsScalar reports whether values of the type are tree leaves.
func (t *Type) IsScalar() bool {
	switch t.Kind {
	case KindString, KindInt, KindBool, KindPath, KindEnum:
		return true
	}
	return false
}

// IsMapLike reports whether values of the type are mapping nodes.
func (t *Type) IsMapLike() bool {
	return t.Kind == KindMap || t.Kind == KindObject
}

// Allows reports whether v is one of the enum values.
func (t *Type) Allows(v string) bool {
	for _, x := range t.Values {
		if x == v {
			return true
		}
	}
	return false
}

func (t *Type) String() string {
	switch t.Kind {
	case KindEnum:
		return "enum(" + strings.Join(t.Values, "|") + ")"
	case KindList:
		return "list<" + t.Elem.String() + ">"
	case KindMap:
		return "map<" + t.Elem.String() + ">"
	case KindObject:
		return t.Object.Name
	default:
		return t.Kind.String()
	}
}

// Scalar type constructors.
var (
	String = &Type{Kind: KindString}
	Int    = &Type{Kind: KindInt}
	Bool   = &Type{Kind: KindBool}
	Path   = &Type{Kind: KindPath}
)

// Enum returns an enum type.
func Enum(values ...string) *Type { return &Type{Kind: KindEnum, Values: values} }

// ListOf returns a list type.
func ListOf(elem *Type) *Type { return &Type{Kind: KindList, Elem: elem} }

// MapOf returns a string-keyed map type.
func MapOf(elem *Type) *Type { return &Type{Kind: KindMap, Elem: elem} }

// ObjectOf returns an object type.
func ObjectOf(o *Object) *Type { return &Type{Kind: KindObject, Object: o} }

// Object is a declared object type with an ordered list of properties.
type Object struct {
	// Name identifies the declaration, e.g. "Module" or "JvmSettings".
	Name string

	// Properties are the declared properties in declaration order.
	Properties []*Property
}

// NewObject creates a declaration.
func NewObject(name string, props ...*Property) *Object {
	return &Object{Name: name, Properties: props}
}

// Property returns the property declared under name or one of its aliases.
func (o *Object) Property(name string) *Property {
	if o == nil {
		return nil
	}
	for _, p := range o.Properties {
		if p.Name == name {
			return p
		}
	}
	for _, p := range o.Properties {
		for _, a := range p.Aliases {
			if a == name {
				return p
			}
		}
	}
	return nil
}

// Add appends properties to the declaration.
func (o *Object) Add(props ...*Property) *Object {
	o.Properties = append(o.Properties, props...)
	return o
}

func (o *Object) String() string { return o.Name }

// Property is a declared property of an object.
type Property struct {
	// Name is the canonical property key.
	Name string

	// Type is the declared value type.
	Type *Type

	// Default describes how a missing value is derived; nil means required.
	Default Default

	// Aliases are alternative keys accepted by readers.
	Aliases []string

	// Shorthand marks the property a scalar list element is assigned to when an
	// object is written as a plain string.
	Shorthand bool
}

// Required reports whether the property has no default of any kind.
func (p *Property) Required() bool {
	return p.Default == nil
}

func (p *Property) String() string {
	return fmt.Sprintf("%s: %s", p.Name, p.Type)
}

// Default describes a property's default value.
type Default interface {
	isDefault()
}

// StaticDefault is a literal default: a scalar, a list of scalars or an empty map.
type StaticDefault struct {
	Value any
}

// NullDefault makes an optional property default to null.
type NullDefault struct{}

// NestedObjectDefault synthesizes an object whose properties are defaulted in turn.
type NestedObjectDefault struct{}

// DependentDefault mirrors the value of another property.
type DependentDefault struct {
	// Path is the dotted path of the mirrored property.
	Path string
}

// TransformedDefault derives the value from another property through an expression.
type TransformedDefault struct {
	// Path is the dotted path of the source property.
	Path string
	// Expr is a Starlark expression over `value`. Empty means not derivable.
	Expr string
}

func (StaticDefault) isDefault()       {}
func (NullDefault) isDefault()         {}
func (NestedObjectDefault) isDefault() {}
func (DependentDefault) isDefault()    {}
func (TransformedDefault) isDefault()  {}

// Derivable reports whether the defaults injector always produces a value for d.
// A property whose default is derivable must never be missing after completion.
func Derivable(d Default) bool {
	switch d := d.(type) {
	case nil:
		return false
	case TransformedDefault:
		return d.Expr != ""
	default:
		return true
	}
}
