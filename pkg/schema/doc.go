// Package schema provides the object declarations that type configuration trees.
//
// Declarations are ordered property lists. Each property carries a value type and an
// optional default descriptor:
//
//   - StaticDefault: a literal value
//   - NullDefault: an optional property, null when absent
//   - NestedObjectDefault: an object synthesized from its own defaults
//   - DependentDefault: mirrors another property through a reference
//   - TransformedDefault: derives a value from another property with a Starlark expression
//
// # CUE declarations
//
// Declarations are written in CUE and loaded with LoadCUE. Definitions become
// objects; field syntax and attributes map onto defaults:
//
//	#Android: {
//	    compileSdk:    *35 | int
//	    namespace:     *"org.example" | string
//	    applicationId: string @dependsOn(namespace)
//	    label?:        string
//	}
//
//	#Settings: {
//	    android: #Android @nested()
//	}
//
// Supported attributes are @nested(), @dependsOn(path), @transform(path, "expr"),
// @path(), @alias(names...) and @shorthand().
//
// The built-in module schema is available through Module.
package schema
