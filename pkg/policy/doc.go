// Package policy evaluates Rego policies against resolved modules using Open
// Policy Agent.
//
// Every policy is a Rego module whose package defines a deny set. Entries of the
// set are either messages or objects:
//
//	deny contains violation if {
//		input.module.settings.jvm.release < 11
//		violation := {
//			"message": "release is too old",
//			"severity": "error",
//			"path": "settings.jvm.release",
//		}
//	}
//
// The input document is an Input: the module path, the selected platforms, the
// test flag and the complete module value under "module".
//
// # Built-in Policies
//
//   - android-sdk-levels: minSdk <= targetSdk <= compileSdk for Android selections
//   - jvm-release: LTS JVM releases and a main class for jvm/app products
//   - publishing-coordinates: Maven group and version of published modules
//   - dependency-coordinates: group:artifact[:version] coordinates, no duplicates
//
// Custom policies are loaded from .rego files, named after the file, or from YAML
// bundles listing several policies. A Result reports its violations as
// policy.violation problems.
package policy
