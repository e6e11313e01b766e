package policy

// BuiltinPolicies returns the policies every engine starts with.
func BuiltinPolicies() []Policy {
	return []Policy{
		androidSdkPolicy(),
		jvmReleasePolicy(),
		publishingPolicy(),
		dependencyPolicy(),
	}
}

// androidSdkPolicy keeps the Android SDK levels ordered.
func androidSdkPolicy() Policy {
	return Policy{
		Name:        "android-sdk-levels",
		Description: "Android minSdk must not exceed targetSdk, and targetSdk must not exceed compileSdk",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"android"},
		Rego: `package modconf.policies.android

import rego.v1

android_selected if "android" in input.selection

android_selected if input.module.product.type == "android/app"

deny contains violation if {
	android_selected
	sdk := input.module.settings.android
	sdk.minSdk > sdk.targetSdk
	violation := {
		"message": sprintf("minSdk %v is above targetSdk %v", [sdk.minSdk, sdk.targetSdk]),
		"path": "settings.android.minSdk",
		"remediation": "lower minSdk or raise targetSdk",
	}
}

deny contains violation if {
	android_selected
	sdk := input.module.settings.android
	sdk.targetSdk > sdk.compileSdk
	violation := {
		"message": sprintf("targetSdk %v is above compileSdk %v", [sdk.targetSdk, sdk.compileSdk]),
		"path": "settings.android.targetSdk",
		"remediation": "raise compileSdk",
	}
}`,
	}
}

// jvmReleasePolicy flags non-LTS JVM releases and applications without an entry point.
func jvmReleasePolicy() Policy {
	return Policy{
		Name:        "jvm-release",
		Description: "JVM targets should use an LTS release; JVM applications need a main class",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"jvm"},
		Rego: `package modconf.policies.jvm

import rego.v1

lts_releases := {8, 11, 17, 21, 25}

deny contains violation if {
	release := input.module.settings.jvm.release
	not release in lts_releases
	violation := {
		"message": sprintf("JVM release %v is not an LTS release", [release]),
		"path": "settings.jvm.release",
	}
}

has_main_class if {
	main := input.module.settings.jvm.mainClass
	main != null
	main != ""
}

deny contains violation if {
	input.module.product.type == "jvm/app"
	not has_main_class
	violation := {
		"message": "jvm/app products must declare a main class",
		"severity": "error",
		"path": "settings.jvm.mainClass",
	}
}`,
	}
}

// publishingPolicy checks the Maven coordinates of published modules.
func publishingPolicy() Policy {
	return Policy{
		Name:        "publishing-coordinates",
		Description: "Published modules need a valid group and version",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"publishing"},
		Rego: `package modconf.policies.publishing

import rego.v1

publishing := input.module.settings.publishing

deny contains violation if {
	publishing != null
	not regex.match("^[A-Za-z0-9_.-]+$", publishing.group)
	violation := {
		"message": sprintf("publishing group '%s' is not a valid Maven group", [publishing.group]),
		"path": "settings.publishing.group",
	}
}

deny contains violation if {
	publishing != null
	trim_space(publishing.version) == ""
	violation := {
		"message": "publishing version must not be empty",
		"path": "settings.publishing.version",
	}
}

deny contains violation if {
	publishing != null
	endswith(publishing.version, "-SNAPSHOT")
	violation := {
		"message": sprintf("publishing version '%s' already is a snapshot", [publishing.version]),
		"severity": "warning",
		"path": "settings.publishing.version",
		"remediation": "drop the -SNAPSHOT suffix; snapshotVersion adds it",
	}
}`,
	}
}

// dependencyPolicy checks dependency coordinates.
func dependencyPolicy() Policy {
	return Policy{
		Name:        "dependency-coordinates",
		Description: "Dependencies must use group:artifact[:version] coordinates and be declared once",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"dependencies"},
		Rego: `package modconf.policies.dependencies

import rego.v1

deny contains violation if {
	some dep in input.module.dependencies
	not regex.match("^[^:\\s]+:[^:\\s]+(:[^:\\s]+)?$", dep.coordinates)
	violation := {
		"message": sprintf("dependency '%s' is not in group:artifact[:version] form", [dep.coordinates]),
		"path": "dependencies",
	}
}

deny contains violation if {
	some i, a in input.module.dependencies
	some j, b in input.module.dependencies
	i < j
	a.coordinates == b.coordinates
	violation := {
		"message": sprintf("dependency '%s' is declared more than once", [a.coordinates]),
		"severity": "warning",
		"path": "dependencies",
	}
}`,
	}
}
