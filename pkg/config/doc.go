// Package config loads the configuration of the modconf command line tool from
// modconf.yaml: frontend options, telemetry and the policy files to evaluate.
//
// A minimal file only lists policies:
//
//	policies:
//	  - policies/
//	disabledPolicies:
//	  - jvm-release
//
// Every other setting falls back to its default.
package config
