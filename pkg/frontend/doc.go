// Package frontend runs the configuration pipeline for module files.
//
// Loading a module happens once per file set:
//
//  1. A minimal read of the module file finds the product, the platform aliases and
//     the applied templates.
//  2. The module and its templates are read against the built-in schema.
//  3. Defaults are injected into every file tree and the trees are merged.
//
// The merged module is cached and can then be resolved for any selection of
// platforms: the tree is refined, references are substituted and the result is
// completed into plain values, which are finally checked against the CUE
// constraints of the schema. Problems in the files are collected into the
// Resolution; only file access failures and broken invariants between stages are
// returned as errors.
package frontend
