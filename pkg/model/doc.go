// Package model provides typed Go structs for resolved modules.
//
// The pipeline produces plain values; Decode turns them into a Module with
// mapstructure and checks the result with struct validation tags.
package model
