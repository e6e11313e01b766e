package model

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/openfroyo/modconf/pkg/frontend"
)

var validate = validator.New()

// ErrIncomplete is returned for resolutions without a complete value.
var ErrIncomplete = errors.New("module did not resolve to a complete value")

// Decode converts a complete module value into a Module. Keys the model does not
// know are an error, so the model cannot silently drift from the schema.
func Decode(value map[string]any) (*Module, error) {
	var m Module
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &m,
		ErrorUnused: true,
		TagName:     "mapstructure",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := dec.Decode(value); err != nil {
		return nil, fmt.Errorf("failed to decode module: %w", err)
	}
	if err := validate.Struct(&m); err != nil {
		return nil, fmt.Errorf("invalid module: %w", err)
	}
	return &m, nil
}

// FromResolution decodes the value of a resolution.
func FromResolution(res *frontend.Resolution) (*Module, error) {
	if res.Tree == nil {
		return nil, fmt.Errorf("%s: %w", res.Module, ErrIncomplete)
	}
	return Decode(res.Value)
}
