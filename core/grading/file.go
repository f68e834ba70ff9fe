package grading

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// LoadScaleFile reads a scale from a TOML file:
//
//	[[rules]]
//	grade = "A"
//	min = 80
//	max = 100
//	points = 4.0
//	remarks = "Excellent"
func LoadScaleFile(path string, validate *validator.Validate) (Scale, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading scale file")
	}
	return ParseScaleTOML(data, validate)
}

// ParseScaleTOML parses and validates a TOML encoded scale.
func ParseScaleTOML(data []byte, validate *validator.Validate) (Scale, error) {
	var in ScaleInput
	if err := toml.Unmarshal(data, &in); err != nil {
		return nil, errors.Wrap(err, "decoding scale")
	}
	if err := in.Validate(validate); err != nil {
		return nil, errors.Wrap(err, "validating scale")
	}
	return in.Scale(), nil
}
