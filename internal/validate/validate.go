// Package validate checks fetched JSON payloads against a JSON Schema.
package validate

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

type Schema struct {
	schema *gojsonschema.Schema
}

// Load compiles the schema at the given path.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}

	return New(data)
}

// New compiles a schema from raw bytes.
func New(data []byte) (*Schema, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}

	return &Schema{schema: schema}, nil
}

// Validate checks the payload against the schema and returns one error
// describing every violation, or nil.
func (s *Schema) Validate(payload []byte) error {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return fmt.Errorf("validating payload: %w", err)
	}

	if result.Valid() {
		return nil
	}

	descriptions := make([]string, 0, len(result.Errors()))
	for _, violation := range result.Errors() {
		descriptions = append(descriptions, violation.String())
	}

	return errors.New(strings.Join(descriptions, "; "))
}
