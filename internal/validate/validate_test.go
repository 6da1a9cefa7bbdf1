package validate_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgekit-io/coapfetch/internal/validate"
)

const sensorSchema = `{
	"type": "object",
	"properties": {
		"value": {"type": "number"},
		"unit": {"type": "string"}
	},
	"required": ["value"]
}`

func TestSchema_Validate(t *testing.T) {
	schema, err := validate.New([]byte(sensorSchema))
	require.NoError(t, err)

	assert.NoError(t, schema.Validate([]byte(`{"value": 21.5, "unit": "C"}`)))
}

func TestSchema_Validate_Violation(t *testing.T) {
	schema, err := validate.New([]byte(sensorSchema))
	require.NoError(t, err)

	err = schema.Validate([]byte(`{"unit": "C"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "value")
}

func TestSchema_Validate_NotJSON(t *testing.T) {
	schema, err := validate.New([]byte(sensorSchema))
	require.NoError(t, err)

	assert.Error(t, schema.Validate([]byte("12:00:00")))
}

func TestNew_BadSchema(t *testing.T) {
	_, err := validate.New([]byte(`{"type": 12}`))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")
	require.NoError(t, os.WriteFile(path, []byte(sensorSchema), 0o644))

	schema, err := validate.Load(path)
	require.NoError(t, err)
	assert.NoError(t, schema.Validate([]byte(`{"value": 1}`)))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := validate.Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
