package shape_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reoring/flowdoc/shape"
)

func TestEnforceComplexityLimit(t *testing.T) {
	doc := `{"a": {"x": 1, "y": 2}, "b": 3}`
	s, _ := widenAll(t, doc)

	// Within the limit, nothing changes.
	before := render(t, s)
	s.EnforceComplexityLimit(4)
	assert.JSONEq(t, before, render(t, s))

	s.EnforceComplexityLimit(2)
	assert.JSONEq(t, `{
		"type": "object",
		"additionalProperties": false,
		"required": ["a", "b"],
		"properties": {
			"a": {
				"type": "object",
				"additionalProperties": {"type": "integer", "minimum": 1, "maximum": 2}
			},
			"b": {"type": "integer", "minimum": 3, "maximum": 3}
		}
	}`, render(t, s))
	requireAccepts(t, s, doc)

	s.EnforceComplexityLimit(0)
	assert.JSONEq(t, `{
		"type": "object",
		"additionalProperties": {
			"type": ["integer", "object"],
			"minimum": 3,
			"maximum": 3
		}
	}`, render(t, s))
	requireAccepts(t, s, doc)
}

func TestEnforceComplexityLimit_Patterns(t *testing.T) {
	s := shapeFrom(t, `
type: object
properties:
  x-one: {type: string}
  x-two: {type: integer}
  other: {type: boolean}
patternProperties:
  "^x-": {type: [string, integer, "null"]}
additionalProperties: false
`)
	s.EnforceComplexityLimit(1)

	// Squashed properties fold into the pattern they match, or else into
	// additional properties.
	assert.JSONEq(t, `{
		"type": "object",
		"properties": {"other": {"type": "boolean"}},
		"patternProperties": {"^x-": {"type": ["integer", "null", "string"]}},
		"additionalProperties": false
	}`, render(t, s))
}

func TestEnforceComplexityLimit_Tuples(t *testing.T) {
	s := shapeFrom(t, `
type: array
items: [{type: string}, {type: integer}, {type: boolean}]
`)
	s.EnforceComplexityLimit(1)

	assert.JSONEq(t, `{
		"type": "array",
		"items": [{"type": "string"}],
		"additionalItems": {"type": ["boolean", "integer"]}
	}`, render(t, s))
}

func TestEnforceFieldCountLimits_DepthFirst(t *testing.T) {
	s, _ := widenAll(t, `{"a": {"x": 1, "y": 2}, "b": {"z": 3}}`)
	s.EnforceFieldCountLimits(1, 1)

	// Nested objects are squashed before being unioned at the root.
	assert.JSONEq(t, `{
		"type": "object",
		"additionalProperties": {
			"type": "object",
			"properties": {"z": {"type": "integer", "minimum": 1, "maximum": 3}},
			"additionalProperties": {"type": "integer", "minimum": 1, "maximum": 2}
		}
	}`, render(t, s))
}

func TestDefaultLimits(t *testing.T) {
	assert.Equal(t, 1000, shape.DefaultComplexityLimit)
	assert.Less(t, shape.MaxNestedFields, shape.MaxRootFields)
}
