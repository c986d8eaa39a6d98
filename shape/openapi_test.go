package shape_test

import (
	"context"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/flowdoc/shape"
)

func TestToOpenAPI(t *testing.T) {
	s := shapeFrom(t, `
type: object
title: Thing
properties:
  id: {type: integer, minimum: 0}
  name: {type: [string, "null"], maxLength: 10, format: uuid}
  token: {type: string, secret: true}
  tags:
    type: array
    maxItems: 3
    items: {type: string}
  either: {type: [string, boolean]}
required: [id]
additionalProperties: false
x-owner: team
`)
	out := shape.ToOpenAPI(s)
	require.NoError(t, out.Validate(context.Background()))

	assert.Equal(t, openapi3.TypeObject, out.Type)
	assert.Equal(t, "Thing", out.Title)
	assert.Equal(t, []string{"id"}, out.Required)
	assert.Equal(t, "team", out.Extensions["x-owner"])
	require.NotNil(t, out.AdditionalProperties.Has)
	assert.False(t, *out.AdditionalProperties.Has)

	id := out.Properties["id"].Value
	assert.Equal(t, openapi3.TypeInteger, id.Type)
	require.NotNil(t, id.Min)
	assert.Equal(t, 0.0, *id.Min)

	name := out.Properties["name"].Value
	assert.Equal(t, openapi3.TypeString, name.Type)
	assert.True(t, name.Nullable)
	assert.Equal(t, "uuid", name.Format)
	require.NotNil(t, name.MaxLength)
	assert.Equal(t, uint64(10), *name.MaxLength)

	assert.True(t, out.Properties["token"].Value.WriteOnly)

	tags := out.Properties["tags"].Value
	assert.Equal(t, openapi3.TypeArray, tags.Type)
	assert.Equal(t, uint64(3), *tags.MaxItems)
	assert.Equal(t, openapi3.TypeString, tags.Items.Value.Type)

	either := out.Properties["either"].Value
	assert.Empty(t, either.Type)
	require.Len(t, either.OneOf, 2)
	assert.Equal(t, openapi3.TypeString, either.OneOf[0].Value.Type)
	assert.Equal(t, openapi3.TypeBoolean, either.OneOf[1].Value.Type)
}

func TestToOpenAPI_Edges(t *testing.T) {
	// Impossible shapes accept nothing.
	out := shape.ToOpenAPI(shape.Invalid())
	require.NotNil(t, out.Not)

	// Any shape is an empty schema.
	out = shape.ToOpenAPI(shape.New())
	assert.Empty(t, out.Type)
	assert.Empty(t, out.OneOf)
	assert.True(t, out.Nullable)

	// Number subsumes integer.
	out = shape.ToOpenAPI(shapeFrom(t, `{type: [integer, number], enum: [1, 2.5]}`))
	assert.Equal(t, openapi3.TypeNumber, out.Type)
	assert.Equal(t, []any{uint64(1), 2.5}, out.Enum)
}
