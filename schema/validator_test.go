package schema_test

import (
	"testing"

	j "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/flowdoc"
	"github.com/reoring/flowdoc/doc"
	"github.com/reoring/flowdoc/reduce"
	"github.com/reoring/flowdoc/schema"
)

const testURI = "https://example/schema"

func mustValidator(t *testing.T, schemaJSON string) *schema.Validator {
	t.Helper()
	s, err := schema.BuildJSON(testURI, []byte(schemaJSON))
	require.NoError(t, err)
	ib := schema.NewIndexBuilder()
	require.NoError(t, ib.Add(s))
	idx, err := ib.Build()
	require.NoError(t, err)
	return schema.NewValidator(idx)
}

func validate(t *testing.T, v *schema.Validator, docJSON string) *schema.Validation {
	t.Helper()
	n := doc.MustFromJSON(doc.NewArena(), docJSON)
	res, err := v.Validate(testURI, doc.FromHeap(&n))
	require.NoError(t, err)
	return res
}

func TestValidate_Table(t *testing.T) {
	tests := []struct {
		name   string
		schema string
		doc    string
		valid  bool
	}{
		{"type ok", `{"type": "string"}`, `"a"`, true},
		{"type mismatch", `{"type": "string"}`, `1`, false},
		{"integral float is integer", `{"type": "integer"}`, `2.0`, true},
		{"fraction is not integer", `{"type": "integer"}`, `2.5`, false},
		{"integer is number", `{"type": "number"}`, `3`, true},
		{"nullable", `{"type": "string", "nullable": true}`, `null`, true},
		{"false schema", `false`, `{}`, false},
		{"true schema", `true`, `{}`, true},
		{"const", `{"const": {"a": [1, 2]}}`, `{"a": [1, 2.0]}`, true},
		{"const mismatch", `{"const": {"a": [1, 2]}}`, `{"a": [2, 1]}`, false},
		{"enum", `{"enum": ["a", 1, null]}`, `null`, true},
		{"enum mismatch", `{"enum": ["a", 1, null]}`, `"b"`, false},
		{"maxLength counts runes", `{"maxLength": 2}`, `"éé"`, true},
		{"minLength", `{"minLength": 2}`, `"a"`, false},
		{"pattern is unanchored", `{"pattern": "b+"}`, `"abbc"`, true},
		{"pattern mismatch", `{"pattern": "^b"}`, `"abbc"`, false},
		{"format", `{"format": "uuid"}`, `"d3b07384-d9a1-4d3b-9b2a-5c0b7a1e3f00"`, true},
		{"format mismatch", `{"format": "date"}`, `"2023-13-01"`, false},
		{"unknown format passes", `{"format": "flavor"}`, `"vanilla"`, true},
		{"multipleOf", `{"multipleOf": 0.5}`, `2.5`, true},
		{"multipleOf mismatch", `{"multipleOf": 3}`, `10`, false},
		{"maximum", `{"maximum": 10}`, `10`, true},
		{"exclusiveMaximum", `{"exclusiveMaximum": 10}`, `10`, false},
		{"minimum across kinds", `{"minimum": -1.5}`, `-1`, true},
		{"exclusiveMinimum", `{"exclusiveMinimum": 0}`, `0`, false},
		{"maxItems", `{"maxItems": 1}`, `[1, 2]`, false},
		{"uniqueItems", `{"uniqueItems": true}`, `[1, 1.0]`, false},
		{"uniqueItems distinct", `{"uniqueItems": true}`, `[1, "1"]`, true},
		{"contains", `{"contains": {"type": "string"}}`, `[1, "a"]`, true},
		{"contains none", `{"contains": {"type": "string"}}`, `[1, 2]`, false},
		{"maxContains", `{"contains": {"type": "string"}, "maxContains": 1}`, `["a", "b"]`, false},
		{"required", `{"required": ["a", "b"]}`, `{"a": 1}`, false},
		{"required ignores non-objects", `{"required": ["a"]}`, `[]`, true},
		{"dependentRequired", `{"dependentRequired": {"a": ["b"]}}`, `{"a": 1}`, false},
		{"dependentRequired absent", `{"dependentRequired": {"a": ["b"]}}`, `{"c": 1}`, true},
		{"maxProperties", `{"maxProperties": 1}`, `{"a": 1, "b": 2}`, false},
		{"properties", `{"properties": {"a": {"type": "string"}}}`, `{"a": 1}`, false},
		{"patternProperties", `{"patternProperties": {"^x-": {"type": "integer"}}}`, `{"x-a": "s"}`, false},
		{"additionalProperties", `{"properties": {"a": {}}, "additionalProperties": false}`, `{"a": 1, "b": 2}`, false},
		{"additionalProperties with patterns", `{"patternProperties": {"^b": {}}, "additionalProperties": false}`, `{"bb": 1}`, true},
		{"propertyNames", `{"propertyNames": {"maxLength": 2}}`, `{"abc": 1}`, false},
		{"items schema", `{"items": {"type": "integer"}}`, `[1, 2, "x"]`, false},
		{"prefixItems", `{"prefixItems": [{"type": "string"}], "items": {"type": "integer"}}`, `["a", 1, 2]`, true},
		{"tuple items", `{"items": [{"type": "string"}], "additionalItems": false}`, `["a", 1]`, false},
		{"allOf", `{"allOf": [{"type": "integer"}, {"minimum": 3}]}`, `2`, false},
		{"anyOf", `{"anyOf": [{"type": "string"}, {"type": "null"}]}`, `null`, true},
		{"oneOf ambiguous", `{"oneOf": [{"type": "integer"}, {"minimum": 0}]}`, `1`, false},
		{"not", `{"not": {"type": "string"}}`, `"a"`, false},
		{"if then", `{"if": {"type": "string"}, "then": {"minLength": 2}, "else": {"type": "integer"}}`, `"a"`, false},
		{"if else", `{"if": {"type": "string"}, "then": {"minLength": 2}, "else": {"type": "integer"}}`, `1.5`, false},
		{"then without if", `{"then": false}`, `1`, true},
		{"dependentSchemas", `{"dependentSchemas": {"a": {"required": ["b"]}}}`, `{"a": 1}`, false},
		{"ref", `{"$defs": {"s": {"type": "string"}}, "properties": {"a": {"$ref": "#/$defs/s"}}}`, `{"a": "x"}`, true},
		{"recursive ref", `{"properties": {"next": {"$ref": "#"}}, "required": ["v"]}`, `{"v": 1, "next": {"next": {}}}`, false},
		{"unevaluatedProperties", `{"allOf": [{"properties": {"a": {}}}], "unevaluatedProperties": false}`, `{"a": 1}`, true},
		{"unevaluatedProperties rejects", `{"allOf": [{"properties": {"a": {}}}], "unevaluatedProperties": false}`, `{"a": 1, "b": 2}`, false},
		{"unevaluatedProperties ignores failed branches", `{
			"anyOf": [{"properties": {"a": {"type": "string"}}}, {"properties": {"b": {}}}],
			"unevaluatedProperties": false
		}`, `{"a": 1, "b": 2}`, false},
		{"unevaluatedItems", `{"prefixItems": [{}], "unevaluatedItems": false}`, `[1, 2]`, false},
		{"unevaluatedItems after contains", `{"contains": {"type": "string"}, "unevaluatedItems": {"type": "integer"}}`, `["a", 1]`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := mustValidator(t, tt.schema)
			res := validate(t, v, tt.doc)
			assert.Equal(t, tt.valid, res.Valid())

			valid, failed := res.Ok()
			if tt.valid {
				assert.NotNil(t, valid)
				assert.Nil(t, failed)
			} else {
				assert.Nil(t, valid)
				require.NotNil(t, failed)
				assert.NotEmpty(t, failed.Errors)
			}
		})
	}
}

func TestValidate_UnknownSchema(t *testing.T) {
	v := mustValidator(t, `true`)
	n := doc.NewNull()
	_, err := v.Validate("https://example/other", doc.FromHeap(&n))
	var unknown *schema.UnknownSchemaError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "https://example/other", unknown.CURI)

	// An empty URI selects the default.
	res, err := v.WithDefault(testURI).Validate("", doc.FromHeap(&n))
	require.NoError(t, err)
	assert.True(t, res.Valid())
}

func TestFailedValidation_JSON(t *testing.T) {
	v := mustValidator(t, `{
		"$defs": {"s": {"type": "string"}},
		"properties": {"a": {"$ref": "#/$defs/s"}},
		"required": ["b"]
	}`)
	_, failed := validate(t, v, `{"a": 1}`).Ok()
	require.NotNil(t, failed)

	out, err := j.Marshal(failed)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"basic_output": {"valid": false, "errors": [
			{
				"keywordLocation": "/required",
				"instanceLocation": "",
				"instanceValue": "<object>",
				"absoluteKeywordLocation": "https://example/schema#/required",
				"error": "Missing required property: b"
			},
			{
				"keywordLocation": "/properties/a/$ref/type",
				"instanceLocation": "/a",
				"instanceValue": 1,
				"absoluteKeywordLocation": "https://example/schema#/$defs/s/type",
				"error": "Type mismatch: expected a string"
			}
		]},
		"document": {"a": 1}
	}`, string(out))

	iss := failed.Issues()
	require.Len(t, iss, 2)
	assert.Equal(t, flowdoc.CodeRequired, iss[0].Code)
	assert.Equal(t, flowdoc.CodeInvalidType, iss[1].Code)
	assert.Equal(t, "/a", iss[1].Path)
	assert.Equal(t, "/properties/a/$ref/type", iss[1].KeywordLocation)
}

func TestFailedValidation_TruncatesFailedBranches(t *testing.T) {
	v := mustValidator(t, `{"anyOf": [{"type": "string"}, {"required": ["a"]}]}`)
	_, failed := validate(t, v, `{}`).Ok()
	require.NotNil(t, failed)
	require.Len(t, failed.Errors, 1)
	assert.Equal(t, "/anyOf", failed.Errors[0].KeywordLocation)
	assert.Equal(t, "Location does not match any of the expected schemas", failed.Errors[0].Error)
	assert.Equal(t, flowdoc.CodeUnionNoMatch, failed.Errors[0].Code())
}

func TestValidate_RecursionDepth(t *testing.T) {
	v := mustValidator(t, `{"$ref": "#"}`)
	res := validate(t, v, `1`)
	require.False(t, res.Valid())
	_, failed := res.Ok()
	require.NotNil(t, failed)
	assert.Equal(t, flowdoc.CodeRecursionDepth, failed.Errors[0].Code())
}

func TestReduceTape(t *testing.T) {
	v := mustValidator(t, `{
		"$defs": {"sum": {"reduce": {"strategy": "sum"}}},
		"properties": {
			"a": {"$ref": "#/$defs/sum"},
			"b": {"$ref": "#/$defs/sum", "reduce": {"strategy": "maximize"}},
			"c": {"anyOf": [
				{"type": "string", "reduce": {"strategy": "append"}},
				{"type": "integer", "reduce": {"strategy": "minimize"}}
			]}
		},
		"reduce": {"strategy": "merge"}
	}`)
	valid, failed := validate(t, v, `{"a": 1, "b": 2, "c": 3, "d": [true]}`).Ok()
	require.Nil(t, failed)

	tape := valid.ReduceTape()
	require.Len(t, tape, 6)
	names := make([]string, len(tape))
	for i, e := range tape {
		names[i] = e.Strategy.Name()
	}
	// Pre-order: root, a, b, c, d, d/0. A schema's own annotation beats
	// one reached through $ref, and annotations of failed branches are
	// dropped.
	assert.Equal(t, []string{"merge", "sum", "maximize", "minimize", "lastWriteWins", "lastWriteWins"}, names)
	assert.Equal(t, reduce.DefaultStrategy, tape[5].Strategy)

	n := doc.MustFromJSON(doc.NewArena(), `{"a": 1, "b": 2, "c": 3, "d": [true]}`)
	assert.Equal(t, doc.SubtreeHashes(nil, n), hashesOf(tape))
}

func hashesOf(tape reduce.Tape) []uint64 {
	out := make([]uint64, len(tape))
	for i, e := range tape {
		out[i] = e.Hash
	}
	return out
}

func TestAnnotations_Secrets(t *testing.T) {
	v := mustValidator(t, `{
		"properties": {
			"password": {"type": "string", "secret": true},
			"token": {"airbyte_secret": true},
			"name": {"secret": false}
		}
	}`)
	valid, failed := validate(t, v, `{"name": "n", "password": "p", "token": "t"}`).Ok()
	require.Nil(t, failed)
	assert.Equal(t, []string{"/password", "/token"}, valid.Annotations().Secrets)
}
