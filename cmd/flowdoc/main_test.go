package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/reoring/flowdoc"
	"github.com/reoring/flowdoc/shape"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseRecord(t *testing.T) {
	rec := parseRecord(3, []byte(`{"binding": 1, "front": true, "doc": {"a": 1}}`))
	assert.Equal(t, record{line: 3, binding: 1, front: true, doc: []byte(`{"a": 1}`)}, rec)

	// Anything else is a bare document of binding zero.
	for _, line := range []string{`{"a": 1}`, `{"doc": {}, "other": 1}`, `42`, `[1]`} {
		rec = parseRecord(1, []byte(line))
		assert.Equal(t, record{line: 1, doc: []byte(line)}, rec)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "events.schema.yaml", `
type: object
properties:
  id: {type: integer}
  n: {type: integer, reduce: {strategy: sum}}
required: [id]
reduce: {strategy: merge}
`)
	path := writeFile(t, dir, "combine.yaml", `
spillThreshold: 1024
compress: true
bindings:
  - name: events
    schema: events.schema.yaml
    key: [/id]
    full: true
  - key: [/a, /b]
`)
	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.options().SpillThreshold)
	assert.True(t, cfg.options().Compress)

	spec, err := cfg.spec(dir)
	require.NoError(t, err)
	require.Len(t, spec.Bindings, 2)
	assert.Equal(t, "events", spec.Bindings[0].Name)
	assert.True(t, spec.Bindings[0].Full)
	assert.NotNil(t, spec.Bindings[0].Validator)
	assert.Equal(t, "binding1", spec.Bindings[1].Name)
	assert.Nil(t, spec.Bindings[1].Validator)
	assert.Len(t, spec.Bindings[1].Key, 2)

	bad := writeFile(t, dir, "bad.yaml", "bindings:\n  - name: x\n")
	cfg, err = loadConfig(bad)
	require.NoError(t, err)
	_, err = cfg.spec(dir)
	assert.ErrorContains(t, err, "key is required")

	_, err = loadConfig(writeFile(t, dir, "empty.yaml", "compress: true\n"))
	assert.ErrorContains(t, err, "no bindings")
}

func TestCombineRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "s.json", `{
		"type": "object",
		"properties": {"key": {"type": "integer"}, "cnt": {"type": "integer", "reduce": {"strategy": "sum"}}},
		"required": ["key"],
		"reduce": {"strategy": "merge"}
	}`)
	cfg, err := loadConfig(writeFile(t, dir, "c.yaml", `
spillThreshold: 1
bindings:
  - {schema: s.json, key: [/key]}
`))
	require.NoError(t, err)
	spec, err := cfg.spec(dir)
	require.NoError(t, err)

	input := strings.Join([]string{
		`{"key": 1, "cnt": 1}`,
		``,
		`{"key": 2, "cnt": 5}`,
		`{"binding": 0, "doc": {"key": 1, "cnt": 2}}`,
		`{"key": 3, "cnt": 1}`,
	}, "\n")

	for _, shards := range []int{1, 3} {
		run := &combineRun{spec: spec, opts: cfg.options(), shards: shards, spillDir: t.TempDir()}
		var out bytes.Buffer
		require.NoError(t, run.run(context.Background(), strings.NewReader(input), &out))

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		require.Len(t, lines, 3)
		assert.Contains(t, lines, `{"binding":0,"fullyReduced":true,"doc":{"cnt":3,"key":1}}`)
		assert.Contains(t, lines, `{"binding":0,"fullyReduced":true,"doc":{"cnt":5,"key":2}}`)
		assert.Contains(t, lines, `{"binding":0,"fullyReduced":true,"doc":{"cnt":1,"key":3}}`)

		entries, err := os.ReadDir(run.spillDir)
		require.NoError(t, err)
		assert.Empty(t, entries, "spill files are removed")
	}

	run := &combineRun{spec: spec, opts: cfg.options(), shards: 2, spillDir: t.TempDir()}
	err = run.run(context.Background(), strings.NewReader(`{"key": "one"}`+"\n"+`{"key": "one"}`), &bytes.Buffer{})
	assert.ErrorContains(t, err, "line 2")

	err = run.run(context.Background(), strings.NewReader(`{"binding": 4, "doc": {}}`), &bytes.Buffer{})
	assert.ErrorContains(t, err, "unknown binding")

	// Duplicate keys are kept last-wins by default and rejected when strict.
	dup := `{"key": 1, "cnt": 1, "cnt": 4}`
	run = &combineRun{spec: spec, opts: cfg.options(), shards: 1, spillDir: t.TempDir()}
	var out bytes.Buffer
	require.NoError(t, run.run(context.Background(), strings.NewReader(dup), &out))
	assert.Equal(t, `{"binding":0,"fullyReduced":true,"doc":{"cnt":4,"key":1}}`+"\n", out.String())

	run.parseOpt = flowdoc.StrictParseOpt()
	err = run.run(context.Background(), strings.NewReader(`{"key": 2}`+"\n"+dup), &bytes.Buffer{})
	assert.ErrorContains(t, err, "line 2")
	iss, ok := flowdoc.AsIssues(err)
	require.True(t, ok, "%v", err)
	assert.Equal(t, flowdoc.CodeDuplicateKey, iss[0].Code)
	assert.Equal(t, "/cnt", iss[0].Path)

	run.parseOpt = flowdoc.ParseOpt{MaxDepth: 2}
	err = run.run(context.Background(), strings.NewReader(`{"key": 1, "a": [[1]]}`), &bytes.Buffer{})
	assert.ErrorContains(t, err, "line 1")
}

func TestInferRun(t *testing.T) {
	input := `{"a": 1, "b": "x"}
{"a": 2}
{"a": 3, "b": "yy"}`

	for _, shards := range []int{1, 2} {
		run := &inferRun{
			start:       shape.Invalid(),
			rootLimit:   shape.MaxRootFields,
			nestedLimit: shape.MaxNestedFields,
			complexity:  shape.DefaultComplexityLimit,
			shards:      shards,
		}
		s, err := run.run(context.Background(), strings.NewReader(input))
		require.NoError(t, err)

		var out bytes.Buffer
		require.NoError(t, writeShape(&out, s, false))
		assert.JSONEq(t, `{
			"type": "object",
			"additionalProperties": false,
			"required": ["a"],
			"properties": {
				"a": {"type": "integer", "minimum": 1, "maximum": 3},
				"b": {"type": "string", "minLength": 1, "maxLength": 2}
			}
		}`, out.String())
	}
}

func TestWriteShape_OpenAPI(t *testing.T) {
	run := &inferRun{start: shape.Invalid(), rootLimit: 10, nestedLimit: 10, complexity: 10, shards: 1}
	s, err := run.run(context.Background(), strings.NewReader(`{"id": 7, "name": null}`))
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, writeShape(&out, s, true))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "object", got["type"])
	props := got["properties"].(map[string]any)
	assert.Equal(t, "integer", props["id"].(map[string]any)["type"])
	assert.Equal(t, true, props["name"].(map[string]any)["nullable"])
}

func TestValidateLines(t *testing.T) {
	dir := t.TempDir()
	ls, err := loadSchema(writeFile(t, dir, "s.yaml", `
type: object
properties: {n: {type: integer, minimum: 0}}
required: [n]
`))
	require.NoError(t, err)

	var out bytes.Buffer
	invalid, err := validateLines(ls.validator, flowdoc.ParseOpt{}, strings.NewReader(`{"n": 1}
{"n": -1}

{"m": true}`), &out)
	require.NoError(t, err)
	assert.Equal(t, 2, invalid)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"valid":false`)
	assert.Contains(t, lines[0], `"document":{"n":-1}`)

	_, err = validateLines(ls.validator, flowdoc.ParseOpt{}, strings.NewReader(`{nope`), &out)
	assert.ErrorContains(t, err, "line 1")

	_, err = validateLines(ls.validator, flowdoc.StrictParseOpt(), strings.NewReader(`{"n": 1}
{"n": 1, "n": -1}`), &out)
	assert.ErrorContains(t, err, "line 2")
	iss, ok := flowdoc.AsIssues(err)
	require.True(t, ok, "%v", err)
	assert.Equal(t, flowdoc.CodeDuplicateKey, iss[0].Code)
}

func TestInputFlags(t *testing.T) {
	parse := func(args ...string) (flowdoc.ParseOpt, error) {
		var in inputFlags
		fs := flag.NewFlagSet("test", flag.ContinueOnError)
		in.register(fs)
		require.NoError(t, fs.Parse(args))
		return in.parseOpt()
	}

	opt, err := parse()
	require.NoError(t, err)
	assert.Equal(t, flowdoc.ParseOpt{}, opt)

	opt, err = parse("-strict", "-max-depth", "8")
	require.NoError(t, err)
	assert.Equal(t, flowdoc.DuplicateError, opt.OnDuplicateKey)
	assert.Equal(t, 8, opt.MaxDepth)
	assert.Equal(t, flowdoc.StrictParseOpt().MaxBytes, opt.MaxBytes)

	opt, err = parse("-duplicate-keys", "warn")
	require.NoError(t, err)
	assert.Equal(t, flowdoc.DuplicateWarn, opt.OnDuplicateKey)
	assert.NotNil(t, opt.IssueSink)

	_, err = parse("-duplicate-keys", "sometimes")
	assert.ErrorContains(t, err, "sometimes")
}
