package reduce_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/flowdoc/doc"
	"github.com/reoring/flowdoc/reduce"
	"github.com/reoring/flowdoc/schema"
)

const testURI = "https://example/schema"

type reduceCase struct {
	full   bool
	rhs    string
	expect string
	err    error
}

func partial(rhs, expect string) reduceCase  { return reduceCase{rhs: rhs, expect: expect} }
func full(rhs, expect string) reduceCase     { return reduceCase{full: true, rhs: rhs, expect: expect} }
func fails(rhs string, err error) reduceCase { return reduceCase{rhs: rhs, err: err} }

func newValidator(t *testing.T, schemaJSON string) *schema.Validator {
	t.Helper()
	s, err := schema.BuildJSON(testURI, []byte(schemaJSON))
	require.NoError(t, err)
	ib := schema.NewIndexBuilder()
	require.NoError(t, ib.Add(s))
	idx, err := ib.Build()
	require.NoError(t, err)
	return schema.NewValidator(idx)
}

func tapeOf(t *testing.T, v *schema.Validator, n *doc.HeapNode) reduce.Tape {
	t.Helper()
	res, err := v.Validate(testURI, doc.FromHeap(n))
	require.NoError(t, err)
	valid, failed := res.Ok()
	require.Nil(t, failed)
	return valid.ReduceTape()
}

// runCases reduces each RHS into the result of the cases before it. The
// first case seeds the LHS. A failing case leaves the LHS unchanged.
func runCases(t *testing.T, schemaJSON string, cases []reduceCase) {
	t.Helper()
	v := newValidator(t, schemaJSON)
	a := doc.NewArena()

	var lhs *doc.HeapNode
	for i, tc := range cases {
		rhs := doc.MustFromJSON(a, tc.rhs)
		tape := tapeOf(t, v, &rhs)

		if lhs == nil {
			lhs = &rhs
			continue
		}
		out, _, err := reduce.Reduce(doc.FromHeap(lhs), doc.FromHeap(&rhs), tape, a, tc.full)
		if tc.err != nil {
			require.ErrorIs(t, err, tc.err, "case %d", i)
			continue
		}
		require.NoError(t, err, "case %d", i)

		got, err := out.MarshalJSON()
		require.NoError(t, err)
		assert.JSONEq(t, tc.expect, string(got), "case %d", i)
		lhs = &out
	}
}

func TestAppend(t *testing.T) {
	runCases(t, `{
		"if": {"type": "null"},
		"then": {"reduce": {"strategy": "lastWriteWins"}},
		"else": {"reduce": {"strategy": "append"}}
	}`, []reduceCase{
		partial(`[]`, `[]`),
		fails(`"whoops"`, reduce.ErrAppendWrongType),
		partial(`[0, 1]`, `[0, 1]`),
		partial(`[2, 3, 4]`, `[0, 1, 2, 3, 4]`),
		partial(`[-1, "a"]`, `[0, 1, 2, 3, 4, -1, "a"]`),
		fails(`{}`, reduce.ErrAppendWrongType),
		partial(`null`, `null`),
		// A null LHS stays null.
		partial(`[5, 6, 4]`, `null`),
	})
}

func TestLastWriteWins(t *testing.T) {
	runCases(t, `{"oneOf": [
		{"type": ["string", "object", "null"], "reduce": {"strategy": "lastWriteWins"}},
		{"type": "integer", "reduce": {"strategy": "lastWriteWins", "associative": false}}
	]}`, []reduceCase{
		partial(`"foo"`, `"foo"`),
		partial(`{"n": 42}`, `{"n": 42}`),
		partial(`null`, `null`),
		fails(`42`, reduce.ErrNotAssociative),
		full(`42`, `42`),
		partial(`42`, `42`),
		fails(`52`, reduce.ErrNotAssociative),
		partial(`"foo"`, `"foo"`),
	})
}

func TestFirstWriteWins(t *testing.T) {
	runCases(t, `{"reduce": {"strategy": "firstWriteWins"}}`, []reduceCase{
		partial(`"foo"`, `"foo"`),
		partial(`{"n": 42}`, `"foo"`),
		partial(`null`, `"foo"`),
	})
}

func TestMinimizeMaximize(t *testing.T) {
	runCases(t, `{"reduce": {"strategy": "minimize"}}`, []reduceCase{
		partial(`3`, `3`),
		partial(`4`, `3`),
		partial(`3`, `3`),
		partial(`2`, `2`),
	})
	runCases(t, `{"reduce": {"strategy": "maximize"}}`, []reduceCase{
		partial(`3`, `3`),
		partial(`4`, `4`),
		partial(`4`, `4`),
		partial(`2`, `4`),
	})
}

func TestMinimizeWithDeepMerge(t *testing.T) {
	runCases(t, `{
		"properties": {"n": {"reduce": {"strategy": "sum"}}},
		"reduce": {"strategy": "minimize", "key": ["/k"]}
	}`, []reduceCase{
		partial(`{"k": 3, "n": 1}`, `{"k": 3, "n": 1}`),
		partial(`{"k": 4, "n": 1}`, `{"k": 3, "n": 1}`),
		partial(`{"k": 3, "n": 1, "!": true}`, `{"k": 3, "n": 2, "!": true}`),
		partial(`{"k": 4, "n": 1, "!": false}`, `{"k": 3, "n": 2, "!": true}`),
		partial(`{"k": 3, "n": 1}`, `{"k": 3, "n": 3, "!": true}`),
		partial(`{"k": 2, "n": 1}`, `{"k": 2, "n": 1}`),
		// null orders before an integer.
		partial(`{"k": null, "n": -1}`, `{"k": null, "n": -1}`),
		// A missing key orders before null.
		partial(`{"n": 1, "whoops": true}`, `{"n": 1, "whoops": true}`),
		// Both keys are missing, so a deep merge is attempted.
		fails(`42`, reduce.ErrMergeWrongType),
	})
}

func TestMaximizeWithDeepMerge(t *testing.T) {
	runCases(t, `{
		"items": [{"reduce": {"strategy": "sum"}}, {"type": "integer"}],
		"reduce": {"strategy": "maximize", "key": ["/1"]}
	}`, []reduceCase{
		partial(`[1, 3]`, `[1, 3]`),
		partial(`[1, 4]`, `[1, 4]`),
		partial(`[1, 3]`, `[1, 4]`),
		partial(`[1, 4, "."]`, `[2, 4, "."]`),
		fails(`{"1": 4}`, reduce.ErrNotAssociative),
		partial(`[1, 2, "!"]`, `[2, 4, "."]`),
		partial(`[1, 4, ":"]`, `[3, 4, ":"]`),
		partial(`[]`, `[3, 4, ":"]`),
		partial(`32`, `[3, 4, ":"]`),
	})
}

func TestSum(t *testing.T) {
	runCases(t, `{"reduce": {"strategy": "sum"}}`, []reduceCase{
		partial(`0`, `0`),
		fails(`"whoops"`, reduce.ErrSumWrongType),
		partial(`123`, `123`),
		partial(`45`, `168`),
		fails(`18446744073709551583`, reduce.ErrSumNumericOverflow),
		partial(`-70`, `98`),
		partial(`0.1`, `98.1`),
		partial(`-98.1`, `0.0`),
		partial(`1.7976931348623157e308`, `1.7976931348623157e308`),
		fails(`1.7976931348623158e307`, reduce.ErrSumNumericOverflow),
		// Too small a change to represent.
		partial(`-1.0`, `1.7976931348623157e308`),
		partial(`-8.988465674311579e307`, `8.988465674311579e307`),
		partial(`-8.988465674311579e307`, `0.0`),
		fails(`"whoops"`, reduce.ErrSumWrongType),
	})
}

func TestSumNumericStrings(t *testing.T) {
	runCases(t, `{"reduce": {"strategy": "sum"}}`, []reduceCase{
		partial(`0`, `0`),
		partial(`"1"`, `"1"`),
		partial(`"9000000000000000000"`, `"9000000000000000001"`),
		partial(`"10000000000000000000"`, `"19000000000000000001"`),
		partial(`1233`, `"19000000000000001234"`),
		partial(`-10000`, `"18999999999999991234"`),
		partial(`86753.09`, `"19000000000000077987.09"`),
		partial(`"10203.040506070812"`, `"19000000000000088190.130506070812"`),
	})
}

func TestSumMixedSigns(t *testing.T) {
	runCases(t, `{"reduce": {"strategy": "sum"}}`, []reduceCase{
		partial(`-9223372036854775808`, `-9223372036854775808`),
		partial(`18446744073709551615`, `9223372036854775807`),
		partial(`9223372036854775808`, `18446744073709551615`),
		fails(`1`, reduce.ErrSumNumericOverflow),
		partial(`-18446744073709551615.0`, `0.0`),
	})
}

func TestMergeArrayInPlace(t *testing.T) {
	runCases(t, `{
		"items": {"reduce": {"strategy": "maximize"}},
		"reduce": {"strategy": "merge"}
	}`, []reduceCase{
		partial(`[]`, `[]`),
		fails(`"whoops"`, reduce.ErrMergeWrongType),
		partial(`[0, 1, 0]`, `[0, 1, 0]`),
		partial(`[3, 0, 2]`, `[3, 1, 2]`),
		partial(`[-1, 0, 4, "a"]`, `[3, 1, 4, "a"]`),
		partial(`[0, 32.6, 0, "b"]`, `[3, 32.6, 4, "b"]`),
		fails(`{}`, reduce.ErrNotAssociative),
		full(`{"a": "b"}`, `{"a": "b"}`),
	})
}

func TestMergeOrderedScalars(t *testing.T) {
	runCases(t, `{
		"if": {"type": "null"},
		"then": {"reduce": {"strategy": "lastWriteWins"}},
		"else": {"reduce": {"strategy": "merge", "key": [""]}}
	}`, []reduceCase{
		partial(`[5, 9]`, `[5, 9]`),
		partial(`[7]`, `[5, 7, 9]`),
		partial(`[2, 4, 5]`, `[2, 4, 5, 7, 9]`),
		partial(`[1, 2, 7, 10]`, `[1, 2, 4, 5, 7, 9, 10]`),
		partial(`null`, `null`),
		fails(`[1, 2]`, reduce.ErrNotAssociative),
		full(`[1, 2]`, `[1, 2]`),
	})
}

func TestDeepMergeOrderedObjects(t *testing.T) {
	runCases(t, `{
		"items": {
			"properties": {"k": {"type": "integer"}},
			"additionalProperties": {"reduce": {"strategy": "sum"}},
			"reduce": {"strategy": "merge"}
		},
		"reduce": {"strategy": "merge", "key": ["/k"]}
	}`, []reduceCase{
		partial(`[{"k": 5, "n": 1}, {"k": 9, "n": 1}]`, `[{"k": 5, "n": 1}, {"k": 9, "n": 1}]`),
		partial(`[{"k": 7, "m": 1}]`, `[{"k": 5, "n": 1}, {"k": 7, "m": 1}, {"k": 9, "n": 1}]`),
		partial(`[{"k": 5, "n": 3}, {"k": 7, "m": 1}]`, `[{"k": 5, "n": 4}, {"k": 7, "m": 2}, {"k": 9, "n": 1}]`),
		partial(`[{"k": 9, "n": -2}]`, `[{"k": 5, "n": 4}, {"k": 7, "m": 2}, {"k": 9, "n": -1}]`),
	})
}

func TestMergeObjects(t *testing.T) {
	runCases(t, `{
		"if": {"type": "null"},
		"then": {"reduce": {"strategy": "lastWriteWins"}},
		"else": {"reduce": {"strategy": "merge"}}
	}`, []reduceCase{
		partial(`{"5": 5, "9": 9}`, `{"5": 5, "9": 9}`),
		partial(`{"7": 7}`, `{"5": 5, "7": 7, "9": 9}`),
		partial(`{"2": 2, "4": 4, "5": 55}`, `{"2": 2, "4": 4, "5": 55, "7": 7, "9": 9}`),
		partial(`{"1": 1, "2": 22, "7": 77, "10": 10}`, `{"1": 1, "2": 22, "4": 4, "5": 55, "7": 77, "9": 9, "10": 10}`),
		fails(`"whoops"`, reduce.ErrMergeWrongType),
		partial(`null`, `null`),
		fails(`{"9": 9}`, reduce.ErrNotAssociative),
		full(`{"9": 9}`, `{"9": 9}`),
	})
}

func TestDeepMergeRecursive(t *testing.T) {
	runCases(t, `{
		"reduce": {"strategy": "merge", "key": ["/k"]},
		"additionalProperties": {
			"if": {"type": ["object", "array"]},
			"then": {"$ref": "#"}
		},
		"items": {"$ref": "#/additionalProperties"}
	}`, []reduceCase{
		partial(`[{"k": "b", "v": [{"k": 5}]}]`, `[{"k": "b", "v": [{"k": 5}]}]`),
		partial(`[{"k": "a", "v": [{"k": 2}]}, {"k": "b", "v": [{"k": 3}]}]`,
			`[{"k": "a", "v": [{"k": 2}]}, {"k": "b", "v": [{"k": 3}, {"k": 5}]}]`),
		partial(`[{"k": "b", "v": [{"k": 1}, {"k": 5, "d": true}]}, {"k": "c", "v": [{"k": 9}]}]`,
			`[{"k": "a", "v": [{"k": 2}]}, {"k": "b", "v": [{"k": 1}, {"k": 3}, {"k": 5, "d": true}]}, {"k": "c", "v": [{"k": 9}]}]`),
	})
}

func TestMergeArrayDeletion(t *testing.T) {
	runCases(t, `{
		"items": {
			"properties": {"k": {"type": "integer"}},
			"if": {"required": ["del"]},
			"then": {"reduce": {"strategy": "lastWriteWins", "delete": true}}
		},
		"reduce": {"strategy": "merge", "key": ["/k"]}
	}`, []reduceCase{
		partial(`[{"k": 5}, {"k": 9}]`, `[{"k": 5}, {"k": 9}]`),
		// Partial reductions keep deleted values.
		partial(`[{"k": 5, "del": 1}, {"k": 6}]`, `[{"k": 5, "del": 1}, {"k": 6}, {"k": 9}]`),
		partial(`[{"k": 5, "del": 1}]`, `[{"k": 5, "del": 1}, {"k": 6}, {"k": 9}]`),
		full(`[{"k": 5, "del": 1}, {"k": 7}]`, `[{"k": 6}, {"k": 7}, {"k": 9}]`),
		full(`[{"k": 6, "del": 1}, {"k": 8}, {"k": 9, "del": 1}]`, `[{"k": 7}, {"k": 8}]`),
	})
}

func TestMergeObjectDeletion(t *testing.T) {
	runCases(t, `{
		"additionalProperties": {
			"if": {"const": "del"},
			"then": {"reduce": {"strategy": "lastWriteWins", "delete": true}}
		},
		"reduce": {"strategy": "merge"}
	}`, []reduceCase{
		partial(`{"5": 5, "9": 9}`, `{"5": 5, "9": 9}`),
		partial(`{"5": "del", "6": 6}`, `{"5": "del", "6": 6, "9": 9}`),
		partial(`{"5": "del"}`, `{"5": "del", "6": 6, "9": 9}`),
		full(`{"5": "del", "7": 7}`, `{"6": 6, "7": 7, "9": 9}`),
		full(`{"6": "del", "8": 8, "9": "del"}`, `{"7": 7, "8": 8}`),
	})
}

func TestRootDeletion(t *testing.T) {
	v := newValidator(t, `{"reduce": {"strategy": "lastWriteWins", "delete": true}}`)
	a := doc.NewArena()
	lhs := doc.MustFromJSON(a, `{"a": 1}`)
	rhs := doc.MustFromJSON(a, `{"b": 2}`)

	_, del, err := reduce.Reduce(doc.FromHeap(&lhs), doc.FromHeap(&rhs), tapeOf(t, v, &rhs), a, false)
	require.NoError(t, err)
	assert.False(t, del)

	_, del, err = reduce.Reduce(doc.FromHeap(&lhs), doc.FromHeap(&rhs), tapeOf(t, v, &rhs), a, true)
	require.NoError(t, err)
	assert.True(t, del)
}

func TestSetArraySequence(t *testing.T) {
	runCases(t, `{
		"$defs": {
			"entry": {
				"type": "array",
				"items": [{"type": "integer"}, {"type": "integer", "reduce": {"strategy": "sum"}}],
				"reduce": {"strategy": "merge"}
			}
		},
		"properties": {"add": {"items": {"$ref": "#/$defs/entry"}}},
		"reduce": {"strategy": "set", "key": ["/0"]}
	}`, []reduceCase{
		partial(`{"add": [[55, 1]]}`, `{"add": [[55, 1]]}`),
		partial(`{"add": [[99, 1]]}`, `{"add": [[55, 1], [99, 1]]}`),
		partial(`{"remove": [[99]], "add": [[22, 1], [55, 1]]}`, `{"remove": [[99]], "add": [[22, 1], [55, 2]]}`),
		partial(`{"remove": [[55]], "add": [[22, 3], [55, 1]]}`, `{"remove": [[55], [99]], "add": [[22, 4], [55, 1]]}`),
		// Full reductions drop "remove".
		full(`{"remove": [[88]], "add": [[11, 1], [22, 2]]}`, `{"add": [[11, 1], [22, 6], [55, 1]]}`),
		full(`{"remove": [[55]]}`, `{"add": [[11, 1], [22, 6]]}`),
		partial(`{"intersect": [[22], [33]]}`, `{"intersect": [[22], [33]], "add": [[22, 6]]}`),
		partial(`{"add": [[22, 2], [33, 1]]}`, `{"intersect": [[22], [33]], "add": [[22, 8], [33, 1]]}`),
		partial(`{"intersect": [[33], [44]], "add": [[22, 1], [33, 1]]}`, `{"intersect": [[33]], "add": [[22, 1], [33, 2]]}`),
		partial(`{"remove": [[33]], "add": [[22, 1], [33, 1]]}`, `{"intersect": [], "add": [[22, 2], [33, 1]]}`),
		// Full reductions drop "intersect".
		full(`{"add": [[33, 1]]}`, `{"add": [[22, 2], [33, 2]]}`),
		partial(`{"remove": [[33]]}`, `{"add": [[22, 2]], "remove": [[33]]}`),
	})
}

func TestSetObjectSequence(t *testing.T) {
	runCases(t, `{
		"properties": {
			"add": {"additionalProperties": {"type": "integer", "reduce": {"strategy": "sum"}}}
		},
		"reduce": {"strategy": "set"}
	}`, []reduceCase{
		partial(`{"add": {"55": 1}}`, `{"add": {"55": 1}}`),
		partial(`{"add": {"99": 1}}`, `{"add": {"55": 1, "99": 1}}`),
		partial(`{"remove": {"99": 0}, "add": {"22": 1, "55": 1}}`, `{"remove": {"99": 0}, "add": {"22": 1, "55": 2}}`),
		partial(`{"remove": {"55": 0}, "add": {"22": 3, "55": 1}}`, `{"remove": {"55": 0, "99": 0}, "add": {"22": 4, "55": 1}}`),
		full(`{"remove": {"88": 0}, "add": {"11": 1, "22": 2}}`, `{"add": {"11": 1, "22": 6, "55": 1}}`),
		full(`{"remove": {"55": 0}}`, `{"add": {"11": 1, "22": 6}}`),
		partial(`{"intersect": {"22": 0, "33": 0}}`, `{"intersect": {"22": 0, "33": 0}, "add": {"22": 6}}`),
		partial(`{"add": {"22": 2, "33": 1}}`, `{"intersect": {"22": 0, "33": 0}, "add": {"22": 8, "33": 1}}`),
		partial(`{"intersect": {"33": 0, "44": 0}, "add": {"22": 1, "33": 1}}`, `{"intersect": {"33": 0}, "add": {"22": 1, "33": 2}}`),
		partial(`{"remove": {"33": 0}, "add": {"22": 1, "33": 1}}`, `{"intersect": {}, "add": {"22": 2, "33": 1}}`),
		full(`{"add": {"33": 1}}`, `{"add": {"22": 2, "33": 2}}`),
		partial(`{"remove": {"33": 0}}`, `{"add": {"22": 2}, "remove": {"33": 0}}`),
	})
}

func TestSetWrongType(t *testing.T) {
	runCases(t, `{"reduce": {"strategy": "set"}}`, []reduceCase{
		partial(`{"add": {"a": 1}}`, `{"add": {"a": 1}}`),
		fails(`{"add": [1]}`, reduce.ErrSetWrongType),
		fails(`{"other": {}}`, reduce.ErrSetWrongType),
		fails(`{"intersect": {}, "remove": {}}`, reduce.ErrSetWrongType),
		fails(`42`, reduce.ErrSetWrongType),
		partial(`{"add": {"b": 2}}`, `{"add": {"a": 1, "b": 2}}`),
	})
}

// The RHS of each case is reduced with the one before it, starting from an
// absent document.
func TestValidateThenReduce(t *testing.T) {
	v := newValidator(t, `{
		"properties": {
			"min": {"type": "integer", "reduce": {"strategy": "minimize"}},
			"max": {"type": "number", "reduce": {"strategy": "maximize"}},
			"sum": {"type": "number", "reduce": {"strategy": "sum"}},
			"lww": {"type": "string", "reduce": {"strategy": "lastWriteWins"}},
			"fww": {"type": "string", "reduce": {"strategy": "firstWriteWins"}},
			"nodes": {
				"type": "array",
				"items": {"$ref": "#"},
				"reduce": {"strategy": "merge", "key": ["/k"]}
			}
		},
		"if": {"type": "object", "maxProperties": 0},
		"then": {"reduce": {"strategy": "lastWriteWins"}},
		"else": {"reduce": {"strategy": "merge"}}
	}`)

	cases := []struct{ rhs, expect string }{
		{`{"lww": "one"}`, `{"lww": "one"}`},
		{`{"fww": "two", "lww": "two"}`, `{"fww": "two", "lww": "two"}`},
		{`{"fww": "ignored"}`, `{"fww": "two", "lww": "two"}`},
		{`{"min": 42, "max": 42, "sum": 42}`, `{"fww": "two", "lww": "two", "min": 42, "max": 42, "sum": 42}`},
		{`{"min": 5, "max": 5, "sum": 5}`, `{"fww": "two", "lww": "two", "min": 5, "max": 42, "sum": 47}`},
		{`{"min": 49, "max": 49.5, "sum": 49}`, `{"fww": "two", "lww": "two", "min": 5, "max": 49.5, "sum": 96}`},
		// An empty object resets the document.
		{`{}`, `{}`},
		{`{"nodes": [{"k": "a", "sum": 1}, {"k": "c", "sum": 1}]}`, `{"nodes": [{"k": "a", "sum": 1}, {"k": "c", "sum": 1}]}`},
		{`{"nodes": [{"k": "a", "sum": 2}, {"k": "b", "sum": 2}]}`,
			`{"nodes": [{"k": "a", "sum": 3}, {"k": "b", "sum": 2}, {"k": "c", "sum": 1}]}`},
		{`{"nodes": [{"k": "a", "nodes": [{"k": "ab", "sum": 1}]}]}`,
			`{"nodes": [{"k": "a", "sum": 3, "nodes": [{"k": "ab", "sum": 1}]}, {"k": "b", "sum": 2}, {"k": "c", "sum": 1}]}`},
		{`{"nodes": [
			{"k": "a", "nodes": [{"k": "aa", "sum": 1}, {"k": "ab", "sum": 2}]},
			{"k": "c", "sum": 32, "nodes": [{"k": "cc", "fww": "foo"}]}
		]}`, `{"nodes": [
			{"k": "a", "sum": 3, "nodes": [{"k": "aa", "sum": 1}, {"k": "ab", "sum": 3}]},
			{"k": "b", "sum": 2},
			{"k": "c", "sum": 33, "nodes": [{"k": "cc", "fww": "foo"}]}
		]}`},
	}

	a := doc.NewArena()
	var lhs doc.Lazy
	for i, tc := range cases {
		rhs := doc.MustFromJSON(a, tc.rhs)
		out, _, err := reduce.Reduce(lhs, doc.FromHeap(&rhs), tapeOf(t, v, &rhs), a, true)
		require.NoError(t, err, "case %d", i)

		got, err := out.MarshalJSON()
		require.NoError(t, err)
		assert.JSONEq(t, tc.expect, string(got), "case %d", i)
		lhs = doc.FromHeap(&out)
	}
}

func TestErrorLocation(t *testing.T) {
	v := newValidator(t, `{
		"properties": {"n": {"reduce": {"strategy": "sum"}}},
		"reduce": {"strategy": "merge"}
	}`)
	a := doc.NewArena()
	lhs := doc.MustFromJSON(a, `{"n": 1}`)
	rhs := doc.MustFromJSON(a, `{"n": "x"}`)

	_, _, err := reduce.Reduce(doc.FromHeap(&lhs), doc.FromHeap(&rhs), tapeOf(t, v, &rhs), a, false)
	var re *reduce.Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "/n", re.Ptr)
	assert.Equal(t, "1", re.LHS)
	assert.Equal(t, `"x"`, re.RHS)
	assert.ErrorIs(t, err, reduce.ErrSumWrongType)
}
