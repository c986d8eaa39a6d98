package doc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastjson"
)

// realizations returns the heap, borrowed and archived forms of one JSON
// document, all wrapped as Lazy.
func realizations(t *testing.T, text string) []Lazy {
	t.Helper()
	a := NewArena()
	h := MustFromJSON(a, text)

	var p fastjson.Parser
	b, err := ParseBorrowed(&p, []byte(text))
	require.NoError(t, err)

	ar, err := OpenArchive(Encode(nil, h))
	require.NoError(t, err)

	return []Lazy{FromHeap(&h), FromBorrowed(b), FromArchived(ar)}
}

var ordered = []string{
	`null`,
	`false`,
	`true`,
	`-20`,
	`-10.5`,
	`0`,
	`10`,
	`20`,
	`1e300`,
	`""`,
	`"1"`,
	`"a"`,
	`"b"`,
	`[]`,
	`[1]`,
	`[1,2]`,
	`[2]`,
	`{}`,
	`{"1":1}`,
	`{"a":1}`,
	`{"a":1,"b":1}`,
	`{"a":2}`,
	`{"b":0}`,
}

// Every pair of fixtures orders the same way whichever realization is used
// on either side.
func TestCompare_CrossRealization(t *testing.T) {
	forms := make([][]Lazy, len(ordered))
	for i, text := range ordered {
		forms[i] = realizations(t, text)
	}
	for i := range ordered {
		for k := range ordered {
			want := cmp3(i, k)
			for _, l := range forms[i] {
				for _, r := range forms[k] {
					require.Equal(t, want, Compare(l, r), "%s vs %s", ordered[i], ordered[k])
					require.Equal(t, -want, Compare(r, l), "%s vs %s", ordered[k], ordered[i])
				}
			}
		}
	}
}

func TestCompare_TypeOrdering(t *testing.T) {
	cases := [][2]string{
		{`null`, `false`},
		{`true`, `1`},
		{`1`, `"1"`},
		{`"1"`, `[1]`},
		{`[1]`, `{"1":1}`},
	}
	a := NewArena()
	for _, c := range cases {
		l, r := MustFromJSON(a, c[0]), MustFromJSON(a, c[1])
		assert.Equal(t, -1, Compare(l, r), "%s < %s", c[0], c[1])
		assert.Equal(t, 1, Compare(r, l))
	}
}

func TestCompare_NumericEquivalence(t *testing.T) {
	a := NewArena()
	for _, c := range [][2]string{{`20`, `20.0`}, {`-20`, `-20.00`}, {`[1,{"a":2}]`, `[1.0,{"a":2e0}]`}} {
		l, r := MustFromJSON(a, c[0]), MustFromJSON(a, c[1])
		assert.Equal(t, 0, Compare(l, r))
		assert.Equal(t, Hash(l), Hash(r), "equal documents hash equal")
	}
	assert.Equal(t, Hash(NewFloat(0)), Hash(NewFloat(math.Copysign(0, -1))))
	assert.NotEqual(t, Hash(NewInt(-1)), Hash(NewPosInt(1)))
}

func TestCompare_Reflexive(t *testing.T) {
	for _, text := range ordered {
		for _, l := range realizations(t, text) {
			require.Equal(t, 0, Compare(l, l))
		}
	}
}

func TestParse_DuplicatesLastWins(t *testing.T) {
	text := `{"b":1,"a":2,"b":3}`
	for _, l := range realizations(t, text) {
		require.Equal(t, 2, l.Len())
		require.Equal(t, uint64(3), l.Get("b").PosInt())
		require.Equal(t, 3, l.TapeLength())
	}
}

func TestParseNumber(t *testing.T) {
	cases := []struct {
		text string
		kind Kind
	}{
		{"0", PosInt},
		{"-0", PosInt},
		{"-1", NegInt},
		{"18446744073709551615", PosInt},
		{"18446744073709551616", Float},
		{"-9223372036854775809", Float},
		{"1.0", Float},
		{"1e2", Float},
	}
	for _, c := range cases {
		n, err := ParseNumber(c.text)
		require.NoError(t, err)
		assert.Equal(t, c.kind, n.Kind(), c.text)
	}
}
