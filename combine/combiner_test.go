package combine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/flowdoc/combine"
)

func TestCombiner_States(t *testing.T) {
	c, err := combine.NewCombiner(newSpec(t, sumSchema, false), spillFile(t), combine.Options{SpillThreshold: 1})
	require.NoError(t, err)
	assert.Equal(t, combine.Accumulating, c.State())

	never := func(combine.DrainedDoc, bool) (bool, error) { return true, nil }
	assert.PanicsWithValue(t, "combine: DrainWhile called while accumulating", func() { _, _ = c.DrainWhile(never) })
	assert.Panics(t, func() { _ = c.Reset() })

	for _, d := range []string{`{"key": 2, "cnt": 1}`, `{"key": 1, "cnt": 1}`, `{"key": 2, "cnt": 1}`} {
		mt, err := c.Memtable()
		require.NoError(t, err)
		n, err := mt.Parse([]byte(d))
		require.NoError(t, err)
		require.NoError(t, mt.Add(0, n, false))
	}
	require.NoError(t, c.Drain())
	assert.Equal(t, combine.Draining, c.State())
	assert.Panics(t, func() { _, _ = c.Memtable() })
	assert.Panics(t, func() { _ = c.Drain() })

	var keys []uint64
	collect := func(d combine.DrainedDoc, _ bool) (bool, error) {
		keys = append(keys, d.Root.Get("key").PosInt())
		return len(keys) < 1, nil
	}
	more, err := c.DrainWhile(collect)
	require.NoError(t, err)
	assert.True(t, more)
	assert.Equal(t, combine.Draining, c.State())

	more, err = c.DrainWhile(func(d combine.DrainedDoc, _ bool) (bool, error) {
		keys = append(keys, d.Root.Get("key").PosInt())
		assert.Equal(t, uint64(2), d.Root.Get("cnt").PosInt())
		return true, nil
	})
	require.NoError(t, err)
	assert.False(t, more)
	assert.Equal(t, []uint64{1, 2}, keys)
	assert.Equal(t, combine.Exhausted, c.State())
	assert.Panics(t, func() { _, _ = c.DrainWhile(never) })

	require.NoError(t, c.Reset())
	assert.Equal(t, combine.Accumulating, c.State())
	_, err = c.Memtable()
	require.NoError(t, err)
}

func TestCombiner_Abandon(t *testing.T) {
	f := spillFile(t)
	c, err := combine.NewCombiner(newSpec(t, sumSchema, false), f, combine.Options{SpillThreshold: 1})
	require.NoError(t, err)

	for _, d := range []string{`{"key": 1}`, `{"key": 2}`} {
		mt, err := c.Memtable()
		require.NoError(t, err)
		n, err := mt.Parse([]byte(d))
		require.NoError(t, err)
		require.NoError(t, mt.Add(0, n, false))
	}
	info, err := f.Stat()
	require.NoError(t, err)
	require.NotZero(t, info.Size())

	require.NoError(t, c.Abandon())
	assert.Equal(t, combine.Accumulating, c.State())
	info, err = f.Stat()
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	require.NoError(t, c.Drain())
	more, err := c.DrainWhile(func(combine.DrainedDoc, bool) (bool, error) {
		t.Fatal("abandoned documents were drained")
		return false, nil
	})
	require.NoError(t, err)
	assert.False(t, more)
	assert.Equal(t, combine.Exhausted, c.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "draining", combine.Draining.String())
	assert.Equal(t, "State(9)", combine.State(9).String())
}
