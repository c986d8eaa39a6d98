package combine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/flowdoc/doc"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	_, err = NewMetrics(reg)
	require.Error(t, err, "collectors register once")

	f, err := os.Create(filepath.Join(t.TempDir(), "spill"))
	require.NoError(t, err)
	defer f.Close()

	spec := &Spec{Bindings: []Binding{{Key: []doc.Extractor{doc.NewExtractor("/k")}}}}
	acc, err := NewAccumulator(spec, f, Options{SpillThreshold: 1, Metrics: m})
	require.NoError(t, err)

	for _, d := range []string{`{"k": 1}`, `{"k": 1, "v": 2}`, `{"k": 2}`, `{"k": 1, "v": 3}`} {
		mt, err := acc.Memtable()
		require.NoError(t, err)
		n, err := mt.Parse([]byte(d))
		require.NoError(t, err)
		require.NoError(t, mt.Add(0, n, false))
	}
	assert.Equal(t, 4.0, testutil.ToFloat64(m.docsAdded))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.spills))
	assert.Zero(t, testutil.ToFloat64(m.docsReduced))
	assert.Zero(t, testutil.ToFloat64(m.arenaBytes))

	d, err := acc.IntoDrainer()
	require.NoError(t, err)
	_, err = d.DrainWhile(func(DrainedDoc, bool) (bool, error) { return true, nil })
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.docsDrained))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.docsReduced))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.spills))
	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, float64(info.Size()), testutil.ToFloat64(m.spillBytes))

	// A nil Metrics records nothing.
	var none *Metrics
	none.added()
	none.spilled(10)
	none.arena(1)
}
