package combine

import (
	"log/slog"
	"os"

	"github.com/reoring/flowdoc/doc"
)

// Accumulator gathers documents into a MemTable, spilling it to file as it
// outgrows Options.SpillThreshold.
type Accumulator struct {
	spec  *Spec
	opts  Options
	file  *os.File
	mem   *MemTable
	spill *spillWriter
}

// NewAccumulator returns an Accumulator which spills to file. The file must
// be empty and is owned by the Accumulator and its Drainer from here on.
func NewAccumulator(spec *Spec, file *os.File, opts Options) (*Accumulator, error) {
	if err := spec.check(); err != nil {
		return nil, err
	}
	return newAccumulator(spec, file, opts.withDefaults())
}

func newAccumulator(spec *Spec, file *os.File, opts Options) (*Accumulator, error) {
	w, err := newSpillWriter(file)
	if err != nil {
		return nil, err
	}
	return &Accumulator{
		spec:  spec,
		opts:  opts,
		file:  file,
		mem:   newMemTable(spec, opts.Metrics, opts.ParseOpt),
		spill: w,
	}, nil
}

// Memtable returns the MemTable to add documents to, first spilling it if
// it's over threshold.
func (a *Accumulator) Memtable() (*MemTable, error) {
	used := a.mem.arena.Used()
	if used > a.opts.SpillThreshold {
		if err := a.mem.spill(a.spill, a.opts); err != nil {
			return nil, err
		}
		used = 0
	}
	a.opts.Metrics.arena(used)
	return a.mem, nil
}

// Spilled is the number of segments written so far.
func (a *Accumulator) Spilled() int { return len(a.spill.ranges) }

// IntoDrainer finishes accumulation. When nothing was spilled, documents
// drain straight from memory; otherwise the MemTable is spilled too and the
// segments are merged from file.
func (a *Accumulator) IntoDrainer() (*Drainer, error) {
	d := &Drainer{spec: a.spec, opts: a.opts, file: a.file, arena: doc.NewArena()}

	if len(a.spill.ranges) == 0 {
		a.opts.Logger.Debug("draining memtable", slog.Int("entries", a.mem.Len()))
		d.src = a.mem.intoSource()
		return d, nil
	}
	if err := a.mem.spill(a.spill, a.opts); err != nil {
		return nil, err
	}
	src, err := newSpillSource(a.spec, a.file, a.spill.ranges)
	if err != nil {
		return nil, err
	}
	a.opts.Logger.Debug("draining spill file", slog.Int("segments", len(a.spill.ranges)))
	d.src = src
	return d, nil
}
