package combine

import (
	"fmt"
	"io"
	"os"
)

// State of a Combiner.
type State uint8

const (
	Accumulating State = iota
	Draining
	Exhausted
)

func (s State) String() string {
	switch s {
	case Accumulating:
		return "accumulating"
	case Draining:
		return "draining"
	case Exhausted:
		return "exhausted"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Combiner cycles an Accumulator and its Drainer over one spill file:
//
//	Accumulating --Drain--> Draining --(drained)--> Exhausted
//	     ^                                              |
//	     +--------------------Reset---------------------+
//
// Calling a method in the wrong state panics.
type Combiner struct {
	state State
	spec  *Spec
	file  *os.File
	opts  Options
	acc   *Accumulator
	dr    *Drainer
}

// NewCombiner returns an accumulating Combiner spilling to file.
func NewCombiner(spec *Spec, file *os.File, opts Options) (*Combiner, error) {
	acc, err := NewAccumulator(spec, file, opts)
	if err != nil {
		return nil, err
	}
	return &Combiner{spec: spec, file: file, opts: acc.opts, acc: acc}, nil
}

func (c *Combiner) State() State { return c.state }

func (c *Combiner) must(op string, states ...State) {
	for _, s := range states {
		if c.state == s {
			return
		}
	}
	panic(fmt.Sprintf("combine: %s called while %s", op, c.state))
}

// Memtable of the current batch.
func (c *Combiner) Memtable() (*MemTable, error) {
	c.must("Memtable", Accumulating)
	return c.acc.Memtable()
}

// Drain ends accumulation of the batch.
func (c *Combiner) Drain() error {
	c.must("Drain", Accumulating)
	dr, err := c.acc.IntoDrainer()
	if err != nil {
		return err
	}
	c.acc, c.dr, c.state = nil, dr, Draining
	return nil
}

// DrainWhile is Drainer.DrainWhile. The Combiner is Exhausted once no
// documents remain.
func (c *Combiner) DrainWhile(fn func(drained DrainedDoc, fullyReduced bool) (bool, error)) (bool, error) {
	c.must("DrainWhile", Draining)
	more, err := c.dr.DrainWhile(fn)
	if err == nil && !more {
		c.state = Exhausted
	}
	return more, err
}

// Reset begins a new batch once draining is done or paused. Undrained
// documents are discarded.
func (c *Combiner) Reset() error {
	c.must("Reset", Draining, Exhausted)
	acc, err := c.dr.IntoNewAccumulator()
	if err != nil {
		return err
	}
	c.acc, c.dr, c.state = acc, nil, Accumulating
	return nil
}

// Abandon discards the current batch in any state and begins a new one.
func (c *Combiner) Abandon() error {
	if _, err := c.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %w", ErrSpillIO, err)
	}
	if err := c.file.Truncate(0); err != nil {
		return fmt.Errorf("%w: %w", ErrSpillIO, err)
	}
	acc, err := newAccumulator(c.spec, c.file, c.opts)
	if err != nil {
		return err
	}
	c.acc, c.dr, c.state = acc, nil, Accumulating
	return nil
}
