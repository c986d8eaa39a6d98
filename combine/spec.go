// Package combine groups documents by key and reduces each group, spilling
// sorted runs to a file when memory runs short and merging them back on
// drain.
package combine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/reoring/flowdoc"
	"github.com/reoring/flowdoc/doc"
	"github.com/reoring/flowdoc/reduce"
	"github.com/reoring/flowdoc/schema"
)

// Default Options values.
const (
	DefaultSpillThreshold  = 256 << 20
	DefaultChunkTargetSize = 256 << 10
)

// Binding is one reduction target: a key, and the schema whose reduce
// annotations drive the reduction.
type Binding struct {
	// Key orders and groups documents. It must not be empty.
	Key []doc.Extractor
	// Validator validates documents before reduction. When nil, documents
	// are not validated and reduce with reduce.DefaultStrategy throughout.
	Validator *schema.Validator
	// SchemaURI selects the schema of Validator; empty uses its default.
	SchemaURI string
	// Full is set when documents drained from this binding are expected to
	// be fully reduced.
	Full bool
	// Name identifies the binding in errors and logs.
	Name string
}

// Spec is the set of bindings a combiner reduces.
type Spec struct {
	Bindings []Binding
}

func (s *Spec) check() error {
	if len(s.Bindings) == 0 {
		return errors.New("combine spec has no bindings")
	}
	for i := range s.Bindings {
		if len(s.Bindings[i].Key) == 0 {
			return fmt.Errorf("binding %d (%q) has an empty key", i, s.Bindings[i].Name)
		}
	}
	return nil
}

// Options tune an Accumulator. The zero value is usable.
type Options struct {
	// SpillThreshold is the arena size, in bytes, past which the memtable
	// spills to disk. Defaults to DefaultSpillThreshold.
	SpillThreshold int
	// ChunkTargetSize is the raw size at which a spill chunk is closed.
	// Defaults to DefaultChunkTargetSize.
	ChunkTargetSize int
	// Compress spill chunks with lz4.
	Compress bool
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Metrics may be nil.
	Metrics *Metrics
	// ParseOpt, when set, makes MemTable.Parse read through the JSON driver
	// and enforce its limits. Otherwise documents are parsed with fastjson.
	ParseOpt *flowdoc.ParseOpt
}

func (o Options) withDefaults() Options {
	if o.SpillThreshold <= 0 {
		o.SpillThreshold = DefaultSpillThreshold
	}
	if o.ChunkTargetSize <= 0 {
		o.ChunkTargetSize = DefaultChunkTargetSize
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// validate n, returning a nil Valid when the binding has no validator.
func (b *Binding) validate(n doc.Lazy) (*schema.Valid, error) {
	if b.Validator == nil {
		return nil, nil
	}
	res, err := b.Validator.Validate(b.SchemaURI, n)
	if err != nil {
		return nil, err
	}
	valid, failed := res.Ok()
	if failed != nil {
		return nil, &FailedValidationError{Binding: b.Name, Failed: failed}
	}
	return valid, nil
}

// tape validates n and returns its reduce tape.
func (b *Binding) tape(n doc.Lazy) (reduce.Tape, error) {
	valid, err := b.validate(n)
	if err != nil {
		return nil, err
	}
	if valid != nil {
		return valid.ReduceTape(), nil
	}
	hashes := doc.SubtreeHashes(nil, n)
	tape := make(reduce.Tape, len(hashes))
	for i, h := range hashes {
		tape[i] = reduce.TapeEntry{Strategy: reduce.DefaultStrategy, Hash: h}
	}
	return tape, nil
}

// smash reduces two documents of one key, given in arrival order. A front
// document precedes every other document of its key, so when only rhs is
// front the operands swap and lhs is reduced into it.
func smash(b *Binding, a *doc.Arena, lhs doc.Lazy, lhsFront bool, rhs doc.Lazy, rhsFront bool) (root doc.HeapNode, front, deleted bool, err error) {
	switch {
	case !rhsFront:
		tape, err := b.tape(rhs)
		if err != nil {
			return doc.HeapNode{}, false, false, err
		}
		root, deleted, err = reduce.Reduce(lhs, rhs, tape, a, lhsFront)
		if err != nil {
			return doc.HeapNode{}, false, false, &ReductionError{Binding: b.Name, Err: err}
		}
		return root, lhsFront, deleted, nil
	case !lhsFront:
		tape, err := b.tape(lhs)
		if err != nil {
			return doc.HeapNode{}, false, false, err
		}
		root, deleted, err = reduce.Reduce(rhs, lhs, tape, a, true)
		if err != nil {
			return doc.HeapNode{}, false, false, &ReductionError{Binding: b.Name, Err: err}
		}
		return root, true, deleted, nil
	}
	return doc.HeapNode{}, false, false, &AlreadyFullyReducedError{Doc: render(rhs)}
}

func render(l doc.Lazy) string {
	b, err := doc.MarshalJSON(l, doc.DebugPolicy())
	if err != nil {
		return "<" + err.Error() + ">"
	}
	return string(b)
}
