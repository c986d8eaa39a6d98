package combine

import (
	"cmp"
	"container/heap"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/reoring/flowdoc/doc"
	"github.com/reoring/flowdoc/reduce"
)

// DrainedDoc is a reduced document of one binding and key.
type DrainedDoc struct {
	Binding int
	Root    doc.Lazy
	// Deleted is set when a reduction marked the document as deleted.
	Deleted bool
}

type drainEntry struct {
	binding int
	front   bool
	deleted bool
	root    doc.Lazy
}

// source yields entries ordered by binding and key. Entries of equal key
// are yielded in arrival order.
type source interface {
	peek() (drainEntry, bool)
	pop() error
}

type memSource struct {
	entries []drainEntry
	pos     int
}

func (s *memSource) peek() (drainEntry, bool) {
	if s.pos == len(s.entries) {
		return drainEntry{}, false
	}
	return s.entries[s.pos], true
}

func (s *memSource) pop() error {
	s.pos++
	return nil
}

// spillSource merges the segments of a spill file. Of entries with equal
// key, a front entry comes first and the rest follow in segment order,
// which is arrival order.
type spillSource struct {
	r    io.ReadSeeker
	spec *Spec
	segs []*segment
}

func newSpillSource(spec *Spec, r io.ReadSeeker, ranges []segmentRange) (*spillSource, error) {
	s := &spillSource{r: r, spec: spec}
	for i, rng := range ranges {
		seg, err := openSegment(r, i, rng)
		if err != nil {
			return nil, err
		}
		s.segs = append(s.segs, seg)
	}
	heap.Init(s)
	return s, nil
}

func (s *spillSource) Len() int { return len(s.segs) }

func (s *spillSource) Less(i, j int) bool {
	a, b := s.segs[i], s.segs[j]
	if c := cmp.Compare(a.head.binding, b.head.binding); c != 0 {
		return c < 0
	}
	if c := doc.CompareKey(s.spec.Bindings[a.head.binding].Key, a.head.root, b.head.root); c != 0 {
		return c < 0
	}
	if a.head.front != b.head.front {
		return a.head.front
	}
	return a.index < b.index
}

func (s *spillSource) Swap(i, j int) { s.segs[i], s.segs[j] = s.segs[j], s.segs[i] }
func (s *spillSource) Push(x any)    { s.segs = append(s.segs, x.(*segment)) }

func (s *spillSource) Pop() any {
	last := s.segs[len(s.segs)-1]
	s.segs = s.segs[:len(s.segs)-1]
	return last
}

func (s *spillSource) peek() (drainEntry, bool) {
	if len(s.segs) == 0 {
		return drainEntry{}, false
	}
	return s.segs[0].head, true
}

func (s *spillSource) pop() error {
	ok, err := s.segs[0].advance(s.r)
	if err != nil {
		return err
	}
	if ok {
		heap.Fix(s, 0)
	} else {
		heap.Pop(s)
	}
	return nil
}

// Drainer yields the reduced documents of an Accumulator in ascending order
// of binding and key.
type Drainer struct {
	spec  *Spec
	opts  Options
	file  *os.File
	arena *doc.Arena
	src   source
}

// DrainWhile calls fn with each reduced document until fn returns false or
// an error, or documents run out. fullyReduced is set when the document
// needs no further reduction: its binding isn't Full, or it includes a
// front document. It returns whether documents remain.
//
// Documents of a key are normally drained as one. Where a reduction of a
// partially reduced document is not associative, the documents before and
// after it are drained separately, in order.
func (d *Drainer) DrainWhile(fn func(drained DrainedDoc, fullyReduced bool) (bool, error)) (more bool, err error) {
	for {
		head, ok := d.src.peek()
		if !ok {
			return false, nil
		}
		if err := d.src.pop(); err != nil {
			return false, err
		}
		d.arena.Reset()

		b := &d.spec.Bindings[head.binding]
		acc := head
		for {
			next, ok := d.src.peek()
			if !ok || next.binding != acc.binding || doc.CompareKey(b.Key, acc.root, next.root) != 0 {
				break
			}
			root, front, deleted, err := smash(b, d.arena, acc.root, acc.front, next.root, next.front)
			if errors.Is(err, reduce.ErrNotAssociative) {
				break
			} else if err != nil {
				return false, err
			}
			if err := d.src.pop(); err != nil {
				return false, err
			}
			d.opts.Metrics.reduced()
			acc = drainEntry{binding: acc.binding, front: front, deleted: deleted, root: doc.FromHeap(&root)}
		}

		if _, err := b.validate(acc.root); err != nil {
			return false, err
		}
		d.opts.Metrics.drained()

		cont, err := fn(DrainedDoc{Binding: acc.binding, Root: acc.root, Deleted: acc.deleted}, !b.Full || acc.front)
		if err != nil {
			return false, err
		}
		if !cont {
			_, more := d.src.peek()
			return more, nil
		}
	}
}

// IntoNewAccumulator truncates the spill file and starts a new Accumulator
// over it. Documents not yet drained are discarded.
func (d *Drainer) IntoNewAccumulator() (*Accumulator, error) {
	if _, err := d.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSpillIO, err)
	}
	if err := d.file.Truncate(0); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSpillIO, err)
	}
	d.opts.Logger.Debug("truncated spill file for a new accumulator", slog.String("file", d.file.Name()))
	return newAccumulator(d.spec, d.file, d.opts)
}
