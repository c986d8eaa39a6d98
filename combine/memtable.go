package combine

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/valyala/fastjson"

	"github.com/reoring/flowdoc"
	"github.com/reoring/flowdoc/doc"
	"github.com/reoring/flowdoc/reduce"
)

// MemTable is the in-memory stage of an Accumulator. Documents added to it
// are reduced with earlier documents of the same binding and key.
type MemTable struct {
	spec    *Spec
	arena   *doc.Arena
	parser  fastjson.Parser
	popt    *flowdoc.ParseOpt
	groups  []group
	index   map[groupKey][]int
	metrics *Metrics
}

// group holds the documents of one binding and key in arrival order. It has
// more than one document only when a reduction was not associative; only
// the first may be front.
type group struct {
	binding int
	docs    []entry
}

type entry struct {
	root    doc.HeapNode
	front   bool
	deleted bool
}

type groupKey struct {
	binding int
	hash    uint64
}

func newMemTable(spec *Spec, m *Metrics, popt *flowdoc.ParseOpt) *MemTable {
	return &MemTable{
		spec:    spec,
		popt:    popt,
		arena:   doc.NewArena(),
		index:   make(map[groupKey][]int),
		metrics: m,
	}
}

// Arena backs documents added to the MemTable. Documents passed to Add
// must be allocated from it.
func (m *MemTable) Arena() *doc.Arena { return m.arena }

// Len is the number of distinct keys held.
func (m *MemTable) Len() int { return len(m.groups) }

// Parse decodes a JSON document into the MemTable's arena.
func (m *MemTable) Parse(data []byte) (doc.HeapNode, error) {
	if m.popt != nil {
		return doc.ParseJSON(m.arena, data, *m.popt)
	}
	b, err := doc.ParseBorrowed(&m.parser, data)
	if err != nil {
		return doc.HeapNode{}, err
	}
	return doc.IntoHeap(m.arena, b), nil
}

// Add a document to binding. A front document is a fully reduced value
// which precedes every other document of its key.
func (m *MemTable) Add(binding int, root doc.HeapNode, front bool) error {
	if binding < 0 || binding >= len(m.spec.Bindings) {
		return fmt.Errorf("%w: %d", ErrUnknownBinding, binding)
	}
	b := &m.spec.Bindings[binding]
	m.metrics.added()

	rhs := doc.FromHeap(&root)
	gk := groupKey{binding: binding, hash: doc.HashKey(b.Key, rhs)}

	for _, gi := range m.index[gk] {
		g := &m.groups[gi]
		if doc.CompareKey(b.Key, doc.FromHeap(&g.docs[0].root), rhs) == 0 {
			return m.reduceInto(b, g, entry{root: root, front: front})
		}
	}
	m.index[gk] = append(m.index[gk], len(m.groups))
	m.groups = append(m.groups, group{binding: binding, docs: []entry{{root: root, front: front}}})
	return nil
}

func (m *MemTable) reduceInto(b *Binding, g *group, rhs entry) error {
	if rhs.front {
		acc := rhs
		for i := range g.docs {
			d := &g.docs[i]
			root, front, deleted, err := smash(b, m.arena, doc.FromHeap(&d.root), d.front, doc.FromHeap(&acc.root), acc.front)
			if err != nil {
				return err
			}
			acc = entry{root: root, front: front, deleted: deleted}
			m.metrics.reduced()
		}
		g.docs = append(g.docs[:0], acc)
		return nil
	}

	last := &g.docs[len(g.docs)-1]
	root, front, deleted, err := smash(b, m.arena, doc.FromHeap(&last.root), last.front, doc.FromHeap(&rhs.root), false)
	if errors.Is(err, reduce.ErrNotAssociative) {
		// Held back until a front document arrives or the group drains.
		g.docs = append(g.docs, rhs)
		return nil
	} else if err != nil {
		return err
	}
	*last = entry{root: root, front: front, deleted: deleted}
	m.metrics.reduced()
	return nil
}

// sort orders groups by binding and key. The index is invalidated.
func (m *MemTable) sort() {
	slices.SortStableFunc(m.groups, func(a, b group) int {
		if c := cmp.Compare(a.binding, b.binding); c != 0 {
			return c
		}
		return doc.CompareKey(m.spec.Bindings[a.binding].Key,
			doc.FromHeap(&a.docs[0].root), doc.FromHeap(&b.docs[0].root))
	})
	m.index = nil
}

// spill validates and sorts held documents, writes them as a segment, and
// resets the MemTable.
func (m *MemTable) spill(w *spillWriter, opts Options) error {
	if len(m.groups) == 0 {
		return nil
	}
	for gi := range m.groups {
		g := &m.groups[gi]
		b := &m.spec.Bindings[g.binding]
		for i := range g.docs {
			if g.docs[i].front {
				continue
			}
			if _, err := b.validate(doc.FromHeap(&g.docs[i].root)); err != nil {
				return err
			}
		}
	}
	m.sort()

	used, keys := m.arena.Used(), len(m.groups)
	n, err := w.writeSegment(m.groups, opts.ChunkTargetSize, opts.Compress)
	if err != nil {
		return err
	}
	opts.Logger.Debug("spilled memtable to disk",
		slog.Int("segment", len(w.ranges)-1),
		slog.Int("entries", keys),
		slog.Int("arena", used),
		slog.Int64("bytes", n))
	opts.Metrics.spilled(n)

	m.groups = m.groups[:0]
	m.index = make(map[groupKey][]int)
	m.arena.Reset()
	opts.Metrics.arena(0)
	return nil
}

// intoSource sorts the MemTable for draining.
func (m *MemTable) intoSource() *memSource {
	m.sort()
	var out []drainEntry
	for gi := range m.groups {
		g := &m.groups[gi]
		for i := range g.docs {
			d := &g.docs[i]
			out = append(out, drainEntry{binding: g.binding, front: d.front, deleted: d.deleted, root: doc.FromHeap(&d.root)})
		}
	}
	return &memSource{entries: out}
}
