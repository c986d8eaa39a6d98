package doc

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"unsafe"

	"github.com/valyala/fastjson"
)

// Borrowed is a read-only view over a document parsed by fastjson. It is
// valid only while the fastjson.Parser that produced the value is neither
// reused nor released.
type Borrowed struct {
	d *borrowedDoc
	i int32
}

type borrowedDoc struct {
	nodes []bnode
	kids  []int32  // child node indices, contiguous per container
	names []string // property names, parallel to kids for objects
}

type bnode struct {
	kind  Kind
	num   uint64
	str   string
	first int32 // offset into kids
	n     int32
	tape  int32
}

// NewBorrowed indexes v for ordered access. Object fields are sorted by
// property, the last duplicate winning, and tape lengths are computed once.
func NewBorrowed(v *fastjson.Value) (Borrowed, error) {
	d := &borrowedDoc{}
	root, err := d.add(v)
	if err != nil {
		return Borrowed{}, err
	}
	return Borrowed{d: d, i: root}, nil
}

// ParseBorrowed parses data with p and indexes the result.
func ParseBorrowed(p *fastjson.Parser, data []byte) (Borrowed, error) {
	v, err := p.ParseBytes(data)
	if err != nil {
		return Borrowed{}, err
	}
	return NewBorrowed(v)
}

func b2s(b []byte) string { return unsafe.String(unsafe.SliceData(b), len(b)) }

func (d *borrowedDoc) add(v *fastjson.Value) (int32, error) {
	idx := int32(len(d.nodes))
	d.nodes = append(d.nodes, bnode{tape: 1})

	switch v.Type() {
	case fastjson.TypeNull:
	case fastjson.TypeTrue:
		d.nodes[idx] = bnode{kind: Bool, num: 1, tape: 1}
	case fastjson.TypeFalse:
		d.nodes[idx] = bnode{kind: Bool, tape: 1}
	case fastjson.TypeNumber:
		h, err := ParseNumber(b2s(v.MarshalTo(nil)))
		if err != nil {
			return 0, err
		}
		d.nodes[idx] = bnode{kind: h.kind, num: h.num, tape: 1}
	case fastjson.TypeString:
		sb, err := v.StringBytes()
		if err != nil {
			return 0, err
		}
		d.nodes[idx] = bnode{kind: String, str: b2s(sb), tape: 1}
	case fastjson.TypeArray:
		arr, err := v.Array()
		if err != nil {
			return 0, err
		}
		kids := make([]int32, len(arr))
		tape := int32(1)
		for i, item := range arr {
			if kids[i], err = d.add(item); err != nil {
				return 0, err
			}
			tape += d.nodes[kids[i]].tape
		}
		d.nodes[idx] = bnode{kind: Array, first: int32(len(d.kids)), n: int32(len(kids)), tape: tape}
		d.kids = append(d.kids, kids...)
		d.names = append(d.names, make([]string, len(kids))...)
	case fastjson.TypeObject:
		obj, err := v.Object()
		if err != nil {
			return 0, err
		}
		type kv struct {
			name string
			kid  int32
		}
		fields := make([]kv, 0, obj.Len())
		var visitErr error
		obj.Visit(func(key []byte, fv *fastjson.Value) {
			if visitErr != nil {
				return
			}
			kid, err := d.add(fv)
			if err != nil {
				visitErr = err
				return
			}
			fields = append(fields, kv{name: b2s(key), kid: kid})
		})
		if visitErr != nil {
			return 0, visitErr
		}
		slices.SortStableFunc(fields, func(a, b kv) int { return strings.Compare(a.name, b.name) })
		first := int32(len(d.kids))
		tape := int32(1)
		for i := range fields {
			if i+1 < len(fields) && fields[i+1].name == fields[i].name {
				continue
			}
			d.kids = append(d.kids, fields[i].kid)
			d.names = append(d.names, fields[i].name)
			tape += d.nodes[fields[i].kid].tape
		}
		d.nodes[idx] = bnode{kind: Object, first: first, n: int32(len(d.kids)) - first, tape: tape}
	default:
		return 0, fmt.Errorf("doc: unsupported fastjson type %s", v.Type())
	}
	return idx, nil
}

func (b Borrowed) node() *bnode   { return &b.d.nodes[b.i] }
func (b Borrowed) Kind() Kind     { return b.node().kind }
func (b Borrowed) Bool() bool     { return b.node().num != 0 }
func (b Borrowed) PosInt() uint64 { return b.node().num }
func (b Borrowed) NegInt() int64  { return int64(b.node().num) }
func (b Borrowed) Float() float64 { return math.Float64frombits(b.node().num) }
func (b Borrowed) Str() string    { return b.node().str }

func (b Borrowed) Bytes() []byte {
	s := b.node().str
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

func (b Borrowed) Len() int        { return int(b.node().n) }
func (b Borrowed) TapeLength() int { return int(b.node().tape) }

func (b Borrowed) Item(i int) Borrowed {
	return Borrowed{d: b.d, i: b.d.kids[int(b.node().first)+i]}
}

func (b Borrowed) Field(i int) (string, Borrowed) {
	j := int(b.node().first) + i
	return b.d.names[j], Borrowed{d: b.d, i: b.d.kids[j]}
}
