package combine

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/reoring/flowdoc/doc"
)

// A spill file is a sequence of segments, each a key-ordered run of entries
// written by one spill. A segment is a sequence of chunks:
//
//	compressed length u32 | raw length u32 | payload
//
// A compressed length of zero means the payload is stored raw. The raw
// payload is a sequence of entries:
//
//	binding u32 | flags u8 | length u32 | archived document
//
// Integers are little-endian.
const (
	chunkHeaderLen = 8
	entryHeaderLen = 9

	flagFront   = 1 << 0
	flagDeleted = 1 << 1
)

var le = binary.LittleEndian

type segmentRange struct {
	begin, end int64
}

type spillWriter struct {
	f      io.WriteSeeker
	ranges []segmentRange
	raw    []byte
	lz     []byte
	c      lz4.Compressor
}

func newSpillWriter(f io.WriteSeeker) (*spillWriter, error) {
	off, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSpillIO, err)
	}
	if off != 0 {
		return nil, fmt.Errorf("%w: spill file is at offset %d, not zero", ErrSpillIO, off)
	}
	return &spillWriter{f: f}, nil
}

// writeSegment writes sorted groups as a new segment and returns its size.
func (w *spillWriter) writeSegment(groups []group, chunkTarget int, compress bool) (int64, error) {
	begin, err := w.f.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSpillIO, err)
	}
	end := begin
	w.raw = w.raw[:0]

	for gi := range groups {
		g := &groups[gi]
		for i := range g.docs {
			w.raw = appendEntry(w.raw, g.binding, &g.docs[i])
			if len(w.raw) < chunkTarget {
				continue
			}
			n, err := w.flush(compress)
			if err != nil {
				return 0, err
			}
			end += n
		}
	}
	if len(w.raw) != 0 {
		n, err := w.flush(compress)
		if err != nil {
			return 0, err
		}
		end += n
	}
	w.ranges = append(w.ranges, segmentRange{begin: begin, end: end})
	return end - begin, nil
}

func appendEntry(dst []byte, binding int, e *entry) []byte {
	var flags byte
	if e.front {
		flags |= flagFront
	}
	if e.deleted {
		flags |= flagDeleted
	}
	dst = le.AppendUint32(dst, uint32(binding))
	dst = append(dst, flags)
	at := len(dst)
	dst = append(dst, 0, 0, 0, 0)
	dst = doc.Encode(dst, e.root)
	le.PutUint32(dst[at:], uint32(len(dst)-at-4))
	return dst
}

// flush writes buffered entries as one chunk.
func (w *spillWriter) flush(compress bool) (int64, error) {
	var header [chunkHeaderLen]byte
	payload := w.raw

	if compress {
		bound := lz4.CompressBlockBound(len(w.raw))
		if cap(w.lz) < bound {
			w.lz = make([]byte, bound)
		}
		w.lz = w.lz[:bound]

		n, err := w.c.CompressBlock(w.raw, w.lz)
		if err != nil {
			return 0, fmt.Errorf("%w: compressing chunk: %w", ErrSpillIO, err)
		}
		// Zero means incompressible.
		if n != 0 && n < len(w.raw) {
			payload = w.lz[:n]
			le.PutUint32(header[0:], uint32(n))
		}
	}
	le.PutUint32(header[4:], uint32(len(w.raw)))

	if _, err := w.f.Write(header[:]); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSpillIO, err)
	}
	if _, err := w.f.Write(payload); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSpillIO, err)
	}
	w.raw = w.raw[:0]
	return int64(chunkHeaderLen + len(payload)), nil
}

// segment reads back the entries of one segment, a chunk at a time. Each
// chunk is read into a fresh buffer, so documents of earlier chunks stay
// valid after the segment advances.
type segment struct {
	index     int
	next, end int64
	chunk     []byte
	off       int

	head drainEntry
}

func openSegment(r io.ReadSeeker, index int, rng segmentRange) (*segment, error) {
	s := &segment{index: index, next: rng.begin, end: rng.end}
	ok, err := s.advance(r)
	if err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("%w: segment %d is empty", ErrSpillIO, index)
	}
	return s, nil
}

// advance decodes the next entry into head. It returns false once the
// segment is exhausted.
func (s *segment) advance(r io.ReadSeeker) (bool, error) {
	if s.off == len(s.chunk) {
		if s.next == s.end {
			return false, nil
		}
		if err := s.readChunk(r); err != nil {
			return false, err
		}
	}
	c := s.chunk[s.off:]
	if len(c) < entryHeaderLen {
		return false, fmt.Errorf("%w: segment %d: truncated entry header", ErrSpillIO, s.index)
	}
	binding, flags, n := le.Uint32(c), c[4], int(le.Uint32(c[5:]))
	if len(c)-entryHeaderLen < n {
		return false, fmt.Errorf("%w: segment %d: truncated entry", ErrSpillIO, s.index)
	}
	a, err := doc.OpenArchive(c[entryHeaderLen : entryHeaderLen+n])
	if err != nil {
		return false, fmt.Errorf("%w: segment %d: %w", ErrSpillIO, s.index, err)
	}
	s.off += entryHeaderLen + n

	s.head = drainEntry{
		binding: int(binding),
		front:   flags&flagFront != 0,
		deleted: flags&flagDeleted != 0,
		root:    doc.FromArchived(a),
	}
	return true, nil
}

func (s *segment) readChunk(r io.ReadSeeker) error {
	if _, err := r.Seek(s.next, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %w", ErrSpillIO, err)
	}
	var header [chunkHeaderLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return fmt.Errorf("%w: segment %d: reading chunk header: %w", ErrSpillIO, s.index, err)
	}
	zlen, rawLen := le.Uint32(header[0:]), le.Uint32(header[4:])

	plen := zlen
	if zlen == 0 {
		plen = rawLen
	}
	if s.next+chunkHeaderLen+int64(plen) > s.end {
		return fmt.Errorf("%w: segment %d: chunk overruns segment", ErrSpillIO, s.index)
	}
	buf := make([]byte, plen)
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("%w: segment %d: reading chunk: %w", ErrSpillIO, s.index, err)
	}
	if zlen != 0 {
		raw := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(buf, raw)
		if err != nil {
			return fmt.Errorf("%w: segment %d: %w", ErrSpillIO, s.index, err)
		} else if n != len(raw) {
			return fmt.Errorf("%w: segment %d: chunk decompressed to %d bytes, not %d", ErrSpillIO, s.index, n, len(raw))
		}
		buf = raw
	}
	s.chunk, s.off = buf, 0
	s.next += chunkHeaderLen + int64(plen)
	return nil
}
