package doc

import (
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// Extractor addresses one value of a document, such as one component of a
// composite key.
type Extractor struct {
	Ptr Pointer
	// Default stands in when Ptr doesn't resolve.
	Default HeapNode
	// UUIDTimestamp converts a v1 UUID string into its RFC 3339 timestamp.
	UUIDTimestamp bool
	// Policy applies to Extract.
	Policy SerPolicy
}

// NewExtractor returns an Extractor for ptr with a null default.
func NewExtractor(ptr string) Extractor { return Extractor{Ptr: NewPointer(ptr)} }

// NewExtractorWithDefault returns an Extractor for ptr that yields def when
// the location is missing.
func NewExtractorWithDefault(ptr string, def HeapNode) Extractor {
	return Extractor{Ptr: NewPointer(ptr), Default: def}
}

// NewUUIDTimestampExtractor returns an Extractor that renders the timestamp
// of a v1 UUID found at ptr.
func NewUUIDTimestampExtractor(ptr string) Extractor {
	return Extractor{Ptr: NewPointer(ptr), UUIDTimestamp: true}
}

// Query returns the addressed value, the default, or the converted UUID
// timestamp. Values that aren't v1 UUID strings pass through unchanged.
func (e *Extractor) Query(n Lazy) Lazy {
	v := e.Ptr.Query(n)
	if !v.Present() {
		return FromHeap(&e.Default)
	}
	if e.UUIDTimestamp && v.Kind() == String {
		if ts, ok := uuidTimestamp(v.Str()); ok {
			h := NewString(ts)
			return FromHeap(&h)
		}
	}
	return v
}

func uuidTimestamp(s string) (string, bool) {
	u, err := uuid.Parse(s)
	if err != nil || u.Version() != 1 {
		return "", false
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec).UTC().Format(time.RFC3339Nano), true
}

// Extract renders the addressed value under the extractor's policy.
func (e *Extractor) Extract(n Lazy) any { return ToAny(e.Query(n), e.Policy) }

// CompareKey orders two documents by each extractor in turn.
func CompareKey(key []Extractor, a, b Lazy) int {
	for i := range key {
		if c := Compare(key[i].Query(a), key[i].Query(b)); c != 0 {
			return c
		}
	}
	return 0
}

// HashKey hashes the extracted key of n. Documents for which CompareKey
// returns 0 hash equal.
func HashKey(key []Extractor, n Lazy) uint64 {
	d := xxhash.New()
	var scratch [9]byte
	for i := range key {
		hashInto(d, &scratch, key[i].Query(n))
	}
	return d.Sum64()
}
