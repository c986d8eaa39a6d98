package flowdoc

// DuplicateKeyPolicy controls how repeated object properties are handled while
// parsing JSON text.
type DuplicateKeyPolicy int

const (
	// DuplicateIgnore keeps the last occurrence silently.
	DuplicateIgnore DuplicateKeyPolicy = iota
	// DuplicateWarn keeps the last occurrence and reports an Issue to the sink.
	DuplicateWarn
	// DuplicateError fails the parse.
	DuplicateError
)

// ParseOpt bounds the work done when turning JSON text into a document.
// The zero value applies no limits and ignores duplicate keys.
type ParseOpt struct {
	OnDuplicateKey DuplicateKeyPolicy
	MaxDepth       int   // 0 disables the check.
	MaxBytes       int64 // 0 disables the check.
	// IssueSink receives warnings (duplicate keys under DuplicateWarn).
	IssueSink func(Issue)
}

// StrictParseOpt returns options suitable for untrusted input.
func StrictParseOpt() ParseOpt {
	return ParseOpt{
		OnDuplicateKey: DuplicateError,
		MaxDepth:       256,
		MaxBytes:       64 << 20,
	}
}

func (o ParseOpt) enabled() bool {
	return o.OnDuplicateKey != DuplicateIgnore || o.MaxDepth > 0 || o.MaxBytes > 0
}
