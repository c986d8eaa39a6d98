package flowdoc

import (
	"errors"
	"fmt"
	"strings"
)

// Issue codes. Validation failures map each failed keyword onto one of these.
const (
	CodeInvalidType      = "invalid_type"
	CodeRequired         = "required"
	CodeDuplicateKey     = "duplicate_key"
	CodeTooSmall         = "too_small"
	CodeTooBig           = "too_big"
	CodeTooShort         = "too_short"
	CodeTooLong          = "too_long"
	CodePattern          = "pattern"
	CodeInvalidEnum      = "invalid_enum"
	CodeInvalidConst     = "invalid_const"
	CodeInvalidFormat    = "invalid_format"
	CodeMultipleOf       = "multiple_of"
	CodeNotUnique        = "not_unique"
	CodeContains         = "contains"
	CodeDependency       = "dependency"
	CodeUnionNoMatch     = "union_no_match"
	CodeUnionAmbiguous   = "union_ambiguous"
	CodeNot              = "not"
	CodeFalseSchema      = "false_schema"
	CodeUnevaluated      = "unevaluated"
	CodeRecursionDepth   = "recursion_depth"
	CodeParseError       = "parse_error"
	CodeTruncated        = "truncated"
	CodeReductionFailure = "reduction_failure"
)

// Issue is a single located problem with a document.
type Issue struct {
	Path    string // JSON Pointer of the instance (for example: /items/2/price).
	Code    string // One of the codes listed above.
	Message string
	// KeywordLocation is the schema path that produced the issue, including
	// any $ref hops. Empty for parse-level issues.
	KeywordLocation string
	// SchemaURI is the canonical URI of the failing schema.
	SchemaURI string
	Cause     error // Optional: underlying error.
	Offset    int64 // Byte offset in the input source (-1 when unknown).
	// Params carries structured parameters such as {"keyword":"minLength"}.
	Params map[string]any
}

// Issues is a collection of issues that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := min(n, maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		path := it.Path
		if path == "" {
			path = "/"
		}
		// e.g. invalid_type at /path
		fmt.Fprintf(b, "%s at %s", it.Code, path)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	return append(dst, more...)
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}
