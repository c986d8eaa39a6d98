package engine

import "strconv"

// DuplicateStrictness controls duplicate key handling. Values line up with
// flowdoc.DuplicateKeyPolicy.
type DuplicateStrictness int

const (
	DupIgnore DuplicateStrictness = iota
	DupWarn
	DupError
)

// SimpleIssue is a minimal issue representation used by internal helpers.
type SimpleIssue struct {
	Code    string
	Path    string
	Message string
}

// IssueError is a lightweight error carrying a SimpleIssue.
type IssueError struct{ SimpleIssue }

func (e IssueError) Error() string { return e.Path + ": " + e.Message }

// EnforceOptions controls runtime enforcement behavior.
type EnforceOptions struct {
	OnDuplicate DuplicateStrictness
	MaxDepth    int
	MaxBytes    int64
	// IssueSink receives non-fatal issues. Fatal issues are also forwarded
	// before being returned as an IssueError.
	IssueSink func(SimpleIssue)
}

// WrapWithEnforcement returns a TokenSource that enforces duplicate key policy,
// maximum nesting depth, and maximum consumed bytes.
func WrapWithEnforcement(inner TokenSource, opt EnforceOptions) TokenSource {
	return &enforcingTokenSource{inner: inner, opt: opt}
}

type frame struct {
	object  bool
	keys    map[string]struct{}
	path    string
	next    int    // next array index
	pending string // property awaiting its value
}

type enforcingTokenSource struct {
	inner TokenSource
	opt   EnforceOptions
	stack []frame
}

// childPath is the location of the value that the next token starts.
func (e *enforcingTokenSource) childPath() string {
	n := len(e.stack)
	if n == 0 {
		return ""
	}
	top := &e.stack[n-1]
	if top.object {
		return JoinPointer(top.path, top.pending)
	}
	p := top.path + "/" + strconv.Itoa(top.next)
	top.next++
	return p
}

func (e *enforcingTokenSource) fail(code, path, msg string) error {
	if path == "" {
		path = "/"
	}
	si := SimpleIssue{Code: code, Path: path, Message: msg}
	if e.opt.IssueSink != nil {
		e.opt.IssueSink(si)
	}
	return IssueError{si}
}

func (e *enforcingTokenSource) NextToken() (Token, error) {
	tok, err := e.inner.NextToken()
	if err != nil {
		return Token{}, err
	}

	switch tok.Kind {
	case KindBeginObject, KindBeginArray:
		path := e.childPath()
		f := frame{object: tok.Kind == KindBeginObject, path: path}
		if f.object && e.opt.OnDuplicate != DupIgnore {
			f.keys = make(map[string]struct{})
		}
		e.stack = append(e.stack, f)
		if e.opt.MaxDepth > 0 && len(e.stack) > e.opt.MaxDepth {
			return Token{}, e.fail("parse_error", path, "max depth exceeded")
		}
	case KindEndObject, KindEndArray:
		if n := len(e.stack); n > 0 {
			e.stack = e.stack[:n-1]
		}
	case KindKey:
		if n := len(e.stack); n > 0 && e.stack[n-1].object {
			top := &e.stack[n-1]
			top.pending = tok.String
			if top.keys != nil {
				if _, dup := top.keys[tok.String]; dup {
					path := JoinPointer(top.path, tok.String)
					if e.opt.OnDuplicate == DupError {
						return Token{}, e.fail("duplicate_key", path, "key '"+tok.String+"' duplicated")
					}
					if e.opt.IssueSink != nil {
						e.opt.IssueSink(SimpleIssue{Code: "duplicate_key", Path: path, Message: "key '" + tok.String + "' duplicated"})
					}
				}
				top.keys[tok.String] = struct{}{}
			}
		}
	default:
		e.childPath()
	}

	if e.opt.MaxBytes > 0 {
		if off := e.Location(); off > e.opt.MaxBytes {
			path := ""
			if n := len(e.stack); n > 0 {
				path = e.stack[n-1].path
			}
			return Token{}, e.fail("truncated", path, "max bytes exceeded")
		}
	}
	return tok, nil
}

func (e *enforcingTokenSource) Location() int64 { return e.inner.Location() }
