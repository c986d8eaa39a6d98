package flowdoc

import (
	"bytes"
	"errors"
	"io"
	"sync"

	eng "github.com/reoring/flowdoc/internal/engine"
	"github.com/reoring/flowdoc/source/gojson"
)

// TokenKind enumerates JSON token kinds.
type TokenKind = eng.Kind

const (
	TokenBeginObject = eng.KindBeginObject
	TokenEndObject   = eng.KindEndObject
	TokenBeginArray  = eng.KindBeginArray
	TokenEndArray    = eng.KindEndArray
	TokenKey         = eng.KindKey
	TokenString      = eng.KindString
	TokenNumber      = eng.KindNumber
	TokenBool        = eng.KindBool
	TokenNull        = eng.KindNull
)

// Token describes a token in the input stream. Numbers keep their literal
// text so that integer and float forms can be told apart downstream.
type Token = eng.Token

// Source is a stream of JSON tokens.
type Source interface {
	NextToken() (Token, error)
	Location() int64 // byte offset; -1 if unknown
}

// JSONDriver converts JSON input into a Source. The default implementation is
// backed by goccy/go-json and may be swapped with SetJSONDriver.
type JSONDriver interface {
	NewReader(r io.Reader) Source
	Name() string
}

var (
	jsonDriverMu      sync.RWMutex
	currentJSONDriver JSONDriver = defaultJSONDriver{}
)

// SetJSONDriver replaces the global JSON driver; nil values are ignored.
func SetJSONDriver(d JSONDriver) {
	if d == nil {
		return
	}
	jsonDriverMu.Lock()
	currentJSONDriver = d
	jsonDriverMu.Unlock()
}

// UseDefaultJSONDriver restores the go-json driver.
func UseDefaultJSONDriver() { SetJSONDriver(defaultJSONDriver{}) }

// CurrentJSONDriver returns the driver used by JSONReader and JSONBytes.
func CurrentJSONDriver() JSONDriver {
	jsonDriverMu.RLock()
	d := currentJSONDriver
	jsonDriverMu.RUnlock()
	return d
}

type defaultJSONDriver struct{}

func (defaultJSONDriver) NewReader(r io.Reader) Source { return gojson.NewReader(r) }
func (defaultJSONDriver) Name() string                 { return "go-json" }

// JSONReader wraps an io.Reader as a JSON Source.
func JSONReader(r io.Reader) Source { return CurrentJSONDriver().NewReader(r) }

// JSONBytes wraps a byte slice as a JSON Source.
func JSONBytes(b []byte) Source { return CurrentJSONDriver().NewReader(bytes.NewReader(b)) }

// EnforceSource wraps a Source with duplicate-key, depth and size checks.
// Sources are returned unchanged when opt enables none of them.
//
// Violations surface as an Issues error from NextToken. Duplicate keys under
// DuplicateWarn are forwarded to opt.IssueSink and parsing continues.
func EnforceSource(s Source, opt ParseOpt) Source {
	if !opt.enabled() {
		return s
	}
	var sink func(eng.SimpleIssue)
	if opt.IssueSink != nil {
		sink = func(si eng.SimpleIssue) {
			opt.IssueSink(Issue{Path: si.Path, Code: si.Code, Message: si.Message, Offset: s.Location()})
		}
	}
	return &issueSource{inner: eng.WrapWithEnforcement(s, eng.EnforceOptions{
		OnDuplicate: eng.DuplicateStrictness(opt.OnDuplicateKey),
		MaxDepth:    opt.MaxDepth,
		MaxBytes:    opt.MaxBytes,
		IssueSink:   sink,
	})}
}

// issueSource converts engine enforcement failures into public Issues.
type issueSource struct{ inner eng.TokenSource }

func (s *issueSource) NextToken() (Token, error) {
	tok, err := s.inner.NextToken()
	var ie eng.IssueError
	if errors.As(err, &ie) {
		return tok, Issues{{Path: ie.Path, Code: ie.Code, Message: ie.Message, Offset: s.inner.Location()}}
	}
	return tok, err
}

func (s *issueSource) Location() int64 { return s.inner.Location() }
