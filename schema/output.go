package schema

import (
	j "github.com/goccy/go-json"

	"github.com/reoring/flowdoc"
	"github.com/reoring/flowdoc/doc"
	eng "github.com/reoring/flowdoc/internal/engine"
)

const (
	codeInvalidType    = flowdoc.CodeInvalidType
	codeRequired       = flowdoc.CodeRequired
	codeTooSmall       = flowdoc.CodeTooSmall
	codeTooBig         = flowdoc.CodeTooBig
	codeTooShort       = flowdoc.CodeTooShort
	codeTooLong        = flowdoc.CodeTooLong
	codePattern        = flowdoc.CodePattern
	codeInvalidEnum    = flowdoc.CodeInvalidEnum
	codeInvalidConst   = flowdoc.CodeInvalidConst
	codeInvalidFormat  = flowdoc.CodeInvalidFormat
	codeMultipleOf     = flowdoc.CodeMultipleOf
	codeNotUnique      = flowdoc.CodeNotUnique
	codeContains       = flowdoc.CodeContains
	codeUnionNoMatch   = flowdoc.CodeUnionNoMatch
	codeUnionAmbiguous = flowdoc.CodeUnionAmbiguous
	codeNot            = flowdoc.CodeNot
	codeFalseSchema    = flowdoc.CodeFalseSchema
	codeRecursionDepth = flowdoc.CodeRecursionDepth
)

// OutputError is one entry of a basic-output validation report.
type OutputError struct {
	KeywordLocation         string `json:"keywordLocation"`
	InstanceLocation        string `json:"instanceLocation"`
	InstanceValue           any    `json:"instanceValue"`
	AbsoluteKeywordLocation string `json:"absoluteKeywordLocation"`
	Error                   string `json:"error"`

	code string
}

// Code is the flowdoc issue code of the failed keyword.
func (o OutputError) Code() string { return o.code }

// FailedValidation reports why a document is invalid.
type FailedValidation struct {
	Errors   []OutputError
	Document doc.Lazy
}

type basicOutput struct {
	Valid  bool          `json:"valid"`
	Errors []OutputError `json:"errors"`
}

func (f *FailedValidation) MarshalJSON() ([]byte, error) {
	errs := f.Errors
	if errs == nil {
		errs = []OutputError{}
	}
	return j.Marshal(struct {
		BasicOutput basicOutput `json:"basic_output"`
		Document    any         `json:"document"`
	}{
		BasicOutput: basicOutput{Errors: errs},
		Document:    doc.ToAny(f.Document, doc.DebugPolicy()),
	})
}

func (f *FailedValidation) Error() string {
	if len(f.Errors) == 0 {
		return "document failed validation"
	}
	return f.Issues().Error()
}

// Issues converts the report into flowdoc issues.
func (f *FailedValidation) Issues() flowdoc.Issues {
	out := make(flowdoc.Issues, 0, len(f.Errors))
	for _, e := range f.Errors {
		out = append(out, flowdoc.Issue{
			Path:            e.InstanceLocation,
			Code:            e.code,
			Message:         e.Error,
			KeywordLocation: e.KeywordLocation,
			SchemaURI:       e.AbsoluteKeywordLocation,
			Offset:          -1,
		})
	}
	return out
}

// instanceValue renders scalars in full, except for long strings, and
// containers as placeholders.
func instanceValue(n doc.Lazy) any {
	switch n.Kind() {
	case doc.Array:
		return "<array>"
	case doc.Object:
		return "<object>"
	case doc.Bytes:
		return "<bytes>"
	case doc.String:
		s := []rune(n.Str())
		if len(s) < 256 {
			return n.Str()
		}
		return string(s[:256]) + " ... (trimmed)"
	}
	return doc.ToAny(n, doc.SerPolicy{})
}

func escapeToken(t string) string { return eng.EscapePointerToken(t) }
