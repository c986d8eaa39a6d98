package schema

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/reoring/flowdoc/doc"
	"github.com/reoring/flowdoc/reduce"
)

// MaxRecursionDepth bounds the nesting of schema scopes during validation.
const MaxRecursionDepth = 512

// Validator validates documents against the schemas of an Index. It holds no
// per-document state and may be shared across goroutines.
type Validator struct {
	index *Index
	def   string
}

func NewValidator(idx *Index) *Validator { return &Validator{index: idx} }

// WithDefault returns a Validator which uses curi when Validate is called
// with an empty URI.
func (v *Validator) WithDefault(curi string) *Validator {
	return &Validator{index: v.index, def: curi}
}

// Index returns the schemas v validates against.
func (v *Validator) Index() *Index { return v.index }

// Validate evaluates n against the schema at curi. The returned error is
// only an *UnknownSchemaError; a failed validation is reported through the
// result.
func (v *Validator) Validate(curi string, n doc.Lazy) (*Validation, error) {
	if curi == "" {
		curi = v.def
	}
	s, ok := v.index.Fetch(curi)
	if !ok {
		return nil, &UnknownSchemaError{CURI: curi}
	}
	e := &evaluator{}
	valid := e.schema(s, &instance{node: n}, "", nil)
	return &Validation{schema: s, root: n, valid: valid, notes: e.notes}, nil
}

// Validation is the outcome of Validate.
type Validation struct {
	schema *Schema
	root   doc.Lazy
	valid  bool
	notes  []note
}

func (r *Validation) Valid() bool { return r.valid }

// Ok splits the outcome. When the document is invalid, it is evaluated again
// with full error context.
func (r *Validation) Ok() (*Valid, *FailedValidation) {
	if r.valid {
		return &Valid{root: r.root, notes: r.notes}, nil
	}
	e := &evaluator{full: true}
	e.schema(r.schema, &instance{node: r.root}, "", nil)
	return nil, &FailedValidation{Errors: e.errs, Document: r.root}
}

// Valid is a successful validation, and the annotations it produced.
type Valid struct {
	root  doc.Lazy
	notes []note
}

// ReduceTape returns the reduce strategy and subtree hash of every node of
// the document, in pre-order. Locations without a reduce annotation use
// reduce.DefaultStrategy.
func (v *Valid) ReduceTape() reduce.Tape {
	hashes := doc.SubtreeHashes(nil, v.root)
	tape := make(reduce.Tape, len(hashes))
	for i, h := range hashes {
		tape[i].Hash = h
	}
	for _, n := range v.notes {
		if n.strategy != nil && tape[n.tape].Strategy == nil {
			tape[n.tape].Strategy = n.strategy
		}
	}
	for i := range tape {
		if tape[i].Strategy == nil {
			tape[i].Strategy = reduce.DefaultStrategy
		}
	}
	return tape
}

// Annotations are the document locations marked by annotation keywords.
type Annotations struct {
	// Secrets lists JSON Pointers annotated with secret or airbyte_secret.
	Secrets []string
}

func (v *Valid) Annotations() Annotations {
	var out Annotations
	seen := map[int]bool{}
	for _, n := range v.notes {
		if n.secret && !seen[n.tape] {
			seen[n.tape] = true
			out.Secrets = append(out.Secrets, n.ptr.String())
		}
	}
	return out
}

// note is an annotation recorded at a document location.
type note struct {
	tape     int
	ptr      doc.Pointer
	strategy reduce.Strategy
	secret   bool
}

// instance is a document location under evaluation. tape is its pre-order
// index, or -1 for values which aren't part of the document such as
// property names.
type instance struct {
	node doc.Lazy
	tape int
	ptr  doc.Pointer
	offs []int
}

func (in *instance) child(i int) *instance {
	c := &instance{tape: -1}
	if in.node.Kind() == doc.Object {
		var name string
		name, c.node = in.node.Field(i)
		c.ptr = in.ptr.Push(name)
	} else {
		c.node = in.node.Item(i)
		c.ptr = in.ptr.PushIndex(i)
	}
	if in.tape >= 0 {
		if in.offs == nil {
			in.offs = make([]int, in.node.Len())
			at := in.tape + 1
			for j := range in.offs {
				in.offs[j] = at
				if in.node.Kind() == doc.Object {
					_, v := in.node.Field(j)
					at += v.TapeLength()
				} else {
					at += in.node.Item(j).TapeLength()
				}
			}
		}
		c.tape = in.offs[i]
	}
	return c
}

// marks track which properties or items of an instance were evaluated, for
// unevaluatedProperties and unevaluatedItems.
type marks []bool

func (m marks) merge(o marks) {
	for i, v := range o {
		if v {
			m[i] = true
		}
	}
}

func (m marks) set(i int) {
	if m != nil {
		m[i] = true
	}
}

// fork returns empty marks for a branch, or nil when m isn't tracked.
func (m marks) fork() marks {
	if m == nil {
		return nil
	}
	return make(marks, len(m))
}

type evaluator struct {
	full  bool
	depth int
	errs  []OutputError
	notes []note
}

func (e *evaluator) mark() (int, int) { return len(e.errs), len(e.notes) }

func (e *evaluator) truncate(errs, notes int) {
	e.errs, e.notes = e.errs[:errs], e.notes[:notes]
}

func (e *evaluator) fail(s *Schema, kwLoc, keyword string, in *instance, code, msg string) bool {
	if !e.full {
		return false
	}
	abs := s.CURI
	if strings.Contains(abs, "#") {
		abs += "/" + keyword
	} else {
		abs += "#/" + keyword
	}
	e.errs = append(e.errs, OutputError{
		KeywordLocation:         kwLoc + "/" + keyword,
		InstanceLocation:        in.ptr.String(),
		InstanceValue:           instanceValue(in.node),
		AbsoluteKeywordLocation: abs,
		Error:                   msg,
		code:                    code,
	})
	return false
}

// schema evaluates in against s. m, when not nil, receives the properties or
// items that s evaluated successfully.
func (e *evaluator) schema(s *Schema, in *instance, kwLoc string, m marks) bool {
	e.depth++
	defer func() { e.depth-- }()
	if e.depth > MaxRecursionDepth {
		return e.fail(s, kwLoc, "$ref", in, codeRecursionDepth, "Recursion depth exceeded while validating the document")
	}

	local, own := m, false
	if s.unevalProp && in.node.Kind() == doc.Object || s.unevalItem && in.node.Kind() == doc.Array {
		local, own = make(marks, in.node.Len()), true
	}
	valid := true
	for i, kw := range s.Keywords {
		var ok bool
		switch k := kw.(type) {
		case *Annotation:
			e.annotate(k, in)
			ok = true
		case *Assertion:
			ok = e.assert(s, k, in, kwLoc)
		case *Application:
			ok = e.apply(s, i, k, in, kwLoc, local)
		}
		if !ok {
			valid = false
			if !e.full {
				break
			}
		}
	}
	if valid && own && m != nil {
		m.merge(local)
	}
	return valid
}

func (e *evaluator) annotate(a *Annotation, in *instance) {
	if in.tape < 0 || (a.Reduce == nil && !a.IsSecret()) {
		return
	}
	e.notes = append(e.notes, note{tape: in.tape, ptr: in.ptr, strategy: a.Reduce, secret: a.IsSecret()})
}

func (e *evaluator) assert(s *Schema, a *Assertion, in *instance, kwLoc string) bool {
	n := in.node
	kind := n.Kind()
	kw := a.Keyword()
	fail := func(code, msg string) bool { return e.fail(s, kwLoc, kw, in, code, msg) }

	switch a.Kind {
	case ValFalse:
		return fail(codeFalseSchema, "This location is not allowed to exist")
	case ValType:
		t := TypeOf(n)
		if t == Integer {
			t |= Fractional
		}
		if !a.Types.Overlaps(t) {
			return fail(codeInvalidType, "Type mismatch: expected a "+strings.Join(a.Types.Names(), " or "))
		}
	case ValConst, ValEnum:
		h := doc.Hash(n)
		for _, lit := range a.Literals {
			if lit.Hash == h && doc.Equal(n, doc.FromHeap(&lit.Value)) {
				return true
			}
		}
		if a.Kind == ValConst {
			return fail(codeInvalidConst, "Location does not match the expected constant")
		}
		return fail(codeInvalidEnum, "Location is not one of the enumerated constants")
	case ValMaxLength, ValMinLength:
		if kind != doc.String {
			return true
		}
		l := utf8.RuneCountInString(n.Str())
		if a.Kind == ValMaxLength && l > a.Count {
			return fail(codeTooLong, fmt.Sprintf("String is too long: expected at most %d characters, found %d", a.Count, l))
		}
		if a.Kind == ValMinLength && l < a.Count {
			return fail(codeTooShort, fmt.Sprintf("String is too short: expected at least %d characters, found %d", a.Count, l))
		}
	case ValPattern:
		if kind == doc.String && !a.Regex.MatchString(n.Str()) {
			return fail(codePattern, "String does not match the required pattern")
		}
	case ValFormat:
		if kind == doc.String && a.Format.Validate(n.Str()) == FormatInvalid {
			return fail(codeInvalidFormat, fmt.Sprintf("Format mismatch: expected a %q", string(a.Format)))
		}
	case ValMultipleOf:
		if kind.IsNumber() && !multipleOf(n, a.Number) {
			return fail(codeMultipleOf, "Number is not a multiple of the required factor")
		}
	case ValMaximum, ValExclusiveMaximum, ValMinimum, ValExclusiveMinimum:
		if !kind.IsNumber() {
			return true
		}
		c := doc.Compare(n, doc.FromHeap(&a.Number))
		switch {
		case a.Kind == ValMaximum && c > 0:
			return fail(codeTooBig, "Number exceeds the maximum")
		case a.Kind == ValExclusiveMaximum && c >= 0:
			return fail(codeTooBig, "Number exceeds the exclusive maximum")
		case a.Kind == ValMinimum && c < 0:
			return fail(codeTooSmall, "Number is below the minimum")
		case a.Kind == ValExclusiveMinimum && c <= 0:
			return fail(codeTooSmall, "Number is not greater than the exclusive minimum")
		}
	case ValMaxItems, ValMinItems:
		if kind != doc.Array {
			return true
		}
		l := n.Len()
		if a.Kind == ValMaxItems && l > a.Count {
			return fail(codeTooBig, fmt.Sprintf("Array has too many items: expected at most %d, found %d", a.Count, l))
		}
		if a.Kind == ValMinItems && l < a.Count {
			return fail(codeTooSmall, fmt.Sprintf("Array has too few items: expected at least %d, found %d", a.Count, l))
		}
	case ValUniqueItems:
		if kind == doc.Array && !uniqueItems(n) {
			return fail(codeNotUnique, "Array contains duplicate items when uniqueItems is required")
		}
	case ValMaxContains, ValMinContains:
		// Checked by the contains application.
	case ValMaxProperties, ValMinProperties:
		if kind != doc.Object {
			return true
		}
		l := n.Len()
		if a.Kind == ValMaxProperties && l > a.Count {
			return fail(codeTooBig, fmt.Sprintf("Object has too many properties: expected at most %d, found %d", a.Count, l))
		}
		if a.Kind == ValMinProperties && l < a.Count {
			return fail(codeTooSmall, fmt.Sprintf("Object has too few properties: expected at least %d, found %d", a.Count, l))
		}
	case ValRequired, ValDependentRequired:
		if kind != doc.Object {
			return true
		}
		if a.Kind == ValDependentRequired && !n.Get(a.If).Present() {
			return true
		}
		ok := true
		for _, p := range a.Props {
			if !n.Get(p).Present() {
				ok = fail(codeRequired, "Missing required property: "+p)
				if !e.full {
					return false
				}
			}
		}
		return ok
	}
	return true
}

func (e *evaluator) apply(s *Schema, at int, app *Application, in *instance, kwLoc string, m marks) bool {
	kw := app.Keyword()
	loc := kwLoc + "/" + kw
	if app.Index >= 0 {
		loc += "/" + itoa(app.Index)
	} else if app.Name != "" {
		loc += "/" + escapeToken(app.Name)
	}
	kind := in.node.Kind()

	switch app.Kind {
	case AppRef:
		return e.schema(app.Schema, in, loc, m)

	case AppAllOf:
		return e.schema(app.Schema, in, loc, m)

	case AppAnyOf, AppOneOf:
		if app.Index != 0 {
			return true
		}
		errs, notes := e.mark()
		matched := 0
		for _, kw := range s.Keywords[at:] {
			branch, ok := kw.(*Application)
			if !ok || branch.Kind != app.Kind {
				break
			}
			be, bn := e.mark()
			bm := m.fork()
			bloc := kwLoc + "/" + kw.Keyword() + "/" + itoa(branch.Index)
			if e.schema(branch.Schema, in, bloc, bm) {
				matched++
				if m != nil {
					m.merge(bm)
				}
			} else {
				e.truncate(be, bn)
			}
		}
		switch {
		case matched == 0:
			e.truncate(errs, notes)
			if app.Kind == AppAnyOf {
				return e.fail(s, kwLoc, kw, in, codeUnionNoMatch, "Location does not match any of the expected schemas")
			}
			return e.fail(s, kwLoc, kw, in, codeUnionNoMatch, "Location must match exactly one of the required schemas, but matched none")
		case matched > 1 && app.Kind == AppOneOf:
			e.truncate(errs, notes)
			return e.fail(s, kwLoc, kw, in, codeUnionAmbiguous, "Location matches multiple schemas when exactly one match is required")
		}
		return true

	case AppNot:
		errs, notes := e.mark()
		full := e.full
		e.full = false
		matched := e.schema(app.Schema, in, loc, nil)
		e.full = full
		e.truncate(errs, notes)
		if matched {
			return e.fail(s, kwLoc, kw, in, codeNot, "Location matches a schema that should not be matched")
		}
		return true

	case AppIf:
		errs, notes := e.mark()
		bm := m.fork()
		full := e.full
		e.full = false
		cond := e.schema(app.Schema, in, loc, bm)
		e.full = full
		want := AppElse
		if cond {
			want = AppThen
			if m != nil {
				m.merge(bm)
			}
		} else {
			e.truncate(errs, notes)
		}
		for _, kw := range s.Keywords {
			if branch, ok := kw.(*Application); ok && branch.Kind == want {
				return e.schema(branch.Schema, in, kwLoc+"/"+branch.Keyword(), m)
			}
		}
		return true

	case AppThen, AppElse, AppDef, AppDefinition:
		return true

	case AppDependentSchema:
		if kind != doc.Object || !in.node.Get(app.Name).Present() {
			return true
		}
		return e.schema(app.Schema, in, loc, m)

	case AppPropertyNames:
		if kind != doc.Object {
			return true
		}
		ok := true
		for i := 0; i < in.node.Len(); i++ {
			name, _ := in.node.Field(i)
			hn := doc.NewString(name)
			c := &instance{node: doc.FromHeap(&hn), tape: -1, ptr: in.ptr.Push(name)}
			if !e.schema(app.Schema, c, loc, nil) {
				ok = false
				if !e.full {
					return false
				}
			}
		}
		return ok

	case AppProperties, AppPatternProperties, AppAdditionalProperties, AppUnevaluatedProperties:
		if kind != doc.Object {
			return true
		}
		ok := true
		for i := 0; i < in.node.Len(); i++ {
			name, _ := in.node.Field(i)
			var applies bool
			switch app.Kind {
			case AppProperties:
				applies = name == app.Name
			case AppPatternProperties:
				applies = app.Regex.MatchString(name)
			case AppAdditionalProperties:
				applies = !namedByProperties(s, name)
			case AppUnevaluatedProperties:
				applies = !m[i]
			}
			if !applies {
				continue
			}
			if e.schema(app.Schema, in.child(i), loc, nil) {
				m.set(i)
			} else {
				ok = false
				if !e.full {
					return false
				}
			}
		}
		return ok

	case AppPrefixItems, AppItems, AppAdditionalItems, AppUnevaluatedItems:
		if kind != doc.Array {
			return true
		}
		from, to := s.tuple, in.node.Len()
		switch {
		case app.Index >= 0:
			if app.Index >= to {
				return true
			}
			from, to = app.Index, app.Index+1
		case app.Kind == AppAdditionalItems && !hasTupleItems(s):
			return true
		case app.Kind == AppUnevaluatedItems:
			from = 0
		}
		ok := true
		for i := from; i < to; i++ {
			if app.Kind == AppUnevaluatedItems && m[i] {
				continue
			}
			if e.schema(app.Schema, in.child(i), loc, nil) {
				m.set(i)
			} else {
				ok = false
				if !e.full {
					return false
				}
			}
		}
		return ok

	case AppContains:
		if kind != doc.Array {
			return true
		}
		full := e.full
		e.full = false
		found := 0
		for i := 0; i < in.node.Len(); i++ {
			errs, notes := e.mark()
			if e.schema(app.Schema, in.child(i), loc, nil) {
				found++
				m.set(i)
			} else {
				e.truncate(errs, notes)
			}
		}
		e.full = full
		for _, kw := range s.Keywords {
			a, ok := kw.(*Assertion)
			if !ok {
				continue
			}
			if a.Kind == ValMinContains && found < a.Count {
				return e.fail(s, kwLoc, "minContains", in, codeContains,
					fmt.Sprintf("Array contains too few matching items: expected at least %d, found %d", a.Count, found))
			}
			if a.Kind == ValMaxContains && found > a.Count {
				return e.fail(s, kwLoc, "maxContains", in, codeContains,
					fmt.Sprintf("Array contains too many matching items: expected at most %d, found %d", a.Count, found))
			}
		}
		return true
	}
	return true
}

func namedByProperties(s *Schema, name string) bool {
	for _, kw := range s.Keywords {
		app, ok := kw.(*Application)
		if !ok {
			continue
		}
		switch app.Kind {
		case AppProperties:
			if app.Name == name {
				return true
			}
		case AppPatternProperties:
			if app.Regex.MatchString(name) {
				return true
			}
		}
	}
	return false
}

func hasTupleItems(s *Schema) bool {
	for _, kw := range s.Keywords {
		if app, ok := kw.(*Application); ok && app.Kind == AppItems && app.Index >= 0 {
			return true
		}
	}
	return false
}

func multipleOf(n doc.Lazy, by doc.HeapNode) bool {
	if n.Kind() == doc.PosInt && by.Kind() == doc.PosInt && by.PosInt() != 0 {
		return n.PosInt()%by.PosInt() == 0
	}
	d := asFloat(by)
	if d == 0 {
		return false
	}
	q := asFloat(n) / d
	return math.Abs(q-math.Round(q)) < 1e-9*math.Max(1, math.Abs(q))
}

func asFloat[N doc.Node[N]](n N) float64 {
	switch n.Kind() {
	case doc.PosInt:
		return float64(n.PosInt())
	case doc.NegInt:
		return float64(n.NegInt())
	case doc.Float:
		return n.Float()
	}
	return math.NaN()
}

func uniqueItems(n doc.Lazy) bool {
	seen := make(map[uint64][]int, n.Len())
	for i := 0; i < n.Len(); i++ {
		item := n.Item(i)
		h := doc.Hash(item)
		for _, j := range seen[h] {
			if doc.Equal(item, n.Item(j)) {
				return false
			}
		}
		seen[h] = append(seen[h], i)
	}
	return true
}
