package schema

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"slices"
	"sort"
	"strings"

	j "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/reoring/flowdoc/doc"
	eng "github.com/reoring/flowdoc/internal/engine"
	"github.com/reoring/flowdoc/reduce"
)

// BuildJSON decodes a JSON schema document and builds it.
func BuildJSON(curi string, data []byte) (*Schema, error) {
	dec := j.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &AtSchemaError{CURI: curi, Err: err}
	}
	return Build(curi, v)
}

// BuildYAML decodes a YAML schema document and builds it.
func BuildYAML(curi string, data []byte) (*Schema, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, &AtSchemaError{CURI: curi, Err: err}
	}
	return Build(curi, yamlNormalize(v))
}

// yamlNormalize converts YAML-decoded values, which may contain map[any]any,
// into the JSON-like form Build expects.
func yamlNormalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = yamlNormalize(vv)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[fmt.Sprint(k)] = yamlNormalize(vv)
		}
		return out
	case []any:
		arr := make([]any, len(t))
		for i := range t {
			arr[i] = yamlNormalize(t[i])
		}
		return arr
	default:
		return v
	}
}

// Build builds a schema from its decoded JSON (or YAML) form. curi is the
// canonical URI of the root, and the base against which $id and $ref
// resolve.
func Build(curi string, v any) (*Schema, error) {
	base, err := url.Parse(curi)
	if err != nil {
		return nil, &AtSchemaError{CURI: curi, Err: err}
	}
	b := &builder{arena: doc.NewArena()}
	return b.build(base, nil, v)
}

type builder struct {
	arena *doc.Arena
}

// canonical renders base with a JSON-Pointer fragment of frag.
func canonical(base *url.URL, frag []string) string {
	u := *base
	u.Fragment, u.RawFragment = "", ""
	if len(frag) != 0 {
		var sb strings.Builder
		for _, t := range frag {
			sb.WriteByte('/')
			sb.WriteString(eng.EscapePointerToken(t))
		}
		u.Fragment = sb.String()
	}
	return u.String()
}

// normalizeURI makes uri comparable with canonical URIs. An empty fragment
// is dropped.
func normalizeURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	return u.String()
}

var (
	appByName = map[string]AppKind{}
	valByName = map[string]ValKind{}
)

func init() {
	for k, name := range appKeywords {
		appByName[name] = AppKind(k)
	}
	for k, name := range valKeywords {
		valByName[name] = ValKind(k)
	}
}

var annotationKeywords = map[string]bool{
	"title":            true,
	"description":      true,
	"default":          true,
	"examples":         true,
	"example":          true,
	"deprecated":       true,
	"readOnly":         true,
	"writeOnly":        true,
	"contentEncoding":  true,
	"contentMediaType": true,
	"reduce":           true,
	"secret":           true,
	"airbyte_secret":   true,
	"multiline":        true,
	"advanced":         true,
	"order":            true,
	"discriminator":    true,
}

func (b *builder) build(base *url.URL, frag []string, v any) (*Schema, error) {
	curi := canonical(base, frag)

	m, ok := v.(map[string]any)
	if !ok {
		flag, ok := v.(bool)
		if !ok {
			return nil, &AtSchemaError{CURI: curi, Err: ErrExpectedSchema}
		}
		s := &Schema{CURI: curi}
		if !flag {
			s.Keywords = []Keyword{&Assertion{Kind: ValFalse}}
		}
		return s, nil
	}

	if id, ok := m["$id"]; ok {
		str, ok := id.(string)
		if !ok {
			return nil, &AtKeywordError{CURI: curi, Keyword: "$id", Err: ErrExpectedString}
		}
		ref, err := url.Parse(str)
		if err != nil {
			return nil, &AtKeywordError{CURI: curi, Keyword: "$id", Err: err}
		}
		if ref.Fragment != "" {
			return nil, &AtKeywordError{CURI: curi, Keyword: "$id", Err: &UnexpectedFragmentError{Fragment: ref.Fragment}}
		}
		base, frag = base.ResolveReference(ref), nil
		curi = canonical(base, nil)
	}
	s := &Schema{CURI: curi}

	if a, ok := m["$anchor"]; ok {
		str, ok := a.(string)
		if !ok {
			return nil, &AtKeywordError{CURI: curi, Keyword: "$anchor", Err: ErrExpectedString}
		}
		u := *base
		u.Fragment, u.RawFragment = str, ""
		s.anchors = append(s.anchors, u.String())
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		typ       *Assertion
		nullable  bool
		contains  bool
		minCounts bool
	)
	for _, k := range keys {
		err := b.keyword(s, base, frag, k, m[k])
		if err != nil {
			return nil, err
		}
		switch k {
		case "nullable":
			nullable, _ = m[k].(bool)
		case "contains":
			contains = true
		case "minContains":
			minCounts = true
		}
	}

	for _, kw := range s.Keywords {
		if a, ok := kw.(*Assertion); ok && a.Kind == ValType {
			typ = a
		}
	}
	if nullable && typ != nil {
		typ.Types |= Null
	}
	if contains && !minCounts {
		s.Keywords = append(s.Keywords, &Assertion{Kind: ValMinContains, Count: 1})
	}
	if !contains {
		s.Keywords = slices.DeleteFunc(s.Keywords, func(kw Keyword) bool {
			a, ok := kw.(*Assertion)
			return ok && (a.Kind == ValMinContains || a.Kind == ValMaxContains)
		})
	}
	sort.SliceStable(s.Keywords, func(i, j int) bool {
		return keywordRank(s.Keywords[i]) < keywordRank(s.Keywords[j])
	})
	for _, kw := range s.Keywords {
		if a, ok := kw.(*Application); ok {
			switch a.Kind {
			case AppUnevaluatedProperties:
				s.unevalProp = true
			case AppUnevaluatedItems:
				s.unevalItem = true
			case AppPrefixItems, AppItems:
				if a.Index >= 0 && a.Index+1 > s.tuple {
					s.tuple = a.Index + 1
				}
			}
		}
	}
	return s, nil
}

// keywordRank orders keywords for evaluation. Annotations come first so a
// schema's own annotations take precedence over those of its in-place
// applications. Unevaluated keywords come last, after everything that can
// evaluate a property or item.
func keywordRank(kw Keyword) int {
	switch k := kw.(type) {
	case *Annotation:
		return 0
	case *Assertion:
		return 1
	case *Application:
		switch k.Kind {
		case AppProperties:
			return 3
		case AppPatternProperties:
			return 4
		case AppAdditionalProperties:
			return 5
		case AppPrefixItems:
			return 6
		case AppItems:
			return 7
		case AppAdditionalItems:
			return 8
		case AppContains:
			return 9
		case AppIf, AppThen, AppElse:
			return 10
		case AppUnevaluatedProperties:
			return 11
		case AppUnevaluatedItems:
			return 12
		}
	}
	return 2
}

func (b *builder) keyword(s *Schema, base *url.URL, frag []string, k string, v any) error {
	kwErr := func(err error) error {
		return &AtKeywordError{CURI: s.CURI, Keyword: k, Err: err}
	}
	apply := func(app *Application, v any) error {
		child, err := b.build(base, append(slices.Clip(frag), app.fragment()...), v)
		if err != nil {
			return err
		}
		app.Schema = child
		s.Keywords = append(s.Keywords, app)
		return nil
	}
	assert := func(a *Assertion) error {
		s.Keywords = append(s.Keywords, a)
		return nil
	}

	switch k {
	case "$schema", "$vocabulary", "$comment", "$id", "$anchor", "$recursiveAnchor", "$dynamicAnchor", "nullable":
		return nil

	case "$ref", "$recursiveRef", "$dynamicRef":
		str, ok := v.(string)
		if !ok {
			return kwErr(ErrExpectedString)
		}
		ref, err := url.Parse(str)
		if err != nil {
			return kwErr(err)
		}
		from, err := url.Parse(s.CURI)
		if err != nil {
			return kwErr(err)
		}
		// The target's fragment is always the reference's own, even when
		// empty.
		target := from.ResolveReference(ref)
		target.Fragment, target.RawFragment = ref.Fragment, ref.RawFragment
		s.Keywords = append(s.Keywords, &Application{
			Kind:  AppRef,
			Index: -1,
			Ref:   target.String(),
		})
		return nil

	case "allOf", "anyOf", "oneOf", "prefixItems":
		arr, ok := v.([]any)
		if !ok {
			return kwErr(ErrExpectedArray)
		}
		kind := appByName[k]
		for i, item := range arr {
			if err := apply(&Application{Kind: kind, Index: i}, item); err != nil {
				return err
			}
		}
		return nil

	case "items":
		arr, ok := v.([]any)
		if !ok {
			if !isSchema(v) {
				return kwErr(ErrExpectedSchemaOrArray)
			}
			return apply(&Application{Kind: AppItems, Index: -1}, v)
		}
		for i, item := range arr {
			if err := apply(&Application{Kind: AppItems, Index: i}, item); err != nil {
				return err
			}
		}
		return nil

	case "not", "if", "then", "else", "propertyNames", "additionalProperties",
		"unevaluatedProperties", "contains", "additionalItems", "unevaluatedItems":
		kind := appByName[k]
		return apply(&Application{Kind: kind, Index: -1}, v)

	case "properties", "dependentSchemas", "$defs", "definitions", "patternProperties":
		obj, ok := v.(map[string]any)
		if !ok {
			return kwErr(ErrExpectedObject)
		}
		kind := appByName[k]
		names := make([]string, 0, len(obj))
		for name := range obj {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			app := &Application{Kind: kind, Index: -1, Name: name}
			if kind == AppPatternProperties {
				re, err := regexp.Compile(name)
				if err != nil {
					return kwErr(err)
				}
				app.Regex = re
			}
			if err := apply(app, obj[name]); err != nil {
				return err
			}
		}
		return nil

	case "type":
		t, err := parseTypes(v)
		if err != nil {
			return kwErr(&ExpectedTypeError{Err: err})
		}
		return assert(&Assertion{Kind: ValType, Types: t})

	case "const":
		lit, err := b.literal(v)
		if err != nil {
			return kwErr(err)
		}
		return assert(&Assertion{Kind: ValConst, Literals: []Literal{lit}})

	case "enum":
		arr, ok := v.([]any)
		if !ok {
			return kwErr(ErrExpectedArray)
		}
		a := &Assertion{Kind: ValEnum}
		for _, item := range arr {
			lit, err := b.literal(item)
			if err != nil {
				return kwErr(err)
			}
			a.Literals = append(a.Literals, lit)
		}
		return assert(a)

	case "maxLength", "minLength", "maxItems", "minItems", "maxContains",
		"minContains", "maxProperties", "minProperties":
		n, err := b.count(v)
		if err != nil {
			return kwErr(err)
		}
		kind := valByName[k]
		return assert(&Assertion{Kind: kind, Count: n})

	case "multipleOf", "maximum", "exclusiveMaximum", "minimum", "exclusiveMinimum":
		n, err := doc.FromAny(b.arena, v)
		if err != nil || !n.Kind().IsNumber() {
			return kwErr(ErrExpectedNumber)
		}
		kind := valByName[k]
		return assert(&Assertion{Kind: kind, Number: n})

	case "pattern":
		str, ok := v.(string)
		if !ok {
			return kwErr(ErrExpectedString)
		}
		re, err := regexp.Compile(str)
		if err != nil {
			return kwErr(err)
		}
		return assert(&Assertion{Kind: ValPattern, Regex: re})

	case "format":
		str, ok := v.(string)
		if !ok {
			return kwErr(ErrExpectedString)
		}
		return assert(&Assertion{Kind: ValFormat, Format: Format(str)})

	case "uniqueItems":
		flag, ok := v.(bool)
		if !ok {
			return kwErr(ErrExpectedBool)
		}
		if flag {
			return assert(&Assertion{Kind: ValUniqueItems})
		}
		return nil

	case "required":
		props, err := stringArray(v)
		if err != nil {
			return kwErr(err)
		}
		return assert(&Assertion{Kind: ValRequired, Props: props})

	case "dependentRequired":
		obj, ok := v.(map[string]any)
		if !ok {
			return kwErr(ErrExpectedObject)
		}
		names := make([]string, 0, len(obj))
		for name := range obj {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			props, err := stringArray(obj[name])
			if err != nil {
				return kwErr(err)
			}
			s.Keywords = append(s.Keywords, &Assertion{Kind: ValDependentRequired, If: name, Props: props})
		}
		return nil
	}

	if annotationKeywords[k] || strings.HasPrefix(k, "x-") || strings.HasPrefix(k, "X-") {
		a := &Annotation{Name: k, Value: v}
		if k == "reduce" {
			strategy, err := reduce.Parse(v)
			if err != nil {
				return kwErr(err)
			}
			a.Reduce = strategy
		}
		s.Keywords = append(s.Keywords, a)
		return nil
	}
	return kwErr(&UnknownKeywordError{Keyword: k})
}

func isSchema(v any) bool {
	switch v.(type) {
	case bool, map[string]any:
		return true
	}
	return false
}

func (b *builder) literal(v any) (Literal, error) {
	n, err := doc.FromAny(b.arena, v)
	if err != nil {
		return Literal{}, err
	}
	return Literal{Value: n, Hash: doc.Hash(n)}, nil
}

func (b *builder) count(v any) (int, error) {
	n, err := doc.FromAny(b.arena, v)
	if err != nil {
		return 0, ErrExpectedUnsigned
	}
	switch n.Kind() {
	case doc.PosInt:
		if n.PosInt() > math.MaxInt32 {
			return math.MaxInt32, nil
		}
		return int(n.PosInt()), nil
	case doc.Float:
		if f := n.Float(); f >= 0 && f == math.Trunc(f) && f <= math.MaxInt32 {
			return int(f), nil
		}
	}
	return 0, ErrExpectedUnsigned
}

func stringArray(v any) ([]string, error) {
	arr, ok := v.([]any)
	if !ok {
		return nil, ErrExpectedStringArray
	}
	out := make([]string, len(arr))
	for i, item := range arr {
		str, ok := item.(string)
		if !ok {
			return nil, ErrExpectedStringArray
		}
		out[i] = str
	}
	return out, nil
}
