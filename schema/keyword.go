package schema

import (
	"regexp"
	"strconv"

	"github.com/reoring/flowdoc/doc"
	"github.com/reoring/flowdoc/reduce"
)

// Schema is a built JSON-Schema. Sub-schemas are reached through the
// Application keywords of their parent.
type Schema struct {
	CURI     string
	Keywords []Keyword

	anchors    []string
	unevalProp bool
	unevalItem bool
	// tuple is the number of positional item schemas, from prefixItems or
	// an array-valued items.
	tuple int
}

// Keyword is one of *Application, *Assertion or *Annotation.
type Keyword interface {
	Keyword() string
}

// AppKind enumerates the applicator keywords.
type AppKind uint8

const (
	AppRef AppKind = iota
	AppAllOf
	AppAnyOf
	AppOneOf
	AppNot
	AppIf
	AppThen
	AppElse
	AppDependentSchema
	AppPropertyNames
	AppProperties
	AppPatternProperties
	AppAdditionalProperties
	AppUnevaluatedProperties
	AppContains
	AppItems
	AppPrefixItems
	AppAdditionalItems
	AppUnevaluatedItems
	AppDef
	AppDefinition
)

var appKeywords = [...]string{
	AppRef:                   "$ref",
	AppAllOf:                 "allOf",
	AppAnyOf:                 "anyOf",
	AppOneOf:                 "oneOf",
	AppNot:                   "not",
	AppIf:                    "if",
	AppThen:                  "then",
	AppElse:                  "else",
	AppDependentSchema:       "dependentSchemas",
	AppPropertyNames:         "propertyNames",
	AppProperties:            "properties",
	AppPatternProperties:     "patternProperties",
	AppAdditionalProperties:  "additionalProperties",
	AppUnevaluatedProperties: "unevaluatedProperties",
	AppContains:              "contains",
	AppItems:                 "items",
	AppPrefixItems:           "prefixItems",
	AppAdditionalItems:       "additionalItems",
	AppUnevaluatedItems:      "unevaluatedItems",
	AppDef:                   "$defs",
	AppDefinition:            "definitions",
}

// Application applies a child schema, either in place or to children of
// the instance.
type Application struct {
	Kind AppKind
	// Index of allOf, anyOf, oneOf and tuple items children. -1 otherwise.
	Index int
	// Name is the property of properties, dependentSchemas, $defs and
	// definitions children.
	Name string
	// Ref is the resolved target of $ref.
	Ref    string
	Regex  *regexp.Regexp
	Schema *Schema
}

func (a *Application) Keyword() string { return appKeywords[a.Kind] }

func itoa(i int) string { return strconv.Itoa(i) }

// fragment returns the JSON-Pointer tokens this application adds to its
// child's canonical URI fragment.
func (a *Application) fragment() []string {
	kw := a.Keyword()
	switch a.Kind {
	case AppAllOf, AppAnyOf, AppOneOf, AppPrefixItems:
		return []string{kw, itoa(a.Index)}
	case AppItems:
		if a.Index >= 0 {
			return []string{kw, itoa(a.Index)}
		}
	case AppProperties, AppDependentSchema, AppDef, AppDefinition:
		return []string{kw, a.Name}
	case AppPatternProperties:
		return []string{kw, a.Regex.String()}
	case AppRef:
		return nil
	}
	return []string{kw}
}

// ValKind enumerates the assertion keywords.
type ValKind uint8

const (
	ValFalse ValKind = iota
	ValType
	ValConst
	ValEnum
	ValMaxLength
	ValMinLength
	ValPattern
	ValFormat
	ValMultipleOf
	ValMaximum
	ValExclusiveMaximum
	ValMinimum
	ValExclusiveMinimum
	ValMaxItems
	ValMinItems
	ValUniqueItems
	ValMaxContains
	ValMinContains
	ValMaxProperties
	ValMinProperties
	ValRequired
	ValDependentRequired
)

var valKeywords = [...]string{
	ValFalse:             "false",
	ValType:              "type",
	ValConst:             "const",
	ValEnum:              "enum",
	ValMaxLength:         "maxLength",
	ValMinLength:         "minLength",
	ValPattern:           "pattern",
	ValFormat:            "format",
	ValMultipleOf:        "multipleOf",
	ValMaximum:           "maximum",
	ValExclusiveMaximum:  "exclusiveMaximum",
	ValMinimum:           "minimum",
	ValExclusiveMinimum:  "exclusiveMinimum",
	ValMaxItems:          "maxItems",
	ValMinItems:          "minItems",
	ValUniqueItems:       "uniqueItems",
	ValMaxContains:       "maxContains",
	ValMinContains:       "minContains",
	ValMaxProperties:     "maxProperties",
	ValMinProperties:     "minProperties",
	ValRequired:          "required",
	ValDependentRequired: "dependentRequired",
}

// Literal is a const or enum value with its content hash.
type Literal struct {
	Value doc.HeapNode
	Hash  uint64
}

// Assertion asserts a property of the instance itself. Which fields are set
// depends on Kind.
type Assertion struct {
	Kind     ValKind
	Types    Types
	Literals []Literal
	// Number bounds maximum, minimum and multipleOf.
	Number doc.HeapNode
	// Count bounds length, items, contains and properties.
	Count  int
	Regex  *regexp.Regexp
	Format Format
	// Props lists required properties. For dependentRequired they're
	// required when If is present.
	Props []string
	If    string
}

func (v *Assertion) Keyword() string { return valKeywords[v.Kind] }

// Annotation is a keyword which annotates the instance without constraining
// it. Value is the keyword's decoded JSON. Reduce annotations carry their
// parsed strategy.
type Annotation struct {
	Name   string
	Value  any
	Reduce reduce.Strategy
}

func (a *Annotation) Keyword() string { return a.Name }

// IsSecret reports whether the annotation marks its location as secret.
func (a *Annotation) IsSecret() bool {
	if a.Name != "secret" && a.Name != "airbyte_secret" {
		return false
	}
	b, _ := a.Value.(bool)
	return b
}
