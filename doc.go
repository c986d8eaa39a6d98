// Package flowdoc is a document engine for data-integration pipelines.
//
// It provides:
//
// - A document model with borrowed, owned (arena) and archived forms (package doc)
// - A JSON-Schema validator that also yields per-location reduction strategies (package schema)
// - Reduction strategies used to merge documents sharing a key (package reduce)
// - Shape inference over schemas and observed documents (package shape)
// - A key-grouped combiner that spills sorted segments to disk (package combine)
//
// The root package keeps only the shared surface: the Issue error model, parse
// options, and the pluggable JSON driver used to read documents.
//
// Typical usage:
//
//	arena := doc.NewArena()
//	root, err := doc.ParseJSON(arena, flowdoc.JSONBytes(data), flowdoc.StrictParseOpt())
//	v, err := validator.Validate(schemaURI, doc.FromHeap(root))
//	if _, failed := v.Ok(); failed != nil {
//		return failed.Issues()
//	}
package flowdoc
