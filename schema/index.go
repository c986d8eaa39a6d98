package schema

import "sort"

// IndexBuilder collects schemas and their sub-schemas by canonical URI.
type IndexBuilder struct {
	byURI map[string]*Schema
	roots []*Schema
}

func NewIndexBuilder() *IndexBuilder {
	return &IndexBuilder{byURI: map[string]*Schema{}}
}

// Add registers a copy of s, every sub-schema of s and every $anchor they
// declare. s itself isn't modified, and may be added to other builders.
func (b *IndexBuilder) Add(s *Schema) error {
	s = s.clone()
	if err := b.add(s); err != nil {
		return err
	}
	b.roots = append(b.roots, s)
	return nil
}

func (b *IndexBuilder) add(s *Schema) error {
	if _, ok := b.byURI[s.CURI]; ok {
		return &DuplicateCanonicalURIError{CURI: s.CURI}
	}
	b.byURI[s.CURI] = s
	for _, anchor := range s.anchors {
		if _, ok := b.byURI[anchor]; ok {
			return &DuplicateAnchorError{Anchor: anchor}
		}
		b.byURI[anchor] = s
	}
	for _, kw := range s.Keywords {
		if app, ok := kw.(*Application); ok && app.Kind != AppRef {
			if err := b.add(app.Schema); err != nil {
				return err
			}
		}
	}
	return nil
}

// clone copies the tree of s. References are left unlinked.
func (s *Schema) clone() *Schema {
	if s == nil {
		return nil
	}
	c := *s
	c.Keywords = make([]Keyword, len(s.Keywords))
	for i, kw := range s.Keywords {
		if app, ok := kw.(*Application); ok {
			a := *app
			if a.Kind == AppRef {
				a.Schema = nil
			} else {
				a.Schema = a.Schema.clone()
			}
			kw = &a
		}
		c.Keywords[i] = kw
	}
	return &c
}

// Build verifies that every $ref resolves, links each to its target, and
// returns the finished Index.
func (b *IndexBuilder) Build() (*Index, error) {
	if err := b.VerifyReferences(); err != nil {
		return nil, err
	}
	for _, s := range b.byURI {
		for _, kw := range s.Keywords {
			if app, ok := kw.(*Application); ok && app.Kind == AppRef {
				app.Schema = b.byURI[app.Ref]
			}
		}
	}
	idx := &Index{byURI: b.byURI, roots: b.roots}
	b.byURI, b.roots = map[string]*Schema{}, nil
	return idx, nil
}

// VerifyReferences fails on the first $ref, in canonical URI order, that
// has no registered target.
func (b *IndexBuilder) VerifyReferences() error {
	uris := make([]string, 0, len(b.byURI))
	for uri := range b.byURI {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	for _, uri := range uris {
		s := b.byURI[uri]
		if s.CURI != uri {
			continue // anchor alias
		}
		for _, kw := range s.Keywords {
			if app, ok := kw.(*Application); ok && app.Kind == AppRef {
				if _, ok := b.byURI[app.Ref]; !ok {
					return &InvalidReferenceError{Ref: app.Ref, CURI: s.CURI}
				}
			}
		}
	}
	return nil
}

// Index holds built schemas for validation. It's immutable and safe for
// concurrent use.
type Index struct {
	byURI map[string]*Schema
	roots []*Schema
}

// Fetch returns the schema or anchor target registered at uri.
func (i *Index) Fetch(uri string) (*Schema, bool) {
	s, ok := i.byURI[normalizeURI(uri)]
	return s, ok
}

// Roots returns the schemas added to the builder, in order.
func (i *Index) Roots() []*Schema { return i.roots }
