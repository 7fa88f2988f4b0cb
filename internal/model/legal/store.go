package legal

// Store exposes catalog retrieval for HTTP handlers.
type Store interface {
	Templates() []Template
	Template(id string) (Template, bool)
	Glossary() []Term
	Term(id string) (Term, bool)
	Categories() []CategoryInfo
}

// MemoryStore implements Store over an in-memory catalog.
type MemoryStore struct {
	catalog Catalog
}

// NewMemoryStore returns a MemoryStore holding a copy of the catalog.
func NewMemoryStore(catalog Catalog) *MemoryStore {
	return &MemoryStore{catalog: Catalog{
		Templates:  append([]Template(nil), catalog.Templates...),
		Glossary:   append([]Term(nil), catalog.Glossary...),
		Categories: append([]CategoryInfo(nil), catalog.Categories...),
	}}
}

// Templates lists template metadata without bodies.
func (s *MemoryStore) Templates() []Template {
	out := make([]Template, 0, len(s.catalog.Templates))
	for _, item := range s.catalog.Templates {
		out = append(out, item.Summary())
	}
	return out
}

// Template looks up a template by identifier.
func (s *MemoryStore) Template(id string) (Template, bool) {
	for _, item := range s.catalog.Templates {
		if item.ID == id {
			return item, true
		}
	}
	return Template{}, false
}

// Glossary returns every glossary term.
func (s *MemoryStore) Glossary() []Term {
	return append([]Term(nil), s.catalog.Glossary...)
}

// Term looks up a glossary term by identifier.
func (s *MemoryStore) Term(id string) (Term, bool) {
	for _, item := range s.catalog.Glossary {
		if item.ID == id {
			return item, true
		}
	}
	return Term{}, false
}

// Categories returns the category listing.
func (s *MemoryStore) Categories() []CategoryInfo {
	return append([]CategoryInfo(nil), s.catalog.Categories...)
}
