package workspace

import (
	"sort"
	"strings"
)

// Set owns the documents of one workspace together with the module
// registry and the import edges between them. It is not safe for
// concurrent use; the build pipeline is its only writer.
type Set struct {
	docs     map[string]*Document
	registry *Registry
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{
		docs:     make(map[string]*Document),
		registry: NewRegistry(),
	}
}

// Registry returns the module registry.
func (s *Set) Registry() *Registry { return s.registry }

// Get returns the document for uri, or nil.
func (s *Set) Get(uri string) *Document { return s.docs[uri] }

// GetOrCreate returns the document for uri, creating it in state Changed.
func (s *Set) GetOrCreate(uri string) (*Document, bool) {
	if d, ok := s.docs[uri]; ok {
		return d, false
	}
	d := NewDocument(uri)
	s.docs[uri] = d
	return d, true
}

// Len returns the number of documents.
func (s *Set) Len() int { return len(s.docs) }

// Documents returns every document sorted by URI.
func (s *Set) Documents() []*Document {
	out := make([]*Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })
	return out
}

// Delete removes uri with its registry entry and outgoing edges. It
// returns the URIs of documents that imported it, sorted.
func (s *Set) Delete(uri string) []string {
	d, ok := s.docs[uri]
	if !ok {
		return nil
	}
	s.registry.Remove(d)
	s.RemoveEdges(d)
	delete(s.docs, uri)
	importers := make([]string, 0, len(d.ImportedBy))
	for u := range d.ImportedBy {
		if u != uri {
			importers = append(importers, u)
		}
	}
	sort.Strings(importers)
	return importers
}

// RemoveEdges drops every edge from d to the documents it linked against.
func (s *Set) RemoveEdges(d *Document) {
	for uri := range d.LinkedTo {
		if t, ok := s.docs[uri]; ok {
			delete(t.ImportedBy, d.URI)
		}
	}
	d.LinkedTo = make(map[string]struct{})
}

// AddEdges records that d linked against each of targets.
func (s *Set) AddEdges(d *Document, targets []string) {
	for _, uri := range targets {
		t, ok := s.docs[uri]
		if !ok || t == d {
			continue
		}
		t.ImportedBy[d.URI] = struct{}{}
		d.LinkedTo[uri] = struct{}{}
	}
}

// Importers returns the URIs of documents that linked against d, sorted.
func (s *Set) Importers(d *Document) []string {
	out := make([]string, 0, len(d.ImportedBy))
	for u := range d.ImportedBy {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// WaitingFor returns documents whose last link could not resolve an
// import named by path. They need relinking once path is registered.
func (s *Set) WaitingFor(path []string) []*Document {
	var out []*Document
	for _, d := range s.Documents() {
		for _, name := range d.UnresolvedImports {
			if QualifiedEqual(splitModule(name), path) {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

func splitModule(name string) []string {
	return strings.Split(name, ".")
}
