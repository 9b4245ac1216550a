package workspace

import (
	"slices"
	"sort"
	"strings"
)

// QualifiedEqual reports whether a reference's module path names module.
// The reference path must equal a trailing run of module's segments, so
// "b" and "a.b" name module "a.b" while "c.b" and "x.a.b" do not. An empty
// reference path names every module.
func QualifiedEqual(ref, module []string) bool {
	if len(ref) > len(module) {
		return false
	}
	off := len(module) - len(ref)
	for i, seg := range ref {
		if module[off+i] != seg {
			return false
		}
	}
	return true
}

type registration struct {
	path []string
	doc  *Document
}

// Registry maps module names to the documents that declare them. It is
// keyed by the last segment of the module name; lookups then filter with
// QualifiedEqual.
type Registry struct {
	byName map[string][]registration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string][]registration)}
}

// Register records doc under its current module name, replacing any
// earlier registration of doc. It returns the other documents registered
// under exactly the same name, sorted by URI.
func (r *Registry) Register(doc *Document) []*Document {
	r.Remove(doc)
	path := doc.ModulePath()
	if len(path) == 0 {
		return nil
	}
	key := path[len(path)-1]
	others := r.Named(path)
	r.byName[key] = append(r.byName[key], registration{path: path, doc: doc})
	sort.SliceStable(r.byName[key], func(i, j int) bool {
		return r.byName[key][i].doc.URI < r.byName[key][j].doc.URI
	})
	return others
}

// Named returns every document registered under exactly path, sorted by
// URI.
func (r *Registry) Named(path []string) []*Document {
	if len(path) == 0 {
		return nil
	}
	var out []*Document
	for _, reg := range r.byName[path[len(path)-1]] {
		if slices.Equal(reg.path, path) {
			out = append(out, reg.doc)
		}
	}
	return out
}

// Owner returns the document that holds path when several declare it:
// the one with the lowest URI. It returns nil when path is unregistered.
func (r *Registry) Owner(path []string) *Document {
	if named := r.Named(path); len(named) > 0 {
		return named[0]
	}
	return nil
}

// Remove drops every registration of doc.
func (r *Registry) Remove(doc *Document) {
	for key, regs := range r.byName {
		kept := regs[:0]
		for _, reg := range regs {
			if reg.doc.URI != doc.URI {
				kept = append(kept, reg)
			}
		}
		if len(kept) == 0 {
			delete(r.byName, key)
			continue
		}
		r.byName[key] = kept
	}
}

// Lookup returns the document whose module is named by path. An exact
// match wins over a suffix match; among equals the lowest URI wins.
func (r *Registry) Lookup(path []string) *Document {
	if len(path) == 0 {
		return nil
	}
	var best *Document
	for _, reg := range r.byName[path[len(path)-1]] {
		if slices.Equal(reg.path, path) {
			return reg.doc
		}
		if best == nil && QualifiedEqual(path, reg.path) {
			best = reg.doc
		}
	}
	return best
}

// Modules returns every registered module name, sorted.
func (r *Registry) Modules() []string {
	var out []string
	for _, regs := range r.byName {
		for _, reg := range regs {
			out = append(out, strings.Join(reg.path, "."))
		}
	}
	sort.Strings(out)
	return out
}
