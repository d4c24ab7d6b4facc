package template

import (
	"regexp"
	"sort"
	"sync"

	"github.com/IntegratedRai444/zipzydeliver-sub001/internal/domain"
)

var placeholderRegexp = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// Registry is the in-memory template catalog. Templates are registered once
// at startup and treated as immutable afterwards; lookups happen on every
// templated send.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]*domain.Template
}

// NewRegistry creates a registry preloaded with the given templates.
func NewRegistry(templates ...*domain.Template) *Registry {
	r := &Registry{templates: make(map[string]*domain.Template, len(templates))}
	for _, t := range templates {
		r.Register(t)
	}
	return r
}

// Register adds the template to the catalog, overwriting any existing
// template with the same id.
func (r *Registry) Register(t *domain.Template) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[t.ID] = t
}

// Lookup returns the template with the given id, or false if none is
// registered. An unknown id is the caller's error to handle.
func (r *Registry) Lookup(id string) (*domain.Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[id]
	return t, ok
}

// List returns all registered templates ordered by id.
func (r *Registry) List() []*domain.Template {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Template, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of registered templates.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.templates)
}

// Substitute replaces every {name} placeholder in the skeleton whose name is
// present in variables. Placeholders with no matching variable are left
// verbatim, never an error: partially resolved output is preferred over a
// dropped notification.
func Substitute(skeleton string, variables map[string]string) string {
	if len(variables) == 0 {
		return skeleton
	}
	return placeholderRegexp.ReplaceAllStringFunc(skeleton, func(match string) string {
		name := match[1 : len(match)-1]
		if value, ok := variables[name]; ok {
			return value
		}
		return match
	})
}
