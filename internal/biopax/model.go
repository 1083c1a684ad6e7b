package biopax

import (
	"fmt"
	"strings"
)

// Model is a read-only, ordered collection of elements from one source file.
type Model struct {
	Source   string // data source name, e.g. "Reactome"
	Path     string // file the model was read from
	elements []*Element
	byID     map[string]*Element
	byLocal  map[string]*Element
}

// NewModel indexes the elements. Element ids must be unique within a model.
func NewModel(source, path string, elements []*Element) (*Model, error) {
	m := &Model{
		Source:   source,
		Path:     path,
		elements: make([]*Element, 0, len(elements)),
		byID:     make(map[string]*Element, len(elements)),
		byLocal:  make(map[string]*Element, len(elements)),
	}

	ambiguous := make(map[string]bool)
	for i, el := range elements {
		if el == nil {
			continue
		}
		id := strings.TrimSpace(el.ID)
		if id == "" {
			return nil, fmt.Errorf("element %d (%s) has no id", i, el.Kind)
		}
		if _, dup := m.byID[id]; dup {
			return nil, fmt.Errorf("duplicate element id %q", id)
		}
		m.byID[id] = el
		m.elements = append(m.elements, el)

		local := StripNamespace(id)
		if _, seen := m.byLocal[local]; seen {
			ambiguous[local] = true
			continue
		}
		m.byLocal[local] = el
	}
	for local := range ambiguous {
		delete(m.byLocal, local)
	}

	return m, nil
}

// Elements returns the elements in file order.
func (m *Model) Elements() []*Element {
	return m.elements
}

// Len returns the number of elements.
func (m *Model) Len() int {
	return len(m.elements)
}

// Lookup finds an element by its full id, falling back to its local id when
// that is unambiguous within the model.
func (m *Model) Lookup(id string) (*Element, bool) {
	id = strings.TrimSpace(id)
	if el, ok := m.byID[id]; ok {
		return el, true
	}
	el, ok := m.byLocal[StripNamespace(id)]
	return el, ok
}
