package tools

import (
	"fmt"
)

// Definition describes one advertised tool.
type Definition struct {
	Name        string
	Description string
	Schema      *Schema
}

func (d Definition) clone() Definition {
	d.Schema = d.Schema.Clone()
	return d
}

// Registry is the ordered, immutable tool catalog. It is built once and
// only read afterwards, so it carries no lock. Schemas are copied on the
// way in and on the way out.
type Registry struct {
	tools []Definition
	index map[string]int
}

func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{
		tools: make([]Definition, 0, len(defs)),
		index: make(map[string]int, len(defs)),
	}

	for _, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("tool name cannot be empty")
		}
		if _, exists := r.index[def.Name]; exists {
			return nil, fmt.Errorf("tool already registered: %s", def.Name)
		}
		if def.Schema == nil {
			def.Schema = Object()
		} else {
			def.Schema = def.Schema.Clone()
		}
		r.index[def.Name] = len(r.tools)
		r.tools = append(r.tools, def)
	}

	return r, nil
}

func (r *Registry) Get(name string) (Definition, bool) {
	i, ok := r.index[name]
	if !ok {
		return Definition{}, false
	}
	return r.tools[i].clone(), true
}

// List returns a copy of the catalog in registration order.
func (r *Registry) List() []Definition {
	result := make([]Definition, len(r.tools))
	for i, def := range r.tools {
		result[i] = def.clone()
	}
	return result
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.tools))
	for i, def := range r.tools {
		names[i] = def.Name
	}
	return names
}

func (r *Registry) Len() int {
	return len(r.tools)
}
