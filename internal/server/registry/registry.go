package registry

import (
	"fmt"
	"regexp"
	"sort"
)

// Reference describes an optional foreign key on a record type.
// The edge it produces points from the referenced entity to the record's own node.
type Reference struct {
	Field       string `yaml:"field" json:"field"`
	TargetLabel string `yaml:"target_label" json:"target_label"`
	RelType     string `yaml:"rel_type" json:"rel_type"`
}

// EntitySpec tells the projection engine how to merge one CRM object type
type EntitySpec struct {
	Type       string      `yaml:"type" json:"type"`
	Label      string      `yaml:"label" json:"label"`
	KeyField   string      `yaml:"key_field" json:"key_field"`
	References []Reference `yaml:"references,omitempty" json:"references,omitempty"`
}

// identifier matches names that can be interpolated into Cypher as labels
// and relationship types. Neither can be passed as query parameters.
var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Registry maps CRM object type names to entity specs.
// It is read-only once built and safe for concurrent use.
type Registry struct {
	specs map[string]EntitySpec
}

// New builds a registry from the given specs. Each type name may appear once.
func New(specs ...EntitySpec) (*Registry, error) {
	r := &Registry{specs: make(map[string]EntitySpec, len(specs))}
	for _, s := range specs {
		if err := s.validate(); err != nil {
			return nil, err
		}
		if _, dup := r.specs[s.Type]; dup {
			return nil, fmt.Errorf("entity spec %s: duplicate type", s.Type)
		}
		refs := make([]Reference, len(s.References))
		copy(refs, s.References)
		s.References = refs
		r.specs[s.Type] = s
	}
	return r, nil
}

func (s EntitySpec) validate() error {
	if s.Type == "" {
		return fmt.Errorf("entity spec: type is required")
	}
	if !identifier.MatchString(s.Label) {
		return fmt.Errorf("entity spec %s: invalid label %q", s.Type, s.Label)
	}
	if s.KeyField == "" {
		return fmt.Errorf("entity spec %s: key_field is required", s.Type)
	}
	for _, ref := range s.References {
		if ref.Field == "" {
			return fmt.Errorf("entity spec %s: reference field is required", s.Type)
		}
		if ref.Field == s.KeyField {
			return fmt.Errorf("entity spec %s: reference field %s is the key field", s.Type, ref.Field)
		}
		if !identifier.MatchString(ref.TargetLabel) {
			return fmt.Errorf("entity spec %s: invalid target label %q", s.Type, ref.TargetLabel)
		}
		if !identifier.MatchString(ref.RelType) {
			return fmt.Errorf("entity spec %s: invalid relationship type %q", s.Type, ref.RelType)
		}
	}
	return nil
}

// Lookup returns the spec registered for objectType
func (r *Registry) Lookup(objectType string) (EntitySpec, bool) {
	s, ok := r.specs[objectType]
	if !ok {
		return EntitySpec{}, false
	}
	// References is shared; hand out a copy so callers cannot mutate the table
	refs := make([]Reference, len(s.References))
	copy(refs, s.References)
	s.References = refs
	return s, true
}

// Types returns the registered object type names in sorted order
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.specs))
	for t := range r.specs {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Labels returns every node label the registry can write, including
// reference targets, in sorted order.
func (r *Registry) Labels() []string {
	seen := make(map[string]struct{})
	for _, s := range r.specs {
		seen[s.Label] = struct{}{}
		for _, ref := range s.References {
			seen[ref.TargetLabel] = struct{}{}
		}
	}
	labels := make([]string, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}
