package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk format for registry extensions
//
//	entities:
//	  - type: Opportunity
//	    label: Opportunity
//	    key_field: Id
//	    references:
//	      - field: AccountId
//	        target_label: Account
//	        rel_type: HAS_OPPORTUNITY
type File struct {
	Entities []EntitySpec `yaml:"entities"`
}

// Parse decodes a registry extension document. A type may appear only once.
func Parse(data []byte) ([]EntitySpec, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing registry file: %w", err)
	}
	seen := make(map[string]struct{}, len(f.Entities))
	for i := range f.Entities {
		if _, dup := seen[f.Entities[i].Type]; dup {
			return nil, fmt.Errorf("parsing registry file: duplicate type %s", f.Entities[i].Type)
		}
		seen[f.Entities[i].Type] = struct{}{}
		if f.Entities[i].KeyField == "" {
			f.Entities[i].KeyField = DefaultKeyField
		}
		if f.Entities[i].Label == "" {
			f.Entities[i].Label = f.Entities[i].Type
		}
	}
	return f.Entities, nil
}

// Load builds a registry from the built-in table overlaid with the entries
// in path. A file entry replaces the built-in entry of the same type. An
// empty path yields the built-in table.
func Load(path string) (*Registry, error) {
	specs := DefaultSpecs()
	if path == "" {
		return New(specs...)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading registry file: %w", err)
	}
	extra, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return New(overlay(specs, extra)...)
}

func overlay(base, extra []EntitySpec) []EntitySpec {
	index := make(map[string]int, len(base))
	for i, s := range base {
		index[s.Type] = i
	}
	out := append([]EntitySpec(nil), base...)
	for _, s := range extra {
		if i, ok := index[s.Type]; ok {
			out[i] = s
			continue
		}
		out = append(out, s)
	}
	return out
}
