package selector

import (
	"fmt"
	"os"

	"github.com/andybalholm/cascadia"
	"gopkg.in/yaml.v3"
)

// overrideFile is the on-disk form of a selector override:
//
//	title:
//	  - h2.jobTitle span
//	  - a.jcs-JobTitle
//	listing:
//	  - div.job_seen_beacon
type overrideFile map[Field][]string

// LoadTables reads a YAML override file and applies it on top of base. Each
// field present in the file replaces the whole list for that field; fields
// not mentioned keep their base selectors.
func LoadTables(path string, base Table) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read selector file: %w", err)
	}
	return ParseTables(data, base)
}

// ParseTables applies YAML overrides in data on top of base.
func ParseTables(data []byte, base Table) (Table, error) {
	var overrides overrideFile
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse selector file: %w", err)
	}

	if base == nil {
		base = DefaultTable()
	}
	out := base.Clone()
	for field, sels := range overrides {
		if len(sels) == 0 {
			return nil, fmt.Errorf("field %q: empty selector list", field)
		}
		for _, s := range sels {
			if _, err := cascadia.Compile(s); err != nil {
				return nil, fmt.Errorf("field %q: invalid selector %q: %w", field, s, err)
			}
		}
		out[field] = append([]string(nil), sels...)
	}
	return out, nil
}

// Marshal renders t as YAML, suitable as a starting point for overrides.
func (t Table) Marshal() ([]byte, error) {
	ordered := yaml.Node{Kind: yaml.MappingNode}
	for _, f := range t.Fields() {
		var key, val yaml.Node
		if err := key.Encode(string(f)); err != nil {
			return nil, err
		}
		if err := val.Encode(t[f]); err != nil {
			return nil, err
		}
		ordered.Content = append(ordered.Content, &key, &val)
	}
	return yaml.Marshal(&ordered)
}
