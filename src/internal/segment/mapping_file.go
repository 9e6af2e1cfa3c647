// FILE: src/internal/segment/mapping_file.go
package segment

import (
	"fmt"
	"os"

	"segbridge/src/internal/core"
	"segbridge/src/internal/transform"

	"gopkg.in/yaml.v3"
)

// MappingFile customises the call mappings from YAML.
//
//	message_id: hash
//	calls:
//	  track:
//	    properties: [attributes]
//	groups:
//	  - groupId: attributes.blogId
//	    traits:
//	      name: attributes.blog
type MappingFile struct {
	MessageID string                    `yaml:"message_id"`
	Calls     map[string]transform.Spec `yaml:"calls"`
	Groups    []transform.Spec          `yaml:"groups"`
}

// LoadMappingFile reads and parses a YAML mapping file.
func LoadMappingFile(path string) (*MappingFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file %s: %w", path, err)
	}
	return ParseMappingFile(data)
}

// ParseMappingFile parses YAML mapping data and validates call kinds.
func ParseMappingFile(data []byte) (*MappingFile, error) {
	var mf MappingFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("failed to parse mapping YAML: %w", err)
	}

	if _, err := ParseMessageIDStrategy(mf.MessageID); err != nil {
		return nil, err
	}
	for name := range mf.Calls {
		if !core.CallKind(name).Valid() {
			return nil, fmt.Errorf("mapping for unknown call kind: %s", name)
		}
	}
	for i, g := range mf.Groups {
		if _, ok := g.Get("groupId"); !ok {
			return nil, fmt.Errorf("group %d: missing groupId", i)
		}
	}

	return &mf, nil
}

// Apply merges the file into builder options and registers its groups.
// A message_id set in the file wins over the one already in opts.
func (mf *MappingFile) Apply(opts *Options, groups *GroupRegistry) {
	if mf.MessageID != "" {
		opts.MessageID = MessageIDStrategy(mf.MessageID)
	}
	if len(mf.Calls) > 0 && opts.Overrides == nil {
		opts.Overrides = make(map[core.CallKind]transform.Spec, len(mf.Calls))
	}
	for name, spec := range mf.Calls {
		kind := core.CallKind(name)
		opts.Overrides[kind] = opts.Overrides[kind].Overlay(spec)
	}
	for _, g := range mf.Groups {
		groups.Register(g)
	}
}
