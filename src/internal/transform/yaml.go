// FILE: src/internal/transform/yaml.go
package transform

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML decodes a mapping node into an ordered Spec.
//
//	key: "path.expr|func"   path field
//	key: "" or ~ or []      omitted field
//	key: {...}              nested spec
//	key: [a, {...}]         nested spec built from merges
//	0: "path.expr"          integer keys merge into the enclosing level
func (s *Spec) UnmarshalYAML(node *yaml.Node) error {
	spec, err := specFromNode(node)
	if err != nil {
		return err
	}
	*s = spec
	return nil
}

// MarshalYAML encodes the spec as an ordered mapping node.
func (s Spec) MarshalYAML() (any, error) {
	return specToNode(s), nil
}

// ParseSpec decodes a YAML document into a Spec.
func ParseSpec(data []byte) (Spec, error) {
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse mapping YAML: %w", err)
	}
	return spec, nil
}

func specFromNode(node *yaml.Node) (Spec, error) {
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return nil, nil
		}
		node = node.Content[0]
	}

	switch node.Kind {
	case yaml.MappingNode:
		spec := make(Spec, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode, valNode := node.Content[i], node.Content[i+1]
			if keyNode.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping key must be a scalar", keyNode.Line)
			}

			if _, err := strconv.Atoi(keyNode.Value); err == nil {
				f, err := mergeFromNode(valNode)
				if err != nil {
					return nil, err
				}
				spec = append(spec, f)
				continue
			}

			f, err := fieldFromNode(keyNode.Value, valNode)
			if err != nil {
				return nil, err
			}
			spec = append(spec, f)
		}
		return spec, nil

	case yaml.SequenceNode:
		spec := make(Spec, 0, len(node.Content))
		for _, item := range node.Content {
			f, err := mergeFromNode(item)
			if err != nil {
				return nil, err
			}
			spec = append(spec, f)
		}
		return spec, nil

	case yaml.ScalarNode:
		if isNullNode(node) {
			return nil, nil
		}
		return nil, fmt.Errorf("line %d: expected mapping or sequence, got scalar %q", node.Line, node.Value)

	default:
		return nil, fmt.Errorf("line %d: unsupported node kind %v", node.Line, node.Kind)
	}
}

func fieldFromNode(key string, node *yaml.Node) (Field, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if isNullNode(node) {
			return Omit(key), nil
		}
		return Path(key, node.Value), nil
	case yaml.MappingNode, yaml.SequenceNode:
		sub, err := specFromNode(node)
		if err != nil {
			return Field{}, fmt.Errorf("%s: %w", key, err)
		}
		return Nested(key, sub), nil
	case yaml.AliasNode:
		return fieldFromNode(key, node.Alias)
	default:
		return Field{}, fmt.Errorf("line %d: unsupported value for %q", node.Line, key)
	}
}

func mergeFromNode(node *yaml.Node) (Field, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if isNullNode(node) {
			return Field{Kind: NodeMerge}, nil
		}
		return Merge(node.Value), nil
	case yaml.MappingNode, yaml.SequenceNode:
		sub, err := specFromNode(node)
		if err != nil {
			return Field{}, err
		}
		return MergeSpec(sub), nil
	case yaml.AliasNode:
		return mergeFromNode(node.Alias)
	default:
		return Field{}, fmt.Errorf("line %d: unsupported merge entry", node.Line)
	}
}

func isNullNode(node *yaml.Node) bool {
	return node.Tag == "!!null" || node.Value == ""
}

func specToNode(s Spec) *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode}
	merges := 0
	for _, f := range s {
		var key, val *yaml.Node
		switch f.Kind {
		case NodeMerge:
			key = scalarNode(strconv.Itoa(merges))
			merges++
			if f.Expr != "" {
				val = scalarNode(f.Expr)
			} else {
				val = specToNode(f.Spec)
			}
		case NodeNested:
			key = scalarNode(f.Key)
			val = specToNode(f.Spec)
		case NodePath:
			key = scalarNode(f.Key)
			val = scalarNode(f.Expr)
		default:
			key = scalarNode(f.Key)
			val = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "~"}
		}
		node.Content = append(node.Content, key, val)
	}
	return node
}

func scalarNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}
