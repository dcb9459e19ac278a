package fhirmodel

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/iancoleman/orderedmap"
	"gopkg.in/yaml.v3"
)

// YAML serializes a model to a YAML document. The output carries the
// same keys in the same order as the JSON form, with resourceType
// first on resources.
func YAML(m any, opts ...SerializeOption) ([]byte, error) {
	o := applySerializeOptions(opts)
	d, err := dictWithOptions(m, o)
	if err != nil {
		return nil, err
	}
	var v any = d
	if o.excludeComments {
		v = PruneEmpty(v)
		if v == nil {
			v = orderedmap.New()
		}
	}
	fallback := o.fallback
	if fallback == nil {
		fallback = DefaultTypeConverter
	}
	node, err := yamlNode(v, fallback)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(node)
}

// yamlNode builds a yaml.Node tree by hand so mapping keys keep their
// canonical order; yaml.Marshal on a plain map would sort them.
func yamlNode(v any, fallback func(any) (any, error)) (*yaml.Node, error) {
	switch t := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	case *orderedmap.OrderedMap:
		node := &yaml.Node{Kind: yaml.MappingNode}
		for _, k := range t.Keys() {
			item, _ := t.Get(k)
			valNode, err := yamlNode(item, fallback)
			if err != nil {
				return nil, err
			}
			keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: k}
			node.Content = append(node.Content, keyNode, valNode)
		}
		return node, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		node := &yaml.Node{Kind: yaml.MappingNode}
		for _, k := range keys {
			valNode, err := yamlNode(t[k], fallback)
			if err != nil {
				return nil, err
			}
			keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: k}
			node.Content = append(node.Content, keyNode, valNode)
		}
		return node, nil
	case []any:
		node := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range t {
			itemNode, err := yamlNode(item, fallback)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, itemNode)
		}
		return node, nil
	case []string:
		node := &yaml.Node{Kind: yaml.SequenceNode}
		for _, s := range t {
			node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: s})
		}
		return node, nil
	case json.Number:
		// Untagged scalar so the number renders without quotes and
		// keeps its textual precision.
		return &yaml.Node{Kind: yaml.ScalarNode, Value: t.String()}, nil
	case bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		node := &yaml.Node{}
		if err := node.Encode(t); err != nil {
			return nil, err
		}
		return node, nil
	default:
		if fallback == nil {
			return nil, fmt.Errorf("no YAML representation for %T", v)
		}
		converted, err := fallback(v)
		if err != nil {
			return nil, err
		}
		return yamlNode(converted, fallback)
	}
}
