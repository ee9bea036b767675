package topology

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"openb-topology/document"
)

func rootMapping(doc *yaml.Node) (*yaml.Node, error) {
	n := doc
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return nil, fmt.Errorf("%w: empty document", document.ErrMalformedDocument)
		}
		n = n.Content[0]
	}
	n = resolve(n)
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: record at line %d is not a mapping", document.ErrMalformedDocument, n.Line)
	}
	return n, nil
}

// lookup returns the value stored under key in mapping m, or nil. Aliases
// are followed, so the anchored node is returned and shared by every alias.
func lookup(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return resolve(m.Content[i+1])
		}
	}
	return nil
}

func resolve(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

// set stores value under key, keeping the position of an existing key and
// appending new keys at the end.
func set(m *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = value
			return
		}
	}
	m.Content = append(m.Content, scalar("!!str", key), value)
}

// ensureMapping returns the mapping under key, creating it when the key is
// absent or null.
func ensureMapping(m *yaml.Node, key string) (*yaml.Node, error) {
	v := lookup(m, key)
	switch {
	case v == nil || isNull(v):
		child := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		set(m, key, child)
		return child, nil
	case v.Kind == yaml.MappingNode:
		return v, nil
	default:
		return nil, fmt.Errorf("%w: %q at line %d is not a mapping", document.ErrMalformedDocument, key, v.Line)
	}
}

func kindOf(m *yaml.Node) string {
	v := lookup(m, "kind")
	if v == nil || v.Kind != yaml.ScalarNode {
		return ""
	}
	return v.Value
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

func scalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}
