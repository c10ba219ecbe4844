package yamldeps

import (
	"gopkg.in/yaml.v3"
)

type Kind int

const (
	Other Kind = iota
	String
	Sequence
	Mapping
)

// Value is a decoded YAML document restricted to what the dependency scan cares about.
// Scalars that are not strings are kept as Other and never produce statements.
type Value struct {
	Kind    Kind
	Str     string
	Items   []Value
	Entries []Entry
}

type Entry struct {
	Key   Value
	Value Value
}

// Decode converts a parsed YAML node. Aliases are resolved to their anchors.
func Decode(node *yaml.Node) Value {
	if node == nil {
		return Value{Kind: Other}
	}

	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return Value{Kind: Other}
		}
		return Decode(node.Content[0])
	case yaml.AliasNode:
		return Decode(node.Alias)
	case yaml.ScalarNode:
		switch node.ShortTag() {
		case "!!str":
			return Value{Kind: String, Str: node.Value}
		case "!!null":
			return Value{Kind: Other}
		}
		return Value{Kind: Other, Str: node.Value}
	case yaml.SequenceNode:
		items := make([]Value, 0, len(node.Content))
		for _, item := range node.Content {
			items = append(items, Decode(item))
		}
		return Value{Kind: Sequence, Items: items}
	case yaml.MappingNode:
		entries := make([]Entry, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			entries = append(entries, Entry{Key: Decode(node.Content[i]), Value: Decode(node.Content[i+1])})
		}
		return Value{Kind: Mapping, Entries: entries}
	}

	return Value{Kind: Other}
}

// Flatten collects every string in v depth first. For mappings the value is visited
// before its key.
func Flatten(v Value) []string {
	var out []string
	flatten(v, &out)
	return out
}

func flatten(v Value, out *[]string) {
	switch v.Kind {
	case String:
		*out = append(*out, v.Str)
	case Sequence:
		for _, item := range v.Items {
			flatten(item, out)
		}
	case Mapping:
		for _, e := range v.Entries {
			flatten(e.Value, out)
			flatten(e.Key, out)
		}
	case Other:
	}
}

// Lookup returns the value stored under a string key of a mapping.
func (v Value) Lookup(key string) (Value, bool) {
	if v.Kind != Mapping {
		return Value{}, false
	}
	for _, e := range v.Entries {
		if e.Key.Str == key {
			return e.Value, true
		}
	}
	return Value{}, false
}

// Keys returns the scalar keys of a mapping in document order.
func (v Value) Keys() []string {
	keys := make([]string, 0, len(v.Entries))
	for _, e := range v.Entries {
		keys = append(keys, e.Key.Str)
	}
	return keys
}

// Without returns a copy of a mapping with the given keys removed. Other kinds are
// returned unchanged.
func (v Value) Without(keys ...string) Value {
	if v.Kind != Mapping {
		return v
	}

	skip := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		skip[k] = struct{}{}
	}

	entries := make([]Entry, 0, len(v.Entries))
	for _, e := range v.Entries {
		if _, ok := skip[e.Key.Str]; ok {
			continue
		}
		entries = append(entries, e)
	}

	return Value{Kind: Mapping, Entries: entries}
}
