// Package options models configuration option trees.
//
// Extension definitions and persisted configuration files both describe
// options as nested mappings whose leaves carry qualified facts:
//
//	aicloader:
//	  ai:
//	    wazir:
//	      required-value: true
//	      suggested-max: 4
//
// A mapping is a leaf when it has a "contents" key (its facts live inside
// "contents") or any fact key such as "value" or "suggested-min". Every other
// mapping is an inner node; keys along the path join with "." into the url.
//
// A url may be both a leaf and the prefix of other urls (a.mode and
// a.mode.fast). Such a leaf keeps its facts under "contents" and its children
// as sibling keys:
//
//	mode:
//	  contents:
//	    value: 1
//	  fast:
//	    value: true
package options

import (
	"sort"
	"strings"

	"github.com/arthur-debert/extman/pkg/errors"
	"github.com/arthur-debert/extman/pkg/types"
	"gopkg.in/yaml.v3"
)

const (
	keyContents = "contents"
	keyDefault  = "default"
	separator   = "."
)

// Leaf holds the facts declared for one option url.
type Leaf struct {
	Facts      []types.Fact
	Default    interface{}
	HasDefault bool
	// Wrapped records whether the facts were read from a "contents" block so
	// encoding round-trips the original shape.
	Wrapped bool
}

// Node is one key in the tree. Leaf, Children or both are set.
type Node struct {
	Key      string
	Children []*Node
	Leaf     *Leaf
}

// Tree is an ordered forest of option nodes.
type Tree struct {
	Roots []*Node
}

// VisitFunc receives each leaf with its full url.
type VisitFunc func(url string, leaf *Leaf) error

// Walk visits leaves depth-first in document order.
func (t *Tree) Walk(fn VisitFunc) error {
	if t == nil {
		return nil
	}
	for _, n := range t.Roots {
		if err := walk(n, "", fn); err != nil {
			return err
		}
	}
	return nil
}

func walk(n *Node, prefix string, fn VisitFunc) error {
	url := n.Key
	if prefix != "" {
		url = prefix + separator + n.Key
	}
	if n.Leaf != nil {
		if err := fn(url, n.Leaf); err != nil {
			return err
		}
	}
	for _, c := range n.Children {
		if err := walk(c, url, fn); err != nil {
			return err
		}
	}
	return nil
}

// IsEmpty reports whether the tree has no leaves.
func (t *Tree) IsEmpty() bool {
	empty := true
	_ = t.Walk(func(string, *Leaf) error {
		empty = false
		return nil
	})
	return empty
}

// Contributions flattens the tree into per-url facts, skipping leaves that
// only declare a default.
func (t *Tree) Contributions() []types.Contribution {
	var out []types.Contribution
	_ = t.Walk(func(url string, leaf *Leaf) error {
		if len(leaf.Facts) == 0 {
			return nil
		}
		facts := make([]types.Fact, len(leaf.Facts))
		copy(facts, leaf.Facts)
		out = append(out, types.Contribution{URL: url, Facts: facts})
		return nil
	})
	return out
}

// Defaults collects declared defaults by url.
func (t *Tree) Defaults() map[string]interface{} {
	out := make(map[string]interface{})
	_ = t.Walk(func(url string, leaf *Leaf) error {
		if leaf.HasDefault {
			out[url] = leaf.Default
		}
		return nil
	})
	return out
}

// Prefixed returns a copy of the tree nested under prefix, so a package's
// own options ("feature") become absolute urls ("aicloader.feature").
func (t *Tree) Prefixed(prefix string) *Tree {
	if t == nil || len(t.Roots) == 0 {
		return &Tree{}
	}
	return &Tree{Roots: []*Node{{Key: prefix, Children: t.Roots}}}
}

// Set inserts or replaces the leaf at url, creating inner nodes as needed.
// Existing leaves along the path and children below url are kept.
func (t *Tree) Set(url string, leaf *Leaf) error {
	parts := strings.Split(url, separator)
	for _, p := range parts {
		if p == "" {
			return errors.Newf(errors.ErrInvalidInput, "options: invalid url %q", url).WithDetail("url", url)
		}
	}
	nodes := &t.Roots
	for i, part := range parts {
		var found *Node
		for _, n := range *nodes {
			if n.Key == part {
				found = n
				break
			}
		}
		if found == nil {
			found = &Node{Key: part}
			*nodes = append(*nodes, found)
		}
		if i == len(parts)-1 {
			found.Leaf = leaf
			return nil
		}
		nodes = &found.Children
	}
	return nil
}

// FromContributions builds a tree from flattened facts, ordering urls
// lexically so output is stable.
func FromContributions(contribs []types.Contribution) (*Tree, error) {
	sorted := make([]types.Contribution, len(contribs))
	copy(sorted, contribs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].URL < sorted[j].URL })

	t := &Tree{}
	for _, c := range sorted {
		facts := make([]types.Fact, len(c.Facts))
		copy(facts, c.Facts)
		if err := t.Set(c.URL, &Leaf{Facts: facts}); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// isLeafKeys is the leaf predicate over a mapping's keys.
func isLeafKeys(keys []string) bool {
	for _, k := range keys {
		if k == keyContents {
			return true
		}
		if _, _, ok := types.ParseFactKey(k); ok {
			return true
		}
	}
	return false
}

// UnmarshalYAML decodes a mapping node into an ordered tree.
func (t *Tree) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		t.Roots = nil
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return errors.Newf(errors.ErrConfigParse, "options: line %d: expected a mapping", value.Line)
	}
	roots, err := decodeChildren(value)
	if err != nil {
		return err
	}
	t.Roots = roots
	return nil
}

func decodeChildren(m *yaml.Node) ([]*Node, error) {
	var out []*Node
	for i := 0; i+1 < len(m.Content); i += 2 {
		key, val := m.Content[i], m.Content[i+1]
		n, err := decodeNode(key.Value, val)
		if err != nil {
			return nil, err
		}
		if n != nil {
			out = append(out, n)
		}
	}
	return out, nil
}

func mappingKeys(m *yaml.Node) []string {
	keys := make([]string, 0, len(m.Content)/2)
	for i := 0; i < len(m.Content); i += 2 {
		keys = append(keys, m.Content[i].Value)
	}
	return keys
}

func decodeNode(key string, val *yaml.Node) (*Node, error) {
	if strings.Contains(key, separator) {
		return nil, errors.Newf(errors.ErrConfigParse, "options: line %d: key %q must not contain %q", val.Line, key, separator)
	}
	if val.Kind != yaml.MappingNode {
		// Scalars outside a leaf carry no qualified facts.
		return nil, nil
	}
	if !isLeafKeys(mappingKeys(val)) {
		children, err := decodeChildren(val)
		if err != nil {
			return nil, err
		}
		return &Node{Key: key, Children: children}, nil
	}
	leaf, err := decodeLeaf(val)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigParse, "options: %s", key)
	}
	n := &Node{Key: key, Leaf: leaf}
	for i := 0; i+1 < len(val.Content); i += 2 {
		k, v := val.Content[i].Value, val.Content[i+1]
		if isReservedKey(k) || v.Kind != yaml.MappingNode {
			continue
		}
		child, err := decodeNode(k, v)
		if err != nil {
			return nil, err
		}
		if child != nil {
			n.Children = append(n.Children, child)
		}
	}
	return n, nil
}

// isReservedKey reports keys that belong to a leaf itself rather than to a
// child option.
func isReservedKey(k string) bool {
	if k == keyContents || k == keyDefault {
		return true
	}
	_, _, ok := types.ParseFactKey(k)
	return ok
}

func decodeLeaf(m *yaml.Node) (*Leaf, error) {
	leaf := &Leaf{}
	body := m
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == keyContents {
			if m.Content[i+1].Kind != yaml.MappingNode {
				return nil, errors.Newf(errors.ErrConfigParse, "line %d: contents must be a mapping", m.Content[i+1].Line)
			}
			body = m.Content[i+1]
			leaf.Wrapped = true
		}
	}
	scan := []*yaml.Node{body}
	if body != m {
		// A default may sit next to contents as well as inside it.
		scan = append(scan, m)
	}
	for _, src := range scan {
		for i := 0; i+1 < len(src.Content); i += 2 {
			k, v := src.Content[i].Value, src.Content[i+1]
			var content interface{}
			if k == keyDefault {
				if leaf.HasDefault {
					continue
				}
				if err := v.Decode(&content); err != nil {
					return nil, err
				}
				leaf.Default, leaf.HasDefault = content, true
				continue
			}
			if src != body {
				continue
			}
			q, f, ok := types.ParseFactKey(k)
			if !ok {
				continue
			}
			if err := v.Decode(&content); err != nil {
				return nil, err
			}
			leaf.Facts = append(leaf.Facts, types.Fact{Qualifier: q, Field: f, Content: content})
		}
	}
	return leaf, nil
}

// MarshalYAML encodes the tree back to qualifier-prefixed keys, preserving
// node order.
func (t Tree) MarshalYAML() (interface{}, error) {
	m := &yaml.Node{Kind: yaml.MappingNode}
	for _, n := range t.Roots {
		if err := encodeNode(m, n); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func encodeNode(parent *yaml.Node, n *Node) error {
	key := &yaml.Node{Kind: yaml.ScalarNode, Value: n.Key}
	val := &yaml.Node{Kind: yaml.MappingNode}
	if n.Leaf != nil {
		body := val
		if n.Leaf.Wrapped || len(n.Children) > 0 {
			body = &yaml.Node{Kind: yaml.MappingNode}
			val.Content = append(val.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: keyContents}, body)
		}
		if n.Leaf.HasDefault {
			if err := appendPair(body, keyDefault, n.Leaf.Default); err != nil {
				return err
			}
		}
		for _, f := range n.Leaf.Facts {
			if err := appendPair(body, f.Key(), f.Content); err != nil {
				return err
			}
		}
	}
	for _, c := range n.Children {
		if err := encodeNode(val, c); err != nil {
			return err
		}
	}
	parent.Content = append(parent.Content, key, val)
	return nil
}

func appendPair(m *yaml.Node, key string, content interface{}) error {
	v := &yaml.Node{}
	if err := v.Encode(content); err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "options: encode %s", key)
	}
	m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key}, v)
	return nil
}

// FromMap builds a tree from a generic decoded document (TOML definitions).
// Map keys carry no order, so siblings are sorted by key.
func FromMap(m map[string]interface{}) (*Tree, error) {
	roots, err := mapChildren(m)
	if err != nil {
		return nil, err
	}
	return &Tree{Roots: roots}, nil
}

func mapChildren(m map[string]interface{}) ([]*Node, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []*Node
	for _, k := range keys {
		if strings.Contains(k, separator) {
			return nil, errors.Newf(errors.ErrConfigParse, "options: key %q must not contain %q", k, separator)
		}
		child, ok := m[k].(map[string]interface{})
		if !ok {
			continue
		}
		childKeys := make([]string, 0, len(child))
		for ck := range child {
			childKeys = append(childKeys, ck)
		}
		sort.Strings(childKeys)
		if !isLeafKeys(childKeys) {
			children, err := mapChildren(child)
			if err != nil {
				return nil, err
			}
			out = append(out, &Node{Key: k, Children: children})
			continue
		}
		n := &Node{Key: k, Leaf: mapLeaf(child, childKeys)}
		nested := make(map[string]interface{})
		for _, ck := range childKeys {
			if _, ok := child[ck].(map[string]interface{}); ok && !isReservedKey(ck) {
				nested[ck] = child[ck]
			}
		}
		children, err := mapChildren(nested)
		if err != nil {
			return nil, err
		}
		n.Children = children
		out = append(out, n)
	}
	return out, nil
}

func mapLeaf(m map[string]interface{}, keys []string) *Leaf {
	leaf := &Leaf{}
	body, bodyKeys := m, keys
	if c, ok := m[keyContents].(map[string]interface{}); ok {
		body = c
		bodyKeys = make([]string, 0, len(c))
		for k := range c {
			bodyKeys = append(bodyKeys, k)
		}
		sort.Strings(bodyKeys)
		leaf.Wrapped = true
	}
	for _, k := range bodyKeys {
		if k == keyDefault {
			leaf.Default, leaf.HasDefault = body[k], true
			continue
		}
		if q, f, ok := types.ParseFactKey(k); ok {
			leaf.Facts = append(leaf.Facts, types.Fact{Qualifier: q, Field: f, Content: body[k]})
		}
	}
	if !leaf.HasDefault {
		if d, ok := m[keyDefault]; ok && leaf.Wrapped {
			leaf.Default, leaf.HasDefault = d, true
		}
	}
	return leaf
}
