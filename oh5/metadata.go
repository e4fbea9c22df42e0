// Package oh5 models the hierarchical attribute tree of an ODIM_H5 radar file.
//
// Nodes live in an arena owned by Metadata and are addressed by Handle. A
// second index maps (parent, name) to the child handle, so sibling names are
// unique and lookups by path do not scan.
package oh5

import (
	"strings"

	"github.com/baltrad/bdb-go/runtime/dberr"
	"github.com/baltrad/bdb-go/runtime/types"
)

// NodeKind is the closed set of node kinds
type NodeKind int

const (
	Group NodeKind = iota + 1
	Attribute
	DataSet
)

// String returns the kind name
func (k NodeKind) String() string {
	switch k {
	case Group:
		return "group"
	case Attribute:
		return "attribute"
	case DataSet:
		return "dataset"
	default:
		return "unknown"
	}
}

// Handle addresses a node within its Metadata
type Handle int

// NoHandle is the parent of the root
const NoHandle Handle = -1

// Node is one element of the tree
type Node struct {
	Name   string
	Kind   NodeKind
	Parent Handle
	// Value is set for attributes only
	Value types.Variant
}

type childKey struct {
	parent Handle
	name   string
}

// Metadata is the attribute tree of one file
type Metadata struct {
	nodes    []Node
	children map[Handle][]Handle
	index    map[childKey]Handle
}

// NewMetadata creates a tree holding only the root group
func NewMetadata() *Metadata {
	return &Metadata{
		nodes:    []Node{{Name: "", Kind: Group, Parent: NoHandle}},
		children: make(map[Handle][]Handle),
		index:    make(map[childKey]Handle),
	}
}

// Root returns the root group
func (m *Metadata) Root() Handle {
	return 0
}

// Len returns the number of nodes including the root
func (m *Metadata) Len() int {
	return len(m.nodes)
}

// Node returns the node addressed by h
func (m *Metadata) Node(h Handle) (Node, error) {
	if h < 0 || int(h) >= len(m.nodes) {
		return Node{}, dberr.Lookup("no node with handle %d", h)
	}
	return m.nodes[h], nil
}

// AddChild adds a node under parent. A sibling with the same name is a
// duplicate_entry; attributes cannot have children.
func (m *Metadata) AddChild(parent Handle, name string, kind NodeKind, value types.Variant) (Handle, error) {
	p, err := m.Node(parent)
	if err != nil {
		return NoHandle, err
	}
	switch kind {
	case Group, DataSet:
		if !value.IsNull() {
			return NoHandle, dberr.Value("%s %q cannot hold a value", kind, name)
		}
	case Attribute:
	default:
		return NoHandle, dberr.Value("invalid node kind %d", kind)
	}
	if p.Kind == Attribute {
		return NoHandle, dberr.Value("attribute %q cannot have children", m.Path(parent))
	}
	if name == "" || strings.Contains(name, "/") {
		return NoHandle, dberr.Value("invalid node name %q", name)
	}

	key := childKey{parent: parent, name: name}
	if _, exists := m.index[key]; exists {
		return NoHandle, dberr.Duplicate("node %q already has a child %q", m.Path(parent), name)
	}

	h := Handle(len(m.nodes))
	m.nodes = append(m.nodes, Node{Name: name, Kind: kind, Parent: parent, Value: value})
	m.index[key] = h
	m.children[parent] = append(m.children[parent], h)
	return h, nil
}

// AddGroup adds a group under parent
func (m *Metadata) AddGroup(parent Handle, name string) (Handle, error) {
	return m.AddChild(parent, name, Group, types.Null())
}

// AddDataSet adds a dataset under parent
func (m *Metadata) AddDataSet(parent Handle, name string) (Handle, error) {
	return m.AddChild(parent, name, DataSet, types.Null())
}

// AddAttribute adds an attribute holding value under parent
func (m *Metadata) AddAttribute(parent Handle, name string, value types.Variant) (Handle, error) {
	return m.AddChild(parent, name, Attribute, value)
}

// Child returns the child of parent called name
func (m *Metadata) Child(parent Handle, name string) (Handle, bool) {
	h, ok := m.index[childKey{parent: parent, name: name}]
	return h, ok
}

// Children returns the children of h in insertion order
func (m *Metadata) Children(h Handle) []Handle {
	c := m.children[h]
	out := make([]Handle, len(c))
	copy(out, c)
	return out
}

// Path returns the absolute path of h, "/" for the root
func (m *Metadata) Path(h Handle) string {
	if h == m.Root() {
		return "/"
	}
	var parts []string
	for cur := h; cur > 0 && int(cur) < len(m.nodes); cur = m.nodes[cur].Parent {
		parts = append(parts, m.nodes[cur].Name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return "/" + strings.Join(parts, "/")
}

// Find returns the node at path, relative paths start at the root
func (m *Metadata) Find(path string) (Handle, error) {
	h := m.Root()
	for _, name := range strings.Split(strings.Trim(path, "/"), "/") {
		if name == "" {
			continue
		}
		child, ok := m.Child(h, name)
		if !ok {
			return NoHandle, dberr.Lookup("no node at %q", path)
		}
		h = child
	}
	return h, nil
}

// Value returns the value of the attribute at path
func (m *Metadata) Value(path string) (types.Variant, error) {
	h, err := m.Find(path)
	if err != nil {
		return types.Null(), err
	}
	n := m.nodes[h]
	if n.Kind != Attribute {
		return types.Null(), dberr.Value("%q is a %s, not an attribute", path, n.Kind)
	}
	return n.Value, nil
}

// Walk visits every node depth-first, parents before children, siblings in
// insertion order. The root is not visited. A non-nil error stops the walk.
func (m *Metadata) Walk(fn func(h Handle, n Node) error) error {
	var visit func(h Handle) error
	visit = func(h Handle) error {
		for _, c := range m.children[h] {
			if err := fn(c, m.nodes[c]); err != nil {
				return err
			}
			if err := visit(c); err != nil {
				return err
			}
		}
		return nil
	}
	return visit(m.Root())
}
