package model

import (
	"fmt"
	"strings"
)

type node struct {
	name     string
	path     string
	id       uint32
	hasID    bool
	elem     ElementType
	typ      DataType
	value    Value
	min      Value
	max      Value
	enum     []Value
	unit     string
	desc     string
	parent   int32
	children []int32
	implicit bool
}

// Tree is an arena of signal nodes indexed by path and id.
// Use NewTree to create one.
type Tree struct {
	nodes  []node
	byPath map[string]int32
	byID   map[uint32]int32
	roots  []int32
	gen    uint64
}

// Signal is a handle to a node of a Tree. The zero Signal resolves nowhere.
type Signal struct {
	tree *Tree
	gen  uint64
	idx  int32
}

// IsZero reports whether s is the zero handle.
func (s Signal) IsZero() bool { return s.tree == nil }

// Info describes a node.
type Info struct {
	Path        string
	Name        string
	ID          uint32
	HasID       bool
	Type        DataType
	Element     ElementType
	Unit        string
	Min         Value
	Max         Value
	Description string
	Enum        []Value

	// Implicit is set for branches created only because a descendant
	// was declared.
	Implicit bool
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{
		byPath: make(map[string]int32),
		byID:   make(map[uint32]int32),
		gen:    1,
	}
}

// Load replaces the tree's contents with the given entries.
//
// Entries are applied in order. Missing intermediate branches are created
// without an id; a later branch entry for such a path adopts its id and
// description. On failure Load returns a *LoadError and the tree is left
// as it was. On success all previously issued handles become stale.
func (t *Tree) Load(entries []Entry) error {
	b := NewTree()
	for _, e := range entries {
		if err := b.add(e); err != nil {
			return &LoadError{Line: e.Line, Path: strings.TrimSpace(e.Path), Err: err}
		}
	}
	t.nodes = b.nodes
	t.byPath = b.byPath
	t.byID = b.byID
	t.roots = b.roots
	t.gen++
	return nil
}

// Close drops all nodes and invalidates every handle.
func (t *Tree) Close() {
	t.nodes = nil
	t.byPath = make(map[string]int32)
	t.byID = make(map[uint32]int32)
	t.roots = nil
	t.gen++
}

func (t *Tree) add(e Entry) error {
	path, err := cleanPath(e.Path)
	if err != nil {
		return err
	}
	elem, err := ParseElementType(e.Element)
	if err != nil {
		return err
	}
	if strings.TrimSpace(e.Element) == "" && strings.TrimSpace(e.Type) == "" {
		elem = ElementBranch
	}
	typ := DataTypeNA
	if !elem.IsBranch() {
		if typ, err = ParseDataType(e.Type); err != nil {
			return err
		}
	}

	if i, ok := t.byPath[path]; ok {
		n := &t.nodes[i]
		if !n.implicit || !elem.IsBranch() {
			return ErrDuplicatePath
		}
		if err := t.assignID(i, e); err != nil {
			return err
		}
		n.implicit = false
		n.elem = elem
		n.unit = e.Unit
		n.desc = e.Description
		return nil
	}

	parent := int32(-1)
	name := path
	if dot := strings.LastIndexByte(path, '.'); dot >= 0 {
		if parent, err = t.ensureBranch(path[:dot]); err != nil {
			return err
		}
		name = path[dot+1:]
	}

	n := node{
		name:   name,
		path:   path,
		elem:   elem,
		typ:    typ,
		unit:   e.Unit,
		desc:   e.Description,
		parent: parent,
	}
	if !elem.IsBranch() {
		if err := n.constrain(e); err != nil {
			return err
		}
	}
	return t.assignID(t.insert(n), e)
}

func (n *node) constrain(e Entry) error {
	if n.typ.IsNumeric() {
		if e.Min != "" {
			v, err := ParseValue(n.typ, e.Min)
			if err != nil {
				return fmt.Errorf("min: %w", err)
			}
			n.min = v
		}
		if e.Max != "" {
			v, err := ParseValue(n.typ, e.Max)
			if err != nil {
				return fmt.Errorf("max: %w", err)
			}
			n.max = v
		}
	}
	for _, lit := range e.Enum {
		v, err := ParseValue(n.typ, lit)
		if err != nil {
			return fmt.Errorf("enum: %w", err)
		}
		n.enum = append(n.enum, v)
	}
	if e.Default != "" {
		v, err := ParseValue(n.typ, e.Default)
		if err != nil {
			return fmt.Errorf("default: %w", err)
		}
		if err := n.admit(v); err != nil {
			return fmt.Errorf("default: %w", err)
		}
		n.value = v
	}
	return nil
}

func (t *Tree) ensureBranch(path string) (int32, error) {
	if i, ok := t.byPath[path]; ok {
		if !t.nodes[i].elem.IsBranch() {
			return 0, fmt.Errorf("%w: %s", ErrLeafParent, path)
		}
		return i, nil
	}
	parent := int32(-1)
	name := path
	if dot := strings.LastIndexByte(path, '.'); dot >= 0 {
		var err error
		if parent, err = t.ensureBranch(path[:dot]); err != nil {
			return 0, err
		}
		name = path[dot+1:]
	}
	return t.insert(node{
		name:     name,
		path:     path,
		elem:     ElementBranch,
		typ:      DataTypeNA,
		parent:   parent,
		implicit: true,
	}), nil
}

func (t *Tree) insert(n node) int32 {
	i := int32(len(t.nodes))
	t.nodes = append(t.nodes, n)
	t.byPath[n.path] = i
	if n.parent < 0 {
		t.roots = append(t.roots, i)
	} else {
		p := &t.nodes[n.parent]
		p.children = append(p.children, i)
	}
	return i
}

func (t *Tree) assignID(i int32, e Entry) error {
	if !e.HasID {
		return nil
	}
	if other, ok := t.byID[e.ID]; ok && other != i {
		return fmt.Errorf("%w: %d already used by %s", ErrDuplicateID, e.ID, t.nodes[other].path)
	}
	t.byID[e.ID] = i
	t.nodes[i].id = e.ID
	t.nodes[i].hasID = true
	return nil
}

func cleanPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	for _, seg := range strings.Split(path, ".") {
		if seg == "" {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return path, nil
}

func (t *Tree) handle(i int32) Signal {
	return Signal{tree: t, gen: t.gen, idx: i}
}

func (t *Tree) resolve(s Signal) (*node, error) {
	if s.tree != t {
		return nil, ErrForeignHandle
	}
	if s.gen != t.gen || s.idx < 0 || int(s.idx) >= len(t.nodes) {
		return nil, ErrStaleHandle
	}
	return &t.nodes[s.idx], nil
}

// Lookup resolves an exact dotted path.
func (t *Tree) Lookup(path string) (Signal, error) {
	i, ok := t.byPath[path]
	if !ok {
		return Signal{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return t.handle(i), nil
}

// LookupID resolves a numeric signal id.
func (t *Tree) LookupID(id uint32) (Signal, error) {
	i, ok := t.byID[id]
	if !ok {
		return Signal{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return t.handle(i), nil
}

// Exists reports whether path names a node.
func (t *Tree) Exists(path string) bool {
	_, ok := t.byPath[path]
	return ok
}

// Len returns the number of nodes, implicit branches included.
func (t *Tree) Len() int { return len(t.nodes) }

// Roots returns the top-level nodes in declaration order.
func (t *Tree) Roots() []Signal {
	out := make([]Signal, len(t.roots))
	for k, i := range t.roots {
		out[k] = t.handle(i)
	}
	return out
}

// Children returns the direct children of s in insertion order.
func (t *Tree) Children(s Signal) ([]Signal, error) {
	n, err := t.resolve(s)
	if err != nil {
		return nil, err
	}
	out := make([]Signal, len(n.children))
	for k, i := range n.children {
		out[k] = t.handle(i)
	}
	return out, nil
}

// Parent returns the parent of s. ok is false for a root.
func (t *Tree) Parent(s Signal) (parent Signal, ok bool, err error) {
	n, err := t.resolve(s)
	if err != nil {
		return Signal{}, false, err
	}
	if n.parent < 0 {
		return Signal{}, false, nil
	}
	return t.handle(n.parent), true, nil
}

// Path returns the dotted path of s.
func (t *Tree) Path(s Signal) (string, error) {
	n, err := t.resolve(s)
	if err != nil {
		return "", err
	}
	return n.path, nil
}

// Info returns the metadata of s.
func (t *Tree) Info(s Signal) (Info, error) {
	n, err := t.resolve(s)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Path:        n.path,
		Name:        n.name,
		ID:          n.id,
		HasID:       n.hasID,
		Type:        n.typ,
		Element:     n.elem,
		Unit:        n.unit,
		Min:         n.min,
		Max:         n.max,
		Description: n.desc,
		Enum:        append([]Value(nil), n.enum...),
		Implicit:    n.implicit,
	}, nil
}

// Walk calls fn for s and every descendant, depth-first in child insertion
// order. A non-nil error from fn stops the walk and is returned.
func (t *Tree) Walk(s Signal, fn func(Signal) error) error {
	if _, err := t.resolve(s); err != nil {
		return err
	}
	return t.walk(s.idx, fn)
}

func (t *Tree) walk(i int32, fn func(Signal) error) error {
	if err := fn(t.handle(i)); err != nil {
		return err
	}
	for _, c := range t.nodes[i].children {
		if err := t.walk(c, fn); err != nil {
			return err
		}
	}
	return nil
}

// Leaves returns s itself if it is a leaf, otherwise every descendant leaf
// in Walk order.
func (t *Tree) Leaves(s Signal) ([]Signal, error) {
	var out []Signal
	err := t.Walk(s, func(x Signal) error {
		if !t.nodes[x.idx].elem.IsBranch() {
			out = append(out, x)
		}
		return nil
	})
	return out, err
}
