package group

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Node is a group linked into the in-memory tree
type Node struct {
	Group
	Parent *Node
	// Children excludes role subgroups; they are membership carriers, never
	// project-association vehicles.
	Children      []*Node
	RoleSubgroups []*Node
}

// Tree is an arena over one bulk fetch of the directory. Traversals are
// closures over this in-memory graph rather than repeated directory
// round-trips per recursive call.
type Tree struct {
	byID   map[uuid.UUID]*Node
	byName map[string]*Node
	roots  []*Node
}

// BuildTree flattens the given groups into an arena keyed by id, linking
// parents and children by path. Groups are assumed acyclic by construction:
// a role subgroup can never be a parent.
func BuildTree(groups []Group) *Tree {
	t := &Tree{
		byID:   make(map[uuid.UUID]*Node, len(groups)),
		byName: make(map[string]*Node, len(groups)),
	}

	nodes := make([]*Node, 0, len(groups))
	for _, g := range groups {
		n := &Node{Group: g}
		nodes = append(nodes, n)
		t.byID[g.ID] = n
		t.byName[g.Name] = n
	}

	// Shallow paths first so parents are always linked before their children
	// are visited.
	sort.SliceStable(nodes, func(i, j int) bool {
		return strings.Count(nodes[i].Path, "/") < strings.Count(nodes[j].Path, "/")
	})

	for _, n := range nodes {
		parent, ok := t.byName[n.ParentName()]
		if !ok || parent == n {
			t.roots = append(t.roots, n)
			continue
		}
		n.Parent = parent
		if n.IsRoleSubgroup() {
			parent.RoleSubgroups = append(parent.RoleSubgroups, n)
		} else {
			parent.Children = append(parent.Children, n)
		}
	}

	return t
}

// FindByID returns the node for a group id
func (t *Tree) FindByID(id uuid.UUID) (*Node, bool) {
	n, ok := t.byID[id]
	return n, ok
}

// FindByName returns the node for a group name
func (t *Tree) FindByName(name string) (*Node, bool) {
	n, ok := t.byName[name]
	return n, ok
}

// Roots returns the nodes with no parent
func (t *Tree) Roots() []*Node {
	return t.roots
}

// All returns every node in the arena, role subgroups included
func (t *Tree) All() []*Node {
	out := make([]*Node, 0, len(t.byID))
	for _, n := range t.byID {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of groups in the arena
func (t *Tree) Len() int {
	return len(t.byID)
}

// ProjectsFromGroupAndSubgroups walks down the tree, unioning this group's
// own projects with those of every descendant. Result order is insertion
// order during traversal (own projects first, then each child in order);
// de-duplication is the caller's responsibility.
func ProjectsFromGroupAndSubgroups(n *Node) []int {
	ids := n.Projects.IDs()
	for _, child := range n.Children {
		ids = append(ids, ProjectsFromGroupAndSubgroups(child)...)
	}
	return ids
}

// ProjectsFromGroupAndParents walks up the tree: this group's own projects
// followed by the parent's result, recursing until the root.
func ProjectsFromGroupAndParents(n *Node) []int {
	ids := n.Projects.IDs()
	if n.Parent != nil {
		ids = append(ids, ProjectsFromGroupAndParents(n.Parent)...)
	}
	return ids
}

// UniqueProjects collapses a traversal result into first-seen order
func UniqueProjects(ids []int) []int {
	s := NewProjectSet(ids...)
	return s.IDs()
}

// BillingGroups returns every billing-type node
func (t *Tree) BillingGroups() []*Node {
	var out []*Node
	for _, n := range t.All() {
		if n.IsBilling() {
			out = append(out, n)
		}
	}
	return out
}

// GroupsByProjectID returns every node whose own attached projects contain
// the given project id
func (t *Tree) GroupsByProjectID(projectID int) []*Node {
	var out []*Node
	for _, n := range t.All() {
		if n.Projects.Contains(projectID) {
			out = append(out, n)
		}
	}
	return out
}
