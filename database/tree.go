// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package database

import (
	"slices"
	"sync"

	"github.com/google/uuid"
)

// NodeType is the level of a node in the schema tree.
type NodeType string

const (
	NodeTypeConnection NodeType = "connection"
	NodeTypeDatabase   NodeType = "database"
	NodeTypeTable      NodeType = "table"
)

// Status drives how a node is drawn.
type Status int

const (
	StatusNormal Status = iota
	StatusSelected
	StatusBroken
)

func (s Status) String() string {
	switch s {
	case StatusSelected:
		return "selected"
	case StatusBroken:
		return "broken"
	default:
		return "normal"
	}
}

// TreeNode is a node of the schema tree. Values returned by Tree are
// copies.
type TreeNode struct {
	ID             string
	NodeType       NodeType
	Name           string
	Status         Status
	Expanded       bool
	Parent         string
	Children       []string
	ChildrenLoaded bool
}

// Tree is the connection -> database -> table hierarchy shown in the
// navigation pane.
type Tree struct {
	mu       sync.RWMutex
	nodes    map[string]*TreeNode
	rootIDs  []string
	onChange func()
}

// NewTree creates an empty tree.
func NewTree() *Tree {
	return &Tree{nodes: make(map[string]*TreeNode)}
}

// SetOnChange registers fn to run after every mutation. It is called
// without the tree lock held.
func (t *Tree) SetOnChange(fn func()) {
	t.mu.Lock()
	t.onChange = fn
	t.mu.Unlock()
}

// GenerateNodeID creates the ID of a node. Connection IDs are random so
// that two entries with the same label stay distinct; child IDs extend
// their parent's.
func GenerateNodeID(nodeType NodeType, parentID, name string) string {
	switch nodeType {
	case NodeTypeConnection:
		return "conn:" + uuid.NewString()
	case NodeTypeDatabase:
		return parentID + "/db:" + name
	case NodeTypeTable:
		return parentID + "/table:" + name
	default:
		return ""
	}
}

// AddConnection appends a root node and returns its ID.
func (t *Tree) AddConnection(name string) string {
	id := GenerateNodeID(NodeTypeConnection, "", name)
	t.mu.Lock()
	t.nodes[id] = &TreeNode{ID: id, NodeType: NodeTypeConnection, Name: name}
	t.rootIDs = append(t.rootIDs, id)
	t.mu.Unlock()
	t.changed()
	return id
}

// Remove deletes a node and its subtree.
func (t *Tree) Remove(id string) {
	t.mu.Lock()
	node, ok := t.nodes[id]
	if ok {
		t.removeLocked(id)
		if node.Parent == "" {
			t.rootIDs = slices.DeleteFunc(t.rootIDs, func(r string) bool { return r == id })
		} else if parent, ok := t.nodes[node.Parent]; ok {
			parent.Children = slices.DeleteFunc(parent.Children, func(c string) bool { return c == id })
		}
	}
	t.mu.Unlock()
	if ok {
		t.changed()
	}
}

// Reset removes every node.
func (t *Tree) Reset() {
	t.mu.Lock()
	t.nodes = make(map[string]*TreeNode)
	t.rootIDs = nil
	t.mu.Unlock()
	t.changed()
}

// SetChildren replaces the children of parentID with one node per name and
// marks them loaded. It returns the new child IDs.
func (t *Tree) SetChildren(parentID string, nodeType NodeType, names []string) []string {
	t.mu.Lock()
	parent, ok := t.nodes[parentID]
	if !ok {
		t.mu.Unlock()
		return nil
	}
	for _, child := range parent.Children {
		t.removeLocked(child)
	}
	ids := make([]string, 0, len(names))
	for _, name := range names {
		id := GenerateNodeID(nodeType, parentID, name)
		if _, dup := t.nodes[id]; dup {
			continue
		}
		t.nodes[id] = &TreeNode{ID: id, NodeType: nodeType, Name: name, Parent: parentID}
		ids = append(ids, id)
	}
	parent.Children = ids
	parent.ChildrenLoaded = true
	t.mu.Unlock()
	t.changed()
	return slices.Clone(ids)
}

// ChildrenLoaded reports whether SetChildren has run for id.
func (t *Tree) ChildrenLoaded(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	node, ok := t.nodes[id]
	return ok && node.ChildrenLoaded
}

// Child finds the child of parentID called name.
func (t *Tree) Child(parentID, name string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	parent, ok := t.nodes[parentID]
	if !ok {
		return "", false
	}
	for _, id := range parent.Children {
		if t.nodes[id].Name == name {
			return id, true
		}
	}
	return "", false
}

func (t *Tree) SetStatus(id string, status Status) {
	t.update(id, func(n *TreeNode) bool {
		if n.Status == status {
			return false
		}
		n.Status = status
		return true
	})
}

func (t *Tree) SetExpanded(id string, expanded bool) {
	t.update(id, func(n *TreeNode) bool {
		if n.Expanded == expanded {
			return false
		}
		n.Expanded = expanded
		return true
	})
}

// Node returns a copy of the node.
func (t *Tree) Node(id string) (TreeNode, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	node, ok := t.nodes[id]
	if !ok {
		return TreeNode{}, false
	}
	cp := *node
	cp.Children = slices.Clone(node.Children)
	return cp, true
}

// ChildIDs returns the children of id, or the root nodes when id is empty.
func (t *Tree) ChildIDs(id string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if id == "" {
		return slices.Clone(t.rootIDs)
	}
	node, ok := t.nodes[id]
	if !ok {
		return nil
	}
	return slices.Clone(node.Children)
}

// IsBranch reports whether id can have children. Connections and
// databases are branches; tables are leaves.
func (t *Tree) IsBranch(id string) bool {
	if id == "" {
		return true
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	node, ok := t.nodes[id]
	if !ok {
		return false
	}
	return node.NodeType != NodeTypeTable
}

// Names resolves the connection, database and table a node sits under,
// along with the ID of its connection node.
func (t *Tree) Names(id string) (names Names, connID string, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for node := t.nodes[id]; node != nil; node = t.nodes[node.Parent] {
		switch node.NodeType {
		case NodeTypeTable:
			names.Table = node.Name
		case NodeTypeDatabase:
			names.Database = node.Name
		case NodeTypeConnection:
			names.Connection = node.Name
			return names, node.ID, true
		}
	}
	return Names{}, "", false
}

func (t *Tree) update(id string, fn func(*TreeNode) bool) {
	t.mu.Lock()
	node, ok := t.nodes[id]
	changed := ok && fn(node)
	t.mu.Unlock()
	if changed {
		t.changed()
	}
}

func (t *Tree) removeLocked(id string) {
	node, ok := t.nodes[id]
	if !ok {
		return
	}
	for _, child := range node.Children {
		t.removeLocked(child)
	}
	delete(t.nodes, id)
}

func (t *Tree) changed() {
	t.mu.RLock()
	fn := t.onChange
	t.mu.RUnlock()
	if fn != nil {
		fn()
	}
}
