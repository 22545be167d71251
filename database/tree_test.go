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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTreeHierarchy(t *testing.T) {
	tree := NewTree()
	changes := 0
	tree.SetOnChange(func() { changes++ })

	connID := tree.AddConnection("root@localhost:3306")
	assert.True(t, strings.HasPrefix(connID, "conn:"))
	assert.False(t, tree.ChildrenLoaded(connID))

	dbIDs := tree.SetChildren(connID, NodeTypeDatabase, []string{"shop", "crm", "shop"})
	require.Len(t, dbIDs, 2, "duplicate names collapse")
	assert.Equal(t, connID+"/db:shop", dbIDs[0])
	assert.True(t, tree.ChildrenLoaded(connID))

	tableIDs := tree.SetChildren(dbIDs[0], NodeTypeTable, []string{"orders"})
	assert.Equal(t, connID+"/db:shop/table:orders", tableIDs[0])

	names, owner, ok := tree.Names(tableIDs[0])
	require.True(t, ok)
	assert.Equal(t, connID, owner)
	assert.Equal(t, Names{Connection: "root@localhost:3306", Database: "shop", Table: "orders"}, names)

	assert.True(t, tree.IsBranch(""))
	assert.True(t, tree.IsBranch(dbIDs[0]))
	assert.False(t, tree.IsBranch(tableIDs[0]))

	id, ok := tree.Child(connID, "crm")
	require.True(t, ok)
	assert.Equal(t, dbIDs[1], id)
	_, ok = tree.Child(connID, "missing")
	assert.False(t, ok)

	assert.Equal(t, 3, changes)
}

func TestTreeConnectionIDsAreUnique(t *testing.T) {
	tree := NewTree()
	a := tree.AddConnection("root@localhost:3306")
	b := tree.AddConnection("root@localhost:3306")
	assert.NotEqual(t, a, b)
	assert.Equal(t, []string{a, b}, tree.ChildIDs(""))
}

func TestTreeStatusAndExpansion(t *testing.T) {
	tree := NewTree()
	changes := 0
	tree.SetOnChange(func() { changes++ })
	id := tree.AddConnection("c")

	tree.SetStatus(id, StatusSelected)
	tree.SetStatus(id, StatusSelected)
	tree.SetExpanded(id, true)
	assert.Equal(t, 3, changes, "no-op updates do not notify")

	node, ok := tree.Node(id)
	require.True(t, ok)
	assert.Equal(t, StatusSelected, node.Status)
	assert.True(t, node.Expanded)
	assert.Equal(t, "selected", node.Status.String())
}

func TestTreeRemoveAndReset(t *testing.T) {
	tree := NewTree()
	a := tree.AddConnection("a")
	b := tree.AddConnection("b")
	dbs := tree.SetChildren(a, NodeTypeDatabase, []string{"shop"})

	tree.Remove(a)
	assert.Equal(t, []string{b}, tree.ChildIDs(""))
	_, ok := tree.Node(dbs[0])
	assert.False(t, ok, "subtree removed")

	// Reloading children replaces the old nodes.
	dbs = tree.SetChildren(b, NodeTypeDatabase, []string{"x"})
	tree.SetChildren(dbs[0], NodeTypeTable, []string{"t"})
	tree.SetChildren(b, NodeTypeDatabase, []string{"y"})
	_, ok = tree.Node(dbs[0] + "/table:t")
	assert.False(t, ok)

	tree.Reset()
	assert.Empty(t, tree.ChildIDs(""))
	_, _, ok = tree.Names(b)
	assert.False(t, ok)
}
