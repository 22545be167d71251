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

package windows

import (
	"sync/atomic"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"dossier/database"
)

// tappableNodeLabel is a label that supports both regular click and
// right-click inside the tree.
type tappableNodeLabel struct {
	widget.Label
	nodeID       string
	onTap        func(string)
	onRightClick func(string, *fyne.PointEvent)
}

func newTappableNodeLabel(onTap func(string), onRightClick func(string, *fyne.PointEvent)) *tappableNodeLabel {
	item := &tappableNodeLabel{onTap: onTap, onRightClick: onRightClick}
	item.ExtendBaseWidget(item)
	return item
}

// Tapped handles regular left-click
func (t *tappableNodeLabel) Tapped(_ *fyne.PointEvent) {
	if t.onTap != nil && t.nodeID != "" {
		t.onTap(t.nodeID)
	}
}

// TappedSecondary handles right-click
func (t *tappableNodeLabel) TappedSecondary(e *fyne.PointEvent) {
	if t.onRightClick != nil && t.nodeID != "" {
		t.onRightClick(t.nodeID, e)
	}
}

// NavigationTree draws a database.Tree with a fyne tree widget. The engine
// owns selection and expansion; the widget only mirrors them.
type NavigationTree struct {
	tree    *database.Tree
	widget  *widget.Tree
	pending atomic.Bool

	// OnSelected runs when the user clicks a node.
	OnSelected func(nodeID string)
	// OnContextMenu runs on right-click.
	OnContextMenu func(nodeID string, e *fyne.PointEvent)
}

// NewNavigationTree creates the widget and subscribes to tree changes.
func NewNavigationTree(tree *database.Tree) *NavigationTree {
	nt := &NavigationTree{tree: tree}
	nt.widget = widget.NewTree(nt.GetChildren, nt.IsBranch, nt.createNode, nt.UpdateNodeDisplay)
	nt.widget.OnSelected = func(id widget.TreeNodeID) {
		// Unselect so a second click on the same node still fires.
		nt.widget.Unselect(id)
		if nt.OnSelected != nil {
			nt.OnSelected(id)
		}
	}
	tree.SetOnChange(nt.scheduleRefresh)
	return nt
}

// Widget returns the fyne tree.
func (nt *NavigationTree) Widget() *widget.Tree {
	return nt.widget
}

// GetChildren returns the child node IDs for a given parent node.
// Returns connection nodes if nodeID is empty.
func (nt *NavigationTree) GetChildren(nodeID widget.TreeNodeID) []widget.TreeNodeID {
	return nt.tree.ChildIDs(nodeID)
}

func (nt *NavigationTree) IsBranch(nodeID widget.TreeNodeID) bool {
	return nt.tree.IsBranch(nodeID)
}

func (nt *NavigationTree) createNode(_ bool) fyne.CanvasObject {
	label := newTappableNodeLabel(func(id string) {
		nt.widget.Select(id)
	}, func(id string, e *fyne.PointEvent) {
		if nt.OnContextMenu != nil {
			nt.OnContextMenu(id, e)
		}
	})
	return container.NewHBox(widget.NewIcon(theme.FolderIcon()), label)
}

// UpdateNodeDisplay updates the visual representation of a tree node
func (nt *NavigationTree) UpdateNodeDisplay(nodeID widget.TreeNodeID, _ bool, obj fyne.CanvasObject) {
	node, ok := nt.tree.Node(nodeID)
	if !ok {
		return
	}
	box, ok := obj.(*fyne.Container)
	if !ok || len(box.Objects) < 2 {
		return
	}

	if icon, ok := box.Objects[0].(*widget.Icon); ok {
		icon.SetResource(nodeIcon(node))
	}
	if label, ok := box.Objects[1].(*tappableNodeLabel); ok {
		label.nodeID = node.ID
		label.Importance = widget.MediumImportance
		label.TextStyle = fyne.TextStyle{}
		switch node.Status {
		case database.StatusSelected:
			label.Importance = widget.HighImportance
			label.TextStyle.Bold = true
		case database.StatusBroken:
			label.Importance = widget.DangerImportance
			label.TextStyle.Italic = true
		}
		label.SetText(node.Name)
	}
}

func nodeIcon(node database.TreeNode) fyne.Resource {
	switch node.NodeType {
	case database.NodeTypeConnection:
		if node.Status == database.StatusBroken {
			return theme.ErrorIcon()
		}
		return theme.ComputerIcon()
	case database.NodeTypeDatabase:
		if node.Expanded {
			return theme.FolderOpenIcon()
		}
		return theme.FolderIcon()
	default:
		return theme.GridIcon()
	}
}

// scheduleRefresh coalesces the bursts of changes a redraw produces into
// one refresh on the UI goroutine.
func (nt *NavigationTree) scheduleRefresh() {
	if !nt.pending.CompareAndSwap(false, true) {
		return
	}
	fyne.Do(func() {
		nt.pending.Store(false)
		nt.syncExpanded("")
		nt.widget.Refresh()
	})
}

func (nt *NavigationTree) syncExpanded(parent string) {
	for _, id := range nt.tree.ChildIDs(parent) {
		node, ok := nt.tree.Node(id)
		if !ok || node.NodeType == database.NodeTypeTable {
			continue
		}
		if node.Expanded && !nt.widget.IsBranchOpen(id) {
			nt.widget.OpenBranch(id)
		}
		nt.syncExpanded(id)
	}
}
