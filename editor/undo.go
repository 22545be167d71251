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

package editor

import "strings"

// DefaultUndoDepth bounds the number of snapshots kept by an UndoRedoer.
const DefaultUndoDepth = 500

// snapshotBreakers are the characters that close a word-sized edit. Typing
// one of them starts a new undo snapshot.
const snapshotBreakers = " ();\n\t'\""

// Snapshot is one undo step: the full text and the cursor offset.
type Snapshot struct {
	Text   string
	Cursor int
}

// UndoRedoer keeps a list of text snapshots and a pointer counted back
// from the newest one. Typing inside a word replaces the newest snapshot
// instead of growing the list.
type UndoRedoer struct {
	snapshots     []Snapshot
	back          int
	startingPoint bool
	depth         int
}

// NewUndoRedoer creates an undo stack bounded to depth snapshots.
// A depth <= 1 selects DefaultUndoDepth.
func NewUndoRedoer(depth int) *UndoRedoer {
	if depth <= 1 {
		depth = DefaultUndoDepth
	}
	return &UndoRedoer{depth: depth}
}

func (u *UndoRedoer) Len() int { return len(u.snapshots) }

func (u *UndoRedoer) CanUndo() bool { return len(u.snapshots) > u.back+1 }

func (u *UndoRedoer) CanRedo() bool { return u.back > 0 }

// Current returns the snapshot the pointer is on.
func (u *UndoRedoer) Current() (Snapshot, bool) {
	if len(u.snapshots) == 0 {
		return Snapshot{}, false
	}
	return u.snapshots[len(u.snapshots)-u.back-1], true
}

// Undo moves one snapshot back and returns it.
func (u *UndoRedoer) Undo() (Snapshot, bool) {
	if !u.CanUndo() {
		return Snapshot{}, false
	}
	u.back++
	return u.Current()
}

// Redo moves one snapshot forward and returns it.
func (u *UndoRedoer) Redo() (Snapshot, bool) {
	if !u.CanRedo() {
		return Snapshot{}, false
	}
	u.back--
	return u.Current()
}

// Update records the state after an edit. Any undone snapshots are
// discarded first.
func (u *UndoRedoer) Update(text string, cursor int) {
	if u.back > 0 {
		u.snapshots = u.snapshots[:len(u.snapshots)-u.back]
		u.back = 0
	}

	snap := Snapshot{Text: text, Cursor: cursor}
	if u.shouldAdd(text, cursor) {
		u.snapshots = append(u.snapshots, snap)
		if len(u.snapshots) > u.depth {
			u.snapshots = u.snapshots[len(u.snapshots)-u.depth:]
		}
		return
	}
	u.snapshots[len(u.snapshots)-1] = snap
}

// Reset drops every snapshot.
func (u *UndoRedoer) Reset() {
	u.snapshots = nil
	u.back = 0
	u.startingPoint = false
}

func (u *UndoRedoer) shouldAdd(text string, cursor int) bool {
	if len(u.snapshots) == 0 {
		return true
	}
	if !u.startingPoint && u.snapshots[len(u.snapshots)-1].Text != text {
		u.startingPoint = true
		return true
	}
	runes := []rune(text)
	if len(runes) == 0 || cursor <= 0 || cursor > len(runes) {
		return false
	}
	return strings.ContainsRune(snapshotBreakers, runes[cursor-1])
}
