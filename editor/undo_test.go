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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typeInto(u *UndoRedoer, texts ...string) {
	for _, text := range texts {
		u.Update(text, len([]rune(text)))
	}
}

func TestUndoRedoerGroupsWords(t *testing.T) {
	u := NewUndoRedoer(0)
	typeInto(u, "", "s", "se", "sel", "sel ")
	require.Equal(t, 3, u.Len())

	snap, ok := u.Undo()
	require.True(t, ok)
	assert.Equal(t, Snapshot{Text: "sel", Cursor: 3}, snap)

	snap, ok = u.Undo()
	require.True(t, ok)
	assert.Equal(t, "", snap.Text)
	assert.False(t, u.CanUndo())

	snap, ok = u.Redo()
	require.True(t, ok)
	assert.Equal(t, "sel", snap.Text)
	assert.True(t, u.CanRedo())
}

func TestUndoRedoerUpdateDropsRedoTail(t *testing.T) {
	u := NewUndoRedoer(0)
	typeInto(u, "", "s", "se", "sel", "sel ")
	_, _ = u.Undo()

	u.Update("selX", 4)
	assert.False(t, u.CanRedo())
	assert.Equal(t, 2, u.Len())

	cur, ok := u.Current()
	require.True(t, ok)
	assert.Equal(t, "selX", cur.Text)
}

func TestUndoRedoerDepth(t *testing.T) {
	u := NewUndoRedoer(3)
	typeInto(u, "", "a ", "a b ", "a b c ")
	assert.Equal(t, 3, u.Len())

	_, _ = u.Undo()
	snap, _ := u.Undo()
	assert.Equal(t, "a ", snap.Text)
	assert.False(t, u.CanUndo())
}

func TestUndoRedoerCursorAtStart(t *testing.T) {
	u := NewUndoRedoer(0)
	typeInto(u, "", "x")
	u.Update("yx", 0)
	assert.Equal(t, 2, u.Len())

	cur, _ := u.Current()
	assert.Equal(t, "yx", cur.Text)
}

func TestUndoRedoerEmpty(t *testing.T) {
	u := NewUndoRedoer(0)
	_, ok := u.Undo()
	assert.False(t, ok)
	_, ok = u.Redo()
	assert.False(t, ok)
	_, ok = u.Current()
	assert.False(t, ok)
}
