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
	"strings"
	"sync"
	"unicode"
)

// Buffer is the text model behind the SQL editor: a rune slice, a cursor,
// an optional selection anchor and the undo history. It is safe for
// concurrent use.
type Buffer struct {
	mu        sync.Mutex
	text      []rune
	cursor    int
	anchor    int
	selecting bool
	history   *UndoRedoer
	onChanged func(string)
}

// Frame is a consistent copy of the buffer state used for rendering.
type Frame struct {
	Text         string
	Cursor       int
	Selection    bool
	SelStart     int
	SelEnd       int
	CursorRow    int
	CursorColumn int
}

// NewBuffer creates an empty buffer whose undo history keeps at most
// depth snapshots.
func NewBuffer(depth int) *Buffer {
	b := &Buffer{history: NewUndoRedoer(depth)}
	b.history.Update("", 0)
	return b
}

// SetOnChanged registers a callback invoked with the new text after every
// edit, undo and redo.
func (b *Buffer) SetOnChanged(fn func(string)) {
	b.mu.Lock()
	b.onChanged = fn
	b.mu.Unlock()
}

// SetText replaces the content and starts a fresh undo history.
func (b *Buffer) SetText(text string) {
	b.mu.Lock()
	b.text = []rune(text)
	b.cursor = len(b.text)
	b.selecting = false
	b.history.Reset()
	b.history.Update(text, b.cursor)
	b.mu.Unlock()
	b.notify()
}

func (b *Buffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.text)
}

func (b *Buffer) Cursor() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cursor
}

// Snapshot returns the state needed to draw the buffer.
func (b *Buffer) Snapshot() Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := Frame{Text: string(b.text), Cursor: b.cursor}
	v.CursorRow, v.CursorColumn = b.rowColLocked(b.cursor)
	if start, end, ok := b.selectionLocked(); ok {
		v.Selection, v.SelStart, v.SelEnd = true, start, end
	}
	return v
}

// Insert replaces the selection, if any, with s.
func (b *Buffer) Insert(s string) {
	b.edit(func() bool {
		b.deleteSelectionLocked()
		ins := []rune(s)
		text := make([]rune, 0, len(b.text)+len(ins))
		text = append(text, b.text[:b.cursor]...)
		text = append(text, ins...)
		text = append(text, b.text[b.cursor:]...)
		b.text = text
		b.cursor += len(ins)
		return true
	})
}

// Backspace deletes the selection or the rune before the cursor.
func (b *Buffer) Backspace() {
	b.edit(func() bool {
		if b.deleteSelectionLocked() {
			return true
		}
		if b.cursor == 0 {
			return false
		}
		b.text = append(b.text[:b.cursor-1], b.text[b.cursor:]...)
		b.cursor--
		return true
	})
}

// Delete deletes the selection or the rune after the cursor.
func (b *Buffer) Delete() {
	b.edit(func() bool {
		if b.deleteSelectionLocked() {
			return true
		}
		if b.cursor >= len(b.text) {
			return false
		}
		b.text = append(b.text[:b.cursor], b.text[b.cursor+1:]...)
		return true
	})
}

// DeleteToLineStart removes everything between the start of the line and
// the cursor.
func (b *Buffer) DeleteToLineStart() {
	b.edit(func() bool {
		if b.deleteSelectionLocked() {
			return true
		}
		start := b.lineStartLocked(b.cursor)
		if start == b.cursor {
			return false
		}
		b.text = append(b.text[:start], b.text[b.cursor:]...)
		b.cursor = start
		return true
	})
}

// DeleteWordLeft removes the word before the cursor.
func (b *Buffer) DeleteWordLeft() {
	b.edit(func() bool {
		if b.deleteSelectionLocked() {
			return true
		}
		start := b.wordLeftLocked(b.cursor)
		if start == b.cursor {
			return false
		}
		b.text = append(b.text[:start], b.text[b.cursor:]...)
		b.cursor = start
		return true
	})
}

// Undo restores the previous snapshot. It reports whether anything
// changed.
func (b *Buffer) Undo() bool {
	b.mu.Lock()
	snap, ok := b.history.Undo()
	if ok {
		b.restoreLocked(snap)
	}
	b.mu.Unlock()
	if ok {
		b.notify()
	}
	return ok
}

// Redo re-applies the next snapshot.
func (b *Buffer) Redo() bool {
	b.mu.Lock()
	snap, ok := b.history.Redo()
	if ok {
		b.restoreLocked(snap)
	}
	b.mu.Unlock()
	if ok {
		b.notify()
	}
	return ok
}

func (b *Buffer) CanUndo() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.history.CanUndo()
}

func (b *Buffer) CanRedo() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.history.CanRedo()
}

// MoveTo places the cursor at offset. With extend the selection grows from
// the current anchor instead of being cleared.
func (b *Buffer) MoveTo(offset int, extend bool) {
	b.mu.Lock()
	b.moveLocked(clamp(offset, 0, len(b.text)), extend)
	b.mu.Unlock()
}

// MoveToRowCol places the cursor at a zero-based row and column, clamped
// to the text.
func (b *Buffer) MoveToRowCol(row, col int, extend bool) {
	b.mu.Lock()
	b.moveLocked(b.offsetLocked(row, col), extend)
	b.mu.Unlock()
}

func (b *Buffer) MoveLeft(extend bool) {
	b.mu.Lock()
	if start, _, ok := b.selectionLocked(); ok && !extend {
		b.moveLocked(start, false)
	} else {
		b.moveLocked(max(b.cursor-1, 0), extend)
	}
	b.mu.Unlock()
}

func (b *Buffer) MoveRight(extend bool) {
	b.mu.Lock()
	if _, end, ok := b.selectionLocked(); ok && !extend {
		b.moveLocked(end, false)
	} else {
		b.moveLocked(min(b.cursor+1, len(b.text)), extend)
	}
	b.mu.Unlock()
}

func (b *Buffer) MoveUp(extend bool) {
	b.mu.Lock()
	row, col := b.rowColLocked(b.cursor)
	if row > 0 {
		b.moveLocked(b.offsetLocked(row-1, col), extend)
	} else {
		b.moveLocked(b.cursor, extend)
	}
	b.mu.Unlock()
}

func (b *Buffer) MoveDown(extend bool) {
	b.mu.Lock()
	row, col := b.rowColLocked(b.cursor)
	b.moveLocked(b.offsetLocked(row+1, col), extend)
	b.mu.Unlock()
}

func (b *Buffer) MoveHome(extend bool) {
	b.mu.Lock()
	b.moveLocked(b.lineStartLocked(b.cursor), extend)
	b.mu.Unlock()
}

func (b *Buffer) MoveEnd(extend bool) {
	b.mu.Lock()
	end := b.cursor
	for end < len(b.text) && b.text[end] != '\n' {
		end++
	}
	b.moveLocked(end, extend)
	b.mu.Unlock()
}

func (b *Buffer) WordLeft(extend bool) {
	b.mu.Lock()
	b.moveLocked(b.wordLeftLocked(b.cursor), extend)
	b.mu.Unlock()
}

func (b *Buffer) WordRight(extend bool) {
	b.mu.Lock()
	pos := b.cursor
	for pos < len(b.text) && isWordRune(b.text[pos]) {
		pos++
	}
	for pos < len(b.text) && !isWordRune(b.text[pos]) {
		pos++
	}
	b.moveLocked(pos, extend)
	b.mu.Unlock()
}

// Select sets the selection to [start, end) with the cursor at end.
func (b *Buffer) Select(start, end int) {
	b.mu.Lock()
	b.anchor = clamp(start, 0, len(b.text))
	b.cursor = clamp(end, 0, len(b.text))
	b.selecting = b.anchor != b.cursor
	b.mu.Unlock()
}

func (b *Buffer) SelectAll() {
	b.Select(0, len([]rune(b.Text())))
}

func (b *Buffer) ClearSelection() {
	b.mu.Lock()
	b.selecting = false
	b.mu.Unlock()
}

// Selection returns the ordered selection bounds.
func (b *Buffer) Selection() (start, end int, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selectionLocked()
}

func (b *Buffer) SelectedText() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	start, end, ok := b.selectionLocked()
	if !ok {
		return ""
	}
	return string(b.text[start:end])
}

// SelectFragment selects the statement under the cursor and returns it.
func (b *Buffer) SelectFragment() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	start, end, ok := FragmentBounds(string(b.text), b.cursor)
	if !ok {
		return "", false
	}
	b.anchor, b.cursor = start, end
	b.selecting = start != end
	return string(b.text[start:end]), true
}

// LineNumber is the 1-based line the cursor is on.
func (b *Buffer) LineNumber() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	row, _ := b.rowColLocked(b.cursor)
	return row + 1
}

// RowCol converts a rune offset to a zero-based row and column.
func (b *Buffer) RowCol(offset int) (row, col int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rowColLocked(clamp(offset, 0, len(b.text)))
}

// Offset converts a zero-based row and column to a rune offset.
func (b *Buffer) Offset(row, col int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.offsetLocked(row, col)
}

// edit runs fn under the lock and records an undo snapshot when fn
// reports a change.
func (b *Buffer) edit(fn func() bool) {
	b.mu.Lock()
	changed := fn()
	if changed {
		b.selecting = false
		b.history.Update(string(b.text), b.cursor)
	}
	b.mu.Unlock()
	if changed {
		b.notify()
	}
}

func (b *Buffer) notify() {
	b.mu.Lock()
	fn := b.onChanged
	text := string(b.text)
	b.mu.Unlock()
	if fn != nil {
		fn(text)
	}
}

func (b *Buffer) restoreLocked(snap Snapshot) {
	b.text = []rune(snap.Text)
	b.cursor = clamp(snap.Cursor, 0, len(b.text))
	b.selecting = false
}

func (b *Buffer) moveLocked(pos int, extend bool) {
	if extend {
		if !b.selecting {
			b.anchor = b.cursor
			b.selecting = true
		}
	} else {
		b.selecting = false
	}
	b.cursor = pos
	if b.selecting && b.anchor == b.cursor {
		b.selecting = false
	}
}

func (b *Buffer) selectionLocked() (int, int, bool) {
	if !b.selecting || b.anchor == b.cursor {
		return 0, 0, false
	}
	start, end := b.anchor, b.cursor
	if start > end {
		start, end = end, start
	}
	return clamp(start, 0, len(b.text)), clamp(end, 0, len(b.text)), true
}

func (b *Buffer) deleteSelectionLocked() bool {
	start, end, ok := b.selectionLocked()
	if !ok {
		return false
	}
	b.text = append(b.text[:start], b.text[end:]...)
	b.cursor = start
	b.selecting = false
	return true
}

func (b *Buffer) rowColLocked(offset int) (int, int) {
	row, col := 0, 0
	for _, r := range b.text[:offset] {
		if r == '\n' {
			row++
			col = 0
			continue
		}
		col++
	}
	return row, col
}

func (b *Buffer) offsetLocked(row, col int) int {
	if row < 0 {
		return 0
	}
	lines := strings.Split(string(b.text), "\n")
	if row >= len(lines) {
		return len(b.text)
	}
	offset := 0
	for _, line := range lines[:row] {
		offset += len([]rune(line)) + 1
	}
	return offset + clamp(col, 0, len([]rune(lines[row])))
}

func (b *Buffer) lineStartLocked(pos int) int {
	for pos > 0 && b.text[pos-1] != '\n' {
		pos--
	}
	return pos
}

func (b *Buffer) wordLeftLocked(pos int) int {
	for pos > 0 && !isWordRune(b.text[pos-1]) {
		pos--
	}
	for pos > 0 && isWordRune(b.text[pos-1]) {
		pos--
	}
	return pos
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
