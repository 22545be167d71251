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
	"image/color"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"dossier/editor"
)

// SQLEditor is a TextGrid based editor over an editor.Buffer with chroma
// highlighting, a highlighted current line and line numbers.
type SQLEditor struct {
	widget.BaseWidget
	grid        *widget.TextGrid
	buffer      *editor.Buffer
	highlighter *editor.Highlighter

	mu        sync.Mutex
	focused   bool
	blinkOn   bool
	shifting  bool
	dragging  bool
	stopBlink chan struct{}

	// OnCursorMoved receives the 1-based line of the cursor.
	OnCursorMoved func(line int)
	// OnRun is called for Ctrl/Cmd+Enter with the result slot to fill.
	OnRun func(slot int)
}

var (
	_ fyne.Focusable    = (*SQLEditor)(nil)
	_ fyne.Tappable     = (*SQLEditor)(nil)
	_ fyne.Draggable    = (*SQLEditor)(nil)
	_ fyne.Shortcutable = (*SQLEditor)(nil)
	_ fyne.Tabbable     = (*SQLEditor)(nil)
	_ desktop.Keyable   = (*SQLEditor)(nil)
)

// NewSQLEditor creates an editor drawing buffer.
func NewSQLEditor(buffer *editor.Buffer, highlighter *editor.Highlighter) *SQLEditor {
	grid := widget.NewTextGrid()
	grid.TabWidth = 4
	grid.ShowLineNumbers = true

	e := &SQLEditor{grid: grid, buffer: buffer, highlighter: highlighter}
	e.ExtendBaseWidget(e)
	buffer.SetOnChanged(func(string) { e.Reload() })
	return e
}

// Reload redraws the buffer. Call it after changing the buffer's cursor or
// selection from outside the widget.
func (e *SQLEditor) Reload() {
	frame := e.buffer.Snapshot()
	e.mu.Lock()
	cursorVisible := e.focused && e.blinkOn
	fn := e.OnCursorMoved
	e.mu.Unlock()

	rows := e.buildRows(frame, cursorVisible)
	fyne.Do(func() {
		e.grid.Rows = rows
		e.grid.Refresh()
	})
	if fn != nil {
		fn(frame.CursorRow + 1)
	}
}

func (e *SQLEditor) buildRows(frame editor.Frame, cursorVisible bool) []widget.TextGridRow {
	runes := []rune(frame.Text)
	kinds := make([]editor.TokenKind, len(runes))
	for _, span := range e.highlighter.Highlight(frame.Text) {
		for i := span.Start; i < span.End && i < len(kinds); i++ {
			kinds[i] = span.Kind
		}
	}

	colors := map[editor.TokenKind]color.Color{}
	for _, kind := range []editor.TokenKind{editor.TokenKeyword, editor.TokenFunction, editor.TokenString, editor.TokenNumber, editor.TokenComment} {
		colors[kind] = themeColor(fyne.ThemeColorName(kind.String()))
	}
	lineColor := themeColor(ColorNameCurrentLine)
	selectionColor := themeColor(theme.ColorNameSelection)
	cursorColor := themeColor(theme.ColorNamePrimary)
	cursorTextColor := themeColor(theme.ColorNameForegroundOnPrimary)

	lines := strings.Split(frame.Text, "\n")
	rows := make([]widget.TextGridRow, len(lines))
	offset := 0
	for row, line := range lines {
		lineRunes := []rune(line)
		current := row == frame.CursorRow
		cells := make([]widget.TextGridCell, 0, len(lineRunes)+1)
		for col, r := range lineRunes {
			pos := offset + col
			var bg color.Color
			switch {
			case cursorVisible && !frame.Selection && pos == frame.Cursor:
				cells = append(cells, widget.TextGridCell{Rune: r, Style: &widget.CustomTextGridStyle{
					FGColor: cursorTextColor,
					BGColor: cursorColor,
				}})
				continue
			case frame.Selection && pos >= frame.SelStart && pos < frame.SelEnd:
				bg = selectionColor
			case current:
				bg = lineColor
			}
			fg := colors[kinds[pos]]
			cell := widget.TextGridCell{Rune: r}
			if fg != nil || bg != nil {
				cell.Style = &widget.CustomTextGridStyle{FGColor: fg, BGColor: bg}
			}
			cells = append(cells, cell)
		}

		// The cursor or a selection can sit past the last character.
		end := offset + len(lineRunes)
		switch {
		case cursorVisible && !frame.Selection && frame.Cursor == end:
			cells = append(cells, widget.TextGridCell{Rune: ' ', Style: &widget.CustomTextGridStyle{
				FGColor: cursorTextColor,
				BGColor: cursorColor,
			}})
		case frame.Selection && end >= frame.SelStart && end < frame.SelEnd:
			cells = append(cells, widget.TextGridCell{Rune: ' ', Style: &widget.CustomTextGridStyle{BGColor: selectionColor}})
		case current:
			cells = append(cells, widget.TextGridCell{Rune: ' ', Style: &widget.CustomTextGridStyle{BGColor: lineColor}})
		}

		rows[row] = widget.TextGridRow{Cells: cells}
		offset = end + 1
	}
	return rows
}

// --- Blink management ---

func (e *SQLEditor) startBlink() {
	e.stopBlinkTimer()
	stop := make(chan struct{})
	e.mu.Lock()
	e.stopBlink = stop
	e.blinkOn = true
	e.mu.Unlock()
	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				e.mu.Lock()
				e.blinkOn = !e.blinkOn
				e.mu.Unlock()
				e.Reload()
			}
		}
	}()
}

func (e *SQLEditor) stopBlinkTimer() {
	e.mu.Lock()
	if e.stopBlink != nil {
		close(e.stopBlink)
		e.stopBlink = nil
	}
	e.mu.Unlock()
}

// moved redraws after a cursor move and restarts the blink so the cursor
// is visible while typing.
func (e *SQLEditor) moved() {
	e.mu.Lock()
	focused := e.focused
	e.mu.Unlock()
	if focused {
		e.startBlink()
	}
	e.Reload()
}

// --- desktop.Keyable ---

func (e *SQLEditor) KeyDown(ev *fyne.KeyEvent) {
	if ev.Name == desktop.KeyShiftLeft || ev.Name == desktop.KeyShiftRight {
		e.mu.Lock()
		e.shifting = true
		e.mu.Unlock()
	}
}

func (e *SQLEditor) KeyUp(ev *fyne.KeyEvent) {
	if ev.Name == desktop.KeyShiftLeft || ev.Name == desktop.KeyShiftRight {
		e.mu.Lock()
		e.shifting = false
		e.mu.Unlock()
	}
}

// --- fyne.Focusable ---

func (e *SQLEditor) FocusGained() {
	e.mu.Lock()
	e.focused = true
	e.mu.Unlock()
	e.startBlink()
	e.Reload()
}

func (e *SQLEditor) FocusLost() {
	e.stopBlinkTimer()
	e.mu.Lock()
	e.focused = false
	e.shifting = false
	e.mu.Unlock()
	e.Reload()
}

func (e *SQLEditor) TypedRune(r rune) {
	e.buffer.Insert(string(r))
	e.moved()
}

func (e *SQLEditor) TypedKey(ev *fyne.KeyEvent) {
	e.mu.Lock()
	extend := e.shifting
	e.mu.Unlock()

	switch ev.Name {
	case fyne.KeyReturn, fyne.KeyEnter:
		e.buffer.Insert("\n")
	case fyne.KeyTab:
		e.buffer.Insert("    ")
	case fyne.KeyBackspace:
		e.buffer.Backspace()
	case fyne.KeyDelete:
		e.buffer.Delete()
	case fyne.KeyLeft:
		e.buffer.MoveLeft(extend)
	case fyne.KeyRight:
		e.buffer.MoveRight(extend)
	case fyne.KeyUp:
		e.buffer.MoveUp(extend)
	case fyne.KeyDown:
		e.buffer.MoveDown(extend)
	case fyne.KeyHome:
		e.buffer.MoveHome(extend)
	case fyne.KeyEnd:
		e.buffer.MoveEnd(extend)
	default:
		return
	}
	e.moved()
}

func (e *SQLEditor) AcceptsTab() bool {
	return true
}

// --- fyne.Tappable / fyne.Draggable ---

func (e *SQLEditor) Tapped(ev *fyne.PointEvent) {
	if c := fyne.CurrentApp().Driver().CanvasForObject(e); c != nil {
		c.Focus(e)
	}
	row, col := e.grid.CursorLocationForPosition(ev.Position)
	e.buffer.MoveToRowCol(row, col, false)
	e.moved()
}

func (e *SQLEditor) Dragged(ev *fyne.DragEvent) {
	e.mu.Lock()
	first := !e.dragging
	e.dragging = true
	e.mu.Unlock()

	if first {
		start := fyne.NewPos(ev.Position.X-ev.Dragged.DX, ev.Position.Y-ev.Dragged.DY)
		row, col := e.grid.CursorLocationForPosition(start)
		e.buffer.MoveToRowCol(row, col, false)
	}
	row, col := e.grid.CursorLocationForPosition(ev.Position)
	e.buffer.MoveToRowCol(row, col, true)
	e.Reload()
}

func (e *SQLEditor) DragEnd() {
	e.mu.Lock()
	e.dragging = false
	e.mu.Unlock()
}

// --- fyne.Shortcutable ---

func (e *SQLEditor) TypedShortcut(s fyne.Shortcut) {
	if cs, ok := s.(*desktop.CustomShortcut); ok {
		e.handleCustomShortcut(cs)
		return
	}

	clipboard := fyne.CurrentApp().Clipboard()
	switch s.(type) {
	case *fyne.ShortcutCopy:
		if text := e.buffer.SelectedText(); text != "" {
			clipboard.SetContent(text)
		}
		return
	case *fyne.ShortcutCut:
		text := e.buffer.SelectedText()
		if text == "" {
			return
		}
		clipboard.SetContent(text)
		e.buffer.Backspace()
	case *fyne.ShortcutPaste:
		content := clipboard.Content()
		if content == "" {
			return
		}
		e.buffer.Insert(content)
	case *fyne.ShortcutSelectAll:
		e.buffer.SelectAll()
	case *fyne.ShortcutUndo:
		e.buffer.Undo()
	case *fyne.ShortcutRedo:
		e.buffer.Redo()
	default:
		return
	}
	e.moved()
}

func (e *SQLEditor) handleCustomShortcut(cs *desktop.CustomShortcut) {
	wordMod := cs.Modifier&(fyne.KeyModifierSuper|fyne.KeyModifierControl|fyne.KeyModifierAlt) != 0
	cmdOrCtrl := cs.Modifier&(fyne.KeyModifierSuper|fyne.KeyModifierControl) != 0
	shift := cs.Modifier&fyne.KeyModifierShift != 0

	switch cs.KeyName {
	case fyne.KeyReturn, fyne.KeyEnter:
		if cmdOrCtrl && e.OnRun != nil {
			e.OnRun(0)
		}
		return
	case fyne.Key1, fyne.Key2, fyne.Key3:
		if cmdOrCtrl && e.OnRun != nil {
			e.OnRun(int(cs.KeyName[0] - '1'))
		}
		return
	case fyne.KeyZ:
		if !cmdOrCtrl {
			return
		}
		if shift {
			e.buffer.Redo()
		} else {
			e.buffer.Undo()
		}
	case fyne.KeyLeft:
		if wordMod {
			e.buffer.WordLeft(shift)
		} else if shift {
			e.buffer.MoveLeft(true)
		}
	case fyne.KeyRight:
		if wordMod {
			e.buffer.WordRight(shift)
		} else if shift {
			e.buffer.MoveRight(true)
		}
	case fyne.KeyUp:
		e.buffer.MoveUp(shift)
	case fyne.KeyDown:
		e.buffer.MoveDown(shift)
	case fyne.KeyHome:
		e.buffer.MoveHome(shift)
	case fyne.KeyEnd:
		e.buffer.MoveEnd(shift)
	case fyne.KeyBackspace:
		if cmdOrCtrl {
			e.buffer.DeleteToLineStart()
		} else if cs.Modifier&fyne.KeyModifierAlt != 0 {
			e.buffer.DeleteWordLeft()
		}
	default:
		return
	}
	e.moved()
}

// --- Renderer ---

type sqlEditorRenderer struct {
	editor *SQLEditor
	grid   *widget.TextGrid
}

func (e *SQLEditor) CreateRenderer() fyne.WidgetRenderer {
	e.ExtendBaseWidget(e)
	e.Reload()
	return &sqlEditorRenderer{editor: e, grid: e.grid}
}

func (r *sqlEditorRenderer) Layout(size fyne.Size) {
	r.grid.Resize(size)
	r.grid.Move(fyne.NewPos(0, 0))
}

func (r *sqlEditorRenderer) MinSize() fyne.Size {
	return r.grid.MinSize()
}

func (r *sqlEditorRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.grid}
}

func (r *sqlEditorRenderer) Refresh() {
	r.grid.Refresh()
}

func (r *sqlEditorRenderer) Destroy() {
	r.editor.stopBlinkTimer()
}
