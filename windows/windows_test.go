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
	"os"
	"path/filepath"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"
	"fyne.io/fyne/v2/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dossier/database"
	"dossier/datatable"
	"dossier/editor"
)

func TestCleanFilename(t *testing.T) {
	tests := map[string]string{
		"orders":        "orders",
		"Data: orders":  "Data__orders",
		"a/b\\c":        "a_b_c",
		"  ":            "export",
		"..":            "export",
		"Result 1":      "Result_1",
		"shop.`orders`": "shop._orders_",
	}
	for in, want := range tests {
		assert.Equal(t, want, cleanFilename(in), in)
	}
}

func TestParseConnectionForm(t *testing.T) {
	cfg, err := parseConnectionForm(" db.local ", "", " root ", "secret", " shop ")
	require.NoError(t, err)
	assert.Equal(t, database.Config{Host: "db.local", Port: 3306, User: "root", Password: "secret", Database: "shop"}, cfg)

	cfg, err = parseConnectionForm("h", "3307", "u", "", "")
	require.NoError(t, err)
	assert.Equal(t, 3307, cfg.Port)

	_, err = parseConnectionForm(" ", "3306", "u", "", "")
	assert.ErrorIs(t, err, errHostRequired)

	for _, port := range []string{"x", "0", "10001", "-1"} {
		_, err = parseConnectionForm("h", port, "u", "", "")
		assert.Error(t, err, port)
	}
}

func TestListScripts(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.sql", "a.SQL", "notes.txt", "image.png", ".hidden.sql"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "queries"), 0o700))
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o700))

	files, err := listScripts(dir)
	require.NoError(t, err)
	sep := string(filepath.Separator)
	assert.Equal(t, []string{"queries" + sep, "a.SQL", "b.sql", "notes.txt"}, files)

	_, err = listScripts(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestSQLEditorKeys(t *testing.T) {
	test.NewTempApp(t)
	buf := editor.NewBuffer(0)
	e := NewSQLEditor(buf, editor.NewHighlighter())

	for _, r := range "selct" {
		e.TypedRune(r)
	}
	e.TypedKey(&fyne.KeyEvent{Name: fyne.KeyLeft})
	e.TypedKey(&fyne.KeyEvent{Name: fyne.KeyLeft})
	e.TypedRune('e')
	e.TypedKey(&fyne.KeyEvent{Name: fyne.KeyEnd})
	e.TypedKey(&fyne.KeyEvent{Name: fyne.KeyReturn})
	e.TypedRune('1')
	assert.Equal(t, "select\n1", buf.Text())
	assert.Equal(t, 2, buf.LineNumber())

	e.TypedKey(&fyne.KeyEvent{Name: fyne.KeyBackspace})
	assert.Equal(t, "select\n", buf.Text())

	var slots []int
	e.OnRun = func(slot int) { slots = append(slots, slot) }
	e.TypedShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyReturn, Modifier: fyne.KeyModifierControl})
	e.TypedShortcut(&desktop.CustomShortcut{KeyName: fyne.Key3, Modifier: fyne.KeyModifierControl})
	assert.Equal(t, []int{0, 2}, slots)

	e.TypedShortcut(&fyne.ShortcutSelectAll{})
	assert.Equal(t, "select\n", buf.SelectedText())
}

func TestSQLEditorRows(t *testing.T) {
	a := test.NewTempApp(t)
	a.Settings().SetTheme(NewCustomTheme("light"))
	buf := editor.NewBuffer(0)
	e := NewSQLEditor(buf, editor.NewHighlighter())
	buf.SetText("select 1\nx")

	rows := e.buildRows(buf.Snapshot(), false)
	require.Len(t, rows, 2)
	assert.Len(t, rows[0].Cells, len("select 1"))
	// The cursor line gets one trailing cell for the line highlight.
	assert.Len(t, rows[1].Cells, 2)

	keyword, ok := rows[0].Cells[0].Style.(*widget.CustomTextGridStyle)
	require.True(t, ok)
	assert.Equal(t, themeColor(ColorNameSQLKeyword), keyword.FGColor)

	buf.Select(0, 6)
	rows = e.buildRows(buf.Snapshot(), false)
	sel, ok := rows[0].Cells[2].Style.(*widget.CustomTextGridStyle)
	require.True(t, ok)
	assert.NotNil(t, sel.BGColor)
}

func TestNavigationTreeDisplay(t *testing.T) {
	test.NewTempApp(t)
	tree := database.NewTree()
	nt := NewNavigationTree(tree)

	conn := tree.AddConnection("root@h:3306")
	dbs := tree.SetChildren(conn, database.NodeTypeDatabase, []string{"shop"})
	assert.Equal(t, []string{conn}, nt.GetChildren(""))
	assert.True(t, nt.IsBranch(dbs[0]))

	obj := nt.createNode(true)
	tree.SetStatus(conn, database.StatusSelected)
	nt.UpdateNodeDisplay(conn, true, obj)
	label := obj.(*fyne.Container).Objects[1].(*tappableNodeLabel)
	assert.Equal(t, "root@h:3306", label.Text)
	assert.Equal(t, widget.HighImportance, label.Importance)
	assert.True(t, label.TextStyle.Bold)

	tree.SetStatus(conn, database.StatusBroken)
	nt.UpdateNodeDisplay(conn, true, obj)
	assert.Equal(t, widget.DangerImportance, label.Importance)

	var tapped string
	nt.OnSelected = func(id string) { tapped = id }
	label.Tapped(&fyne.PointEvent{})
	assert.Equal(t, conn, tapped)
}

func TestResultView(t *testing.T) {
	w := test.NewTempWindow(t, widget.NewLabel(""))
	v := NewResultView(w, "Data", zap.NewNop(), nil)

	v.SetResult(&datatable.ResultSet{
		Headers: []string{"id", "score"},
		Types:   []datatable.DataType{datatable.TypeInt, datatable.TypeFloat},
		Records: [][]any{{int64(1), 1.5}, {int64(2), 20.0}, {int64(3), 30.0}},
	})
	rows, cols := v.size()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 2, cols)
	assert.Equal(t, "Data (3 rows x 2 columns)", v.status.Text)

	v.applyFilter("score < 10")
	assert.Equal(t, 1, v.model.VisibleRowCount())
	assert.Equal(t, "Data (showing 1/3 rows x 2 columns) | Filter: score < 10", v.status.Text)

	v.applyFilter("nope = 1")
	assert.Contains(t, v.status.Text, "Filter error")
	assert.Equal(t, "score < 10", v.model.FilterExpression())

	cell := v.createCell()
	v.updateCell(widget.TableCellID{Row: 0, Col: 0}, cell)
	assert.Equal(t, fyne.TextAlignTrailing, cell.(*widget.Label).Alignment)

	v.SetResult(datatable.ErrorResult(assert.AnError))
	v.updateCell(widget.TableCellID{Row: 0, Col: 0}, cell)
	assert.Equal(t, widget.DangerImportance, cell.(*widget.Label).Importance)
	assert.Equal(t, assert.AnError.Error(), cell.(*widget.Label).Text)
}
