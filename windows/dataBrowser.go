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
	"fmt"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"dossier/datatable"
)

const (
	minColumnWidth    = 60
	maxColumnWidth    = 400
	columnWidthSample = 100
)

// ResultView shows one result slot: a filter bar, the grid and a status
// line. All methods run on the UI goroutine.
type ResultView struct {
	w      fyne.Window
	title  string
	logger *zap.Logger

	rs       *datatable.ResultSet
	model    *datatable.TableModel
	selected widget.TableCellID
	hasCell  bool

	table   *widget.Table
	filter  *widget.Entry
	status  *widget.Label
	content fyne.CanvasObject

	statusCallback func(string)
}

// NewResultView creates an empty view. title names exported files.
func NewResultView(w fyne.Window, title string, logger *zap.Logger, statusCallback func(string)) *ResultView {
	v := &ResultView{w: w, title: title, logger: logger, statusCallback: statusCallback}

	v.table = widget.NewTableWithHeaders(v.size, v.createCell, v.updateCell)
	v.table.ShowHeaderColumn = false
	v.table.CreateHeader = func() fyne.CanvasObject {
		return widget.NewButton("", nil)
	}
	v.table.UpdateHeader = v.updateHeader
	v.table.OnSelected = func(id widget.TableCellID) {
		v.selected, v.hasCell = id, true
	}

	v.filter = widget.NewEntry()
	v.filter.SetPlaceHolder("Filter: column = value AND other > 3")
	v.filter.OnSubmitted = v.applyFilter
	v.filter.OnChanged = func(s string) {
		if strings.TrimSpace(s) == "" {
			v.applyFilter("")
		}
	}

	copyButton := widget.NewButtonWithIcon("", theme.ContentCopyIcon(), v.CopySelected)
	exportButton := widget.NewButtonWithIcon("", theme.DocumentSaveIcon(), v.ShowExportMenu)

	v.status = widget.NewLabel("")
	v.status.TextStyle = fyne.TextStyle{Italic: true}

	bar := container.NewBorder(nil, nil, nil, container.NewHBox(copyButton, exportButton), v.filter)
	v.content = container.NewBorder(bar, v.status, nil, nil, v.table)
	return v
}

// Content is the canvas object placed in a tab.
func (v *ResultView) Content() fyne.CanvasObject {
	return v.content
}

func (v *ResultView) Model() *datatable.TableModel {
	return v.model
}

// SetResult replaces the displayed result set. The filter and sort of the
// previous result are dropped.
func (v *ResultView) SetResult(rs *datatable.ResultSet) {
	v.rs = rs
	v.model = nil
	v.hasCell = false
	if rs != nil {
		model, err := datatable.NewTableModel(rs)
		if err != nil {
			v.logger.Warn("failed to create table model", zap.String("view", v.title), zap.Error(err))
		} else {
			v.model = model
		}
	}
	v.filter.SetText("")
	v.table.UnselectAll()
	v.adjustColumnWidths()
	v.table.ScrollToTop()
	v.table.Refresh()
	v.updateStatus()
}

func (v *ResultView) size() (int, int) {
	if v.model == nil {
		return 0, 0
	}
	return v.model.VisibleRowCount(), len(v.model.Columns())
}

func (v *ResultView) createCell() fyne.CanvasObject {
	label := widget.NewLabel("")
	label.Truncation = fyne.TextTruncateEllipsis
	return label
}

func (v *ResultView) updateCell(id widget.TableCellID, obj fyne.CanvasObject) {
	label, ok := obj.(*widget.Label)
	if !ok || v.model == nil {
		return
	}
	value, err := v.model.VisibleCell(id.Row, id.Col)
	if err != nil {
		label.SetText("")
		return
	}

	role := value.Role()
	if v.rs != nil && v.rs.IsError {
		role = datatable.RoleError
	}
	label.Alignment = fyne.TextAlignLeading
	if role.RightAligned() {
		label.Alignment = fyne.TextAlignTrailing
	}
	switch role {
	case datatable.RoleError:
		label.Importance = widget.DangerImportance
	case datatable.RoleNull:
		label.Importance = widget.LowImportance
	default:
		label.Importance = widget.MediumImportance
	}
	label.SetText(value.Formatted)
}

func (v *ResultView) updateHeader(id widget.TableCellID, obj fyne.CanvasObject) {
	button, ok := obj.(*widget.Button)
	if !ok || v.model == nil || id.Row != -1 {
		return
	}
	columns := v.model.Columns()
	if id.Col < 0 || id.Col >= len(columns) {
		return
	}

	text := columns[id.Col]
	if s := v.model.SortState(); s.IsSorted() && s.Column == id.Col {
		if s.Direction == datatable.SortAscending {
			text += " ↑"
		} else {
			text += " ↓"
		}
	}
	button.SetText(text)
	col := id.Col
	button.OnTapped = func() { v.toggleSort(col) }
}

func (v *ResultView) toggleSort(col int) {
	if v.model == nil {
		return
	}
	if err := v.model.ToggleSort(col); err != nil {
		v.setStatus(fmt.Sprintf("Sort failed: %v", err))
		return
	}
	v.table.Refresh()
	v.updateStatus()
}

func (v *ResultView) applyFilter(expr string) {
	if v.model == nil {
		return
	}
	if err := v.model.SetFilter(expr); err != nil {
		v.setStatus(fmt.Sprintf("Filter error: %v", err))
		return
	}
	v.table.UnselectAll()
	v.hasCell = false
	v.table.Refresh()
	v.updateStatus()
}

// adjustColumnWidths sizes columns to fit their header and a sample of
// their cells.
func (v *ResultView) adjustColumnWidths() {
	if v.model == nil {
		return
	}
	size := theme.TextSize()
	pad := theme.Padding() * 4
	rows := min(v.model.VisibleRowCount(), columnWidthSample)
	for col, name := range v.model.Columns() {
		width := fyne.MeasureText(name+" ↓", size, fyne.TextStyle{Bold: true}).Width
		for row := range rows {
			if value, err := v.model.VisibleCell(row, col); err == nil {
				width = max(width, fyne.MeasureText(value.Formatted, size, fyne.TextStyle{}).Width)
			}
		}
		v.table.SetColumnWidth(col, min(max(width+pad, minColumnWidth), maxColumnWidth))
	}
}

// updateStatus updates the status line with the table dimensions.
func (v *ResultView) updateStatus() {
	if v.model == nil {
		v.setStatus("")
		return
	}
	total := v.model.Source().RowCount()
	visible := v.model.VisibleRowCount()
	cols := len(v.model.Columns())

	var text string
	if visible != total {
		text = fmt.Sprintf("%s (showing %d/%d rows x %d columns)", v.title, visible, total, cols)
	} else {
		text = fmt.Sprintf("%s (%d rows x %d columns)", v.title, total, cols)
	}
	if s := v.model.SortState(); s.IsSorted() {
		direction := "↑"
		if s.Direction == datatable.SortDescending {
			direction = "↓"
		}
		text += fmt.Sprintf(" | Sorted: %s %s", v.model.Columns()[s.Column], direction)
	}
	if expr := v.model.FilterExpression(); expr != "" {
		text += " | Filter: " + expr
	}
	v.setStatus(text)
}

func (v *ResultView) setStatus(text string) {
	v.status.SetText(text)
	if v.statusCallback != nil && text != "" {
		v.statusCallback(text)
	}
}

// CopySelected puts the selected cell on the clipboard.
func (v *ResultView) CopySelected() {
	if !v.hasCell || v.model == nil {
		return
	}
	value, err := v.model.VisibleCell(v.selected.Row, v.selected.Col)
	if err != nil {
		return
	}
	fyne.CurrentApp().Clipboard().SetContent(value.Formatted)
	v.setStatus("Copied: " + value.Formatted)
}

// ShowExportMenu pops up the export format choices under the pointer.
func (v *ResultView) ShowExportMenu() {
	if v.model == nil {
		dialog.ShowInformation("Export", "There is nothing to export yet", v.w)
		return
	}
	var items []*fyne.MenuItem
	for _, format := range []datatable.ExportFormat{datatable.FormatCSV, datatable.FormatJSON, datatable.FormatParquet} {
		items = append(items, fyne.NewMenuItem("Export as "+strings.ToUpper(format.String()), func() {
			v.exportData(format)
		}))
	}
	canvas := v.w.Canvas()
	pos := fyne.CurrentApp().Driver().AbsolutePositionForObject(v.filter)
	widget.ShowPopUpMenuAtPosition(fyne.NewMenu("", items...), canvas, pos.AddXY(v.filter.Size().Width, v.filter.Size().Height))
}

// exportData writes the visible rows, in display order, to a file the
// user picks.
func (v *ResultView) exportData(format datatable.ExportFormat) {
	model := v.model
	if model == nil {
		return
	}
	saveDialog := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, v.w)
			return
		}
		if writer == nil {
			return
		}
		path := writer.URI().Path()
		_ = writer.Close()

		progress := widget.NewProgressBarInfinite()
		progressDialog := dialog.NewCustomWithoutButtons("Exporting...", progress, v.w)
		progressDialog.Resize(fyne.NewSize(300, 100))
		progressDialog.Show()

		go func() {
			exportErr := datatable.ExportFile(model.Source(), model.VisibleRows(), format, path)
			fyne.Do(func() {
				progressDialog.Hide()
				if exportErr != nil {
					v.logger.Error("export failed", zap.String("path", path), zap.Error(exportErr))
					dialog.ShowError(fmt.Errorf("export failed: %w", exportErr), v.w)
					return
				}
				v.logger.Info("exported result", zap.String("path", path), zap.Stringer("format", format))
				dialog.ShowInformation("Export Successful",
					fmt.Sprintf("Data exported successfully to:\n%s", path), v.w)
			})
		}()
	}, v.w)
	saveDialog.SetFileName(cleanFilename(v.title) + format.Extension())
	saveDialog.Show()
}
