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
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"dossier/config"
	"dossier/database"
	"dossier/datatable"
	"dossier/editor"
	"dossier/store"
	"dossier/workspace"
)

const (
	appID       = "database-dossier"
	windowTitle = "Database Dossier"
	maxLogLines = 1000
)

// Options configures Run.
type Options struct {
	Settings config.Settings
	// Loader, when set, is watched for settings changes.
	Loader *config.Loader
	Store  *store.Store
	Dialer database.Dialer
	Logger *zap.Logger
}

// toolbarButton puts a labelled button in a widget.Toolbar.
type toolbarButton struct {
	button *widget.Button
}

func newToolbarButton(label string, icon fyne.Resource, tapped func()) *toolbarButton {
	b := widget.NewButtonWithIcon(label, icon, tapped)
	b.Importance = widget.LowImportance
	return &toolbarButton{button: b}
}

func (t *toolbarButton) ToolbarObject() fyne.CanvasObject {
	return t.button
}

var _ widget.ToolbarItem = (*toolbarButton)(nil)

// MainWindow is the application shell. It implements workspace.View.
type MainWindow struct {
	a        fyne.App
	w        fyne.Window
	logger   *zap.Logger
	settings config.Settings
	store    *store.Store
	theme    *CustomTheme

	ws     *workspace.Workspace
	buffer *editor.Buffer

	nav       *NavigationTree
	sqlEditor *SQLEditor
	results   map[string]*ResultView
	tabs      *container.AppTabs
	logText   *widget.RichText
	logScroll *container.Scroll

	fontSize     editor.FontSize
	fontOverride *container.ThemeOverride

	statusBar *widget.Label
	connLabel *widget.Label
	dbLabel   *widget.Label
	lineLabel *widget.Label
	lastLine  atomic.Int64
}

var _ workspace.View = (*MainWindow)(nil)

// Run builds the main window, restores the saved state and blocks until
// the window is closed.
func Run(opts Options) error {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Store == nil {
		st, err := store.Default(store.WithLogger(opts.Logger))
		if err != nil {
			return err
		}
		opts.Store = st
	}
	if opts.Dialer == nil {
		opts.Dialer = database.NewMySQLDialer(opts.Settings.ConnectTimeout, opts.Logger)
	}

	state, loadErr := opts.Store.Load()

	mw := &MainWindow{
		logger:   opts.Logger,
		settings: opts.Settings,
		store:    opts.Store,
		theme:    NewCustomTheme(opts.Settings.Theme),
		fontSize: editor.NewFontSize(opts.Settings.Editor.FontSize),
		results:  make(map[string]*ResultView),
	}
	mw.buffer = editor.NewBuffer(opts.Settings.Editor.UndoDepth)
	conns := database.NewConnectionList(state.Connections, opts.Dialer, database.WithLogger(opts.Logger))
	mw.ws = workspace.New(conns, mw.buffer, mw,
		workspace.WithLogger(opts.Logger),
		workspace.WithSettings(opts.Settings),
		workspace.WithDialer(opts.Dialer),
	)

	mw.NewMainWindow()
	if opts.Loader != nil {
		opts.Loader.Watch(mw.settingsChanged)
	}
	if loadErr != nil {
		mw.logger.Warn("failed to load saved state", zap.Error(loadErr))
		dialog.ShowError(fmt.Errorf("saved state could not be read, starting fresh: %w", loadErr), mw.w)
	}

	mw.background("Restoring connections...", func(ctx context.Context) error {
		return mw.ws.Restore(ctx, state)
	})
	mw.w.ShowAndRun()
	return nil
}

// NewMainWindow creates the window and its widgets.
func (mw *MainWindow) NewMainWindow() {
	mw.a = app.NewWithID(appID)
	mw.a.Settings().SetTheme(mw.theme)
	mw.w = mw.a.NewWindow(windowTitle)
	mw.w.Resize(fyne.NewSize(1200, 800))
	mw.w.SetMaster()

	mw.statusBar = widget.NewLabel("Ready")
	mw.statusBar.TextStyle = fyne.TextStyle{Italic: true}
	mw.statusBar.Truncation = fyne.TextTruncateEllipsis
	mw.connLabel = widget.NewLabelWithStyle("", fyne.TextAlignTrailing, fyne.TextStyle{Bold: true})
	mw.dbLabel = widget.NewLabel("")
	mw.lineLabel = widget.NewLabel("Line 1")
	bottom := container.NewBorder(nil, nil, nil,
		container.NewHBox(widget.NewIcon(theme.ComputerIcon()), mw.connLabel, widget.NewIcon(theme.StorageIcon()), mw.dbLabel, widget.NewSeparator(), mw.lineLabel),
		mw.statusBar,
	)

	mw.nav = NewNavigationTree(mw.ws.Connections().Tree())
	mw.nav.OnSelected = func(id string) {
		mw.background("Loading...", func(ctx context.Context) error {
			return mw.ws.SelectNode(ctx, id)
		})
	}
	mw.nav.OnContextMenu = mw.showNodeMenu
	left := widget.NewCard("", "Connections", mw.nav.Widget())

	mw.sqlEditor = NewSQLEditor(mw.buffer, editor.NewHighlighter())
	mw.sqlEditor.OnCursorMoved = mw.cursorMoved
	mw.sqlEditor.OnRun = mw.Execute

	mw.tabs = container.NewAppTabs()
	titles := map[string]string{workspace.SlotData: "Data", workspace.SlotSchema: "Schema"}
	for i := range workspace.ResultSlots {
		titles[workspace.ResultSlot(i)] = fmt.Sprintf("Result %d", i+1)
	}
	for _, slot := range workspace.Slots() {
		view := NewResultView(mw.w, titles[slot], mw.logger, mw.SetStatus)
		mw.results[slot] = view
		mw.tabs.Append(container.NewTabItem(titles[slot], view.Content()))
	}
	mw.logText = widget.NewRichText()
	mw.logText.Wrapping = fyne.TextWrapWord
	mw.logScroll = container.NewVScroll(mw.logText)
	mw.tabs.Append(container.NewTabItemWithIcon("Log", theme.ListIcon(), mw.logScroll))

	split := container.NewVSplit(container.NewScroll(mw.sqlEditor), mw.tabs)
	split.SetOffset(0.4)
	mw.fontOverride = container.NewThemeOverride(split, &fontSizeTheme{Theme: mw.theme, size: mw.fontSize})

	body := container.NewHSplit(left, mw.fontOverride)
	body.SetOffset(0.22)

	c := container.NewBorder(mw.newToolbar(), bottom, nil, nil, body)
	mw.w.SetContent(c)
	mw.registerShortcuts()
	mw.w.SetCloseIntercept(mw.closing)
}

func (mw *MainWindow) newToolbar() *widget.Toolbar {
	toolbar := widget.NewToolbar(
		widget.NewToolbarAction(theme.ContentAddIcon(), mw.AddConnection),
		widget.NewToolbarAction(theme.ContentRemoveIcon(), mw.RemoveActiveConnection),
		widget.NewToolbarAction(theme.ViewRefreshIcon(), mw.Refresh),
		widget.NewToolbarSeparator(),
	)
	for i := range workspace.ResultSlots {
		toolbar.Append(newToolbarButton(fmt.Sprintf("Run %d", i+1), theme.MediaPlayIcon(), func() { mw.Execute(i) }))
	}
	toolbar.Append(newToolbarButton("Select", theme.VisibilityIcon(), mw.SelectQuery))
	toolbar.Append(widget.NewToolbarSeparator())
	toolbar.Append(widget.NewToolbarAction(theme.ContentUndoIcon(), func() {
		mw.buffer.Undo()
	}))
	toolbar.Append(widget.NewToolbarAction(theme.ContentRedoIcon(), func() {
		mw.buffer.Redo()
	}))
	toolbar.Append(widget.NewToolbarAction(theme.ZoomInIcon(), func() {
		mw.setFontSize(mw.fontSize.Increase())
	}))
	toolbar.Append(widget.NewToolbarAction(theme.ZoomOutIcon(), func() {
		mw.setFontSize(mw.fontSize.Decrease())
	}))
	toolbar.Append(widget.NewToolbarSeparator())
	toolbar.Append(widget.NewToolbarAction(theme.FolderOpenIcon(), mw.OpenScript))
	toolbar.Append(widget.NewToolbarAction(theme.DocumentSaveIcon(), mw.ExportCurrent))
	toolbar.Append(widget.NewToolbarAction(theme.InfoIcon(), mw.ShowSchemaGraph))
	toolbar.Append(widget.NewToolbarSpacer())
	return toolbar
}

func (mw *MainWindow) registerShortcuts() {
	run := &desktop.CustomShortcut{KeyName: fyne.KeyReturn, Modifier: fyne.KeyModifierShortcutDefault}
	mw.w.Canvas().AddShortcut(run, func(fyne.Shortcut) { mw.Execute(0) })
	for i, key := range []fyne.KeyName{fyne.Key1, fyne.Key2, fyne.Key3} {
		s := &desktop.CustomShortcut{KeyName: key, Modifier: fyne.KeyModifierShortcutDefault}
		mw.w.Canvas().AddShortcut(s, func(fyne.Shortcut) { mw.Execute(i) })
	}
}

// SetStatus updates the status bar message. Call it on the UI goroutine.
func (mw *MainWindow) SetStatus(message string) {
	if mw.statusBar != nil {
		mw.statusBar.SetText(message)
	}
}

// background runs fn off the UI goroutine with the query timeout and
// reports failures in a dialog.
func (mw *MainWindow) background(status string, fn func(ctx context.Context) error) {
	mw.SetStatus(status)
	go func() {
		ctx, cancel := createTimeoutContext(mw.settings.QueryTimeout)
		defer cancel()
		err := fn(ctx)
		fyne.Do(func() {
			if err != nil {
				mw.logger.Warn("operation failed", zap.String("operation", status), zap.Error(err))
				mw.SetStatus("Error: " + err.Error())
				dialog.ShowError(err, mw.w)
				return
			}
			mw.SetStatus("Ready")
		})
	}()
}

// Execute runs the statement under the cursor, or the selection, into
// result slot i.
func (mw *MainWindow) Execute(i int) {
	mw.background(fmt.Sprintf("Running query %d...", i+1), func(ctx context.Context) error {
		defer mw.sqlEditor.Reload()
		return mw.ws.Execute(ctx, i)
	})
}

// SelectQuery highlights the statement under the cursor.
func (mw *MainWindow) SelectQuery() {
	mw.ws.SelectQuery()
	mw.sqlEditor.Reload()
}

func (mw *MainWindow) AddConnection() {
	showConnectionDialog(mw.w, mw.ws.TestConnection, func(cfg database.Config) {
		mw.background("Connecting to "+cfg.Name()+"...", func(ctx context.Context) error {
			return mw.ws.AddConnection(ctx, cfg)
		})
	})
}

// RemoveActiveConnection asks before removing the focused connection.
func (mw *MainWindow) RemoveActiveConnection() {
	cfg, ok := mw.ws.Connections().Active()
	if !ok {
		dialog.ShowInformation("Remove Connection", "Select a connection first", mw.w)
		return
	}
	index := mw.ws.Connections().ActiveIndex()
	dialog.ShowConfirm("Remove Connection", "Remove "+cfg.Name()+"?", func(ok bool) {
		if !ok {
			return
		}
		mw.background("Removing "+cfg.Name()+"...", func(ctx context.Context) error {
			_, err := mw.ws.RemoveConnection(ctx, index)
			return err
		})
	}, mw.w)
}

// Refresh reconnects every connection, including broken ones.
func (mw *MainWindow) Refresh() {
	mw.background("Refreshing connections...", func(ctx context.Context) error {
		mw.ws.Refresh(ctx)
		return nil
	})
}

func (mw *MainWindow) showNodeMenu(nodeID string, e *fyne.PointEvent) {
	node, ok := mw.ws.Connections().Tree().Node(nodeID)
	if !ok {
		return
	}
	items := []*fyne.MenuItem{
		fyne.NewMenuItem("Copy Name", func() {
			mw.a.Clipboard().SetContent(node.Name)
		}),
	}
	if node.NodeType == database.NodeTypeConnection {
		items = append(items, fyne.NewMenuItem("Remove Connection", func() {
			mw.background("Removing "+node.Name+"...", func(ctx context.Context) error {
				_, err := mw.ws.RemoveNode(ctx, nodeID)
				return err
			})
		}))
	}
	if node.NodeType == database.NodeTypeTable {
		items = append(items, fyne.NewMenuItem("Show Table", func() {
			mw.background("Loading "+node.Name+"...", func(ctx context.Context) error {
				return mw.ws.SelectNode(ctx, nodeID)
			})
		}))
	}
	widget.ShowPopUpMenuAtPosition(fyne.NewMenu("", items...), mw.w.Canvas(), e.AbsolutePosition)
}

// OpenScript loads a SQL file into the editor.
func (mw *MainWindow) OpenScript() {
	NewScriptDialog(mw.w, mw.ws.State().SQLPath, func(path, content string, err error) {
		if err != nil {
			dialog.ShowError(err, mw.w)
			return
		}
		mw.buffer.SetText(content)
		mw.SetStatus("Loaded " + path)
	}).Show()
}

// ExportCurrent exports the result shown in the selected tab.
func (mw *MainWindow) ExportCurrent() {
	index := mw.tabs.SelectedIndex()
	slots := workspace.Slots()
	if index < 0 || index >= len(slots) {
		dialog.ShowInformation("Export", "Select a result tab to export", mw.w)
		return
	}
	mw.results[slots[index]].ShowExportMenu()
}

// ShowSchemaGraph shows the foreign keys of the active database as JSON.
func (mw *MainWindow) ShowSchemaGraph() {
	mw.background("Reading foreign keys...", func(ctx context.Context) error {
		schema, err := mw.ws.ActiveSchema(ctx)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(schema, "", "    ")
		if err != nil {
			return err
		}
		fyne.Do(func() {
			text := widget.NewMultiLineEntry()
			text.SetText(string(data))
			text.TextStyle = fyne.TextStyle{Monospace: true}
			d := dialog.NewCustom("Foreign Keys", "Close", container.NewScroll(text), mw.w)
			d.Resize(fyne.NewSize(600, 500))
			d.Show()
		})
		return nil
	})
}

func (mw *MainWindow) setFontSize(size editor.FontSize) {
	mw.fontSize = size
	mw.fontOverride.Theme = &fontSizeTheme{Theme: mw.theme, size: size}
	mw.fontOverride.Refresh()
	mw.SetStatus(fmt.Sprintf("Font size %d", size))
}

func (mw *MainWindow) cursorMoved(line int) {
	if mw.lastLine.Swap(int64(line)) == int64(line) {
		return
	}
	fyne.Do(func() {
		mw.lineLabel.SetText(fmt.Sprintf("Line %d", line))
	})
}

func (mw *MainWindow) settingsChanged(s config.Settings) {
	mw.logger.Info("settings changed", zap.String("theme", s.Theme))
	fyne.Do(func() {
		mw.theme = NewCustomTheme(s.Theme)
		mw.a.Settings().SetTheme(mw.theme)
		mw.setFontSize(editor.NewFontSize(s.Editor.FontSize))
	})
}

// closing saves the state before the window goes away.
func (mw *MainWindow) closing() {
	if err := mw.store.Save(mw.ws.State()); err != nil {
		mw.logger.Error("failed to save state", zap.Error(err))
	}
	mw.ws.Close()
	mw.w.Close()
}

// --- workspace.View ---

func (mw *MainWindow) ResultChanged(slot string, rs *datatable.ResultSet) {
	fyne.Do(func() {
		if view, ok := mw.results[slot]; ok {
			view.SetResult(rs)
		}
	})
}

func (mw *MainWindow) ShowTab(index int) {
	fyne.Do(func() {
		if index >= 0 && index < len(mw.tabs.Items) {
			mw.tabs.SelectIndex(index)
		}
	})
}

func (mw *MainWindow) SetTabTitle(index int, title string) {
	fyne.Do(func() {
		if index >= 0 && index < len(mw.tabs.Items) {
			mw.tabs.Items[index].Text = title
			mw.tabs.Refresh()
		}
	})
}

func (mw *MainWindow) SetIndicators(connection, db string) {
	fyne.Do(func() {
		mw.connLabel.SetText(connection)
		mw.dbLabel.SetText(db)
		title := windowTitle
		if connection != "" {
			title = strings.Join([]string{windowTitle, connection}, " - ")
		}
		mw.w.SetTitle(title)
	})
}

func (mw *MainWindow) AppendLog(line string) {
	stamp := time.Now().Format("15:04:05")
	fyne.Do(func() {
		segment := &widget.TextSegment{
			Text: stamp + "  " + line,
			Style: widget.RichTextStyle{
				TextStyle: fyne.TextStyle{Monospace: true},
				ColorName: theme.ColorNameForeground,
			},
		}
		mw.logText.Segments = append(mw.logText.Segments, segment)
		if n := len(mw.logText.Segments); n > maxLogLines {
			mw.logText.Segments = mw.logText.Segments[n-maxLogLines:]
		}
		mw.logText.Refresh()
		mw.logScroll.ScrollToBottom()
	})
}
