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
	"slices"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// scriptExtensions are the files the script browser offers.
var scriptExtensions = []string{".sql", ".txt"}

// ScriptDialog browses the file system for a SQL script and hands its
// content to callback.
type ScriptDialog struct {
	dialog      dialog.Dialog
	window      fyne.Window
	callback    func(path, content string, err error)
	fileList    *widget.List
	files       []string
	homeDir     string
	currentPath string
	pathLabel   *widget.Label
}

// NewScriptDialog starts browsing in the directory of start, or the home
// directory when start is empty.
func NewScriptDialog(w fyne.Window, start string, callback func(path, content string, err error)) *ScriptDialog {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	current := homeDir
	if start != "" {
		if info, err := os.Stat(filepath.Dir(start)); err == nil && info.IsDir() {
			current = filepath.Dir(start)
		}
	}
	return &ScriptDialog{window: w, callback: callback, homeDir: homeDir, currentPath: current}
}

func (sd *ScriptDialog) Show() {
	sd.pathLabel = widget.NewLabel(sd.currentPath)
	sd.pathLabel.Truncation = fyne.TextTruncateEllipsis
	sd.pathLabel.TextStyle = fyne.TextStyle{Bold: true}

	sd.fileList = widget.NewList(
		func() int {
			return len(sd.files)
		},
		func() fyne.CanvasObject {
			return container.NewHBox(widget.NewIcon(theme.DocumentIcon()), widget.NewLabel("template"))
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			cont := obj.(*fyne.Container)
			icon := cont.Objects[0].(*widget.Icon)
			label := cont.Objects[1].(*widget.Label)

			name := sd.files[id]
			label.SetText(name)
			if strings.HasSuffix(name, string(filepath.Separator)) {
				icon.SetResource(theme.FolderIcon())
			} else {
				icon.SetResource(theme.DocumentIcon())
			}
		},
	)

	sd.fileList.OnSelected = func(id widget.ListItemID) {
		name := sd.files[id]
		fullPath := filepath.Join(sd.currentPath, strings.TrimSuffix(name, string(filepath.Separator)))
		if strings.HasSuffix(name, string(filepath.Separator)) {
			sd.currentPath = fullPath
			sd.loadDirectory()
			sd.fileList.UnselectAll()
			return
		}
		content, err := os.ReadFile(fullPath)
		sd.dialog.Hide()
		sd.callback(fullPath, string(content), err)
	}

	homeButton := widget.NewButtonWithIcon("Home", theme.HomeIcon(), func() {
		sd.currentPath = sd.homeDir
		sd.loadDirectory()
	})
	upButton := widget.NewButtonWithIcon("Up", theme.NavigateBackIcon(), func() {
		if parent := filepath.Dir(sd.currentPath); parent != sd.currentPath {
			sd.currentPath = parent
			sd.loadDirectory()
		}
	})
	refreshButton := widget.NewButtonWithIcon("Refresh", theme.ViewRefreshIcon(), sd.loadDirectory)

	filterInfo := widget.NewLabel("Showing: .sql and .txt files, and directories")
	filterInfo.TextStyle = fyne.TextStyle{Italic: true}

	navToolbar := container.NewBorder(nil, nil,
		container.NewHBox(homeButton, upButton, refreshButton), nil,
		sd.pathLabel,
	)

	content := container.NewBorder(
		container.NewVBox(navToolbar, widget.NewSeparator(), filterInfo),
		nil, nil, nil,
		sd.fileList,
	)

	sd.dialog = dialog.NewCustom("Open SQL Script", "Close", content, sd.window)
	sd.dialog.Resize(fyne.NewSize(700, 500))
	sd.loadDirectory()
	sd.dialog.Show()
}

func (sd *ScriptDialog) loadDirectory() {
	files, err := listScripts(sd.currentPath)
	if err != nil {
		dialog.ShowError(err, sd.window)
		return
	}
	sd.files = files
	sd.pathLabel.SetText(sd.currentPath)
	sd.fileList.Refresh()
}

// listScripts returns the visible directories of dir, suffixed with the
// path separator, followed by its script files. Both groups are sorted.
func listScripts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var dirs, files []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if entry.IsDir() {
			dirs = append(dirs, name+string(filepath.Separator))
			continue
		}
		if slices.Contains(scriptExtensions, strings.ToLower(filepath.Ext(name))) {
			files = append(files, name)
		}
	}
	slices.Sort(dirs)
	slices.Sort(files)
	return append(dirs, files...), nil
}
