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
	"errors"
	"fmt"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"dossier/database"
)

const maxPort = 10000

var errHostRequired = errors.New("host is required")

// connectionForm holds the entries of the connection dialog.
type connectionForm struct {
	host     *widget.Entry
	port     *widget.Entry
	user     *widget.Entry
	password *widget.Entry
	database *widget.Entry
}

func newConnectionForm() *connectionForm {
	f := &connectionForm{
		host:     widget.NewEntry(),
		port:     widget.NewEntry(),
		user:     widget.NewEntry(),
		password: widget.NewPasswordEntry(),
		database: widget.NewEntry(),
	}
	f.host.SetPlaceHolder("localhost")
	f.port.SetText(strconv.Itoa(database.DefaultPort))
	f.port.Validator = func(s string) error {
		_, err := parsePort(s)
		return err
	}
	f.user.SetPlaceHolder("root")
	f.database.SetPlaceHolder("optional")
	return f
}

func (f *connectionForm) config() (database.Config, error) {
	return parseConnectionForm(f.host.Text, f.port.Text, f.user.Text, f.password.Text, f.database.Text)
}

// parseConnectionForm validates the dialog fields. An empty port means
// the MySQL default.
func parseConnectionForm(host, port, user, password, db string) (database.Config, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return database.Config{}, errHostRequired
	}
	p, err := parsePort(port)
	if err != nil {
		return database.Config{}, err
	}
	return database.Config{
		Host:     host,
		Port:     p,
		User:     strings.TrimSpace(user),
		Password: password,
		Database: strings.TrimSpace(db),
	}, nil
}

func parsePort(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return database.DefaultPort, nil
	}
	p, err := strconv.Atoi(s)
	if err != nil || p < 1 || p > maxPort {
		return 0, fmt.Errorf("port must be a number between 1 and %d", maxPort)
	}
	return p, nil
}

// showConnectionDialog asks for a new connection. test dials the entered
// settings; add is called with them when the user confirms.
func showConnectionDialog(w fyne.Window, test func(context.Context, database.Config) error, add func(database.Config)) {
	form := newConnectionForm()
	status := widget.NewLabel("")
	status.Wrapping = fyne.TextWrapWord

	var testButton *widget.Button
	testButton = widget.NewButtonWithIcon("Test", theme.MediaPlayIcon(), func() {
		cfg, err := form.config()
		if err != nil {
			status.Importance = widget.DangerImportance
			status.SetText(err.Error())
			return
		}
		testButton.Disable()
		status.Importance = widget.MediumImportance
		status.SetText("Connecting to " + cfg.Name() + "...")
		go func() {
			ctx, cancel := createTimeoutContext(0)
			defer cancel()
			err := test(ctx, cfg)
			fyne.Do(func() {
				testButton.Enable()
				if err != nil {
					status.Importance = widget.DangerImportance
					status.SetText("Connection failed: " + err.Error())
					return
				}
				status.Importance = widget.SuccessImportance
				status.SetText("Connection succeeded")
			})
		}()
	})

	items := widget.NewForm(
		widget.NewFormItem("Host", form.host),
		widget.NewFormItem("Port", form.port),
		widget.NewFormItem("User", form.user),
		widget.NewFormItem("Password", form.password),
		widget.NewFormItem("Database", form.database),
	)
	content := container.NewVBox(items, container.NewHBox(testButton), status)

	d := dialog.NewCustomConfirm("Add Connection", "Add", "Cancel", content, func(ok bool) {
		if !ok {
			return
		}
		cfg, err := form.config()
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		add(cfg)
	}, w)
	d.Resize(fyne.NewSize(420, 0))
	d.Show()
	w.Canvas().Focus(form.host)
}
