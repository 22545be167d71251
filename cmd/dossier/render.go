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

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"dossier/database"
	"dossier/datatable"
	"dossier/store"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	nullStyle   = cellStyle.Faint(true)
	errorStyle  = cellStyle.Foreground(lipgloss.Color("#f38ba8"))
)

// renderResult draws rs as a bordered table.
func renderResult(rs *datatable.ResultSet) string {
	rows := make([][]string, rs.RowCount())
	roles := make([][]datatable.Role, rs.RowCount())
	for r := range rows {
		rows[r] = make([]string, rs.ColumnCount())
		roles[r] = make([]datatable.Role, rs.ColumnCount())
		for c := range rows[r] {
			v, err := rs.Cell(r, c)
			if err != nil {
				continue
			}
			rows[r][c] = v.Formatted
			roles[r][c] = rs.CellRole(r, c)
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(rs.Headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row < 0 || row >= len(roles) || col >= len(roles[row]) {
				return cellStyle
			}
			switch role := roles[row][col]; {
			case role == datatable.RoleError:
				return errorStyle
			case role == datatable.RoleNull:
				return nullStyle
			case role.RightAligned():
				return numberStyle
			default:
				return cellStyle
			}
		})
	return t.String()
}

// renderConnections draws the saved connections, marking the active one.
func renderConnections(state *store.State) string {
	if len(state.Connections) == 0 {
		return "No saved connections."
	}
	rows := make([][]string, 0, len(state.Connections))
	for i, cfg := range state.Connections {
		active := ""
		if idx := state.ActiveConnectionIndex; idx != nil && *idx == i {
			active = "*"
		}
		rows = append(rows, []string{strconv.Itoa(i), cfg.Name(), cfg.Database, cfg.Table, active})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "Connection", "Database", "Table", "Active").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}

// writeSchema prints the foreign-key graph as json or yaml.
func writeSchema(w io.Writer, schema database.Schema, format string) error {
	if schema == nil {
		schema = database.Schema{}
	}
	switch format {
	case "json", "":
		data, err := json.MarshalIndent(schema, "", "    ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(schema); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown schema format %q (want json or yaml)", format)
	}
}
