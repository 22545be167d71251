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

package datatable

import (
	"fmt"
	"strings"
)

// ResultSet is the outcome of one statement: column headers, their types
// and the rows. An error result carries the message as its only cell.
type ResultSet struct {
	Headers      []string
	Types        []DataType
	Records      [][]any
	IsError      bool
	RowsAffected int64
}

var _ DataSource = (*ResultSet)(nil)

// Message builds a one-cell result such as Result/OK.
func Message(header, text string) *ResultSet {
	return &ResultSet{
		Headers: []string{header},
		Types:   []DataType{TypeString},
		Records: [][]any{{text}},
	}
}

// OK is the result of a statement that returned no rows.
func OK() *ResultSet {
	return Message("Result", "OK")
}

// ErrorResult renders err as a one-cell error result.
func ErrorResult(err error) *ResultSet {
	rs := Message("Error", err.Error())
	rs.IsError = true
	return rs
}

// Errors renders several messages as one error result, one per row.
func Errors(messages []string) *ResultSet {
	rs := &ResultSet{
		Headers: []string{"Error"},
		Types:   []DataType{TypeString},
		IsError: true,
	}
	for _, m := range messages {
		rs.Records = append(rs.Records, []any{m})
	}
	return rs
}

func (rs *ResultSet) RowCount() int {
	if rs == nil {
		return 0
	}
	return len(rs.Records)
}

func (rs *ResultSet) ColumnCount() int {
	if rs == nil {
		return 0
	}
	return len(rs.Headers)
}

func (rs *ResultSet) ColumnName(col int) (string, error) {
	if col < 0 || col >= rs.ColumnCount() {
		return "", fmt.Errorf("%w: %d", ErrInvalidColumn, col)
	}
	return rs.Headers[col], nil
}

func (rs *ResultSet) ColumnType(col int) (DataType, error) {
	if col < 0 || col >= rs.ColumnCount() {
		return TypeString, fmt.Errorf("%w: %d", ErrInvalidColumn, col)
	}
	if col >= len(rs.Types) {
		return TypeString, nil
	}
	return rs.Types[col], nil
}

func (rs *ResultSet) Cell(row, col int) (Value, error) {
	if row < 0 || row >= rs.RowCount() {
		return Value{}, fmt.Errorf("%w: %d", ErrInvalidRow, row)
	}
	dt, err := rs.ColumnType(col)
	if err != nil {
		return Value{}, err
	}
	record := rs.Records[row]
	if col >= len(record) {
		return NewValue(nil, dt), nil
	}
	return NewValue(record[col], dt), nil
}

func (rs *ResultSet) Row(row int) ([]Value, error) {
	if row < 0 || row >= rs.RowCount() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRow, row)
	}
	values := make([]Value, rs.ColumnCount())
	for col := range values {
		v, err := rs.Cell(row, col)
		if err != nil {
			return nil, err
		}
		values[col] = v
	}
	return values, nil
}

func (rs *ResultSet) Metadata() Metadata {
	return Metadata{
		"is_error":      rs.IsError,
		"rows_affected": rs.RowsAffected,
	}
}

// CellRole is the display role of a cell; every cell of an error result
// has RoleError.
func (rs *ResultSet) CellRole(row, col int) Role {
	if rs.IsError {
		return RoleError
	}
	v, err := rs.Cell(row, col)
	if err != nil {
		return RoleText
	}
	return v.Role()
}

// Column returns the index of the column named name, case-insensitively.
func (rs *ResultSet) Column(name string) (int, bool) {
	for i, h := range rs.Headers {
		if strings.EqualFold(h, name) {
			return i, true
		}
	}
	return -1, false
}
