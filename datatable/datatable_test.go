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
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *ResultSet {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return &ResultSet{
		Headers: []string{"id", "name", "score", "created"},
		Types:   []DataType{TypeInt, TypeString, TypeFloat, TypeDate},
		Records: [][]any{
			{int64(1), "ann", 1.5, day},
			{int64(2), nil, 20.0, day.AddDate(0, 0, 1)},
			{int64(3), "Bob", 3.0, nil},
		},
	}
}

func TestValueRoles(t *testing.T) {
	rs := sampleResult()

	v, err := rs.Cell(1, 1)
	require.NoError(t, err)
	assert.True(t, v.IsNull)
	assert.Equal(t, NullText, v.Formatted)
	assert.Equal(t, RoleNull, v.Role())

	assert.Equal(t, RoleNumber, rs.CellRole(0, 0))
	assert.Equal(t, RoleDate, rs.CellRole(0, 3))
	assert.Equal(t, RoleText, rs.CellRole(0, 1))
	assert.True(t, RoleNumber.RightAligned())
	assert.False(t, RoleText.RightAligned())

	v, err = rs.Cell(0, 3)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", v.Formatted)

	assert.Equal(t, "abc", NewValue([]byte("abc"), TypeBinary).Formatted)
}

func TestResultSetBounds(t *testing.T) {
	rs := sampleResult()
	_, err := rs.Cell(5, 0)
	assert.True(t, errors.Is(err, ErrInvalidRow))
	_, err = rs.ColumnName(9)
	assert.True(t, errors.Is(err, ErrInvalidColumn))

	idx, ok := rs.Column("NAME")
	assert.True(t, ok)
	assert.Equal(t, 1, idx)
}

func TestErrorResult(t *testing.T) {
	rs := ErrorResult(errors.New("boom"))
	assert.True(t, rs.IsError)
	assert.Equal(t, []string{"Error"}, rs.Headers)
	assert.Equal(t, RoleError, rs.CellRole(0, 0))

	ok := OK()
	assert.False(t, ok.IsError)
	assert.Equal(t, [][]any{{"OK"}}, ok.Records)

	multi := Errors([]string{"a", "b"})
	assert.Equal(t, 2, multi.RowCount())
}

func TestParseFilter(t *testing.T) {
	columns := []string{"id", "name", "score"}
	row := []Value{NewValue(int64(7), TypeInt), NewValue("Bob", TypeString), NewValue(2.5, TypeFloat)}

	tests := []struct {
		expr string
		want bool
	}{
		{"name = bob", true},
		{"name != bob", false},
		{"score > 2", true},
		{"score >= 3", false},
		{"id < 10 AND name ~ o", true},
		{"id > 10 or name = 'Bob'", true},
		{"id > 10 AND name = bob OR score <= 2.5", true},
		{"bo", true},
		{"zzz", false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			f, err := ParseFilter(tt.expr, columns)
			require.NoError(t, err)
			got, err := f.Evaluate(row, columns)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFilterErrors(t *testing.T) {
	f, err := ParseFilter("   ", []string{"a"})
	require.NoError(t, err)
	assert.Nil(t, f)

	_, err = ParseFilter("missing = 1", []string{"a"})
	assert.True(t, errors.Is(err, ErrColumnNotFound))
}

func TestTableModelFilterAndSort(t *testing.T) {
	m, err := NewTableModel(sampleResult())
	require.NoError(t, err)
	assert.Equal(t, 3, m.VisibleRowCount())

	require.NoError(t, m.SetSort(2, SortDescending))
	assert.Equal(t, []int{1, 2, 0}, m.VisibleRows())

	require.NoError(t, m.ToggleSort(1))
	assert.Equal(t, SortAscending, m.SortState().Direction)
	assert.Equal(t, []int{1, 0, 2}, m.VisibleRows())

	require.NoError(t, m.SetFilter("score < 10"))
	assert.Equal(t, []int{0, 2}, m.VisibleRows())

	v, err := m.VisibleCell(1, 1)
	require.NoError(t, err)
	assert.Equal(t, "Bob", v.Formatted)

	assert.Error(t, m.SetFilter("nope = 1"))
	assert.Equal(t, "score < 10", m.FilterExpression())

	require.NoError(t, m.SetSort(0, SortNone))
	assert.False(t, m.SortState().IsSorted())
	assert.Equal(t, []int{0, 2}, m.VisibleRows())
}

func TestNewTableModelNilSource(t *testing.T) {
	_, err := NewTableModel(nil)
	assert.ErrorIs(t, err, ErrNoDataSource)
}

func TestExportCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(sampleResult(), []int{0}, FormatCSV, &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,name,score,created", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "1,ann,1.5,"))
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(sampleResult(), nil, FormatJSON, &buf))

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, float64(1), rows[0]["id"])
	assert.Equal(t, "2024-03-01", rows[0]["created"])
	assert.Nil(t, rows[1]["name"])
	assert.Nil(t, rows[2]["created"])
}

func TestExportParquetFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.parquet")
	format, err := FormatForPath(path)
	require.NoError(t, err)
	require.Equal(t, FormatParquet, format)

	require.NoError(t, ExportFile(sampleResult(), nil, format, path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

type closeRecorder struct {
	bytes.Buffer
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestWriteParquetLeavesWriterOpen(t *testing.T) {
	var sink closeRecorder
	require.NoError(t, Export(sampleResult(), nil, FormatParquet, &sink))
	assert.False(t, sink.closed)
	assert.True(t, bytes.HasPrefix(sink.Bytes(), []byte("PAR1")))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)
	assert.Equal(t, ".csv", f.Extension())

	_, err = ParseFormat("xlsx")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
