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
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// TableModel is a filtered and sorted view over a DataSource. Visible rows
// are kept as indices into the source.
type TableModel struct {
	mu      sync.RWMutex
	source  DataSource
	columns []string
	filter  Filter
	expr    string
	sort    SortState
	visible []int
}

// NewTableModel creates a model showing every row of source.
func NewTableModel(source DataSource) (*TableModel, error) {
	if source == nil {
		return nil, ErrNoDataSource
	}
	m := &TableModel{source: source, sort: SortState{Column: -1}}
	for col := 0; col < source.ColumnCount(); col++ {
		name, err := source.ColumnName(col)
		if err != nil {
			return nil, err
		}
		m.columns = append(m.columns, name)
	}
	if err := m.rebuild(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *TableModel) Source() DataSource {
	return m.source
}

func (m *TableModel) Columns() []string {
	return slices.Clone(m.columns)
}

// SetFilter parses expr and applies it. On error the previous filter stays
// in effect.
func (m *TableModel) SetFilter(expr string) error {
	f, err := ParseFilter(expr, m.columns)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	prevFilter, prevExpr := m.filter, m.expr
	m.filter, m.expr = f, strings.TrimSpace(expr)
	if err := m.rebuildLocked(); err != nil {
		m.filter, m.expr = prevFilter, prevExpr
		_ = m.rebuildLocked()
		return err
	}
	return nil
}

func (m *TableModel) FilterExpression() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.expr
}

// SetSort orders visible rows by col. SortNone restores source order.
func (m *TableModel) SetSort(col int, dir SortDirection) error {
	if dir != SortNone && (col < 0 || col >= len(m.columns)) {
		return fmt.Errorf("%w: %d", ErrInvalidColumn, col)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if dir == SortNone {
		col = -1
	}
	m.sort = SortState{Column: col, Direction: dir}
	return m.rebuildLocked()
}

// ToggleSort cycles the sort direction of col.
func (m *TableModel) ToggleSort(col int) error {
	dir := SortAscending
	if s := m.SortState(); s.Column == col {
		dir = s.Direction.Next()
	}
	return m.SetSort(col, dir)
}

func (m *TableModel) SortState() SortState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sort
}

func (m *TableModel) VisibleRowCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.visible)
}

// VisibleRows returns the source indices of the visible rows in display
// order.
func (m *TableModel) VisibleRows() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.visible)
}

// VisibleCell returns the cell at a display position.
func (m *TableModel) VisibleCell(row, col int) (Value, error) {
	m.mu.RLock()
	if row < 0 || row >= len(m.visible) {
		m.mu.RUnlock()
		return Value{}, fmt.Errorf("%w: %d", ErrInvalidRow, row)
	}
	src := m.visible[row]
	m.mu.RUnlock()
	return m.source.Cell(src, col)
}

func (m *TableModel) rebuild() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rebuildLocked()
}

func (m *TableModel) rebuildLocked() error {
	visible := make([]int, 0, m.source.RowCount())
	for row := 0; row < m.source.RowCount(); row++ {
		if m.filter != nil {
			values, err := m.source.Row(row)
			if err != nil {
				return err
			}
			ok, err := m.filter.Evaluate(values, m.columns)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
		}
		visible = append(visible, row)
	}

	if m.sort.IsSorted() {
		col, desc := m.sort.Column, m.sort.Direction == SortDescending
		slices.SortStableFunc(visible, func(a, b int) int {
			va, _ := m.source.Cell(a, col)
			vb, _ := m.source.Cell(b, col)
			c := compareValues(va, vb)
			if desc {
				return -c
			}
			return c
		})
	}
	m.visible = visible
	return nil
}

// compareValues orders nulls first, then by type-aware comparison.
func compareValues(a, b Value) int {
	switch {
	case a.IsNull && b.IsNull:
		return 0
	case a.IsNull:
		return -1
	case b.IsNull:
		return 1
	}

	if at, ok := a.Raw.(time.Time); ok {
		if bt, ok := b.Raw.(time.Time); ok {
			return at.Compare(bt)
		}
	}
	if a.Type.IsNumeric() || b.Type.IsNumeric() {
		af, errA := strconv.ParseFloat(a.Formatted, 64)
		bf, errB := strconv.ParseFloat(b.Formatted, 64)
		if errA == nil && errB == nil {
			return cmp.Compare(af, bf)
		}
	}
	return strings.Compare(strings.ToLower(a.Formatted), strings.ToLower(b.Formatted))
}
