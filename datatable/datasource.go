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

// DataSource provides read-only tabular data to a TableModel.
type DataSource interface {
	RowCount() int
	ColumnCount() int

	// ColumnName returns ErrInvalidColumn if col is out of range.
	ColumnName(col int) (string, error)

	// ColumnType returns ErrInvalidColumn if col is out of range.
	ColumnType(col int) (DataType, error)

	// Cell returns ErrInvalidRow or ErrInvalidColumn for indices out of
	// range.
	Cell(row, col int) (Value, error)

	// Row returns ErrInvalidRow if row is out of range.
	Row(row int) ([]Value, error)

	Metadata() Metadata
}
