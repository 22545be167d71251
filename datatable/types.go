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

// Package datatable holds query results and the table model the result
// grids render: typed cell values, display roles, row filtering, sorting
// and export.
package datatable

import (
	"fmt"
	"strconv"
	"time"
)

// DataType is the logical type of a result column.
type DataType int

const (
	TypeString DataType = iota
	TypeInt
	TypeFloat
	TypeDecimal
	TypeBool
	TypeDate
	TypeTimestamp
	TypeBinary
)

func (dt DataType) String() string {
	switch dt {
	case TypeString:
		return "String"
	case TypeInt:
		return "Int"
	case TypeFloat:
		return "Float"
	case TypeDecimal:
		return "Decimal"
	case TypeBool:
		return "Bool"
	case TypeDate:
		return "Date"
	case TypeTimestamp:
		return "Timestamp"
	case TypeBinary:
		return "Binary"
	default:
		return fmt.Sprintf("Unknown(%d)", dt)
	}
}

// IsNumeric reports whether values of the type are displayed as numbers.
func (dt DataType) IsNumeric() bool {
	return dt == TypeInt || dt == TypeFloat || dt == TypeDecimal
}

// IsTemporal reports whether values of the type are dates or timestamps.
func (dt DataType) IsTemporal() bool {
	return dt == TypeDate || dt == TypeTimestamp
}

// Role decides how a cell is coloured and aligned.
type Role int

const (
	RoleText Role = iota
	RoleNull
	RoleNumber
	RoleDate
	RoleError
)

// RightAligned reports whether cells with this role are right-aligned.
func (r Role) RightAligned() bool {
	return r == RoleNumber || r == RoleDate
}

// NullText is what a NULL cell displays.
const NullText = "null"

// Value is a single cell.
type Value struct {
	Raw       any
	Type      DataType
	IsNull    bool
	Formatted string
}

// NewValue wraps raw and pre-formats it for display.
func NewValue(raw any, dataType DataType) Value {
	if raw == nil {
		return Value{Type: dataType, IsNull: true, Formatted: NullText}
	}
	return Value{Raw: raw, Type: dataType, Formatted: formatValue(raw, dataType)}
}

// Role returns the display role of the value.
func (v Value) Role() Role {
	switch {
	case v.IsNull:
		return RoleNull
	case v.Type.IsNumeric():
		return RoleNumber
	case v.Type.IsTemporal():
		return RoleDate
	default:
		return RoleText
	}
}

func formatValue(raw any, dataType DataType) string {
	switch x := raw.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case time.Time:
		if dataType == TypeDate {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.DateTime)
	default:
		return fmt.Sprintf("%v", raw)
	}
}

// Metadata carries optional information about a data source.
type Metadata map[string]any

// SortDirection is the order of a sorted column.
type SortDirection int

const (
	SortNone SortDirection = iota
	SortAscending
	SortDescending
)

func (sd SortDirection) String() string {
	switch sd {
	case SortNone:
		return "None"
	case SortAscending:
		return "Ascending"
	case SortDescending:
		return "Descending"
	default:
		return fmt.Sprintf("Unknown(%d)", sd)
	}
}

// Next cycles none -> ascending -> descending -> none.
func (sd SortDirection) Next() SortDirection {
	switch sd {
	case SortNone:
		return SortAscending
	case SortAscending:
		return SortDescending
	default:
		return SortNone
	}
}

// SortState describes how the model is sorted.
type SortState struct {
	// Column is the index of the sorted column, -1 if unsorted.
	Column    int
	Direction SortDirection
}

func (s SortState) IsSorted() bool {
	return s.Column >= 0 && s.Direction != SortNone
}
