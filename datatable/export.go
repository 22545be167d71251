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
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	arrowcsv "github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// ExportFormat represents the supported export formats.
type ExportFormat int

const (
	FormatParquet ExportFormat = iota
	FormatCSV
	FormatJSON
)

func (f ExportFormat) String() string {
	switch f {
	case FormatParquet:
		return "parquet"
	case FormatCSV:
		return "csv"
	case FormatJSON:
		return "json"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// Extension is the file suffix used for the format, with the dot.
func (f ExportFormat) Extension() string {
	return "." + f.String()
}

// ParseFormat accepts "csv", "json" or "parquet", case-insensitively.
func ParseFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "parquet":
		return FormatParquet, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatForPath picks the export format from a file extension.
func FormatForPath(path string) (ExportFormat, error) {
	return ParseFormat(filepath.Ext(path))
}

// ExportFile writes the given source rows to path. A nil rows slice exports
// every row.
func ExportFile(src DataSource, rows []int, format ExportFormat, path string) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrExportFailed, path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: close %s: %w", ErrExportFailed, path, cerr)
		}
	}()
	return Export(src, rows, format, file)
}

// Export converts the rows to an Arrow table and writes it to w.
func Export(src DataSource, rows []int, format ExportFormat, w io.Writer) error {
	if src == nil {
		return ErrNoDataSource
	}
	if rows == nil {
		rows = make([]int, src.RowCount())
		for i := range rows {
			rows[i] = i
		}
	}

	table, err := ToArrowTable(src, rows, memory.DefaultAllocator)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	defer table.Release()

	switch format {
	case FormatParquet:
		err = WriteParquet(table, w)
	case FormatCSV:
		err = WriteCSV(table, w)
	case FormatJSON:
		err = WriteJSON(table, w)
	default:
		err = fmt.Errorf("%w: %d", ErrUnknownFormat, int(format))
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	return nil
}

func arrowType(dt DataType) arrow.DataType {
	switch dt {
	case TypeInt:
		return arrow.PrimitiveTypes.Int64
	case TypeFloat:
		return arrow.PrimitiveTypes.Float64
	case TypeBool:
		return arrow.FixedWidthTypes.Boolean
	case TypeDate:
		return arrow.FixedWidthTypes.Date32
	case TypeTimestamp:
		return arrow.FixedWidthTypes.Timestamp_us
	default:
		return arrow.BinaryTypes.String
	}
}

// ToArrowTable copies the given source rows into a single-chunk Arrow
// table. The caller must Release it.
func ToArrowTable(src DataSource, rows []int, mem memory.Allocator) (arrow.Table, error) {
	fields := make([]arrow.Field, src.ColumnCount())
	for col := range fields {
		name, err := src.ColumnName(col)
		if err != nil {
			return nil, err
		}
		dt, err := src.ColumnType(col)
		if err != nil {
			return nil, err
		}
		fields[col] = arrow.Field{Name: name, Type: arrowType(dt), Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for _, row := range rows {
		for col := range fields {
			v, err := src.Cell(row, col)
			if err != nil {
				return nil, err
			}
			appendValue(b.Field(col), v)
		}
	}

	rec := b.NewRecord()
	defer rec.Release()
	return array.NewTableFromRecords(schema, []arrow.Record{rec}), nil
}

// appendValue appends v to builder, storing null when the raw value does
// not convert to the column type.
func appendValue(builder array.Builder, v Value) {
	if v.IsNull {
		builder.AppendNull()
		return
	}

	switch b := builder.(type) {
	case *array.Int64Builder:
		if n, err := strconv.ParseInt(v.Formatted, 10, 64); err == nil {
			b.Append(n)
			return
		}
	case *array.Float64Builder:
		if f, err := strconv.ParseFloat(v.Formatted, 64); err == nil {
			b.Append(f)
			return
		}
	case *array.BooleanBuilder:
		if x, ok := v.Raw.(bool); ok {
			b.Append(x)
			return
		}
	case *array.Date32Builder:
		if t, ok := v.Raw.(time.Time); ok {
			b.Append(arrow.Date32FromTime(t))
			return
		}
	case *array.TimestampBuilder:
		if t, ok := v.Raw.(time.Time); ok {
			b.Append(arrow.Timestamp(t.UnixMicro()))
			return
		}
	case *array.StringBuilder:
		b.Append(v.Formatted)
		return
	}
	builder.AppendNull()
}

// WriteParquet writes the table as Snappy-compressed Parquet.
func WriteParquet(table arrow.Table, w io.Writer) error {
	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	// The file writer closes sinks that are io.Closers; w belongs to the caller.
	writer, err := pqarrow.NewFileWriter(table.Schema(), struct{ io.Writer }{w}, props, arrowProps)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	if err := writer.WriteTable(table, max(table.NumRows(), 1)); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write table to parquet: %w", err)
	}
	return writer.Close()
}

// WriteCSV writes a header line and one line per row. Nulls are empty.
func WriteCSV(table arrow.Table, w io.Writer) error {
	cw := arrowcsv.NewWriter(w, table.Schema(), arrowcsv.WithHeader(true), arrowcsv.WithNullWriter(""))

	tr := array.NewTableReader(table, max(table.NumRows(), 1))
	defer tr.Release()
	for tr.Next() {
		if err := cw.Write(tr.Record()); err != nil {
			return fmt.Errorf("failed to write CSV rows: %w", err)
		}
	}
	if err := tr.Err(); err != nil {
		return fmt.Errorf("error reading table: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes an indented array with one object per row.
func WriteJSON(table arrow.Table, w io.Writer) error {
	tr := array.NewTableReader(table, max(table.NumRows(), 1))
	defer tr.Release()

	schema := table.Schema()
	records := make([]map[string]any, 0, table.NumRows())
	for tr.Next() {
		rec := tr.Record()
		for row := 0; row < int(rec.NumRows()); row++ {
			record := make(map[string]any, rec.NumCols())
			for col, arr := range rec.Columns() {
				record[schema.Field(col).Name] = typedValue(arr, row)
			}
			records = append(records, record)
		}
	}
	if err := tr.Err(); err != nil {
		return fmt.Errorf("error reading table: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func typedValue(col arrow.Array, pos int) any {
	if col.IsNull(pos) {
		return nil
	}
	switch a := col.(type) {
	case *array.Int64:
		return a.Value(pos)
	case *array.Float64:
		return a.Value(pos)
	case *array.Boolean:
		return a.Value(pos)
	case *array.Date32:
		return a.Value(pos).ToTime().Format(time.DateOnly)
	case *array.Timestamp:
		return a.Value(pos).ToTime(arrow.Microsecond).UTC().Format(time.DateTime)
	case *array.String:
		return a.Value(pos)
	default:
		return col.ValueStr(pos)
	}
}
