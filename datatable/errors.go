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

import "errors"

var (
	// ErrInvalidColumn is returned when a column index is out of range.
	ErrInvalidColumn = errors.New("invalid column index")

	// ErrInvalidRow is returned when a row index is out of range.
	ErrInvalidRow = errors.New("invalid row index")

	// ErrInvalidFilter is returned when a filter expression cannot be parsed.
	ErrInvalidFilter = errors.New("invalid filter expression")

	// ErrColumnNotFound is returned when a filter names an unknown column.
	ErrColumnNotFound = errors.New("column not found")

	// ErrNoDataSource is returned when a model has nothing to read from.
	ErrNoDataSource = errors.New("data source is nil")

	// ErrUnknownFormat is returned for an unsupported export format.
	ErrUnknownFormat = errors.New("unknown export format")

	// ErrExportFailed wraps failures while writing an export.
	ErrExportFailed = errors.New("export failed")
)
