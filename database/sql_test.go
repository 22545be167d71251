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

package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"dossier/datatable"
)

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, "orders", QuoteIdentifier("orders"))
	assert.Equal(t, "`my-db`", QuoteIdentifier("my-db"))
	assert.Equal(t, "`a``b`", QuoteIdentifier("a`b"))
	assert.Equal(t, "`select`", QuoteIdentifier("select"))
}

func TestReturnsRows(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"SELECT 1", true},
		{"show tables", true},
		{"describe orders", true},
		{"insert into t values (1)", false},
		{"UPDATE t SET a = 1", false},
		{"delete from t", false},
		{"create table t (a int)", false},
		{"use shop", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, ReturnsRows(tt.query))
		})
	}
}

func TestUseTarget(t *testing.T) {
	db, ok := UseTarget("USE shop")
	assert.True(t, ok)
	assert.Equal(t, "shop", db)

	db, ok = UseTarget("use `my-db`;\n")
	assert.True(t, ok)
	assert.Equal(t, "my-db", db)

	_, ok = UseTarget("select 1")
	assert.False(t, ok)
}

func TestColumnDataType(t *testing.T) {
	assert.Equal(t, datatable.TypeInt, columnDataType("UNSIGNED BIGINT"))
	assert.Equal(t, datatable.TypeInt, columnDataType("int"))
	assert.Equal(t, datatable.TypeDecimal, columnDataType("DECIMAL"))
	assert.Equal(t, datatable.TypeTimestamp, columnDataType("DATETIME"))
	assert.Equal(t, datatable.TypeBinary, columnDataType("BLOB"))
	assert.Equal(t, datatable.TypeString, columnDataType("VARCHAR"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, int64(42), normalize([]byte("42"), datatable.TypeInt))
	assert.Equal(t, 1.5, normalize([]byte("1.5"), datatable.TypeFloat))
	assert.Equal(t, "12.50", normalize([]byte("12.50"), datatable.TypeDecimal))
	assert.Equal(t, "18446744073709551615", normalize([]byte("18446744073709551615"), datatable.TypeInt))
	assert.Equal(t, int64(7), normalize(int32(7), datatable.TypeInt))
	assert.Nil(t, normalize(nil, datatable.TypeString))
}
