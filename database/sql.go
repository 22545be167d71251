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
	"strings"
	"sync"

	"vitess.io/vitess/go/vt/sqlparser"
)

var sqlParser = sync.OnceValues(func() (*sqlparser.Parser, error) {
	return sqlparser.New(sqlparser.Options{})
})

// QuoteIdentifier renders name as a MySQL identifier, backtick-quoting it
// when it is a keyword or contains characters outside [A-Za-z0-9_$].
func QuoteIdentifier(name string) string {
	return sqlparser.String(sqlparser.NewIdentifierCS(name))
}

// ReturnsRows reports whether a statement produces a result set. Unknown
// statements are assumed to.
func ReturnsRows(query string) bool {
	switch sqlparser.Preview(query) {
	case sqlparser.StmtInsert, sqlparser.StmtReplace, sqlparser.StmtUpdate,
		sqlparser.StmtDelete, sqlparser.StmtDDL, sqlparser.StmtBegin,
		sqlparser.StmtCommit, sqlparser.StmtRollback, sqlparser.StmtSet,
		sqlparser.StmtUse, sqlparser.StmtSavepoint, sqlparser.StmtPriv,
		sqlparser.StmtLockTables, sqlparser.StmtUnlockTables, sqlparser.StmtFlush:
		return false
	}
	return true
}

// UseTarget returns the database a USE statement switches to.
func UseTarget(query string) (string, bool) {
	if sqlparser.Preview(query) != sqlparser.StmtUse {
		return "", false
	}
	parser, err := sqlParser()
	if err != nil {
		return "", false
	}
	stmt, err := parser.Parse(strings.TrimRight(strings.TrimSpace(query), "; \t\n"))
	if err != nil {
		return "", false
	}
	use, ok := stmt.(*sqlparser.Use)
	if !ok || use.DBName.IsEmpty() {
		return "", false
	}
	return use.DBName.String(), true
}
