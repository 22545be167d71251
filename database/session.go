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
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"dossier/datatable"
)

// Session is a live connection to one server.
type Session interface {
	Query(ctx context.Context, query string, args ...any) (*datatable.ResultSet, error)
	Close() error
}

// Dialer opens sessions.
type Dialer interface {
	Dial(ctx context.Context, cfg Config) (Session, error)
}

// DefaultConnectTimeout bounds the TCP connect and handshake.
const DefaultConnectTimeout = 10 * time.Second

// MySQLDialer dials MySQL servers with go-sql-driver/mysql.
type MySQLDialer struct {
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewMySQLDialer creates a dialer with the given connect timeout.
func NewMySQLDialer(timeout time.Duration, logger *zap.Logger) *MySQLDialer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MySQLDialer{Timeout: timeout, Logger: logger}
}

// Dial connects without selecting a database and pins a single
// connection so that USE persists between statements.
func (d *MySQLDialer) Dial(ctx context.Context, cfg Config) (Session, error) {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.AllowNativePasswords = true
	mc.ParseTime = true
	mc.Timeout = d.Timeout
	if mc.Timeout <= 0 {
		mc.Timeout = DefaultConnectTimeout
	}

	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, fmt.Errorf("configure %s: %w", cfg.Name(), err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, err
	}

	if d.Logger != nil {
		d.Logger.Debug("connected", zap.String("connection", cfg.Name()))
	}
	return &mysqlSession{db: db, conn: conn}, nil
}

type mysqlSession struct {
	db   *sql.DB
	conn *sql.Conn
}

func (s *mysqlSession) Query(ctx context.Context, query string, args ...any) (*datatable.ResultSet, error) {
	if !ReturnsRows(query) {
		res, err := s.conn.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		rs := datatable.OK()
		rs.RowsAffected, _ = res.RowsAffected()
		return rs, nil
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return ScanRows(rows)
}

func (s *mysqlSession) Close() error {
	connErr := s.conn.Close()
	if err := s.db.Close(); err != nil {
		return err
	}
	return connErr
}

// ScanRows reads every row into a result set. A statement without columns
// yields the OK result.
func ScanRows(rows *sql.Rows) (*datatable.ResultSet, error) {
	columns, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return datatable.OK(), rows.Err()
	}

	rs := &datatable.ResultSet{
		Headers: make([]string, len(columns)),
		Types:   make([]datatable.DataType, len(columns)),
		Records: [][]any{},
	}
	for i, col := range columns {
		rs.Headers[i] = col.Name()
		rs.Types[i] = columnDataType(col.DatabaseTypeName())
	}

	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			values[i] = normalize(v, rs.Types[i])
		}
		rs.Records = append(rs.Records, values)
	}
	return rs, rows.Err()
}

func columnDataType(name string) datatable.DataType {
	switch strings.TrimPrefix(strings.ToUpper(name), "UNSIGNED ") {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "INTEGER", "BIGINT", "YEAR":
		return datatable.TypeInt
	case "FLOAT", "DOUBLE", "REAL":
		return datatable.TypeFloat
	case "DECIMAL", "NUMERIC":
		return datatable.TypeDecimal
	case "DATE":
		return datatable.TypeDate
	case "DATETIME", "TIMESTAMP":
		return datatable.TypeTimestamp
	case "BINARY", "VARBINARY", "TINYBLOB", "BLOB", "MEDIUMBLOB", "LONGBLOB", "BIT", "GEOMETRY":
		return datatable.TypeBinary
	default:
		return datatable.TypeString
	}
}

// normalize turns driver values into the types datatable formats:
// integers as int64, text and blobs as string.
func normalize(v any, dt datatable.DataType) any {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		s := string(x)
		switch dt {
		case datatable.TypeInt:
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return n
			}
		case datatable.TypeFloat:
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f
			}
		}
		return s
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}
