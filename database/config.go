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

// Package database keeps the user's MySQL connections in sync with the
// schema tree: it dials connections lazily, tracks the active
// connection/database/table and publishes focus, error and log events.
package database

import (
	"errors"
	"fmt"
)

// DefaultPort is the MySQL port used when none is configured.
const DefaultPort = 3306

var (
	// ErrNoConnection is returned when there is no usable active connection.
	ErrNoConnection = errors.New("no connection")

	// ErrNoDatabase is returned when an operation needs a selected database.
	ErrNoDatabase = errors.New("no database selected")

	// ErrIndexOutOfRange is returned for a connection index outside the list.
	ErrIndexOutOfRange = errors.New("connection index out of range")

	// ErrUnknownNode is returned when a tree node ID does not exist.
	ErrUnknownNode = errors.New("unknown tree node")
)

// QueryError wraps a driver error with the statement that caused it.
type QueryError struct {
	SQL string
	Err error
}

func (e *QueryError) Error() string {
	return e.Err.Error()
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Config is one user-configured connection.
type Config struct {
	Host     string         `json:"host"`
	Port     int            `json:"port"`
	User     string         `json:"user"`
	Password string         `json:"password"`
	Database string         `json:"database"`
	Table    string         `json:"table"`
	Diagram  map[string]any `json:"diagram"`
}

// Name is the label shown for the connection: user@host:port.
func (c Config) Name() string {
	return fmt.Sprintf("%s@%s:%d", c.User, c.Host, c.Port)
}

// Names identifies the focused connection, database and table. Empty
// strings mean unset.
type Names struct {
	Connection string
	Database   string
	Table      string
}
