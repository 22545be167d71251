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

// Package databasetest provides in-memory Dialer and Session fakes that
// answer the statements the connection list issues.
package databasetest

import (
	"context"
	"strings"
	"sync"

	"dossier/database"
	"dossier/datatable"
)

// Handler answers a statement. Returning false falls through to the
// built-in answers.
type Handler func(query string, args []any) (rs *datatable.ResultSet, handled bool, err error)

// Session consults Handle, Errors and Responses first. Otherwise it
// answers SHOW DATABASES, USE and SHOW TABLES from its fields and returns
// OK for anything else.
type Session struct {
	mu sync.Mutex

	Name      string
	Databases []string
	Tables    map[string][]string
	Responses map[string]*datatable.ResultSet
	Errors    map[string]error
	Handle    Handler

	current string
	queries []string
	args    [][]any
	closed  bool
}

func (s *Session) Query(_ context.Context, query string, args ...any) (*datatable.ResultSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	s.args = append(s.args, args)

	if s.Handle != nil {
		if rs, ok, err := s.Handle(query, args); ok {
			return rs, err
		}
	}
	if err, ok := s.Errors[query]; ok {
		return nil, err
	}
	if rs, ok := s.Responses[query]; ok {
		return rs, nil
	}

	upper := strings.ToUpper(strings.TrimSpace(query))
	switch {
	case upper == "SHOW DATABASES":
		return column("Database", s.Databases), nil
	case upper == "SHOW TABLES":
		return column("Tables_in_"+s.current, s.Tables[s.current]), nil
	case strings.HasPrefix(upper, "USE "):
		s.current = unquote(strings.TrimSpace(query[4:]))
		return datatable.OK(), nil
	}
	return datatable.OK(), nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// Queries returns every statement received so far.
func (s *Session) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

// Args returns the arguments of the n-th statement.
func (s *Session) Args(n int) []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 0 || n >= len(s.args) {
		return nil
	}
	return s.args[n]
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Current is the database selected by the last USE.
func (s *Session) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Dialer opens a fresh Session per Dial, seeded from its own fields.
// Fail makes dials for the given connection names fail.
type Dialer struct {
	mu sync.Mutex

	Databases []string
	Tables    map[string][]string
	Responses map[string]*datatable.ResultSet
	Errors    map[string]error
	Handle    Handler
	Fail      map[string]error

	opened map[string][]*Session
	dials  []string
}

func (d *Dialer) Dial(_ context.Context, cfg database.Config) (database.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	name := cfg.Name()
	d.dials = append(d.dials, name)
	if err, ok := d.Fail[name]; ok {
		return nil, err
	}
	s := &Session{
		Name:      name,
		Databases: d.Databases,
		Tables:    d.Tables,
		Responses: d.Responses,
		Errors:    d.Errors,
		Handle:    d.Handle,
	}
	if d.opened == nil {
		d.opened = make(map[string][]*Session)
	}
	d.opened[name] = append(d.opened[name], s)
	return s, nil
}

// SetFail makes later dials for name fail with err, or succeed again when
// err is nil.
func (d *Dialer) SetFail(name string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.Fail, name)
		return
	}
	if d.Fail == nil {
		d.Fail = make(map[string]error)
	}
	d.Fail[name] = err
}

// Dials lists the connection names dialed, in order.
func (d *Dialer) Dials() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.dials...)
}

// Last returns the newest session opened for name.
func (d *Dialer) Last(name string) *Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	sessions := d.opened[name]
	if len(sessions) == 0 {
		return nil
	}
	return sessions[len(sessions)-1]
}

// Sessions returns every session opened for name.
func (d *Dialer) Sessions(name string) []*Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Session(nil), d.opened[name]...)
}

func column(header string, values []string) *datatable.ResultSet {
	rs := &datatable.ResultSet{
		Headers: []string{header},
		Types:   []datatable.DataType{datatable.TypeString},
		Records: make([][]any, 0, len(values)),
	}
	for _, v := range values {
		rs.Records = append(rs.Records, []any{v})
	}
	return rs
}

func unquote(ident string) string {
	if len(ident) >= 2 && ident[0] == '`' && ident[len(ident)-1] == '`' {
		return strings.ReplaceAll(ident[1:len(ident)-1], "``", "`")
	}
	return ident
}
