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
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"dossier/datatable"
)

// NoActive is the active index when no connection is selected.
const NoActive = -1

// Connection is one entry of a ConnectionList.
type Connection struct {
	Config

	nodeID       string
	session      Session
	broken       bool
	shouldRemove bool
}

// Broken reports whether the last dial failed.
func (c *Connection) Broken() bool { return c.broken }

// NodeID is the ID of the connection's tree node, empty until drawn.
func (c *Connection) NodeID() string { return c.nodeID }

// Option configures a ConnectionList.
type Option func(*ConnectionList)

// WithLogger sets the logger; the default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(l *ConnectionList) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// ConnectionList reconciles the configured connections with the schema
// tree. All methods are safe for concurrent use; events are delivered
// after the list's lock is released so handlers may call back into it.
type ConnectionList struct {
	mu     sync.Mutex
	dialer Dialer
	tree   *Tree
	events *Events
	logger *zap.Logger

	conns  []*Connection
	active int

	lastConnection string
	lastDatabase   string
	lastTable      string

	queued []func()
}

// NewConnectionList creates a list holding configs. Nothing is dialed
// until the first DrawState.
func NewConnectionList(configs []Config, dialer Dialer, opts ...Option) *ConnectionList {
	l := &ConnectionList{
		dialer: dialer,
		tree:   NewTree(),
		events: &Events{},
		logger: zap.NewNop(),
		active: NoActive,
	}
	for _, opt := range opts {
		opt(l)
	}
	for _, cfg := range configs {
		l.conns = append(l.conns, &Connection{Config: cfg})
	}
	return l
}

func (l *ConnectionList) Tree() *Tree { return l.tree }

func (l *ConnectionList) Events() *Events { return l.events }

func (l *ConnectionList) Len() int {
	l.lock()
	defer l.unlock()
	return len(l.conns)
}

// Configs returns a copy of every connection's configuration, in order.
func (l *ConnectionList) Configs() []Config {
	l.lock()
	defer l.unlock()
	configs := make([]Config, len(l.conns))
	for i, c := range l.conns {
		configs[i] = c.Config
	}
	return configs
}

// ActiveIndex returns the index of the active connection or NoActive.
func (l *ConnectionList) ActiveIndex() int {
	l.lock()
	defer l.unlock()
	return l.active
}

// Active returns the active connection's configuration.
func (l *ConnectionList) Active() (Config, bool) {
	l.lock()
	defer l.unlock()
	if l.active == NoActive {
		return Config{}, false
	}
	return l.conns[l.active].Config, true
}

// IsBroken reports whether the connection at index failed to dial.
func (l *ConnectionList) IsBroken(index int) bool {
	l.lock()
	defer l.unlock()
	return index >= 0 && index < len(l.conns) && l.conns[index].broken
}

// IndexOfNode returns the index of the connection owning a tree node.
func (l *ConnectionList) IndexOfNode(nodeID string) (int, bool) {
	_, connID, ok := l.tree.Names(nodeID)
	if !ok {
		return NoActive, false
	}
	l.lock()
	defer l.unlock()
	idx := l.indexOfNodeLocked(connID)
	return idx, idx != NoActive
}

// Append adds a connection. It is dialed by the next DrawState.
func (l *ConnectionList) Append(cfg Config) int {
	l.lock()
	defer l.unlock()
	l.conns = append(l.conns, &Connection{Config: cfg})
	return len(l.conns) - 1
}

// Pop removes the connection at index, closing its session, and returns
// its configuration. The active index follows the entry it pointed at and
// is cleared when that entry is the one removed.
func (l *ConnectionList) Pop(ctx context.Context, index int) (Config, error) {
	l.lock()
	defer l.unlock()
	if index < 0 || index >= len(l.conns) {
		return Config{}, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}

	switch {
	case l.active == index:
		l.active = NoActive
		l.clearSelectionLocked()
	case l.active > index:
		l.active--
	}

	removed := l.conns[index]
	removed.shouldRemove = true
	l.drawStateLocked(ctx)

	names := Names{}
	if l.active != NoActive {
		c := l.conns[l.active]
		names = Names{Connection: c.Name(), Database: c.Database}
	}
	l.emit(func() { l.events.emitFocusChanged(names) })
	return removed.Config, nil
}

// SetActiveIndex makes the connection at index active and redraws. A
// negative index clears the selection.
func (l *ConnectionList) SetActiveIndex(ctx context.Context, index int) error {
	l.lock()
	defer l.unlock()
	if index >= len(l.conns) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	if index < 0 {
		index = NoActive
	}
	l.setActiveLocked(ctx, index)
	return nil
}

func (l *ConnectionList) setActiveLocked(ctx context.Context, index int) {
	changed := l.active != index
	l.active = index
	if index == NoActive {
		l.clearSelectionLocked()
	}
	l.drawStateLocked(ctx)

	if !changed {
		return
	}
	if index == NoActive {
		l.emit(func() { l.events.emitFocusChanged(Names{}) })
		return
	}
	if c := l.conns[index]; !c.broken {
		names := Names{Connection: c.Name(), Database: c.Database}
		l.emit(func() { l.events.emitFocusChanged(names) })
	}
}

// Select handles a click on a tree node: the owning connection becomes
// active with the clicked database and table, and focus moves to them.
// Clicks on a broken connection are ignored.
func (l *ConnectionList) Select(ctx context.Context, nodeID string) error {
	names, connID, ok := l.tree.Names(nodeID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, nodeID)
	}

	l.lock()
	defer l.unlock()
	index := l.indexOfNodeLocked(connID)
	if index == NoActive {
		return fmt.Errorf("%w: %s", ErrUnknownNode, nodeID)
	}
	c := l.conns[index]
	if c.broken {
		return nil
	}
	// A connection click keeps the database in use and drops the table.
	if names.Database != "" {
		c.Database = names.Database
	}
	c.Table = names.Table
	names.Database = c.Database

	l.active = index
	l.drawStateLocked(ctx)
	l.emit(func() { l.events.emitFocusChanged(names) })
	return nil
}

// UseDatabase switches the active connection to database and redraws.
func (l *ConnectionList) UseDatabase(ctx context.Context, database string) error {
	l.lock()
	defer l.unlock()
	c, err := l.activeLocked()
	if err != nil {
		return err
	}
	c.Database = database
	c.Table = ""
	l.drawStateLocked(ctx)
	names := Names{Connection: c.Name(), Database: database}
	l.emit(func() { l.events.emitFocusChanged(names) })
	return nil
}

// Refresh closes every session, rebuilds the tree and dials again.
// Broken connections get another attempt.
func (l *ConnectionList) Refresh(ctx context.Context) {
	l.lock()
	defer l.unlock()
	for _, c := range l.conns {
		l.closeSessionLocked(c)
		c.nodeID = ""
		c.broken = false
		c.shouldRemove = false
	}
	l.lastConnection, l.lastDatabase, l.lastTable = "", "", ""
	l.tree.Reset()
	l.drawStateLocked(ctx)
}

// DrawState brings the tree in line with the list: it removes entries
// flagged for removal, creates and dials missing connections, then expands
// and selects the active path.
func (l *ConnectionList) DrawState(ctx context.Context) {
	l.lock()
	defer l.unlock()
	l.drawStateLocked(ctx)
}

// Query runs a statement on the active connection.
func (l *ConnectionList) Query(ctx context.Context, query string, args ...any) (*datatable.ResultSet, error) {
	l.lock()
	defer l.unlock()
	c, err := l.activeLocked()
	if err != nil {
		return nil, err
	}
	return l.queryLocked(ctx, c, query, args...)
}

// Schema maps table -> referenced table -> column -> constraint name.
// Tables without foreign keys map to an empty set.
type Schema map[string]map[string]map[string]string

const schemaQuery = `SELECT
	tables.table_name,
	ref_con.referenced_table_name,
	key_column_usage.column_name,
	ref_con.constraint_name
FROM information_schema.tables AS tables
LEFT JOIN information_schema.referential_constraints AS ref_con
	ON ref_con.constraint_schema = tables.table_schema
	AND ref_con.table_name = tables.table_name
LEFT JOIN information_schema.key_column_usage AS key_column_usage
	ON ref_con.constraint_schema = key_column_usage.table_schema
	AND ref_con.table_name = key_column_usage.table_name
	AND ref_con.constraint_name = key_column_usage.constraint_name
WHERE tables.table_schema = ?`

// ActiveSchema returns the foreign-key graph of the active database.
func (l *ConnectionList) ActiveSchema(ctx context.Context) (Schema, error) {
	l.lock()
	defer l.unlock()
	c, err := l.activeLocked()
	if err != nil {
		return nil, err
	}
	if c.Database == "" {
		return nil, ErrNoDatabase
	}
	rs, err := l.queryLocked(ctx, c, schemaQuery, c.Database)
	if err != nil {
		return nil, err
	}

	schema := Schema{}
	for _, rec := range rs.Records {
		if len(rec) < 4 || rec[0] == nil {
			continue
		}
		table := fmt.Sprint(rec[0])
		refs, ok := schema[table]
		if !ok {
			refs = map[string]map[string]string{}
			schema[table] = refs
		}
		if rec[1] == nil {
			continue
		}
		refTable := fmt.Sprint(rec[1])
		if refs[refTable] == nil {
			refs[refTable] = map[string]string{}
		}
		refs[refTable][cellString(rec[2])] = cellString(rec[3])
	}
	return schema, nil
}

// Close closes every open session.
func (l *ConnectionList) Close() {
	l.lock()
	defer l.unlock()
	for _, c := range l.conns {
		l.closeSessionLocked(c)
	}
}

// TestConnection dials cfg and closes the session straight away.
func TestConnection(ctx context.Context, dialer Dialer, cfg Config) error {
	session, err := dialer.Dial(ctx, cfg)
	if err != nil {
		return err
	}
	return session.Close()
}

func (l *ConnectionList) drawStateLocked(ctx context.Context) {
	if errs := l.createConnectionItemsLocked(ctx); len(errs) > 0 {
		l.emit(func() { l.events.emitErrors(errs) })
	}
	if err := l.updateTreeStateLocked(ctx); err != nil {
		msgs := []string{err.Error()}
		l.emit(func() { l.events.emitErrors(msgs) })
	}
}

func (l *ConnectionList) createConnectionItemsLocked(ctx context.Context) []string {
	var errs []string
	kept := l.conns[:0]
	for _, c := range l.conns {
		if c.shouldRemove {
			if c.nodeID != "" {
				l.tree.Remove(c.nodeID)
			}
			l.closeSessionLocked(c)
			continue
		}
		kept = append(kept, c)
	}
	clear(l.conns[len(kept):])
	l.conns = kept

	for _, c := range l.conns {
		if c.nodeID != "" {
			continue
		}
		c.nodeID = l.tree.AddConnection(c.Name())

		session, err := l.dialer.Dial(ctx, c.Config)
		if err != nil {
			c.broken = true
			l.tree.SetStatus(c.nodeID, StatusBroken)
			l.logger.Warn("connection failed", zap.String("connection", c.Name()), zap.Error(err))
			errs = append(errs, err.Error())
			continue
		}
		c.broken = false
		c.session = session
		l.logger.Info("connected", zap.String("connection", c.Name()))
	}
	return errs
}

func (l *ConnectionList) updateTreeStateLocked(ctx context.Context) error {
	if l.active == NoActive || l.active >= len(l.conns) {
		return nil
	}
	c := l.conns[l.active]
	if c.broken {
		return nil
	}

	l.selectLocked(&l.lastConnection, c.nodeID)
	if !l.tree.ChildrenLoaded(c.nodeID) {
		names, err := l.listNamesLocked(ctx, c, "SHOW DATABASES")
		if err != nil {
			return err
		}
		l.tree.SetChildren(c.nodeID, NodeTypeDatabase, names)
	}
	l.tree.SetExpanded(c.nodeID, true)

	if c.Database == "" {
		l.deselectLocked(&l.lastDatabase)
		l.deselectLocked(&l.lastTable)
		return nil
	}
	if _, err := l.queryLocked(ctx, c, "USE "+QuoteIdentifier(c.Database)); err != nil {
		return err
	}
	dbID, ok := l.tree.Child(c.nodeID, c.Database)
	if !ok {
		// Not listed yet, e.g. created after the tree was loaded.
		l.deselectLocked(&l.lastDatabase)
		l.deselectLocked(&l.lastTable)
		return nil
	}
	l.selectLocked(&l.lastDatabase, dbID)
	if !l.tree.ChildrenLoaded(dbID) {
		names, err := l.listNamesLocked(ctx, c, "SHOW TABLES")
		if err != nil {
			return err
		}
		l.tree.SetChildren(dbID, NodeTypeTable, names)
	}
	l.tree.SetExpanded(dbID, true)

	if tableID, ok := l.tree.Child(dbID, c.Table); ok && c.Table != "" {
		l.selectLocked(&l.lastTable, tableID)
	} else {
		l.deselectLocked(&l.lastTable)
	}
	return nil
}

func (l *ConnectionList) listNamesLocked(ctx context.Context, c *Connection, query string) ([]string, error) {
	rs, err := l.queryLocked(ctx, c, query)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(rs.Records))
	for _, rec := range rs.Records {
		if len(rec) > 0 && rec[0] != nil {
			names = append(names, cellString(rec[0]))
		}
	}
	return names, nil
}

func (l *ConnectionList) queryLocked(ctx context.Context, c *Connection, query string, args ...any) (*datatable.ResultSet, error) {
	if c.broken || c.session == nil {
		return nil, ErrNoConnection
	}
	l.emit(func() { l.events.emitLogLine(query) })
	l.logger.Debug("query", zap.String("connection", c.Name()), zap.String("sql", query))

	rs, err := c.session.Query(ctx, query, args...)
	if err != nil {
		return nil, &QueryError{SQL: query, Err: err}
	}
	return rs, nil
}

func (l *ConnectionList) activeLocked() (*Connection, error) {
	if l.active == NoActive {
		return nil, ErrNoConnection
	}
	c := l.conns[l.active]
	if c.broken || c.session == nil {
		return nil, ErrNoConnection
	}
	return c, nil
}

// selectLocked marks id selected and returns the previously selected node
// tracked by last to normal.
func (l *ConnectionList) selectLocked(last *string, id string) {
	if *last != "" && *last != id {
		l.restoreStatusLocked(*last)
	}
	l.tree.SetStatus(id, StatusSelected)
	*last = id
}

func (l *ConnectionList) deselectLocked(last *string) {
	if *last != "" {
		l.restoreStatusLocked(*last)
		*last = ""
	}
}

func (l *ConnectionList) restoreStatusLocked(id string) {
	if node, ok := l.tree.Node(id); ok && node.Status == StatusSelected {
		l.tree.SetStatus(id, StatusNormal)
	}
}

func (l *ConnectionList) clearSelectionLocked() {
	l.deselectLocked(&l.lastConnection)
	l.deselectLocked(&l.lastDatabase)
	l.deselectLocked(&l.lastTable)
}

func (l *ConnectionList) closeSessionLocked(c *Connection) {
	if c.session == nil {
		return
	}
	if err := c.session.Close(); err != nil {
		l.logger.Warn("closing connection", zap.String("connection", c.Name()), zap.Error(err))
	}
	c.session = nil
}

func (l *ConnectionList) indexOfNodeLocked(nodeID string) int {
	return slices.IndexFunc(l.conns, func(c *Connection) bool { return c.nodeID == nodeID })
}

// lock and unlock bracket every public method. Events queued with emit
// run after the mutex is released.
func (l *ConnectionList) lock() {
	l.mu.Lock()
}

func (l *ConnectionList) unlock() {
	queued := l.queued
	l.queued = nil
	l.mu.Unlock()
	for _, fn := range queued {
		fn()
	}
}

func (l *ConnectionList) emit(fn func()) {
	l.queued = append(l.queued, fn)
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(v)
	}
}
