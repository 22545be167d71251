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

// Package workspace wires the connection list, the SQL buffer and the
// result slots together behind a View.
package workspace

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"dossier/config"
	"dossier/database"
	"dossier/datatable"
	"dossier/editor"
	"dossier/store"
)

// Result slots. The editor's run buttons fill result_set_1..3.
const (
	SlotData   = "data"
	SlotSchema = "schema"

	ResultSlots = 3
)

// Tabs of the result pane.
const (
	TabData   = 0
	TabSchema = 1
)

const describeTTL = 5 * time.Minute

// ResultSlot names the slot filled by run button i (0-based).
func ResultSlot(i int) string {
	return fmt.Sprintf("result_set_%d", i+1)
}

// ResultTab is the tab showing run button i's results.
func ResultTab(i int) int {
	return 2 + i
}

// Slots lists every result slot in tab order.
func Slots() []string {
	slots := []string{SlotData, SlotSchema}
	for i := range ResultSlots {
		slots = append(slots, ResultSlot(i))
	}
	return slots
}

// View is the presentation side of the workspace. Methods may be called
// from any goroutine.
type View interface {
	ResultChanged(slot string, rs *datatable.ResultSet)
	ShowTab(index int)
	SetTabTitle(index int, title string)
	SetIndicators(connection, database string)
	AppendLog(line string)
}

// Workspace is the application controller.
type Workspace struct {
	conns    *database.ConnectionList
	buffer   *editor.Buffer
	view     View
	dialer   database.Dialer
	logger   *zap.Logger
	settings config.Settings
	describe *cache.Cache

	mu      sync.Mutex
	results map[string]*datatable.ResultSet
	log     []string
	sqlPath string
}

type Option func(*Workspace)

func WithLogger(logger *zap.Logger) Option {
	return func(w *Workspace) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithSettings(s config.Settings) Option {
	return func(w *Workspace) { w.settings = s }
}

// WithDialer sets the dialer used by TestConnection.
func WithDialer(d database.Dialer) Option {
	return func(w *Workspace) { w.dialer = d }
}

// New binds conns and buffer to view and subscribes to the list's events.
func New(conns *database.ConnectionList, buffer *editor.Buffer, view View, opts ...Option) *Workspace {
	w := &Workspace{
		conns:    conns,
		buffer:   buffer,
		view:     view,
		logger:   zap.NewNop(),
		settings: config.Defaults(),
		describe: cache.New(describeTTL, 0),
		results:  make(map[string]*datatable.ResultSet),
	}
	for _, opt := range opts {
		opt(w)
	}

	conns.Events().OnFocusChanged(w.focusChanged)
	conns.Events().OnErrors(w.errorHandler)
	conns.Events().OnLogLine(w.logLine)
	return w
}

func (w *Workspace) Connections() *database.ConnectionList { return w.conns }

func (w *Workspace) Buffer() *editor.Buffer { return w.buffer }

func (w *Workspace) Settings() config.Settings { return w.settings }

// Restore loads a saved state: the editor text, then the connections are
// drawn and the saved active connection is selected.
func (w *Workspace) Restore(ctx context.Context, state *store.State) error {
	w.mu.Lock()
	w.sqlPath = state.SQLPath
	w.mu.Unlock()

	w.buffer.SetText(state.EditorSQL)
	w.conns.DrawState(ctx)
	if idx := state.ActiveConnectionIndex; idx != nil && *idx < w.conns.Len() {
		return w.conns.SetActiveIndex(ctx, *idx)
	}
	return nil
}

// State captures what should be saved on exit.
func (w *Workspace) State() *store.State {
	w.mu.Lock()
	sqlPath := w.sqlPath
	w.mu.Unlock()

	state := &store.State{
		Connections: w.conns.Configs(),
		SQLPath:     sqlPath,
		EditorSQL:   w.buffer.Text(),
	}
	if idx := w.conns.ActiveIndex(); idx != database.NoActive {
		state.ActiveConnectionIndex = &idx
	}
	return state
}

// Result returns the last result stored in slot.
func (w *Workspace) Result(slot string) *datatable.ResultSet {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.results[slot]
}

// Log returns every statement logged so far.
func (w *Workspace) Log() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.log...)
}

// Statement is the SQL a run button executes: the trimmed selection, or
// the statement under the cursor. The statement is selected in the
// buffer so the user sees what ran.
func (w *Workspace) Statement() string {
	if sel := strings.TrimSpace(w.buffer.SelectedText()); sel != "" {
		return sel
	}
	text := w.buffer.Text()
	start, end, ok := editor.FragmentBounds(text, w.buffer.Cursor())
	if !ok {
		return ""
	}
	sql := strings.TrimSpace(string([]rune(text)[start:end]))
	if sql != "" {
		w.buffer.Select(start, end)
	}
	return sql
}

// Execute runs the current statement into result slot i and shows it.
func (w *Workspace) Execute(ctx context.Context, i int) error {
	if i < 0 || i >= ResultSlots {
		return fmt.Errorf("result slot %d out of range", i)
	}
	sql := w.Statement()
	if sql == "" {
		return nil
	}

	rs := w.run(ctx, ResultSlot(i), sql)
	w.view.ShowTab(ResultTab(i))

	if rs.IsError {
		return nil
	}
	if !database.ReturnsRows(sql) {
		w.describe.Flush()
	}
	if db, ok := database.UseTarget(sql); ok {
		return w.conns.UseDatabase(ctx, db)
	}
	return nil
}

// SelectQuery selects the statement under the cursor.
func (w *Workspace) SelectQuery() (string, bool) {
	return w.buffer.SelectFragment()
}

// ShowTable describes table into the schema slot and loads up to
// max_records of its rows into the data slot.
func (w *Workspace) ShowTable(ctx context.Context, table string) {
	quoted := database.QuoteIdentifier(table)

	key := w.describeKey(table)
	if cached, ok := w.describe.Get(key); ok {
		w.setResult(SlotSchema, cached.(*datatable.ResultSet))
	} else if rs := w.run(ctx, SlotSchema, "DESCRIBE "+quoted); !rs.IsError {
		w.describe.SetDefault(key, rs)
	}

	rs := w.run(ctx, SlotData, fmt.Sprintf("SELECT * FROM %s LIMIT %d", quoted, w.settings.MaxRecords))
	w.view.SetTabTitle(TabData, fmt.Sprintf("Data: %s (%d)", table, rs.RowCount()))
	w.view.ShowTab(TabData)
}

// ActiveSchema returns the foreign-key graph of the active database.
func (w *Workspace) ActiveSchema(ctx context.Context) (database.Schema, error) {
	return w.conns.ActiveSchema(ctx)
}

// AddConnection appends cfg and makes it active.
func (w *Workspace) AddConnection(ctx context.Context, cfg database.Config) error {
	if cfg.Port == 0 {
		cfg.Port = database.DefaultPort
	}
	idx := w.conns.Append(cfg)
	w.logger.Info("connection added", zap.String("connection", cfg.Name()))
	return w.conns.SetActiveIndex(ctx, idx)
}

// RemoveConnection drops the connection at index.
func (w *Workspace) RemoveConnection(ctx context.Context, index int) (database.Config, error) {
	cfg, err := w.conns.Pop(ctx, index)
	if err != nil {
		return database.Config{}, err
	}
	w.logger.Info("connection removed", zap.String("connection", cfg.Name()))
	return cfg, nil
}

// RemoveNode drops the connection owning a tree node.
func (w *Workspace) RemoveNode(ctx context.Context, nodeID string) (database.Config, error) {
	idx, ok := w.conns.IndexOfNode(nodeID)
	if !ok {
		return database.Config{}, fmt.Errorf("%w: %s", database.ErrUnknownNode, nodeID)
	}
	return w.RemoveConnection(ctx, idx)
}

// Refresh reconnects everything and forgets cached table descriptions.
func (w *Workspace) Refresh(ctx context.Context) {
	w.describe.Flush()
	w.conns.Refresh(ctx)
}

// SelectNode handles a click in the schema tree.
func (w *Workspace) SelectNode(ctx context.Context, nodeID string) error {
	return w.conns.Select(ctx, nodeID)
}

// TestConnection dials cfg without adding it.
func (w *Workspace) TestConnection(ctx context.Context, cfg database.Config) error {
	if w.dialer == nil {
		return database.ErrNoConnection
	}
	return database.TestConnection(ctx, w.dialer, cfg)
}

// Close closes every session.
func (w *Workspace) Close() {
	w.conns.Close()
}

func (w *Workspace) focusChanged(names database.Names) {
	if names.Connection == "" {
		w.view.SetIndicators("", "")
		return
	}
	w.view.SetIndicators(names.Connection, names.Database)
	if names.Table != "" {
		ctx, cancel := w.queryContext()
		defer cancel()
		w.ShowTable(ctx, names.Table)
	}
}

func (w *Workspace) errorHandler(msgs []string) {
	w.setResult(SlotData, datatable.Errors(msgs))
	w.view.ShowTab(TabData)
}

func (w *Workspace) logLine(line string) {
	w.mu.Lock()
	w.log = append(w.log, line)
	w.mu.Unlock()
	w.logger.Info("sql", zap.String("statement", line))
	w.view.AppendLog(line)
}

// run executes sql and stores the outcome in slot. Failures become error
// results.
func (w *Workspace) run(ctx context.Context, slot, sql string) *datatable.ResultSet {
	rs, err := w.conns.Query(ctx, sql)
	switch {
	case err != nil:
		rs = datatable.ErrorResult(err)
	case rs == nil:
		rs = datatable.OK()
	}
	w.setResult(slot, rs)
	return rs
}

func (w *Workspace) setResult(slot string, rs *datatable.ResultSet) {
	w.mu.Lock()
	w.results[slot] = rs
	w.mu.Unlock()
	w.view.ResultChanged(slot, rs)
}

func (w *Workspace) describeKey(table string) string {
	cfg, _ := w.conns.Active()
	return cfg.Name() + "/" + cfg.Database + "/" + table
}

// queryContext bounds work started by events, which carry no context.
func (w *Workspace) queryContext() (context.Context, context.CancelFunc) {
	timeout := w.settings.QueryTimeout
	if timeout <= 0 {
		timeout = config.DefaultQueryTimeout
	}
	return context.WithTimeout(context.Background(), timeout)
}
