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

package database_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dossier/database"
	"dossier/database/databasetest"
	"dossier/datatable"
)

type recorder struct {
	focus  []database.Names
	errors [][]string
	log    []string
}

func record(l *database.ConnectionList) *recorder {
	r := &recorder{}
	l.Events().OnFocusChanged(func(n database.Names) { r.focus = append(r.focus, n) })
	l.Events().OnErrors(func(e []string) { r.errors = append(r.errors, e) })
	l.Events().OnLogLine(func(s string) { r.log = append(r.log, s) })
	return r
}

func newDialer() *databasetest.Dialer {
	return &databasetest.Dialer{
		Databases: []string{"shop", "crm"},
		Tables:    map[string][]string{"shop": {"orders", "users"}, "crm": {"leads"}},
	}
}

func configs(hosts ...string) []database.Config {
	out := make([]database.Config, 0, len(hosts))
	for _, h := range hosts {
		out = append(out, database.Config{Host: h, Port: 3306, User: "root"})
	}
	return out
}

func childNames(t *testing.T, tree *database.Tree, id string) []string {
	t.Helper()
	var names []string
	for _, child := range tree.ChildIDs(id) {
		node, ok := tree.Node(child)
		require.True(t, ok)
		names = append(names, node.Name)
	}
	return names
}

func status(t *testing.T, tree *database.Tree, id string) database.Status {
	t.Helper()
	node, ok := tree.Node(id)
	require.True(t, ok, id)
	return node.Status
}

func TestDrawStateCreatesConnectionNodes(t *testing.T) {
	ctx := context.Background()
	dialer := newDialer()
	list := database.NewConnectionList(configs("h1", "h2"), dialer)
	rec := record(list)

	list.DrawState(ctx)

	assert.Equal(t, []string{"root@h1:3306", "root@h2:3306"}, childNames(t, list.Tree(), ""))
	assert.Equal(t, []string{"root@h1:3306", "root@h2:3306"}, dialer.Dials())
	assert.Empty(t, rec.errors)
	assert.Empty(t, rec.focus)

	roots := list.Tree().ChildIDs("")
	list.DrawState(ctx)
	assert.Equal(t, roots, list.Tree().ChildIDs(""), "node IDs survive a redraw")
	assert.Len(t, dialer.Dials(), 2)
}

func TestSetActiveIndexListsDatabases(t *testing.T) {
	ctx := context.Background()
	list := database.NewConnectionList(configs("h1", "h2"), newDialer())
	rec := record(list)

	require.NoError(t, list.SetActiveIndex(ctx, 0))

	connID := list.Tree().ChildIDs("")[0]
	node, _ := list.Tree().Node(connID)
	assert.Equal(t, database.StatusSelected, node.Status)
	assert.True(t, node.Expanded)
	assert.Equal(t, []string{"shop", "crm"}, childNames(t, list.Tree(), connID))
	assert.Equal(t, []database.Names{{Connection: "root@h1:3306"}}, rec.focus)
	assert.Equal(t, []string{"SHOW DATABASES"}, rec.log)

	// Same index again: no new focus event.
	require.NoError(t, list.SetActiveIndex(ctx, 0))
	assert.Len(t, rec.focus, 1)

	require.NoError(t, list.SetActiveIndex(ctx, 1))
	assert.Equal(t, database.StatusNormal, status(t, list.Tree(), connID))
	assert.Equal(t, database.StatusSelected, status(t, list.Tree(), list.Tree().ChildIDs("")[1]))

	require.NoError(t, list.SetActiveIndex(ctx, database.NoActive))
	assert.Equal(t, database.Names{}, rec.focus[len(rec.focus)-1])
	_, ok := list.Active()
	assert.False(t, ok)

	assert.ErrorIs(t, list.SetActiveIndex(ctx, 2), database.ErrIndexOutOfRange)
}

func TestSetActiveIndexWithDatabase(t *testing.T) {
	ctx := context.Background()
	cfgs := configs("h1")
	cfgs[0].Database = "shop"
	cfgs[0].Table = "users"
	dialer := newDialer()
	list := database.NewConnectionList(cfgs, dialer)
	rec := record(list)

	require.NoError(t, list.SetActiveIndex(ctx, 0))

	tree := list.Tree()
	connID := tree.ChildIDs("")[0]
	dbID, ok := tree.Child(connID, "shop")
	require.True(t, ok)
	tableID, ok := tree.Child(dbID, "users")
	require.True(t, ok)

	assert.Equal(t, database.StatusSelected, status(t, tree, dbID))
	assert.Equal(t, database.StatusSelected, status(t, tree, tableID))
	assert.Equal(t, []string{"orders", "users"}, childNames(t, tree, dbID))
	assert.Equal(t, []string{"SHOW DATABASES", "USE shop", "SHOW TABLES"}, rec.log)
	assert.Equal(t, []database.Names{{Connection: "root@h1:3306", Database: "shop"}}, rec.focus)
	assert.Equal(t, "shop", dialer.Last("root@h1:3306").Current())
}

func TestSelectNode(t *testing.T) {
	ctx := context.Background()
	list := database.NewConnectionList(configs("h1", "h2"), newDialer())
	rec := record(list)
	require.NoError(t, list.SetActiveIndex(ctx, 0))

	tree := list.Tree()
	connID := tree.ChildIDs("")[0]
	shopID, ok := tree.Child(connID, "shop")
	require.True(t, ok)

	require.NoError(t, list.Select(ctx, shopID))
	assert.Equal(t, database.Names{Connection: "root@h1:3306", Database: "shop"}, rec.focus[len(rec.focus)-1])
	assert.Equal(t, database.StatusSelected, status(t, tree, shopID))

	ordersID, ok := tree.Child(shopID, "orders")
	require.True(t, ok)
	focusCount := len(rec.focus)
	require.NoError(t, list.Select(ctx, ordersID))
	assert.Len(t, rec.focus, focusCount+1, "one focus event per click")
	assert.Equal(t, database.Names{Connection: "root@h1:3306", Database: "shop", Table: "orders"}, rec.focus[len(rec.focus)-1])
	assert.Equal(t, database.StatusSelected, status(t, tree, ordersID))

	active, ok := list.Active()
	require.True(t, ok)
	assert.Equal(t, "shop", active.Database)
	assert.Equal(t, "orders", active.Table)

	// Another database deselects the old table and database.
	crmID, _ := tree.Child(connID, "crm")
	require.NoError(t, list.Select(ctx, crmID))
	assert.Equal(t, database.StatusNormal, status(t, tree, shopID))
	assert.Equal(t, database.StatusNormal, status(t, tree, ordersID))
	assert.Equal(t, database.StatusSelected, status(t, tree, crmID))

	// Clicking the second connection moves the active index.
	require.NoError(t, list.Select(ctx, tree.ChildIDs("")[1]))
	assert.Equal(t, 1, list.ActiveIndex())
	assert.Equal(t, database.StatusNormal, status(t, tree, connID))

	assert.ErrorIs(t, list.Select(ctx, "nope"), database.ErrUnknownNode)
}

func TestBrokenConnectionIsStickyUntilRefresh(t *testing.T) {
	ctx := context.Background()
	dialer := newDialer()
	dialer.SetFail("root@h2:3306", errors.New("connection refused"))
	list := database.NewConnectionList(configs("h1", "h2"), dialer)
	rec := record(list)

	list.DrawState(ctx)
	require.Len(t, rec.errors, 1)
	assert.Equal(t, []string{"connection refused"}, rec.errors[0])
	assert.True(t, list.IsBroken(1))
	brokenID := list.Tree().ChildIDs("")[1]
	assert.Equal(t, database.StatusBroken, status(t, list.Tree(), brokenID))

	require.NoError(t, list.SetActiveIndex(ctx, 1))
	assert.Empty(t, rec.focus)
	_, err := list.Query(ctx, "SELECT 1")
	assert.ErrorIs(t, err, database.ErrNoConnection)
	require.NoError(t, list.Select(ctx, brokenID))
	assert.Empty(t, rec.focus)

	dialer.SetFail("root@h2:3306", nil)
	list.DrawState(ctx)
	assert.True(t, list.IsBroken(1))
	assert.Len(t, dialer.Dials(), 2)

	first := dialer.Last("root@h1:3306")
	list.Refresh(ctx)
	assert.True(t, first.Closed())
	assert.False(t, list.IsBroken(1))
	assert.Len(t, dialer.Dials(), 4)

	connID := list.Tree().ChildIDs("")[1]
	assert.Equal(t, database.StatusSelected, status(t, list.Tree(), connID))
	assert.Equal(t, []string{"shop", "crm"}, childNames(t, list.Tree(), connID))
}

func TestPopAdjustsActiveIndex(t *testing.T) {
	ctx := context.Background()
	dialer := newDialer()
	list := database.NewConnectionList(configs("h1", "h2", "h3"), dialer)
	rec := record(list)
	require.NoError(t, list.SetActiveIndex(ctx, 2))

	cfg, err := list.Pop(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "h1", cfg.Host)
	assert.True(t, dialer.Last("root@h1:3306").Closed())
	assert.Equal(t, 1, list.ActiveIndex())
	assert.Equal(t, database.Names{Connection: "root@h3:3306"}, rec.focus[len(rec.focus)-1])
	assert.Equal(t, []string{"root@h2:3306", "root@h3:3306"}, childNames(t, list.Tree(), ""))

	_, err = list.Pop(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, database.NoActive, list.ActiveIndex())
	assert.Equal(t, database.Names{}, rec.focus[len(rec.focus)-1])
	assert.Equal(t, 1, list.Len())

	_, err = list.Pop(ctx, 5)
	assert.ErrorIs(t, err, database.ErrIndexOutOfRange)
}

func TestPopBeforeDraw(t *testing.T) {
	list := database.NewConnectionList(configs("h1", "h2"), newDialer())
	_, err := list.Pop(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []database.Config{{Host: "h2", Port: 3306, User: "root"}}, list.Configs())
}

func TestQueryWrapsDriverErrors(t *testing.T) {
	ctx := context.Background()
	dialer := newDialer()
	dialer.Errors = map[string]error{"SELECT nope": errors.New("unknown column")}
	list := database.NewConnectionList(configs("h1"), dialer)
	rec := record(list)

	_, err := list.Query(ctx, "SELECT 1")
	assert.ErrorIs(t, err, database.ErrNoConnection)

	require.NoError(t, list.SetActiveIndex(ctx, 0))
	rs, err := list.Query(ctx, "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Result"}, rs.Headers)

	_, err = list.Query(ctx, "SELECT nope")
	var qe *database.QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "SELECT nope", qe.SQL)
	assert.EqualError(t, err, "unknown column")
	assert.Contains(t, rec.log, "SELECT nope")
}

func TestUseDatabase(t *testing.T) {
	ctx := context.Background()
	list := database.NewConnectionList(configs("h1"), newDialer())
	rec := record(list)

	assert.ErrorIs(t, list.UseDatabase(ctx, "crm"), database.ErrNoConnection)

	require.NoError(t, list.SetActiveIndex(ctx, 0))
	require.NoError(t, list.UseDatabase(ctx, "crm"))
	assert.Equal(t, database.Names{Connection: "root@h1:3306", Database: "crm"}, rec.focus[len(rec.focus)-1])

	connID := list.Tree().ChildIDs("")[0]
	crmID, _ := list.Tree().Child(connID, "crm")
	assert.Equal(t, []string{"leads"}, childNames(t, list.Tree(), crmID))
}

func TestUseUnlistedDatabaseDeselectsOld(t *testing.T) {
	ctx := context.Background()
	list := database.NewConnectionList(configs("h1"), newDialer())
	require.NoError(t, list.SetActiveIndex(ctx, 0))
	require.NoError(t, list.UseDatabase(ctx, "shop"))

	tree := list.Tree()
	connID := tree.ChildIDs("")[0]
	shopID, ok := tree.Child(connID, "shop")
	require.True(t, ok)
	require.Equal(t, database.StatusSelected, status(t, tree, shopID))

	require.NoError(t, list.UseDatabase(ctx, "newdb"))
	active, ok := list.Active()
	require.True(t, ok)
	assert.Equal(t, "newdb", active.Database)
	assert.Equal(t, database.StatusNormal, status(t, tree, shopID))
	assert.Equal(t, database.StatusSelected, status(t, tree, connID))
	assert.Equal(t, []string{"shop", "crm"}, childNames(t, tree, connID))
}

func TestSelectConnectionKeepsDatabaseDropsTable(t *testing.T) {
	ctx := context.Background()
	list := database.NewConnectionList(configs("h1"), newDialer())
	rec := record(list)
	require.NoError(t, list.SetActiveIndex(ctx, 0))

	tree := list.Tree()
	connID := tree.ChildIDs("")[0]
	shopID, _ := tree.Child(connID, "shop")
	ordersID, ok := tree.Child(shopID, "orders")
	require.True(t, ok)
	require.NoError(t, list.Select(ctx, ordersID))

	require.NoError(t, list.Select(ctx, connID))
	assert.Equal(t, database.Names{Connection: "root@h1:3306", Database: "shop"}, rec.focus[len(rec.focus)-1])

	active, ok := list.Active()
	require.True(t, ok)
	assert.Equal(t, "shop", active.Database)
	assert.Empty(t, active.Table)
	assert.Equal(t, database.StatusSelected, status(t, tree, shopID))
	assert.Equal(t, database.StatusNormal, status(t, tree, ordersID))
}

func TestActiveSchema(t *testing.T) {
	ctx := context.Background()
	dialer := newDialer()
	dialer.Handle = func(query string, _ []any) (*datatable.ResultSet, bool, error) {
		if !strings.Contains(query, "information_schema") {
			return nil, false, nil
		}
		return &datatable.ResultSet{
			Headers: []string{"table_name", "referenced_table_name", "column_name", "constraint_name"},
			Records: [][]any{
				{"orders", "users", "user_id", "fk_orders_user"},
				{"orders", "users", "buyer_id", "fk_orders_buyer"},
				{"users", nil, nil, nil},
			},
		}, true, nil
	}
	cfgs := configs("h1")
	list := database.NewConnectionList(cfgs, dialer)

	require.NoError(t, list.SetActiveIndex(ctx, 0))
	_, err := list.ActiveSchema(ctx)
	assert.ErrorIs(t, err, database.ErrNoDatabase)

	require.NoError(t, list.UseDatabase(ctx, "shop"))
	schema, err := list.ActiveSchema(ctx)
	require.NoError(t, err)
	assert.Equal(t, database.Schema{
		"orders": {"users": {"user_id": "fk_orders_user", "buyer_id": "fk_orders_buyer"}},
		"users":  {},
	}, schema)

	session := dialer.Last("root@h1:3306")
	queries := session.Queries()
	assert.Equal(t, []any{"shop"}, session.Args(len(queries)-1))
}

func TestHandlersMayCallBack(t *testing.T) {
	ctx := context.Background()
	list := database.NewConnectionList(configs("h1"), newDialer())
	var seen []int
	list.Events().OnFocusChanged(func(database.Names) {
		seen = append(seen, list.ActiveIndex())
	})

	require.NoError(t, list.SetActiveIndex(ctx, 0))
	assert.Equal(t, []int{0}, seen)
}

func TestAppendAndClose(t *testing.T) {
	ctx := context.Background()
	dialer := newDialer()
	list := database.NewConnectionList(nil, dialer)

	idx := list.Append(database.Config{Host: "h9", Port: 3307, User: "app"})
	assert.Equal(t, 0, idx)
	require.NoError(t, list.SetActiveIndex(ctx, idx))

	got, ok := list.IndexOfNode(list.Tree().ChildIDs("")[0])
	require.True(t, ok)
	assert.Equal(t, 0, got)

	list.Close()
	assert.True(t, dialer.Last("app@h9:3307").Closed())
}

func TestTestConnection(t *testing.T) {
	ctx := context.Background()
	dialer := newDialer()
	cfg := database.Config{Host: "h1", Port: 3306, User: "root"}
	require.NoError(t, database.TestConnection(ctx, dialer, cfg))
	assert.True(t, dialer.Last(cfg.Name()).Closed())

	dialer.SetFail(cfg.Name(), errors.New("access denied"))
	assert.EqualError(t, database.TestConnection(ctx, dialer, cfg), "access denied")
}
