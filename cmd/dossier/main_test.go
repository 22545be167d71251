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

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dossier/config"
	"dossier/database"
	"dossier/database/databasetest"
	"dossier/datatable"
	"dossier/store"
)

func intPtr(i int) *int { return &i }

func savedState() *store.State {
	return &store.State{
		Connections: []database.Config{
			{Host: "localhost", Port: 3306, User: "root"},
			{Host: "db.internal", Port: 3307, User: "app", Database: "shop"},
		},
		ActiveConnectionIndex: intPtr(1),
	}
}

// setup points the package globals at a temp store and a fake dialer.
func setup(t *testing.T) *databasetest.Dialer {
	t.Helper()
	dir := t.TempDir()
	logger = zap.NewNop()
	settings = config.Defaults()
	st = store.New(filepath.Join(dir, "config"), filepath.Join(dir, "data"))
	require.NoError(t, st.Save(savedState()))

	dialer := &databasetest.Dialer{
		Databases: []string{"shop"},
		Tables:    map[string][]string{"shop": {"orders"}},
		Handle: func(query string, _ []any) (*datatable.ResultSet, bool, error) {
			if strings.HasPrefix(query, "SELECT") && !strings.Contains(query, "information_schema") {
				return &datatable.ResultSet{
					Headers: []string{"id", "item"},
					Types:   []datatable.DataType{datatable.TypeInt, datatable.TypeString},
					Records: [][]any{{int64(1), "tea"}, {int64(2), nil}},
				}, true, nil
			}
			return nil, false, nil
		},
	}
	prev := newDialer
	newDialer = func() database.Dialer { return dialer }

	connectionRef, databaseName = "", ""
	outputPath, outputFormat, schemaFormat = "", "", "json"
	t.Cleanup(func() { newDialer = prev })
	return dialer
}

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())
	err := cmd.RunE(cmd, args)
	return out.String(), err
}

func TestResolveConfig(t *testing.T) {
	state := savedState()

	cfg, err := resolveConfig(state, "")
	require.NoError(t, err)
	assert.Equal(t, "app@db.internal:3307", cfg.Name())

	cfg, err = resolveConfig(state, "0")
	require.NoError(t, err)
	assert.Equal(t, "root@localhost:3306", cfg.Name())

	cfg, err = resolveConfig(state, " root@localhost:3306 ")
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Host)

	_, err = resolveConfig(state, "5")
	assert.ErrorIs(t, err, database.ErrIndexOutOfRange)

	_, err = resolveConfig(state, "nobody@nowhere:1")
	assert.Error(t, err)

	state.ActiveConnectionIndex = nil
	cfg, err = resolveConfig(state, "")
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Host)

	_, err = resolveConfig(&store.State{}, "")
	assert.ErrorIs(t, err, errNoConnections)
}

func TestRenderResult(t *testing.T) {
	rs := &datatable.ResultSet{
		Headers: []string{"id", "name"},
		Types:   []datatable.DataType{datatable.TypeInt, datatable.TypeString},
		Records: [][]any{{int64(1), "alice"}, {int64(2), nil}},
	}
	out := renderResult(rs)
	for _, want := range []string{"id", "name", "alice", datatable.NullText} {
		assert.Contains(t, out, want)
	}

	out = renderResult(datatable.ErrorResult(errors.New("table missing")))
	assert.Contains(t, out, "table missing")
}

func TestRenderConnections(t *testing.T) {
	out := renderConnections(savedState())
	assert.Contains(t, out, "root@localhost:3306")
	assert.Contains(t, out, "app@db.internal:3307")
	assert.Contains(t, out, "shop")
	assert.Contains(t, out, "*")

	assert.Equal(t, "No saved connections.", renderConnections(&store.State{}))
}

func TestWriteSchema(t *testing.T) {
	schema := database.Schema{
		"orders": {"customers": {"customer_id": "fk_orders_customer"}},
	}

	var buf bytes.Buffer
	require.NoError(t, writeSchema(&buf, schema, "json"))
	assert.JSONEq(t, `{"orders":{"customers":{"customer_id":"fk_orders_customer"}}}`, buf.String())
	assert.Contains(t, buf.String(), "\n    \"orders\"")

	buf.Reset()
	require.NoError(t, writeSchema(&buf, schema, "yaml"))
	assert.YAMLEq(t, "orders:\n  customers:\n    customer_id: fk_orders_customer\n", buf.String())

	buf.Reset()
	require.NoError(t, writeSchema(&buf, nil, "json"))
	assert.JSONEq(t, `{}`, buf.String())

	assert.Error(t, writeSchema(&buf, schema, "xml"))
}

func TestOpenConnection(t *testing.T) {
	dialer := setup(t)
	cfg := savedState().Connections[1]

	list, err := openConnection(context.Background(), dialer, cfg)
	require.NoError(t, err)
	defer list.Close()

	active, ok := list.Active()
	require.True(t, ok)
	assert.Equal(t, cfg.Name(), active.Name())
	assert.Equal(t, "shop", dialer.Last(cfg.Name()).Current())

	dialer.SetFail("root@localhost:3306", errors.New("access denied"))
	_, err = openConnection(context.Background(), dialer, savedState().Connections[0])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "root@localhost:3306")
	assert.Contains(t, err.Error(), "access denied")
}

func TestConnectionsCommand(t *testing.T) {
	setup(t)
	out, err := run(t, connectionsCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "app@db.internal:3307")
}

func TestQueryCommand(t *testing.T) {
	dialer := setup(t)

	out, err := run(t, queryCmd, "SELECT", "id,", "item", "FROM", "orders")
	require.NoError(t, err)
	assert.Contains(t, out, "tea")
	assert.Contains(t, dialer.Last("app@db.internal:3307").Queries(), "SELECT id, item FROM orders")
	assert.True(t, dialer.Last("app@db.internal:3307").Closed())

	outputFormat = "csv"
	out, err = run(t, queryCmd, "SELECT 1")
	require.NoError(t, err)
	assert.Contains(t, out, "tea")
	assert.NotContains(t, out, "┌")

	outputFormat = "parquet"
	_, err = run(t, queryCmd, "SELECT 1")
	assert.Error(t, err)

	outputFormat = ""
	outputPath = filepath.Join(t.TempDir(), "result.json")
	out, err = run(t, queryCmd, "SELECT 1")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 2 rows")
	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tea")
}

func TestQueryCommandSelectsConnection(t *testing.T) {
	dialer := setup(t)
	connectionRef = "0"
	databaseName = "shop"

	_, err := run(t, queryCmd, "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, []string{"root@localhost:3306"}, dialer.Dials())
	assert.Equal(t, "shop", dialer.Last("root@localhost:3306").Current())
}

func TestExportCommand(t *testing.T) {
	dialer := setup(t)
	path := filepath.Join(t.TempDir(), "orders.csv")

	out, err := run(t, exportCmd, "orders", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 2 rows")

	queries := dialer.Last("app@db.internal:3307").Queries()
	assert.Contains(t, queries, "SELECT * FROM orders LIMIT 1000")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tea")

	_, err = run(t, exportCmd, "orders", filepath.Join(t.TempDir(), "orders.txt"))
	assert.ErrorIs(t, err, datatable.ErrUnknownFormat)
}

func TestTestCommand(t *testing.T) {
	dialer := setup(t)

	out, err := run(t, testCmd, "0")
	require.NoError(t, err)
	assert.Contains(t, out, "Connection to root@localhost:3306 succeeded")

	dialer.SetFail("app@db.internal:3307", errors.New("refused"))
	_, err = run(t, testCmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused")
}
