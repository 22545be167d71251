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
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dossier/database"
	"dossier/store"
)

var errNoConnections = errors.New("no saved connections; add one in the window first")

// connection flags shared by the headless commands
var (
	connectionRef string
	databaseName  string
)

func addConnectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&connectionRef, "connection", "c", "", "Saved connection by index or user@host:port (default: the active one)")
	cmd.Flags().StringVarP(&databaseName, "database", "d", "", "Database to use instead of the saved one")
}

// connectionsCmd lists the saved connections
var connectionsCmd = &cobra.Command{
	Use:   "connections",
	Short: "List the saved connections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := st.Load()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderConnections(state))
		return nil
	},
}

// testCmd dials a saved connection
var testCmd = &cobra.Command{
	Use:   "test [connection]",
	Short: "Check that a saved connection can be opened",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref := connectionRef
		if len(args) == 1 {
			ref = args[0]
		}
		cfg, err := loadConfig(ref)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), settings.ConnectTimeout)
		defer cancel()
		if err := database.TestConnection(ctx, newDialer(), cfg); err != nil {
			return fmt.Errorf("connection to %s failed: %w", cfg.Name(), err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Connection to %s succeeded\n", cfg.Name())
		return nil
	},
}

func init() {
	addConnectionFlags(testCmd)
	addConnectionFlags(queryCmd)
	addConnectionFlags(schemaCmd)
	addConnectionFlags(exportCmd)
}

// newDialer is swapped out by tests.
var newDialer = func() database.Dialer {
	return database.NewMySQLDialer(settings.ConnectTimeout, logger)
}

// loadConfig picks a saved connection and applies --database.
func loadConfig(ref string) (database.Config, error) {
	state, err := st.Load()
	if err != nil {
		return database.Config{}, err
	}
	cfg, err := resolveConfig(state, ref)
	if err != nil {
		return database.Config{}, err
	}
	if databaseName != "" {
		cfg.Database = databaseName
		cfg.Table = ""
	}
	return cfg, nil
}

// resolveConfig finds the connection ref names: a zero-based index, a
// user@host:port name, or empty for the active (else first) connection.
func resolveConfig(state *store.State, ref string) (database.Config, error) {
	if len(state.Connections) == 0 {
		return database.Config{}, errNoConnections
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		if idx := state.ActiveConnectionIndex; idx != nil {
			return state.Connections[*idx], nil
		}
		return state.Connections[0], nil
	}
	if i, err := strconv.Atoi(ref); err == nil {
		if i < 0 || i >= len(state.Connections) {
			return database.Config{}, fmt.Errorf("%w: %d", database.ErrIndexOutOfRange, i)
		}
		return state.Connections[i], nil
	}
	for _, cfg := range state.Connections {
		if cfg.Name() == ref {
			return cfg, nil
		}
	}
	return database.Config{}, fmt.Errorf("no saved connection named %q", ref)
}

// openConnection draws a one-entry connection list for cfg and makes it
// active, so the configured database is selected like in the window.
func openConnection(ctx context.Context, dialer database.Dialer, cfg database.Config) (*database.ConnectionList, error) {
	list := database.NewConnectionList([]database.Config{cfg}, dialer, database.WithLogger(logger))
	var errs []string
	list.Events().OnErrors(func(msgs []string) { errs = append(errs, msgs...) })
	list.Events().OnLogLine(func(line string) {
		logger.Debug("statement", zap.String("sql", line))
	})

	if err := list.SetActiveIndex(ctx, 0); err != nil {
		list.Close()
		return nil, err
	}
	if len(errs) > 0 {
		list.Close()
		return nil, fmt.Errorf("%s: %s", cfg.Name(), strings.Join(errs, "; "))
	}
	return list, nil
}
