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
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dossier/config"
	"dossier/database"
	"dossier/store"
	"dossier/windows"
)

var (
	// Global flags
	verbose bool

	// Set up by PersistentPreRunE.
	logger   *zap.Logger
	settings config.Settings
	loader   *config.Loader
	st       *store.Store
)

// rootCmd launches the desktop client.
var rootCmd = &cobra.Command{
	Use:   "dossier",
	Short: "Database Dossier - a desktop client for browsing MySQL databases",
	Long: `Database Dossier manages MySQL connections, shows their databases and
tables as a tree, and runs SQL from a highlighting editor into tabbed
result grids.

Run without arguments to open the window. The subcommands give headless
access to the saved connections.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		paths, err := store.Default()
		if err != nil {
			return err
		}
		loader = config.NewLoader([]string{paths.ConfigDir()})
		if err := loader.BindFlags(cmd.Flags()); err != nil {
			return err
		}
		var loadErr error
		settings, loadErr = loader.Load()
		logger, err = config.NewLogger(settings, verbose)
		if err != nil {
			return err
		}
		if loadErr != nil {
			logger.Warn("using default settings", zap.String("file", loader.File()), zap.Error(loadErr))
		}
		st, err = store.Default(store.WithLogger(logger))
		if err != nil {
			return err
		}
		logger.Debug("starting", zap.String("config", st.ConfigPath()), zap.String("settings", loader.File()))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return windows.Run(windows.Options{
			Settings: settings,
			Loader:   loader,
			Store:    st,
			Dialer:   database.NewMySQLDialer(settings.ConnectTimeout, logger),
			Logger:   logger,
		})
	},
}

func init() {
	d := config.Defaults()
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	flags.Int("max-records", d.MaxRecords, "Rows fetched when a table is opened")
	flags.Duration("connect-timeout", d.ConnectTimeout, "Timeout for establishing a connection")
	flags.Duration("query-timeout", d.QueryTimeout, "Timeout for a single statement")
	flags.String("log-level", d.LogLevel, "Log level (debug, info, warn, error)")
	flags.String("theme", d.Theme, "Force the light or dark theme")

	rootCmd.AddCommand(connectionsCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
