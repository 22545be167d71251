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
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dossier/database"
	"dossier/datatable"
)

var (
	outputPath   string
	outputFormat string
	schemaFormat string
)

// queryCmd runs one statement against a saved connection
var queryCmd = &cobra.Command{
	Use:   "query <sql>",
	Short: "Run a statement against a saved connection",
	Long: `Runs a single statement on a saved connection and prints the result as a
table. With --output the result is exported instead; the format follows
--format or the file extension.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sql := strings.TrimSpace(strings.Join(args, " "))
		if sql == "" {
			return fmt.Errorf("empty statement")
		}
		return withConnection(cmd.Context(), func(ctx context.Context, list *database.ConnectionList) error {
			rs, err := list.Query(ctx, sql)
			if err != nil {
				return err
			}
			if rs == nil {
				rs = datatable.OK()
			}
			return writeResult(cmd.OutOrStdout(), rs)
		})
	},
}

// schemaCmd prints the foreign-key graph of the selected database
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the foreign-key graph of a database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withConnection(cmd.Context(), func(ctx context.Context, list *database.ConnectionList) error {
			schema, err := list.ActiveSchema(ctx)
			if err != nil {
				return err
			}
			return writeSchema(cmd.OutOrStdout(), schema, schemaFormat)
		})
	},
}

// exportCmd dumps a table to a file
var exportCmd = &cobra.Command{
	Use:   "export <table> <file>",
	Short: "Export up to max-records rows of a table to csv, json or parquet",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, path := args[0], args[1]
		format, err := exportFormat(path)
		if err != nil {
			return err
		}
		return withConnection(cmd.Context(), func(ctx context.Context, list *database.ConnectionList) error {
			sql := fmt.Sprintf("SELECT * FROM %s LIMIT %d", database.QuoteIdentifier(table), settings.MaxRecords)
			rs, err := list.Query(ctx, sql)
			if err != nil {
				return err
			}
			if err := datatable.ExportFile(rs, nil, format, path); err != nil {
				return err
			}
			logger.Info("exported table",
				zap.String("table", table),
				zap.String("path", path),
				zap.Int("rows", rs.RowCount()))
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d rows to %s\n", rs.RowCount(), path)
			return nil
		})
	},
}

func init() {
	queryCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the result to a file instead of the terminal")
	queryCmd.Flags().StringVarP(&outputFormat, "format", "f", "", "Output format: table, csv, json or parquet")
	exportCmd.Flags().StringVarP(&outputFormat, "format", "f", "", "Export format (default: from the file extension)")
	schemaCmd.Flags().StringVarP(&schemaFormat, "format", "f", "json", "Output format: json or yaml")
}

// withConnection opens the connection the flags select, bounds fn by the
// query timeout and closes the sessions afterwards.
func withConnection(parent context.Context, fn func(context.Context, *database.ConnectionList) error) error {
	cfg, err := loadConfig(connectionRef)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(parent, settings.ConnectTimeout+settings.QueryTimeout)
	defer cancel()

	list, err := openConnection(ctx, newDialer(), cfg)
	if err != nil {
		return err
	}
	defer list.Close()
	return fn(ctx, list)
}

// exportFormat resolves --format, falling back to the extension of path.
func exportFormat(path string) (datatable.ExportFormat, error) {
	if outputFormat != "" {
		return datatable.ParseFormat(outputFormat)
	}
	return datatable.FormatForPath(path)
}

// writeResult prints rs, or exports it when --output or a non-table
// --format is given.
func writeResult(w io.Writer, rs *datatable.ResultSet) error {
	if outputPath != "" {
		format, err := exportFormat(outputPath)
		if err != nil {
			return err
		}
		if err := datatable.ExportFile(rs, nil, format, outputPath); err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "Wrote %d rows to %s\n", rs.RowCount(), outputPath)
		return err
	}

	switch outputFormat {
	case "", "table":
		_, err := fmt.Fprintln(w, renderResult(rs))
		return err
	case "parquet":
		return fmt.Errorf("parquet output needs --output")
	default:
		format, err := datatable.ParseFormat(outputFormat)
		if err != nil {
			return err
		}
		return datatable.Export(rs, nil, format, w)
	}
}
