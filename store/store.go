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

// Package store persists the connection list, the active connection and
// the editor contents between runs.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"dossier/database"
)

const (
	// Version is written into every saved config file.
	Version = "0.0.1"

	// AppName names the per-user config and data directories.
	AppName = "database-dossier"

	configFile = "config.json"
	sqlFile    = "editor.sql"

	maxConnections = 50
	maxStringLen   = 200
	maxPort        = 10000
)

// ErrInvalidState is returned when config.json is not a JSON object.
var ErrInvalidState = errors.New("invalid state file")

// State is everything saved between runs.
type State struct {
	Connections           []database.Config
	ActiveConnectionIndex *int
	SQLPath               string
	EditorSQL             string
}

// Store reads and writes State under a config and a data directory.
type Store struct {
	configDir string
	dataDir   string
	logger    *zap.Logger
}

type Option func(*Store)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a store rooted at configDir and dataDir.
func New(configDir, dataDir string, opts ...Option) *Store {
	s := &Store{configDir: configDir, dataDir: dataDir, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Default creates a store in the per-user directories of the platform.
func Default(opts ...Option) (*Store, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("locating config dir: %w", err)
	}
	dataDir, err := userDataDir()
	if err != nil {
		return nil, fmt.Errorf("locating data dir: %w", err)
	}
	return New(filepath.Join(configDir, AppName), filepath.Join(dataDir, AppName), opts...), nil
}

// ConfigDir is the directory holding config.json and settings.yaml.
func (s *Store) ConfigDir() string { return s.configDir }

func (s *Store) ConfigPath() string { return filepath.Join(s.configDir, configFile) }

// DefaultSQLPath is where the editor contents go unless the state names
// another file.
func (s *Store) DefaultSQLPath() string { return filepath.Join(s.dataDir, sqlFile) }

// Load reads the saved state. A missing file yields an empty state. A
// malformed file yields an empty state and an error wrapping
// ErrInvalidState.
func (s *Store) Load() (*State, error) {
	data, err := os.ReadFile(s.ConfigPath())
	var state *State
	switch {
	case errors.Is(err, fs.ErrNotExist):
		state = &State{SQLPath: s.DefaultSQLPath()}
	case err != nil:
		return &State{SQLPath: s.DefaultSQLPath()}, fmt.Errorf("reading %s: %w", s.ConfigPath(), err)
	default:
		state, err = Parse(data, s.DefaultSQLPath())
		if err != nil {
			s.logger.Warn("ignoring saved state", zap.String("path", s.ConfigPath()), zap.Error(err))
			return state, err
		}
	}

	sql, err := os.ReadFile(state.SQLPath)
	switch {
	case err == nil:
		state.EditorSQL = string(sql)
	case !errors.Is(err, fs.ErrNotExist):
		s.logger.Warn("reading editor sql", zap.String("path", state.SQLPath), zap.Error(err))
	}
	return state, nil
}

// Parse validates a config document. Invalid fields fall back to their
// defaults instead of failing the whole document.
func Parse(data []byte, defaultSQLPath string) (*State, error) {
	state := &State{SQLPath: defaultSQLPath}
	if !gjson.ValidBytes(data) {
		return state, fmt.Errorf("%w: not JSON", ErrInvalidState)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return state, fmt.Errorf("%w: not an object", ErrInvalidState)
	}

	if conns := doc.Get("connections"); conns.IsArray() {
		items := conns.Array()
		if len(items) <= maxConnections {
			for _, item := range items {
				if item.IsObject() {
					state.Connections = append(state.Connections, parseConnection(item))
				}
			}
		}
	}

	if idx, ok := intField(doc, "active_connection_index", 0, len(state.Connections)-1); ok {
		state.ActiveConnectionIndex = &idx
	}

	if p := doc.Get("sql_path"); p.Type == gjson.String && p.Str != "" {
		state.SQLPath = p.Str
	}
	return state, nil
}

func parseConnection(item gjson.Result) database.Config {
	cfg := database.Config{
		Host:     stringField(item, "host"),
		User:     stringField(item, "user"),
		Password: stringField(item, "password"),
		Database: stringField(item, "database"),
		Table:    stringField(item, "table"),
		Port:     database.DefaultPort,
	}
	if port, ok := intField(item, "port", 0, maxPort); ok {
		cfg.Port = port
	}
	if diagram := item.Get("diagram"); diagram.IsObject() {
		cfg.Diagram, _ = diagram.Value().(map[string]any)
	}
	return cfg
}

func stringField(obj gjson.Result, key string) string {
	r := obj.Get(key)
	if r.Type != gjson.String || utf8.RuneCountInString(r.Str) > maxStringLen {
		return ""
	}
	return r.Str
}

// intField accepts only integral JSON numbers within [lo, hi].
func intField(obj gjson.Result, key string, lo, hi int) (int, bool) {
	r := obj.Get(key)
	if r.Type != gjson.Number {
		return 0, false
	}
	n, err := strconv.Atoi(r.Raw)
	if err != nil || n < lo || n > hi {
		return 0, false
	}
	return n, true
}

// Save writes config.json and the editor contents.
func (s *Store) Save(state *State) error {
	data, err := Marshal(state)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.configDir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(s.ConfigPath(), data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", s.ConfigPath(), err)
	}

	sqlPath := state.SQLPath
	if sqlPath == "" {
		sqlPath = s.DefaultSQLPath()
	}
	if err := os.MkdirAll(filepath.Dir(sqlPath), 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	if err := os.WriteFile(sqlPath, []byte(state.EditorSQL), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", sqlPath, err)
	}
	s.logger.Debug("state saved", zap.String("path", s.ConfigPath()), zap.Int("connections", len(state.Connections)))
	return nil
}

// Marshal renders the config document: four-space indent, sorted keys.
// The editor contents are not part of it.
func Marshal(state *State) ([]byte, error) {
	conns := make([]map[string]any, 0, len(state.Connections))
	for _, c := range state.Connections {
		var diagram any
		if c.Diagram != nil {
			diagram = c.Diagram
		}
		conns = append(conns, map[string]any{
			"host":     c.Host,
			"port":     c.Port,
			"user":     c.User,
			"password": c.Password,
			"database": c.Database,
			"table":    c.Table,
			"diagram":  diagram,
		})
	}

	var active any
	if state.ActiveConnectionIndex != nil {
		active = *state.ActiveConnectionIndex
	}
	doc := map[string]any{
		"version":                 Version,
		"connections":             conns,
		"sql_path":                state.SQLPath,
		"active_connection_index": active,
	}
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encoding state: %w", err)
	}
	return data, nil
}

func userDataDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if dir := os.Getenv("LocalAppData"); dir != "" {
			return dir, nil
		}
		return os.UserConfigDir()
	case "darwin", "ios":
		return os.UserConfigDir()
	}
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share"), nil
}
