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

// Package config loads user settings from settings.yaml and DOSSIER_*
// environment variables. Connection state lives in the store package.
package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"dossier/editor"
)

const (
	KeyMaxRecords      = "max_records"
	KeyConnectTimeout  = "connect_timeout"
	KeyQueryTimeout    = "query_timeout"
	KeyEditorFontSize  = "editor.font_size"
	KeyEditorUndoDepth = "editor.undo_depth"
	KeyTheme           = "theme"
	KeyLogLevel        = "log_level"

	EnvPrefix = "DOSSIER"
	FileName  = "settings"
)

const (
	DefaultMaxRecords     = 1000
	DefaultConnectTimeout = 10 * time.Second
	DefaultQueryTimeout   = 60 * time.Second
)

// Themes accepted by the theme setting. An empty theme follows the system.
const (
	ThemeSystem = ""
	ThemeLight  = "light"
	ThemeDark   = "dark"
)

type EditorSettings struct {
	FontSize  int `mapstructure:"font_size"`
	UndoDepth int `mapstructure:"undo_depth"`
}

// Settings are the user preferences.
type Settings struct {
	MaxRecords     int            `mapstructure:"max_records"`
	ConnectTimeout time.Duration  `mapstructure:"connect_timeout"`
	QueryTimeout   time.Duration  `mapstructure:"query_timeout"`
	Editor         EditorSettings `mapstructure:"editor"`
	Theme          string         `mapstructure:"theme"`
	LogLevel       string         `mapstructure:"log_level"`
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Settings {
	return Settings{
		MaxRecords:     DefaultMaxRecords,
		ConnectTimeout: DefaultConnectTimeout,
		QueryTimeout:   DefaultQueryTimeout,
		Editor: EditorSettings{
			FontSize:  editor.DefaultFontSize,
			UndoDepth: editor.DefaultUndoDepth,
		},
		Theme:    ThemeSystem,
		LogLevel: "info",
	}
}

// Level parses LogLevel, falling back to info.
func (s Settings) Level() zapcore.Level {
	level, err := zapcore.ParseLevel(s.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// Loader reads Settings and optionally follows changes to the file.
type Loader struct {
	mu       sync.Mutex
	v        *viper.Viper
	logger   *zap.Logger
	current  Settings
	watchers []func(Settings)
	watching bool
}

type Option func(*Loader)

func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader creates a loader that looks for settings.yaml in dirs.
func NewLoader(dirs []string, opts ...Option) *Loader {
	v := viper.New()
	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault(KeyMaxRecords, d.MaxRecords)
	v.SetDefault(KeyConnectTimeout, d.ConnectTimeout)
	v.SetDefault(KeyQueryTimeout, d.QueryTimeout)
	v.SetDefault(KeyEditorFontSize, d.Editor.FontSize)
	v.SetDefault(KeyEditorUndoDepth, d.Editor.UndoDepth)
	v.SetDefault(KeyTheme, d.Theme)
	v.SetDefault(KeyLogLevel, d.LogLevel)

	l := &Loader{v: v, logger: zap.NewNop(), current: d}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// BindFlags lets command-line flags override the file and environment.
// Flags are matched by name with "-" standing for "_" or ".".
func (l *Loader) BindFlags(flags *pflag.FlagSet) error {
	bindings := map[string]string{
		"max-records":     KeyMaxRecords,
		"connect-timeout": KeyConnectTimeout,
		"query-timeout":   KeyQueryTimeout,
		"log-level":       KeyLogLevel,
		"theme":           KeyTheme,
	}
	for flag, key := range bindings {
		f := flags.Lookup(flag)
		if f == nil {
			continue
		}
		if err := l.v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding --%s: %w", flag, err)
		}
	}
	return nil
}

// Load reads the settings. A missing settings file is not an error.
func (l *Loader) Load() (Settings, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return l.current, fmt.Errorf("reading settings: %w", err)
		}
	}
	s, err := l.decode()
	if err != nil {
		return l.current, err
	}
	l.current = s
	l.logger.Debug("settings loaded", zap.String("file", l.v.ConfigFileUsed()), zap.Any("settings", s))
	return s, nil
}

// Current returns the settings from the last successful Load.
func (l *Loader) Current() Settings {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// File is the settings file in use, empty when none was found.
func (l *Loader) File() string {
	return l.v.ConfigFileUsed()
}

// Watch calls fn with the new settings whenever the settings file
// changes. It does nothing when no file was found by Load.
func (l *Loader) Watch(fn func(Settings)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.watchers = append(l.watchers, fn)
	if l.watching || l.v.ConfigFileUsed() == "" {
		return
	}
	l.watching = true
	l.v.OnConfigChange(func(in fsnotify.Event) {
		l.mu.Lock()
		s, err := l.decode()
		if err != nil {
			l.mu.Unlock()
			l.logger.Warn("reloading settings", zap.String("file", in.Name), zap.Error(err))
			return
		}
		l.current = s
		watchers := append([]func(Settings){}, l.watchers...)
		l.mu.Unlock()

		l.logger.Info("settings reloaded", zap.String("file", in.Name))
		for _, w := range watchers {
			w(s)
		}
	})
	l.v.WatchConfig()
}

func (l *Loader) decode() (Settings, error) {
	var s Settings
	if err := l.v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decoding settings: %w", err)
	}
	return s.normalize(), nil
}

// normalize replaces out-of-range values with their defaults.
func (s Settings) normalize() Settings {
	d := Defaults()
	if s.MaxRecords <= 0 {
		s.MaxRecords = d.MaxRecords
	}
	if s.ConnectTimeout <= 0 {
		s.ConnectTimeout = d.ConnectTimeout
	}
	if s.QueryTimeout <= 0 {
		s.QueryTimeout = d.QueryTimeout
	}
	if s.Editor.FontSize <= 0 {
		s.Editor.FontSize = d.Editor.FontSize
	}
	s.Editor.FontSize = int(editor.NewFontSize(s.Editor.FontSize))
	if s.Editor.UndoDepth <= 1 {
		s.Editor.UndoDepth = d.Editor.UndoDepth
	}
	switch strings.ToLower(s.Theme) {
	case ThemeLight, ThemeDark:
		s.Theme = strings.ToLower(s.Theme)
	default:
		s.Theme = ThemeSystem
	}
	return s
}

// NewLogger builds the production zap logger at the configured level.
// verbose forces debug.
func NewLogger(s Settings, verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(s.Level())
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
