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

package windows

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"

	"dossier/config"
	"dossier/editor"
)

// Theme colour names used by the SQL editor.
const (
	ColorNameSQLKeyword  fyne.ThemeColorName = "sqlKeyword"
	ColorNameSQLFunction fyne.ThemeColorName = "sqlFunction"
	ColorNameSQLString   fyne.ThemeColorName = "sqlString"
	ColorNameSQLNumber   fyne.ThemeColorName = "sqlNumber"
	ColorNameSQLComment  fyne.ThemeColorName = "sqlComment"

	ColorNameCurrentLine fyne.ThemeColorName = "currentLine"
)

// CustomTheme is the application theme. A non-empty Variant forces light or
// dark regardless of the system setting.
type CustomTheme struct {
	Variant string
}

var _ fyne.Theme = (*CustomTheme)(nil)

// NewCustomTheme builds the theme for a config.Settings theme value.
func NewCustomTheme(name string) *CustomTheme {
	return &CustomTheme{Variant: name}
}

func (m *CustomTheme) variant(v fyne.ThemeVariant) fyne.ThemeVariant {
	switch m.Variant {
	case config.ThemeLight:
		return theme.VariantLight
	case config.ThemeDark:
		return theme.VariantDark
	}
	return v
}

func (m *CustomTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	variant = m.variant(variant)
	if variant == theme.VariantLight {
		switch name {
		case theme.ColorNameBackground:
			return color.NRGBA{R: 0xf5, G: 0xf5, B: 0xf5, A: 0xff}
		case theme.ColorNamePrimary:
			return color.NRGBA{R: 0x00, G: 0x75, B: 0x8f, A: 0xff} // MySQL teal
		case theme.ColorNameHover:
			return color.NRGBA{R: 0x4d, G: 0xa3, B: 0xb8, A: 0xff}
		case theme.ColorNameForeground:
			return color.NRGBA{R: 0x21, G: 0x21, B: 0x21, A: 0xff}
		case theme.ColorNameInputBackground:
			return color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
		case theme.ColorNameSelection:
			return color.NRGBA{R: 0xc5, G: 0xe3, B: 0xea, A: 0xff}
		case ColorNameSQLKeyword:
			return color.NRGBA{R: 0x00, G: 0x33, B: 0xb3, A: 0xff}
		case ColorNameSQLFunction:
			return color.NRGBA{R: 0x7a, G: 0x3e, B: 0x9d, A: 0xff}
		case ColorNameSQLString:
			return color.NRGBA{R: 0x06, G: 0x7d, B: 0x17, A: 0xff}
		case ColorNameSQLNumber:
			return color.NRGBA{R: 0x17, G: 0x50, B: 0xeb, A: 0xff}
		case ColorNameSQLComment:
			return color.NRGBA{R: 0x8c, G: 0x8c, B: 0x8c, A: 0xff}
		case ColorNameCurrentLine:
			return color.NRGBA{R: 0xe8, G: 0xf2, B: 0xf5, A: 0xff}
		}
	} else {
		switch name {
		case theme.ColorNameBackground:
			return color.NRGBA{R: 0x1e, G: 0x1e, B: 0x1e, A: 0xff}
		case theme.ColorNamePrimary:
			return color.NRGBA{R: 0x4d, G: 0xb6, B: 0xcc, A: 0xff}
		case theme.ColorNameHover:
			return color.NRGBA{R: 0x64, G: 0xb5, B: 0xf6, A: 0xff}
		case theme.ColorNameForeground:
			return color.NRGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff}
		case theme.ColorNameInputBackground:
			return color.NRGBA{R: 0x2d, G: 0x2d, B: 0x2d, A: 0xff}
		case theme.ColorNameSelection:
			return color.NRGBA{R: 0x26, G: 0x4f, B: 0x78, A: 0xff}
		case ColorNameSQLKeyword:
			return color.NRGBA{R: 0x56, G: 0x9c, B: 0xd6, A: 0xff}
		case ColorNameSQLFunction:
			return color.NRGBA{R: 0xdc, G: 0xdc, B: 0xaa, A: 0xff}
		case ColorNameSQLString:
			return color.NRGBA{R: 0xce, G: 0x91, B: 0x78, A: 0xff}
		case ColorNameSQLNumber:
			return color.NRGBA{R: 0xb5, G: 0xce, B: 0xa8, A: 0xff}
		case ColorNameSQLComment:
			return color.NRGBA{R: 0x6a, G: 0x99, B: 0x55, A: 0xff}
		case ColorNameCurrentLine:
			return color.NRGBA{R: 0x2a, G: 0x2d, B: 0x2e, A: 0xff}
		}
	}
	return theme.DefaultTheme().Color(name, variant)
}

func (m *CustomTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (m *CustomTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (m *CustomTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNamePadding:
		return 6
	case theme.SizeNameInlineIcon:
		return 20
	case theme.SizeNameScrollBar:
		return 12
	case theme.SizeNameSeparatorThickness:
		return 1
	}
	return theme.DefaultTheme().Size(name)
}

// fontSizeTheme overrides the text size of the widgets it wraps.
type fontSizeTheme struct {
	fyne.Theme
	size editor.FontSize
}

func (f *fontSizeTheme) Size(name fyne.ThemeSizeName) float32 {
	if name == theme.SizeNameText {
		return float32(f.size)
	}
	return f.Theme.Size(name)
}

// themeColor resolves name against the running app's theme.
func themeColor(name fyne.ThemeColorName) color.Color {
	settings := fyne.CurrentApp().Settings()
	return settings.Theme().Color(name, settings.ThemeVariant())
}
