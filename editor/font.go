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

package editor

// Font size bounds for the editor and result grids.
const (
	MinFontSize     = 6
	MaxFontSize     = 40
	DefaultFontSize = 12
)

// FontSize is a point size kept within MinFontSize..MaxFontSize.
type FontSize int

// NewFontSize clamps size into the allowed range.
func NewFontSize(size int) FontSize {
	return FontSize(clamp(size, MinFontSize, MaxFontSize))
}

func (f FontSize) Increase() FontSize {
	if f < MaxFontSize {
		return f + 1
	}
	return f
}

func (f FontSize) Decrease() FontSize {
	if f > MinFontSize {
		return f - 1
	}
	return f
}
