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

import (
	"strings"
	"unicode"
)

// FragmentBounds locates the semicolon-delimited statement around pos.
// Offsets are rune offsets into text. The returned end includes the
// terminating semicolon when there is one. ok is false when text is blank.
func FragmentBounds(text string, pos int) (start, end int, ok bool) {
	if strings.TrimSpace(text) == "" {
		return 0, 0, false
	}
	runes := []rune(text)
	pos = clamp(pos, 0, len(runes))

	before, after := fragmentAround(runes, pos)
	// A cursor parked right after a ";" or at the end of a line belongs to
	// the statement on its left.
	if len(before) == 0 && (len(after) == 0 || after[0] == '\n') && pos > 0 {
		pos--
		before, after = fragmentAround(runes, pos)
	}

	start = pos - len(before)
	end = pos + len(after)
	if end < len(runes) && runes[end] == ';' {
		end++
	}
	return start, end, true
}

// Fragment returns the text FragmentBounds selects.
func Fragment(text string, pos int) string {
	start, end, ok := FragmentBounds(text, pos)
	if !ok {
		return ""
	}
	return string([]rune(text)[start:end])
}

func fragmentAround(runes []rune, pos int) (before, after []rune) {
	before = runes[:pos]
	for i := len(before) - 1; i >= 0; i-- {
		if before[i] == ';' {
			before = before[i+1:]
			break
		}
	}
	for len(before) > 0 && unicode.IsSpace(before[0]) {
		before = before[1:]
	}

	after = runes[pos:]
	for i, r := range after {
		if r == ';' {
			after = after[:i]
			break
		}
	}
	return before, after
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
