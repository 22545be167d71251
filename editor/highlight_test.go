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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHighlight(t *testing.T) {
	h := NewHighlighter()
	text := "SELECT 1 -- note"
	spans := h.Highlight(text)
	require.NotEmpty(t, spans)

	assert.Equal(t, Span{Start: 0, End: 6, Kind: TokenKeyword}, spans[0])

	kinds := map[TokenKind]bool{}
	for _, s := range spans {
		kinds[s.Kind] = true
		assert.LessOrEqual(t, s.End, len([]rune(text)))
	}
	assert.True(t, kinds[TokenNumber])
	assert.True(t, kinds[TokenComment])
}

func TestHighlightNumbersAndStrings(t *testing.T) {
	h := NewHighlighter()
	text := "SELECT 42, 3.5, 'x'"
	kindAt := map[string]TokenKind{}
	for _, s := range h.Highlight(text) {
		kindAt[string([]rune(text)[s.Start:s.End])] = s.Kind
	}
	assert.Equal(t, TokenNumber, kindAt["42"])
	for _, s := range h.Highlight(text) {
		if s.Start <= 11 && 11 < s.End {
			assert.Equal(t, TokenNumber, s.Kind, "3.5")
		}
	}
	assert.Equal(t, TokenString, kindAt["'x'"])
}

func TestTokenKindNames(t *testing.T) {
	assert.Equal(t, "sqlKeyword", TokenKeyword.String())
	assert.Equal(t, "", TokenPlain.String())
}
