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
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
)

// TokenKind classifies a highlighted span.
type TokenKind int

const (
	TokenPlain TokenKind = iota
	TokenKeyword
	TokenFunction
	TokenString
	TokenNumber
	TokenComment
)

// String returns the theme colour name used for the kind.
func (k TokenKind) String() string {
	switch k {
	case TokenKeyword:
		return "sqlKeyword"
	case TokenFunction:
		return "sqlFunction"
	case TokenString:
		return "sqlString"
	case TokenNumber:
		return "sqlNumber"
	case TokenComment:
		return "sqlComment"
	default:
		return ""
	}
}

// Span is a run of runes [Start, End) sharing one token kind.
type Span struct {
	Start int
	End   int
	Kind  TokenKind
}

// Highlighter tokenizes SQL with chroma's MySQL lexer.
type Highlighter struct {
	lexer chroma.Lexer
}

// NewHighlighter returns a highlighter for the MySQL dialect, falling back
// to generic SQL when the lexer is not registered.
func NewHighlighter() *Highlighter {
	lexer := lexers.Get("mysql")
	if lexer == nil {
		lexer = lexers.Get("sql")
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return &Highlighter{lexer: chroma.Coalesce(lexer)}
}

// Highlight returns the non-plain spans of text in order. Offsets are rune
// offsets.
func (h *Highlighter) Highlight(text string) []Span {
	iter, err := h.lexer.Tokenise(nil, text)
	if err != nil {
		return nil
	}

	total := len([]rune(text))
	var spans []Span
	pos := 0
	for _, tok := range iter.Tokens() {
		n := len([]rune(tok.Value))
		kind := tokenKind(tok.Type)
		if kind != TokenPlain && n > 0 {
			if last := len(spans) - 1; last >= 0 && spans[last].Kind == kind && spans[last].End == pos {
				spans[last].End += n
			} else {
				spans = append(spans, Span{Start: pos, End: pos + n, Kind: kind})
			}
		}
		pos += n
	}
	// Lexers may append a newline to the input; keep spans inside text.
	for len(spans) > 0 && spans[len(spans)-1].Start >= total {
		spans = spans[:len(spans)-1]
	}
	if last := len(spans) - 1; last >= 0 && spans[last].End > total {
		spans[last].End = total
	}
	return spans
}

func tokenKind(t chroma.TokenType) TokenKind {
	if t == chroma.NameBuiltin || t == chroma.NameFunction {
		return TokenFunction
	}
	switch {
	case t.InCategory(chroma.Keyword):
		return TokenKeyword
	case t.InSubCategory(chroma.LiteralString):
		return TokenString
	case t.InSubCategory(chroma.LiteralNumber):
		return TokenNumber
	case t.InCategory(chroma.Comment):
		return TokenComment
	}
	return TokenPlain
}
