// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package lex

import (
	"strings"

	"github.com/pkg/errors"
)

// A Stream is a cursor over a sequence of tokens.
//
// Searches in a stream are aware of nesting: a token is only found at
// delimiter depth 0, and a close delimiter without a matching open delimiter
// marks a boundary that no search crosses.
//
// Sub-streams returned by the Extract methods share the underlying token
// slice with their parent and have an independent cursor.
//
type Stream struct {
	toks  []Token
	start int
	pos   int
	end   int
	open  []string
	close []string
	eq    Compare
}

// NewStream returns a stream over toks. open and close are the nesting
// delimiters and eq the function used to compare tokens.
//
func NewStream(toks []Token, open, close []string, eq Compare) *Stream {
	if eq == nil {
		eq = Exact
	}
	return &Stream{toks: toks, end: len(toks), open: open, close: close, eq: eq}
}

// Size returns the total number of tokens in the stream.
//
func (s *Stream) Size() int { return s.end - s.start }

// Remaining returns the number of tokens left.
//
func (s *Stream) Remaining() int { return s.end - s.pos }

// Peek returns the token at the given offset from the cursor without
// consuming it. Past the end of the stream, Peek returns an empty token with
// line NoLine.
//
func (s *Stream) Peek(offset int) Token {
	i := s.pos + offset
	if offset < 0 || i >= s.end {
		return Token{Line: NoLine}
	}
	return s.toks[i]
}

// Is reports whether the token at the given offset matches text.
//
func (s *Stream) Is(offset int, text string) bool {
	i := s.pos + offset
	return offset >= 0 && i < s.end && s.eq(s.toks[i].Text, text)
}

// Line returns the line of the next token, or the line of the last token of
// the stream if it is exhausted. It returns NoLine for an empty stream.
//
func (s *Stream) Line() int {
	if s.pos < s.end {
		return s.toks[s.pos].Line
	}
	if s.end > s.start {
		return s.toks[s.end-1].Line
	}
	return NoLine
}

// Consume consumes and returns the next token.
//
func (s *Stream) Consume() (Token, error) {
	if s.pos >= s.end {
		return Token{Line: NoLine}, errors.WithStack(Errorf(NoLine, "unexpected end of stream"))
	}
	t := s.toks[s.pos]
	s.pos++
	return t, nil
}

// Expect consumes the next token and returns an error if it does not match
// text.
//
func (s *Stream) Expect(text string) (Token, error) {
	if s.pos >= s.end {
		return Token{Line: NoLine}, errors.WithStack(Errorf(NoLine, "expected %q but reached end of stream", text))
	}
	t := s.toks[s.pos]
	if !s.eq(t.Text, text) {
		return t, errors.WithStack(Errorf(t.Line, "expected %q but got %q", text, t.Text))
	}
	s.pos++
	return t, nil
}

// Accept consumes the next token if it matches text and reports whether it
// did.
//
func (s *Stream) Accept(text string) bool {
	if s.Is(0, text) {
		s.pos++
		return true
	}
	return false
}

func (s *Stream) in(set []string, text string) bool {
	for _, d := range set {
		if s.eq(d, text) {
			return true
		}
	}
	return false
}

// FindNext returns the position of the next occurrence of text at nesting
// depth 0, relative to the cursor. If text is not found, found is false and
// pos is the offset of the boundary where the search stopped.
//
func (s *Stream) FindNext(text string) (pos int, found bool) {
	level := 0
	for i := s.pos; i < s.end; i++ {
		t := s.toks[i].Text
		if level == 0 && s.eq(t, text) {
			return i - s.pos, true
		}
		if s.in(s.open, t) {
			level++
		} else if s.in(s.close, t) {
			if level == 0 {
				return i - s.pos, false
			}
			level--
		}
	}
	return s.end - s.pos, false
}

// ConsumeUntil skips tokens up to, but not including, the next occurrence of
// text, or up to the search boundary.
//
func (s *Stream) ConsumeUntil(text string) {
	n, _ := s.FindNext(text)
	s.pos += n
}

// ExtractUntil consumes the tokens up to, but not including, the next
// occurrence of text and returns them as a new stream. If text is not found,
// the stream extends to the search boundary.
//
func (s *Stream) ExtractUntil(text string) *Stream {
	n, _ := s.FindNext(text)
	return s.extract(n)
}

// MustExtractUntil is like ExtractUntil but fails if text is not found.
//
func (s *Stream) MustExtractUntil(text string) (*Stream, error) {
	n, ok := s.FindNext(text)
	if !ok {
		return nil, errors.WithStack(Errorf(s.Line(), "missing %q", text))
	}
	return s.extract(n), nil
}

func (s *Stream) extract(n int) *Stream {
	sub := &Stream{
		toks:  s.toks,
		start: s.pos,
		pos:   s.pos,
		end:   s.pos + n,
		open:  s.open,
		close: s.close,
		eq:    s.eq,
	}
	s.pos += n
	return sub
}

// JoinUntil consumes the tokens up to the next occurrence of text and returns
// their concatenation, separated by sep. The returned token is positioned at
// the line of the first joined token.
//
func (s *Stream) JoinUntil(text, sep string) Token {
	line := s.Peek(0).Line
	n, _ := s.FindNext(text)
	parts := make([]string, n)
	for i := range parts {
		parts[i] = s.toks[s.pos+i].Text
	}
	s.pos += n
	return Token{Line: line, Text: strings.Join(parts, sep)}
}
