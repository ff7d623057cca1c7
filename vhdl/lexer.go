// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package vhdl

import (
	"bufio"
	"io"
	"strings"
	"unicode"

	"github.com/db47h/hwnet/internal/lex"
)

const delimiters = ",():;=><&"

// operator fusion: previous token + current char
var fused = map[string]map[rune]string{
	"<": {'=': "<="},
	":": {'=': ":="},
	"=": {'>': "=>"},
}

// Tokenize splits HDL source text into tokens.
//
// Comments starting with -- are removed. Delimiter characters are returned
// as single tokens, except for the two character operators <=, := and =>.
// Delimiters inside string literals or \extended identifiers\ are part of
// the enclosing token. Whitespace only separates tokens.
//
func Tokenize(r io.Reader) ([]lex.Token, error) {
	var (
		toks []lex.Token
		cur  strings.Builder
	)
	s := bufio.NewScanner(r)
	s.Buffer(nil, 1<<20)
	line := 0
	for s.Scan() {
		line++
		text := s.Text()
		if i := strings.Index(text, "--"); i >= 0 {
			text = text[:i]
		}
		var inString, escaped, afterDelim bool
		flush := func() {
			if cur.Len() == 0 {
				return
			}
			t := cur.String()
			cur.Reset()
			afterDelim = false
			// digit . digit
			if n := len(toks); n > 1 && toks[n-1].Text == "." && isDigits(toks[n-2].Text) && isDigits(t) {
				toks = toks[:n-1]
				toks[n-2].Text += "." + t
				return
			}
			toks = append(toks, lex.Token{Line: line, Text: t})
		}
		for _, c := range text {
			if c == '\\' {
				escaped = !escaped
			} else if !escaped && c == '"' {
				inString = !inString
			}
			isSpace := unicode.IsSpace(c)
			if escaped || inString || !isSpace && !strings.ContainsRune(delimiters, c) {
				cur.WriteRune(c)
				continue
			}
			flush()
			if isSpace {
				afterDelim = false
				continue
			}
			if n := len(toks); afterDelim && n > 0 {
				if op, ok := fused[toks[n-1].Text][c]; ok {
					toks[n-1].Text = op
					afterDelim = false
					continue
				}
			}
			toks = append(toks, lex.Token{Line: line, Text: string(c)})
			afterDelim = true
		}
		flush()
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return toks, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
