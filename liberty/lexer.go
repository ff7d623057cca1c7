// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package liberty

import (
	"bufio"
	"io"
	"strings"
	"unicode"

	"github.com/db47h/hwnet/internal/lex"
)

const delimiters = "{}()[];:,"

// Tokenize splits gate library source text into tokens.
//
// Block comments /* ... */ may span several lines. String literals are
// returned without their quotes; an empty string yields an empty token.
// Delimiters are single character tokens, whitespace only separates tokens.
//
func Tokenize(r io.Reader) ([]lex.Token, error) {
	var (
		toks      []lex.Token
		cur       strings.Builder
		inComment bool
		inString  bool
	)
	s := bufio.NewScanner(r)
	s.Buffer(nil, 1<<20)
	line := 0
	flush := func(force bool) {
		if cur.Len() > 0 || force {
			toks = append(toks, lex.Token{Line: line, Text: cur.String()})
			cur.Reset()
		}
	}
	for s.Scan() {
		line++
		for _, c := range stripComments(s.Text(), &inComment) {
			switch {
			case c == '"':
				flush(inString)
				inString = !inString
			case inString:
				cur.WriteRune(c)
			case unicode.IsSpace(c):
				flush(false)
			case strings.ContainsRune(delimiters, c):
				flush(false)
				toks = append(toks, lex.Token{Line: line, Text: string(c)})
			default:
				cur.WriteRune(c)
			}
		}
		if !inString {
			flush(false)
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	flush(false)
	return toks, nil
}

// stripComments removes block comments from line. inComment carries the
// comment state from one line to the next.
//
func stripComments(line string, inComment *bool) string {
	var b strings.Builder
	for {
		if *inComment {
			i := strings.Index(line, "*/")
			if i < 0 {
				return b.String()
			}
			line = line[i+2:]
			*inComment = false
			continue
		}
		i := strings.Index(line, "/*")
		if i < 0 {
			b.WriteString(line)
			return b.String()
		}
		b.WriteString(line[:i])
		b.WriteByte(' ')
		line = line[i+2:]
		*inComment = true
	}
}
