// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package lex provides the token and token stream types shared by the HDL and
// gate library front ends.
//
package lex

import (
	"fmt"
	"strconv"
	"strings"
)

// NoLine is the line number of tokens read past the end of a stream.
//
const NoLine = -1

// A Token is a piece of source text together with the line it was read from.
//
type Token struct {
	Line int
	Text string
}

func (t Token) String() string {
	return strconv.Quote(t.Text)
}

// A Compare function reports whether two identifiers are equal.
//
type Compare func(a, b string) bool

// Exact compares identifiers byte for byte.
//
func Exact(a, b string) bool { return a == b }

// Fold compares identifiers ignoring case.
//
func Fold(a, b string) bool { return strings.EqualFold(a, b) }

// Error is a parse error positioned at a source line.
//
type Error struct {
	Line int
	Msg  string
}

func (e *Error) Error() string {
	if e.Line == NoLine {
		return e.Msg
	}
	return "line " + strconv.Itoa(e.Line) + ": " + e.Msg
}

// Errorf returns a new *Error.
//
func Errorf(line int, format string, args ...interface{}) *Error {
	return &Error{Line: line, Msg: fmt.Sprintf(format, args...)}
}
