// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package boolfunc parses and evaluates the boolean function strings found in
// gate libraries.
//
// Operators, from lowest to highest precedence:
//
//	a | b, a + b	or
//	a ^ b		xor
//	a & b, a * b, a b	and
//	!a, a'		not
//
// Constants are 0 and 1. Variables are identifiers, optionally followed by a
// bus index: A, B[3], CLK_N.
//
package boolfunc

import (
	"sort"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/pkg/errors"
)

var fnLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*(\[[0-9]+\])?`},
	{Name: "Const", Pattern: `[01]`},
	{Name: "Op", Pattern: `[!|+^&*'()]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

type orExpr struct {
	Terms []*xorExpr `@@ ( ( "|" | "+" ) @@ )*`
}

type xorExpr struct {
	Terms []*andExpr `@@ ( "^" @@ )*`
}

type andExpr struct {
	Terms []*unary `@@ ( ( "&" | "*" )? @@ )*`
}

type unary struct {
	Not  []string `@"!"*`
	Prim *primary `@@`
	Inv  []string `@"'"*`
}

type primary struct {
	Const *string `  @Const`
	Var   *string `| @Ident`
	Sub   *orExpr `| "(" @@ ")"`
}

var fnParser = participle.MustBuild[orExpr](
	participle.Lexer(fnLexer),
	participle.Elide("Whitespace"),
)

// A Func is a boolean function of named variables.
//
type Func struct {
	root node
}

// Parse parses a boolean function.
//
func Parse(s string) (*Func, error) {
	ast, err := fnParser.ParseString("", s)
	if err != nil {
		return nil, errors.Wrapf(err, "parse boolean function %q", s)
	}
	return &Func{root: ast.node()}, nil
}

// FromString parses a boolean function whose variables must all be listed in
// inputs.
//
func FromString(s string, inputs []string) (*Func, error) {
	f, err := Parse(s)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		known[in] = true
	}
	for _, v := range f.Variables() {
		if !known[v] {
			return nil, errors.Errorf("boolean function %q: unknown input %s", s, v)
		}
	}
	return f, nil
}

// Eval evaluates the function. Variables missing from vars are false.
//
func (f *Func) Eval(vars map[string]bool) bool {
	return f.root.eval(vars)
}

// Variables returns the sorted list of variables used by the function.
//
func (f *Func) Variables() []string {
	m := make(map[string]bool)
	f.root.vars(m)
	r := make([]string, 0, len(m))
	for v := range m {
		r = append(r, v)
	}
	sort.Strings(r)
	return r
}

// Constant returns the value of the function and true if it does not depend
// on any variable.
//
func (f *Func) Constant() (value bool, ok bool) {
	if len(f.Variables()) > 0 {
		return false, false
	}
	return f.root.eval(nil), true
}

func (f *Func) String() string {
	var b strings.Builder
	f.root.write(&b)
	return b.String()
}

type node interface {
	eval(vars map[string]bool) bool
	vars(m map[string]bool)
	write(b *strings.Builder)
}

type opNode struct {
	op   byte
	args []node
}

func (n *opNode) eval(vars map[string]bool) bool {
	r := n.args[0].eval(vars)
	for _, a := range n.args[1:] {
		v := a.eval(vars)
		switch n.op {
		case '|':
			r = r || v
		case '^':
			r = r != v
		case '&':
			r = r && v
		}
	}
	return r
}

func (n *opNode) vars(m map[string]bool) {
	for _, a := range n.args {
		a.vars(m)
	}
}

func (n *opNode) write(b *strings.Builder) {
	b.WriteByte('(')
	for i, a := range n.args {
		if i > 0 {
			b.WriteByte(' ')
			b.WriteByte(n.op)
			b.WriteByte(' ')
		}
		a.write(b)
	}
	b.WriteByte(')')
}

type notNode struct{ x node }

func (n notNode) eval(vars map[string]bool) bool { return !n.x.eval(vars) }
func (n notNode) vars(m map[string]bool)         { n.x.vars(m) }
func (n notNode) write(b *strings.Builder)       { b.WriteByte('!'); n.x.write(b) }

type varNode string

func (n varNode) eval(vars map[string]bool) bool { return vars[string(n)] }
func (n varNode) vars(m map[string]bool)         { m[string(n)] = true }
func (n varNode) write(b *strings.Builder)       { b.WriteString(string(n)) }

type constNode bool

func (n constNode) eval(map[string]bool) bool { return bool(n) }
func (n constNode) vars(map[string]bool)      {}
func (n constNode) write(b *strings.Builder) {
	if n {
		b.WriteByte('1')
	} else {
		b.WriteByte('0')
	}
}

func join(op byte, args []node) node {
	if len(args) == 1 {
		return args[0]
	}
	return &opNode{op: op, args: args}
}

func (e *orExpr) node() node {
	args := make([]node, len(e.Terms))
	for i, t := range e.Terms {
		args[i] = t.node()
	}
	return join('|', args)
}

func (e *xorExpr) node() node {
	args := make([]node, len(e.Terms))
	for i, t := range e.Terms {
		args[i] = t.node()
	}
	return join('^', args)
}

func (e *andExpr) node() node {
	args := make([]node, len(e.Terms))
	for i, t := range e.Terms {
		args[i] = t.node()
	}
	return join('&', args)
}

func (u *unary) node() node {
	var n node
	switch p := u.Prim; {
	case p.Const != nil:
		n = constNode(*p.Const == "1")
	case p.Var != nil:
		n = varNode(*p.Var)
	default:
		n = p.Sub.node()
	}
	if (len(u.Not)+len(u.Inv))%2 == 1 {
		n = notNode{n}
	}
	return n
}
