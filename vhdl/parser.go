// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package vhdl parses structural, gate level VHDL into a design.Design.
//
// The supported subset covers library and use clauses, entity declarations
// with ports and attributes, and architectures made of signal declarations,
// attribute specifications, component or entity instantiations with generic
// and port maps, and direct signal assignments. Processes, generate
// statements and behavioral code are not supported.
//
package vhdl

import (
	"io"
	"strconv"
	"strings"

	"github.com/db47h/hwnet/design"
	"github.com/db47h/hwnet/internal/lex"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Component is the logging component name of the parser.
//
const Component = "hdl_parser"

// vector type name -> number of dimensions
var dimensions = map[string]int{
	"std_logic_vector":  1,
	"std_logic_vector2": 2,
	"std_logic_vector3": 3,
}

// A Parser parses VHDL source files.
//
type Parser struct {
	// Log receives warnings and errors. Defaults to the logrus standard logger.
	Log logrus.FieldLogger
}

// Parse reads a whole VHDL source unit from r. Errors are logged with their
// source line and returned; no partial design is returned on error.
//
func (p *Parser) Parse(r io.Reader) (*design.Design, error) {
	log := lex.Logger(p.Log, Component)
	toks, err := Tokenize(r)
	if err != nil {
		err = errors.Wrap(err, "read source")
		lex.LogError(log, err)
		return nil, err
	}
	ps := &parser{
		ts:  lex.NewStream(toks, []string{"("}, []string{")"}, lex.Fold),
		d:   design.New(),
		log: log,
	}
	if err = ps.parse(); err != nil {
		lex.LogError(log, err)
		return nil, err
	}
	return ps.d, nil
}

type parser struct {
	ts  *lex.Stream
	d   *design.Design
	log logrus.FieldLogger
}

func errorf(line int, format string, args ...interface{}) error {
	return errors.WithStack(lex.Errorf(line, format, args...))
}

func (p *parser) parse() error {
	ts := p.ts
	for ts.Remaining() > 0 {
		var err error
		switch {
		case ts.Is(0, "library") || ts.Is(0, "use"):
			err = p.parseLibrary()
		case ts.Is(0, "entity"):
			err = p.parseEntity()
		case ts.Is(0, "architecture"):
			err = p.parseArchitecture()
		default:
			t := ts.Peek(0)
			err = errorf(t.Line, "unexpected token %q in global scope", t.Text)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) parseLibrary() error {
	ts := p.ts
	if !ts.Accept("use") {
		ts.ConsumeUntil(";")
		_, err := ts.Expect(";")
		return err
	}
	lib := ts.JoinUntil(";", "")
	if _, err := ts.Expect(";"); err != nil {
		return err
	}
	// keep the prefix up to and including the last dot
	if i := strings.LastIndexByte(lib.Text, '.'); i >= 0 {
		p.d.AddLibrary(lib.Text[:i+1])
	}
	return nil
}

// parseEnd consumes "end [anything] ;".
//
func (p *parser) parseEnd() error {
	if _, err := p.ts.Expect("end"); err != nil {
		return err
	}
	p.ts.ConsumeUntil(";")
	_, err := p.ts.Expect(";")
	return err
}

func (p *parser) parseEntity() error {
	ts := p.ts
	if _, err := ts.Expect("entity"); err != nil {
		return err
	}
	name, err := ts.Consume()
	if err != nil {
		return err
	}
	if _, err = ts.Expect("is"); err != nil {
		return err
	}
	e := design.NewEntity(name.Line, name.Text)

	for !ts.Is(0, "end") {
		switch {
		case ts.Accept("generic"):
			// generics are not retained
			ts.ConsumeUntil(";")
			_, err = ts.Expect(";")
		case ts.Is(0, "port"):
			err = p.parsePorts(e)
		case ts.Is(0, "attribute"):
			err = p.parseAttribute(e)
		default:
			err = p.unexpected("entity definition")
		}
		if err != nil {
			return err
		}
	}
	if err = p.parseEnd(); err != nil {
		return err
	}
	return p.d.AddEntity(e)
}

func (p *parser) unexpected(where string) error {
	if p.ts.Remaining() == 0 {
		return errorf(p.ts.Line(), "unexpected end of file in %s", where)
	}
	t := p.ts.Peek(0)
	return errorf(t.Line, "unexpected token %q in %s", t.Text, where)
}

// names parses "name {, name} :".
//
func names(s *lex.Stream) ([]string, error) {
	var r []string
	for {
		t, err := s.Consume()
		if err != nil {
			return nil, err
		}
		r = append(r, t.Text)
		if !s.Accept(",") {
			break
		}
	}
	if _, err := s.Expect(":"); err != nil {
		return nil, err
	}
	return r, nil
}

func (p *parser) parsePorts(e *design.Entity) error {
	ts := p.ts
	ts.Consume()
	if _, err := ts.Expect("("); err != nil {
		return err
	}
	ps := ts.ExtractUntil(")")
	if _, err := ts.Expect(")"); err != nil {
		return err
	}
	if _, err := ts.Expect(";"); err != nil {
		return err
	}

	for ps.Remaining() > 0 {
		decl := ps.ExtractUntil(";")
		ps.Accept(";")
		line := decl.Line()
		ns, err := names(decl)
		if err != nil {
			return err
		}
		t, err := decl.Consume()
		if err != nil {
			return err
		}
		dir, ok := design.ParseDirection(t.Text)
		if !ok {
			return errorf(line, "invalid direction %q for port declaration", t.Text)
		}
		ranges, err := parseRanges(decl)
		if err != nil {
			return err
		}
		for _, n := range ns {
			if err = e.AddPort(dir, design.NewSignal(line, n, ranges)); err != nil {
				return err
			}
		}
	}
	return nil
}

// parseRanges parses a type with its index constraints. Default values are
// ignored.
//
func parseRanges(s *lex.Stream) ([][]int, error) {
	line := s.Line()
	ts := s.ExtractUntil(":=")
	switch ts.Size() {
	case 0:
		return nil, errorf(line, "missing type")
	case 1:
		_, err := ts.Expect("std_logic")
		return nil, err
	}
	typ, _ := ts.Consume()
	if _, err := ts.Expect("("); err != nil {
		return nil, err
	}
	bounds := ts.ExtractUntil(")")
	if _, err := ts.Expect(")"); err != nil {
		return nil, err
	}
	if ts.Remaining() > 0 {
		t := ts.Peek(0)
		return nil, errorf(t.Line, "unexpected token %q in type", t.Text)
	}

	var ranges [][]int
	for bounds.Remaining() > 0 {
		b := bounds.ExtractUntil(",")
		bounds.Accept(",")
		r, err := parseRange(b)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, r)
	}

	dim, ok := dimensions[strings.ToLower(typ.Text)]
	if !ok {
		return nil, errorf(line, "type name %s is invalid", typ.Text)
	}
	if len(ranges) != dim {
		return nil, errorf(line, "dimension-bound mismatch: expected %d, got %d", dim, len(ranges))
	}
	return ranges, nil
}

// parseRange parses a single index or a "start to|downto end" range.
//
func parseRange(s *lex.Stream) ([]int, error) {
	line := s.Line()
	start, err := parseInt(s)
	if err != nil {
		return nil, err
	}
	if s.Remaining() == 0 {
		return []int{start}, nil
	}
	downto := s.Accept("downto")
	if !downto {
		if _, err = s.Expect("to"); err != nil {
			return nil, err
		}
	}
	end, err := parseInt(s)
	if err != nil {
		return nil, err
	}
	if s.Remaining() > 0 {
		t := s.Peek(0)
		return nil, errorf(t.Line, "unexpected token %q in range", t.Text)
	}
	r, err := design.Span(start, end, downto)
	if err != nil {
		return nil, errorf(line, "%v", err)
	}
	return r, nil
}

func parseInt(s *lex.Stream) (int, error) {
	t, err := s.Consume()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(t.Text)
	if err != nil {
		return 0, errorf(t.Line, "invalid index %q", t.Text)
	}
	return n, nil
}

var attrClasses = map[string]design.AttributeClass{
	"entity": design.EntityAttr,
	"label":  design.InstanceAttr,
	"signal": design.SignalAttr,
}

func (p *parser) parseAttribute(e *design.Entity) error {
	ts := p.ts
	line := ts.Line()
	ts.Consume()
	name, err := ts.Consume()
	if err != nil {
		return err
	}

	// declaration
	if ts.Accept(":") {
		typ := ts.JoinUntil(";", " ")
		p.d.AttributeTypes[design.Key(name.Text)] = typ.Text
		_, err = ts.Expect(";")
		return err
	}

	// specification
	if !ts.Is(0, "of") || !ts.Is(2, ":") {
		return errorf(line, "malformed attribute definition")
	}
	ts.Consume()
	target, _ := ts.Consume()
	ts.Consume()
	class, err := ts.Consume()
	if err != nil {
		return err
	}
	if _, err = ts.Expect("is"); err != nil {
		return err
	}
	value := ts.JoinUntil(";", " ").Text
	if _, err = ts.Expect(";"); err != nil {
		return err
	}
	if len(value) >= 2 && value[0] == '"' && value[len(value)-1] == '"' {
		value = value[1 : len(value)-1]
	}

	typ, ok := p.d.AttributeTypes[design.Key(name.Text)]
	if !ok {
		p.log.WithField("line", line).Warnf("attribute %s has unknown base type", name.Text)
		typ = "unknown"
	}
	c, ok := attrClasses[strings.ToLower(class.Text)]
	if !ok {
		return errorf(line, "invalid attribute class %q", class.Text)
	}
	e.AddAttribute(c, target.Text, design.Attribute{Name: name.Text, Type: typ, Value: value})
	return nil
}

func (p *parser) parseArchitecture() error {
	ts := p.ts
	ts.Consume()
	ts.Consume()
	if _, err := ts.Expect("of"); err != nil {
		return err
	}
	name, err := ts.Consume()
	if err != nil {
		return err
	}
	e, ok := p.d.Entity(name.Text)
	if !ok {
		return errorf(name.Line, "architecture refers to entity %q, but no such entity exists", name.Text)
	}
	if _, err = ts.Expect("is"); err != nil {
		return err
	}

	// header
	for !ts.Is(0, "begin") {
		switch {
		case ts.Is(0, "signal"):
			err = p.parseSignal(e)
		case ts.Accept("component"):
			// component declarations are ignored
			ts.ConsumeUntil("end")
			err = p.parseEnd()
		case ts.Is(0, "attribute"):
			err = p.parseAttribute(e)
		default:
			err = p.unexpected("architecture header")
		}
		if err != nil {
			return err
		}
	}
	ts.Consume()

	// body
	for !ts.Is(0, "end") {
		if ts.Is(1, ":") {
			err = p.parseInstance(e)
		} else if i, ok := ts.FindNext("<="); ok && i < p.nextSemicolon() {
			err = p.parseAssign(e)
		} else {
			err = p.unexpected("architecture body")
		}
		if err != nil {
			return err
		}
	}
	return p.parseEnd()
}

func (p *parser) nextSemicolon() int {
	i, _ := p.ts.FindNext(";")
	return i
}

func (p *parser) parseSignal(e *design.Entity) error {
	ts := p.ts
	ts.Consume()
	decl, err := ts.MustExtractUntil(";")
	if err != nil {
		return err
	}
	ts.Consume()
	line := decl.Line()
	ns, err := names(decl)
	if err != nil {
		return err
	}
	ranges, err := parseRanges(decl)
	if err != nil {
		return err
	}
	for _, n := range ns {
		if err = e.AddSignal(design.NewSignal(line, n, ranges)); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) parseAssign(e *design.Entity) error {
	ts := p.ts
	line := ts.Line()
	left := ts.ExtractUntil("<=")
	ts.Consume()
	right, err := ts.MustExtractUntil(";")
	if err != nil {
		return err
	}
	ts.Consume()

	lhs, lsize, err := signals(e, left, true, false)
	if err != nil {
		return err
	}
	rhs, rsize, err := signals(e, right, false, false)
	if err != nil {
		return err
	}
	if lsize != rsize {
		return errorf(line, "assignment width mismatch: left side has size %d and right side has size %d", lsize, rsize)
	}
	e.AddAssignment(lhs, rhs)
	return nil
}

func (p *parser) parseInstance(e *design.Entity) error {
	ts := p.ts
	name, _ := ts.Consume()
	ts.Consume()

	var typ string
	switch {
	case ts.Accept("entity"):
		t, err := ts.Consume()
		if err != nil {
			return err
		}
		typ = t.Text
		if i := strings.LastIndexByte(typ, '.'); i >= 0 {
			typ = typ[i+1:]
		}
	case ts.Accept("component"):
		t, err := ts.Consume()
		if err != nil {
			return err
		}
		typ = t.Text
	default:
		t, err := ts.Consume()
		if err != nil {
			return err
		}
		typ = p.d.StripLibrary(t.Text)
	}

	inst := &design.Instance{Line: name.Line, Type: typ, Name: name.Text}
	if ts.Accept("generic") {
		if err := p.parseGenericMap(inst); err != nil {
			return err
		}
	}
	if ts.Accept("port") {
		if err := p.parsePortMap(e, inst); err != nil {
			return err
		}
	}
	if _, err := ts.Expect(";"); err != nil {
		return err
	}
	return e.AddInstance(inst)
}

// mapBody consumes "map ( ... )" and returns its contents.
//
func (p *parser) mapBody() (*lex.Stream, error) {
	if _, err := p.ts.Expect("map"); err != nil {
		return nil, err
	}
	if _, err := p.ts.Expect("("); err != nil {
		return nil, err
	}
	s := p.ts.ExtractUntil(")")
	if _, err := p.ts.Expect(")"); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *parser) parseGenericMap(inst *design.Instance) error {
	gs, err := p.mapBody()
	if err != nil {
		return err
	}
	for gs.Remaining() > 0 {
		line := gs.Line()
		lhs := gs.JoinUntil("=>", "")
		if _, err = gs.Expect("=>"); err != nil {
			return err
		}
		rhs := gs.JoinUntil(",", "")
		if gs.Remaining() > 0 {
			gs.Consume()
		}
		typ, value, err := Classify(rhs.Text)
		if err != nil {
			return errorf(line, "%v in instance %s", err, inst.Name)
		}
		inst.AddGeneric(lhs.Text, typ, value)
	}
	return nil
}

func (p *parser) parsePortMap(e *design.Entity, inst *design.Instance) error {
	ps, err := p.mapBody()
	if err != nil {
		return err
	}
	for ps.Remaining() > 0 {
		line := ps.Line()
		left, err := ps.MustExtractUntil("=>")
		if err != nil {
			return errorf(line, "positional port association is not supported in instance %s", inst.Name)
		}
		ps.Consume()
		right := ps.ExtractUntil(",")
		if ps.Remaining() > 0 {
			ps.Consume()
		}
		if right.Size() == 1 && right.Is(0, "open") {
			continue
		}
		lhs, lsize, err := signals(e, left, true, true)
		if err != nil {
			return err
		}
		rhs, rsize, err := signals(e, right, false, true)
		if err != nil {
			return err
		}
		if lsize >= 0 && lsize != rsize {
			return errorf(line, "port assignment width mismatch: left side has size %d and right side has size %d", lsize, rsize)
		}
		inst.AddPort(lhs[0], rhs)
	}
	return nil
}

// signals parses one side of an assignment or port association and returns
// the referenced signals and their total width. The width is -1 if it is not
// known yet.
//
// Supported forms are: name, name(i, j, ...), name(a to b, ...), a bit
// literal, and on the right side only, a parenthesized aggregate of these.
//
func signals(e *design.Entity, s *lex.Stream, left, portMap bool) ([]design.Signal, int, error) {
	if s.Remaining() == 0 {
		return nil, 0, errorf(s.Line(), "missing signal")
	}
	parts := []*lex.Stream{s}
	if left {
		if _, ok := s.FindNext(","); ok || s.Is(0, "(") {
			return nil, 0, errorf(s.Line(), "aggregation is not allowed at this position")
		}
	} else if s.Accept("(") {
		parts = parts[:0]
		for {
			parts = append(parts, s.ExtractUntil(","))
			if !s.Accept(",") {
				break
			}
		}
		if _, err := s.Expect(")"); err != nil {
			return nil, 0, err
		}
		if s.Remaining() > 0 {
			t := s.Peek(0)
			return nil, 0, errorf(t.Line, "unexpected token %q after aggregate", t.Text)
		}
	}

	var (
		r    []design.Signal
		size int
	)
	for _, part := range parts {
		sig, err := signal(e, part, left, portMap)
		if err != nil {
			return nil, 0, err
		}
		if sz := sig.Size(); sz < 0 || size < 0 {
			size = -1
		} else {
			size += sz
		}
		r = append(r, sig)
	}
	return r, size, nil
}

func signal(e *design.Entity, s *lex.Stream, left, portMap bool) (design.Signal, error) {
	t, err := s.Consume()
	if err != nil {
		return design.Signal{}, err
	}
	var sig design.Signal
	bits, isBits := bitString(t.Text)
	switch {
	case isBased(t.Text) || isBits:
		if left {
			return sig, errorf(t.Line, "numeric value %s not allowed at this position", t.Text)
		}
		if !isBits {
			if bits, err = Bits(t.Text); err != nil {
				return sig, errorf(t.Line, "%v", err)
			}
		}
		sig = design.Literal(t.Line, bits)
	case s.Accept("("):
		rs := s.ExtractUntil(")")
		if _, err = s.Expect(")"); err != nil {
			return sig, err
		}
		var ranges [][]int
		for {
			r, err := parseRange(rs.ExtractUntil(","))
			if err != nil {
				return sig, err
			}
			ranges = append(ranges, r)
			if !rs.Accept(",") {
				break
			}
		}
		sig = design.NewSignal(t.Line, t.Text, ranges)
	case left && portMap:
		// width resolved during elaboration
		sig = design.Signal{Line: t.Line, Name: t.Text}
	default:
		decl, ok := e.Lookup(t.Text)
		if !ok {
			return sig, errorf(t.Line, "signal name %q is invalid in assignment", t.Text)
		}
		sig = design.NewSignal(t.Line, t.Text, decl.Ranges)
	}
	if s.Remaining() > 0 {
		n := s.Peek(0)
		return sig, errorf(n.Line, "unexpected token %q in signal reference", n.Text)
	}
	return sig, nil
}
