// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package liberty reads gate libraries in the Liberty format.
//
// Only the logical view of a library is read: bus types, cells with their
// pins and buses, boolean pin functions and the ff, latch and lut groups of
// sequential cells. Timing, power and any other group or attribute is
// skipped.
//
package liberty

import (
	"io"
	"strconv"
	"strings"

	"github.com/db47h/hwnet/boolfunc"
	"github.com/db47h/hwnet/design"
	"github.com/db47h/hwnet/gatelib"
	"github.com/db47h/hwnet/internal/lex"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Component is the logging component name of the parser.
//
const Component = "liberty_parser"

// A Parser parses Liberty gate libraries.
//
type Parser struct {
	// Log receives warnings and errors. Defaults to the logrus standard logger.
	Log logrus.FieldLogger
}

// Parse reads a gate library from r.
//
func (p *Parser) Parse(r io.Reader) (*gatelib.Library, error) {
	log := lex.Logger(p.Log, Component)
	toks, err := Tokenize(r)
	if err != nil {
		err = errors.Wrap(err, "read library")
		lex.LogError(log, err)
		return nil, err
	}
	ps := &parser{
		log:      log,
		busTypes: make(map[string][]int),
	}
	if err = ps.parse(lex.NewStream(toks, []string{"(", "{"}, []string{")", "}"}, lex.Exact)); err != nil {
		lex.LogError(log, err)
		return nil, err
	}
	return ps.lib, nil
}

type parser struct {
	log      logrus.FieldLogger
	lib      *gatelib.Library
	busTypes map[string][]int
}

type direction int

const (
	dirUnknown direction = iota
	dirIn
	dirOut
	dirInOut
)

func (d direction) isInput() bool  { return d == dirIn || d == dirInOut }
func (d direction) isOutput() bool { return d == dirOut || d == dirInOut }

// pinDecl is a pin or bus in declaration order.
type pinDecl struct {
	name  string
	dir   direction
	group bool
	index []int
}

type cell struct {
	line    int
	name    string
	base    gatelib.BaseType
	pins    []pinDecl
	fn      map[string]string // output pin -> function
	xfn     map[string]string
	zfn     map[string]string
	control map[string]string // sequential control function name -> function
	state   [2]string
	lutName string
	seq     gatelib.Sequential
	lut     gatelib.LUTConfig
}

func errorf(line int, format string, args ...interface{}) error {
	return errors.WithStack(lex.Errorf(line, format, args...))
}

func (p *parser) parse(ts *lex.Stream) error {
	if _, err := ts.Expect("library"); err != nil {
		return err
	}
	args, body, err := group(ts)
	if err != nil {
		return err
	}
	name, err := args.Consume()
	if err != nil {
		return errorf(ts.Line(), "missing library name")
	}
	p.lib = gatelib.NewLibrary(name.Text)
	if ts.Remaining() > 0 {
		t := ts.Peek(0)
		return errorf(t.Line, "unexpected token %q after library group", t.Text)
	}
	for body.Remaining() > 0 {
		t, _ := body.Consume()
		switch {
		case t.Text == "cell" && body.Is(0, "("):
			err = p.parseCell(body)
		case t.Text == "type" && body.Is(0, "("):
			err = p.parseType(body)
		default:
			skip(body)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// group parses a group header and body: ( args ) { body }
//
func group(s *lex.Stream) (args, body *lex.Stream, err error) {
	if _, err = s.Expect("("); err != nil {
		return nil, nil, err
	}
	args = s.ExtractUntil(")")
	if _, err = s.Expect(")"); err != nil {
		return nil, nil, err
	}
	if _, err = s.Expect("{"); err != nil {
		return nil, nil, err
	}
	body = s.ExtractUntil("}")
	if _, err = s.Expect("}"); err != nil {
		return nil, nil, err
	}
	return args, body, nil
}

// skip skips the remainder of an attribute or group whose name has already
// been consumed.
//
func skip(s *lex.Stream) {
	switch {
	case s.Accept(":"):
		s.ConsumeUntil(";")
		s.Accept(";")
	case s.Accept("("):
		s.ConsumeUntil(")")
		s.Accept(")")
		if s.Accept("{") {
			s.ConsumeUntil("}")
			s.Accept("}")
		} else {
			s.Accept(";")
		}
	default:
		s.Accept(";")
	}
}

// value parses the value of a simple attribute: ": value ;"
// The trailing semicolon is optional.
//
func value(s *lex.Stream) (lex.Token, error) {
	if _, err := s.Expect(":"); err != nil {
		return lex.Token{}, err
	}
	v, err := s.Consume()
	if err != nil {
		return v, errorf(s.Line(), "missing attribute value")
	}
	s.Accept(";")
	return v, nil
}

func intValue(s *lex.Stream) (int, error) {
	v, err := value(s)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v.Text)
	if err != nil {
		return 0, errorf(v.Line, "invalid integer value %q", v.Text)
	}
	return n, nil
}

func parseDirection(t lex.Token) (direction, error) {
	switch t.Text {
	case "input":
		return dirIn, nil
	case "output":
		return dirOut, nil
	case "inout":
		return dirInOut, nil
	}
	return dirUnknown, errorf(t.Line, "invalid pin direction %q", t.Text)
}

func (p *parser) parseType(s *lex.Stream) error {
	line := s.Line()
	args, body, err := group(s)
	if err != nil {
		return err
	}
	name, err := args.Consume()
	if err != nil {
		return errorf(line, "missing type name")
	}
	var (
		width           = 1
		from, to        int
		downto, ordered bool
	)
	for body.Remaining() > 0 {
		t, _ := body.Consume()
		var v lex.Token
		switch t.Text {
		case "base_type":
			if v, err = value(body); err == nil && v.Text != "array" {
				err = errorf(v.Line, "unsupported base_type %q", v.Text)
			}
		case "data_type":
			if v, err = value(body); err == nil && v.Text != "bit" {
				err = errorf(v.Line, "unsupported data_type %q", v.Text)
			}
		case "bit_width":
			width, err = intValue(body)
		case "bit_from":
			from, err = intValue(body)
		case "bit_to":
			to, err = intValue(body)
		case "downto":
			if v, err = value(body); err == nil && v.Text != "true" && v.Text != "false" {
				err = errorf(v.Line, "invalid downto value %q", v.Text)
			}
			downto, ordered = v.Text == "true", true
		default:
			err = errorf(t.Line, "invalid token %q in type %s", t.Text, name.Text)
		}
		if err != nil {
			return err
		}
	}
	if !ordered {
		downto = from > to
	}
	idx, err := design.Span(from, to, downto)
	if err != nil {
		return errorf(line, "type %s: %v", name.Text, err)
	}
	if width != len(idx) {
		return errorf(line, "type %s: bit_width %d does not match range %d to %d", name.Text, width, from, to)
	}
	p.busTypes[name.Text] = idx
	return nil
}

func (p *parser) parseCell(s *lex.Stream) error {
	line := s.Line()
	args, body, err := group(s)
	if err != nil {
		return err
	}
	name, err := args.Consume()
	if err != nil {
		return errorf(line, "missing cell name")
	}
	c := &cell{
		line:    line,
		name:    name.Text,
		fn:      make(map[string]string),
		xfn:     make(map[string]string),
		zfn:     make(map[string]string),
		control: make(map[string]string),
	}
	for body.Remaining() > 0 {
		t, _ := body.Consume()
		switch t.Text {
		case "pin":
			err = p.parsePin(body, c, dirUnknown, "")
		case "bus":
			err = p.parseBus(body, c)
		case "ff", "latch", "lut":
			if c.base != gatelib.Combinational {
				return errorf(t.Line, "cell %s: more than one sequential group", c.name)
			}
			switch t.Text {
			case "ff":
				err = parseSequential(body, c, gatelib.FF)
			case "latch":
				err = parseSequential(body, c, gatelib.Latch)
			default:
				err = parseLUT(body, c)
			}
		default:
			skip(body)
		}
		if err != nil {
			return err
		}
	}
	gt, err := c.construct()
	if err != nil {
		return err
	}
	if err = p.lib.Add(gt); err != nil {
		return errorf(line, "%v", err)
	}
	p.log.WithField("line", line).Debugf("cell %s: %d inputs, %d outputs", gt.Name, len(gt.Inputs), len(gt.Outputs))
	return nil
}

// pinNames parses the pin list of a pin group: A, B[3], C[0:7]
//
func pinNames(args *lex.Stream, bus string) ([]string, error) {
	var names []string
	for args.Remaining() > 0 {
		t, _ := args.Consume()
		if bus != "" && t.Text != bus {
			return nil, errorf(t.Line, "pin %s within bus %s must be named after the bus", t.Text, bus)
		}
		if args.Accept("[") {
			from, err := bracketInt(args)
			if err != nil {
				return nil, err
			}
			to := from
			if args.Accept(":") {
				if to, err = bracketInt(args); err != nil {
					return nil, err
				}
			}
			if _, err = args.Expect("]"); err != nil {
				return nil, err
			}
			idx, _ := design.Span(from, to, from > to)
			for _, i := range idx {
				names = append(names, gatelib.BusPinName(t.Text, i))
			}
		} else {
			names = append(names, t.Text)
		}
		if args.Remaining() > 0 {
			if _, err := args.Expect(","); err != nil {
				return nil, err
			}
		}
	}
	if len(names) == 0 {
		return nil, errorf(args.Line(), "empty pin list")
	}
	return names, nil
}

func bracketInt(s *lex.Stream) (int, error) {
	t, err := s.Consume()
	if err != nil {
		return 0, errorf(s.Line(), "missing pin index")
	}
	n, err := strconv.Atoi(t.Text)
	if err != nil {
		return 0, errorf(t.Line, "invalid pin index %q", t.Text)
	}
	return n, nil
}

// parsePin parses a pin group. Pins declared within a bus inherit the bus
// direction and are not added to the cell: the bus declares them.
//
func (p *parser) parsePin(s *lex.Stream, c *cell, dir direction, bus string) error {
	line := s.Line()
	args, body, err := group(s)
	if err != nil {
		return err
	}
	names, err := pinNames(args, bus)
	if err != nil {
		return err
	}
	var fn, xfn, zfn string
	for body.Remaining() > 0 {
		t, _ := body.Consume()
		var v lex.Token
		switch t.Text {
		case "direction":
			if v, err = value(body); err == nil {
				dir, err = parseDirection(v)
			}
		case "function":
			v, err = value(body)
			fn = v.Text
		case "x_function":
			v, err = value(body)
			xfn = v.Text
		case "three_state":
			v, err = value(body)
			zfn = v.Text
		default:
			skip(body)
		}
		if err != nil {
			return err
		}
	}
	if dir == dirUnknown {
		return errorf(line, "cell %s: no direction given for pin %s", c.name, strings.Join(names, ", "))
	}
	if bus == "" {
		for _, n := range names {
			c.pins = append(c.pins, pinDecl{name: n, dir: dir})
		}
	}
	if dir.isOutput() {
		for _, n := range names {
			if fn != "" {
				c.fn[n] = fn
			}
			if xfn != "" {
				c.xfn[n] = xfn
			}
			if zfn != "" {
				c.zfn[n] = zfn
			}
		}
	}
	return nil
}

func (p *parser) parseBus(s *lex.Stream, c *cell) error {
	line := s.Line()
	args, body, err := group(s)
	if err != nil {
		return err
	}
	name, err := args.Consume()
	if err != nil {
		return errorf(line, "missing bus name")
	}
	var (
		dir   direction
		idx   []int
		typed bool
	)
	for body.Remaining() > 0 {
		t, _ := body.Consume()
		var v lex.Token
		switch t.Text {
		case "bus_type":
			if v, err = value(body); err == nil {
				if idx, typed = p.busTypes[v.Text]; !typed {
					err = errorf(v.Line, "invalid bus type %q", v.Text)
				}
			}
		case "direction":
			if v, err = value(body); err == nil {
				dir, err = parseDirection(v)
			}
		case "pin":
			err = p.parsePin(body, c, dir, name.Text)
		default:
			skip(body)
		}
		if err != nil {
			return err
		}
	}
	if !typed {
		return errorf(line, "cell %s: bus %s has no bus_type", c.name, name.Text)
	}
	if dir == dirUnknown {
		return errorf(line, "cell %s: no direction given for bus %s", c.name, name.Text)
	}
	c.pins = append(c.pins, pinDecl{name: name.Text, dir: dir, group: true, index: idx})
	return nil
}

var controls = map[gatelib.BaseType]map[string]string{
	gatelib.FF: {
		"clocked_on": "clock",
		"next_state": "next_state",
		"clear":      "clear",
		"preset":     "preset",
	},
	gatelib.Latch: {
		"enable":  "enable",
		"data_in": "data",
		"clear":   "clear",
		"preset":  "preset",
	},
}

// parseSequential parses an ff or latch group: ff(IQ, IQN) { ... }
//
func parseSequential(s *lex.Stream, c *cell, base gatelib.BaseType) error {
	line := s.Line()
	args, body, err := group(s)
	if err != nil {
		return err
	}
	for i := range c.state {
		if i > 0 {
			if _, err = args.Expect(","); err != nil {
				return err
			}
		}
		t, err := args.Consume()
		if err != nil {
			return errorf(line, "cell %s: %s group needs two state variables", c.name, base)
		}
		c.state[i] = t.Text
	}
	if args.Remaining() > 0 {
		t := args.Peek(0)
		return errorf(t.Line, "unexpected token %q in %s group", t.Text, base)
	}
	c.base = base
	for body.Remaining() > 0 {
		t, _ := body.Consume()
		var v lex.Token
		switch t.Text {
		case "clear_preset_var1", "clear_preset_var2":
			if v, err = value(body); err != nil {
				break
			}
			sr, ok := gatelib.ParseSetReset(v.Text)
			if !ok {
				err = errorf(v.Line, "invalid clear_preset behavior %q", v.Text)
				break
			}
			c.seq.ClearPreset[t.Text[len(t.Text)-1]-'1'] = sr
		case "data_category":
			v, err = value(body)
			c.seq.InitCategory = v.Text
		case "data_key":
			v, err = value(body)
			c.seq.InitIdentifier = v.Text
		default:
			key, ok := controls[base][t.Text]
			if !ok {
				skip(body)
				break
			}
			if v, err = value(body); err == nil {
				c.control[key] = v.Text
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// parseLUT parses a lut group: lut(NAME) { ... }
//
func parseLUT(s *lex.Stream, c *cell) error {
	line := s.Line()
	args, body, err := group(s)
	if err != nil {
		return err
	}
	name, err := args.Consume()
	if err != nil {
		return errorf(line, "cell %s: missing lut name", c.name)
	}
	c.base = gatelib.LUT
	c.lutName = name.Text
	c.lut.Ascending = true
	for body.Remaining() > 0 {
		t, _ := body.Consume()
		var v lex.Token
		switch t.Text {
		case "data_category":
			v, err = value(body)
			c.lut.Category = v.Text
		case "data_identifier":
			v, err = value(body)
			c.lut.Identifier = v.Text
		case "direction":
			if v, err = value(body); err != nil {
				break
			}
			switch v.Text {
			case "ascending":
				c.lut.Ascending = true
			case "descending":
				c.lut.Ascending = false
			default:
				err = errorf(v.Line, "invalid lut direction %q", v.Text)
			}
		default:
			skip(body)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// variables returns the names a boolean function of the cell may refer to.
// Bus pins may be written either as A(3) or A[3].
//
func (c *cell) variables(gt *gatelib.Type) []string {
	var vars []string
	for _, in := range gt.Inputs {
		vars = append(vars, in)
		if i := strings.IndexByte(in, '('); i > 0 {
			vars = append(vars, in[:i]+"["+in[i+1:len(in)-1]+"]")
		}
	}
	if c.base == gatelib.FF || c.base == gatelib.Latch {
		vars = append(vars, c.state[0], c.state[1])
	}
	return vars
}

func (c *cell) construct() (*gatelib.Type, error) {
	gt := gatelib.NewType(c.name, c.base)
	for _, p := range c.pins {
		switch {
		case p.group:
			if p.dir.isInput() {
				gt.AddInputGroup(p.name, p.index)
			}
			if p.dir.isOutput() {
				gt.AddOutputGroup(p.name, p.index)
			}
		default:
			if p.dir.isInput() {
				gt.AddInputPins(p.name)
			}
			if p.dir.isOutput() {
				gt.AddOutputPins(p.name)
			}
		}
	}
	for n := range c.fn {
		if _, ok := gt.Output(n); !ok {
			return nil, errorf(c.line, "cell %s: function for undeclared output %s", c.name, n)
		}
	}
	vars := c.variables(gt)
	fn := func(key, expr string) error {
		f, err := boolfunc.FromString(expr, vars)
		if err != nil {
			return errorf(c.line, "cell %s: %v", c.name, err)
		}
		gt.Functions[key] = f
		return nil
	}

	switch c.base {
	case gatelib.FF, gatelib.Latch:
		seq := gt.Sequential
		*seq = c.seq
		for _, out := range gt.Outputs {
			switch c.fn[out] {
			case c.state[0]:
				seq.StateOutputs = append(seq.StateOutputs, out)
			case c.state[1]:
				seq.InvertedStateOutputs = append(seq.InvertedStateOutputs, out)
			default:
				continue
			}
			delete(c.fn, out)
		}
		for _, key := range []string{"clock", "next_state", "enable", "data", "clear", "preset"} {
			if expr, ok := c.control[key]; ok {
				if err := fn(key, expr); err != nil {
					return nil, err
				}
			}
		}
	case gatelib.LUT:
		*gt.LUT = c.lut
		for _, out := range gt.Outputs {
			if c.fn[out] == c.lutName {
				gt.LUT.InitOutputs = append(gt.LUT.InitOutputs, out)
				delete(c.fn, out)
			}
		}
	}

	for _, out := range gt.Outputs {
		for _, f := range []struct {
			m   map[string]string
			key string
		}{
			{c.fn, out},
			{c.xfn, out + "_undefined"},
			{c.zfn, out + "_tristate"},
		} {
			if expr, ok := f.m[out]; ok {
				if err := fn(f.key, expr); err != nil {
					return nil, err
				}
			}
		}
	}
	return gt, nil
}
