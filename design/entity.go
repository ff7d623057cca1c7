// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package design

import (
	"strings"

	"github.com/db47h/hwnet/internal/lex"
	"github.com/pkg/errors"
)

// Key returns the lookup key for an HDL identifier. HDL identifiers are case
// insensitive.
//
func Key(name string) string { return strings.ToLower(name) }

// Direction is the direction of an entity port.
//
type Direction int

// Port directions.
//
const (
	In Direction = iota
	Out
	InOut
)

var dirNames = [...]string{In: "in", Out: "out", InOut: "inout"}

func (d Direction) String() string { return dirNames[d] }

// IsInput returns true for in and inout ports.
//
func (d Direction) IsInput() bool { return d != Out }

// IsOutput returns true for out and inout ports.
//
func (d Direction) IsOutput() bool { return d != In }

// ParseDirection converts a direction keyword.
//
func ParseDirection(s string) (Direction, bool) {
	for i, n := range dirNames {
		if strings.EqualFold(n, s) {
			return Direction(i), true
		}
	}
	return 0, false
}

// A Port is an entity port declaration.
//
type Port struct {
	Direction Direction
	Signal
}

// PortAssignment connects a port of an instance to a sequence of signals of
// the enclosing entity.
//
type PortAssignment struct {
	Port    Signal
	Signals []Signal
}

// A Generic is a generic map entry of an instance. Type is one of boolean,
// integer, floating_point, time, string, bit_value or bit_vector.
//
type Generic struct {
	Name  string
	Type  string
	Value string
}

// An Instance is the use of an entity or gate type in an architecture body.
//
type Instance struct {
	Line     int
	Type     string
	Name     string
	Ports    []PortAssignment
	Generics []Generic
}

// AddPort appends a port assignment.
//
func (i *Instance) AddPort(port Signal, sigs []Signal) {
	i.Ports = append(i.Ports, PortAssignment{Port: port, Signals: sigs})
}

// AddGeneric appends a generic assignment.
//
func (i *Instance) AddGeneric(name, typ, value string) {
	i.Generics = append(i.Generics, Generic{Name: name, Type: typ, Value: value})
}

// Expand returns the bit level port connections of the instance, in
// declaration order.
//
func (i *Instance) Expand() ([]Pair, error) {
	var r []Pair
	for _, pa := range i.Ports {
		ps, err := zip(pa.Port.Expand(), ExpandAll(pa.Signals))
		if err != nil {
			return nil, errors.WithStack(lex.Errorf(pa.Port.Line, "port %s of instance %s: %v", pa.Port.Name, i.Name, err))
		}
		r = append(r, ps...)
	}
	return r, nil
}

// An Assignment is a direct signal assignment LHS <= RHS.
//
type Assignment struct {
	LHS []Signal
	RHS []Signal
}

// Pair is a bit level connection.
//
type Pair struct {
	LHS string
	RHS string
}

func zip(l, r []string) ([]Pair, error) {
	if len(l) != len(r) {
		return nil, errors.Errorf("width mismatch: left side has size %d and right side has size %d", len(l), len(r))
	}
	ps := make([]Pair, len(l))
	for i := range l {
		ps[i] = Pair{l[i], r[i]}
	}
	return ps, nil
}

// AttributeClass is the class of an attribute specification target.
//
type AttributeClass int

// Attribute target classes.
//
const (
	EntityAttr AttributeClass = iota
	InstanceAttr
	SignalAttr
)

// An Attribute is an attribute value attached to an entity, instance or signal.
//
type Attribute struct {
	Name  string
	Type  string
	Value string
}

type attrTarget struct {
	name  string
	attrs []Attribute
}

// Bits holds the expanded bit names of a port or signal.
//
type Bits struct {
	Name string
	Bits []string
}

// Expansion is the bit level view of an entity.
//
type Expansion struct {
	Ports       []Bits
	Signals     []Bits
	Assignments []Pair
}

// An Entity is a parsed entity together with its architecture.
//
type Entity struct {
	Line        int
	Name        string
	Assignments []Assignment

	ports     []Port
	signals   []Signal
	instances []*Instance
	names     map[string]int
	insts     map[string]int
	attrs     [3][]attrTarget
	expanded  *Expansion
}

// NewEntity returns a new empty entity.
//
func NewEntity(line int, name string) *Entity {
	return &Entity{
		Line:  line,
		Name:  name,
		names: make(map[string]int),
		insts: make(map[string]int),
	}
}

// ports are stored as index+1, signals as -(index+1).
func (e *Entity) declare(line int, name string, idx int) error {
	k := Key(name)
	if _, ok := e.names[k]; ok {
		return errors.WithStack(lex.Errorf(line, "duplicate declaration of %q in entity %s", name, e.Name))
	}
	e.names[k] = idx
	e.expanded = nil
	return nil
}

// AddPort adds a port declaration.
//
func (e *Entity) AddPort(dir Direction, s Signal) error {
	if err := e.declare(s.Line, s.Name, len(e.ports)+1); err != nil {
		return err
	}
	e.ports = append(e.ports, Port{dir, s})
	return nil
}

// AddSignal adds an internal signal declaration.
//
func (e *Entity) AddSignal(s Signal) error {
	if err := e.declare(s.Line, s.Name, -len(e.signals)-1); err != nil {
		return err
	}
	e.signals = append(e.signals, s)
	return nil
}

// Ports returns the ports of the entity in declaration order.
//
func (e *Entity) Ports() []Port { return e.ports }

// Signals returns the internal signals of the entity in declaration order.
//
func (e *Entity) Signals() []Signal { return e.signals }

// Port returns the port with the given name.
//
func (e *Entity) Port(name string) (*Port, bool) {
	if i := e.names[Key(name)]; i > 0 {
		return &e.ports[i-1], true
	}
	return nil, false
}

// Lookup returns the declaration of an internal signal or port.
//
func (e *Entity) Lookup(name string) (*Signal, bool) {
	switch i := e.names[Key(name)]; {
	case i > 0:
		return &e.ports[i-1].Signal, true
	case i < 0:
		return &e.signals[-i-1], true
	}
	return nil, false
}

// AddAssignment adds a direct assignment.
//
func (e *Entity) AddAssignment(lhs, rhs []Signal) {
	e.Assignments = append(e.Assignments, Assignment{LHS: lhs, RHS: rhs})
	e.expanded = nil
}

// AddInstance adds an instance to the architecture.
//
func (e *Entity) AddInstance(inst *Instance) error {
	k := Key(inst.Name)
	if i, ok := e.insts[k]; ok {
		return errors.WithStack(lex.Errorf(inst.Line, "duplicate instance name %q (see line %d and line %d)", inst.Name, inst.Line, e.instances[i].Line))
	}
	e.insts[k] = len(e.instances)
	e.instances = append(e.instances, inst)
	return nil
}

// Instances returns the instances of the architecture in source order.
//
func (e *Entity) Instances() []*Instance { return e.instances }

// AddAttribute attaches an attribute to a target of the given class. Adding
// the same attribute twice has no effect.
//
func (e *Entity) AddAttribute(class AttributeClass, target string, a Attribute) {
	ts := e.attrs[class]
	k := Key(target)
	for i := range ts {
		if Key(ts[i].name) != k {
			continue
		}
		for _, x := range ts[i].attrs {
			if x == a {
				return
			}
		}
		ts[i].attrs = append(ts[i].attrs, a)
		return
	}
	e.attrs[class] = append(ts, attrTarget{name: target, attrs: []Attribute{a}})
}

// Attributes returns the attributes attached to target.
//
func (e *Entity) Attributes(class AttributeClass, target string) []Attribute {
	k := Key(target)
	for _, t := range e.attrs[class] {
		if Key(t.name) == k {
			return t.attrs
		}
	}
	return nil
}

// AttributeTargets returns the names of all targets of the given class
// that have attributes.
//
func (e *Entity) AttributeTargets(class AttributeClass) []string {
	r := make([]string, len(e.attrs[class]))
	for i, t := range e.attrs[class] {
		r[i] = t.name
	}
	return r
}

// Expanded returns the bit level view of the entity. The result is cached
// until the entity is modified.
//
func (e *Entity) Expanded() (*Expansion, error) {
	if e.expanded != nil {
		return e.expanded, nil
	}
	x := &Expansion{
		Ports:   make([]Bits, len(e.ports)),
		Signals: make([]Bits, len(e.signals)),
	}
	for i := range e.ports {
		p := &e.ports[i]
		x.Ports[i] = Bits{p.Name, p.Expand()}
	}
	for i := range e.signals {
		s := &e.signals[i]
		x.Signals[i] = Bits{s.Name, s.Expand()}
	}
	for _, a := range e.Assignments {
		ps, err := zip(ExpandAll(a.LHS), ExpandAll(a.RHS))
		if err != nil {
			line := lex.NoLine
			if len(a.LHS) > 0 {
				line = a.LHS[0].Line
			}
			return nil, errors.WithStack(lex.Errorf(line, "assignment in entity %s: %v", e.Name, err))
		}
		x.Assignments = append(x.Assignments, ps...)
	}
	e.expanded = x
	return x, nil
}
