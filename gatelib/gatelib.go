// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package gatelib describes gate types and gate libraries.
//
package gatelib

import (
	"sort"
	"strconv"
	"strings"

	"github.com/db47h/hwnet/boolfunc"
	"github.com/pkg/errors"
)

// BaseType is the behavioral class of a gate type.
//
type BaseType int

// Base types.
//
const (
	Combinational BaseType = iota
	FF
	Latch
	LUT
)

var baseNames = [...]string{Combinational: "combinational", FF: "ff", Latch: "latch", LUT: "lut"}

func (b BaseType) String() string { return baseNames[b] }

// SetReset is the behavior of a sequential gate when both its clear and
// preset inputs are active.
//
type SetReset int

// SetReset values, matching the Liberty characters L, H, N, T and X.
//
const (
	Undefined SetReset = iota
	ForceLow
	ForceHigh
	NoChange
	Toggle
	Unknown
)

const setResetChars = "LHNTX"

// ParseSetReset converts a Liberty clear_preset_var value.
//
func ParseSetReset(s string) (SetReset, bool) {
	if len(s) != 1 {
		return Undefined, false
	}
	i := strings.IndexByte(setResetChars, s[0])
	if i < 0 {
		return Undefined, false
	}
	return SetReset(i + 1), true
}

func (b SetReset) String() string {
	if b == Undefined {
		return ""
	}
	return setResetChars[b-1 : b]
}

// Sequential holds the extra properties of ff and latch gate types.
//
type Sequential struct {
	StateOutputs         []string
	InvertedStateOutputs []string
	ClearPreset          [2]SetReset
	// location of the initial state in the gate data
	InitCategory   string
	InitIdentifier string
}

// LUTConfig holds the extra properties of lut gate types.
//
type LUTConfig struct {
	InitOutputs []string
	Category    string
	Identifier  string
	Ascending   bool
}

// A Type is a gate type.
//
// Functions maps output pin names to their boolean function. The functions
// producing an undefined or high impedance output are stored under the pin
// name suffixed with "_undefined" and "_tristate". Sequential control
// functions are stored under "clock", "next_state", "clear", "preset",
// "enable" and "data".
//
type Type struct {
	Name       string
	Base       BaseType
	Inputs     []string
	Outputs    []string
	Functions  map[string]*boolfunc.Func
	Sequential *Sequential
	LUT        *LUTConfig

	inGroups  map[string][]int
	outGroups map[string][]int
}

// NewType returns a new gate type without any pins.
//
func NewType(name string, base BaseType) *Type {
	t := &Type{
		Name:      name,
		Base:      base,
		Functions: make(map[string]*boolfunc.Func),
		inGroups:  make(map[string][]int),
		outGroups: make(map[string][]int),
	}
	switch base {
	case FF, Latch:
		t.Sequential = new(Sequential)
	case LUT:
		t.LUT = new(LUTConfig)
	}
	return t
}

// BusPinName returns the name of pin i of a bus.
//
func BusPinName(bus string, i int) string {
	return bus + "(" + strconv.Itoa(i) + ")"
}

// AddInputPins adds scalar input pins.
//
func (t *Type) AddInputPins(names ...string) {
	for _, n := range names {
		t.Inputs = append(t.Inputs, n)
		t.inGroups[n] = nil
	}
}

// AddOutputPins adds scalar output pins.
//
func (t *Type) AddOutputPins(names ...string) {
	for _, n := range names {
		t.Outputs = append(t.Outputs, n)
		t.outGroups[n] = nil
	}
}

// AddInputGroup adds a group of input pins named group(i) for each index i.
//
func (t *Type) AddInputGroup(group string, indices []int) {
	t.inGroups[group] = indices
	for _, i := range indices {
		t.Inputs = append(t.Inputs, BusPinName(group, i))
	}
}

// AddOutputGroup adds a group of output pins named group(i) for each index i.
//
func (t *Type) AddOutputGroup(group string, indices []int) {
	t.outGroups[group] = indices
	for _, i := range indices {
		t.Outputs = append(t.Outputs, BusPinName(group, i))
	}
}

func find(pins []string, name string) (string, bool) {
	for _, p := range pins {
		if p == name {
			return p, true
		}
	}
	for _, p := range pins {
		if strings.EqualFold(p, name) {
			return p, true
		}
	}
	return "", false
}

// Input returns the declared name of an input pin. Names are matched exactly
// first, then ignoring case.
//
func (t *Type) Input(name string) (string, bool) { return find(t.Inputs, name) }

// Output returns the declared name of an output pin. Names are matched
// exactly first, then ignoring case.
//
func (t *Type) Output(name string) (string, bool) { return find(t.Outputs, name) }

// PinGroup returns the declared name and indices of the input or output pin
// group called name. Scalar pins are groups without indices.
//
func (t *Type) PinGroup(name string) (string, []int, bool) {
	for _, fold := range []bool{false, true} {
		for _, gs := range []map[string][]int{t.inGroups, t.outGroups} {
			for g, idx := range gs {
				if g == name || fold && strings.EqualFold(g, name) {
					return g, idx, true
				}
			}
		}
	}
	return "", nil, false
}

// constant returns the value of the single output of a combinational gate
// without inputs, if it is constant.
//
func (t *Type) constant() (value, ok bool) {
	if t.Base != Combinational || len(t.Inputs) != 0 || len(t.Outputs) != 1 {
		return false, false
	}
	f := t.Functions[t.Outputs[0]]
	if f == nil {
		return false, false
	}
	return f.Constant()
}

// A Library is a named set of gate types.
//
type Library struct {
	Name  string
	types map[string]*Type
}

// NewLibrary returns an empty library.
//
func NewLibrary(name string) *Library {
	return &Library{Name: name, types: make(map[string]*Type)}
}

// Add adds a gate type to the library.
//
func (l *Library) Add(t *Type) error {
	if _, ok := l.types[t.Name]; ok {
		return errors.Errorf("duplicate gate type %s in library %s", t.Name, l.Name)
	}
	l.types[t.Name] = t
	return nil
}

// Type returns the gate type with the given name. Names are matched exactly
// first, then ignoring case.
//
func (l *Library) Type(name string) (*Type, bool) {
	if t, ok := l.types[name]; ok {
		return t, true
	}
	for _, t := range l.Types() {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return nil, false
}

// Types returns all gate types sorted by name.
//
func (l *Library) Types() []*Type {
	r := make([]*Type, 0, len(l.types))
	for _, t := range l.types {
		r = append(r, t)
	}
	sort.Slice(r, func(i, j int) bool { return r[i].Name < r[j].Name })
	return r
}

func (l *Library) constants(value bool) []*Type {
	var r []*Type
	for _, t := range l.Types() {
		if v, ok := t.constant(); ok && v == value {
			r = append(r, t)
		}
	}
	return r
}

// GNDTypes returns the gate types driving a constant 0, sorted by name.
//
func (l *Library) GNDTypes() []*Type { return l.constants(false) }

// VCCTypes returns the gate types driving a constant 1, sorted by name.
//
func (l *Library) VCCTypes() []*Type { return l.constants(true) }

// IsGND reports whether t drives a constant 0.
//
func IsGND(t *Type) bool {
	v, ok := t.constant()
	return ok && !v
}

// IsVCC reports whether t drives a constant 1.
//
func IsVCC(t *Type) bool {
	v, ok := t.constant()
	return ok && v
}
