// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwnet

import (
	"sort"

	"github.com/db47h/hwnet/gatelib"
	"github.com/pkg/errors"
)

// Handles of the objects stored in a Netlist. The zero value of each handle
// type refers to no object.
//
type (
	GateID   int
	NetID    int
	ModuleID int
)

// Null handles.
//
const (
	NoGate   GateID   = 0
	NoNet    NetID    = 0
	NoModule ModuleID = 0
)

// A DataKey identifies a piece of auxiliary data attached to a net, gate or
// module.
//
type DataKey struct {
	Category string
	Key      string
}

// A DataValue is a typed value. Type is a free form type tag like
// "integer" or "bit_vector".
//
type DataValue struct {
	Type  string
	Value string
}

// Data is a set of auxiliary key/value pairs.
//
type Data map[DataKey]DataValue

// Set sets the value for the given key.
//
func (d Data) Set(category, key, typ, value string) {
	d[DataKey{category, key}] = DataValue{typ, value}
}

// Get returns the value for the given key.
//
func (d Data) Get(category, key string) (DataValue, bool) {
	v, ok := d[DataKey{category, key}]
	return v, ok
}

// Keys returns the keys of d sorted by category then key.
//
func (d Data) Keys() []DataKey {
	keys := make([]DataKey, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Category != keys[j].Category {
			return keys[i].Category < keys[j].Category
		}
		return keys[i].Key < keys[j].Key
	})
	return keys
}

// A Netlist owns the gates, nets and modules of an elaborated design.
//
type Netlist struct {
	Name    string
	Library *gatelib.Library

	gates    map[GateID]*Gate
	nets     map[NetID]*Net
	modules  map[ModuleID]*Module
	netNames map[string]NetID

	lastGate   GateID
	lastNet    NetID
	lastModule ModuleID
	top        ModuleID

	gnd map[GateID]bool
	vcc map[GateID]bool
}

// New returns an empty netlist whose gates are instances of types from lib.
//
func New(name string, lib *gatelib.Library) *Netlist {
	return &Netlist{
		Name:     name,
		Library:  lib,
		gates:    make(map[GateID]*Gate),
		nets:     make(map[NetID]*Net),
		modules:  make(map[ModuleID]*Module),
		netNames: make(map[string]NetID),
		gnd:      make(map[GateID]bool),
		vcc:      make(map[GateID]bool),
	}
}

// CreateNet creates a new net. Net names are unique within a netlist.
//
func (nl *Netlist) CreateNet(name string) (*Net, error) {
	if name == "" {
		return nil, errors.New("empty net name")
	}
	if _, ok := nl.netNames[name]; ok {
		return nil, errors.Errorf("a net named %q already exists", name)
	}
	nl.lastNet++
	n := &Net{ID: nl.lastNet, Name: name, Data: make(Data)}
	nl.nets[n.ID] = n
	nl.netNames[name] = n.ID
	return n, nil
}

// Net returns the net with the given handle, or nil.
//
func (nl *Netlist) Net(id NetID) *Net { return nl.nets[id] }

// NetByName returns the net with the given name.
//
func (nl *Netlist) NetByName(name string) (*Net, bool) {
	id, ok := nl.netNames[name]
	if !ok {
		return nil, false
	}
	return nl.nets[id], true
}

// Nets returns all nets in creation order.
//
func (nl *Netlist) Nets() []*Net {
	r := make([]*Net, 0, len(nl.nets))
	for _, n := range nl.nets {
		r = append(r, n)
	}
	sort.Slice(r, func(i, j int) bool { return r[i].ID < r[j].ID })
	return r
}

// DeleteNet deletes a net and disconnects all gate pins connected to it.
//
func (nl *Netlist) DeleteNet(id NetID) error {
	n := nl.nets[id]
	if n == nil {
		return errors.Errorf("no net with id %d", id)
	}
	for _, ep := range n.Sources {
		delete(nl.gates[ep.Gate].Outputs, ep.Pin)
	}
	for _, ep := range n.Destinations {
		delete(nl.gates[ep.Gate].Inputs, ep.Pin)
	}
	delete(nl.netNames, n.Name)
	delete(nl.nets, id)
	return nil
}

// UniqueGateID returns a gate handle that is not in use.
//
func (nl *Netlist) UniqueGateID() GateID {
	for nl.gates[nl.lastGate+1] != nil {
		nl.lastGate++
	}
	return nl.lastGate + 1
}

// CreateGate creates a gate of the given type within module m.
//
func (nl *Netlist) CreateGate(id GateID, t *gatelib.Type, name string, m ModuleID) (*Gate, error) {
	if id == NoGate {
		return nil, errors.New("invalid gate id")
	}
	if g := nl.gates[id]; g != nil {
		return nil, errors.Errorf("gate id %d already in use by gate %s", id, g.Name)
	}
	if t == nil {
		return nil, errors.Errorf("gate %s has no type", name)
	}
	mod := nl.modules[m]
	if mod == nil {
		return nil, errors.Errorf("gate %s: no module with id %d", name, m)
	}
	g := &Gate{
		ID:      id,
		Name:    name,
		Type:    t,
		Module:  m,
		Inputs:  make(map[string]NetID),
		Outputs: make(map[string]NetID),
		Data:    make(Data),
	}
	nl.gates[id] = g
	mod.Gates = append(mod.Gates, id)
	if id > nl.lastGate {
		nl.lastGate = id
	}
	return g, nil
}

// Gate returns the gate with the given handle, or nil.
//
func (nl *Netlist) Gate(id GateID) *Gate { return nl.gates[id] }

// Gates returns all gates sorted by id.
//
func (nl *Netlist) Gates() []*Gate {
	r := make([]*Gate, 0, len(nl.gates))
	for _, g := range nl.gates {
		r = append(r, g)
	}
	sort.Slice(r, func(i, j int) bool { return r[i].ID < r[j].ID })
	return r
}

// GateByName returns the first gate, by id, with the given name.
//
func (nl *Netlist) GateByName(name string) (*Gate, bool) {
	for _, g := range nl.Gates() {
		if g.Name == name {
			return g, true
		}
	}
	return nil, false
}

// CreateModule creates a module. The first module created with no parent
// becomes the top module; there can be only one.
//
func (nl *Netlist) CreateModule(name, typ string, parent ModuleID) (*Module, error) {
	var p *Module
	if parent == NoModule {
		if nl.top != NoModule {
			return nil, errors.Errorf("module %s: netlist already has a top module", name)
		}
	} else if p = nl.modules[parent]; p == nil {
		return nil, errors.Errorf("module %s: no parent module with id %d", name, parent)
	}
	nl.lastModule++
	m := &Module{ID: nl.lastModule, Name: name, Type: typ, Parent: parent, Data: make(Data)}
	nl.modules[m.ID] = m
	if p != nil {
		p.Submodules = append(p.Submodules, m.ID)
	} else {
		nl.top = m.ID
	}
	return m, nil
}

// Module returns the module with the given handle, or nil.
//
func (nl *Netlist) Module(id ModuleID) *Module { return nl.modules[id] }

// TopModule returns the top module, or nil if none has been created yet.
//
func (nl *Netlist) TopModule() *Module { return nl.modules[nl.top] }

// Modules returns all modules in creation order.
//
func (nl *Netlist) Modules() []*Module {
	r := make([]*Module, 0, len(nl.modules))
	for _, m := range nl.modules {
		r = append(r, m)
	}
	sort.Slice(r, func(i, j int) bool { return r[i].ID < r[j].ID })
	return r
}

// MarkGND marks g as a global ground driver.
//
func (nl *Netlist) MarkGND(g GateID) { nl.gnd[g] = true }

// MarkVCC marks g as a global power driver.
//
func (nl *Netlist) MarkVCC(g GateID) { nl.vcc[g] = true }

// IsGND reports whether g is marked as a ground driver.
//
func (nl *Netlist) IsGND(g GateID) bool { return nl.gnd[g] }

// IsVCC reports whether g is marked as a power driver.
//
func (nl *Netlist) IsVCC(g GateID) bool { return nl.vcc[g] }

// GlobalInputs returns the nets marked as global inputs.
//
func (nl *Netlist) GlobalInputs() []*Net {
	var r []*Net
	for _, n := range nl.Nets() {
		if n.GlobalInput {
			r = append(r, n)
		}
	}
	return r
}

// GlobalOutputs returns the nets marked as global outputs.
//
func (nl *Netlist) GlobalOutputs() []*Net {
	var r []*Net
	for _, n := range nl.Nets() {
		if n.GlobalOutput {
			r = append(r, n)
		}
	}
	return r
}
