// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package elab turns a parsed design into a gate level netlist.
//
// Elaboration resolves every instance against the design entities and the
// gate library, flattens all ports and signals to single bit nets,
// instantiates the entity hierarchy into modules and gates, merges the nets
// connected by direct assignments, drives the constant nets '0' and '1' with
// ground and power gates of the library, and finally deletes floating nets.
//
// Names that occur more than once in the hierarchy are made unique by
// appending "(n)" to their second and later occurrences.
//
package elab

import (
	"strconv"

	"github.com/db47h/hwnet"
	"github.com/db47h/hwnet/design"
	"github.com/db47h/hwnet/gatelib"
	"github.com/db47h/hwnet/internal/lex"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Component is the logging component name of the elaborator. Elaboration is
// reported as part of the HDL front end.
//
const Component = "hdl_parser"

// Names of the gates driving the constant nets.
//
const (
	GNDGate = "global_gnd"
	VCCGate = "global_vcc"
)

// An Elaborator builds netlists.
//
type Elaborator struct {
	// Log receives warnings and errors. Defaults to the logrus standard logger.
	Log logrus.FieldLogger
}

// Elaborate elaborates the design d from its entity named top, or from the
// last entity in d if top is empty. The instances of d are resolved and
// their port widths completed in place.
//
// On error, the error is logged and no netlist is returned.
//
func (el *Elaborator) Elaborate(d *design.Design, lib *gatelib.Library, top string) (*hwnet.Netlist, error) {
	log := lex.Logger(el.Log, Component)
	nl, err := elaborate(d, lib, top, log)
	if err != nil {
		lex.LogError(log, err)
		return nil, err
	}
	return nl, nil
}

// context holds the state of a single elaboration run.
//
type context struct {
	d   *design.Design
	lib *gatelib.Library
	nl  *hwnet.Netlist
	log logrus.FieldLogger

	// name occurrences in the whole hierarchy and encounters so far, by key
	instCount map[string]int
	sigCount  map[string]int
	instSeen  map[string]int
	sigSeen   map[string]int

	// pending net merges: master net name -> slave net names
	merges  map[string][]string
	masters []string
}

func errorf(line int, format string, args ...interface{}) error {
	return errors.WithStack(lex.Errorf(line, format, args...))
}

func elaborate(d *design.Design, lib *gatelib.Library, top string, log logrus.FieldLogger) (*hwnet.Netlist, error) {
	var te *design.Entity
	if top == "" {
		if te = d.Top(); te == nil {
			return nil, errorf(lex.NoLine, "design has no entity")
		}
	} else {
		var ok bool
		if te, ok = d.Entity(top); !ok {
			return nil, errorf(lex.NoLine, "unknown top entity %q", top)
		}
	}
	if lib == nil {
		lib = gatelib.NewLibrary("")
	}
	c := &context{
		d:         d,
		lib:       lib,
		nl:        hwnet.New(te.Name, lib),
		log:       log,
		instCount: make(map[string]int),
		sigCount:  make(map[string]int),
		instSeen:  make(map[string]int),
		sigSeen:   make(map[string]int),
		merges:    make(map[string][]string),
	}
	if err := c.prepare(); err != nil {
		return nil, err
	}
	if err := c.checkRecursion(te, nil, make(map[*design.Entity]bool)); err != nil {
		return nil, err
	}
	c.count(te)

	for _, n := range []string{GND, VCC} {
		if _, err := c.nl.CreateNet(n); err != nil {
			return nil, errors.Wrap(err, "create constant net")
		}
	}

	// top level ports become global nets named after themselves.
	x, err := te.Expanded()
	if err != nil {
		return nil, err
	}
	ports := newSocket()
	for i, p := range te.Ports() {
		c.sigSeen[design.Key(p.Name)]++
		for _, bit := range x.Ports[i].Bits {
			n, err := c.nl.CreateNet(bit)
			if err != nil {
				return nil, errorf(p.Line, "port %s: %v", p.Name, err)
			}
			if p.Direction.IsInput() {
				err = c.nl.MarkGlobalInput(n.ID)
			}
			if err == nil && p.Direction.IsOutput() {
				err = c.nl.MarkGlobalOutput(n.ID)
			}
			if err != nil {
				return nil, err
			}
			ports.bind(bit, bit)
		}
	}

	m, err := c.instantiate(&design.Instance{Line: te.Line, Type: te.Name, Name: te.Name}, te, hwnet.NoModule, ports)
	if err != nil {
		return nil, err
	}
	if err = c.merge(); err != nil {
		return nil, err
	}
	if err = c.drivers(m.ID); err != nil {
		return nil, err
	}
	for _, n := range c.nl.Prune() {
		log.Debugf("deleted floating net %s", n)
	}
	log.WithFields(logrus.Fields{
		"gates":   len(c.nl.Gates()),
		"nets":    len(c.nl.Nets()),
		"modules": len(c.nl.Modules()),
	}).Debugf("elaborated entity %s", te.Name)
	return c.nl, nil
}

// prepare checks that all instances refer to a known entity or gate type,
// completes the width of port assignments whose left side was given by name
// only and checks port assignment widths.
//
func (c *context) prepare() error {
	for _, e := range c.d.Entities() {
		for _, inst := range e.Instances() {
			if sub, ok := c.d.Entity(inst.Type); ok {
				if err := prepareEntity(inst, sub); err != nil {
					return err
				}
				continue
			}
			if gt, ok := c.lib.Type(inst.Type); ok {
				if err := prepareGate(inst, gt); err != nil {
					return err
				}
				continue
			}
			return errorf(inst.Line, "type %s of instance %s is neither an entity nor a gate type", inst.Type, inst.Name)
		}
	}
	return nil
}

func checkWidth(inst *design.Instance, pa *design.PortAssignment) error {
	if w, pw := design.SizeOf(pa.Signals), pa.Port.Size(); w != pw {
		return errorf(pa.Port.Line, "port %s of instance %s has width %d but is assigned %d bits", pa.Port.Name, inst.Name, pw, w)
	}
	return nil
}

// checkBits checks that the port bits assigned by pa exist in the declared
// port and that none of them was already connected by the same instance.
//
func checkBits(inst *design.Instance, pa *design.PortAssignment, declared *design.Signal, seen map[string]bool) error {
	valid := make(map[string]bool)
	for _, b := range declared.Expand() {
		valid[design.Key(b)] = true
	}
	for _, b := range pa.Port.Expand() {
		k := design.Key(b)
		if !valid[k] {
			return errorf(pa.Port.Line, "%s is out of the range of port %s of instance %s", b, declared.Name, inst.Name)
		}
		if seen[k] {
			return errorf(pa.Port.Line, "%s of instance %s is connected more than once", b, inst.Name)
		}
		seen[k] = true
	}
	return nil
}

func prepareEntity(inst *design.Instance, sub *design.Entity) error {
	seen := make(map[string]bool)
	for i := range inst.Ports {
		pa := &inst.Ports[i]
		p, ok := sub.Port(pa.Port.Name)
		if !ok {
			return errorf(pa.Port.Line, "port %q is no valid port for instance %s of entity %s", pa.Port.Name, inst.Name, sub.Name)
		}
		pa.Port.Name = p.Name
		if !pa.Port.BoundsKnown {
			pa.Port.SetRanges(p.Ranges)
		}
		if err := checkWidth(inst, pa); err != nil {
			return err
		}
		if err := checkBits(inst, pa, &p.Signal, seen); err != nil {
			return err
		}
	}
	return nil
}

func prepareGate(inst *design.Instance, gt *gatelib.Type) error {
	seen := make(map[string]bool)
	for i := range inst.Ports {
		pa := &inst.Ports[i]
		g, idx, ok := gt.PinGroup(pa.Port.Name)
		if !ok {
			return errorf(pa.Port.Line, "pin %q is no valid pin for instance %s of gate type %s", pa.Port.Name, inst.Name, gt.Name)
		}
		var ranges [][]int
		if idx != nil {
			ranges = [][]int{idx}
		}
		pa.Port.Name = g
		if !pa.Port.BoundsKnown {
			pa.Port.SetRanges(ranges)
		}
		if err := checkWidth(inst, pa); err != nil {
			return err
		}
		pins := design.NewSignal(pa.Port.Line, g, ranges)
		if err := checkBits(inst, pa, &pins, seen); err != nil {
			return err
		}
	}
	return nil
}

func (c *context) checkRecursion(e *design.Entity, path []*design.Entity, done map[*design.Entity]bool) error {
	if done[e] {
		return nil
	}
	for _, p := range path {
		if p == e {
			return errorf(e.Line, "recursive instantiation of entity %s", e.Name)
		}
	}
	path = append(path, e)
	for _, inst := range e.Instances() {
		if sub, ok := c.d.Entity(inst.Type); ok {
			if err := c.checkRecursion(sub, path, done); err != nil {
				return err
			}
		}
	}
	done[e] = true
	return nil
}

// count counts the occurrences of instance and signal names in the
// hierarchy rooted at top and warns about unused entities.
//
func (c *context) count(top *design.Entity) {
	c.instCount[design.Key(top.Name)]++
	for _, p := range top.Ports() {
		c.sigCount[design.Key(p.Name)]++
	}
	used := make(map[*design.Entity]bool)
	q := []*design.Entity{top}
	for len(q) > 0 {
		e := q[0]
		q = q[1:]
		used[e] = true
		for _, s := range e.Signals() {
			c.sigCount[design.Key(s.Name)]++
		}
		for _, inst := range e.Instances() {
			c.instCount[design.Key(inst.Name)]++
			if sub, ok := c.d.Entity(inst.Type); ok {
				q = append(q, sub)
			}
		}
	}
	for _, e := range c.d.Entities() {
		if !used[e] {
			c.log.WithField("line", e.Line).Warnf("entity %s defined but not used", e.Name)
		}
	}
}

func suffix(count, seen map[string]int, name string) string {
	k := design.Key(name)
	if count[k] < 2 {
		return ""
	}
	n := seen[k]
	seen[k]++
	if n == 0 {
		return ""
	}
	return "(" + strconv.Itoa(n) + ")"
}

func (c *context) instanceSuffix(name string) string { return suffix(c.instCount, c.instSeen, name) }
func (c *context) signalSuffix(name string) string   { return suffix(c.sigCount, c.sigSeen, name) }

func isConstant(net string) bool { return net == GND || net == VCC }

// schedule records a pending merge of net slave into net master.
//
func (c *context) schedule(line int, master, slave string) error {
	switch {
	case master == slave:
		return nil
	case isConstant(slave):
		if isConstant(master) {
			return errorf(line, "constant nets %s and %s are connected", master, slave)
		}
		master, slave = slave, master
	}
	if _, ok := c.merges[master]; !ok {
		c.masters = append(c.masters, master)
	}
	c.merges[master] = append(c.merges[master], slave)
	return nil
}

// instantiate creates the module for an instance of entity e within parent
// and everything it contains. ports maps the port bits of e to the nets
// they are connected to in the parent. The top module is created when
// parent is hwnet.NoModule.
//
func (c *context) instantiate(inst *design.Instance, e *design.Entity, parent hwnet.ModuleID, ports *socket) (*hwnet.Module, error) {
	name := inst.Name + c.instanceSuffix(inst.Name)
	m, err := c.nl.CreateModule(name, e.Name, parent)
	if err != nil {
		return nil, errorf(inst.Line, "%v", err)
	}
	x, err := e.Expanded()
	if err != nil {
		return nil, err
	}

	scope := newSocket()
	for i, p := range e.Ports() {
		for _, bit := range x.Ports[i].Bits {
			if n, ok := ports.net(bit); ok {
				scope.bind(bit, n)
				continue
			}
			// unconnected port
			n := name + "/" + bit
			if _, err = c.nl.CreateNet(n); err != nil {
				return nil, errorf(p.Line, "%v", err)
			}
			scope.bind(bit, n)
		}
	}
	for i, s := range e.Signals() {
		sfx := c.signalSuffix(s.Name)
		for _, bit := range x.Signals[i].Bits {
			n := bit + sfx
			if _, err = c.nl.CreateNet(n); err != nil {
				return nil, errorf(s.Line, "%v", err)
			}
			scope.bind(bit, n)
		}
	}

	for _, a := range x.Assignments {
		lhs, ok := scope.net(a.LHS)
		if !ok {
			return nil, errorf(e.Line, "signal %s is not declared in entity %s", a.LHS, e.Name)
		}
		rhs, ok := scope.net(a.RHS)
		if !ok {
			return nil, errorf(e.Line, "signal %s is not declared in entity %s", a.RHS, e.Name)
		}
		if err = c.schedule(e.Line, rhs, lhs); err != nil {
			return nil, err
		}
	}

	for _, sub := range e.Instances() {
		pairs, err := sub.Expand()
		if err != nil {
			return nil, err
		}
		conns := newSocket()
		for _, p := range pairs {
			n, ok := scope.net(p.RHS)
			if !ok {
				return nil, errorf(sub.Line, "signal assignment \"%s = %s\" of instance %s is invalid", p.LHS, p.RHS, sub.Name)
			}
			conns.bind(p.LHS, n)
		}

		var data hwnet.Data
		if se, ok := c.d.Entity(sub.Type); ok {
			sm, err := c.instantiate(sub, se, m.ID, conns)
			if err != nil {
				return nil, err
			}
			data = sm.Data
		} else {
			gt, _ := c.lib.Type(sub.Type)
			g, err := c.gate(sub, gt, m.ID, pairs, conns)
			if err != nil {
				return nil, err
			}
			data = g.Data
		}
		for _, gen := range sub.Generics {
			data.Set("generic", gen.Name, gen.Type, gen.Value)
		}
		for _, a := range e.Attributes(design.InstanceAttr, sub.Name) {
			data.Set("attribute", a.Name, a.Type, a.Value)
		}
	}

	for _, a := range e.Attributes(design.EntityAttr, e.Name) {
		m.Data.Set("attribute", a.Name, a.Type, a.Value)
	}
	for _, target := range e.AttributeTargets(design.SignalAttr) {
		s, ok := e.Lookup(target)
		if !ok {
			c.log.WithField("line", e.Line).Warnf("attribute target %s is not a signal of entity %s", target, e.Name)
			continue
		}
		for _, bit := range s.Expand() {
			n, _ := scope.net(bit)
			net, ok := c.nl.NetByName(n)
			if !ok {
				continue
			}
			for _, a := range e.Attributes(design.SignalAttr, target) {
				net.Data.Set("attribute", a.Name, a.Type, a.Value)
			}
		}
	}
	return m, nil
}

// gate creates a gate instance and connects its pins.
//
func (c *context) gate(inst *design.Instance, gt *gatelib.Type, m hwnet.ModuleID, pairs []design.Pair, conns *socket) (*hwnet.Gate, error) {
	g, err := c.nl.CreateGate(c.nl.UniqueGateID(), gt, inst.Name+c.instanceSuffix(inst.Name), m)
	if err != nil {
		return nil, errorf(inst.Line, "%v", err)
	}
	if gatelib.IsGND(gt) {
		c.nl.MarkGND(g.ID)
	}
	if gatelib.IsVCC(gt) {
		c.nl.MarkVCC(g.ID)
	}
	for _, p := range pairs {
		name, _ := conns.net(p.LHS)
		net, ok := c.nl.NetByName(name)
		if !ok {
			return nil, errorf(inst.Line, "net %s of instance %s does not exist", name, inst.Name)
		}
		in, isIn := gt.Input(p.LHS)
		out, isOut := gt.Output(p.LHS)
		if !isIn && !isOut {
			return nil, errorf(inst.Line, "undefined pin %s of gate %s (type %s)", p.LHS, g.Name, gt.Name)
		}
		if isOut {
			if err = c.nl.AddSource(net.ID, g.ID, out); err != nil {
				return nil, errorf(inst.Line, "%v", err)
			}
		}
		if isIn {
			if err = c.nl.AddDestination(net.ID, g.ID, in); err != nil {
				return nil, errorf(inst.Line, "%v", err)
			}
		}
	}
	return g, nil
}

// merge runs the pending net merges. A master is merged only once none of
// its slaves is itself a pending master.
//
func (c *context) merge() error {
	alias := make(map[string]string)
	resolve := func(n string) string {
		for {
			a, ok := alias[n]
			if !ok {
				return n
			}
			n = a
		}
	}
	for len(c.masters) > 0 {
		progress := false
		for i, master := range c.masters {
			slaves := c.merges[master]
			blocked := false
			for _, s := range slaves {
				if _, ok := c.merges[s]; ok {
					blocked = true
					break
				}
			}
			if blocked {
				continue
			}
			into := resolve(master)
			for _, s := range slaves {
				from := resolve(s)
				if from == into {
					continue
				}
				if isConstant(from) {
					if isConstant(into) {
						return errorf(lex.NoLine, "constant nets %s and %s are connected", into, from)
					}
					into, from = from, into
				}
				mn, ok := c.nl.NetByName(into)
				if !ok {
					return errors.Errorf("merge: no net named %s", into)
				}
				sn, ok := c.nl.NetByName(from)
				if !ok {
					return errors.Errorf("merge: no net named %s", from)
				}
				if err := c.nl.MergeNets(mn.ID, sn.ID); err != nil {
					return errors.Wrap(err, "merge")
				}
				alias[from] = into
			}
			delete(c.merges, master)
			c.masters = append(c.masters[:i], c.masters[i+1:]...)
			progress = true
			break
		}
		if !progress {
			return errorf(lex.NoLine, "cyclic dependency between signals found, cannot elaborate netlist")
		}
	}
	return nil
}

// drivers drives the constant nets with a ground or power gate placed in the
// top module, or deletes them if nothing uses them.
//
func (c *context) drivers(top hwnet.ModuleID) error {
	for _, d := range []struct {
		net   string
		gate  string
		types []*gatelib.Type
		mark  func(hwnet.GateID)
	}{
		{GND, GNDGate, c.lib.GNDTypes(), c.nl.MarkGND},
		{VCC, VCCGate, c.lib.VCCTypes(), c.nl.MarkVCC},
	} {
		n, ok := c.nl.NetByName(d.net)
		if !ok {
			continue
		}
		if len(n.Destinations) == 0 && !n.GlobalOutput {
			if err := c.nl.DeleteNet(n.ID); err != nil {
				return err
			}
			continue
		}
		if len(n.Sources) > 0 {
			continue
		}
		if len(d.types) == 0 {
			return errorf(lex.NoLine, "net %s is used but gate library %s has no gate type to drive it", d.net, c.lib.Name)
		}
		gt := d.types[0]
		g, err := c.nl.CreateGate(c.nl.UniqueGateID(), gt, d.gate, top)
		if err != nil {
			return err
		}
		d.mark(g.ID)
		if err = c.nl.AddSource(n.ID, g.ID, gt.Outputs[0]); err != nil {
			return err
		}
		c.log.Debugf("net %s driven by %s gate %s", d.net, gt.Name, d.gate)
	}
	return nil
}
