// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwnet

import (
	"github.com/db47h/hwnet/gatelib"
	"github.com/pkg/errors"
)

// An Endpoint is a gate pin connected to a net. Endpoints are compared by
// value.
//
type Endpoint struct {
	Gate          GateID
	Pin           string
	IsDestination bool
}

// A Net connects gate output pins (sources) to gate input pins
// (destinations).
//
type Net struct {
	ID           NetID
	Name         string
	Sources      []Endpoint
	Destinations []Endpoint
	GlobalInput  bool
	GlobalOutput bool
	Data         Data
}

// Floating reports whether the net has no endpoints and is not a global
// input or output.
//
func (n *Net) Floating() bool {
	return len(n.Sources) == 0 && len(n.Destinations) == 0 && !n.GlobalInput && !n.GlobalOutput
}

// A Gate is an instance of a gate type.
//
type Gate struct {
	ID      GateID
	Name    string
	Type    *gatelib.Type
	Module  ModuleID
	Inputs  map[string]NetID // input pin -> net
	Outputs map[string]NetID // output pin -> net
	Data    Data
}

// A Module is a node of the design hierarchy. Type is the name of the entity
// it was instantiated from.
//
type Module struct {
	ID         ModuleID
	Name       string
	Type       string
	Parent     ModuleID
	Gates      []GateID
	Submodules []ModuleID
	Data       Data
}

func indexOf(eps []Endpoint, ep Endpoint) int {
	for i := range eps {
		if eps[i] == ep {
			return i
		}
	}
	return -1
}

func remove(eps []Endpoint, i int) []Endpoint {
	return append(eps[:i], eps[i+1:]...)
}

func (nl *Netlist) endpoint(net NetID, gate GateID, pin string, dst bool) (*Net, *Gate, string, error) {
	n := nl.nets[net]
	if n == nil {
		return nil, nil, "", errors.Errorf("no net with id %d", net)
	}
	g := nl.gates[gate]
	if g == nil {
		return nil, nil, "", errors.Errorf("net %s: no gate with id %d", n.Name, gate)
	}
	var (
		p  string
		ok bool
	)
	if dst {
		p, ok = g.Type.Input(pin)
	} else {
		p, ok = g.Type.Output(pin)
	}
	if !ok {
		kind := "output"
		if dst {
			kind = "input"
		}
		return nil, nil, "", errors.Errorf("net %s: %s is no %s pin of gate %s (type %s)", n.Name, pin, kind, g.Name, g.Type.Name)
	}
	return n, g, p, nil
}

// AddSource connects an output pin of a gate to the net. Adding an existing
// source is a no-op.
//
func (nl *Netlist) AddSource(net NetID, gate GateID, pin string) error {
	n, g, p, err := nl.endpoint(net, gate, pin, false)
	if err != nil {
		return err
	}
	ep := Endpoint{Gate: gate, Pin: p}
	if indexOf(n.Sources, ep) >= 0 {
		return nil
	}
	if other, ok := g.Outputs[p]; ok {
		return errors.Errorf("output %s of gate %s is already connected to net %s", p, g.Name, nl.nets[other].Name)
	}
	n.Sources = append(n.Sources, ep)
	g.Outputs[p] = net
	return nil
}

// AddDestination connects an input pin of a gate to the net. Adding an
// existing destination is a no-op.
//
func (nl *Netlist) AddDestination(net NetID, gate GateID, pin string) error {
	n, g, p, err := nl.endpoint(net, gate, pin, true)
	if err != nil {
		return err
	}
	ep := Endpoint{Gate: gate, Pin: p, IsDestination: true}
	if indexOf(n.Destinations, ep) >= 0 {
		return nil
	}
	if other, ok := g.Inputs[p]; ok {
		return errors.Errorf("input %s of gate %s is already connected to net %s", p, g.Name, nl.nets[other].Name)
	}
	n.Destinations = append(n.Destinations, ep)
	g.Inputs[p] = net
	return nil
}

// RemoveSource disconnects a gate output pin from the net.
//
func (nl *Netlist) RemoveSource(net NetID, gate GateID, pin string) error {
	n, g, p, err := nl.endpoint(net, gate, pin, false)
	if err != nil {
		return err
	}
	i := indexOf(n.Sources, Endpoint{Gate: gate, Pin: p})
	if i < 0 {
		return errors.Errorf("output %s of gate %s is not a source of net %s", p, g.Name, n.Name)
	}
	n.Sources = remove(n.Sources, i)
	delete(g.Outputs, p)
	return nil
}

// RemoveDestination disconnects a gate input pin from the net.
//
func (nl *Netlist) RemoveDestination(net NetID, gate GateID, pin string) error {
	n, g, p, err := nl.endpoint(net, gate, pin, true)
	if err != nil {
		return err
	}
	i := indexOf(n.Destinations, Endpoint{Gate: gate, Pin: p, IsDestination: true})
	if i < 0 {
		return errors.Errorf("input %s of gate %s is not a destination of net %s", p, g.Name, n.Name)
	}
	n.Destinations = remove(n.Destinations, i)
	delete(g.Inputs, p)
	return nil
}

// IsSource reports whether the gate output pin is a source of the net.
//
func (nl *Netlist) IsSource(net NetID, gate GateID, pin string) bool {
	n := nl.nets[net]
	return n != nil && indexOf(n.Sources, Endpoint{Gate: gate, Pin: pin}) >= 0
}

// IsDestination reports whether the gate input pin is a destination of the
// net.
//
func (nl *Netlist) IsDestination(net NetID, gate GateID, pin string) bool {
	n := nl.nets[net]
	return n != nil && indexOf(n.Destinations, Endpoint{Gate: gate, Pin: pin, IsDestination: true}) >= 0
}

// MarkGlobalInput marks the net as a global input of the netlist.
//
func (nl *Netlist) MarkGlobalInput(net NetID) error {
	n := nl.nets[net]
	if n == nil {
		return errors.Errorf("no net with id %d", net)
	}
	n.GlobalInput = true
	return nil
}

// MarkGlobalOutput marks the net as a global output of the netlist.
//
func (nl *Netlist) MarkGlobalOutput(net NetID) error {
	n := nl.nets[net]
	if n == nil {
		return errors.Errorf("no net with id %d", net)
	}
	n.GlobalOutput = true
	return nil
}
