// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package export renders netlists as JSON documents and validates such
// documents against an embedded CUE schema.
//
// Gates, nets and modules are referenced by their numeric handle. Gate pins
// map to net names.
//
package export

import (
	"encoding/json"
	"io"

	"github.com/db47h/hwnet"
	"github.com/pkg/errors"
)

// Datum is a piece of auxiliary data.
//
type Datum struct {
	Category string `json:"category"`
	Key      string `json:"key"`
	Type     string `json:"type"`
	Value    string `json:"value"`
}

// Endpoint is a gate pin connected to a net.
//
type Endpoint struct {
	Gate int    `json:"gate"`
	Pin  string `json:"pin"`
}

// Module is the JSON form of a module instance.
//
type Module struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	Type   string  `json:"type"`
	Parent int     `json:"parent,omitempty"`
	Data   []Datum `json:"data,omitempty"`
}

// Gate is the JSON form of a gate instance.
//
type Gate struct {
	ID      int               `json:"id"`
	Name    string            `json:"name"`
	Type    string            `json:"type"`
	Module  int               `json:"module"`
	GND     bool              `json:"gnd,omitempty"`
	VCC     bool              `json:"vcc,omitempty"`
	Inputs  map[string]string `json:"inputs,omitempty"`
	Outputs map[string]string `json:"outputs,omitempty"`
	Data    []Datum           `json:"data,omitempty"`
}

// Net is the JSON form of a net.
//
type Net struct {
	ID           int        `json:"id"`
	Name         string     `json:"name"`
	Sources      []Endpoint `json:"sources,omitempty"`
	Destinations []Endpoint `json:"destinations,omitempty"`
	GlobalInput  bool       `json:"global_input,omitempty"`
	GlobalOutput bool       `json:"global_output,omitempty"`
	Data         []Datum    `json:"data,omitempty"`
}

// Netlist is the JSON form of a netlist.
//
type Netlist struct {
	Name    string   `json:"name"`
	Library string   `json:"library"`
	Modules []Module `json:"modules"`
	Gates   []Gate   `json:"gates"`
	Nets    []Net    `json:"nets"`
}

func data(d hwnet.Data) []Datum {
	var r []Datum
	for _, k := range d.Keys() {
		v := d[k]
		r = append(r, Datum{k.Category, k.Key, v.Type, v.Value})
	}
	return r
}

func endpoints(eps []hwnet.Endpoint) []Endpoint {
	var r []Endpoint
	for _, ep := range eps {
		r = append(r, Endpoint{int(ep.Gate), ep.Pin})
	}
	return r
}

func pins(nl *hwnet.Netlist, m map[string]hwnet.NetID) map[string]string {
	if len(m) == 0 {
		return nil
	}
	r := make(map[string]string, len(m))
	for pin, id := range m {
		if n := nl.Net(id); n != nil {
			r[pin] = n.Name
		}
	}
	return r
}

// Build converts nl to its JSON form. Modules and gates are listed by
// handle, nets in creation order.
//
func Build(nl *hwnet.Netlist) *Netlist {
	r := &Netlist{
		Name:    nl.Name,
		Modules: []Module{},
		Gates:   []Gate{},
		Nets:    []Net{},
	}
	if nl.Library != nil {
		r.Library = nl.Library.Name
	}
	for _, m := range nl.Modules() {
		r.Modules = append(r.Modules, Module{
			ID:     int(m.ID),
			Name:   m.Name,
			Type:   m.Type,
			Parent: int(m.Parent),
			Data:   data(m.Data),
		})
	}
	for _, g := range nl.Gates() {
		r.Gates = append(r.Gates, Gate{
			ID:      int(g.ID),
			Name:    g.Name,
			Type:    g.Type.Name,
			Module:  int(g.Module),
			GND:     nl.IsGND(g.ID),
			VCC:     nl.IsVCC(g.ID),
			Inputs:  pins(nl, g.Inputs),
			Outputs: pins(nl, g.Outputs),
			Data:    data(g.Data),
		})
	}
	for _, n := range nl.Nets() {
		r.Nets = append(r.Nets, Net{
			ID:           int(n.ID),
			Name:         n.Name,
			Sources:      endpoints(n.Sources),
			Destinations: endpoints(n.Destinations),
			GlobalInput:  n.GlobalInput,
			GlobalOutput: n.GlobalOutput,
			Data:         data(n.Data),
		})
	}
	return r
}

// Write writes the indented JSON form of nl to w.
//
func Write(w io.Writer, nl *hwnet.Netlist) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(Build(nl)), "export netlist")
}
