// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwnet

import (
	"github.com/pkg/errors"
)

// MergeNets moves all endpoints, global flags and data of net slave into net
// master, then deletes slave. Endpoints already present in master are not
// duplicated. Data already set on master is overwritten by the slave's.
//
func (nl *Netlist) MergeNets(master, slave NetID) error {
	if master == slave {
		return errors.Errorf("cannot merge net %d into itself", master)
	}
	m, s := nl.nets[master], nl.nets[slave]
	if m == nil {
		return errors.Errorf("no net with id %d", master)
	}
	if s == nil {
		return errors.Errorf("no net with id %d", slave)
	}

	if s.GlobalInput {
		m.GlobalInput = true
	}
	for _, ep := range s.Sources {
		g := nl.gates[ep.Gate]
		delete(g.Outputs, ep.Pin)
		if indexOf(m.Sources, ep) < 0 {
			m.Sources = append(m.Sources, ep)
			g.Outputs[ep.Pin] = master
		}
	}
	s.Sources = nil

	if s.GlobalOutput {
		m.GlobalOutput = true
	}
	for _, ep := range s.Destinations {
		g := nl.gates[ep.Gate]
		delete(g.Inputs, ep.Pin)
		if indexOf(m.Destinations, ep) < 0 {
			m.Destinations = append(m.Destinations, ep)
			g.Inputs[ep.Pin] = master
		}
	}
	s.Destinations = nil

	for k, v := range s.Data {
		m.Data[k] = v
	}
	return nl.DeleteNet(slave)
}

// Prune deletes all floating nets and returns their names.
//
func (nl *Netlist) Prune() []string {
	var names []string
	for _, n := range nl.Nets() {
		if n.Floating() {
			names = append(names, n.Name)
			// cannot fail: n exists
			_ = nl.DeleteNet(n.ID)
		}
	}
	return names
}
