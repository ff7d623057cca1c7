// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

/*
Package hwnet provides a gate level netlist graph: gates, nets, modules and
the endpoints connecting gate pins to nets.

A Netlist is an arena. Gates, nets and modules live in the netlist and refer
to each other through GateID, NetID and ModuleID handles:

	nl := hwnet.New("top", lib)
	top, _ := nl.CreateModule("top", "top", hwnet.NoModule)
	n, _ := nl.CreateNet("a")
	g, _ := nl.CreateGate(nl.UniqueGateID(), and2, "u0", top.ID)
	err := nl.AddDestination(n.ID, g.ID, "A")

Netlists are usually built by the elab package from a design parsed by the
vhdl package, using gate types read by the liberty package:

	lib, err := (&liberty.Parser{}).Parse(libFile)
	d, err := (&vhdl.Parser{}).Parse(hdlFile)
	nl, err := (&elab.Elaborator{}).Elaborate(d, lib, "")

The netlist is not safe for concurrent mutation.
*/
package hwnet
