// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwnet_test

import (
	"reflect"
	"testing"

	"github.com/db47h/hwnet"
	"github.com/db47h/hwnet/gatelib"
	"github.com/pkg/errors"
)

func trace(t *testing.T, err error) {
	t.Helper()
	if err, ok := err.(interface {
		StackTrace() errors.StackTrace
	}); ok {
		for _, f := range err.StackTrace() {
			t.Logf("%+v ", f)
		}
	}
}

func check(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		trace(t, err)
		t.Fatal(err)
	}
}

func and2() *gatelib.Type {
	t := gatelib.NewType("AND2", gatelib.Combinational)
	t.AddInputPins("A", "B")
	t.AddOutputPins("O")
	return t
}

func setup(t *testing.T) (*hwnet.Netlist, *hwnet.Module, *hwnet.Gate, *hwnet.Gate) {
	t.Helper()
	lib := gatelib.NewLibrary("test")
	typ := and2()
	if err := lib.Add(typ); err != nil {
		t.Fatal(err)
	}
	nl := hwnet.New("test", lib)
	top, err := nl.CreateModule("top", "top", hwnet.NoModule)
	check(t, err)
	g0, err := nl.CreateGate(nl.UniqueGateID(), typ, "u0", top.ID)
	check(t, err)
	g1, err := nl.CreateGate(nl.UniqueGateID(), typ, "u1", top.ID)
	check(t, err)
	return nl, top, g0, g1
}

func TestNetlist_create(t *testing.T) {
	nl, top, g0, g1 := setup(t)
	if g0.ID == g1.ID || g0.ID == hwnet.NoGate {
		t.Fatalf("bad gate ids %d, %d", g0.ID, g1.ID)
	}
	if !reflect.DeepEqual(top.Gates, []hwnet.GateID{g0.ID, g1.ID}) {
		t.Fatalf("got module gates %v", top.Gates)
	}
	if _, err := nl.CreateGate(g0.ID, g0.Type, "dup", top.ID); err == nil {
		t.Fatal("duplicate gate id accepted")
	}
	if _, err := nl.CreateGate(nl.UniqueGateID(), g0.Type, "orphan", 42); err == nil {
		t.Fatal("gate in unknown module accepted")
	}
	if _, err := nl.CreateModule("top2", "top", hwnet.NoModule); err == nil {
		t.Fatal("second top module accepted")
	}
	sub, err := nl.CreateModule("sub", "HA", top.ID)
	check(t, err)
	if sub.Parent != top.ID || !reflect.DeepEqual(top.Submodules, []hwnet.ModuleID{sub.ID}) || nl.TopModule() != top {
		t.Fatal("bad module hierarchy")
	}
	_, err = nl.CreateNet("a")
	check(t, err)
	if _, err := nl.CreateNet("a"); err == nil {
		t.Fatal("duplicate net name accepted")
	}
	if _, err := nl.CreateNet(""); err == nil {
		t.Fatal("empty net name accepted")
	}
	if g, ok := nl.GateByName("u1"); !ok || g != g1 {
		t.Fatal("gate lookup failed")
	}
}

func TestNetlist_endpoints(t *testing.T) {
	nl, _, g0, g1 := setup(t)
	n, _ := nl.CreateNet("n")
	m, _ := nl.CreateNet("m")

	check(t, nl.AddSource(n.ID, g0.ID, "o"))
	if err := nl.AddSource(n.ID, g0.ID, "O"); err != nil {
		t.Fatal("re-adding a source failed:", err)
	}
	if len(n.Sources) != 1 || n.Sources[0] != (hwnet.Endpoint{Gate: g0.ID, Pin: "O"}) {
		t.Fatalf("got sources %v", n.Sources)
	}
	if err := nl.AddSource(m.ID, g0.ID, "O"); err == nil {
		t.Fatal("output connected to two nets")
	}
	if err := nl.AddSource(n.ID, g1.ID, "A"); err == nil {
		t.Fatal("input pin accepted as source")
	}
	check(t, nl.AddDestination(n.ID, g1.ID, "A"))
	if !nl.IsSource(n.ID, g0.ID, "O") || !nl.IsDestination(n.ID, g1.ID, "A") || nl.IsDestination(n.ID, g1.ID, "B") {
		t.Fatal("bad endpoint queries")
	}
	if g1.Inputs["A"] != n.ID || g0.Outputs["O"] != n.ID {
		t.Fatal("gate pins not connected")
	}

	check(t, nl.RemoveDestination(n.ID, g1.ID, "A"))
	if err := nl.RemoveDestination(n.ID, g1.ID, "A"); err == nil {
		t.Fatal("removed a destination twice")
	}
	if _, ok := g1.Inputs["A"]; ok || len(n.Destinations) != 0 {
		t.Fatal("destination not removed")
	}

	check(t, nl.DeleteNet(n.ID))
	if _, ok := g0.Outputs["O"]; ok {
		t.Fatal("gate still connected to deleted net")
	}
	if _, ok := nl.NetByName("n"); ok {
		t.Fatal("deleted net still found by name")
	}
}

func TestNetlist_MergeNets(t *testing.T) {
	nl, _, g0, g1 := setup(t)
	a, _ := nl.CreateNet("A")
	b, _ := nl.CreateNet("B")
	for _, err := range []error{
		nl.AddSource(a.ID, g0.ID, "O"),
		nl.AddDestination(a.ID, g1.ID, "A"),
		nl.AddDestination(b.ID, g1.ID, "B"),
		nl.MarkGlobalOutput(a.ID),
	} {
		check(t, err)
	}
	a.Data.Set("attribute", "keep", "boolean", "true")

	check(t, nl.MergeNets(b.ID, a.ID))
	if _, ok := nl.NetByName("A"); ok {
		t.Fatal("slave net still exists")
	}
	if len(b.Sources) != 1 || len(b.Destinations) != 2 || !b.GlobalOutput || b.GlobalInput {
		t.Fatalf("bad merged net %+v", b)
	}
	if v, ok := b.Data.Get("attribute", "keep"); !ok || v.Value != "true" {
		t.Fatal("data not merged")
	}
	if g0.Outputs["O"] != b.ID || g1.Inputs["A"] != b.ID {
		t.Fatal("gate pins not moved to master")
	}
	if err := nl.MergeNets(b.ID, b.ID); err == nil {
		t.Fatal("merged a net into itself")
	}
}

func TestNetlist_Prune(t *testing.T) {
	nl, _, g0, _ := setup(t)
	in, _ := nl.CreateNet("in")
	if err := nl.MarkGlobalInput(in.ID); err != nil {
		t.Fatal(err)
	}
	nl.CreateNet("floating")
	used, _ := nl.CreateNet("used")
	if err := nl.AddDestination(used.ID, g0.ID, "A"); err != nil {
		t.Fatal(err)
	}
	if got := nl.Prune(); !reflect.DeepEqual(got, []string{"floating"}) {
		t.Fatalf("pruned %v", got)
	}
	var names []string
	for _, n := range nl.Nets() {
		names = append(names, n.Name)
	}
	if !reflect.DeepEqual(names, []string{"in", "used"}) {
		t.Fatalf("remaining nets %v", names)
	}
	if len(nl.GlobalInputs()) != 1 || len(nl.GlobalOutputs()) != 0 {
		t.Fatal("bad global nets")
	}
}

func TestData_Keys(t *testing.T) {
	d := make(hwnet.Data)
	d.Set("generic", "b", "integer", "1")
	d.Set("attribute", "z", "string", "x")
	d.Set("generic", "a", "integer", "2")
	exp := []hwnet.DataKey{{"attribute", "z"}, {"generic", "a"}, {"generic", "b"}}
	if k := d.Keys(); !reflect.DeepEqual(k, exp) {
		t.Fatalf("got %v", k)
	}
}
