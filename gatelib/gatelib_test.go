// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package gatelib_test

import (
	"reflect"
	"testing"

	"github.com/db47h/hwnet/boolfunc"
	"github.com/db47h/hwnet/gatelib"
)

func constType(t *testing.T, name, fn string) *gatelib.Type {
	t.Helper()
	gt := gatelib.NewType(name, gatelib.Combinational)
	gt.AddOutputPins("O")
	f, err := boolfunc.Parse(fn)
	if err != nil {
		t.Fatal(err)
	}
	gt.Functions["O"] = f
	return gt
}

func TestLibrary_constants(t *testing.T) {
	l := gatelib.NewLibrary("test")
	for _, gt := range []*gatelib.Type{
		constType(t, "VCC_B", "1"),
		constType(t, "GND", "0"),
		constType(t, "VCC_A", "!0"),
	} {
		if err := l.Add(gt); err != nil {
			t.Fatal(err)
		}
	}
	buf := constType(t, "BUF", "I")
	buf.AddInputPins("I")
	if err := l.Add(buf); err != nil {
		t.Fatal(err)
	}
	if err := l.Add(constType(t, "GND", "0")); err == nil {
		t.Fatal("duplicate type not detected")
	}

	var names []string
	for _, gt := range l.VCCTypes() {
		names = append(names, gt.Name)
	}
	if !reflect.DeepEqual(names, []string{"VCC_A", "VCC_B"}) {
		t.Fatalf("got VCC types %v", names)
	}
	if gnd := l.GNDTypes(); len(gnd) != 1 || gnd[0].Name != "GND" || !gatelib.IsGND(gnd[0]) {
		t.Fatalf("got GND types %v", gnd)
	}
	if gatelib.IsVCC(buf) || gatelib.IsGND(buf) {
		t.Fatal("BUF classified as constant")
	}
	if gt, ok := l.Type("buf"); !ok || gt != buf {
		t.Fatal("case insensitive type lookup failed")
	}
}

func TestType_pins(t *testing.T) {
	gt := gatelib.NewType("RAM", gatelib.Combinational)
	gt.AddInputPins("WE")
	gt.AddInputGroup("A", []int{0, 1})
	gt.AddOutputGroup("D", []int{3, 2, 1, 0})
	if exp := []string{"WE", "A(0)", "A(1)"}; !reflect.DeepEqual(gt.Inputs, exp) {
		t.Fatalf("got inputs %v", gt.Inputs)
	}
	if n, idx, ok := gt.PinGroup("d"); !ok || n != "D" || len(idx) != 4 {
		t.Fatalf("D: got %s %v %v", n, idx, ok)
	}
	if n, idx, ok := gt.PinGroup("WE"); !ok || n != "WE" || idx != nil {
		t.Fatalf("WE: got %s %v %v", n, idx, ok)
	}
	if _, _, ok := gt.PinGroup("X"); ok {
		t.Fatal("found X")
	}
	if n, ok := gt.Output("d(2)"); !ok || n != "D(2)" {
		t.Fatalf("got %s", n)
	}
	if _, ok := gt.Input("D(2)"); ok {
		t.Fatal("D(2) is an output")
	}
}

func TestParseSetReset(t *testing.T) {
	for i, c := range []string{"L", "H", "N", "T", "X"} {
		b, ok := gatelib.ParseSetReset(c)
		if !ok || int(b) != i+1 || b.String() != c {
			t.Errorf("%s: got %v %v", c, b, ok)
		}
	}
	if _, ok := gatelib.ParseSetReset("Q"); ok {
		t.Error("Q accepted")
	}
}
