// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package nettest provides utility functions for testing netlists.
//
package nettest

import (
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/db47h/hwnet"
	"github.com/db47h/hwnet/elab"
	"github.com/db47h/hwnet/gatelib"
	"github.com/db47h/hwnet/liberty"
	"github.com/db47h/hwnet/vhdl"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

// Cells is a small gate library in Liberty format.
//
const Cells = `
library (nettest) {
  type (bus4) {
    base_type : array ;
    data_type : bit ;
    bit_width : 4 ;
    bit_from : 3 ;
    bit_to : 0 ;
    downto : true ;
  }
  cell (INV) {
    pin (I) { direction : input ; }
    pin (O) { direction : output ; function : "I'" ; }
  }
  cell (BUF) {
    pin (I) { direction : input ; }
    pin (O) { direction : output ; function : "I" ; }
  }
  cell (AND2) {
    pin (A, B) { direction : input ; }
    pin (O) { direction : output ; function : "A & B" ; }
  }
  cell (XOR2) {
    pin (A, B) { direction : input ; }
    pin (O) { direction : output ; function : "A ^ B" ; }
  }
  cell (BUF4) {
    bus (I) { bus_type : bus4 ; direction : input ; }
    bus (O) {
      bus_type : bus4 ;
      direction : output ;
      pin (O[3:0]) { function : "I[3]" ; }
    }
  }
  cell (GND) {
    pin (O) { direction : output ; function : "0" ; }
  }
  cell (VCC) {
    pin (O) { direction : output ; function : "1" ; }
  }
  cell (DFF) {
    ff (IQ, IQN) {
      next_state : "D" ;
      clocked_on : "C" ;
    }
    pin (D, C) { direction : input ; }
    pin (Q) { direction : output ; function : "IQ" ; }
  }
}
`

func trace(t testing.TB, err error) {
	t.Helper()
	if err, ok := err.(interface {
		StackTrace() errors.StackTrace
	}); ok {
		for _, f := range err.StackTrace() {
			t.Logf("%+v ", f)
		}
	}
}

// Logger returns a logger that discards its output and a hook recording
// all entries.
//
func Logger() (logrus.FieldLogger, *test.Hook) {
	return test.NewNullLogger()
}

// Library parses Cells.
//
func Library(t testing.TB) *gatelib.Library {
	t.Helper()
	log, _ := Logger()
	lib, err := (&liberty.Parser{Log: log}).Parse(strings.NewReader(Cells))
	if err != nil {
		trace(t, err)
		t.Fatal(err)
	}
	return lib
}

// Elaborate parses the VHDL source src and elaborates it against Cells. It
// returns the netlist or the first parse or elaboration error, together
// with the hook holding the log entries.
//
func Elaborate(t testing.TB, src, top string) (*hwnet.Netlist, *test.Hook, error) {
	t.Helper()
	log, hook := Logger()
	d, err := (&vhdl.Parser{Log: log}).Parse(strings.NewReader(src))
	if err != nil {
		return nil, hook, err
	}
	nl, err := (&elab.Elaborator{Log: log}).Elaborate(d, Library(t), top)
	return nl, hook, err
}

// MustElaborate is like Elaborate but fails the test on error.
//
func MustElaborate(t testing.TB, src, top string) *hwnet.Netlist {
	t.Helper()
	nl, _, err := Elaborate(t, src, top)
	if err != nil {
		trace(t, err)
		t.Fatal(err)
	}
	return nl
}

// NetNames returns the sorted names of all nets in nl.
//
func NetNames(nl *hwnet.Netlist) []string {
	var r []string
	for _, n := range nl.Nets() {
		r = append(r, n.Name)
	}
	sort.Strings(r)
	return r
}

// Endpoints returns the endpoints of net as sorted "gate.pin" strings.
//
func Endpoints(nl *hwnet.Netlist, eps []hwnet.Endpoint) []string {
	r := make([]string, 0, len(eps))
	for _, ep := range eps {
		r = append(r, nl.Gate(ep.Gate).Name+"."+ep.Pin)
	}
	sort.Strings(r)
	return r
}

// CheckNet fails the test if the net named name does not exist or if its
// sources and destinations, given as "gate.pin" strings, differ from the
// expected ones.
//
func CheckNet(t testing.TB, nl *hwnet.Netlist, name string, sources, destinations []string) *hwnet.Net {
	t.Helper()
	n, ok := nl.NetByName(name)
	if !ok {
		t.Fatalf("net %s not found in %v", name, NetNames(nl))
	}
	sort.Strings(sources)
	sort.Strings(destinations)
	if got := Endpoints(nl, n.Sources); !equal(got, sources) {
		t.Errorf("net %s: got sources %v, expected %v", name, got, sources)
	}
	if got := Endpoints(nl, n.Destinations); !equal(got, destinations) {
		t.Errorf("net %s: got destinations %v, expected %v", name, got, destinations)
	}
	return n
}

func equal(a, b []string) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}
