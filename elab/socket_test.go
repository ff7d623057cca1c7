// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package elab

import "testing"

func TestSocket(t *testing.T) {
	s := newSocket()
	s.bind("Data(3)", "bus(3)")
	for _, d := range []struct {
		name string
		net  string
		ok   bool
	}{
		{"data(3)", "bus(3)", true},
		{"DATA(3)", "bus(3)", true},
		{"data(2)", "", false},
		{GND, GND, true},
		{VCC, VCC, true},
	} {
		if n, ok := s.net(d.name); n != d.net || ok != d.ok {
			t.Errorf("net(%q): got %q, %v", d.name, n, ok)
		}
	}
}

func TestSuffix(t *testing.T) {
	count := map[string]int{"g": 3, "solo": 1}
	seen := make(map[string]int)
	var got []string
	for _, n := range []string{"g", "solo", "G", "g"} {
		got = append(got, n+suffix(count, seen, n))
	}
	exp := []string{"g", "solo", "G(1)", "g(2)"}
	for i := range exp {
		if got[i] != exp[i] {
			t.Fatalf("got %v, expected %v", got, exp)
		}
	}
}
