// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package elab

import (
	"github.com/db47h/hwnet/design"
)

// Constant net names.
//
const (
	GND = "'0'"
	VCC = "'1'"
)

// A socket maps the bit level names visible within one module instance to
// the names of the nets they are connected to. Names are case-insensitive.
//
type socket struct {
	m map[string]string
}

func newSocket() *socket {
	return &socket{m: make(map[string]string)}
}

// bind connects a local bit name to a net.
//
func (s *socket) bind(name, net string) {
	s.m[design.Key(name)] = net
}

// net returns the net connected to the given local bit name. The constant
// names always resolve to themselves.
//
func (s *socket) net(name string) (string, bool) {
	if n, ok := s.m[design.Key(name)]; ok {
		return n, true
	}
	if name == GND || name == VCC {
		return name, true
	}
	return "", false
}
