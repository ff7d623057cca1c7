// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package design

import (
	"strconv"

	"github.com/pkg/errors"
)

// A Signal is a reference to a possibly multi-dimensional bit vector as it
// appears in a declaration or on either side of an assignment.
//
// Name is either an identifier or, if Binary is set, a string of binary
// digits. Ranges holds the ordered index sequence of each dimension; a scalar
// signal has no ranges.
//
type Signal struct {
	Line        int
	Name        string
	Ranges      [][]int
	Binary      bool
	BoundsKnown bool
}

// NewSignal returns a signal with known bounds.
//
func NewSignal(line int, name string, ranges [][]int) Signal {
	return Signal{Line: line, Name: name, Ranges: ranges, BoundsKnown: true}
}

// Literal returns a binary literal signal. bits must only contain '0' and
// '1' characters.
//
func Literal(line int, bits string) Signal {
	return Signal{Line: line, Name: bits, Binary: true, BoundsKnown: true}
}

// Size returns the number of bits in the signal, or -1 if its bounds are not
// known yet.
//
func (s *Signal) Size() int {
	switch {
	case !s.BoundsKnown:
		return -1
	case s.Binary:
		return len(s.Name)
	case len(s.Ranges) == 0:
		return 1
	}
	n := 1
	for _, r := range s.Ranges {
		n *= len(r)
	}
	return n
}

// SetRanges sets the signal ranges and marks its bounds as known.
//
func (s *Signal) SetRanges(ranges [][]int) {
	s.Ranges = ranges
	s.BoundsKnown = true
}

// Expand returns the names of the individual bits of the signal.
// Multi-dimensional signals are expanded with the outer dimension varying
// slowest: a(0)(0), a(0)(1), a(1)(0)...
//
// Binary literals expand to the constant names '0' and '1'.
//
func (s *Signal) Expand() []string {
	if s.Binary {
		r := make([]string, len(s.Name))
		for i := range s.Name {
			r[i] = "'" + s.Name[i:i+1] + "'"
		}
		return r
	}
	r := make([]string, 0, max(s.Size(), 1))
	return expand(r, s.Name, s.Ranges)
}

func expand(dst []string, name string, ranges [][]int) []string {
	if len(ranges) == 0 {
		return append(dst, name)
	}
	for _, i := range ranges[0] {
		dst = expand(dst, name+"("+strconv.Itoa(i)+")", ranges[1:])
	}
	return dst
}

// Less orders signals by name, ignoring case, and ranges. The two criteria
// are combined with a logical AND, so that two references to the same name
// with different ranges compare as distinct.
//
// Less is not a strict weak ordering and must not be used to sort or
// deduplicate signals.
//
func (s *Signal) Less(o *Signal) bool {
	return Key(s.Name) < Key(o.Name) && rangesLess(s.Ranges, o.Ranges)
}

func rangesLess(a, b [][]int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		x, y := a[i], b[i]
		for j := 0; j < len(x) && j < len(y); j++ {
			if x[j] != y[j] {
				return x[j] < y[j]
			}
		}
		if len(x) != len(y) {
			return len(x) < len(y)
		}
	}
	return len(a) < len(b)
}

// ExpandAll expands a sequence of signals into a single list of bit names.
//
func ExpandAll(sigs []Signal) []string {
	var r []string
	for i := range sigs {
		r = append(r, sigs[i].Expand()...)
	}
	return r
}

// SizeOf returns the total width of sigs, or -1 if any of them has unknown
// bounds.
//
func SizeOf(sigs []Signal) int {
	n := 0
	for i := range sigs {
		sz := sigs[i].Size()
		if sz < 0 {
			return -1
		}
		n += sz
	}
	return n
}

// Span returns the inclusive index sequence from start to end. The sequence
// is ascending if downto is false, descending otherwise.
//
func Span(start, end int, downto bool) ([]int, error) {
	step := 1
	if downto {
		step = -1
	}
	if (end-start)*step < 0 {
		dir := "to"
		if downto {
			dir = "downto"
		}
		return nil, errors.Errorf("null range %d %s %d", start, dir, end)
	}
	n := (end-start)*step + 1
	r := make([]int, n)
	for i := range r {
		r[i] = start + i*step
	}
	return r, nil
}
