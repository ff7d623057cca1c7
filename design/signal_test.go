// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package design_test

import (
	"reflect"
	"testing"
	"testing/quick"

	"github.com/db47h/hwnet/design"
)

func TestSpan(t *testing.T) {
	f := func(a, b int8, downto bool) bool {
		start, end := int(a), int(b)
		if (downto && start < end) || (!downto && start > end) {
			start, end = end, start
		}
		r, err := design.Span(start, end, downto)
		if err != nil {
			return false
		}
		n := end - start
		if n < 0 {
			n = -n
		}
		if len(r) != n+1 || r[0] != start || r[len(r)-1] != end {
			return false
		}
		for i := 1; i < len(r); i++ {
			if downto && r[i] >= r[i-1] || !downto && r[i] <= r[i-1] {
				return false
			}
		}
		return true
	}
	if err := quick.Check(f, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := design.Span(3, 0, false); err == nil {
		t.Fatal("3 to 0 should be a null range")
	}
	if _, err := design.Span(0, 3, true); err == nil {
		t.Fatal("0 downto 3 should be a null range")
	}
}

func TestSignal_Size(t *testing.T) {
	data := []struct {
		s    design.Signal
		size int
	}{
		{design.NewSignal(1, "a", nil), 1},
		{design.NewSignal(1, "a", [][]int{{3, 2, 1, 0}}), 4},
		{design.NewSignal(1, "a", [][]int{{0, 1}, {0, 1, 2}}), 6},
		{design.NewSignal(1, "a", [][]int{{0, 1}, {0, 1, 2}, {7, 6, 5, 4}}), 24},
		{design.Literal(1, "10110"), 5},
		{design.Signal{Line: 1, Name: "a"}, -1},
	}
	for _, d := range data {
		if sz := d.s.Size(); sz != d.size {
			t.Errorf("%s%v: got size %d, expected %d", d.s.Name, d.s.Ranges, sz, d.size)
		}
	}

	s := design.Signal{Name: "p"}
	s.SetRanges([][]int{{0, 1, 2}})
	if !s.BoundsKnown || s.Size() != 3 {
		t.Fatalf("SetRanges: bounds known %v, size %d", s.BoundsKnown, s.Size())
	}
}

func TestSignal_Expand(t *testing.T) {
	data := []struct {
		s   design.Signal
		exp []string
	}{
		{design.NewSignal(1, "a", nil), []string{"a"}},
		{design.NewSignal(1, "d", [][]int{{1, 0}}), []string{"d(1)", "d(0)"}},
		{design.NewSignal(1, "m", [][]int{{0, 1}, {2, 3}}), []string{"m(0)(2)", "m(0)(3)", "m(1)(2)", "m(1)(3)"}},
		{design.Literal(1, "01"), []string{"'0'", "'1'"}},
	}
	for _, d := range data {
		if got := d.s.Expand(); !reflect.DeepEqual(got, d.exp) {
			t.Errorf("%s: got %v, expected %v", d.s.Name, got, d.exp)
		}
	}
}

// Less combines name and ranges with a logical AND. Check that it is
// irreflexive and asymmetric, and that incomparable signals are not
// necessarily equal.
func TestSignal_Less(t *testing.T) {
	f := func(n1, n2 string, r1, r2 []uint8) bool {
		a := design.NewSignal(1, n1, [][]int{toInts(r1)})
		b := design.NewSignal(1, n2, [][]int{toInts(r2)})
		if a.Less(&a) || b.Less(&b) {
			return false
		}
		return !(a.Less(&b) && b.Less(&a))
	}
	if err := quick.Check(f, nil); err != nil {
		t.Fatal(err)
	}

	a := design.NewSignal(1, "a", [][]int{{1}})
	b := design.NewSignal(1, "b", [][]int{{0}})
	// incomparable but distinct
	if a.Less(&b) || b.Less(&a) {
		t.Fatal("a(1) and b(0) should be incomparable")
	}
	c := design.NewSignal(1, "c", [][]int{{2}})
	if !a.Less(&c) || !b.Less(&c) {
		t.Fatal("a(1) < c(2) and b(0) < c(2) expected")
	}
	// names compare case-insensitively
	d := design.NewSignal(1, "D", [][]int{{3}})
	if !c.Less(&d) || d.Less(&c) {
		t.Fatal("c(2) < D(3) expected")
	}
	e := design.NewSignal(1, "C", [][]int{{3}})
	if c.Less(&e) || e.Less(&c) {
		t.Fatal("c(2) and C(3) should be incomparable")
	}
}

func toInts(b []uint8) []int {
	r := make([]int, len(b))
	for i := range b {
		r[i] = int(b[i])
	}
	return r
}
