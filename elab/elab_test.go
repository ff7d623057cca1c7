// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package elab_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/db47h/hwnet"
	"github.com/db47h/hwnet/design"
	"github.com/db47h/hwnet/elab"
	"github.com/db47h/hwnet/internal/lex"
	"github.com/db47h/hwnet/nettest"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const bus = `
entity SUB is
  port (o : out std_logic_vector(3 downto 0));
end SUB;

architecture a of SUB is
begin
  b0 : BUF4 port map (O => o);
end a;

entity TOP is
end TOP;

architecture a of TOP is
  signal s : std_logic_vector(3 downto 0);
begin
  u0 : SUB port map (o => s);
  b1 : BUF4 port map (I => s);
end a;
`

func TestElaborate_bus(t *testing.T) {
	nl := nettest.MustElaborate(t, bus, "")
	if names := nettest.NetNames(nl); !reflect.DeepEqual(names, []string{"s(0)", "s(1)", "s(2)", "s(3)"}) {
		t.Fatalf("got nets %v", names)
	}
	for _, i := range []string{"0", "1", "2", "3"} {
		n := nettest.CheckNet(t, nl, "s("+i+")", []string{"b0.O(" + i + ")"}, []string{"b1.I(" + i + ")"})
		if n.GlobalInput || n.GlobalOutput {
			t.Errorf("net %s is global", n.Name)
		}
	}

	top := nl.TopModule()
	if top.Name != "TOP" || top.Type != "TOP" || len(top.Submodules) != 1 || len(top.Gates) != 1 {
		t.Fatalf("bad top module %+v", top)
	}
	sub := nl.Module(top.Submodules[0])
	if sub.Name != "u0" || sub.Type != "SUB" || sub.Parent != top.ID {
		t.Fatalf("bad sub module %+v", sub)
	}
	if g := nl.Gate(sub.Gates[0]); g.Name != "b0" || g.Type.Name != "BUF4" || g.Module != sub.ID {
		t.Fatalf("bad gate %+v", g)
	}
}

const cells = `
entity CELL is
  port (a, b : in std_logic; o : out std_logic);
end CELL;

architecture a of CELL is
  signal n : std_logic;
begin
  g : AND2 port map (A => a, B => b, O => n);
  i : INV port map (I => n, O => o);
end a;

entity TOP is
  port (a, b : in std_logic; y : out std_logic_vector(0 to 2));
end TOP;

architecture a of TOP is
begin
  c0 : CELL port map (a => a, b => b, o => y(0));
  c1 : CELL port map (a => a, b => b, o => y(1));
  c2 : entity work.CELL port map (a => b, b => a, o => y(2));
  solo : INV port map (I => a);
end a;
`

func TestElaborate_suffixes(t *testing.T) {
	nl := nettest.MustElaborate(t, cells, "top")
	var gates []string
	for _, g := range nl.Gates() {
		gates = append(gates, g.Name)
	}
	if exp := []string{"g", "i", "g(1)", "i(1)", "g(2)", "i(2)", "solo"}; !reflect.DeepEqual(gates, exp) {
		t.Fatalf("got gates %v", gates)
	}
	var mods []string
	for _, m := range nl.Modules() {
		mods = append(mods, m.Name)
	}
	if exp := []string{"TOP", "c0", "c1", "c2"}; !reflect.DeepEqual(mods, exp) {
		t.Fatalf("got modules %v", mods)
	}
	exp := []string{"a", "b", "n", "n(1)", "n(2)", "y(0)", "y(1)", "y(2)"}
	if names := nettest.NetNames(nl); !reflect.DeepEqual(names, exp) {
		t.Fatalf("got nets %v", names)
	}
	nettest.CheckNet(t, nl, "n(1)", []string{"g(1).O"}, []string{"i(1).I"})
	nettest.CheckNet(t, nl, "a", nil, []string{"g.A", "g(1).A", "g(2).B", "solo.I"})
	if y := nettest.CheckNet(t, nl, "y(2)", []string{"i(2).O"}, nil); !y.GlobalOutput || y.GlobalInput {
		t.Fatal("y(2) is not a global output")
	}
}

const merge = `
entity TOP is
  port (x : in std_logic; y, z : out std_logic);
end TOP;

architecture a of TOP is
  signal a, b, unused : std_logic;
begin
  g0 : INV port map (I => x, O => b);
  g1 : INV port map (I => a, O => y);
  a <= b;
  z <= a;
end a;
`

func TestElaborate_merge(t *testing.T) {
	nl := nettest.MustElaborate(t, merge, "")
	if names := nettest.NetNames(nl); !reflect.DeepEqual(names, []string{"b", "x", "y"}) {
		t.Fatalf("got nets %v", names)
	}
	// z merged into a, then a into b
	b := nettest.CheckNet(t, nl, "b", []string{"g0.O"}, []string{"g1.I"})
	if !b.GlobalOutput {
		t.Fatal("b did not inherit the global output flag of z")
	}
	if _, ok := nl.NetByName("a"); ok {
		t.Fatal("net a still exists")
	}
	g1, _ := nl.GateByName("g1")
	if g1.Inputs["I"] != b.ID {
		t.Fatal("gate g1 not connected to merged net")
	}
}

func TestElaborate_mergeChain(t *testing.T) {
	src := `
entity TOP is
  port (x : in std_logic; y : out std_logic);
end TOP;
architecture a of TOP is
  signal a, b, c : std_logic;
begin
  g0 : INV port map (I => x, O => b);
  g1 : INV port map (I => a, O => y);
  c <= a;
  c <= b;
end a;
`
	nl := nettest.MustElaborate(t, src, "")
	// c merged into a, then a, reached through c, into b
	if names := nettest.NetNames(nl); !reflect.DeepEqual(names, []string{"b", "x", "y"}) {
		t.Fatalf("got nets %v", names)
	}
	nettest.CheckNet(t, nl, "b", []string{"g0.O"}, []string{"g1.I"})
}

func TestElaborate_cycle(t *testing.T) {
	src := `
entity TOP is
end TOP;
architecture a of TOP is
  signal a, b : std_logic;
begin
  a <= b;
  b <= a;
end a;
`
	_, hook, err := nettest.Elaborate(t, src, "")
	if err == nil {
		t.Fatal("cyclic merge not detected")
	}
	if !strings.Contains(err.Error(), "cyclic dependency") {
		t.Fatalf("unexpected error %v", err)
	}
	if e := hook.LastEntry(); e == nil || e.Level != logrus.ErrorLevel || e.Data["component"] != elab.Component {
		t.Fatal("error not logged")
	}
}

func TestElaborate_prune(t *testing.T) {
	src := `
entity TOP is
  port (unused_in : in std_logic; y : out std_logic);
end TOP;
architecture a of TOP is
  signal floating : std_logic_vector(1 downto 0);
begin
  g : INV port map (O => y);
end a;
`
	nl := nettest.MustElaborate(t, src, "")
	if names := nettest.NetNames(nl); !reflect.DeepEqual(names, []string{"unused_in", "y"}) {
		t.Fatalf("got nets %v", names)
	}
	if n := nettest.CheckNet(t, nl, "unused_in", nil, nil); !n.GlobalInput {
		t.Fatal("unused_in is not a global input")
	}
}

func TestElaborate_constants(t *testing.T) {
	src := `
entity TOP is
  port (x : in std_logic; y : out std_logic; q : out std_logic_vector(3 downto 0));
end TOP;
architecture a of TOP is
begin
  g0 : AND2 port map (A => '1', B => x, O => y);
  g1 : BUF4 port map (I => x"5", O => q);
end a;
`
	nl := nettest.MustElaborate(t, src, "")
	vcc := nettest.CheckNet(t, nl, elab.VCC, []string{elab.VCCGate + ".O"}, []string{"g0.A", "g1.I(2)", "g1.I(0)"})
	gnd := nettest.CheckNet(t, nl, elab.GND, []string{elab.GNDGate + ".O"}, []string{"g1.I(3)", "g1.I(1)"})
	for _, d := range []struct {
		n    *hwnet.Net
		name string
		gnd  bool
	}{{vcc, "VCC", false}, {gnd, "GND", true}} {
		id := d.n.Sources[0].Gate
		g := nl.Gate(id)
		if g.Type.Name != d.name || nl.IsGND(id) != d.gnd || nl.IsVCC(id) == d.gnd || g.Module != nl.TopModule().ID {
			t.Errorf("bad driver %+v", g)
		}
	}

	// unused constants are deleted
	nl = nettest.MustElaborate(t, bus, "")
	if _, ok := nl.NetByName(elab.GND); ok {
		t.Fatal("unused net '0' not deleted")
	}
}

func TestElaborate_data(t *testing.T) {
	src := `
entity SUB is
  port (i : in std_logic);
  attribute area : integer;
  attribute area of SUB : entity is 12;
end SUB;
architecture a of SUB is
begin
end a;

entity TOP is
  port (x : in std_logic);
end TOP;
architecture a of TOP is
  signal s : std_logic;
  attribute loc : string;
  attribute loc of g : label is "X1Y1";
  attribute loc of s : signal is "P5";
begin
  g : INV generic map (INIT => x"0f", DELAY => 10 ns) port map (I => x, O => s);
  u : SUB generic map (W => 4) port map (i => s);
end a;
`
	nl := nettest.MustElaborate(t, src, "")
	g, ok := nl.GateByName("g")
	if !ok {
		t.Fatal("gate g not found")
	}
	for _, d := range []struct {
		cat, key, typ, value string
		data                 hwnet.Data
	}{
		{"generic", "INIT", "bit_vector", "0f", g.Data},
		{"generic", "DELAY", "time", "10ns", g.Data},
		{"attribute", "loc", "string", "X1Y1", g.Data},
	} {
		if v, ok := d.data.Get(d.cat, d.key); !ok || v.Type != d.typ || v.Value != d.value {
			t.Errorf("%s/%s: got %+v", d.cat, d.key, v)
		}
	}
	sub := nl.Module(nl.TopModule().Submodules[0])
	if v, ok := sub.Data.Get("generic", "W"); !ok || v.Value != "4" {
		t.Errorf("module generic: got %+v", v)
	}
	if v, ok := sub.Data.Get("attribute", "area"); !ok || v.Value != "12" {
		t.Errorf("module attribute: got %+v", v)
	}
	s := nettest.CheckNet(t, nl, "s", []string{"g.O"}, nil)
	if v, ok := s.Data.Get("attribute", "loc"); !ok || v.Value != "P5" {
		t.Errorf("net attribute: got %+v", v)
	}
}

func TestElaborate_openPort(t *testing.T) {
	src := `
entity SUB is
  port (i : in std_logic; o : out std_logic);
end SUB;
architecture a of SUB is
begin
  g : INV port map (I => i, O => o);
end a;

entity TOP is
  port (x : in std_logic);
end TOP;
architecture a of TOP is
begin
  u : SUB port map (i => x, o => open);
end a;
`
	nl := nettest.MustElaborate(t, src, "")
	nettest.CheckNet(t, nl, "u/o", []string{"g.O"}, nil)
	nettest.CheckNet(t, nl, "x", nil, []string{"g.I"})
}

func TestElaborate_errors(t *testing.T) {
	data := []struct {
		src  string
		top  string
		line int
		msg  string
	}{
		{"entity T is\nend T;\narchitecture a of T is\nbegin\n  u : NOPE;\nend a;", "", 5,
			"type NOPE of instance u is neither an entity nor a gate type"},
		{"entity T is\nend T;\narchitecture a of T is\n  signal s : std_logic;\nbegin\n  u : INV port map (Z => s);\nend a;", "", 6,
			`pin "Z" is no valid pin for instance u of gate type INV`},
		{"entity S is\n  port (i : in std_logic);\nend S;\narchitecture a of S is\nbegin\nend a;\n" +
			"entity T is\nend T;\narchitecture a of T is\n  signal s : std_logic;\nbegin\n  u : S port map (j => s);\nend a;", "", 12,
			`port "j" is no valid port for instance u of entity S`},
		{"entity S is\n  port (i : in std_logic_vector(1 downto 0));\nend S;\narchitecture a of S is\nbegin\nend a;\n" +
			"entity T is\nend T;\narchitecture a of T is\n  signal s : std_logic_vector(2 downto 0);\nbegin\n  u : S port map (i => s);\nend a;", "", 12,
			"port i of instance u has width 2 but is assigned 3 bits"},
		{"entity R is\nend R;\narchitecture a of R is\nbegin\n  r : R;\nend a;", "", 1,
			"recursive instantiation of entity R"},
		{"entity T is\nend T;\narchitecture a of T is\nbegin\nend a;", "nope", lex.NoLine,
			`unknown top entity "nope"`},
		{"entity S is\n  port (p : in std_logic_vector(3 downto 0));\nend S;\narchitecture a of S is\nbegin\nend a;\n" +
			"entity T is\nend T;\narchitecture a of T is\n  signal x : std_logic;\nbegin\n  u : S port map (p(7) => x);\nend a;", "", 12,
			"p(7) is out of the range of port p of instance u"},
		{"entity S is\n  port (p : in std_logic);\nend S;\narchitecture a of S is\nbegin\nend a;\n" +
			"entity T is\nend T;\narchitecture a of T is\n  signal x : std_logic;\nbegin\n  u : S port map (p(0) => x);\nend a;", "", 12,
			"p(0) is out of the range of port p of instance u"},
		{"entity S is\n  port (p : in std_logic);\nend S;\narchitecture a of S is\nbegin\nend a;\n" +
			"entity T is\nend T;\narchitecture a of T is\n  signal x, z : std_logic;\nbegin\n  u : S port map (p => x, P => z);\nend a;", "", 12,
			"p of instance u is connected more than once"},
		{"entity T is\nend T;\narchitecture a of T is\n  signal x : std_logic;\nbegin\n  u : BUF4 port map (I(7) => x);\nend a;", "", 6,
			"I(7) is out of the range of port I of instance u"},
		{"entity T is\nend T;\narchitecture a of T is\n  signal x, z : std_logic;\nbegin\n  u : INV port map (I => x, I => z);\nend a;", "", 6,
			"I of instance u is connected more than once"},
		{"entity T is\n  port (y : out std_logic);\nend T;\narchitecture a of T is\n  signal s : std_logic;\nbegin\n" +
			"  s <= '0';\n  y <= s;\n  y <= '1';\nend a;", "", lex.NoLine,
			"constant nets '1' and '0' are connected"},
	}
	for i, d := range data {
		_, _, err := nettest.Elaborate(t, d.src, d.top)
		if err == nil {
			t.Errorf("%d: no error", i)
			continue
		}
		e, ok := errors.Cause(err).(*lex.Error)
		if !ok {
			t.Errorf("%d: unexpected error type %T: %v", i, errors.Cause(err), err)
			continue
		}
		if e.Line != d.line || e.Msg != d.msg {
			t.Errorf("%d: got %q at line %d, expected %q at line %d", i, e.Msg, e.Line, d.msg, d.line)
		}
	}
}

func TestElaborate_unusedEntity(t *testing.T) {
	src := "entity U is\nend U;\narchitecture a of U is\nbegin\nend a;\n" +
		"entity T is\nend T;\narchitecture a of T is\nbegin\nend a;"
	_, hook, err := nettest.Elaborate(t, src, "")
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["line"] == 1 && strings.Contains(e.Message, "entity U defined but not used") {
			found = true
		}
	}
	if !found {
		t.Fatal("unused entity not reported")
	}
}

func TestElaborate_nilLibrary(t *testing.T) {
	d := design.New()
	e := design.NewEntity(1, "T")
	if err := e.AddPort(design.In, design.NewSignal(2, "a", nil)); err != nil {
		t.Fatal(err)
	}
	if err := d.AddEntity(e); err != nil {
		t.Fatal(err)
	}
	log, _ := nettest.Logger()
	nl, err := (&elab.Elaborator{Log: log}).Elaborate(d, nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if names := nettest.NetNames(nl); !reflect.DeepEqual(names, []string{"a"}) {
		t.Fatalf("got nets %v", names)
	}
}
