// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package export_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/db47h/hwnet/elab"
	"github.com/db47h/hwnet/export"
	"github.com/db47h/hwnet/nettest"
)

const src = `
entity HA is
  port (a, b : in std_logic; s, c : out std_logic);
  attribute area : integer;
  attribute area of HA : entity is 2;
end HA;
architecture a of HA is
begin
  x : XOR2 port map (A => a, B => b, O => s);
  n : AND2 generic map (DELAY => 2) port map (A => a, B => b, O => c);
end a;

entity TOP is
  port (a : in std_logic; s, c : out std_logic);
end TOP;
architecture a of TOP is
begin
  h : HA port map (a => a, b => '1', s => s, c => c);
end a;
`

func TestWrite(t *testing.T) {
	nl := nettest.MustElaborate(t, src, "")
	var buf bytes.Buffer
	if err := export.Write(&buf, nl); err != nil {
		t.Fatal(err)
	}
	var doc export.Netlist
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Name != "TOP" || doc.Library != "nettest" || len(doc.Modules) != 2 || len(doc.Gates) != 3 {
		t.Fatalf("bad netlist %+v", doc)
	}
	h := doc.Modules[1]
	if h.Name != "h" || h.Type != "HA" || h.Parent != doc.Modules[0].ID {
		t.Fatalf("bad module %+v", h)
	}
	if len(h.Data) != 1 || h.Data[0] != (export.Datum{Category: "attribute", Key: "area", Type: "integer", Value: "2"}) {
		t.Fatalf("bad module data %+v", h.Data)
	}
	gates := make(map[string]export.Gate)
	for _, g := range doc.Gates {
		gates[g.Name] = g
	}
	if g := gates[elab.VCCGate]; !g.VCC || g.GND || g.Outputs["O"] != elab.VCC {
		t.Fatalf("bad power gate %+v", g)
	}
	if g := gates["n"]; g.Inputs["A"] != "a" || g.Inputs["B"] != elab.VCC || g.Outputs["O"] != "c" || len(g.Data) != 1 {
		t.Fatalf("bad gate %+v", g)
	}
	for _, n := range doc.Nets {
		if n.Name == "a" && (!n.GlobalInput || len(n.Destinations) != 2 || len(n.Sources) != 0) {
			t.Fatalf("bad net %+v", n)
		}
	}

	v, err := export.NewValidator()
	if err != nil {
		t.Fatal(err)
	}
	if err = v.ValidateJSON(buf.Bytes()); err != nil {
		t.Fatal(err)
	}
	if err = v.Validate(export.Build(nl)); err != nil {
		t.Fatal(err)
	}
}

func TestValidator_errors(t *testing.T) {
	v, err := export.NewValidator()
	if err != nil {
		t.Fatal(err)
	}
	data := []struct {
		name string
		doc  string
		msg  string
	}{
		{"no modules", `{"name": "T", "library": "", "modules": [], "gates": [], "nets": []}`, "modules"},
		{"missing name", `{"library": "", "modules": [{"id": 1, "name": "T", "type": "T"}], "gates": [], "nets": []}`, "name"},
		{"bad id", `{"name": "T", "library": "", "modules": [{"id": 0, "name": "T", "type": "T"}], "gates": [], "nets": []}`, "id"},
		{"unknown field", `{"name": "T", "library": "", "modules": [{"id": 1, "name": "T", "type": "T", "color": "red"}], "gates": [], "nets": []}`, "color"},
		{"empty pin", `{"name": "T", "library": "", "modules": [{"id": 1, "name": "T", "type": "T"}], "gates": [],
			"nets": [{"id": 1, "name": "n", "sources": [{"gate": 1, "pin": ""}]}]}`, "pin"},
		{"false flag", `{"name": "T", "library": "", "modules": [{"id": 1, "name": "T", "type": "T"}], "gates": [],
			"nets": [{"id": 1, "name": "n", "global_input": false}]}`, "global_input"},
	}
	for _, d := range data {
		err := v.ValidateJSON([]byte(d.doc))
		if err == nil {
			t.Errorf("%s: no error", d.name)
			continue
		}
		if !strings.Contains(err.Error(), d.msg) {
			t.Errorf("%s: error %q does not mention %q", d.name, err, d.msg)
		}
	}
	if err := v.ValidateJSON([]byte("{")); err == nil {
		t.Error("malformed JSON accepted")
	}
}
