// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package export

import (
	_ "embed"
	"encoding/json"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/pkg/errors"
)

//go:embed schema.cue
var schema []byte

// A Validator checks JSON netlists against the netlist schema.
//
type Validator struct {
	ctx *cue.Context
	def cue.Value
}

// NewValidator compiles the embedded schema.
//
func NewValidator() (*Validator, error) {
	ctx := cuecontext.New()
	s := ctx.CompileBytes(schema)
	if err := s.Err(); err != nil {
		return nil, errors.Wrap(err, "compile netlist schema")
	}
	def := s.LookupPath(cue.ParsePath("#Netlist"))
	if err := def.Err(); err != nil {
		return nil, errors.Wrap(err, "lookup #Netlist")
	}
	return &Validator{ctx: ctx, def: def}, nil
}

// ValidateJSON validates a JSON document. All schema violations are
// reported, one per line.
//
func (v *Validator) ValidateJSON(doc []byte) error {
	dv := v.ctx.CompileBytes(doc)
	if err := dv.Err(); err != nil {
		return errors.Wrap(err, "compile netlist document")
	}
	err := v.def.Unify(dv).Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}
	var msgs []string
	for _, e := range cueerrors.Errors(err) {
		msgs = append(msgs, strings.TrimSpace(cueerrors.Details(e, nil)))
	}
	return errors.Errorf("invalid netlist: %s", strings.Join(msgs, "\n"))
}

// Validate validates the JSON form of a netlist.
//
func (v *Validator) Validate(nl *Netlist) error {
	doc, err := json.Marshal(nl)
	if err != nil {
		return errors.Wrap(err, "marshal netlist")
	}
	return v.ValidateJSON(doc)
}
