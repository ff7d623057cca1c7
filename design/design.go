// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package design implements the intermediate model of a parsed structural
// HDL design: entities with their ports, signals, direct assignments,
// instances and attributes.
//
// All identifiers are compared case insensitively.
//
package design

import (
	"strings"

	"github.com/db47h/hwnet/internal/lex"
	"github.com/pkg/errors"
)

// A Design is the set of entities read from one source unit.
//
type Design struct {
	// Libraries holds the namespace prefixes imported with use clauses,
	// including the trailing dot.
	Libraries []string
	// AttributeTypes maps declared attribute names (lower case) to their
	// base type.
	AttributeTypes map[string]string

	entities []*Entity
	byName   map[string]int
}

// New returns a new empty design.
//
func New() *Design {
	return &Design{
		AttributeTypes: make(map[string]string),
		byName:         make(map[string]int),
	}
}

// AddEntity adds e to the design. It returns an error if an entity with
// the same name already exists.
//
func (d *Design) AddEntity(e *Entity) error {
	k := Key(e.Name)
	if i, ok := d.byName[k]; ok {
		return errors.WithStack(lex.Errorf(e.Line, "an entity with the name %q does already exist (see line %d and line %d)", e.Name, e.Line, d.entities[i].Line))
	}
	d.byName[k] = len(d.entities)
	d.entities = append(d.entities, e)
	return nil
}

// Entity returns the entity with the given name.
//
func (d *Design) Entity(name string) (*Entity, bool) {
	if i, ok := d.byName[Key(name)]; ok {
		return d.entities[i], true
	}
	return nil, false
}

// Entities returns all entities in source order.
//
func (d *Design) Entities() []*Entity { return d.entities }

// Top returns the last entity of the design, or nil if the design is empty.
//
func (d *Design) Top() *Entity {
	if len(d.entities) == 0 {
		return nil
	}
	return d.entities[len(d.entities)-1]
}

// AddLibrary registers an imported namespace prefix.
//
func (d *Design) AddLibrary(prefix string) {
	for _, l := range d.Libraries {
		if strings.EqualFold(l, prefix) {
			return
		}
	}
	d.Libraries = append(d.Libraries, prefix)
}

// StripLibrary removes the longest matching library prefix from name.
//
func (d *Design) StripLibrary(name string) string {
	best := ""
	for _, l := range d.Libraries {
		if len(l) > len(best) && len(name) >= len(l) && strings.EqualFold(name[:len(l)], l) {
			best = l
		}
	}
	return name[len(best):]
}
