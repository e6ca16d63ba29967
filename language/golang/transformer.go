package golang

import (
	"fmt"
	"strings"

	"github.com/rlch/dbscaf"
	"github.com/rlch/dbscaf/resolve"
)

// renderTransforms emits transform.go: one API-representation builder per
// entity. Plain columns map to their wire names; forward to-one bindings
// render per the configured relation style. Collection accessors are served
// by sub-resource routes, not embedded in the row representation.
func (r *renderer) renderTransforms() ([]byte, error) {
	var b strings.Builder

	needFmt := false
	if r.style.name() == dbscaf.StyleLink {
		for _, e := range r.ctx.Model.Entities {
			if len(forwardToOne(e)) > 0 {
				needFmt = true
			}
		}
	}
	if needFmt {
		r.header(&b, "fmt")
	} else {
		r.header(&b)
	}

	for _, e := range r.ctx.Model.Entities {
		r.renderTransform(&b, e)
	}

	return r.finish(&b)
}

// forwardToOne returns the entity's forward to-one accessor fields.
func forwardToOne(e *resolve.Entity) []*resolve.Field {
	var fields []*resolve.Field
	for i := range e.Fields {
		f := &e.Fields[i]
		if f.Rel != nil && f.Rel.Forward && !f.Rel.Collection {
			fields = append(fields, f)
		}
	}

	return fields
}

func (r *renderer) renderTransform(b *strings.Builder, e *resolve.Entity) {
	params := []string{fmt.Sprintf("m *%s", e.Name)}
	params = append(params, r.style.nestedParams(e)...)

	fmt.Fprintf(b, "\n// %sToAPI builds the wire representation of a %s row.\n", e.Name, e.Name)
	fmt.Fprintf(b, "func %sToAPI(%s) map[string]any {\n", e.Name, strings.Join(params, ", "))
	b.WriteString("\tout := map[string]any{\n")
	for _, f := range columnFields(e) {
		if fkOwned(e, f.Column) {
			// Foreign key columns surface through their accessor entry.
			continue
		}
		fmt.Fprintf(b, "\t\t%q: m.%s,\n", f.JSONName, f.Name)
	}
	b.WriteString("\t}\n")

	for _, f := range forwardToOne(e) {
		col := owningField(e, f)
		if col == nil {
			continue
		}
		r.style.transformEntry(b, e, f, col)
	}

	b.WriteString("\treturn out\n}\n")
}

// fkOwned reports whether the column backs a single-column forward to-one
// accessor. Multi-column foreign keys keep their raw columns in the output.
func fkOwned(e *resolve.Entity, column string) bool {
	for _, f := range forwardToOne(e) {
		if len(f.Rel.Columns) == 1 && f.Rel.Columns[0] == column {
			return true
		}
	}

	return false
}

// owningField resolves the single owning column field of a to-one accessor.
// Multi-column keys keep their raw columns instead; the accessor is skipped.
func owningField(e *resolve.Entity, accessor *resolve.Field) *resolve.Field {
	if len(accessor.Rel.Columns) != 1 {
		return nil
	}
	for i := range e.Fields {
		f := &e.Fields[i]
		if f.Rel == nil && f.Column == accessor.Rel.Columns[0] {
			return f
		}
	}

	return nil
}
