package openapi

import (
	"gopkg.in/yaml.v3"

	"github.com/rlch/dbscaf"
	"github.com/rlch/dbscaf/resolve"
)

// schemas builds the components/schemas mapping, one schema per entity in
// dependency order.
func (e *emitter) schemas() *yaml.Node {
	schemas := mapping()
	for _, ent := range e.model.Entities {
		appendPair(schemas, scalar(ent.Name), e.entitySchema(ent))
	}

	return schemas
}

func (e *emitter) entitySchema(ent *resolve.Entity) *yaml.Node {
	props := mapping()
	var required []*yaml.Node

	for i := range ent.Fields {
		f := &ent.Fields[i]
		switch {
		case f.Rel == nil:
			if fkBacked(ent, f) {
				continue
			}
			appendPair(props, scalar(f.JSONName), fieldSchema(f))
			if !f.Spec.Nullable {
				required = append(required, scalar(f.JSONName))
			}
		case f.Rel.Forward && !f.Rel.Collection:
			prop := e.relationSchema(ent, f)
			if prop == nil {
				continue
			}
			appendPair(props, scalar(f.JSONName), prop)
		}
	}

	schema := mapping(
		scalar("type"), scalar("object"),
	)
	if ent.Comment != "" {
		appendPair(schema, scalar("description"), scalar(ent.Comment))
	}
	appendPair(schema, scalar("properties"), props)
	if len(required) > 0 {
		appendPair(schema, scalar("required"), sequence(required...))
	}

	return schema
}

// fkBacked mirrors the transformer: a column owned by a single-column
// forward to-one accessor surfaces through the accessor property instead.
func fkBacked(ent *resolve.Entity, f *resolve.Field) bool {
	for i := range ent.Fields {
		g := &ent.Fields[i]
		if g.Rel != nil && g.Rel.Forward && !g.Rel.Collection &&
			len(g.Rel.Columns) == 1 && g.Rel.Columns[0] == f.Column {
			return true
		}
	}

	return false
}

// relationSchema renders a forward to-one property per the relation style.
func (e *emitter) relationSchema(ent *resolve.Entity, f *resolve.Field) *yaml.Node {
	col := owningColumn(ent, f)
	if col == nil {
		return nil
	}

	switch e.style {
	case dbscaf.StyleLink:
		prop := mapping(
			scalar("type"), scalar("string"),
			scalar("format"), scalar("uri"),
		)
		if col.Spec.Nullable {
			appendPair(prop, scalar("nullable"), boolScalar(true))
		}

		return prop
	case dbscaf.StyleNested:
		ref := mapping(scalar("$ref"), scalar("#/components/schemas/"+f.Rel.Target))
		if col.Spec.Nullable {
			// $ref siblings are ignored in 3.0; wrap in allOf.
			return mapping(
				scalar("nullable"), boolScalar(true),
				scalar("allOf"), sequence(ref),
			)
		}

		return ref
	default: // pk
		return fieldSchema(col)
	}
}

func owningColumn(ent *resolve.Entity, f *resolve.Field) *resolve.Field {
	if len(f.Rel.Columns) != 1 {
		return nil
	}
	for i := range ent.Fields {
		g := &ent.Fields[i]
		if g.Rel == nil && g.Column == f.Rel.Columns[0] {
			return g
		}
	}

	return nil
}

// fieldSchema renders one column field's schema: type, format, constraints.
func fieldSchema(f *resolve.Field) *yaml.Node {
	prop := mapping()

	typ, format := openAPIType(f.Spec.Kind)
	appendPair(prop, scalar("type"), scalar(typ))
	if format != "" {
		appendPair(prop, scalar("format"), scalar(format))
	}

	if f.Spec.Kind == resolve.KindEnum && len(f.Spec.Enum) > 0 {
		values := make([]*yaml.Node, 0, len(f.Spec.Enum))
		for _, v := range f.Spec.Enum {
			values = append(values, scalar(v))
		}
		appendPair(prop, scalar("enum"), sequence(values...))
	}
	if f.Spec.Length > 0 && typ == "string" {
		appendPair(prop, scalar("maxLength"), intScalar(f.Spec.Length))
	}
	if f.Spec.Nullable {
		appendPair(prop, scalar("nullable"), boolScalar(true))
	}
	if f.Spec.Kind == resolve.KindAuto {
		appendPair(prop, scalar("readOnly"), boolScalar(true))
	}
	if f.Spec.HasDefault {
		appendPair(prop, scalar("default"), defaultScalar(f.Spec))
	}

	return prop
}

// defaultScalar renders a static default with its natural YAML type.
func defaultScalar(spec resolve.FieldSpec) *yaml.Node {
	switch spec.Kind {
	case resolve.KindAuto, resolve.KindInt, resolve.KindFloat, resolve.KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Value: spec.Default}
	default:
		return scalar(spec.Default)
	}
}

// openAPIType maps a field kind to an OpenAPI type and format.
func openAPIType(k resolve.FieldKind) (string, string) {
	switch k {
	case resolve.KindAuto, resolve.KindInt:
		return "integer", "int64"
	case resolve.KindFloat:
		return "number", "double"
	case resolve.KindDecimal:
		return "string", ""
	case resolve.KindBool:
		return "boolean", ""
	case resolve.KindDate:
		return "string", "date"
	case resolve.KindTime:
		return "string", "time"
	case resolve.KindDateTime:
		return "string", "date-time"
	case resolve.KindUUID:
		return "string", "uuid"
	case resolve.KindJSON:
		return "object", ""
	case resolve.KindBinary:
		return "string", "byte"
	default:
		return "string", ""
	}
}
