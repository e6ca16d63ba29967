package openapi

import (
	"gopkg.in/yaml.v3"

	"github.com/rlch/dbscaf/resolve"
)

// paths builds the paths mapping: collection and item routes per entity, in
// dependency order, plus sub-resource listings for collection accessors.
func (e *emitter) paths() *yaml.Node {
	paths := mapping()

	for _, ent := range e.model.Entities {
		base := "/" + resolve.Snake(resolve.Pluralize(ent.Name))

		appendPair(paths, scalar(base), e.collectionPath(ent))

		pk := singleKey(ent)
		if pk == nil {
			continue
		}

		appendPair(paths, scalar(base+"/{id}"), e.itemPath(ent, pk))

		for i := range ent.Fields {
			f := &ent.Fields[i]
			if f.Rel == nil || !f.Rel.Collection || len(f.Rel.Columns) != 1 {
				continue
			}
			if f.Rel.Forward && f.Rel.Kind != resolve.ManyToMany {
				continue
			}
			appendPair(paths,
				scalar(base+"/{id}/"+f.JSONName),
				e.subresourcePath(ent, f, pk))
		}
	}

	return paths
}

func (e *emitter) collectionPath(ent *resolve.Entity) *yaml.Node {
	return mapping(
		scalar("get"), mapping(
			scalar("operationId"), scalar("list"+resolve.Pluralize(ent.Name)),
			scalar("summary"), scalar("List "+resolve.Pluralize(ent.Name)),
			scalar("responses"), mapping(
				scalar("200"), jsonResponse("OK", sequenceSchemaRef(ent.Name)),
			),
		),
		scalar("post"), mapping(
			scalar("operationId"), scalar("create"+ent.Name),
			scalar("summary"), scalar("Create a "+ent.Name),
			scalar("requestBody"), jsonBody(ent.Name),
			scalar("responses"), mapping(
				scalar("201"), jsonResponse("Created", schemaRef(ent.Name)),
			),
		),
	)
}

func (e *emitter) itemPath(ent *resolve.Entity, pk *resolve.Field) *yaml.Node {
	params := sequence(keyParam(pk))

	return mapping(
		scalar("parameters"), params,
		scalar("get"), mapping(
			scalar("operationId"), scalar("get"+ent.Name),
			scalar("summary"), scalar("Fetch one "+ent.Name),
			scalar("responses"), mapping(
				scalar("200"), jsonResponse("OK", schemaRef(ent.Name)),
				scalar("404"), plainResponse("Not found"),
			),
		),
		scalar("put"), mapping(
			scalar("operationId"), scalar("update"+ent.Name),
			scalar("summary"), scalar("Replace one "+ent.Name),
			scalar("requestBody"), jsonBody(ent.Name),
			scalar("responses"), mapping(
				scalar("200"), jsonResponse("OK", schemaRef(ent.Name)),
				scalar("404"), plainResponse("Not found"),
			),
		),
		scalar("delete"), mapping(
			scalar("operationId"), scalar("delete"+ent.Name),
			scalar("summary"), scalar("Delete one "+ent.Name),
			scalar("responses"), mapping(
				scalar("204"), plainResponse("Deleted"),
				scalar("404"), plainResponse("Not found"),
			),
		),
	)
}

func (e *emitter) subresourcePath(ent *resolve.Entity, f *resolve.Field, pk *resolve.Field) *yaml.Node {
	return mapping(
		scalar("parameters"), sequence(keyParam(pk)),
		scalar("get"), mapping(
			scalar("operationId"), scalar("list"+ent.Name+f.Name),
			scalar("summary"), scalar("List "+f.Name+" of one "+ent.Name),
			scalar("responses"), mapping(
				scalar("200"), jsonResponse("OK", sequenceSchemaRef(f.Rel.Target)),
			),
		),
	)
}

func keyParam(pk *resolve.Field) *yaml.Node {
	return mapping(
		scalar("name"), scalar("id"),
		scalar("in"), scalar("path"),
		scalar("required"), boolScalar(true),
		scalar("schema"), keySchema(pk),
	)
}

func keySchema(pk *resolve.Field) *yaml.Node {
	typ, format := openAPIType(pk.Spec.Kind)
	prop := mapping(scalar("type"), scalar(typ))
	if format != "" {
		appendPair(prop, scalar("format"), scalar(format))
	}

	return prop
}

func schemaRef(name string) *yaml.Node {
	return mapping(scalar("$ref"), scalar("#/components/schemas/"+name))
}

func sequenceSchemaRef(name string) *yaml.Node {
	return mapping(
		scalar("type"), scalar("array"),
		scalar("items"), schemaRef(name),
	)
}

func jsonResponse(description string, schema *yaml.Node) *yaml.Node {
	return mapping(
		scalar("description"), scalar(description),
		scalar("content"), mapping(
			scalar("application/json"), mapping(scalar("schema"), schema),
		),
	)
}

func jsonBody(name string) *yaml.Node {
	return mapping(
		scalar("required"), boolScalar(true),
		scalar("content"), mapping(
			scalar("application/json"), mapping(scalar("schema"), schemaRef(name)),
		),
	)
}

func plainResponse(description string) *yaml.Node {
	return mapping(scalar("description"), scalar(description))
}

// singleKey returns the single-column primary key field, or nil.
func singleKey(ent *resolve.Entity) *resolve.Field {
	if ent.CompositePK || len(ent.PKFields) != 1 {
		return nil
	}

	return ent.Field(ent.PKFields[0])
}
