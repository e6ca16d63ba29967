package resolve

import (
	"github.com/rlch/dbscaf"
)

// RelBinding attaches relationship semantics to an entity field.
type RelBinding struct {
	Kind Kind

	// Target is the entity type name on the far side of the accessor: the
	// referenced entity for forward bindings, the referencing entity for
	// reverse bindings.
	Target string

	// TargetTable is the far side's table name.
	TargetTable string

	// Forward is true on the owning side, false for synthesized reverse
	// accessors.
	Forward bool

	// Collection is true when the accessor navigates to many rows.
	Collection bool

	Self     bool
	Deferred bool

	// Junction is the suppressed junction table, many-to-many only.
	Junction string

	// Columns are the owning columns on the source table (for many-to-many,
	// the junction's columns toward this side's opposite).
	Columns []string

	// RelID is the resolved relationship identity.
	RelID string
}

// Field is one resolved entity field: a mapped column, a relationship
// accessor, or both (a foreign key column carries its spec and no binding;
// the binding lives on the accessor field).
type Field struct {
	// Name is the resolved identifier, unique within the entity.
	Name string

	// Column is the source column name; empty for synthesized accessors.
	Column string

	// JSONName is the wire-level name: the column name for plain fields, the
	// snake_case accessor name otherwise.
	JSONName string

	Spec FieldSpec

	PrimaryKey bool
	Unique     bool

	Rel *RelBinding
}

// Entity is the frozen, post-naming representation of a table. Entities are
// assembled once, in dependency order, and every generator reads the same
// instances.
type Entity struct {
	// Name is the resolved type name, unique schema-wide.
	Name string

	// Table is the source table name.
	Table string

	Fields []Field

	// PKFields are the resolved names of primary key fields, in key order.
	PKFields []string

	CompositePK bool

	// AutoPK is true when the primary key is a single auto-increment column.
	AutoPK bool

	Comment string
}

// Field returns the named field, or nil.
func (e *Entity) Field(name string) *Field {
	for i := range e.Fields {
		if e.Fields[i].Name == name {
			return &e.Fields[i]
		}
	}

	return nil
}

// PK returns the primary key fields in key order.
func (e *Entity) PK() []*Field {
	pks := make([]*Field, 0, len(e.PKFields))
	for _, name := range e.PKFields {
		if f := e.Field(name); f != nil {
			pks = append(pks, f)
		}
	}

	return pks
}

// Model is the final output of the resolution pipeline: entities in
// dependency order plus accumulated warnings. It is the single source of
// truth for every generator; generators never communicate with each other.
type Model struct {
	Entities []*Entity
	Warnings []dbscaf.Warning

	// Junctions maps each suppressed junction table to the relationship it
	// collapsed into.
	Junctions map[string]string

	// Names retains the full name assignment for cross-entity lookups.
	Names *Names
}

// Entity returns the entity generated from the given table, or nil.
func (m *Model) Entity(table string) *Entity {
	for _, e := range m.Entities {
		if e.Table == table {
			return e
		}
	}

	return nil
}

// EntityByName returns the entity with the given resolved name, or nil.
func (m *Model) EntityByName(name string) *Entity {
	for _, e := range m.Entities {
		if e.Name == name {
			return e
		}
	}

	return nil
}

// Build runs the full resolution pipeline over a validated schema: classify
// relationships, map types, resolve names, order by dependency, and assemble
// the frozen entity models. The schema is never mutated; rebuilding from the
// same schema yields an identical Model.
func Build(s *dbscaf.Schema) (*Model, error) {
	rr, err := ResolveRelationships(s)
	if err != nil {
		return nil, err
	}

	names, err := ResolveNames(s, rr)
	if err != nil {
		return nil, err
	}

	ord := OrderEntities(s, rr)

	m := &Model{
		Warnings:  rr.Warnings,
		Junctions: make(map[string]string),
		Names:     names,
	}
	for i := range rr.All {
		r := &rr.All[i]
		if r.Junction != "" {
			m.Junctions[r.Junction] = r.ID()
		}
	}

	for _, table := range ord.Tables {
		entity, warnings := buildEntity(s.Table(table), rr, names, ord)
		m.Entities = append(m.Entities, entity)
		m.Warnings = append(m.Warnings, warnings...)
	}

	return m, nil
}

func buildEntity(t *dbscaf.Table, rr *Relationships, names *Names, ord Ordering) (*Entity, []dbscaf.Warning) {
	e := &Entity{
		Name:    names.Entity[t.Name],
		Table:   t.Name,
		Comment: t.Comment,
	}

	var warnings []dbscaf.Warning

	pkCols := make(map[string]bool)
	if pk := t.PrimaryKey(); pk != nil {
		for _, c := range pk.Columns {
			pkCols[c] = true
		}
		e.CompositePK = len(pk.Columns) > 1
	}

	// Columns a deferred relationship owns must render nullable: the schema
	// says otherwise, but the output contract requires it so a cycle's
	// deferred side can be created before its counterpart exists.
	deferredCols := make(map[string]bool)
	outgoing, incoming := rr.ByRole(t.Name)
	for i := range outgoing {
		if ord.Deferred[outgoing[i].ID()] {
			for _, c := range outgoing[i].SourceColumns {
				deferredCols[c] = true
			}
		}
	}

	enums := ColumnEnums(t)

	for _, col := range t.Columns {
		spec, warn := MapColumn(t.Name, col)
		if warn != nil {
			warnings = append(warnings, *warn)
		}

		if values, ok := enums[col.Name]; ok && (spec.Kind == KindString || spec.Kind == KindText || spec.Kind == KindEnum) {
			spec.Kind = KindEnum
			spec.Enum = values
		}
		if deferredCols[col.Name] {
			spec.Nullable = true
		}

		f := Field{
			Name:       names.Field[t.Name][col.Name],
			Column:     col.Name,
			JSONName:   col.Name,
			Spec:       spec,
			PrimaryKey: pkCols[col.Name],
			Unique:     t.ColumnsUnique([]string{col.Name}),
		}
		e.Fields = append(e.Fields, f)

		if f.PrimaryKey && !e.CompositePK && spec.Kind == KindAuto {
			e.AutoPK = true
		}
	}

	if pk := t.PrimaryKey(); pk != nil {
		for _, c := range pk.Columns {
			e.PKFields = append(e.PKFields, names.Field[t.Name][c])
		}
	}

	for i := range outgoing {
		r := &outgoing[i]
		name := names.Forward[r.ID()]
		cols := r.SourceColumns
		if r.Kind == ManyToMany {
			cols = r.JunctionSource
		}
		e.Fields = append(e.Fields, Field{
			Name:     name,
			JSONName: Snake(name),
			Rel: &RelBinding{
				Kind:        r.Kind,
				Target:      names.Entity[r.TargetTable],
				TargetTable: r.TargetTable,
				Forward:     true,
				Collection:  r.Kind == ManyToMany,
				Self:        r.Self,
				Deferred:    ord.Deferred[r.ID()],
				Junction:    r.Junction,
				Columns:     cols,
				RelID:       r.ID(),
			},
		})

		// A self-referential relationship contributes its reverse accessor to
		// the same entity.
		if r.Self {
			incoming = append(incoming, *r)
		}
	}

	for i := range incoming {
		r := &incoming[i]
		name := names.Reverse[r.ID()]
		cols := r.SourceColumns
		if r.Kind == ManyToMany {
			cols = r.JunctionTarget
		}
		e.Fields = append(e.Fields, Field{
			Name:     name,
			JSONName: Snake(name),
			Rel: &RelBinding{
				Kind:        r.Kind,
				Target:      names.Entity[r.SourceTable],
				TargetTable: r.SourceTable,
				Forward:     false,
				Collection:  r.Kind != OneToOne,
				Self:        r.Self,
				Deferred:    ord.Deferred[r.ID()],
				Junction:    r.Junction,
				Columns:     cols,
				RelID:       r.ID(),
			},
		})
	}

	return e, warnings
}
