// Package resolve turns a raw introspected schema into the frozen entity
// model consumed by every generator: it classifies relationships, maps native
// column types to field specifications, assigns collision-free names, and
// orders entities by dependency.
package resolve

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rlch/dbscaf"
)

// Kind classifies a resolved relationship. It is always derived from
// constraint shape, never set directly.
type Kind int

const (
	// ManyToOne is a plain foreign key: many source rows reference one target row.
	ManyToOne Kind = iota

	// OneToOne is a foreign key whose owning column set is also unique.
	OneToOne

	// ManyToMany is a pair of foreign keys collapsed through a junction table.
	ManyToMany
)

func (k Kind) String() string {
	switch k {
	case ManyToOne:
		return "many-to-one"
	case OneToOne:
		return "one-to-one"
	case ManyToMany:
		return "many-to-many"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Relationship is a resolved association between two tables.
//
// For many-to-one and one-to-one, SourceTable owns the foreign key columns
// (SourceColumns) referencing TargetColumns on TargetTable. For many-to-many,
// SourceTable and TargetTable are the two referenced tables and the owning
// columns live on the junction.
type Relationship struct {
	Kind          Kind
	SourceTable   string
	TargetTable   string
	SourceColumns []string
	TargetColumns []string

	// Junction is set for many-to-many only: the suppressed junction table,
	// with the junction's FK columns toward each side.
	Junction       string
	JunctionSource []string // junction columns referencing SourceTable
	JunctionTarget []string // junction columns referencing TargetTable

	// Self marks a self-referential relationship (source == target).
	Self bool

	// index is the resolution order, used to pick which edge to defer when
	// breaking dependency cycles.
	index int
}

// ID returns a deterministic identity derived from the source table, kind,
// and owning column set. Multiple foreign keys between the same two tables
// therefore resolve to distinct identities.
func (r *Relationship) ID() string {
	cols := r.SourceColumns
	if r.Kind == ManyToMany {
		cols = r.JunctionSource
	}

	return r.SourceTable + "/" + r.Kind.String() + "/" + strings.Join(cols, "+")
}

// Index returns the resolution order of the relationship. Later-resolved
// relationships have lower priority when a cycle must be broken.
func (r *Relationship) Index() int { return r.index }

// Relationships is the resolver's output: the complete relationship set plus
// the junction tables suppressed from entity generation.
type Relationships struct {
	All       []Relationship
	Junctions map[string]bool
	Warnings  []dbscaf.Warning
}

// ByRole returns the relationships where table participates as source
// (outgoing) and as target (incoming), excluding the self-referential
// double-count: a self relationship appears only in outgoing.
func (rr *Relationships) ByRole(table string) (outgoing, incoming []Relationship) {
	for _, r := range rr.All {
		if r.SourceTable == table {
			outgoing = append(outgoing, r)
		}
		if r.TargetTable == table && !r.Self {
			incoming = append(incoming, r)
		}
	}

	return outgoing, incoming
}

// ResolveRelationships classifies every foreign key constraint in the schema.
//
// Classification is purely structural: a foreign key whose owning column set
// is covered by a unique constraint or index is one-to-one, otherwise
// many-to-one. Junction tables (exactly two foreign keys, composite primary
// key formed by their union, and nothing else) collapse into a single
// many-to-many relationship and are suppressed as entities. Near-misses
// degrade conservatively: a false negative yields slightly clunkier code, a
// false positive corrupts it.
func ResolveRelationships(s *dbscaf.Schema) (*Relationships, error) {
	rr := &Relationships{Junctions: make(map[string]bool)}

	// Junction detection runs first so the junction's own foreign keys are
	// consumed by the many-to-many instead of surfacing as many-to-one.
	for i := range s.Tables {
		t := &s.Tables[i]
		if junction, warn := classifyJunction(s, t); junction {
			rr.Junctions[t.Name] = true
		} else if warn != nil {
			rr.Warnings = append(rr.Warnings, *warn)
		}
	}

	idx := 0
	for i := range s.Tables {
		t := &s.Tables[i]

		if rr.Junctions[t.Name] {
			rel, err := junctionRelationship(s, t, idx)
			if err != nil {
				return nil, err
			}
			rr.All = append(rr.All, *rel)
			idx++

			continue
		}

		for _, fk := range t.ForeignKeys() {
			target := s.Table(fk.RefTable)
			if target == nil {
				rr.Warnings = append(rr.Warnings, dbscaf.Warning{
					Kind:    dbscaf.WarnDanglingReference,
					Table:   t.Name,
					Column:  strings.Join(fk.Columns, ", "),
					Message: fmt.Sprintf("foreign key references table %q which is absent from the schema; relationship dropped", fk.RefTable),
				})

				continue
			}

			if pk := target.PrimaryKey(); pk != nil && len(fk.Columns) != len(pk.Columns) {
				return nil, &dbscaf.SchemaError{
					Table:  t.Name,
					Column: strings.Join(fk.Columns, ", "),
					Detail: fmt.Sprintf("foreign key column count %d does not match %s's primary key column count %d", len(fk.Columns), target.Name, len(pk.Columns)),
				}
			}

			kind := ManyToOne
			if t.ColumnsUnique(fk.Columns) {
				kind = OneToOne
			}

			rr.All = append(rr.All, Relationship{
				Kind:          kind,
				SourceTable:   t.Name,
				TargetTable:   fk.RefTable,
				SourceColumns: append([]string{}, fk.Columns...),
				TargetColumns: append([]string{}, fk.RefColumns...),
				Self:          t.Name == fk.RefTable,
				index:         idx,
			})
			idx++
		}
	}

	sortRelationships(rr.All)

	return rr, nil
}

// classifyJunction applies the three-part junction rule. The second return is
// a non-nil ambiguity warning when the table looked like a junction but was
// disqualified by the conservative policy.
func classifyJunction(s *dbscaf.Schema, t *dbscaf.Table) (bool, *dbscaf.Warning) {
	fks := t.ForeignKeys()
	if len(fks) != 2 {
		return false, nil
	}

	if s.Table(fks[0].RefTable) == nil || s.Table(fks[1].RefTable) == nil {
		return false, nil
	}

	pk := t.PrimaryKey()
	if pk == nil || len(pk.Columns) < 2 {
		return false, nil
	}

	fkCols := make(map[string]bool)
	for _, fk := range fks {
		for _, c := range fk.Columns {
			fkCols[c] = true
		}
	}

	// (b) the union of the two FK column sets must form the entire PK.
	if len(pk.Columns) != len(fkCols) {
		return false, nil
	}
	for _, c := range pk.Columns {
		if !fkCols[c] {
			return false, nil
		}
	}

	// (c) no columns at all beyond the two FK column sets. Even a timestamp
	// disqualifies: the table then carries data of its own and must surface
	// as an entity.
	var extras []string
	for _, col := range t.Columns {
		if !fkCols[col.Name] {
			extras = append(extras, col.Name)
		}
	}
	if len(extras) > 0 {
		return false, &dbscaf.Warning{
			Kind:    dbscaf.WarnRelationshipAmbiguity,
			Table:   t.Name,
			Column:  strings.Join(extras, ", "),
			Message: "looks like a junction table but carries extra columns; generating it as an entity with two many-to-one relationships",
		}
	}

	return true, nil
}

// junctionRelationship collapses a junction table into one many-to-many
// relationship. The lexicographically first referenced table owns the forward
// side, keeping output independent of constraint declaration order.
func junctionRelationship(s *dbscaf.Schema, t *dbscaf.Table, idx int) (*Relationship, error) {
	fks := t.ForeignKeys()

	a, b := fks[0], fks[1]
	if b.RefTable < a.RefTable || (b.RefTable == a.RefTable && strings.Join(b.Columns, ",") < strings.Join(a.Columns, ",")) {
		a, b = b, a
	}

	for _, fk := range []dbscaf.Constraint{a, b} {
		target := s.Table(fk.RefTable)
		if pk := target.PrimaryKey(); pk != nil && len(fk.Columns) != len(pk.Columns) {
			return nil, &dbscaf.SchemaError{
				Table:  t.Name,
				Column: strings.Join(fk.Columns, ", "),
				Detail: fmt.Sprintf("foreign key column count %d does not match %s's primary key column count %d", len(fk.Columns), target.Name, len(pk.Columns)),
			}
		}
	}

	return &Relationship{
		Kind:           ManyToMany,
		SourceTable:    a.RefTable,
		TargetTable:    b.RefTable,
		SourceColumns:  append([]string{}, a.RefColumns...),
		TargetColumns:  append([]string{}, b.RefColumns...),
		Junction:       t.Name,
		JunctionSource: append([]string{}, a.Columns...),
		JunctionTarget: append([]string{}, b.Columns...),
		Self:           a.RefTable == b.RefTable,
		index:          idx,
	}, nil
}

// sortRelationships orders relationships deterministically by identity,
// preserving each relationship's resolution index.
func sortRelationships(rels []Relationship) {
	sort.SliceStable(rels, func(i, j int) bool {
		if rels[i].SourceTable != rels[j].SourceTable {
			return rels[i].SourceTable < rels[j].SourceTable
		}

		return rels[i].ID() < rels[j].ID()
	})
}
