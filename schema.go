package dbscaf

import (
	"context"
	"fmt"
	"strings"
)

// Introspector is implemented by database drivers that support schema extraction.
// The pipeline treats introspection as a single atomic read: it either receives
// a complete Schema or an error, never a partial one.
type Introspector interface {
	// IntrospectSchema extracts the full relational schema
	// (tables, columns, constraints, indexes).
	IntrospectSchema(ctx context.Context) (*Schema, error)
}

// ConstraintKind identifies the kind of a table constraint.
type ConstraintKind int

const (
	ConstraintPrimaryKey ConstraintKind = iota
	ConstraintUnique
	ConstraintCheck
	ConstraintForeignKey
)

func (k ConstraintKind) String() string {
	switch k {
	case ConstraintPrimaryKey:
		return "primary key"
	case ConstraintUnique:
		return "unique"
	case ConstraintCheck:
		return "check"
	case ConstraintForeignKey:
		return "foreign key"
	default:
		return fmt.Sprintf("ConstraintKind(%d)", int(k))
	}
}

// Column represents a single table column as reported by the introspector.
type Column struct {
	Name          string
	Type          string // native type name, lowercased (e.g. "varchar", "int8")
	Length        int    // character length, 0 when not applicable
	Precision     int    // numeric precision, 0 when not applicable
	Scale         int    // numeric scale, 0 when not applicable
	Nullable      bool
	Default       string // raw default expression text
	HasDefault    bool
	AutoIncrement bool
	Comment       string
}

// Constraint represents a primary key, unique, check, or foreign key constraint.
type Constraint struct {
	Name    string
	Kind    ConstraintKind
	Columns []string

	// Foreign key only.
	RefTable   string
	RefColumns []string

	// Check only: the raw clause text (e.g. "status IN ('draft', 'live')").
	CheckClause string
}

// Index represents an index definition. Indexes inform relationship
// cardinality (a unique index makes a FK one-to-one) but never own a
// relationship themselves.
type Index struct {
	Name       string
	Columns    []string
	Unique     bool
	Expression bool // true when any indexed member is an expression, not a column
}

// Table represents one relational table.
type Table struct {
	Name        string
	Comment     string
	Columns     []Column
	Constraints []Constraint
	Indexes     []Index
}

// Column returns the named column, or nil if the table has no such column.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}

	return nil
}

// PrimaryKey returns the table's primary key constraint, or nil.
func (t *Table) PrimaryKey() *Constraint {
	for i := range t.Constraints {
		if t.Constraints[i].Kind == ConstraintPrimaryKey {
			return &t.Constraints[i]
		}
	}

	return nil
}

// ForeignKeys returns the table's foreign key constraints in declaration order.
func (t *Table) ForeignKeys() []Constraint {
	var fks []Constraint
	for _, c := range t.Constraints {
		if c.Kind == ConstraintForeignKey {
			fks = append(fks, c)
		}
	}

	return fks
}

// CheckConstraints returns the table's check constraints in declaration order.
func (t *Table) CheckConstraints() []Constraint {
	var checks []Constraint
	for _, c := range t.Constraints {
		if c.Kind == ConstraintCheck {
			checks = append(checks, c)
		}
	}

	return checks
}

// ColumnsUnique reports whether the given column set is covered by a unique
// constraint or unique index: some unique column set is a subset of cols.
// The primary key counts as unique.
func (t *Table) ColumnsUnique(cols []string) bool {
	have := make(map[string]bool, len(cols))
	for _, c := range cols {
		have[c] = true
	}

	covered := func(unique []string) bool {
		if len(unique) == 0 {
			return false
		}
		for _, c := range unique {
			if !have[c] {
				return false
			}
		}

		return true
	}

	for _, c := range t.Constraints {
		if (c.Kind == ConstraintUnique || c.Kind == ConstraintPrimaryKey) && covered(c.Columns) {
			return true
		}
	}
	for _, idx := range t.Indexes {
		if idx.Unique && !idx.Expression && covered(idx.Columns) {
			return true
		}
	}

	return false
}

// Schema is the immutable in-memory representation of an introspected database.
// It is built once by an Introspector and read-only afterward; downstream
// stages produce enrichment structures instead of mutating it.
type Schema struct {
	Name   string
	Tables []Table
}

// Table returns the named table, or nil.
func (s *Schema) Table(name string) *Table {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}

	return nil
}

// Filter returns a new Schema restricted to the include list (all tables when
// empty) minus the exclude list. A filter entry naming a table absent from
// the schema is a configuration error: silently ignoring it would make typos
// indistinguishable from intent.
func (s *Schema) Filter(include, exclude []string) (*Schema, error) {
	for _, name := range append(append([]string{}, include...), exclude...) {
		if s.Table(name) == nil {
			return nil, &SchemaError{Table: name, Detail: "table filter references a table that does not exist"}
		}
	}

	included := func(name string) bool {
		if len(include) == 0 {
			return true
		}
		for _, t := range include {
			if t == name {
				return true
			}
		}

		return false
	}
	excluded := func(name string) bool {
		for _, t := range exclude {
			if t == name {
				return true
			}
		}

		return false
	}

	out := &Schema{Name: s.Name}
	for _, t := range s.Tables {
		if included(t.Name) && !excluded(t.Name) {
			out.Tables = append(out.Tables, t)
		}
	}

	return out, nil
}

// Validate checks schema-level consistency invariants. Violations are fatal:
// generation against an inconsistent schema would produce corrupt code.
func (s *Schema) Validate() error {
	for i := range s.Tables {
		t := &s.Tables[i]

		seen := make(map[string]bool, len(t.Columns))
		for _, col := range t.Columns {
			if seen[col.Name] {
				return &SchemaError{Table: t.Name, Column: col.Name, Detail: "duplicate column name"}
			}
			seen[col.Name] = true
		}

		pks := 0
		for _, c := range t.Constraints {
			switch c.Kind {
			case ConstraintPrimaryKey:
				pks++
			case ConstraintForeignKey:
				if len(c.Columns) != len(c.RefColumns) {
					return &SchemaError{
						Table:  t.Name,
						Column: strings.Join(c.Columns, ", "),
						Detail: fmt.Sprintf("foreign key %q has %d columns but references %d", c.Name, len(c.Columns), len(c.RefColumns)),
					}
				}
				if ref := s.Table(c.RefTable); ref != nil {
					if pk := ref.PrimaryKey(); pk != nil && len(c.Columns) != len(pk.Columns) {
						return &SchemaError{
							Table:  t.Name,
							Column: strings.Join(c.Columns, ", "),
							Detail: fmt.Sprintf("foreign key %q has %d columns but %s's primary key has %d", c.Name, len(c.Columns), c.RefTable, len(pk.Columns)),
						}
					}
				}
			case ConstraintUnique, ConstraintCheck:
			}

			for _, col := range c.Columns {
				if c.Kind != ConstraintCheck && t.Column(col) == nil {
					return &SchemaError{Table: t.Name, Column: col, Detail: fmt.Sprintf("constraint %q references an unknown column", c.Name)}
				}
			}
		}
		if pks > 1 {
			return &SchemaError{Table: t.Name, Detail: "multiple primary key constraints"}
		}
	}

	return nil
}
