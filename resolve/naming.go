package resolve

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"

	"github.com/rlch/dbscaf"
)

// Names is the naming resolver's output: every entity, field, and
// relationship accessor mapped to a unique, valid identifier. The mapping is
// a pure function of the schema: re-running on an unchanged schema
// reproduces identical names, and collisions are resolved with suffixes
// derived from owning columns rather than traversal-order counters.
type Names struct {
	// Entity maps table name to resolved type name (unique schema-wide).
	Entity map[string]string

	// Field maps table name to column name to resolved field name.
	Field map[string]map[string]string

	// Forward and Reverse map a relationship ID to the accessor name on the
	// source and target entity respectively.
	Forward map[string]string
	Reverse map[string]string
}

// initialisms are column-name words rendered in caps, the Go convention.
var initialisms = map[string]string{
	"id": "ID", "uuid": "UUID", "url": "URL", "uri": "URI",
	"api": "API", "json": "JSON", "sql": "SQL", "http": "HTTP", "ip": "IP",
}

// Pascal converts a snake_case schema name to an exported PascalCase
// identifier, honoring common initialisms: "author_id" becomes "AuthorID".
func Pascal(name string) string {
	var b strings.Builder
	for _, word := range splitWords(name) {
		if up, ok := initialisms[word]; ok {
			b.WriteString(up)

			continue
		}
		r := []rune(word)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	if b.Len() == 0 {
		return "Field"
	}

	s := b.String()
	if unicode.IsDigit(rune(s[0])) {
		s = "N" + s
	}

	return s
}

// Snake converts a resolved PascalCase identifier back to snake_case for
// wire-level names: "ShipmentsByBillingAddress" becomes
// "shipments_by_billing_address".
func Snake(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			// Start a new word unless continuing an all-caps run.
			if i > 0 && (!unicode.IsUpper(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}

	return b.String()
}

func splitWords(name string) []string {
	var words []string
	for _, w := range strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		words = append(words, w)
	}

	return words
}

// EntityTypeName derives the type name for a table: singularized, PascalCase.
// "user_accounts" becomes "UserAccount".
func EntityTypeName(table string) string {
	return Pascal(inflection.Singular(table))
}

// trimKeySuffix strips the conventional "_id" suffix from a foreign key
// column so "author_id" yields accessor "Author".
func trimKeySuffix(column string) string {
	if t := strings.TrimSuffix(column, "_id"); t != "" {
		return t
	}

	return column
}

// accessorBase derives the forward accessor base from owning columns.
func accessorBase(columns []string) string {
	parts := make([]string, 0, len(columns))
	for _, c := range columns {
		parts = append(parts, trimKeySuffix(c))
	}

	return Pascal(strings.Join(parts, "_"))
}

// Pluralize pluralizes a resolved PascalCase type name.
func Pluralize(typeName string) string {
	return inflection.Plural(typeName)
}

// owningSuffix is the deterministic disambiguation suffix for a
// relationship, derived from its owning column identity.
func owningSuffix(r *Relationship) string {
	cols := r.SourceColumns
	if r.Kind == ManyToMany {
		cols = r.JunctionSource
	}

	return "By" + accessorBase(cols)
}

// ResolveNames assigns every entity, field, and accessor a unique resolved
// identifier. Junction tables are suppressed and get no entity name.
func ResolveNames(s *dbscaf.Schema, rr *Relationships) (*Names, error) {
	n := &Names{
		Entity:  make(map[string]string),
		Field:   make(map[string]map[string]string),
		Forward: make(map[string]string),
		Reverse: make(map[string]string),
	}

	if err := n.resolveEntities(s, rr); err != nil {
		return nil, err
	}

	// scopes tracks names taken per entity: fields first, then forward
	// accessors, then reverse accessors, so accessor suffixing sees the full
	// field surface.
	scopes := make(map[string]map[string]string) // table -> name -> origin

	if err := n.resolveFields(s, rr, scopes); err != nil {
		return nil, err
	}
	if err := n.resolveForward(rr, scopes); err != nil {
		return nil, err
	}

	return n, n.resolveReverse(rr, scopes)
}

func (n *Names) resolveEntities(s *dbscaf.Schema, rr *Relationships) error {
	tables := make([]string, 0, len(s.Tables))
	for _, t := range s.Tables {
		if !rr.Junctions[t.Name] {
			tables = append(tables, t.Name)
		}
	}
	sort.Strings(tables)

	owner := make(map[string]string)
	for _, table := range tables {
		name := EntityTypeName(table)
		if prev, taken := owner[name]; taken {
			// Singularization collapsed two tables; fall back to the raw name.
			alt := Pascal(table)
			if _, altTaken := owner[alt]; altTaken || alt == name {
				return &dbscaf.NamingError{Name: name, First: prev, Second: table}
			}
			name = alt
		}
		owner[name] = table
		n.Entity[table] = name
	}

	return nil
}

func (n *Names) resolveFields(s *dbscaf.Schema, rr *Relationships, scopes map[string]map[string]string) error {
	for i := range s.Tables {
		t := &s.Tables[i]
		if rr.Junctions[t.Name] {
			continue
		}

		scope := make(map[string]string, len(t.Columns))
		scopes[t.Name] = scope
		n.Field[t.Name] = make(map[string]string, len(t.Columns))

		for _, col := range t.Columns {
			name := Pascal(col.Name)
			if prev, taken := scope[name]; taken {
				return &dbscaf.NamingError{
					Scope: fmt.Sprintf("entity %s", n.Entity[t.Name]),
					Name:  name, First: prev, Second: col.Name,
				}
			}
			scope[name] = col.Name
			n.Field[t.Name][col.Name] = name
		}
	}

	return nil
}

func (n *Names) resolveForward(rr *Relationships, scopes map[string]map[string]string) error {
	for i := range rr.All {
		r := &rr.All[i]
		scope := scopes[r.SourceTable]
		if scope == nil {
			continue
		}

		var base string
		if r.Kind == ManyToMany {
			base = Pluralize(n.Entity[r.TargetTable])
		} else {
			base = accessorBase(r.SourceColumns)
		}

		name := base
		if _, taken := scope[name]; taken {
			name = base + owningSuffix(r)
		}
		if prev, taken := scope[name]; taken {
			return &dbscaf.NamingError{
				Scope: fmt.Sprintf("entity %s", n.Entity[r.SourceTable]),
				Name:  name, First: prev, Second: r.ID(),
			}
		}
		scope[name] = r.ID()
		n.Forward[r.ID()] = name
	}

	return nil
}

func (n *Names) resolveReverse(rr *Relationships, scopes map[string]map[string]string) error {
	// Group by (target, base): when two foreign keys from the same source hit
	// the same target, every member gets the owning-column suffix; a bare
	// name for one of them would depend on resolution order.
	type member struct {
		rel  *Relationship
		base string
	}
	groups := make(map[string][]member)

	var keys []string
	for i := range rr.All {
		r := &rr.All[i]
		if scopes[r.TargetTable] == nil {
			continue
		}

		var base string
		switch r.Kind {
		case OneToOne:
			base = n.Entity[r.SourceTable]
		case ManyToOne, ManyToMany:
			base = Pluralize(n.Entity[r.SourceTable])
		}

		key := r.TargetTable + "\x00" + base
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], member{rel: r, base: base})
	}
	sort.Strings(keys)

	for _, key := range keys {
		members := groups[key]
		for _, m := range members {
			scope := scopes[m.rel.TargetTable]

			name := m.base
			// Self-referential relationships always take the suffix: the bare
			// plural would read as "all rows of this entity".
			if len(members) > 1 || m.rel.Self {
				name = m.base + owningSuffix(m.rel)
			}
			if _, taken := scope[name]; taken {
				name = m.base + owningSuffix(m.rel)
			}
			if prev, taken := scope[name]; taken {
				return &dbscaf.NamingError{
					Scope: fmt.Sprintf("entity %s", n.Entity[m.rel.TargetTable]),
					Name:  name, First: prev, Second: m.rel.ID(),
				}
			}
			scope[name] = m.rel.ID()
			n.Reverse[m.rel.ID()] = name
		}
	}

	return nil
}
