// Package postgres provides a dbscaf introspector for PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rlch/dbscaf"
	"github.com/rlch/dbscaf/introspect"
)

//nolint:gochecknoinits // Driver self-registration pattern
func init() {
	introspect.Register(dbscaf.DriverPostgres, func(ctx context.Context, cfg *dbscaf.Config) (introspect.Conn, error) {
		if cfg.Postgres == nil {
			return nil, dbscaf.ErrNoDatabase
		}

		return New(ctx, cfg.Postgres)
	})
}

// DB implements schema introspection over a pgx connection pool.
type DB struct {
	pool   *pgxpool.Pool
	schema string
}

// New connects to PostgreSQL and verifies connectivity.
func New(ctx context.Context, cfg *dbscaf.PostgresConfig) (*DB, error) {
	pool, err := pgxpool.New(ctx, connString(cfg))
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	schema := cfg.Schema
	if schema == "" {
		schema = "public"
	}

	return &DB{pool: pool, schema: schema}, nil
}

// Close releases the connection pool.
func (db *DB) Close(context.Context) error {
	db.pool.Close()

	return nil
}

func connString(cfg *dbscaf.PostgresConfig) string {
	if cfg.URI != "" {
		return cfg.URI
	}

	var parts []string
	add := func(key, value string) {
		if value != "" {
			parts = append(parts, key+"="+value)
		}
	}
	add("host", cfg.Host)
	if cfg.Port != 0 {
		parts = append(parts, fmt.Sprintf("port=%d", cfg.Port))
	}
	add("dbname", cfg.Database)
	add("user", cfg.User)
	add("password", cfg.Password)
	add("sslmode", cfg.SSLMode)

	return strings.Join(parts, " ")
}

// IntrospectSchema reads every base table in the configured schema.
func (db *DB) IntrospectSchema(ctx context.Context) (*dbscaf.Schema, error) {
	s := &dbscaf.Schema{Name: db.schema}

	byName, err := db.loadTables(ctx, s)
	if err != nil {
		return nil, err
	}
	if err := db.loadColumns(ctx, byName); err != nil {
		return nil, err
	}
	if err := db.loadComments(ctx, byName); err != nil {
		return nil, err
	}
	if err := db.loadConstraints(ctx, byName); err != nil {
		return nil, err
	}
	if err := db.loadIndexes(ctx, byName); err != nil {
		return nil, err
	}

	return s, nil
}

func (db *DB) loadTables(ctx context.Context, s *dbscaf.Schema) (map[string]*dbscaf.Table, error) {
	const q = `
		SELECT c.relname, COALESCE(obj_description(c.oid), '')
		FROM pg_class c
		JOIN pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = $1 AND c.relkind = 'r'
		ORDER BY c.relname`

	rows, err := db.pool.Query(ctx, q, db.schema)
	if err != nil {
		return nil, fmt.Errorf("postgres: list tables: %w", err)
	}
	defer rows.Close()

	byName := make(map[string]*dbscaf.Table)
	for rows.Next() {
		var name, comment string
		if err := rows.Scan(&name, &comment); err != nil {
			return nil, fmt.Errorf("postgres: scan table: %w", err)
		}
		s.Tables = append(s.Tables, dbscaf.Table{Name: name, Comment: comment})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list tables: %w", err)
	}

	for i := range s.Tables {
		byName[s.Tables[i].Name] = &s.Tables[i]
	}

	return byName, nil
}

func (db *DB) loadColumns(ctx context.Context, byName map[string]*dbscaf.Table) error {
	const q = `
		SELECT c.table_name, c.column_name, c.udt_name,
		       COALESCE(c.character_maximum_length, 0),
		       COALESCE(c.numeric_precision, 0),
		       COALESCE(c.numeric_scale, 0),
		       c.is_nullable = 'YES',
		       COALESCE(c.column_default, ''),
		       c.column_default IS NOT NULL,
		       COALESCE(c.column_default LIKE 'nextval(%', false) OR c.is_identity = 'YES'
		FROM information_schema.columns c
		WHERE c.table_schema = $1
		ORDER BY c.table_name, c.ordinal_position`

	rows, err := db.pool.Query(ctx, q, db.schema)
	if err != nil {
		return fmt.Errorf("postgres: list columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var table string
		var col dbscaf.Column
		if err := rows.Scan(&table, &col.Name, &col.Type,
			&col.Length, &col.Precision, &col.Scale,
			&col.Nullable, &col.Default, &col.HasDefault, &col.AutoIncrement); err != nil {
			return fmt.Errorf("postgres: scan column: %w", err)
		}
		if col.AutoIncrement {
			// Serial columns report their sequence default; the key itself is
			// what matters downstream.
			col.Default, col.HasDefault = "", false
		}
		if t := byName[table]; t != nil {
			t.Columns = append(t.Columns, col)
		}
	}

	return rows.Err()
}

func (db *DB) loadComments(ctx context.Context, byName map[string]*dbscaf.Table) error {
	const q = `
		SELECT cl.relname, a.attname, col_description(cl.oid, a.attnum)
		FROM pg_attribute a
		JOIN pg_class cl ON cl.oid = a.attrelid
		JOIN pg_namespace n ON n.oid = cl.relnamespace
		WHERE n.nspname = $1 AND cl.relkind = 'r'
		  AND a.attnum > 0 AND NOT a.attisdropped
		  AND col_description(cl.oid, a.attnum) IS NOT NULL
		ORDER BY cl.relname, a.attnum`

	rows, err := db.pool.Query(ctx, q, db.schema)
	if err != nil {
		return fmt.Errorf("postgres: list comments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var table, column, comment string
		if err := rows.Scan(&table, &column, &comment); err != nil {
			return fmt.Errorf("postgres: scan comment: %w", err)
		}
		t := byName[table]
		if t == nil {
			continue
		}
		if c := t.Column(column); c != nil {
			c.Comment = comment
		}
	}

	return rows.Err()
}

func (db *DB) loadConstraints(ctx context.Context, byName map[string]*dbscaf.Table) error {
	const q = `
		SELECT cl.relname, con.conname, con.contype::text,
		       (SELECT array_agg(a.attname ORDER BY k.ord)
		        FROM unnest(con.conkey) WITH ORDINALITY AS k(attnum, ord)
		        JOIN pg_attribute a ON a.attrelid = con.conrelid AND a.attnum = k.attnum),
		       COALESCE(ref.relname, ''),
		       (SELECT array_agg(a.attname ORDER BY k.ord)
		        FROM unnest(con.confkey) WITH ORDINALITY AS k(attnum, ord)
		        JOIN pg_attribute a ON a.attrelid = con.confrelid AND a.attnum = k.attnum),
		       pg_get_constraintdef(con.oid)
		FROM pg_constraint con
		JOIN pg_class cl ON cl.oid = con.conrelid
		JOIN pg_namespace n ON n.oid = cl.relnamespace
		LEFT JOIN pg_class ref ON ref.oid = con.confrelid
		WHERE n.nspname = $1 AND con.contype IN ('p', 'u', 'f', 'c')
		ORDER BY cl.relname, con.conname`

	rows, err := db.pool.Query(ctx, q, db.schema)
	if err != nil {
		return fmt.Errorf("postgres: list constraints: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var table, name, contype, refTable, def string
		var columns, refColumns []string
		if err := rows.Scan(&table, &name, &contype, &columns, &refTable, &refColumns, &def); err != nil {
			return fmt.Errorf("postgres: scan constraint: %w", err)
		}

		t := byName[table]
		if t == nil {
			continue
		}

		c := dbscaf.Constraint{Name: name, Columns: columns}
		switch contype {
		case "p":
			c.Kind = dbscaf.ConstraintPrimaryKey
		case "u":
			c.Kind = dbscaf.ConstraintUnique
		case "f":
			c.Kind = dbscaf.ConstraintForeignKey
			c.RefTable = refTable
			c.RefColumns = refColumns
		case "c":
			c.Kind = dbscaf.ConstraintCheck
			c.CheckClause = strings.TrimPrefix(def, "CHECK ")
		}
		t.Constraints = append(t.Constraints, c)
	}

	return rows.Err()
}

func (db *DB) loadIndexes(ctx context.Context, byName map[string]*dbscaf.Table) error {
	const q = `
		SELECT cl.relname, ic.relname, ix.indisunique,
		       ix.indexprs IS NOT NULL,
		       (SELECT array_agg(a.attname ORDER BY k.ord)
		        FROM unnest(ix.indkey::int2[]) WITH ORDINALITY AS k(attnum, ord)
		        JOIN pg_attribute a ON a.attrelid = ix.indrelid AND a.attnum = k.attnum
		        WHERE k.attnum > 0)
		FROM pg_index ix
		JOIN pg_class ic ON ic.oid = ix.indexrelid
		JOIN pg_class cl ON cl.oid = ix.indrelid
		JOIN pg_namespace n ON n.oid = cl.relnamespace
		WHERE n.nspname = $1 AND NOT ix.indisprimary
		ORDER BY cl.relname, ic.relname`

	rows, err := db.pool.Query(ctx, q, db.schema)
	if err != nil {
		return fmt.Errorf("postgres: list indexes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var table string
		var idx dbscaf.Index
		var columns []string
		if err := rows.Scan(&table, &idx.Name, &idx.Unique, &idx.Expression, &columns); err != nil {
			return fmt.Errorf("postgres: scan index: %w", err)
		}
		idx.Columns = columns
		if t := byName[table]; t != nil {
			t.Indexes = append(t.Indexes, idx)
		}
	}

	return rows.Err()
}
