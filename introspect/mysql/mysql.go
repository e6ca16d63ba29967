// Package mysql provides a dbscaf introspector for MySQL and MariaDB.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql" // database/sql driver

	"github.com/rlch/dbscaf"
	"github.com/rlch/dbscaf/introspect"
)

//nolint:gochecknoinits // Driver self-registration pattern
func init() {
	introspect.Register(dbscaf.DriverMySQL, func(ctx context.Context, cfg *dbscaf.Config) (introspect.Conn, error) {
		if cfg.MySQL == nil {
			return nil, dbscaf.ErrNoDatabase
		}

		return New(ctx, cfg.MySQL)
	})
}

// DB implements schema introspection over a database/sql connection.
type DB struct {
	db     *sql.DB
	schema string
}

// New connects to MySQL and verifies connectivity.
func New(ctx context.Context, cfg *dbscaf.MySQLConfig) (*DB, error) {
	db, err := sql.Open("mysql", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("mysql: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("mysql: ping: %w", err)
	}

	// The DSN names the schema; read it back rather than re-parsing.
	var schema string
	if err := db.QueryRowContext(ctx, `SELECT DATABASE()`).Scan(&schema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("mysql: current schema: %w", err)
	}

	return &DB{db: db, schema: schema}, nil
}

// Close releases the connection.
func (db *DB) Close(context.Context) error {
	return db.db.Close()
}

func dsn(cfg *dbscaf.MySQLConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}

	host := cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}

	auth := cfg.User
	if cfg.Password != "" {
		auth += ":" + cfg.Password
	}

	return fmt.Sprintf("%s@tcp(%s:%d)/%s", auth, host, port, cfg.Database)
}

// IntrospectSchema reads every base table in the connected schema.
func (db *DB) IntrospectSchema(ctx context.Context) (*dbscaf.Schema, error) {
	s := &dbscaf.Schema{Name: db.schema}

	byName, err := db.loadTables(ctx, s)
	if err != nil {
		return nil, err
	}
	if err := db.loadColumns(ctx, byName); err != nil {
		return nil, err
	}
	if err := db.loadKeyConstraints(ctx, byName); err != nil {
		return nil, err
	}
	if err := db.loadCheckConstraints(ctx, byName); err != nil {
		return nil, err
	}
	if err := db.loadIndexes(ctx, byName); err != nil {
		return nil, err
	}

	return s, nil
}

func (db *DB) loadTables(ctx context.Context, s *dbscaf.Schema) (map[string]*dbscaf.Table, error) {
	const q = `
		SELECT TABLE_NAME, IFNULL(TABLE_COMMENT, '')
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`

	rows, err := db.db.QueryContext(ctx, q, db.schema)
	if err != nil {
		return nil, fmt.Errorf("mysql: list tables: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, comment string
		if err := rows.Scan(&name, &comment); err != nil {
			return nil, fmt.Errorf("mysql: scan table: %w", err)
		}
		s.Tables = append(s.Tables, dbscaf.Table{Name: name, Comment: comment})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mysql: list tables: %w", err)
	}

	byName := make(map[string]*dbscaf.Table, len(s.Tables))
	for i := range s.Tables {
		byName[s.Tables[i].Name] = &s.Tables[i]
	}

	return byName, nil
}

func (db *DB) loadColumns(ctx context.Context, byName map[string]*dbscaf.Table) error {
	const q = `
		SELECT TABLE_NAME, COLUMN_NAME, DATA_TYPE, COLUMN_TYPE,
		       IFNULL(CHARACTER_MAXIMUM_LENGTH, 0),
		       IFNULL(NUMERIC_PRECISION, 0),
		       IFNULL(NUMERIC_SCALE, 0),
		       IS_NULLABLE = 'YES',
		       IFNULL(COLUMN_DEFAULT, ''),
		       COLUMN_DEFAULT IS NOT NULL,
		       EXTRA LIKE '%auto_increment%',
		       IFNULL(COLUMN_COMMENT, '')
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = ?
		ORDER BY TABLE_NAME, ORDINAL_POSITION`

	rows, err := db.db.QueryContext(ctx, q, db.schema)
	if err != nil {
		return fmt.Errorf("mysql: list columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var table, columnType string
		var col dbscaf.Column
		if err := rows.Scan(&table, &col.Name, &col.Type, &columnType,
			&col.Length, &col.Precision, &col.Scale,
			&col.Nullable, &col.Default, &col.HasDefault,
			&col.AutoIncrement, &col.Comment); err != nil {
			return fmt.Errorf("mysql: scan column: %w", err)
		}

		t := byName[table]
		if t == nil {
			continue
		}

		if c, ok := enumCheckConstraint(table, col.Name, col.Type, columnType); ok {
			t.Constraints = append(t.Constraints, c)
		}

		t.Columns = append(t.Columns, col)
	}

	return rows.Err()
}

// enumCheckConstraint surfaces a native enum column's values as a synthetic
// check clause so the resolver's enum recovery applies: COLUMN_TYPE
// "enum('a','b')" becomes "status IN ('a','b')".
func enumCheckConstraint(table, column, dataType, columnType string) (dbscaf.Constraint, bool) {
	if dataType != "enum" {
		return dbscaf.Constraint{}, false
	}
	values, ok := strings.CutPrefix(columnType, "enum")
	if !ok {
		return dbscaf.Constraint{}, false
	}

	return dbscaf.Constraint{
		Name:        fmt.Sprintf("%s_%s_enum", table, column),
		Kind:        dbscaf.ConstraintCheck,
		CheckClause: fmt.Sprintf("%s IN %s", column, values),
	}, true
}

func (db *DB) loadKeyConstraints(ctx context.Context, byName map[string]*dbscaf.Table) error {
	const q = `
		SELECT tc.TABLE_NAME, tc.CONSTRAINT_NAME, tc.CONSTRAINT_TYPE,
		       kcu.COLUMN_NAME,
		       IFNULL(kcu.REFERENCED_TABLE_NAME, ''),
		       IFNULL(kcu.REFERENCED_COLUMN_NAME, '')
		FROM information_schema.TABLE_CONSTRAINTS tc
		JOIN information_schema.KEY_COLUMN_USAGE kcu
		  ON kcu.CONSTRAINT_SCHEMA = tc.CONSTRAINT_SCHEMA
		 AND kcu.CONSTRAINT_NAME = tc.CONSTRAINT_NAME
		 AND kcu.TABLE_NAME = tc.TABLE_NAME
		WHERE tc.TABLE_SCHEMA = ?
		  AND tc.CONSTRAINT_TYPE IN ('PRIMARY KEY', 'UNIQUE', 'FOREIGN KEY')
		ORDER BY tc.TABLE_NAME, tc.CONSTRAINT_NAME, kcu.ORDINAL_POSITION`

	rows, err := db.db.QueryContext(ctx, q, db.schema)
	if err != nil {
		return fmt.Errorf("mysql: list constraints: %w", err)
	}
	defer rows.Close()

	// Rows arrive column-by-column in key order; fold them into constraints.
	var cur *dbscaf.Constraint
	var curTable string
	for rows.Next() {
		var table, name, kind, column, refTable, refColumn string
		if err := rows.Scan(&table, &name, &kind, &column, &refTable, &refColumn); err != nil {
			return fmt.Errorf("mysql: scan constraint: %w", err)
		}

		t := byName[table]
		if t == nil {
			continue
		}

		if cur == nil || curTable != table || cur.Name != name {
			c := dbscaf.Constraint{Name: name}
			switch kind {
			case "PRIMARY KEY":
				c.Kind = dbscaf.ConstraintPrimaryKey
			case "UNIQUE":
				c.Kind = dbscaf.ConstraintUnique
			case "FOREIGN KEY":
				c.Kind = dbscaf.ConstraintForeignKey
				c.RefTable = refTable
			}
			t.Constraints = append(t.Constraints, c)
			cur = &t.Constraints[len(t.Constraints)-1]
			curTable = table
		}

		cur.Columns = append(cur.Columns, column)
		if cur.Kind == dbscaf.ConstraintForeignKey {
			cur.RefColumns = append(cur.RefColumns, refColumn)
		}
	}

	return rows.Err()
}

func (db *DB) loadCheckConstraints(ctx context.Context, byName map[string]*dbscaf.Table) error {
	// CHECK_CONSTRAINTS arrived in MySQL 8.0.16; older servers simply error
	// and have nothing to report.
	const q = `
		SELECT tc.TABLE_NAME, cc.CONSTRAINT_NAME, cc.CHECK_CLAUSE
		FROM information_schema.CHECK_CONSTRAINTS cc
		JOIN information_schema.TABLE_CONSTRAINTS tc
		  ON tc.CONSTRAINT_SCHEMA = cc.CONSTRAINT_SCHEMA
		 AND tc.CONSTRAINT_NAME = cc.CONSTRAINT_NAME
		WHERE cc.CONSTRAINT_SCHEMA = ?
		ORDER BY tc.TABLE_NAME, cc.CONSTRAINT_NAME`

	rows, err := db.db.QueryContext(ctx, q, db.schema)
	if err != nil {
		return nil //nolint:nilerr // pre-8.0.16 servers have no check constraints
	}
	defer rows.Close()

	for rows.Next() {
		var table, name, clause string
		if err := rows.Scan(&table, &name, &clause); err != nil {
			return fmt.Errorf("mysql: scan check constraint: %w", err)
		}
		if t := byName[table]; t != nil {
			t.Constraints = append(t.Constraints, dbscaf.Constraint{
				Name:        name,
				Kind:        dbscaf.ConstraintCheck,
				CheckClause: clause,
			})
		}
	}

	return rows.Err()
}

func (db *DB) loadIndexes(ctx context.Context, byName map[string]*dbscaf.Table) error {
	const q = `
		SELECT TABLE_NAME, INDEX_NAME, NON_UNIQUE = 0,
		       IFNULL(COLUMN_NAME, ''), SEQ_IN_INDEX
		FROM information_schema.STATISTICS
		WHERE TABLE_SCHEMA = ? AND INDEX_NAME <> 'PRIMARY'
		ORDER BY TABLE_NAME, INDEX_NAME, SEQ_IN_INDEX`

	rows, err := db.db.QueryContext(ctx, q, db.schema)
	if err != nil {
		return fmt.Errorf("mysql: list indexes: %w", err)
	}
	defer rows.Close()

	var cur *dbscaf.Index
	var curTable string
	for rows.Next() {
		var table, name, column string
		var unique bool
		var seq int
		if err := rows.Scan(&table, &name, &unique, &column, &seq); err != nil {
			return fmt.Errorf("mysql: scan index: %w", err)
		}

		t := byName[table]
		if t == nil {
			continue
		}

		if cur == nil || curTable != table || cur.Name != name {
			t.Indexes = append(t.Indexes, dbscaf.Index{Name: name, Unique: unique})
			cur = &t.Indexes[len(t.Indexes)-1]
			curTable = table
		}

		if column != "" {
			cur.Columns = append(cur.Columns, column)
		} else {
			// Functional index parts have no backing column.
			cur.Expression = true
		}
	}

	return rows.Err()
}
