package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/dbscaf"
	"github.com/rlch/dbscaf/introspect"
	"github.com/rlch/dbscaf/resolve"
)

func TestDSN(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "user:secret@tcp(db.internal:3307)/app", dsn(&dbscaf.MySQLConfig{
		Host: "db.internal", Port: 3307, Database: "app", User: "user", Password: "secret",
	}))

	assert.Equal(t, "root@tcp(127.0.0.1:3306)/app", dsn(&dbscaf.MySQLConfig{
		Database: "app", User: "root",
	}))

	assert.Equal(t, "custom-dsn", dsn(&dbscaf.MySQLConfig{DSN: "custom-dsn"}))
}

func TestEnumCheckConstraint(t *testing.T) {
	t.Parallel()

	c, ok := enumCheckConstraint("payment", "kind", "enum", "enum('cash','card')")
	require.True(t, ok)
	assert.Equal(t, dbscaf.ConstraintCheck, c.Kind)
	assert.Equal(t, "payment_kind_enum", c.Name)

	col, values, parsed := resolve.EnumValues(c.CheckClause)
	require.True(t, parsed)
	assert.Equal(t, "kind", col)
	assert.Equal(t, []string{"cash", "card"}, values)

	_, ok = enumCheckConstraint("payment", "kind", "varchar", "varchar(20)")
	assert.False(t, ok)
}

func TestRegistered(t *testing.T) {
	t.Parallel()

	assert.Contains(t, introspect.RegisteredDrivers(), dbscaf.DriverMySQL)
}
