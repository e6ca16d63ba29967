package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/rlch/dbscaf"
	"github.com/rlch/dbscaf/introspect"
	"github.com/rlch/dbscaf/resolve"
)

const fixtureDDL = `
CREATE TABLE author (
	id    serial PRIMARY KEY,
	email varchar(254) NOT NULL UNIQUE,
	name  varchar(100)
);
COMMENT ON TABLE author IS 'Writers of posts';
COMMENT ON COLUMN author.email IS 'Login address';

CREATE TABLE post (
	id           serial PRIMARY KEY,
	author_id    integer NOT NULL REFERENCES author (id),
	title        varchar(200) NOT NULL,
	status       varchar(20) NOT NULL DEFAULT 'draft'
	             CHECK (status IN ('draft', 'published', 'archived')),
	published_at timestamptz
);
CREATE INDEX post_published_idx ON post (published_at);
CREATE INDEX post_title_lower_idx ON post (lower(title));

CREATE TABLE tag (
	id    serial PRIMARY KEY,
	label varchar(50) NOT NULL
);

CREATE TABLE post_tag (
	post_id integer NOT NULL REFERENCES post (id),
	tag_id  integer NOT NULL REFERENCES tag (id),
	PRIMARY KEY (post_id, tag_id)
);
`

func introspectFixture(t *testing.T) *dbscaf.Schema {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container test in -short")
	}

	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("dbscaf"),
		tcpostgres.WithUsername("dbscaf"),
		tcpostgres.WithPassword("dbscaf"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(ctx) })

	uri, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := New(ctx, &dbscaf.PostgresConfig{URI: uri})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(ctx) })

	_, err = db.pool.Exec(ctx, fixtureDDL)
	require.NoError(t, err)

	s, err := db.IntrospectSchema(ctx)
	require.NoError(t, err)

	return s
}

func TestIntrospectSchema(t *testing.T) {
	s := introspectFixture(t)

	require.NoError(t, s.Validate())
	require.Len(t, s.Tables, 4)

	author := s.Table("author")
	require.NotNil(t, author)
	assert.Equal(t, "Writers of posts", author.Comment)

	id := author.Column("id")
	require.NotNil(t, id)
	assert.True(t, id.AutoIncrement)
	assert.False(t, id.Nullable)
	assert.False(t, id.HasDefault, "sequence default suppressed on serial keys")

	email := author.Column("email")
	require.NotNil(t, email)
	assert.Equal(t, "varchar", email.Type)
	assert.Equal(t, 254, email.Length)
	assert.Equal(t, "Login address", email.Comment)
	assert.True(t, author.ColumnsUnique([]string{"email"}))

	name := author.Column("name")
	require.NotNil(t, name)
	assert.True(t, name.Nullable)

	post := s.Table("post")
	require.NotNil(t, post)

	status := post.Column("status")
	require.NotNil(t, status)
	assert.True(t, status.HasDefault)

	var fk *dbscaf.Constraint
	for i := range post.Constraints {
		if post.Constraints[i].Kind == dbscaf.ConstraintForeignKey {
			fk = &post.Constraints[i]
		}
	}
	require.NotNil(t, fk)
	assert.Equal(t, "author", fk.RefTable)
	assert.Equal(t, []string{"author_id"}, fk.Columns)
	assert.Equal(t, []string{"id"}, fk.RefColumns)

	var check *dbscaf.Constraint
	for i := range post.Constraints {
		if post.Constraints[i].Kind == dbscaf.ConstraintCheck {
			check = &post.Constraints[i]
		}
	}
	require.NotNil(t, check)
	_, values, ok := resolve.EnumValues(check.CheckClause)
	require.True(t, ok, "check clause %q", check.CheckClause)
	assert.Equal(t, []string{"draft", "published", "archived"}, values)

	indexes := make(map[string]dbscaf.Index, len(post.Indexes))
	for _, idx := range post.Indexes {
		indexes[idx.Name] = idx
	}

	published, ok2 := indexes["post_published_idx"]
	require.True(t, ok2)
	assert.Equal(t, []string{"published_at"}, published.Columns)
	assert.False(t, published.Unique)
	assert.False(t, published.Expression)

	titleLower, ok2 := indexes["post_title_lower_idx"]
	require.True(t, ok2)
	assert.True(t, titleLower.Expression)
	assert.Empty(t, titleLower.Columns)

	junction := s.Table("post_tag")
	require.NotNil(t, junction)
	pk := junction.PrimaryKey()
	require.NotNil(t, pk)
	assert.ElementsMatch(t, []string{"post_id", "tag_id"}, pk.Columns)
}

func TestIntrospectedSchemaResolves(t *testing.T) {
	s := introspectFixture(t)

	m, err := resolve.Build(s)
	require.NoError(t, err)

	assert.NotNil(t, m.Entity("post"))
	assert.Nil(t, m.Entity("post_tag"), "junction collapses")
	assert.Contains(t, m.Junctions, "post_tag")

	status := m.Entity("post").Field("Status")
	require.NotNil(t, status)
	assert.Equal(t, resolve.KindEnum, status.Spec.Kind)
}

func TestOpenSelectsDriver(t *testing.T) {
	t.Parallel()

	_, err := introspect.Open(context.Background(), &dbscaf.Config{})
	assert.ErrorIs(t, err, dbscaf.ErrNoDatabase)

	assert.Contains(t, introspect.RegisteredDrivers(), dbscaf.DriverPostgres)
}
