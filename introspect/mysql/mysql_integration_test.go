package mysql

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/rlch/dbscaf"
	"github.com/rlch/dbscaf/resolve"
)

// Statements run one at a time; the driver rejects multi-statement Exec.
var fixtureDDL = []string{
	`CREATE TABLE author (
		id    int AUTO_INCREMENT PRIMARY KEY,
		email varchar(254) NOT NULL UNIQUE,
		name  varchar(100)
	) COMMENT = 'Writers of posts'`,
	`CREATE TABLE post (
		id           int AUTO_INCREMENT PRIMARY KEY,
		author_id    int NOT NULL,
		title        varchar(200) NOT NULL,
		status       enum('draft','published','archived') NOT NULL DEFAULT 'draft',
		published_at timestamp NULL,
		CONSTRAINT post_author_fk FOREIGN KEY (author_id) REFERENCES author (id)
	)`,
	`CREATE INDEX post_published_idx ON post (published_at)`,
	`CREATE INDEX post_author_title_idx ON post (author_id, title)`,
	`CREATE INDEX post_title_lower_idx ON post ((LOWER(title)))`,
	`CREATE TABLE tag (
		id    int AUTO_INCREMENT PRIMARY KEY,
		label varchar(50) NOT NULL
	)`,
	`CREATE TABLE post_tag (
		post_id int NOT NULL,
		tag_id  int NOT NULL,
		PRIMARY KEY (post_id, tag_id),
		CONSTRAINT post_tag_post_fk FOREIGN KEY (post_id) REFERENCES post (id),
		CONSTRAINT post_tag_tag_fk  FOREIGN KEY (tag_id) REFERENCES tag (id)
	)`,
}

func introspectFixture(t *testing.T) *dbscaf.Schema {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container test in -short")
	}

	ctx := context.Background()

	ctr, err := tcmysql.Run(ctx, "mysql:8.4",
		tcmysql.WithDatabase("dbscaf"),
		tcmysql.WithUsername("dbscaf"),
		tcmysql.WithPassword("dbscaf"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(ctx) })

	uri, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := New(ctx, &dbscaf.MySQLConfig{DSN: uri})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(ctx) })

	for _, stmt := range fixtureDDL {
		_, err = db.db.ExecContext(ctx, stmt)
		require.NoError(t, err, "fixture statement %q", stmt)
	}

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

	email := author.Column("email")
	require.NotNil(t, email)
	assert.Equal(t, "varchar", email.Type)
	assert.Equal(t, 254, email.Length)
	assert.True(t, author.ColumnsUnique([]string{"email"}))

	post := s.Table("post")
	require.NotNil(t, post)

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

	status := post.Column("status")
	require.NotNil(t, status)
	assert.True(t, status.HasDefault)

	var enumCheck *dbscaf.Constraint
	for i := range post.Constraints {
		if post.Constraints[i].Name == "post_status_enum" {
			enumCheck = &post.Constraints[i]
		}
	}
	require.NotNil(t, enumCheck, "native enum surfaces as a check constraint")
	col, values, ok := resolve.EnumValues(enumCheck.CheckClause)
	require.True(t, ok, "check clause %q", enumCheck.CheckClause)
	assert.Equal(t, "status", col)
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

	composite, ok2 := indexes["post_author_title_idx"]
	require.True(t, ok2, "multi-column rows fold into one index")
	assert.Equal(t, []string{"author_id", "title"}, composite.Columns)

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
