package openapi

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/rlch/dbscaf"
	"github.com/rlch/dbscaf/resolve"
)

func blogModel(t *testing.T) *resolve.Model {
	t.Helper()

	s := &dbscaf.Schema{Tables: []dbscaf.Table{
		{
			Name: "author",
			Columns: []dbscaf.Column{
				{Name: "id", Type: "int4", AutoIncrement: true},
				{Name: "email", Type: "varchar", Length: 254},
			},
			Constraints: []dbscaf.Constraint{
				{Name: "author_pkey", Kind: dbscaf.ConstraintPrimaryKey, Columns: []string{"id"}},
			},
		},
		{
			Name: "post",
			Columns: []dbscaf.Column{
				{Name: "id", Type: "int4", AutoIncrement: true},
				{Name: "author_id", Type: "int4"},
				{Name: "title", Type: "varchar", Length: 200},
				{Name: "status", Type: "varchar", Length: 20, Default: "'draft'", HasDefault: true},
				{Name: "published_at", Type: "timestamptz", Nullable: true},
			},
			Constraints: []dbscaf.Constraint{
				{Name: "post_pkey", Kind: dbscaf.ConstraintPrimaryKey, Columns: []string{"id"}},
				{
					Name: "post_author_fkey", Kind: dbscaf.ConstraintForeignKey,
					Columns: []string{"author_id"}, RefTable: "author", RefColumns: []string{"id"},
				},
				{
					Name: "post_status_check", Kind: dbscaf.ConstraintCheck,
					CheckClause: "status IN ('draft', 'published')",
				},
			},
		},
	}}

	m, err := resolve.Build(s)
	require.NoError(t, err)

	return m
}

func render(t *testing.T, style string, api dbscaf.APIConfig) (string, map[string]any) {
	t.Helper()

	out, err := Render(blogModel(t), style, api)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(out, &doc))

	return string(out), doc
}

func dig(t *testing.T, doc map[string]any, keys ...string) map[string]any {
	t.Helper()

	cur := doc
	for _, k := range keys {
		next, ok := cur[k].(map[string]any)
		require.True(t, ok, "key %q missing in %v", k, cur)
		cur = next
	}

	return cur
}

func TestRenderDocumentShape(t *testing.T) {
	t.Parallel()

	text, doc := render(t, dbscaf.StylePK, dbscaf.APIConfig{
		Title:     "Blog API",
		Version:   "2.0.0",
		ServerURL: "https://api.example.com",
	})

	assert.True(t, strings.HasPrefix(text, "openapi:"), "top-level key order")
	assert.Equal(t, "3.0.3", doc["openapi"])

	info := dig(t, doc, "info")
	assert.Equal(t, "Blog API", info["title"])
	assert.Equal(t, "2.0.0", info["version"])

	servers, ok := doc["servers"].([]any)
	require.True(t, ok)
	require.Len(t, servers, 1)

	paths := dig(t, doc, "paths")
	for _, p := range []string{"/authors", "/authors/{id}", "/posts", "/posts/{id}", "/authors/{id}/posts"} {
		assert.Contains(t, paths, p)
	}

	schemas := dig(t, doc, "components", "schemas")
	assert.Contains(t, schemas, "Author")
	assert.Contains(t, schemas, "Post")
}

func TestRenderFieldSchemas(t *testing.T) {
	t.Parallel()

	_, doc := render(t, dbscaf.StylePK, dbscaf.APIConfig{})
	props := dig(t, doc, "components", "schemas", "Post", "properties")

	id := dig(t, props, "id")
	assert.Equal(t, "integer", id["type"])
	assert.Equal(t, true, id["readOnly"])

	title := dig(t, props, "title")
	assert.Equal(t, "string", title["type"])
	assert.Equal(t, 200, title["maxLength"])

	status := dig(t, props, "status")
	assert.Equal(t, []any{"draft", "published"}, status["enum"])
	assert.Equal(t, "draft", status["default"])

	published := dig(t, props, "published_at")
	assert.Equal(t, "date-time", published["format"])
	assert.Equal(t, true, published["nullable"])

	// The FK column surfaces through the accessor property.
	assert.NotContains(t, props, "author_id")
	author := dig(t, props, "author")
	assert.Equal(t, "integer", author["type"])
}

func TestRenderRelationStyles(t *testing.T) {
	t.Parallel()

	_, doc := render(t, dbscaf.StyleLink, dbscaf.APIConfig{})
	author := dig(t, doc, "components", "schemas", "Post", "properties", "author")
	assert.Equal(t, "uri", author["format"])

	_, doc = render(t, dbscaf.StyleNested, dbscaf.APIConfig{})
	author = dig(t, doc, "components", "schemas", "Post", "properties", "author")
	assert.Equal(t, "#/components/schemas/Author", author["$ref"])
}

func TestRenderUnknownStyle(t *testing.T) {
	t.Parallel()

	_, err := Render(blogModel(t), "soap", dbscaf.APIConfig{})
	require.Error(t, err)
}

func TestRenderOperations(t *testing.T) {
	t.Parallel()

	_, doc := render(t, dbscaf.StylePK, dbscaf.APIConfig{})

	item := dig(t, doc, "paths", "/posts/{id}")
	for _, op := range []string{"get", "put", "delete"} {
		assert.Contains(t, item, op)
	}

	del := dig(t, item, "delete", "responses")
	assert.Contains(t, del, "204")
	assert.Contains(t, del, "404")

	sub := dig(t, doc, "paths", "/authors/{id}/posts", "get", "responses", "200",
		"content", "application/json", "schema")
	assert.Equal(t, "array", sub["type"])
}

func TestRenderDeterministic(t *testing.T) {
	t.Parallel()

	first, err := Render(blogModel(t), dbscaf.StylePK, dbscaf.APIConfig{Title: "X"})
	require.NoError(t, err)
	second, err := Render(blogModel(t), dbscaf.StylePK, dbscaf.APIConfig{Title: "X"})
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}
