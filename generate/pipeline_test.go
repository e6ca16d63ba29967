package generate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/dbscaf"
)

type memSource struct {
	schema *dbscaf.Schema
	err    error
}

func (m *memSource) IntrospectSchema(context.Context) (*dbscaf.Schema, error) {
	return m.schema, m.err
}

func blogSchema() *dbscaf.Schema {
	return &dbscaf.Schema{
		Name: "public",
		Tables: []dbscaf.Table{
			{
				Name: "author",
				Columns: []dbscaf.Column{
					{Name: "id", Type: "integer", AutoIncrement: true},
					{Name: "name", Type: "varchar", Length: 120},
				},
				Constraints: []dbscaf.Constraint{
					{Kind: dbscaf.ConstraintPrimaryKey, Name: "author_pkey", Columns: []string{"id"}},
				},
			},
			{
				Name: "post",
				Columns: []dbscaf.Column{
					{Name: "id", Type: "integer", AutoIncrement: true},
					{Name: "title", Type: "varchar", Length: 200},
					{Name: "author_id", Type: "integer"},
				},
				Constraints: []dbscaf.Constraint{
					{Kind: dbscaf.ConstraintPrimaryKey, Name: "post_pkey", Columns: []string{"id"}},
					{
						Kind: dbscaf.ConstraintForeignKey, Name: "post_author_fkey",
						Columns: []string{"author_id"}, RefTable: "author", RefColumns: []string{"id"},
					},
				},
			},
			{
				Name: "audit_log",
				Columns: []dbscaf.Column{
					{Name: "id", Type: "integer", AutoIncrement: true},
					{Name: "message", Type: "text"},
				},
				Constraints: []dbscaf.Constraint{
					{Kind: dbscaf.ConstraintPrimaryKey, Name: "audit_log_pkey", Columns: []string{"id"}},
				},
			},
		},
	}
}

func testConfig(t *testing.T) *dbscaf.Config {
	t.Helper()

	cfg := &dbscaf.Config{}
	cfg.ApplyDefaults()
	cfg.Generate.Out = t.TempDir()

	return cfg
}

func TestRunWritesAllArtifacts(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	p := New(cfg, nil)

	res, err := p.Run(context.Background(), &memSource{schema: blogSchema()})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Entities)
	assert.Equal(t, []string{
		"admin.go", "handlers.go", "models.go",
		"openapi.yaml", "routes.go", "scaffold_test.go", "transform.go",
	}, res.Written)
	assert.Empty(t, res.Unchanged)
	assert.Empty(t, res.Pruned)

	doc, err := os.ReadFile(filepath.Join(cfg.Generate.Out, "openapi.yaml"))
	require.NoError(t, err)
	assert.True(t, hasMarkerBytes(doc), "api doc carries the marker comment")
}

func TestRunIdempotent(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	p := New(cfg, nil)
	src := &memSource{schema: blogSchema()}

	first, err := p.Run(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, first.Written, 7)

	second, err := p.Run(context.Background(), src)
	require.NoError(t, err)
	assert.Empty(t, second.Written, "unchanged model rewrites nothing")
	assert.Len(t, second.Unchanged, 7)
}

func TestRunPrunesStaleArtifacts(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	p := New(cfg, nil)

	_, err := p.Run(context.Background(), &memSource{schema: blogSchema()})
	require.NoError(t, err)

	// A second run limited to models should prune the rest of the generated
	// set but leave hand-written files alone.
	hand := filepath.Join(cfg.Generate.Out, "custom.go")
	require.NoError(t, os.WriteFile(hand, []byte("package api\n"), 0o644))

	p.Artifacts = []string{dbscaf.ArtifactModel}
	res, err := p.Run(context.Background(), &memSource{schema: blogSchema()})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"admin.go", "handlers.go", "openapi.yaml",
		"routes.go", "scaffold_test.go", "transform.go",
	}, res.Pruned)

	_, err = os.Stat(hand)
	assert.NoError(t, err, "hand-written file survives pruning")
	_, err = os.Stat(filepath.Join(cfg.Generate.Out, "models.go"))
	assert.NoError(t, err)
}

func TestRunAppliesFilters(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.ExcludeTables = []string{"audit_log"}
	cfg.TableFilter = `name != "post"`

	p := New(cfg, nil)

	res, err := p.Run(context.Background(), &memSource{schema: blogSchema()})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Entities)

	models, err := os.ReadFile(filepath.Join(cfg.Generate.Out, "models.go"))
	require.NoError(t, err)
	assert.Contains(t, string(models), "type Author struct")
	assert.NotContains(t, string(models), "type Post struct")
	assert.NotContains(t, string(models), "AuditLog")
}

func TestFilterSchema(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.ExcludeTables = []string{"audit_log"}
	cfg.TableFilter = `name != "post"`

	schema, err := FilterSchema(cfg, blogSchema())
	require.NoError(t, err)

	require.Len(t, schema.Tables, 1)
	assert.Equal(t, "author", schema.Tables[0].Name)
}

func TestFilterSchemaValidatesResult(t *testing.T) {
	t.Parallel()

	schema := blogSchema()
	schema.Tables[0].Columns = append(schema.Tables[0].Columns, dbscaf.Column{Name: "name", Type: "text"})

	_, err := FilterSchema(testConfig(t), schema)
	require.Error(t, err)

	var serr *dbscaf.SchemaError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "author", serr.Table)
	assert.Equal(t, "name", serr.Column)
}

func TestRunDryRunWritesNothing(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	p := New(cfg, nil)
	p.DryRun = true

	res, err := p.Run(context.Background(), &memSource{schema: blogSchema()})
	require.NoError(t, err)
	assert.Len(t, res.Unchanged, 7)
	assert.Empty(t, res.Written)

	entries, err := os.ReadDir(cfg.Generate.Out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunSurfacesSourceError(t *testing.T) {
	t.Parallel()

	p := New(testConfig(t), nil)

	_, err := p.Run(context.Background(), &memSource{err: os.ErrDeadlineExceeded})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrDeadlineExceeded)
}

func hasMarkerBytes(b []byte) bool {
	return len(b) >= len(yamlMarker) && string(b[:len(yamlMarker)]) == yamlMarker
}
