package dbscaf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, ".dbscaf.yaml")

	configYAML := `
postgres:
  host: localhost
  port: 5432
  database: blog
  user: blog
include_tables: [author, post]
generate:
  out: ./out
  package: blogapi
  relation_style: nested
api:
  title: Blog API
  version: 2.0.0
`

	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o644))

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.DriverName())
	assert.Equal(t, []string{"author", "post"}, cfg.IncludeTables)
	assert.Equal(t, "blogapi", cfg.Generate.Package)
	assert.Equal(t, StyleNested, cfg.Generate.RelationStyle)
	assert.Equal(t, "Blog API", cfg.API.Title)
	assert.Equal(t, "2.0.0", cfg.API.Version)
	// Defaults fill the rest.
	assert.Equal(t, "public", cfg.Postgres.Schema)
	assert.NotEmpty(t, cfg.API.ServerURL)
}

func TestLoadConfigFileBadRelationStyle(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, ".dbscaf.yaml")

	require.NoError(t, os.WriteFile(path, []byte("generate:\n  relation_style: embedded_weird\n"), 0o644))

	_, err := LoadConfigFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relation_style")
}

func TestFindConfigWalksUp(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	nested := filepath.Join(tmpDir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	path := filepath.Join(tmpDir, "dbscaf.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	found, err := FindConfig(nested)
	require.NoError(t, err)
	assert.Equal(t, path, found)
}

func TestApplyDefaults(t *testing.T) {
	t.Parallel()

	var cfg Config
	cfg.ApplyDefaults()

	assert.Equal(t, StylePK, cfg.Generate.RelationStyle)
	assert.Equal(t, "./generated", cfg.Generate.Out)
	assert.Equal(t, "api", cfg.Generate.Package)
	assert.Equal(t, "1.0.0", cfg.API.Version)
}

func TestTableFilterFunc(t *testing.T) {
	t.Parallel()

	cfg := Config{TableFilter: `name startsWith "app_" and has_pk`}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	filter, err := cfg.TableFilterFunc()
	require.NoError(t, err)
	require.NotNil(t, filter)

	withPK := &Table{
		Name:        "app_user",
		Columns:     []Column{{Name: "id"}},
		Constraints: []Constraint{{Kind: ConstraintPrimaryKey, Columns: []string{"id"}}},
	}
	keep, err := filter(withPK)
	require.NoError(t, err)
	assert.True(t, keep)

	keep, err = filter(&Table{Name: "django_migrations"})
	require.NoError(t, err)
	assert.False(t, keep)
}

func TestTableFilterFuncCompileError(t *testing.T) {
	t.Parallel()

	cfg := Config{TableFilter: `name +`}
	cfg.ApplyDefaults()
	require.Error(t, cfg.Validate())
}

func TestTableFilterFuncNilWhenUnset(t *testing.T) {
	t.Parallel()

	var cfg Config
	filter, err := cfg.TableFilterFunc()
	require.NoError(t, err)
	assert.Nil(t, filter)
}
