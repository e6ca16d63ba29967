package dbscaf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"gopkg.in/yaml.v3"
)

// Config represents the .dbscaf.yaml configuration file.
type Config struct {
	// Database connections. Only one should be set; the presence of a
	// connection block determines which driver to use.
	Postgres *PostgresConfig `yaml:"postgres,omitempty"`
	MySQL    *MySQLConfig    `yaml:"mysql,omitempty"`

	// Table selection, applied before the pipeline runs.
	IncludeTables []string `yaml:"include_tables,omitempty"`
	ExcludeTables []string `yaml:"exclude_tables,omitempty"`

	// TableFilter is an optional boolean expression evaluated per table after
	// the include/exclude lists (e.g. `name startsWith "app_"`).
	TableFilter string `yaml:"table_filter,omitempty"`

	// Generate config for code generation.
	Generate GenerateConfig `yaml:"generate,omitempty"`

	// API config passed through verbatim to the API description emitter.
	API APIConfig `yaml:"api,omitempty"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Database string `yaml:"database,omitempty"`
	Schema   string `yaml:"schema,omitempty"` // defaults to "public"
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
	SSLMode  string `yaml:"sslmode,omitempty"`
	// Alternative: full connection string.
	URI string `yaml:"uri,omitempty"`
}

// MySQLConfig holds MySQL connection settings.
type MySQLConfig struct {
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Database string `yaml:"database,omitempty"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
	// Alternative: full DSN.
	DSN string `yaml:"dsn,omitempty"`
}

// GenerateConfig holds settings for the generate command.
type GenerateConfig struct {
	// Output root directory for generated files.
	Out string `yaml:"out,omitempty"`

	// Package name for generated code (Go-specific).
	Package string `yaml:"package,omitempty"`

	// Project and app naming strings, passed through to artifacts.
	Project string `yaml:"project,omitempty"`
	App     string `yaml:"app,omitempty"`

	// RelationStyle governs relationship rendering: pk, link, or nested.
	RelationStyle string `yaml:"relation_style,omitempty"`
}

// APIConfig holds metadata for the emitted API description document.
type APIConfig struct {
	Title       string `yaml:"title,omitempty"`
	Version     string `yaml:"version,omitempty"`
	Description string `yaml:"description,omitempty"`
	ServerURL   string `yaml:"server_url,omitempty"`
}

// DriverName returns the configured driver name, or empty if none.
func (c *Config) DriverName() string {
	switch {
	case c.Postgres != nil:
		return DriverPostgres
	case c.MySQL != nil:
		return DriverMySQL
	default:
		return ""
	}
}

// ApplyDefaults fills unset fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Generate.Out == "" {
		c.Generate.Out = "./generated"
	}
	if c.Generate.Package == "" {
		c.Generate.Package = "api"
	}
	if c.Generate.Project == "" {
		c.Generate.Project = "generated-api"
	}
	if c.Generate.App == "" {
		c.Generate.App = c.Generate.Package
	}
	if c.Generate.RelationStyle == "" {
		c.Generate.RelationStyle = StylePK
	}
	if c.API.Title == "" {
		c.API.Title = "Auto-Generated API"
	}
	if c.API.Version == "" {
		c.API.Version = "1.0.0"
	}
	if c.API.Description == "" {
		c.API.Description = "API generated from a database schema."
	}
	if c.API.ServerURL == "" {
		c.API.ServerURL = "http://127.0.0.1:8080/"
	}
	if c.Postgres != nil && c.Postgres.Schema == "" {
		c.Postgres.Schema = "public"
	}
}

// Validate checks config-level invariants.
func (c *Config) Validate() error {
	if !KnownRelationStyle(c.Generate.RelationStyle) {
		return fmt.Errorf("dbscaf: unknown relation_style %q (want one of %v)", c.Generate.RelationStyle, RelationStyles)
	}
	if c.TableFilter != "" {
		if _, err := compileTableFilter(c.TableFilter); err != nil {
			return fmt.Errorf("dbscaf: compiling table_filter: %w", err)
		}
	}

	return nil
}

// TableFilterFunc compiles the table_filter expression into a predicate.
// Returns nil when no filter is configured.
func (c *Config) TableFilterFunc() (func(*Table) (bool, error), error) {
	if c.TableFilter == "" {
		return nil, nil
	}

	program, err := compileTableFilter(c.TableFilter)
	if err != nil {
		return nil, err
	}

	return func(t *Table) (bool, error) {
		out, err := expr.Run(program, tableFilterEnv(t))
		if err != nil {
			return false, fmt.Errorf("dbscaf: evaluating table_filter for %q: %w", t.Name, err)
		}

		return out.(bool), nil
	}, nil
}

func compileTableFilter(src string) (*vm.Program, error) {
	return expr.Compile(src, expr.Env(tableFilterEnv(&Table{})), expr.AsBool())
}

func tableFilterEnv(t *Table) map[string]any {
	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		cols = append(cols, c.Name)
	}

	return map[string]any{
		"name":    t.Name,
		"columns": cols,
		"has_pk":  t.PrimaryKey() != nil,
		"comment": t.Comment,
	}
}

// DefaultConfigNames are the filenames we search for.
var DefaultConfigNames = []string{".dbscaf.yaml", ".dbscaf.yml", "dbscaf.yaml", "dbscaf.yml"}

// LoadConfig finds and loads the nearest .dbscaf.yaml walking up from dir.
func LoadConfig(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if err != nil {
		return nil, err
	}

	return LoadConfigFile(path)
}

// FindConfig searches for a config file starting from dir and walking up.
func FindConfig(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for dir := absDir; ; {
		for _, name := range DefaultConfigNames {
			path := filepath.Join(dir, name)

			_, err := os.Stat(path)
			if err == nil {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrConfigNotFound
		}

		dir = parent
	}
}

// LoadConfigFile loads a config from a specific path, applying defaults and
// validating it.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var cfg Config

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
