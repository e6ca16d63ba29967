// Package generate orchestrates the full artifact pipeline: introspect a
// schema, filter its tables, resolve it into an entity model, render the
// language artifacts and the API description, and write everything under the
// configured output directory.
package generate

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/rlch/dbscaf"
	"github.com/rlch/dbscaf/language"
	"github.com/rlch/dbscaf/openapi"
	"github.com/rlch/dbscaf/resolve"
)

// Pipeline runs the schema-to-artifacts generation flow.
type Pipeline struct {
	cfg *dbscaf.Config
	log *zap.Logger

	// Artifacts limits generation to the listed kinds. Empty means all.
	Artifacts []string

	// DryRun renders everything but writes nothing.
	DryRun bool
}

// New creates a pipeline. A nil logger disables logging.
func New(cfg *dbscaf.Config, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}

	return &Pipeline{cfg: cfg, log: log}
}

// Result summarizes a pipeline run.
type Result struct {
	// Entities is the number of entities in the resolved model.
	Entities int

	// Written, Unchanged and Pruned hold output-relative file paths.
	Written   []string
	Unchanged []string
	Pruned    []string

	// Warnings collected while resolving the schema.
	Warnings []dbscaf.Warning
}

// Run executes the pipeline against the given schema source.
func (p *Pipeline) Run(ctx context.Context, src dbscaf.Introspector) (*Result, error) {
	schema, err := src.IntrospectSchema(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate: introspecting schema: %w", err)
	}
	p.log.Info("introspected schema",
		zap.String("schema", schema.Name),
		zap.Int("tables", len(schema.Tables)))

	schema, err = FilterSchema(p.cfg, schema)
	if err != nil {
		return nil, err
	}
	p.log.Info("filtered schema", zap.Int("tables", len(schema.Tables)))

	model, err := resolve.Build(schema)
	if err != nil {
		return nil, fmt.Errorf("generate: resolving model: %w", err)
	}
	for _, w := range model.Warnings {
		p.log.Warn("resolver warning",
			zap.Stringer("kind", w.Kind),
			zap.String("table", w.Table),
			zap.String("column", w.Column),
			zap.String("message", w.Message))
	}
	p.log.Info("resolved model",
		zap.Int("entities", len(model.Entities)),
		zap.Int("warnings", len(model.Warnings)))

	files, err := p.render(model)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Entities: len(model.Entities),
		Warnings: model.Warnings,
	}
	if p.DryRun {
		for name := range files {
			result.Unchanged = append(result.Unchanged, name)
		}
		sort.Strings(result.Unchanged)

		return result, nil
	}

	if err := p.write(files, result); err != nil {
		return result, err
	}

	return result, nil
}

// FilterSchema applies the config's include/exclude lists, then the
// table_filter expression, then validates what remains. Every consumer of an
// introspected schema goes through here so commands agree on the model.
func FilterSchema(cfg *dbscaf.Config, schema *dbscaf.Schema) (*dbscaf.Schema, error) {
	schema, err := schema.Filter(cfg.IncludeTables, cfg.ExcludeTables)
	if err != nil {
		return nil, fmt.Errorf("generate: filtering tables: %w", err)
	}

	pred, err := cfg.TableFilterFunc()
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	if pred != nil {
		kept := make([]dbscaf.Table, 0, len(schema.Tables))
		for i := range schema.Tables {
			ok, err := pred(&schema.Tables[i])
			if err != nil {
				return nil, fmt.Errorf("generate: %w", err)
			}
			if ok {
				kept = append(kept, schema.Tables[i])
			}
		}
		schema = &dbscaf.Schema{Name: schema.Name, Tables: kept}
	}

	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("generate: invalid schema: %w", err)
	}

	return schema, nil
}

// render produces every requested artifact, keyed by output-relative path.
func (p *Pipeline) render(model *resolve.Model) (map[string][]byte, error) {
	lang := language.Get(dbscaf.LangGo)
	if lang == nil {
		return nil, fmt.Errorf("generate: language %q is not registered (registered: %v)",
			dbscaf.LangGo, language.RegisteredLanguages())
	}

	gctx := &language.GenerateContext{
		Model:         model,
		PackageName:   p.cfg.Generate.Package,
		Project:       p.cfg.Generate.Project,
		App:           p.cfg.Generate.App,
		RelationStyle: p.cfg.Generate.RelationStyle,
		API:           p.cfg.API,
		Artifacts:     p.Artifacts,
	}

	files, err := lang.Generate(gctx)
	if err != nil {
		return nil, fmt.Errorf("generate: rendering %s artifacts: %w", lang.Name(), err)
	}

	if gctx.Wants(dbscaf.ArtifactAPIDoc) {
		doc, err := openapi.Render(model, p.cfg.Generate.RelationStyle, p.cfg.API)
		if err != nil {
			return nil, fmt.Errorf("generate: rendering API description: %w", err)
		}
		files[APIDocFile] = append([]byte(yamlMarker+"\n"), doc...)
	}

	return files, nil
}

// APIDocFile is the output-relative path of the API description document.
const APIDocFile = "openapi.yaml"

// write writes every rendered file under the output root, pruning generated
// files the run no longer produces. Per-file failures do not abort the rest.
func (p *Pipeline) write(files map[string][]byte, result *Result) error {
	out := p.cfg.Generate.Out

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	keep := make(map[string]bool, len(files))
	for _, name := range names {
		keep[name] = true

		changed, err := writeFile(filepath.Join(out, name), files[name])
		switch {
		case err != nil:
			errs = append(errs, err)
		case changed:
			p.log.Info("wrote", zap.String("file", name))
			result.Written = append(result.Written, name)
		default:
			p.log.Debug("unchanged", zap.String("file", name))
			result.Unchanged = append(result.Unchanged, name)
		}
	}

	pruned, err := pruneStale(out, keep)
	if err != nil {
		errs = append(errs, fmt.Errorf("generate: pruning stale files: %w", err))
	}
	for _, name := range pruned {
		p.log.Info("pruned", zap.String("file", name))
	}
	result.Pruned = pruned

	return errors.Join(errs...)
}
