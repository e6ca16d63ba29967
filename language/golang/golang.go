// Package golang renders Go CRUD service artifacts from a resolved entity
// model.
//
// The generated service targets gin for HTTP and pgx for database access:
//   - models.go: one struct per entity plus enum constants
//   - transform.go: API-representation builders honoring the relation style
//   - handlers.go: CRUD handlers, one set per entity
//   - routes.go: route registration, including sub-resource collections
//   - admin.go: admin metadata registry
//   - scaffold_test.go: endpoint test scaffolds
//
// Every artifact is rendered deterministically: entities arrive in dependency
// order and fields in declaration order, so an unchanged model reproduces
// byte-identical files.
package golang

import (
	"fmt"

	"github.com/rlch/dbscaf"
	"github.com/rlch/dbscaf/language"
)

// GoLanguage implements language.Language for Go artifact generation.
type GoLanguage struct{}

// New creates a new Go artifact generator.
func New() *GoLanguage {
	return &GoLanguage{}
}

// Name returns "go".
func (g *GoLanguage) Name() string {
	return dbscaf.LangGo
}

// Artifacts returns the artifact kinds in emission order.
func (g *GoLanguage) Artifacts() []string {
	return []string{
		dbscaf.ArtifactModel,
		dbscaf.ArtifactTransformer,
		dbscaf.ArtifactHandler,
		dbscaf.ArtifactRoutes,
		dbscaf.ArtifactAdmin,
		dbscaf.ArtifactScaffold,
	}
}

// Generate renders the requested artifacts.
func (g *GoLanguage) Generate(ctx *language.GenerateContext) (map[string][]byte, error) {
	if ctx.Model == nil {
		return nil, fmt.Errorf("golang: nil model")
	}

	style, err := styleFor(ctx.RelationStyle)
	if err != nil {
		return nil, err
	}

	r := &renderer{
		ctx:   ctx,
		pkg:   SanitizePackageName(ctx.PackageName),
		style: style,
	}

	files := make(map[string][]byte)
	emit := func(kind, name string, render func() ([]byte, error)) error {
		if !ctx.Wants(kind) {
			return nil
		}
		content, err := render()
		if err != nil {
			return fmt.Errorf("golang: render %s: %w", name, err)
		}
		files[name] = content

		return nil
	}

	steps := []struct {
		kind, name string
		render     func() ([]byte, error)
	}{
		{dbscaf.ArtifactModel, "models.go", r.renderModels},
		{dbscaf.ArtifactTransformer, "transform.go", r.renderTransforms},
		{dbscaf.ArtifactHandler, "handlers.go", r.renderHandlers},
		{dbscaf.ArtifactRoutes, "routes.go", r.renderRoutes},
		{dbscaf.ArtifactAdmin, "admin.go", r.renderAdmin},
		{dbscaf.ArtifactScaffold, "scaffold_test.go", r.renderScaffold},
	}
	for _, s := range steps {
		if err := emit(s.kind, s.name, s.render); err != nil {
			return nil, err
		}
	}

	return files, nil
}

//nolint:gochecknoinits // Registration pattern requires init.
func init() {
	language.Register(New())
}
