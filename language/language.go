// Package language provides interfaces for artifact generation from resolved
// entity models.
//
// Each target language (Go today) implements the Language interface to render
// CRUD service artifacts from a resolved model.
package language

import (
	"github.com/rlch/dbscaf"
	"github.com/rlch/dbscaf/resolve"
)

// Language represents a target language for artifact generation.
// Implementations render source files from a resolved entity model.
type Language interface {
	// Name returns the language identifier (e.g., "go").
	Name() string

	// Artifacts returns the artifact kinds this language can produce, in
	// emission order.
	Artifacts() []string

	// Generate renders the requested artifact kinds from the given context.
	// Returns a map of output-relative filename to content. Every rendered
	// file is a pure function of the context: the same model and settings
	// reproduce byte-identical output.
	Generate(ctx *GenerateContext) (map[string][]byte, error)
}

// GenerateContext provides everything a language needs to render artifacts.
type GenerateContext struct {
	// Model is the resolved entity model, entities in dependency order.
	Model *resolve.Model

	// PackageName is the package name for generated code.
	PackageName string

	// Project and App are naming strings passed through to artifacts.
	Project string
	App     string

	// RelationStyle governs relationship rendering: pk, link, or nested.
	RelationStyle string

	// API is the metadata block for the API description document.
	API dbscaf.APIConfig

	// Artifacts limits generation to the listed kinds. Empty means all.
	Artifacts []string
}

// Wants reports whether the context requests the given artifact kind.
func (ctx *GenerateContext) Wants(kind string) bool {
	if len(ctx.Artifacts) == 0 {
		return true
	}
	for _, a := range ctx.Artifacts {
		if a == kind {
			return true
		}
	}

	return false
}

// Registration for language discovery.
var languages = make(map[string]Language)

// Register registers a language by name.
func Register(lang Language) {
	languages[lang.Name()] = lang
}

// Get returns a language by name, or nil if not registered.
func Get(name string) Language { //nolint:ireturn
	return languages[name]
}

// RegisteredLanguages returns the names of all registered languages.
func RegisteredLanguages() []string {
	names := make([]string, 0, len(languages))
	for name := range languages {
		names = append(names, name)
	}

	return names
}
