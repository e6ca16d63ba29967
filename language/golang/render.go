package golang

import (
	"fmt"
	"go/format"
	"go/token"
	"strings"
	"unicode"

	"github.com/rlch/dbscaf/language"
	"github.com/rlch/dbscaf/resolve"
)

// Marker is the first line of every generated file. Tooling and the stale
//-file sweep both key off it.
const Marker = "// Code generated by dbscaf. DO NOT EDIT."

// renderer holds state shared across artifact renderers.
type renderer struct {
	ctx   *language.GenerateContext
	pkg   string
	style relationStyle
}

// header emits the marker, a short provenance line, and the package clause.
func (r *renderer) header(b *strings.Builder, imports ...string) {
	b.WriteString(Marker)
	b.WriteString("\n")
	if r.ctx.Project != "" {
		fmt.Fprintf(b, "// Source: %s", r.ctx.Project)
		if r.ctx.App != "" {
			fmt.Fprintf(b, " (%s)", r.ctx.App)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(b, "\npackage %s\n", r.pkg)

	if len(imports) > 0 {
		b.WriteString("\nimport (\n")
		for _, imp := range imports {
			fmt.Fprintf(b, "\t%q\n", imp)
		}
		b.WriteString(")\n")
	}
}

// finish formats the accumulated source. Formatting failures are generator
// bugs surfaced as errors rather than emitted as broken files.
func (r *renderer) finish(b *strings.Builder) ([]byte, error) {
	src, err := format.Source([]byte(b.String()))
	if err != nil {
		return nil, fmt.Errorf("gofmt: %w", err)
	}

	return src, nil
}

// goType maps a field spec to the Go type used in generated structs.
// Nullable scalars become pointers; slice-backed types are already nil-able.
func goType(spec resolve.FieldSpec) string {
	var t string
	switch spec.Kind {
	case resolve.KindAuto, resolve.KindInt:
		t = "int64"
	case resolve.KindFloat:
		t = "float64"
	case resolve.KindDecimal:
		// Exact numerics stay textual; float64 would corrupt them.
		t = "string"
	case resolve.KindString, resolve.KindText, resolve.KindEnum, resolve.KindUUID, resolve.KindOpaque:
		t = "string"
	case resolve.KindBool:
		t = "bool"
	case resolve.KindDate, resolve.KindTime, resolve.KindDateTime:
		t = "time.Time"
	case resolve.KindJSON:
		return "json.RawMessage"
	case resolve.KindBinary:
		return "[]byte"
	default:
		t = "string"
	}

	if spec.Nullable {
		return "*" + t
	}

	return t
}

// typeImports returns the import paths the given column fields need.
func typeImports(fields []resolve.Field) []string {
	var needTime, needJSON bool
	for _, f := range fields {
		if f.Rel != nil {
			continue
		}
		switch f.Spec.Kind {
		case resolve.KindDate, resolve.KindTime, resolve.KindDateTime:
			needTime = true
		case resolve.KindJSON:
			needJSON = true
		}
	}

	var imports []string
	if needJSON {
		imports = append(imports, "encoding/json")
	}
	if needTime {
		imports = append(imports, "time")
	}

	return imports
}

// columnFields returns the entity's plain column fields, declaration order.
func columnFields(e *resolve.Entity) []resolve.Field {
	fields := make([]resolve.Field, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Rel == nil {
			fields = append(fields, f)
		}
	}

	return fields
}

// resourcePath is the URL path segment for an entity: the snake_case plural
// of its resolved name ("UserAccount" -> "user_accounts").
func resourcePath(e *resolve.Entity) string {
	return resolve.Snake(resolve.Pluralize(e.Name))
}

// singlePK returns the entity's primary key field when it is a single
// column, or nil for composite and missing keys. Item routes and admin
// detail views exist only for single-key entities.
func singlePK(e *resolve.Entity) *resolve.Field {
	if e.CompositePK || len(e.PKFields) != 1 {
		return nil
	}

	return e.Field(e.PKFields[0])
}

// SanitizePackageName converts a string to a valid Go package name:
// invalid characters removed, lowercased, keyword- and digit-proofed.
func SanitizePackageName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(unicode.ToLower(r))
		}
	}

	result := b.String()
	if result == "" || unicode.IsDigit(rune(result[0])) {
		result = "pkg" + result
	}
	if IsKeyword(result) {
		result += "pkg"
	}

	return result
}

// IsKeyword returns true if name is a Go keyword.
func IsKeyword(name string) bool {
	return token.Lookup(name).IsKeyword()
}
