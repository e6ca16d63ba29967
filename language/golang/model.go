package golang

import (
	"fmt"
	"strings"

	"github.com/rlch/dbscaf/resolve"
)

// renderModels emits models.go: one struct per entity in dependency order,
// enum constants for recovered choice sets, and table metadata methods.
func (r *renderer) renderModels() ([]byte, error) {
	seen := map[string]bool{}
	for _, e := range r.ctx.Model.Entities {
		for _, imp := range typeImports(columnFields(e)) {
			seen[imp] = true
		}
	}
	imports := sortedImports(seen)

	var b strings.Builder
	r.header(&b, imports...)

	for _, e := range r.ctx.Model.Entities {
		r.renderEnumConsts(&b, e)
		r.renderEntityStruct(&b, e)
	}

	return r.finish(&b)
}

func sortedImports(seen map[string]bool) []string {
	var imports []string
	for _, imp := range []string{"encoding/json", "time"} {
		if seen[imp] {
			imports = append(imports, imp)
		}
	}

	return imports
}

func (r *renderer) renderEnumConsts(b *strings.Builder, e *resolve.Entity) {
	for _, f := range columnFields(e) {
		if f.Spec.Kind != resolve.KindEnum || len(f.Spec.Enum) == 0 {
			continue
		}

		fmt.Fprintf(b, "\n// %s%s values allowed by the %s.%s check constraint.\n",
			e.Name, f.Name, e.Table, f.Column)
		b.WriteString("const (\n")
		for _, v := range f.Spec.Enum {
			fmt.Fprintf(b, "\t%s%s%s = %q\n", e.Name, f.Name, resolve.Pascal(v), v)
		}
		b.WriteString(")\n")
	}
}

func (r *renderer) renderEntityStruct(b *strings.Builder, e *resolve.Entity) {
	b.WriteString("\n")
	if e.Comment != "" {
		fmt.Fprintf(b, "// %s maps one row of %q: %s\n", e.Name, e.Table, e.Comment)
	} else {
		fmt.Fprintf(b, "// %s maps one row of %q.\n", e.Name, e.Table)
	}
	fmt.Fprintf(b, "type %s struct {\n", e.Name)
	for _, f := range columnFields(e) {
		tag := fmt.Sprintf("`json:%q db:%q`", f.JSONName, f.Column)
		fmt.Fprintf(b, "\t%s %s %s\n", f.Name, goType(f.Spec), tag)
	}
	b.WriteString("}\n")

	fmt.Fprintf(b, "\n// TableName returns the source table for %s.\n", e.Name)
	fmt.Fprintf(b, "func (%s) TableName() string { return %q }\n", e.Name, e.Table)

	cols := make([]string, 0, len(e.Fields))
	for _, f := range columnFields(e) {
		cols = append(cols, fmt.Sprintf("%q", f.Column))
	}
	fmt.Fprintf(b, "\n// %sColumns lists the selectable columns of %q in declaration order.\n", e.Name, e.Table)
	fmt.Fprintf(b, "var %sColumns = []string{%s}\n", e.Name, strings.Join(cols, ", "))
}
