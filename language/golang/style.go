package golang

import (
	"fmt"
	"strings"

	"github.com/rlch/dbscaf"
	"github.com/rlch/dbscaf/resolve"
)

// relationStyle renders one forward relationship accessor inside an entity's
// API-representation builder. The three styles mirror the generator config:
//
//	pk:     the related row's key value
//	link:   the related row's resource URL
//	nested: the related row's full representation, loaded by the caller
type relationStyle interface {
	name() string

	// transformEntry emits the map entry for a forward to-one binding.
	// jsonKey is the accessor's wire name, col the local Go field holding
	// the foreign key value.
	transformEntry(b *strings.Builder, e *resolve.Entity, f *resolve.Field, col *resolve.Field)

	// nestedParams returns extra builder parameters the style needs: nested
	// representations arrive pre-built from the caller.
	nestedParams(e *resolve.Entity) []string
}

func styleFor(name string) (relationStyle, error) {
	switch name {
	case dbscaf.StylePK, "":
		return pkStyle{}, nil
	case dbscaf.StyleLink:
		return linkStyle{}, nil
	case dbscaf.StyleNested:
		return nestedStyle{}, nil
	default:
		return nil, fmt.Errorf("unknown relation style %q (want one of %s)",
			name, strings.Join(dbscaf.RelationStyles, ", "))
	}
}

type pkStyle struct{}

func (pkStyle) name() string { return dbscaf.StylePK }

func (pkStyle) transformEntry(b *strings.Builder, _ *resolve.Entity, f *resolve.Field, col *resolve.Field) {
	fmt.Fprintf(b, "\tout[%q] = m.%s\n", f.JSONName, col.Name)
}

func (pkStyle) nestedParams(*resolve.Entity) []string { return nil }

type linkStyle struct{}

func (linkStyle) name() string { return dbscaf.StyleLink }

func (linkStyle) transformEntry(b *strings.Builder, _ *resolve.Entity, f *resolve.Field, col *resolve.Field) {
	path := resolve.Snake(resolve.Pluralize(f.Rel.Target))
	if col.Spec.Nullable {
		fmt.Fprintf(b, "\tif m.%s != nil {\n", col.Name)
		fmt.Fprintf(b, "\t\tout[%q] = fmt.Sprintf(\"/%s/%%v\", *m.%s)\n", f.JSONName, path, col.Name)
		b.WriteString("\t}\n")

		return
	}
	fmt.Fprintf(b, "\tout[%q] = fmt.Sprintf(\"/%s/%%v\", m.%s)\n", f.JSONName, path, col.Name)
}

func (linkStyle) nestedParams(*resolve.Entity) []string { return nil }

type nestedStyle struct{}

func (nestedStyle) name() string { return dbscaf.StyleNested }

func (nestedStyle) transformEntry(b *strings.Builder, _ *resolve.Entity, f *resolve.Field, col *resolve.Field) {
	// The caller resolves the related row; nil keeps the key absent.
	fmt.Fprintf(b, "\tif %s != nil {\n", nestedParamName(f))
	fmt.Fprintf(b, "\t\tout[%q] = %s\n", f.JSONName, nestedParamName(f))
	b.WriteString("\t}\n")
}

func (nestedStyle) nestedParams(e *resolve.Entity) []string {
	var params []string
	for i := range e.Fields {
		f := &e.Fields[i]
		if f.Rel != nil && f.Rel.Forward && !f.Rel.Collection {
			params = append(params, fmt.Sprintf("%s map[string]any", nestedParamName(f)))
		}
	}

	return params
}

// nestedParamName is the builder parameter carrying a pre-built nested
// representation: accessor name lower-cameled, "Rep" suffixed.
func nestedParamName(f *resolve.Field) string {
	name := f.Name
	r := []rune(name)
	r[0] = []rune(strings.ToLower(string(r[0])))[0]

	return string(r) + "Rep"
}
