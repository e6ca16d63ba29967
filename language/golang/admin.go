package golang

import (
	"fmt"
	"strings"

	"github.com/rlch/dbscaf/resolve"
)

// renderAdmin emits admin.go: a static metadata registry admin UIs read to
// discover entities, their list columns, and their searchable fields.
func (r *renderer) renderAdmin() ([]byte, error) {
	var b strings.Builder
	r.header(&b)

	b.WriteString(`
// AdminEntity describes one entity for administrative tooling.
type AdminEntity struct {
	// Name is the entity type name; Table its source table.
	Name  string
	Table string

	// Path is the REST collection path for the entity.
	Path string

	// ListFields are the wire names shown in list views, declaration order.
	ListFields []string

	// SearchFields are the text fields worth substring-searching.
	SearchFields []string

	// KeyField is the wire name of the single-column primary key, empty for
	// composite keys.
	KeyField string
}

// AdminEntities lists every generated entity in dependency order.
var AdminEntities = []AdminEntity{
`)

	for _, e := range r.ctx.Model.Entities {
		r.renderAdminEntry(&b, e)
	}

	b.WriteString("}\n")

	return r.finish(&b)
}

func (r *renderer) renderAdminEntry(b *strings.Builder, e *resolve.Entity) {
	var list, search []string
	for _, f := range columnFields(e) {
		list = append(list, fmt.Sprintf("%q", f.JSONName))
		if f.Spec.Kind == resolve.KindString || f.Spec.Kind == resolve.KindText {
			search = append(search, fmt.Sprintf("%q", f.JSONName))
		}
	}

	key := ""
	if pk := singlePK(e); pk != nil {
		key = pk.JSONName
	}

	fmt.Fprintf(b, "\t{\n\t\tName: %q,\n\t\tTable: %q,\n\t\tPath: %q,\n", e.Name, e.Table, "/"+resourcePath(e))
	fmt.Fprintf(b, "\t\tListFields: []string{%s},\n", strings.Join(list, ", "))
	if len(search) > 0 {
		fmt.Fprintf(b, "\t\tSearchFields: []string{%s},\n", strings.Join(search, ", "))
	}
	if key != "" {
		fmt.Fprintf(b, "\t\tKeyField: %q,\n", key)
	}
	b.WriteString("\t},\n")
}
