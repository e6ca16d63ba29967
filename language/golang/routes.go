package golang

import (
	"fmt"
	"strings"

	"github.com/rlch/dbscaf/resolve"
)

// renderRoutes emits routes.go: a single RegisterRoutes wiring every handler
// set onto a gin router. Resource paths are the snake_case plural of the
// entity name; collection accessors mount as sub-resources of the parent.
func (r *renderer) renderRoutes() ([]byte, error) {
	var b strings.Builder
	r.header(&b,
		"github.com/gin-gonic/gin",
		"github.com/jackc/pgx/v5/pgxpool",
	)

	b.WriteString("\n// RegisterRoutes mounts every generated handler on the router.\n")
	b.WriteString("func RegisterRoutes(r *gin.Engine, pool *pgxpool.Pool) {\n")

	for i, e := range r.ctx.Model.Entities {
		if i > 0 {
			b.WriteString("\n")
		}
		r.renderEntityRoutes(&b, e)
	}

	b.WriteString("}\n")

	return r.finish(&b)
}

func (r *renderer) renderEntityRoutes(b *strings.Builder, e *resolve.Entity) {
	recv := handlerVar(e)
	path := "/" + resourcePath(e)

	fmt.Fprintf(b, "\t%s := New%sHandler(pool)\n", recv, e.Name)
	fmt.Fprintf(b, "\tr.GET(%q, %s.List)\n", path, recv)
	fmt.Fprintf(b, "\tr.POST(%q, %s.Create)\n", path, recv)

	pk := singlePK(e)
	if pk == nil {
		return
	}

	item := path + "/:id"
	fmt.Fprintf(b, "\tr.GET(%q, %s.Get)\n", item, recv)
	fmt.Fprintf(b, "\tr.PUT(%q, %s.Update)\n", item, recv)
	fmt.Fprintf(b, "\tr.DELETE(%q, %s.Delete)\n", item, recv)

	for i := range e.Fields {
		f := &e.Fields[i]
		if !hasListingHandler(r, e, f) {
			continue
		}
		sub := item + "/" + f.JSONName
		fmt.Fprintf(b, "\tr.GET(%q, %s.List%s)\n", sub, recv, f.Name)
	}
}

// hasListingHandler mirrors renderSubresources: a route exists only when the
// corresponding handler was rendered.
func hasListingHandler(r *renderer, e *resolve.Entity, f *resolve.Field) bool {
	if f.Rel == nil || !f.Rel.Collection || len(f.Rel.Columns) != 1 {
		return false
	}
	target := r.ctx.Model.EntityByName(f.Rel.Target)
	if target == nil {
		return false
	}
	if f.Rel.Kind == resolve.ManyToMany {
		return len(r.junctionFarColumns(f)) == 1 && singlePK(target) != nil
	}

	return !f.Rel.Forward
}

// handlerVar is the local variable holding an entity's handler set.
func handlerVar(e *resolve.Entity) string {
	name := []rune(e.Name)
	name[0] = []rune(strings.ToLower(string(name[0])))[0]

	v := string(name) + "H"
	if IsKeyword(string(name)) {
		v = string(name) + "Handler"
	}

	return v
}
