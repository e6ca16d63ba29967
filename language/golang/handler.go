package golang

import (
	"fmt"
	"strings"

	"github.com/rlch/dbscaf/resolve"
)

// renderHandlers emits handlers.go: a gin CRUD handler set per entity over a
// pgx pool. Entities with a single-column primary key get the full set;
// composite-key entities get List and Create only. Collection accessors
// become sub-resource listings on the owning side's handler.
func (r *renderer) renderHandlers() ([]byte, error) {
	var b strings.Builder
	r.header(&b,
		"errors",
		"net/http",
		"github.com/gin-gonic/gin",
		"github.com/jackc/pgx/v5",
		"github.com/jackc/pgx/v5/pgxpool",
	)

	for _, e := range r.ctx.Model.Entities {
		r.renderHandlerSet(&b, e)
	}

	return r.finish(&b)
}

// transformCall is the expression invoking the entity's API builder. The
// nested style passes nil for every related representation; callers wanting
// embedded rows replace the nils with loaded representations.
func (r *renderer) transformCall(e *resolve.Entity, recv string) string {
	call := fmt.Sprintf("%sToAPI(%s", e.Name, recv)
	for range r.style.nestedParams(e) {
		call += ", nil"
	}

	return call + ")"
}

// scanArgs lists &m.Field for every column, declaration order.
func scanArgs(e *resolve.Entity, recv string) string {
	var args []string
	for _, f := range columnFields(e) {
		args = append(args, fmt.Sprintf("&%s.%s", recv, f.Name))
	}

	return strings.Join(args, ", ")
}

// selectList is the comma-joined column list of the entity.
func selectList(e *resolve.Entity, alias string) string {
	var cols []string
	for _, f := range columnFields(e) {
		if alias != "" {
			cols = append(cols, alias+"."+f.Column)
		} else {
			cols = append(cols, f.Column)
		}
	}

	return strings.Join(cols, ", ")
}

// writableFields are the columns accepted on create and update: everything
// except auto-generated keys.
func writableFields(e *resolve.Entity) []resolve.Field {
	var fields []resolve.Field
	for _, f := range columnFields(e) {
		if f.Spec.Kind == resolve.KindAuto {
			continue
		}
		fields = append(fields, f)
	}

	return fields
}

func (r *renderer) renderHandlerSet(b *strings.Builder, e *resolve.Entity) {
	fmt.Fprintf(b, "\n// %sHandler serves CRUD endpoints for %s rows.\n", e.Name, e.Name)
	fmt.Fprintf(b, "type %sHandler struct {\n\tpool *pgxpool.Pool\n}\n", e.Name)
	fmt.Fprintf(b, "\nfunc New%sHandler(pool *pgxpool.Pool) *%sHandler {\n\treturn &%sHandler{pool: pool}\n}\n",
		e.Name, e.Name, e.Name)

	r.renderList(b, e)
	r.renderCreate(b, e)

	if pk := singlePK(e); pk != nil {
		r.renderGet(b, e, pk)
		r.renderUpdate(b, e, pk)
		r.renderDelete(b, e, pk)
		r.renderSubresources(b, e, pk)
	}
}

func (r *renderer) renderList(b *strings.Builder, e *resolve.Entity) {
	order := strings.Join(pkColumns(e), ", ")
	if order == "" {
		order = columnFields(e)[0].Column
	}

	fmt.Fprintf(b, "\n// List returns every %s row in key order.\n", e.Name)
	fmt.Fprintf(b, "func (h *%sHandler) List(c *gin.Context) {\n", e.Name)
	fmt.Fprintf(b, "\trows, err := h.pool.Query(c.Request.Context(), `SELECT %s FROM %s ORDER BY %s`)\n",
		selectList(e, ""), e.Table, order)
	b.WriteString(`	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer rows.Close()

	out := []map[string]any{}
	for rows.Next() {
`)
	fmt.Fprintf(b, "\t\tvar m %s\n", e.Name)
	fmt.Fprintf(b, "\t\tif err := rows.Scan(%s); err != nil {\n", scanArgs(e, "m"))
	b.WriteString(`			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
`)
	fmt.Fprintf(b, "\t\tout = append(out, %s)\n", r.transformCall(e, "&m"))
	b.WriteString(`	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}
`)
}

func (r *renderer) renderGet(b *strings.Builder, e *resolve.Entity, pk *resolve.Field) {
	fmt.Fprintf(b, "\n// Get returns the %s row addressed by the path key.\n", e.Name)
	fmt.Fprintf(b, "func (h *%sHandler) Get(c *gin.Context) {\n", e.Name)
	fmt.Fprintf(b, "\trow := h.pool.QueryRow(c.Request.Context(), `SELECT %s FROM %s WHERE %s = $1`, c.Param(\"id\"))\n",
		selectList(e, ""), e.Table, pk.Column)
	fmt.Fprintf(b, "\tvar m %s\n", e.Name)
	fmt.Fprintf(b, "\tif err := row.Scan(%s); err != nil {\n", scanArgs(e, "m"))
	b.WriteString(`		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
`)
	fmt.Fprintf(b, "\tc.JSON(http.StatusOK, %s)\n}\n", r.transformCall(e, "&m"))
}

func (r *renderer) renderCreate(b *strings.Builder, e *resolve.Entity) {
	writable := writableFields(e)

	cols := make([]string, 0, len(writable))
	placeholders := make([]string, 0, len(writable))
	args := make([]string, 0, len(writable))
	for i, f := range writable {
		cols = append(cols, f.Column)
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		args = append(args, "in."+f.Name)
	}

	fmt.Fprintf(b, "\n// Create inserts a %s row from the request body.\n", e.Name)
	fmt.Fprintf(b, "func (h *%sHandler) Create(c *gin.Context) {\n", e.Name)
	fmt.Fprintf(b, "\tvar in %s\n", e.Name)
	b.WriteString(`	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
`)
	fmt.Fprintf(b, "\trow := h.pool.QueryRow(c.Request.Context(), `INSERT INTO %s (%s) VALUES (%s) RETURNING %s`,\n\t\t%s)\n",
		e.Table, strings.Join(cols, ", "), strings.Join(placeholders, ", "),
		selectList(e, ""), strings.Join(args, ", "))
	fmt.Fprintf(b, "\tvar m %s\n", e.Name)
	fmt.Fprintf(b, "\tif err := row.Scan(%s); err != nil {\n", scanArgs(e, "m"))
	b.WriteString(`		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
`)
	fmt.Fprintf(b, "\tc.JSON(http.StatusCreated, %s)\n}\n", r.transformCall(e, "&m"))
}

func (r *renderer) renderUpdate(b *strings.Builder, e *resolve.Entity, pk *resolve.Field) {
	writable := writableFields(e)

	sets := make([]string, 0, len(writable))
	args := make([]string, 0, len(writable))
	for i, f := range writable {
		sets = append(sets, fmt.Sprintf("%s = $%d", f.Column, i+1))
		args = append(args, "in."+f.Name)
	}
	keyPos := len(writable) + 1

	fmt.Fprintf(b, "\n// Update replaces the %s row addressed by the path key.\n", e.Name)
	fmt.Fprintf(b, "func (h *%sHandler) Update(c *gin.Context) {\n", e.Name)
	fmt.Fprintf(b, "\tvar in %s\n", e.Name)
	b.WriteString(`	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
`)
	fmt.Fprintf(b, "\trow := h.pool.QueryRow(c.Request.Context(), `UPDATE %s SET %s WHERE %s = $%d RETURNING %s`,\n\t\t%s, c.Param(\"id\"))\n",
		e.Table, strings.Join(sets, ", "), pk.Column, keyPos,
		selectList(e, ""), strings.Join(args, ", "))
	fmt.Fprintf(b, "\tvar m %s\n", e.Name)
	fmt.Fprintf(b, "\tif err := row.Scan(%s); err != nil {\n", scanArgs(e, "m"))
	b.WriteString(`		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
`)
	fmt.Fprintf(b, "\tc.JSON(http.StatusOK, %s)\n}\n", r.transformCall(e, "&m"))
}

func (r *renderer) renderDelete(b *strings.Builder, e *resolve.Entity, pk *resolve.Field) {
	fmt.Fprintf(b, "\n// Delete removes the %s row addressed by the path key.\n", e.Name)
	fmt.Fprintf(b, "func (h *%sHandler) Delete(c *gin.Context) {\n", e.Name)
	fmt.Fprintf(b, "\ttag, err := h.pool.Exec(c.Request.Context(), `DELETE FROM %s WHERE %s = $1`, c.Param(\"id\"))\n",
		e.Table, pk.Column)
	b.WriteString(`	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if tag.RowsAffected() == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.Status(http.StatusNoContent)
}
`)
}

// renderSubresources emits one listing per collection accessor: reverse
// to-many rows filtered by the owning key, and many-to-many rows joined
// through the junction table.
func (r *renderer) renderSubresources(b *strings.Builder, e *resolve.Entity, pk *resolve.Field) {
	for i := range e.Fields {
		f := &e.Fields[i]
		if f.Rel == nil || !f.Rel.Collection || len(f.Rel.Columns) != 1 {
			continue
		}

		target := r.ctx.Model.EntityByName(f.Rel.Target)
		if target == nil {
			continue
		}

		switch {
		case f.Rel.Kind == resolve.ManyToMany:
			r.renderJunctionListing(b, e, f, target)
		case !f.Rel.Forward:
			r.renderReverseListing(b, e, f, target)
		}
	}
}

func (r *renderer) renderReverseListing(b *strings.Builder, e *resolve.Entity, f *resolve.Field, target *resolve.Entity) {
	fmt.Fprintf(b, "\n// List%s returns the %s rows referencing this %s.\n", f.Name, target.Name, e.Name)
	fmt.Fprintf(b, "func (h *%sHandler) List%s(c *gin.Context) {\n", e.Name, f.Name)
	fmt.Fprintf(b, "\trows, err := h.pool.Query(c.Request.Context(), `SELECT %s FROM %s WHERE %s = $1 ORDER BY %s`, c.Param(\"id\"))\n",
		selectList(target, ""), target.Table, f.Rel.Columns[0], strings.Join(pkColumns(target), ", "))
	r.renderRowLoop(b, target)
}

func (r *renderer) renderJunctionListing(b *strings.Builder, e *resolve.Entity, f *resolve.Field, target *resolve.Entity) {
	farCols := r.junctionFarColumns(f)
	targetPK := singlePK(target)
	if len(farCols) != 1 || targetPK == nil {
		return
	}

	fmt.Fprintf(b, "\n// List%s returns the %s rows linked through %s.\n", f.Name, target.Name, f.Rel.Junction)
	fmt.Fprintf(b, "func (h *%sHandler) List%s(c *gin.Context) {\n", e.Name, f.Name)
	fmt.Fprintf(b,
		"\trows, err := h.pool.Query(c.Request.Context(), `SELECT %s FROM %s t JOIN %s j ON j.%s = t.%s WHERE j.%s = $1 ORDER BY t.%s`, c.Param(\"id\"))\n",
		selectList(target, "t"), target.Table, f.Rel.Junction,
		farCols[0], targetPK.Column, f.Rel.Columns[0], targetPK.Column)
	r.renderRowLoop(b, target)
}

// renderRowLoop closes a listing handler: scan loop, transform, respond.
func (r *renderer) renderRowLoop(b *strings.Builder, target *resolve.Entity) {
	b.WriteString(`	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer rows.Close()

	out := []map[string]any{}
	for rows.Next() {
`)
	fmt.Fprintf(b, "\t\tvar m %s\n", target.Name)
	fmt.Fprintf(b, "\t\tif err := rows.Scan(%s); err != nil {\n", scanArgs(target, "m"))
	b.WriteString(`			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
`)
	fmt.Fprintf(b, "\t\tout = append(out, %s)\n", r.transformCall(target, "&m"))
	b.WriteString(`	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, out)
}
`)
}

// junctionFarColumns finds the junction columns pointing at the far side of
// a many-to-many binding: the counterpart binding carries them.
func (r *renderer) junctionFarColumns(f *resolve.Field) []string {
	for _, e := range r.ctx.Model.Entities {
		for i := range e.Fields {
			g := &e.Fields[i]
			if g.Rel == nil || g.Rel.RelID != f.Rel.RelID {
				continue
			}
			if g.Rel.Forward != f.Rel.Forward {
				return g.Rel.Columns
			}
		}
	}

	return nil
}

// pkColumns lists the entity's primary key column names, key order.
func pkColumns(e *resolve.Entity) []string {
	var cols []string
	for _, f := range e.PK() {
		cols = append(cols, f.Column)
	}

	return cols
}
