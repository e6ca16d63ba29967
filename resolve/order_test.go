package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/dbscaf"
)

func TestOrderEntitiesReferencedFirst(t *testing.T) {
	t.Parallel()

	s := &dbscaf.Schema{Tables: []dbscaf.Table{
		{
			Name:    "post",
			Columns: []dbscaf.Column{intCol("id"), intCol("author_id")},
			Constraints: append(serialPK("post"),
				fk("post_author_fkey", "author_id", "author")),
		},
		{Name: "author", Columns: []dbscaf.Column{intCol("id")}, Constraints: serialPK("author")},
		{
			Name:    "comment",
			Columns: []dbscaf.Column{intCol("id"), intCol("post_id")},
			Constraints: append(serialPK("comment"),
				fk("comment_post_fkey", "post_id", "post")),
		},
	}}

	rr, err := ResolveRelationships(s)
	require.NoError(t, err)

	ord := OrderEntities(s, rr)
	assert.Equal(t, []string{"author", "post", "comment"}, ord.Tables)
	assert.Empty(t, ord.Deferred)
}

func TestOrderEntitiesLexicographicTies(t *testing.T) {
	t.Parallel()

	s := &dbscaf.Schema{Tables: []dbscaf.Table{
		{Name: "zebra", Columns: []dbscaf.Column{intCol("id")}, Constraints: serialPK("zebra")},
		{Name: "apple", Columns: []dbscaf.Column{intCol("id")}, Constraints: serialPK("apple")},
		{Name: "mango", Columns: []dbscaf.Column{intCol("id")}, Constraints: serialPK("mango")},
	}}

	rr, err := ResolveRelationships(s)
	require.NoError(t, err)

	ord := OrderEntities(s, rr)
	assert.Equal(t, []string{"apple", "mango", "zebra"}, ord.Tables)
}

func TestOrderEntitiesIgnoresSelfReference(t *testing.T) {
	t.Parallel()

	s := &dbscaf.Schema{Tables: []dbscaf.Table{
		{
			Name:    "employee",
			Columns: []dbscaf.Column{intCol("id"), {Name: "manager_id", Type: "int4", Nullable: true}},
			Constraints: append(serialPK("employee"),
				fk("employee_manager_fkey", "manager_id", "employee")),
		},
	}}

	rr, err := ResolveRelationships(s)
	require.NoError(t, err)

	ord := OrderEntities(s, rr)
	assert.Equal(t, []string{"employee"}, ord.Tables)
	assert.Empty(t, ord.Deferred)
}

func TestOrderEntitiesBreaksCycle(t *testing.T) {
	t.Parallel()

	// a references b and b references a. Exactly one edge is deferred and
	// every table still gets emitted.
	s := &dbscaf.Schema{Tables: []dbscaf.Table{
		{
			Name:    "a",
			Columns: []dbscaf.Column{intCol("id"), {Name: "b_id", Type: "int4", Nullable: true}},
			Constraints: append(serialPK("a"),
				fk("a_b_fkey", "b_id", "b")),
		},
		{
			Name:    "b",
			Columns: []dbscaf.Column{intCol("id"), {Name: "a_id", Type: "int4", Nullable: true}},
			Constraints: append(serialPK("b"),
				fk("b_a_fkey", "a_id", "a")),
		},
	}}

	rr, err := ResolveRelationships(s)
	require.NoError(t, err)

	ord := OrderEntities(s, rr)
	assert.Len(t, ord.Tables, 2)
	assert.ElementsMatch(t, []string{"a", "b"}, ord.Tables)
	require.Len(t, ord.Deferred, 1)

	// The victim is the relationship resolved last: b's edge back to a.
	for _, r := range rr.All {
		if ord.Deferred[r.ID()] {
			assert.Equal(t, "b", r.SourceTable)
		}
	}
}

func TestOrderEntitiesManyToManyImposesNoOrder(t *testing.T) {
	t.Parallel()

	s := postTagSchema()
	rr, err := ResolveRelationships(s)
	require.NoError(t, err)

	ord := OrderEntities(s, rr)
	assert.Equal(t, []string{"post", "tag"}, ord.Tables)
	assert.Empty(t, ord.Deferred)
}
