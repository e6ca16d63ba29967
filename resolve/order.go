package resolve

import (
	"sort"

	"github.com/rlch/dbscaf"
)

// Ordering is a total order over entities in which every referenced entity
// precedes its referencing entity, except for edges deferred to break cycles.
type Ordering struct {
	// Tables lists table names in dependency order.
	Tables []string

	// Deferred holds the relationship IDs whose edges were dropped to break
	// cross-entity cycles. A deferred relationship's owning field must be
	// rendered nullable/forward-declared in every artifact.
	Deferred map[string]bool
}

// OrderEntities topologically sorts non-junction tables so that for every
// many-to-one and one-to-one relationship the referenced table precedes the
// referencing table.
//
// Self-referential edges are ignored; an entity may reference itself.
// Many-to-many relationships impose no order: both sides reference each other
// only through the suppressed junction. Cross-entity cycles are broken by
// deferring the relationship that was resolved last (lowest priority), never
// by failing generation. Ties everywhere resolve lexicographically, keeping
// the order independent of map iteration.
func OrderEntities(s *dbscaf.Schema, rr *Relationships) Ordering {
	ord := Ordering{Deferred: make(map[string]bool)}

	remaining := make(map[string]bool)
	for _, t := range s.Tables {
		if !rr.Junctions[t.Name] {
			remaining[t.Name] = true
		}
	}

	// Active dependency edges: source -> target, keyed by relationship ID.
	type edge struct {
		rel *Relationship
	}
	edges := make(map[string]edge)
	for i := range rr.All {
		r := &rr.All[i]
		if r.Kind == ManyToMany || r.Self {
			continue
		}
		if remaining[r.SourceTable] && remaining[r.TargetTable] {
			edges[r.ID()] = edge{rel: r}
		}
	}

	indegree := func(table string) int {
		// Number of active edges from table to a not-yet-emitted target.
		n := 0
		for _, e := range edges {
			if e.rel.SourceTable == table && remaining[e.rel.TargetTable] {
				n++
			}
		}

		return n
	}

	for len(remaining) > 0 {
		// Emit every table whose dependencies are satisfied, smallest first.
		var ready []string
		for table := range remaining {
			if indegree(table) == 0 {
				ready = append(ready, table)
			}
		}

		if len(ready) == 0 {
			// Cycle: defer the latest-resolved relationship among the edges
			// still holding the remaining tables together.
			var victim *Relationship
			for _, e := range edges {
				if !remaining[e.rel.SourceTable] || !remaining[e.rel.TargetTable] {
					continue
				}
				if victim == nil || e.rel.index > victim.index {
					victim = e.rel
				}
			}
			if victim == nil {
				// No edges left yet nothing ready: cannot happen, but emit
				// the rest alphabetically rather than loop forever.
				for table := range remaining {
					ready = append(ready, table)
				}
				sort.Strings(ready)
				ord.Tables = append(ord.Tables, ready...)

				return ord
			}

			ord.Deferred[victim.ID()] = true
			delete(edges, victim.ID())

			continue
		}

		sort.Strings(ready)
		for _, table := range ready {
			ord.Tables = append(ord.Tables, table)
			delete(remaining, table)
		}
	}

	return ord
}
