package dbscaf

import "fmt"

// WarningKind classifies recoverable generation warnings.
type WarningKind int

const (
	// WarnUnsupportedType marks a native type with no mapping entry; the
	// column falls back to an opaque text field.
	WarnUnsupportedType WarningKind = iota

	// WarnRelationshipAmbiguity marks a table that looked like a junction but
	// was disqualified; it degrades to two plain many-to-one relationships.
	WarnRelationshipAmbiguity

	// WarnDanglingReference marks a foreign key whose target table is absent
	// from the (possibly filtered) schema; the relationship is dropped.
	WarnDanglingReference
)

func (k WarningKind) String() string {
	switch k {
	case WarnUnsupportedType:
		return "unsupported type"
	case WarnRelationshipAmbiguity:
		return "relationship ambiguity"
	case WarnDanglingReference:
		return "dangling reference"
	default:
		return fmt.Sprintf("WarningKind(%d)", int(k))
	}
}

// Warning is a recoverable condition surfaced at the end of a run. Warnings
// never stop generation: the pipeline always completes with a best-effort
// result.
type Warning struct {
	Kind    WarningKind
	Table   string
	Column  string
	Message string
}

func (w Warning) String() string {
	loc := w.Table
	if w.Column != "" {
		loc += "." + w.Column
	}
	if loc == "" {
		return fmt.Sprintf("%s: %s", w.Kind, w.Message)
	}

	return fmt.Sprintf("%s: %s: %s", w.Kind, loc, w.Message)
}
