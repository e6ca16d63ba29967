package resolve

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rlch/dbscaf"
)

// FieldKind is the target-side classification of a column type.
type FieldKind int

const (
	KindAuto FieldKind = iota
	KindInt
	KindFloat
	KindDecimal
	KindString
	KindText
	KindBool
	KindDate
	KindTime
	KindDateTime
	KindUUID
	KindJSON
	KindBinary
	KindEnum
	KindOpaque
)

func (k FieldKind) String() string {
	switch k {
	case KindAuto:
		return "auto"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindDecimal:
		return "decimal"
	case KindString:
		return "string"
	case KindText:
		return "text"
	case KindBool:
		return "boolean"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindDateTime:
		return "datetime"
	case KindUUID:
		return "uuid"
	case KindJSON:
		return "json"
	case KindBinary:
		return "binary"
	case KindEnum:
		return "enum"
	case KindOpaque:
		return "opaque"
	default:
		return fmt.Sprintf("FieldKind(%d)", int(k))
	}
}

// FieldSpec is the mapped target field specification for one column.
// Precision, scale, and length carry through from the schema unchanged.
type FieldSpec struct {
	Kind      FieldKind
	Native    string // the original native type, for diagnostics
	Length    int
	Precision int
	Scale     int
	Nullable  bool

	// Default holds a statically representable default (a constant).
	// Expression defaults set HasServerDefault instead; the expression itself
	// is never reproduced in generated code.
	Default          string
	HasDefault       bool
	HasServerDefault bool

	// Enum holds recovered choice values, for KindEnum.
	Enum []string
}

// nativeKinds is the total mapping table from native type names to field
// kinds. Every type the introspection boundary can report has an entry;
// anything else falls back to KindOpaque with a warning.
var nativeKinds = map[string]FieldKind{
	// integers
	"smallint": KindInt, "int2": KindInt,
	"integer": KindInt, "int": KindInt, "int4": KindInt, "mediumint": KindInt,
	"bigint": KindInt, "int8": KindInt,
	"tinyint": KindInt,
	"serial":  KindAuto, "bigserial": KindAuto, "smallserial": KindAuto,

	// floating point
	"real": KindFloat, "float4": KindFloat,
	"double precision": KindFloat, "float8": KindFloat, "double": KindFloat, "float": KindFloat,

	// exact numeric
	"numeric": KindDecimal, "decimal": KindDecimal,

	// bounded strings
	"character varying": KindString, "varchar": KindString,
	"character": KindString, "char": KindString, "bpchar": KindString,

	// unbounded strings
	"text": KindText, "citext": KindText, "clob": KindText,
	"tinytext": KindText, "mediumtext": KindText, "longtext": KindText,

	// booleans
	"boolean": KindBool, "bool": KindBool,

	// temporal
	"date": KindDate,
	"time": KindTime, "timetz": KindTime,
	"time without time zone": KindTime, "time with time zone": KindTime,
	"timestamp": KindDateTime, "timestamptz": KindDateTime,
	"timestamp without time zone": KindDateTime, "timestamp with time zone": KindDateTime,
	"datetime": KindDateTime,

	// identifiers
	"uuid": KindUUID, "guid": KindUUID,

	// structured
	"json": KindJSON, "jsonb": KindJSON,

	// binary
	"bytea": KindBinary, "blob": KindBinary, "binary": KindBinary, "varbinary": KindBinary,
	"tinyblob": KindBinary, "mediumblob": KindBinary, "longblob": KindBinary,

	// database-native enums
	"enum": KindEnum,
}

// canonicalNatives maps each field kind back to a canonical native type, the
// inverse direction of nativeKinds for lossless kinds.
var canonicalNatives = map[FieldKind]string{
	KindAuto:     "serial",
	KindInt:      "integer",
	KindFloat:    "double precision",
	KindDecimal:  "numeric",
	KindString:   "varchar",
	KindText:     "text",
	KindBool:     "boolean",
	KindDate:     "date",
	KindTime:     "time",
	KindDateTime: "timestamp",
	KindUUID:     "uuid",
	KindJSON:     "jsonb",
	KindBinary:   "bytea",
	KindEnum:     "enum",
}

// KindForNative returns the field kind for a native type name and whether the
// type is recognized.
func KindForNative(native string) (FieldKind, bool) {
	k, ok := nativeKinds[normalizeNative(native)]

	return k, ok
}

// CanonicalNative returns the canonical native type for a kind. KindOpaque
// has no canonical native; it returns "text".
func CanonicalNative(k FieldKind) string {
	if n, ok := canonicalNatives[k]; ok {
		return n
	}

	return "text"
}

// MapColumn maps one column to its target field specification. The mapping is
// total: unrecognized types degrade to an opaque text field with a non-fatal
// warning so generation always completes.
func MapColumn(table string, col dbscaf.Column) (FieldSpec, *dbscaf.Warning) {
	spec := FieldSpec{
		Native:    col.Type,
		Length:    col.Length,
		Precision: col.Precision,
		Scale:     col.Scale,
		Nullable:  col.Nullable,
	}

	kind, ok := KindForNative(col.Type)

	var warn *dbscaf.Warning
	if !ok {
		kind = KindOpaque
		warn = &dbscaf.Warning{
			Kind:    dbscaf.WarnUnsupportedType,
			Table:   table,
			Column:  col.Name,
			Message: fmt.Sprintf("native type %q has no mapping; treating as opaque text", col.Type),
		}
	}

	if col.AutoIncrement && (kind == KindInt || kind == KindAuto) {
		kind = KindAuto
	}
	spec.Kind = kind

	if col.HasDefault {
		if lit, ok := staticDefault(col.Default); ok {
			spec.Default = lit
			spec.HasDefault = true
		} else {
			spec.HasServerDefault = true
		}
	}

	return spec, warn
}

// normalizeNative lowercases a native type name and strips any trailing
// modifier like "(255)" or "(10,2)" so "VARCHAR(255)" matches "varchar".
func normalizeNative(native string) string {
	n := strings.ToLower(strings.TrimSpace(native))
	if i := strings.IndexByte(n, '('); i > 0 {
		n = strings.TrimSpace(n[:i])
	}
	n = strings.TrimSuffix(n, " unsigned")

	return n
}

var (
	numberLit = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
	stringLit = regexp.MustCompile(`^'(?:[^']|'')*'$`)
)

// staticDefault reports whether a raw default expression is a statically
// representable constant, returning the cleaned literal. Anything with call
// syntax or unparseable structure is a server-side default.
func staticDefault(raw string) (string, bool) {
	v := strings.TrimSpace(raw)

	// Postgres suffixes defaults with casts: 'draft'::character varying.
	if i := strings.Index(v, "::"); i > 0 {
		v = strings.TrimSpace(v[:i])
	}

	switch strings.ToLower(v) {
	case "true", "false":
		return strings.ToLower(v), true
	case "null":
		return "", false
	}

	if numberLit.MatchString(v) {
		return v, true
	}
	if stringLit.MatchString(v) {
		inner := strings.ReplaceAll(v[1:len(v)-1], "''", "'")

		return inner, true
	}

	return "", false
}
