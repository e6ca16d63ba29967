package resolve

import (
	"regexp"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/rlch/dbscaf"
)

// Check-constraint enum recovery. A clause of the shape
//
//	status IN ('draft', 'live', 'archived')
//
// encodes a closed choice set worth surfacing as an enum field instead of a
// plain string. Databases wrap the clause in noise; Postgres rewrites it to
// ((status)::text = ANY ((ARRAY['draft'::character varying, ...])::text[])),
// so the clause is normalized before parsing. Anything that does not reduce
// to a single-column IN list is simply not an enum; there is no error path.

var checkLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	{Name: "String", Pattern: `'(?:[^']|'')*'`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},
	{Name: "Comma", Pattern: `,`},
})

type checkClause struct {
	Wrapped *checkClause `parser:"  \"(\" @@ \")\""`
	Test    *inTest      `parser:"| @@"`
}

type inTest struct {
	Column *operand   `parser:"@@ \"IN\""`
	Values *valueList `parser:"@@"`
}

// valueList tolerates extra parentheses around the choice list; the Postgres
// ANY(ARRAY[...]) rewrite leaves several once normalized.
type valueList struct {
	Paren  *valueList `parser:"  \"(\" @@ \")\""`
	Values []string   `parser:"| @String (\",\" @String)*"`
}

func (v *valueList) strings() []string {
	for v.Paren != nil {
		v = v.Paren
	}

	return v.Values
}

type operand struct {
	Paren *operand `parser:"  \"(\" @@ \")\""`
	Name  string   `parser:"| @Ident"`
}

func (o *operand) column() string {
	for o.Paren != nil {
		o = o.Paren
	}

	return o.Name
}

var checkParser = participle.MustBuild[checkClause](
	participle.Lexer(checkLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(64), // wrapped-clause vs parenthesized-operand needs backtracking
	participle.CaseInsensitive("Ident"),
)

var (
	castPattern  = regexp.MustCompile(`::\s*"?[a-zA-Z_][a-zA-Z0-9_ ]*"?(\[\])?`)
	anyPattern   = regexp.MustCompile(`(?i)=\s*any\s*`)
	arrayPattern = regexp.MustCompile(`(?i)\barray\s*\[`)
)

// normalizeCheckClause strips database dressing: type casts, quoting of
// identifiers, and the Postgres `= ANY (ARRAY[...])` spelling of IN.
func normalizeCheckClause(clause string) string {
	c := castPattern.ReplaceAllString(clause, "")
	c = strings.NewReplacer("`", "", `"`, "").Replace(c)
	c = anyPattern.ReplaceAllString(c, " IN ")
	c = arrayPattern.ReplaceAllString(c, "(")
	c = strings.ReplaceAll(c, "]", ")")

	return c
}

// EnumValues parses a check clause and returns the column and choice values
// when the clause is a simple single-column IN list, in declaration order.
func EnumValues(clause string) (column string, values []string, ok bool) {
	parsed, err := checkParser.ParseString("", normalizeCheckClause(clause))
	if err != nil {
		return "", nil, false
	}

	for parsed.Wrapped != nil {
		parsed = parsed.Wrapped
	}
	if parsed.Test == nil || parsed.Test.Column == nil || parsed.Test.Values == nil {
		return "", nil, false
	}

	raw := parsed.Test.Values.strings()
	values = make([]string, 0, len(raw))
	for _, v := range raw {
		values = append(values, unquoteSQLString(v))
	}

	return parsed.Test.Column.column(), values, true
}

// ColumnEnums scans a table's check constraints and returns recovered enum
// values keyed by column name. Only clauses naming exactly one existing
// column qualify.
func ColumnEnums(t *dbscaf.Table) map[string][]string {
	var enums map[string][]string

	for _, c := range t.CheckConstraints() {
		col, values, ok := EnumValues(c.CheckClause)
		if !ok || len(values) == 0 || t.Column(col) == nil {
			continue
		}

		if enums == nil {
			enums = make(map[string][]string)
		}
		enums[col] = values
	}

	return enums
}

func unquoteSQLString(s string) string {
	s = strings.TrimPrefix(s, "'")
	s = strings.TrimSuffix(s, "'")

	return strings.ReplaceAll(s, "''", "'")
}
