package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rlch/dbscaf"
	"github.com/rlch/dbscaf/generate"
)

func TestSummaryPlain(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	p := NewPrinter(&buf, false)
	p.Summary(&generate.Result{
		Entities:  3,
		Written:   []string{"models.go", "openapi.yaml"},
		Unchanged: []string{"routes.go"},
		Pruned:    []string{"admin.go"},
		Warnings: []dbscaf.Warning{
			{Kind: dbscaf.WarnUnsupportedType, Table: "post", Column: "geom", Message: "no mapping for \"geometry\""},
		},
	})

	got := buf.String()
	assert.Contains(t, got, "warning unsupported type: post.geom")
	assert.Contains(t, got, "wrote models.go")
	assert.Contains(t, got, "wrote openapi.yaml")
	assert.Contains(t, got, "pruned admin.go")
	assert.Contains(t, got, "OK 3 entities: 2 written, 1 unchanged, 1 pruned, 1 warnings")
	assert.NotContains(t, got, "\x1b[", "no ANSI escapes when writer is not a terminal")
}

func TestSummaryWithoutWarnings(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	p := NewPrinter(&buf, true)
	p.Summary(&generate.Result{Entities: 1, Unchanged: []string{"models.go"}})

	got := buf.String()
	assert.Equal(t, "OK 1 entities: 0 written, 1 unchanged, 0 pruned\n", got)
	assert.Equal(t, 1, strings.Count(got, "\n"), "no blank warning separator")
}

func TestError(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	NewPrinter(&buf, false).Error(errors.New("no database configured"))

	assert.Equal(t, "error no database configured\n", buf.String())
}
