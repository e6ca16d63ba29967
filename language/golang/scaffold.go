package golang

import (
	"fmt"
	"strings"

	"github.com/rlch/dbscaf/resolve"
)

// renderScaffold emits scaffold_test.go: endpoint smoke tests against a live
// database named by TEST_DATABASE_URL, skipped when the variable is unset.
// The scaffolds are a starting point; projects grow their own assertions on
// top of the generated fixtures.
func (r *renderer) renderScaffold() ([]byte, error) {
	var b strings.Builder
	r.header(&b,
		"context",
		"net/http",
		"net/http/httptest",
		"os",
		"testing",
		"github.com/gin-gonic/gin",
		"github.com/jackc/pgx/v5/pgxpool",
	)

	b.WriteString(`
// newTestServer mounts the generated routes over the database named by
// TEST_DATABASE_URL. Tests skip when the variable is unset.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterRoutes(router, pool)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return srv
}

func checkStatus(t *testing.T, url string, want int) {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		t.Errorf("GET %s: status %d, want %d", url, resp.StatusCode, want)
	}
}
`)

	for _, e := range r.ctx.Model.Entities {
		path := "/" + resourcePath(e)

		fmt.Fprintf(&b, "\nfunc Test%sEndpoints(t *testing.T) {\n", e.Name)
		b.WriteString("\tsrv := newTestServer(t)\n\n")
		fmt.Fprintf(&b, "\tcheckStatus(t, srv.URL+%q, http.StatusOK)\n", path)
		if pk := singlePK(e); pk != nil && (pk.Spec.Kind == resolve.KindAuto || pk.Spec.Kind == resolve.KindInt) {
			fmt.Fprintf(&b, "\tcheckStatus(t, srv.URL+%q, http.StatusNotFound)\n", path+"/0")
		}
		b.WriteString("}\n")
	}

	return r.finish(&b)
}
