package echoapi_test

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kia/core/page"
)

func ctx() context.Context {
	return context.Background()
}

func Test_home(t *testing.T) {
	_, srv := setup(t)
	req, rec := newRequest(http.MethodGet, "/")
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to KIA API!", rec.Body.String())
}

func Test_retrievePage(t *testing.T) {
	_, srv := setup(t)
	policy, err := page.Get(page.PrivacyPolicy)
	require.NoError(t, err)

	runTests(t, srv, []httpTest{
		{name: "privacy policy is public", path: "/api/pages/privacy-policy", wantData: marchallObj(t, policy)},
		{name: "unknown page", path: "/api/pages/terms", wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "Page not found"})},
	})
	assert.Equal(t, "Privacy Policy", policy.Title)
	assert.NotEmpty(t, policy.Sections)
}

func Test_uploads(t *testing.T) {
	app, srv := setup(t)
	fp := filepath.Join(app.Storage.Dir(), "materials", "1", "notes.pdf")
	require.NoError(t, os.MkdirAll(filepath.Dir(fp), 0o755))
	require.NoError(t, os.WriteFile(fp, []byte("%PDF"), 0o644))

	req, rec := newRequest(http.MethodGet, "/uploads/materials/1/notes.pdf")
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF", rec.Body.String())
}

func Test_metrics(t *testing.T) {
	_, srv := setup(t)
	req, rec := newRequest(http.MethodGet, "/api/pages/privacy-policy")
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req, rec = newRequest(http.MethodGet, "/metrics")
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `kia_http_requests_total{method="GET",route="/api/pages/:slug",status="200"} 1`)
}

func Test_cors(t *testing.T) {
	_, srv := setup(t)
	req, rec := newRequest(http.MethodOptions, "/api/auth/login")
	req.Header.Set("Origin", "https://app.kia.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
