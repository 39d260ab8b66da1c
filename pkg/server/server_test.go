package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func previewFor(t *testing.T) (*Preview, string) {
	t.Helper()
	buildDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(buildDir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(buildDir, "index.html"),
		[]byte("<html><div id=\"root\"></div></html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(buildDir, "assets", "app.js"),
		[]byte("console.log('app')"), 0o644))

	logger := zerolog.New(zerolog.NewTestWriter(nil))
	preview := NewPreview(logger, Config{
		Addr:     "127.0.0.1:0",
		BuildDir: buildDir,
	})
	return preview, buildDir
}

func TestPreview_ServesFilesAndSPAFallback(t *testing.T) {
	preview, _ := previewFor(t)
	ts := httptest.NewServer(preview.Handler())
	defer ts.Close()

	tests := []struct {
		name     string
		path     string
		wantBody string
	}{
		{"root serves index", "/", "<html><div id=\"root\"></div></html>"},
		{"existing asset served as-is", "/assets/app.js", "console.log('app')"},
		{"unknown route falls back to index", "/settings", "<html><div id=\"root\"></div></html>"},
		{"deep unknown route falls back", "/a/b/c", "<html><div id=\"root\"></div></html>"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Get(ts.URL + tc.path)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Equal(t, tc.wantBody, string(body))
		})
	}
}

func TestPreview_SetsSecurityHeaders(t *testing.T) {
	preview, _ := previewFor(t)
	ts := httptest.NewServer(preview.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.NotEmpty(t, resp.Header.Get("X-XSS-Protection"))
	assert.Contains(t, resp.Header.Get("Strict-Transport-Security"), "max-age=")
}

func TestPreview_RejectsPathTraversal(t *testing.T) {
	preview, buildDir := previewFor(t)
	outside := filepath.Join(filepath.Dir(buildDir), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o644))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.URL.Path = "/../secret.txt"
	rec := httptest.NewRecorder()
	preview.Handler().ServeHTTP(rec, req)

	body, _ := io.ReadAll(rec.Result().Body)
	assert.NotContains(t, string(body), "secret")
}

func TestPreview_RejectsSiblingDirWithSharedPrefix(t *testing.T) {
	root := t.TempDir()
	buildDir := filepath.Join(root, "app")
	sibling := filepath.Join(root, "app2")
	require.NoError(t, os.MkdirAll(buildDir, 0o755))
	require.NoError(t, os.MkdirAll(sibling, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(buildDir, "index.html"),
		[]byte("<html>app</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(sibling, "secret.txt"),
		[]byte("sibling-secret"), 0o644))

	logger := zerolog.New(zerolog.NewTestWriter(nil))
	preview := NewPreview(logger, Config{Addr: "127.0.0.1:0", BuildDir: buildDir})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.URL.Path = "/../app2/secret.txt"
	rec := httptest.NewRecorder()
	preview.Handler().ServeHTTP(rec, req)

	body, _ := io.ReadAll(rec.Result().Body)
	assert.NotContains(t, string(body), "sibling-secret")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
