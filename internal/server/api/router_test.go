package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"ipbeacon/internal/server/config"
	"ipbeacon/internal/server/ipfile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestRouter(t *testing.T) (*Router, string) {
	t.Helper()
	ipFile := filepath.Join(t.TempDir(), "myip.txt")
	cfg := &config.Config{}
	cfg.Log.Level = "info"
	r := NewRouter(cfg, ipfile.NewReader(ipFile), zaptest.NewLogger(t))
	return r, ipFile
}

func get(r *Router, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.Handler().ServeHTTP(w, req)
	return w
}

func TestGetIP(t *testing.T) {
	r, ipFile := newTestRouter(t)
	require.NoError(t, os.WriteFile(ipFile, []byte("203.0.113.5"), 0644))

	for _, path := range []string{"/ip", "/"} {
		w := get(r, path)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "203.0.113.5", w.Body.String())
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestGetIPTrimsTrailingNewline(t *testing.T) {
	r, ipFile := newTestRouter(t)
	require.NoError(t, os.WriteFile(ipFile, []byte("203.0.113.5\n"), 0644))

	w := get(r, "/ip")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "203.0.113.5", w.Body.String())
}

func TestGetIPMissingFile(t *testing.T) {
	r, _ := newTestRouter(t)

	w := get(r, "/ip")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetIPInvalidContent(t *testing.T) {
	r, ipFile := newTestRouter(t)
	require.NoError(t, os.WriteFile(ipFile, []byte("not-an-ip"), 0644))

	w := get(r, "/ip")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "not-an-ip")
}

func TestGetIPMappedIPv6Content(t *testing.T) {
	r, ipFile := newTestRouter(t)
	require.NoError(t, os.WriteFile(ipFile, []byte("::ffff:203.0.113.5"), 0644))

	w := get(r, "/ip")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "203.0.113.5")
}

func TestHealthIgnoresFileState(t *testing.T) {
	r, ipFile := newTestRouter(t)

	w := get(r, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	require.NoError(t, os.WriteFile(ipFile, []byte("not-an-ip"), 0644))

	w = get(r, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUnknownRoute(t *testing.T) {
	r, ipFile := newTestRouter(t)
	require.NoError(t, os.WriteFile(ipFile, []byte("203.0.113.5"), 0644))

	w := get(r, "/foo")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequestIDHeader(t *testing.T) {
	r, _ := newTestRouter(t)

	w := get(r, "/health")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
