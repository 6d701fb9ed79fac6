package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bananalabs-oss/troupe/internal/parties"
	"github.com/bananalabs-oss/troupe/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := session.NewDirectory()
	svc := parties.NewService(nil, dir, zap.NewNop(), parties.Options{})
	h := parties.NewHandler(svc, dir, nil, zap.NewNop())
	return Setup(h, prometheus.NewRegistry(), "secret", "token")
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "troupe", body["service"])
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	r := newTestRouter(t)

	paths := []struct{ method, path string }{
		{http.MethodPost, "/parties"},
		{http.MethodGet, "/parties/mine"},
		{http.MethodPost, "/internal/sessions/quit"},
		{http.MethodGet, "/internal/parties/player/00000000-0000-0000-0000-000000000001"},
	}
	for _, p := range paths {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(p.method, p.path, nil))
		assert.GreaterOrEqual(t, rec.Code, http.StatusBadRequest, "%s %s", p.method, p.path)
		assert.Less(t, rec.Code, http.StatusInternalServerError, "%s %s", p.method, p.path)
	}
}
