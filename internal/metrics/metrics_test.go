package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "github.com/bananalabs-oss/troupe/internal/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Observe("invite", nil, 10*time.Millisecond)
	m.Observe("invite", nil, 10*time.Millisecond)
	m.Observe("invite", apperrors.ErrPartyFull, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("invite", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("invite", "party_full")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestObserveNil(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.Observe("kick", nil, time.Second) })
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Observe("create", nil, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `troupe_party_operations_total{op="create",outcome="ok"} 1`)
}
