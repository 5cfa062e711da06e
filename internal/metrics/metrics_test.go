package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_CountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/api/clients/:uuid", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/api/clients/a", "/api/clients/b", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	body := scrape(t, m)
	assert.Contains(t, body, `taxengine_http_requests_total{method="GET",route="/api/clients/:uuid",status="200"} 2`)
	assert.Contains(t, body, `taxengine_http_requests_total{method="GET",route="unmatched",status="404"} 1`)
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestHandler_ExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveJob("CT600_EXTRACTION", "succeeded", 2*time.Second)
	m.ObserveCache("hit")
	m.PeriodsRolledOver.Add(3)

	body := scrape(t, m)
	assert.Contains(t, body, `taxengine_jobs_finished_total{kind="CT600_EXTRACTION",status="succeeded"} 1`)
	assert.Contains(t, body, `taxengine_client_cache_lookups_total{result="hit"} 1`)
	assert.Contains(t, body, "taxengine_periods_rolled_over_total 3")
	assert.Contains(t, body, "go_goroutines")
}
