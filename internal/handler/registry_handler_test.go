package handler

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"taxengine/internal/companieshouse"
	"taxengine/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func registryRouter(t *testing.T, apiKey string, upstream http.HandlerFunc) (*gin.Engine, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		upstream(w, r)
	}))
	t.Cleanup(srv.Close)

	client := companieshouse.New(apiKey, srv.URL, srv.Client())
	svc := service.NewRegistryService(client, zap.NewNop())
	r := newTestRouter(processorProfile(), func(g *gin.RouterGroup) {
		NewRegistryHandler(svc, zap.NewNop()).RegisterRoutes(g)
	})
	return r, &calls
}

func TestRegistry_MissingKeyAnswers500WithoutCallingUpstream(t *testing.T) {
	r, calls := registryRouter(t, "", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, path := range []string{"/api/companies-house/search?q=acme", "/api/companies-house/company/01234567"} {
		w, body := doJSON(t, r, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusInternalServerError, w.Code, path)
		assert.Contains(t, body["error"], "COMPANIES_HOUSE_API_KEY")
	}
	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestRegistry_SearchRequiresQuery(t *testing.T) {
	r, calls := registryRouter(t, "key", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	w, body := doJSON(t, r, http.MethodGet, "/api/companies-house/search", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "q is required", body["error"])
	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestRegistry_SearchReshapesResults(t *testing.T) {
	r, _ := registryRouter(t, "key", func(w http.ResponseWriter, req *http.Request) {
		user, pass, ok := req.BasicAuth()
		if !ok || user != "key" || pass != "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total_results":1,"items":[{"company_number":"01234567","title":"ACME LTD","company_status":"active","address_snippet":"1 High St"}]}`))
	})

	w, body := doJSON(t, r, http.MethodGet, "/api/companies-house/search?q=acme", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 1, body["totalResults"])
	companies := body["companies"].([]interface{})
	if assert.Len(t, companies, 1) {
		first := companies[0].(map[string]interface{})
		assert.Equal(t, "ACME LTD", first["companyName"])
		assert.Equal(t, "1 High St", first["address"])
	}
}

func TestRegistry_UpstreamStatusPassesThrough(t *testing.T) {
	r, _ := registryRouter(t, "key", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errors":[{"error":"company-profile-not-found"}]}`))
	})

	w, body := doJSON(t, r, http.MethodGet, "/api/companies-house/company/01234567", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Company registry request failed", body["error"])
}
