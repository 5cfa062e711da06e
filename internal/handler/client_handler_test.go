package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"taxengine/internal/cache"
	"taxengine/internal/model"
	"taxengine/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClientService struct {
	clients  []model.ClientCompany
	imported []service.ClientRequest
	createFn func(service.ClientRequest) (*service.ClientWithPeriods, error)
}

func (f *fakeClientService) ListClients(context.Context, string, bool) ([]model.ClientCompany, error) {
	return f.clients, nil
}

func (f *fakeClientService) Directory(context.Context) ([]cache.ClientSummary, error) {
	return []cache.ClientSummary{}, nil
}

func (f *fakeClientService) GetClient(context.Context, string) (*model.ClientCompany, error) {
	return nil, service.NewError(service.ErrNotFound, "Client not found")
}

func (f *fakeClientService) CreateClient(_ context.Context, _ *model.TaxEngineUser, req service.ClientRequest) (*service.ClientWithPeriods, error) {
	return f.createFn(req)
}

func (f *fakeClientService) UpdateClient(context.Context, *model.TaxEngineUser, string, service.UpdateClientRequest) (*model.ClientCompany, error) {
	return &model.ClientCompany{Name: "Updated"}, nil
}

// BulkImport treats every second row as a duplicate
func (f *fakeClientService) BulkImport(_ context.Context, _ *model.TaxEngineUser, rows []service.ClientRequest) (*service.ImportResult, error) {
	f.imported = rows
	res := &service.ImportResult{Errors: []service.ImportError{}}
	for i, row := range rows {
		if i%2 == 1 {
			res.Skipped++
			res.Errors = append(res.Errors, service.ImportError{Row: i + 1, CompanyNumber: row.CompanyNumber, Error: "duplicate"})
			continue
		}
		res.Created++
	}
	return res, nil
}

func clientRouter(svc service.ClientService, profile *model.TaxEngineUser) *gin.Engine {
	return newTestRouter(profile, func(g *gin.RouterGroup) {
		NewClientHandler(svc, zap.NewNop()).RegisterRoutes(g)
	})
}

func TestCreateClient_ReturnsClientAndPeriods(t *testing.T) {
	svc := &fakeClientService{createFn: func(req service.ClientRequest) (*service.ClientWithPeriods, error) {
		return &service.ClientWithPeriods{
			Client:  &model.ClientCompany{Name: req.Name, CompanyNumber: req.CompanyNumber},
			Periods: []model.AccountingPeriod{{}, {}, {}},
		}, nil
	}}

	w, body := doJSON(t, clientRouter(svc, processorProfile()), http.MethodPost, "/api/clients",
		map[string]interface{}{"name": "Acme", "companyNumber": "01234567"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Acme", body["client"].(map[string]interface{})["name"])
	assert.Len(t, body["accountingPeriods"], 3)
}

func TestCreateClient_Conflict(t *testing.T) {
	svc := &fakeClientService{createFn: func(service.ClientRequest) (*service.ClientWithPeriods, error) {
		return nil, service.NewError(service.ErrConflict, "A client with company number 01234567 already exists")
	}}

	w, body := doJSON(t, clientRouter(svc, processorProfile()), http.MethodPost, "/api/clients",
		map[string]interface{}{"name": "Acme", "companyNumber": "01234567"})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, body["error"], "already exists")
}

func TestBulkImport_ReportsSkippedRows(t *testing.T) {
	svc := &fakeClientService{}
	rows := []map[string]interface{}{
		{"name": "A", "companyNumber": "00000001"},
		{"name": "B", "companyNumber": "00000002"},
		{"name": "C", "companyNumber": "00000003"},
	}

	w, body := doJSON(t, clientRouter(svc, processorProfile()), http.MethodPut, "/api/clients",
		map[string]interface{}{"clients": rows})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, body["created"])
	assert.EqualValues(t, 1, body["skipped"])
	errs := body["errors"].([]interface{})
	require.Len(t, errs, 1)
	assert.Equal(t, "00000002", errs[0].(map[string]interface{})["companyNumber"])
	assert.Len(t, svc.imported, 3)
}

func TestImportCSV(t *testing.T) {
	svc := &fakeClientService{}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "clients.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("Company Name,Company Number,Year End Month,Year End Day\nAcme Ltd,01234567,3,31\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/clients/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	clientRouter(svc, processorProfile()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body["created"])
	require.Len(t, svc.imported, 1)
	assert.Equal(t, "Acme Ltd", svc.imported[0].Name)
}

func TestImportCSV_RequiresFile(t *testing.T) {
	w, body := doJSON(t, clientRouter(&fakeClientService{}, processorProfile()), http.MethodPost, "/api/clients/import", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "file is required", body["error"])
}

func TestImportCSV_RejectsOversizedUpload(t *testing.T) {
	svc := &fakeClientService{}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "clients.csv")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte("Acme Ltd,01234567,3,31\n"), 2*maxImportBytes/23))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/clients/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	clientRouter(svc, processorProfile()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "file is too large", body["error"])
	assert.Empty(t, svc.imported)
}

func TestListClients_Paginates(t *testing.T) {
	svc := &fakeClientService{clients: make([]model.ClientCompany, 25)}

	w, body := doJSON(t, clientRouter(svc, processorProfile()), http.MethodGet, "/api/clients?page=2&limit=10", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["clients"], 10)
	assert.EqualValues(t, 25, body["total"])
	assert.EqualValues(t, 2, body["page"])
}

func TestGetClient_NotFound(t *testing.T) {
	w, body := doJSON(t, clientRouter(&fakeClientService{}, processorProfile()), http.MethodGet, "/api/clients/abc", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Client not found", body["error"])
}

func TestClientRoutes_RequireActiveProfile(t *testing.T) {
	pending := processorProfile()
	pending.Status = model.UserStatusPending

	w, _ := doJSON(t, clientRouter(&fakeClientService{}, pending), http.MethodGet, "/api/clients", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = doJSON(t, clientRouter(&fakeClientService{}, nil), http.MethodGet, "/api/clients", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
