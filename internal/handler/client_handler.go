package handler

import (
	"errors"
	"net/http"
	"strconv"

	"taxengine/internal/authz"
	"taxengine/internal/middleware"
	"taxengine/internal/service"
	"taxengine/pkg/pagination"
	"taxengine/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	maxImportBytes = 5 << 20
	// room for the multipart boundaries and part headers around the file
	multipartSlack = 64 << 10
)

type ClientHandler struct {
	clientService service.ClientService
	logger        *zap.Logger
}

func NewClientHandler(clientService service.ClientService, logger *zap.Logger) *ClientHandler {
	return &ClientHandler{clientService: clientService, logger: logger}
}

type bulkClientsRequest struct {
	Clients []service.ClientRequest `json:"clients"`
}

func (h *ClientHandler) RegisterRoutes(router *gin.RouterGroup) {
	clients := router.Group("/clients")
	{
		clients.GET("", middleware.RequirePermission(authz.ClientsRead), h.ListClients)
		clients.GET("/directory", middleware.RequirePermission(authz.ClientsRead), h.Directory)
		clients.GET("/:uuid", middleware.RequirePermission(authz.ClientsRead), h.GetClient)
		clients.POST("", middleware.RequirePermission(authz.ClientsWrite), h.CreateClient)
		clients.PUT("", middleware.RequirePermission(authz.ClientsWrite), h.BulkImport)
		clients.POST("/import", middleware.RequirePermission(authz.ClientsWrite), h.ImportCSV)
		clients.PATCH("/:uuid", middleware.RequirePermission(authz.ClientsWrite), h.UpdateClient)
	}
}

// ListClients godoc
// @Summary      List client companies
// @Description  Name or company number search. Inactive clients are hidden unless includeInactive=true.
// @Tags         clients
// @Security     BearerAuth
// @Produce      json
// @Param        search          query string false "Name or company number fragment"
// @Param        includeInactive query bool   false "Include inactive clients"
// @Param        page            query int    false "Page number (default 1)"
// @Param        limit           query int    false "Items per page (default 20, max 100)"
// @Success      200 {object} map[string]interface{}
// @Router       /api/clients [get]
func (h *ClientHandler) ListClients(c *gin.Context) {
	includeInactive, _ := strconv.ParseBool(c.Query("includeInactive"))
	params := pagination.Parse(c)

	clients, err := h.clientService.ListClients(c.Request.Context(), c.Query("search"), includeInactive)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination("clients", pageOf(clients, params), params.Page, params.Limit, int64(len(clients))))
}

// Directory godoc
// @Summary      Active client summaries
// @Description  Served from the client directory cache
// @Tags         clients
// @Security     BearerAuth
// @Produce      json
// @Success      200 {object} map[string]interface{}
// @Router       /api/clients/directory [get]
func (h *ClientHandler) Directory(c *gin.Context) {
	entries, err := h.clientService.Directory(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{"clients": entries})
}

// GetClient godoc
// @Summary      Get a client company
// @Tags         clients
// @Security     BearerAuth
// @Produce      json
// @Param        uuid path string true "Client UUID"
// @Success      200 {object} map[string]interface{}
// @Failure      404 {object} response.ErrorBody
// @Router       /api/clients/{uuid} [get]
func (h *ClientHandler) GetClient(c *gin.Context) {
	client, err := h.clientService.GetClient(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{"client": client})
}

// CreateClient godoc
// @Summary      Create a client company
// @Description  A client with a year-end gets its three accounting periods in the same transaction
// @Tags         clients
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body service.ClientRequest true "Client"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} response.ErrorBody
// @Failure      409 {object} response.ErrorBody
// @Router       /api/clients [post]
func (h *ClientHandler) CreateClient(c *gin.Context) {
	var req service.ClientRequest
	if !bindJSON(c, &req) {
		return
	}

	created, err := h.clientService.CreateClient(c.Request.Context(), middleware.CurrentProfile(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{
		"client":            created.Client,
		"accountingPeriods": created.Periods,
	})
}

// BulkImport godoc
// @Summary      Bulk import client companies
// @Description  Rows that fail validation or duplicate an existing company number are skipped and reported
// @Tags         clients
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body bulkClientsRequest true "Rows"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} response.ErrorBody
// @Router       /api/clients [put]
func (h *ClientHandler) BulkImport(c *gin.Context) {
	var req bulkClientsRequest
	if !bindJSON(c, &req) {
		return
	}
	h.importRows(c, req.Clients)
}

// ImportCSV godoc
// @Summary      Import client companies from CSV
// @Tags         clients
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "CSV file with a header row"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} response.ErrorBody
// @Router       /api/clients/import [post]
func (h *ClientHandler) ImportCSV(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes+multipartSlack)
	header, err := c.FormFile("file")
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusBadRequest, response.Error("file is too large"))
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error("file is required"))
		return
	}
	if header.Size > maxImportBytes {
		c.JSON(http.StatusBadRequest, response.Error("file is too large"))
		return
	}
	file, err := header.Open()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	defer file.Close()

	rows, err := service.ParseClientCSV(file)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.importRows(c, rows)
}

func (h *ClientHandler) importRows(c *gin.Context, rows []service.ClientRequest) {
	result, err := h.clientService.BulkImport(c.Request.Context(), middleware.CurrentProfile(c), rows)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{
		"created": result.Created,
		"skipped": result.Skipped,
		"errors":  result.Errors,
	})
}

// UpdateClient godoc
// @Summary      Update a client company
// @Description  Partial update. A body with no recognised fields still bumps updatedAt.
// @Tags         clients
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        uuid    path string                       true "Client UUID"
// @Param        request body service.UpdateClientRequest  true "Fields to change"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} response.ErrorBody
// @Failure      404 {object} response.ErrorBody
// @Router       /api/clients/{uuid} [patch]
func (h *ClientHandler) UpdateClient(c *gin.Context) {
	var req service.UpdateClientRequest
	if !bindJSON(c, &req) {
		return
	}

	client, err := h.clientService.UpdateClient(c.Request.Context(), middleware.CurrentProfile(c), c.Param("uuid"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	ok(c, map[string]interface{}{"client": client})
}
