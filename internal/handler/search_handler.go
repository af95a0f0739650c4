package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/curricle/catalog-api/internal/middleware"
	"github.com/curricle/catalog-api/internal/service"
	appErrors "github.com/curricle/catalog-api/pkg/errors"
	"github.com/curricle/catalog-api/pkg/response"
)

// SearchHandler exposes stateless catalog search endpoints.
type SearchHandler struct {
	search  *service.SearchService
	exports *service.ExportService
}

// NewSearchHandler constructs SearchHandler.
func NewSearchHandler(search *service.SearchService, exports *service.ExportService) *SearchHandler {
	return &SearchHandler{search: search, exports: exports}
}

// Search godoc
// @Summary Execute a faceted catalog search
// @Tags Search
// @Accept json
// @Produce json
// @Param request body service.SearchRequest true "Search input"
// @Success 200 {object} response.Envelope
// @Router /search [post]
func (h *SearchHandler) Search(c *gin.Context) {
	var req service.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	req.UserID = middleware.UserID(c)

	connection, err := h.search.Search(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, connection, nil)
}

// Export godoc
// @Summary Export search results as CSV or PDF
// @Tags Search
// @Accept json
// @Produce octet-stream
// @Param format query string false "csv or pdf" default(csv)
// @Param request body service.SearchRequest true "Search input"
// @Success 200 {file} byte
// @Router /search/export [post]
func (h *SearchHandler) Export(c *gin.Context) {
	var req service.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	req.UserID = middleware.UserID(c)

	format := service.ExportFormat(c.DefaultQuery("format", string(service.ExportCSV)))
	payload, contentType, err := h.exports.Export(c.Request.Context(), req, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("courses-%s.%s", time.Now().Format("20060102-150405"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}
