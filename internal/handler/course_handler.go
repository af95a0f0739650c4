package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/curricle/catalog-api/internal/service"
	appErrors "github.com/curricle/catalog-api/pkg/errors"
	"github.com/curricle/catalog-api/pkg/response"
)

// CourseHandler exposes course lookup and catalog metadata endpoints.
type CourseHandler struct {
	search  *service.SearchService
	catalog *service.CatalogService
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(search *service.SearchService, catalog *service.CatalogService) *CourseHandler {
	return &CourseHandler{search: search, catalog: catalog}
}

// Get godoc
// @Summary Get one course with instructors and meeting patterns
// @Tags Courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "course id must be an integer"))
		return
	}
	course, err := h.search.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// List godoc
// @Summary Look up courses by id list
// @Tags Courses
// @Produce json
// @Param ids query string true "Comma-separated course ids"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("ids"))
	if raw == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "ids is required"))
		return
	}
	var ids []int
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "ids must be a comma-separated list of integers"))
			return
		}
		ids = append(ids, id)
	}

	connection, err := h.search.Search(c.Request.Context(), service.SearchRequest{IDs: ids})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, connection, nil)
}

// FacetValues godoc
// @Summary List every school, department, subject and component value
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /courses/facets [get]
func (h *CourseHandler) FacetValues(c *gin.Context) {
	values, err := h.catalog.FacetValues(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, values, nil)
}

// CountsByDepartment godoc
// @Summary Count catalog courses per department
// @Tags Courses
// @Produce json
// @Param school query string false "Restrict to one school"
// @Success 200 {object} response.Envelope
// @Router /courses/counts-by-department [get]
func (h *CourseHandler) CountsByDepartment(c *gin.Context) {
	counts, err := h.catalog.CountByDepartment(c.Request.Context(), strings.TrimSpace(c.Query("school")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, counts, nil)
}

// ConnectedByInstructor godoc
// @Summary List courses taught by an instructor's co-teaching network
// @Tags Courses
// @Produce json
// @Param name query string true "Instructor name"
// @Param year query int false "Restrict to a term year"
// @Success 200 {object} response.Envelope
// @Router /courses/connected [get]
func (h *CourseHandler) ConnectedByInstructor(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "name is required"))
		return
	}
	year := 0
	if raw := c.Query("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "year must be an integer"))
			return
		}
		year = parsed
	}

	courses, err := h.catalog.CoursesConnectedByInstructor(c.Request.Context(), name, year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}
