package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/curricle/catalog-api/internal/middleware"
	"github.com/curricle/catalog-api/internal/search"
	"github.com/curricle/catalog-api/internal/session"
	appErrors "github.com/curricle/catalog-api/pkg/errors"
	"github.com/curricle/catalog-api/pkg/response"
)

// SessionHandler exposes the session-scoped search state store. Every
// mutation persists the session and returns the resulting state so clients
// can render without a follow-up read.
type SessionHandler struct {
	sessions *session.Manager
}

// NewSessionHandler constructs SessionHandler.
func NewSessionHandler(sessions *session.Manager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

func (h *SessionHandler) load(c *gin.Context) (*session.Session, bool) {
	sess, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return sess, true
}

func (h *SessionHandler) respondState(c *gin.Context, sess *session.Session) {
	_ = h.sessions.Save(c.Request.Context(), sess)
	state := sess.State()
	response.JSON(c, http.StatusOK, gin.H{"id": sess.ID, "state": state}, nil)
}

// Create godoc
// @Summary Open a new search session
// @Tags Sessions
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	sess, err := h.sessions.Create(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	state := sess.State()
	response.Created(c, gin.H{"id": sess.ID, "state": state})
}

// Get godoc
// @Summary Get a session's current search state
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	sess, ok := h.load(c)
	if !ok {
		return
	}
	state := sess.State()
	response.JSON(c, http.StatusOK, gin.H{"id": sess.ID, "state": state}, nil)
}

type addKeywordRequest struct {
	Text   string            `json:"text" binding:"required"`
	Fields []search.FieldTag `json:"fields"`
}

// AddKeyword godoc
// @Summary Add a keyword to the session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body addKeywordRequest true "Keyword"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/keywords [post]
func (h *SessionHandler) AddKeyword(c *gin.Context) {
	sess, ok := h.load(c)
	if !ok {
		return
	}
	var req addKeywordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	sess.AddKeyword(req.Text, req.Fields)
	h.respondState(c, sess)
}

// RemoveKeyword godoc
// @Summary Remove a keyword from the session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Param ident path string true "Keyword ident"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/keywords/{ident} [delete]
func (h *SessionHandler) RemoveKeyword(c *gin.Context) {
	sess, ok := h.load(c)
	if !ok {
		return
	}
	sess.RemoveKeyword(c.Param("ident"))
	h.respondState(c, sess)
}

type keywordActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetKeywordActive godoc
// @Summary Activate or deactivate a keyword
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param ident path string true "Keyword ident"
// @Param request body keywordActiveRequest true "Active flag"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/keywords/{ident} [patch]
func (h *SessionHandler) SetKeywordActive(c *gin.Context) {
	sess, ok := h.load(c)
	if !ok {
		return
	}
	var req keywordActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	sess.SetKeywordActive(c.Param("ident"), *req.Active)
	h.respondState(c, sess)
}

type updateSessionRequest struct {
	TermStart  *string             `json:"term_start,omitempty"`
	YearStart  *int                `json:"year_start,omitempty"`
	TermEnd    *string             `json:"term_end,omitempty"`
	YearEnd    *int                `json:"year_end,omitempty"`
	UseRange   *bool               `json:"use_range,omitempty"`
	UseFilters *bool               `json:"use_filters,omitempty"`
	TimeRanges *[]search.TimeRange `json:"time_ranges,omitempty"`
	PerPage    *int                `json:"per_page,omitempty"`
}

// Update godoc
// @Summary Update semester, filter and paging settings
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body updateSessionRequest true "Settings"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [patch]
func (h *SessionHandler) Update(c *gin.Context) {
	sess, ok := h.load(c)
	if !ok {
		return
	}
	var req updateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	state := sess.State()
	if req.TermStart != nil || req.YearStart != nil {
		term, year := state.TermStart, state.YearStart
		if req.TermStart != nil {
			term = *req.TermStart
		}
		if req.YearStart != nil {
			year = *req.YearStart
		}
		sess.SetSemesterStart(term, year)
	}
	if req.TermEnd != nil || req.YearEnd != nil {
		term, year := state.TermEnd, state.YearEnd
		if req.TermEnd != nil {
			term = *req.TermEnd
		}
		if req.YearEnd != nil {
			year = *req.YearEnd
		}
		sess.SetSemesterEnd(term, year)
	}
	if req.UseRange != nil {
		sess.SetUseRange(*req.UseRange)
	}
	if req.UseFilters != nil {
		sess.SetUseFilters(*req.UseFilters)
	}
	if req.TimeRanges != nil {
		sess.SetTimeRanges(*req.TimeRanges)
	}
	if req.PerPage != nil {
		sess.SetPerPage(*req.PerPage)
	}
	h.respondState(c, sess)
}

type facetSelectionRequest struct {
	ID       string `json:"id,omitempty"`
	All      bool   `json:"all,omitempty"`
	Selected *bool  `json:"selected" binding:"required"`
}

// SetFacetSelection godoc
// @Summary Select or deselect facet values
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param facet path string true "Facet dimension"
// @Param request body facetSelectionRequest true "Selection"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/facets/{facet} [put]
func (h *SessionHandler) SetFacetSelection(c *gin.Context) {
	sess, ok := h.load(c)
	if !ok {
		return
	}
	var req facetSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	facet := c.Param("facet")
	if req.All {
		sess.FacetSetAllSelections(facet, *req.Selected)
	} else if err := sess.FacetSetItemSelection(facet, req.ID, *req.Selected); err != nil {
		response.Error(c, err)
		return
	}
	h.respondState(c, sess)
}

// ResetFacets godoc
// @Summary Clear all facet values and selections
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/facets [delete]
func (h *SessionHandler) ResetFacets(c *gin.Context) {
	sess, ok := h.load(c)
	if !ok {
		return
	}
	sess.ResetFacets()
	h.respondState(c, sess)
}

type runSearchRequest struct {
	Basic string `json:"basic,omitempty"`
}

// Search godoc
// @Summary Run the session's search
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body runSearchRequest false "Optional free-text query"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/search [post]
func (h *SessionHandler) Search(c *gin.Context) {
	sess, ok := h.load(c)
	if !ok {
		return
	}
	var req runSearchRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
			return
		}
	}

	var err error
	if req.Basic != "" {
		err = sess.RunBasicSearch(c.Request.Context(), req.Basic)
	} else {
		err = sess.RunKeywordSearch(c.Request.Context())
	}
	if err != nil {
		_ = h.sessions.Save(c.Request.Context(), sess)
		response.Error(c, err)
		return
	}
	h.respondState(c, sess)
}

// LoadMore godoc
// @Summary Append the next page of results
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/more [post]
func (h *SessionHandler) LoadMore(c *gin.Context) {
	sess, ok := h.load(c)
	if !ok {
		return
	}
	if err := sess.LoadMore(c.Request.Context()); err != nil {
		_ = h.sessions.Save(c.Request.Context(), sess)
		response.Error(c, err)
		return
	}
	h.respondState(c, sess)
}

type changeSortRequest struct {
	SortBy string `json:"sort_by" binding:"required"`
}

// ChangeSort godoc
// @Summary Change the sort order, re-running the search when needed
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body changeSortRequest true "Sort key"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/sort [put]
func (h *SessionHandler) ChangeSort(c *gin.Context) {
	sess, ok := h.load(c)
	if !ok {
		return
	}
	var req changeSortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	if err := sess.ChangeSortBy(c.Request.Context(), search.SortKey(req.SortBy)); err != nil {
		_ = h.sessions.Save(c.Request.Context(), sess)
		response.Error(c, err)
		return
	}
	h.respondState(c, sess)
}

// History godoc
// @Summary List the session's recent search snapshots
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/history [get]
func (h *SessionHandler) History(c *gin.Context) {
	sess, ok := h.load(c)
	if !ok {
		return
	}
	state := sess.State()
	response.JSON(c, http.StatusOK, state.History, nil)
}

// Restore godoc
// @Summary Restore a history snapshot and re-run it
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Param index path int true "History position, most recent first"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/history/{index}/restore [post]
func (h *SessionHandler) Restore(c *gin.Context) {
	sess, ok := h.load(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "history index must be an integer"))
		return
	}
	if err := sess.Restore(c.Request.Context(), index); err != nil {
		_ = h.sessions.Save(c.Request.Context(), sess)
		response.Error(c, err)
		return
	}
	h.respondState(c, sess)
}

// Reset godoc
// @Summary Clear keywords, facets and constraints
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/reset [post]
func (h *SessionHandler) Reset(c *gin.Context) {
	sess, ok := h.load(c)
	if !ok {
		return
	}
	sess.ResetAdvancedSearch()
	h.respondState(c, sess)
}
