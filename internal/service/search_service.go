package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/curricle/catalog-api/internal/models"
	"github.com/curricle/catalog-api/internal/search"
	"github.com/curricle/catalog-api/internal/search/index"
	appErrors "github.com/curricle/catalog-api/pkg/errors"
)

type courseReader interface {
	FindByID(ctx context.Context, id int) (*models.Course, error)
	FindByIDs(ctx context.Context, ids []int) ([]models.Course, error)
}

type annotationReader interface {
	CourseIDsForUser(ctx context.Context, userID string) ([]int, error)
}

// SemesterInput is a client-supplied (term, year) pair; term names arrive
// as enum constants ("FALL").
type SemesterInput struct {
	TermName string `json:"term_name" validate:"required"`
	TermYear int    `json:"term_year" validate:"required,gt=1900"`
}

// SemesterRangeInput is the API shape of a semester range.
type SemesterRangeInput struct {
	Start SemesterInput  `json:"start" validate:"required"`
	End   *SemesterInput `json:"end,omitempty"`
}

// SearchRequest is the query input accepted at the API boundary. A non-empty
// IDs list short-circuits all other filtering.
type SearchRequest struct {
	IDs            []int               `json:"ids,omitempty"`
	DeluxeKeywords []search.Keyword    `json:"deluxe_keywords,omitempty"`
	Basic          string              `json:"basic,omitempty"`
	SemesterRange  *SemesterRangeInput `json:"semester_range,omitempty"`
	TimeRanges     []search.TimeRange  `json:"time_ranges,omitempty"`
	Schools        []string            `json:"schools,omitempty"`
	Departments    []string            `json:"departments,omitempty"`
	Subjects       []string            `json:"subjects,omitempty"`
	Components     []string            `json:"components,omitempty"`
	SortBy         string              `json:"sort_by,omitempty" validate:"omitempty,oneof=RELEVANCE TITLE SCHOOL SEMESTER DEPARTMENT COURSE_ID"`
	Page           int                 `json:"page,omitempty" validate:"omitempty,min=1"`
	PerPage        int                 `json:"per_page,omitempty" validate:"omitempty,min=1,max=100"`
	Annotated      bool                `json:"annotated,omitempty"`

	// UserID is attached by the identity middleware, never by clients.
	UserID string `json:"-"`
}

// SearchService compiles and executes faceted catalog searches. Execution
// is read-only: any number of searches may run concurrently.
type SearchService struct {
	index       index.Client
	courses     courseReader
	annotations annotationReader
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	group       singleflight.Group
	cacheTTL    time.Duration
}

// NewSearchService creates a search service instance.
func NewSearchService(idx index.Client, courses courseReader, annotations annotationReader, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *SearchService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SearchService{
		index:       idx,
		courses:     courses,
		annotations: annotations,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		cacheTTL:    cacheTTL,
	}
}

// Search runs one faceted query and returns the result connection.
func (s *SearchService) Search(ctx context.Context, req SearchRequest) (*models.CourseConnection, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid search request")
	}

	if len(req.IDs) > 0 {
		return s.lookupByIDs(ctx, req.IDs)
	}

	query, err := s.compile(ctx, req)
	if err != nil {
		return nil, err
	}

	key, err := queryCacheKey(query)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to key search query")
	}

	if s.cache.Enabled() {
		var cached models.CourseConnection
		if hit, _ := s.cache.Get(ctx, key, &cached); hit {
			return &cached, nil
		}
	}

	result, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.execute(ctx, query)
	})
	if err != nil {
		return nil, err
	}

	connection := result.(*models.CourseConnection)
	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, key, connection, s.cacheTTL)
	}
	return connection, nil
}

// compile translates the API request into a compiled query, resolving the
// annotated-courses constraint against the relational store first.
func (s *SearchService) compile(ctx context.Context, req SearchRequest) (*search.Query, error) {
	compileReq := search.CompileRequest{
		Keywords:    req.DeluxeKeywords,
		Basic:       req.Basic,
		TimeRanges:  req.TimeRanges,
		Schools:     req.Schools,
		Departments: req.Departments,
		Subjects:    req.Subjects,
		Components:  req.Components,
		SortBy:      search.SortKey(req.SortBy),
		Page:        req.Page,
		PerPage:     req.PerPage,
	}

	if req.SemesterRange != nil {
		srange, err := parseSemesterRange(*req.SemesterRange)
		if err != nil {
			return nil, err
		}
		compileReq.SemesterRange = srange
	}

	if req.Annotated {
		if req.UserID == "" {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "annotated search requires identification")
		}
		ids, err := s.annotations.CourseIDsForUser(ctx, req.UserID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load annotated courses")
		}
		if ids == nil {
			ids = []int{}
		}
		compileReq.AnnotatedIDs = ids
	}

	return search.Compile(compileReq)
}

// execute runs the compiled query against the index and hydrates hits from
// the relational store, preserving rank order.
func (s *SearchService) execute(ctx context.Context, query *search.Query) (*models.CourseConnection, error) {
	start := time.Now()
	result, err := s.index.Search(ctx, query)
	if err != nil {
		s.metrics.ObserveSearch("error", time.Since(start))
		return nil, err
	}
	s.metrics.ObserveSearch("ok", time.Since(start))

	ids := make([]int, len(result.Hits))
	for i, hit := range result.Hits {
		ids[i] = hit.ID
	}

	courses, err := s.courses.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hydrate search hits")
	}

	edges := make([]models.CourseEdge, len(courses))
	for i, course := range courses {
		edges[i] = models.CourseEdge{Node: course}
	}

	facets := make(map[string][]models.FacetCount, len(search.FacetDimensions))
	for _, dim := range search.FacetDimensions {
		buckets := result.Facets[dim]
		counts := make([]models.FacetCount, len(buckets))
		for i, b := range buckets {
			counts[i] = models.FacetCount{Value: b.Value, Count: b.Count}
		}
		facets[dim] = counts
	}

	return &models.CourseConnection{
		Edges:      edges,
		TotalCount: result.TotalCount,
		PageInfo: models.PageInfo{
			Page:    query.Page,
			PerPage: query.PerPage,
			// heuristic: an exactly-full page reports more available even
			// when it is the last one
			HasNextPage: len(result.Hits) == query.PerPage,
		},
		Facets: facets,
	}, nil
}

// lookupByIDs bypasses the index entirely for direct id fetches.
func (s *SearchService) lookupByIDs(ctx context.Context, ids []int) (*models.CourseConnection, error) {
	courses, err := s.courses.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}

	edges := make([]models.CourseEdge, len(courses))
	for i, course := range courses {
		edges[i] = models.CourseEdge{Node: course}
	}

	return &models.CourseConnection{
		Edges:      edges,
		TotalCount: len(edges),
		PageInfo:   models.PageInfo{Page: 1, PerPage: len(edges), HasNextPage: false},
		Facets:     map[string][]models.FacetCount{},
	}, nil
}

// Get loads a single course by id.
func (s *SearchService) Get(ctx context.Context, id int) (*models.Course, error) {
	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("course %d not found", id))
	}
	return course, nil
}

func parseSemesterRange(input SemesterRangeInput) (*search.SemesterRange, error) {
	startTerm, err := search.ParseTermName(input.Start.TermName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start term")
	}

	srange := &search.SemesterRange{
		Start: search.Semester{TermName: startTerm, TermYear: input.Start.TermYear},
	}

	if input.End != nil {
		endTerm, err := search.ParseTermName(input.End.TermName)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end term")
		}
		srange.End = &search.Semester{TermName: endTerm, TermYear: input.End.TermYear}
	}

	return srange, nil
}

func queryCacheKey(q *search.Query) (string, error) {
	wire, err := index.Marshal(q)
	if err != nil {
		return "", err
	}
	payload, err := json.Marshal(wire)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return "search:query:" + hex.EncodeToString(sum[:]), nil
}
