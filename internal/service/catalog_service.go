package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/curricle/catalog-api/internal/models"
	appErrors "github.com/curricle/catalog-api/pkg/errors"
)

type catalogReader interface {
	FindByIDs(ctx context.Context, ids []int) ([]models.Course, error)
	DistinctValues(ctx context.Context, column string) ([]string, error)
	CountByDepartment(ctx context.Context, academicGroup string) ([]models.DepartmentCount, error)
}

type instructorReader interface {
	FindByName(ctx context.Context, name string, termYear int) (string, []int, error)
	ConnectedEmails(ctx context.Context, courseIDs []int, excludeEmail string, termYear int) ([]string, error)
	CourseIDsByEmails(ctx context.Context, emails []string, termYear int) ([]int, error)
}

// CatalogService serves catalog metadata: facet enum values, department
// counts, and instructor-connection lookups.
type CatalogService struct {
	courses       catalogReader
	instructors   instructorReader
	cache         *CacheService
	logger        *zap.Logger
	facetCacheTTL time.Duration
}

// NewCatalogService creates a catalog service instance.
func NewCatalogService(courses catalogReader, instructors instructorReader, cache *CacheService, logger *zap.Logger, facetCacheTTL time.Duration) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		courses:       courses,
		instructors:   instructors,
		cache:         cache,
		logger:        logger,
		facetCacheTTL: facetCacheTTL,
	}
}

const facetValuesCacheKey = "catalog:facet-values"

// FacetValues enumerates the distinct values behind each facet dimension.
// The four columns are fetched concurrently; values change only on catalog
// reindex, so results are cached.
func (s *CatalogService) FacetValues(ctx context.Context) (*models.FacetValues, error) {
	if s.cache.Enabled() {
		var cached models.FacetValues
		if hit, _ := s.cache.Get(ctx, facetValuesCacheKey, &cached); hit {
			return &cached, nil
		}
	}

	var values models.FacetValues
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.courses.DistinctValues(gctx, "academic_group")
		values.Schools = v
		return err
	})
	g.Go(func() error {
		v, err := s.courses.DistinctValues(gctx, "subject_academic_org_description")
		values.Departments = v
		return err
	})
	g.Go(func() error {
		v, err := s.courses.DistinctValues(gctx, "subject")
		values.Subjects = v
		return err
	})
	g.Go(func() error {
		v, err := s.courses.DistinctValues(gctx, "component")
		values.Components = v
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enumerate facet values")
	}

	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, facetValuesCacheKey, &values, s.facetCacheTTL)
	}
	return &values, nil
}

// CountByDepartment aggregates course counts per department within a school.
func (s *CatalogService) CountByDepartment(ctx context.Context, academicGroup string) ([]models.DepartmentCount, error) {
	if academicGroup == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "academic_group is required")
	}

	counts, err := s.courses.CountByDepartment(ctx, academicGroup)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count courses by department")
	}
	return counts, nil
}

// CoursesConnectedByInstructor returns the courses taught by instructors who
// co-teach with the named instructor in the given term year.
func (s *CatalogService) CoursesConnectedByInstructor(ctx context.Context, name string, termYear int) ([]models.Course, error) {
	if name == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "instructor name is required")
	}
	if termYear <= 0 {
		termYear = time.Now().UTC().Year()
	}

	email, courseIDs, err := s.instructors.FindByName(ctx, name, termYear)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve instructor")
	}
	if email == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
	}

	emails, err := s.instructors.ConnectedEmails(ctx, courseIDs, email, termYear)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve connected instructors")
	}

	connectedCourseIDs, err := s.instructors.CourseIDsByEmails(ctx, emails, termYear)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve connected courses")
	}

	courses, err := s.courses.FindByIDs(ctx, connectedCourseIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load connected courses")
	}
	return courses, nil
}
