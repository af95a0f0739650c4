package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/curricle/catalog-api/internal/models"
)

// CourseRepository handles persistence for catalog course records.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository instantiates a course repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `id, title, title_sortable, subject, catalog_number, academic_group,
	subject_academic_org_description, component, course_description_long,
	term_name, term_year, academic_year, class_section, units_maximum`

// FindByID loads one course with its instructors and meeting patterns.
func (r *CourseRepository) FindByID(ctx context.Context, id int) (*models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE id = $1`, courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}

	hydrated, err := r.attachAssociations(ctx, []models.Course{course})
	if err != nil {
		return nil, err
	}
	return &hydrated[0], nil
}

// FindByIDs loads the given courses, preserving the order of ids. Hits come
// back from the search index ranked; the relational store must not reorder
// them.
func (r *CourseRepository) FindByIDs(ctx context.Context, ids []int) ([]models.Course, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM courses WHERE id = ANY($1)`, courseColumns)
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find courses by ids: %w", err)
	}

	courses, err := r.attachAssociations(ctx, courses)
	if err != nil {
		return nil, err
	}

	byID := make(map[int]models.Course, len(courses))
	for _, c := range courses {
		byID[c.ID] = c
	}

	ordered := make([]models.Course, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			ordered = append(ordered, c)
		}
	}
	return ordered, nil
}

// DistinctValues enumerates the non-empty distinct values of a course
// column, used to build facet enum lists.
func (r *CourseRepository) DistinctValues(ctx context.Context, column string) ([]string, error) {
	allowed := map[string]bool{
		"academic_group":                   true,
		"subject_academic_org_description": true,
		"subject":                          true,
		"component":                        true,
	}
	if !allowed[column] {
		return nil, fmt.Errorf("column %s not enumerable", column)
	}

	query := fmt.Sprintf(`SELECT DISTINCT %s FROM courses WHERE %s <> '' ORDER BY %s`, column, column, column)
	var values []string
	if err := r.db.SelectContext(ctx, &values, query); err != nil {
		return nil, fmt.Errorf("distinct %s: %w", column, err)
	}
	return values, nil
}

// CountByDepartment aggregates course counts per department within a school.
func (r *CourseRepository) CountByDepartment(ctx context.Context, academicGroup string) ([]models.DepartmentCount, error) {
	const query = `SELECT subject_academic_org_description AS department, COUNT(*) AS count
		FROM courses
		WHERE academic_group = $1 AND subject_academic_org_description <> ''
		GROUP BY subject_academic_org_description
		ORDER BY count DESC`

	var counts []models.DepartmentCount
	if err := r.db.SelectContext(ctx, &counts, query, academicGroup); err != nil {
		return nil, fmt.Errorf("count courses by department: %w", err)
	}
	return counts, nil
}

func (r *CourseRepository) attachAssociations(ctx context.Context, courses []models.Course) ([]models.Course, error) {
	if len(courses) == 0 {
		return courses, nil
	}

	ids := make([]int, len(courses))
	for i, c := range courses {
		ids[i] = c.ID
	}

	var instructors []models.CourseInstructor
	const instructorQuery = `SELECT id, course_id, display_name, first_name, last_name, email, term_year
		FROM course_instructors WHERE course_id = ANY($1)`
	if err := r.db.SelectContext(ctx, &instructors, instructorQuery, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("load course instructors: %w", err)
	}

	var patterns []models.CourseMeetingPattern
	const patternQuery = `SELECT id, course_id, meeting_time_start_tod, meeting_time_end_tod,
		meets_on_monday, meets_on_tuesday, meets_on_wednesday, meets_on_thursday,
		meets_on_friday, meets_on_saturday, meets_on_sunday
		FROM course_meeting_patterns WHERE course_id = ANY($1)`
	if err := r.db.SelectContext(ctx, &patterns, patternQuery, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("load meeting patterns: %w", err)
	}

	instructorsByCourse := make(map[int][]models.CourseInstructor)
	for _, in := range instructors {
		instructorsByCourse[in.CourseID] = append(instructorsByCourse[in.CourseID], in)
	}
	patternsByCourse := make(map[int][]models.CourseMeetingPattern)
	for _, p := range patterns {
		patternsByCourse[p.CourseID] = append(patternsByCourse[p.CourseID], p)
	}

	for i := range courses {
		courses[i].Instructors = instructorsByCourse[courses[i].ID]
		courses[i].MeetingPatterns = patternsByCourse[courses[i].ID]
	}
	return courses, nil
}
