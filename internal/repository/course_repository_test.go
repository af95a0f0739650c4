package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var courseRowColumns = []string{
	"id", "title", "title_sortable", "subject", "catalog_number", "academic_group",
	"subject_academic_org_description", "component", "course_description_long",
	"term_name", "term_year", "academic_year", "class_section", "units_maximum",
}

func courseRow(rows *sqlmock.Rows, id int, title string) *sqlmock.Rows {
	return rows.AddRow(id, title, title, "SUBJ", 101, "Faculty of Arts and Sciences",
		"Department", "Lecture", "About the course", "Fall", 2024, 2024, "1", 4.0)
}

func TestCourseRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)

	mock.ExpectQuery(`SELECT id, title, title_sortable`).
		WithArgs(42).
		WillReturnRows(courseRow(sqlmock.NewRows(courseRowColumns), 42, "Genetics"))

	mock.ExpectQuery(regexp.QuoteMeta("FROM course_instructors")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "display_name", "first_name", "last_name", "email", "term_year"}).
			AddRow(1, 42, "Pat Doe", "Pat", "Doe", "pat@example.edu", 2024))

	mock.ExpectQuery(regexp.QuoteMeta("FROM course_meeting_patterns")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "meeting_time_start_tod", "meeting_time_end_tod",
			"meets_on_monday", "meets_on_tuesday", "meets_on_wednesday", "meets_on_thursday",
			"meets_on_friday", "meets_on_saturday", "meets_on_sunday"}).
			AddRow(9, 42, "09:00", "10:15", true, false, true, false, false, false, false))

	course, err := repo.FindByID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "Genetics", course.Title)
	require.Len(t, course.Instructors, 1)
	assert.Equal(t, "pat@example.edu", course.Instructors[0].Email)
	require.Len(t, course.MeetingPatterns, 1)
	assert.True(t, course.MeetingPatterns[0].MeetsOnMonday)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindByIDsPreservesOrder(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)

	// database returns rows in table order, not rank order
	rows := sqlmock.NewRows(courseRowColumns)
	courseRow(rows, 4, "Earlier")
	courseRow(rows, 9, "Later")
	mock.ExpectQuery(`SELECT id, title, title_sortable`).WillReturnRows(rows)

	mock.ExpectQuery(regexp.QuoteMeta("FROM course_instructors")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "display_name", "first_name", "last_name", "email", "term_year"}))
	mock.ExpectQuery(regexp.QuoteMeta("FROM course_meeting_patterns")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "meeting_time_start_tod", "meeting_time_end_tod",
			"meets_on_monday", "meets_on_tuesday", "meets_on_wednesday", "meets_on_thursday",
			"meets_on_friday", "meets_on_saturday", "meets_on_sunday"}))

	courses, err := repo.FindByIDs(context.Background(), []int{9, 4})
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, 9, courses[0].ID)
	assert.Equal(t, 4, courses[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindByIDsEmpty(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	courses, err := repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, courses)
}

func TestCourseRepositoryDistinctValues(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT academic_group FROM courses")).
		WillReturnRows(sqlmock.NewRows([]string{"academic_group"}).
			AddRow("Faculty of Arts and Sciences").
			AddRow("Harvard Divinity School"))

	values, err := repo.DistinctValues(context.Background(), "academic_group")
	require.NoError(t, err)
	assert.Equal(t, []string{"Faculty of Arts and Sciences", "Harvard Divinity School"}, values)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryDistinctValuesRejectsUnknownColumn(t *testing.T) {
	db, _, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	_, err := repo.DistinctValues(context.Background(), "title; DROP TABLE courses")
	require.Error(t, err)
}

func TestCourseRepositoryCountByDepartment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY subject_academic_org_description")).
		WithArgs("Faculty of Arts and Sciences").
		WillReturnRows(sqlmock.NewRows([]string{"department", "count"}).
			AddRow("Mathematics", 120).
			AddRow("Philosophy", 80))

	counts, err := repo.CountByDepartment(context.Background(), "Faculty of Arts and Sciences")
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, "Mathematics", counts[0].Department)
	assert.Equal(t, 120, counts[0].Count)
	require.NoError(t, mock.ExpectationsWereMet())
}
