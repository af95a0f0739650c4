package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstructorRepositoryFindByName(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewInstructorRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT email, course_id FROM course_instructors")).
		WithArgs("doe", 2024).
		WillReturnRows(sqlmock.NewRows([]string{"email", "course_id"}).
			AddRow("pat@example.edu", 10).
			AddRow("pat@example.edu", 11).
			AddRow("sam@example.edu", 12))

	email, courseIDs, err := repo.FindByName(context.Background(), "doe", 2024)
	require.NoError(t, err)
	assert.Equal(t, "pat@example.edu", email)
	// only the first matched instructor's courses count
	assert.Equal(t, []int{10, 11}, courseIDs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInstructorRepositoryFindByNameNoMatch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewInstructorRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT email, course_id FROM course_instructors")).
		WillReturnRows(sqlmock.NewRows([]string{"email", "course_id"}))

	email, courseIDs, err := repo.FindByName(context.Background(), "nobody", 2024)
	require.NoError(t, err)
	assert.Empty(t, email)
	assert.Nil(t, courseIDs)
}

func TestInstructorRepositoryConnectedEmails(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewInstructorRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT email FROM course_instructors")).
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("sam@example.edu"))

	emails, err := repo.ConnectedEmails(context.Background(), []int{10, 11}, "pat@example.edu", 2024)
	require.NoError(t, err)
	assert.Equal(t, []string{"sam@example.edu"}, emails)

	emails, err = repo.ConnectedEmails(context.Background(), nil, "pat@example.edu", 2024)
	require.NoError(t, err)
	assert.Nil(t, emails)
}

func TestInstructorRepositoryCourseIDsByEmails(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewInstructorRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT course_id FROM course_instructors")).
		WillReturnRows(sqlmock.NewRows([]string{"course_id"}).AddRow(12).AddRow(15))

	ids, err := repo.CourseIDsByEmails(context.Background(), []string{"sam@example.edu"}, 2024)
	require.NoError(t, err)
	assert.Equal(t, []int{12, 15}, ids)

	ids, err = repo.CourseIDsByEmails(context.Background(), nil, 2024)
	require.NoError(t, err)
	assert.Nil(t, ids)
}

func TestAnnotationRepositoryCourseIDsForUser(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAnnotationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT course_id FROM annotations")).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"course_id"}).AddRow(7).AddRow(21))

	ids, err := repo.CourseIDsForUser(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, []int{7, 21}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}
