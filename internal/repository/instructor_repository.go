package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// InstructorRepository answers instructor-connection queries over the
// course_instructors table.
type InstructorRepository struct {
	db *sqlx.DB
}

// NewInstructorRepository instantiates an instructor repository.
func NewInstructorRepository(db *sqlx.DB) *InstructorRepository {
	return &InstructorRepository{db: db}
}

// FindByName resolves an instructor's email and course ids for a term year
// by name match.
func (r *InstructorRepository) FindByName(ctx context.Context, name string, termYear int) (string, []int, error) {
	const query = `SELECT email, course_id FROM course_instructors
		WHERE display_name ILIKE '%' || $1 || '%' AND term_year = $2
		ORDER BY id`

	var rows []struct {
		Email    string `db:"email"`
		CourseID int    `db:"course_id"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, name, termYear); err != nil {
		return "", nil, fmt.Errorf("find instructor by name: %w", err)
	}
	if len(rows) == 0 {
		return "", nil, nil
	}

	email := rows[0].Email
	var courseIDs []int
	for _, row := range rows {
		if row.Email == email {
			courseIDs = append(courseIDs, row.CourseID)
		}
	}
	return email, courseIDs, nil
}

// ConnectedEmails lists the distinct emails of other instructors teaching
// any of the given courses in the term year.
func (r *InstructorRepository) ConnectedEmails(ctx context.Context, courseIDs []int, excludeEmail string, termYear int) ([]string, error) {
	if len(courseIDs) == 0 {
		return nil, nil
	}

	const query = `SELECT DISTINCT email FROM course_instructors
		WHERE course_id = ANY($1) AND term_year = $2 AND email <> $3`

	var emails []string
	if err := r.db.SelectContext(ctx, &emails, query, pq.Array(courseIDs), termYear, excludeEmail); err != nil {
		return nil, fmt.Errorf("connected instructor emails: %w", err)
	}
	return emails, nil
}

// CourseIDsByEmails lists the distinct course ids taught by any of the
// given instructors in the term year.
func (r *InstructorRepository) CourseIDsByEmails(ctx context.Context, emails []string, termYear int) ([]int, error) {
	if len(emails) == 0 {
		return nil, nil
	}

	const query = `SELECT DISTINCT course_id FROM course_instructors
		WHERE email = ANY($1) AND term_year = $2`

	var ids []int
	if err := r.db.SelectContext(ctx, &ids, query, pq.Array(emails), termYear); err != nil {
		return nil, fmt.Errorf("course ids by instructor emails: %w", err)
	}
	return ids, nil
}
