package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// AnnotationRepository resolves which courses a user has annotated. The
// annotation feature itself lives elsewhere; search only needs the id set.
type AnnotationRepository struct {
	db *sqlx.DB
}

// NewAnnotationRepository instantiates an annotation repository.
func NewAnnotationRepository(db *sqlx.DB) *AnnotationRepository {
	return &AnnotationRepository{db: db}
}

// CourseIDsForUser lists the course ids the user has annotated.
func (r *AnnotationRepository) CourseIDsForUser(ctx context.Context, userID string) ([]int, error) {
	const query = `SELECT DISTINCT course_id FROM annotations WHERE user_id = $1`

	var ids []int
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("annotated course ids: %w", err)
	}
	return ids, nil
}
