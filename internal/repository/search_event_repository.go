package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/curricle/catalog-api/internal/models"
)

// SearchEventRepository persists committed-search analytics events.
type SearchEventRepository struct {
	db *sqlx.DB
}

// NewSearchEventRepository instantiates a search event repository.
func NewSearchEventRepository(db *sqlx.DB) *SearchEventRepository {
	return &SearchEventRepository{db: db}
}

// Create inserts a search event record.
func (r *SearchEventRepository) Create(ctx context.Context, event *models.SearchEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO search_events (id, session_id, keyword_count, sort_by, semester_span, hit_count, duration_ms, created_at)
		VALUES (:id, :session_id, :keyword_count, :sort_by, :semester_span, :hit_count, :duration_ms, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create search event: %w", err)
	}
	return nil
}
