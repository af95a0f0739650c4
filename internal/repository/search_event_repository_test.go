package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curricle/catalog-api/internal/models"
)

func TestSearchEventRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSearchEventRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO search_events")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	event := &models.SearchEvent{
		SessionID:    "sess-1",
		KeywordCount: 2,
		SortBy:       "RELEVANCE",
		SemesterSpan: 3,
		HitCount:     120,
		DurationMS:   40,
	}
	require.NoError(t, repo.Create(context.Background(), event))

	// id and timestamp are filled in on insert
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}
