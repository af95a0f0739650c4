package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/curricle/catalog-api/internal/models"
	"github.com/curricle/catalog-api/pkg/jobs"
)

type searchEventWriter interface {
	Create(ctx context.Context, event *models.SearchEvent) error
}

// AnalyticsService records committed-search events asynchronously so search
// latency never waits on the analytics write path.
type AnalyticsService struct {
	queue   *jobs.Queue
	enabled bool
	logger  *zap.Logger
}

// NewAnalyticsService wires the background queue that drains search events
// into the store.
func NewAnalyticsService(repo searchEventWriter, logger *zap.Logger, workers, retries int, enabled bool) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}

	handler := func(ctx context.Context, job jobs.Job) error {
		event, ok := job.Payload.(*models.SearchEvent)
		if !ok {
			return fmt.Errorf("unexpected payload type %T", job.Payload)
		}
		return repo.Create(ctx, event)
	}

	queue := jobs.NewQueue("search-events", handler, jobs.QueueConfig{
		Workers:    workers,
		MaxRetries: retries,
		Logger:     logger,
	})

	return &AnalyticsService{queue: queue, enabled: enabled, logger: logger}
}

// Start launches the queue workers.
func (s *AnalyticsService) Start(ctx context.Context) {
	if !s.enabled {
		return
	}
	s.queue.Start(ctx)
}

// Stop drains the queue workers.
func (s *AnalyticsService) Stop() {
	if !s.enabled {
		return
	}
	s.queue.Stop()
}

// RecordSearch enqueues one committed-search event. Pagination fetches are
// not committed searches and are never recorded.
func (s *AnalyticsService) RecordSearch(event *models.SearchEvent) {
	if !s.enabled || event == nil {
		return
	}
	if err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: "search", Payload: event}); err != nil {
		s.logger.Warn("failed to enqueue search event", zap.Error(err))
	}
}
