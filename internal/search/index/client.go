package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/curricle/catalog-api/internal/search"
	"github.com/curricle/catalog-api/pkg/config"
	appErrors "github.com/curricle/catalog-api/pkg/errors"
)

// Client executes compiled queries against the full-text index backend.
type Client interface {
	Search(ctx context.Context, query *search.Query) (*Result, error)
}

// HTTPClient talks to the index over its JSON query endpoint. Backend
// failures and timeouts surface as ErrSearchUnavailable; retries are the
// caller's decision.
type HTTPClient struct {
	baseURL string
	httpc   *http.Client
	logger  *zap.Logger
}

// NewHTTPClient builds an index client from search configuration.
func NewHTTPClient(cfg config.SearchConfig, logger *zap.Logger) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		baseURL: cfg.IndexURL,
		httpc:   &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Search posts the serialized query and decodes the hit page plus facet
// aggregations.
func (c *HTTPClient) Search(ctx context.Context, query *search.Query) (*Result, error) {
	wire, err := Marshal(query)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to serialize search query")
	}

	body, err := json.Marshal(wire)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode search request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build search request")
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		c.logger.Warn("search backend unreachable", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrSearchUnavailable.Code, appErrors.ErrSearchUnavailable.Status, appErrors.ErrSearchUnavailable.Message)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("search backend error", zap.Int("status", resp.StatusCode))
		return nil, appErrors.Wrap(
			fmt.Errorf("index returned status %d", resp.StatusCode),
			appErrors.ErrSearchUnavailable.Code, appErrors.ErrSearchUnavailable.Status, appErrors.ErrSearchUnavailable.Message)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrSearchUnavailable.Code, appErrors.ErrSearchUnavailable.Status, "failed to decode index response")
	}

	c.logger.Debug("index query executed",
		zap.Int("hits", len(result.Hits)),
		zap.Int("total", result.TotalCount),
		zap.Duration("latency", time.Since(start)),
	)

	return &result, nil
}
