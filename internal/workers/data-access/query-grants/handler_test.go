// internal/workers/data-access/query-grants/handler_test.go
package querygrants

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	apperrors "grantbr-workers/internal/common/errors"
	"grantbr-workers/internal/common/logger"
)

func createTestConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

func createRealElasticsearchClient(t *testing.T) *elasticsearch.Client {
	cfg := elasticsearch.Config{
		Addresses: []string{"http://localhost:9200"},
	}

	esClient, err := elasticsearch.NewClient(cfg)
	if err != nil {
		t.Skipf("Skipping test: failed to create Elasticsearch client: %v", err)
		return nil
	}

	res, err := esClient.Info()
	if err != nil {
		t.Skipf("Skipping test: Elasticsearch not responding: %v", err)
		return nil
	}
	defer res.Body.Close()

	if res.IsError() {
		t.Skipf("Skipping test: Elasticsearch error: %s", res.String())
		return nil
	}

	return esClient
}

func TestHandler_Execute_NilInput(t *testing.T) {
	handler := NewHandler(createTestConfig(), nil, createTestLogger(t))

	_, err := handler.Execute(context.Background(), nil)
	assert.Error(t, err)
}

func TestHandler_Execute_MissingIndex(t *testing.T) {
	handler := NewHandler(createTestConfig(), nil, createTestLogger(t))

	_, err := handler.Execute(context.Background(), &Input{
		QueryType: "grant_search",
		Filters:   map[string]interface{}{},
	})

	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeIndexNotFound, stdErr.Code)
	assert.False(t, stdErr.Retryable)
}

func TestHandler_Execute_UnknownQueryType(t *testing.T) {
	handler := NewHandler(createTestConfig(), nil, createTestLogger(t))

	_, err := handler.Execute(context.Background(), &Input{
		IndexName: "grants",
		QueryType: "bogus",
		Filters:   map[string]interface{}{},
	})

	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeInvalidFilterFormat, stdErr.Code)
}

func TestToStandardError(t *testing.T) {
	input := &Input{QueryType: "grant_search"}

	tests := []struct {
		name      string
		err       error
		expected  apperrors.ErrorCode
		retryable bool
		retries   int
	}{
		{"index not found", apperrors.NewIndexNotFoundError("grants"), apperrors.ErrCodeIndexNotFound, false, 0},
		{"search timeout", apperrors.NewSearchTimeoutError("grant_search"), apperrors.ErrCodeSearchTimeout, true, 2},
		{"unclassified failure", errors.New("connection reset"), apperrors.ErrCodeGrantSearchFailed, true, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdErr := toStandardError(input, tt.err)
			assert.Equal(t, tt.expected, stdErr.Code)
			assert.Equal(t, tt.retryable, stdErr.Retryable)
			assert.Equal(t, tt.retries, apperrors.GetRetryCount(stdErr.Code))
		})
	}
}

func TestHandler_Execute_GrantSearch_RealElasticsearch(t *testing.T) {
	esClient := createRealElasticsearchClient(t)
	handler := NewHandler(createTestConfig(), esClient, createTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{
		IndexName: "grants",
		QueryType: "grant_search",
		Filters: map[string]interface{}{
			"keywords": "inovação",
		},
		Pagination: Pagination{From: 0, Size: 10},
	})
	if err != nil {
		t.Skipf("Skipping test: grants index not available: %v", err)
	}

	assert.NotNil(t, output)
	assert.GreaterOrEqual(t, output.TotalHits, int64(0))
}
