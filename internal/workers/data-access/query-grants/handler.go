// internal/workers/data-access/query-grants/handler.go
package querygrants

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"

	apperrors "grantbr-workers/internal/common/errors"
	"grantbr-workers/internal/common/logger"
	"grantbr-workers/internal/common/metrics"
	"grantbr-workers/internal/workers/data-access/query-grants/queries"
)

const (
	TaskType = "query-grants"
)

type Handler struct {
	config       *Config
	client       *elasticsearch.Client
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, client *elasticsearch.Client, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		client:       client,
		logger:       scoped,
		errorHandler: apperrors.NewErrorHandler(scoped),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	start := time.Now()
	output, err := h.execute(ctx, &input)
	if err != nil {
		stdErr := toStandardError(&input, err)
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
		h.errorHandler.HandleJobError(ctx, client, job, stdErr)
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, apperrors.NewInvalidFilterFormatError("input cannot be nil")
	}

	params := map[string]interface{}{
		"indexName":  input.IndexName,
		"queryType":  input.QueryType,
		"filters":    input.Filters,
		"pagination": input.Pagination,
	}
	if input.GrantID != "" {
		params["grantId"] = input.GrantID
	}
	if input.Agency != "" {
		params["agency"] = input.Agency
	}

	result, err := queries.Execute(ctx, h.client, params)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, apperrors.NewSearchTimeoutError(input.QueryType)
		}
		if errors.Is(err, queries.ErrUnknownQueryType) {
			return nil, apperrors.NewInvalidFilterFormatError(err.Error())
		}
		if errors.Is(err, queries.ErrMissingIndex) {
			return nil, apperrors.NewIndexNotFoundError(input.IndexName)
		}
		return nil, apperrors.NewGrantSearchFailedError(input.QueryType, err)
	}

	return &Output{
		Data:      result.Data,
		TotalHits: result.TotalHits,
		MaxScore:  result.MaxScore,
		Took:      result.Took,
	}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
	})

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": err,
		})
	}
}

// toStandardError classifies search failures for the error handler.
func toStandardError(input *Input, err error) *apperrors.StandardError {
	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	queryType := ""
	if input != nil {
		queryType = input.QueryType
	}
	return apperrors.NewGrantSearchFailedError(queryType, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
