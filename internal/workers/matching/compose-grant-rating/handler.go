// internal/workers/matching/compose-grant-rating/handler.go
package composegrantrating

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "grantbr-workers/internal/common/errors"
	"grantbr-workers/internal/common/logger"
	"grantbr-workers/internal/common/metrics"
	"grantbr-workers/internal/matching"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "compose-grant-rating"
)

type Handler struct {
	config       *Config
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
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
		stdErr := toStandardError(input.Grant.ID, err)
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
		h.errorHandler.HandleJobError(ctx, client, job, stdErr)
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.completeJob(client, job, output)
}

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	if input.CompanyProfile == nil {
		return nil, fmt.Errorf("companyProfile is required")
	}

	now := time.Now().UTC()

	matchScore := 0
	if input.MatchScore != nil {
		matchScore = *input.MatchScore
	} else {
		result, err := matching.ScoreMatch(input.CompanyProfile, &input.Grant, now)
		if err != nil {
			return nil, err
		}
		matchScore = result.Score
	}

	rating := matching.ComposeRating(input.CompanyProfile, &input.Grant, matchScore, now)

	output := &Output{
		GrantID:    input.Grant.ID,
		Rating:     rating,
		MatchScore: matchScore,
		ValueScore: matching.ValueScore(input.CompanyProfile, &input.Grant),
		EaseScore:  matching.EaseScore(input.CompanyProfile, &input.Grant, now),
	}

	h.logger.Info("grant rating composed", map[string]interface{}{
		"grantId":    input.Grant.ID,
		"rating":     rating,
		"matchScore": matchScore,
	})

	return output, nil
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

// toStandardError classifies rating failures for the error handler.
func toStandardError(grantID string, err error) *apperrors.StandardError {
	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	var dimErr *matching.DimensionMismatchError
	if errors.As(err, &dimErr) {
		return apperrors.NewEmbeddingDimensionMismatchError(dimErr.Error())
	}
	return apperrors.NewRatingFailedError(grantID, err)
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
