// internal/workers/matching/calculate-match-score/handler.go
package calculatematchscore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "grantbr-workers/internal/common/errors"
	"grantbr-workers/internal/common/logger"
	"grantbr-workers/internal/common/metrics"
	"grantbr-workers/internal/matching"
	"grantbr-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "calculate-match-score"
)

type Handler struct {
	config       *Config
	db           *sql.DB
	redis        *redis.Client
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, db *sql.DB, redis *redis.Client, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		db:           db,
		redis:        redis,
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
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err), 0)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
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

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	var profile *models.CompanyProfile
	if input.CompanyProfile != nil {
		profile = input.CompanyProfile
	} else if input.CompanyID != "" {
		if cached := h.getCachedResult(ctx, input.CompanyID, input.Grant.ID); cached != nil {
			return cached, nil
		}
		var err error
		profile, err = h.getCompanyProfile(ctx, input.CompanyID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, apperrors.NewProfileNotFoundError(input.CompanyID)
			}
			return nil, apperrors.NewProfileFetchFailedError(err)
		}
	} else {
		return nil, fmt.Errorf("companyId or companyProfile is required")
	}

	result, err := matching.ScoreMatch(profile, &input.Grant, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	output := &Output{
		GrantID:    input.Grant.ID,
		MatchScore: result.Score,
		Eligible:   result.Eligible,
		Reasons:    result.Reasons,
	}

	h.logger.Info("match score calculated", map[string]interface{}{
		"companyId": input.CompanyID,
		"grantId":   input.Grant.ID,
		"score":     result.Score,
		"eligible":  result.Eligible,
	})

	if input.CompanyID != "" {
		h.setCachedResult(ctx, input.CompanyID, input.Grant.ID, output)
	}

	return output, nil
}

func matchCacheKey(companyID, grantID string) string {
	return "match:" + companyID + ":" + grantID
}

func (h *Handler) getCachedResult(ctx context.Context, companyID, grantID string) *Output {
	val, err := h.redis.Get(ctx, matchCacheKey(companyID, grantID)).Result()
	if err != nil {
		return nil
	}
	var output Output
	if err := json.Unmarshal([]byte(val), &output); err != nil {
		return nil
	}
	return &output
}

func (h *Handler) setCachedResult(ctx context.Context, companyID, grantID string, output *Output) {
	data, err := json.Marshal(output)
	if err != nil {
		return
	}
	if err := h.redis.Set(ctx, matchCacheKey(companyID, grantID), data, h.config.CacheTTL).Err(); err != nil {
		h.logger.Warn("failed to cache match result", map[string]interface{}{
			"companyId": companyID,
			"grantId":   grantID,
			"error":     err,
		})
	}
}

func (h *Handler) getCompanyProfile(ctx context.Context, companyID string) (*models.CompanyProfile, error) {
	row := h.db.QueryRowContext(ctx, `
		SELECT size, sector, state, annual_revenue, employee_count, foundation_date,
		       cnaes, rd_themes, financial, patents, partnerships, embedding
		FROM companies WHERE id = $1`, companyID)

	var (
		profile      models.CompanyProfile
		revenue      sql.NullFloat64
		employees    sql.NullInt64
		foundation   sql.NullTime
		cnaes        []byte
		rdThemes     []byte
		financial    []byte
		patents      []byte
		partnerships []byte
		embedding    []byte
	)

	err := row.Scan(&profile.Size, &profile.Sector, &profile.State, &revenue, &employees,
		&foundation, &cnaes, &rdThemes, &financial, &patents, &partnerships, &embedding)
	if err != nil {
		return nil, err
	}

	profile.ID = companyID
	if revenue.Valid {
		profile.AnnualRevenue = &revenue.Float64
	}
	if employees.Valid {
		count := int(employees.Int64)
		profile.EmployeeCount = &count
	}
	if foundation.Valid {
		profile.FoundationDate = &foundation.Time
	}

	// JSONB columns are optional, a decode failure leaves the field empty.
	_ = json.Unmarshal(cnaes, &profile.Cnaes)
	_ = json.Unmarshal(rdThemes, &profile.RDThemes)
	_ = json.Unmarshal(financial, &profile.Financial)
	_ = json.Unmarshal(patents, &profile.Patents)
	_ = json.Unmarshal(partnerships, &profile.Partnerships)
	_ = json.Unmarshal(embedding, &profile.Embedding)

	return &profile, nil
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

// toStandardError classifies engine and hydration failures for the error handler.
func toStandardError(grantID string, err error) *apperrors.StandardError {
	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	var dimErr *matching.DimensionMismatchError
	if errors.As(err, &dimErr) {
		return apperrors.NewEmbeddingDimensionMismatchError(dimErr.Error())
	}
	return apperrors.NewMatchScoreFailedError(grantID, err)
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string, _ int32) {
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
