// internal/workers/matching/rank-opportunities/handler.go
package rankopportunities

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	apperrors "grantbr-workers/internal/common/errors"
	"grantbr-workers/internal/common/logger"
	"grantbr-workers/internal/common/metrics"
	"grantbr-workers/internal/matching"
	"grantbr-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "rank-opportunities"
)

var (
	ErrNilInput = errors.New("input cannot be nil")
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
		stdErr := toStandardError(&input, err)
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
		h.errorHandler.HandleJobError(ctx, client, job, stdErr)
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.completeJob(client, job, output)
}

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, ErrNilInput
	}
	if input.CompanyProfile == nil {
		return nil, fmt.Errorf("companyProfile is required")
	}

	start := time.Now()
	now := time.Now().UTC()

	// Deduplicate grants by ID, keeping the first occurrence.
	seen := make(map[string]bool)
	var grants []models.Grant
	for _, g := range input.Grants {
		if g.ID == "" || seen[g.ID] {
			continue
		}
		seen[g.ID] = true
		grants = append(grants, g)
	}

	ranked := make([]models.RankedGrant, len(grants))
	errs := make([]error, len(grants))

	concurrency := h.config.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)
	for i := range grants {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			grant := &grants[i]
			result, err := matching.ScoreMatch(input.CompanyProfile, grant, now)
			if err != nil {
				errs[i] = fmt.Errorf("score grant %s: %w", grant.ID, err)
				return
			}
			ranked[i] = models.RankedGrant{
				GrantID:    grant.ID,
				Title:      grant.Title,
				Agency:     grant.Agency,
				MatchScore: result.Score,
				Eligible:   result.Eligible,
				Rating:     matching.ComposeRating(input.CompanyProfile, grant, result.Score, now),
				Reasons:    result.Reasons,
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	// Hide weak matches before ranking.
	visible := ranked[:0]
	hidden := 0
	for _, r := range ranked {
		if r.MatchScore < h.config.MinVisibleScore {
			hidden++
			continue
		}
		visible = append(visible, r)
	}
	ranked = visible

	// Rating descending, earlier deadline breaks ties.
	deadlines := make(map[string]time.Time, len(grants))
	for i := range grants {
		if grants[i].Deadline != nil {
			deadlines[grants[i].ID] = *grants[i].Deadline
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Rating != ranked[j].Rating {
			return ranked[i].Rating > ranked[j].Rating
		}
		di, iOK := deadlines[ranked[i].GrantID]
		dj, jOK := deadlines[ranked[j].GrantID]
		if iOK && jOK {
			return di.Before(dj)
		}
		return iOK
	})

	if h.config.MaxItems > 0 && len(ranked) > h.config.MaxItems {
		ranked = ranked[:h.config.MaxItems]
	}

	h.logger.Info("ranking completed", map[string]interface{}{
		"companyId":   input.CompanyProfile.ID,
		"inputCount":  len(input.Grants),
		"outputCount": len(ranked),
		"hiddenCount": hidden,
		"durationMs":  time.Since(start).Milliseconds(),
	})

	return &Output{
		RankedGrants: ranked,
		TotalScored:  len(grants),
		TotalHidden:  hidden,
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

// toStandardError classifies ranking failures for the error handler.
func toStandardError(input *Input, err error) *apperrors.StandardError {
	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	companyID := ""
	if input.CompanyProfile != nil {
		companyID = input.CompanyProfile.ID
	}
	return apperrors.NewRankingFailedError(companyID, err)
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
