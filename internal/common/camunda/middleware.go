// internal/common/camunda/middleware.go
package camunda

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.uber.org/zap"

	"grantbr-workers/internal/common/validation"
)

// WithInputValidation wraps a handler so job variables are checked against
// the activity registry schema before the handler runs. Schema violations
// raise a BPMN INVALID_INPUT error instead of reaching the handler.
func WithInputValidation(taskType string, schema validation.JSONSchema, log *zap.Logger, next HandlerFunc) HandlerFunc {
	return func(client worker.JobClient, job entities.Job) {
		var vars map[string]interface{}
		if err := json.Unmarshal([]byte(job.Variables), &vars); err != nil {
			throwInvalidInput(client, job, log, taskType, "variables are not a JSON object: "+err.Error())
			return
		}

		result := validation.ValidateInput(vars, schema)
		if !result.Valid {
			throwInvalidInput(client, job, log, taskType, strings.Join(result.GetErrorMessages(), "; "))
			return
		}

		next(client, job)
	}
}

func throwInvalidInput(client worker.JobClient, job entities.Job, log *zap.Logger, taskType, detail string) {
	log.Error("job input rejected",
		zap.String("taskType", taskType),
		zap.Int64("jobKey", job.Key),
		zap.String("detail", detail),
	)

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode("INVALID_INPUT").
		ErrorMessage(detail).
		Send(context.Background())
	if err != nil {
		log.Error("failed to throw error", zap.Error(err))
	}
}
