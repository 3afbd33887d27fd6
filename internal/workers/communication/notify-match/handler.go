// internal/workers/communication/notify-match/handler.go
package notifymatch

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	commonaws "grantbr-workers/internal/common/aws"
	apperrors "grantbr-workers/internal/common/errors"
	"grantbr-workers/internal/common/logger"
	"grantbr-workers/internal/common/metrics"
	"grantbr-workers/internal/common/validation"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "notify-match"
)

// Interfaces over the AWS clients so tests can substitute mocks.
type SESService interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

type Handler struct {
	config       *Config
	db           *sql.DB
	logger       logger.Logger
	errorHandler *apperrors.ErrorHandler
	sesClient    SESService
	snsClient    SNSService
	templateMap  map[string]map[string]interface{}
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) (*Handler, error) {
	ctx := context.Background()
	sesClient, err := commonaws.NewSESClient(ctx, config.AWSRegion)
	if err != nil {
		return nil, fmt.Errorf("init SES client: %w", err)
	}
	snsClient, err := commonaws.NewSNSClient(ctx, config.AWSRegion)
	if err != nil {
		return nil, fmt.Errorf("init SNS client: %w", err)
	}

	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		db:           db,
		logger:       scoped,
		errorHandler: apperrors.NewErrorHandler(scoped),
		sesClient:    sesClient,
		snsClient:    snsClient,
		templateMap:  loadTemplates(),
	}, nil
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
		stdErr := toStandardError(input.NotificationType, err)
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
		h.errorHandler.HandleJobError(ctx, client, job, stdErr)
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.completeJob(client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.CompanyID == "" {
		return nil, fmt.Errorf("companyId is required")
	}

	sentAt := time.Now().UTC().Format(time.RFC3339)
	notificationID := uuid.New().String()

	// Low-scoring matches are not worth interrupting anyone for.
	if input.MatchScore < h.config.MinMatchScore {
		h.logger.Info("match below notification threshold", map[string]interface{}{
			"companyId":  input.CompanyID,
			"grantId":    input.GrantID,
			"matchScore": input.MatchScore,
		})
		return &Output{
			NotificationID: notificationID,
			Status:         StatusSkipped,
			SentAt:         sentAt,
		}, nil
	}

	email, phone, err := h.getCompanyContact(ctx, input.CompanyID)
	if err != nil {
		h.logger.Warn("company contact not found", map[string]interface{}{
			"companyId": input.CompanyID,
		})
		return &Output{
			NotificationID: notificationID,
			Status:         StatusDisabled,
			SentAt:         sentAt,
		}, nil
	}

	notificationType := input.NotificationType
	if notificationType == "" {
		notificationType = TypeNewMatch
	}
	template, exists := h.templateMap[notificationType]
	if !exists {
		return nil, fmt.Errorf("template not found for type: %s", notificationType)
	}

	data := map[string]interface{}{
		"companyId":  input.CompanyID,
		"grantId":    input.GrantID,
		"grantTitle": input.GrantTitle,
		"agency":     input.Agency,
		"matchScore": input.MatchScore,
		"deadline":   formatDeadline(input.Deadline),
	}
	if input.Metadata != nil {
		for k, v := range input.Metadata {
			data[k] = v
		}
	}

	subject := renderTemplate(template["subject"].(string), data)
	body := renderTemplate(template["body"].(string), data)

	emailSent := false
	smsSent := false

	if h.config.EmailEnabled && validation.ValidateEmail(email) {
		if err := h.sendEmail(ctx, email, subject, body); err != nil {
			h.logger.Error("email send failed", map[string]interface{}{
				"error": err,
				"email": email,
			})
			return nil, apperrors.NewNotificationSendFailedError("email", err)
		}
		emailSent = true
	}

	// SMS is reserved for the strongest matches.
	if h.config.SMSEnabled && validation.ValidatePhone(phone) && input.MatchScore >= h.config.SMSPriorityThreshold {
		if err := h.sendSMS(ctx, phone, body); err != nil {
			h.logger.Error("SMS send failed", map[string]interface{}{
				"error": err,
				"phone": phone,
			})
			return nil, apperrors.NewNotificationSendFailedError("sms", err)
		}
		smsSent = true
	}

	status := StatusDisabled
	if emailSent || smsSent {
		status = StatusSent
	}

	return &Output{
		NotificationID: notificationID,
		Status:         status,
		SentAt:         sentAt,
	}, nil
}

func (h *Handler) getCompanyContact(ctx context.Context, companyID string) (string, string, error) {
	var email, phone string
	err := h.db.QueryRowContext(ctx, `SELECT email, phone FROM companies WHERE id = $1`, companyID).Scan(&email, &phone)
	return email, phone, err
}

func (h *Handler) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := h.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
				Html: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(h.config.FromEmail),
	})
	return err
}

func (h *Handler) sendSMS(ctx context.Context, to, message string) error {
	_, err := h.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	})
	return err
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

// Simplified template rendering with placeholder removal for missing values
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl

	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		if s, ok := v.(string); ok {
			value = s
		} else if i, ok := v.(int); ok {
			value = fmt.Sprintf("%d", i)
		} else if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}

	// Remove any remaining placeholders (missing values)
	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}

	return result
}

// formatDeadline turns an ISO 8601 timestamp into the Brazilian DD/MM/YYYY form.
func formatDeadline(iso string) string {
	if iso == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return iso
	}
	return t.Format("02/01/2006")
}

func loadTemplates() map[string]map[string]interface{} {
	return map[string]map[string]interface{}{
		TypeNewMatch: {
			"subject": "Novo edital compatível: {{grantTitle}}",
			"body":    "Encontramos um edital com {{matchScore}}% de compatibilidade com o perfil da sua empresa: {{grantTitle}} ({{agency}}). Prazo de submissão: {{deadline}}.",
		},
		TypeDeadlineReminder: {
			"subject": "Prazo se aproximando: {{grantTitle}}",
			"body":    "O prazo de submissão do edital {{grantTitle}} ({{agency}}) está se aproximando: {{deadline}}. Compatibilidade com sua empresa: {{matchScore}}%.",
		},
	}
}

// toStandardError classifies delivery failures for the error handler.
func toStandardError(notificationType string, err error) *apperrors.StandardError {
	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	if notificationType == "" {
		notificationType = TypeNewMatch
	}
	return apperrors.NewNotificationSendFailedError(notificationType, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
