// internal/workers/communication/notify-match/handler_test.go
package notifymatch

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	apperrors "grantbr-workers/internal/common/errors"
	"grantbr-workers/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

func (m *MockSESService) SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, input)
}

type MockSNSService struct {
	PublishFunc func(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

func (m *MockSNSService) Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error) {
	return m.PublishFunc(ctx, input)
}

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return &Config{
		EmailEnabled:         true,
		SMSEnabled:           true,
		FromEmail:            "noreply@grantbr.com.br",
		AWSRegion:            "sa-east-1",
		MinMatchScore:        70,
		SMSPriorityThreshold: 90,
		Timeout:              30 * time.Second,
	}
}

func createTestInput(notificationType string) *Input {
	return &Input{
		CompanyID:        "company-001",
		NotificationType: notificationType,
		GrantID:          "grant-042",
		GrantTitle:       "Subvenção Econômica à Inovação",
		Agency:           "FINEP",
		MatchScore:       85,
		Deadline:         "2026-11-30T23:59:59Z",
	}
}

func newTestHandler(config *Config, db *sql.DB, sesClient SESService, snsClient SNSService) *Handler {
	log := logger.NewNoOpLogger()
	return &Handler{
		config:       config,
		db:           db,
		logger:       log,
		errorHandler: apperrors.NewErrorHandler(log),
		sesClient:    sesClient,
		snsClient:    snsClient,
		templateMap:  loadTemplates(),
	}
}

func expectContactLookup(mock sqlmock.Sqlmock, email, phone string) {
	mock.ExpectQuery(`SELECT email, phone FROM companies WHERE id = \$1`).
		WithArgs("company-001").
		WillReturnRows(sqlmock.NewRows([]string{"email", "phone"}).
			AddRow(email, phone))
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	tests := []struct {
		name         string
		emailEnabled bool
		smsEnabled   bool
		matchScore   int
		expectEmail  bool
		expectSMS    bool
		wantStatus   string
	}{
		{
			name:         "email and SMS for a top match",
			emailEnabled: true,
			smsEnabled:   true,
			matchScore:   95,
			expectEmail:  true,
			expectSMS:    true,
			wantStatus:   StatusSent,
		},
		{
			name:         "email only below SMS threshold",
			emailEnabled: true,
			smsEnabled:   true,
			matchScore:   80,
			expectEmail:  true,
			expectSMS:    false,
			wantStatus:   StatusSent,
		},
		{
			name:         "SMS only when email disabled",
			emailEnabled: false,
			smsEnabled:   true,
			matchScore:   95,
			expectEmail:  false,
			expectSMS:    true,
			wantStatus:   StatusSent,
		},
		{
			name:         "nothing enabled for a mid match",
			emailEnabled: false,
			smsEnabled:   true,
			matchScore:   80,
			expectEmail:  false,
			expectSMS:    false,
			wantStatus:   StatusDisabled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			assert.NoError(t, err)
			defer db.Close()

			expectContactLookup(mock, "contato@empresa.com.br", "+5511998765432")

			emailSent := false
			mockSES := &MockSESService{
				SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
					emailSent = true
					assert.Equal(t, "contato@empresa.com.br", params.Destination.ToAddresses[0])
					assert.Equal(t, "noreply@grantbr.com.br", *params.Source)
					assert.Contains(t, *params.Message.Subject.Data, "Subvenção Econômica à Inovação")
					return &ses.SendEmailOutput{}, nil
				},
			}

			smsSent := false
			mockSNS := &MockSNSService{
				PublishFunc: func(ctx context.Context, params *sns.PublishInput) (*sns.PublishOutput, error) {
					smsSent = true
					assert.Equal(t, "+5511998765432", *params.PhoneNumber)
					return &sns.PublishOutput{}, nil
				},
			}

			config := createTestConfig()
			config.EmailEnabled = tt.emailEnabled
			config.SMSEnabled = tt.smsEnabled

			handler := newTestHandler(config, db, mockSES, mockSNS)

			input := createTestInput(TypeNewMatch)
			input.MatchScore = tt.matchScore

			output, err := handler.Execute(context.Background(), input)

			assert.NoError(t, err)
			assert.NotNil(t, output)
			assert.Equal(t, tt.wantStatus, output.Status)
			assert.NotEmpty(t, output.NotificationID)
			assert.NotEmpty(t, output.SentAt)
			assert.Equal(t, tt.expectEmail, emailSent)
			assert.Equal(t, tt.expectSMS, smsSent)

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestHandler_Execute_SkipsLowScoringMatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	handler := newTestHandler(createTestConfig(), db, &MockSESService{}, &MockSNSService{})

	input := createTestInput(TypeNewMatch)
	input.MatchScore = 55

	output, err := handler.Execute(context.Background(), input)

	assert.NoError(t, err)
	assert.NotNil(t, output)
	assert.Equal(t, StatusSkipped, output.Status)

	// Below the threshold nothing is looked up or sent.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_CompanyContactNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT email, phone FROM companies WHERE id = \$1`).
		WithArgs("company-001").
		WillReturnError(sql.ErrNoRows)

	handler := newTestHandler(createTestConfig(), db, &MockSESService{}, &MockSNSService{})

	output, err := handler.Execute(context.Background(), createTestInput(TypeNewMatch))

	assert.NoError(t, err)
	assert.NotNil(t, output)
	assert.Equal(t, StatusDisabled, output.Status)
	assert.NotEmpty(t, output.NotificationID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_EmailFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	expectContactLookup(mock, "contato@empresa.com.br", "+5511998765432")

	mockSES := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
			return nil, errors.New("SES service unavailable")
		},
	}

	handler := newTestHandler(createTestConfig(), db, mockSES, &MockSNSService{})

	output, err := handler.Execute(context.Background(), createTestInput(TypeNewMatch))

	assert.Nil(t, output)
	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeNotificationSendFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_SMSFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	expectContactLookup(mock, "contato@empresa.com.br", "+5511998765432")

	mockSES := &MockSESService{
		SendEmailFunc: func(ctx context.Context, params *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
			return &ses.SendEmailOutput{}, nil
		},
	}

	mockSNS := &MockSNSService{
		PublishFunc: func(ctx context.Context, params *sns.PublishInput) (*sns.PublishOutput, error) {
			return nil, errors.New("SNS service unavailable")
		},
	}

	handler := newTestHandler(createTestConfig(), db, mockSES, mockSNS)

	input := createTestInput(TypeNewMatch)
	input.MatchScore = 95

	output, err := handler.Execute(context.Background(), input)

	assert.Nil(t, output)
	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeNotificationSendFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
	assert.Equal(t, 3, apperrors.GetRetryCount(stdErr.Code))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_TemplateNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	expectContactLookup(mock, "contato@empresa.com.br", "+5511998765432")

	handler := newTestHandler(createTestConfig(), db, &MockSESService{}, &MockSNSService{})

	output, err := handler.Execute(context.Background(), createTestInput("unknown_template_type"))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "template not found")
	assert.Nil(t, output)

	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Unit Tests
// ==========================

func TestHandler_RenderTemplate(t *testing.T) {
	tests := []struct {
		name     string
		template string
		data     map[string]interface{}
		expected string
	}{
		{
			name:     "simple replacement",
			template: "Edital {{grantTitle}} com {{matchScore}}% de compatibilidade.",
			data: map[string]interface{}{
				"grantTitle": "PIPE Fase 1",
				"matchScore": 88,
			},
			expected: "Edital PIPE Fase 1 com 88% de compatibilidade.",
		},
		{
			name:     "missing placeholder removed",
			template: "Prazo: {{deadline}}. Órgão: {{agency}}.",
			data: map[string]interface{}{
				"deadline": "30/11/2026",
			},
			expected: "Prazo: 30/11/2026. Órgão: .",
		},
		{
			name:     "no placeholders",
			template: "Mensagem fixa.",
			data:     map[string]interface{}{},
			expected: "Mensagem fixa.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, renderTemplate(tt.template, tt.data))
		})
	}
}

func TestFormatDeadline(t *testing.T) {
	assert.Equal(t, "30/11/2026", formatDeadline("2026-11-30T23:59:59Z"))
	assert.Equal(t, "", formatDeadline(""))
	assert.Equal(t, "not-a-date", formatDeadline("not-a-date"))
}
