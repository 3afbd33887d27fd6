// internal/workers/communication/notify-match/models.go
package notifymatch

type Input struct {
	CompanyID        string                 `json:"companyId"`
	NotificationType string                 `json:"notificationType"`
	GrantID          string                 `json:"grantId"`
	GrantTitle       string                 `json:"grantTitle"`
	Agency           string                 `json:"agency,omitempty"`
	MatchScore       int                    `json:"matchScore"`
	Deadline         string                 `json:"deadline,omitempty"` // ISO 8601
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

type Output struct {
	NotificationID string `json:"notificationId"`
	Status         string `json:"status"` // "sent", "skipped", "disabled"
	SentAt         string `json:"sentAt"` // ISO 8601
}

// Notification types
const (
	TypeNewMatch         = "new_match"
	TypeDeadlineReminder = "deadline_reminder"
)

// Statuses
const (
	StatusSent     = "sent"
	StatusSkipped  = "skipped"
	StatusDisabled = "disabled"
)
