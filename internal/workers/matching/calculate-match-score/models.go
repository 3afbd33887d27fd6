// internal/workers/matching/calculate-match-score/models.go
package calculatematchscore

import "grantbr-workers/internal/models"

type Input struct {
	CompanyID      string                 `json:"companyId"`
	Grant          models.Grant           `json:"grant"`
	CompanyProfile *models.CompanyProfile `json:"companyProfile,omitempty"`
}

type Output struct {
	GrantID    string          `json:"grantId"`
	MatchScore int             `json:"matchScore"`
	Eligible   bool            `json:"eligible"`
	Reasons    []models.Reason `json:"reasons"`
}
