// internal/workers/matching/compose-grant-rating/models.go
package composegrantrating

import "grantbr-workers/internal/models"

type Input struct {
	CompanyProfile *models.CompanyProfile `json:"companyProfile"`
	Grant          models.Grant           `json:"grant"`
	// MatchScore is optional. When absent the handler scores the pair itself.
	MatchScore *int `json:"matchScore,omitempty"`
}

type Output struct {
	GrantID    string  `json:"grantId"`
	Rating     int     `json:"rating"`
	MatchScore int     `json:"matchScore"`
	ValueScore float64 `json:"valueScore"`
	EaseScore  float64 `json:"easeScore"`
}
