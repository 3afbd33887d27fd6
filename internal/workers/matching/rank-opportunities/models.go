// internal/workers/matching/rank-opportunities/models.go
package rankopportunities

import "grantbr-workers/internal/models"

type Input struct {
	CompanyProfile *models.CompanyProfile `json:"companyProfile"`
	Grants         []models.Grant         `json:"grants"`
}

type Output struct {
	RankedGrants []models.RankedGrant `json:"rankedGrants"`
	TotalScored  int                  `json:"totalScored"`
	TotalHidden  int                  `json:"totalHidden"`
}
