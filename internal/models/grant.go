// internal/models/grant.go
package models

import "time"

// GrantStatus mirrors the lifecycle the collectors assign to opportunities.
type GrantStatus string

const (
	GrantStatusOpen        GrantStatus = "OPEN"
	GrantStatusClosingSoon GrantStatus = "CLOSING_SOON"
	GrantStatusClosed      GrantStatus = "CLOSED"
)

// PartnerType tags for GrantEligibilityCriteria.RequiredPartners.
// Only EMBRAPII_UNIT is evaluated today; the others are carried as data.
const (
	PartnerEmbrapiiUnit = "EMBRAPII_UNIT"
	PartnerUniversity   = "UNIVERSITY"
	PartnerICT          = "ICT"
)

// GrantEligibilityCriteria holds the admission rules of a grant. A nil
// criteria on the Grant means the call is open to every company. Each field
// is optional; absence means "no restriction" and the scorer awards the
// documented neutral credit instead of penalizing.
type GrantEligibilityCriteria struct {
	CompanySize           []CompanySize `json:"companySize,omitempty"`
	MaxEmployees          *int          `json:"maxEmployees,omitempty"`
	States                []string      `json:"states,omitempty"`
	PrioritySectors       []string      `json:"prioritySectors,omitempty"`
	PriorityThemes        []string      `json:"priorityThemes,omitempty"`
	CnaeCodes             []string      `json:"cnaeCodes,omitempty"`
	ExcludedActivities    []string      `json:"excludedActivities,omitempty"`
	MinRevenue            *float64      `json:"minRevenue,omitempty"`
	MaxRevenue            *float64      `json:"maxRevenue,omitempty"`
	MinYearsOperation     *float64      `json:"minYearsOperation,omitempty"`
	CounterpartRequired   bool          `json:"counterpartRequired,omitempty"`
	CounterpartPercentage *float64      `json:"counterpartPercentage,omitempty"`
	RequiredPartners      []string      `json:"requiredPartners,omitempty"`
}

// Grant is a funding opportunity as hydrated from storage or search.
type Grant struct {
	ID          string                    `json:"id"`
	Title       string                    `json:"title"`
	Agency      string                    `json:"agency,omitempty"`
	Category    string                    `json:"category,omitempty"`
	ValueMin    *float64                  `json:"valueMin,omitempty"`
	ValueMax    *float64                  `json:"valueMax,omitempty"`
	Deadline    *time.Time                `json:"deadline,omitempty"`
	Status      GrantStatus               `json:"status,omitempty"`
	Criteria    *GrantEligibilityCriteria `json:"eligibilityCriteria,omitempty"`
	Embedding   []float64                 `json:"embedding,omitempty"`
}

// DaysUntilDeadline returns the whole days remaining at the reference
// instant, rounding up. Returns false when the grant has no deadline.
func (g *Grant) DaysUntilDeadline(now time.Time) (int, bool) {
	if g.Deadline == nil {
		return 0, false
	}
	hours := g.Deadline.Sub(now).Hours()
	days := int(hours / 24)
	if hours > float64(days)*24 {
		days++
	}
	return days, true
}
