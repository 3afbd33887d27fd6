// internal/matching/rating.go
package matching

import (
	"math"
	"time"

	"grantbr-workers/internal/models"
)

// Rating weights: fit 40%, monetary value 30%, ease of qualifying 30%.
// The rating is the single source of truth for ranking opportunities — a
// modest, easy, well-matched grant must outrank a huge but nearly
// impossible one.
const (
	ratingMatchWeight = 40.0
	ratingValueWeight = 30.0
	ratingEaseWeight  = 30.0
)

// ComposeRating blends the match score with the value and ease sub-scores
// into a single 0-100 rating.
func ComposeRating(company *models.CompanyProfile, grant *models.Grant, matchScore int, now time.Time) int {
	rating := float64(matchScore) / 100 * ratingMatchWeight
	rating += ValueScore(company, grant) * ratingValueWeight
	rating += EaseScore(company, grant, now) * ratingEaseWeight
	return clampInt(int(math.Round(rating)), 0, 100)
}

// ValueScore measures how appropriately sized the grant is for the company,
// in [0,1]. A grant worth 10-50% of annual revenue is the sweet spot.
func ValueScore(company *models.CompanyProfile, grant *models.Grant) float64 {
	if grant.ValueMax == nil {
		return 0.5
	}
	grantValue := *grant.ValueMax

	if company.AnnualRevenue != nil && *company.AnnualRevenue > 0 {
		ratio := grantValue / *company.AnnualRevenue
		switch {
		case ratio >= 0.1 && ratio <= 0.5:
			return 1.0
		case ratio >= 0.05 && ratio < 0.1:
			return 0.8
		case ratio > 0.5 && ratio <= 1.0:
			return 0.9
		case ratio > 1.0:
			return 0.7
		default:
			return 0.6
		}
	}

	// No revenue data: fall back to absolute grant value.
	switch {
	case grantValue >= 1000000:
		return 1.0
	case grantValue >= 500000:
		return 0.9
	case grantValue >= 250000:
		return 0.8
	case grantValue >= 100000:
		return 0.7
	default:
		return 0.5
	}
}

// EaseScore measures how straightforward qualifying is, in [0,1]. Starts at
// 1.0 and loses a fixed penalty per restriction type, adjusted by deadline
// proximity and by requirements the company already satisfies.
func EaseScore(company *models.CompanyProfile, grant *models.Grant, now time.Time) float64 {
	criteria := grant.Criteria
	if criteria == nil {
		return 0.9
	}

	ease := 1.0

	if len(criteria.CompanySize) > 0 && len(criteria.CompanySize) < 3 {
		ease -= 0.05
	}
	if criteria.MaxEmployees != nil {
		ease -= 0.05
	}
	if len(criteria.States) > 0 && len(criteria.States) < 10 {
		ease -= 0.08
	}
	if len(criteria.CnaeCodes) > 0 && len(criteria.CnaeCodes) < 20 {
		ease -= 0.10
	}
	if criteria.MinYearsOperation != nil && *criteria.MinYearsOperation > 2 {
		ease -= 0.10
	}
	if criteria.CounterpartRequired {
		ease -= 0.15
	}
	if len(criteria.RequiredPartners) > 0 {
		ease -= 0.15
	}
	if len(criteria.PriorityThemes) > 0 {
		ease -= 0.05
	}
	if criteria.MinRevenue != nil || criteria.MaxRevenue != nil {
		ease -= 0.05
	}

	if days, ok := grant.DaysUntilDeadline(now); ok {
		switch {
		case days > 90:
			ease += 0.10
		case days > 60:
			ease += 0.05
		case days < 15:
			ease -= 0.15
		}
	}

	// Requirements the company already covers make the application easier.
	if containsString(criteria.RequiredPartners, models.PartnerEmbrapiiUnit) &&
		len(company.Partnerships.EmbrapiiUnits) > 0 {
		ease += 0.10
	}
	if criteria.CounterpartRequired && company.Financial.HasCounterpartCapacity {
		ease += 0.05
	}

	return math.Max(0, math.Min(1, ease))
}
