// internal/matching/rating_test.go
package matching

import (
	"testing"

	"grantbr-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueScore_RevenueRatioBands(t *testing.T) {
	company := &models.CompanyProfile{AnnualRevenue: floatPtr(1000000)}

	tests := []struct {
		name     string
		valueMax *float64
		want     float64
	}{
		{"no value is neutral", nil, 0.5},
		{"sweet spot 10-50 percent", floatPtr(300000), 1.0},
		{"good value 5-10 percent", floatPtr(70000), 0.8},
		{"ambitious 50-100 percent", floatPtr(800000), 0.9},
		{"transformative above revenue", floatPtr(5000000), 0.7},
		{"small relative value", floatPtr(10000), 0.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grant := &models.Grant{ValueMax: tt.valueMax}
			assert.InDelta(t, tt.want, ValueScore(company, grant), 1e-9)
		})
	}
}

func TestValueScore_AbsoluteFallbackWithoutRevenue(t *testing.T) {
	company := &models.CompanyProfile{}

	tests := []struct {
		valueMax float64
		want     float64
	}{
		{2000000, 1.0},
		{600000, 0.9},
		{300000, 0.8},
		{150000, 0.7},
		{50000, 0.5},
	}

	for _, tt := range tests {
		grant := &models.Grant{ValueMax: floatPtr(tt.valueMax)}
		assert.InDelta(t, tt.want, ValueScore(company, grant), 1e-9, "valueMax=%v", tt.valueMax)
	}
}

func TestEaseScore_PenaltiesAndBonuses(t *testing.T) {
	company := &models.CompanyProfile{}

	t.Run("no criteria is easy", func(t *testing.T) {
		grant := &models.Grant{}
		assert.InDelta(t, 0.9, EaseScore(company, grant, testNow), 1e-9)
	})

	t.Run("unrestricted criteria keeps base", func(t *testing.T) {
		grant := &models.Grant{Criteria: &models.GrantEligibilityCriteria{}}
		assert.InDelta(t, 1.0, EaseScore(company, grant, testNow), 1e-9)
	})

	t.Run("every restriction type stacks", func(t *testing.T) {
		grant := &models.Grant{
			Deadline: timePtr(testNow.AddDate(0, 0, 10)),
			Criteria: &models.GrantEligibilityCriteria{
				CompanySize:         []models.CompanySize{models.SizeSmall},
				MaxEmployees:        intPtr(100),
				States:              []string{"SP", "RJ"},
				CnaeCodes:           []string{"62.01-5-01"},
				MinYearsOperation:   floatPtr(5),
				CounterpartRequired: true,
				RequiredPartners:    []string{models.PartnerEmbrapiiUnit},
				PriorityThemes:      []string{"IA"},
				MinRevenue:          floatPtr(100000),
			},
		}
		// 1.0 - 0.05 - 0.05 - 0.08 - 0.10 - 0.10 - 0.15 - 0.15 - 0.05 - 0.05
		// minus 0.15 for the tight deadline.
		assert.InDelta(t, 0.07, EaseScore(company, grant, testNow), 1e-9)
	})

	t.Run("already satisfied requirements add back", func(t *testing.T) {
		satisfied := &models.CompanyProfile{
			Financial:    models.Financial{HasCounterpartCapacity: true},
			Partnerships: models.Partnerships{EmbrapiiUnits: []string{"Unidade X"}},
		}
		grant := &models.Grant{
			Criteria: &models.GrantEligibilityCriteria{
				CounterpartRequired: true,
				RequiredPartners:    []string{models.PartnerEmbrapiiUnit},
			},
		}
		base := EaseScore(company, grant, testNow)
		boosted := EaseScore(satisfied, grant, testNow)
		assert.InDelta(t, base+0.15, boosted, 1e-9)
	})

	t.Run("distant deadline helps", func(t *testing.T) {
		grant := &models.Grant{
			Deadline: timePtr(testNow.AddDate(0, 0, 120)),
			Criteria: &models.GrantEligibilityCriteria{},
		}
		assert.InDelta(t, 1.0, EaseScore(company, grant, testNow), 1e-9) // clamped
	})

	t.Run("always within bounds", func(t *testing.T) {
		grants := []*models.Grant{
			{},
			{Deadline: timePtr(testNow.AddDate(0, 0, 5))},
			{Deadline: timePtr(testNow.AddDate(1, 0, 0)), Criteria: &models.GrantEligibilityCriteria{}},
		}
		for _, g := range grants {
			ease := EaseScore(company, g, testNow)
			assert.GreaterOrEqual(t, ease, 0.0)
			assert.LessOrEqual(t, ease, 1.0)
		}
	})
}

func TestComposeRating_Bounds(t *testing.T) {
	company := &models.CompanyProfile{}
	grant := &models.Grant{}

	for _, score := range []int{0, 50, 100} {
		rating := ComposeRating(company, grant, score, testNow)
		assert.GreaterOrEqual(t, rating, 0)
		assert.LessOrEqual(t, rating, 100)
	}
}

func TestComposeRating_EasyGrantOutranksHugeHardGrant(t *testing.T) {
	company := &models.CompanyProfile{
		ID:            "company-rating",
		AnnualRevenue: floatPtr(1000000),
	}

	// Grant X: huge value, plenty of time, no restrictions.
	grantX := &models.Grant{
		ID:       "grant-x",
		ValueMax: floatPtr(10000000),
		Deadline: timePtr(testNow.AddDate(0, 0, 200)),
	}
	// Grant Y: modest value, tight deadline, counterpart and a narrow CNAE
	// list the company cannot satisfy.
	grantY := &models.Grant{
		ID:       "grant-y",
		ValueMax: floatPtr(300000),
		Deadline: timePtr(testNow.AddDate(0, 0, 10)),
		Criteria: &models.GrantEligibilityCriteria{
			CnaeCodes:             []string{"62.01-5-01", "62.02-3-00", "62.03-1-00"},
			CounterpartRequired:   true,
			CounterpartPercentage: floatPtr(50),
		},
	}

	matchX, err := ScoreMatch(company, grantX, testNow)
	require.NoError(t, err)
	matchY, err := ScoreMatch(company, grantY, testNow)
	require.NoError(t, err)

	ratingX := ComposeRating(company, grantX, matchX.Score, testNow)
	ratingY := ComposeRating(company, grantY, matchY.Score, testNow)

	assert.Greater(t, ratingX, ratingY,
		"deadline and ease penalties must outweigh headline value")
}

func TestComposeRating_Deterministic(t *testing.T) {
	company := spSoftwareCompany()
	grant := spSoftwareGrant()
	grant.Deadline = timePtr(testNow.AddDate(0, 0, 45))

	first := ComposeRating(company, grant, 82, testNow)
	second := ComposeRating(company, grant, 82, testNow)
	assert.Equal(t, first, second)
}

func TestComposeRating_UsesDeadlineRelativeToNow(t *testing.T) {
	company := &models.CompanyProfile{}
	grant := &models.Grant{
		Deadline: timePtr(testNow.AddDate(0, 0, 100)),
		Criteria: &models.GrantEligibilityCriteria{},
	}

	early := ComposeRating(company, grant, 80, testNow)
	late := ComposeRating(company, grant, 80, testNow.AddDate(0, 0, 95))
	assert.Greater(t, early, late)
}
