// internal/matching/cnae_test.go
package matching

import (
	"testing"

	"grantbr-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func softwareCnaes() []models.Cnae {
	return []models.Cnae{
		{Code: "62.01-5-01", Description: "Desenvolvimento de software sob encomenda", IsPrimary: true},
		{Code: "62.02-3-00", Description: "Desenvolvimento e licenciamento de programas", IsPrimary: false},
	}
}

func TestMatchCnae_Tiers(t *testing.T) {
	tests := []struct {
		name       string
		cnaes      []models.Cnae
		accepted   []string
		excluded   []string
		wantTier   CnaeTier
		wantPoints int
		wantTag    models.ReasonTag
		noReason   bool
	}{
		{
			name:       "excluded code wins over everything",
			cnaes:      softwareCnaes(),
			accepted:   []string{"62.01-5-01"},
			excluded:   []string{"62.01-5-01"},
			wantTier:   CnaeTierExcluded,
			wantPoints: -50,
			wantTag:    models.ReasonBlocker,
		},
		{
			name:       "no accepted list means no restriction",
			cnaes:      softwareCnaes(),
			wantTier:   CnaeTierUnrestricted,
			wantPoints: 12,
			noReason:   true,
		},
		{
			name:       "restricted grant but company has no codes",
			accepted:   []string{"62.01-5-01"},
			wantTier:   CnaeTierNoData,
			wantPoints: 5,
			wantTag:    models.ReasonWarning,
		},
		{
			name:       "primary exact match",
			cnaes:      softwareCnaes(),
			accepted:   []string{"62.01-5-01", "72.10-0-00"},
			wantTier:   CnaeTierPrimary,
			wantPoints: 25,
			wantTag:    models.ReasonPositive,
		},
		{
			name:       "secondary exact match",
			cnaes:      softwareCnaes(),
			accepted:   []string{"62.02-3-00"},
			wantTier:   CnaeTierSecondary,
			wantPoints: 15,
			wantTag:    models.ReasonPositive,
		},
		{
			name:       "division match",
			cnaes:      softwareCnaes(),
			accepted:   []string{"62.09-1-00"},
			wantTier:   CnaeTierDivision,
			wantPoints: 10,
			wantTag:    models.ReasonWarning,
		},
		{
			name:       "no match after explicit restriction",
			cnaes:      softwareCnaes(),
			accepted:   []string{"10.91-1-01", "10.92-9-00"},
			wantTier:   CnaeTierNoMatch,
			wantPoints: -20,
			wantTag:    models.ReasonWarning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchCnae(tt.cnaes, tt.accepted, tt.excluded)
			assert.Equal(t, tt.wantTier, got.Tier)
			assert.Equal(t, tt.wantPoints, got.Points)
			if tt.noReason {
				assert.Nil(t, got.Reason)
			} else {
				require.NotNil(t, got.Reason)
				assert.Equal(t, tt.wantTag, got.Reason.Tag)
				assert.NotEmpty(t, got.Reason.Text)
			}
		})
	}
}

func TestMatchCnae_TierOrdering(t *testing.T) {
	// Primary exact > secondary exact > division > no match.
	cnaes := softwareCnaes()

	primary := MatchCnae(cnaes, []string{"62.01-5-01"}, nil)
	secondary := MatchCnae(cnaes, []string{"62.02-3-00"}, nil)
	division := MatchCnae(cnaes, []string{"62.99-9-99"}, nil)
	noMatch := MatchCnae(cnaes, []string{"10.91-1-01"}, nil)

	assert.Greater(t, primary.Points, secondary.Points)
	assert.Greater(t, secondary.Points, division.Points)
	assert.Greater(t, division.Points, noMatch.Points)
}

func TestMatchCnae_NoMatchNamesAtMostThreeExamples(t *testing.T) {
	accepted := []string{"10.11-2-01", "10.12-1-01", "10.13-9-01", "10.20-1-01", "10.31-7-00"}
	got := MatchCnae(softwareCnaes(), accepted, nil)

	assert.Equal(t, CnaeTierNoMatch, got.Tier)
	require.NotNil(t, got.Reason)
	assert.Contains(t, got.Reason.Text, "10.11-2-01, 10.12-1-01, 10.13-9-01...")
	assert.NotContains(t, got.Reason.Text, "10.20-1-01")
}

func TestMatchCnae_ExclusionShortCircuitsAcceptedScoring(t *testing.T) {
	// Secondary code is excluded even though the primary would match.
	got := MatchCnae(softwareCnaes(), []string{"62.01-5-01"}, []string{"62.02-3-00"})
	assert.Equal(t, CnaeTierExcluded, got.Tier)
	assert.Equal(t, -50, got.Points)
}

func TestCnaeDivision(t *testing.T) {
	assert.Equal(t, "62", cnaeDivision("62.01-5-01"))
	assert.Equal(t, "8599", cnaeDivision("8599"))
	assert.Equal(t, "", cnaeDivision(".01"))
}
