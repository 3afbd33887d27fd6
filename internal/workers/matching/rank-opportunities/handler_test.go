// internal/workers/matching/rank-opportunities/handler_test.go
package rankopportunities

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "grantbr-workers/internal/common/errors"
	"grantbr-workers/internal/common/logger"
	"grantbr-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func createTestProfile() *models.CompanyProfile {
	foundation := time.Date(2018, 3, 1, 0, 0, 0, 0, time.UTC)
	return &models.CompanyProfile{
		ID:             "company-123",
		Size:           models.SizeSmall,
		Sector:         "Tecnologia da Informação",
		State:          "SP",
		AnnualRevenue:  floatPtr(1_500_000),
		EmployeeCount:  intPtr(25),
		FoundationDate: &foundation,
		Cnaes: []models.Cnae{
			{Code: "62.01-5-01", Description: "Desenvolvimento de software sob encomenda", IsPrimary: true},
		},
		RDThemes:  []string{"inteligência artificial"},
		Financial: models.Financial{HasCounterpartCapacity: true},
	}
}

// strongGrant lines up with every restriction the test profile satisfies.
func strongGrant(id string, deadline time.Time) models.Grant {
	return models.Grant{
		ID:       id,
		Title:    "PIPE Fase 1",
		Agency:   "FAPESP",
		ValueMin: floatPtr(200_000),
		ValueMax: floatPtr(1_000_000),
		Deadline: &deadline,
		Status:   models.GrantStatusOpen,
		Criteria: &models.GrantEligibilityCriteria{
			CompanySize:     []models.CompanySize{models.SizeMicro, models.SizeSmall},
			States:          []string{"SP"},
			PrioritySectors: []string{"Tecnologia da Informação"},
			PriorityThemes:  []string{"inteligência artificial"},
			CnaeCodes:       []string{"62.01-5-01"},
		},
	}
}

// mediumGrant only misses on company size, everything else is unrestricted.
func mediumGrant(id string, deadline time.Time) models.Grant {
	return models.Grant{
		ID:       id,
		Title:    "Linha Médias Empresas",
		Agency:   "FINEP",
		Deadline: &deadline,
		Status:   models.GrantStatusOpen,
		Criteria: &models.GrantEligibilityCriteria{
			CompanySize: []models.CompanySize{models.SizeMedium, models.SizeLarge},
		},
	}
}

// weakGrant misses on nearly everything without tripping a blocker.
func weakGrant(id string) models.Grant {
	deadline := time.Now().UTC().Add(40 * 24 * time.Hour)
	return models.Grant{
		ID:       id,
		Title:    "Edital Agro de Grande Porte",
		Agency:   "MAPA",
		ValueMin: floatPtr(20_000_000),
		ValueMax: floatPtr(50_000_000),
		Deadline: &deadline,
		Status:   models.GrantStatusOpen,
		Criteria: &models.GrantEligibilityCriteria{
			CompanySize:           []models.CompanySize{models.SizeLarge},
			PrioritySectors:       []string{"Agronegócio"},
			PriorityThemes:        []string{"blockchain"},
			CnaeCodes:             []string{"01.13-0-00"},
			MinRevenue:            floatPtr(10_000_000),
			CounterpartRequired:   true,
			CounterpartPercentage: floatPtr(50),
			RequiredPartners:      []string{models.PartnerEmbrapiiUnit},
		},
	}
}

func TestHandler_Execute_RanksByRatingAndHidesWeakMatches(t *testing.T) {
	handler := NewHandler(LoadConfig(), logger.NewNoOpLogger())
	deadline := time.Now().UTC().Add(120 * 24 * time.Hour)

	output, err := handler.Execute(context.Background(), &Input{
		CompanyProfile: createTestProfile(),
		Grants: []models.Grant{
			weakGrant("grant-weak"),
			mediumGrant("grant-medium", deadline),
			strongGrant("grant-strong", deadline),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, output.TotalScored)
	assert.Equal(t, 1, output.TotalHidden)
	require.Len(t, output.RankedGrants, 2)

	assert.Equal(t, "grant-strong", output.RankedGrants[0].GrantID)
	assert.Equal(t, "grant-medium", output.RankedGrants[1].GrantID)
	assert.Greater(t, output.RankedGrants[0].Rating, output.RankedGrants[1].Rating)
	assert.True(t, output.RankedGrants[0].Eligible)
}

func TestHandler_Execute_DeduplicatesGrants(t *testing.T) {
	handler := NewHandler(LoadConfig(), logger.NewNoOpLogger())
	deadline := time.Now().UTC().Add(120 * 24 * time.Hour)

	output, err := handler.Execute(context.Background(), &Input{
		CompanyProfile: createTestProfile(),
		Grants: []models.Grant{
			strongGrant("grant-dup", deadline),
			strongGrant("grant-dup", deadline),
			strongGrant("grant-dup", deadline),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, output.TotalScored)
	assert.Len(t, output.RankedGrants, 1)
}

func TestHandler_Execute_EarlierDeadlineBreaksTies(t *testing.T) {
	handler := NewHandler(LoadConfig(), logger.NewNoOpLogger())
	// Both far enough out to fall in the same ease-score band.
	earlier := time.Now().UTC().Add(120 * 24 * time.Hour)
	later := time.Now().UTC().Add(150 * 24 * time.Hour)

	output, err := handler.Execute(context.Background(), &Input{
		CompanyProfile: createTestProfile(),
		Grants: []models.Grant{
			strongGrant("grant-later", later),
			strongGrant("grant-earlier", earlier),
		},
	})
	require.NoError(t, err)
	require.Len(t, output.RankedGrants, 2)

	assert.Equal(t, output.RankedGrants[0].Rating, output.RankedGrants[1].Rating)
	assert.Equal(t, "grant-earlier", output.RankedGrants[0].GrantID)
}

func TestHandler_Execute_TruncatesToMaxItems(t *testing.T) {
	config := LoadConfig()
	config.MaxItems = 1
	handler := NewHandler(config, logger.NewNoOpLogger())
	deadline := time.Now().UTC().Add(120 * 24 * time.Hour)

	output, err := handler.Execute(context.Background(), &Input{
		CompanyProfile: createTestProfile(),
		Grants: []models.Grant{
			strongGrant("grant-a", deadline),
			mediumGrant("grant-b", deadline),
		},
	})
	require.NoError(t, err)

	assert.Len(t, output.RankedGrants, 1)
	assert.Equal(t, "grant-a", output.RankedGrants[0].GrantID)
	assert.Equal(t, 2, output.TotalScored)
}

func TestHandler_Execute_EmptyGrantList(t *testing.T) {
	handler := NewHandler(LoadConfig(), logger.NewNoOpLogger())

	output, err := handler.Execute(context.Background(), &Input{
		CompanyProfile: createTestProfile(),
	})
	require.NoError(t, err)

	assert.Empty(t, output.RankedGrants)
	assert.Zero(t, output.TotalScored)
}

func TestHandler_Execute_NilInput(t *testing.T) {
	handler := NewHandler(LoadConfig(), logger.NewNoOpLogger())

	_, err := handler.Execute(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilInput)

	_, err = handler.Execute(context.Background(), &Input{})
	assert.Error(t, err)
}

func TestHandler_Execute_EmbeddingMismatchFailsRanking(t *testing.T) {
	handler := NewHandler(LoadConfig(), logger.NewNoOpLogger())
	deadline := time.Now().UTC().Add(120 * 24 * time.Hour)

	profile := createTestProfile()
	profile.Embedding = []float64{0.1, 0.2, 0.3}
	grant := strongGrant("grant-bad-embedding", deadline)
	grant.Embedding = []float64{0.1, 0.2}

	_, err := handler.Execute(context.Background(), &Input{
		CompanyProfile: profile,
		Grants:         []models.Grant{grant},
	})
	assert.Error(t, err)
}

func TestToStandardError(t *testing.T) {
	input := &Input{CompanyProfile: createTestProfile()}

	passedThrough := toStandardError(input, apperrors.NewEmbeddingDimensionMismatchError("3 != 2"))
	assert.Equal(t, apperrors.ErrCodeEmbeddingDimensionMismatch, passedThrough.Code)

	genericErr := toStandardError(input, errors.New("ranking blew up"))
	assert.Equal(t, apperrors.ErrCodeRankingFailed, genericErr.Code)
	assert.Contains(t, genericErr.Details, "company-123")
}
