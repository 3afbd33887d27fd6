// internal/matching/cnae.go
package matching

import (
	"fmt"
	"strings"

	"grantbr-workers/internal/models"
)

// CnaeTier identifies which rule of the CNAE evaluation fired.
type CnaeTier string

const (
	CnaeTierExcluded     CnaeTier = "EXCLUDED"
	CnaeTierUnrestricted CnaeTier = "UNRESTRICTED"
	CnaeTierNoData       CnaeTier = "NO_DATA"
	CnaeTierPrimary      CnaeTier = "PRIMARY_EXACT"
	CnaeTierSecondary    CnaeTier = "SECONDARY_EXACT"
	CnaeTierDivision     CnaeTier = "DIVISION"
	CnaeTierNoMatch      CnaeTier = "NO_MATCH"
)

// Points per tier. Exact primary match is the strongest signal; a division
// match (same prefix before the first dot) is weak evidence; no match after
// an explicit accepted list is a strong negative without disqualifying.
const (
	cnaeExcludedPenalty  = -50
	cnaeUnrestrictedPts  = 12
	cnaeNoDataPts        = 5
	cnaePrimaryPts       = 25
	cnaeSecondaryPts     = 15
	cnaeDivisionPts      = 10
	cnaeNoMatchPenalty   = -20
	cnaeNoMatchExamples  = 3
)

// CnaeMatch is the outcome of classifying a company's activity codes
// against a grant's accepted and excluded code lists.
type CnaeMatch struct {
	Tier   CnaeTier
	Points int
	Reason *models.Reason
}

// MatchCnae evaluates the tiers in order; the first applicable one wins.
// Exclusion is checked first and short-circuits all further CNAE scoring —
// it is the only tier that hard-disqualifies.
func MatchCnae(cnaes []models.Cnae, accepted, excluded []string) CnaeMatch {
	if len(excluded) > 0 {
		for _, c := range cnaes {
			if containsCode(excluded, c.Code) {
				return CnaeMatch{
					Tier:   CnaeTierExcluded,
					Points: cnaeExcludedPenalty,
					Reason: &models.Reason{
						Tag:  models.ReasonBlocker,
						Text: "❌ BLOQUEIO: Seu CNAE está na lista de atividades excluídas deste grant",
					},
				}
			}
		}
	}

	if len(accepted) == 0 {
		return CnaeMatch{Tier: CnaeTierUnrestricted, Points: cnaeUnrestrictedPts}
	}

	if len(cnaes) == 0 {
		return CnaeMatch{
			Tier:   CnaeTierNoData,
			Points: cnaeNoDataPts,
			Reason: &models.Reason{
				Tag:  models.ReasonWarning,
				Text: "⚠️ Este grant especifica CNAEs elegíveis - adicione seus CNAEs no perfil",
			},
		}
	}

	var primary *models.Cnae
	for i := range cnaes {
		if cnaes[i].IsPrimary {
			primary = &cnaes[i]
			break
		}
	}

	if primary != nil && containsCode(accepted, primary.Code) {
		return CnaeMatch{
			Tier:   CnaeTierPrimary,
			Points: cnaePrimaryPts,
			Reason: &models.Reason{
				Tag:  models.ReasonPositive,
				Text: fmt.Sprintf("✅ Seu CNAE principal (%s) é elegível para este edital", primary.Code),
			},
		}
	}

	for _, c := range cnaes {
		if c.IsPrimary {
			continue
		}
		if containsCode(accepted, c.Code) {
			return CnaeMatch{
				Tier:   CnaeTierSecondary,
				Points: cnaeSecondaryPts,
				Reason: &models.Reason{
					Tag:  models.ReasonPositive,
					Text: fmt.Sprintf("✅ Um de seus CNAEs secundários (%s) é elegível", c.Code),
				},
			}
		}
	}

	for _, grantCode := range accepted {
		division := cnaeDivision(grantCode)
		if division == "" {
			continue
		}
		for _, c := range cnaes {
			if strings.HasPrefix(c.Code, division) {
				return CnaeMatch{
					Tier:   CnaeTierDivision,
					Points: cnaeDivisionPts,
					Reason: &models.Reason{
						Tag:  models.ReasonWarning,
						Text: "⚠️ CNAE na mesma divisão, mas verifique os requisitos específicos do edital",
					},
				}
			}
		}
	}

	examples := accepted
	suffix := ""
	if len(examples) > cnaeNoMatchExamples {
		examples = examples[:cnaeNoMatchExamples]
		suffix = "..."
	}
	return CnaeMatch{
		Tier:   CnaeTierNoMatch,
		Points: cnaeNoMatchPenalty,
		Reason: &models.Reason{
			Tag:  models.ReasonWarning,
			Text: fmt.Sprintf("❌ Seu CNAE não está na lista de elegíveis - CNAEs aceitos: %s%s", strings.Join(examples, ", "), suffix),
		},
	}
}

// cnaeDivision returns the hierarchical division of a code: the substring
// before the first dot ("62" for "62.01-5-01"). Codes without a dot are
// returned whole.
func cnaeDivision(code string) string {
	if i := strings.Index(code, "."); i >= 0 {
		return code[:i]
	}
	return code
}

func containsCode(list []string, code string) bool {
	for _, c := range list {
		if c == code {
			return true
		}
	}
	return false
}
