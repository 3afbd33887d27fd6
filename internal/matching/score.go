// internal/matching/score.go
package matching

import (
	"fmt"
	"math"
	"strings"
	"time"

	"grantbr-workers/internal/models"
)

// Baseline returned when a grant carries no eligibility criteria at all.
const openGrantBaseline = 75

var sizeLabels = map[models.CompanySize]string{
	models.SizeMEI:    "Microempreendedor Individual",
	models.SizeMicro:  "Microempresa",
	models.SizeSmall:  "Pequena empresa",
	models.SizeMedium: "Média empresa",
	models.SizeLarge:  "Grande empresa",
}

// ScoreMatch is the canonical match scorer: one company against one grant,
// producing a clamped 0-100 score, the derived eligibility, and the ordered
// reason list. Missing optional company data never penalizes; each factor
// has a documented neutral fallback. The only returned error is an
// embedding dimension mismatch.
//
// Factor order matters only for reason readability; all terms are additive.
func ScoreMatch(company *models.CompanyProfile, grant *models.Grant, now time.Time) (models.MatchResult, error) {
	criteria := grant.Criteria
	if criteria == nil {
		return models.MatchResult{
			Score:    openGrantBaseline,
			Eligible: true,
			Reasons: []models.Reason{
				{Tag: models.ReasonPositive, Text: "✅ Grant aberto para todas as empresas"},
			},
		}, nil
	}

	score := 0.0
	var reasons []models.Reason
	addReason := func(tag models.ReasonTag, text string) {
		reasons = append(reasons, models.Reason{Tag: tag, Text: text})
	}

	// 1. Company size (+20, fallback +10 when unrestricted or size unknown)
	if len(criteria.CompanySize) > 0 && company.Size != "" {
		if containsSize(criteria.CompanySize, company.Size) {
			score += 20
			label := sizeLabels[company.Size]
			if label == "" {
				label = string(company.Size)
			}
			addReason(models.ReasonPositive, fmt.Sprintf("✅ Porte da empresa (%s) é elegível", label))
		} else {
			addReason(models.ReasonWarning, "⚠️ Porte da empresa pode não ser ideal para este grant")
		}
	} else {
		score += 10
	}

	// 1.1. Employee ceiling (FAPESP PIPE style); only when both sides known
	if criteria.MaxEmployees != nil && company.EmployeeCount != nil {
		if *company.EmployeeCount <= *criteria.MaxEmployees {
			score += 5
			addReason(models.ReasonPositive,
				fmt.Sprintf("✅ Número de funcionários (%d) dentro do limite (máx: %d)", *company.EmployeeCount, *criteria.MaxEmployees))
		} else {
			score -= 10
			addReason(models.ReasonBlocker,
				fmt.Sprintf("❌ Empresa excede limite de %d funcionários", *criteria.MaxEmployees))
		}
	}

	// 2. Location (+15; restricted-and-not-matching is a hard blocker)
	if len(criteria.States) > 0 && company.State != "" {
		if containsString(criteria.States, company.State) {
			score += 15
			addReason(models.ReasonPositive,
				fmt.Sprintf("✅ Localização (%s) atende aos requisitos geográficos", company.State))
		} else {
			addReason(models.ReasonBlocker,
				fmt.Sprintf("❌ Grant restrito a outros estados (%s)", strings.Join(criteria.States, ", ")))
		}
	} else {
		score += 10
		if len(criteria.States) == 0 {
			addReason(models.ReasonPositive, "✅ Sem restrição geográfica")
		}
	}

	// 3. Revenue vs grant value band (+15 full, +8 partial)
	if grant.ValueMin != nil && grant.ValueMax != nil && company.AnnualRevenue != nil {
		revenue := *company.AnnualRevenue
		switch {
		case revenue >= *grant.ValueMin*0.5 && revenue <= *grant.ValueMax*10:
			score += 15
			addReason(models.ReasonPositive,
				fmt.Sprintf("✅ Faturamento compatível com faixa do grant (%s - %s)",
					formatBRL(*grant.ValueMin), formatBRL(*grant.ValueMax)))
		case revenue >= *grant.ValueMin*0.2:
			score += 8
			addReason(models.ReasonWarning, "⚠️ Faturamento abaixo do ideal, mas ainda pode candidatar-se")
		default:
			addReason(models.ReasonWarning, "⚠️ Faturamento pode estar fora da faixa ideal do grant")
		}
	} else {
		score += 8
	}

	// 4. Priority sectors (+20, +5 partial, fallback +10)
	if len(criteria.PrioritySectors) > 0 && company.Sector != "" {
		if sectorMatches(criteria.PrioritySectors, company.Sector) {
			score += 20
			addReason(models.ReasonPositive,
				fmt.Sprintf("✅ Setor de atuação (%s) é prioridade neste grant", company.Sector))
		} else {
			score += 5
			examples := criteria.PrioritySectors
			suffix := ""
			if len(examples) > 2 {
				examples = examples[:2]
				suffix = "..."
			}
			addReason(models.ReasonWarning,
				fmt.Sprintf("⚠️ Setor não é prioridade (setores prioritários: %s%s)", strings.Join(examples, ", "), suffix))
		}
	} else {
		score += 10
		if len(criteria.PrioritySectors) == 0 {
			addReason(models.ReasonPositive, "✅ Sem restrição de setor")
		}
	}

	// 4.1. CNAE tiers, exclusion first (the critical factor for Brazilian calls)
	cnae := MatchCnae(company.Cnaes, criteria.CnaeCodes, criteria.ExcludedActivities)
	score += float64(cnae.Points)
	if cnae.Reason != nil {
		reasons = append(reasons, *cnae.Reason)
	}

	// 4.2. R&D themes (+5 per overlap capped at +15, +3 none, fallback +8)
	if len(criteria.PriorityThemes) > 0 && len(company.RDThemes) > 0 {
		matched := matchThemes(criteria.PriorityThemes, company.RDThemes)
		if len(matched) > 0 {
			pts := len(matched) * 5
			if pts > 15 {
				pts = 15
			}
			score += float64(pts)
			if len(matched) == 1 {
				addReason(models.ReasonPositive, fmt.Sprintf("✅ Tema de P&D alinhado: %s", matched[0]))
			} else {
				addReason(models.ReasonPositive, fmt.Sprintf("✅ %d temas de P&D alinhados com o grant", len(matched)))
			}
		} else {
			score += 3
			addReason(models.ReasonWarning, "⚠️ Temas de P&D da empresa não coincidem com prioridades do grant")
		}
	} else if len(criteria.PriorityThemes) > 0 {
		addReason(models.ReasonWarning, "⚠️ Grant prioriza temas específicos de P&D - complete seu perfil para melhor matching")
	} else {
		score += 8
	}

	// 5. Revenue bounds (+15 both, +5 one, fallback +5 when revenue unknown)
	if company.AnnualRevenue != nil {
		revenue := *company.AnnualRevenue
		meetsMin := criteria.MinRevenue == nil || revenue >= *criteria.MinRevenue
		meetsMax := criteria.MaxRevenue == nil || revenue <= *criteria.MaxRevenue
		switch {
		case meetsMin && meetsMax:
			score += 15
			if criteria.MinRevenue != nil || criteria.MaxRevenue != nil {
				addReason(models.ReasonPositive, "✅ Faturamento dentro dos limites de elegibilidade")
			}
		case meetsMin || meetsMax:
			score += 5
			if !meetsMin {
				addReason(models.ReasonWarning,
					fmt.Sprintf("⚠️ Faturamento abaixo do mínimo exigido (%s)", formatBRL(*criteria.MinRevenue)))
			} else {
				addReason(models.ReasonWarning, "⚠️ Faturamento acima do máximo permitido")
			}
		}
	} else {
		score += 5
	}

	// 5.1. Years of operation (+10, blocker −15); only when both sides known
	if criteria.MinYearsOperation != nil {
		if years, ok := company.YearsOperating(now); ok {
			if years >= *criteria.MinYearsOperation {
				score += 10
				addReason(models.ReasonPositive,
					fmt.Sprintf("✅ Empresa tem %d anos (mínimo: %g anos)", int(years), *criteria.MinYearsOperation))
			} else {
				score -= 15
				addReason(models.ReasonBlocker,
					fmt.Sprintf("❌ Empresa precisa ter pelo menos %g anos de operação", *criteria.MinYearsOperation))
			}
		}
	}

	// 6. Counterpart capacity (+10, +5 partial, blocker when incapable)
	if criteria.CounterpartRequired {
		required := 0.0
		if criteria.CounterpartPercentage != nil {
			required = *criteria.CounterpartPercentage
		}
		if company.Financial.HasCounterpartCapacity {
			if company.Financial.TypicalCounterpart >= required {
				score += 10
				addReason(models.ReasonPositive,
					fmt.Sprintf("✅ Empresa tem capacidade de contrapartida (%g%% requerido)", required))
			} else {
				score += 5
				addReason(models.ReasonWarning,
					fmt.Sprintf("⚠️ Contrapartida requerida de %g%% pode ser desafiadora", required))
			}
		} else {
			addReason(models.ReasonBlocker, fmt.Sprintf("❌ Grant requer contrapartida de %g%%", required))
		}
	} else {
		score += 10
		addReason(models.ReasonPositive, "✅ Não requer contrapartida financeira")
	}

	// 7. Required partnerships; only EMBRAPII_UNIT is evaluated today
	if len(criteria.RequiredPartners) > 0 {
		needsEmbrapii := containsString(criteria.RequiredPartners, models.PartnerEmbrapiiUnit)
		hasEmbrapii := len(company.Partnerships.EmbrapiiUnits) > 0
		if needsEmbrapii && hasEmbrapii {
			score += 5
			addReason(models.ReasonPositive, "✅ Empresa já possui parceria com unidade EMBRAPII")
		} else if needsEmbrapii {
			addReason(models.ReasonWarning, "⚠️ Requer parceria com unidade EMBRAPII")
		}
	} else {
		score += 5
		addReason(models.ReasonPositive, "✅ Não requer parcerias obrigatórias")
	}

	// 8. Patent bonus: 1 point per patent, capped at 5
	totalPatents := company.Patents.Registered + company.Patents.Pending
	if totalPatents > 0 {
		bonus := totalPatents
		if bonus > 5 {
			bonus = 5
		}
		score += float64(bonus)
		patentText := fmt.Sprintf("%d patentes", totalPatents)
		if totalPatents == 1 {
			patentText = "1 patente"
		}
		addReason(models.ReasonPositive, fmt.Sprintf("✅ Possui %s (demonstra capacidade de inovação)", patentText))
	}

	// Semantic similarity: supplementary bonus capped at +10, never a
	// penalty and never a substitute for the rule-based determination.
	if len(company.Embedding) > 0 && len(grant.Embedding) > 0 {
		sim, err := CosineSimilarity(company.Embedding, grant.Embedding)
		if err != nil {
			return models.MatchResult{}, err
		}
		bonus := sim * 10
		if bonus < 0 {
			bonus = 0
		}
		if bonus > 10 {
			bonus = 10
		}
		score += bonus
	}

	result := models.MatchResult{
		Score:   clampInt(int(math.Round(score)), 0, 100),
		Reasons: reasons,
	}
	result.Eligible = !result.HasBlocker()
	return result, nil
}

func matchThemes(grantThemes, companyThemes []string) []string {
	var matched []string
	for _, gt := range grantThemes {
		for _, ct := range companyThemes {
			if containsFold(gt, ct) || containsFold(ct, gt) {
				matched = append(matched, gt)
				break
			}
		}
	}
	return matched
}

func sectorMatches(prioritySectors []string, sector string) bool {
	for _, s := range prioritySectors {
		if containsFold(sector, s) || containsFold(s, sector) {
			return true
		}
	}
	return false
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsSize(list []models.CompanySize, v models.CompanySize) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// formatBRL renders monetary values the way the product shows them in
// reasons: R$ 1.5M, R$ 500k, R$ 900.
func formatBRL(val float64) string {
	switch {
	case val >= 1000000:
		return fmt.Sprintf("R$ %.1fM", val/1000000)
	case val >= 1000:
		return fmt.Sprintf("R$ %.0fk", val/1000)
	default:
		return fmt.Sprintf("R$ %.0f", val)
	}
}
