package analysis

import (
	"strings"
	"time"

	"github.com/solvency-io/solvency/internal/models"
)

// FallbackResult builds the deterministic stand-in result used when every
// analysis attempt fails. The risk score is derived from the fingerprint
// so repeated requests for the same companies degrade identically, always
// landing in the 45-74 medium band. Metrics are left null; a fallback
// never pretends to know ratios.
func FallbackResult(companyNames []string, mode models.AnalysisMode, fingerprint int64) *models.AnalysisResult {
	riskScore := float64(45 + fingerprint%30)
	riskLevel := models.RiskMedium
	if riskScore >= 70 {
		riskLevel = models.RiskHigh
	}

	companies := make([]models.CompanyAnalysis, 0, len(companyNames))
	for _, name := range companyNames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		company := models.CompanyAnalysis{
			Name:      name,
			RiskLevel: riskLevel,
			AltmanZScore: models.AltmanZScore{
				Zone:           models.ZoneUnknown,
				Interpretation: "Analysis unavailable, risk estimated without current financial data.",
			},
			RiskAssessment: models.RiskAssessment{
				CreditRiskLevel:   riskLevel,
				RecentPerformance: "Not assessed, upstream analysis was unavailable.",
			},
			Recommendations: "Re-run the analysis once the provider recovers before acting on this estimate.",
		}
		if mode == models.ModeQuick {
			company.QuickMetrics = &models.QuickMetrics{
				RiskScore:      riskScore,
				Recommendation: "Provisional estimate only, re-run the analysis before acting.",
				Confidence:     0,
			}
		}
		companies = append(companies, company)
	}

	return &models.AnalysisResult{
		AnalysisDate: time.Now().Format("2006-01-02"),
		Companies:    companies,
	}
}
