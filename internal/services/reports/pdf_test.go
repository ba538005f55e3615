package reports

import (
	"bytes"
	"testing"

	"github.com/solvency-io/solvency/internal/common"
	"github.com/solvency-io/solvency/internal/models"
)

func completedAssessment() *models.Assessment {
	score := 4.1
	ratio := 1.8
	return &models.Assessment{
		ID:           "a-1",
		CompanyNames: []string{"Apple Inc"},
		Mode:         models.ModeDetailed,
		Status:       models.AssessmentCompleted,
		Results: &models.AnalysisResult{
			AnalysisDate: "2026-08-28",
			Companies: []models.CompanyAnalysis{
				{
					Name:      "Apple Inc",
					Ticker:    "AAPL",
					RiskLevel: models.RiskLow,
					AltmanZScore: models.AltmanZScore{
						Score:          &score,
						Zone:           models.ZoneSafe,
						Interpretation: "Comfortably in the safe zone.",
					},
					LiquidityRatios: models.LiquidityRatios{CurrentRatio: &ratio},
					KeyStrengths:    []string{"Strong cash generation"},
					FinancialTimeline: []models.YearRecord{
						{Year: 2025, Revenue: &ratio},
					},
					Recommendations: "Maintain exposure.",
				},
			},
			PortfolioSummary: &models.PortfolioSummary{
				AverageRiskLevel:       models.RiskLow,
				OverallRecommendations: "Low aggregate risk.",
			},
			Metadata: models.AnalysisMetadata{
				ModelID:      "claude-sonnet-4-20250514",
				AttemptsUsed: 1,
				Fingerprint:  12345,
			},
		},
	}
}

func TestGenerateAssessmentReport(t *testing.T) {
	svc := NewService(common.GetLogger())

	data, err := svc.GenerateAssessmentReport(completedAssessment())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("empty PDF output")
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Error("output does not look like a PDF")
	}
}

func TestGenerateReportRequiresResults(t *testing.T) {
	svc := NewService(common.GetLogger())

	if _, err := svc.GenerateAssessmentReport(nil); err == nil {
		t.Error("nil assessment should be rejected")
	}
	if _, err := svc.GenerateAssessmentReport(&models.Assessment{ID: "a-2"}); err == nil {
		t.Error("assessment without results should be rejected")
	}
}

func TestGenerateReportForFallbackResult(t *testing.T) {
	svc := NewService(common.GetLogger())

	a := completedAssessment()
	a.Results.Metadata.UsedFallback = true

	data, err := svc.GenerateAssessmentReport(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("empty PDF output")
	}
}

func TestGenerateReportQuickMode(t *testing.T) {
	svc := NewService(common.GetLogger())

	a := &models.Assessment{
		ID:     "a-3",
		Mode:   models.ModeQuick,
		Status: models.AssessmentCompleted,
		Results: &models.AnalysisResult{
			AnalysisDate: "2026-08-28",
			Companies: []models.CompanyAnalysis{
				{
					Name: "Tesla",
					QuickMetrics: &models.QuickMetrics{
						RiskScore:      62,
						Recommendation: "Monitor debt covenants.",
						Confidence:     0.7,
					},
				},
			},
		},
	}

	data, err := svc.GenerateAssessmentReport(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("empty PDF output")
	}
}
