// Package reports renders assessment results as PDF documents.
package reports

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"

	"github.com/solvency-io/solvency/internal/models"
)

// Service renders assessment reports.
type Service struct {
	logger arbor.ILogger
}

// NewService creates a new report service.
func NewService(logger arbor.ILogger) *Service {
	return &Service{logger: logger}
}

// GenerateAssessmentReport renders a completed assessment as a PDF.
func (s *Service) GenerateAssessmentReport(assessment *models.Assessment) ([]byte, error) {
	if assessment == nil || assessment.Results == nil {
		return nil, fmt.Errorf("assessment has no results to report")
	}
	result := assessment.Results

	s.logger.Debug().
		Str("assessment_id", assessment.ID).
		Int("companies", len(result.Companies)).
		Msg("Generating assessment report")

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	r := &reportWriter{pdf: pdf}

	r.title("Financial Risk Assessment")
	r.meta(assessment)

	if result.Metadata.UsedFallback {
		r.notice("This report was produced from a fallback estimate while the analysis provider was unavailable. Re-run the assessment before acting on it.")
	}

	for i := range result.Companies {
		r.company(&result.Companies[i])
	}

	if result.PortfolioSummary != nil {
		r.portfolio(result.PortfolioSummary)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF output: %w", err)
	}

	s.logger.Debug().Int("pdf_size", buf.Len()).Msg("Assessment report generated")
	return buf.Bytes(), nil
}

type reportWriter struct {
	pdf *fpdf.Fpdf
}

func (r *reportWriter) title(text string) {
	r.pdf.SetFont("Arial", "B", 16)
	r.pdf.CellFormat(0, 10, text, "", 1, "L", false, 0, "")
	r.pdf.Ln(2)
}

func (r *reportWriter) meta(assessment *models.Assessment) {
	result := assessment.Results
	r.pdf.SetFont("Arial", "", 9)
	r.pdf.SetTextColor(90, 90, 90)

	line := fmt.Sprintf("Assessment %s  |  %s mode  |  analysis date %s",
		assessment.ID, assessment.Mode, result.AnalysisDate)
	r.pdf.CellFormat(0, 5, line, "", 1, "L", false, 0, "")

	line = fmt.Sprintf("Model %s  |  attempts %d  |  fingerprint %d",
		orDash(result.Metadata.ModelID), result.Metadata.AttemptsUsed, result.Metadata.Fingerprint)
	r.pdf.CellFormat(0, 5, line, "", 1, "L", false, 0, "")

	r.pdf.SetTextColor(0, 0, 0)
	r.pdf.Ln(4)
}

func (r *reportWriter) notice(text string) {
	r.pdf.SetFillColor(255, 243, 224)
	r.pdf.SetFont("Arial", "B", 9)
	r.pdf.MultiCell(0, 6, text, "1", "L", true)
	r.pdf.SetFillColor(255, 255, 255)
	r.pdf.Ln(4)
}

func (r *reportWriter) heading(text string) {
	r.pdf.SetFont("Arial", "B", 12)
	r.pdf.CellFormat(0, 8, text, "", 1, "L", false, 0, "")
}

func (r *reportWriter) subheading(text string) {
	r.pdf.SetFont("Arial", "B", 10)
	r.pdf.CellFormat(0, 6, text, "", 1, "L", false, 0, "")
}

func (r *reportWriter) paragraph(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	r.pdf.SetFont("Arial", "", 9)
	r.pdf.MultiCell(0, 5, text, "", "L", false)
	r.pdf.Ln(1)
}

func (r *reportWriter) company(c *models.CompanyAnalysis) {
	r.pdf.Ln(2)
	name := c.Name
	if c.Ticker != "" {
		name = fmt.Sprintf("%s (%s)", c.Name, c.Ticker)
	}
	r.heading(name)

	r.keyValueRow("Risk level", string(c.RiskLevel))
	r.keyValueRow("Overall rating", c.OverallRating)
	if c.AltmanZScore.Score != nil {
		r.keyValueRow("Altman Z-Score", fmt.Sprintf("%.2f (%s zone)", *c.AltmanZScore.Score, c.AltmanZScore.Zone))
	} else {
		r.keyValueRow("Altman Z-Score", "not available")
	}
	r.paragraph(c.AltmanZScore.Interpretation)

	if c.QuickMetrics != nil {
		r.keyValueRow("Risk score", fmt.Sprintf("%.0f / 100", c.QuickMetrics.RiskScore))
		r.keyValueRow("Confidence", fmt.Sprintf("%.0f%%", c.QuickMetrics.Confidence*100))
		r.paragraph(c.QuickMetrics.Recommendation)
	}

	r.ratioTable(c)

	if len(c.KeyStrengths) > 0 {
		r.subheading("Key strengths")
		r.bullets(c.KeyStrengths)
	}
	if len(c.KeyWeaknesses) > 0 {
		r.subheading("Key weaknesses")
		r.bullets(c.KeyWeaknesses)
	}
	if len(c.FinancialTimeline) > 0 {
		r.timeline(c.FinancialTimeline)
	}

	r.paragraph(c.RiskAssessment.RecentPerformance)
	if c.Recommendations != "" {
		r.subheading("Recommendations")
		r.paragraph(c.Recommendations)
	}
	if c.FutureOutlook != "" {
		r.subheading("Outlook")
		r.paragraph(c.FutureOutlook)
	}
	r.pdf.Ln(2)
}

func (r *reportWriter) keyValueRow(key, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	r.pdf.SetFont("Arial", "B", 9)
	r.pdf.CellFormat(40, 5, key, "", 0, "L", false, 0, "")
	r.pdf.SetFont("Arial", "", 9)
	r.pdf.CellFormat(0, 5, value, "", 1, "L", false, 0, "")
}

func (r *reportWriter) bullets(items []string) {
	r.pdf.SetFont("Arial", "", 9)
	for _, item := range items {
		r.pdf.SetX(20)
		r.pdf.MultiCell(0, 5, "- "+item, "", "L", false)
	}
	r.pdf.Ln(1)
}

// ratioTable renders the three ratio groups as a compact two-column table.
func (r *reportWriter) ratioTable(c *models.CompanyAnalysis) {
	rows := [][2]string{}
	add := func(label string, v *float64) {
		if v != nil {
			rows = append(rows, [2]string{label, fmt.Sprintf("%.2f", *v)})
		}
	}
	add("Current ratio", c.LiquidityRatios.CurrentRatio)
	add("Quick ratio", c.LiquidityRatios.QuickRatio)
	add("Cash ratio", c.LiquidityRatios.CashRatio)
	add("Debt to equity", c.SolvencyRatios.DebtToEquity)
	add("Times interest earned", c.SolvencyRatios.TimesInterestEarned)
	add("Debt service coverage", c.SolvencyRatios.DebtServiceCoverage)
	add("ROE", c.ProfitabilityRatios.ROE)
	add("ROA", c.ProfitabilityRatios.ROA)
	add("Net margin", c.ProfitabilityRatios.NetMargin)
	add("Operating margin", c.ProfitabilityRatios.OperatingMargin)

	if len(rows) == 0 {
		return
	}

	r.subheading("Key ratios")
	r.pdf.SetFont("Arial", "", 8)
	for _, row := range rows {
		r.pdf.SetX(20)
		r.pdf.CellFormat(60, 5, row[0], "1", 0, "L", false, 0, "")
		r.pdf.CellFormat(30, 5, row[1], "1", 1, "R", false, 0, "")
	}
	r.pdf.Ln(2)
}

func (r *reportWriter) timeline(records []models.YearRecord) {
	r.subheading("Financial timeline")
	r.pdf.SetFont("Arial", "B", 8)
	r.pdf.SetX(20)
	r.pdf.SetFillColor(230, 230, 230)
	headers := []string{"Year", "Revenue", "Net income", "Total debt"}
	widths := []float64{20, 40, 40, 40}
	for i, h := range headers {
		r.pdf.CellFormat(widths[i], 5, h, "1", 0, "C", true, 0, "")
	}
	r.pdf.Ln(-1)
	r.pdf.SetFillColor(255, 255, 255)

	r.pdf.SetFont("Arial", "", 8)
	for _, rec := range records {
		r.pdf.SetX(20)
		r.pdf.CellFormat(widths[0], 5, fmt.Sprintf("%d", rec.Year), "1", 0, "C", false, 0, "")
		r.pdf.CellFormat(widths[1], 5, formatAmount(rec.Revenue), "1", 0, "R", false, 0, "")
		r.pdf.CellFormat(widths[2], 5, formatAmount(rec.NetIncome), "1", 0, "R", false, 0, "")
		r.pdf.CellFormat(widths[3], 5, formatAmount(rec.TotalDebt), "1", 1, "R", false, 0, "")
	}
	r.pdf.Ln(2)
}

func (r *reportWriter) portfolio(p *models.PortfolioSummary) {
	r.pdf.Ln(2)
	r.heading("Portfolio summary")
	r.keyValueRow("Average risk level", string(p.AverageRiskLevel))
	r.paragraph(p.DiversificationAnalysis)
	r.paragraph(p.OverallRecommendations)
}

func formatAmount(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
