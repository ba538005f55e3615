package analysis

import (
	"fmt"
	"strings"
	"time"

	"github.com/solvency-io/solvency/internal/interfaces"
	"github.com/solvency-io/solvency/internal/models"
)

// systemInstruction pins the model's role and the output contract shared
// by both modes. Responses must be bare JSON; fenced output is tolerated
// by the parser but discouraged at the source.
const systemInstruction = `You are a senior credit analyst producing financial risk assessments.
Respond with a single JSON object only. No markdown, no code fences, no commentary before or after the JSON.
Use null for any metric you cannot estimate with reasonable confidence. Never invent precise figures.`

// PromptBuilder renders completion requests for the analysis pipeline.
// The fingerprint is embedded as a reproducibility seed so identical
// requests present identical prompts to the model.
type PromptBuilder struct {
	temperature float32
	model       string
}

// NewPromptBuilder creates a builder using the given sampling temperature
// and model identifier for every request it renders.
func NewPromptBuilder(temperature float32, model string) *PromptBuilder {
	if temperature <= 0 {
		temperature = 0.1
	}
	return &PromptBuilder{temperature: temperature, model: model}
}

// Temperature returns the sampling temperature applied to every request.
func (b *PromptBuilder) Temperature() float32 {
	return b.temperature
}

// Build renders the completion request for a company set, mode and seed.
func (b *PromptBuilder) Build(companyNames []string, mode models.AnalysisMode, seed int64) *interfaces.CompletionRequest {
	var prompt string
	if mode == models.ModeQuick {
		prompt = b.quickPrompt(companyNames, seed)
	} else {
		prompt = b.detailedPrompt(companyNames, seed)
	}

	return &interfaces.CompletionRequest{
		Messages: []interfaces.Message{
			{Role: "user", Content: prompt},
		},
		Model:             b.model,
		Temperature:       b.temperature,
		SystemInstruction: systemInstruction,
	}
}

func companyList(companyNames []string) string {
	var sb strings.Builder
	for i, name := range companyNames {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, strings.TrimSpace(name))
	}
	return sb.String()
}

// detailedPrompt asks for the full envelope: Altman Z-Score with working,
// ratio groups, a 5-year timeline and a portfolio summary.
func (b *PromptBuilder) detailedPrompt(companyNames []string, seed int64) string {
	return fmt.Sprintf(`Analyze the financial health and credit risk of the following companies:

%s
Reproducibility seed: %d. Given the same seed and company list, produce the same analysis.

Return a JSON object with exactly this structure:
{
  "analysis_date": "%s",
  "companies": [
    {
      "name": "company name",
      "ticker": "stock ticker or null",
      "overall_rating": "excellent|good|fair|poor|critical|unknown",
      "risk_level": "low|medium|high",
      "altman_z_score": {
        "score": number or null,
        "zone": "safe|grey|distress|unknown",
        "interpretation": "one sentence",
        "calculation_details": {"working_capital_ratio": number, "retained_earnings_ratio": number, "ebit_ratio": number, "market_value_ratio": number, "sales_ratio": number}
      },
      "liquidity_ratios": {"current_ratio": number, "quick_ratio": number, "cash_ratio": number, "analysis": "brief"},
      "solvency_ratios": {"debt_to_equity": number, "times_interest_earned": number, "debt_service_coverage": number, "analysis": "brief"},
      "profitability_ratios": {"roe": number, "roa": number, "gross_margin": number, "net_margin": number, "operating_margin": number, "analysis": "brief"},
      "financial_timeline": [{"year": number, "revenue": number, "net_income": number, "total_debt": number, "key_events": "brief"}],
      "risk_assessment": {"credit_risk_level": "low|medium|high", "industry_risks": ["risk"], "market_position": "brief", "recent_performance": "brief"},
      "key_strengths": ["strength"],
      "key_weaknesses": ["weakness"],
      "recommendations": "brief",
      "future_outlook": "brief"
    }
  ],
  "portfolio_summary": {
    "average_risk_level": "low|medium|high",
    "diversification_analysis": "brief",
    "overall_recommendations": "brief",
    "zscore_trend": [{"year": number, "score": number}]
  }
}

Altman Z-Score zones: safe above 2.99, grey between 1.8 and 2.99, distress below 1.8.
Cover the last 5 fiscal years in financial_timeline, most recent first.`,
		companyList(companyNames), seed, time.Now().Format("2006-01-02"))
}

// quickPrompt asks for the compact per-company risk snapshot.
func (b *PromptBuilder) quickPrompt(companyNames []string, seed int64) string {
	return fmt.Sprintf(`Provide a quick financial risk snapshot for the following companies:

%s
Reproducibility seed: %d. Given the same seed and company list, produce the same analysis.

Return a JSON object with exactly this structure:
{
  "analysis_date": "%s",
  "companies": [
    {
      "name": "company name",
      "risk_level": "low|medium|high",
      "altman_z_score": {"score": number or null, "zone": "safe|grey|distress|unknown"},
      "quick_metrics": {
        "risk_score": number between 0 and 100,
        "key_metrics": {"current_ratio": number, "debt_to_equity": number, "net_margin": number},
        "recommendation": "one sentence",
        "confidence": number between 0 and 1
      }
    }
  ]
}

Altman Z-Score zones: safe above 2.99, grey between 1.8 and 2.99, distress below 1.8.
Keep each field brief. risk_score of 0 means no credit risk, 100 means imminent default.`,
		companyList(companyNames), seed, time.Now().Format("2006-01-02"))
}
