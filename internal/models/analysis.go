// -----------------------------------------------------------------------
// Analysis models - strongly-typed structures for LLM financial analysis
// output. Field names follow the JSON envelope the prompt contract
// demands from the model.
// -----------------------------------------------------------------------

package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// AnalysisMode selects the verbosity of a requested analysis.
type AnalysisMode string

const (
	// ModeQuick requests a compact per-company risk snapshot
	ModeQuick AnalysisMode = "quick"
	// ModeDetailed requests the full analysis shape including the
	// Altman Z-Score component breakdown and 5-year timelines
	ModeDetailed AnalysisMode = "detailed"
)

// IsValid reports whether the mode is one of the supported values.
func (m AnalysisMode) IsValid() bool {
	return m == ModeQuick || m == ModeDetailed
}

// Altman Z-Score zone thresholds for the public-manufacturing formula.
// Safe zone > 2.99, grey zone 1.8-2.99, distress zone < 1.8.
const (
	ZScoreSafeThreshold     = 2.99
	ZScoreDistressThreshold = 1.8
)

// ZScoreZone is the categorical risk bucket derived from a continuous score.
type ZScoreZone string

const (
	ZoneSafe     ZScoreZone = "safe"
	ZoneGrey     ZScoreZone = "grey"
	ZoneDistress ZScoreZone = "distress"
	ZoneUnknown  ZScoreZone = "unknown"
)

// ZoneForScore maps a z-score to its zone under the documented thresholds.
func ZoneForScore(score float64) ZScoreZone {
	switch {
	case score > ZScoreSafeThreshold:
		return ZoneSafe
	case score >= ZScoreDistressThreshold:
		return ZoneGrey
	default:
		return ZoneDistress
	}
}

// RiskLevel is the credit risk bucket assigned to a company or portfolio.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// AltmanZScore holds the score, its zone and the model's working.
type AltmanZScore struct {
	Score              *float64           `json:"score"`
	Zone               ZScoreZone         `json:"zone" validate:"omitempty,oneof=safe grey distress unknown"`
	Interpretation     string             `json:"interpretation,omitempty"`
	CalculationDetails map[string]float64 `json:"calculation_details,omitempty"`
}

// LiquidityRatios covers short-term obligation coverage.
type LiquidityRatios struct {
	CurrentRatio *float64 `json:"current_ratio"`
	QuickRatio   *float64 `json:"quick_ratio"`
	CashRatio    *float64 `json:"cash_ratio"`
	Analysis     string   `json:"analysis,omitempty"`
}

// SolvencyRatios covers long-term debt capacity.
type SolvencyRatios struct {
	DebtToEquity        *float64 `json:"debt_to_equity"`
	TimesInterestEarned *float64 `json:"times_interest_earned"`
	DebtServiceCoverage *float64 `json:"debt_service_coverage"`
	Analysis            string   `json:"analysis,omitempty"`
}

// ProfitabilityRatios covers earnings quality.
type ProfitabilityRatios struct {
	ROE             *float64 `json:"roe"`
	ROA             *float64 `json:"roa"`
	GrossMargin     *float64 `json:"gross_margin"`
	NetMargin       *float64 `json:"net_margin"`
	OperatingMargin *float64 `json:"operating_margin"`
	Analysis        string   `json:"analysis,omitempty"`
}

// YearRecord is one entry in a company's financial timeline.
type YearRecord struct {
	Year      int      `json:"year" validate:"required"`
	Revenue   *float64 `json:"revenue"`
	NetIncome *float64 `json:"net_income"`
	TotalDebt *float64 `json:"total_debt"`
	KeyEvents string   `json:"key_events,omitempty"`
}

// RiskAssessment is the qualitative risk narrative for a company.
type RiskAssessment struct {
	CreditRiskLevel   RiskLevel `json:"credit_risk_level" validate:"omitempty,oneof=low medium high"`
	IndustryRisks     []string  `json:"industry_risks,omitempty"`
	MarketPosition    string    `json:"market_position,omitempty"`
	RecentPerformance string    `json:"recent_performance,omitempty"`
}

// CompanyAnalysis is the validated per-company record in detailed mode.
// Only Name is structurally required; the model may omit any metric it
// could not estimate.
type CompanyAnalysis struct {
	Name                string              `json:"name" validate:"required"`
	Ticker              string              `json:"ticker,omitempty"`
	OverallRating       string              `json:"overall_rating,omitempty" validate:"omitempty,oneof=excellent good fair poor critical unknown"`
	RiskLevel           RiskLevel           `json:"risk_level,omitempty" validate:"omitempty,oneof=low medium high"`
	AltmanZScore        AltmanZScore        `json:"altman_z_score"`
	LiquidityRatios     LiquidityRatios     `json:"liquidity_ratios"`
	SolvencyRatios      SolvencyRatios      `json:"solvency_ratios"`
	ProfitabilityRatios ProfitabilityRatios `json:"profitability_ratios"`
	FinancialTimeline   []YearRecord        `json:"financial_timeline,omitempty"`
	RiskAssessment      RiskAssessment      `json:"risk_assessment"`
	KeyStrengths        []string            `json:"key_strengths,omitempty"`
	KeyWeaknesses       []string            `json:"key_weaknesses,omitempty"`
	Recommendations     string              `json:"recommendations,omitempty"`
	FutureOutlook       string              `json:"future_outlook,omitempty"`

	// QuickMetrics carries the compact quick-mode shape when the
	// analysis was requested in quick mode.
	QuickMetrics *QuickMetrics `json:"quick_metrics,omitempty"`
}

// ZoneMismatch reports whether the model's zone label disagrees with the
// zone derived from its own score. Flagged for telemetry, never rejected.
func (c *CompanyAnalysis) ZoneMismatch() bool {
	if c.AltmanZScore.Score == nil {
		return false
	}
	zone := c.AltmanZScore.Zone
	if zone == "" || zone == ZoneUnknown {
		return false
	}
	return zone != ZoneForScore(*c.AltmanZScore.Score)
}

// QuickMetrics is the compact quick-mode payload per company.
type QuickMetrics struct {
	RiskScore      float64            `json:"risk_score" validate:"gte=0,lte=100"`
	KeyMetrics     map[string]float64 `json:"key_metrics,omitempty"`
	Recommendation string             `json:"recommendation,omitempty"`
	Confidence     float64            `json:"confidence" validate:"gte=0,lte=1"`
}

// ZScoreTrendPoint is one point in the portfolio-level z-score trend.
type ZScoreTrendPoint struct {
	Year  int     `json:"year"`
	Score float64 `json:"score"`
}

// PortfolioSummary aggregates a batch of company analyses.
type PortfolioSummary struct {
	AverageRiskLevel        RiskLevel          `json:"average_risk_level,omitempty" validate:"omitempty,oneof=low medium high"`
	DiversificationAnalysis string             `json:"diversification_analysis,omitempty"`
	OverallRecommendations  string             `json:"overall_recommendations,omitempty"`
	ZScoreTrend             []ZScoreTrendPoint `json:"zscore_trend,omitempty"`
}

// AnalysisMetadata records how a result was produced. Immutable once set.
type AnalysisMetadata struct {
	Fingerprint  int64     `json:"fingerprint"`
	Temperature  float32   `json:"temperature"`
	ModelID      string    `json:"model_id"`
	AttemptsUsed int       `json:"attempts_used"`
	ProducedAt   time.Time `json:"produced_at"`
	UsedFallback bool      `json:"used_fallback"`

	// Cache bookkeeping, stamped by the result cache on read/write.
	FromCache bool       `json:"from_cache,omitempty"`
	CachedAt  *time.Time `json:"cached_at,omitempty"`

	// ZoneMismatches counts companies whose zone label disagreed with
	// the zone derived from their score. Telemetry only.
	ZoneMismatches int `json:"zone_mismatches,omitempty"`
}

// AnalysisResult is the top-level validated analysis envelope. Created
// once by the orchestrator and never mutated afterwards; cache refreshes
// replace it wholesale.
type AnalysisResult struct {
	AnalysisDate     string            `json:"analysis_date" validate:"required"`
	Companies        []CompanyAnalysis `json:"companies" validate:"required,min=1,dive"`
	PortfolioSummary *PortfolioSummary `json:"portfolio_summary,omitempty"`
	Metadata         AnalysisMetadata  `json:"metadata"`
}

// Validate validates the result using go-playground/validator.
func (r *AnalysisResult) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// ConsistencyMetadata describes how reproducible a result is expected to
// be, derived from the request parameters and attempt history.
type ConsistencyMetadata struct {
	Seed        int64     `json:"seed"`
	Temperature float32   `json:"temperature"`
	Timestamp   time.Time `json:"timestamp"`
	Attempts    int       `json:"attempts"`
	Score       float64   `json:"score"` // 0-100, higher is more reproducible
}
