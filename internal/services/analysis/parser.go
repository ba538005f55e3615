package analysis

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"github.com/ternarybob/arbor"

	"github.com/solvency-io/solvency/internal/models"
)

// codeFenceRe matches a markdown code fence wrapping the whole response,
// with or without a language tag.
var codeFenceRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// ResponseParser turns raw model output into a validated AnalysisResult.
// It never panics: every malformed input comes back as a ParseError
// carrying a capped excerpt of the raw response.
type ResponseParser struct {
	logger arbor.ILogger
}

// NewResponseParser creates a parser.
func NewResponseParser(logger arbor.ILogger) *ResponseParser {
	return &ResponseParser{logger: logger}
}

// stripFences removes a wrapping markdown code fence when present and
// trims surrounding whitespace. Content without fences passes through.
func stripFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if m := codeFenceRe.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}
	return trimmed
}

// Parse extracts, repairs and validates the JSON envelope in a raw model
// response.
func (p *ResponseParser) Parse(raw string) (*models.AnalysisResult, error) {
	cleaned := stripFences(raw)
	if cleaned == "" {
		return nil, newParseError("empty response", raw)
	}

	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		// Models sometimes emit almost-JSON: trailing commas, single
		// quotes, unterminated arrays. Repair before giving up.
		repaired, repairErr := jsonrepair.RepairJSON(cleaned)
		if repairErr != nil {
			return nil, newParseError("invalid JSON: "+err.Error(), raw)
		}
		if err := json.Unmarshal([]byte(repaired), &result); err != nil {
			return nil, newParseError("invalid JSON after repair: "+err.Error(), raw)
		}
		p.logger.Debug().
			Int("raw_length", len(raw)).
			Msg("Model response required JSON repair")
	}

	if err := p.validate(&result); err != nil {
		return nil, newParseError(err.Error(), raw)
	}

	return &result, nil
}

// validate enforces the structural contract: at least one company, every
// company named. Metric values are free to be null.
func (p *ResponseParser) validate(result *models.AnalysisResult) error {
	if len(result.Companies) == 0 {
		return errors.New("response contains no companies")
	}
	for i := range result.Companies {
		if strings.TrimSpace(result.Companies[i].Name) == "" {
			return errors.New("company entry missing name")
		}
	}
	if result.AnalysisDate == "" {
		result.AnalysisDate = time.Now().Format("2006-01-02")
	}
	if err := result.Validate(); err != nil {
		return errors.New("schema validation failed: " + err.Error())
	}
	return nil
}
