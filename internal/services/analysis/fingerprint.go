package analysis

import (
	"sort"
	"strings"

	"github.com/solvency-io/solvency/internal/models"
)

// Fingerprint derives a deterministic identity for an analysis request
// from its company names and mode. The same set of companies in any order,
// casing or surrounding whitespace produces the same value; the mode is
// folded in so quick and detailed requests never collide. The result is
// always non-negative and doubles as the reproducibility seed passed to
// the model.
func Fingerprint(companyNames []string, mode models.AnalysisMode) int64 {
	normalized := make([]string, 0, len(companyNames))
	for _, name := range companyNames {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		normalized = append(normalized, name)
	}
	sort.Strings(normalized)

	var sum int64
	for _, name := range normalized {
		var nameSum int64
		for _, r := range name {
			nameSum += int64(r)
		}
		// Folding per name keeps ["ab","c"] distinct from ["a","bc"].
		sum = sum*31 + nameSum
	}

	sum = sum*31 + modeWeight(mode)

	if sum < 0 {
		sum = -sum
	}
	return sum
}

func modeWeight(mode models.AnalysisMode) int64 {
	var w int64
	for _, r := range string(mode) {
		w += int64(r)
	}
	return w
}
