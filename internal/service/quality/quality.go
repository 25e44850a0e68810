// Package quality implements the ingestion-time quality gate: heuristic
// scoring of raw issue text into the q_score signal used by ranking and
// pruning. Pure functions, no I/O.
package quality

import "strings"

// DefaultThreshold is the inclusive q_score boundary for passing the gate.
const DefaultThreshold = 0.6

// Components are the per-issue quality sub-signals extracted from text.
type Components struct {
	HasCode    bool    `json:"has_code"`
	HasHeaders bool    `json:"has_headers"`
	TechWeight float64 `json:"tech_weight"` // in [0, 1]
	IsJunk     bool    `json:"is_junk"`
}

// ExtractComponents detects the quality sub-signals in an issue's title and
// body. language selects the technical keyword set; unknown languages use
// the default set.
func ExtractComponents(title, body, language string) Components {
	hasCode := strings.Contains(body, "```")

	bodyLower := strings.ToLower(body)
	hasHeaders := false
	for _, h := range templateHeaders {
		if strings.Contains(bodyLower, strings.ToLower(h)) {
			hasHeaders = true
			break
		}
	}

	keywords, ok := techKeywordsByLanguage[language]
	if !ok {
		keywords = defaultTechKeywords
	}
	combined := strings.ToLower(title + " " + body)
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(combined, strings.ToLower(kw)) {
			hits++
		}
	}
	// Three keyword hits saturate the signal.
	techWeight := float64(hits) / 3.0
	if techWeight > 1.0 {
		techWeight = 1.0
	}

	isJunk := false
	for _, p := range junkPhrases {
		if strings.Contains(bodyLower, p) {
			isJunk = true
			break
		}
	}

	return Components{
		HasCode:    hasCode,
		HasHeaders: hasHeaders,
		TechWeight: techWeight,
		IsJunk:     isJunk,
	}
}

// ComputeQScore combines the sub-signals into a single quality score.
// Not clamped: a junk-only issue legitimately scores -0.5.
func ComputeQScore(c Components) float64 {
	score := 0.2 * c.TechWeight
	if c.HasCode {
		score += 0.4
	}
	if c.HasHeaders {
		score += 0.3
	}
	if c.IsJunk {
		score -= 0.5
	}
	return score
}

// PassesGate reports whether score clears the threshold (inclusive).
func PassesGate(score, threshold float64) bool {
	return score >= threshold
}

// EvaluateIssue extracts components, computes the q_score, and applies the
// default gate threshold in one call. Used by the ingestion pipeline.
func EvaluateIssue(title, body, language string) (score float64, passes bool) {
	c := ExtractComponents(title, body, language)
	score = ComputeQScore(c)
	return score, PassesGate(score, DefaultThreshold)
}
