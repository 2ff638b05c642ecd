package orchestrator

import (
	"regexp"
	"strings"
)

// Quality scoring for progressive search. The first fast pass is
// scored heuristically; a low score is a soft failure that triggers
// one escalation, not an error.

var (
	numberedSectionRe = regexp.MustCompile(`(?m)^\s*\d+[.)]\s`)
	staleMarkerRe     = regexp.MustCompile(`(?i)(as of my (last|knowledge)|i (don't|do not) have (access|real-time)|cannot browse)`)
	errorMarkerRe     = regexp.MustCompile(`(?i)(failed to fetch|error retrieving|no results found|unavailable)`)
)

// scoreQuality rates search output in [0,1]: length and source-count
// bonuses, staleness and error penalties.
func scoreQuality(content string) float64 {
	score := 0.5

	trimmed := strings.TrimSpace(content)
	if len(trimmed) > 800 {
		score += 0.2
	} else if len(trimmed) > 300 {
		score += 0.1
	} else if len(trimmed) < 80 {
		score -= 0.2
	}

	// Numbered section headers approximate distinct sources covered.
	sections := len(numberedSectionRe.FindAllString(content, 6))
	if sections > 5 {
		sections = 5
	}
	score += float64(sections) * 0.04

	if staleMarkerRe.MatchString(content) {
		score -= 0.3
	}
	if errorMarkerRe.MatchString(content) {
		score -= 0.2
	}

	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}
