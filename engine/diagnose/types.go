// Package diagnose builds a diagnosis for one vehicle from trouble codes or
// symptom text. Codes are resolved to verified definitions before the model
// is called, and those definitions are written back over whatever the model
// returns.
package diagnose

import (
	"strings"

	"github.com/WessleyAI/wessley-dtc/engine/domain"
	"github.com/WessleyAI/wessley-dtc/engine/dtc"
	"github.com/WessleyAI/wessley-dtc/engine/resolve"
)

// Request is the inbound diagnosis request.
type Request struct {
	Code     string `json:"code,omitempty"`
	Symptoms string `json:"symptoms,omitempty"`
	domain.Vehicle
	Lang string `json:"lang,omitempty"`
}

// Severity tiers.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// Difficulty tiers.
const (
	DifficultyEasy         = "easy"
	DifficultyModerate     = "moderate"
	DifficultyProfessional = "professional"
)

// Cause is one ranked probable cause.
type Cause struct {
	Title      string   `json:"title"`
	Why        string   `json:"why"`
	Severity   string   `json:"severity"`
	Difficulty string   `json:"difficulty"`
	Confirm    []string `json:"confirm"`
	Fix        []string `json:"fix"`
}

// Input echoes what the caller asked about.
type Input struct {
	Code     string `json:"code"`
	Symptoms string `json:"symptoms"`
}

// Diagnosis is the structured result returned to the caller.
type Diagnosis struct {
	Vehicle         domain.Vehicle   `json:"vehicle"`
	Input           Input            `json:"input"`
	Causes          []Cause          `json:"causes"`
	CodeDefinition  *dtc.Definition  `json:"code_definition,omitempty"`
	CodeDefinitions []dtc.Definition `json:"code_definitions,omitempty"`
	SummaryTitle    string           `json:"summary_title,omitempty"`
	Lookup          *resolve.View    `json:"dtcLookup,omitempty"`
	MentionedCodes  []dtc.Extracted  `json:"mentioned_codes,omitempty"`
	Language        string           `json:"language"`
}

// SplitCodes splits a comma separated code list, dropping empty entries. If
// nothing is left the trimmed raw string is the only code, unless it is
// empty too.
func SplitCodes(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		if p := strings.TrimSpace(raw); p != "" {
			out = []string{p}
		}
	}
	return out
}
