package dtc

import (
	"regexp"
	"strings"

	"github.com/WessleyAI/wessley-dtc/pkg/fn"
)

var mentionRe = regexp.MustCompile(`(?i)\b[PBCU][0-9A-F]{4}\b`)

// ExtractCodes returns generic-shaped codes mentioned in free text,
// uppercased and de-duplicated in first-seen order.
func ExtractCodes(text string) []string {
	found := mentionRe.FindAllString(text, -1)
	return fn.Unique(fn.Map(found, strings.ToUpper))
}

// Extracted is a code pulled out of free text plus a display title. Found is
// false when Title is only a category label.
type Extracted struct {
	Code  string `json:"code"`
	Title string `json:"title"`
	Found bool   `json:"found"`
}

// ClassifyExtracted labels an extracted code, falling back to a category
// label when the reference has no entry for it.
func ClassifyExtracted(code string) Extracted {
	code = Normalize(code)
	if d, ok := LookupGeneric(code); ok {
		return Extracted{Code: code, Title: d.Title, Found: true}
	}
	system := SystemOf(code)
	if system == "" {
		system = "System"
	}
	label := "Unknown " + system + " Code"
	if StandardOf(code) == StandardManufacturer {
		label = "Manufacturer-Specific " + system + " Code"
	}
	return Extracted{Code: code, Title: label}
}
