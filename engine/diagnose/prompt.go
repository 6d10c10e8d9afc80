package diagnose

import (
	"fmt"
	"strings"

	"github.com/WessleyAI/wessley-dtc/engine/domain"
	"github.com/WessleyAI/wessley-dtc/engine/dtc"
	"github.com/WessleyAI/wessley-dtc/engine/llm"
)

const systemPrompt = `You are an experienced automotive diagnostic technician helping a car owner.
You explain the most likely causes of a problem in plain language and tell the owner how to confirm and fix each one.
Never invent or reinterpret the meaning of a trouble code. When a verified definition is given, it is authoritative.
Never mention prices, costs or labor rates.
Reply with a single JSON object and nothing else.`

const outputSchema = `{
  "summary_title": "short title for the whole problem",
  "causes": [
    {
      "title": "cause name",
      "why": "one line explaining why this is likely",
      "severity": "high | medium | low",
      "difficulty": "easy | moderate | professional",
      "confirm": ["step 1", "step 2", "step 3"],
      "fix": ["step 1", "step 2", "step 3"]
    }
  ]
}`

// buildPrompt renders the model instructions. defs are included verbatim.
func buildPrompt(v domain.Vehicle, codes []string, defs []dtc.Definition, symptoms string, lang domain.Language) llm.Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "Vehicle: %s\n\n", v)

	if len(defs) > 0 {
		b.WriteString("Verified code definitions. These are authoritative: do not redefine, rename or reinterpret them.\n")
		for _, d := range defs {
			fmt.Fprintf(&b, "- %s: %s\n", d.Code, d.Title)
			if d.Description != "" && d.Description != d.Title {
				fmt.Fprintf(&b, "  %s\n", d.Description)
			}
			if d.Make != "" {
				fmt.Fprintf(&b, "  (%s manufacturer code)\n", d.Make)
			}
		}
		b.WriteString("\n")
	}

	if len(codes) > 0 {
		fmt.Fprintf(&b, "Trouble codes: %s\n", strings.Join(codes, ", "))
	}
	if symptoms != "" {
		fmt.Fprintf(&b, "Owner's complaint: %s\n", symptoms)
	}

	b.WriteString("\nList 4 to 6 probable causes ranked from most to least likely. ")
	b.WriteString("Each cause needs a one-line reason, a severity of high, medium or low, ")
	b.WriteString("a difficulty of easy, moderate or professional, exactly 3 steps to confirm it and exactly 3 steps to fix it. ")
	b.WriteString("Do not include any cost or price figures.\n\n")
	fmt.Fprintf(&b, "Write every text value in %s. Keep the JSON keys and the severity and difficulty values in English.\n\n", lang.Name)
	b.WriteString("Respond with JSON matching this schema:\n")
	b.WriteString(outputSchema)

	return llm.Prompt{System: systemPrompt, User: b.String()}
}
