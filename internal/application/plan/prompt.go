package plan

import (
	"fmt"
	"strings"

	"github.com/joshuarebo/insmile-ai/internal/domain/ai"
	analysisdomain "github.com/joshuarebo/insmile-ai/internal/domain/analysis"
)

const planSystemPrompt = `You are a dental treatment planning assistant for a clinic management system.
You are given the structured findings of a dental scan analysis and must produce a treatment plan.

Respond with a single JSON object and nothing else, matching exactly:
{
  "overview": "one paragraph summary of the plan",
  "severity": "low" | "medium" | "high",
  "steps": [
    {"name": "...", "description": "...", "timeframe": "...", "severity": "low" | "medium" | "high"}
  ],
  "precautions": ["..."],
  "alternatives": ["..."],
  "estimatedDuration": "human readable range",
  "estimatedCost": "human readable range"
}

Rules:
- Output valid JSON only. No markdown fences, no commentary before or after.
- Order steps by clinical priority.
- Base every step on the findings provided; do not invent findings.
- Keep cost and duration as honest ranges, not single numbers.`

func planPrompt(cmd GenerateCommand, res *analysisdomain.Result) (system, user string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Patient ID: %s\n", ai.SanitizePrompt(cmd.PatientID))
	if cmd.Notes != "" {
		fmt.Fprintf(&b, "Patient notes: %s\n", ai.SanitizePrompt(cmd.Notes))
	}
	fmt.Fprintf(&b, "Analysis summary: %s\n", res.Overall)
	fmt.Fprintf(&b, "Aggregate confidence: %.2f\n", res.Confidence)
	b.WriteString("Findings:\n")
	if len(res.Findings) == 0 {
		b.WriteString("- none reported\n")
	}
	for _, f := range res.Findings {
		fmt.Fprintf(&b, "- %s (severity %s, confidence %.2f)\n", f.Label, f.Severity, f.Confidence)
	}
	b.WriteString("\nProduce the treatment plan JSON now.")
	return planSystemPrompt, b.String()
}
