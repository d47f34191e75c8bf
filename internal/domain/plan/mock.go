package plan

import (
	"fmt"

	"github.com/joshuarebo/insmile-ai/internal/domain/analysis"
)

// MockPlan returns a canned treatment plan used when the provider is
// skipped or fails and fallback is allowed. When an analysis is on hand
// the plan severity and overview follow its findings.
func MockPlan(patientID string, res *analysis.Result) *Plan {
	sev := SeverityMedium
	overview := "Preventive care plan based on standard dental guidelines."
	if res != nil {
		sev = FromFindings(res.Findings)
		overview = fmt.Sprintf("Plan addressing %d finding(s) from the most recent scan analysis.", len(res.Findings))
	}

	p := &Plan{
		PatientID:         patientID,
		Overview:          overview,
		Severity:          sev,
		Source:            analysis.SourceMock,
		EstimatedDuration: "2-6 weeks",
		EstimatedCost:     "$150 - $600 depending on treatment",
		Precautions: []string{
			"Avoid very hot or cold food until sensitive areas are treated",
			"Maintain twice-daily brushing with fluoride toothpaste",
		},
		Alternatives: []string{
			"Fluoride varnish program if restorative work is deferred",
		},
	}

	switch sev {
	case SeverityHigh:
		p.Steps = []Step{
			{Name: "Urgent restorative consult", Description: "Address the severe finding before it progresses.", Timeframe: "within 1 week", Severity: SeverityHigh},
			{Name: "Restoration or root canal therapy", Description: "Definitive treatment of the affected tooth.", Timeframe: "1-2 weeks", Severity: SeverityHigh},
			{Name: "Post-treatment review", Description: "Confirm healing and adjust the plan.", Timeframe: "4-6 weeks", Severity: SeverityLow},
		}
	case SeverityMedium:
		p.Steps = []Step{
			{Name: "Professional cleaning", Description: "Scaling and polishing to control plaque and early inflammation.", Timeframe: "within 2 weeks", Severity: SeverityMedium},
			{Name: "Targeted restoration", Description: "Fill early carious lesions identified on the scan.", Timeframe: "2-4 weeks", Severity: SeverityMedium},
			{Name: "Oral hygiene coaching", Description: "Technique review and interdental cleaning guidance.", Timeframe: "same visit", Severity: SeverityLow},
		}
	default:
		p.Steps = []Step{
			{Name: "Routine cleaning", Description: "Standard prophylaxis appointment.", Timeframe: "within 1 month", Severity: SeverityLow},
			{Name: "Six-month recall", Description: "Regular check-up and bitewing review.", Timeframe: "6 months", Severity: SeverityLow},
		}
	}
	return p
}
