package chat

import (
	"fmt"
	"strings"

	"github.com/joshuarebo/insmile-ai/internal/domain/ai"
	analysisdomain "github.com/joshuarebo/insmile-ai/internal/domain/analysis"
	plandomain "github.com/joshuarebo/insmile-ai/internal/domain/plan"
)

const maxHistoryTurns = 8

const chatPersona = `You are a dental assistant chatbot inside a clinic management system.
Answer the patient's question in plain, friendly language. Do not output JSON or markdown tables.
Ground your answer in the analysis and treatment plan context below when it is relevant.
Never present yourself as a replacement for a dentist; recommend professional confirmation for clinical decisions.`

func chatPrompt(cmd Command, res *analysisdomain.Result, p *plandomain.Plan) (system, user string) {
	var b strings.Builder
	b.WriteString(chatPersona)
	fmt.Fprintf(&b, "\n\nContext for patient %s:\n", ai.SanitizePrompt(cmd.PatientID))

	if res != nil {
		fmt.Fprintf(&b, "Latest analysis: %s\n", res.Overall)
		for _, f := range res.Findings {
			fmt.Fprintf(&b, "- %s (severity %s, confidence %.2f)\n", f.Label, f.Severity, f.Confidence)
		}
	} else {
		b.WriteString("Latest analysis: none on file.\n")
	}

	if p != nil {
		fmt.Fprintf(&b, "Treatment plan (%s priority): %s\n", p.Severity, p.Overview)
		for _, st := range p.Steps {
			fmt.Fprintf(&b, "- %s (%s)\n", st.Name, st.Timeframe)
		}
	} else {
		b.WriteString("Treatment plan: none on file.\n")
	}

	var u strings.Builder
	history := cmd.History
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	for _, m := range history {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		if role != "assistant" {
			role = "patient"
		}
		fmt.Fprintf(&u, "%s: %s\n", role, ai.SanitizePrompt(m.Content))
	}
	fmt.Fprintf(&u, "patient: %s", ai.SanitizePrompt(cmd.Message))

	return b.String(), u.String()
}

// fallbackAnswer is the canned reply used when the provider cannot be
// reached. It reuses whatever cached context exists so the answer is
// still anchored to this patient.
func fallbackAnswer(res *analysisdomain.Result, p *plandomain.Plan) string {
	var b strings.Builder
	switch {
	case res != nil:
		fmt.Fprintf(&b, "Here is what I have on file. %s", res.Overall)
		if n := len(res.Findings); n > 0 {
			worst := res.Findings[0]
			for _, f := range res.Findings[1:] {
				if severityRank(f.Severity) > severityRank(worst.Severity) {
					worst = f
				}
			}
			fmt.Fprintf(&b, " The analysis lists %d finding(s); the most significant is %q.", n, worst.Label)
		}
	default:
		b.WriteString("I don't have an analysis on file for this patient yet. Submit a scan for analysis and ask me again.")
	}
	if p != nil && len(p.Steps) > 0 {
		fmt.Fprintf(&b, " The current treatment plan is %s priority and starts with %q.", p.Severity, p.Steps[0].Name)
	}
	b.WriteString(" A dentist should confirm any next steps.")
	return b.String()
}

func severityRank(s analysisdomain.Severity) int {
	switch s {
	case analysisdomain.SeveritySevere:
		return 2
	case analysisdomain.SeverityMild:
		return 1
	default:
		return 0
	}
}
