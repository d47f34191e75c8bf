package plan

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/joshuarebo/insmile-ai/internal/domain/ai"
	"github.com/joshuarebo/insmile-ai/internal/domain/analysis"
)

var (
	planHighRe   = regexp.MustCompile(`(?i)\b(high|severe|critical|urgent|immediate|serious)\b`)
	planMediumRe = regexp.MustCompile(`(?i)\b(medium|moderate|mild)\b`)
	planLowRe    = regexp.MustCompile(`(?i)\b(low|minor|routine|normal|preventive)\b`)
	listPrefixRe = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s+`)
)

// Normalize converts raw model text into a canonical Plan. Like analysis
// normalization it never fails; prose is folded into overview and steps.
// PatientID, Source and GeneratedAt are the caller's to set.
func Normalize(raw string) *Plan {
	var p *Plan
	if obj, ok := ai.ExtractJSON(raw); ok {
		p = coerce(obj)
	} else {
		p = fromSegments(raw)
	}
	finalize(p)
	return p
}

func coerce(obj map[string]any) *Plan {
	p := &Plan{
		Overview:          firstString(obj, "overview", "overall", "summary", "description"),
		EstimatedDuration: firstString(obj, "estimatedDuration", "duration", "timeline"),
		EstimatedCost:     firstString(obj, "estimatedCost", "cost", "costEstimate"),
		Precautions:       stringList(pickAny(obj, "precautions", "warnings", "cautions")),
		Alternatives:      stringList(pickAny(obj, "alternatives", "options", "alternativeTreatments")),
	}
	if v, ok := pick(obj, "severity", "priority", "urgency"); ok {
		p.Severity = ParseSeverity(v)
	}
	if items, ok := pick(obj, "steps", "plan", "treatments", "procedures", "recommendations"); ok {
		if list, isList := items.([]any); isList {
			for _, item := range list {
				if s, ok := coerceStep(item); ok {
					p.Steps = append(p.Steps, s)
				}
			}
		}
	}
	return p
}

func coerceStep(v any) (Step, bool) {
	switch item := v.(type) {
	case string:
		s := strings.TrimSpace(item)
		if s == "" {
			return Step{}, false
		}
		return Step{Name: truncate(firstSentence(s), 80), Description: s}, true
	case map[string]any:
		st := Step{
			Name:        firstString(item, "name", "step", "title", "procedure", "treatment"),
			Description: firstString(item, "description", "details", "desc", "notes"),
			Timeframe:   firstString(item, "timeframe", "timeline", "duration", "when"),
		}
		if sv, ok := pick(item, "severity", "priority", "urgency"); ok {
			st.Severity = ParseSeverity(sv)
		}
		if st.Name == "" {
			st.Name = truncate(st.Description, 80)
		}
		if st.Name == "" {
			return Step{}, false
		}
		return st, true
	}
	return Step{}, false
}

// fromSegments folds prose into a plan: first segment becomes the
// overview, the rest become ordered steps.
func fromSegments(raw string) *Plan {
	p := &Plan{Heuristic: true}
	segs := ai.SplitSegments(raw)
	if len(segs) > 0 {
		p.Overview = truncate(listPrefixRe.ReplaceAllString(segs[0], ""), 300)
		for _, seg := range segs[1:] {
			seg = listPrefixRe.ReplaceAllString(seg, "")
			p.Steps = append(p.Steps, Step{
				Name:        truncate(firstSentence(seg), 80),
				Description: seg,
			})
		}
	}
	p.Severity = severityFromText(raw)
	return p
}

func finalize(p *Plan) {
	if p.Overview == "" {
		p.Overview = "Treatment plan generated from the latest analysis."
	}
	if p.Severity == "" {
		p.Severity = SeverityMedium
	}
	if len(p.Steps) == 0 {
		p.Steps = []Step{{
			Name:        "Comprehensive dental examination",
			Description: "Full clinical examination to confirm findings and stage treatment.",
		}}
	}
	for i := range p.Steps {
		if p.Steps[i].Name == "" {
			p.Steps[i].Name = fmt.Sprintf("Treatment step %d", i+1)
		}
		if p.Steps[i].Description == "" {
			p.Steps[i].Description = p.Steps[i].Name
		}
		if p.Steps[i].Timeframe == "" {
			p.Steps[i].Timeframe = "as advised"
		}
	}
	if p.EstimatedDuration == "" {
		p.EstimatedDuration = "2-6 weeks"
	}
	if p.EstimatedCost == "" {
		p.EstimatedCost = "varies by treatment"
	}
}

// ParseSeverity folds whatever scale the model used into low/medium/high.
func ParseSeverity(v any) Severity {
	s, _ := v.(string)
	return severityFromText(s)
}

func severityFromText(s string) Severity {
	switch {
	case planHighRe.MatchString(s):
		return SeverityHigh
	case planMediumRe.MatchString(s):
		return SeverityMedium
	case planLowRe.MatchString(s):
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// FromFindings derives the plan severity from analysis finding severities.
func FromFindings(findings []analysis.Finding) Severity {
	sev := SeverityLow
	for _, f := range findings {
		switch f.Severity {
		case analysis.SeveritySevere:
			return SeverityHigh
		case analysis.SeverityMild:
			sev = SeverityMedium
		}
	}
	return sev
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []any:
		var out []string
		for _, item := range list {
			switch s := item.(type) {
			case string:
				if t := strings.TrimSpace(s); t != "" {
					out = append(out, t)
				}
			case map[string]any:
				if t := firstString(s, "name", "description", "text"); t != "" {
					out = append(out, t)
				}
			}
		}
		return out
	case string:
		if t := strings.TrimSpace(list); t != "" {
			return []string{t}
		}
	}
	return nil
}

func pick(obj map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func pickAny(obj map[string]any, keys ...string) any {
	v, _ := pick(obj, keys...)
	return v
}

func firstString(obj map[string]any, keys ...string) string {
	if v, ok := pick(obj, keys...); ok {
		if s, isStr := v.(string); isStr {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func firstSentence(s string) string {
	if i := strings.IndexAny(s, ".;\n"); i > 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "..."
}
