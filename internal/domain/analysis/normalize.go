package analysis

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joshuarebo/insmile-ai/internal/domain/ai"
)

var (
	severeRe     = regexp.MustCompile(`(?i)\b(severe|critical|urgent|serious|advanced|extensive|deep|high)\b`)
	mildRe       = regexp.MustCompile(`(?i)\b(mild|minor|moderate|medium|low|slight|early|small)\b`)
	normalRe     = regexp.MustCompile(`(?i)\b(normal|healthy|none|clear|good|intact)\b`)
	negationRe   = regexp.MustCompile(`(?i)\b(no|without)\b`)
	conditionRe  = regexp.MustCompile(`(?i)\b(cavit(?:y|ies)|caries|decay|gingivitis|periodontitis|plaque|tartar|calculus|lesion|fracture|abscess|impact(?:ed|ion)|erosion|recession|infection|misalign\w*|crowding|bone loss|root canal)\b`)
	listPrefixRe = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s+`)
)

// Normalize converts raw model text into a canonical Result. It never
// fails: when no JSON can be recovered, the text-segmentation heuristic
// synthesizes a degenerate result instead.
func Normalize(raw string, elapsed time.Duration) *Result {
	var res *Result
	confSet := false
	if obj, ok := ai.ExtractJSON(raw); ok {
		res, confSet = coerce(obj)
	} else {
		res = fromSegments(raw)
	}
	finalize(res, confSet, elapsed)
	return res
}

// coerce also reports whether the model supplied an overall confidence,
// so an explicit zero is not mistaken for absence downstream.
func coerce(obj map[string]any) (*Result, bool) {
	res := &Result{
		Overall: firstString(obj, "overall", "summary", "overview", "description", "conclusion"),
	}
	confSet := false
	if v, ok := pick(obj, "confidence", "overallConfidence", "score"); ok {
		res.Confidence = ParseConfidence(v)
		confSet = true
	}
	if items, ok := pick(obj, "findings", "issues", "problems", "observations", "conditions"); ok {
		if list, isList := items.([]any); isList {
			for _, item := range list {
				if f, ok := coerceFinding(item); ok {
					res.Findings = append(res.Findings, f)
				}
			}
		}
	}
	return res, confSet
}

func coerceFinding(v any) (Finding, bool) {
	switch item := v.(type) {
	case string:
		s := strings.TrimSpace(item)
		if s == "" {
			return Finding{}, false
		}
		return Finding{
			Label:      truncate(s, 120),
			Confidence: 0.75,
			Severity:   severityFromText(s),
		}, true
	case map[string]any:
		label := firstString(item, "label", "name", "finding", "issue", "condition", "type")
		if label == "" {
			label = truncate(firstString(item, "description", "detail"), 120)
		}
		if label == "" {
			return Finding{}, false
		}
		f := Finding{Label: label}
		if c, ok := pick(item, "confidence", "certainty", "probability"); ok {
			f.Confidence = ParseConfidence(c)
		} else {
			f.Confidence = 0.75
		}
		if s, ok := pick(item, "severity", "level", "grade"); ok {
			f.Severity = ParseSeverity(s)
		} else {
			f.Severity = severityFromText(label + " " + firstString(item, "description"))
		}
		if b, ok := pick(item, "boundingBox", "bbox", "box", "region"); ok {
			f.BoundingBox = coerceBox(b)
		}
		return f, true
	}
	return Finding{}, false
}

// fromSegments is the last-resort extraction: split prose into segments,
// keep those that read like findings, use the rest as the summary.
func fromSegments(raw string) *Result {
	res := &Result{Heuristic: true}
	var summary []string
	for _, seg := range ai.SplitSegments(raw) {
		seg = listPrefixRe.ReplaceAllString(seg, "")
		if f, ok := classifySegment(seg); ok {
			res.Findings = append(res.Findings, f)
		} else if len(summary) < 2 {
			summary = append(summary, seg)
		}
	}
	switch {
	case len(summary) > 0:
		res.Overall = truncate(strings.Join(summary, " "), 300)
	case len(res.Findings) > 0:
		res.Overall = fmt.Sprintf("Heuristic extraction found %d possible finding(s) in unstructured model output.", len(res.Findings))
	default:
		res.Overall = "Model output contained no recognizable findings."
		res.Findings = []Finding{{Label: "unparsed model output", Confidence: 0.3, Severity: SeverityMild}}
	}
	return res
}

func classifySegment(seg string) (Finding, bool) {
	if !conditionRe.MatchString(seg) && !severeRe.MatchString(seg) && !mildRe.MatchString(seg) {
		return Finding{}, false
	}
	sev := severityFromText(seg)
	if sev == SeverityMild && negationRe.MatchString(seg) && !mildRe.MatchString(seg) {
		sev = SeverityNormal
	}
	return Finding{
		Label:      truncate(firstSentence(seg), 120),
		Confidence: 0.5,
		Severity:   sev,
	}, true
}

func finalize(res *Result, confSet bool, elapsed time.Duration) {
	if res.Findings == nil {
		res.Findings = []Finding{}
	}
	for i := range res.Findings {
		res.Findings[i].Confidence = clampConfidence(res.Findings[i].Confidence)
		if res.Findings[i].Severity == "" {
			res.Findings[i].Severity = SeverityMild
		}
	}
	if res.Overall == "" {
		if len(res.Findings) == 0 {
			res.Overall = "No findings reported by the model."
		} else {
			res.Overall = fmt.Sprintf("%d finding(s) reported.", len(res.Findings))
		}
	}
	if !confSet {
		res.Confidence = aggregateConfidence(res.Findings)
	}
	res.Confidence = clampConfidence(res.Confidence)
	res.ProcessingTimeMs = elapsed.Milliseconds()
	if res.ProcessingTimeMs < 0 {
		res.ProcessingTimeMs = 0
	}
}

func aggregateConfidence(findings []Finding) float64 {
	if len(findings) == 0 {
		return 0.3
	}
	var sum float64
	for _, f := range findings {
		sum += f.Confidence
	}
	return sum / float64(len(findings))
}

// ParseConfidence maps whatever the model put in a confidence slot to a
// float in [0,1]. Qualitative labels use fixed constants: high 0.9,
// medium 0.7, low 0.5, anything else 0.75. Numbers above 1 are read as
// percentages.
func ParseConfidence(v any) float64 {
	switch c := v.(type) {
	case float64:
		return clampConfidence(c)
	case int:
		return clampConfidence(float64(c))
	case string:
		s := strings.ToLower(strings.TrimSpace(c))
		s = strings.TrimSuffix(s, "%")
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return clampConfidence(f)
		}
		switch s {
		case "high":
			return 0.9
		case "medium":
			return 0.7
		case "low":
			return 0.5
		}
	}
	return 0.75
}

func clampConfidence(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0.75
	}
	// 2..100 reads as a percentage; just over 1 is a float that overshot.
	if f >= 2 && f <= 100 {
		f /= 100
	}
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// ParseSeverity folds whatever scale the model used into the three-level
// enum.
func ParseSeverity(v any) Severity {
	s, _ := v.(string)
	return severityFromText(s)
}

func severityFromText(s string) Severity {
	switch {
	case severeRe.MatchString(s):
		return SeveritySevere
	case mildRe.MatchString(s):
		return SeverityMild
	case normalRe.MatchString(s):
		return SeverityNormal
	default:
		return SeverityMild
	}
}

func coerceBox(v any) []float64 {
	switch b := v.(type) {
	case []any:
		if len(b) < 4 {
			return nil
		}
		box := make([]float64, 0, 4)
		for _, n := range b[:4] {
			f, ok := toFloat(n)
			if !ok {
				return nil
			}
			box = append(box, f)
		}
		return box
	case map[string]any:
		box := make([]float64, 0, 4)
		for _, k := range []string{"x", "y", "width", "height"} {
			f, ok := toFloat(b[k])
			if !ok {
				return nil
			}
			box = append(box, f)
		}
		return box
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func pick(obj map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
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
