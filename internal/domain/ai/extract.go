package ai

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fenceRe         = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")
	thinkRe         = regexp.MustCompile(`(?s)<think>.*?</think>`)
	lineCommentRe   = regexp.MustCompile(`(?m)^\s*//[^\n]*$`)
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	segmentSplitRe  = regexp.MustCompile(`\n\s*\n|\n\s*(?:\d+[.)]|[-*•])\s+`)
)

// ExtractJSON digs a JSON object out of free-form model output. Layers, in
// order: fenced code blocks, then balanced {...} spans widest-first, each
// candidate run through a deterministic cleaning pass and, on parse failure,
// one aggressive strip-and-retry. ok is false only when every layer fails;
// callers then fall back to text segmentation.
func ExtractJSON(raw string) (map[string]any, bool) {
	raw = StripReasoning(raw)
	for _, candidate := range candidates(raw) {
		if obj, ok := tryParse(candidate); ok {
			return obj, true
		}
	}
	return nil, false
}

func candidates(raw string) []string {
	var out []string
	for _, m := range fenceRe.FindAllStringSubmatch(raw, -1) {
		if inner := strings.TrimSpace(m[1]); strings.Contains(inner, "{") {
			out = append(out, inner)
		}
	}
	return append(out, braceSpans(raw)...)
}

// braceSpans returns substrings from the first '{' to each '}' after it,
// widest first. Models often trail prose after the object, so the right
// closer is rarely the last byte.
func braceSpans(raw string) []string {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return nil
	}
	var spans []string
	for end := len(raw) - 1; end > start; end-- {
		if raw[end] == '}' {
			spans = append(spans, raw[start:end+1])
		}
	}
	return spans
}

func tryParse(candidate string) (map[string]any, bool) {
	cleaned := CleanJSON(candidate)
	var obj map[string]any
	if err := json.Unmarshal([]byte(cleaned), &obj); err == nil {
		return obj, true
	}
	if err := json.Unmarshal([]byte(aggressiveClean(cleaned)), &obj); err == nil {
		return obj, true
	}
	return nil, false
}

// CleanJSON applies the deterministic cleanup pass: normalize line endings,
// drop full-line // comments, strip trailing commas before } or ].
func CleanJSON(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = lineCommentRe.ReplaceAllString(s, "")
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}

// aggressiveClean is the last pass before a candidate is abandoned: drop
// non-printable bytes and re-strip trailing commas.
func aggressiveClean(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' || (r >= 0x20 && r != 0x7f) {
			b.WriteRune(r)
		}
	}
	return trailingCommaRe.ReplaceAllString(b.String(), "$1")
}

// StripReasoning removes <think> blocks some models wrap around their
// working notes before the answer.
func StripReasoning(s string) string {
	return strings.TrimSpace(thinkRe.ReplaceAllString(s, ""))
}

// SplitSegments breaks prose into paragraph and list-item segments for
// heuristic extraction when no JSON can be recovered.
func SplitSegments(raw string) []string {
	var out []string
	for _, seg := range segmentSplitRe.Split(StripReasoning(raw), -1) {
		if seg = strings.TrimSpace(seg); len(seg) >= 3 {
			out = append(out, seg)
		}
	}
	return out
}
