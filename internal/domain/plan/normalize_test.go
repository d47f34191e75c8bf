package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuarebo/insmile-ai/internal/domain/analysis"
)

func TestNormalize_WellFormedPlanJSON(t *testing.T) {
	raw := "```json\n" + `{
  "overview": "Restore tooth 46 and stabilize gum health.",
  "severity": "high",
  "steps": [
    {"name": "Root canal therapy", "description": "Treat the deep carious lesion on 46.", "timeframe": "within 1 week", "severity": "high"},
    {"name": "Crown placement", "description": "Protect the treated tooth.", "timeframe": "2-3 weeks"}
  ],
  "precautions": ["Avoid chewing on the right side"],
  "alternatives": ["Extraction with implant placement"],
  "estimatedDuration": "3-4 weeks",
  "estimatedCost": "$800 - $1500"
}` + "\n```"

	p := Normalize(raw)
	p.PatientID = "p1"
	p.Source = analysis.SourceProvider

	assert.Equal(t, SeverityHigh, p.Severity)
	require.Len(t, p.Steps, 2)
	assert.Equal(t, "Root canal therapy", p.Steps[0].Name)
	assert.Equal(t, "within 1 week", p.Steps[0].Timeframe)
	assert.Equal(t, "2-3 weeks", p.Steps[1].Timeframe)
	assert.Empty(t, p.Steps[1].Severity)
	assert.NoError(t, ValidatePlan(p))
}

func TestNormalize_ProseFallback(t *testing.T) {
	raw := `The patient needs prompt attention for the severe cavity.

1. Book an urgent restorative appointment.
2. Complete a professional cleaning.

Keep sugary drinks to a minimum meanwhile.`

	p := Normalize(raw)
	p.PatientID = "p1"
	p.Source = analysis.SourceProvider

	assert.True(t, p.Heuristic)
	assert.Equal(t, SeverityHigh, p.Severity)
	assert.Contains(t, p.Overview, "prompt attention")
	require.GreaterOrEqual(t, len(p.Steps), 2)
	assert.Equal(t, "as advised", p.Steps[0].Timeframe)
	assert.NoError(t, ValidatePlan(p))
}

func TestNormalize_EmptyInputStillValid(t *testing.T) {
	p := Normalize("")
	p.PatientID = "p1"
	p.Source = analysis.SourceMock

	require.NotEmpty(t, p.Steps)
	assert.NotEmpty(t, p.Overview)
	assert.Equal(t, SeverityMedium, p.Severity)
	assert.NotEmpty(t, p.EstimatedDuration)
	assert.NotEmpty(t, p.EstimatedCost)
	assert.NoError(t, ValidatePlan(p))
}

func TestNormalize_StringSteps(t *testing.T) {
	raw := `{"recommendations": ["Deep cleaning of lower quadrant", "Fluoride varnish application"], "summary": "Routine care", "urgency": "low"}`

	p := Normalize(raw)
	p.PatientID = "p9"
	p.Source = analysis.SourceProvider

	require.Len(t, p.Steps, 2)
	assert.Equal(t, "Deep cleaning of lower quadrant", p.Steps[0].Name)
	assert.Equal(t, SeverityLow, p.Severity)
	assert.Equal(t, "Routine care", p.Overview)
	assert.NoError(t, ValidatePlan(p))
}

func TestParseSeverity(t *testing.T) {
	cases := []struct {
		in   any
		want Severity
	}{
		{"high", SeverityHigh},
		{"urgent", SeverityHigh},
		{"moderate", SeverityMedium},
		{"low", SeverityLow},
		{"routine", SeverityLow},
		{"", SeverityMedium},
		{nil, SeverityMedium},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseSeverity(tc.in), "input %v", tc.in)
	}
}

func TestFromFindings(t *testing.T) {
	assert.Equal(t, SeverityLow, FromFindings(nil))
	assert.Equal(t, SeverityLow, FromFindings([]analysis.Finding{{Severity: analysis.SeverityNormal}}))
	assert.Equal(t, SeverityMedium, FromFindings([]analysis.Finding{{Severity: analysis.SeverityMild}}))
	assert.Equal(t, SeverityHigh, FromFindings([]analysis.Finding{
		{Severity: analysis.SeverityMild},
		{Severity: analysis.SeveritySevere},
	}))
}

func TestMockPlan_FollowsAnalysisSeverity(t *testing.T) {
	res := &analysis.Result{Findings: []analysis.Finding{{Label: "caries", Severity: analysis.SeveritySevere, Confidence: 0.9}}}

	p := MockPlan("p2", res)

	assert.Equal(t, "p2", p.PatientID)
	assert.Equal(t, analysis.SourceMock, p.Source)
	assert.Equal(t, SeverityHigh, p.Severity)
	assert.NoError(t, ValidatePlan(p))
}

func TestMockPlan_NoAnalysis(t *testing.T) {
	p := MockPlan("p3", nil)

	assert.Equal(t, SeverityMedium, p.Severity)
	assert.NoError(t, ValidatePlan(p))
}
