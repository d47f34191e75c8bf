package analysis

// MockResult returns a canned analysis used when the provider is skipped or
// fails and fallback is allowed. Deterministic per scan type so demo flows
// are stable across polls.
func MockResult(scanType ScanType) *Result {
	res := &Result{
		Overall:          "Mock analysis: moderate decay on the lower right first molar and early gum inflammation. Review with a dentist is recommended.",
		Confidence:       0.82,
		ProcessingTimeMs: 120,
		Findings: []Finding{
			{Label: "Caries on tooth 46 (occlusal surface)", Confidence: 0.88, Severity: SeveritySevere, BoundingBox: []float64{412, 318, 64, 58}},
			{Label: "Mild gingivitis, lower anterior region", Confidence: 0.74, Severity: SeverityMild},
		},
	}
	switch scanType {
	case ScanPanoramic:
		res.Findings = append(res.Findings, Finding{
			Label: "Impacted third molar (48), mesioangular", Confidence: 0.79, Severity: SeverityMild, BoundingBox: []float64{612, 402, 90, 84},
		})
	case ScanBitewing:
		res.Findings = append(res.Findings, Finding{
			Label: "Interproximal caries between 24 and 25", Confidence: 0.81, Severity: SeverityMild,
		})
	case ScanPeriapical:
		res.Findings = append(res.Findings, Finding{
			Label: "Periapical radiolucency at tooth 36", Confidence: 0.77, Severity: SeveritySevere,
		})
	case ScanCBCT:
		res.Findings = append(res.Findings, Finding{
			Label: "Reduced bone density, posterior mandible", Confidence: 0.7, Severity: SeverityMild,
		})
	case ScanCephalometric:
		res.Findings = append(res.Findings, Finding{
			Label: "Skeletal class II tendency", Confidence: 0.72, Severity: SeverityMild,
		})
	case ScanIntraoral:
		res.Findings = append(res.Findings, Finding{
			Label: "Plaque accumulation on lingual surfaces", Confidence: 0.83, Severity: SeverityMild,
		})
	}
	return res
}
