package prompt

// guidance returns what to prioritize for one scan type. Unknown types get
// the general screening instruction.
func guidance(scanType string) string {
	switch scanType {
	case "panoramic":
		return "Check all quadrants: caries, periapical lesions, impacted or missing teeth, bone levels, and TMJ asymmetry."
	case "bitewing":
		return "Focus on interproximal caries, existing restorations and their margins, and crestal bone height."
	case "periapical":
		return "Focus on the periapical region: radiolucencies, root morphology, canal anatomy, and the lamina dura."
	case "cephalometric":
		return "Assess skeletal relationships, soft tissue profile, and airway space."
	case "cbct":
		return "Report bone density and volume, proximity to the inferior alveolar nerve and sinus floor, and any incidental pathology."
	case "intraoral":
		return "Report visible caries, plaque and calculus, gingival condition, and soft tissue lesions."
	default:
		return "Report any caries, periodontal changes, periapical pathology, or other abnormality you can identify."
	}
}
