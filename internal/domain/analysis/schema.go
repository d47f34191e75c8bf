package analysis

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const resultSchemaJSON = `{
  "type": "object",
  "required": ["findings", "overall", "confidence", "processingTimeMs"],
  "properties": {
    "findings": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["label", "confidence", "severity"],
        "properties": {
          "label": {"type": "string", "minLength": 1},
          "confidence": {"type": "number", "minimum": 0, "maximum": 1},
          "severity": {"enum": ["normal", "mild", "severe"]},
          "boundingBox": {
            "type": "array",
            "items": {"type": "number"},
            "minItems": 4,
            "maxItems": 4
          }
        }
      }
    },
    "overall": {"type": "string", "minLength": 1},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "processingTimeMs": {"type": "integer", "minimum": 0}
  }
}`

var resultSchema = mustSchema(resultSchemaJSON)

func mustSchema(doc string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(doc))
	if err != nil {
		panic(err)
	}
	return s
}

// ValidateResult checks a normalized result against the canonical schema.
// Normalize is built to always satisfy it, so a failure here is a bug in
// the normalizer, not bad provider output.
func ValidateResult(r *Result) error {
	out, err := resultSchema.Validate(gojsonschema.NewGoLoader(r))
	if err != nil {
		return fmt.Errorf("failed to validate: %w", err)
	}
	if !out.Valid() {
		var msgs []string
		for _, desc := range out.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fmt.Errorf("analysis result schema violation: %s", strings.Join(msgs, "; "))
	}
	return nil
}
