package plan

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const planSchemaJSON = `{
  "type": "object",
  "required": ["patientId", "overview", "severity", "steps", "estimatedDuration", "estimatedCost", "source"],
  "properties": {
    "patientId": {"type": "string", "minLength": 1},
    "overview": {"type": "string", "minLength": 1},
    "severity": {"enum": ["low", "medium", "high"]},
    "steps": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "description", "timeframe"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "description": {"type": "string"},
          "timeframe": {"type": "string"},
          "severity": {"enum": ["low", "medium", "high"]}
        }
      }
    },
    "precautions": {"type": "array", "items": {"type": "string"}},
    "alternatives": {"type": "array", "items": {"type": "string"}},
    "estimatedDuration": {"type": "string", "minLength": 1},
    "estimatedCost": {"type": "string", "minLength": 1},
    "source": {"enum": ["provider", "mock"]}
  }
}`

var planSchema = mustSchema(planSchemaJSON)

func mustSchema(doc string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(doc))
	if err != nil {
		panic(err)
	}
	return s
}

// ValidatePlan checks a finished plan (patient id and source already set)
// against the canonical schema. A failure is a normalizer bug, not bad
// provider output.
func ValidatePlan(p *Plan) error {
	out, err := planSchema.Validate(gojsonschema.NewGoLoader(p))
	if err != nil {
		return fmt.Errorf("failed to validate: %w", err)
	}
	if !out.Valid() {
		var msgs []string
		for _, desc := range out.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fmt.Errorf("treatment plan schema violation: %s", strings.Join(msgs, "; "))
	}
	return nil
}
