package plan

import "errors"

// ErrNoAnalysis means no completed analysis, cached result or mock data
// was available to derive a plan from.
var ErrNoAnalysis = errors.New("no analysis available for patient")
