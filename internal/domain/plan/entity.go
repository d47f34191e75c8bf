package plan

import (
	"time"

	"github.com/joshuarebo/insmile-ai/internal/domain/analysis"
)

// Severity enum for the plan as a whole. Finding severities fold into
// this coarser scale.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Step is one ordered treatment action.
type Step struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Timeframe   string   `json:"timeframe"`
	Severity    Severity `json:"severity,omitempty"`
}

// Plan is the canonical treatment plan derived from one analysis. Each
// generation replaces the patient's cached plan.
type Plan struct {
	PatientID         string          `json:"patientId"`
	Overview          string          `json:"overview"`
	Severity          Severity        `json:"severity"`
	Steps             []Step          `json:"steps"`
	Precautions       []string        `json:"precautions,omitempty"`
	Alternatives      []string        `json:"alternatives,omitempty"`
	EstimatedDuration string          `json:"estimatedDuration"`
	EstimatedCost     string          `json:"estimatedCost"`
	Source            analysis.Source `json:"source"`
	GeneratedAt       time.Time       `json:"generatedAt"`
	Heuristic         bool            `json:"heuristic,omitempty"`
}

// LatestStore caches each patient's current plan, last write wins.
type LatestStore interface {
	Put(patientID string, p *Plan)
	Get(patientID string) (*Plan, bool)
}
