package analysis

import (
	"fmt"
	"strings"
	"time"
)

// JobID keys a tracked analysis job. Submissions reuse the scan id, so a
// resubmitted scan addresses the same job slot.
type JobID string

// ScanType enum
type ScanType string

const (
	ScanPanoramic     ScanType = "panoramic"
	ScanBitewing      ScanType = "bitewing"
	ScanPeriapical    ScanType = "periapical"
	ScanCephalometric ScanType = "cephalometric"
	ScanCBCT          ScanType = "cbct"
	ScanIntraoral     ScanType = "intraoral"
)

// ParseScanType folds case and validates against the known scan types.
func ParseScanType(s string) (ScanType, error) {
	t := ScanType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case ScanPanoramic, ScanBitewing, ScanPeriapical, ScanCephalometric, ScanCBCT, ScanIntraoral:
		return t, nil
	}
	return "", fmt.Errorf("unknown scan type %q (allowed: panoramic, bitewing, periapical, cephalometric, cbct, intraoral)", s)
}

// Status enum
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status is absorbing.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Source tags where a response came from.
type Source string

const (
	SourceProvider Source = "provider"
	SourceMock     Source = "mock"
	SourceFallback Source = "fallback"
	SourceError    Source = "error"
)

// Severity enum for findings
type Severity string

const (
	SeverityNormal Severity = "normal"
	SeverityMild   Severity = "mild"
	SeveritySevere Severity = "severe"
)

// Finding is a single observation on a scan.
type Finding struct {
	Label       string    `json:"label"`
	Confidence  float64   `json:"confidence"`
	Severity    Severity  `json:"severity"`
	BoundingBox []float64 `json:"boundingBox,omitempty"` // x, y, w, h
}

// Result is the canonical analysis for one scan. Findings is never nil;
// when it is empty, Overall says why.
type Result struct {
	Findings         []Finding `json:"findings"`
	Overall          string    `json:"overall"`
	Confidence       float64   `json:"confidence"`
	ProcessingTimeMs int64     `json:"processingTimeMs"`
	Heuristic        bool      `json:"heuristic,omitempty"`
}

// Aggregate Root: Job
type Job struct {
	ID        JobID     `json:"id"`
	PatientID string    `json:"patientId"`
	ScanType  ScanType  `json:"scanType"`
	Status    Status    `json:"status"`
	Progress  int       `json:"progress"`
	Result    *Result   `json:"result,omitempty"`
	Error     string    `json:"error,omitempty"`
	Source    Source    `json:"source,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
