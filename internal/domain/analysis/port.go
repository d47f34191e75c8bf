package analysis

import "context"

// Update is a partial, merge-semantics change applied with a transition.
// Nil fields are left untouched.
type Update struct {
	Progress *int
	Result   *Result
	Error    *string
	Source   *Source
}

// Registry port: tracks jobs in memory for the life of the process.
// Implementations apply each call atomically per job id.
type Registry interface {
	// Create registers a fresh queued job under id. A prior terminal job
	// with the same id is replaced; a live one is returned as-is with
	// created=false so only one worker ever owns an id at a time.
	Create(id JobID, patientID string, scanType ScanType) (job *Job, created bool)

	// Get returns a snapshot of the job, or ErrJobNotFound.
	Get(id JobID) (*Job, error)

	// Transition moves the job from one status to another, applying upd in
	// the same atomic step. Returns ErrConflict when the job is not in the
	// expected from status, which keeps transitions monotonic.
	Transition(id JobID, from, to Status, upd Update) error

	// SetProgress raises the progress of a processing job. Lower values,
	// unknown ids and terminal jobs are ignored.
	SetProgress(id JobID, progress int)

	// ListByPatient returns snapshots of the patient's jobs, newest first.
	ListByPatient(patientID string) []*Job
}

// LatestStore caches each patient's most recent completed analysis,
// last write wins.
type LatestStore interface {
	Put(patientID string, res *Result)
	Get(patientID string) (*Result, bool)
}

// ImageStore port: keeps uploaded scan images and hands them back for
// analysis.
type ImageStore interface {
	// Put stores the image under key and returns the ref a later Get
	// accepts. Refs round-trip within one driver: Get on the ref Put
	// returned reads the same image back.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// Get returns the stored bytes and content type for a ref returned
	// by Put.
	Get(ctx context.Context, ref string) ([]byte, string, error)
}
