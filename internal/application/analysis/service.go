package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/joshuarebo/insmile-ai/internal/application"
	"github.com/joshuarebo/insmile-ai/internal/config"
	"github.com/joshuarebo/insmile-ai/internal/domain/ai"
	domain "github.com/joshuarebo/insmile-ai/internal/domain/analysis"
)

// Service runs the analysis pipeline: store the upload, register a job,
// analyze in the background, and expose status/result reads.
// Safe for concurrent use.
type Service struct {
	Registry domain.Registry
	Images   domain.ImageStore
	Gateway  ai.Gateway
	Latest   domain.LatestStore
	Mode     config.Mode
	Clock    application.Clock
	Log      *zap.Logger

	// CallTimeout bounds one provider round trip; a call that exceeds it
	// counts as the provider being unavailable.
	CallTimeout time.Duration

	// ProgressTick is how often a processing job's progress is raised
	// while the provider call is in flight.
	ProgressTick time.Duration
}

// SubmitCommand carries one scan upload into the pipeline.
type SubmitCommand struct {
	ScanID    string
	PatientID string
	ScanType  string
	Image     []byte
	MimeType  string
}

// SubmitResult is the immediate response; the analysis itself runs in the
// background.
type SubmitResult struct {
	JobID    string    `json:"jobId"`
	Status   string    `json:"status"`
	QueuedAt time.Time `json:"queuedAt"`
}

// StatusView is the polling shape for a job.
type StatusView struct {
	JobID    string        `json:"jobId"`
	Status   domain.Status `json:"status"`
	Progress int           `json:"progress"`
	Source   domain.Source `json:"source,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Submit registers the job and schedules background analysis without
// blocking on the provider. Resubmitting a scan whose job is still live
// returns the existing job untouched.
func (s *Service) Submit(ctx context.Context, cmd SubmitCommand) (SubmitResult, error) {
	id := domain.JobID(cmd.ScanID)
	job, created := s.Registry.Create(id, cmd.PatientID, domain.ScanType(cmd.ScanType))
	if !created {
		s.log().Info("analysis already in flight, returning existing job",
			zap.String("jobId", string(id)),
			zap.String("status", string(job.Status)))
		return SubmitResult{JobID: string(job.ID), Status: string(job.Status), QueuedAt: job.CreatedAt}, nil
	}

	ref, err := s.Images.Put(ctx, storageKey(cmd), cmd.Image, cmd.MimeType)
	if err != nil {
		s.fail(id, fmt.Sprintf("scan image could not be stored: %v", err))
		return SubmitResult{JobID: string(id), Status: string(domain.StatusFailed), QueuedAt: job.CreatedAt}, nil
	}

	go s.run(id, cmd.PatientID, domain.ScanType(cmd.ScanType), ref)

	return SubmitResult{JobID: string(id), Status: string(domain.StatusQueued), QueuedAt: job.CreatedAt}, nil
}

// Status returns the polling view for a job.
func (s *Service) Status(jobID string) (StatusView, error) {
	job, err := s.Registry.Get(domain.JobID(jobID))
	if err != nil {
		return StatusView{}, err
	}
	return StatusView{
		JobID:    string(job.ID),
		Status:   job.Status,
		Progress: job.Progress,
		Source:   job.Source,
		Error:    job.Error,
	}, nil
}

// Result returns a snapshot of the job including its result once
// completed. Read-only.
func (s *Service) Result(jobID string) (*domain.Job, error) {
	return s.Registry.Get(domain.JobID(jobID))
}

// ListByPatient returns the patient's jobs, newest first.
func (s *Service) ListByPatient(patientID string) []*domain.Job {
	return s.Registry.ListByPatient(patientID)
}

// run is the single owner of the job from processing to its terminal
// state. It deliberately uses a fresh context so an aborted HTTP request
// does not cancel the analysis.
func (s *Service) run(id domain.JobID, patientID string, scanType domain.ScanType, ref string) {
	log := s.log().With(zap.String("jobId", string(id)), zap.String("patientId", patientID))
	if err := s.Registry.Transition(id, domain.StatusQueued, domain.StatusProcessing, domain.Update{Progress: intp(5)}); err != nil {
		log.Warn("job no longer ours, skipping", zap.Error(err))
		return
	}
	start := s.now()

	if s.demoBypass(id) {
		log.Info("demo id, skipping provider")
		s.complete(id, patientID, domain.MockResult(scanType), domain.SourceMock, log)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout())
	defer cancel()

	data, mime, err := s.Images.Get(ctx, ref)
	if err != nil {
		s.fail(id, fmt.Sprintf("stored scan unreadable: %v", err))
		return
	}

	stop := s.raiseProgress(id)
	raw, err := s.Gateway.AnalyzeImage(ctx, ai.Image{Data: data, MimeType: mime}, string(scanType))
	stop()
	if err != nil {
		logGatewayError(log, err)
		if s.Mode.ShouldFallback() {
			s.complete(id, patientID, domain.MockResult(scanType), domain.SourceMock, log)
		} else {
			s.fail(id, err.Error())
		}
		return
	}

	res := domain.Normalize(raw, s.now().Sub(start))
	if verr := domain.ValidateResult(res); verr != nil {
		log.Error("normalizer produced schema-invalid result", zap.Error(verr))
	}
	s.complete(id, patientID, res, domain.SourceProvider, log)
}

func (s *Service) complete(id domain.JobID, patientID string, res *domain.Result, source domain.Source, log *zap.Logger) {
	upd := domain.Update{Progress: intp(100), Result: res, Source: &source}
	if err := s.Registry.Transition(id, domain.StatusProcessing, domain.StatusCompleted, upd); err != nil {
		log.Warn("completed transition refused", zap.Error(err))
		return
	}
	s.Latest.Put(patientID, res)
	log.Info("analysis completed",
		zap.String("source", string(source)),
		zap.Int("findings", len(res.Findings)),
		zap.Int64("processingMs", res.ProcessingTimeMs))
}

func (s *Service) fail(id domain.JobID, msg string) {
	if err := s.Registry.Transition(id, domain.StatusProcessing, domain.StatusFailed, domain.Update{Error: &msg}); err != nil {
		// job may fail before entering processing
		if err2 := s.Registry.Transition(id, domain.StatusQueued, domain.StatusFailed, domain.Update{Error: &msg}); err2 != nil {
			s.log().Warn("failed transition refused", zap.String("jobId", string(id)), zap.Error(err2))
			return
		}
	}
	s.log().Warn("analysis failed", zap.String("jobId", string(id)), zap.String("error", msg))
}

// demoBypass short-circuits demo-prefixed scan ids to mock output unless
// the deployment forces real calls.
func (s *Service) demoBypass(id domain.JobID) bool {
	return !s.Mode.ForceReal && strings.HasPrefix(strings.ToLower(string(id)), "demo")
}

// raiseProgress bumps the job's progress while the provider call is in
// flight so pollers see forward movement. Returns a stop func.
func (s *Service) raiseProgress(id domain.JobID) func() {
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(s.tick())
		defer t.Stop()
		p := 5
		for {
			select {
			case <-done:
				return
			case <-t.C:
				step := (99 - p) / 8
				if step < 1 {
					step = 1
				}
				if p+step < 99 {
					p += step
					s.Registry.SetProgress(id, p)
				}
			}
		}
	}()
	return func() { close(done) }
}

func logGatewayError(log *zap.Logger, err error) {
	switch {
	case errors.Is(err, ai.ErrQuotaExceeded):
		log.Warn("provider quota exhausted", zap.Error(err))
	case errors.Is(err, ai.ErrRejected):
		log.Warn("provider rejected the scan", zap.Error(err))
	default:
		log.Warn("provider unavailable", zap.Error(err))
	}
}

func storageKey(cmd SubmitCommand) string {
	return fmt.Sprintf("%s/%s", cmd.PatientID, cmd.ScanID)
}

func (s *Service) log() *zap.Logger {
	if s.Log != nil {
		return s.Log
	}
	return zap.NewNop()
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now()
	}
	return time.Now()
}

func (s *Service) timeout() time.Duration {
	if s.CallTimeout > 0 {
		return s.CallTimeout
	}
	return 60 * time.Second
}

func (s *Service) tick() time.Duration {
	if s.ProgressTick > 0 {
		return s.ProgressTick
	}
	return 400 * time.Millisecond
}

func intp(v int) *int { return &v }
