package plan

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/joshuarebo/insmile-ai/internal/application"
	"github.com/joshuarebo/insmile-ai/internal/config"
	"github.com/joshuarebo/insmile-ai/internal/domain/ai"
	analysisdomain "github.com/joshuarebo/insmile-ai/internal/domain/analysis"
	domain "github.com/joshuarebo/insmile-ai/internal/domain/plan"
)

// Service derives treatment plans from finished analyses. Safe for
// concurrent use.
type Service struct {
	Registry analysisdomain.Registry
	Gateway  ai.Gateway
	Analyses analysisdomain.LatestStore
	Plans    domain.LatestStore
	Mode     config.Mode
	Clock    application.Clock
	Log      *zap.Logger

	// PollInterval and PollAttempts bound the wait for a still-running
	// analysis job before the generator proceeds with whatever is on hand.
	PollInterval time.Duration
	PollAttempts int

	CallTimeout time.Duration
}

// GenerateCommand asks for a plan for one patient. JobID is optional; when
// set and the job is still running, generation waits for it within the
// polling budget. Notes carry free-form patient context into the prompt.
type GenerateCommand struct {
	PatientID string
	JobID     string
	Notes     string
}

// Generate builds the plan and replaces the patient's cached one.
func (s *Service) Generate(ctx context.Context, cmd GenerateCommand) (*domain.Plan, error) {
	log := s.log().With(zap.String("patientId", cmd.PatientID))

	res := s.resolveAnalysis(ctx, cmd, log)
	if res == nil {
		if !s.Mode.ShouldFallback() {
			return nil, domain.ErrNoAnalysis
		}
		log.Info("no analysis on hand, using mock findings as plan basis")
		res = analysisdomain.MockResult("")
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()
	system, user := planPrompt(cmd, res)
	raw, err := s.Gateway.GenerateText(cctx, system, user)
	if err != nil {
		logGatewayError(log, err)
		if !s.Mode.ShouldFallback() {
			return nil, err
		}
		return s.finish(domain.MockPlan(cmd.PatientID, res), log), nil
	}

	p := domain.Normalize(raw)
	p.PatientID = cmd.PatientID
	p.Source = analysisdomain.SourceProvider
	if verr := domain.ValidatePlan(p); verr != nil {
		log.Error("normalizer produced schema-invalid plan", zap.Error(verr))
	}
	return s.finish(p, log), nil
}

// Latest returns the patient's cached plan, if any.
func (s *Service) Latest(patientID string) (*domain.Plan, bool) {
	return s.Plans.Get(patientID)
}

func (s *Service) finish(p *domain.Plan, log *zap.Logger) *domain.Plan {
	p.GeneratedAt = s.now()
	s.Plans.Put(p.PatientID, p)
	log.Info("treatment plan generated",
		zap.String("source", string(p.Source)),
		zap.String("severity", string(p.Severity)),
		zap.Int("steps", len(p.Steps)))
	return p
}

// resolveAnalysis picks the analysis the plan is derived from: the named
// job's result after a bounded wait, else the patient's cached analysis.
// A nil return means nothing was available; the wait running out is not
// an error.
func (s *Service) resolveAnalysis(ctx context.Context, cmd GenerateCommand, log *zap.Logger) *analysisdomain.Result {
	if cmd.JobID != "" {
		if res := s.awaitJob(ctx, analysisdomain.JobID(cmd.JobID), log); res != nil {
			return res
		}
	}
	if res, ok := s.Analyses.Get(cmd.PatientID); ok {
		return res
	}
	return nil
}

func (s *Service) awaitJob(ctx context.Context, id analysisdomain.JobID, log *zap.Logger) *analysisdomain.Result {
	attempts := s.attempts()
	for i := 0; i < attempts; i++ {
		job, err := s.Registry.Get(id)
		if err != nil {
			log.Warn("plan requested for unknown job", zap.String("jobId", string(id)))
			return nil
		}
		switch job.Status {
		case analysisdomain.StatusCompleted:
			return job.Result
		case analysisdomain.StatusFailed:
			log.Info("job failed, falling back to cached data", zap.String("jobId", string(id)))
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.interval()):
		}
	}
	log.Info("analysis wait budget exhausted, proceeding with best available data",
		zap.String("jobId", string(id)))
	return nil
}

func logGatewayError(log *zap.Logger, err error) {
	switch {
	case errors.Is(err, ai.ErrQuotaExceeded):
		log.Warn("provider quota exhausted", zap.Error(err))
	case errors.Is(err, ai.ErrRejected):
		log.Warn("provider rejected plan generation", zap.Error(err))
	default:
		log.Warn("provider unavailable for plan generation", zap.Error(err))
	}
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

func (s *Service) interval() time.Duration {
	if s.PollInterval > 0 {
		return s.PollInterval
	}
	return time.Second
}

func (s *Service) attempts() int {
	if s.PollAttempts > 0 {
		return s.PollAttempts
	}
	return 15
}

func (s *Service) timeout() time.Duration {
	if s.CallTimeout > 0 {
		return s.CallTimeout
	}
	return 60 * time.Second
}
