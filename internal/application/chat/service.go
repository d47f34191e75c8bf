package chat

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joshuarebo/insmile-ai/internal/config"
	"github.com/joshuarebo/insmile-ai/internal/domain/ai"
	analysisdomain "github.com/joshuarebo/insmile-ai/internal/domain/analysis"
	plandomain "github.com/joshuarebo/insmile-ai/internal/domain/plan"
)

// Service answers patient questions with the cached analysis and plan as
// conversational context. Replies always carry a source tag; provider
// trouble degrades to a rule-based fallback answer instead of an error.
type Service struct {
	Gateway  ai.Gateway
	Analyses analysisdomain.LatestStore
	Plans    plandomain.LatestStore
	Mode     config.Mode
	Log      *zap.Logger

	CallTimeout time.Duration
}

// Message is one chat turn supplied by the client.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Command struct {
	PatientID      string
	ConversationID string
	Message        string
	History        []Message
}

type Reply struct {
	ConversationID string                `json:"conversationId"`
	Message        string                `json:"message"`
	Source         analysisdomain.Source `json:"source"`
}

func (s *Service) Respond(ctx context.Context, cmd Command) (Reply, error) {
	if cmd.ConversationID == "" {
		cmd.ConversationID = uuid.NewString()
	}
	log := s.log().With(
		zap.String("patientId", cmd.PatientID),
		zap.String("conversationId", cmd.ConversationID),
	)
	res, _ := s.Analyses.Get(cmd.PatientID)
	p, _ := s.Plans.Get(cmd.PatientID)

	cctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()
	system, user := chatPrompt(cmd, res, p)
	raw, err := s.Gateway.GenerateText(cctx, system, user)
	if err != nil {
		logGatewayError(log, err)
		return s.degrade(cmd, res, p), nil
	}

	answer := ai.StripReasoning(raw)
	if answer == "" {
		log.Warn("provider returned empty chat output")
		return s.degrade(cmd, res, p), nil
	}
	return Reply{ConversationID: cmd.ConversationID, Message: answer, Source: analysisdomain.SourceProvider}, nil
}

// degrade picks the non-provider reply: a rule-based answer built from
// cached context when fallback is allowed, otherwise an honest error
// message tagged as such.
func (s *Service) degrade(cmd Command, res *analysisdomain.Result, p *plandomain.Plan) Reply {
	if s.Mode.ShouldFallback() {
		return Reply{
			ConversationID: cmd.ConversationID,
			Message:        fallbackAnswer(res, p),
			Source:         analysisdomain.SourceFallback,
		}
	}
	return Reply{
		ConversationID: cmd.ConversationID,
		Message:        "The assistant is unavailable right now. Please try again shortly.",
		Source:         analysisdomain.SourceError,
	}
}

func logGatewayError(log *zap.Logger, err error) {
	switch {
	case errors.Is(err, ai.ErrQuotaExceeded):
		log.Warn("provider quota exhausted", zap.Error(err))
	case errors.Is(err, ai.ErrRejected):
		log.Warn("provider rejected chat request", zap.Error(err))
	default:
		log.Warn("provider unavailable for chat", zap.Error(err))
	}
}

func (s *Service) log() *zap.Logger {
	if s.Log != nil {
		return s.Log
	}
	return zap.NewNop()
}

func (s *Service) timeout() time.Duration {
	if s.CallTimeout > 0 {
		return s.CallTimeout
	}
	return 60 * time.Second
}
