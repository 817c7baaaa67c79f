package feedback

import (
	"context"

	"go.uber.org/zap"

	"github.com/lewas-lab/chatbot/internal/metrics"
	"github.com/lewas-lab/chatbot/internal/session"
	"github.com/lewas-lab/chatbot/internal/storage/models"
	"github.com/lewas-lab/chatbot/pkg/logger"
)

type Writer interface {
	Record(ctx context.Context, queryID string, liked bool) error
}

type Log interface {
	InsertFeedback(ctx context.Context, feedback *models.FeedbackRecord) error
}

// Service applies thumbs-up/down votes to a session.
type Service struct {
	writer Writer
	log    Log
}

// NewService takes an optional remote writer and audit log; either may be nil.
func NewService(writer Writer, log Log) *Service {
	return &Service{writer: writer, log: log}
}

// Rate records a vote for the assistant message at index. The session copy
// is the source of truth: it is updated before the remote write, and a
// failed remote write is only logged. It reports false when the index cannot
// be rated or already has a verdict, in which case nothing else happens.
func (s *Service) Rate(ctx context.Context, state *session.State, index int, liked bool) bool {
	verdict := session.VerdictFor(liked)
	if !state.MarkFeedback(index, verdict) {
		logger.Debug("Feedback ignored",
			zap.String("session_id", state.ID),
			zap.Int("index", index),
		)
		return false
	}

	queryID := state.Detail(index).QueryID
	remote := "skipped"
	if s.writer != nil && hasQueryID(queryID) {
		if err := s.writer.Record(ctx, queryID, liked); err != nil {
			remote = "failed"
			logger.Warn("Failed to write feedback",
				zap.String("query_id", queryID),
				zap.Error(err),
			)
		} else {
			remote = "written"
		}
	}
	metrics.FeedbackTotal.WithLabelValues(string(verdict), remote).Inc()

	if s.log != nil {
		err := s.log.InsertFeedback(ctx, &models.FeedbackRecord{
			SessionID:     state.ID,
			QueryID:       queryID,
			MessageIndex:  index,
			Liked:         liked,
			RemoteWritten: remote == "written",
		})
		if err != nil {
			logger.Warn("Failed to log feedback", zap.Error(err))
		}
	}

	logger.Info("Feedback recorded",
		zap.String("session_id", state.ID),
		zap.Int("index", index),
		zap.String("verdict", string(verdict)),
		zap.String("remote", remote),
	)
	return true
}

func hasQueryID(id string) bool {
	return id != "" && id != "N/A"
}
