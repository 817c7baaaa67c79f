package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/lewas-lab/chatbot/internal/metrics"
	"github.com/lewas-lab/chatbot/internal/queryapi"
	"github.com/lewas-lab/chatbot/internal/session"
	"github.com/lewas-lab/chatbot/internal/storage/models"
	"github.com/lewas-lab/chatbot/pkg/logger"
)

type Classifier interface {
	Classify(ctx context.Context, query string) queryapi.Classification
}

type Answerer interface {
	Answer(ctx context.Context, route queryapi.Route, query string) (*queryapi.Answer, error)
}

// TurnLog receives a record of every completed turn.
type TurnLog interface {
	InsertTurn(ctx context.Context, record *models.TurnRecord) error
}

const (
	statusOK           = "ok"
	statusUnauthorized = "unauthorized"
	statusHTTPError    = "http_error"
	statusParseError   = "parse_error"
	statusConnError    = "connection_error"
)

// Handler runs one chat turn against the remote query API.
type Handler struct {
	classifier Classifier
	answerer   Answerer
	turnLog    TurnLog
}

// NewHandler builds a turn handler. A nil classifier disables classification
// and every query goes to document retrieval; a nil turnLog disables the audit log.
func NewHandler(classifier Classifier, answerer Answerer, turnLog TurnLog) *Handler {
	return &Handler{
		classifier: classifier,
		answerer:   answerer,
		turnLog:    turnLog,
	}
}

// TurnResult describes the assistant message a turn produced.
type TurnResult struct {
	Index   int
	Content string
	Detail  session.TurnDetail
	Route   queryapi.Route
}

// HandleTurn appends the user utterance and the assistant reply to state.
// It always completes: every failure becomes an assistant message carrying
// the error text and the "No details available." placeholder.
func (h *Handler) HandleTurn(ctx context.Context, state *session.State, utterance string) TurnResult {
	startTime := time.Now()
	state.AppendUser(utterance)

	classification := queryapi.Classification{Tag: queryapi.DefaultTag}
	if h.classifier != nil {
		classification = h.classifier.Classify(ctx, utterance)
		metrics.ClassificationsTotal.WithLabelValues(tagLabel(classification.Tag), strconv.FormatBool(classification.Degraded)).Inc()
	}
	route := queryapi.RouteFor(classification)

	answerStart := time.Now()
	answer, err := h.answerer.Answer(ctx, route, utterance)
	metrics.AnswerDuration.WithLabelValues(string(route)).Observe(time.Since(answerStart).Seconds())

	var (
		content string
		detail  session.TurnDetail
		status  string
	)
	if err != nil {
		content, status = ErrorMessage(err)
		detail = session.NoDetails()
		logger.Warn("Answer call failed",
			zap.String("session_id", state.ID),
			zap.String("route", string(route)),
			zap.String("status", status),
			zap.Error(err),
		)
	} else {
		content, status = answer.Text, statusOK
		detail = session.TurnDetail{
			QueryID:        answer.QueryID,
			CreatedAt:      answer.CreatedAt,
			Classification: classification.Tag,
			Sources:        answer.Sources,
		}
	}

	index := state.AppendAssistant(content, detail)
	metrics.TurnsTotal.WithLabelValues(status).Inc()

	latency := int(time.Since(startTime).Milliseconds())
	logger.Info("Turn processed",
		zap.String("session_id", state.ID),
		zap.String("query_id", detail.QueryID),
		zap.String("classification", classification.Tag),
		zap.String("route", string(route)),
		zap.String("status", status),
		zap.Int("latency_ms", latency),
	)

	if h.turnLog != nil {
		record := &models.TurnRecord{
			SessionID:      state.ID,
			QueryID:        detail.QueryID,
			QueryText:      utterance,
			Classification: classification.Tag,
			Route:          string(route),
			Response:       content,
			Status:         status,
			LatencyMS:      latency,
			CreatedAt:      time.Now(),
		}
		if err := h.turnLog.InsertTurn(ctx, record); err != nil {
			logger.Warn("Failed to record turn", zap.Error(err))
		}
	}

	return TurnResult{Index: index, Content: content, Detail: detail, Route: route}
}

// tagLabel keeps the metric label set to the tags that drive routing.
func tagLabel(tag string) string {
	if tag == queryapi.DefaultTag {
		return tag
	}
	return "other"
}

// ErrorMessage maps an answer-call error to the text shown in the transcript
// and a short status label.
func ErrorMessage(err error) (string, string) {
	var statusErr *queryapi.StatusError
	switch {
	case errors.Is(err, queryapi.ErrUnauthorized):
		return "Error: Invalid API key or unauthorized access.", statusUnauthorized
	case errors.As(err, &statusErr):
		return fmt.Sprintf("Error: Received status code %d", statusErr.Code), statusHTTPError
	case errors.Is(err, queryapi.ErrMalformedResponse):
		return "Error: Unable to parse the server response.", statusParseError
	default:
		return fmt.Sprintf("Error: Unable to connect to the server. %v", err), statusConnError
	}
}
