package queryapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lewas-lab/chatbot/pkg/circuitbreaker"
	"github.com/lewas-lab/chatbot/pkg/logger"
)

// DefaultTag is the classification used when the classify call fails.
const DefaultTag = "RAG"

var (
	ErrUnauthorized      = errors.New("invalid api key or unauthorized access")
	ErrMalformedResponse = errors.New("unable to parse the server response")
)

// StatusError carries a non-200, non-403 status code.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("received status code %d", e.Code)
}

// Route names one of the two answer endpoints.
type Route string

const (
	RouteRetrieval  Route = "retrieval"
	RouteSmartQuery Route = "smart_query"
)

type Classification struct {
	Tag string
	// Degraded is set when Tag is DefaultTag only because the call failed.
	Degraded bool
}

// RouteFor is the static dispatch table: a RAG tag from a successful
// classification goes to document retrieval, everything else to smart query.
func RouteFor(c Classification) Route {
	if !c.Degraded && c.Tag == DefaultTag {
		return RouteRetrieval
	}
	return RouteSmartQuery
}

type Answer struct {
	Text      string
	QueryID   string
	CreatedAt time.Time
	Sources   []string
}

type Endpoint struct {
	Path   string
	APIKey string
}

type Config struct {
	BaseURL         string
	KeyHeader       string
	Classify        Endpoint
	Retrieval       Endpoint
	SmartQuery      Endpoint
	ClassifyTimeout time.Duration
	AnswerTimeout   time.Duration
}

// Health holds one breaker per answer route. The breakers only observe
// outcomes; they never stop a call from being made.
type Health map[Route]*circuitbreaker.CircuitBreaker

type Client struct {
	cfg        Config
	httpClient *http.Client
	health     Health
}

type queryRequest struct {
	QueryText string `json:"query_text"`
}

type classifyResponse struct {
	Classification string `json:"classification"`
}

type answerResponse struct {
	AnswerText *string  `json:"answer_text"`
	QueryID    *string  `json:"query_id"`
	CreateTime float64  `json:"create_time"`
	Sources    []string `json:"sources"`
}

func NewClient(cfg Config, health Health) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.KeyHeader == "" {
		cfg.KeyHeader = "API-Key"
	}
	if cfg.ClassifyTimeout == 0 {
		cfg.ClassifyTimeout = 10 * time.Second
	}
	if cfg.AnswerTimeout == 0 {
		cfg.AnswerTimeout = 30 * time.Second
	}

	logger.Info("Query API client initialized",
		zap.String("base_url", cfg.BaseURL),
		zap.String("retrieval_path", cfg.Retrieval.Path),
		zap.String("smart_query_path", cfg.SmartQuery.Path),
	)

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		health:     health,
	}
}

// Classify never fails: any error degrades to DefaultTag.
func (c *Client) Classify(ctx context.Context, query string) Classification {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ClassifyTimeout)
	defer cancel()

	body, err := c.post(ctx, c.cfg.Classify, query)
	if err != nil {
		logger.Warn("Classification failed, using default tag", zap.Error(err))
		return Classification{Tag: DefaultTag, Degraded: true}
	}

	var resp classifyResponse
	if err := json.Unmarshal(body, &resp); err != nil || strings.TrimSpace(resp.Classification) == "" {
		logger.Warn("Classification response unusable, using default tag", zap.Error(err))
		return Classification{Tag: DefaultTag, Degraded: true}
	}

	return Classification{Tag: strings.TrimSpace(resp.Classification)}
}

func (c *Client) Answer(ctx context.Context, route Route, query string) (*Answer, error) {
	endpoint := c.cfg.SmartQuery
	if route == RouteRetrieval {
		endpoint = c.cfg.Retrieval
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.AnswerTimeout)
	defer cancel()

	body, err := c.post(ctx, endpoint, query)
	// a 4xx means the service answered and does not count as a failure
	if breaker := c.health[route]; breaker != nil {
		breaker.Record(!isServiceFailure(err))
	}
	if err != nil {
		return nil, err
	}

	return parseAnswer(body)
}

func parseAnswer(body []byte) (*Answer, error) {
	var resp answerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	answer := &Answer{
		Text:      "Sorry, I couldn't process that request.",
		QueryID:   "N/A",
		CreatedAt: unixSeconds(resp.CreateTime),
		Sources:   resp.Sources,
	}
	if resp.AnswerText != nil {
		answer.Text = *resp.AnswerText
	}
	if resp.QueryID != nil {
		answer.QueryID = *resp.QueryID
	}
	if answer.Sources == nil {
		answer.Sources = []string{}
	}

	return answer, nil
}

func unixSeconds(seconds float64) time.Time {
	sec := int64(seconds)
	nsec := int64((seconds - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec)
}

// post issues exactly one request and returns the body of a 200 response.
func (c *Client) post(ctx context.Context, endpoint Endpoint, query string) ([]byte, error) {
	payload, err := json.Marshal(queryRequest{QueryText: query})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+endpoint.Path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(c.cfg.KeyHeader, endpoint.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	logger.Debug("Query API responded",
		zap.String("path", endpoint.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		return nil, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// isServiceFailure reports whether err means the service could not be reached
// or answered with a server error.
func isServiceFailure(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code >= http.StatusInternalServerError
	}
	return !errors.Is(err, ErrUnauthorized)
}
