package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/lewas-lab/chatbot/internal/storage/models"
	"github.com/lewas-lab/chatbot/pkg/logger"
)

// Client writes the local turn and feedback audit log. It is never read on
// the request path; sessions do not restore transcripts from it.
type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	_, err = db.Exec("PRAGMA busy_timeout = 5000")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		query_id TEXT,
		query_text TEXT NOT NULL,
		classification TEXT,
		route TEXT,
		response TEXT,
		status TEXT NOT NULL,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id);
	CREATE INDEX IF NOT EXISTS idx_turns_query ON turns(query_id);
	CREATE INDEX IF NOT EXISTS idx_turns_created ON turns(created_at);

	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		query_id TEXT,
		message_index INTEGER NOT NULL,
		liked INTEGER NOT NULL,
		remote_written INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_session ON feedback(session_id);
	CREATE INDEX IF NOT EXISTS idx_feedback_query ON feedback(query_id);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertTurn(ctx context.Context, record *models.TurnRecord) error {
	query := `
		INSERT INTO turns (session_id, query_id, query_text, classification, route, response, status, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := c.db.ExecContext(ctx,
		query,
		record.SessionID,
		record.QueryID,
		record.QueryText,
		record.Classification,
		record.Route,
		record.Response,
		record.Status,
		record.LatencyMS,
		createdAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert turn: %w", err)
	}

	record.ID, _ = res.LastInsertId()

	logger.Debug("Turn recorded",
		zap.String("session_id", record.SessionID),
		zap.String("query_id", record.QueryID),
		zap.String("status", record.Status),
	)
	return nil
}

// InsertFeedback appends one vote. Clearing a chat restarts message indexes,
// so a session may log several votes for the same index.
func (c *Client) InsertFeedback(ctx context.Context, feedback *models.FeedbackRecord) error {
	query := `
		INSERT INTO feedback (session_id, query_id, message_index, liked, remote_written, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	createdAt := feedback.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := c.db.ExecContext(ctx,
		query,
		feedback.SessionID,
		feedback.QueryID,
		feedback.MessageIndex,
		boolToInt(feedback.Liked),
		boolToInt(feedback.RemoteWritten),
		createdAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store feedback: %w", err)
	}

	logger.Info("Feedback stored",
		zap.String("query_id", feedback.QueryID),
		zap.Bool("liked", feedback.Liked),
		zap.Bool("remote_written", feedback.RemoteWritten),
	)
	return nil
}

func (c *Client) sessionTurns(ctx context.Context, sessionID string, limit int) ([]models.TurnRecord, error) {
	query := `
		SELECT id, session_id, query_id, query_text, classification, route, response, status, latency_ms, created_at
		FROM turns
		WHERE session_id = ?
		ORDER BY id ASC
		LIMIT ?
	`

	rows, err := c.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get turns: %w", err)
	}
	defer rows.Close()

	var records []models.TurnRecord
	for rows.Next() {
		var r models.TurnRecord
		var createdAt int64

		err := rows.Scan(&r.ID, &r.SessionID, &r.QueryID, &r.QueryText, &r.Classification,
			&r.Route, &r.Response, &r.Status, &r.LatencyMS, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		r.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, r)
	}

	return records, rows.Err()
}

func (c *Client) feedbackFor(ctx context.Context, queryID string) ([]models.FeedbackRecord, error) {
	query := `
		SELECT id, session_id, query_id, message_index, liked, remote_written, created_at
		FROM feedback
		WHERE query_id = ?
		ORDER BY id ASC
	`

	rows, err := c.db.QueryContext(ctx, query, queryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}
	defer rows.Close()

	var records []models.FeedbackRecord
	for rows.Next() {
		var f models.FeedbackRecord
		var liked, remote int
		var createdAt int64

		err := rows.Scan(&f.ID, &f.SessionID, &f.QueryID, &f.MessageIndex, &liked, &remote, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		f.Liked = liked == 1
		f.RemoteWritten = remote == 1
		f.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, f)
	}

	return records, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
