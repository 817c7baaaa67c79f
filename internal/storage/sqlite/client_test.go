package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewas-lab/chatbot/internal/storage/models"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	require.NoError(t, c.InitSchema())
	return c
}

func TestInsertAndListTurns(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	first := &models.TurnRecord{
		SessionID:      "s1",
		QueryID:        "q1",
		QueryText:      "What is the dissolved oxygen?",
		Classification: "RAG",
		Route:          "retrieval",
		Response:       "8 mg/L",
		Status:         "ok",
		LatencyMS:      120,
		CreatedAt:      time.Unix(1700000000, 0),
	}
	require.NoError(t, c.InsertTurn(ctx, first))
	assert.NotZero(t, first.ID)

	require.NoError(t, c.InsertTurn(ctx, &models.TurnRecord{SessionID: "s1", QueryText: "again", Status: "http_error"}))
	require.NoError(t, c.InsertTurn(ctx, &models.TurnRecord{SessionID: "s2", QueryText: "other", Status: "ok"}))

	turns, err := c.sessionTurns(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "q1", turns[0].QueryID)
	assert.Equal(t, "retrieval", turns[0].Route)
	assert.Equal(t, int64(1700000000), turns[0].CreatedAt.Unix())
	assert.Equal(t, "http_error", turns[1].Status)
}

func TestInsertFeedbackAfterClearedChat(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	require.NoError(t, c.InsertFeedback(ctx, &models.FeedbackRecord{
		SessionID: "s1", QueryID: "q1", MessageIndex: 1, Liked: true, RemoteWritten: true,
	}))
	// the chat was cleared and the new answer landed at the same index
	require.NoError(t, c.InsertFeedback(ctx, &models.FeedbackRecord{
		SessionID: "s1", QueryID: "q2", MessageIndex: 1, Liked: false,
	}))

	first, err := c.feedbackFor(ctx, "q1")
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.True(t, first[0].Liked)
	assert.True(t, first[0].RemoteWritten)

	second, err := c.feedbackFor(ctx, "q2")
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.False(t, second[0].Liked)
	assert.Equal(t, 1, second[0].MessageIndex)
}
