package views

import (
	"bytes"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewas-lab/chatbot/internal/session"
)

func TestRenderEscapesMessages(t *testing.T) {
	engine := New()
	require.NoError(t, engine.Load())

	state := session.New("s1")
	state.Authenticated = true
	state.AppendUser("<script>alert(1)</script>")
	state.AppendAssistant("ok", session.NoDetails())

	var buf bytes.Buffer
	require.NoError(t, engine.Render(&buf, "chat", Page{
		Title:         "LEWAS Lab Chatbot",
		Authenticated: true,
		Messages:      Transcript(state),
	}))

	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Find("#transcript script").Length())
	assert.Equal(t, "<script>alert(1)</script>", doc.Find(".message.user .content").Text())
}

func TestRenderUnknownPage(t *testing.T) {
	engine := New()
	require.NoError(t, engine.Load())
	assert.Error(t, engine.Render(&bytes.Buffer{}, "missing", Page{}))
}

func TestTranscript(t *testing.T) {
	state := session.New("s1")
	state.AppendUser("q")
	state.AppendAssistant("a", session.TurnDetail{QueryID: "q-1"})
	state.MarkFeedback(1, session.VerdictNegative)

	msgs := Transcript(state)
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].User)
	assert.False(t, msgs[1].User)
	assert.Equal(t, "q-1", msgs[1].Detail.QueryID)
	assert.True(t, msgs[1].Rated)
	assert.False(t, msgs[1].Favorable)
}

func TestValidTab(t *testing.T) {
	assert.Equal(t, TabSignUp, ValidTab("signup"))
	assert.Equal(t, TabLogin, ValidTab(""))
	assert.Equal(t, TabLogin, ValidTab("admin"))
}
