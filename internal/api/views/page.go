package views

import (
	"github.com/lewas-lab/chatbot/internal/auth"
	"github.com/lewas-lab/chatbot/internal/session"
)

// Tabs on the home page.
const (
	TabLogin   = "login"
	TabSignUp  = "signup"
	TabConfirm = "confirm"
	TabForgot  = "forgot"
	TabReset   = "reset"
)

// Page is the binding for every template.
type Page struct {
	Title         string
	Flash         *session.Flash
	AuthEnabled   bool
	Authenticated bool
	Username      string

	Tab           string
	PasswordRules []string

	Messages []Message
}

type Message struct {
	Index     int
	User      bool
	Content   string
	Detail    session.TurnDetail
	Rated     bool
	Verdict   session.Verdict
	Favorable bool
}

// Transcript flattens a session into renderable messages.
func Transcript(state *session.State) []Message {
	out := make([]Message, 0, len(state.Messages))
	for i, m := range state.Messages {
		msg := Message{
			Index:   i,
			User:    m.Role == session.RoleUser,
			Content: m.Content,
		}
		if !msg.User {
			msg.Detail = state.Detail(i)
			msg.Verdict, msg.Rated = state.Verdict(i)
			msg.Favorable = msg.Verdict == session.VerdictPositive
		}
		out = append(out, msg)
	}
	return out
}

func ValidTab(tab string) string {
	switch tab {
	case TabSignUp, TabConfirm, TabForgot, TabReset:
		return tab
	default:
		return TabLogin
	}
}

func PasswordRuleLabels() []string {
	labels := make([]string, len(auth.PasswordRules))
	for i, rule := range auth.PasswordRules {
		labels[i] = rule.Label
	}
	return labels
}
