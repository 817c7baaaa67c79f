package session

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// TurnDetail is the metadata shown under an assistant message.
// Unavailable marks the "No details available." placeholder stored for failed turns.
type TurnDetail struct {
	QueryID        string    `json:"query_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	Classification string    `json:"classification,omitempty"`
	Sources        []string  `json:"sources,omitempty"`
	Unavailable    bool      `json:"unavailable,omitempty"`
}

func NoDetails() TurnDetail {
	return TurnDetail{Unavailable: true}
}

type Verdict string

const (
	VerdictPositive Verdict = "positive"
	VerdictNegative Verdict = "negative"
)

func VerdictFor(liked bool) Verdict {
	if liked {
		return VerdictPositive
	}
	return VerdictNegative
}

type FlashKind string

const (
	FlashSuccess FlashKind = "success"
	FlashError   FlashKind = "error"
	FlashWarning FlashKind = "warning"
)

// Flash is a one-shot notice rendered on the next page view.
type Flash struct {
	Kind FlashKind `json:"kind"`
	Text string    `json:"text"`
}

// State is everything one browser session owns.
type State struct {
	ID            string             `json:"id"`
	Authenticated bool               `json:"authenticated"`
	Username      string             `json:"username,omitempty"`
	AccessToken   string             `json:"access_token,omitempty"`
	IDToken       string             `json:"id_token,omitempty"`
	Messages      []Message          `json:"messages"`
	Details       map[int]TurnDetail `json:"details"`
	Feedback      map[int]Verdict    `json:"feedback"`
	Flash         *Flash             `json:"flash,omitempty"`
}

func New(id string) *State {
	return &State{
		ID:       id,
		Messages: make([]Message, 0, 8),
		Details:  make(map[int]TurnDetail),
		Feedback: make(map[int]Verdict),
	}
}

func (s *State) AppendUser(content string) int {
	s.Messages = append(s.Messages, Message{Role: RoleUser, Content: content})
	return len(s.Messages) - 1
}

// AppendAssistant appends the reply and its detail under the same index.
func (s *State) AppendAssistant(content string, detail TurnDetail) int {
	s.Messages = append(s.Messages, Message{Role: RoleAssistant, Content: content})
	index := len(s.Messages) - 1
	s.Details[index] = detail
	return index
}

// Detail returns the detail for index, or the placeholder when there is none.
func (s *State) Detail(index int) TurnDetail {
	if d, ok := s.Details[index]; ok {
		return d
	}
	return NoDetails()
}

func (s *State) IsAssistant(index int) bool {
	return index >= 0 && index < len(s.Messages) && s.Messages[index].Role == RoleAssistant
}

func (s *State) Verdict(index int) (Verdict, bool) {
	v, ok := s.Feedback[index]
	return v, ok
}

// MarkFeedback stores the verdict unless index is not an assistant message
// or already has one. It reports whether the verdict was stored.
func (s *State) MarkFeedback(index int, verdict Verdict) bool {
	if !s.IsAssistant(index) {
		return false
	}
	if _, rated := s.Feedback[index]; rated {
		return false
	}
	s.Feedback[index] = verdict
	return true
}

func (s *State) ClearChat() {
	s.Messages = make([]Message, 0, 8)
	s.Details = make(map[int]TurnDetail)
	s.Feedback = make(map[int]Verdict)
}

func (s *State) Login(username, accessToken, idToken string) {
	s.Authenticated = true
	s.Username = username
	s.AccessToken = accessToken
	s.IDToken = idToken
}

func (s *State) Logout() {
	s.Authenticated = false
	s.Username = ""
	s.AccessToken = ""
	s.IDToken = ""
}

func (s *State) SetFlash(kind FlashKind, text string) {
	s.Flash = &Flash{Kind: kind, Text: text}
}

// TakeFlash returns the pending notice and clears it.
func (s *State) TakeFlash() *Flash {
	f := s.Flash
	s.Flash = nil
	return f
}

// normalize restores nil maps after decoding a stored state.
func (s *State) normalize() {
	if s.Details == nil {
		s.Details = make(map[int]TurnDetail)
	}
	if s.Feedback == nil {
		s.Feedback = make(map[int]Verdict)
	}
}
