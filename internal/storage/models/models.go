package models

import "time"

// TurnRecord is one chat turn as written to the audit log.
type TurnRecord struct {
	ID             int64
	SessionID      string
	QueryID        string
	QueryText      string
	Classification string
	Route          string
	Response       string
	Status         string
	LatencyMS      int
	CreatedAt      time.Time
}

type FeedbackRecord struct {
	ID            int64
	SessionID     string
	QueryID       string
	MessageIndex  int
	Liked         bool
	RemoteWritten bool
	CreatedAt     time.Time
}
