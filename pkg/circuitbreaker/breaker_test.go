package circuitbreaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOpensAfterConsecutiveFailures(t *testing.T) {
	cb := New("retrieval", Config{FailureThreshold: 2})

	cb.Record(false)
	assert.Equal(t, StateClosed, cb.State())
	cb.Record(false)
	assert.Equal(t, StateOpen, cb.State())
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := New("retrieval", Config{FailureThreshold: 2})

	cb.Record(false)
	cb.Record(true)
	cb.Record(false)
	assert.Equal(t, StateClosed, cb.State())
}

func TestHalfOpenSuccessCloses(t *testing.T) {
	now := time.Unix(1000, 0)
	var transitions []string

	cb := New("retrieval", Config{
		FailureThreshold: 1,
		OpenTimeout:      time.Second,
		OnStateChange: func(_ string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	cb.now = func() time.Time { return now }

	cb.Record(false)
	assert.Equal(t, StateOpen, cb.State())

	now = now.Add(2 * time.Second)
	assert.Equal(t, StateHalfOpen, cb.State())

	cb.Record(true)
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestHalfOpenFailureReopens(t *testing.T) {
	now := time.Unix(1000, 0)
	cb := New("retrieval", Config{FailureThreshold: 1, OpenTimeout: time.Second})
	cb.now = func() time.Time { return now }

	cb.Record(false)
	now = now.Add(2 * time.Second)

	cb.Record(false)
	assert.Equal(t, StateOpen, cb.State())
}

func TestFailuresWhileOpenExtendTheWindow(t *testing.T) {
	now := time.Unix(1000, 0)
	cb := New("retrieval", Config{FailureThreshold: 1, OpenTimeout: time.Minute})
	cb.now = func() time.Time { return now }

	cb.Record(false)
	now = now.Add(45 * time.Second)
	cb.Record(false)
	now = now.Add(45 * time.Second)

	assert.Equal(t, StateOpen, cb.State())
}
