package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	s := New("")
	assert.NotEmpty(t, s.ID)
	assert.NotEqual(t, s.ID, New("").ID)
	assert.Empty(t, s.Messages)
	assert.Nil(t, s.Pending)

	assert.Equal(t, "fixed", New("fixed").ID)
}

func TestSession_TakePending(t *testing.T) {
	now := time.Date(2025, 10, 3, 10, 0, 0, 0, time.UTC)

	t.Run("single turn lifetime", func(t *testing.T) {
		s := New("a")
		s.SetPending(&PendingSelection{Operation: "delete", Candidates: []Candidate{{UID: "1"}, {UID: "2"}}}, now)

		p := s.TakePending(now.Add(time.Minute))
		require.NotNil(t, p)
		assert.Len(t, p.Candidates, 2)
		assert.Nil(t, s.Pending)
		assert.Nil(t, s.TakePending(now.Add(time.Minute)))
	})

	t.Run("expired selection is dropped", func(t *testing.T) {
		s := New("b")
		s.SetPending(&PendingSelection{Operation: "update"}, now)

		assert.Nil(t, s.TakePending(now.Add(PendingTTL)))
		assert.Nil(t, s.Pending)
	})

	t.Run("nothing pending", func(t *testing.T) {
		assert.Nil(t, New("c").TakePending(now))
	})
}

func TestSession_AppendTurnSlidingWindow(t *testing.T) {
	s := New("window")
	for i := 0; i < MaxMessagesPerSession; i++ {
		s.AppendTurn(fmt.Sprintf("u%d", i), fmt.Sprintf("a%d", i))
	}

	require.Len(t, s.Messages, MaxMessagesPerSession)
	last := MaxMessagesPerSession - 1
	assert.Equal(t, Message{Role: "assistant", Content: fmt.Sprintf("a%d", last)}, s.Messages[len(s.Messages)-1])
	assert.Equal(t, "user", s.Messages[0].Role)
}

func TestSession_CloneIsDeep(t *testing.T) {
	start := time.Now()
	s := New("deep")
	s.AppendTurn("hi", "hello")
	s.SetPending(&PendingSelection{
		Candidates: []Candidate{{UID: "1"}},
		Patch:      &Patch{Title: "x", Start: &start},
	}, start)

	c := s.clone()
	c.Messages[0].Content = "changed"
	c.Pending.Candidates[0].UID = "changed"
	c.Pending.Patch.Title = "changed"

	assert.Equal(t, "hi", s.Messages[0].Content)
	assert.Equal(t, "1", s.Pending.Candidates[0].UID)
	assert.Equal(t, "x", s.Pending.Patch.Title)
}
