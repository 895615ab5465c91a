// Package session holds the per-conversation state of the calendar agent: recent turns and a
// pending disambiguation. State is scoped to one session ID and never shared across sessions.
package session

import (
	"context"
	"time"

	"github.com/lithammer/shortuuid/v4"
)

const (
	// DefaultTTL is how long an idle session is kept.
	DefaultTTL = 30 * time.Minute
	// PendingTTL bounds how long a disambiguation question stays answerable.
	PendingTTL = 5 * time.Minute
	// MaxMessagesPerSession is the sliding window of kept messages.
	MaxMessagesPerSession = 20
)

// SessionService defines the session persistence interface.
// Consumers: HTTP command handler, CLI.
type SessionService interface {
	// Load returns the session, or nil when it does not exist or has expired.
	Load(ctx context.Context, id string) (*Session, error)

	// Save stores the session and refreshes its TTL.
	Save(ctx context.Context, s *Session) error

	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error
}

// Session is the conversation state passed into the agent for one utterance.
type Session struct {
	ID string `json:"id"`
	// Calendar is the calendar the conversation works on; empty means the default calendar.
	Calendar  string            `json:"calendar,omitempty"`
	Messages  []Message         `json:"messages"`
	Pending   *PendingSelection `json:"pending,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"` // "user" | "assistant"
	Content string `json:"content"`
}

// PendingSelection is an update or delete waiting for the user to pick one candidate.
type PendingSelection struct {
	Operation  string      `json:"operation"`
	Candidates []Candidate `json:"candidates"`
	// Patch is the resolved change of a pending update.
	Patch *Patch `json:"patch,omitempty"`
	// Lang is the BCP 47 tag of the utterance that raised the question.
	Lang      string    `json:"lang"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Candidate is one event offered for selection.
type Candidate struct {
	UID      string    `json:"uid"`
	Title    string    `json:"title"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Location string    `json:"location,omitempty"`
	Calendar string    `json:"calendar,omitempty"`
}

// Patch is a resolved event change. Empty fields are left unchanged.
type Patch struct {
	Title       string     `json:"title,omitempty"`
	Location    string     `json:"location,omitempty"`
	Description string     `json:"description,omitempty"`
	Start       *time.Time `json:"start,omitempty"`
	End         *time.Time `json:"end,omitempty"`
	// Day moves the event to another date keeping its time of day.
	Day *time.Time `json:"day,omitempty"`
}

// NewID returns a new random session ID.
func NewID() string {
	return shortuuid.New()
}

// New creates an empty session. An empty id gets a new random ID.
func New(id string) *Session {
	if id == "" {
		id = NewID()
	}
	now := time.Now()
	return &Session{
		ID:        id,
		Messages:  make([]Message, 0, MaxMessagesPerSession),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetPending stores a disambiguation question that expires after PendingTTL.
func (s *Session) SetPending(p *PendingSelection, now time.Time) {
	p.ExpiresAt = now.Add(PendingTTL)
	s.Pending = p
}

// TakePending returns and clears the pending selection. An expired selection is dropped and nil
// is returned. The pending state never outlives the next utterance.
func (s *Session) TakePending(now time.Time) *PendingSelection {
	p := s.Pending
	s.Pending = nil
	if p == nil || !now.Before(p.ExpiresAt) {
		return nil
	}
	return p
}

// AppendTurn records a user-assistant turn, keeping the last MaxMessagesPerSession messages.
func (s *Session) AppendTurn(user, assistant string) {
	s.Messages = append(s.Messages,
		Message{Role: "user", Content: user},
		Message{Role: "assistant", Content: assistant},
	)
	if len(s.Messages) > MaxMessagesPerSession {
		s.Messages = s.Messages[len(s.Messages)-MaxMessagesPerSession:]
	}
	s.UpdatedAt = time.Now()
}

// expired reports whether an idle session outlived ttl.
func (s *Session) expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.UpdatedAt) >= ttl
}

// clone returns a deep copy so stored sessions are not shared with callers.
func (s *Session) clone() *Session {
	c := *s
	c.Messages = append([]Message(nil), s.Messages...)
	if s.Pending != nil {
		p := *s.Pending
		p.Candidates = append([]Candidate(nil), s.Pending.Candidates...)
		if s.Pending.Patch != nil {
			patch := *s.Pending.Patch
			p.Patch = &patch
		}
		c.Pending = &p
	}
	return &c
}
