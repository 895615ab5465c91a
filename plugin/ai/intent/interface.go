// Package intent extracts a structured Calendar Intent from a natural-language utterance.
// The language service path and the rule-based path share one Extractor contract.
package intent

import (
	"context"
	"strings"
	"time"
)

// Extractor defines the intent extraction contract.
// Consumers: agent orchestrator.
type Extractor interface {
	// Extract turns an utterance into an Intent relative to the reference instant.
	Extract(ctx context.Context, utterance string, ref time.Time) (Intent, error)
}

// Operation is the calendar operation requested by an utterance.
type Operation string

const (
	OpCreate Operation = "create"
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
	OpSearch Operation = "search"
)

// Operations lists the recognized operations.
var Operations = []Operation{OpCreate, OpRead, OpUpdate, OpDelete, OpSearch}

// ParseOperation validates a reply value. Only the five recognized kinds are accepted.
func ParseOperation(s string) (Operation, bool) {
	op := Operation(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Operations {
		if op == known {
			return op, true
		}
	}
	return "", false
}

// Source tells which extractor produced an Intent.
type Source string

const (
	SourceLLM  Source = "llm"
	SourceRule Source = "rule"
)

// Intent is the structured form of an utterance. Temporal fields hold raw expressions
// (absolute ISO-8601 or relative text); they are resolved by the orchestrator.
// Fields the utterance does not mention stay empty.
type Intent struct {
	Operation   Operation `json:"operation"`
	Title       string    `json:"title,omitempty"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
	SearchQuery string    `json:"search_query,omitempty"`

	// Target is a title substring locating an existing event (update/delete).
	Target string `json:"target,omitempty"`
	// TargetTime narrows the target by time ("明天的会议").
	TargetTime string `json:"target_time,omitempty"`
	// TargetAll asks to delete every match instead of exactly one.
	TargetAll bool `json:"target_all,omitempty"`

	// Start and End are the event time (create/read) or the new time (update).
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`

	// Calendar names a calendar mentioned in the utterance, if any.
	Calendar string `json:"calendar,omitempty"`

	Source Source `json:"source"`
}

// HasTime reports whether the intent carries temporal text for its own time.
func (i Intent) HasTime() bool {
	return i.Start != "" || i.End != ""
}

// Selector returns the title used to locate the target of update/delete.
// Falls back to Title when the extractor filled only that.
func (i Intent) Selector() string {
	if i.Target != "" {
		return i.Target
	}
	return i.Title
}
