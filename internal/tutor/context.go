// Package tutor implements the conversation orchestration core: the tutoring
// agent that turns a learner's text or audio turn into a context-aware reply
// plus a quantified pronunciation score.
//
// One [ConversationContext] belongs to exactly one active lesson session and
// is mutated only by the [Agent] processing that session's turns. Independent
// sessions may run concurrently; the shared chat and speech gateways are safe
// for concurrent use, the context is not shared.
package tutor

import "time"

// UserLevel describes the learner's proficiency.
type UserLevel string

const (
	LevelBeginner     UserLevel = "beginner"
	LevelIntermediate UserLevel = "intermediate"
	LevelAdvanced     UserLevel = "advanced"
)

// IsValid reports whether l is a recognised level.
func (l UserLevel) IsValid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

// UserInput is the learner's half of an exchange.
type UserInput struct {
	// Text is what the learner typed (or said, as they reported it).
	Text string

	// AudioRef identifies the recording attached to this turn, if any. The
	// audio bytes themselves are not retained in conversation history.
	AudioRef string

	// Timestamp is when the turn was received.
	Timestamp time.Time
}

// ExchangeResponse is the agent's half of an exchange.
type ExchangeResponse struct {
	// Text is the tutor's Arabic reply text.
	Text string

	// RawResponse is the raw JSON string the model produced. It is replayed
	// verbatim as the assistant turn when reconstructing history, preserving
	// continuity of the model's structured output.
	RawResponse string

	// Feedback is the first teaching point of the reply, if any.
	Feedback string

	// Corrections are pronunciation corrections attached to this turn.
	Corrections []string

	// NextPrompts are the model's suggested learner responses.
	NextPrompts []string

	// Timestamp is when the reply was assembled.
	Timestamp time.Time
}

// Exchange is one user-input/agent-response pair recorded in conversation
// history. Exchanges are immutable once appended.
type Exchange struct {
	UserInput     UserInput
	AgentResponse ExchangeResponse
}

// ConversationContext carries everything the agent knows about the session:
// learner metadata, lesson linkage, and the full exchange history. It is
// owned exclusively by one active session and must not be shared across
// concurrent turns.
type ConversationContext struct {
	// UserLevel is the learner's proficiency; immutable for the session
	// unless explicitly updated.
	UserLevel UserLevel

	// EnrollmentID, CurriculumID and LessonID are opaque identifiers
	// correlating to the curriculum collaborator. All optional.
	EnrollmentID string
	CurriculumID string
	LessonID     string

	// LessonTopic and FocusArea describe the current pedagogical objective.
	// Optional, supplied once at session start.
	LessonTopic string
	FocusArea   string

	// UserGoals and CulturalContext are advisory free text.
	UserGoals       []string
	CulturalContext string

	// exchanges is the append-only conversation history in chronological
	// order. Growth is unbounded; only the most recent window is read when
	// building prompts.
	exchanges []Exchange
}

// Append records a completed exchange. Timestamps are clamped so that the
// history invariant holds: every exchange's timestamps are non-decreasing
// relative to prior exchanges.
func (c *ConversationContext) Append(ex Exchange) {
	if n := len(c.exchanges); n > 0 {
		prev := c.exchanges[n-1].AgentResponse.Timestamp
		if ex.UserInput.Timestamp.Before(prev) {
			ex.UserInput.Timestamp = prev
		}
	}
	if ex.AgentResponse.Timestamp.Before(ex.UserInput.Timestamp) {
		ex.AgentResponse.Timestamp = ex.UserInput.Timestamp
	}
	c.exchanges = append(c.exchanges, ex)
}

// Window returns the last n exchanges, oldest first. n ≤ 0 returns nil. The
// returned slice shares backing storage with the history and must be treated
// as read-only.
func (c *ConversationContext) Window(n int) []Exchange {
	if n <= 0 {
		return nil
	}
	if n > len(c.exchanges) {
		n = len(c.exchanges)
	}
	return c.exchanges[len(c.exchanges)-n:]
}

// Len returns the number of recorded exchanges.
func (c *ConversationContext) Len() int {
	return len(c.exchanges)
}
