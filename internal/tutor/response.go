package tutor

import "encoding/json"

// TeachingAction is a structured tutoring directive attached to a reply.
type TeachingAction struct {
	// Type is one of "explain", "correct", "encourage", "challenge",
	// "suggest".
	Type string `json:"type"`

	// Content is the teaching point itself.
	Content string `json:"content"`

	// Context optionally situates the point (e.g., the phrase it refers to).
	Context string `json:"context,omitempty"`
}

// PronunciationFeedback quantifies an audio turn.
type PronunciationFeedback struct {
	// Score is the pronunciation score in [0.3, 1.0] (0 when the audio could
	// not be analysed at all).
	Score float64 `json:"score"`

	// Corrections lists specific "'said' -> 'expected'" fixes.
	Corrections []string `json:"corrections"`

	// Tips lists short actionable advice.
	Tips []string `json:"tips"`
}

// NextStep points the learner at follow-up material.
type NextStep struct {
	Topic      string `json:"topic"`
	Difficulty int    `json:"difficulty"`
	Type       string `json:"type"`
}

// AgentResponse is the structured result of one tutoring turn. The core does
// not persist it; durable recording is the persistence collaborator's job.
type AgentResponse struct {
	// Response is the tutor's reply text. On the error path it holds a
	// user-safe fallback message, never an empty string.
	Response string `json:"response"`

	// Teaching is the ordered sequence of teaching actions for this turn.
	Teaching []TeachingAction `json:"teaching,omitempty"`

	// SuggestedTopics offers conversation directions.
	SuggestedTopics []string `json:"suggestedTopics,omitempty"`

	// PronunciationFeedback is present only for audio turns.
	PronunciationFeedback *PronunciationFeedback `json:"pronunciationFeedback,omitempty"`

	// NextSteps points at the next uncompleted lesson when one is known.
	NextSteps []NextStep `json:"nextSteps,omitempty"`

	// Error carries the failure description when the turn failed. Response
	// still contains a user-safe fallback in that case.
	Error string `json:"error,omitempty"`
}

// chatReply is the JSON shape the system prompt mandates for dialogue turns.
// Every field is optional: the model's free-form output is never trusted to
// be complete.
type chatReply struct {
	Arabic      string           `json:"arabic"`
	Translation string           `json:"translation"`
	Teaching    []TeachingAction `json:"teaching"`
	NextPrompts []string         `json:"nextPrompts"`
}

// feedbackReply is the JSON shape requested from the secondary
// pronunciation-coaching call.
type feedbackReply struct {
	Corrections []string `json:"corrections"`
	Tips        []string `json:"tips"`
}

// parseChatReply decodes the model's raw reply. Malformed JSON yields the
// zero value (all fields absent) rather than an error — the defensive default
// mandated for external model output.
func parseChatReply(raw string) chatReply {
	var reply chatReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return chatReply{}
	}
	return reply
}

// parseFeedbackReply decodes the corrections/tips reply with the same
// defensive default.
func parseFeedbackReply(raw string) feedbackReply {
	var reply feedbackReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return feedbackReply{}
	}
	return reply
}
