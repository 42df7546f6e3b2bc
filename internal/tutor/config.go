package tutor

import "time"

// Role is the persona the agent presents to the learner.
type Role string

const (
	RoleConversationPartner Role = "conversationPartner"
	RoleGrammarTutor        Role = "grammarTutor"
	RoleCulturalGuide       Role = "culturalGuide"
	RolePronunciationCoach  Role = "pronunciationCoach"
	RoleProgressMentor      Role = "progressMentor"
)

// IsValid reports whether r is a recognised role.
func (r Role) IsValid() bool {
	switch r {
	case RoleConversationPartner, RoleGrammarTutor, RoleCulturalGuide, RolePronunciationCoach, RoleProgressMentor:
		return true
	}
	return false
}

// TeachingStyle flavours the agent's tone.
type TeachingStyle string

const (
	StyleCasual      TeachingStyle = "casual"
	StyleFormal      TeachingStyle = "formal"
	StyleEncouraging TeachingStyle = "encouraging"
	StyleChallenging TeachingStyle = "challenging"
)

// IsValid reports whether s is a recognised teaching style.
func (s TeachingStyle) IsValid() bool {
	switch s {
	case StyleCasual, StyleFormal, StyleEncouraging, StyleChallenging:
		return true
	}
	return false
}

// Personality describes the static persona injected into the system prompt.
type Personality struct {
	Role          Role
	TeachingStyle TeachingStyle
	Traits        []string
}

// AgentConfig holds the per-session tuning knobs for an [Agent]. It is
// immutable for the session unless explicitly reconfigured.
type AgentConfig struct {
	// Personality is the persona presented to the learner.
	Personality Personality

	// ContextWindow is the number of most-recent exchanges included in
	// prompt construction. Must be ≥ 0.
	ContextWindow int

	// Temperature is the LLM sampling parameter for dialogue turns.
	Temperature float64

	// MaxResponseTokens caps the completion length of each chat call.
	MaxResponseTokens int

	// ResponseTimeout bounds each chat completion call. Exceeding it
	// surfaces as a gateway error rather than hanging the turn.
	ResponseTimeout time.Duration
}

// DefaultConfig returns the configuration used when a session does not
// specify its own.
func DefaultConfig() AgentConfig {
	return AgentConfig{
		Personality: Personality{
			Role:          RoleConversationPartner,
			TeachingStyle: StyleEncouraging,
			Traits:        []string{"patient", "clear"},
		},
		ContextWindow:     5,
		Temperature:       0.7,
		MaxResponseTokens: 1000,
		ResponseTimeout:   10 * time.Second,
	}
}
