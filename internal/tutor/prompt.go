package tutor

import (
	"fmt"
	"strings"
)

// defaultLessonTopic and defaultFocusArea fill the prompt when the session
// has no active lesson.
const (
	defaultLessonTopic = "General Conversation"
	defaultFocusArea   = "Practice speaking freely"
)

// buildSystemPrompt renders the deterministic system prompt for a dialogue
// turn from the agent's configuration and the session context. The prompt
// states the persona, the learner's level and lesson, a fixed set of
// behavioural directives, and the mandated JSON reply shape.
func buildSystemPrompt(cfg AgentConfig, c *ConversationContext) string {
	topic := c.LessonTopic
	if topic == "" {
		topic = defaultLessonTopic
	}
	focus := c.FocusArea
	if focus == "" {
		focus = defaultFocusArea
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an Arabic language %s, teaching with a %s style.\n",
		cfg.Personality.Role, cfg.Personality.TeachingStyle)
	fmt.Fprintf(&b, "Your traits: %s.\n", strings.Join(cfg.Personality.Traits, ", "))
	fmt.Fprintf(&b, "The student's level is: %s.\n", c.UserLevel)
	fmt.Fprintf(&b, "The current lesson is %q.\n", topic)
	fmt.Fprintf(&b, "The learning objective for this lesson is: %q.\n", focus)

	if len(c.UserGoals) > 0 {
		fmt.Fprintf(&b, "The student's goals: %s.\n", strings.Join(c.UserGoals, ", "))
	}
	if c.CulturalContext != "" {
		fmt.Fprintf(&b, "Cultural context to keep in mind: %s.\n", c.CulturalContext)
	}

	b.WriteString(`
Your responses should:
1. Be culturally appropriate and engaging
2. Use Modern Standard Arabic (MSA) unless specifically teaching dialects
3. Include transliteration when introducing new words
4. Provide gentle corrections for mistakes
5. Maintain conversation flow while teaching
6. Adapt to the student's level and progress

Respond in this JSON structure:
{
  "arabic": "Arabic response",
  "translation": "English translation",
  "teaching": [{
    "type": "explain|correct|encourage|challenge|suggest",
    "content": "Teaching point"
  }],
  "nextPrompts": ["Suggested responses for student"]
}`)

	return b.String()
}

// buildFeedbackPrompt renders the narrowly-scoped prompt for the secondary
// pronunciation-coaching call given the expected and actually-transcribed
// phrases.
func buildFeedbackPrompt(expected, transcribed string) string {
	return fmt.Sprintf(`As an Arabic pronunciation coach, a student was asked to say: %q. `+
		`They actually said: %q. Provide short, actionable feedback. `+
		`Identify the main error and give a tip to fix it. `+
		`Respond in JSON like this: { "corrections": ["'said' -> 'expected'"], "tips": ["Your tip here."] }`,
		expected, transcribed)
}

// analysisPrompt is the system prompt for [Agent.AnalyzePrompt].
const analysisPrompt = "Analyze the given Arabic learning prompt and break it down into " +
	"grammatical components, difficulty level, and cultural context. Respond as a JSON object."
