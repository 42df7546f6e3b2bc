package tutor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lisan-app/lisan/internal/curriculum"
	"github.com/lisan-app/lisan/internal/observe"
	"github.com/lisan-app/lisan/internal/speech"
	"github.com/lisan-app/lisan/pkg/pronounce"
	"github.com/lisan-app/lisan/pkg/provider/chat"
)

// fallbackResponse and fallbackTeaching are the fixed user-safe reply used
// when a turn fails unrecoverably. The session survives; the next turn starts
// clean.
const (
	fallbackResponse = "عفواً، حدث خطأ. (Sorry, an error occurred.)"
	fallbackTeaching = "There was an error processing your input. Please try again."
)

// perfectTip is the celebratory tip returned when pronunciation is already
// excellent, short-circuiting the second chat call.
const perfectTip = "Excellent pronunciation! Perfect. 🎉"

// NextLessonFinder is the slice of the curriculum collaborator the agent
// needs for next-step suggestions.
type NextLessonFinder interface {
	NextLesson(ctx context.Context, enrollmentID string) (*curriculum.LessonInfo, error)
}

// TurnInput is one learner turn: text plus an optional recording.
type TurnInput struct {
	// Text is the learner's written input.
	Text string

	// Audio is the optional encoded recording of the learner's attempt.
	Audio []byte

	// AudioMIME is the declared MIME type of Audio, validated at the speech
	// gateway boundary. May be empty.
	AudioMIME string
}

// Agent orchestrates tutoring turns for a single session. It owns the
// session's [ConversationContext]; calls for one Agent must not overlap,
// while independent Agents may run turns concurrently against the shared
// gateways.
type Agent struct {
	cfg     AgentConfig
	context *ConversationContext

	chat    chat.Provider
	speech  *speech.Gateway
	lessons NextLessonFinder
	metrics *observe.Metrics

	now func() time.Time
}

// Option configures an [Agent] during construction.
type Option func(*Agent)

// WithLessonFinder wires the curriculum collaborator used for next-step
// suggestions. Without it, NextSteps is always empty.
func WithLessonFinder(f NextLessonFinder) Option {
	return func(a *Agent) { a.lessons = f }
}

// WithMetrics wires metric recording. A nil Metrics records nothing.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *Agent) { a.metrics = m }
}

// WithClock overrides the time source used for exchange timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

// NewAgent creates an Agent bound to an initial context. chatProvider must
// not be nil; speechGateway may be nil when audio turns are not expected.
// Zero-valued config fields are replaced with the defaults from
// [DefaultConfig].
func NewAgent(chatProvider chat.Provider, speechGateway *speech.Gateway, cfg AgentConfig, initial *ConversationContext, opts ...Option) (*Agent, error) {
	if chatProvider == nil {
		return nil, fmt.Errorf("tutor: chat provider must not be nil")
	}
	if initial == nil {
		return nil, fmt.Errorf("tutor: initial context must not be nil")
	}
	if cfg.ContextWindow < 0 {
		return nil, fmt.Errorf("tutor: context window must be >= 0, got %d", cfg.ContextWindow)
	}

	def := DefaultConfig()
	if cfg.Personality.Role == "" {
		cfg.Personality = def.Personality
	}
	if cfg.ContextWindow == 0 {
		cfg.ContextWindow = def.ContextWindow
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = def.Temperature
	}
	if cfg.MaxResponseTokens <= 0 {
		cfg.MaxResponseTokens = def.MaxResponseTokens
	}
	if cfg.ResponseTimeout <= 0 {
		cfg.ResponseTimeout = def.ResponseTimeout
	}

	a := &Agent{
		cfg:     cfg,
		context: initial,
		chat:    chatProvider,
		speech:  speechGateway,
		now:     time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

// Context returns the session's conversation context.
func (a *Agent) Context() *ConversationContext { return a.context }

// Config returns the agent's effective configuration.
func (a *Agent) Config() AgentConfig { return a.cfg }

// ProcessTurn runs one tutoring turn: it builds the system prompt, replays
// the windowed history, invokes the chat gateway, optionally scores the
// learner's pronunciation, appends the exchange to the session context, and
// assembles the structured response.
//
// ProcessTurn never returns an error: every failure is converted into an
// AgentResponse carrying a user-safe fallback message and the failure detail
// in Error.
func (a *Agent) ProcessTurn(ctx context.Context, in TurnInput) AgentResponse {
	start := time.Now()
	resp := a.processTurn(ctx, in)

	status := "ok"
	if resp.Error != "" {
		status = "error"
	}
	a.metrics.RecordTurn(ctx, time.Since(start).Seconds(), status)
	return resp
}

func (a *Agent) processTurn(ctx context.Context, in TurnInput) AgentResponse {
	systemPrompt := buildSystemPrompt(a.cfg, a.context)
	messages := append(a.historyMessages(), chat.Message{Role: "user", Content: in.Text})

	raw, err := a.complete(ctx, chat.Request{
		SystemPrompt: systemPrompt,
		Messages:     messages,
		Temperature:  a.cfg.Temperature,
		MaxTokens:    a.cfg.MaxResponseTokens,
		JSONObject:   true,
	})
	if err != nil {
		return a.failTurn("chat completion", err)
	}
	reply := parseChatReply(raw)

	var (
		feedback *PronunciationFeedback
		audioRef string
	)
	if len(in.Audio) > 0 {
		audioRef = uuid.NewString()
		feedback, err = a.analyzePronunciation(ctx, in.Audio, in.AudioMIME, reply.Arabic)
		if err != nil {
			return a.failTurn("pronunciation analysis", err)
		}
	}

	now := a.now()
	exchange := Exchange{
		UserInput: UserInput{
			Text:      in.Text,
			AudioRef:  audioRef,
			Timestamp: now,
		},
		AgentResponse: ExchangeResponse{
			Text:        reply.Arabic,
			RawResponse: raw,
			Feedback:    firstTeachingContent(reply.Teaching),
			NextPrompts: reply.NextPrompts,
			Timestamp:   now,
		},
	}
	if feedback != nil {
		exchange.AgentResponse.Corrections = feedback.Corrections
	}
	a.context.Append(exchange)

	return AgentResponse{
		Response:              reply.Arabic,
		Teaching:              reply.Teaching,
		SuggestedTopics:       a.suggestTopics(),
		PronunciationFeedback: feedback,
		NextSteps:             a.nextSteps(ctx),
	}
}

// historyMessages flattens the windowed history into user/assistant message
// pairs, oldest first. The assistant turn replays the raw stored payload, not
// the parsed subset, so the model sees its own structured output.
func (a *Agent) historyMessages() []chat.Message {
	window := a.context.Window(a.cfg.ContextWindow)
	messages := make([]chat.Message, 0, len(window)*2+1)
	for _, ex := range window {
		messages = append(messages,
			chat.Message{Role: "user", Content: ex.UserInput.Text},
			chat.Message{Role: "assistant", Content: ex.AgentResponse.RawResponse},
		)
	}
	return messages
}

// complete issues one chat call bounded by the configured response timeout.
func (a *Agent) complete(ctx context.Context, req chat.Request) (string, error) {
	if a.cfg.ResponseTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.ResponseTimeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := a.chat.Complete(ctx, req)

	status := "ok"
	if err != nil {
		status = "error"
	}
	if a.metrics != nil && a.metrics.ChatDuration != nil {
		a.metrics.ChatDuration.Record(ctx, time.Since(start).Seconds())
	}
	a.metrics.RecordProviderRequest(ctx, "chat", status)

	return raw, err
}

// analyzePronunciation transcribes the learner's recording against the
// expected phrase and builds pronunciation feedback.
//
// A transcription failure (including "real mode not configured") degrades to
// a could-not-analyse feedback block rather than failing the turn. When the
// score is already excellent the second, corrections-seeking chat call is
// skipped entirely.
func (a *Agent) analyzePronunciation(ctx context.Context, audio []byte, mimeType, expected string) (*PronunciationFeedback, error) {
	if a.speech == nil {
		slog.Warn("audio turn received but no speech gateway is configured")
		return unanalysableFeedback(), nil
	}

	start := time.Now()
	result, err := a.speech.Transcribe(ctx, audio, mimeType, expected, speech.ModeReal)
	if a.metrics != nil && a.metrics.TranscriptionDuration != nil {
		a.metrics.TranscriptionDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		a.metrics.RecordProviderRequest(ctx, "transcription", "error")
		slog.Warn("pronunciation analysis unavailable", "error", err)
		return unanalysableFeedback(), nil
	}
	a.metrics.RecordProviderRequest(ctx, "transcription", "ok")

	score := pronounce.Score(result.Transcribed, expected)
	a.metrics.RecordScore(ctx, score)

	if score >= pronounce.ExactMatchScore {
		return &PronunciationFeedback{
			Score:       score,
			Corrections: []string{},
			Tips:        []string{perfectTip},
		}, nil
	}

	raw, err := a.complete(ctx, chat.Request{
		SystemPrompt: buildFeedbackPrompt(expected, result.Transcribed),
		Temperature:  0.5,
		MaxTokens:    a.cfg.MaxResponseTokens,
		JSONObject:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("pronunciation feedback: %w", err)
	}

	fb := parseFeedbackReply(raw)
	if fb.Corrections == nil {
		fb.Corrections = []string{}
	}
	if fb.Tips == nil {
		fb.Tips = []string{}
	}
	return &PronunciationFeedback{
		Score:       score,
		Corrections: fb.Corrections,
		Tips:        fb.Tips,
	}, nil
}

// suggestTopics derives conversation directions: lesson-relative when a
// lesson is active, a fixed generic list otherwise.
func (a *Agent) suggestTopics() []string {
	if a.context.LessonTopic != "" {
		return []string{
			"More about " + a.context.LessonTopic,
			"Review previous lesson",
			"Practice a different topic",
		}
	}
	return []string{"Greetings", "Family", "Food", "Travel"}
}

// nextSteps asks the curriculum collaborator for the next uncompleted
// lesson. Lookup failure must not fail the turn — it degrades to an empty
// list.
func (a *Agent) nextSteps(ctx context.Context) []NextStep {
	if a.context.EnrollmentID == "" || a.lessons == nil {
		return nil
	}

	lesson, err := a.lessons.NextLesson(ctx, a.context.EnrollmentID)
	if err != nil {
		slog.Warn("next lesson lookup failed", "enrollment_id", a.context.EnrollmentID, "error", err)
		return []NextStep{}
	}
	if lesson == nil {
		return []NextStep{}
	}
	return []NextStep{{Topic: lesson.Title, Difficulty: 1, Type: "lesson"}}
}

// AnalyzePrompt asks the model to break an Arabic learning prompt into
// grammatical components, difficulty level, and cultural context. The result
// is the model's JSON object decoded defensively; advisory only.
func (a *Agent) AnalyzePrompt(ctx context.Context, prompt string) (map[string]any, error) {
	raw, err := a.complete(ctx, chat.Request{
		SystemPrompt: analysisPrompt,
		Messages:     []chat.Message{{Role: "user", Content: prompt}},
		Temperature:  0.3,
		JSONObject:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("tutor: analyze prompt: %w", err)
	}

	analysis := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return map[string]any{}, nil
	}
	return analysis, nil
}

// failTurn logs the failure and assembles the fixed fallback response. No
// partial data is attached — on error, teaching beyond the single generic
// action, topics and next steps are omitted rather than zero-valued.
func (a *Agent) failTurn(stage string, err error) AgentResponse {
	slog.Error("tutoring turn failed", "stage", stage, "error", err)
	return AgentResponse{
		Response: fallbackResponse,
		Teaching: []TeachingAction{{Type: "explain", Content: fallbackTeaching}},
		Error:    err.Error(),
	}
}

// unanalysableFeedback is returned when the recording could not be
// transcribed at all.
func unanalysableFeedback() *PronunciationFeedback {
	return &PronunciationFeedback{
		Score:       0,
		Corrections: []string{},
		Tips:        []string{"Could not analyze audio."},
	}
}

// firstTeachingContent returns the content of the first teaching action, or
// empty.
func firstTeachingContent(actions []TeachingAction) string {
	if len(actions) == 0 {
		return ""
	}
	return actions[0].Content
}
