package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/lisan-app/lisan/internal/tutor"
)

// sessionStartRequest opens a tutoring session.
type sessionStartRequest struct {
	UserLevel       string   `json:"user_level"`
	EnrollmentID    string   `json:"enrollment_id"`
	CurriculumID    string   `json:"curriculum_id"`
	LessonID        string   `json:"lesson_id"`
	UserGoals       []string `json:"user_goals"`
	CulturalContext string   `json:"cultural_context"`
}

func (req sessionStartRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.UserLevel, validation.Required, validation.By(func(any) error {
			if !tutor.UserLevel(req.UserLevel).IsValid() {
				return errors.New("must be beginner, intermediate or advanced")
			}
			return nil
		})),
		validation.Field(&req.LessonID, validation.Length(0, 128)),
		validation.Field(&req.EnrollmentID, validation.Length(0, 128)),
	)
}

// turnRequest is one learner turn within a session. Audio is base64-encoded
// by the standard JSON codec.
type turnRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
	Audio     []byte `json:"audio,omitempty"`
	AudioMIME string `json:"audio_mime,omitempty"`
}

func (req turnRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.SessionID, validation.Required),
		validation.Field(&req.Text, validation.Required, validation.Length(1, 4096)),
	)
}

// analyzeRequest asks for a structural breakdown of a learning prompt.
type analyzeRequest struct {
	SessionID string `json:"session_id"`
	Prompt    string `json:"prompt"`
}

func (req analyzeRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.SessionID, validation.Required),
		validation.Field(&req.Prompt, validation.Required, validation.Length(1, 4096)),
	)
}

// completeLessonRequest marks a lesson finished for an enrollment.
type completeLessonRequest struct {
	EnrollmentID string `json:"enrollment_id"`
}

func (req completeLessonRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.EnrollmentID, validation.Required),
	)
}

// decodeAndValidate decodes the JSON request body into dst and runs its
// validation. On failure it writes the 400 response and reports false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst validation.Validatable) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := dst.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (a *API) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	var req sessionStartRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	c := &tutor.ConversationContext{
		UserLevel:       tutor.UserLevel(req.UserLevel),
		EnrollmentID:    req.EnrollmentID,
		CurriculumID:    req.CurriculumID,
		LessonID:        req.LessonID,
		UserGoals:       req.UserGoals,
		CulturalContext: req.CulturalContext,
	}

	if req.LessonID != "" && a.lessons != nil {
		lesson, err := a.lessons.Lesson(r.Context(), req.LessonID)
		if err != nil {
			slog.Warn("lesson lookup failed", "lesson_id", req.LessonID, "error", err)
		} else if lesson != nil {
			c.LessonTopic = lesson.Title
			c.FocusArea = lesson.Objective
		}
	}

	agent, err := a.newAgent(c)
	if err != nil {
		slog.Error("agent construction failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not start session")
		return
	}

	session, err := a.sessions.Create(agent)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not start session")
		return
	}

	writeData(w, http.StatusCreated, map[string]string{"session_id": session.ID})
}

func (a *API) handleSessionEnd(w http.ResponseWriter, r *http.Request) {
	a.sessions.End(chi.URLParam(r, "sessionID"))
	writeData(w, http.StatusOK, map[string]bool{"ended": true})
}

func (a *API) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	session := a.sessions.Get(req.SessionID)
	if session == nil {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}

	resp := session.Run(r.Context(), tutor.TurnInput{
		Text:      req.Text,
		Audio:     req.Audio,
		AudioMIME: req.AudioMIME,
	})

	// Turn failures are represented inside the response rather than as a
	// transport error; the session stays usable.
	writeData(w, http.StatusOK, resp)
}

func (a *API) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	session := a.sessions.Get(req.SessionID)
	if session == nil {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}

	analysis, err := session.Agent.AnalyzePrompt(r.Context(), req.Prompt)
	if err != nil {
		slog.Error("prompt analysis failed", "error", err)
		writeError(w, http.StatusBadGateway, "analysis unavailable")
		return
	}
	writeData(w, http.StatusOK, analysis)
}

func (a *API) handleCompleteLesson(w http.ResponseWriter, r *http.Request) {
	if a.lessons == nil {
		writeError(w, http.StatusNotImplemented, "curriculum store is not configured")
		return
	}

	var req completeLessonRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	lessonID := chi.URLParam(r, "lessonID")
	if err := a.lessons.CompleteLesson(r.Context(), req.EnrollmentID, lessonID); err != nil {
		slog.Error("lesson completion failed", "lesson_id", lessonID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not record completion")
		return
	}
	writeData(w, http.StatusOK, map[string]bool{"completed": true})
}
