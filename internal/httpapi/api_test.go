package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/lisan-app/lisan/internal/curriculum"
	curriculummock "github.com/lisan-app/lisan/internal/curriculum/mock"
	"github.com/lisan-app/lisan/internal/speech"
	"github.com/lisan-app/lisan/internal/tutor"
	"github.com/lisan-app/lisan/pkg/pronounce"
	chatmock "github.com/lisan-app/lisan/pkg/provider/chat/mock"
)

type testEnv struct {
	api      *API
	server   *httptest.Server
	sessions *tutor.SessionManager
	chat     *chatmock.Provider
	lessons  *curriculummock.Store
}

func newTestEnv(t *testing.T, opts ...APIOption) *testEnv {
	t.Helper()

	chatProvider := &chatmock.Provider{Response: `{"arabic":"أهلاً"}`}
	lessons := &curriculummock.Store{Lessons: []curriculum.LessonInfo{
		{LessonID: "l1", Title: "Greetings", Objective: "Say hello"},
	}}
	gw := speech.NewGateway(pronounce.NewSimulator(rand.New(rand.NewSource(1))), nil, "ar")
	sessions := tutor.NewSessionManager()

	factory := func(c *tutor.ConversationContext) (*tutor.Agent, error) {
		return tutor.NewAgent(chatProvider, gw, tutor.DefaultConfig(), c, tutor.WithLessonFinder(lessons))
	}

	opts = append([]APIOption{WithLessonStore(lessons)}, opts...)
	api := New(gw, sessions, factory, opts...)
	server := httptest.NewServer(api.Router())
	t.Cleanup(server.Close)

	return &testEnv{api: api, server: server, sessions: sessions, chat: chatProvider, lessons: lessons}
}

func (e *testEnv) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(e.server.URL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func decodeEnvelope(t *testing.T, resp *http.Response) (bool, map[string]any, string) {
	t.Helper()
	defer resp.Body.Close()

	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	data := map[string]any{}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return env.Success, data, env.Error
}

func (e *testEnv) startSession(t *testing.T, body map[string]any) string {
	t.Helper()
	resp := e.postJSON(t, "/api/agent/sessions", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("session start status = %d, want 201", resp.StatusCode)
	}
	_, data, _ := decodeEnvelope(t, resp)
	id, _ := data["session_id"].(string)
	if id == "" {
		t.Fatal("session start returned no session_id")
	}
	return id
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestReadyz_FailingChecker(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, WithReadinessChecks(
		Checker{Name: "database", Check: func(context.Context) error { return errors.New("down") }},
		Checker{Name: "chat", Check: func(context.Context) error { return nil }},
	))

	resp, err := http.Get(env.server.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}

	var res struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Status != "fail" {
		t.Errorf("status field = %q, want fail", res.Status)
	}
	if !strings.HasPrefix(res.Checks["database"], "fail") {
		t.Errorf("database check = %q, want failure detail", res.Checks["database"])
	}
	if res.Checks["chat"] != "ok" {
		t.Errorf("chat check = %q, want ok", res.Checks["chat"])
	}
}

func postSpeechForm(t *testing.T, url string, audio []byte, mimeType string, fields map[string]string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %q: %v", k, err)
		}
	}
	if audio != nil {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", `form-data; name="audio"; filename="rec.webm"`)
		hdr.Set("Content-Type", mimeType)
		part, err := mw.CreatePart(hdr)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(audio); err != nil {
			t.Fatalf("write audio: %v", err)
		}
	}
	mw.Close()

	resp, err := http.Post(url+"/api/speech", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("POST /api/speech: %v", err)
	}
	return resp
}

func TestSpeechCheck_MockMode(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	resp := postSpeechForm(t, env.server.URL, []byte("opus"), "audio/webm",
		map[string]string{"expectedText": "مرحبا", "mode": "mock"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	success, data, _ := decodeEnvelope(t, resp)
	if !success {
		t.Fatal("success = false, want true")
	}
	if data["expected_text"] != "مرحبا" {
		t.Errorf("expected_text = %v, want مرحبا", data["expected_text"])
	}
	if data["transcribed_text"] == "" {
		t.Error("transcribed_text is empty")
	}
	score, ok := data["pronunciation_score"].(float64)
	if !ok || score < pronounce.MinScore || score > 1 {
		t.Errorf("pronunciation_score = %v, want within [%v, 1]", data["pronunciation_score"], pronounce.MinScore)
	}
	if data["feedback"] == "" {
		t.Error("feedback is empty")
	}
	if data["mode"] != "mock" {
		t.Errorf("mode = %v, want mock", data["mode"])
	}
	if _, ok := data["confidence"].(float64); !ok {
		t.Errorf("confidence = %v, want a number on the mock path", data["confidence"])
	}
	if _, ok := data["phoneme_analysis"].(map[string]any); !ok {
		t.Errorf("phoneme_analysis = %v, want an object on the mock path", data["phoneme_analysis"])
	}
}

func TestSpeechCheck_Rejections(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	tests := []struct {
		name       string
		audio      []byte
		mime       string
		fields     map[string]string
		wantStatus int
	}{
		{"missing expected text", []byte("opus"), "audio/webm", map[string]string{}, http.StatusBadRequest},
		{"invalid mode", []byte("opus"), "audio/webm", map[string]string{"expectedText": "مرحبا", "mode": "hybrid"}, http.StatusBadRequest},
		{"missing audio", nil, "", map[string]string{"expectedText": "مرحبا"}, http.StatusBadRequest},
		{"empty audio", []byte{}, "audio/webm", map[string]string{"expectedText": "مرحبا"}, http.StatusBadRequest},
		{"oversized audio", make([]byte, speech.MaxAudioBytes+1), "audio/webm", map[string]string{"expectedText": "مرحبا"}, http.StatusRequestEntityTooLarge},
		{"unsupported media", []byte("opus"), "video/mp4", map[string]string{"expectedText": "مرحبا"}, http.StatusUnsupportedMediaType},
		{"real mode unconfigured", []byte("opus"), "audio/webm", map[string]string{"expectedText": "مرحبا", "mode": "real"}, http.StatusNotImplemented},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			resp := postSpeechForm(t, env.server.URL, tc.audio, tc.mime, tc.fields)
			defer resp.Body.Close()
			if resp.StatusCode != tc.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.wantStatus)
			}
		})
	}
}

func TestSessionStart_FillsLessonContext(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	id := env.startSession(t, map[string]any{
		"user_level":    "beginner",
		"enrollment_id": "enr-1",
		"lesson_id":     "l1",
	})

	session := env.sessions.Get(id)
	if session == nil {
		t.Fatal("created session not found in manager")
	}
	c := session.Agent.Context()
	if c.LessonTopic != "Greetings" {
		t.Errorf("LessonTopic = %q, want Greetings", c.LessonTopic)
	}
	if c.FocusArea != "Say hello" {
		t.Errorf("FocusArea = %q, want Say hello", c.FocusArea)
	}
}

func TestSessionStart_InvalidLevel(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	resp := env.postJSON(t, "/api/agent/sessions", map[string]any{"user_level": "fluent"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestTurn(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	id := env.startSession(t, map[string]any{"user_level": "beginner"})

	resp := env.postJSON(t, "/api/agent/turn", map[string]any{
		"session_id": id,
		"text":       "مرحبا",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	success, data, _ := decodeEnvelope(t, resp)
	if !success {
		t.Fatal("success = false, want true")
	}
	if data["response"] != "أهلاً" {
		t.Errorf("response = %v, want أهلاً", data["response"])
	}
}

func TestTurn_UnknownSession(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	resp := env.postJSON(t, "/api/agent/turn", map[string]any{
		"session_id": "nope",
		"text":       "hi",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestTurn_MissingText(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	id := env.startSession(t, map[string]any{"user_level": "beginner"})

	resp := env.postJSON(t, "/api/agent/turn", map[string]any{"session_id": id})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSessionEnd(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	id := env.startSession(t, map[string]any{"user_level": "beginner"})

	req, err := http.NewRequest(http.MethodDelete, env.server.URL+"/api/agent/sessions/"+id, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE session: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if env.sessions.Get(id) != nil {
		t.Error("session still present after DELETE")
	}
}

func TestAnalyze(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.chat.Response = `{"difficulty":"beginner"}`
	id := env.startSession(t, map[string]any{"user_level": "beginner"})

	resp := env.postJSON(t, "/api/agent/analyze", map[string]any{
		"session_id": id,
		"prompt":     "ترجم: مرحبا",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	success, data, _ := decodeEnvelope(t, resp)
	if !success || data["difficulty"] != "beginner" {
		t.Errorf("analysis = %v, want difficulty beginner", data)
	}
}

func TestCompleteLesson(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	resp := env.postJSON(t, "/api/lessons/l1/complete", map[string]any{"enrollment_id": "enr-1"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	next, err := env.lessons.NextLesson(context.Background(), "enr-1")
	if err != nil {
		t.Fatalf("NextLesson() error = %v", err)
	}
	if next != nil {
		t.Errorf("NextLesson() = %+v, want nil after completing the only lesson", next)
	}
}

func TestCompleteLesson_NoStore(t *testing.T) {
	t.Parallel()

	gw := speech.NewGateway(pronounce.NewSimulator(rand.New(rand.NewSource(1))), nil, "ar")
	api := New(gw, tutor.NewSessionManager(), func(c *tutor.ConversationContext) (*tutor.Agent, error) {
		return tutor.NewAgent(&chatmock.Provider{}, gw, tutor.DefaultConfig(), c)
	})
	server := httptest.NewServer(api.Router())
	t.Cleanup(server.Close)

	resp, err := http.Post(server.URL+"/api/lessons/l1/complete", "application/json",
		strings.NewReader(`{"enrollment_id":"enr-1"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotImplemented {
		t.Errorf("status = %d, want 501", resp.StatusCode)
	}
}
