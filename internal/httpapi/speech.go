package httpapi

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/lisan-app/lisan/internal/speech"
	"github.com/lisan-app/lisan/pkg/pronounce"
)

// multipartMemoryLimit bounds the in-memory portion of multipart parsing;
// larger parts spill to disk before the audio size check rejects them.
const multipartMemoryLimit = 8 << 20

// speechCheckResult is the data payload of a pronunciation check.
type speechCheckResult struct {
	TranscribedText    string                     `json:"transcribed_text"`
	ExpectedText       string                     `json:"expected_text"`
	PronunciationScore float64                    `json:"pronunciation_score"`
	Confidence         *float64                   `json:"confidence,omitempty"`
	Feedback           string                     `json:"feedback"`
	PhonemeAnalysis    *pronounce.PhonemeAnalysis `json:"phoneme_analysis,omitempty"`
	Mode               speech.Mode                `json:"mode"`
}

// handleSpeechCheck accepts a multipart form with an "audio" file, the
// "expectedText" the learner attempted, and an optional "mode" selecting the
// transcription path.
func (a *API) handleSpeechCheck(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	expectedText := r.FormValue("expectedText")
	mode := speech.Mode(r.FormValue("mode"))
	formErrs := validation.Errors{
		"expectedText": validation.Validate(expectedText, validation.Required),
		"mode": validation.Validate(string(mode), validation.By(func(any) error {
			if mode != "" && !mode.IsValid() {
				return errors.New("must be mock or real")
			}
			return nil
		})),
	}
	if err := formErrs.Filter(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	audio, mimeType, err := readAudioPart(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read audio upload")
		return
	}

	result, err := a.speech.Transcribe(r.Context(), audio, mimeType, expectedText, mode)
	if err != nil {
		writeError(w, speechStatus(err), err.Error())
		return
	}

	score := pronounce.Score(result.Transcribed, expectedText)
	a.metrics.RecordScore(r.Context(), score)

	writeData(w, http.StatusOK, speechCheckResult{
		TranscribedText:    result.Transcribed,
		ExpectedText:       expectedText,
		PronunciationScore: score,
		Confidence:         result.Confidence,
		Feedback:           pronounce.FeedbackFor(score),
		PhonemeAnalysis:    result.Phonemes,
		Mode:               result.Mode,
	})
}

// readAudioPart extracts the raw bytes and declared MIME type of the "audio"
// form file. A missing part yields nil bytes so the gateway reports its own
// absent-audio error.
func readAudioPart(r *http.Request) ([]byte, string, error) {
	file, header, err := r.FormFile("audio")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, "", nil
		}
		return nil, "", err
	}
	defer file.Close()

	// One byte past the admission limit is enough to trigger the size
	// rejection without buffering an unbounded upload.
	audio, err := io.ReadAll(io.LimitReader(file, speech.MaxAudioBytes+1))
	if err != nil {
		return nil, "", err
	}
	return audio, header.Header.Get("Content-Type"), nil
}

// speechStatus maps gateway sentinels onto HTTP status codes.
func speechStatus(err error) int {
	switch {
	case errors.Is(err, speech.ErrNoAudio), errors.Is(err, speech.ErrInvalidAudio):
		return http.StatusBadRequest
	case errors.Is(err, speech.ErrAudioTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, speech.ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, speech.ErrNotConfigured):
		return http.StatusNotImplemented
	default:
		slog.Error("speech check failed", "error", err)
		return http.StatusInternalServerError
	}
}
