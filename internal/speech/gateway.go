// Package speech implements the transcription gateway that admits learner
// audio into the pronunciation pipeline.
//
// The gateway validates every payload at the boundary (presence, size, MIME
// type) before any processing, then routes it down one of two paths: the
// offline mock simulator, or a real speech-to-text provider that requires a
// configured credential. Each rejection is a distinct error kind so transport
// layers can map them to distinct status signals.
package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lisan-app/lisan/pkg/pronounce"
	"github.com/lisan-app/lisan/pkg/provider/transcribe"
)

// MaxAudioBytes is the size limit for an audio payload: 5 MiB.
const MaxAudioBytes = 5 << 20

// Admission error kinds. Transport layers map these to distinct status codes
// (400 / 413 / 415 / 501 respectively).
var (
	// ErrNoAudio means the payload was absent entirely.
	ErrNoAudio = errors.New("no audio provided")

	// ErrInvalidAudio means the payload was present but not a well-formed
	// binary object (e.g., zero bytes).
	ErrInvalidAudio = errors.New("audio payload is not valid")

	// ErrAudioTooLarge means the payload exceeds [MaxAudioBytes].
	ErrAudioTooLarge = errors.New("audio payload too large")

	// ErrUnsupportedMedia means the declared MIME type is not in the
	// allow-list. An empty MIME type is accepted.
	ErrUnsupportedMedia = errors.New("unsupported audio mime type")

	// ErrNotConfigured means real transcription was requested but no
	// credentialed provider is available. This is a service-availability
	// condition, not a client error.
	ErrNotConfigured = errors.New("real transcription mode is not configured")
)

// allowedMIMETypes is the audio container allow-list. Matching is
// case-insensitive on the declared Content-Type.
var allowedMIMETypes = map[string]struct{}{
	"audio/wav":   {},
	"audio/x-wav": {},
	"audio/mpeg":  {},
	"audio/mp3":   {},
	"audio/webm":  {},
	"audio/ogg":   {},
	"audio/x-m4a": {},
	"audio/m4a":   {},
}

// Mode selects the transcription path.
type Mode string

const (
	// ModeMock uses the offline simulator. Never fails for content reasons.
	ModeMock Mode = "mock"

	// ModeReal forwards the audio to an external speech-to-text service.
	ModeReal Mode = "real"
)

// IsValid reports whether m is a recognised mode.
func (m Mode) IsValid() bool {
	return m == ModeMock || m == ModeReal
}

// Result is the outcome of a transcription run.
//
// Confidence and Phonemes are only populated on the mock path; the real
// provider returns plain text and the gateway never invents detail the
// backend did not report.
type Result struct {
	Transcribed string
	Confidence  *float64
	Phonemes    *pronounce.PhonemeAnalysis
	Mode        Mode
}

// Gateway validates audio payloads and dispatches them to the mock simulator
// or a real transcription provider.
//
// Gateway is safe for concurrent use.
type Gateway struct {
	simulator   *pronounce.Simulator
	real        transcribe.Provider // nil when no credential is configured
	language    string
	defaultMode Mode
}

// GatewayOption configures a [Gateway] during construction.
type GatewayOption func(*Gateway)

// WithDefaultMode sets the path taken when a request does not name a mode.
// Unset or invalid values fall back to [ModeMock].
func WithDefaultMode(m Mode) GatewayOption {
	return func(g *Gateway) {
		if m.IsValid() {
			g.defaultMode = m
		}
	}
}

// NewGateway creates a Gateway. simulator must not be nil; real may be nil,
// in which case ModeReal requests fail with [ErrNotConfigured]. language is
// the recognition hint passed to the real provider (e.g., "ar").
func NewGateway(simulator *pronounce.Simulator, real transcribe.Provider, language string, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		simulator:   simulator,
		real:        real,
		language:    language,
		defaultMode: ModeMock,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Transcribe validates audio and runs the selected transcription path against
// expectedText. An empty mode falls back to the gateway's configured default.
func (g *Gateway) Transcribe(ctx context.Context, audio []byte, mimeType string, expectedText string, mode Mode) (*Result, error) {
	if err := ValidateAudio(audio, mimeType); err != nil {
		return nil, err
	}

	if mode == "" {
		mode = g.defaultMode
	}

	switch mode {
	case ModeMock:
		sim := g.simulator.Simulate(expectedText)
		confidence := sim.Confidence
		phonemes := sim.Phonemes
		return &Result{
			Transcribed: sim.Transcribed,
			Confidence:  &confidence,
			Phonemes:    &phonemes,
			Mode:        ModeMock,
		}, nil

	case ModeReal:
		if g.real == nil {
			return nil, ErrNotConfigured
		}
		text, err := g.real.Transcribe(ctx, transcribe.Request{
			Audio:    audio,
			Language: g.language,
		})
		if err != nil {
			return nil, fmt.Errorf("speech: real transcription: %w", err)
		}
		return &Result{Transcribed: text, Mode: ModeReal}, nil

	default:
		return nil, fmt.Errorf("speech: unknown mode %q", mode)
	}
}

// Configured reports whether a real transcription provider is available.
func (g *Gateway) Configured() bool {
	return g.real != nil
}

// ValidateAudio applies the admission checks shared by every transcription
// path: the payload must be present, non-empty, at most [MaxAudioBytes], and
// carry an allow-listed (or empty) MIME type.
func ValidateAudio(audio []byte, mimeType string) error {
	if audio == nil {
		return ErrNoAudio
	}
	if len(audio) == 0 {
		return ErrInvalidAudio
	}
	if len(audio) > MaxAudioBytes {
		return fmt.Errorf("%w: %d bytes exceeds the %d byte limit", ErrAudioTooLarge, len(audio), MaxAudioBytes)
	}
	if mimeType != "" {
		if _, ok := allowedMIMETypes[strings.ToLower(mimeType)]; !ok {
			return fmt.Errorf("%w: %q", ErrUnsupportedMedia, mimeType)
		}
	}
	return nil
}
