// Package transcribe defines the Provider interface for speech-to-text
// backends.
//
// A transcribe provider accepts a complete audio recording and returns the
// transcribed text. This is a one-shot batch contract — the pipeline's
// scope begins at "audio bytes received", so there is no streaming session
// management here.
//
// Implementations must be safe for concurrent use.
package transcribe

import "context"

// Request carries a recording to transcribe.
type Request struct {
	// Audio is the complete encoded audio payload (wav, mp3, webm, ...).
	Audio []byte

	// Filename is a hint for backends that sniff the container format from
	// the file extension (e.g., "recording.webm").
	Filename string

	// Language is the ISO 639-1 language hint (e.g., "ar"). Empty lets the
	// backend auto-detect.
	Language string
}

// Provider is the abstraction over any speech-to-text backend.
//
// Transcribe returns only the recognised text. No confidence or timing
// detail is guaranteed at this abstraction level; callers must not invent
// values the backend did not report.
type Provider interface {
	Transcribe(ctx context.Context, req Request) (string, error)
}
