package pronounce

import (
	"math/rand"
	"sync"
	"time"
)

// phraseVariants maps known practice phrases to plausible transcriptions,
// including the correct form (sometimes more than once, weighting the draw
// towards it) and common mis-hearings. Phrases not in the table have no
// variants — the simulator returns them verbatim.
var phraseVariants = map[string][]string{
	"مرحبا":    {"مرحبا", "مرحبا", "مرحباً", "مرحبة"},
	"شكرا":     {"شكرا", "شكراً", "شكرة"},
	"كيف الحال": {"كيف الحال", "كيف الحالة", "كيف حالك"},
}

// SimulatedTranscription is the result of a mock transcription run.
type SimulatedTranscription struct {
	// Transcribed is the simulated speech-to-text output.
	Transcribed string `json:"transcribed"`

	// Confidence is a plausible-looking value in [0.85, 0.95). It is drawn
	// from a fixed range, not derived from any model.
	Confidence float64 `json:"confidence"`

	// Phonemes is the advisory phoneme breakdown comparing expected against
	// the chosen transcription.
	Phonemes PhonemeAnalysis `json:"phonemes"`
}

// Simulator generates fake transcriptions for offline development and
// testing. It stands in for a real speech-to-text service when no credential
// is configured; it is not a scoring oracle.
//
// Simulator is safe for concurrent use.
type Simulator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulator creates a [Simulator] using the given random source. Passing
// nil seeds a new source from the current time; tests should inject a fixed
// seed to pin outputs.
func NewSimulator(rng *rand.Rand) *Simulator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Simulator{rng: rng}
}

// Simulate returns a fake transcription for expectedText. Known phrases draw
// uniformly from their variant set; unknown phrases are returned unchanged.
func (s *Simulator) Simulate(expectedText string) SimulatedTranscription {
	variants, ok := phraseVariants[expectedText]
	if !ok {
		variants = []string{expectedText}
	}

	s.mu.Lock()
	transcribed := variants[s.rng.Intn(len(variants))]
	confidence := 0.85 + s.rng.Float64()*0.1
	s.mu.Unlock()

	return SimulatedTranscription{
		Transcribed: transcribed,
		Confidence:  confidence,
		Phonemes:    AnalyzePhonemes(expectedText, transcribed),
	}
}
