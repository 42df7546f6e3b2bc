// Package pronounce implements pronunciation scoring for spoken Arabic
// practice phrases.
//
// The scoring model is deliberately simple: a transcribed utterance is
// compared against the expected phrase using Levenshtein edit distance over
// Unicode code points, normalised to a similarity ratio and clamped to the
// range [0.3, 1.0]. An exact match scores the fixed constant 0.95 rather than
// 1.0 — the ceiling signals "as good as we can detect", not literal
// perfection.
//
// The phoneme analysis produced by [AnalyzePhonemes] is a coarse proxy based
// on character-level similarity, not real phonetic analysis. It is advisory
// only and never feeds back into the numeric score.
package pronounce

import (
	"math"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

const (
	// ExactMatchScore is returned by [Score] when the transcription matches
	// the expected phrase exactly.
	ExactMatchScore = 0.95

	// MinScore is the floor applied to all non-exact scores. Below this the
	// feedback is always the harshest tier; clamping avoids demoralising
	// near-zero numbers for partially-correct attempts.
	MinScore = 0.3
)

// Score rates how closely transcribed matches expected, returning a value in
// [MinScore, ExactMatchScore]. An exact string match (including two empty
// strings) returns ExactMatchScore; otherwise the normalised Levenshtein
// similarity is returned, floored at MinScore.
func Score(transcribed, expected string) float64 {
	if transcribed == expected {
		return ExactMatchScore
	}
	return math.Max(MinScore, Similarity(transcribed, expected))
}

// Similarity computes the normalised Levenshtein similarity between a and b:
//
//	(maxLen - editDistance(a, b)) / maxLen
//
// where lengths and edit operations are counted in Unicode code points, so
// Arabic script compares correctly. Two equal strings (including two empty
// ones) are maximally similar with value 1.0.
func Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}

	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 1.0
	}

	// matchr.Levenshtein operates on runes, not bytes.
	dist := matchr.Levenshtein(a, b)
	return float64(longest-dist) / float64(longest)
}

// Feedback bands for [FeedbackFor]. The exact strings are part of the API
// contract presented to learners.
const (
	feedbackExcellent = "Excellent pronunciation! 🎉"
	feedbackVeryGood  = "Very good! Small improvements possible. 👍"
	feedbackGood      = "Good effort! Keep practicing. 😊"
	feedbackNotBad    = "Not bad! Focus on clarity. 🤔"
	feedbackKeepGoing = "Keep trying! Listen to the pronunciation guide. 💪"
)

// FeedbackFor maps a pronunciation score to one of five fixed feedback
// messages. The mapping is a deterministic step function with band boundaries
// at 0.9, 0.8, 0.7 and 0.6.
func FeedbackFor(score float64) string {
	switch {
	case score >= 0.9:
		return feedbackExcellent
	case score >= 0.8:
		return feedbackVeryGood
	case score >= 0.7:
		return feedbackGood
	case score >= 0.6:
		return feedbackNotBad
	default:
		return feedbackKeepGoing
	}
}

// PhonemeAnalysis is a simplified per-phrase breakdown derived from string
// similarity. Phoneme counts are approximated by code-point counts.
type PhonemeAnalysis struct {
	TotalPhonemes   int      `json:"total_phonemes"`
	CorrectPhonemes int      `json:"correct_phonemes"`
	ProblemAreas    []string `json:"problem_areas"`
}

// AnalyzePhonemes produces a [PhonemeAnalysis] comparing the expected phrase
// against the transcription. TotalPhonemes is the code-point count of
// expected, CorrectPhonemes is floor(total × similarity), and ProblemAreas
// flags "vowel_sounds" whenever the strings differ at all.
func AnalyzePhonemes(expected, transcribed string) PhonemeAnalysis {
	total := utf8.RuneCountInString(expected)
	analysis := PhonemeAnalysis{
		TotalPhonemes:   total,
		CorrectPhonemes: int(math.Floor(float64(total) * Similarity(expected, transcribed))),
		ProblemAreas:    []string{},
	}
	if transcribed != expected {
		analysis.ProblemAreas = []string{"vowel_sounds"}
	}
	return analysis
}
