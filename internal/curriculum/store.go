// Package curriculum defines the lesson-progression collaborator consumed by
// the tutoring agent.
//
// The core pipeline treats curricula as an external system of record: it asks
// for the next uncompleted lesson when suggesting next steps, fetches lesson
// titles and objectives to seed conversation context, and records lesson
// completion. It never owns curriculum data itself.
package curriculum

import "context"

// LessonInfo describes a single lesson as exposed to the tutoring pipeline.
type LessonInfo struct {
	// LessonID is the opaque lesson identifier.
	LessonID string

	// Title is the lesson's display title (e.g., "Greetings").
	Title string

	// Objective is the pedagogical goal, used as the conversation focus area.
	Objective string
}

// Store is the curriculum system-of-record abstraction.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// NextLesson returns the first uncompleted lesson for the given
	// enrollment, or nil when every lesson is complete. "No more lessons" is
	// a nil result, not an error.
	NextLesson(ctx context.Context, enrollmentID string) (*LessonInfo, error)

	// Lesson returns the lesson with the given ID, or nil when it does not
	// exist.
	Lesson(ctx context.Context, lessonID string) (*LessonInfo, error)

	// CompleteLesson marks a lesson completed for an enrollment. Marking an
	// already-completed lesson is a no-op.
	CompleteLesson(ctx context.Context, enrollmentID, lessonID string) error
}
