// Package mock provides an in-memory test double for curriculum.Store.
package mock

import (
	"context"
	"sync"

	"github.com/lisan-app/lisan/internal/curriculum"
)

// Store is a mock implementation of curriculum.Store backed by in-memory
// slices. Set Err to force every method to fail.
type Store struct {
	mu sync.Mutex

	// Lessons is the ordered lesson list.
	Lessons []curriculum.LessonInfo

	// Completed maps enrollmentID → set of completed lesson IDs.
	Completed map[string]map[string]bool

	// Err, if non-nil, is returned by every method.
	Err error

	// NextLessonCalls counts NextLesson invocations.
	NextLessonCalls int
}

// Compile-time interface check.
var _ curriculum.Store = (*Store)(nil)

// NextLesson implements curriculum.Store.
func (s *Store) NextLesson(_ context.Context, enrollmentID string) (*curriculum.LessonInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NextLessonCalls++
	if s.Err != nil {
		return nil, s.Err
	}
	done := s.Completed[enrollmentID]
	for _, l := range s.Lessons {
		if !done[l.LessonID] {
			lesson := l
			return &lesson, nil
		}
	}
	return nil, nil
}

// Lesson implements curriculum.Store.
func (s *Store) Lesson(_ context.Context, lessonID string) (*curriculum.LessonInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, l := range s.Lessons {
		if l.LessonID == lessonID {
			lesson := l
			return &lesson, nil
		}
	}
	return nil, nil
}

// CompleteLesson implements curriculum.Store.
func (s *Store) CompleteLesson(_ context.Context, enrollmentID, lessonID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if s.Completed == nil {
		s.Completed = make(map[string]map[string]bool)
	}
	if s.Completed[enrollmentID] == nil {
		s.Completed[enrollmentID] = make(map[string]bool)
	}
	s.Completed[enrollmentID][lessonID] = true
	return nil
}
