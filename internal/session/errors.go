package session

import "errors"

var (
	// ErrBusy means the same kind of request is already in flight.
	ErrBusy = errors.New("a request is already in progress")
	// ErrNotAnswered is returned by Advance before an option is selected.
	ErrNotAnswered = errors.New("select an answer before continuing")
	// ErrNotPermitted means the role or active mode does not allow the action.
	ErrNotPermitted = errors.New("not permitted for the current role or mode")
	// ErrInvalidTransition means the action is not available from the current view.
	ErrInvalidTransition = errors.New("action not available here")
	// ErrNoLesson means the action needs an open lesson.
	ErrNoLesson = errors.New("no lesson is open")
	// ErrEmptyQuestion is returned when asking the tutor an empty question.
	ErrEmptyQuestion = errors.New("question is empty")
)
