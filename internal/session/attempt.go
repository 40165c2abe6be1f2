package session

import (
	"slices"

	"github.com/abhisek/edubot/internal/content"
)

// Attempt is one pass through a lesson's quiz. Each question takes exactly
// one answer; the score only moves when the learner advances past it.
type Attempt struct {
	questions []content.Question
	index     int
	score     int
	selected  string
	locked    bool
	correct   bool
	done      bool
}

func NewAttempt(quiz []content.Question) *Attempt {
	return &Attempt{questions: quiz}
}

// Question returns the current question, or nil for an empty quiz.
func (a *Attempt) Question() *content.Question {
	if a.index >= len(a.questions) {
		return nil
	}
	return &a.questions[a.index]
}

func (a *Attempt) Index() int { return a.index }
func (a *Attempt) Total() int { return len(a.questions) }
func (a *Attempt) Score() int { return a.score }
func (a *Attempt) Locked() bool { return a.locked }
func (a *Attempt) Done() bool { return a.done }

// Selected returns the chosen option of the current question.
func (a *Attempt) Selected() (string, bool) {
	return a.selected, a.locked
}

// Correct reports whether the locked answer is right. It is meaningful only
// while Locked is true.
func (a *Attempt) Correct() bool { return a.locked && a.correct }

// IsLast reports whether the current question is the final one.
func (a *Attempt) IsLast() bool { return a.index == len(a.questions)-1 }

// Select locks option as the answer to the current question. Repeated
// calls, options not on the question, and selections after completion are
// ignored; the return value says whether the selection took effect.
func (a *Attempt) Select(option string) bool {
	q := a.Question()
	if a.locked || a.done || q == nil || !slices.Contains(q.Options, option) {
		return false
	}
	a.selected = option
	a.locked = true
	a.correct = q.IsCorrect(option)
	return true
}

// Advance scores the locked answer and moves on. It reports true when the
// quiz has just been completed.
func (a *Attempt) Advance() (bool, error) {
	if a.done {
		return false, ErrInvalidTransition
	}
	if !a.locked {
		return false, ErrNotAnswered
	}
	if a.correct {
		a.score++
	}
	if a.IsLast() {
		a.done = true
		return true, nil
	}
	a.index++
	a.selected = ""
	a.locked = false
	a.correct = false
	return false, nil
}
