package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhisek/edubot/internal/api"
)

// AskTutor appends question to the dialogue and returns the op that asks
// the tutor about the open lesson. One question may be in flight at a time.
func (c *Controller) AskTutor(question string) (Op, error) {
	if c.lesson == nil {
		return nil, ErrNoLesson
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if c.tutorBusy {
		return nil, ErrBusy
	}

	c.dialogue.append(SenderUser, question)
	c.tutorBusy = true
	gen, background := c.gen, c.tutorContext()
	return func(ctx context.Context) Result {
		answer, err := c.svc.AskTutor(ctx, question, background)
		return tutorResult{gen: gen, answer: answer, err: err}
	}, nil
}

// tutorContext is the passage, or the questions for a quiz-only lesson.
func (c *Controller) tutorContext() string {
	l := c.lesson
	if !l.QuizOnly() {
		return l.Content
	}
	var b strings.Builder
	b.WriteString(l.Title)
	for i, q := range l.Quiz {
		fmt.Fprintf(&b, "\n%d. %s", i+1, q.Text)
	}
	return strings.TrimSpace(b.String())
}

func (c *Controller) applyTutor(r tutorResult) {
	if r.gen != c.gen {
		return
	}
	c.tutorBusy = false
	if r.err != nil {
		c.log.Warn("tutor failed", "error", r.err)
		if api.KindOf(r.err) == api.KindAuth {
			c.authFailure()
			return
		}
		c.dialogue.append(SenderBot, TutorFallback)
		return
	}
	answer := strings.TrimSpace(r.answer)
	if answer == "" {
		answer = TutorFallback
	}
	c.dialogue.append(SenderBot, answer)
}

type tutorResult struct {
	gen    int
	answer string
	err    error
}

func (tutorResult) result() {}
