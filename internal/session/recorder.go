package session

import (
	"context"

	"github.com/abhisek/edubot/internal/content"
	"github.com/abhisek/edubot/internal/store"
)

// StoreRecorder writes finished quizzes to the local event log so that
// `edubot stats` works for both backends.
type StoreRecorder struct {
	Events  store.EventRepo
	APIURL  string
	Session *SessionContext
}

func (r *StoreRecorder) RecordAttempt(ctx context.Context, rep content.ScoreReport) error {
	student := ""
	if r.Session != nil {
		student = r.Session.Email()
	}
	return r.Events.AppendAttempt(context.WithoutCancel(ctx), store.AttemptEventData{
		APIURL:   r.APIURL,
		Student:  student,
		LessonID: rep.LessonID,
		Topic:    rep.Topic,
		Score:    rep.Score,
		Total:    rep.Total,
	})
}
