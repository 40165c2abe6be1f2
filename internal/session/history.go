package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/abhisek/edubot/internal/api"
	"github.com/abhisek/edubot/internal/content"
)

var errEmptyQuiz = errors.New("lesson has no questions")

// RefreshHistory reloads the history list. When refreshes overlap only the
// last one issued is applied.
func (c *Controller) RefreshHistory() Op {
	c.historyToken++
	c.historyLoading = true
	token := c.historyToken
	return func(ctx context.Context) Result {
		entries, err := c.svc.ListHistory(ctx)
		return historyResult{token: token, entries: entries, err: err}
	}
}

func (c *Controller) applyHistory(r historyResult) []Op {
	if r.token != c.historyToken {
		return nil
	}
	c.historyLoading = false
	if r.err != nil {
		c.fail("refresh history", r.err)
		return nil
	}
	c.history = r.entries
	return nil
}

// LoadEntry fetches a past lesson and opens it. It shares its in-flight
// guard with Create. On failure the view does not change.
func (c *Controller) LoadEntry(id string) (Op, error) {
	if c.loading {
		return nil, ErrBusy
	}
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: missing lesson id", ErrInvalidTransition)
	}
	c.loading = true
	epoch := c.epoch
	return func(ctx context.Context) Result {
		l, err := c.svc.GetHistoryEntry(ctx, id)
		return lessonResult{epoch: epoch, lesson: l, err: err}
	}, nil
}

// Create runs one of the three creation flows. Defaults are applied to
// missing options; assigning to a student requires teacher mode.
func (c *Controller) Create(req content.CreateRequest) (Op, error) {
	if c.loading {
		return nil, ErrBusy
	}
	req = req.WithDefaults()
	if req.Options.AssignTo != "" && !c.sc.AssignEnabled() {
		return nil, &content.ValidationError{Fields: []content.FieldError{
			{Field: "assign_to", Message: "assigning work requires teacher mode"},
		}}
	}
	req, err := req.Check()
	if err != nil {
		return nil, err
	}

	c.loading = true
	c.log.Info("creating lesson", "source", string(req.Source), "questions", req.Options.NumQuestions,
		"difficulty", string(req.Options.Difficulty), "assigned", req.Options.AssignTo != "")
	epoch := c.epoch
	return func(ctx context.Context) Result {
		var (
			res *content.CreateResult
			err error
		)
		switch req.Source {
		case content.SourceText:
			res, err = c.svc.CreateFromText(ctx, req.Text, req.Options)
		case content.SourceTopic:
			res, err = c.svc.CreateFromTopic(ctx, req.Topic, req.Options)
		case content.SourceFile:
			res, err = c.svc.CreateFromFile(ctx, req.FilePath, req.Options)
		}
		r := lessonResult{epoch: epoch, created: true, err: err}
		if res != nil {
			r.lesson, r.assigned, r.assignee = res.Lesson, res.Assigned, req.Options.AssignTo
		}
		return r
	}, nil
}

func (c *Controller) applyLesson(r lessonResult) []Op {
	if r.epoch != c.epoch {
		return nil
	}
	c.loading = false
	var ops []Op
	if r.created {
		ops = append(ops, c.RefreshHistory())
	}

	action := "load lesson"
	if r.created {
		action = "create lesson"
	}
	switch {
	case r.err != nil:
		if c.fail(action, r.err) {
			return nil
		}
	case r.assigned:
		c.showInfo(fmt.Sprintf("Lesson assigned to %s.", r.assignee))
	case r.lesson == nil || len(r.lesson.Quiz) == 0:
		c.showError(errEmptyQuiz)
	default:
		c.openLesson(r.lesson)
	}
	return ops
}

// RequestDelete asks for confirmation before deleting a history entry.
func (c *Controller) RequestDelete(id string) error {
	if c.deleting {
		return ErrBusy
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: missing lesson id", ErrInvalidTransition)
	}
	c.pendingDelete = id
	return nil
}

// CancelDelete drops the pending confirmation.
func (c *Controller) CancelDelete() { c.pendingDelete = "" }

// ConfirmDelete deletes the entry awaiting confirmation.
func (c *Controller) ConfirmDelete() (Op, error) {
	if c.deleting {
		return nil, ErrBusy
	}
	id := c.pendingDelete
	if id == "" {
		return nil, ErrInvalidTransition
	}
	c.pendingDelete = ""
	c.deleting = true
	epoch := c.epoch
	return func(ctx context.Context) Result {
		return deleteResult{epoch: epoch, id: id, err: c.svc.DeleteHistoryEntry(ctx, id)}
	}, nil
}

// applyDelete treats NotFound as already deleted. Deleting the open lesson
// returns to the menu.
func (c *Controller) applyDelete(r deleteResult) []Op {
	if r.epoch != c.epoch {
		return nil
	}
	c.deleting = false
	if r.err != nil && api.KindOf(r.err) != api.KindNotFound {
		if c.fail("delete lesson", r.err) {
			return nil
		}
		return []Op{c.RefreshHistory()}
	}
	c.log.Info("lesson deleted", "lesson_id", r.id)
	c.dropHistoryEntry(r.id)
	if c.lesson != nil && c.lesson.ID == r.id {
		c.closeLesson()
		c.view = ViewMenu
	}
	return []Op{c.RefreshHistory()}
}

// dropHistoryEntry removes id from the cached list so it disappears even
// when the follow-up refresh fails.
func (c *Controller) dropHistoryEntry(id string) {
	kept := make([]content.HistoryEntry, 0, len(c.history))
	for _, h := range c.history {
		if h.ID != id {
			kept = append(kept, h)
		}
	}
	c.history = kept
}

type historyResult struct {
	token   int
	entries []content.HistoryEntry
	err     error
}

type lessonResult struct {
	epoch    int
	created  bool
	lesson   *content.Lesson
	assigned bool
	assignee string
	err      error
}

type deleteResult struct {
	epoch int
	id    string
	err   error
}

func (historyResult) result() {}
func (lessonResult) result()  {}
func (deleteResult) result()  {}
