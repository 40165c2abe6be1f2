package offline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/edubot/internal/api"
	"github.com/abhisek/edubot/internal/content"
	"github.com/abhisek/edubot/internal/lessons"
	"github.com/abhisek/edubot/internal/llm"
	"github.com/abhisek/edubot/internal/store"
)

func quizReply(n int) llm.MockResponse {
	questions := make([]any, 0, n)
	for i := 0; i < n; i++ {
		questions = append(questions, map[string]any{
			"question":    "Which gas do plants take in?",
			"options":     []any{"A) Oxygen", "B) Carbon dioxide", "C) Helium", "D) Neon"},
			"answer":      "B",
			"explanation": "Plants use carbon dioxide for photosynthesis.",
		})
	}
	return llm.JSON(map[string]any{"title": "Photosynthesis", "questions": questions})
}

type fixture struct {
	svc   *Service
	mock  *llm.MockProvider
	store *store.Store
}

func newFixture(t *testing.T, role content.Role, replies ...llm.MockResponse) fixture {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "offline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	mock := llm.NewMockProvider(replies...)
	svc, err := New(Options{
		Lessons:   s.LessonRepo(),
		Events:    s.EventRepo(),
		Generator: lessons.NewGenerator(mock, lessons.DefaultConfig()),
		Owner:     "learner@localhost",
		Role:      role,
	})
	require.NoError(t, err)
	return fixture{svc: svc, mock: mock, store: s}
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Options{Owner: "x"})
	assert.Error(t, err)
}

func TestCreateFromTextRoundTrip(t *testing.T) {
	f := newFixture(t, content.RoleStudent, quizReply(3))
	ctx := context.Background()

	res, err := f.svc.CreateFromText(ctx, "Plants turn sunlight, water and carbon dioxide into sugar.", content.CreateOptions{NumQuestions: 3})
	require.NoError(t, err)
	require.NotNil(t, res.Lesson)
	assert.False(t, res.Assigned)
	assert.Len(t, res.Lesson.Quiz, 3)
	assert.Equal(t, "B", res.Lesson.Quiz[0].Answer)

	history, err := f.svc.ListHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, res.Lesson.ID, history[0].ID)
	assert.Equal(t, content.StatusPending, history[0].Status)

	got, err := f.svc.GetHistoryEntry(ctx, res.Lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Lesson.Quiz, got.Quiz)
	assert.Equal(t, res.Lesson.Content, got.Content)
}

func TestCreateFromTopicWritesPassage(t *testing.T) {
	f := newFixture(t, content.RoleStudent,
		llm.JSON(map[string]any{"title": "Green Machines", "content": "Leaves capture light."}),
		quizReply(2),
	)

	res, err := f.svc.CreateFromTopic(context.Background(), "Photosynthesis", content.CreateOptions{NumQuestions: 2, Difficulty: content.DifficultyEasy})
	require.NoError(t, err)
	assert.Equal(t, "Photosynthesis", res.Lesson.Topic)
	assert.Equal(t, "Green Machines", res.Lesson.Title)
	assert.Equal(t, "Leaves capture light.", res.Lesson.Content)

	calls := f.mock.Calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[1].Messages[0].Content, "Leaves capture light.")
}

func TestCreateFromFile(t *testing.T) {
	dir := t.TempDir()
	notes := filepath.Join(dir, "cells.md")
	require.NoError(t, os.WriteFile(notes, []byte("# Cells\nCells are the smallest units of life."), 0o644))
	pdf := filepath.Join(dir, "cells.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF"), 0o644))

	f := newFixture(t, content.RoleStudent, quizReply(1))
	ctx := context.Background()

	res, err := f.svc.CreateFromFile(ctx, notes, content.CreateOptions{NumQuestions: 1})
	require.NoError(t, err)
	assert.Equal(t, "cells", res.Lesson.Topic)

	_, err = f.svc.CreateFromFile(ctx, pdf, content.CreateOptions{})
	assert.Equal(t, api.KindValidation, api.KindOf(err))

	_, err = f.svc.CreateFromFile(ctx, filepath.Join(dir, "missing.txt"), content.CreateOptions{})
	assert.Equal(t, api.KindValidation, api.KindOf(err))
}

func TestAssignRequiresElevatedRole(t *testing.T) {
	opts := content.CreateOptions{NumQuestions: 1, AssignTo: "kid@school.test"}
	text := "Plants turn sunlight into sugar."

	student := newFixture(t, content.RoleStudent, quizReply(1))
	_, err := student.svc.CreateFromText(context.Background(), text, opts)
	assert.Equal(t, api.KindAuthorization, api.KindOf(err))
	assert.Empty(t, student.mock.Calls())

	teacher := newFixture(t, content.RoleTeacher, quizReply(1))
	res, err := teacher.svc.CreateFromText(context.Background(), text, opts)
	require.NoError(t, err)
	assert.True(t, res.Assigned)
	assert.Nil(t, res.Lesson)

	mine, err := teacher.svc.ListHistory(context.Background())
	require.NoError(t, err)
	assert.Empty(t, mine, "assigned lesson belongs to the student")

	theirs, err := teacher.store.LessonRepo().List(context.Background(), "kid@school.test", 0)
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.True(t, theirs[0].IsAssignment)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, content.RoleStudent)
	_, err := f.svc.CreateFromText(context.Background(), "tiny", content.CreateOptions{})
	assert.Equal(t, api.KindValidation, api.KindOf(err))
}

func TestGenerationFailure(t *testing.T) {
	f := newFixture(t, content.RoleStudent, llm.MockResponse{Err: &llm.ErrProviderUnavailable{}})
	_, err := f.svc.CreateFromTopic(context.Background(), "Volcanoes", content.CreateOptions{})
	assert.Equal(t, api.KindServer, api.KindOf(err))
}

func TestDeleteAndNotFound(t *testing.T) {
	f := newFixture(t, content.RoleStudent, quizReply(1))
	ctx := context.Background()
	res, err := f.svc.CreateFromText(ctx, "Plants turn sunlight into sugar.", content.CreateOptions{NumQuestions: 1})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteHistoryEntry(ctx, res.Lesson.ID))
	assert.Equal(t, api.KindNotFound, api.KindOf(f.svc.DeleteHistoryEntry(ctx, res.Lesson.ID)))

	_, err = f.svc.GetHistoryEntry(ctx, res.Lesson.ID)
	assert.Equal(t, api.KindNotFound, api.KindOf(err))
}

func TestSubmitScoreCompletesLesson(t *testing.T) {
	f := newFixture(t, content.RoleStudent, quizReply(2), llm.Text("Good job, review the gases."))
	ctx := context.Background()
	res, err := f.svc.CreateFromText(ctx, "Plants turn sunlight into sugar.", content.CreateOptions{NumQuestions: 2})
	require.NoError(t, err)

	feedback, err := f.svc.SubmitScore(ctx, content.ScoreReport{Score: 1, Total: 2, Topic: "Photosynthesis", LessonID: res.Lesson.ID})
	require.NoError(t, err)
	assert.Equal(t, "Good job, review the gases.", feedback)

	history, err := f.svc.ListHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.NotNil(t, history[0].Score)
	assert.Equal(t, 1, *history[0].Score)
	assert.Equal(t, content.StatusCompleted, history[0].Status)
}

func TestAskTutor(t *testing.T) {
	f := newFixture(t, content.RoleStudent, llm.Text("Chlorophyll absorbs light."))
	answer, err := f.svc.AskTutor(context.Background(), "What absorbs light?", "Leaves are green.")
	require.NoError(t, err)
	assert.Equal(t, "Chlorophyll absorbs light.", answer)
	assert.Equal(t, llm.RoleUser, f.mock.Calls()[0].Messages[0].Role)
}

func TestDashboardAndSearch(t *testing.T) {
	ctx := context.Background()
	teacher := newFixture(t, content.RoleTeacher)
	events := teacher.store.EventRepo()
	require.NoError(t, events.AppendAttempt(ctx, store.AttemptEventData{APIURL: APIURL, Student: "kid@school.test", Topic: "Rain", Score: 2, Total: 3}))
	require.NoError(t, events.AppendAttempt(ctx, store.AttemptEventData{APIURL: "http://remote", Student: "other@school.test", Topic: "Snow", Score: 1, Total: 1}))

	rows, err := teacher.svc.ListDashboard(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "kid@school.test", rows[0].Student)
	assert.Equal(t, 2, rows[0].Score)

	users, err := teacher.svc.SearchUsers(ctx, "KID")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "kid@school.test", users[0].Email)

	student := newFixture(t, content.RoleStudent)
	_, err = student.svc.ListDashboard(ctx)
	assert.Equal(t, api.KindAuthorization, api.KindOf(err))
}

func TestAdminOperationsForbidden(t *testing.T) {
	f := newFixture(t, content.RoleAdmin)
	ctx := context.Background()

	role, err := f.svc.GetRole(ctx)
	require.NoError(t, err)
	assert.Equal(t, content.RoleAdmin, role)

	_, err = f.svc.ListUsers(ctx)
	assert.Equal(t, api.KindAuthorization, api.KindOf(err))
	assert.Equal(t, api.KindAuthorization, api.KindOf(f.svc.ChangeRole(ctx, "a@b.c", content.RoleTeacher)))
	assert.Equal(t, api.KindAuthorization, api.KindOf(f.svc.DeleteUser(ctx, "a@b.c")))
}
