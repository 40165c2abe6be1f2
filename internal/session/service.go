package session

import (
	"context"

	"github.com/abhisek/edubot/internal/content"
)

// ContentService performs all remote work for the controller. The HTTP
// client and the offline service both implement it.
type ContentService interface {
	ListHistory(ctx context.Context) ([]content.HistoryEntry, error)
	GetHistoryEntry(ctx context.Context, id string) (*content.Lesson, error)
	DeleteHistoryEntry(ctx context.Context, id string) error

	CreateFromText(ctx context.Context, text string, opts content.CreateOptions) (*content.CreateResult, error)
	CreateFromTopic(ctx context.Context, topic string, opts content.CreateOptions) (*content.CreateResult, error)
	CreateFromFile(ctx context.Context, path string, opts content.CreateOptions) (*content.CreateResult, error)

	// SubmitScore reports a finished quiz and returns feedback text.
	SubmitScore(ctx context.Context, report content.ScoreReport) (string, error)
	// AskTutor answers question using lessonContext as background.
	AskTutor(ctx context.Context, question, lessonContext string) (string, error)

	GetRole(ctx context.Context) (content.Role, error)
	SearchUsers(ctx context.Context, query string) ([]content.UserSummary, error)
	ListDashboard(ctx context.Context) ([]content.DashboardRow, error)

	ListUsers(ctx context.Context) ([]content.UserSummary, error)
	ChangeRole(ctx context.Context, email string, role content.Role) error
	DeleteUser(ctx context.Context, email string) error
}

// AttemptRecorder keeps a local log of finished quizzes.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, report content.ScoreReport) error
}
