package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/abhisek/edubot/internal/api"
	"github.com/abhisek/edubot/internal/content"
)

type createCall struct {
	source content.Source
	input  string
	opts   content.CreateOptions
}

// fakeService is a scripted ContentService.
type fakeService struct {
	mu sync.Mutex

	histories  [][]content.HistoryEntry
	historyErr error
	listCalls  int

	lessons map[string]*content.Lesson
	getErr  error

	createResult *content.CreateResult
	createErr    error
	creates      []createCall

	deleteErr error
	deleted   []string

	feedback    string
	feedbackErr error
	scores      []content.ScoreReport

	answer    string
	tutorErr  error
	questions []string
	contexts  []string

	role    content.Role
	roleErr error

	dashboard    []content.DashboardRow
	dashboardErr error
	users        []content.UserSummary
	search       map[string][]content.UserSummary
	roleChanges  []string
	userDeletes  []string
	adminErr     error
}

func newFakeService() *fakeService {
	return &fakeService{lessons: map[string]*content.Lesson{}, role: content.RoleStudent}
}

func (f *fakeService) ListHistory(context.Context) ([]content.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	if len(f.histories) == 0 {
		return nil, nil
	}
	h := f.histories[0]
	if len(f.histories) > 1 {
		f.histories = f.histories[1:]
	}
	return h, nil
}

func (f *fakeService) GetHistoryEntry(_ context.Context, id string) (*content.Lesson, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	l, ok := f.lessons[id]
	if !ok {
		return nil, &api.Error{Kind: api.KindNotFound}
	}
	return l, nil
}

func (f *fakeService) DeleteHistoryEntry(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	delete(f.lessons, id)
	return nil
}

func (f *fakeService) create(src content.Source, input string, opts content.CreateOptions) (*content.CreateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, createCall{source: src, input: input, opts: opts})
	return f.createResult, f.createErr
}

func (f *fakeService) CreateFromText(_ context.Context, text string, opts content.CreateOptions) (*content.CreateResult, error) {
	return f.create(content.SourceText, text, opts)
}

func (f *fakeService) CreateFromTopic(_ context.Context, topic string, opts content.CreateOptions) (*content.CreateResult, error) {
	return f.create(content.SourceTopic, topic, opts)
}

func (f *fakeService) CreateFromFile(_ context.Context, path string, opts content.CreateOptions) (*content.CreateResult, error) {
	return f.create(content.SourceFile, path, opts)
}

func (f *fakeService) SubmitScore(_ context.Context, r content.ScoreReport) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scores = append(f.scores, r)
	return f.feedback, f.feedbackErr
}

func (f *fakeService) AskTutor(_ context.Context, question, lessonContext string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.questions = append(f.questions, question)
	f.contexts = append(f.contexts, lessonContext)
	return f.answer, f.tutorErr
}

func (f *fakeService) GetRole(context.Context) (content.Role, error) {
	return f.role, f.roleErr
}

func (f *fakeService) SearchUsers(_ context.Context, query string) ([]content.UserSummary, error) {
	return f.search[query], f.adminErr
}

func (f *fakeService) ListDashboard(context.Context) ([]content.DashboardRow, error) {
	return f.dashboard, f.dashboardErr
}

func (f *fakeService) ListUsers(context.Context) ([]content.UserSummary, error) {
	return f.users, nil
}

func (f *fakeService) ChangeRole(_ context.Context, email string, role content.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roleChanges = append(f.roleChanges, email+"="+string(role))
	return f.adminErr
}

func (f *fakeService) DeleteUser(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userDeletes = append(f.userDeletes, email)
	return f.adminErr
}

type fakeRecorder struct {
	reports []content.ScoreReport
}

func (r *fakeRecorder) RecordAttempt(_ context.Context, rep content.ScoreReport) error {
	r.reports = append(r.reports, rep)
	return nil
}

// signToken returns an HS256 token carrying the given claims.
func signToken(t *testing.T, email string, role content.Role) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":      email,
		"email":    email,
		"username": "Test User",
		"role":     string(role),
		"exp":      time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func newTestController(t *testing.T, svc *fakeService, role content.Role) (*Controller, *fakeRecorder) {
	t.Helper()
	sc := NewSessionContext()
	if err := sc.SetToken(signToken(t, "me@school.test", role)); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	rec := &fakeRecorder{}
	return NewController(Options{Service: svc, Session: sc, Recorder: rec}), rec
}

// run executes ops in order, applying each result and queueing follow-ups.
func run(c *Controller, ops ...Op) {
	ctx := context.Background()
	for len(ops) > 0 {
		op := ops[0]
		ops = ops[1:]
		if op == nil {
			continue
		}
		ops = append(ops, c.Apply(op(ctx))...)
	}
}

func mustOp(t *testing.T, op Op, err error) Op {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return op
}

func sampleLesson(id string) *content.Lesson {
	return &content.Lesson{
		ID:      id,
		Topic:   "Water cycle",
		Title:   "Where rain comes from",
		Content: "Water evaporates, condenses into clouds and falls as rain.",
		Quiz: []content.Question{
			{Text: "What falls from clouds?", Options: []string{"A) Rain", "B) Sand", "C) Light"}, Answer: "A"},
			{Text: "What forms clouds?", Options: []string{"A) Dust", "B) Condensation", "C) Wind"}, Answer: "B"},
			{Text: "What does heat do to water?", Options: []string{"A) Freezes it", "B) Colors it", "C) Evaporates it"}, Answer: "C"},
		},
	}
}

// openSample loads lesson id through the controller.
func openSample(t *testing.T, c *Controller, svc *fakeService, l *content.Lesson) {
	t.Helper()
	svc.lessons[l.ID] = l
	op, err := c.LoadEntry(l.ID)
	run(c, mustOp(t, op, err))
	if c.Lesson() == nil || c.Lesson().ID != l.ID {
		t.Fatalf("lesson %q not opened", l.ID)
	}
}
