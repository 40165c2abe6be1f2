package classroom

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/abhisek/edubot/internal/api"
	"github.com/abhisek/edubot/internal/content"
	"github.com/abhisek/edubot/internal/router"
	"github.com/abhisek/edubot/internal/screen"
	"github.com/abhisek/edubot/internal/session"
	"github.com/abhisek/edubot/internal/store"
)

// mockService implements session.ContentService for testing.
type mockService struct {
	mu       sync.Mutex
	history  []content.HistoryEntry
	histErr  error
	lessons  map[string]*content.Lesson
	deleted  []string
	feedback string
	role     content.Role
	answer   string
}

func (m *mockService) ListHistory(context.Context) ([]content.HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history, m.histErr
}

func (m *mockService) GetHistoryEntry(_ context.Context, id string) (*content.Lesson, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lessons[id]
	if !ok {
		return nil, &api.Error{Kind: api.KindNotFound}
	}
	return l, nil
}

func (m *mockService) DeleteHistoryEntry(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	kept := m.history[:0]
	for _, e := range m.history {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	m.history = kept
	return nil
}

func (m *mockService) CreateFromText(context.Context, string, content.CreateOptions) (*content.CreateResult, error) {
	return &content.CreateResult{Lesson: sampleLesson("new")}, nil
}

func (m *mockService) CreateFromTopic(context.Context, string, content.CreateOptions) (*content.CreateResult, error) {
	return &content.CreateResult{Lesson: sampleLesson("new")}, nil
}

func (m *mockService) CreateFromFile(context.Context, string, content.CreateOptions) (*content.CreateResult, error) {
	return &content.CreateResult{Lesson: sampleLesson("new")}, nil
}

func (m *mockService) SubmitScore(context.Context, content.ScoreReport) (string, error) {
	return m.feedback, nil
}

func (m *mockService) AskTutor(context.Context, string, string) (string, error) {
	return m.answer, nil
}

func (m *mockService) GetRole(context.Context) (content.Role, error) { return m.role, nil }

func (m *mockService) SearchUsers(context.Context, string) ([]content.UserSummary, error) {
	return nil, nil
}

func (m *mockService) ListDashboard(context.Context) ([]content.DashboardRow, error) {
	return []content.DashboardRow{{Student: "kid@school.test", Topic: "Rain", Score: 2, Total: 3, Status: content.StatusCompleted}}, nil
}

func (m *mockService) ListUsers(context.Context) ([]content.UserSummary, error) { return nil, nil }
func (m *mockService) ChangeRole(context.Context, string, content.Role) error  { return nil }
func (m *mockService) DeleteUser(context.Context, string) error                { return nil }

type loginStub struct{ notice string }

func (s *loginStub) Init() tea.Cmd                          { return nil }
func (s *loginStub) Update(tea.Msg) (screen.Screen, tea.Cmd) { return s, nil }
func (s *loginStub) View(int, int) string                   { return "login" }
func (s *loginStub) Title() string                          { return "Sign in" }

func sampleLesson(id string) *content.Lesson {
	return &content.Lesson{
		ID:      id,
		Topic:   "Water cycle",
		Title:   "Where rain comes from",
		Content: "Water evaporates, condenses into clouds and falls as rain.",
		Quiz: []content.Question{
			{Text: "What falls from clouds?", Options: []string{"A) Rain", "B) Sand"}, Answer: "A", Explanation: "Clouds release rain."},
			{Text: "What forms clouds?", Options: []string{"A) Dust", "B) Condensation"}, Answer: "B"},
		},
	}
}

func testToken(t *testing.T, role content.Role) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      "me@school.test",
		"username": "Robin",
		"role":     string(role),
		"exp":      time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("k"))
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

type fixture struct {
	screen *ClassroomScreen
	svc    *mockService
	creds  store.CredentialRepo
	login  *loginStub
}

func newFixture(t *testing.T, role content.Role) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	sc := session.NewSessionContext()
	if err := sc.SetToken(testToken(t, role)); err != nil {
		t.Fatal(err)
	}
	svc := &mockService{
		role:     role,
		feedback: "Great reading!",
		answer:   "Clouds are made of tiny droplets.",
		history: []content.HistoryEntry{
			{ID: "l1", Topic: "Water cycle", Status: content.StatusPending},
		},
		lessons: map[string]*content.Lesson{"l1": sampleLesson("l1")},
	}
	f := &fixture{svc: svc, creds: st.CredentialRepo()}
	f.screen = New(Options{
		Service:       svc,
		Session:       sc,
		BannerTimeout: -1,
		Credentials:   st.CredentialRepo(),
		APIURL:        "http://school.test",
		SignIn: func(notice string) screen.Screen {
			f.login = &loginStub{notice: notice}
			return f.login
		},
	})
	return f
}

// drain runs cmd, feeding op results back into the screen, and returns
// every other message produced.
func (f *fixture) drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	var out []tea.Msg
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			out = append(out, f.drain(c)...)
		}
	case resultMsg:
		_, next := f.screen.Update(msg)
		out = append(out, f.drain(next)...)
	case nil:
	default:
		out = append(out, msg)
	}
	return out
}

func (f *fixture) press(keys ...tea.KeyPressMsg) []tea.Msg {
	var out []tea.Msg
	for _, k := range keys {
		_, cmd := f.screen.Update(k)
		out = append(out, f.drain(cmd)...)
	}
	return out
}

func key(r rune) tea.KeyPressMsg { return tea.KeyPressMsg{Code: r, Text: string(r)} }

func special(code rune) tea.KeyPressMsg { return tea.KeyPressMsg{Code: code} }

func (f *fixture) selectHistory(t *testing.T, i int) {
	t.Helper()
	f.screen.menu.Selected = f.screen.historyStart + i
	if _, ok := f.screen.selectedEntry(); !ok {
		t.Fatalf("no history entry at %d", i)
	}
}

func TestInitShowsHistory(t *testing.T) {
	f := newFixture(t, content.RoleStudent)
	f.drain(f.screen.Init())

	view := f.screen.View(100, 40)
	if !strings.Contains(view, "Water cycle") {
		t.Errorf("history entry missing from view:\n%s", view)
	}
	if strings.Contains(view, "Class dashboard") {
		t.Error("students should not see the dashboard")
	}
	if f.screen.Title() != "Home" {
		t.Errorf("Title() = %q", f.screen.Title())
	}
}

func TestLessonQuizAndScore(t *testing.T) {
	f := newFixture(t, content.RoleStudent)
	f.drain(f.screen.Init())
	ctl := f.screen.Controller()

	f.selectHistory(t, 0)
	f.press(special(tea.KeyEnter))
	if ctl.View() != session.ViewLesson {
		t.Fatalf("view = %s, want lesson", ctl.View())
	}
	if !strings.Contains(f.screen.View(100, 40), "Water evaporates") {
		t.Error("passage not rendered")
	}

	f.press(key('q'))
	if ctl.View() != session.ViewQuiz {
		t.Fatalf("view = %s, want quiz", ctl.View())
	}

	// Answer by letter; the choice locks.
	f.press(key('a'))
	if !ctl.Attempt().Locked() || !ctl.Attempt().Correct() {
		t.Fatal("expected a locked correct answer")
	}
	f.press(key('b'))
	if sel, _ := ctl.Attempt().Selected(); sel != "A) Rain" {
		t.Errorf("selection changed to %q", sel)
	}

	f.press(special(tea.KeyEnter))
	if ctl.Attempt().Index() != 1 {
		t.Fatalf("index = %d, want 1", ctl.Attempt().Index())
	}
	if f.screen.quiz.Submitted {
		t.Error("choice widget should reset for the next question")
	}

	// Wrong answer on the last question.
	f.press(key('a'), special(tea.KeyEnter))
	if ctl.View() != session.ViewScore {
		t.Fatalf("view = %s, want score", ctl.View())
	}
	if ctl.Attempt().Score() != 1 {
		t.Errorf("score = %d, want 1", ctl.Attempt().Score())
	}
	if text, pending := ctl.Feedback(); pending || text != "Great reading!" {
		t.Errorf("feedback = %q pending=%v", text, pending)
	}
	if !strings.Contains(f.screen.View(100, 40), "1 / 2") {
		t.Error("score missing from view")
	}

	f.press(special(tea.KeyEnter))
	if ctl.View() != session.ViewMenu || ctl.Lesson() != nil {
		t.Error("enter on score should return home")
	}
}

func TestTutorPanel(t *testing.T) {
	f := newFixture(t, content.RoleStudent)
	f.drain(f.screen.Init())
	ctl := f.screen.Controller()

	f.selectHistory(t, 0)
	f.press(special(tea.KeyEnter))

	f.screen.Update(key('t'))
	if !f.screen.tutor.focused() {
		t.Fatal("t should open the tutor")
	}
	f.screen.tutor.input.SetValue("What is rain?")
	f.press(special(tea.KeyEnter))

	msgs := ctl.Dialogue()
	if len(msgs) != 2 || msgs[1].Text != "Clouds are made of tiny droplets." {
		t.Fatalf("dialogue = %+v", msgs)
	}
	if f.screen.tutor.input.Value() != "" {
		t.Error("input should clear after asking")
	}

	f.press(special(tea.KeyEscape))
	if f.screen.tutor.visible {
		t.Error("esc should close the tutor")
	}
	if ctl.View() != session.ViewLesson {
		t.Error("closing the tutor should not leave the lesson")
	}
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	f := newFixture(t, content.RoleStudent)
	f.drain(f.screen.Init())
	ctl := f.screen.Controller()

	f.selectHistory(t, 0)
	f.press(key('d'))
	if ctl.PendingDelete() != "l1" {
		t.Fatalf("pending = %q", ctl.PendingDelete())
	}
	if !strings.Contains(f.screen.View(100, 40), "Delete \"Water cycle\"?") {
		t.Error("confirmation missing")
	}

	f.press(key('n'))
	if ctl.PendingDelete() != "" || len(f.svc.deleted) != 0 {
		t.Fatal("n should cancel")
	}

	f.press(key('d'), key('y'))
	if len(f.svc.deleted) != 1 || len(ctl.History()) != 0 {
		t.Errorf("deleted = %v history = %v", f.svc.deleted, ctl.History())
	}
}

func TestCreateFormReportsValidation(t *testing.T) {
	f := newFixture(t, content.RoleStudent)
	f.drain(f.screen.Init())

	f.screen.openForm(content.SourceTopic)()
	if f.screen.form == nil || f.screen.form.showAssign {
		t.Fatal("student form should open without the assign field")
	}
	f.screen.Update(tea.KeyPressMsg{Code: 's', Mod: tea.ModCtrl})
	if f.screen.form == nil || f.screen.form.err == "" {
		t.Fatal("empty topic should be rejected in the form")
	}

	f.screen.form.input.SetValue("Volcanoes")
	f.screen.form.num.SetValue("3")
	_, cmd := f.screen.Update(tea.KeyPressMsg{Code: 's', Mod: tea.ModCtrl})
	if f.screen.form != nil {
		t.Fatal("form should close once the request is sent")
	}
	f.drain(cmd)
	if l := f.screen.Controller().Lesson(); l == nil || l.ID != "new" {
		t.Errorf("created lesson not opened: %+v", l)
	}
}

func TestTeacherSeesDashboard(t *testing.T) {
	f := newFixture(t, content.RoleTeacher)
	f.drain(f.screen.Init())
	ctl := f.screen.Controller()

	if !strings.Contains(f.screen.View(100, 40), "Class dashboard") {
		t.Fatal("teachers in teacher mode should see the dashboard entry")
	}
	f.drain(f.screen.do(ctl.OpenDashboard()))
	if ctl.View() != session.ViewDashboard {
		t.Fatalf("view = %s", ctl.View())
	}
	view := f.screen.View(120, 40)
	if !strings.Contains(view, "kid@school.test") || !strings.Contains(view, "2 / 3") {
		t.Errorf("dashboard row missing:\n%s", view)
	}
	if b := f.screen.Badge(); b.Mode != "teacher" || b.User != "Robin" {
		t.Errorf("badge = %+v", b)
	}
}

func TestAuthFailureReturnsToLogin(t *testing.T) {
	f := newFixture(t, content.RoleStudent)
	ctx := context.Background()
	if err := f.creds.Save(ctx, store.Credential{APIURL: "http://school.test", Token: "t"}); err != nil {
		t.Fatal(err)
	}
	f.svc.histErr = &api.Error{Kind: api.KindAuth, Status: 401}

	msgs := f.drain(f.screen.Init())

	var replaced bool
	for _, m := range msgs {
		if r, ok := m.(router.ReplaceScreenMsg); ok && r.Screen == f.login {
			replaced = true
		}
	}
	if !replaced {
		t.Fatalf("expected a switch to the login screen, got %v", msgs)
	}
	if f.login.notice != expiredNotice {
		t.Errorf("notice = %q", f.login.notice)
	}
	if c, _ := f.creds.Get(ctx, "http://school.test"); c != nil {
		t.Error("saved credential should be forgotten")
	}
}

func TestBannerDismiss(t *testing.T) {
	f := newFixture(t, content.RoleStudent)
	f.drain(f.screen.Init())
	ctl := f.screen.Controller()

	ctl.Notify(session.ErrBusy)
	if !strings.Contains(f.screen.View(100, 40), session.ErrBusy.Error()) {
		t.Fatal("expected the banner in the view")
	}
	f.press(key('x'))
	if _, ok := ctl.Banner(); ok {
		t.Error("x should dismiss the banner")
	}
}

func TestResultsFromAnotherControllerAreIgnored(t *testing.T) {
	old := newFixture(t, content.RoleStudent)
	old.svc.history = []content.HistoryEntry{{ID: "x1", Topic: "Volcanoes"}}
	f := newFixture(t, content.RoleStudent)
	f.drain(f.screen.Init())

	op := old.screen.Controller().RefreshHistory()
	stale := resultMsg{ctl: old.screen.Controller(), result: op(context.Background())}
	f.screen.Update(stale)

	got := f.screen.Controller().History()
	if len(got) != 1 || got[0].ID != "l1" {
		t.Errorf("History() = %v, want only l1", got)
	}
	if view := f.screen.View(100, 40); strings.Contains(view, "Volcanoes") {
		t.Errorf("foreign history rendered:\n%s", view)
	}
}
