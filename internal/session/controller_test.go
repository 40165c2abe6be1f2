package session

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/abhisek/edubot/internal/api"
	"github.com/abhisek/edubot/internal/content"
)

func TestInitLoadsRoleAndHistory(t *testing.T) {
	svc := newFakeService()
	svc.role = content.RoleTeacher
	svc.histories = [][]content.HistoryEntry{{{ID: "l1", Topic: "Rain"}}}
	c, _ := newTestController(t, svc, content.RoleStudent)

	run(c, c.Init()...)

	if got := c.Session().Role(); got != content.RoleTeacher {
		t.Errorf("Role() = %v, want teacher", got)
	}
	if got := c.Session().Mode(); got != ModeTeacher {
		t.Errorf("Mode() = %v, want teacher", got)
	}
	if len(c.History()) != 1 || c.HistoryLoading() {
		t.Errorf("History() = %v loading = %v", c.History(), c.HistoryLoading())
	}
}

func TestQuizThreeQuestions(t *testing.T) {
	svc := newFakeService()
	svc.feedback = "Great job on the water cycle."
	c, rec := newTestController(t, svc, content.RoleStudent)
	openSample(t, c, svc, sampleLesson("l1"))

	if c.View() != ViewLesson {
		t.Fatalf("View() = %v, want lesson", c.View())
	}
	if err := c.StartQuiz(); err != nil {
		t.Fatalf("StartQuiz: %v", err)
	}

	answers := []string{"A) Rain", "A) Dust", "C) Evaporates it"}
	var final []Op
	for i, a := range answers {
		if !c.SelectAnswer(a) {
			t.Fatalf("SelectAnswer(%q) ignored", a)
		}
		ops, err := c.Advance()
		if err != nil {
			t.Fatalf("Advance %d: %v", i, err)
		}
		if i < len(answers)-1 && ops != nil {
			t.Fatalf("Advance %d returned ops before the end", i)
		}
		final = ops
	}

	if c.View() != ViewScore {
		t.Fatalf("View() = %v, want score", c.View())
	}
	if c.Attempt().Score() != 2 || c.Attempt().Total() != 3 {
		t.Errorf("score = %d/%d, want 2/3", c.Attempt().Score(), c.Attempt().Total())
	}
	text, pending := c.Feedback()
	if text != FeedbackPending || !pending {
		t.Errorf("Feedback() = %q, %v; want pending placeholder", text, pending)
	}

	listed := svc.listCalls
	run(c, final...)

	want := content.ScoreReport{Score: 2, Total: 3, Topic: "Water cycle", LessonID: "l1"}
	if len(svc.scores) != 1 || svc.scores[0] != want {
		t.Errorf("submitted = %+v, want [%+v]", svc.scores, want)
	}
	if text, pending := c.Feedback(); text != svc.feedback || pending {
		t.Errorf("Feedback() = %q, %v", text, pending)
	}
	if svc.listCalls != listed+1 {
		t.Errorf("history refreshes = %d, want 1", svc.listCalls-listed)
	}
	if len(rec.reports) != 1 || rec.reports[0] != want {
		t.Errorf("recorded = %+v", rec.reports)
	}

	if _, err := c.Advance(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Advance after score err = %v, want ErrInvalidTransition", err)
	}
}

func TestSelectAnswerLocks(t *testing.T) {
	svc := newFakeService()
	c, _ := newTestController(t, svc, content.RoleStudent)
	openSample(t, c, svc, sampleLesson("l1"))
	if err := c.StartQuiz(); err != nil {
		t.Fatal(err)
	}

	if _, err := c.Advance(); !errors.Is(err, ErrNotAnswered) {
		t.Errorf("Advance unanswered err = %v, want ErrNotAnswered", err)
	}
	if !c.SelectAnswer("B) Sand") {
		t.Fatal("first selection ignored")
	}
	if c.SelectAnswer("A) Rain") {
		t.Error("second selection should be ignored")
	}
	if c.SelectAnswer("Z) Nope") {
		t.Error("unknown option should be ignored")
	}
	if got, _ := c.Attempt().Selected(); got != "B) Sand" {
		t.Errorf("Selected() = %q, want B) Sand", got)
	}
	if c.Attempt().Correct() {
		t.Error("Correct() = true for a wrong answer")
	}
	if _, err := c.Advance(); err != nil {
		t.Fatal(err)
	}
	if c.Attempt().Score() != 0 || c.Attempt().Index() != 1 {
		t.Errorf("after wrong answer score = %d index = %d", c.Attempt().Score(), c.Attempt().Index())
	}
}

func TestFeedbackFailureFallsBack(t *testing.T) {
	svc := newFakeService()
	svc.feedbackErr = &api.Error{Kind: api.KindServer, Status: 500}
	c, _ := newTestController(t, svc, content.RoleStudent)
	l := sampleLesson("l1")
	l.Quiz = l.Quiz[:1]
	openSample(t, c, svc, l)
	_ = c.StartQuiz()
	c.SelectAnswer("A) Rain")
	ops, err := c.Advance()
	if err != nil {
		t.Fatal(err)
	}
	run(c, ops...)

	if text, pending := c.Feedback(); text != FeedbackFallback || pending {
		t.Errorf("Feedback() = %q, %v; want fallback", text, pending)
	}
	if c.View() != ViewScore {
		t.Errorf("View() = %v, want score", c.View())
	}
}

func TestStaleFeedbackIsDropped(t *testing.T) {
	svc := newFakeService()
	svc.feedback = "late"
	c, _ := newTestController(t, svc, content.RoleStudent)
	l := sampleLesson("l1")
	l.Quiz = l.Quiz[:1]
	openSample(t, c, svc, l)
	_ = c.StartQuiz()
	c.SelectAnswer("A) Rain")
	ops, _ := c.Advance()

	c.GoHome()
	run(c, ops...)

	if text, _ := c.Feedback(); text != "" {
		t.Errorf("Feedback() = %q after GoHome, want empty", text)
	}
	if c.View() != ViewMenu {
		t.Errorf("View() = %v, want menu", c.View())
	}
}

func TestQuizOnlyLessonOpensQuiz(t *testing.T) {
	svc := newFakeService()
	c, _ := newTestController(t, svc, content.RoleStudent)
	l := sampleLesson("q1")
	l.Content = ""
	openSample(t, c, svc, l)

	if c.View() != ViewQuiz {
		t.Errorf("View() = %v, want quiz", c.View())
	}
	if err := c.StartQuiz(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("StartQuiz from quiz err = %v", err)
	}
}

func TestEmptyQuizIsRejected(t *testing.T) {
	svc := newFakeService()
	svc.lessons["e1"] = &content.Lesson{ID: "e1", Title: "Nothing", Content: "text"}
	c, _ := newTestController(t, svc, content.RoleStudent)

	op, err := c.LoadEntry("e1")
	run(c, mustOp(t, op, err))

	if c.View() != ViewMenu || c.Lesson() != nil {
		t.Errorf("View() = %v lesson = %v, want menu with no lesson", c.View(), c.Lesson())
	}
	if b, ok := c.Banner(); !ok || b.Kind != BannerError {
		t.Errorf("Banner() = %+v, %v; want error", b, ok)
	}
}

func TestLoadEntryNetworkFailureKeepsMenu(t *testing.T) {
	svc := newFakeService()
	svc.getErr = &api.Error{Kind: api.KindNetwork, Err: context.DeadlineExceeded}
	c, _ := newTestController(t, svc, content.RoleStudent)

	op, err := c.LoadEntry("l1")
	run(c, mustOp(t, op, err))

	if c.View() != ViewMenu {
		t.Errorf("View() = %v, want menu", c.View())
	}
	b, ok := c.Banner()
	if !ok || b.Kind != BannerError || !strings.Contains(b.Text, "Could not reach the server") {
		t.Errorf("Banner() = %+v, %v", b, ok)
	}
	if c.Busy() {
		t.Error("Busy() = true after failure")
	}

	c.DismissBannerSeq(b.Seq - 1)
	if _, ok := c.Banner(); !ok {
		t.Error("DismissBannerSeq with an old seq cleared the banner")
	}
	c.DismissBannerSeq(b.Seq)
	if _, ok := c.Banner(); ok {
		t.Error("banner not dismissed")
	}
}

func TestLoadEntryFromLessonSwitchesLesson(t *testing.T) {
	svc := newFakeService()
	c, _ := newTestController(t, svc, content.RoleStudent)
	openSample(t, c, svc, sampleLesson("l1"))
	_ = c.StartQuiz()
	c.SelectAnswer("A) Rain")

	openSample(t, c, svc, sampleLesson("l2"))
	if c.View() != ViewLesson || c.Attempt().Locked() {
		t.Errorf("View() = %v locked = %v, want a fresh lesson", c.View(), c.Attempt().Locked())
	}
}

func TestLoadAndCreateShareGuard(t *testing.T) {
	svc := newFakeService()
	c, _ := newTestController(t, svc, content.RoleStudent)

	op, err := c.LoadEntry("l1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Create(content.CreateRequest{Source: content.SourceTopic, Topic: "Volcanoes"}); !errors.Is(err, ErrBusy) {
		t.Errorf("Create while loading err = %v, want ErrBusy", err)
	}
	if _, err := c.LoadEntry("l2"); !errors.Is(err, ErrBusy) {
		t.Errorf("LoadEntry while loading err = %v, want ErrBusy", err)
	}
	run(c, op)
	if c.Busy() {
		t.Error("Busy() still set")
	}
}

func TestHistoryLastIssuedWins(t *testing.T) {
	svc := newFakeService()
	first := []content.HistoryEntry{{ID: "old"}}
	second := []content.HistoryEntry{{ID: "new"}, {ID: "old"}}
	svc.histories = [][]content.HistoryEntry{first, second}
	c, _ := newTestController(t, svc, content.RoleStudent)

	op1 := c.RefreshHistory()
	op2 := c.RefreshHistory()
	ctx := context.Background()
	r1 := op1(ctx)
	r2 := op2(ctx)

	// The newer response arrives first; the older one must not replace it.
	c.Apply(r2)
	c.Apply(r1)

	if !reflect.DeepEqual(c.History(), second) {
		t.Errorf("History() = %+v, want %+v", c.History(), second)
	}
	if c.HistoryLoading() {
		t.Error("HistoryLoading() = true")
	}
}

func TestHistoryFailureKeepsList(t *testing.T) {
	svc := newFakeService()
	svc.histories = [][]content.HistoryEntry{{{ID: "l1"}}}
	c, _ := newTestController(t, svc, content.RoleStudent)
	run(c, c.RefreshHistory())

	svc.historyErr = &api.Error{Kind: api.KindServer, Status: 502}
	run(c, c.RefreshHistory())

	if len(c.History()) != 1 {
		t.Errorf("History() = %v, want previous list", c.History())
	}
	if _, ok := c.Banner(); !ok {
		t.Error("expected error banner")
	}
}

func TestDeleteOpenLessonReturnsToMenu(t *testing.T) {
	svc := newFakeService()
	c, _ := newTestController(t, svc, content.RoleStudent)
	openSample(t, c, svc, sampleLesson("l1"))

	if err := c.RequestDelete("l1"); err != nil {
		t.Fatal(err)
	}
	if c.PendingDelete() != "l1" {
		t.Fatalf("PendingDelete() = %q", c.PendingDelete())
	}
	listed := svc.listCalls
	op, err := c.ConfirmDelete()
	run(c, mustOp(t, op, err))

	if c.View() != ViewMenu || c.Lesson() != nil {
		t.Errorf("View() = %v lesson = %v, want menu", c.View(), c.Lesson())
	}
	if svc.listCalls != listed+1 {
		t.Error("history not refreshed after delete")
	}
	if !reflect.DeepEqual(svc.deleted, []string{"l1"}) {
		t.Errorf("deleted = %v", svc.deleted)
	}
}

func TestDeleteOtherLessonKeepsView(t *testing.T) {
	svc := newFakeService()
	c, _ := newTestController(t, svc, content.RoleStudent)
	openSample(t, c, svc, sampleLesson("l1"))
	_ = c.StartQuiz()

	_ = c.RequestDelete("l2")
	op, err := c.ConfirmDelete()
	run(c, mustOp(t, op, err))

	if c.View() != ViewQuiz || c.Lesson().ID != "l1" {
		t.Errorf("View() = %v, want quiz on l1", c.View())
	}
}

func TestDeleteNotFoundCountsAsDeleted(t *testing.T) {
	svc := newFakeService()
	svc.deleteErr = &api.Error{Kind: api.KindNotFound, Status: 404}
	c, _ := newTestController(t, svc, content.RoleStudent)
	openSample(t, c, svc, sampleLesson("l1"))

	_ = c.RequestDelete("l1")
	op, err := c.ConfirmDelete()
	run(c, mustOp(t, op, err))

	if c.View() != ViewMenu {
		t.Errorf("View() = %v, want menu", c.View())
	}
	if _, ok := c.Banner(); ok {
		t.Error("NotFound should not raise a banner")
	}
}

func TestCancelDelete(t *testing.T) {
	c, _ := newTestController(t, newFakeService(), content.RoleStudent)
	_ = c.RequestDelete("l1")
	c.CancelDelete()
	if _, err := c.ConfirmDelete(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("ConfirmDelete after cancel err = %v", err)
	}
}

func TestCreateAppliesDefaultsAndOpens(t *testing.T) {
	svc := newFakeService()
	svc.createResult = &content.CreateResult{Lesson: sampleLesson("new")}
	c, _ := newTestController(t, svc, content.RoleStudent)

	op, err := c.Create(content.CreateRequest{Source: content.SourceTopic, Topic: "  Volcanoes "})
	run(c, mustOp(t, op, err))

	want := createCall{
		source: content.SourceTopic,
		input:  "Volcanoes",
		opts:   content.CreateOptions{NumQuestions: content.DefaultNumQuestions, Difficulty: content.DefaultDifficulty},
	}
	if len(svc.creates) != 1 || svc.creates[0] != want {
		t.Errorf("creates = %+v, want %+v", svc.creates, want)
	}
	if c.View() != ViewLesson || c.Lesson().ID != "new" {
		t.Errorf("View() = %v, want lesson", c.View())
	}
	if svc.listCalls != 1 {
		t.Errorf("listCalls = %d, want 1", svc.listCalls)
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	c, _ := newTestController(t, newFakeService(), content.RoleStudent)

	_, err := c.Create(content.CreateRequest{Source: content.SourceText, Text: "short"})
	var verr *content.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if c.Busy() {
		t.Error("Busy() set by a rejected request")
	}
}

func TestStudentModeDisablesAssign(t *testing.T) {
	reqs := []content.CreateRequest{
		{Source: content.SourceText, Text: "Photosynthesis turns light into sugar."},
		{Source: content.SourceTopic, Topic: "Photosynthesis"},
		{Source: content.SourceFile, FilePath: "notes.txt"},
	}
	for _, req := range reqs {
		t.Run(string(req.Source), func(t *testing.T) {
			svc := newFakeService()
			svc.createResult = &content.CreateResult{Assigned: true}
			c, _ := newTestController(t, svc, content.RoleTeacher)
			if err := c.SetMode(ModeStudent); err != nil {
				t.Fatal(err)
			}
			if c.Session().AssignEnabled() {
				t.Fatal("AssignEnabled() in student mode")
			}

			req.Options.AssignTo = "kid@school.test"
			_, err := c.Create(req)
			var verr *content.ValidationError
			if !errors.As(err, &verr) || verr.Fields[0].Field != "assign_to" {
				t.Fatalf("err = %v, want assign_to validation error", err)
			}
			if len(svc.creates) != 0 {
				t.Error("service called despite rejection")
			}

			if err := c.SetMode(ModeTeacher); err != nil {
				t.Fatal(err)
			}
			op, err := c.Create(req)
			run(c, mustOp(t, op, err))
			if len(svc.creates) != 1 || svc.creates[0].opts.AssignTo != "kid@school.test" {
				t.Errorf("creates = %+v", svc.creates)
			}
			b, ok := c.Banner()
			if !ok || b.Kind != BannerInfo || !strings.Contains(b.Text, "kid@school.test") {
				t.Errorf("Banner() = %+v, %v", b, ok)
			}
			if c.View() != ViewMenu {
				t.Errorf("View() = %v, want menu after assigning", c.View())
			}
		})
	}
}

func TestAuthFailureResetsSession(t *testing.T) {
	svc := newFakeService()
	svc.historyErr = &api.Error{Kind: api.KindAuth, Status: 401}
	sc := NewSessionContext()
	if err := sc.SetToken(signToken(t, "me@school.test", content.RoleTeacher)); err != nil {
		t.Fatal(err)
	}
	hooked := 0
	c := NewController(Options{Service: svc, Session: sc, OnAuthFailure: func() { hooked++ }})
	openSample(t, c, svc, sampleLesson("l1"))

	run(c, c.RefreshHistory())

	if hooked != 1 {
		t.Errorf("hook calls = %d, want 1", hooked)
	}
	if sc.Token() != "" || sc.Role() != content.RoleStudent {
		t.Errorf("session not cleared: token=%q role=%v", sc.Token(), sc.Role())
	}
	if c.View() != ViewMenu || c.Lesson() != nil {
		t.Errorf("controller not reset: view=%v", c.View())
	}
}

func TestResultsFromBeforeLogoutAreDropped(t *testing.T) {
	svc := newFakeService()
	svc.lessons["l1"] = sampleLesson("l1")
	c, _ := newTestController(t, svc, content.RoleStudent)

	op, err := c.LoadEntry("l1")
	if err != nil {
		t.Fatal(err)
	}
	c.Logout()
	run(c, op)

	if c.Lesson() != nil {
		t.Error("lesson opened after logout")
	}
}

func TestTutorDialogue(t *testing.T) {
	svc := newFakeService()
	svc.answer = "Clouds form when vapour cools."
	c, _ := newTestController(t, svc, content.RoleStudent)

	if _, err := c.AskTutor("why?"); !errors.Is(err, ErrNoLesson) {
		t.Errorf("AskTutor without lesson err = %v", err)
	}
	openSample(t, c, svc, sampleLesson("l1"))
	if _, err := c.AskTutor("   "); !errors.Is(err, ErrEmptyQuestion) {
		t.Errorf("AskTutor empty err = %v", err)
	}

	op, err := c.AskTutor("How do clouds form?")
	if err != nil {
		t.Fatal(err)
	}
	if msgs := c.Dialogue(); len(msgs) != 1 || msgs[0].Sender != SenderUser {
		t.Fatalf("Dialogue() = %+v, want the question", msgs)
	}
	if _, err := c.AskTutor("again"); !errors.Is(err, ErrBusy) {
		t.Errorf("second AskTutor err = %v, want ErrBusy", err)
	}
	run(c, op)

	msgs := c.Dialogue()
	if len(msgs) != 2 || msgs[1].Sender != SenderBot || msgs[1].Text != svc.answer {
		t.Errorf("Dialogue() = %+v", msgs)
	}
	if svc.contexts[0] != sampleLesson("l1").Content {
		t.Errorf("context = %q, want lesson content", svc.contexts[0])
	}

	svc.tutorErr = &api.Error{Kind: api.KindServer}
	op, _ = c.AskTutor("And then?")
	run(c, op)
	if msgs := c.Dialogue(); msgs[len(msgs)-1].Text != TutorFallback {
		t.Errorf("last message = %q, want fallback", msgs[len(msgs)-1].Text)
	}
}

func TestTutorQuizOnlyContext(t *testing.T) {
	svc := newFakeService()
	svc.answer = "ok"
	c, _ := newTestController(t, svc, content.RoleStudent)
	l := sampleLesson("q1")
	l.Content = ""
	openSample(t, c, svc, l)

	op, err := c.AskTutor("hint?")
	run(c, mustOp(t, op, err))

	got := svc.contexts[0]
	if !strings.HasPrefix(got, l.Title) || !strings.Contains(got, "1. What falls from clouds?") {
		t.Errorf("context = %q", got)
	}
}

func TestTutorAnswerForClosedLessonIsDropped(t *testing.T) {
	svc := newFakeService()
	svc.answer = "late"
	c, _ := newTestController(t, svc, content.RoleStudent)
	openSample(t, c, svc, sampleLesson("l1"))

	op, _ := c.AskTutor("question")
	c.GoHome()
	run(c, op)

	if n := len(c.Dialogue()); n != 0 {
		t.Errorf("Dialogue() has %d messages after GoHome", n)
	}
	if c.TutorBusy() {
		t.Error("TutorBusy() = true")
	}
}

func TestDashboardGating(t *testing.T) {
	svc := newFakeService()
	svc.dashboard = []content.DashboardRow{{Student: "kid@school.test", Topic: "Rain", Score: 2, Total: 3}}

	student, _ := newTestController(t, svc, content.RoleStudent)
	if _, err := student.OpenDashboard(); !errors.Is(err, ErrNotPermitted) {
		t.Errorf("student OpenDashboard err = %v", err)
	}

	c, _ := newTestController(t, svc, content.RoleTeacher)
	op, err := c.OpenDashboard()
	if err != nil {
		t.Fatal(err)
	}
	if c.View() != ViewMenu {
		t.Error("view changed before rows arrived")
	}
	run(c, op)
	if c.View() != ViewDashboard || len(c.Dashboard()) != 1 {
		t.Errorf("View() = %v rows = %d", c.View(), len(c.Dashboard()))
	}

	if err := c.SetMode(ModeStudent); err != nil {
		t.Fatal(err)
	}
	if c.View() != ViewMenu {
		t.Errorf("View() = %v after leaving teacher mode", c.View())
	}
}

func TestDashboardFailureStaysOnMenu(t *testing.T) {
	svc := newFakeService()
	svc.dashboardErr = &api.Error{Kind: api.KindAuthorization, Status: 403}
	c, _ := newTestController(t, svc, content.RoleTeacher)

	op, err := c.OpenDashboard()
	run(c, mustOp(t, op, err))

	if c.View() != ViewMenu {
		t.Errorf("View() = %v, want menu", c.View())
	}
	if b, _ := c.Banner(); b.Text != "You do not have permission to do that." {
		t.Errorf("banner = %q", b.Text)
	}
}

func TestAdminPanel(t *testing.T) {
	svc := newFakeService()
	svc.users = []content.UserSummary{{Email: "kid@school.test", Role: content.RoleStudent}}

	teacher, _ := newTestController(t, svc, content.RoleTeacher)
	if _, err := teacher.OpenAdminPanel(); !errors.Is(err, ErrNotPermitted) {
		t.Errorf("teacher OpenAdminPanel err = %v", err)
	}

	c, _ := newTestController(t, svc, content.RoleAdmin)
	op, err := c.OpenAdminPanel()
	run(c, mustOp(t, op, err))
	if c.View() != ViewAdmin || len(c.Users()) != 1 {
		t.Fatalf("View() = %v users = %v", c.View(), c.Users())
	}

	op, err = c.ChangeUserRole("kid@school.test", content.RoleTeacher)
	run(c, mustOp(t, op, err))
	if !reflect.DeepEqual(svc.roleChanges, []string{"kid@school.test=teacher"}) {
		t.Errorf("roleChanges = %v", svc.roleChanges)
	}
	if _, err := c.ChangeUserRole("kid@school.test", content.Role("root")); err == nil {
		t.Error("unknown role accepted")
	}

	if err := c.RequestUserDelete("ME@school.test"); !errors.Is(err, ErrNotPermitted) {
		t.Errorf("self delete err = %v", err)
	}
	if err := c.RequestUserDelete("kid@school.test"); err != nil {
		t.Fatal(err)
	}
	op, err = c.ConfirmUserDelete()
	run(c, mustOp(t, op, err))
	if !reflect.DeepEqual(svc.userDeletes, []string{"kid@school.test"}) {
		t.Errorf("userDeletes = %v", svc.userDeletes)
	}
}

func TestSearchUsersKeepsLatest(t *testing.T) {
	svc := newFakeService()
	svc.search = map[string][]content.UserSummary{
		"ki":  {{Email: "kid@school.test"}, {Email: "kim@school.test"}},
		"kid": {{Email: "kid@school.test"}},
	}
	c, _ := newTestController(t, svc, content.RoleTeacher)

	op1, _ := c.SearchUsers("ki")
	op2, _ := c.SearchUsers("kid")
	ctx := context.Background()
	r1, r2 := op1(ctx), op2(ctx)
	c.Apply(r2)
	c.Apply(r1)

	if got := c.SearchResults(); len(got) != 1 {
		t.Errorf("SearchResults() = %v, want the kid match only", got)
	}

	_ = c.SetMode(ModeStudent)
	if _, err := c.SearchUsers("kid"); !errors.Is(err, ErrNotPermitted) {
		t.Errorf("student search err = %v", err)
	}
}

func TestGoHomeClearsLesson(t *testing.T) {
	svc := newFakeService()
	c, _ := newTestController(t, svc, content.RoleStudent)
	openSample(t, c, svc, sampleLesson("l1"))
	_ = c.RequestDelete("l1")

	ops := c.GoHome()
	if len(ops) != 1 {
		t.Fatalf("GoHome returned %d ops, want a history refresh", len(ops))
	}
	if c.View() != ViewMenu || c.Lesson() != nil || c.Attempt() != nil || c.PendingDelete() != "" {
		t.Error("GoHome left lesson state behind")
	}
}

func TestDeletedEntryLeavesHistoryWhenRefreshFails(t *testing.T) {
	for _, tc := range []struct {
		name string
		err  error
	}{
		{"deleted", nil},
		{"already gone", &api.Error{Kind: api.KindNotFound, Status: 404}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			svc := newFakeService()
			svc.histories = [][]content.HistoryEntry{{{ID: "l1", Topic: "Rain"}, {ID: "l2", Topic: "Snow"}}}
			svc.deleteErr = tc.err
			c, _ := newTestController(t, svc, content.RoleStudent)
			run(c, c.RefreshHistory())

			_ = c.RequestDelete("l1")
			op, err := c.ConfirmDelete()
			ops := c.Apply(mustOp(t, op, err)(context.Background()))
			svc.historyErr = &api.Error{Kind: api.KindServer, Status: 503}
			run(c, ops...)

			got := c.History()
			if len(got) != 1 || got[0].ID != "l2" {
				t.Errorf("History() = %v, want only l2", got)
			}
		})
	}
}

func TestHistoryRefreshWaitsForScoreSubmit(t *testing.T) {
	for _, tc := range []struct {
		name   string
		text   string
		err    error
		expect string
	}{
		{"feedback", "Nice work.", nil, "Nice work."},
		{"feedback failed", "", &api.Error{Kind: api.KindServer, Status: 500}, FeedbackFallback},
	} {
		t.Run(tc.name, func(t *testing.T) {
			svc := newFakeService()
			svc.feedback, svc.feedbackErr = tc.text, tc.err
			c, _ := newTestController(t, svc, content.RoleStudent)
			l := sampleLesson("l1")
			l.Quiz = l.Quiz[:1]
			openSample(t, c, svc, l)
			_ = c.StartQuiz()
			c.SelectAnswer("A) Rain")
			ops, err := c.Advance()
			if err != nil {
				t.Fatal(err)
			}
			listed := svc.listCalls

			ctx := context.Background()
			var follow []Op
			for i := len(ops) - 1; i >= 0; i-- {
				follow = append(follow, c.Apply(ops[i](ctx))...)
				if len(svc.scores) == 0 && svc.listCalls != listed {
					t.Fatal("history listed before the score was submitted")
				}
			}
			if svc.listCalls != listed {
				t.Errorf("listCalls = %d before follow-ups, want %d", svc.listCalls, listed)
			}
			if len(follow) != 1 {
				t.Fatalf("follow-up ops = %d, want 1 refresh", len(follow))
			}
			run(c, follow...)

			if svc.listCalls != listed+1 {
				t.Errorf("listCalls = %d, want %d", svc.listCalls, listed+1)
			}
			if text, pending := c.Feedback(); text != tc.expect || pending {
				t.Errorf("Feedback() = %q, %v; want %q", text, pending, tc.expect)
			}
		})
	}
}

func TestRoleFromBeforeLogoutIsDropped(t *testing.T) {
	svc := newFakeService()
	svc.role = content.RoleAdmin
	c, _ := newTestController(t, svc, content.RoleStudent)

	op := c.LoadRole()
	c.Logout()
	run(c, op)

	sc := c.Session()
	if sc.Role() != content.RoleStudent || sc.CanAdmin() {
		t.Errorf("role after logout = %v admin=%v, want student", sc.Role(), sc.CanAdmin())
	}
	if sc.Token() != "" {
		t.Errorf("Token() = %q after logout", sc.Token())
	}
}
