package classroom

import (
	"context"
	"fmt"
	"time"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/edubot/internal/logging"
	"github.com/abhisek/edubot/internal/router"
	"github.com/abhisek/edubot/internal/screen"
	"github.com/abhisek/edubot/internal/session"
	"github.com/abhisek/edubot/internal/store"
	"github.com/abhisek/edubot/internal/ui/components"
	"github.com/abhisek/edubot/internal/ui/layout"
)

const expiredNotice = "Your session has expired. Please log in again."

// Options configures New.
type Options struct {
	Service  session.ContentService
	Session  *session.SessionContext
	Recorder session.AttemptRecorder
	Logger   *logging.Logger

	// Timeout bounds each request. Zero leaves requests unbounded.
	Timeout time.Duration
	// BannerTimeout hides banners after a while. Negative keeps them
	// until dismissed; zero uses 6s.
	BannerTimeout time.Duration
	// HistoryLimit caps the history list. Zero shows everything.
	HistoryLimit int

	// Offline hides sign-out, which has no meaning without a backend.
	Offline bool

	// Credentials and APIURL locate the saved token forgotten on sign-out.
	Credentials store.CredentialRepo
	APIURL      string

	// SignIn builds the login screen shown after sign-out or expiry.
	SignIn func(notice string) screen.Screen
}

// resultMsg carries a finished session.Op back to the update loop. ctl is
// the controller that issued the op.
type resultMsg struct {
	ctl    *session.Controller
	result session.Result
}

type bannerExpiredMsg struct{ seq int }

// ClassroomScreen is the signed-in UI. All state lives in the session
// controller; the screen translates keys into controller calls and runs the
// returned ops as commands.
type ClassroomScreen struct {
	opts Options
	ctl  *session.Controller
	log  *logging.Logger

	menu         components.Menu
	historyStart int
	form         *createForm
	tutor        tutorPanel
	scroll       int

	quiz      components.MultiChoice
	quizOf    *session.Attempt
	quizIndex int

	admin    components.Menu
	rowStart int

	spinner   spinner.Model
	spinning  bool
	bannerSeq int

	expired bool
	left    bool
}

var _ screen.Screen = (*ClassroomScreen)(nil)

func New(opts Options) *ClassroomScreen {
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.BannerTimeout == 0 {
		opts.BannerTimeout = 6 * time.Second
	}
	s := &ClassroomScreen{
		opts:      opts,
		log:       opts.Logger.With("component", "classroom"),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		tutor:     newTutorPanel(),
		quizIndex: -1,
	}
	s.ctl = session.NewController(session.Options{
		Service:       opts.Service,
		Session:       opts.Session,
		Recorder:      opts.Recorder,
		Logger:        opts.Logger,
		OnAuthFailure: func() { s.expired = true },
	})
	s.syncMenu()
	return s
}

// Controller exposes the state machine, for tests and the app shell.
func (s *ClassroomScreen) Controller() *session.Controller { return s.ctl }

func (s *ClassroomScreen) Init() tea.Cmd {
	return tea.Batch(s.run(s.ctl.Init()...), s.sync())
}

// run turns ops into commands whose messages feed Apply.
func (s *ClassroomScreen) run(ops ...session.Op) tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(ops))
	timeout, ctl := s.opts.Timeout, s.ctl
	for _, op := range ops {
		if op == nil {
			continue
		}
		cmds = append(cmds, func() tea.Msg {
			ctx := context.Background()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			return resultMsg{ctl: ctl, result: op(ctx)}
		})
	}
	return tea.Batch(cmds...)
}

// do runs op when err is nil and reports err on the banner otherwise.
func (s *ClassroomScreen) do(op session.Op, err error) tea.Cmd {
	if err != nil {
		s.ctl.Notify(err)
		return nil
	}
	return s.run(op)
}

func (s *ClassroomScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if s.left {
		return s, nil
	}

	var cmd tea.Cmd
	switch msg := msg.(type) {
	case resultMsg:
		if msg.ctl != s.ctl {
			return s, nil
		}
		cmd = s.run(s.ctl.Apply(msg.result)...)

	case bannerExpiredMsg:
		s.ctl.DismissBannerSeq(msg.seq)
		return s, nil

	case spinner.TickMsg:
		if !s.loading() {
			s.spinning = false
			return s, nil
		}
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case tea.KeyMsg:
		cmd = s.handleKey(msg)

	default:
		cmd = s.forward(msg)
	}
	return s, tea.Batch(cmd, s.sync())
}

// forward hands non-key messages, such as cursor blinks, to the focused
// input.
func (s *ClassroomScreen) forward(msg tea.Msg) tea.Cmd {
	if s.form != nil {
		return s.form.update(msg)
	}
	if s.tutor.focused() {
		return s.tutor.update(msg)
	}
	return nil
}

func (s *ClassroomScreen) handleKey(msg tea.KeyMsg) tea.Cmd {
	if s.form != nil {
		return s.updateForm(msg)
	}
	if s.tutor.focused() {
		return s.updateTutor(msg)
	}
	switch msg.String() {
	case "x":
		s.ctl.DismissBanner()
		return nil
	case "esc":
		if s.tutor.visible {
			s.tutor.close()
			return nil
		}
	}

	switch s.ctl.View() {
	case session.ViewMenu:
		return s.updateMenu(msg)
	case session.ViewLesson:
		return s.updateLesson(msg)
	case session.ViewQuiz:
		return s.updateQuiz(msg)
	case session.ViewScore:
		return s.updateScore(msg)
	case session.ViewDashboard:
		return s.updateDashboard(msg)
	case session.ViewAdmin:
		return s.updateAdmin(msg)
	}
	return nil
}

func (s *ClassroomScreen) loading() bool {
	_, feedbackPending := s.ctl.Feedback()
	return s.ctl.Busy() || s.ctl.Deleting() || s.ctl.TutorBusy() || feedbackPending ||
		s.ctl.DashboardLoading() || s.ctl.UsersLoading() || s.ctl.AdminBusy()
}

// sync refreshes the derived widgets after every state change and returns
// the timers and navigation the new state calls for.
func (s *ClassroomScreen) sync() tea.Cmd {
	if s.expired {
		s.expired = false
		return s.leave(expiredNotice)
	}

	var cmds []tea.Cmd
	if b, ok := s.ctl.Banner(); ok && b.Seq != s.bannerSeq {
		s.bannerSeq = b.Seq
		if s.opts.BannerTimeout > 0 {
			seq := b.Seq
			cmds = append(cmds, tea.Tick(s.opts.BannerTimeout, func(time.Time) tea.Msg {
				return bannerExpiredMsg{seq: seq}
			}))
		}
	}
	if s.loading() && !s.spinning {
		s.spinning = true
		cmds = append(cmds, s.spinner.Tick)
	}

	s.syncMenu()
	s.syncQuiz()
	s.syncAdmin()
	if s.ctl.Lesson() == nil {
		s.tutor.close()
		s.scroll = 0
	}
	return tea.Batch(cmds...)
}

// leave forgets the saved credential and returns to the login screen.
func (s *ClassroomScreen) leave(notice string) tea.Cmd {
	s.left = true
	if s.opts.Credentials != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.opts.Credentials.Delete(ctx, s.opts.APIURL); err != nil {
			s.log.Warn("forget credential", "error", err)
		}
	}
	if s.opts.SignIn == nil {
		return tea.Quit
	}
	next := s.opts.SignIn(notice)
	return func() tea.Msg { return router.ReplaceScreenMsg{Screen: next} }
}

func (s *ClassroomScreen) logout() tea.Cmd {
	s.log.Info("signing out", "email", s.ctl.Session().Email())
	s.ctl.Logout()
	return s.leave("")
}

func (s *ClassroomScreen) Title() string {
	switch s.ctl.View() {
	case session.ViewLesson, session.ViewQuiz:
		if l := s.ctl.Lesson(); l != nil && l.Title != "" {
			return l.Title
		}
		return "Lesson"
	case session.ViewScore:
		return "Results"
	case session.ViewDashboard:
		return "Class dashboard"
	case session.ViewAdmin:
		return "User administration"
	}
	return "Home"
}

func (s *ClassroomScreen) Badge() layout.Badge {
	sc := s.ctl.Session()
	b := layout.Badge{User: sc.DisplayName(), Role: string(sc.Role())}
	if sc.Role().Elevated() {
		b.Mode = string(sc.Mode())
	}
	return b
}

func (s *ClassroomScreen) KeyHints() []layout.KeyHint {
	quit := layout.KeyHint{Key: "Ctrl+C", Description: "Quit"}
	if s.form != nil {
		return []layout.KeyHint{
			{Key: "Tab", Description: "Next field"},
			{Key: "Ctrl+S", Description: "Generate"},
			{Key: "Esc", Description: "Cancel"},
			quit,
		}
	}
	if s.tutor.focused() {
		return []layout.KeyHint{
			{Key: "Enter", Description: "Ask"},
			{Key: "Esc", Description: "Close tutor"},
			quit,
		}
	}

	switch s.ctl.View() {
	case session.ViewMenu:
		if s.ctl.PendingDelete() != "" {
			return []layout.KeyHint{{Key: "Y", Description: "Delete"}, {Key: "N", Description: "Keep"}}
		}
		return []layout.KeyHint{
			{Key: "↑↓", Description: "Navigate"},
			{Key: "Enter", Description: "Open"},
			{Key: "D", Description: "Delete"},
			{Key: "R", Description: "Refresh"},
			quit,
		}
	case session.ViewLesson:
		return []layout.KeyHint{
			{Key: "↑↓", Description: "Scroll"},
			{Key: "Q", Description: "Start quiz"},
			{Key: "T", Description: "Ask tutor"},
			{Key: "Esc", Description: "Home"},
		}
	case session.ViewQuiz:
		if a := s.ctl.Attempt(); a != nil && a.Locked() {
			label := "Next question"
			if a.IsLast() {
				label = "See results"
			}
			return []layout.KeyHint{{Key: "Enter", Description: label}, {Key: "T", Description: "Ask tutor"}, {Key: "Esc", Description: "Home"}}
		}
		return []layout.KeyHint{
			{Key: "A-F", Description: "Answer"},
			{Key: "↑↓ Enter", Description: "Choose"},
			{Key: "T", Description: "Ask tutor"},
			{Key: "Esc", Description: "Home"},
		}
	case session.ViewScore:
		return []layout.KeyHint{{Key: "Enter", Description: "Home"}, {Key: "T", Description: "Ask tutor"}, quit}
	case session.ViewDashboard:
		return []layout.KeyHint{{Key: "↑↓", Description: "Scroll"}, {Key: "Esc", Description: "Home"}, quit}
	case session.ViewAdmin:
		if s.ctl.PendingUserDelete() != "" {
			return []layout.KeyHint{{Key: "Y", Description: "Delete user"}, {Key: "N", Description: "Keep"}}
		}
		return []layout.KeyHint{
			{Key: "S/T/A", Description: "Set role"},
			{Key: "D", Description: "Delete"},
			{Key: "R", Description: "Reload"},
			{Key: "Esc", Description: "Home"},
		}
	}
	return []layout.KeyHint{quit}
}

func scoreLine(score, total int) string {
	return fmt.Sprintf("%d / %d", score, total)
}
