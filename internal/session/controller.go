package session

import (
	"context"
	"strings"

	"github.com/abhisek/edubot/internal/api"
	"github.com/abhisek/edubot/internal/content"
	"github.com/abhisek/edubot/internal/logging"
)

// View is the screen the controller is showing.
type View int

const (
	ViewMenu View = iota
	ViewLesson
	ViewQuiz
	ViewScore
	ViewDashboard
	ViewAdmin
)

func (v View) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewLesson:
		return "lesson"
	case ViewQuiz:
		return "quiz"
	case ViewScore:
		return "score"
	case ViewDashboard:
		return "dashboard"
	case ViewAdmin:
		return "admin"
	}
	return "unknown"
}

// Feedback and tutor placeholder texts.
const (
	FeedbackPending  = "Analyzing your performance..."
	FeedbackFallback = "Good effort! Keep practicing."
	TutorFallback    = "I couldn't answer that right now. Please try again."
)

// BannerKind distinguishes error banners from confirmations.
type BannerKind int

const (
	BannerInfo BannerKind = iota
	BannerError
)

// Banner is a dismissible notice. Seq increases with every banner so a
// timed dismissal can tell whether it still refers to the same one.
type Banner struct {
	Kind BannerKind
	Text string
	Seq  int
}

// Op is a deferred ContentService call. The UI runs it off the update loop
// and hands the Result back to Apply.
type Op func(ctx context.Context) Result

// Result is the outcome of an Op.
type Result interface {
	result()
}

// Options configures NewController.
type Options struct {
	Service  ContentService
	Session  *SessionContext
	Recorder AttemptRecorder
	Logger   *logging.Logger

	// OnAuthFailure runs after the session was cleared because the server
	// rejected the credential.
	OnAuthFailure func()
}

// Controller is the session view state machine. It is not safe for
// concurrent use: call it from the UI loop only.
type Controller struct {
	svc           ContentService
	sc            *SessionContext
	recorder      AttemptRecorder
	log           *logging.Logger
	onAuthFailure func()

	view View

	// epoch changes on logout and auth failure. Results issued before
	// that are dropped.
	epoch int

	// gen identifies the open lesson. Lesson-scoped results carry the gen
	// they were issued under and are dropped once it changes.
	gen      int
	lesson   *content.Lesson
	attempt  *Attempt
	dialogue Dialogue

	feedback        string
	feedbackPending bool
	tutorBusy       bool

	history        []content.HistoryEntry
	historyToken   int
	historyLoading bool

	loading       bool
	deleting      bool
	pendingDelete string

	dashboard        []content.DashboardRow
	dashboardLoading bool

	users             []content.UserSummary
	usersLoading      bool
	adminBusy         bool
	pendingUserDelete string

	searchToken   int
	searchResults []content.UserSummary

	banner    *Banner
	bannerSeq int
}

func NewController(opts Options) *Controller {
	if opts.Session == nil {
		opts.Session = NewSessionContext()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	return &Controller{
		svc:           opts.Service,
		sc:            opts.Session,
		recorder:      opts.Recorder,
		log:           opts.Logger.With("component", "session"),
		onAuthFailure: opts.OnAuthFailure,
		view:          ViewMenu,
	}
}

// Init returns the start-up requests: role and history.
func (c *Controller) Init() []Op {
	return []Op{c.LoadRole(), c.RefreshHistory()}
}

func (c *Controller) View() View                           { return c.view }
func (c *Controller) Session() *SessionContext             { return c.sc }
func (c *Controller) Lesson() *content.Lesson              { return c.lesson }
func (c *Controller) Attempt() *Attempt                    { return c.attempt }
func (c *Controller) Dialogue() []Message                  { return c.dialogue.Messages() }
func (c *Controller) History() []content.HistoryEntry      { return c.history }
func (c *Controller) HistoryLoading() bool                 { return c.historyLoading }
func (c *Controller) Busy() bool                           { return c.loading }
func (c *Controller) Deleting() bool                       { return c.deleting }
func (c *Controller) PendingDelete() string                { return c.pendingDelete }
func (c *Controller) TutorBusy() bool                      { return c.tutorBusy }
func (c *Controller) Dashboard() []content.DashboardRow    { return c.dashboard }
func (c *Controller) DashboardLoading() bool               { return c.dashboardLoading }
func (c *Controller) Users() []content.UserSummary         { return c.users }
func (c *Controller) UsersLoading() bool                   { return c.usersLoading }
func (c *Controller) AdminBusy() bool                      { return c.adminBusy }
func (c *Controller) PendingUserDelete() string            { return c.pendingUserDelete }
func (c *Controller) SearchResults() []content.UserSummary { return c.searchResults }

// Feedback returns the score-view feedback text and whether it is still
// being fetched.
func (c *Controller) Feedback() (string, bool) { return c.feedback, c.feedbackPending }

// Banner returns the current notice, if any.
func (c *Controller) Banner() (Banner, bool) {
	if c.banner == nil {
		return Banner{}, false
	}
	return *c.banner, true
}

// DismissBanner clears the current notice.
func (c *Controller) DismissBanner() { c.banner = nil }

// DismissBannerSeq clears the notice only if it is still banner seq.
func (c *Controller) DismissBannerSeq(seq int) {
	if c.banner != nil && c.banner.Seq == seq {
		c.banner = nil
	}
}

// Notify shows err as an error banner. The UI uses it for errors returned
// synchronously by controller methods.
func (c *Controller) Notify(err error) {
	if err != nil {
		c.showError(err)
	}
}

func (c *Controller) showInfo(text string) {
	c.bannerSeq++
	c.banner = &Banner{Kind: BannerInfo, Text: text, Seq: c.bannerSeq}
}

func (c *Controller) showError(err error) {
	c.bannerSeq++
	c.banner = &Banner{Kind: BannerError, Text: api.Message(err), Seq: c.bannerSeq}
}

// fail applies the error policy to a failed remote call. It reports true
// when the failure was an auth failure and the session has been reset.
func (c *Controller) fail(what string, err error) bool {
	kind := api.KindOf(err)
	c.log.Warn("request failed", "action", what, "kind", kind.String(), "error", err)
	if kind == api.KindAuth {
		c.authFailure()
		return true
	}
	c.showError(err)
	return false
}

func (c *Controller) authFailure() {
	c.sc.Clear()
	c.reset()
	c.bannerSeq++
	c.banner = &Banner{Kind: BannerError, Text: (&api.Error{Kind: api.KindAuth}).Message(), Seq: c.bannerSeq}
	if c.onAuthFailure != nil {
		c.onAuthFailure()
	}
}

// reset returns the controller to its initial state. Outstanding results
// are invalidated.
func (c *Controller) reset() {
	c.epoch++
	c.closeLesson()
	c.view = ViewMenu
	c.history = nil
	c.historyToken++
	c.historyLoading = false
	c.loading = false
	c.deleting = false
	c.pendingDelete = ""
	c.dashboard = nil
	c.dashboardLoading = false
	c.users = nil
	c.usersLoading = false
	c.adminBusy = false
	c.pendingUserDelete = ""
	c.searchToken++
	c.searchResults = nil
	c.banner = nil
}

// closeLesson drops the open lesson with its attempt, dialogue and
// feedback.
func (c *Controller) closeLesson() {
	c.gen++
	c.lesson = nil
	c.attempt = nil
	c.dialogue.reset()
	c.feedback = ""
	c.feedbackPending = false
	c.tutorBusy = false
}

// openLesson makes l current with a fresh attempt and shows the passage,
// or the quiz directly when there is none.
func (c *Controller) openLesson(l *content.Lesson) {
	c.closeLesson()
	c.lesson = l
	c.attempt = NewAttempt(l.Quiz)
	c.pendingDelete = ""
	c.view = ViewLesson
	if l.QuizOnly() {
		c.view = ViewQuiz
	}
	c.log.Debug("lesson opened", "lesson_id", l.ID, "questions", len(l.Quiz), "view", c.view.String())
}

// GoHome returns to the menu from anywhere, discarding the open lesson,
// and refreshes history.
func (c *Controller) GoHome() []Op {
	c.closeLesson()
	c.view = ViewMenu
	c.pendingDelete = ""
	c.pendingUserDelete = ""
	c.dashboard = nil
	c.users = nil
	c.searchResults = nil
	return []Op{c.RefreshHistory()}
}

// Logout clears the session and all state.
func (c *Controller) Logout() {
	c.sc.Clear()
	c.reset()
}

// StartQuiz moves from the passage to its quiz.
func (c *Controller) StartQuiz() error {
	if c.view != ViewLesson || c.attempt == nil {
		return ErrInvalidTransition
	}
	c.view = ViewQuiz
	return nil
}

// SelectAnswer locks option as the answer to the current question.
func (c *Controller) SelectAnswer(option string) bool {
	if c.view != ViewQuiz || c.attempt == nil {
		return false
	}
	return c.attempt.Select(option)
}

// Advance moves past the answered question. After the last one the view
// switches to score and the returned ops submit the result for feedback
// and record the attempt locally. History is refreshed once the submit
// has answered.
func (c *Controller) Advance() ([]Op, error) {
	if c.view != ViewQuiz || c.attempt == nil {
		return nil, ErrInvalidTransition
	}
	finished, err := c.attempt.Advance()
	if err != nil || !finished {
		return nil, err
	}

	c.view = ViewScore
	c.feedback = FeedbackPending
	c.feedbackPending = true
	report := content.ScoreReport{
		Score:    c.attempt.Score(),
		Total:    c.attempt.Total(),
		Topic:    c.lessonTopic(),
		LessonID: c.lesson.ID,
	}
	c.log.Info("quiz completed", "lesson_id", report.LessonID, "score", report.Score, "total", report.Total)

	gen, epoch := c.gen, c.epoch
	ops := []Op{
		func(ctx context.Context) Result {
			text, err := c.svc.SubmitScore(ctx, report)
			return feedbackResult{epoch: epoch, gen: gen, text: text, err: err}
		},
	}
	if c.recorder != nil {
		rec := c.recorder
		ops = append(ops, func(ctx context.Context) Result {
			return recordResult{err: rec.RecordAttempt(ctx, report)}
		})
	}
	return ops, nil
}

func (c *Controller) lessonTopic() string {
	if c.lesson == nil {
		return ""
	}
	for _, s := range []string{c.lesson.Topic, c.lesson.Title} {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return "Reading"
}

// LoadRole fetches the authoritative role.
func (c *Controller) LoadRole() Op {
	epoch := c.epoch
	return func(ctx context.Context) Result {
		role, err := c.svc.GetRole(ctx)
		return roleResult{epoch: epoch, role: role, err: err}
	}
}

// SetMode switches between student and teacher mode. Leaving teacher mode
// closes the dashboard.
func (c *Controller) SetMode(m Mode) error {
	if err := c.sc.SetMode(m); err != nil {
		return err
	}
	if m == ModeStudent {
		c.searchResults = nil
		if c.view == ViewDashboard {
			c.view = ViewMenu
			c.dashboard = nil
		}
	}
	return nil
}

// Apply folds a finished Op back into the state and returns follow-up ops.
func (c *Controller) Apply(r Result) []Op {
	switch r := r.(type) {
	case historyResult:
		return c.applyHistory(r)
	case lessonResult:
		return c.applyLesson(r)
	case deleteResult:
		return c.applyDelete(r)
	case feedbackResult:
		return c.applyFeedback(r)
	case tutorResult:
		c.applyTutor(r)
	case roleResult:
		c.applyRole(r)
	case recordResult:
		if r.err != nil {
			c.log.Warn("record attempt", "error", r.err)
		}
	case dashboardResult:
		c.applyDashboard(r)
	case usersResult:
		c.applyUsers(r)
	case searchResult:
		c.applySearch(r)
	case roleChangeResult:
		return c.applyRoleChange(r)
	case userDeleteResult:
		return c.applyUserDelete(r)
	}
	return nil
}

// applyFeedback shows the feedback text and refreshes history, which now
// carries the submitted score. A reply for a lesson that is no longer open
// only refreshes.
func (c *Controller) applyFeedback(r feedbackResult) []Op {
	if r.epoch != c.epoch {
		return nil
	}
	if r.gen != c.gen {
		return []Op{c.RefreshHistory()}
	}
	c.feedbackPending = false
	if r.err != nil {
		c.log.Warn("feedback failed", "error", r.err)
		c.feedback = FeedbackFallback
		if api.KindOf(r.err) == api.KindAuth {
			c.authFailure()
			return nil
		}
		return []Op{c.RefreshHistory()}
	}
	c.feedback = r.text
	if strings.TrimSpace(c.feedback) == "" {
		c.feedback = FeedbackFallback
	}
	return []Op{c.RefreshHistory()}
}

func (c *Controller) applyRole(r roleResult) {
	if r.epoch != c.epoch {
		return
	}
	if r.err != nil {
		c.fail("load role", r.err)
		return
	}
	c.sc.SetRole(r.role)
	if !c.sc.CanAdmin() && c.view == ViewAdmin {
		c.view = ViewMenu
	}
	if !c.sc.CanViewDashboard() && c.view == ViewDashboard {
		c.view = ViewMenu
	}
}

type feedbackResult struct {
	epoch int
	gen   int
	text  string
	err   error
}

type roleResult struct {
	epoch int
	role  content.Role
	err   error
}

type recordResult struct{ err error }

func (feedbackResult) result() {}
func (roleResult) result()     {}
func (recordResult) result()   {}
