package app

import (
	"fmt"
	"os"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/edubot/internal/logging"
	"github.com/abhisek/edubot/internal/router"
	"github.com/abhisek/edubot/internal/screen"
	"github.com/abhisek/edubot/internal/screens/classroom"
	"github.com/abhisek/edubot/internal/screens/login"
	"github.com/abhisek/edubot/internal/session"
	"github.com/abhisek/edubot/internal/store"
	"github.com/abhisek/edubot/internal/ui/layout"
)

// Options holds the dependencies the screens are built from.
type Options struct {
	Service session.ContentService
	// Auth signs users in. It is nil in offline mode.
	Auth        login.Authenticator
	Session     *session.SessionContext
	Credentials store.CredentialRepo
	Recorder    session.AttemptRecorder
	Logger      *logging.Logger

	APIURL       string
	Timeout      time.Duration
	HistoryLimit int
	Offline      bool
}

func (o Options) classroom() screen.Screen {
	return classroom.New(classroom.Options{
		Service:      o.Service,
		Session:      o.Session,
		Recorder:     o.Recorder,
		Logger:       o.Logger,
		Timeout:      o.Timeout,
		HistoryLimit: o.HistoryLimit,
		Offline:      o.Offline,
		Credentials:  o.Credentials,
		APIURL:       o.APIURL,
		SignIn:       o.login,
	})
}

func (o Options) login(notice string) screen.Screen {
	return login.New(login.Options{
		Auth:        o.Auth,
		Session:     o.Session,
		Credentials: o.Credentials,
		APIURL:      o.APIURL,
		Timeout:     o.Timeout,
		Logger:      o.Logger,
		Next:        o.classroom,
		Notice:      notice,
	})
}

// initial skips the login screen when a valid credential is already held.
func (o Options) initial() screen.Screen {
	if o.Offline || o.Session.Authenticated(time.Now()) {
		return o.classroom()
	}
	return o.login("")
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router *router.Router
	width  int
	height int
}

func newAppModel(opts Options) AppModel {
	if opts.Session == nil {
		opts.Session = session.NewSessionContext()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	return AppModel{
		router: router.New(opts.initial()),
	}
}

func (m AppModel) Init() tea.Cmd {
	if active := m.router.Active(); active != nil {
		return active.Init()
	}
	return nil
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.router.Depth() > 1 {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}

	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	active := m.router.Active()
	title := ""
	var badge layout.Badge
	if active != nil {
		title = active.Title()
		if bp, ok := active.(screen.BadgeProvider); ok {
			badge = bp.Badge()
		}
	}

	header := layout.RenderHeader(title, badge, m.width)

	footerHints := []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Select"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
	if kp, ok := active.(screen.KeyHintProvider); ok {
		footerHints = kp.KeyHints()
	}

	footer := layout.RenderFooter(footerHints, m.width)

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := m.height - headerHeight - footerHeight
	if contentHeight < 0 {
		contentHeight = 0
	}

	content := m.router.View(m.width, contentHeight)
	frame := layout.RenderFrame(header, content, footer, m.width, m.height)

	v.SetContent(frame)
	return v
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	p := tea.NewProgram(newAppModel(opts))
	_, err := p.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
