package login

import (
	"context"
	"strings"
	"time"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/edubot/internal/api"
	"github.com/abhisek/edubot/internal/content"
	"github.com/abhisek/edubot/internal/logging"
	"github.com/abhisek/edubot/internal/router"
	"github.com/abhisek/edubot/internal/screen"
	"github.com/abhisek/edubot/internal/session"
	"github.com/abhisek/edubot/internal/store"
	"github.com/abhisek/edubot/internal/ui/components"
	"github.com/abhisek/edubot/internal/ui/layout"
	"github.com/abhisek/edubot/internal/ui/theme"
)

// Authenticator exchanges credentials for a token. *api.Client implements it.
type Authenticator interface {
	Login(ctx context.Context, creds content.Credentials) (*api.LoginResult, error)
	Register(ctx context.Context, reg content.Registration) error
}

// Options configures New.
type Options struct {
	Auth    Authenticator
	Session *session.SessionContext
	// Credentials, when set, remembers the token for the next start.
	Credentials store.CredentialRepo
	APIURL      string
	Timeout     time.Duration
	Logger      *logging.Logger

	// Next builds the screen shown after signing in.
	Next func() screen.Screen

	// Notice is shown above the form, e.g. after the session expired.
	Notice string
}

const (
	fieldEmail = iota
	fieldPassword
	fieldUsername
)

type authDoneMsg struct {
	token string
	role  content.Role
	err   error
}

// LoginScreen signs in or registers a user.
type LoginScreen struct {
	opts     Options
	log      *logging.Logger
	fields   []components.TextInput
	focus    int
	register bool
	busy     bool
	spinner  spinner.Model
	err      string
	done     bool
}

var _ screen.Screen = (*LoginScreen)(nil)

func New(opts Options) *LoginScreen {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	s := &LoginScreen{
		opts: opts,
		log:  opts.Logger.With("component", "login"),
		fields: []components.TextInput{
			components.NewTextInput("Email", "you@school.edu", 254),
			components.NewPasswordInput("Password"),
			components.NewTextInput("Display name", "How should EduBot call you?", 50),
		},
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
	s.fields[fieldEmail].Focus()
	return s
}

func (s *LoginScreen) Title() string {
	if s.register {
		return "Create account"
	}
	return "Sign in"
}

func (s *LoginScreen) Init() tea.Cmd {
	return s.fields[s.focus].Focus()
}

// visible is the number of fields shown in the current mode.
func (s *LoginScreen) visible() int {
	if s.register {
		return 3
	}
	return 2
}

func (s *LoginScreen) setFocus(i int) tea.Cmd {
	n := s.visible()
	i = (i%n + n) % n
	s.fields[s.focus].Blur()
	s.focus = i
	return s.fields[i].Focus()
}

func (s *LoginScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !s.busy {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case authDoneMsg:
		return s, s.finish(msg)

	case tea.KeyMsg:
		if s.busy || s.done {
			return s, nil
		}
		switch msg.String() {
		case "tab", "down":
			return s, s.setFocus(s.focus + 1)
		case "shift+tab", "up":
			return s, s.setFocus(s.focus - 1)
		case "ctrl+r":
			s.register = !s.register
			s.err = ""
			if s.focus >= s.visible() {
				return s, s.setFocus(0)
			}
			return s, nil
		case "enter":
			if s.focus < s.visible()-1 {
				return s, s.setFocus(s.focus + 1)
			}
			return s, s.submit()
		}
	}

	var cmd tea.Cmd
	s.fields[s.focus], cmd = s.fields[s.focus].Update(msg)
	return s, cmd
}

func (s *LoginScreen) submit() tea.Cmd {
	creds := content.Credentials{
		Email:    strings.TrimSpace(s.fields[fieldEmail].Value()),
		Password: s.fields[fieldPassword].Value(),
	}
	reg := content.Registration{
		Email:    creds.Email,
		Password: creds.Password,
		Username: strings.TrimSpace(s.fields[fieldUsername].Value()),
	}
	var err error
	if s.register {
		err = content.Validate(reg)
	} else {
		err = content.Validate(creds)
	}
	if err != nil {
		s.err = api.Message(err)
		return nil
	}

	s.busy = true
	s.err = ""
	auth, register, timeout := s.opts.Auth, s.register, s.opts.Timeout
	call := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if register {
			if err := auth.Register(ctx, reg); err != nil {
				return authDoneMsg{err: err}
			}
		}
		res, err := auth.Login(ctx, creds)
		if err != nil {
			return authDoneMsg{err: err}
		}
		return authDoneMsg{token: res.Token, role: res.Role}
	}
	return tea.Batch(call, s.spinner.Tick)
}

func (s *LoginScreen) finish(msg authDoneMsg) tea.Cmd {
	s.busy = false
	if msg.err != nil {
		s.log.Warn("sign in failed", "kind", api.KindOf(msg.err).String(), "error", msg.err)
		s.err = api.Message(msg.err)
		if api.KindOf(msg.err) == api.KindAuth {
			s.err = "Incorrect email or password."
		}
		return nil
	}
	if err := s.opts.Session.SetToken(msg.token); err != nil {
		s.err = "The server returned an unreadable token."
		s.log.Error("bad token", "error", err)
		return nil
	}
	if msg.role != "" {
		s.opts.Session.SetRole(msg.role)
	}
	s.log.Info("signed in", "email", s.opts.Session.Email(), "role", string(s.opts.Session.Role()))

	if s.opts.Credentials != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := s.opts.Credentials.Save(ctx, store.Credential{
			APIURL: s.opts.APIURL,
			Token:  msg.token,
			Email:  s.opts.Session.Email(),
			Role:   string(s.opts.Session.Role()),
		})
		if err != nil {
			s.log.Warn("save credential", "error", err)
		}
	}

	s.done = true
	next := s.opts.Next()
	return func() tea.Msg {
		return router.ReplaceScreenMsg{Screen: next}
	}
}

func (s *LoginScreen) KeyHints() []layout.KeyHint {
	toggle := layout.KeyHint{Key: "Ctrl+R", Description: "Create account"}
	if s.register {
		toggle.Description = "Sign in instead"
	}
	return []layout.KeyHint{
		{Key: "Tab", Description: "Next field"},
		{Key: "Enter", Description: "Submit"},
		toggle,
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

func (s *LoginScreen) View(width, height int) string {
	cw := components.ContentWidth(width)
	sections := []string{renderBanner(width), ""}

	if s.opts.Notice != "" {
		sections = append(sections, components.Banner(s.opts.Notice, true, cw), "")
	}

	var form []string
	for i := 0; i < s.visible(); i++ {
		form = append(form, s.fields[i].View())
	}
	switch {
	case s.busy:
		form = append(form, s.spinner.View()+" "+theme.Hint.Render("Contacting "+s.opts.APIURL+"..."))
	case s.err != "":
		form = append(form, theme.Incorrect.Render(s.err))
	default:
		form = append(form, theme.Hint.Render("Enter to "+strings.ToLower(s.Title())))
	}
	sections = append(sections, components.Card(strings.Join(form, "\n\n"), cw))

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, sections...))
}
