package classroom

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"charm.land/bubbles/v2/textarea"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/edubot/internal/api"
	"github.com/abhisek/edubot/internal/content"
	"github.com/abhisek/edubot/internal/ui/components"
	"github.com/abhisek/edubot/internal/ui/theme"
)

var difficulties = []content.Difficulty{
	content.DifficultyEasy,
	content.DifficultyMedium,
	content.DifficultyHard,
}

const (
	formMain = iota
	formNum
	formDifficulty
	formAssign
)

var errBadCount = errors.New("number of questions must be a whole number")

// createForm collects one creation request. The assign field exists only
// in teacher mode.
type createForm struct {
	source     content.Source
	text       textarea.Model
	input      components.TextInput
	num        components.TextInput
	difficulty int
	assign     components.TextInput
	showAssign bool
	focus      int
	err        string
}

func newCreateForm(source content.Source, showAssign bool) *createForm {
	f := &createForm{
		source:     source,
		num:        components.NewTextInput("Questions", strconv.Itoa(content.DefaultNumQuestions), 2),
		difficulty: 1,
		assign:     components.NewTextInput("Assign to student (optional)", "student email", 254),
		showAssign: showAssign,
	}
	f.num.NumericOnly = true

	switch source {
	case content.SourceText:
		f.text = textarea.New()
		f.text.Placeholder = "Paste the passage to be quizzed on..."
		f.text.ShowLineNumbers = false
		f.text.CharLimit = 0
	case content.SourceTopic:
		f.input = components.NewTextInput("Topic", "e.g. The water cycle", 200)
	case content.SourceFile:
		f.input = components.NewTextInput("File path", "~/notes/chapter1.md", 1024)
	}
	return f
}

func (f *createForm) title() string {
	switch f.source {
	case content.SourceText:
		return "Quiz me on a text"
	case content.SourceFile:
		return "Quiz me on a file"
	}
	return "Learn a topic"
}

func (f *createForm) fields() int {
	if f.showAssign {
		return 4
	}
	return 3
}

func (f *createForm) setFocus(i int) tea.Cmd {
	n := f.fields()
	f.focus = (i%n + n) % n

	if f.source == content.SourceText {
		f.text.Blur()
	} else {
		f.input.Blur()
	}
	f.num.Blur()
	f.assign.Blur()

	switch f.focus {
	case formMain:
		if f.source == content.SourceText {
			return f.text.Focus()
		}
		return f.input.Focus()
	case formNum:
		return f.num.Focus()
	case formAssign:
		return f.assign.Focus()
	}
	return nil
}

// update forwards msg to the focused widget.
func (f *createForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch f.focus {
	case formMain:
		if f.source == content.SourceText {
			f.text, cmd = f.text.Update(msg)
		} else {
			f.input, cmd = f.input.Update(msg)
		}
	case formNum:
		f.num, cmd = f.num.Update(msg)
	case formAssign:
		f.assign, cmd = f.assign.Update(msg)
	}
	return cmd
}

func (f *createForm) request() (content.CreateRequest, error) {
	req := content.CreateRequest{Source: f.source}
	main := f.input.Value()
	if f.source == content.SourceText {
		main = f.text.Value()
	}
	switch f.source {
	case content.SourceText:
		req.Text = main
	case content.SourceTopic:
		req.Topic = strings.TrimSpace(main)
	case content.SourceFile:
		req.FilePath = expandHome(strings.TrimSpace(main))
	}

	if n := strings.TrimSpace(f.num.Value()); n != "" {
		v, err := strconv.Atoi(n)
		if err != nil {
			return req, errBadCount
		}
		req.Options.NumQuestions = v
	}
	req.Options.Difficulty = difficulties[f.difficulty]
	if f.showAssign {
		req.Options.AssignTo = strings.TrimSpace(f.assign.Value())
	}
	return req, nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func (s *ClassroomScreen) openForm(source content.Source) func() tea.Cmd {
	return func() tea.Cmd {
		s.form = newCreateForm(source, s.ctl.Session().AssignEnabled())
		return s.form.setFocus(formMain)
	}
}

func (s *ClassroomScreen) updateForm(msg tea.KeyMsg) tea.Cmd {
	f := s.form
	switch msg.String() {
	case "esc":
		s.form = nil
		return nil
	case "ctrl+s":
		return s.submitForm()
	case "tab":
		return f.setFocus(f.focus + 1)
	case "shift+tab":
		return f.setFocus(f.focus - 1)
	case "enter":
		if f.focus == formMain && f.source == content.SourceText {
			break
		}
		if f.focus < f.fields()-1 {
			return f.setFocus(f.focus + 1)
		}
		return s.submitForm()
	}

	switch f.focus {
	case formDifficulty:
		switch msg.String() {
		case "left", "h":
			f.difficulty = (f.difficulty + len(difficulties) - 1) % len(difficulties)
		case "right", "l", "space", " ":
			f.difficulty = (f.difficulty + 1) % len(difficulties)
		}
		return nil
	case formAssign:
		if msg.String() == "ctrl+y" {
			if found := s.ctl.SearchResults(); len(found) > 0 {
				f.assign.SetValue(found[0].Email)
			}
			return nil
		}
		before := f.assign.Value()
		cmd := f.update(msg)
		if after := strings.TrimSpace(f.assign.Value()); after != strings.TrimSpace(before) {
			return tea.Batch(cmd, s.do(s.ctl.SearchUsers(after)))
		}
		return cmd
	}
	return f.update(msg)
}

func (s *ClassroomScreen) submitForm() tea.Cmd {
	req, err := s.form.request()
	if err != nil {
		s.form.err = err.Error()
		return nil
	}
	op, err := s.ctl.Create(req)
	if err != nil {
		s.form.err = api.Message(err)
		return nil
	}
	s.form = nil
	return s.run(op)
}

func (s *ClassroomScreen) viewForm(cw int) string {
	f := s.form
	var parts []string
	parts = append(parts, theme.Title.Render(f.title()), "")

	if f.source == content.SourceText {
		f.text.SetWidth(cw - 6)
		f.text.SetHeight(8)
		label := theme.Subtitle.Render("Passage")
		if f.focus == formMain {
			label = theme.Label.Render("Passage")
		}
		parts = append(parts, label+"\n"+f.text.View())
	} else {
		parts = append(parts, f.input.View())
	}
	parts = append(parts, "", f.num.View(), "")

	var diff []string
	for i, d := range difficulties {
		diff = append(diff, components.Button{Label: string(d), Active: i == f.difficulty}.View())
	}
	label := theme.Subtitle.Render("Difficulty")
	if f.focus == formDifficulty {
		label = theme.Label.Render("Difficulty  ←→")
	}
	parts = append(parts, label+"\n"+lipgloss.JoinHorizontal(lipgloss.Top, diff...))

	if f.showAssign {
		parts = append(parts, "", f.assign.View())
		if found := s.ctl.SearchResults(); len(found) > 0 && f.focus == formAssign {
			var lines []string
			for i, u := range found {
				if i == 5 {
					break
				}
				lines = append(lines, fmt.Sprintf("  %s <%s>", u.Name, u.Email))
			}
			parts = append(parts, theme.Hint.Render(strings.Join(lines, "\n")+"\n  ctrl+y to pick the first match"))
		}
	}

	if f.err != "" {
		parts = append(parts, "", theme.Incorrect.Render(f.err))
	}
	return components.Card(strings.Join(parts, "\n"), cw)
}
